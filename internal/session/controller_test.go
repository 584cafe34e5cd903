package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scythe504/skribblr-sync/internal"
)

var roster = []internal.Player{
	{ID: "p1", Name: "bob"},
	{ID: "p2", Name: "ann"},
}

func newController(t *testing.T) (*Controller, *mockDirectory, *fakeChannel) {
	t.Helper()
	dir := &mockDirectory{}
	ch := newFakeChannel()
	c := New(dir, ch, zerolog.Nop())
	t.Cleanup(func() { dir.AssertExpectations(t) })
	return c, dir, ch
}

// joined returns a controller already in room 1234 as p2.
func joined(t *testing.T) (*Controller, *mockDirectory, *fakeChannel) {
	t.Helper()
	c, dir, ch := newController(t)
	dir.On("JoinRoom", mock.Anything, "1234", "ann").Return("p2", nil).Once()
	dir.On("FetchRoom", mock.Anything, "1234").Return(internal.RoomSnapshot{Code: "1234", Players: roster}, nil).Once()
	require.NoError(t, c.Join(context.Background(), "1234", "ann"))
	return c, dir, ch
}

func snapshot(word string, players ...internal.Player) internal.RoundData {
	return internal.RoundData{
		CurrentWord: word,
		Room:        internal.RoomSnapshot{Code: "1234", Players: players, CurrentRound: 1, CurrentWord: word, TimeRemaining: 60},
	}
}

func TestController_LeaveAndEndOnInitialViewAreNoOps(t *testing.T) {
	c, _, ch := newController(t)
	published := 0
	c.Watch(func(internal.ClientView) { published++ })

	c.Leave(context.Background())
	c.End(context.Background())
	c.Leave(context.Background())

	if diff := cmp.Diff(internal.NewClientView(), c.View()); diff != "" {
		t.Fatalf("view changed (-want +got):\n%s", diff)
	}
	assert.Zero(t, published)
	assert.Zero(t, ch.disconnects)
}

func TestController_JoinInitializesView(t *testing.T) {
	c, dir, ch := newController(t)
	var views []internal.ClientView
	c.Watch(func(v internal.ClientView) { views = append(views, v) })

	dir.On("JoinRoom", mock.Anything, "1234", "ann").Return("p2", nil).Once()
	dir.On("FetchRoom", mock.Anything, "1234").Return(internal.RoomSnapshot{Code: "1234", Players: roster, CurrentWord: "secret"}, nil).Once()

	require.NoError(t, c.Join(context.Background(), " 1234 ", " ann "))

	want := internal.NewClientView()
	want.RoomCode = "1234"
	want.Connected = true
	want.Players = roster
	want.LocalPlayer = &internal.Player{ID: "p2", Name: "ann"}
	if diff := cmp.Diff(want, c.View()); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"1234"}, ch.connected)
	require.Len(t, views, 1)
	assert.True(t, views[0].Connected)
}

func TestController_JoinPreconditions(t *testing.T) {
	c, _, ch := newController(t)

	for _, code := range []string{"", "12", "12a4", "12345"} {
		err := c.Join(context.Background(), code, "ann")
		assert.ErrorIs(t, err, ErrInvalidRoomCode, "code %q", code)
	}
	assert.ErrorIs(t, c.Join(context.Background(), "1234", "  "), ErrInvalidName)
	assert.Empty(t, ch.connected)

	c, _, ch = joined(t)
	err := c.Join(context.Background(), "5678", "ann")
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, []string{"1234"}, ch.connected, "active channel must not be replaced")
	assert.Equal(t, "1234", c.View().RoomCode)
}

func TestController_JoinFailuresResetTheSession(t *testing.T) {
	boom := errors.New("boom")

	t.Run("directory join", func(t *testing.T) {
		c, dir, ch := newController(t)
		dir.On("JoinRoom", mock.Anything, "1234", "ann").Return("", boom).Once()

		err := c.Join(context.Background(), "1234", "ann")
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, ch.connected)
		assert.Equal(t, internal.NewClientView(), c.View())
	})

	t.Run("channel connect", func(t *testing.T) {
		c, dir, ch := newController(t)
		ch.connectErr = boom
		dir.On("JoinRoom", mock.Anything, "1234", "ann").Return("p2", nil).Once()
		dir.On("LeaveRoom", mock.Anything, "1234", "p2").Return(nil).Once()

		err := c.Join(context.Background(), "1234", "ann")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, internal.NewClientView(), c.View())
	})

	t.Run("roster fetch", func(t *testing.T) {
		c, dir, ch := newController(t)
		dir.On("JoinRoom", mock.Anything, "1234", "ann").Return("p2", nil).Once()
		dir.On("FetchRoom", mock.Anything, "1234").Return(internal.RoomSnapshot{}, boom).Once()
		dir.On("LeaveRoom", mock.Anything, "1234", "p2").Return(nil).Once()

		err := c.Join(context.Background(), "1234", "ann")
		assert.ErrorIs(t, err, boom)
		assert.False(t, ch.isOpen())
		assert.Equal(t, 1, ch.disconnects)
		assert.Equal(t, internal.NewClientView(), c.View())
	})

	t.Run("session can join again", func(t *testing.T) {
		c, dir, _ := newController(t)
		dir.On("JoinRoom", mock.Anything, "1234", "ann").Return("", boom).Once()
		require.Error(t, c.Join(context.Background(), "1234", "ann"))

		dir.On("JoinRoom", mock.Anything, "1234", "ann").Return("p2", nil).Once()
		dir.On("FetchRoom", mock.Anything, "1234").Return(internal.RoomSnapshot{Players: roster}, nil).Once()
		assert.NoError(t, c.Join(context.Background(), "1234", "ann"))
	})
}

func TestController_ResetDiscardsInFlightResults(t *testing.T) {
	// block holds a mocked directory call until release is closed and closes
	// entered once the call has started.
	block := func(entered, release chan struct{}) func(mock.Arguments) {
		return func(mock.Arguments) {
			close(entered)
			<-release
		}
	}

	t.Run("leave during directory join", func(t *testing.T) {
		c, dir, ch := newController(t)
		entered, release := make(chan struct{}), make(chan struct{})
		dir.On("JoinRoom", mock.Anything, "1234", "ann").Run(block(entered, release)).Return("p2", nil).Once()
		dir.On("LeaveRoom", mock.Anything, "1234", "p2").Return(nil).Once()

		errc := make(chan error, 1)
		go func() { errc <- c.Join(context.Background(), "1234", "ann") }()
		<-entered
		c.Leave(context.Background())
		close(release)

		require.ErrorIs(t, <-errc, ErrSessionReset)
		if diff := cmp.Diff(internal.NewClientView(), c.View()); diff != "" {
			t.Fatalf("view changed (-want +got):\n%s", diff)
		}
		assert.Empty(t, ch.connected, "a reset join never opens the channel")
		assert.False(t, ch.isOpen())
	})

	t.Run("leave during roster fetch", func(t *testing.T) {
		c, dir, ch := newController(t)
		entered, release := make(chan struct{}), make(chan struct{})
		dir.On("JoinRoom", mock.Anything, "1234", "ann").Return("p2", nil).Once()
		dir.On("FetchRoom", mock.Anything, "1234").Run(block(entered, release)).
			Return(internal.RoomSnapshot{Code: "1234", Players: roster}, nil).Once()
		dir.On("LeaveRoom", mock.Anything, "1234", "p2").Return(nil).Once()

		errc := make(chan error, 1)
		go func() { errc <- c.Join(context.Background(), "1234", "ann") }()
		<-entered
		c.Leave(context.Background())
		close(release)

		require.ErrorIs(t, <-errc, ErrSessionReset)
		if diff := cmp.Diff(internal.NewClientView(), c.View()); diff != "" {
			t.Fatalf("late roster leaked into the view (-want +got):\n%s", diff)
		}
		assert.False(t, ch.isOpen())
		assert.Equal(t, 1, ch.disconnects)
	})

	t.Run("refresh completing after leave", func(t *testing.T) {
		c, dir, ch := joined(t)
		entered, release := make(chan struct{}), make(chan struct{})
		dir.On("FetchRoom", mock.Anything, "1234").Run(block(entered, release)).
			Return(internal.RoomSnapshot{Code: "1234", Players: roster}, nil).Once()
		dir.On("LeaveRoom", mock.Anything, "1234", "p2").Return(nil).Once()

		errc := make(chan error, 1)
		go func() { errc <- c.Refresh(context.Background()) }()
		<-entered
		c.Leave(context.Background())
		close(release)

		require.ErrorIs(t, <-errc, ErrSessionReset)
		if diff := cmp.Diff(internal.NewClientView(), c.View()); diff != "" {
			t.Fatalf("late roster leaked into the view (-want +got):\n%s", diff)
		}
		assert.False(t, ch.isOpen())
	})
}

func TestController_LocalIdentityAgainstRoster(t *testing.T) {
	c, dir, _ := newController(t)
	stale := []internal.Player{{ID: "p1", Name: "bob"}}
	dir.On("JoinRoom", mock.Anything, "1234", "ann").Return("p2", nil).Once()
	dir.On("FetchRoom", mock.Anything, "1234").Return(internal.RoomSnapshot{Code: "1234", Players: stale}, nil).Twice()

	require.NoError(t, c.Join(context.Background(), "1234", "ann"))
	assert.Equal(t, &internal.Player{ID: "p2", Name: "ann"}, c.View().LocalPlayer,
		"join keeps the identity the directory handed out")

	require.NoError(t, c.Refresh(context.Background()))
	v := c.View()
	assert.Nil(t, v.LocalPlayer, "a later roster without the player drops it")
	assert.Equal(t, "1234", v.RoomCode)
}

func TestController_SubscribeFrames(t *testing.T) {
	c, _, ch := newController(t)
	var got []internal.Event
	unsubscribe := c.SubscribeFrames(func(ev internal.Event) { got = append(got, ev) })

	stroke := internal.DrawData{X: 0.1, Y: 0.2, Color: "#000"}
	ch.emit(stroke)
	unsubscribe()
	ch.emit(internal.DrawData{X: 0.3, Y: 0.4, Color: "#000"})

	assert.Equal(t, []internal.Event{stroke}, got)
	assert.Equal(t, internal.NewClientView(), c.View(), "draw frames do not touch the view")
}

func TestController_FramesDriveTheView(t *testing.T) {
	c, _, ch := joined(t)
	var words []string
	c.Watch(func(v internal.ClientView) { words = append(words, v.CurrentWord) })

	ch.emit(
		internal.GameStartData{RoundData: snapshot("cat",
			internal.Player{ID: "p1", Name: "bob", IsDrawing: true},
			internal.Player{ID: "p2", Name: "ann"},
		)},
		internal.TimeUpdateData{TimeRemaining: 42},
	)

	v := c.View()
	assert.Equal(t, "cat", v.CurrentWord)
	assert.Equal(t, 42, v.TimeRemaining)
	require.NotNil(t, v.LocalPlayer)
	assert.False(t, v.LocalPlayer.IsDrawing)
	assert.True(t, v.CanGuess())
	assert.Equal(t, "_ _ _", v.DisplayWord())

	ch.emit(internal.GuessData{PlayerID: "p2", Correct: true, Word: "cat"})
	v = c.View()
	assert.Equal(t, 1, v.LocalPlayer.Score)
	assert.Equal(t, []string{"cat", "cat", "cat"}, words)
}

func TestController_IgnoresFramesWithoutRoom(t *testing.T) {
	c, _, ch := newController(t)
	published := 0
	c.Watch(func(internal.ClientView) { published++ })

	ch.emit(internal.TimeUpdateData{TimeRemaining: 3}, internal.PlayerJoinedData{Player: internal.Player{ID: "x"}})

	assert.Equal(t, internal.NewClientView(), c.View())
	assert.Zero(t, published)
}

func TestController_LeaveAlwaysResetsLocally(t *testing.T) {
	for _, leaveErr := range []error{nil, errors.New("unreachable")} {
		c, dir, ch := joined(t)
		dir.On("LeaveRoom", mock.Anything, "1234", "p2").Return(leaveErr).Once()

		c.Leave(context.Background())

		assert.Equal(t, internal.NewClientView(), c.View())
		assert.False(t, ch.isOpen())

		ch.emit(internal.TimeUpdateData{TimeRemaining: 5})
		assert.Equal(t, internal.InitialTimeRemaining, c.View().TimeRemaining, "frames after leave are ignored")

		c.Leave(context.Background())
		dir.AssertNumberOfCalls(t, "LeaveRoom", 1)
	}
}

func TestController_EndAlwaysResetsLocally(t *testing.T) {
	c, dir, ch := joined(t)
	dir.On("EndRoom", mock.Anything, "1234").Return(errors.New("status 500")).Once()

	c.End(context.Background())

	assert.Equal(t, internal.NewClientView(), c.View())
	assert.False(t, ch.isOpen())
}

func TestController_LocalPlayerRemovedStillLeaves(t *testing.T) {
	c, _, ch := joined(t)
	ch.emit(internal.PlayerLeftData{PlayerID: "p2"})
	require.Nil(t, c.View().LocalPlayer)

	c.Leave(context.Background())
	assert.Equal(t, internal.NewClientView(), c.View())
}

func TestController_Start(t *testing.T) {
	c, dir, _ := newController(t)
	assert.ErrorIs(t, c.Start(context.Background()), ErrNotInRoom)

	c, dir, _ = joined(t)
	notEnough := errors.New("need at least 2 players")
	dir.On("StartRound", mock.Anything, "1234").Return(notEnough).Once()
	assert.ErrorIs(t, c.Start(context.Background()), notEnough)

	dir.On("StartRound", mock.Anything, "1234").Return(nil).Once()
	before := c.View()
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, before, c.View(), "start does not touch the view")
}

func TestController_SendGating(t *testing.T) {
	c, _, ch := newController(t)
	assert.False(t, c.SendDrawing(internal.DrawData{X: 1, Y: 1, Color: "#000"}), "not in a room")

	c, _, ch = joined(t)
	assert.True(t, c.SendDrawing(internal.DrawData{X: 1, Y: 1, Color: "#000"}), "anyone may doodle between rounds")
	assert.False(t, c.SendGuess("cat"), "no round in progress")

	ch.emit(internal.GameStartData{RoundData: snapshot("cat",
		internal.Player{ID: "p1", Name: "bob", IsDrawing: true},
		internal.Player{ID: "p2", Name: "ann"},
	)})
	assert.False(t, c.SendDrawing(internal.DrawData{X: 2, Y: 2, Color: "#000"}), "guessers may not draw")
	assert.False(t, c.SendGuess("   "))
	assert.True(t, c.SendGuess(" Cat "))

	assert.Equal(t, []internal.Event{
		internal.DrawData{X: 1, Y: 1, Color: "#000"},
		internal.GuessData{PlayerID: "p2", Guess: "Cat"},
	}, ch.sent)
}

func TestController_IncrementScoreRefreshesRoster(t *testing.T) {
	c, dir, _ := joined(t)
	dir.On("IncrementScore", mock.Anything, "1234", "p2").Return(nil).Once()
	dir.On("FetchRoom", mock.Anything, "1234").Return(internal.RoomSnapshot{Players: []internal.Player{
		{ID: "p1", Name: "bob"},
		{ID: "p2", Name: "ann", Score: 1},
	}}, nil).Once()

	require.NoError(t, c.IncrementScore(context.Background()))

	v := c.View()
	require.NotNil(t, v.LocalPlayer)
	assert.Equal(t, 1, v.LocalPlayer.Score)
	assert.Equal(t, 1, v.Players[1].Score)
}

func TestController_CreateAndJoin(t *testing.T) {
	c, dir, _ := newController(t)
	dir.On("CreateRoom", mock.Anything).Return("4821", nil).Once()
	dir.On("JoinRoom", mock.Anything, "4821", "ann").Return("1", nil).Once()
	dir.On("FetchRoom", mock.Anything, "4821").Return(internal.RoomSnapshot{Players: []internal.Player{{ID: "1", Name: "ann"}}}, nil).Once()

	code, err := c.CreateAndJoin(context.Background(), "ann")
	require.NoError(t, err)
	assert.Equal(t, "4821", code)
	assert.Equal(t, "4821", c.View().RoomCode)
}

func TestController_CloseDetachesFromChannel(t *testing.T) {
	c, dir, ch := joined(t)
	dir.On("LeaveRoom", mock.Anything, "1234", "p2").Return(nil).Once()

	c.Close(context.Background())
	assert.Zero(t, ch.subs.Len())
}
