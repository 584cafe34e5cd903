// Package session sequences room-directory calls with the room channel and
// owns the canonical client view.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scythe504/skribblr-sync/internal"
	"github.com/scythe504/skribblr-sync/internal/reducer"
	"github.com/scythe504/skribblr-sync/internal/transport"
	"github.com/scythe504/skribblr-sync/internal/utils"
)

var (
	ErrSessionActive   = errors.New("session already joined to a room")
	ErrNotInRoom       = errors.New("session is not in a room")
	ErrSessionReset    = errors.New("session was reset while the call was in flight")
	ErrInvalidRoomCode = errors.New("room code must be 4 digits")
	ErrInvalidName     = errors.New("player name is required")
)

const teardownTimeout = 5 * time.Second

// Directory is the request/response side of a room.
type Directory interface {
	CreateRoom(ctx context.Context) (string, error)
	JoinRoom(ctx context.Context, code, name string) (string, error)
	LeaveRoom(ctx context.Context, code, playerID string) error
	EndRoom(ctx context.Context, code string) error
	StartRound(ctx context.Context, code string) error
	NextRound(ctx context.Context, code string) error
	IncrementScore(ctx context.Context, code, playerID string) error
	FetchRoom(ctx context.Context, code string) (internal.RoomSnapshot, error)
}

// Channel is the realtime side of a room.
type Channel interface {
	Connect(ctx context.Context, room string) error
	Disconnect()
	Send(ev internal.Event) bool
	Subscribe(h transport.Handler) (unsubscribe func())
}

// Controller owns the single client view. Inbound frames are folded into it
// with the reducer; every change is published to watchers in order.
//
// Watchers run synchronously while publication is serialized, so a watcher
// must not call back into Join, Leave, End or other mutating methods on the
// same goroutine.
type Controller struct {
	dir      Directory
	ch       Channel
	log      zerolog.Logger
	watchers *transport.Registry[internal.ClientView]
	unsub    func()

	mu      sync.Mutex
	view    internal.ClientView
	gen     uint64
	pending bool

	pubMu sync.Mutex
}

func New(dir Directory, ch Channel, logger zerolog.Logger) *Controller {
	c := &Controller{
		dir:      dir,
		ch:       ch,
		log:      logger.With().Str("component", "session").Logger(),
		watchers: transport.NewRegistry[internal.ClientView](),
		view:     internal.NewClientView(),
	}
	c.unsub = ch.Subscribe(c.onFrame)
	return c
}

// View returns a copy of the current view.
func (c *Controller) View() internal.ClientView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Clone()
}

// Watch registers fn for every view change.
func (c *Controller) Watch(fn func(internal.ClientView)) (unwatch func()) {
	return c.watchers.Add(fn)
}

func (c *Controller) CreateRoom(ctx context.Context) (string, error) {
	code, err := c.dir.CreateRoom(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("[CreateRoom] directory call failed")
		return "", fmt.Errorf("create room: %w", err)
	}
	c.log.Info().Str("room", code).Msg("[CreateRoom] room created")
	return code, nil
}

// CreateAndJoin creates a room and joins it as name.
func (c *Controller) CreateAndJoin(ctx context.Context, name string) (string, error) {
	code, err := c.CreateRoom(ctx)
	if err != nil {
		return "", err
	}
	if err := c.Join(ctx, code, name); err != nil {
		return code, err
	}
	return code, nil
}

// Join registers with the directory, opens the room channel and loads the
// roster. On any failure the session is back in its initial state.
func (c *Controller) Join(ctx context.Context, code, name string) error {
	code = utils.NormalizeRoomCode(code)
	if !utils.ValidRoomCode(code) {
		return fmt.Errorf("%w: %q", ErrInvalidRoomCode, code)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	c.mu.Lock()
	if c.view.RoomCode != "" || c.pending {
		current := c.view.RoomCode
		c.mu.Unlock()
		return fmt.Errorf("%w (room %s)", ErrSessionActive, current)
	}
	c.pending = true
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
	}()

	log := c.log.With().Str("room", code).Logger()

	playerID, err := c.dir.JoinRoom(ctx, code, name)
	if err != nil {
		log.Error().Err(err).Msg("[Join] directory join failed")
		return fmt.Errorf("join room %s: %w", code, err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.leaveDirectory(ctx, code, playerID)
		return ErrSessionReset
	}
	c.view.RoomCode = code
	c.view.LocalPlayer = &internal.Player{ID: playerID, Name: name}
	c.mu.Unlock()
	log.Info().Str("player_id", playerID).Msg("[Join] joined room, opening channel")

	if err := c.ch.Connect(ctx, code); err != nil {
		log.Error().Err(err).Msg("[Join] channel connect failed")
		c.rollback(ctx, gen, code, playerID)
		return fmt.Errorf("join room %s: %w", code, err)
	}

	room, err := c.dir.FetchRoom(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("[Join] roster fetch failed")
		c.ch.Disconnect()
		c.rollback(ctx, gen, code, playerID)
		return fmt.Errorf("join room %s: %w", code, err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.ch.Disconnect()
		log.Info().Msg("[Join] session reset during join, dropping connection")
		return ErrSessionReset
	}
	c.view.Players = internal.ClonePlayers(room.Players)
	// The identity recorded from the directory join stands even when this
	// roster predates it. The next snapshot frame or Refresh drops it if the
	// server still does not list the player.
	if p := internal.FindPlayer(c.view.Players, playerID); p != nil {
		c.view.LocalPlayer = p
	}
	c.view.Connected = true
	log.Info().Int("players", len(c.view.Players)).Msg("[Join] session ready")
	c.unlockAndPublish()
	return nil
}

// Leave stops participating in the current room. The local view is reset
// and the channel closed regardless of what the directory answers.
func (c *Controller) Leave(ctx context.Context) {
	code, playerID, ok := c.teardown()
	if !ok {
		return
	}
	if playerID != "" {
		c.leaveDirectory(ctx, code, playerID)
	}
	c.log.Info().Str("room", code).Msg("[Leave] left room")
}

// End ends the game for everyone in the room, then tears down like Leave.
func (c *Controller) End(ctx context.Context) {
	code, _, ok := c.teardown()
	if !ok {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := c.dir.EndRoom(ctx, code); err != nil {
		c.log.Warn().Err(err).Str("room", code).Msg("[End] directory end failed, local state already reset")
	}
	c.log.Info().Str("room", code).Msg("[End] room ended")
}

// Start asks the directory to start a round. The view only changes once the
// resulting game_start frame arrives.
func (c *Controller) Start(ctx context.Context) error {
	code, err := c.roomCode()
	if err != nil {
		return err
	}
	if err := c.dir.StartRound(ctx, code); err != nil {
		c.log.Error().Err(err).Str("room", code).Msg("[Start] directory start failed")
		return fmt.Errorf("start room %s: %w", code, err)
	}
	return nil
}

func (c *Controller) NextRound(ctx context.Context) error {
	code, err := c.roomCode()
	if err != nil {
		return err
	}
	if err := c.dir.NextRound(ctx, code); err != nil {
		return fmt.Errorf("next round in room %s: %w", code, err)
	}
	return nil
}

// IncrementScore bumps the local player's score through the debug endpoint
// and reloads the roster, since the server does not broadcast the change.
func (c *Controller) IncrementScore(ctx context.Context) error {
	c.mu.Lock()
	code := c.view.RoomCode
	local := c.view.LocalPlayer.Clone()
	c.mu.Unlock()
	if code == "" || local == nil {
		return ErrNotInRoom
	}
	if err := c.dir.IncrementScore(ctx, code, local.ID); err != nil {
		return fmt.Errorf("increment score in room %s: %w", code, err)
	}
	return c.Refresh(ctx)
}

// Refresh replaces the roster with the directory's current one. The local
// player becomes none if the roster no longer lists it.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	code, gen := c.view.RoomCode, c.gen
	c.mu.Unlock()
	if code == "" {
		return ErrNotInRoom
	}

	room, err := c.dir.FetchRoom(ctx, code)
	if err != nil {
		return fmt.Errorf("refresh room %s: %w", code, err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrSessionReset
	}
	c.view.Players = internal.ClonePlayers(room.Players)
	if c.view.LocalPlayer != nil {
		c.view.LocalPlayer = internal.FindPlayer(c.view.Players, c.view.LocalPlayer.ID)
	}
	c.unlockAndPublish()
	return nil
}

// SubscribeFrames registers h for every inbound frame alongside the view
// reducer, for consumers such as a canvas that need frames the view does not
// keep. h runs on the channel's read goroutine.
func (c *Controller) SubscribeFrames(h transport.Handler) (unsubscribe func()) {
	return c.ch.Subscribe(h)
}

// SendDrawing relays a stroke sample when the local player may draw.
func (c *Controller) SendDrawing(d internal.DrawData) bool {
	c.mu.Lock()
	allowed := c.view.InRoom() && c.view.CanDraw()
	c.mu.Unlock()
	if !allowed {
		c.log.Debug().Msg("[SendDrawing] local player may not draw, dropping sample")
		return false
	}
	return c.ch.Send(d)
}

// SendGuess submits a guess for the current round.
func (c *Controller) SendGuess(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	allowed := c.view.CanGuess()
	var playerID string
	if c.view.LocalPlayer != nil {
		playerID = c.view.LocalPlayer.ID
	}
	c.mu.Unlock()
	if !allowed {
		c.log.Debug().Msg("[SendGuess] no round to guess in, dropping guess")
		return false
	}
	return c.ch.Send(internal.GuessData{PlayerID: playerID, Guess: text})
}

// Close leaves the current room and detaches from the channel.
func (c *Controller) Close(ctx context.Context) {
	c.Leave(ctx)
	c.unsub()
}

func (c *Controller) onFrame(ev internal.Event) {
	c.mu.Lock()
	if c.view.RoomCode == "" {
		c.mu.Unlock()
		c.log.Debug().Str("type", string(ev.FrameType())).Msg("[onFrame] no active room, ignoring frame")
		return
	}

	next := reducer.Reduce(c.view, ev)
	if drawers := next.Drawers(); len(drawers) > 1 {
		ids := make([]string, 0, len(drawers))
		for _, d := range drawers {
			ids = append(ids, d.ID)
		}
		c.log.Warn().
			Str("room", next.RoomCode).
			Strs("drawers", ids).
			Msgf("[onFrame] %s left more than one drawer", ev.FrameType())
	}
	c.view = next
	c.unlockAndPublish()
}

// teardown resets the view and closes the channel. It reports the room and
// player that were active, and false when there was nothing to tear down.
func (c *Controller) teardown() (code, playerID string, ok bool) {
	c.mu.Lock()
	if c.view.RoomCode == "" {
		if c.pending {
			c.gen++
		}
		c.mu.Unlock()
		return "", "", false
	}
	code = c.view.RoomCode
	if c.view.LocalPlayer != nil {
		playerID = c.view.LocalPlayer.ID
	}
	c.gen++
	c.view = internal.NewClientView()
	c.unlockAndPublish()

	c.ch.Disconnect()
	return code, playerID, true
}

func (c *Controller) rollback(ctx context.Context, gen uint64, code, playerID string) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.view = internal.NewClientView()
	c.unlockAndPublish()
	c.leaveDirectory(ctx, code, playerID)
}

func (c *Controller) leaveDirectory(ctx context.Context, code, playerID string) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := c.dir.LeaveRoom(ctx, code, playerID); err != nil {
		c.log.Warn().Err(err).Str("room", code).Str("player_id", playerID).
			Msg("[leaveDirectory] directory leave failed, local state already reset")
	}
}

func (c *Controller) roomCode() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view.RoomCode == "" {
		return "", ErrNotInRoom
	}
	return c.view.RoomCode, nil
}

// unlockAndPublish must be called with c.mu held. It releases c.mu and
// delivers a copy of the view to watchers, keeping publication in the same
// order as the mutations.
func (c *Controller) unlockAndPublish() {
	snap := c.view.Clone()
	c.pubMu.Lock()
	c.mu.Unlock()
	defer c.pubMu.Unlock()
	c.watchers.Dispatch(snap)
}

// detached keeps teardown calls alive after the caller's context is done.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
}
