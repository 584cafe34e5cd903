package session

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/scythe504/skribblr-sync/internal"
	"github.com/scythe504/skribblr-sync/internal/transport"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) CreateRoom(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockDirectory) JoinRoom(ctx context.Context, code, name string) (string, error) {
	args := m.Called(ctx, code, name)
	return args.String(0), args.Error(1)
}

func (m *mockDirectory) LeaveRoom(ctx context.Context, code, playerID string) error {
	return m.Called(ctx, code, playerID).Error(0)
}

func (m *mockDirectory) EndRoom(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockDirectory) StartRound(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockDirectory) NextRound(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockDirectory) IncrementScore(ctx context.Context, code, playerID string) error {
	return m.Called(ctx, code, playerID).Error(0)
}

func (m *mockDirectory) FetchRoom(ctx context.Context, code string) (internal.RoomSnapshot, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(internal.RoomSnapshot), args.Error(1)
}

// fakeChannel delivers frames synchronously on the caller's goroutine.
type fakeChannel struct {
	subs *transport.Registry[internal.Event]

	mu          sync.Mutex
	connectErr  error
	connected   []string
	disconnects int
	open        bool
	sent        []internal.Event
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{subs: transport.NewRegistry[internal.Event]()}
}

func (f *fakeChannel) Connect(_ context.Context, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = append(f.connected, room)
	f.open = true
	return nil
}

func (f *fakeChannel) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.open {
		f.disconnects++
	}
	f.open = false
}

func (f *fakeChannel) Send(ev internal.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return false
	}
	f.sent = append(f.sent, ev)
	return true
}

func (f *fakeChannel) Subscribe(h transport.Handler) func() {
	return f.subs.Add(h)
}

func (f *fakeChannel) emit(events ...internal.Event) {
	for _, ev := range events {
		f.subs.Dispatch(ev)
	}
}

func (f *fakeChannel) isOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}
