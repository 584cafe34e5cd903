package game

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/scythe504/skribblr-sync/internal"
	"github.com/scythe504/skribblr-sync/internal/utils"
	"github.com/scythe504/skribblr-sync/internal/words"
)

// =============================================================================
// ROOM MANAGEMENT
// =============================================================================

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
)

type Settings struct {
	RoundDuration time.Duration
	MaxPlayers    int
	MinPlayers    int
	// GuessRate is guesses per second per connection, GuessBurst the
	// bucket size.
	GuessRate  float64
	GuessBurst int
	// Tick is the countdown step. One tick takes one second off the clock.
	Tick        time.Duration
	CheckOrigin func(r *http.Request) bool
}

func DefaultSettings() Settings {
	return Settings{
		RoundDuration: internal.RoundDuration,
		MaxPlayers:    internal.MaxPlayersPerRoom,
		MinPlayers:    internal.MinPlayersToStart,
		GuessRate:     2,
		GuessBurst:    5,
		Tick:          time.Second,
	}
}

// Room is the server-side state of one room. Mu guards every field.
type Room struct {
	Mu sync.RWMutex

	Code          string
	Players       []internal.Player
	CurrentRound  int
	CurrentWord   string
	TimeRemaining int

	conns  map[*Conn]struct{}
	timer  *roundTimer
	closed bool
}

type roundTimer struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// snapshotLocked must be called with Mu held.
func (r *Room) snapshotLocked() internal.RoomSnapshot {
	scores := make(map[string]int, len(r.Players))
	for _, p := range r.Players {
		scores[p.ID] = p.Score
	}
	return internal.RoomSnapshot{
		Code:          r.Code,
		Players:       internal.ClonePlayers(r.Players),
		CurrentRound:  r.CurrentRound,
		CurrentWord:   r.CurrentWord,
		Scores:        scores,
		TimeRemaining: r.TimeRemaining,
	}
}

// stopTimerLocked must be called with Mu held.
func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.cancel()
		r.timer = nil
	}
}

// Manager owns every room on this server.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	words    words.Source
	settings Settings
	upgrader websocket.Upgrader
	log      zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewManager(src words.Source, settings Settings, logger zerolog.Logger) *Manager {
	if src == nil {
		src = words.Builtin()
	}
	if settings.Tick <= 0 {
		settings.Tick = time.Second
	}
	if settings.MinPlayers <= 0 {
		settings.MinPlayers = internal.MinPlayersToStart
	}
	if settings.MaxPlayers <= 0 {
		settings.MaxPlayers = internal.MaxPlayersPerRoom
	}
	m := &Manager{
		rooms:    make(map[string]*Room),
		words:    src,
		settings: settings,
		log:      logger.With().Str("component", "game").Logger(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	m.upgrader = websocket.Upgrader{CheckOrigin: settings.CheckOrigin}
	if m.upgrader.CheckOrigin == nil {
		m.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return m
}

// CreateRoom opens an empty room under a fresh code.
func (m *Manager) CreateRoom() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := m.newCode()
	for m.rooms[code] != nil {
		code = m.newCode()
	}
	m.rooms[code] = &Room{
		Code:          code,
		Players:       []internal.Player{},
		TimeRemaining: m.roundSeconds(),
		conns:         make(map[*Conn]struct{}),
	}
	m.log.Info().Str("room", code).Int("rooms", len(m.rooms)).Msg("[CreateRoom] created room")
	return code
}

func (m *Manager) Room(code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (m *Manager) Snapshot(code string) (internal.RoomSnapshot, error) {
	room, err := m.Room(code)
	if err != nil {
		return internal.RoomSnapshot{}, err
	}
	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return room.snapshotLocked(), nil
}

// ConnectionCount reports how many realtime connections the room holds.
func (m *Manager) ConnectionCount(code string) (int, error) {
	room, err := m.Room(code)
	if err != nil {
		return 0, err
	}
	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return len(room.conns), nil
}

func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// EndRoom stops the room's timer, closes its connections and forgets it.
func (m *Manager) EndRoom(code string) ([]Standing, error) {
	m.mu.Lock()
	room, ok := m.rooms[code]
	if ok {
		delete(m.rooms, code)
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return m.cleanupRoom(room), nil
}

// Shutdown ends every room.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for code, room := range m.rooms {
		rooms = append(rooms, room)
		delete(m.rooms, code)
	}
	m.mu.Unlock()

	for _, room := range rooms {
		m.cleanupRoom(room)
	}
	m.log.Info().Int("rooms", len(rooms)).Msg("[Shutdown] all rooms closed")
}

// cleanupRoom handles complete room shutdown once the room is out of the map.
func (m *Manager) cleanupRoom(room *Room) []Standing {
	room.Mu.Lock()
	room.closed = true
	room.stopTimerLocked()
	conns := make([]*Conn, 0, len(room.conns))
	for c := range room.conns {
		conns = append(conns, c)
	}
	room.conns = make(map[*Conn]struct{})
	standings := Leaderboard(room.Players)
	room.Mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "room ended")
	}
	m.log.Info().Str("room", room.Code).Int("connections", len(conns)).Msg("[cleanupRoom] room closed")
	return standings
}

func (m *Manager) newCode() string {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return utils.GenerateRoomCode(m.rng)
}

func (m *Manager) roundSeconds() int {
	secs := int(m.settings.RoundDuration / time.Second)
	if secs <= 0 {
		return internal.InitialTimeRemaining
	}
	return secs
}
