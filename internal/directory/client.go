// Package directory is the HTTP client for the room directory: creating,
// joining, leaving, starting and ending rooms, and fetching their roster.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scythe504/skribblr-sync/internal"
)

var ErrRoomNotFound = errors.New("room not found")

// StatusError is a non-2xx directory response.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Detail)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRoomNotFound && e.StatusCode == http.StatusNotFound
}

type createResponse struct {
	Code string `json:"code"`
}

type joinResponse struct {
	PlayerID string `json:"player_id"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     logger.With().Str("component", "directory").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateRoom asks the directory for a new room and returns its code.
func (c *Client) CreateRoom(ctx context.Context) (string, error) {
	var out createResponse
	if err := c.do(ctx, "create room", http.MethodPost, "/api/rooms", nil, &out); err != nil {
		return "", err
	}
	if out.Code == "" {
		return "", fmt.Errorf("create room: empty room code in response")
	}
	return out.Code, nil
}

// JoinRoom registers name in the room and returns the assigned player id.
func (c *Client) JoinRoom(ctx context.Context, code, name string) (string, error) {
	q := url.Values{"player_name": {name}}
	var out joinResponse
	if err := c.do(ctx, "join room", http.MethodPost, roomPath(code, "join"), q, &out); err != nil {
		return "", err
	}
	if out.PlayerID == "" {
		return "", fmt.Errorf("join room %s: empty player id in response", code)
	}
	return out.PlayerID, nil
}

// LeaveRoom removes the player from the room. A room that no longer exists
// counts as success.
func (c *Client) LeaveRoom(ctx context.Context, code, playerID string) error {
	q := url.Values{"player_id": {playerID}}
	err := c.do(ctx, "leave room", http.MethodPost, roomPath(code, "leave"), q, nil)
	if errors.Is(err, ErrRoomNotFound) {
		c.log.Debug().Str("room", code).Msg("[LeaveRoom] room already gone")
		return nil
	}
	return err
}

// EndRoom ends the game and deletes the room. A room that no longer exists
// counts as success.
func (c *Client) EndRoom(ctx context.Context, code string) error {
	err := c.do(ctx, "end room", http.MethodPost, roomPath(code, "end"), nil, nil)
	if errors.Is(err, ErrRoomNotFound) {
		c.log.Debug().Str("room", code).Msg("[EndRoom] room already gone")
		return nil
	}
	return err
}

func (c *Client) StartRound(ctx context.Context, code string) error {
	return c.do(ctx, "start round", http.MethodPost, roomPath(code, "start"), nil, nil)
}

func (c *Client) NextRound(ctx context.Context, code string) error {
	return c.do(ctx, "next round", http.MethodPost, roomPath(code, "round", "next"), nil, nil)
}

// IncrementScore bumps a player's score through the debug endpoint. The
// server does not broadcast the change.
func (c *Client) IncrementScore(ctx context.Context, code, playerID string) error {
	q := url.Values{"player_id": {playerID}}
	return c.do(ctx, "increment score", http.MethodPost, roomPath(code, "debug", "score"), q, nil)
}

func (c *Client) FetchRoom(ctx context.Context, code string) (internal.RoomSnapshot, error) {
	var out internal.RoomSnapshot
	if err := c.do(ctx, "fetch room", http.MethodGet, roomPath(code), nil, &out); err != nil {
		return internal.RoomSnapshot{}, err
	}
	out.Players = internal.ClonePlayers(out.Players)
	return out, nil
}

func roomPath(code string, parts ...string) string {
	segs := append([]string{"/api/rooms", url.PathEscape(code)}, parts...)
	return strings.Join(segs, "/")
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("op", op).Msg("[do] request failed")
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msgf("[do] %s %s", method, path)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	se := &StatusError{Op: op, StatusCode: resp.StatusCode}

	var detail errorResponse
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		se.Detail = detail.Detail
	} else {
		se.Detail = strings.TrimSpace(string(body))
	}
	return se
}
