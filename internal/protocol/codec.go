// Package protocol encodes and decodes the frames exchanged on a room
// channel. A frame is a JSON object {"type": ..., "data": ...}, one per
// transport message.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/scythe504/skribblr-sync/internal"
)

var (
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrUnknownFrameType = errors.New("unknown frame type")
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Decode parses and validates one inbound frame.
func Decode(raw []byte) (internal.Event, error) {
	var base internal.Message[json.RawMessage]
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if base.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	data := bytes.TrimSpace(base.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: %s frame without data", ErrMalformedFrame, base.Type)
	}

	var (
		ev  internal.Event
		err error
	)
	switch base.Type {
	case internal.FrameDraw:
		ev, err = unmarshalAs[internal.DrawData](data)
	case internal.FrameGuess:
		ev, err = unmarshalAs[internal.GuessData](data)
	case internal.FrameGameStart:
		ev, err = unmarshalAs[internal.GameStartData](data)
	case internal.FrameRoundEnd:
		ev, err = unmarshalAs[internal.RoundEndData](data)
	case internal.FrameTimeUpdate:
		ev, err = unmarshalAs[internal.TimeUpdateData](data)
	case internal.FramePlayerJoined:
		ev, err = unmarshalAs[internal.PlayerJoinedData](data)
	case internal.FramePlayerLeft:
		ev, err = unmarshalAs[internal.PlayerLeftData](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, base.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, base.Type, err)
	}
	if err := Validate(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func unmarshalAs[T internal.Event](data []byte) (internal.Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Encode validates ev and serializes it inside its envelope.
func Encode(ev internal.Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil event", ErrMalformedFrame)
	}
	if err := Validate(ev); err != nil {
		return nil, err
	}
	return json.Marshal(internal.NewMessage(ev))
}

// Validate checks the shape constraints of a payload.
func Validate(ev internal.Event) error {
	switch e := ev.(type) {
	case internal.DrawData:
		if !finite(e.X) || !finite(e.Y) {
			return malformed(e, "coordinates must be finite")
		}
		if !hexColor.MatchString(e.Color) {
			return malformed(e, fmt.Sprintf("color %q is not a hex color", e.Color))
		}
	case internal.GuessData:
		if e.PlayerID == "" {
			return malformed(e, "missing playerId")
		}
	case internal.GameStartData:
		return validateRound(e, e.RoundData)
	case internal.RoundEndData:
		return validateRound(e, e.RoundData)
	case internal.TimeUpdateData:
		if e.TimeRemaining < 0 {
			return malformed(e, "negative timeRemaining")
		}
	case internal.PlayerJoinedData:
		return validatePlayer(e, e.Player)
	case internal.PlayerLeftData:
		if e.PlayerID == "" {
			return malformed(e, "missing playerId")
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownFrameType, ev)
	}
	return nil
}

func validateRound(ev internal.Event, r internal.RoundData) error {
	if r.Room.TimeRemaining < 0 {
		return malformed(ev, "negative time_remaining")
	}
	for _, p := range r.Room.Players {
		if err := validatePlayer(ev, p); err != nil {
			return err
		}
	}
	for id, s := range r.Room.Scores {
		if s < 0 {
			return malformed(ev, fmt.Sprintf("negative score for %s", id))
		}
	}
	return nil
}

func validatePlayer(ev internal.Event, p internal.Player) error {
	if p.ID == "" {
		return malformed(ev, "player without id")
	}
	if p.Score < 0 {
		return malformed(ev, fmt.Sprintf("negative score for %s", p.ID))
	}
	return nil
}

func malformed(ev internal.Event, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedFrame, ev.FrameType(), reason)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
