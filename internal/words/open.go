package words

import (
	"context"

	"github.com/rs/zerolog"
)

// Open picks the word bank: Postgres when databaseURL is set, else the CSV
// file at csvPath when set, else the built-in bank. The returned close
// function releases whatever the source holds.
func Open(ctx context.Context, databaseURL, csvPath string, logger zerolog.Logger) (Source, func(), error) {
	switch {
	case databaseURL != "":
		pg, err := NewPostgresSource(ctx, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		logger.Info().Msg("[words.Open] using postgres word bank")
		return pg, pg.Close, nil
	case csvPath != "":
		logger.Info().Str("path", csvPath).Msg("[words.Open] using CSV word bank")
		return NewCSVSource(csvPath, logger), func() {}, nil
	default:
		logger.Info().Int("words", len(builtin)).Msg("[words.Open] using built-in word bank")
		return Builtin(), func() {}, nil
	}
}
