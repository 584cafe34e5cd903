package words

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// CSVSource reads a word,count file. The file is parsed once, on first use.
type CSVSource struct {
	Path string
	Log  zerolog.Logger

	once  sync.Once
	words []string
	err   error
}

func NewCSVSource(path string, logger zerolog.Logger) *CSVSource {
	return &CSVSource{Path: path, Log: logger.With().Str("component", "words").Logger()}
}

func (s *CSVSource) Words(context.Context) ([]string, error) {
	s.once.Do(func() {
		entries, err := ReadCSVFile(s.Path, s.Log)
		if err != nil {
			s.err = err
			return
		}
		for _, e := range entries {
			s.words = append(s.words, e.Word)
		}
		if len(s.words) == 0 {
			s.err = fmt.Errorf("%s: %w", s.Path, ErrNoWords)
		}
		s.Log.Info().Str("path", s.Path).Int("words", len(s.words)).Msg("[CSVSource] word bank loaded")
	})
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.words...), nil
}

func ReadCSVFile(path string, logger zerolog.Logger) ([]Word, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read word file %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, logger)
}

// ReadCSV parses word,count records. Records with fewer than two fields or
// a non-numeric count are skipped.
func ReadCSV(r io.Reader, logger zerolog.Logger) ([]Word, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to parse word CSV: %w", err)
	}

	var out []Word
	for _, record := range records {
		if len(record) < 2 {
			logger.Debug().Strs("record", record).Msg("[ReadCSV] skipping invalid record")
			continue
		}
		count, err := strconv.Atoi(record[1])
		if err != nil {
			logger.Debug().Strs("record", record).Msg("[ReadCSV] invalid count value")
			continue
		}
		word := clean(record[0])
		if word == "" {
			continue
		}
		out = append(out, Word{Word: word, Count: count})
	}
	return out, nil
}
