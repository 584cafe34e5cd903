// Package words provides the word banks rounds draw their secret word from.
package words

import (
	"context"
	"errors"
	"strings"
)

var ErrNoWords = errors.New("word bank is empty")

// Word is a bank entry. Count is the entry's frequency in its source corpus
// and is informational only.
type Word struct {
	Word  string
	Count int
}

// Source returns the words a round may pick from.
type Source interface {
	Words(ctx context.Context) ([]string, error)
}

var builtin = []string{"cat", "dog", "house", "tree", "sun", "moon", "star", "book", "chair", "table"}

// Static is a fixed in-memory bank.
type Static []string

func (s Static) Words(context.Context) ([]string, error) {
	if len(s) == 0 {
		return nil, ErrNoWords
	}
	return append([]string(nil), s...), nil
}

// Builtin returns the default ten-word bank.
func Builtin() Static {
	return Static(builtin)
}

// Pick loads src and returns one of its words, indexed by intn. intn is
// only called after the bank has loaded, so a caller may guard its random
// source with a lock held just for that call.
func Pick(ctx context.Context, src Source, intn func(n int) int) (string, error) {
	list, err := src.Words(ctx)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", ErrNoWords
	}
	return list[intn(len(list))], nil
}

func clean(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
