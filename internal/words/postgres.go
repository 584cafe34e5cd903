package words

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `CREATE TABLE IF NOT EXISTS words (
	word  TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0
)`

// PostgresSource serves the bank from the words table.
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(ctx context.Context, connString string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresSource{pool: pool}, nil
}

func (p *PostgresSource) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create words table: %w", err)
	}
	return nil
}

// Seed upserts entries, keeping the highest count seen for a word.
func (p *PostgresSource) Seed(ctx context.Context, entries []Word) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		w := clean(e.Word)
		if w == "" {
			continue
		}
		batch.Queue(`INSERT INTO words(word, count) VALUES($1, $2)
			ON CONFLICT (word) DO UPDATE SET count = GREATEST(words.count, EXCLUDED.count)`, w, e.Count)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed words: %w", err)
	}
	return nil
}

func (p *PostgresSource) Words(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, "SELECT word FROM words ORDER BY count DESC, word")
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan words: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoWords
	}
	return out, nil
}

func (p *PostgresSource) Close() {
	p.pool.Close()
}
