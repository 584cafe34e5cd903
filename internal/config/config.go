// Package config reads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	APIURL        string
	WSURL         string
	LogLevel      string
	RoundDuration time.Duration
	MaxPlayers    int
	GuessRate     float64
	GuessBurst    int
	WordsCSV      string
	DatabaseURL   string
	AllowedOrigin string
}

func Default() Config {
	return Config{
		Port:          "8000",
		APIURL:        "http://localhost:8000",
		WSURL:         "ws://localhost:8000/ws",
		LogLevel:      "info",
		RoundDuration: 60 * time.Second,
		MaxPlayers:    4,
		GuessRate:     2,
		GuessBurst:    5,
		AllowedOrigin: "*",
	}
}

// Load reads the given .env files (".env" when none are named) without
// overriding variables already set, then builds the config from the
// environment. A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a config from lookup, falling back to Default for unset
// variables.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("PORT"); ok {
		cfg.Port = v
	}
	if v, ok := get("API_URL"); ok {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if v, ok := get("WS_URL"); ok {
		cfg.WSURL = strings.TrimRight(v, "/")
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("WORDS_CSV"); ok {
		cfg.WordsCSV = v
	}
	if v, ok := get("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := get("ALLOWED_ORIGIN"); ok {
		cfg.AllowedOrigin = v
	}

	if v, ok := get("ROUND_SECONDS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("ROUND_SECONDS: want a positive integer, got %q", v)
		}
		cfg.RoundDuration = time.Duration(n) * time.Second
	}
	if v, ok := get("MAX_PLAYERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2 {
			return Config{}, fmt.Errorf("MAX_PLAYERS: want an integer of at least 2, got %q", v)
		}
		cfg.MaxPlayers = n
	}
	if v, ok := get("GUESS_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return Config{}, fmt.Errorf("GUESS_RATE: want a positive number, got %q", v)
		}
		cfg.GuessRate = f
	}
	if v, ok := get("GUESS_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("GUESS_BURST: want a positive integer, got %q", v)
		}
		cfg.GuessBurst = n
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}
