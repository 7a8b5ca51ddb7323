package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of an ingestion run.
type Config struct {
	DBPath      string
	DBDriver    string
	SourcesPath string
	PGNDir      string
	HTTPTimeout time.Duration
	LogMode     string
}

// Sources is the sources document. JSON documents decode too, since JSON is
// a subset of YAML.
type Sources struct {
	URLs  []string `yaml:"urls"`
	Files []string `yaml:"files"`
}

// Load reads environment variables, after loading envFile into the process
// environment. An empty envFile means ".env", which may be absent; an
// explicit file must exist.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		DBPath:      getEnv("CHESS_DB_PATH", "chess.db"),
		DBDriver:    getEnv("CHESS_DB_DRIVER", "sqlite"),
		SourcesPath: getEnv("CHESS_SOURCES", "sources.json"),
		PGNDir:      getEnv("CHESS_PGN_DIR", ""),
		LogMode:     getEnv("LOG_MODE", "dev"),
	}

	if raw := getEnv("CHESS_HTTP_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CHESS_HTTP_TIMEOUT %q: %w", raw, err)
		}
		cfg.HTTPTimeout = d
	}

	return cfg, nil
}

// ResolvedPGNDir returns the directory scanned for .pgn files: PGNDir when
// set, otherwise "pgn" next to the sources document.
func (c *Config) ResolvedPGNDir() string {
	if c.PGNDir != "" {
		return c.PGNDir
	}
	return filepath.Join(filepath.Dir(c.SourcesPath), "pgn")
}

// LoadSources reads the sources document. A missing file is an empty
// document; a malformed one is an error.
func LoadSources(path string) (Sources, error) {
	var doc Sources
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("failed to read sources %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse sources %s: %w", path, err)
	}
	return doc, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
