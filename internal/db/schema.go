package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema defines the SQLite database schema for imported tournaments.
// Every statement is idempotent so bootstrapping an existing store is a no-op.
const schema = `
CREATE TABLE IF NOT EXISTS players (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name TEXT NOT NULL UNIQUE,
	country TEXT,
	fide_id TEXT,
	title TEXT,
	birth_year INTEGER
);

CREATE TABLE IF NOT EXISTS tournaments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	location TEXT,
	start_date TEXT,
	organizer TEXT,
	category TEXT
);

CREATE TABLE IF NOT EXISTS games (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tournament_id INTEGER NOT NULL,
	round_number INTEGER,
	white_player_id INTEGER NOT NULL,
	black_player_id INTEGER NOT NULL,
	result TEXT NOT NULL CHECK(result IN ('1-0', '0-1', '1/2-1/2', '*')),
	eco_code TEXT,
	opening_name TEXT,
	moves_count INTEGER,
	FOREIGN KEY(tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE,
	FOREIGN KEY(white_player_id) REFERENCES players(id),
	FOREIGN KEY(black_player_id) REFERENCES players(id)
);

CREATE TABLE IF NOT EXISTS participations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL,
	tournament_id INTEGER NOT NULL,
	points REAL NOT NULL DEFAULT 0,
	final_rank INTEGER,
	performance_rating INTEGER,
	avg_opponent_rating INTEGER,
	UNIQUE(player_id, tournament_id),
	FOREIGN KEY(player_id) REFERENCES players(id),
	FOREIGN KEY(tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	run_id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	sources_total INTEGER NOT NULL DEFAULT 0,
	sources_failed INTEGER NOT NULL DEFAULT 0,
	games_seen INTEGER NOT NULL DEFAULT 0,
	games_inserted INTEGER NOT NULL DEFAULT 0,
	games_duplicate INTEGER NOT NULL DEFAULT 0,
	games_dropped INTEGER NOT NULL DEFAULT 0
);

-- Indexes for common query patterns
CREATE INDEX IF NOT EXISTS idx_games_dedup ON games(tournament_id, round_number, white_player_id, black_player_id, result);
CREATE INDEX IF NOT EXISTS idx_games_white ON games(white_player_id);
CREATE INDEX IF NOT EXISTS idx_games_black ON games(black_player_id);
CREATE INDEX IF NOT EXISTS idx_participations_tournament ON participations(tournament_id);
`

// InitSchema initializes the database schema.
// It creates all tables and indexes if they don't already exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
