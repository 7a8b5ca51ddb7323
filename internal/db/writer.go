package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Writer provides methods to write tournament data to the database.
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new database writer.
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// Tournament represents an imported event.
type Tournament struct {
	ID        int64
	Name      string
	Location  *string
	StartDate *time.Time
	Organizer *string
	Category  *string
}

// Game represents a single recorded game.
type Game struct {
	ID            int64
	TournamentID  int64
	RoundNumber   *int
	WhitePlayerID int64
	BlackPlayerID int64
	Result        string
	ECOCode       *string
	OpeningName   *string
	MovesCount    *int
}

// Participation is the derived standing of one player in one tournament.
type Participation struct {
	PlayerID     int64
	TournamentID int64
	Points       float64
	FinalRank    int
}

// Run records the counters of one ingestion run.
type Run struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	SourcesTotal   int
	SourcesFailed  int
	GamesSeen      int
	GamesInserted  int
	GamesDuplicate int
	GamesDropped   int
}

const dateLayout = "2006-01-02"

// InsertPlayer creates a player with only the name set, unless one with the
// same name already exists. It returns the player's id either way.
func (w *Writer) InsertPlayer(ctx context.Context, fullName string) (int64, error) {
	query := `INSERT INTO players (full_name) VALUES (?) ON CONFLICT(full_name) DO NOTHING`
	if _, err := w.db.ExecContext(ctx, query, fullName); err != nil {
		return 0, fmt.Errorf("failed to insert player: %w", err)
	}

	// LastInsertId is unreliable with ON CONFLICT, so always select.
	var id int64
	err := w.db.QueryRowContext(ctx, `SELECT id FROM players WHERE full_name = ?`, fullName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read player id: %w", err)
	}
	return id, nil
}

// InsertTournament creates a tournament unless one with the same name already
// exists. Existing tournaments are never updated. It returns the id either way.
func (w *Writer) InsertTournament(ctx context.Context, t Tournament) (int64, error) {
	query := `
		INSERT INTO tournaments (name, location, start_date, organizer, category)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`
	var startDate *string
	if t.StartDate != nil {
		s := t.StartDate.Format(dateLayout)
		startDate = &s
	}
	_, err := w.db.ExecContext(ctx, query, t.Name, t.Location, startDate, t.Organizer, t.Category)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tournament: %w", err)
	}

	var id int64
	err = w.db.QueryRowContext(ctx, `SELECT id FROM tournaments WHERE name = ?`, t.Name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read tournament id: %w", err)
	}
	return id, nil
}

// InsertGame inserts a game record and returns its id.
// Deduplication is the caller's job (see Reader.GameExists).
func (w *Writer) InsertGame(ctx context.Context, g Game) (int64, error) {
	query := `
		INSERT INTO games (
			tournament_id, round_number, white_player_id, black_player_id,
			result, eco_code, opening_name, moves_count
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := w.db.ExecContext(ctx, query,
		g.TournamentID, g.RoundNumber, g.WhitePlayerID, g.BlackPlayerID,
		g.Result, g.ECOCode, g.OpeningName, g.MovesCount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert game: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read game id: %w", err)
	}
	return id, nil
}

// UpsertParticipation inserts or updates the points and rank of a player in
// a tournament. Rating columns are left untouched.
func (w *Writer) UpsertParticipation(ctx context.Context, p Participation) error {
	query := `
		INSERT INTO participations (player_id, tournament_id, points, final_rank)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id, tournament_id) DO UPDATE SET
			points = excluded.points,
			final_rank = excluded.final_rank
	`
	_, err := w.db.ExecContext(ctx, query, p.PlayerID, p.TournamentID, p.Points, p.FinalRank)
	if err != nil {
		return fmt.Errorf("failed to upsert participation: %w", err)
	}
	return nil
}

// InsertRun stores the counters of a finished ingestion run.
func (w *Writer) InsertRun(ctx context.Context, r Run) error {
	query := `
		INSERT OR REPLACE INTO ingest_runs (
			run_id, started_at, finished_at, sources_total, sources_failed,
			games_seen, games_inserted, games_duplicate, games_dropped
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := w.db.ExecContext(ctx, query,
		r.RunID, r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
		r.SourcesTotal, r.SourcesFailed,
		r.GamesSeen, r.GamesInserted, r.GamesDuplicate, r.GamesDropped,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ingest run: %w", err)
	}
	return nil
}
