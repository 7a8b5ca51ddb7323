package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Reader provides methods to read tournament data from the database.
type Reader struct {
	db *sql.DB
}

// NewReader creates a new database reader.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// GameKey is the set of fields that identifies a game for deduplication.
type GameKey struct {
	TournamentID  int64
	RoundNumber   *int
	WhitePlayerID int64
	BlackPlayerID int64
	Result        string
}

// GameResult is the part of a game the standings need.
type GameResult struct {
	WhitePlayerID int64
	BlackPlayerID int64
	Result        string
}

// StandingRow is one line of a tournament table.
type StandingRow struct {
	PlayerID          int64
	FullName          string
	Points            float64
	FinalRank         int
	PerformanceRating *int
}

// GameRow is a game joined with its tournament and player names.
type GameRow struct {
	Tournament  string
	RoundNumber *int
	White       string
	Black       string
	Result      string
	OpeningName *string
}

// FindPlayerID looks a player up by exact name.
func (r *Reader) FindPlayerID(ctx context.Context, fullName string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM players WHERE full_name = ?`, fullName).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find player: %w", err)
	}
	return id, nil
}

// FindTournament looks a tournament up by exact name.
func (r *Reader) FindTournament(ctx context.Context, name string) (*Tournament, error) {
	query := `
		SELECT id, name, location, start_date, organizer, category
		FROM tournaments
		WHERE name = ?
	`
	var t Tournament
	var location, startDate, organizer, category sql.NullString
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&t.ID, &t.Name, &location, &startDate, &organizer, &category,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tournament: %w", err)
	}

	if location.Valid {
		t.Location = &location.String
	}
	if startDate.Valid {
		if d, err := time.Parse(dateLayout, startDate.String); err == nil {
			t.StartDate = &d
		}
	}
	if organizer.Valid {
		t.Organizer = &organizer.String
	}
	if category.Valid {
		t.Category = &category.String
	}
	return &t, nil
}

// GameExists reports whether a game with the same dedup key is stored.
// A missing round number only matches a missing round number.
func (r *Reader) GameExists(ctx context.Context, k GameKey) (bool, error) {
	query := `
		SELECT 1 FROM games
		WHERE tournament_id = ? AND round_number IS ? AND white_player_id = ?
		  AND black_player_id = ? AND result = ?
		LIMIT 1
	`
	var exists int
	err := r.db.QueryRowContext(ctx, query,
		k.TournamentID, k.RoundNumber, k.WhitePlayerID, k.BlackPlayerID, k.Result,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check game existence: %w", err)
	}
	return true, nil
}

// GetGameResults retrieves the players and result of every game in a tournament.
func (r *Reader) GetGameResults(ctx context.Context, tournamentID int64) ([]GameResult, error) {
	query := `
		SELECT white_player_id, black_player_id, result
		FROM games
		WHERE tournament_id = ?
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query game results: %w", err)
	}
	defer rows.Close()

	results := make([]GameResult, 0)
	for rows.Next() {
		var g GameResult
		if err := rows.Scan(&g.WhitePlayerID, &g.BlackPlayerID, &g.Result); err != nil {
			return nil, fmt.Errorf("failed to scan game result: %w", err)
		}
		results = append(results, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game results: %w", err)
	}

	return results, nil
}

// CountGames returns the number of games stored for a tournament.
func (r *Reader) CountGames(ctx context.Context, tournamentID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games WHERE tournament_id = ?`, tournamentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return n, nil
}

// GetParticipations retrieves the stored standings of a tournament by id,
// best first.
func (r *Reader) GetParticipations(ctx context.Context, tournamentID int64) ([]Participation, error) {
	query := `
		SELECT player_id, tournament_id, points, final_rank
		FROM participations
		WHERE tournament_id = ?
		ORDER BY final_rank ASC, player_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participations: %w", err)
	}
	defer rows.Close()

	out := make([]Participation, 0)
	for rows.Next() {
		var p Participation
		var rank sql.NullInt64
		if err := rows.Scan(&p.PlayerID, &p.TournamentID, &p.Points, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		if rank.Valid {
			p.FinalRank = int(rank.Int64)
		}
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participations: %w", err)
	}

	return out, nil
}

// GetStandings retrieves the table of a tournament by name.
func (r *Reader) GetStandings(ctx context.Context, tournamentName string) ([]StandingRow, error) {
	query := `
		SELECT p.id, p.full_name, pt.points, pt.final_rank, pt.performance_rating
		FROM participations pt
		JOIN players p ON pt.player_id = p.id
		JOIN tournaments t ON pt.tournament_id = t.id
		WHERE t.name = ?
		ORDER BY pt.points DESC, pt.final_rank ASC, p.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, tournamentName)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings: %w", err)
	}
	defer rows.Close()

	out := make([]StandingRow, 0)
	for rows.Next() {
		var s StandingRow
		var rank, perf sql.NullInt64
		if err := rows.Scan(&s.PlayerID, &s.FullName, &s.Points, &rank, &perf); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		if rank.Valid {
			s.FinalRank = int(rank.Int64)
		}
		if perf.Valid {
			v := int(perf.Int64)
			s.PerformanceRating = &v
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standings: %w", err)
	}

	return out, nil
}

const gameRowSelect = `
	SELECT t.name, g.round_number, w.full_name, b.full_name, g.result, g.opening_name
	FROM games g
	JOIN players w ON g.white_player_id = w.id
	JOIN players b ON g.black_player_id = b.id
	JOIN tournaments t ON g.tournament_id = t.id
`

// HeadToHead retrieves every game between two players, in either colour.
func (r *Reader) HeadToHead(ctx context.Context, a, b string) ([]GameRow, error) {
	query := gameRowSelect + `
		WHERE (w.full_name = ? AND b.full_name = ?) OR (w.full_name = ? AND b.full_name = ?)
		ORDER BY t.start_date, g.round_number, g.id
	`
	return r.queryGameRows(ctx, query, a, b, b, a)
}

// PlayerGames retrieves every game a player took part in.
func (r *Reader) PlayerGames(ctx context.Context, fullName string) ([]GameRow, error) {
	query := gameRowSelect + `
		WHERE w.full_name = ? OR b.full_name = ?
		ORDER BY t.start_date, g.round_number, g.id
	`
	return r.queryGameRows(ctx, query, fullName, fullName)
}

func (r *Reader) queryGameRows(ctx context.Context, query string, args ...interface{}) ([]GameRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	out := make([]GameRow, 0)
	for rows.Next() {
		var g GameRow
		var round sql.NullInt64
		var opening sql.NullString
		if err := rows.Scan(&g.Tournament, &round, &g.White, &g.Black, &g.Result, &opening); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		if round.Valid {
			v := int(round.Int64)
			g.RoundNumber = &v
		}
		if opening.Valid {
			g.OpeningName = &opening.String
		}
		out = append(out, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return out, nil
}

// GetRun retrieves the counters of an ingestion run.
func (r *Reader) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := `
		SELECT run_id, started_at, finished_at, sources_total, sources_failed,
		       games_seen, games_inserted, games_duplicate, games_dropped
		FROM ingest_runs
		WHERE run_id = ?
	`
	var run Run
	var startedAt, finishedAt string
	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&run.RunID, &startedAt, &finishedAt, &run.SourcesTotal, &run.SourcesFailed,
		&run.GamesSeen, &run.GamesInserted, &run.GamesDuplicate, &run.GamesDropped,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingest run: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	run.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
	return &run, nil
}
