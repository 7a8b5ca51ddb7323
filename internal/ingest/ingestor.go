package ingest

import (
	"context"
	"fmt"

	"chess-etl/internal/db"
)

// Outcome is what happened to one game.
type Outcome int

const (
	Dropped Outcome = iota
	Duplicate
	Inserted
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return "dropped"
	}
}

// GameRecord is a parsed game whose names have been resolved to ids.
// Zero ids and an empty result mean "unresolved".
type GameRecord struct {
	TournamentID int64
	Round        *int
	WhiteID      int64
	BlackID      int64
	Result       string
	ECO          *string
	Opening      *string
	Moves        *int
}

// Ingestor stores games, skipping ones already stored.
type Ingestor struct {
	reader *db.Reader
	writer *db.Writer
}

// NewIngestor creates a new game ingestor.
func NewIngestor(reader *db.Reader, writer *db.Writer) *Ingestor {
	return &Ingestor{reader: reader, writer: writer}
}

// IngestGame inserts a game unless one with the same tournament, round,
// players and result exists. Records missing the tournament, a player or the
// result are dropped without error.
func (i *Ingestor) IngestGame(ctx context.Context, rec GameRecord) (Outcome, error) {
	if rec.TournamentID == 0 || rec.WhiteID == 0 || rec.BlackID == 0 || rec.Result == "" {
		return Dropped, nil
	}

	exists, err := i.reader.GameExists(ctx, db.GameKey{
		TournamentID:  rec.TournamentID,
		RoundNumber:   rec.Round,
		WhitePlayerID: rec.WhiteID,
		BlackPlayerID: rec.BlackID,
		Result:        rec.Result,
	})
	if err != nil {
		return Dropped, err
	}
	if exists {
		return Duplicate, nil
	}

	_, err = i.writer.InsertGame(ctx, db.Game{
		TournamentID:  rec.TournamentID,
		RoundNumber:   rec.Round,
		WhitePlayerID: rec.WhiteID,
		BlackPlayerID: rec.BlackID,
		Result:        rec.Result,
		ECOCode:       rec.ECO,
		OpeningName:   rec.Opening,
		MovesCount:    rec.Moves,
	})
	if err != nil {
		return Dropped, fmt.Errorf("failed to ingest game: %w", err)
	}
	return Inserted, nil
}
