package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chess-etl/internal/db"
)

// ImportedOrganizer marks tournaments created by the ETL.
const ImportedOrganizer = "Imported via ETL"

// Resolver maps player and event names onto stored ids, creating records on
// first sight. Names are matched exactly: no case folding, no trimming.
type Resolver struct {
	reader      *db.Reader
	writer      *db.Writer
	players     map[string]int64
	tournaments map[string]int64
}

// NewResolver creates a resolver with an empty name cache.
func NewResolver(reader *db.Reader, writer *db.Writer) *Resolver {
	return &Resolver{
		reader:      reader,
		writer:      writer,
		players:     make(map[string]int64),
		tournaments: make(map[string]int64),
	}
}

// ResolvePlayer returns the id of the player with this exact name, creating
// a player with only the name set when none exists.
func (r *Resolver) ResolvePlayer(ctx context.Context, name string) (int64, error) {
	if id, ok := r.players[name]; ok {
		return id, nil
	}

	id, err := r.reader.FindPlayerID(ctx, name)
	if errors.Is(err, db.ErrNotFound) {
		id, err = r.writer.InsertPlayer(ctx, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve player %q: %w", name, err)
	}

	r.players[name] = id
	return id, nil
}

// ResolveTournament returns the id of the tournament with this exact name.
// A new tournament takes site as its location and date as its start date;
// an existing one is reused unchanged.
func (r *Resolver) ResolveTournament(ctx context.Context, name, site string, date *time.Time) (int64, error) {
	if id, ok := r.tournaments[name]; ok {
		return id, nil
	}

	var id int64
	t, err := r.reader.FindTournament(ctx, name)
	switch {
	case err == nil:
		id = t.ID
	case errors.Is(err, db.ErrNotFound):
		organizer := ImportedOrganizer
		id, err = r.writer.InsertTournament(ctx, db.Tournament{
			Name:      name,
			Location:  optString(site),
			StartDate: date,
			Organizer: &organizer,
		})
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve tournament %q: %w", name, err)
	}

	r.tournaments[name] = id
	return id, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
