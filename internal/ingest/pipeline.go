// Package ingest turns PGN text into stored players, tournaments and games
// and keeps the standings of every touched tournament current.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"chess-etl/internal/db"
	"chess-etl/internal/ipc"
	"chess-etl/internal/logger"
	"chess-etl/internal/pgn"
	"chess-etl/internal/scoring"
	"chess-etl/internal/sources"
)

// Counts are the per-game counters of a run or a source.
type Counts struct {
	Seen      int
	Inserted  int
	Duplicate int
	Dropped   int
}

func (c *Counts) add(o Counts) {
	c.Seen += o.Seen
	c.Inserted += o.Inserted
	c.Duplicate += o.Duplicate
	c.Dropped += o.Dropped
}

// Report summarizes one pipeline run.
type Report struct {
	RunID         string
	SourcesTotal  int
	SourcesFailed int
	Counts
	// Tournaments lists the ids whose standings were rebuilt, ascending.
	Tournaments []int64
}

// Pipeline runs sources through parsing, resolution, ingestion and standings.
// It assumes it is the only writer of the store.
type Pipeline struct {
	loader   *sources.Loader
	reader   *db.Reader
	writer   *db.Writer
	ingestor *Ingestor
	scorer   *scoring.Scorer
	log      *logger.Logger
	out      *ipc.Output
	now      func() time.Time
}

// NewPipeline wires a pipeline over an open store. A nil out discards
// NDJSON events.
func NewPipeline(conn *sql.DB, loader *sources.Loader, log *logger.Logger, out *ipc.Output) *Pipeline {
	if out == nil {
		out = ipc.Discard()
	}
	reader, writer := db.NewReader(conn), db.NewWriter(conn)
	return &Pipeline{
		loader:   loader,
		reader:   reader,
		writer:   writer,
		ingestor: NewIngestor(reader, writer),
		scorer:   scoring.NewScorer(reader, writer),
		log:      log,
		out:      out,
		now:      time.Now,
	}
}

type run struct {
	report   *Report
	started  time.Time
	resolver *Resolver
	touched  map[int64]struct{}
}

func (p *Pipeline) newRun() *run {
	return &run{
		report:   &Report{RunID: uuid.NewString()},
		started:  p.now(),
		resolver: NewResolver(p.reader, p.writer),
		touched:  make(map[int64]struct{}),
	}
}

// Run ingests every source in order. A source that cannot be fetched is
// reported and skipped. Store failures abort the run and are returned;
// games stored before the failure stay stored.
func (p *Pipeline) Run(ctx context.Context, srcs []sources.Source) (*Report, error) {
	rn := p.newRun()
	rn.report.SourcesTotal = len(srcs)
	log := p.log.With("run_id", rn.report.RunID)
	log.Info("starting ingestion", "sources", len(srcs))

	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return rn.report, err
		}

		log.Info("fetching source", "source", src.String())
		p.out.SourceStart(rn.report.RunID, src.String())

		text, err := p.loader.Fetch(ctx, src)
		if err != nil {
			rn.report.SourcesFailed++
			log.Warn("source failed", "source", src.String(), "error", err)
			p.out.SourceFailed(rn.report.RunID, src.String(), err)
			continue
		}

		counts, err := p.ingestText(ctx, rn, text)
		if err != nil {
			return rn.report, err
		}
		log.Info("source done", "source", src.String(),
			"seen", counts.Seen, "inserted", counts.Inserted,
			"duplicate", counts.Duplicate, "dropped", counts.Dropped)
		p.out.SourceDone(rn.report.RunID, src.String(),
			counts.Seen, counts.Inserted, counts.Duplicate, counts.Dropped)
	}

	if err := p.finish(ctx, rn); err != nil {
		return rn.report, err
	}
	return rn.report, nil
}

// ProcessText ingests one PGN blob as a complete run.
func (p *Pipeline) ProcessText(ctx context.Context, text string) (*Report, error) {
	rn := p.newRun()
	if _, err := p.ingestText(ctx, rn, text); err != nil {
		return rn.report, err
	}
	if err := p.finish(ctx, rn); err != nil {
		return rn.report, err
	}
	return rn.report, nil
}

// Rebuild recomputes the standings of one tournament by name.
func (p *Pipeline) Rebuild(ctx context.Context, name string) ([]scoring.Standing, error) {
	t, err := p.reader.FindTournament(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find tournament %q: %w", name, err)
	}
	return p.scorer.RebuildStandings(ctx, t.ID)
}

func (p *Pipeline) ingestText(ctx context.Context, rn *run, text string) (Counts, error) {
	var c Counts
	for _, g := range pgn.ParseAll(text) {
		c.Seen++

		if reason := incompleteReason(g); reason != "" {
			c.Dropped++
			p.log.Debug("dropping game", "event", g.Event, "reason", reason)
			continue
		}

		rec, err := p.resolve(ctx, rn.resolver, g)
		if err != nil {
			rn.report.add(c)
			return c, err
		}

		outcome, err := p.ingestor.IngestGame(ctx, rec)
		if err != nil {
			rn.report.add(c)
			return c, err
		}
		switch outcome {
		case Inserted:
			c.Inserted++
		case Duplicate:
			c.Duplicate++
		default:
			c.Dropped++
			continue
		}
		// Duplicates count as touched so a re-run after a crash still
		// rebuilds standings that were never written.
		rn.touched[rec.TournamentID] = struct{}{}
	}
	rn.report.add(c)
	return c, nil
}

func (p *Pipeline) resolve(ctx context.Context, res *Resolver, g pgn.Game) (GameRecord, error) {
	tid, err := res.ResolveTournament(ctx, g.Event, g.Site, g.Date)
	if err != nil {
		return GameRecord{}, err
	}
	white, err := res.ResolvePlayer(ctx, g.White)
	if err != nil {
		return GameRecord{}, err
	}
	black, err := res.ResolvePlayer(ctx, g.Black)
	if err != nil {
		return GameRecord{}, err
	}
	return GameRecord{
		TournamentID: tid,
		Round:        g.Round,
		WhiteID:      white,
		BlackID:      black,
		Result:       g.Result,
		ECO:          optString(g.ECO),
		Opening:      optString(g.Opening),
		Moves:        g.Moves,
	}, nil
}

func incompleteReason(g pgn.Game) string {
	switch {
	case g.White == "":
		return "missing white player"
	case g.Black == "":
		return "missing black player"
	case g.Result == "":
		return "missing or unknown result"
	default:
		return ""
	}
}

// finish rebuilds the standings of every touched tournament and records the
// run.
func (p *Pipeline) finish(ctx context.Context, rn *run) error {
	ids := make([]int64, 0, len(rn.touched))
	for id := range rn.touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		standings, err := p.scorer.RebuildStandings(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to rebuild standings of tournament %d: %w", id, err)
		}
		p.log.Debug("standings rebuilt", "tournament_id", id, "players", len(standings))
	}
	rn.report.Tournaments = ids

	r := rn.report
	err := p.writer.InsertRun(ctx, db.Run{
		RunID:          r.RunID,
		StartedAt:      rn.started,
		FinishedAt:     p.now(),
		SourcesTotal:   r.SourcesTotal,
		SourcesFailed:  r.SourcesFailed,
		GamesSeen:      r.Seen,
		GamesInserted:  r.Inserted,
		GamesDuplicate: r.Duplicate,
		GamesDropped:   r.Dropped,
	})
	if err != nil {
		return err
	}

	p.out.Summary(r.RunID, map[string]int{
		"sources_total":   r.SourcesTotal,
		"sources_failed":  r.SourcesFailed,
		"games_seen":      r.Seen,
		"games_inserted":  r.Inserted,
		"games_duplicate": r.Duplicate,
		"games_dropped":   r.Dropped,
		"tournaments":     len(ids),
	})
	p.log.Info("ingestion finished", "run_id", r.RunID,
		"sources_failed", r.SourcesFailed, "inserted", r.Inserted,
		"duplicate", r.Duplicate, "dropped", r.Dropped, "tournaments", len(ids))
	return nil
}
