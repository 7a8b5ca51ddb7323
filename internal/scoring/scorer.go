package scoring

import (
	"context"
	"fmt"
	"sort"

	"chess-etl/internal/db"
	"chess-etl/internal/pgn"
)

// Standing is the computed points and rank of one player.
type Standing struct {
	PlayerID int64
	Points   float64
	Rank     int
}

// Scorer recomputes tournament standings from stored games.
type Scorer struct {
	reader *db.Reader
	writer *db.Writer
}

// NewScorer creates a new scorer.
func NewScorer(reader *db.Reader, writer *db.Writer) *Scorer {
	return &Scorer{reader: reader, writer: writer}
}

// RebuildStandings recomputes points and dense rank for every player of a
// tournament from the complete set of its games and upserts them. The result
// depends only on the stored games, never on prior standings.
func (s *Scorer) RebuildStandings(ctx context.Context, tournamentID int64) ([]Standing, error) {
	games, err := s.reader.GetGameResults(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get games: %w", err)
	}

	standings := DenseRank(Aggregate(games))

	for _, st := range standings {
		p := db.Participation{
			PlayerID:     st.PlayerID,
			TournamentID: tournamentID,
			Points:       st.Points,
			FinalRank:    st.Rank,
		}
		if err := s.writer.UpsertParticipation(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to store standing for player %d: %w", st.PlayerID, err)
		}
	}

	return standings, nil
}

// Score returns what a result is worth to white and to black.
func Score(result string) (white, black float64) {
	switch result {
	case pgn.ResultWhiteWins:
		return 1, 0
	case pgn.ResultBlackWins:
		return 0, 1
	case pgn.ResultDraw:
		return 0.5, 0.5
	default:
		return 0, 0
	}
}

// Aggregate sums the contributions of every game per player. Every player
// who appears in a game gets an entry, even with zero points.
func Aggregate(games []db.GameResult) map[int64]float64 {
	points := make(map[int64]float64)
	for _, g := range games {
		w, b := Score(g.Result)
		points[g.WhitePlayerID] += w
		points[g.BlackPlayerID] += b
	}
	return points
}

// DenseRank orders players by points, highest first, ties broken by player
// id. Equal points share a rank and the next lower total gets the next rank.
func DenseRank(points map[int64]float64) []Standing {
	out := make([]Standing, 0, len(points))
	for id, p := range points {
		out = append(out, Standing{PlayerID: id, Points: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].PlayerID < out[j].PlayerID
	})

	rank := 0
	for i := range out {
		if i == 0 || out[i].Points != out[i-1].Points {
			rank++
		}
		out[i].Rank = rank
	}
	return out
}
