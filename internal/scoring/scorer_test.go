package scoring

import (
	"context"
	"path/filepath"
	"testing"

	"chess-etl/internal/db"
)

func TestScore(t *testing.T) {
	cases := []struct {
		result       string
		white, black float64
	}{
		{"1-0", 1, 0},
		{"1/2-1/2", 0.5, 0.5},
		{"0-1", 0, 1},
		{"*", 0, 0},
	}
	for _, tc := range cases {
		w, b := Score(tc.result)
		if w != tc.white || b != tc.black {
			t.Errorf("%s: want %.1f/%.1f got %.1f/%.1f", tc.result, tc.white, tc.black, w, b)
		}
	}
}

func TestDenseRank(t *testing.T) {
	points := map[int64]float64{1: 3.0, 2: 2.5, 3: 2.5, 4: 1.0}
	got := DenseRank(points)

	want := []Standing{
		{PlayerID: 1, Points: 3.0, Rank: 1},
		{PlayerID: 2, Points: 2.5, Rank: 2},
		{PlayerID: 3, Points: 2.5, Rank: 2},
		{PlayerID: 4, Points: 1.0, Rank: 3},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d standings, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: want %+v got %+v", i, want[i], got[i])
		}
	}
}

func TestDenseRankAllTied(t *testing.T) {
	got := DenseRank(map[int64]float64{7: 1, 3: 1, 5: 1})
	for i, st := range got {
		if st.Rank != 1 {
			t.Errorf("position %d: want rank 1 got %d", i, st.Rank)
		}
	}
	if got[0].PlayerID != 3 || got[2].PlayerID != 7 {
		t.Errorf("ties should be ordered by player id: %+v", got)
	}
	if len(DenseRank(nil)) != 0 {
		t.Error("no players should give no standings")
	}
}

func TestAggregate(t *testing.T) {
	games := []db.GameResult{
		{WhitePlayerID: 1, BlackPlayerID: 2, Result: "1-0"},
		{WhitePlayerID: 2, BlackPlayerID: 3, Result: "1/2-1/2"},
		{WhitePlayerID: 3, BlackPlayerID: 1, Result: "0-1"},
	}
	got := Aggregate(games)
	want := map[int64]float64{1: 2, 2: 0.5, 3: 0.5}
	if len(got) != len(want) {
		t.Fatalf("want %v got %v", want, got)
	}
	for id, p := range want {
		if got[id] != p {
			t.Errorf("player %d: want %.1f got %.1f", id, p, got[id])
		}
	}
}

func TestRebuildStandingsIsFullRecompute(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverModernc, filepath.Join(t.TempDir(), "chess.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	w, r := db.NewWriter(conn), db.NewReader(conn)
	tid, _ := w.InsertTournament(ctx, db.Tournament{Name: "Open 1"})
	a, _ := w.InsertPlayer(ctx, "A")
	b, _ := w.InsertPlayer(ctx, "B")

	// Stale row that must be overwritten.
	if err := w.UpsertParticipation(ctx, db.Participation{PlayerID: a, TournamentID: tid, Points: 9, FinalRank: 5}); err != nil {
		t.Fatal(err)
	}
	for _, res := range []string{"1-0", "0-1"} {
		if _, err := w.InsertGame(ctx, db.Game{TournamentID: tid, WhitePlayerID: a, BlackPlayerID: b, Result: res}); err != nil {
			t.Fatal(err)
		}
	}

	s := NewScorer(r, w)
	for i := 0; i < 2; i++ {
		if _, err := s.RebuildStandings(ctx, tid); err != nil {
			t.Fatalf("rebuild %d: %v", i, err)
		}
	}

	rows, err := r.GetParticipations(ctx, tid)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 participations, got %d", len(rows))
	}
	for _, p := range rows {
		if p.Points != 1 || p.FinalRank != 1 {
			t.Errorf("player %d: want 1.0 rank 1 got %.1f rank %d", p.PlayerID, p.Points, p.FinalRank)
		}
	}
}
