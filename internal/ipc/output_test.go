package ipc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestOutputWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)

	out.SourceStart("r1", "file:a.pgn")
	out.SourceFailed("r1", "url:http://x", errors.New("boom"))
	out.SourceDone("r1", "file:a.pgn", 3, 2, 0, 1)
	out.Summary("r1", map[string]int{"games_inserted": 2})

	var types []string
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var obj map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &obj); err != nil {
			t.Fatalf("invalid line %q: %v", sc.Text(), err)
		}
		if obj["run_id"] != "r1" {
			t.Errorf("missing run id in %v", obj)
		}
		types = append(types, obj["type"].(string))
		if obj["type"] == "source_failed" && obj["error"] != "boom" {
			t.Errorf("error not propagated: %v", obj)
		}
		if obj["type"] == "summary" && obj["games_inserted"] != float64(2) {
			t.Errorf("summary counter missing: %v", obj)
		}
	}

	want := []string{"source_start", "source_failed", "source_done", "summary"}
	if len(types) != len(want) {
		t.Fatalf("want %v got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("line %d: want %s got %s", i, want[i], types[i])
		}
	}
}
