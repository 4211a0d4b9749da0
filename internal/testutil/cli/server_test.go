package cli

import (
	"testing"
)

func TestParseJSON(t *testing.T) {
	got := ParseJSON(t, `{"success":true,"board":{"id":3,"title":"Roadmap"},"ids":[1,2]}`)

	if got["success"] != true {
		t.Errorf("success = %v, want true", got["success"])
	}
	board, ok := got["board"].(map[string]any)
	if !ok {
		t.Fatalf("board has type %T", got["board"])
	}
	if board["id"] != float64(3) {
		t.Errorf("board id = %v (%T), want float64 3", board["id"], board["id"])
	}
	if board["title"] != "Roadmap" {
		t.Errorf("board title = %v", board["title"])
	}
	if ids, ok := got["ids"].([]any); !ok || len(ids) != 2 {
		t.Errorf("ids = %v", got["ids"])
	}
}

func TestIDs(t *testing.T) {
	got := IDs(t, "4\n7\n\n9\n")
	want := []string{"4", "7", "9"}
	if len(got) != len(want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
