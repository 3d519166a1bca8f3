package refusal

import "testing"

func TestQuestionEqual(t *testing.T) {
	t.Parallel()

	base := Question{
		ID:     "a",
		Title:  "A",
		Target: map[string]string{"internal": "followup"},
		Suggestions: []Question{
			{ID: "b", Suggestions: []Question{{ID: "c"}}},
		},
	}

	same := Question{
		ID:     "a",
		Title:  "A",
		Target: map[string]string{"internal": "followup"},
		Suggestions: []Question{
			{ID: "b", Suggestions: []Question{{ID: "c"}}},
		},
	}
	if !base.Equal(same) {
		t.Error("structurally identical questions should be equal")
	}

	deep := same
	deep.Suggestions = []Question{{ID: "b", Suggestions: []Question{{ID: "d"}}}}
	if base.Equal(deep) {
		t.Error("questions differing in nested suggestions should not be equal")
	}

	target := same
	target.Target = map[string]string{"external": "followup"}
	if base.Equal(target) {
		t.Error("questions differing in target should not be equal")
	}

	if !(Question{ID: "x"}).Equal(Question{ID: "x", Suggestions: []Question{}, Target: map[string]string{}}) {
		t.Error("nil and empty collections should compare equal")
	}
}

func TestQuestionWalk(t *testing.T) {
	t.Parallel()

	q := Question{ID: "root", Suggestions: []Question{
		{ID: "a", Suggestions: []Question{{ID: "a1"}}},
		{ID: "b"},
	}}

	var visited []string
	q.Walk(func(n Question) bool {
		visited = append(visited, n.ID)
		return true
	})

	want := []string{"root", "a", "a1", "b"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, visited[i], want[i])
		}
	}

	if _, ok := Find([]Question{q}, "missing"); ok {
		t.Error("expected missing id not to be found")
	}
}
