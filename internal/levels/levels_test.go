package levels

import "testing"

func TestTrackerFirstRecordIsLevelZero(t *testing.T) {
	tr := NewTracker(2)
	root := NewRow(0)
	child := root.Child()

	if rl := tr.Diff(child); rl != 0 {
		t.Fatalf("first record: want rl=0, got %d", rl)
	}
}

func TestTrackerSameElementRepeats(t *testing.T) {
	tr := NewTracker(1)
	root := NewRow(0)
	arr := root.Child()

	if rl := tr.Diff(arr); rl != 0 {
		t.Fatalf("first element: want rl=0, got %d", rl)
	}
	arr.Inc()
	if rl := tr.Diff(arr); rl != 1 {
		t.Fatalf("second element of same array: want rl=1, got %d", rl)
	}
	arr.Inc()
	if rl := tr.Diff(arr); rl != 1 {
		t.Fatalf("third element of same array: want rl=1, got %d", rl)
	}
}

func TestTrackerNewRowResetsToZero(t *testing.T) {
	tr := NewTracker(1)
	first := NewRow(0).Child()
	first.Inc()
	tr.Diff(first)

	second := NewRow(1).Child()
	if rl := tr.Diff(second); rl != 0 {
		t.Fatalf("new row's first element: want rl=0, got %d", rl)
	}
}

func TestTrackerDivergesAtOutermostChangedLevel(t *testing.T) {
	// Two levels of repetition: level 1 (outer list) and level 2 (inner list).
	tr := NewTracker(2)

	row := NewRow(0)
	outer := row.Child()
	inner := outer.Child()
	if rl := tr.Diff(inner); rl != 0 {
		t.Fatalf("first leaf: want rl=0, got %d", rl)
	}

	// Same outer element, next inner element -> diverges at level 2.
	inner.Inc()
	if rl := tr.Diff(inner); rl != 2 {
		t.Fatalf("next inner element: want rl=2, got %d", rl)
	}

	// New outer element (fresh inner child) -> diverges at level 1.
	outer2 := row.Child()
	outer2.Inc()
	inner2 := outer2.Child()
	if rl := tr.Diff(inner2); rl != 1 {
		t.Fatalf("next outer element: want rl=1, got %d", rl)
	}
}

func TestIndexLevel(t *testing.T) {
	root := NewRow(5)
	if root.Level() != 0 {
		t.Fatalf("row index level: want 0, got %d", root.Level())
	}
	child := root.Child()
	if child.Level() != 1 {
		t.Fatalf("child level: want 1, got %d", child.Level())
	}
	grandchild := child.Child()
	if grandchild.Level() != 2 {
		t.Fatalf("grandchild level: want 2, got %d", grandchild.Level())
	}
}
