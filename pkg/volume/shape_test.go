package volume

import (
	"testing"

	"octextract/internal/models"
)

func TestResolveKnownShape(t *testing.T) {
	r := DefaultResolver()

	shape := r.Resolve(200*1024*200, nil)
	want := models.Shape{Depth: 200, Height: 1024, Width: 200}
	if shape != want {
		t.Errorf("Resolve(200*1024*200) = %v, want %v", shape, want)
	}
}

func TestResolveForcedShapeWins(t *testing.T) {
	r := DefaultResolver()
	forced := models.Shape{Depth: 1, Height: 2, Width: 3}

	// Forced shape is returned verbatim even when the byte count matches
	// a known geometry.
	shape := r.Resolve(200*1024*200, &forced)
	if shape != forced {
		t.Errorf("Resolve with forced shape = %v, want %v", shape, forced)
	}
}

func TestResolveFallback(t *testing.T) {
	r := DefaultResolver()

	shape := r.Resolve(12345, nil)
	if shape != r.Fallback {
		t.Errorf("Resolve(12345) = %v, want fallback %v", shape, r.Fallback)
	}
}

func TestResolveFirstMatchWins(t *testing.T) {
	// Two registry entries with the same voxel count; the first listed
	// entry must win.
	first := models.Shape{Depth: 2, Height: 3, Width: 4}
	second := models.Shape{Depth: 4, Height: 3, Width: 2}
	r := Resolver{
		Known:    []models.Shape{first, second},
		Fallback: DefaultFallback,
	}

	shape := r.Resolve(24, nil)
	if shape != first {
		t.Errorf("Resolve(24) = %v, want first-listed %v", shape, first)
	}
}
