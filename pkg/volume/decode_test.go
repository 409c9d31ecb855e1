package volume

import (
	"errors"
	"testing"

	"octextract/internal/models"
)

// synthBuffer builds a raw buffer where the byte for frame i, row r,
// column c encodes its own coordinates, so the frame transform can be
// verified voxel by voxel.
func synthBuffer(shape models.Shape) []byte {
	buf := make([]byte, shape.NumVoxels())
	for i := 0; i < shape.Depth; i++ {
		for r := 0; r < shape.Height; r++ {
			for c := 0; c < shape.Width; c++ {
				buf[i*shape.Height*shape.Width+r*shape.Width+c] =
					uint8((i*31 + r*7 + c) % 251)
			}
		}
	}
	return buf
}

func TestDecodeSizeMismatch(t *testing.T) {
	shape := models.Shape{Depth: 2, Height: 3, Width: 4}
	extent := models.Extent{Depth: 6, Height: 2, Width: 6}

	_, err := Decode(make([]byte, 25), shape, extent)
	if err == nil {
		t.Fatal("Decode with wrong-size buffer succeeded")
	}

	var mismatch *SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error type = %T, want *SizeMismatchError", err)
	}
	if mismatch.Actual != 25 {
		t.Errorf("Actual = %d, want 25", mismatch.Actual)
	}
	if mismatch.Expected != 24 {
		t.Errorf("Expected = %d, want 24", mismatch.Expected)
	}
	if mismatch.Shape != shape {
		t.Errorf("Shape = %v, want %v", mismatch.Shape, shape)
	}
}

func TestDecodeExactSizeSucceeds(t *testing.T) {
	shape := models.Shape{Depth: 3, Height: 4, Width: 5}
	extent := models.Extent{Depth: 6, Height: 2, Width: 6}

	if _, err := Decode(make([]byte, 60), shape, extent); err != nil {
		t.Fatalf("Decode with exact-size buffer failed: %v", err)
	}
}

func TestDecodeFrameTransform(t *testing.T) {
	shape := models.Shape{Depth: 3, Height: 4, Width: 5}
	extent := models.Extent{Depth: 6, Height: 2, Width: 6}
	buf := synthBuffer(shape)

	vol, err := Decode(buf, shape, extent)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	h, w := shape.Height, shape.Width
	for i := 0; i < shape.Depth; i++ {
		rawFrame := buf[i*h*w : (i+1)*h*w]
		for r := 0; r < h; r++ {
			for c := 0; c < w; c++ {
				want := rawFrame[(h-1-r)*w+(w-1-c)]
				if got := vol.At(i, r, c); got != want {
					t.Fatalf("voxel (%d,%d,%d) = %d, want %d (reverse rows and columns)",
						i, r, c, got, want)
				}
			}
		}
	}
}

func TestComputeSpacing(t *testing.T) {
	shape := models.Shape{Depth: 200, Height: 1024, Width: 200}
	extent := models.Extent{Depth: 6, Height: 2, Width: 6}

	spacing := ComputeSpacing(extent, shape)
	want := models.Spacing{Depth: 0.03, Height: 0.001953125, Width: 0.03}
	if spacing != want {
		t.Errorf("ComputeSpacing = %v, want %v", spacing, want)
	}
}

func TestSpacingOrdering(t *testing.T) {
	sp := models.Spacing{Depth: 1, Height: 2, Width: 3}

	if zyx := sp.ZYX(); zyx != [3]float64{1, 2, 3} {
		t.Errorf("ZYX() = %v, want [1 2 3]", zyx)
	}
	if xyz := sp.XYZ(); xyz != [3]float64{3, 2, 1} {
		t.Errorf("XYZ() = %v, want [3 2 1]", xyz)
	}
}

func TestExtractFrame(t *testing.T) {
	shape := models.Shape{Depth: 2, Height: 3, Width: 4}
	extent := models.Extent{Depth: 6, Height: 2, Width: 6}
	vol, err := Decode(synthBuffer(shape), shape, extent)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	frame, err := ExtractFrame(vol, 1)
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if len(frame) != shape.Height*shape.Width {
		t.Fatalf("frame length = %d, want %d", len(frame), shape.Height*shape.Width)
	}
	for r := 0; r < shape.Height; r++ {
		for c := 0; c < shape.Width; c++ {
			if frame[r*shape.Width+c] != vol.At(1, r, c) {
				t.Fatalf("frame voxel (%d,%d) differs from volume", r, c)
			}
		}
	}

	if _, err := ExtractFrame(vol, 2); err == nil {
		t.Error("ExtractFrame with out-of-range index succeeded")
	}
	if _, err := ExtractFrame(vol, -1); err == nil {
		t.Error("ExtractFrame with negative index succeeded")
	}
}

func TestComputeStats(t *testing.T) {
	shape := models.Shape{Depth: 2, Height: 4, Width: 4}

	t.Run("Uniform", func(t *testing.T) {
		data := make([]uint8, shape.NumVoxels())
		for i := range data {
			data[i] = 7
		}
		vol := &models.Volume{Data: data, Shape: shape}

		s := ComputeStats(vol)
		if s.Mean != 7 {
			t.Errorf("Mean = %v, want 7", s.Mean)
		}
		if s.StdDev != 0 {
			t.Errorf("StdDev = %v, want 0", s.StdDev)
		}
		if s.Min != 7 || s.Max != 7 {
			t.Errorf("Min/Max = %d/%d, want 7/7", s.Min, s.Max)
		}
	})

	t.Run("MinMaxExact", func(t *testing.T) {
		data := make([]uint8, shape.NumVoxels())
		data[3] = 200
		data[17] = 1
		for i := range data {
			if i != 3 && i != 17 {
				data[i] = 50
			}
		}
		vol := &models.Volume{Data: data, Shape: shape}

		s := ComputeStats(vol)
		if s.Min != 1 {
			t.Errorf("Min = %d, want 1", s.Min)
		}
		if s.Max != 200 {
			t.Errorf("Max = %d, want 200", s.Max)
		}
	})
}
