package volume

import (
	"fmt"

	"octextract/internal/models"
)

// SizeMismatchError reports a buffer whose length does not match the voxel
// count of the shape it was decoded with. Its message is persisted verbatim
// in the per-file error record.
type SizeMismatchError struct {
	Actual   int
	Expected int
	Shape    models.Shape
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: got %d bytes, expect %d for shape %s",
		e.Actual, e.Expected, e.Shape)
}

// ComputeSpacing derives the physical voxel size from the scan extent and
// the voxel grid, elementwise in (depth, height, width) order.
func ComputeSpacing(extent models.Extent, shape models.Shape) models.Spacing {
	return models.Spacing{
		Depth:  extent.Depth / float64(shape.Depth),
		Height: extent.Height / float64(shape.Height),
		Width:  extent.Width / float64(shape.Width),
	}
}

// Decode converts a raw dump into a stacked frame volume.
//
// Each frame i is the byte slice [i*h*w, (i+1)*h*w) reshaped to (h, w) in
// row-major order and then flipped along both axes, a 180 degree in-plane
// rotation matching the device's scan orientation. Frames are stacked in
// order, so the result keeps (frame, row, column) axis order.
//
// Decode is pure: it fails with a SizeMismatchError when the buffer length
// does not equal the shape's voxel count, and has no other failure mode.
func Decode(buf []byte, shape models.Shape, extent models.Extent) (*models.Volume, error) {
	expected := shape.NumVoxels()
	if len(buf) != expected {
		return nil, &SizeMismatchError{Actual: len(buf), Expected: expected, Shape: shape}
	}

	spacing := ComputeSpacing(extent, shape)

	d, h, w := shape.Depth, shape.Height, shape.Width
	hw := h * w
	data := make([]uint8, expected)
	for i := 0; i < d; i++ {
		frame := buf[i*hw : (i+1)*hw]
		out := data[i*hw : (i+1)*hw]
		for r := 0; r < h; r++ {
			src := frame[(h-1-r)*w : (h-r)*w]
			dst := out[r*w : (r+1)*w]
			for c := 0; c < w; c++ {
				dst[c] = src[w-1-c]
			}
		}
	}

	return &models.Volume{Data: data, Shape: shape, Spacing: spacing}, nil
}

// ExtractFrame returns a copy of one (h, w) frame of the volume, row-major.
func ExtractFrame(v *models.Volume, index int) ([]uint8, error) {
	if index < 0 || index >= v.Shape.Depth {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", index, v.Shape.Depth)
	}
	hw := v.Shape.Height * v.Shape.Width
	frame := make([]uint8, hw)
	copy(frame, v.Data[index*hw:(index+1)*hw])
	return frame, nil
}
