package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape describes the voxel grid of a raw volume in (depth, height, width)
// order, matching the frame/row/column layout of the byte dump.
type Shape struct {
	// Depth is the number of frames (B-scans) in the volume
	Depth int

	// Height is the number of rows per frame
	Height int

	// Width is the number of columns per frame
	Width int
}

// NumVoxels returns the total voxel count, which for a raw uint8 dump is
// also the expected file size in bytes.
func (s Shape) NumVoxels() int {
	return s.Depth * s.Height * s.Width
}

// ZYX returns the dimensions as a (depth, height, width) triple.
func (s Shape) ZYX() [3]int {
	return [3]int{s.Depth, s.Height, s.Width}
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Depth, s.Height, s.Width)
}

// ParseShape parses a "d,h,w" string into a Shape. All three components
// must be positive integers.
func ParseShape(s string) (Shape, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Shape{}, fmt.Errorf("shape %q: want three comma-separated integers", s)
	}
	var dims [3]int
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Shape{}, fmt.Errorf("shape %q: %w", s, err)
		}
		if v <= 0 {
			return Shape{}, fmt.Errorf("shape %q: dimension %d must be positive", s, i+1)
		}
		dims[i] = v
	}
	return Shape{Depth: dims[0], Height: dims[1], Width: dims[2]}, nil
}

// Extent is the physical size of the scanned region in millimeters,
// (depth, height, width) order. It is a configured constant of the device
// export, not derived from file contents.
type Extent struct {
	Depth  float64
	Height float64
	Width  float64
}

// Spacing is the physical size of a single voxel in millimeters along each
// axis, (depth, height, width) order.
type Spacing struct {
	Depth  float64
	Height float64
	Width  float64
}

// ZYX returns the spacing in (depth, height, width) order, the order used
// by the persisted artifacts.
func (sp Spacing) ZYX() [3]float64 {
	return [3]float64{sp.Depth, sp.Height, sp.Width}
}

// XYZ returns the spacing in (width, height, depth) order, the convention
// used by volumetric image encoders.
func (sp Spacing) XYZ() [3]float64 {
	return [3]float64{sp.Width, sp.Height, sp.Depth}
}

// Volume holds a decoded scan volume.
type Volume struct {
	// Data is the voxel data as a 1D array in (frame, row, column)
	// row-major order
	Data []uint8

	// Shape is the voxel grid of Data
	Shape Shape

	// Spacing is the physical voxel size in mm
	Spacing Spacing
}

// At returns the voxel at the given frame, row and column. Bounds are the
// caller's responsibility.
func (v *Volume) At(frame, row, col int) uint8 {
	return v.Data[frame*v.Shape.Height*v.Shape.Width+row*v.Shape.Width+col]
}

// Status is the terminal state of one file's conversion attempt.
type Status string

const (
	// StatusOK means the file was decoded and all artifacts were written
	StatusOK Status = "OK"

	// StatusSkip means the output directory was already complete
	StatusSkip Status = "SKIP"

	// StatusDryRun means the file would have been converted
	StatusDryRun Status = "DRYRUN"

	// StatusErr means reading or decoding failed; an error record was
	// written where possible
	StatusErr Status = "ERR"
)

// Outcome pairs a conversion status with its report message.
type Outcome struct {
	Status  Status
	Message string
}
