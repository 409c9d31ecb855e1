// Package volume decodes raw Cirrus OCT volume dumps into voxel arrays.
//
// A dump is a flat uint8 buffer whose length must equal the product of its
// (depth, height, width) shape. The shape is not stored in the file; it is
// either forced by the operator or inferred from the byte count against a
// registry of known device export geometries.
package volume

import "octextract/internal/models"

// DefaultFallback is the shape assumed when the byte count matches no known
// export geometry. Downstream decoding will fail with a size mismatch if it
// is wrong, which is the intended failure point.
var DefaultFallback = models.Shape{Depth: 200, Height: 1024, Width: 200}

// DefaultKnown lists the device export geometries recognized by byte count.
var DefaultKnown = []models.Shape{
	{Depth: 200, Height: 1024, Width: 200}, // Macular Cube 200x200
}

// Resolver infers a volume shape from a file's byte count.
type Resolver struct {
	// Known is checked in order; the first shape whose voxel count equals
	// the byte count wins.
	Known []models.Shape

	// Fallback is returned when nothing in Known matches.
	Fallback models.Shape
}

// DefaultResolver returns a resolver for the standard export geometries.
func DefaultResolver() Resolver {
	return Resolver{Known: DefaultKnown, Fallback: DefaultFallback}
}

// Resolve determines the shape to decode a file of nBytes with. A non-nil
// forced shape is returned verbatim; the caller owns any downstream size
// mismatch. Resolve never fails: invalid results surface later as the
// decoder's size check.
func (r Resolver) Resolve(nBytes int64, forced *models.Shape) models.Shape {
	if forced != nil {
		return *forced
	}
	for _, s := range r.Known {
		if int64(s.NumVoxels()) == nBytes {
			return s
		}
	}
	return r.Fallback
}
