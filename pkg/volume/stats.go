package volume

import (
	"gonum.org/v1/gonum/stat"

	"octextract/internal/models"
)

// statsMaxSamples caps how many voxels feed the mean/stddev estimate. Full
// cubes run to ~40M voxels; a strided sample keeps the float conversion
// bounded while staying deterministic.
const statsMaxSamples = 1 << 20

// Stats summarizes voxel intensities of a decoded volume. Mean and StdDev
// are computed on a deterministic stride sample; Min and Max are exact.
type Stats struct {
	Mean   float64
	StdDev float64
	Min    uint8
	Max    uint8
}

// ComputeStats returns intensity statistics for the volume.
func ComputeStats(v *models.Volume) Stats {
	n := len(v.Data)
	if n == 0 {
		return Stats{}
	}

	stride := n / statsMaxSamples
	if stride < 1 {
		stride = 1
	}
	samples := make([]float64, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		samples = append(samples, float64(v.Data[i]))
	}

	s := Stats{Min: v.Data[0], Max: v.Data[0]}
	for _, b := range v.Data {
		if b < s.Min {
			s.Min = b
		}
		if b > s.Max {
			s.Max = b
		}
	}
	s.Mean = stat.Mean(samples, nil)
	if len(samples) > 1 {
		s.StdDev = stat.StdDev(samples, nil)
	}
	return s
}
