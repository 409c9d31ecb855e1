// Package nifti writes decoded volumes as gzip-compressed NIfTI-1 images
// (.nii.gz). It is the shipped implementation of the converter's optional
// encoder capability; builds that drop it simply leave the capability nil.
package nifti

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"os"

	"octextract/internal/models"
)

const (
	headerSize    = 348
	voxelOffset   = 352 // header + 4-byte extension indicator
	datatypeUint8 = 2
	unitsMM       = 2
)

// header is the fixed little-endian NIfTI-1 header (nifti_1_header).
type header struct {
	SizeofHdr      int32
	DataType       [10]byte
	DBName         [18]byte
	Extents        int32
	SessionError   int16
	Regular        byte
	DimInfo        byte
	Dim            [8]int16
	IntentP1       float32
	IntentP2       float32
	IntentP3       float32
	IntentCode     int16
	Datatype       int16
	Bitpix         int16
	SliceStart     int16
	Pixdim         [8]float32
	VoxOffset      float32
	SclSlope       float32
	SclInter       float32
	SliceEnd       int16
	SliceCode      byte
	XyztUnits      byte
	CalMax         float32
	CalMin         float32
	SliceDuration  float32
	Toffset        float32
	Glmax          int32
	Glmin          int32
	Descrip        [80]byte
	AuxFile        [24]byte
	QformCode      int16
	SformCode      int16
	QuaternB       float32
	QuaternC       float32
	QuaternD       float32
	QoffsetX       float32
	QoffsetY       float32
	QoffsetZ       float32
	SrowX          [4]float32
	SrowY          [4]float32
	SrowZ          [4]float32
	IntentName     [16]byte
	Magic          [4]byte
}

// Encoder writes volumes in the NIfTI-1 single-file format.
type Encoder struct{}

// New returns a NIfTI encoder.
func New() *Encoder {
	return &Encoder{}
}

// Encode writes the volume to path as a gzipped NIfTI-1 image.
//
// NIfTI stores voxels x-fastest, which matches the volume's row-major
// (frame, row, column) layout directly, so the payload is the voxel data
// as-is with dims (width, height, depth) and pixdim from the spacing in
// the same reversed order.
func (e *Encoder) Encode(vol *models.Volume, path string) error {
	if len(vol.Data) != vol.Shape.NumVoxels() {
		return fmt.Errorf("volume data length %d does not match shape %s", len(vol.Data), vol.Shape)
	}

	h := header{
		SizeofHdr: headerSize,
		Datatype:  datatypeUint8,
		Bitpix:    8,
		VoxOffset: voxelOffset,
		SclSlope:  1,
		XyztUnits: unitsMM,
	}
	h.Dim[0] = 3
	h.Dim[1] = int16(vol.Shape.Width)
	h.Dim[2] = int16(vol.Shape.Height)
	h.Dim[3] = int16(vol.Shape.Depth)
	for i := 4; i < 8; i++ {
		h.Dim[i] = 1
	}
	xyz := vol.Spacing.XYZ()
	h.Pixdim[0] = 1
	h.Pixdim[1] = float32(xyz[0])
	h.Pixdim[2] = float32(xyz[1])
	h.Pixdim[3] = float32(xyz[2])
	copy(h.Descrip[:], "octextract raw volume")
	copy(h.Magic[:], "n+1\x00")

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	zw := gzip.NewWriter(bw)
	if err := binary.Write(zw, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	// No header extensions.
	if _, err := zw.Write([]byte{0, 0, 0, 0}); err != nil {
		return err
	}
	if _, err := zw.Write(vol.Data); err != nil {
		return fmt.Errorf("write voxels: %w", err)
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
