package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"octextract/internal/models"
)

func testVolume() *models.Volume {
	shape := models.Shape{Depth: 2, Height: 3, Width: 4}
	data := make([]uint8, shape.NumVoxels())
	for i := range data {
		data[i] = uint8(i)
	}
	return &models.Volume{
		Data:    data,
		Shape:   shape,
		Spacing: models.Spacing{Depth: 0.03, Height: 0.001953125, Width: 0.03},
	}
}

// decodeNifti gunzips the file and returns the raw 348-byte header plus
// everything after the voxel offset.
func decodeNifti(t *testing.T, path string) (hdr, voxels []byte) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("not gzip: %v", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	if len(raw) < voxelOffset {
		t.Fatalf("file too short: %d bytes", len(raw))
	}
	return raw[:headerSize], raw[voxelOffset:]
}

func TestEncodeHeader(t *testing.T) {
	vol := testVolume()
	path := filepath.Join(t.TempDir(), "vol.nii.gz")

	if err := New().Encode(vol, path); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	hdr, voxels := decodeNifti(t, path)

	if got := binary.LittleEndian.Uint32(hdr[0:4]); got != headerSize {
		t.Errorf("sizeof_hdr = %d, want %d", got, headerSize)
	}
	if !bytes.Equal(hdr[344:348], []byte("n+1\x00")) {
		t.Errorf("magic = %q, want n+1", hdr[344:348])
	}

	// dim[0]=3, then (width, height, depth): NIfTI is x-fastest.
	dim := make([]int16, 8)
	for i := range dim {
		dim[i] = int16(binary.LittleEndian.Uint16(hdr[40+2*i : 42+2*i]))
	}
	if dim[0] != 3 || dim[1] != 4 || dim[2] != 3 || dim[3] != 2 {
		t.Errorf("dim = %v, want [3 4 3 2 ...]", dim[:4])
	}

	datatype := int16(binary.LittleEndian.Uint16(hdr[70:72]))
	bitpix := int16(binary.LittleEndian.Uint16(hdr[72:74]))
	if datatype != datatypeUint8 || bitpix != 8 {
		t.Errorf("datatype/bitpix = %d/%d, want %d/8", datatype, bitpix, datatypeUint8)
	}

	// pixdim[1..3] is the spacing vector reversed into (x, y, z).
	pixdim := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(hdr[76+4*i : 80+4*i]))
	}
	if pixdim(1) != float32(0.03) || pixdim(2) != float32(0.001953125) || pixdim(3) != float32(0.03) {
		t.Errorf("pixdim = (%v, %v, %v), want (0.03, 0.001953125, 0.03)",
			pixdim(1), pixdim(2), pixdim(3))
	}

	if !bytes.Equal(voxels, vol.Data) {
		t.Errorf("voxel payload differs from volume data")
	}
}

func TestEncodeRejectsInconsistentVolume(t *testing.T) {
	vol := testVolume()
	vol.Data = vol.Data[:5]
	path := filepath.Join(t.TempDir(), "vol.nii.gz")

	if err := New().Encode(vol, path); err == nil {
		t.Error("Encode accepted a volume whose data does not match its shape")
	}
}
