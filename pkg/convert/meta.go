package convert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact filenames inside an output directory. Other tools read these;
// the names and the meta.json keys are a contract.
const (
	MetaFilename    = "meta.json"
	VolumeFilename  = "vol.npy"
	SpacingFilename = "spacing_zyx_mm.npy"
	NiftiFilename   = "vol.nii.gz"
	ErrorFilename   = "error.txt"
)

// Meta is the provenance record written next to each converted volume.
// The sitk_written key name is historical: it flags whether the optional
// encoder artifact (vol.nii.gz) was written.
type Meta struct {
	InputPath           string     `json:"input_path"`
	OutputDir           string     `json:"output_dir"`
	RelativeUnderImages string     `json:"relative_under_images"`
	ShapeZYX            [3]int     `json:"shape_zyx"`
	SpacingZYXMM        [3]float64 `json:"spacing_zyx_mm"`
	FilesizeBytes       int64      `json:"filesize_bytes"`
	SitkWritten         bool       `json:"sitk_written"`
}

// WriteMeta persists the record as indented JSON.
func WriteMeta(dir string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, MetaFilename), data, 0644)
}

// ReadMeta loads a previously written record.
func ReadMeta(dir string) (Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFilename))
	if err != nil {
		return Meta{}, err
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("parse %s: %w", MetaFilename, err)
	}
	return meta, nil
}
