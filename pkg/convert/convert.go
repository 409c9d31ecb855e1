package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"octextract/internal/models"
	"octextract/pkg/npy"
	"octextract/pkg/volume"
)

// Encoder is the optional secondary image writer. A nil Encoder is the
// first-class "absent" variant: conversion proceeds and the metadata flags
// the artifact as not written.
type Encoder interface {
	// Encode writes the volume to path in the encoder's own format.
	Encode(vol *models.Volume, path string) error
}

// Options configures one conversion.
type Options struct {
	// OutputRoot is the directory the mirrored hierarchy is created under
	OutputRoot string

	// Anchor is the source path segment the mirror is rooted after
	Anchor string

	// Extent is the physical scan extent in mm, (depth, height, width)
	Extent models.Extent

	// Resolver infers the volume shape from the file size
	Resolver volume.Resolver

	// ForceShape overrides shape inference when non-nil
	ForceShape *models.Shape

	// DryRun reports what would happen without reading or writing volumes
	DryRun bool

	// Overwrite reconverts files whose outputs already exist
	Overwrite bool

	// Encoder optionally writes the secondary image artifact
	Encoder Encoder
}

// Result is the full outcome of one conversion attempt. Fields beyond
// Outcome are only populated for real conversions (OK and decode ERR).
type Result struct {
	Outcome   models.Outcome
	OutputDir string
	Relative  string
	Shape     models.Shape
	Spacing   models.Spacing
	Filesize  int64
	Stats     *volume.Stats
	Encoded   bool
}

func errResult(res Result, sourcePath string, err error) Result {
	res.Outcome = models.Outcome{
		Status:  models.StatusErr,
		Message: fmt.Sprintf("%s :: %v", sourcePath, err),
	}
	return res
}

// writeErrorRecord persists the failure message as a single line. A failure
// to record the failure is swallowed: the console outcome already carries
// the message.
func writeErrorRecord(dir string, err error) {
	_ = os.WriteFile(filepath.Join(dir, ErrorFilename), []byte(err.Error()+"\n"), 0644)
}

// alreadyDone reports whether the output directory holds a complete
// artifact set. Only existence is checked, no contents are read.
func alreadyDone(dir string) bool {
	for _, name := range []string{MetaFilename, VolumeFilename, SpacingFilename} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Convert runs the per-file state machine: UNSTARTED -> SKIP, DRYRUN, OK
// or ERR, all terminal.
//
// Existing complete outputs short-circuit to SKIP before any bytes are
// read, unless Overwrite is set; DryRun stops just before the real work.
// Together with the per-file output directory this guarantees at most one
// real decode per output directory per run. All read and decode failures
// are contained here: they produce an ERR outcome and an error record in
// the output directory, never a propagated failure.
func Convert(sourcePath string, opts Options) Result {
	var res Result

	info, err := os.Stat(sourcePath)
	if err != nil {
		return errResult(res, sourcePath, err)
	}
	res.Filesize = info.Size()
	res.Shape = opts.Resolver.Resolve(info.Size(), opts.ForceShape)

	anchor := opts.Anchor
	if anchor == "" {
		anchor = DefaultAnchor
	}
	res.OutputDir, res.Relative = MapOutput(sourcePath, opts.OutputRoot, anchor)

	if err := os.MkdirAll(res.OutputDir, 0755); err != nil {
		// No output directory means nowhere to write an error record;
		// report and move on.
		return errResult(res, sourcePath, err)
	}

	if alreadyDone(res.OutputDir) && !opts.Overwrite {
		res.Outcome = models.Outcome{Status: models.StatusSkip, Message: sourcePath}
		return res
	}

	if opts.DryRun {
		res.Outcome = models.Outcome{Status: models.StatusDryRun, Message: sourcePath}
		return res
	}

	buf, err := os.ReadFile(sourcePath)
	if err != nil {
		writeErrorRecord(res.OutputDir, err)
		return errResult(res, sourcePath, err)
	}

	vol, err := volume.Decode(buf, res.Shape, opts.Extent)
	if err != nil {
		writeErrorRecord(res.OutputDir, err)
		return errResult(res, sourcePath, err)
	}
	res.Spacing = vol.Spacing

	if err := npy.WriteUint8(filepath.Join(res.OutputDir, VolumeFilename), vol.Data, []int{res.Shape.Depth, res.Shape.Height, res.Shape.Width}); err != nil {
		writeErrorRecord(res.OutputDir, err)
		return errResult(res, sourcePath, err)
	}
	zyx := vol.Spacing.ZYX()
	if err := npy.WriteFloat64(filepath.Join(res.OutputDir, SpacingFilename), zyx[:]); err != nil {
		writeErrorRecord(res.OutputDir, err)
		return errResult(res, sourcePath, err)
	}

	if opts.Encoder != nil {
		if err := opts.Encoder.Encode(vol, filepath.Join(res.OutputDir, NiftiFilename)); err != nil {
			writeErrorRecord(res.OutputDir, err)
			return errResult(res, sourcePath, err)
		}
		res.Encoded = true
	}

	stats := volume.ComputeStats(vol)
	res.Stats = &stats

	meta := Meta{
		InputPath:           sourcePath,
		OutputDir:           res.OutputDir,
		RelativeUnderImages: res.Relative,
		ShapeZYX:            res.Shape.ZYX(),
		SpacingZYXMM:        zyx,
		FilesizeBytes:       res.Filesize,
		SitkWritten:         res.Encoded,
	}
	if err := WriteMeta(res.OutputDir, meta); err != nil {
		writeErrorRecord(res.OutputDir, err)
		return errResult(res, sourcePath, err)
	}

	res.Outcome = models.Outcome{Status: models.StatusOK, Message: sourcePath}
	return res
}
