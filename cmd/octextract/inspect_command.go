package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"octextract/internal/models"
	"octextract/pkg/convert"
	"octextract/pkg/npy"
	"octextract/pkg/volume"
)

// newInspectCommand reports on one previously written output directory:
// the provenance record plus intensity statistics recomputed from the
// persisted volume.
func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <output-dir>",
		Short: "Summarize a converted output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			out := cmd.OutOrStdout()

			meta, err := convert.ReadMeta(dir)
			if err != nil {
				return fmt.Errorf("read %s: %w", convert.MetaFilename, err)
			}

			data, shape, err := npy.ReadUint8(filepath.Join(dir, convert.VolumeFilename))
			if err != nil {
				return fmt.Errorf("read %s: %w", convert.VolumeFilename, err)
			}
			if len(shape) != 3 {
				return fmt.Errorf("%s: want 3 dimensions, got %v", convert.VolumeFilename, shape)
			}
			spacing, err := npy.ReadFloat64(filepath.Join(dir, convert.SpacingFilename))
			if err != nil {
				return fmt.Errorf("read %s: %w", convert.SpacingFilename, err)
			}

			vol := &models.Volume{
				Data:  data,
				Shape: models.Shape{Depth: shape[0], Height: shape[1], Width: shape[2]},
			}
			stats := volume.ComputeStats(vol)

			fmt.Fprintf(out, "input:    %s\n", meta.InputPath)
			fmt.Fprintf(out, "relative: %s\n", meta.RelativeUnderImages)
			fmt.Fprintf(out, "shape:    %s\n", vol.Shape)
			fmt.Fprintf(out, "spacing:  %v mm\n", spacing)
			fmt.Fprintf(out, "size:     %d bytes\n", meta.FilesizeBytes)
			fmt.Fprintf(out, "nifti:    %v\n", meta.SitkWritten)
			fmt.Fprintf(out, "voxels:   mean=%.2f std=%.2f min=%d max=%d\n",
				stats.Mean, stats.StdDev, stats.Min, stats.Max)
			return nil
		},
	}
}
