package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"octextract/internal/models"
	"octextract/pkg/batch"
	"octextract/pkg/catalog"
	"octextract/pkg/config"
	"octextract/pkg/convert"
	"octextract/pkg/nifti"
)

func newRootCommand() *cobra.Command {
	var (
		configPath string
		base       string
		out        string
		site       string
		version    string
		pattern    string
		forceShape string
		maxFiles   int
		dryRun     bool
		overwrite  bool
		noNifti    bool
		noCatalog  bool
	)

	rootCmd := &cobra.Command{
		Use:           "octextract",
		Short:         "Convert raw Cirrus OCT volume dumps into npy/NIfTI artifact trees",
		Long: `octextract walks a site/patient directory forest of raw Cirrus OCT
volume dumps (.img), decodes each file into a voxel array with physical
spacing, and mirrors the source hierarchy into an output tree of npy,
NIfTI and provenance artifacts. Re-running over existing outputs is
cheap: completed files are skipped unless --overwrite is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("base") {
				cfg.Input.Base = base
			}
			if flags.Changed("out") {
				cfg.Output.Root = out
			}
			if flags.Changed("site") {
				cfg.Input.Site = site
			}
			if flags.Changed("version") {
				cfg.Input.Version = version
			}
			if flags.Changed("pattern") {
				cfg.Input.Pattern = pattern
			}
			if flags.Changed("max") {
				cfg.Run.MaxFiles = maxFiles
			}
			if dryRun {
				cfg.Run.DryRun = true
			}
			if overwrite {
				cfg.Run.Overwrite = true
			}
			if noNifti {
				cfg.Output.WriteNifti = false
			}
			if noCatalog {
				cfg.Output.Catalog = false
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			var force *models.Shape
			if forceShape != "" {
				shape, err := models.ParseShape(forceShape)
				if err != nil {
					return err
				}
				force = &shape
			}

			var encoder convert.Encoder
			if cfg.Output.WriteNifti {
				encoder = nifti.New()
			}

			var cat *catalog.Catalog
			if cfg.Output.Catalog {
				cat, err = catalog.Open(cfg.Output.Root)
				if err != nil {
					return err
				}
				defer cat.Close()
			}

			runner := &batch.Runner{
				Config:     cfg,
				ForceShape: force,
				Encoder:    encoder,
				Catalog:    cat,
				Out:        cmd.OutOrStdout(),
				Warn:       cmd.ErrOrStderr(),
			}
			_, err = runner.Run(cmd.Context())
			return err
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "octextract.yaml", "Configuration file path")
	rootCmd.Flags().StringVar(&base, "base", "", "Base images directory")
	rootCmd.Flags().StringVar(&out, "out", "", "Output directory (structure recreated under here)")
	rootCmd.Flags().StringVar(&site, "site", "all", "Site id (e.g. 001) or 'all'")
	rootCmd.Flags().StringVar(&version, "version", "V3", "Only process this visit/version folder")
	rootCmd.Flags().StringVar(&pattern, "pattern", "*.img", "Filename glob pattern")
	rootCmd.Flags().IntVar(&maxFiles, "max", 0, "Cap on number of files to process (0 = no cap)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be processed, but do nothing")
	rootCmd.Flags().StringVar(&forceShape, "force-shape", "", "Force shape as 'd,h,w' (overrides inference)")
	rootCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing outputs instead of skipping")
	rootCmd.Flags().BoolVar(&noNifti, "no-nifti", false, "Skip the optional .nii.gz artifact")
	rootCmd.Flags().BoolVar(&noCatalog, "no-catalog", false, "Skip the SQLite provenance catalog")

	rootCmd.AddCommand(newConfigCommand(&configPath))
	rootCmd.AddCommand(newInspectCommand())

	return rootCmd
}

func newConfigCommand(configPath *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the octextract configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateDefaultConfigFile(*configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote default config to %s\n", *configPath)
			return nil
		},
	}

	configCmd.AddCommand(initCmd)
	return configCmd
}
