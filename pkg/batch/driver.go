package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"octextract/internal/models"
	"octextract/pkg/catalog"
	"octextract/pkg/config"
	"octextract/pkg/convert"
)

// LockFilename guards an output tree against concurrent batch runs.
const LockFilename = ".octextract.lock"

// Tally accumulates run outcomes. Dry-run files count toward Total only.
type Tally struct {
	OK     int
	Skip   int
	Err    int
	DryRun int
	Total  int
}

func (t *Tally) add(status models.Status) {
	t.Total++
	switch status {
	case models.StatusOK:
		t.OK++
	case models.StatusSkip:
		t.Skip++
	case models.StatusErr:
		t.Err++
	case models.StatusDryRun:
		t.DryRun++
	}
}

// Runner executes one batch over the configured directory forest.
// Single-threaded by design: each file runs to completion before the next
// is considered, and outcomes are reported in enumeration order.
type Runner struct {
	// Config selects the inputs and decode parameters
	Config *config.Config

	// ForceShape overrides shape inference for every file when non-nil
	ForceShape *models.Shape

	// Encoder optionally writes the secondary image artifact
	Encoder convert.Encoder

	// Catalog records provenance when non-nil
	Catalog *catalog.Catalog

	// Out and Warn receive progress lines and warnings
	Out  io.Writer
	Warn io.Writer
}

// Run enumerates the candidate files and converts each one, returning the
// grand tally. The only early-termination mechanism is the configured
// file cap, checked between files.
func (r *Runner) Run(ctx context.Context) (Tally, error) {
	cfg := r.Config
	out, warn := r.Out, r.Warn
	if out == nil {
		out = os.Stdout
	}
	if warn == nil {
		warn = os.Stderr
	}

	if err := os.MkdirAll(cfg.Output.Root, 0755); err != nil {
		return Tally{}, fmt.Errorf("create output root: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Output.Root, LockFilename))
	locked, err := lock.TryLock()
	if err != nil {
		return Tally{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return Tally{}, fmt.Errorf("another octextract run is writing to %s", cfg.Output.Root)
	}
	defer func() { _ = lock.Unlock() }()

	runID := ""
	if r.Catalog != nil {
		runID, err = r.Catalog.StartRun(ctx)
		if err != nil {
			return Tally{}, err
		}
	}

	tasks, err := Enumerate(Selection{
		Base:    cfg.Input.Base,
		Site:    cfg.Input.Site,
		Version: cfg.Input.Version,
		SubKind: cfg.Input.SubKind,
		Pattern: cfg.Input.Pattern,
		Marker:  cfg.Input.Marker,
	}, out, warn)
	if err != nil {
		return Tally{}, err
	}

	// Per-patient file counts for the [i/n] progress prefix.
	groupCounts := make(map[string]int)
	for _, task := range tasks {
		groupCounts[task.Site+"|"+task.Patient]++
	}

	opts := convert.Options{
		OutputRoot: cfg.Output.Root,
		Anchor:     cfg.Input.Anchor,
		Extent:     cfg.Extent(),
		Resolver:   cfg.Resolver(),
		ForceShape: r.ForceShape,
		DryRun:     cfg.Run.DryRun,
		Overwrite:  cfg.Run.Overwrite,
		Encoder:    r.Encoder,
	}

	var grand Tally
	var group Tally
	siteTallies := make(map[string]*Tally)
	var siteOrder []string
	curSite, curPatient := "", ""
	idx := 0
	earlyStop := false

	flushGroup := func() {
		if curPatient == "" {
			return
		}
		fmt.Fprintf(out, "[SITE %s | PATIENT %s SUMMARY] OK=%d SKIP=%d ERR=%d\n",
			curSite, curPatient, group.OK, group.Skip, group.Err)
	}

	for _, task := range tasks {
		if task.Site != curSite || task.Patient != curPatient {
			flushGroup()
			curSite, curPatient = task.Site, task.Patient
			group = Tally{}
			idx = 0
		}
		if _, ok := siteTallies[task.Site]; !ok {
			siteTallies[task.Site] = &Tally{}
			siteOrder = append(siteOrder, task.Site)
		}
		idx++

		fmt.Fprintf(out, "[SITE %s | PATIENT %s] [%d/%d] processing: %s\n",
			task.Site, task.Patient, idx, groupCounts[task.Site+"|"+task.Patient],
			filepath.Base(task.Path))

		res := convert.Convert(task.Path, opts)
		grand.add(res.Outcome.Status)
		group.add(res.Outcome.Status)
		siteTallies[task.Site].add(res.Outcome.Status)

		fmt.Fprintf(out, "[%s] %s\n", res.Outcome.Status, res.Outcome.Message)

		if r.Catalog != nil {
			if err := r.record(ctx, runID, task, res); err != nil {
				fmt.Fprintf(warn, "[WARN] catalog write failed: %v\n", err)
			}
		}

		if cfg.Run.MaxFiles > 0 && grand.Total >= cfg.Run.MaxFiles {
			fmt.Fprintf(out, "[INFO] Hit max %d, stopping early.\n", cfg.Run.MaxFiles)
			earlyStop = true
			break
		}
	}
	if !earlyStop {
		flushGroup()
	}

	if len(siteOrder) > 1 {
		fmt.Fprintln(out, renderSiteSummary(siteOrder, siteTallies, out))
	}
	fmt.Fprintf(out, "[DONE] OK=%d SKIP=%d ERR=%d TOTAL=%d\n",
		grand.OK, grand.Skip, grand.Err, grand.Total)

	if r.Catalog != nil {
		if err := r.Catalog.FinishRun(ctx, runID, grand.OK, grand.Skip, grand.Err, grand.Total); err != nil {
			fmt.Fprintf(warn, "[WARN] catalog finish failed: %v\n", err)
		}
	}

	return grand, nil
}

func (r *Runner) record(ctx context.Context, runID string, task Task, res convert.Result) error {
	rec := catalog.Record{
		RunID:        runID,
		Site:         task.Site,
		Patient:      task.Patient,
		InputPath:    task.Path,
		OutputDir:    res.OutputDir,
		Status:       string(res.Outcome.Status),
		Message:      res.Outcome.Message,
		Filesize:     res.Filesize,
		NiftiWritten: res.Encoded,
	}
	if res.Outcome.Status == models.StatusOK {
		rec.Shape = res.Shape.String()
		zyx := res.Spacing.ZYX()
		rec.Spacing = fmt.Sprintf("(%g, %g, %g)", zyx[0], zyx[1], zyx[2])
	}
	if res.Stats != nil {
		rec.HasStats = true
		rec.Mean = res.Stats.Mean
		rec.StdDev = res.Stats.StdDev
		rec.Min = int(res.Stats.Min)
		rec.Max = int(res.Stats.Max)
	}
	return r.Catalog.RecordConversion(ctx, rec)
}
