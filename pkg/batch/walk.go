// Package batch enumerates candidate scan files and drives the per-file
// conversion over the whole directory forest.
package batch

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Task is one (group, file) pair of the flattened batch traversal.
type Task struct {
	// Site is the site identifier folder under the base directory
	Site string

	// Patient is the patient folder under the site
	Patient string

	// Path is the absolute or base-relative source file path
	Path string
}

// Selection describes which files the batch visits.
type Selection struct {
	// Base is the root images directory
	Base string

	// Site is one site identifier, or "all" for every directory under Base
	Site string

	// Version is the visit folder required under each patient
	Version string

	// SubKind is the modality folder required under the version folder
	SubKind string

	// Pattern is the filename glob
	Pattern string

	// Marker is a substring filenames must contain
	Marker string
}

// Enumerate walks the site/patient/version/sub-kind hierarchy and returns
// the matching files as a flat, deterministically ordered task list: sites
// sorted, patients sorted within a site, files sorted within a patient.
//
// Progress lines go to out and a missing site directory is a warning on
// warn, not a failure.
func Enumerate(sel Selection, out, warn io.Writer) ([]Task, error) {
	var sites []string
	if strings.EqualFold(sel.Site, "all") {
		entries, err := os.ReadDir(sel.Base)
		if err != nil {
			return nil, fmt.Errorf("read base directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				sites = append(sites, e.Name())
			}
		}
		sort.Strings(sites)
	} else {
		sites = []string{sel.Site}
	}

	var tasks []Task
	for _, site := range sites {
		siteDir := filepath.Join(sel.Base, site)
		info, err := os.Stat(siteDir)
		if err != nil || !info.IsDir() {
			fmt.Fprintf(warn, "[WARN] site dir not found: %s\n", siteDir)
			continue
		}

		entries, err := os.ReadDir(siteDir)
		if err != nil {
			fmt.Fprintf(warn, "[WARN] cannot read site dir %s: %v\n", siteDir, err)
			continue
		}
		var patients []string
		for _, e := range entries {
			if e.IsDir() {
				patients = append(patients, e.Name())
			}
		}
		sort.Strings(patients)
		fmt.Fprintf(out, "[SITE %s] patients found: %d\n", site, len(patients))

		for _, patient := range patients {
			scanDir := filepath.Join(siteDir, patient, sel.Version, sel.SubKind)
			if info, err := os.Stat(scanDir); err != nil || !info.IsDir() {
				continue
			}

			files, err := collectFiles(scanDir, sel.Pattern, sel.Marker)
			if err != nil {
				fmt.Fprintf(warn, "[WARN] cannot walk %s: %v\n", scanDir, err)
				continue
			}
			if len(files) == 0 {
				continue
			}

			fmt.Fprintf(out, "[SITE %s | PATIENT %s] files to process: %d\n", site, patient, len(files))
			for _, f := range files {
				tasks = append(tasks, Task{Site: site, Patient: patient, Path: f})
			}
		}
	}
	return tasks, nil
}

// collectFiles gathers files under dir (recursively) whose base name
// matches the glob and contains the marker substring, sorted by path.
func collectFiles(dir, pattern, marker string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if ok && strings.Contains(name, marker) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
