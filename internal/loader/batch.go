package loader

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/deb-research/scorecard-cli/internal/source"
)

// Batch orchestrates annual loads over a single file or a directory.
//
// Directory runs are processed in ascending resolved-year order. This is a
// correctness precondition, not a convenience: the accrediting-agency
// carry-forward converges on the latest value only when sources apply
// oldest-to-newest, so the runner sorts by resolved year instead of
// trusting directory listing order. Loading files out of order (e.g. by
// invoking the single-file form manually) leaves the last-loaded value in
// place even if it is chronologically stale.
type Batch struct {
	loader *Scorecard
}

// NewBatch wraps an annual-extract loader.
func NewBatch(l *Scorecard) *Batch {
	return &Batch{loader: l}
}

type candidate struct {
	path string
	year int
}

// Run loads path, which may be one extract file or a directory of them.
// It returns the per-file reports and the aggregate total. For a directory,
// files failing the filename grammar or that cannot be opened are skipped
// with a warning; the run fails when no input is resolvable at all, and a
// store error aborts it immediately rather than skipping ahead with a
// database that may be unreachable.
func (b *Batch) Run(ctx context.Context, path string) ([]Report, Report, error) {
	log := zap.L().With(zap.String("component", "loader.batch"))
	total := Report{File: "total"}

	info, err := os.Stat(path)
	if err != nil {
		return nil, total, eris.Wrapf(err, "batch: stat %s", path)
	}

	if !info.IsDir() {
		rep, err := b.loader.LoadFile(ctx, path)
		if err != nil {
			return nil, total, err
		}
		total.Add(rep)
		return []Report{rep}, total, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, total, eris.Wrapf(err, "batch: read dir %s", path)
	}

	grammar := b.loader.Grammar()
	var files []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		year, err := grammar.Parse(name)
		if err != nil {
			log.Warn("skipping file: cannot resolve year", zap.String("file", name), zap.Error(err))
			continue
		}
		files = append(files, candidate{path: filepath.Join(path, name), year: year})
	}

	if len(files) == 0 {
		return nil, total, eris.Errorf("batch: no loadable files in %s", path)
	}

	// Oldest first; ties broken by name for a stable order.
	sort.Slice(files, func(i, j int) bool {
		if files[i].year != files[j].year {
			return files[i].year < files[j].year
		}
		return files[i].path < files[j].path
	})

	var reports []Report
	for _, f := range files {
		select {
		case <-ctx.Done():
			return reports, total, eris.Wrap(ctx.Err(), "batch: cancelled")
		default:
		}

		// Open here so a broken file only skips itself; once rows are
		// flowing, any error is a store error and the run stops.
		r, err := source.Open(f.path, b.loader.opts)
		if err != nil {
			log.Warn("skipping unreadable file", zap.String("file", f.path), zap.Error(err))
			continue
		}

		rep, err := b.loader.Load(ctx, r, filepath.Base(f.path), f.year)
		r.Close()
		if err != nil {
			return reports, total, eris.Wrapf(err, "batch: load %s", f.path)
		}
		reports = append(reports, rep)
		total.Add(rep)
	}

	return reports, total, nil
}
