package loader

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/deb-research/scorecard-cli/internal/clean"
	"github.com/deb-research/scorecard-cli/internal/model"
	"github.com/deb-research/scorecard-cli/internal/schema"
	"github.com/deb-research/scorecard-cli/internal/source"
	"github.com/deb-research/scorecard-cli/internal/store"
)

const defaultBatchSize = 500

// Institutions loads the institutional directory file. Rows merge with the
// carry-forward policy: a later load overwrites field-by-field, but an
// absent incoming value never erases a stored one, so repeated loads are
// idempotent and overlapping extracts converge on the most recent data.
type Institutions struct {
	store     store.Store
	catalog   schema.Catalog
	opts      source.Options
	batchSize int
}

// NewInstitutions builds a directory loader over the given store and
// constraint catalog.
func NewInstitutions(s store.Store, catalog schema.Catalog, opts source.Options, batchSize int) *Institutions {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Institutions{store: s, catalog: catalog, opts: opts, batchSize: batchSize}
}

// LoadFile opens path and loads every row.
func (l *Institutions) LoadFile(ctx context.Context, path string) (Report, error) {
	r, err := source.Open(path, l.opts)
	if err != nil {
		return Report{File: path}, err
	}
	defer r.Close()
	return l.Load(ctx, r, path)
}

// Load ingests all rows from an open reader. A row without a usable
// identifier is rejected, never inserted with a synthesized key.
func (l *Institutions) Load(ctx context.Context, r *source.Reader, name string) (Report, error) {
	log := zap.L().With(zap.String("component", "loader.institutions"), zap.String("file", name))
	rep := Report{File: name}
	spec := l.catalog.Institution

	batch := make([]model.Institution, 0, l.batchSize)
	flush := func() error {
		applied, err := l.store.MergeInstitutions(ctx, batch)
		rep.Institutions.Applied += applied
		batch = batch[:0]
		return err
	}

	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			rep.Institutions.Rejected++
			log.Warn("unreadable row", zap.Int("line", r.Line()), zap.Error(err))
			continue
		}

		id := clean.CodeValue(spec.ID, r.Get(row, spec.ID.Column))
		if id == nil {
			rep.Institutions.Rejected++
			log.Debug("row missing identifier", zap.Int("line", r.Line()))
			continue
		}

		batch = append(batch, model.Institution{
			InstitutionID:     *id,
			Name:              clean.String(spec.Name, r.Get(row, spec.Name.Column)),
			AccreditingAgency: clean.String(spec.Agency, r.Get(row, spec.Agency.Column)),
			Control:           clean.IntValue(spec.Control, r.Get(row, spec.Control.Column)),
			CarnegieClass:     clean.IntValue(spec.CarnegieClass, r.Get(row, spec.CarnegieClass.Column)),
			Region:            clean.IntValue(spec.Region, r.Get(row, spec.Region.Column)),
			CBSACode:          clean.CodeValue(spec.CBSA, r.Get(row, spec.CBSA.Column)),
			CSACode:           clean.CodeValue(spec.CSA, r.Get(row, spec.CSA.Column)),
			CountyFIPS:        clean.CodeValue(spec.CountyFIPS, r.Get(row, spec.CountyFIPS.Column)),
			City:              clean.String(spec.City, r.Get(row, spec.City.Column)),
			State:             clean.CodeValue(spec.State, r.Get(row, spec.State.Column)),
			Address:           clean.String(spec.Address, r.Get(row, spec.Address.Column)),
			Zip:               clean.IntValue(spec.Zip, r.Get(row, spec.Zip.Column)),
			Latitude:          clean.FloatValue(spec.Latitude, r.Get(row, spec.Latitude.Column)),
			Longitude:         clean.FloatValue(spec.Longitude, r.Get(row, spec.Longitude.Column)),
		})

		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return rep, err
			}
			log.Debug("progress", zap.Int64("applied", rep.Institutions.Applied))
		}
	}

	if err := flush(); err != nil {
		return rep, err
	}

	log.Info("directory load complete",
		zap.Int64("applied", rep.Institutions.Applied),
		zap.Int64("rejected", rep.Institutions.Rejected),
	)
	return rep, nil
}
