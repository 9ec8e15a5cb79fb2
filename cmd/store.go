package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/deb-research/scorecard-cli/internal/schema"
	"github.com/deb-research/scorecard-cli/internal/source"
	"github.com/deb-research/scorecard-cli/internal/source/yearparse"
	"github.com/deb-research/scorecard-cli/internal/store"
)

// openStore builds the configured store backend. An unreachable database
// is batch-fatal: nothing is loaded and the command exits nonzero.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres", "":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store: no database_url configured (set store.database_url or SCORECARD_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store: no database_url configured for sqlite")
		}
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q (valid: postgres, sqlite)", cfg.Store.Driver)
	}
}

// sourceOptions maps config onto reader options.
func sourceOptions() source.Options {
	opts := source.Options{Encoding: cfg.Source.Encoding}
	if cfg.Source.Delimiter != "" {
		opts.Delimiter = rune(cfg.Source.Delimiter[0])
	}
	return opts
}

// filenameGrammar maps config onto the annual-extract filename grammar.
func filenameGrammar() yearparse.Grammar {
	return yearparse.Grammar{
		Prefix: cfg.Source.FilenamePrefix,
		Suffix: cfg.Source.FilenameSuffix,
	}
}

// catalog returns the schema constraint catalog shared by both loaders.
func catalog() schema.Catalog {
	return schema.DefaultCatalog()
}
