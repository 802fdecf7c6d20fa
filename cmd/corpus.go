package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/publicartatlas/artimport/internal/store"
)

func initCorpus(ctx context.Context) (store.Corpus, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
