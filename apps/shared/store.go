package shared

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/storage/database"
	"github.com/trezcool/njia/storage/docstore"
)

const (
	EnginePostgres  = "postgres"
	EngineFirestore = "firestore"
	EngineMemory    = "memory"
)

// OpenStore opens the document store selected by conf.Database.Engine.
// The postgres database is created and migrated when needed.
func OpenStore(ctx context.Context, conf *core.Config) (core.DocumentStore, error) {
	switch conf.Database.Engine {
	case EnginePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return docstore.NewPostgresStore(db), nil
	case EngineFirestore:
		store, err := docstore.NewFirestoreStore(ctx, conf.Database.FirestoreProject, conf.Database.FirestoreDatabase)
		if err != nil {
			return nil, err
		}
		return store, nil
	case EngineMemory:
		return docstore.NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}
