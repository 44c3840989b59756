package tablekv

import (
	"errors"
	"path/filepath"

	"github.com/nickyhof/tablekv/config"
	"github.com/nickyhof/tablekv/core"
	"github.com/nickyhof/tablekv/db"
	"github.com/nickyhof/tablekv/ps"
	"github.com/nickyhof/tablekv/server"
)

// HistoryDir is the directory under the data directory holding the commit
// log of table file rewrites.
const HistoryDir = ".history"

type Instance struct {
	Store   ps.Store
	files   *ps.FileStore
	history *ps.History
	engine  *db.Engine
}

// Open builds the row store described by cfg. cfg must have passed
// Validate.
func Open(cfg *config.Config) (*Instance, error) {
	instance := &Instance{}

	switch cfg.StoragePolicy {
	case config.StorageDisk:
		opts := []ps.Option{ps.WithCapacity(cfg.MaxRecordsPerTable)}
		if cfg.History {
			history, err := ps.NewFileHistory(filepath.Join(cfg.DataDirectory, HistoryDir))
			if err != nil {
				return nil, err
			}
			instance.history = history
			opts = append(opts, ps.WithHistory(history, core.Identity{
				Name:  cfg.Username,
				Email: cfg.Username + "@tablekv.local",
			}))
		}
		store, err := ps.NewFileStore(cfg.DataDirectory, cfg.Catalog, opts...)
		if err != nil {
			return nil, err
		}
		instance.Store = store
		instance.files = store
	default:
		instance.Store = ps.NewMemoryStore(cfg.Catalog, ps.WithCapacity(cfg.MaxRecordsPerTable))
	}

	instance.engine = db.NewEngine(cfg.Catalog, instance.Store)
	return instance, nil
}

func (instance *Instance) Engine() *db.Engine {
	return instance.engine
}

// History is nil unless the instance keeps a commit log.
func (instance *Instance) History() *ps.History {
	return instance.history
}

// Restore rolls every table back to the commit named by rev, a tag or a
// commit id. It needs disk storage with history.
func (instance *Instance) Restore(rev string) (ps.Transaction, error) {
	if instance.files == nil || !instance.history.IsInitialized() {
		return ps.Transaction{}, ps.ErrNotInitialized
	}
	asof, err := instance.history.Resolve(rev)
	if err != nil {
		return ps.Transaction{}, err
	}
	return asof, instance.files.Restore(asof)
}

// Server returns a server for this instance configured from cfg. It is not
// started.
func (instance *Instance) Server(cfg *config.Config) *server.Server {
	return server.NewServer(instance.engine, server.NewAuthenticator(Credentials(cfg)), server.Options{
		Concurrency:  cfg.Concurrency,
		CommandRate:  cfg.CommandRate,
		CommandBurst: cfg.CommandBurst,
	})
}

func (instance *Instance) Close() error {
	if instance.Store == nil {
		return errors.New("instance not open")
	}
	return instance.Store.Close()
}

// Credentials extracts the login material from cfg.
func Credentials(cfg *config.Config) server.Credentials {
	return server.Credentials{
		Username:     cfg.Username,
		PasswordHash: cfg.Password,
		JWTSecret:    cfg.JWTSecret,
	}
}
