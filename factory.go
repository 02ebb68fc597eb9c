package birthday

import "fmt"

// NewStore returns a concrete store for the configured backend. The store is
// not usable until Initialize succeeds.
func NewStore(cfg StoreConfig) (Store, error) {
	cfg = cfg.withDefaults()
	switch cfg.Backend {
	case BackendSQLite, BackendMySQL, BackendPostgres:
		return newSQLStore(cfg)
	case BackendMemory:
		return newMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// NewSQLiteStore is a convenience for the embedded file-backed store.
func NewSQLiteStore(path string) (Store, error) {
	return NewStore(StoreConfig{Backend: BackendSQLite, Path: path})
}

// NewMySQLStore is a convenience for the networked mysql-dialect store.
func NewMySQLStore(cfg StoreConfig) (Store, error) {
	cfg.Backend = BackendMySQL
	return NewStore(cfg)
}

// NewPostgresStore is a convenience for the networked postgres-dialect store.
func NewPostgresStore(cfg StoreConfig) (Store, error) {
	cfg.Backend = BackendPostgres
	return NewStore(cfg)
}

// NewMemoryStore returns the in-process store used by tests and development.
func NewMemoryStore() Store {
	return newMemoryStore()
}
