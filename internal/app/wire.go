package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"whisperkey/internal/directory"
	"whisperkey/internal/domain"
	"whisperkey/internal/metrics"
	"whisperkey/internal/services/bootstrap"
	"whisperkey/internal/services/keypair"
	"whisperkey/internal/services/message"
	"whisperkey/internal/store"
)

// Wire bundles the store, services and clients for the CLI.
type Wire struct {
	Store     domain.PersistentKeyStore
	Keys      *keypair.Service
	Messages  *message.Service
	Bootstrap *bootstrap.Runner
	Directory domain.PublicKeyDirectory
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	HTTP      *http.Client

	closer io.Closer
}

// NewWire constructs the dependency graph from cfg.
func NewWire(ctx context.Context, cfg Config) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := metrics.New(cfg.Registerer)

	w := &Wire{Metrics: m, Logger: logger}
	switch cfg.Store.Backend {
	case BackendMemory:
		w.Store = store.NewMemoryKeyStore()
	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.StorePath()), 0o700); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		s, err := store.OpenSQLiteKeyStore(ctx, store.SQLiteConfig{
			Path:   cfg.StorePath(),
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		w.Store, w.closer = s, s
	default:
		var opts []store.FileOption
		if cfg.Passphrase != "" {
			opts = append(opts, store.WithPassphrase(cfg.Passphrase))
		} else {
			logger.Warn("key file is not sealed; set a passphrase to encrypt it at rest",
				"path", cfg.StorePath())
		}
		w.Store = store.NewFileKeyStore(cfg.StorePath(), opts...)
	}

	// Directory client with its own timeout unless the caller supplied one.
	w.HTTP = cfg.HTTP
	if w.HTTP == nil {
		w.HTTP = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	w.Directory = directory.NewHTTP(cfg.DirectoryURL, w.HTTP)

	w.Keys = keypair.New(w.Store,
		keypair.WithLogger(logger),
		keypair.WithMetrics(m),
		keypair.WithStoreTimeout(cfg.StoreTimeout),
	)
	w.Messages = message.New(w.Directory, w.Keys,
		message.WithLogger(logger),
		message.WithMetrics(m),
	)
	w.Bootstrap = bootstrap.New(w.Keys, w.Directory, logger)

	logger.Debug("wired",
		"backend", cfg.Store.Backend,
		"store", cfg.StorePath(),
		"directory", cfg.DirectoryURL,
		"sealed", cfg.Passphrase != "",
	)
	return w, nil
}

// Close releases the store, if it holds resources.
func (w *Wire) Close() error {
	if w == nil || w.closer == nil {
		return nil
	}
	if err := w.closer.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
