package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"whisperkey/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS private_keys (
	user_id     TEXT PRIMARY KEY NOT NULL,
	private_key TEXT NOT NULL,
	created_at  INTEGER NOT NULL
) STRICT;
`

// SQLiteConfig holds the parameters for opening a SQLiteKeyStore.
type SQLiteConfig struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// PoolSize is the number of pooled connections. Defaults to 4.
	PoolSize int

	// Logger receives open/close messages. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// SQLiteKeyStore persists key records in a SQLite database, one row per user.
type SQLiteKeyStore struct {
	pool   *sqlitex.Pool
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLiteKeyStore opens (creating if needed) the database at cfg.Path and
// ensures the schema exists. The caller must call Close.
func OpenSQLiteKeyStore(ctx context.Context, cfg SQLiteConfig) (*SQLiteKeyStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", domain.ErrStorage)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", domain.ErrStorage, cfg.Path, err)
	}

	s := &SQLiteKeyStore{pool: pool, path: cfg.Path, logger: logger, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	logger.Info("key store opened", "backend", "sqlite", "path", cfg.Path, "pool_size", poolSize)
	return s, nil
}

// prepareConnection applies pragmas once per pooled connection.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLiteKeyStore) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("%w: take connection: %w", domain.ErrStorage, err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("%w: create schema: %w", domain.ErrStorage, err)
	}
	return nil
}

// Get returns the record for userID and whether it exists.
func (s *SQLiteKeyStore) Get(ctx context.Context, userID domain.UserID) (domain.PrivateKeyRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.PrivateKeyRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return domain.PrivateKeyRecord{}, false, fmt.Errorf("%w: take connection: %w", domain.ErrStorage, err)
	}
	defer s.pool.Put(conn)

	var (
		rec   domain.PrivateKeyRecord
		found bool
	)
	err = sqlitex.Execute(conn,
		`SELECT user_id, private_key, created_at FROM private_keys WHERE user_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{string(userID)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rec = domain.PrivateKeyRecord{
					UserID:     domain.UserID(stmt.ColumnText(0)),
					PrivateKey: stmt.ColumnText(1),
					CreatedAt:  stmt.ColumnInt64(2),
				}
				found = true
				return nil
			},
		})
	if err != nil {
		return domain.PrivateKeyRecord{}, false, fmt.Errorf("%w: select %s: %w", domain.ErrStorage, userID, err)
	}
	return rec, found, nil
}

// Put stores privateKey for userID, replacing any previous record.
func (s *SQLiteKeyStore) Put(ctx context.Context, userID domain.UserID, privateKey string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("%w: take connection: %w", domain.ErrStorage, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO private_keys (user_id, private_key, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   private_key = excluded.private_key,
		   created_at  = excluded.created_at`,
		&sqlitex.ExecOptions{
			Args: []any{string(userID), privateKey, s.now().Unix()},
		})
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %w", domain.ErrStorage, userID, err)
	}
	return nil
}

// PutIfAbsent stores privateKey for userID unless a row already exists, then
// returns the row that is stored. The insert is atomic across every process
// sharing the database.
func (s *SQLiteKeyStore) PutIfAbsent(
	ctx context.Context,
	userID domain.UserID,
	privateKey string,
) (domain.PrivateKeyRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.PrivateKeyRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return domain.PrivateKeyRecord{}, false, fmt.Errorf("%w: take connection: %w", domain.ErrStorage, err)
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO private_keys (user_id, private_key, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		&sqlitex.ExecOptions{
			Args: []any{string(userID), privateKey, s.now().Unix()},
		})
	created := conn.Changes() > 0
	s.pool.Put(conn)
	if err != nil {
		return domain.PrivateKeyRecord{}, false, fmt.Errorf("%w: insert %s: %w", domain.ErrStorage, userID, err)
	}

	rec, ok, err := s.Get(ctx, userID)
	if err != nil {
		return domain.PrivateKeyRecord{}, false, err
	}
	if !ok {
		return domain.PrivateKeyRecord{}, false, fmt.Errorf("%w: %s vanished after insert", domain.ErrStorage, userID)
	}
	return rec, created, nil
}

// Count returns the number of stored records.
func (s *SQLiteKeyStore) Count(ctx context.Context) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: take connection: %w", domain.ErrStorage, err)
	}
	defer s.pool.Put(conn)

	var n int
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM private_keys`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrStorage, err)
	}
	return n, nil
}

// Close closes all pooled connections.
func (s *SQLiteKeyStore) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("key store close error", "path", s.path, "error", err)
		return fmt.Errorf("%w: closing %s: %w", domain.ErrStorage, s.path, err)
	}
	s.logger.Info("key store closed", "path", s.path)
	return nil
}

// Compile-time assertion that SQLiteKeyStore implements domain.PersistentKeyStore.
var _ domain.PersistentKeyStore = (*SQLiteKeyStore)(nil)
