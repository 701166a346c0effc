package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nexabuild/go-services/internal/document"
)

// dialect captures the few places SQLite and Postgres disagree: DDL,
// placeholders and how created_at is stored.
type dialect struct {
	name    string
	schema  []string
	upsert  string
	list    string
	del     string
	encTime func(time.Time) any
	newTime func() timeScanner
}

type timeScanner interface {
	dest() any
	value() time.Time
}

// SQLite stores created_at as unix nanoseconds so ordering is exact; rowid
// breaks ties and is preserved by ON CONFLICT DO UPDATE.
var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS resources (
			id TEXT NOT NULL,
			collection TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (collection, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_resources_collection_created ON resources(collection, created_at);`,
	},
	upsert: `INSERT INTO resources (id, collection, data, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data
		RETURNING created_at`,
	list:    `SELECT id, data, created_at FROM resources WHERE collection = ? ORDER BY created_at DESC, rowid DESC`,
	del:     `DELETE FROM resources WHERE collection = ? AND id = ?`,
	encTime: func(t time.Time) any { return t.UnixNano() },
	newTime: func() timeScanner { return &nanoTime{} },
}

// Postgres keeps data as JSON (not JSONB) so documents come back with the
// caller's field order; seq breaks created_at ties.
var postgresDialect = dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS resources (
			seq BIGSERIAL,
			id TEXT NOT NULL,
			collection TEXT NOT NULL,
			data JSON NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_resources_collection_created ON resources(collection, created_at DESC, seq DESC);`,
	},
	upsert: `INSERT INTO resources (id, collection, data, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data
		RETURNING created_at`,
	list:    `SELECT id, data, created_at FROM resources WHERE collection = $1 ORDER BY created_at DESC, seq DESC`,
	del:     `DELETE FROM resources WHERE collection = $1 AND id = $2`,
	encTime: func(t time.Time) any { return t },
	newTime: func() timeScanner { return &tsTime{} },
}

type nanoTime struct{ n int64 }

func (t *nanoTime) dest() any { return &t.n }
func (t *nanoTime) value() time.Time { return time.Unix(0, t.n).UTC() }

type tsTime struct{ t time.Time }

func (t *tsTime) dest() any { return &t.t }
func (t *tsTime) value() time.Time { return t.t.UTC() }

// SQLRepo implements Repository on database/sql for SQLite and Postgres.
type SQLRepo struct {
	db *sql.DB
	d  dialect
}

// NewSQLiteRepo prepares the resources table on an open SQLite handle.
func NewSQLiteRepo(ctx context.Context, db *sql.DB) (*SQLRepo, error) {
	return newSQLRepo(ctx, db, sqliteDialect)
}

// NewPostgresRepo prepares the resources table on an open pgx handle.
func NewPostgresRepo(ctx context.Context, db *sql.DB) (*SQLRepo, error) {
	return newSQLRepo(ctx, db, postgresDialect)
}

func newSQLRepo(ctx context.Context, db *sql.DB, d dialect) (*SQLRepo, error) {
	for _, s := range d.schema {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return nil, fmt.Errorf("%s schema: %w", d.name, err)
		}
	}
	return &SQLRepo{db: db, d: d}, nil
}

func (r *SQLRepo) Upsert(ctx context.Context, rec *document.Record) error {
	created := r.d.newTime()
	err := r.db.QueryRowContext(ctx, r.d.upsert,
		rec.ID, rec.Collection, string(rec.Data), r.d.encTime(time.Now().UTC()),
	).Scan(created.dest())
	if err != nil {
		return fmt.Errorf("%s upsert: %w", r.d.name, err)
	}
	rec.CreatedAt = created.value()
	return nil
}

func (r *SQLRepo) List(ctx context.Context, collection string) ([]*document.Record, error) {
	rows, err := r.db.QueryContext(ctx, r.d.list, collection)
	if err != nil {
		return nil, fmt.Errorf("%s list: %w", r.d.name, err)
	}
	defer rows.Close()
	out := []*document.Record{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		created := r.d.newTime()
		if err := rows.Scan(&id, &data, created.dest()); err != nil {
			return nil, fmt.Errorf("%s scan: %w", r.d.name, err)
		}
		out = append(out, &document.Record{ID: id, Collection: collection, Data: data, CreatedAt: created.value()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s list: %w", r.d.name, err)
	}
	return out, nil
}

func (r *SQLRepo) Delete(ctx context.Context, collection, id string) error {
	if _, err := r.db.ExecContext(ctx, r.d.del, collection, id); err != nil {
		return fmt.Errorf("%s delete: %w", r.d.name, err)
	}
	return nil
}

func (r *SQLRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
