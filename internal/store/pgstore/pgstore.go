// Package pgstore keeps posts in PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/reoring/postq"
	"github.com/reoring/postq/codec"
	"github.com/reoring/postq/internal/store"
)

const table = "posts"

const createTable = `CREATE TABLE IF NOT EXISTS posts (
	seq     bigserial,
	id      text PRIMARY KEY,
	name    text,
	content text,
	created timestamptz,
	extra   jsonb NOT NULL DEFAULT '{}'::jsonb
)`

var columns = []string{"id", "name", "content", "created", "extra"}

// Store is a store.Store backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Statements are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Open connects to dsn and creates the posts table when missing.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: open pool: %w", err)
	}
	s.pool = pool
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: create table: %w", err)
	}
	s.log.Info("pgstore ready", zap.String("host", cfg.ConnConfig.Host), zap.String("database", cfg.ConnConfig.Database))
	return s, nil
}

func qb() sq.StatementBuilderType { return sq.StatementBuilder.PlaceholderFormat(sq.Dollar) }

func (s *Store) logSQL(op, sql string, args []any) {
	s.log.Debug("sql", zap.String("op", op), zap.String("query", sql), zap.Int("args", len(args)))
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// row is the column split of a record.
type row struct {
	id      string
	name    *string
	content *string
	created *time.Time
	extra   []byte
}

// split moves the typed fields into columns and everything else into extra.
// Values of unexpected type stay in extra so nothing a client sent is lost.
func split(rec store.Record) (row, error) {
	r := row{id: rec.ID()}
	rest := make(map[string]any, len(rec))
	for k, v := range rec {
		switch k {
		case "id":
			continue
		case "name", "content":
			if str, ok := v.(string); ok {
				if k == "name" {
					r.name = &str
				} else {
					r.content = &str
				}
				continue
			}
		case "created":
			if str, ok := v.(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
					r.created = &t
					continue
				}
			}
		}
		rest[k] = v
	}
	b, err := json.Marshal(rest)
	if err != nil {
		return row{}, fmt.Errorf("pgstore: encode extra: %w", err)
	}
	r.extra = b
	return r, nil
}

func (r row) record() (store.Record, error) {
	rec := store.Record{"id": r.id}
	if len(r.extra) > 0 {
		v, err := postq.DecodeAny(r.extra)
		if err != nil {
			return nil, fmt.Errorf("pgstore: decode extra: %w", err)
		}
		if m, ok := v.(map[string]any); ok {
			for k, val := range m {
				rec[k] = val
			}
		}
	}
	if r.name != nil {
		rec["name"] = *r.name
	}
	if r.content != nil {
		rec["content"] = *r.content
	}
	if r.created != nil {
		rec["created"] = codec.FormatRFC3339(*r.created)
	}
	return rec, nil
}

func scan(sc interface{ Scan(...any) error }) (store.Record, error) {
	var r row
	if err := sc.Scan(&r.id, &r.name, &r.content, &r.created, &r.extra); err != nil {
		return nil, err
	}
	return r.record()
}

// List implements store.Store.
func (s *Store) List(ctx context.Context, limit int) ([]store.Record, error) {
	q := qb().Select(columns...).From(table).OrderBy("seq")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("pgstore: build list: %w", err)
	}
	s.logSQL("List", sqlStr, args)
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list: %w", err)
	}
	defer rows.Close()
	out := []store.Record{}
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("pgstore: list scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: list: %w", err)
	}
	return out, nil
}

func (s *Store) get(ctx context.Context, db querier, id string, forUpdate bool) (store.Record, error) {
	q := qb().Select(columns...).From(table).Where(sq.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("pgstore: build get: %w", err)
	}
	s.logSQL("Get", sqlStr, args)
	rec, err := scan(db.QueryRow(ctx, sqlStr, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get %s: %w", id, err)
	}
	return rec, nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id string) (store.Record, error) {
	return s.get(ctx, s.pool, id, false)
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, rec store.Record) (store.Record, error) {
	if rec.ID() == "" {
		return nil, fmt.Errorf("pgstore: create: missing id")
	}
	r, err := split(rec)
	if err != nil {
		return nil, err
	}
	sqlStr, args, err := qb().Insert(table).
		Columns(columns...).
		Values(r.id, r.name, r.content, r.created, r.extra).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("pgstore: build create: %w", err)
	}
	s.logSQL("Create", sqlStr, args)
	tag, err := s.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: create: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, store.ErrConflict
	}
	return r.record()
}

// Update implements store.Store. The read and write share a transaction so
// concurrent merges do not lose fields.
func (s *Store) Update(ctx context.Context, id string, patch store.Record) (store.Record, error) {
	var out store.Record
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := s.get(ctx, tx, id, true)
		if err != nil {
			return err
		}
		r, err := split(cur.Merge(patch))
		if err != nil {
			return err
		}
		sqlStr, args, err := qb().Update(table).
			Set("name", r.name).
			Set("content", r.content).
			Set("created", r.created).
			Set("extra", r.extra).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("pgstore: build update: %w", err)
		}
		s.logSQL("Update", sqlStr, args)
		if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("pgstore: update %s: %w", id, err)
		}
		out, err = r.record()
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	sqlStr, args, err := qb().Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("pgstore: build delete: %w", err)
	}
	s.logSQL("Delete", sqlStr, args)
	tag, err := s.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("pgstore: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Truncate removes every post. Tests use it to start clean.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE "+table); err != nil {
		return fmt.Errorf("pgstore: truncate: %w", err)
	}
	return nil
}
