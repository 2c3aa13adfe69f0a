package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

const (
	appendNotifyChannel = "chat_appends"

	createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	id     BIGSERIAL PRIMARY KEY,
	parent TEXT  NOT NULL,
	key    TEXT  NOT NULL,
	fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	UNIQUE (parent, key)
)`
)

// PostgresRemoteStore RemoteStore on a jsonb table, appends fan out with LISTEN/NOTIFY
type PostgresRemoteStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRemoteStore create PostgresRemoteStore and the documents table
func NewPostgresRemoteStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresRemoteStore, error) {
	if _, err := pool.Exec(ctx, createDocumentsTable); err != nil {
		return nil, fmt.Errorf("%w: create documents table: %w", domain.ErrStoreUnavailable, err)
	}
	return &PostgresRemoteStore{pool: pool}, nil
}

func scanRecords(rows pgx.Rows) ([]domain.Record, error) {
	defer rows.Close()
	var records []domain.Record
	for rows.Next() {
		var r domain.Record
		if err := rows.Scan(&r.Key, &r.Fields); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ReadPath read node and its children, nil when neither exists
func (s *PostgresRemoteStore) ReadPath(ctx context.Context, path string) (*domain.Document, error) {
	defer observe("postgres", "read_path")()
	path = cleanPath(path)
	parent, key := splitPath(path)

	doc := &domain.Document{Key: key}
	err := s.pool.QueryRow(ctx,
		`SELECT fields FROM documents WHERE parent = $1 AND key = $2`, parent, key,
	).Scan(&doc.Fields)
	found := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStoreUnavailable, path, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT key, fields FROM documents WHERE parent = $1 ORDER BY id`, path)
	if err != nil {
		return nil, fmt.Errorf("%w: read children %s: %w", domain.ErrStoreUnavailable, path, err)
	}
	children, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: scan children %s: %w", domain.ErrStoreUnavailable, path, err)
	}

	if !found && len(children) == 0 {
		return nil, nil
	}
	doc.Children = children
	return doc, nil
}

// ReadRange 依 orderKey 取最後 limit 筆，升序回傳；缺 orderKey 的排最前
func (s *PostgresRemoteStore) ReadRange(ctx context.Context, path, orderKey string, limit int) ([]domain.Record, error) {
	defer observe("postgres", "read_range")()
	path = cleanPath(path)

	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx, `
SELECT key, fields FROM documents
WHERE parent = $1
ORDER BY fields -> $2::text DESC NULLS LAST, id DESC
LIMIT $3`, path, orderKey, lim)
	if err != nil {
		return nil, fmt.Errorf("%w: range %s: %w", domain.ErrStoreUnavailable, path, err)
	}
	desc, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: scan range %s: %w", domain.ErrStoreUnavailable, path, err)
	}

	records := make([]domain.Record, len(desc))
	for i, r := range desc {
		records[len(desc)-1-i] = r
	}
	return records, nil
}

// Append insert a child and NOTIFY in the same transaction, listeners only
// see committed appends.
func (s *PostgresRemoteStore) Append(ctx context.Context, path string, fields map[string]interface{}) (string, error) {
	defer observe("postgres", "append")()
	path = cleanPath(path)
	key := uuid.NewString()

	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("%w: encode fields: %w", domain.ErrStoreWriteFailed, err)
	}
	event, err := json.Marshal(appendEvent{Parent: path, Key: key, Fields: fields})
	if err != nil {
		return "", fmt.Errorf("%w: encode append event: %w", domain.ErrStoreWriteFailed, err)
	}

	err = s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO documents (parent, key, fields) VALUES ($1, $2, $3::jsonb)`,
			path, key, string(body)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, appendNotifyChannel, string(event))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: append %s: %w", domain.ErrStoreWriteFailed, path, err)
	}
	return key, nil
}

// Update merge fields into the node (jsonb ||), upserting it
func (s *PostgresRemoteStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	defer observe("postgres", "update")()
	path = cleanPath(path)
	parent, key := splitPath(path)

	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: encode fields: %w", domain.ErrStoreWriteFailed, err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO documents (parent, key, fields) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (parent, key) DO UPDATE SET fields = documents.fields || EXCLUDED.fields`,
		parent, key, string(body))
	if err != nil {
		return fmt.Errorf("%w: update %s: %w", domain.ErrStoreWriteFailed, path, err)
	}
	return nil
}

// SubscribeAppends hold one pooled connection in LISTEN until cancelled. A
// payload that cannot be decoded has no known parent, so every listener gets
// it on onError.
func (s *PostgresRemoteStore) SubscribeAppends(ctx context.Context, path string, onAppend func(domain.Record), onError func(error)) (domain.CancelFunc, error) {
	path = cleanPath(path)
	subCtx, cancel := context.WithCancel(ctx)

	conn, err := s.pool.Acquire(subCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: acquire listen conn: %w", domain.ErrSubscriptionLost, err)
	}
	if _, err := conn.Exec(subCtx, "LISTEN "+appendNotifyChannel); err != nil {
		conn.Release()
		cancel()
		return nil, fmt.Errorf("%w: listen: %w", domain.ErrSubscriptionLost, err)
	}

	go func() {
		defer func() {
			// UNLISTEN 後才放回 pool
			if _, err := conn.Exec(context.Background(), "UNLISTEN *"); err != nil {
				conn.Conn().Close(context.Background())
			}
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				logger.Log.Warn("postgres listen dropped", zap.String("path", path), zap.Error(err))
				if onError != nil {
					onError(fmt.Errorf("%w: %w", domain.ErrSubscriptionLost, err))
				}
				return
			}

			ev, err := decodeAppendEvent([]byte(n.Payload))
			if err != nil {
				logger.Log.Error("append notify decode failed", zap.String("path", path), zap.Error(err))
				if onError != nil {
					onError(fmt.Errorf("%s: %w", path, err))
				}
				continue
			}
			if ev.Parent != path {
				continue
			}
			onAppend(ev.record())
		}
	}()

	return domain.CancelFunc(cancel), nil
}
