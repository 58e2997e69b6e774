package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements orders.Store on a pgx pool.
type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return orders.DBError("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return orders.DBError("commit tx", err)
	}
	return nil
}

// View uses REPEATABLE READ so every query inside fn sees the same snapshot.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, v orders.Reader) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return orders.DBError("begin read tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{q: tx, readOnly: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return orders.DBError("commit read tx", err)
	}
	return nil
}

func (s *Store) PendingEvents(ctx context.Context, limit int) ([]orders.OutboxEvent, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, topic, key, payload, created_at
		FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, orders.DBError("fetch outbox", err)
	}
	defer rows.Close()

	var out []orders.OutboxEvent
	for rows.Next() {
		var ev orders.OutboxEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.Topic, &ev.Key, &payload, &ev.CreatedAt); err != nil {
			return nil, orders.DBError("scan outbox", err)
		}
		if err := json.Unmarshal(payload, &ev.Envelope); err != nil {
			return nil, orders.DBError("decode outbox payload", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, orders.DBError("fetch outbox", err)
	}
	return out, nil
}

func (s *Store) MarkEventSent(ctx context.Context, id int64) error {
	_, err := s.DB.Exec(ctx, `UPDATE outbox SET sent_at = now() WHERE id = $1`, id)
	return orders.DBError("mark outbox sent", err)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTx struct {
	q        querier
	readOnly bool
}

// forUpdate appends a row lock clause inside write transactions; read-only
// transactions reject FOR UPDATE.
func (t *pgTx) forUpdate(clause string) string {
	if t.readOnly {
		return ""
	}
	return " " + clause
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapErr turns constraint violations into business errors; everything else
// becomes an opaque database error.
func mapErr(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeUniqueViolation:
		return orders.Validationf("%s: already exists", op)
	case codeCheckViolation:
		return orders.Validationf("%s: constraint violated", op)
	case codeForeignKeyViolation:
		if notFound != nil {
			return notFound
		}
	}
	return orders.DBError(op, err)
}
