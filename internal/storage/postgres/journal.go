package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/order"
)

const (
	lookupOrderSQL = `SELECT order_id, order_number, status, total
	FROM order_journal WHERE idempotency_key = $1`

	recordOrderSQL = `INSERT INTO order_journal
	(idempotency_key, order_id, order_number, status, total, payment_method, request, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (idempotency_key) DO NOTHING`
)

var _ order.Journal = (*OrderJournal)(nil)

// OrderJournal implements order.Journal backed by PostgreSQL.
type OrderJournal struct {
	pool *pgxpool.Pool
}

// NewOrderJournal returns an OrderJournal that uses the given pool.
func NewOrderJournal(pool *pgxpool.Pool) *OrderJournal {
	return &OrderJournal{pool: pool}
}

// Lookup returns the order recorded under key.
func (j *OrderJournal) Lookup(ctx context.Context, key string) (*order.Created, bool, error) {
	var c order.Created
	err := j.pool.QueryRow(ctx, lookupOrderSQL, key).Scan(&c.ID, &c.Number, &c.Status, &c.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "lookup order %q", key)
	}
	return &c, true, nil
}

// Record stores e. When the key already exists the first entry is kept.
// The request payload is serialized to JSON for the JSONB column.
func (j *OrderJournal) Record(ctx context.Context, e order.Entry) error {
	requestJSON, err := json.Marshal(e.Request)
	if err != nil {
		return errors.Wrap(err, "marshal order request")
	}

	var paymentMethod string
	if e.Request != nil {
		paymentMethod = e.Request.PaymentMethod
	}

	if _, err := j.pool.Exec(ctx, recordOrderSQL,
		e.IdempotencyKey,
		e.Created.ID,
		e.Created.Number,
		e.Created.Status,
		e.Created.Total,
		paymentMethod,
		requestJSON,
		e.RecordedAt,
	); err != nil {
		return errors.Wrapf(err, "record order %d", e.Created.ID)
	}
	return nil
}

// Ping checks database connectivity.
func (j *OrderJournal) Ping(ctx context.Context) error {
	return j.pool.Ping(ctx)
}
