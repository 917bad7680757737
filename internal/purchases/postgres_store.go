package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db DBTX
}

func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p Purchase) error {
	if s.db == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.ProductName) == "" {
		return fmt.Errorf("invalid purchase create payload")
	}

	_, err := s.db.Exec(ctx, `
INSERT INTO purchases (
	id,
	name,
	email,
	phone,
	product_name,
	amount,
	currency,
	payment_status,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, 'pending', NOW(), NOW())
`, p.ID, p.Name, p.Email, p.Phone, p.ProductName, p.Amount.String(), p.Currency)
	if err != nil {
		return fmt.Errorf("create pending purchase: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Purchase, error) {
	if s.db == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	var (
		p      Purchase
		amount string
	)
	err := s.db.QueryRow(ctx, `
SELECT
	id::text,
	name,
	email,
	phone,
	product_name,
	amount::text,
	currency,
	payment_status,
	COALESCE(order_id, ''),
	COALESCE(payment_id, ''),
	COALESCE(download_link, ''),
	created_at,
	updated_at
FROM purchases
WHERE id = $1
LIMIT 1
`, id).Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.ProductName,
		&amount,
		&p.Currency,
		&p.PaymentStatus,
		&p.OrderID,
		&p.PaymentID,
		&p.DownloadLink,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find purchase by id: %w", err)
	}

	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse purchase amount %q: %w", amount, err)
	}
	return &p, nil
}

func (s *PostgresStore) AttachOrder(ctx context.Context, id, orderID string) error {
	if s.db == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := s.db.Exec(ctx, `
UPDATE purchases
SET
	order_id = $2,
	updated_at = NOW()
WHERE id = $1
  AND payment_status = 'pending'
`, id, orderID)
	if err != nil {
		return fmt.Errorf("attach order to purchase: %w", err)
	}
	return s.checkAffected(ctx, id, tag)
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, id, paymentID, downloadLink string) error {
	if s.db == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := s.db.Exec(ctx, `
UPDATE purchases
SET
	payment_id = $2,
	payment_status = 'completed',
	download_link = COALESCE(NULLIF($3, ''), download_link),
	updated_at = NOW()
WHERE id = $1
  AND payment_status = 'pending'
`, id, paymentID, downloadLink)
	if err != nil {
		return fmt.Errorf("mark purchase completed: %w", err)
	}
	return s.checkAffected(ctx, id, tag)
}

func (s *PostgresStore) FileContent(ctx context.Context, productName string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("postgres pool is nil")
	}

	var content string
	err := s.db.QueryRow(ctx, `
SELECT file_content
FROM product_files
WHERE product_name = $1
LIMIT 1
`, productName).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrFileNotFound
		}
		return "", fmt.Errorf("find product file: %w", err)
	}
	return content, nil
}

// checkAffected turns a zero-row conditional update into ErrNotFound or
// ErrStatusMismatch.
func (s *PostgresStore) checkAffected(ctx context.Context, id string, tag pgconn.CommandTag) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrStatusMismatch
}
