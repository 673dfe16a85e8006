/**
 * @description
 * PostgreSQL implementation of the settlement repository: commission ledger
 * and payout batches. Agreements/attributions and the regional revenue share
 * tables live in their own files on the same type.
 */
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
)

// PostgresRepository handles database operations for the settlement service.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository backed by the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const commissionColumns = `
	id, order_id, order_date, order_amount, product_id, product_name,
	is_platform_product, seller_partner_id, seller_partner_name,
	recipient_id, recipient_name, commission_type, commission_percent,
	commission_amount, customer_id, customer_region, is_first_purchase,
	status, payout_id, approved_at, refunded_at, refund_reason, paid_at,
	created_at, updated_at`

func scanCommission(row rowScanner) (domain.Commission, error) {
	var c domain.Commission
	err := row.Scan(
		&c.ID,
		&c.OrderID,
		&c.OrderDate,
		&c.OrderAmount,
		&c.ProductID,
		&c.ProductName,
		&c.IsPlatformProduct,
		&c.SellerPartnerID,
		&c.SellerPartnerName,
		&c.RecipientID,
		&c.RecipientName,
		&c.Type,
		&c.Percent,
		&c.Amount,
		&c.CustomerID,
		&c.CustomerRegion,
		&c.IsFirstPurchase,
		&c.Status,
		&c.PayoutID,
		&c.ApprovedAt,
		&c.RefundedAt,
		&c.RefundReason,
		&c.PaidAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// CommissionsExistForOrder reports whether any commission rows exist for the
// order. Used as the duplicate-processing guard.
func (r *PostgresRepository) CommissionsExistForOrder(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM commissions WHERE order_id = $1)", orderID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CreateCommissions inserts the computed line items for one order atomically.
func (r *PostgresRepository) CreateCommissions(ctx context.Context, commissions []domain.Commission) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO commissions (
			id, order_id, order_date, order_amount, product_id, product_name,
			is_platform_product, seller_partner_id, seller_partner_name,
			recipient_id, recipient_name, commission_type, commission_percent,
			commission_amount, customer_id, customer_region, is_first_purchase,
			status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	for _, c := range commissions {
		if _, err := tx.Exec(ctx, query,
			c.ID,
			c.OrderID,
			c.OrderDate,
			c.OrderAmount,
			c.ProductID,
			c.ProductName,
			c.IsPlatformProduct,
			c.SellerPartnerID,
			c.SellerPartnerName,
			c.RecipientID,
			c.RecipientName,
			c.Type,
			c.Percent,
			c.Amount,
			c.CustomerID,
			c.CustomerRegion,
			c.IsFirstPurchase,
			c.Status,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListCommissions retrieves commissions matching the filter, newest first.
func (r *PostgresRepository) ListCommissions(ctx context.Context, filter CommissionFilter) ([]domain.Commission, error) {
	query := "SELECT " + commissionColumns + " FROM commissions WHERE 1=1"
	args := []any{}

	if filter.RecipientID != "" {
		args = append(args, filter.RecipientID)
		query += fmt.Sprintf(" AND recipient_id = $%d", len(args))
	}
	if filter.OrderID != "" {
		args = append(args, filter.OrderID)
		query += fmt.Sprintf(" AND order_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commissions []domain.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		commissions = append(commissions, c)
	}

	return commissions, rows.Err()
}

// RefundCommissionsByOrder moves every PENDING or APPROVED commission for the
// order to REFUNDED. PAID commissions are not touched.
func (r *PostgresRepository) RefundCommissionsByOrder(ctx context.Context, orderID, reason string, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE commissions
		SET status = 'REFUNDED',
		    refunded_at = $2,
		    refund_reason = $3,
		    updated_at = NOW()
		WHERE order_id = $1
		  AND status IN ('PENDING', 'APPROVED')
	`, orderID, at, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ApproveCommissionsBefore promotes PENDING commissions whose order date is at
// or before the cutoff. Idempotent: already approved rows never match.
func (r *PostgresRepository) ApproveCommissionsBefore(ctx context.Context, cutoff, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE commissions
		SET status = 'APPROVED',
		    approved_at = $2,
		    updated_at = NOW()
		WHERE status = 'PENDING'
		  AND order_date <= $1
	`, cutoff, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const payoutColumns = `
	id, recipient_id, recipient_name, destination_account, total_amount,
	currency, commission_count, period_start, period_end, status,
	transfer_ref, failure_reason, processed_at, completed_at, failed_at,
	created_at, updated_at`

func scanPayout(row rowScanner) (domain.Payout, error) {
	var p domain.Payout
	err := row.Scan(
		&p.ID,
		&p.RecipientID,
		&p.RecipientName,
		&p.DestinationAccount,
		&p.TotalAmount,
		&p.Currency,
		&p.CommissionCount,
		&p.PeriodStart,
		&p.PeriodEnd,
		&p.Status,
		&p.TransferRef,
		&p.FailureReason,
		&p.ProcessedAt,
		&p.CompletedAt,
		&p.FailedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// ListPayableCommissions fetches all APPROVED commissions for a recipient
// that are not yet linked to any payout.
func (r *PostgresRepository) ListPayableCommissions(ctx context.Context, recipientID string) ([]domain.Commission, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE recipient_id = $1
		  AND status = 'APPROVED'
		  AND payout_id IS NULL
		ORDER BY order_date ASC
	`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commissions []domain.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		commissions = append(commissions, c)
	}

	return commissions, rows.Err()
}

// CreatePayoutWithCommissions inserts the payout and links the selected
// commissions in one transaction. The link update is conditioned on
// payout_id IS NULL so a concurrent payout for the same recipient cannot
// double-claim a commission; if any row was claimed in between, the whole
// transaction rolls back with ErrCommissionsClaimed.
func (r *PostgresRepository) CreatePayoutWithCommissions(ctx context.Context, payout *domain.Payout, commissionIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO payouts (
			id, recipient_id, recipient_name, destination_account, total_amount,
			currency, commission_count, period_start, period_end, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		payout.ID,
		payout.RecipientID,
		payout.RecipientName,
		payout.DestinationAccount,
		payout.TotalAmount,
		payout.Currency,
		payout.CommissionCount,
		payout.PeriodStart,
		payout.PeriodEnd,
		payout.Status,
	)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE commissions
		SET payout_id = $1,
		    updated_at = NOW()
		WHERE id = ANY($2)
		  AND status = 'APPROVED'
		  AND payout_id IS NULL
	`, payout.ID, commissionIDs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != int64(len(commissionIDs)) {
		return ErrCommissionsClaimed
	}

	return tx.Commit(ctx)
}

// GetPayoutByID retrieves a single payout.
func (r *PostgresRepository) GetPayoutByID(ctx context.Context, id string) (*domain.Payout, error) {
	row := r.db.QueryRow(ctx, "SELECT "+payoutColumns+" FROM payouts WHERE id = $1", id)
	p, err := scanPayout(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListPayouts retrieves payouts matching the filter, newest first.
func (r *PostgresRepository) ListPayouts(ctx context.Context, filter PayoutFilter) ([]domain.Payout, error) {
	query := "SELECT " + payoutColumns + " FROM payouts WHERE 1=1"
	args := []any{}

	if filter.RecipientID != "" {
		args = append(args, filter.RecipientID)
		query += fmt.Sprintf(" AND recipient_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []domain.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}

	return payouts, rows.Err()
}

// MarkPayoutProcessing transitions PENDING -> PROCESSING and stores the
// transfer reference. Conditioned on the current status so concurrent
// processing attempts conflict instead of double-initiating a transfer.
func (r *PostgresRepository) MarkPayoutProcessing(ctx context.Context, id, transferRef string, at time.Time) (*domain.Payout, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE payouts
		SET status = 'PROCESSING',
		    transfer_ref = $2,
		    processed_at = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'PENDING'
		RETURNING `+payoutColumns,
		id, transferRef, at)
	p, err := scanPayout(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPayoutStatusConflict
		}
		return nil, err
	}
	return &p, nil
}

// CompletePayoutAndCommissions transitions PROCESSING -> COMPLETED and marks
// every linked commission PAID, atomically.
func (r *PostgresRepository) CompletePayoutAndCommissions(ctx context.Context, id string, transferRef *string, at time.Time) (*domain.Payout, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE payouts
		SET status = 'COMPLETED',
		    transfer_ref = COALESCE($2, transfer_ref),
		    completed_at = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'PROCESSING'
		RETURNING `+payoutColumns,
		id, transferRef, at)
	p, err := scanPayout(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPayoutStatusConflict
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE commissions
		SET status = 'PAID',
		    paid_at = $2,
		    updated_at = NOW()
		WHERE payout_id = $1
	`, id, at); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// FailPayoutAndReleaseCommissions moves the payout to FAILED and unlinks all
// commissions so they revert to the re-batchable APPROVED pool. Allowed from
// any status; this is the sole retry path after a transfer failure.
func (r *PostgresRepository) FailPayoutAndReleaseCommissions(ctx context.Context, id, reason string, at time.Time) (*domain.Payout, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE payouts
		SET status = 'FAILED',
		    failure_reason = $2,
		    failed_at = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+payoutColumns,
		id, reason, at)
	p, err := scanPayout(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE commissions
		SET payout_id = NULL,
		    updated_at = NOW()
		WHERE payout_id = $1
		  AND status <> 'PAID'
	`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListEligibleRecipients reports recipients whose approved, unlinked
// commissions sum to at least the minimum payout.
func (r *PostgresRepository) ListEligibleRecipients(ctx context.Context, minimum decimal.Decimal) ([]domain.EligibleRecipient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT recipient_id, SUM(commission_amount), COUNT(*)
		FROM commissions
		WHERE status = 'APPROVED'
		  AND payout_id IS NULL
		GROUP BY recipient_id
		HAVING SUM(commission_amount) >= $1
		ORDER BY SUM(commission_amount) DESC
	`, minimum)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []domain.EligibleRecipient
	for rows.Next() {
		var rec domain.EligibleRecipient
		if err := rows.Scan(&rec.RecipientID, &rec.Amount, &rec.Count); err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}

	return recipients, rows.Err()
}

// GetPayoutStats aggregates payouts by status, optionally per recipient.
func (r *PostgresRepository) GetPayoutStats(ctx context.Context, recipientID string) (*domain.PayoutStats, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM payouts
	`
	args := []any{}
	if recipientID != "" {
		query += " WHERE recipient_id = $1"
		args = append(args, recipientID)
	}
	query += " GROUP BY status"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.PayoutStats{TotalPaidOut: decimal.Zero}
	for rows.Next() {
		var sc domain.PayoutStatusCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.Amount); err != nil {
			return nil, err
		}
		stats.ByStatus = append(stats.ByStatus, sc)
		stats.TotalPayouts += sc.Count
		if sc.Status == domain.PayoutCompleted {
			stats.TotalPaidOut = stats.TotalPaidOut.Add(sc.Amount)
		}
	}

	return stats, rows.Err()
}
