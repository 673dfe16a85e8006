/**
 * @description
 * PostgreSQL queries for the regional revenue share tracker: revenue records,
 * monthly regional payouts, and the audit log.
 */
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mojoplatform/settlement-service/internal/domain"
)

const revenueColumns = `
	id, type, amount, currency, payment_ref, payment_date, partner_provision,
	platform_amount, transaction_fee, regional_partner_id, agreement_id,
	customer_id, tenant_id, payout_period, payout_status, payout_id,
	payout_date, payout_ref, created_at`

func scanRevenueRecord(row rowScanner) (domain.RevenueRecord, error) {
	var rec domain.RevenueRecord
	err := row.Scan(
		&rec.ID,
		&rec.Type,
		&rec.Amount,
		&rec.Currency,
		&rec.PaymentRef,
		&rec.PaymentDate,
		&rec.PartnerProvision,
		&rec.PlatformAmount,
		&rec.TransactionFee,
		&rec.RegionalPartnerID,
		&rec.AgreementID,
		&rec.CustomerID,
		&rec.TenantID,
		&rec.PayoutPeriod,
		&rec.PayoutStatus,
		&rec.PayoutID,
		&rec.PayoutDate,
		&rec.PayoutRef,
		&rec.CreatedAt,
	)
	return rec, err
}

// CreateRevenueRecord inserts one tracked revenue split.
func (r *PostgresRepository) CreateRevenueRecord(ctx context.Context, record *domain.RevenueRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO revenue_records (
			id, type, amount, currency, payment_ref, payment_date,
			partner_provision, platform_amount, transaction_fee,
			regional_partner_id, agreement_id, customer_id, tenant_id,
			payout_period, payout_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		record.ID,
		record.Type,
		record.Amount,
		record.Currency,
		record.PaymentRef,
		record.PaymentDate,
		record.PartnerProvision,
		record.PlatformAmount,
		record.TransactionFee,
		record.RegionalPartnerID,
		record.AgreementID,
		record.CustomerID,
		record.TenantID,
		record.PayoutPeriod,
		record.PayoutStatus,
	)
	return err
}

// ListPendingRevenueRecords fetches all PENDING records for a partner and
// payout period.
func (r *PostgresRepository) ListPendingRevenueRecords(ctx context.Context, partnerID, period string) ([]domain.RevenueRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+revenueColumns+`
		FROM revenue_records
		WHERE regional_partner_id = $1
		  AND payout_period = $2
		  AND payout_status = 'PENDING'
		ORDER BY payment_date ASC
	`, partnerID, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.RevenueRecord
	for rows.Next() {
		rec, err := scanRevenueRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

const regionalPayoutColumns = `
	id, regional_partner_id, regional_partner_name, payout_period,
	total_revenue, total_provision, revenue_count, membership_provision,
	transaction_provision, membership_count, transaction_count, status,
	paid_at, payment_ref, created_at`

func scanRegionalPayout(row rowScanner) (domain.RegionalPayout, error) {
	var p domain.RegionalPayout
	err := row.Scan(
		&p.ID,
		&p.RegionalPartnerID,
		&p.RegionalPartnerName,
		&p.PayoutPeriod,
		&p.TotalRevenue,
		&p.TotalProvision,
		&p.RevenueCount,
		&p.MembershipProvision,
		&p.TransactionProvision,
		&p.MembershipCount,
		&p.TransactionCount,
		&p.Status,
		&p.PaidAt,
		&p.PaymentRef,
		&p.CreatedAt,
	)
	return p, err
}

// CreateRegionalPayoutWithRecords inserts the monthly payout and stamps all
// aggregated records APPROVED with the payout link, atomically.
func (r *PostgresRepository) CreateRegionalPayoutWithRecords(ctx context.Context, payout *domain.RegionalPayout, recordIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO regional_payouts (
			id, regional_partner_id, regional_partner_name, payout_period,
			total_revenue, total_provision, revenue_count, membership_provision,
			transaction_provision, membership_count, transaction_count, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		payout.ID,
		payout.RegionalPartnerID,
		payout.RegionalPartnerName,
		payout.PayoutPeriod,
		payout.TotalRevenue,
		payout.TotalProvision,
		payout.RevenueCount,
		payout.MembershipProvision,
		payout.TransactionProvision,
		payout.MembershipCount,
		payout.TransactionCount,
		payout.Status,
	)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE revenue_records
		SET payout_id = $1,
		    payout_status = 'APPROVED'
		WHERE id = ANY($2)
		  AND payout_status = 'PENDING'
	`, payout.ID, recordIDs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != int64(len(recordIDs)) {
		return ErrCommissionsClaimed
	}

	return tx.Commit(ctx)
}

// GetRegionalPayoutByID retrieves a single regional payout.
func (r *PostgresRepository) GetRegionalPayoutByID(ctx context.Context, id string) (*domain.RegionalPayout, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+regionalPayoutColumns+" FROM regional_payouts WHERE id = $1", id)
	p, err := scanRegionalPayout(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRegionalPayoutNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListRegionalPayouts retrieves regional payouts matching the filter.
func (r *PostgresRepository) ListRegionalPayouts(ctx context.Context, filter RegionalPayoutFilter) ([]domain.RegionalPayout, error) {
	query := "SELECT " + regionalPayoutColumns + " FROM regional_payouts WHERE 1=1"
	args := []any{}

	if filter.PartnerID != "" {
		args = append(args, filter.PartnerID)
		query += fmt.Sprintf(" AND regional_partner_id = $%d", len(args))
	}
	if filter.Period != "" {
		args = append(args, filter.Period)
		query += fmt.Sprintf(" AND payout_period = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY payout_period DESC, created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []domain.RegionalPayout
	for rows.Next() {
		p, err := scanRegionalPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}

	return payouts, rows.Err()
}

// MarkRegionalPayoutPaid sets the payout and all linked records to PAID with
// the payment reference, atomically.
func (r *PostgresRepository) MarkRegionalPayoutPaid(ctx context.Context, id, paymentRef string, paidAt time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE regional_payouts
		SET status = 'PAID',
		    paid_at = $2,
		    payment_ref = $3
		WHERE id = $1
	`, id, paidAt, paymentRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRegionalPayoutNotFound
	}

	if _, err := tx.Exec(ctx, `
		UPDATE revenue_records
		SET payout_status = 'PAID',
		    payout_date = $2,
		    payout_ref = $3
		WHERE payout_id = $1
	`, id, paidAt, paymentRef); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// InsertAuditLog writes one audit entry. Values are stored as JSON.
func (r *PostgresRepository) InsertAuditLog(ctx context.Context, entry AuditLogParams) error {
	oldValue, err := marshalAuditValue(entry.OldValue)
	if err != nil {
		return err
	}
	newValue, err := marshalAuditValue(entry.NewValue)
	if err != nil {
		return err
	}
	var metadata *string
	if len(entry.Metadata) > 0 {
		metadata, err = marshalAuditValue(entry.Metadata)
		if err != nil {
			return err
		}
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO audit_logs (action, resource, resource_id, actor_id, old_value, new_value, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.Action,
		entry.Resource,
		nullableString(entry.ResourceID),
		nullableString(entry.ActorID),
		oldValue,
		newValue,
		metadata,
	)
	return err
}

func marshalAuditValue(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
