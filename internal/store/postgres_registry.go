/**
 * @description
 * PostgreSQL queries for the regional agreement registry and the customer
 * attribution store.
 */
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
)

const agreementColumns = `
	id, partner_id, partner_name, partner_slug, region_codes, region_name,
	commission_percent, applies_to, valid_from, valid_until, status,
	contract_signed_at, contract_signed_by, contract_version, notes,
	created_at, updated_at`

func scanAgreement(row rowScanner) (domain.RegionalAgreement, error) {
	var a domain.RegionalAgreement
	err := row.Scan(
		&a.ID,
		&a.PartnerID,
		&a.PartnerName,
		&a.PartnerSlug,
		&a.RegionCodes,
		&a.RegionName,
		&a.CommissionPercent,
		&a.AppliesTo,
		&a.ValidFrom,
		&a.ValidUntil,
		&a.Status,
		&a.ContractSignedAt,
		&a.ContractSignedBy,
		&a.ContractVersion,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// FindActiveAgreementForRegion resolves the ACTIVE agreement covering a
// two-letter region code whose validity window contains the given date.
func (r *PostgresRepository) FindActiveAgreementForRegion(ctx context.Context, regionCode string, at time.Time) (*domain.RegionalAgreement, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+agreementColumns+`
		FROM regional_agreements
		WHERE $1 = ANY(region_codes)
		  AND status = 'ACTIVE'
		  AND valid_from <= $2
		  AND (valid_until IS NULL OR valid_until >= $2)
		LIMIT 1
	`, strings.ToUpper(regionCode), at)
	a, err := scanAgreement(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAgreementNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindAgreementOverlap returns any PENDING or ACTIVE agreement sharing at
// least one region code with the candidate set.
func (r *PostgresRepository) FindAgreementOverlap(ctx context.Context, regionCodes []string) (*domain.RegionalAgreement, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+agreementColumns+`
		FROM regional_agreements
		WHERE region_codes && $1
		  AND status IN ('PENDING', 'ACTIVE')
		LIMIT 1
	`, regionCodes)
	a, err := scanAgreement(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAgreementNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateAgreement inserts a new regional agreement.
func (r *PostgresRepository) CreateAgreement(ctx context.Context, agreement *domain.RegionalAgreement) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO regional_agreements (
			id, partner_id, partner_name, partner_slug, region_codes, region_name,
			commission_percent, applies_to, valid_from, valid_until, status, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		agreement.ID,
		agreement.PartnerID,
		agreement.PartnerName,
		agreement.PartnerSlug,
		agreement.RegionCodes,
		agreement.RegionName,
		agreement.CommissionPercent,
		agreement.AppliesTo,
		agreement.ValidFrom,
		agreement.ValidUntil,
		agreement.Status,
		agreement.Notes,
	)
	return err
}

// GetAgreementByID retrieves a single agreement.
func (r *PostgresRepository) GetAgreementByID(ctx context.Context, id string) (*domain.RegionalAgreement, error) {
	row := r.db.QueryRow(ctx, "SELECT "+agreementColumns+" FROM regional_agreements WHERE id = $1", id)
	a, err := scanAgreement(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAgreementNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListAgreements retrieves agreements matching the filter, newest first.
func (r *PostgresRepository) ListAgreements(ctx context.Context, filter AgreementFilter) ([]domain.RegionalAgreement, error) {
	query := "SELECT " + agreementColumns + " FROM regional_agreements WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.RegionCode != "" {
		args = append(args, strings.ToUpper(filter.RegionCode))
		query += fmt.Sprintf(" AND $%d = ANY(region_codes)", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agreements []domain.RegionalAgreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		agreements = append(agreements, a)
	}

	return agreements, rows.Err()
}

// ListActiveAgreements retrieves every ACTIVE agreement.
func (r *PostgresRepository) ListActiveAgreements(ctx context.Context) ([]domain.RegionalAgreement, error) {
	return r.ListAgreements(ctx, AgreementFilter{Status: domain.AgreementActive})
}

// UpdateAgreement applies the optional mutations and returns the updated row.
func (r *PostgresRepository) UpdateAgreement(ctx context.Context, id string, params UpdateAgreementParams) (*domain.RegionalAgreement, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE regional_agreements
		SET commission_percent = COALESCE($2, commission_percent),
		    valid_until = CASE WHEN $4 THEN NULL ELSE COALESCE($3, valid_until) END,
		    status = COALESCE($5, status),
		    notes = COALESCE($6, notes),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+agreementColumns,
		id,
		params.CommissionPercent,
		params.ValidUntil,
		params.ClearValidUntil,
		params.Status,
		params.Notes,
	)
	a, err := scanAgreement(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAgreementNotFound
		}
		return nil, err
	}
	return &a, nil
}

// SignAgreementContract stamps the contract signature and activates the
// agreement.
func (r *PostgresRepository) SignAgreementContract(ctx context.Context, id, signedBy, version string, at time.Time) (*domain.RegionalAgreement, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE regional_agreements
		SET contract_signed_at = $2,
		    contract_signed_by = $3,
		    contract_version = $4,
		    status = 'ACTIVE',
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+agreementColumns,
		id, at, signedBy, version)
	a, err := scanAgreement(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAgreementNotFound
		}
		return nil, err
	}
	return &a, nil
}

const attributionColumns = `
	id, customer_id, customer_email, attributed_partner_id,
	attributed_partner_name, source, source_ref, attributed_at, expires_at,
	first_purchase_at, first_purchase_order_id, total_purchases,
	total_revenue, created_at, updated_at`

func scanAttribution(row rowScanner) (domain.CustomerAttribution, error) {
	var a domain.CustomerAttribution
	err := row.Scan(
		&a.ID,
		&a.CustomerID,
		&a.CustomerEmail,
		&a.AttributedPartnerID,
		&a.AttributedPartnerName,
		&a.Source,
		&a.SourceRef,
		&a.AttributedAt,
		&a.ExpiresAt,
		&a.FirstPurchaseAt,
		&a.FirstPurchaseOrderID,
		&a.TotalPurchases,
		&a.TotalRevenue,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// GetAttributionByCustomer resolves the single attribution row for a customer.
func (r *PostgresRepository) GetAttributionByCustomer(ctx context.Context, customerID string) (*domain.CustomerAttribution, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+attributionColumns+" FROM customer_attributions WHERE customer_id = $1", customerID)
	a, err := scanAttribution(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAttributionNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateAttribution inserts a new attribution row. The customer_id unique
// constraint backs the first-click-wins invariant.
func (r *PostgresRepository) CreateAttribution(ctx context.Context, attribution *domain.CustomerAttribution) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO customer_attributions (
			id, customer_id, customer_email, attributed_partner_id,
			attributed_partner_name, source, source_ref, attributed_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		attribution.ID,
		attribution.CustomerID,
		attribution.CustomerEmail,
		attribution.AttributedPartnerID,
		attribution.AttributedPartnerName,
		attribution.Source,
		attribution.SourceRef,
		attribution.AttributedAt,
		attribution.ExpiresAt,
	)
	return err
}

// RecordAttributionPurchase increments the purchase counters and, on the
// first purchase, stamps the first-purchase fields.
func (r *PostgresRepository) RecordAttributionPurchase(ctx context.Context, customerID, orderID string, amount decimal.Decimal, firstPurchase bool, at time.Time) (*domain.CustomerAttribution, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE customer_attributions
		SET total_purchases = total_purchases + 1,
		    total_revenue = total_revenue + $3,
		    first_purchase_at = CASE WHEN $4 AND first_purchase_at IS NULL THEN $5 ELSE first_purchase_at END,
		    first_purchase_order_id = CASE WHEN $4 AND first_purchase_order_id IS NULL THEN $2 ELSE first_purchase_order_id END,
		    updated_at = NOW()
		WHERE customer_id = $1
		RETURNING `+attributionColumns,
		customerID, orderID, amount, firstPurchase, at)
	a, err := scanAttribution(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAttributionNotFound
		}
		return nil, err
	}
	return &a, nil
}

// DeleteAttribution removes a customer's attribution (admin operation).
func (r *PostgresRepository) DeleteAttribution(ctx context.Context, customerID string) error {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM customer_attributions WHERE customer_id = $1", customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttributionNotFound
	}
	return nil
}

// ListAttributions retrieves attributions matching the filter, newest first.
func (r *PostgresRepository) ListAttributions(ctx context.Context, filter AttributionFilter) ([]domain.CustomerAttribution, error) {
	query := "SELECT " + attributionColumns + " FROM customer_attributions WHERE 1=1"
	args := []any{}

	if filter.PartnerID != "" {
		args = append(args, filter.PartnerID)
		query += " AND attributed_partner_id = $1"
	}
	if filter.ActiveOnly || filter.ExpiredOnly {
		args = append(args, filter.Now)
		op := ">="
		if filter.ExpiredOnly {
			op = "<"
		}
		query += fmt.Sprintf(" AND expires_at %s $%d", op, len(args))
	}
	query += " ORDER BY attributed_at DESC"
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

	var attributions []domain.CustomerAttribution
	for rows.Next() {
		a, err := scanAttribution(rows)
		if err != nil {
			return nil, err
		}
		attributions = append(attributions, a)
	}

	return attributions, rows.Err()
}

// GetAttributionStats aggregates attribution counts, optionally per partner.
func (r *PostgresRepository) GetAttributionStats(ctx context.Context, partnerID string, now time.Time) (*domain.AttributionStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE expires_at >= $1),
		       COUNT(*) FILTER (WHERE first_purchase_at IS NOT NULL),
		       COALESCE(SUM(total_purchases), 0),
		       COALESCE(SUM(total_revenue), 0)
		FROM customer_attributions
	`
	args := []any{now}
	if partnerID != "" {
		query += " WHERE attributed_partner_id = $2"
		args = append(args, partnerID)
	}

	var stats domain.AttributionStats
	if err := r.db.QueryRow(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Active,
		&stats.WithPurchase,
		&stats.TotalPurchases,
		&stats.TotalRevenue,
	); err != nil {
		return nil, err
	}

	return &stats, nil
}
