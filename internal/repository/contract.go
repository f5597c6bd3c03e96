package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/contractdesk/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const contractColumns = `id, user_id, type, file_object, file_path, file_original,
	file_content_type, file_size, price_minor_units, billing_interval, interval_count,
	product_id, price_id, signing_url, status, created_at, updated_at`

// ContractRepository handles database operations for contracts. Each lifecycle
// stage writes only the columns it owns, so a slow-finishing stage can never
// null out another stage's fields.
type ContractRepository struct {
	db *pgxpool.Pool
}

// NewContractRepository creates a new ContractRepository.
func NewContractRepository(db *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{db: db}
}

func scanContract(row pgx.Row) (*domain.Contract, error) {
	var c domain.Contract
	var priceMinor, intervalCount *int64
	var interval *string

	err := row.Scan(
		&c.ID, &c.UserID, &c.Type,
		&c.File.ObjectName, &c.File.Path, &c.File.OriginalName,
		&c.File.ContentType, &c.File.Size,
		&priceMinor, &interval, &intervalCount,
		&c.ProductID, &c.PriceID, &c.SigningURL,
		&c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if priceMinor != nil && interval != nil && intervalCount != nil {
		c.Terms = &domain.BillingTerms{
			PriceMinorUnits: *priceMinor,
			Interval:        *interval,
			IntervalCount:   *intervalCount,
		}
	}
	return &c, nil
}

// Create inserts a new contract.
func (r *ContractRepository) Create(ctx context.Context, c *domain.Contract) error {
	var priceMinor, intervalCount *int64
	var interval *string
	if c.Terms != nil {
		priceMinor = &c.Terms.PriceMinorUnits
		interval = &c.Terms.Interval
		intervalCount = &c.Terms.IntervalCount
	}

	query := `
		INSERT INTO contracts (` + contractColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.Exec(ctx, query,
		c.ID, c.UserID, c.Type,
		c.File.ObjectName, c.File.Path, c.File.OriginalName,
		c.File.ContentType, c.File.Size,
		priceMinor, interval, intervalCount,
		c.ProductID, c.PriceID, c.SigningURL,
		c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

// FindByID returns a contract by ID.
func (r *ContractRepository) FindByID(ctx context.Context, id string) (*domain.Contract, error) {
	row := r.db.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	c, err := scanContract(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find contract: %w", err)
	}
	return c, nil
}

// SetProduct records the billing product reference (billing stage).
func (r *ContractRepository) SetProduct(ctx context.Context, id, productID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE contracts SET product_id = $2, updated_at = NOW() WHERE id = $1`, id, productID)
	if err != nil {
		return fmt.Errorf("failed to set contract product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPrice records the billing price reference (billing stage).
func (r *ContractRepository) SetPrice(ctx context.Context, id, priceID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE contracts SET price_id = $2, updated_at = NOW() WHERE id = $1`, id, priceID)
	if err != nil {
		return fmt.Errorf("failed to set contract price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSigningURL records the embedded signing URL (signing stage).
func (r *ContractRepository) SetSigningURL(ctx context.Context, id, signingURL string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE contracts SET signing_url = $2, updated_at = NOW() WHERE id = $1`, id, signingURL)
	if err != nil {
		return fmt.Errorf("failed to set signing URL: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus sets the lifecycle status.
func (r *ContractRepository) UpdateStatus(ctx context.Context, id string, status domain.ContractStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE contracts SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update contract status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every contract, newest first.
func (r *ContractRepository) ListAll(ctx context.Context) ([]*domain.Contract, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+contractColumns+` FROM contracts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	return collectContracts(rows)
}

// ListByUserPattern returns contracts whose owning user id matches a
// case-insensitive substring pattern, excluding contracts owned by
// administrative accounts.
func (r *ContractRepository) ListByUserPattern(ctx context.Context, idPattern string) ([]*domain.Contract, error) {
	query := `
		SELECT ` + prefixColumns("c.", contractColumns) + `
		FROM contracts c
		JOIN users u ON u.id = c.user_id
		WHERE u.role <> 'ADMIN' AND c.user_id ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY c.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, escapeLike(idPattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts by user: %w", err)
	}
	defer rows.Close()

	return collectContracts(rows)
}

// escapeLike escapes LIKE wildcards so a caller-supplied pattern matches as
// a literal substring.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// prefixColumns qualifies each column in a comma-separated list with a table
// alias for use in joins.
func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func collectContracts(rows pgx.Rows) ([]*domain.Contract, error) {
	var contracts []*domain.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}
