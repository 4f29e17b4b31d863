package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRuleNotFound = errors.New("shipping rule not found")

type Repository interface {
	ActiveRulesForPincode(ctx context.Context, pincode int) ([]Rule, error)
	Create(ctx context.Context, rule *Rule) (int64, error)
	GetByID(ctx context.Context, id int64) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id int64) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const ruleColumns = `id, name, pincode_from, pincode_to, charge, min_order_value, priority, is_active, created_at, updated_at`

func scanRule(row pgx.Row) (*Rule, error) {
	var r Rule
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.PincodeFrom,
		&r.PincodeTo,
		&r.Charge,
		&r.MinOrderValue,
		&r.Priority,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *postgresRepository) ActiveRulesForPincode(ctx context.Context, pincode int) ([]Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM shipping_rules
		WHERE is_active = TRUE AND pincode_from <= $1 AND pincode_to >= $1
		ORDER BY priority DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, pincode)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query shipping rules for pincode %d: %w", pincode, err)
	}
	defer rows.Close()

	rules := make([]Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan shipping rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating shipping rules: %w", err)
	}

	return rules, nil
}

func (r *postgresRepository) Create(ctx context.Context, rule *Rule) (int64, error) {
	query := `
		INSERT INTO shipping_rules (name, pincode_from, pincode_to, charge, min_order_value, priority, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		rule.Name,
		rule.PincodeFrom,
		rule.PincodeTo,
		rule.Charge,
		rule.MinOrderValue,
		rule.Priority,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to insert shipping rule: %w", err)
	}

	return rule.ID, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM shipping_rules WHERE id = $1`

	rule, err := scanRule(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("repository: failed to select shipping rule %d: %w", id, err)
	}

	return rule, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM shipping_rules ORDER BY priority DESC, id DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list shipping rules: %w", err)
	}
	defer rows.Close()

	rules := make([]Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan shipping rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating shipping rules: %w", err)
	}

	return rules, nil
}

func (r *postgresRepository) Update(ctx context.Context, rule *Rule) error {
	query := `
		UPDATE shipping_rules
		SET name = $1, pincode_from = $2, pincode_to = $3, charge = $4,
		    min_order_value = $5, priority = $6, is_active = $7, updated_at = now()
		WHERE id = $8
	`

	cmdTag, err := r.db.Exec(ctx, query,
		rule.Name,
		rule.PincodeFrom,
		rule.PincodeTo,
		rule.Charge,
		rule.MinOrderValue,
		rule.Priority,
		rule.IsActive,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update shipping rule %d: %w", rule.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM shipping_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete shipping rule %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}

	return nil
}
