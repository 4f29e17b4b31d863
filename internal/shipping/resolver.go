package shipping

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Resolver computes the shipping charge for a pincode and order subtotal.
// It is read-only over the rule table and safe to call concurrently.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the charge and the applied rule snapshot. No matching
// active rule means free shipping by policy: zero charge, nil rule. A rule
// whose min_order_value is met waives the charge but is still reported as
// the applied rule.
func (r *Resolver) Resolve(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *AppliedRule, error) {
	rules, err := r.repo.ActiveRulesForPincode(ctx, pincode)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("resolver: failed to fetch rules for pincode %d: %w", pincode, err)
	}

	rule := bestRule(rules)
	if rule == nil {
		return decimal.Zero, nil, nil
	}

	charge := rule.Charge
	if rule.MinOrderValue != nil && subtotal.GreaterThanOrEqual(*rule.MinOrderValue) {
		charge = decimal.Zero
	}

	return charge, rule.snapshot(), nil
}

// bestRule picks the winner among matching rules: highest priority, ties
// broken by highest id. Deterministic regardless of input order.
func bestRule(rules []Rule) *Rule {
	var best *Rule
	for i := range rules {
		r := &rules[i]
		if best == nil || r.Priority > best.Priority || (r.Priority == best.Priority && r.ID > best.ID) {
			best = r
		}
	}
	return best
}
