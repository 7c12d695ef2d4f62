package cashflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/taxonomy"
)

// Columns a condition may test.
var Columns = []string{"account", "major", "minor", "description", "memo"}

// Condition maps column names to substrings. A transaction satisfies the
// condition when every listed column contains its substring.
type Condition map[string]string

// Matches reports whether t satisfies every term of c. An empty condition
// matches nothing.
func (c Condition) Matches(t model.Transaction) bool {
	if len(c) == 0 {
		return false
	}
	for column, substr := range c {
		if !strings.Contains(taxonomy.Fold(t.Field(column)), taxonomy.Fold(substr)) {
			return false
		}
	}
	return true
}

// Rule assigns transactions to a cash-flow item. A transaction matches the
// rule when any one of its conditions holds.
type Rule struct {
	Item       string      `yaml:"item"`
	Conditions []Condition `yaml:"conditions"`
}

// Matches reports whether any condition of r holds for t.
func (r Rule) Matches(t model.Transaction) bool {
	for _, c := range r.Conditions {
		if c.Matches(t) {
			return true
		}
	}
	return false
}

// Classify returns the item of the first rule matching t.
func Classify(rules []Rule, t model.Transaction) (string, bool) {
	for _, r := range rules {
		if r.Matches(t) {
			return r.Item, true
		}
	}
	return "", false
}

// ValidateRules checks that every rule names an item and only known columns.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		if r.Item == "" {
			return fmt.Errorf("rule %d: item is required", i)
		}
		if len(r.Conditions) == 0 {
			return fmt.Errorf("rule %d (%s): at least one condition is required", i, r.Item)
		}
		for _, c := range r.Conditions {
			for column := range c {
				if !knownColumn(column) {
					return fmt.Errorf("rule %d (%s): unknown column %q", i, r.Item, column)
				}
			}
		}
	}
	return nil
}

// unclassifiedItems returns the rule and target items that have no taxonomy
// entry, sorted and distinct.
func unclassifiedItems(rules []Rule, targets []model.CashFlowRow, tax *taxonomy.Taxonomy) error {
	seen := make(map[string]struct{})
	var missing []string
	check := func(item string) {
		if _, ok := tax.Item(item); ok {
			return
		}
		if _, dup := seen[item]; dup {
			return
		}
		seen[item] = struct{}{}
		missing = append(missing, item)
	}
	for _, r := range rules {
		check(r.Item)
	}
	for _, t := range targets {
		check(t.Item)
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &apperrors.ContinuityError{Stage: Stage, Identifiers: missing}
}

func knownColumn(column string) bool {
	for _, c := range Columns {
		if c == column {
			return true
		}
	}
	return false
}
