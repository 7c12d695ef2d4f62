// Package profit attributes realized and unrealized profit to every row of
// the gap-free asset ledger and accumulates total return.
package profit

import (
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/taxonomy"
)

// Stage is the name reported in errors raised by Reconcile.
const Stage = "profit"

// Reconciler applies the profit rules with a fixed taxonomy, offset table and
// settings.
type Reconciler struct {
	tax      *taxonomy.Taxonomy
	offsets  map[string]float64
	settings Settings
	log      logrus.FieldLogger
}

// NewReconciler creates a Reconciler. A nil logger discards unmatched-line
// warnings.
func NewReconciler(tax *taxonomy.Taxonomy, offsets []model.UnrealizedOffset, settings Settings, log logrus.FieldLogger) *Reconciler {
	byAsset := make(map[string]float64, len(offsets))
	for _, o := range offsets {
		byAsset[o.AssetID] += o.Offset
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Reconciler{
		tax:      tax,
		offsets:  byAsset,
		settings: settings.WithDefaults(),
		log:      log,
	}
}

// claims holds one rule's realized profit per ledger cell.
type claims map[model.LedgerKey]float64

func (c claims) add(d time.Time, assetID string, amount float64) {
	c[model.LedgerKey{Date: model.DateKey(d), AssetID: assetID}] += amount
}

// keys returns the claimed cells in (date, asset) order.
func (c claims) keys() []model.LedgerKey {
	out := make([]model.LedgerKey, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].AssetID < out[j].AssetID
	})
	return out
}

type rule struct {
	name  string
	claim func(*book) claims
}

// book indexes the ledger for the rules.
type book struct {
	rows    []model.LedgerRow
	byKey   map[model.LedgerKey]int
	byAsset map[string][]int
	txns    []model.Transaction
}

func newBook(rows []model.LedgerRow, txns []model.Transaction) *book {
	b := &book{
		rows:    rows,
		byKey:   make(map[model.LedgerKey]int, len(rows)),
		byAsset: make(map[string][]int),
		txns:    txns,
	}
	for i, r := range rows {
		if r.AssetID == "" {
			continue
		}
		b.byKey[r.Key()] = i
		b.byAsset[r.AssetID] = append(b.byAsset[r.AssetID], i)
	}
	for _, idx := range b.byAsset {
		sort.SliceStable(idx, func(i, j int) bool { return rows[idx[i]].Date.Before(rows[idx[j]].Date) })
	}
	return b
}

// row returns the ledger row of asset on d.
func (b *book) row(d time.Time, assetID string) (model.LedgerRow, bool) {
	i, ok := b.byKey[model.LedgerKey{Date: model.DateKey(d), AssetID: assetID}]
	if !ok {
		return model.LedgerRow{}, false
	}
	return b.rows[i], true
}

// linesWithMinor returns the transactions whose minor category contains label.
func (b *book) linesWithMinor(label string) []model.Transaction {
	if label == "" {
		return nil
	}
	label = taxonomy.Fold(label)
	var out []model.Transaction
	for _, t := range b.txns {
		if strings.Contains(taxonomy.Fold(t.Minor), label) {
			out = append(out, t)
		}
	}
	return out
}

// Reconcile returns a copy of ledger with Unrealized, Realized and TotalReturn
// recomputed for every identified row.
//
// Realized profit is collected from the rules in this order: deposits,
// cash-like value changes, bond coupons, dividends with capital gains, then
// peer-to-peer platforms. Each rule produces claims per (date, asset); claims
// from different rules for the same cell are an error rather than an
// overwrite. Claims for cells missing from the ledger are dropped.
//
// Rows without an identifier keep their realized and unrealized values. Debt
// rows are left blank. Every other row gets blank fields set to zero and a
// total return equal to the running sum of realized profit in its group plus
// the current unrealized profit.
//
// Returns a *apperrors.ReconciliationAmbiguity when two rules claim one cell.
func (r *Reconciler) Reconcile(ledger model.Ledger, txns []model.Transaction) (model.Ledger, error) {
	out := ledger.Clone()
	rows := out.Rows
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	for i := range rows {
		if rows[i].AssetID == "" {
			continue
		}
		rows[i].Realized = model.Blank()
		rows[i].Unrealized = model.Blank()
		rows[i].TotalReturn = model.Blank()
	}

	r.setUnrealized(rows)

	b := newBook(rows, txns)
	merged := make(map[model.LedgerKey]string)
	for _, rl := range r.rules() {
		claimed := rl.claim(b)
		for _, key := range claimed.keys() {
			i, ok := b.byKey[key]
			if !ok {
				continue
			}
			if first, taken := merged[key]; taken {
				return model.Ledger{}, &apperrors.ReconciliationAmbiguity{
					Date:    key.Date,
					AssetID: key.AssetID,
					First:   first,
					Second:  rl.name,
				}
			}
			merged[key] = rl.name
			rows[i].Realized = claimed[key]
		}
	}

	setTotalReturns(rows)
	sortLedger(rows)
	return out, nil
}

func (r *Reconciler) rules() []rule {
	var out []rule
	for _, d := range r.settings.Deposits {
		out = append(out, r.depositRule(d))
	}
	return append(out,
		rule{name: "cash-diff", claim: r.claimDiff},
		rule{name: "bond-coupon", claim: r.claimCoupons},
		rule{name: "dividend-capital", claim: r.claimDividendsAndCapital},
		rule{name: "p2p", claim: r.claimP2P},
	)
}

// setUnrealized applies value − acquisition cost − offset to instruments with
// a non-zero acquisition cost that are not excluded.
func (r *Reconciler) setUnrealized(rows []model.LedgerRow) {
	ex := r.settings.Exclusions
	for i := range rows {
		row := &rows[i]
		if row.AssetID == "" || row.AcquisitionCost == 0 || !contains(unrealizedSubtypes, row.Subtype) {
			continue
		}
		if containsAny(row.Account, ex.UnrealizedAccounts) || contains(ex.UnrealizedAssets, row.AssetID) {
			continue
		}
		row.Unrealized = row.Value - row.AcquisitionCost - r.offsets[row.AssetID]
	}
}

// setTotalReturns expects rows in date order.
func setTotalReturns(rows []model.LedgerRow) {
	running := make(map[string]float64)
	for i := range rows {
		row := &rows[i]
		if row.Type == model.AssetTypeDebt {
			row.Realized = model.Blank()
			row.Unrealized = model.Blank()
			row.TotalReturn = model.Blank()
			continue
		}
		row.Realized = model.OrZero(row.Realized)
		row.Unrealized = model.OrZero(row.Unrealized)

		group := row.AssetID
		if group == "" {
			group = "subtype:" + row.Subtype
		}
		running[group] += row.Realized
		row.TotalReturn = running[group] + row.Unrealized
	}
}

func sortLedger(rows []model.LedgerRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.AssetID != b.AssetID {
			return a.AssetID < b.AssetID
		}
		return a.Subtype < b.Subtype
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, substrings []string) bool {
	s = taxonomy.Fold(s)
	for _, sub := range substrings {
		if sub != "" && strings.Contains(s, taxonomy.Fold(sub)) {
			return true
		}
	}
	return false
}
