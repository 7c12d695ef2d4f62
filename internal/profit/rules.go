package profit

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Household-Ledger-Backend/internal/cashflow"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/taxonomy"
)

// unmatched logs a cash-flow line no asset could be found for.
func (r *Reconciler) unmatched(ruleName string, t model.Transaction, reference string) {
	r.log.WithFields(logrus.Fields{
		"rule":      ruleName,
		"date":      model.DateKey(t.Date),
		"account":   t.Account,
		"reference": reference,
		"amount":    t.Amount,
	}).Warn("No asset matches cash-flow line")
}

// depositRule nets interest and interest tax per (date, account) and books it
// on the account's deposit asset. Fixed-term deposits also book redemption
// gains.
func (r *Reconciler) depositRule(d DepositRule) rule {
	name := "deposit:" + d.Subtype + ":" + d.Interest
	return rule{name: name, claim: func(b *book) claims {
		type key struct {
			date    string
			account string
		}
		net := make(map[key]float64)
		first := make(map[key]model.Transaction)
		for _, label := range []string{d.Interest, d.Tax} {
			for _, t := range b.linesWithMinor(label) {
				k := key{date: model.DateKey(t.Date), account: t.Account}
				if _, ok := first[k]; !ok {
					first[k] = t
				}
				net[k] += t.Amount
			}
		}

		keys := make([]key, 0, len(net))
		for k := range net {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].date != keys[j].date {
				return keys[i].date < keys[j].date
			}
			return keys[i].account < keys[j].account
		})

		out := make(claims)
		for _, k := range keys {
			t, amount := first[k], net[k]
			id, ok := r.tax.FindAsset(k.account, d.Keyword, d.Subtype)
			if !ok {
				r.unmatched(name, t, d.Keyword)
				continue
			}
			out.add(t.Date, id, amount)
		}

		if d.Subtype == model.SubtypeFixedDeposit {
			r.claimRedemptions(b, name, d, out)
		}
		return out
	}}
}

// claimRedemptions books redemption inflow minus principal. The principal is
// read from the memo, or else from the acquisition cost drop on that day.
func (r *Reconciler) claimRedemptions(b *book, name string, d DepositRule, out claims) {
	for _, t := range b.linesWithMinor(r.settings.Redemption) {
		id, ok := r.redemptionAsset(t, d)
		if !ok {
			r.unmatched(name, t, t.Description)
			continue
		}

		principal, ok := parseAmount(t.Memo)
		if !ok {
			principal, ok = b.acquisitionDrop(t.Date, id)
		}
		if !ok {
			r.unmatched(name, t, "principal")
			continue
		}
		out.add(t.Date, id, t.Amount-principal)
	}
}

func (r *Reconciler) redemptionAsset(t model.Transaction, d DepositRule) (string, bool) {
	for _, c := range r.settings.RedemptionCodes {
		if taxonomy.Fold(c.Account) == taxonomy.Fold(t.Account) &&
			strings.Contains(taxonomy.Fold(t.Description), taxonomy.Fold(c.Code)) {
			return c.AssetID, true
		}
	}
	return r.tax.FindAsset(t.Account, d.Keyword, d.Subtype)
}

// acquisitionDrop returns the previous day's acquisition cost minus d's.
func (b *book) acquisitionDrop(d time.Time, assetID string) (float64, bool) {
	cur, ok := b.row(d, assetID)
	if !ok {
		return 0, false
	}
	prev, ok := b.row(d.AddDate(0, 0, -1), assetID)
	if !ok {
		return 0, false
	}
	return prev.AcquisitionCost - cur.AcquisitionCost, true
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(taxonomy.Fold(s)), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return v.InexactFloat64(), true
}

// claimDiff books the day-over-day value change of cash-like instruments
// when it is below the noise threshold. The first row of each asset is zero.
func (r *Reconciler) claimDiff(b *book) claims {
	out := make(claims)
	for id, idx := range b.byAsset {
		if !contains(diffSubtypes, b.rows[idx[0]].Subtype) {
			continue
		}
		for n, i := range idx {
			row := b.rows[i]
			if n == 0 {
				out.add(row.Date, id, 0)
				continue
			}
			change := row.Value - b.rows[idx[n-1]].Value
			if math.Abs(change) >= r.settings.NoiseThreshold {
				change = 0
			}
			out.add(row.Date, id, change)
		}
	}
	return out
}

// claimCoupons books coupon lines on the bond whose identifier contains the
// line's description.
func (r *Reconciler) claimCoupons(b *book) claims {
	out := make(claims)
	for _, t := range b.linesWithMinor(r.settings.Coupon) {
		id, ok := r.tax.FindAsset("", t.Description, model.SubtypeBond)
		if !ok {
			r.unmatched("bond-coupon", t, t.Description)
			continue
		}
		out.add(t.Date, id, t.Amount)
	}
	return out
}

// claimDividendsAndCapital books dividends by memo keyword and, on days when
// acquisition cost falls by more than the materiality threshold, the share
// of the previous day's unrealized profit proportional to the cost removed.
// The capital term is a heuristic: brokers do not report the realized gain.
func (r *Reconciler) claimDividendsAndCapital(b *book) claims {
	out := make(claims)
	for _, t := range b.linesWithMinor(r.settings.Dividend) {
		id, ok := r.tax.FindAsset("", t.Memo, dividendSubtypes...)
		if !ok {
			r.unmatched("dividend-capital", t, t.Memo)
			continue
		}
		out.add(t.Date, id, t.Amount)
	}

	for _, id := range r.tax.WithSubtype(capitalSubtypes...) {
		class, _ := r.tax.Asset(id)
		if containsAny(class.Account, r.settings.Exclusions.CapitalAccounts) {
			continue
		}
		idx := b.byAsset[id]
		for n := 1; n < len(idx); n++ {
			prev, cur := b.rows[idx[n-1]], b.rows[idx[n]]
			change := cur.AcquisitionCost - prev.AcquisitionCost
			if change >= -r.settings.MaterialityThreshold || prev.AcquisitionCost == 0 {
				continue
			}
			gain := model.OrZero(prev.Unrealized) * math.Abs(change/prev.AcquisitionCost)
			out.add(cur.Date, id, gain)
		}
	}
	return out
}

// claimP2P recovers platform profit from the identity
// invested + pooled balance − cumulative net transfers, differenced daily,
// and books it on the platform's pooled deposit asset.
func (r *Reconciler) claimP2P(b *book) claims {
	out := make(claims)
	for _, account := range r.p2pAccounts() {
		pooled := r.pooledAssets(account)
		if len(pooled) == 0 {
			r.log.WithField("account", account).Warn("No pooled deposit asset registered for platform account")
			continue
		}

		invested := make(map[string]float64)
		balance := make(map[string]float64)
		var dates []time.Time
		for _, row := range b.rows {
			if row.AssetID == "" {
				continue
			}
			key := model.DateKey(row.Date)
			if contains(investedSubtypes, row.Subtype) && containsAny(row.Account, []string{account}) {
				if _, seen := invested[key]; !seen {
					dates = append(dates, row.Date)
				}
				invested[key] += row.Value
			}
			if contains(pooled, row.AssetID) {
				balance[key] += row.Value
			}
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		moves := r.transfers(account, b.txns)
		var cumulative, prevLevel float64
		next := 0
		for n, d := range dates {
			for next < len(moves) && !moves[next].date.After(d) {
				cumulative += moves[next].amount
				next++
			}
			key := model.DateKey(d)
			level := invested[key] + balance[key] - cumulative
			if n > 0 {
				out.add(d, pooled[0], level-prevLevel)
			} else {
				out.add(d, pooled[0], 0)
			}
			prevLevel = level
		}
	}
	return out
}

// p2pAccounts lists the platform accounts holding invested subtypes.
func (r *Reconciler) p2pAccounts() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range r.tax.WithSubtype(investedSubtypes...) {
		class, _ := r.tax.Asset(id)
		if class.Account == "" || containsAny(class.Account, r.settings.Exclusions.P2PAccounts) {
			continue
		}
		if _, ok := seen[class.Account]; !ok {
			seen[class.Account] = struct{}{}
			out = append(out, class.Account)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Reconciler) pooledAssets(account string) []string {
	var out []string
	for _, id := range r.tax.WithSubtype(model.SubtypePooledDeposit) {
		class, _ := r.tax.Asset(id)
		if containsAny(class.Account, []string{account}) {
			out = append(out, id)
		}
	}
	return out
}

type move struct {
	date   time.Time
	amount float64
}

// transfers returns the signed net transfers into the platform, by date.
func (r *Reconciler) transfers(account string, txns []model.Transaction) []move {
	conditions := []Transfer{{
		When: cashflow.Condition{"account": account, "minor": "Transfer"},
		Sign: 1,
	}}
	for _, p := range r.settings.P2P {
		if p.Account == account && len(p.Transfers) > 0 {
			conditions = p.Transfers
			break
		}
	}

	var out []move
	for _, t := range txns {
		for _, c := range conditions {
			if !c.When.Matches(t) {
				continue
			}
			sign := c.Sign
			if sign == 0 {
				sign = 1
			}
			out = append(out, move{date: model.Day(t.Date), amount: sign * t.Amount})
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}
