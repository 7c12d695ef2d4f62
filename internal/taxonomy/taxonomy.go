// Package taxonomy holds the immutable reference snapshot that classifies
// asset identifiers and cash-flow items.
//
// A Taxonomy value is never mutated after construction. Register returns a
// new snapshot so every pipeline stage can share one value without locking.
package taxonomy

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// Taxonomy maps asset identifiers to their classification and cash-flow
// items to their flow type and category.
type Taxonomy struct {
	assets   map[string]assetEntry
	assetIDs []string
	items    map[string]itemEntry
	itemIDs  []string
}

type assetEntry struct {
	class model.AssetClass
	// folded copies used by FindAsset
	name    string
	account string
}

type itemEntry struct {
	item model.CashFlowItem
}

// New builds a snapshot. Later duplicates of an identifier replace earlier ones.
func New(assets []model.AssetClass, items []model.CashFlowItem) *Taxonomy {
	t := &Taxonomy{
		assets: make(map[string]assetEntry, len(assets)),
		items:  make(map[string]itemEntry, len(items)),
	}
	for _, a := range assets {
		if a.ID == "" {
			continue
		}
		t.assets[a.ID] = assetEntry{class: a, name: Fold(a.ID), account: Fold(a.Account)}
	}
	for _, it := range items {
		if it.Item == "" {
			continue
		}
		t.items[it.Item] = itemEntry{item: it}
	}
	t.reindex()
	return t
}

func (t *Taxonomy) reindex() {
	t.assetIDs = make([]string, 0, len(t.assets))
	for id := range t.assets {
		t.assetIDs = append(t.assetIDs, id)
	}
	sort.Strings(t.assetIDs)

	t.itemIDs = make([]string, 0, len(t.items))
	for id := range t.items {
		t.itemIDs = append(t.itemIDs, id)
	}
	sort.Strings(t.itemIDs)
}

// Asset returns the entry for id.
func (t *Taxonomy) Asset(id string) (model.AssetClass, bool) {
	e, ok := t.assets[id]
	return e.class, ok
}

// Item returns the entry for a cash-flow item.
func (t *Taxonomy) Item(item string) (model.CashFlowItem, bool) {
	e, ok := t.items[item]
	return e.item, ok
}

// AssetIDs returns every registered identifier in ascending order.
func (t *Taxonomy) AssetIDs() []string {
	out := make([]string, len(t.assetIDs))
	copy(out, t.assetIDs)
	return out
}

// Assets returns every asset entry ordered by identifier.
func (t *Taxonomy) Assets() []model.AssetClass {
	out := make([]model.AssetClass, 0, len(t.assetIDs))
	for _, id := range t.assetIDs {
		out = append(out, t.assets[id].class)
	}
	return out
}

// Items returns every cash-flow item entry ordered by name.
func (t *Taxonomy) Items() []model.CashFlowItem {
	out := make([]model.CashFlowItem, 0, len(t.itemIDs))
	for _, id := range t.itemIDs {
		out = append(out, t.items[id].item)
	}
	return out
}

// Pending returns the entries still waiting for a classification.
func (t *Taxonomy) Pending() []model.AssetClass {
	var out []model.AssetClass
	for _, id := range t.assetIDs {
		if c := t.assets[id].class; c.Pending() {
			out = append(out, c)
		}
	}
	return out
}

// Missing returns the distinct identifiers in ids that have no entry, sorted.
func (t *Taxonomy) Missing(ids []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range ids {
		if _, ok := t.assets[id]; ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Register returns a new snapshot containing blank entries for every unknown
// identifier in ids, along with the identifiers that were added. The receiver
// is left untouched. When nothing is new the receiver itself is returned.
func (t *Taxonomy) Register(ids []string) (*Taxonomy, []string) {
	added := t.Missing(ids)
	if len(added) == 0 {
		return t, nil
	}

	next := &Taxonomy{
		assets: make(map[string]assetEntry, len(t.assets)+len(added)),
		items:  t.items,
	}
	for id, e := range t.assets {
		next.assets[id] = e
	}
	for _, id := range added {
		next.assets[id] = assetEntry{class: model.AssetClass{ID: id}, name: Fold(id)}
	}
	next.reindex()
	return next, added
}

// Types returns the distinct non-empty asset types in the snapshot, sorted.
func (t *Taxonomy) Types() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range t.assets {
		if e.class.Type == "" {
			continue
		}
		if _, ok := seen[e.class.Type]; !ok {
			seen[e.class.Type] = struct{}{}
			out = append(out, e.class.Type)
		}
	}
	sort.Strings(out)
	return out
}

// WithSubtype returns the identifiers whose subtype is one of subtypes.
func (t *Taxonomy) WithSubtype(subtypes ...string) []string {
	var out []string
	for _, id := range t.assetIDs {
		if contains(subtypes, t.assets[id].class.Subtype) {
			out = append(out, id)
		}
	}
	return out
}

// FindAsset resolves a free-text reference from a transaction to an asset
// identifier. The identifier must contain keyword; when account is non-empty
// the entry's account must contain it too. subtypes, when given, restrict the
// candidates. The first match in identifier order wins.
func (t *Taxonomy) FindAsset(account, keyword string, subtypes ...string) (string, bool) {
	keyword = Fold(strings.TrimSpace(keyword))
	if keyword == "" {
		return "", false
	}
	account = Fold(strings.TrimSpace(account))

	for _, id := range t.assetIDs {
		e := t.assets[id]
		if len(subtypes) > 0 && !contains(subtypes, e.class.Subtype) {
			continue
		}
		if !strings.Contains(e.name, keyword) {
			continue
		}
		if account != "" && !strings.Contains(e.account, account) {
			continue
		}
		return id, true
	}
	return "", false
}

// Fold normalizes s for substring matching: canonical composition followed
// by width folding, so full-width digits and letters match their ASCII forms.
func Fold(s string) string {
	return width.Fold.String(norm.NFC.String(s))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
