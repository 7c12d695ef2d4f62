package model

// Asset types. Target ledger rows use the same three values as asset classes.
const (
	AssetTypeSafe  = "safe"
	AssetTypeRisky = "risky"
	AssetTypeDebt  = "debt"
)

// AssetTypes is the fixed asset-type dimension used by the category caches.
var AssetTypes = []string{AssetTypeSafe, AssetTypeRisky, AssetTypeDebt}

// Instrument subtypes drive unrealized/realized profit attribution.
const (
	SubtypeOrdinaryDeposit   = "ordinary_deposit"
	SubtypeHybridDeposit     = "hybrid_deposit"
	SubtypeFixedDeposit      = "fixed_deposit"
	SubtypeStructuredDeposit = "structured_deposit"
	SubtypeMoneyMarket       = "money_market"
	SubtypeForeignCurrency   = "fx_deposit"
	SubtypeBond              = "bond"
	SubtypeEquity            = "equity"
	SubtypeFund              = "fund"
	SubtypeSecurityToken     = "security_token"
	SubtypeAnnuity           = "annuity"
	SubtypeDCPension         = "dc_pension"
	SubtypeSocialLending     = "social_lending"
	SubtypePooledDeposit     = "pooled_deposit"
	SubtypePoints            = "points"
	SubtypeLoan              = "loan"
)

// AssetClass is one asset taxonomy entry. An entry with an empty Type is
// pending: it was registered automatically and still needs classification.
type AssetClass struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Subtype  string `json:"subtype"`
	Account  string `json:"account"`
}

// Pending reports whether the entry lacks a classification.
func (a AssetClass) Pending() bool {
	return a.Type == "" && a.Category == "" && a.Subtype == ""
}

// Cash-flow dimensions.
const (
	FlowTypeGeneral = "general"
	FlowTypeSpecial = "special"

	FlowCategoryIncome  = "income"
	FlowCategoryExpense = "expense"
)

var (
	FlowTypes      = []string{FlowTypeGeneral, FlowTypeSpecial}
	FlowCategories = []string{FlowCategoryIncome, FlowCategoryExpense}
)

// CashFlowItem classifies one cash-flow ledger item.
type CashFlowItem struct {
	Item         string `json:"item"`
	FlowType     string `json:"flowType"`
	FlowCategory string `json:"flowCategory"`
}

// UnrealizedOffset is a static manual correction subtracted from an asset's
// unrealized profit.
type UnrealizedOffset struct {
	AssetID string
	Offset  float64
}
