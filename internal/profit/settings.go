package profit

import (
	"github.com/ndewijer/Household-Ledger-Backend/internal/cashflow"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
)

// Default thresholds.
const (
	DefaultNoiseThreshold       = 2000
	DefaultMaterialityThreshold = 5
)

// Settings configures the realized and unrealized profit rules.
type Settings struct {
	// NoiseThreshold bounds day-over-day changes of cash-like instruments that
	// count as profit. Larger changes are treated as transfers.
	NoiseThreshold float64 `yaml:"noise_threshold"`
	// MaterialityThreshold is the smallest acquisition cost drop treated as a sale.
	MaterialityThreshold float64 `yaml:"materiality_threshold"`

	Deposits        []DepositRule    `yaml:"deposits"`
	Redemption      string           `yaml:"redemption"`
	RedemptionCodes []RedemptionCode `yaml:"redemption_codes"`
	Coupon          string           `yaml:"coupon"`
	Dividend        string           `yaml:"dividend"`

	Exclusions Exclusions   `yaml:"exclusions"`
	P2P        []P2PAccount `yaml:"p2p"`
}

// DepositRule matches interest and interest-tax lines of one deposit kind by
// their minor category and attributes them to the account's deposit asset
// whose identifier contains Keyword.
type DepositRule struct {
	Subtype  string `yaml:"subtype"`
	Interest string `yaml:"interest"`
	Tax      string `yaml:"tax"`
	Keyword  string `yaml:"keyword"`
}

// RedemptionCode routes fixed-term redemption lines of Account whose
// description contains Code to AssetID.
type RedemptionCode struct {
	Account string `yaml:"account"`
	Code    string `yaml:"code"`
	AssetID string `yaml:"asset"`
}

// Exclusions list accounts and assets that opt out of specific rules. Account
// entries match by substring.
type Exclusions struct {
	UnrealizedAccounts []string `yaml:"unrealized_accounts"`
	UnrealizedAssets   []string `yaml:"unrealized_assets"`
	CapitalAccounts    []string `yaml:"capital_accounts"`
	P2PAccounts        []string `yaml:"p2p_accounts"`
}

// P2PAccount overrides how net transfers into a peer-to-peer platform
// account are recognized. Each matching transaction adds Sign × amount.
type P2PAccount struct {
	Account   string     `yaml:"account"`
	Transfers []Transfer `yaml:"transfers"`
}

// Transfer is one transfer recognition condition.
type Transfer struct {
	When cashflow.Condition `yaml:"when"`
	Sign float64            `yaml:"sign"`
}

// DefaultSettings returns the settings used when the policy omits a field.
func DefaultSettings() Settings {
	return Settings{
		NoiseThreshold:       DefaultNoiseThreshold,
		MaterialityThreshold: DefaultMaterialityThreshold,
		Deposits: []DepositRule{
			{Subtype: model.SubtypeOrdinaryDeposit, Interest: "Interest:Ordinary", Tax: "Tax:Ordinary", Keyword: "Ordinary"},
			{Subtype: model.SubtypeHybridDeposit, Interest: "Interest:Hybrid", Tax: "Tax:Hybrid", Keyword: "Hybrid"},
			{Subtype: model.SubtypeFixedDeposit, Interest: "Interest:FixedTerm", Tax: "Tax:FixedTerm", Keyword: "Fixed"},
			{Subtype: model.SubtypeStructuredDeposit, Interest: "Interest:Structured", Tax: "Tax:Structured", Keyword: "Structured"},
		},
		Redemption: "Redemption:FixedTerm",
		Coupon:     "Interest:Coupon",
		Dividend:   "Dividend",
	}
}

// WithDefaults fills zero fields of s from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.NoiseThreshold == 0 {
		s.NoiseThreshold = d.NoiseThreshold
	}
	if s.MaterialityThreshold == 0 {
		s.MaterialityThreshold = d.MaterialityThreshold
	}
	if s.Deposits == nil {
		s.Deposits = d.Deposits
	}
	if s.Redemption == "" {
		s.Redemption = d.Redemption
	}
	if s.Coupon == "" {
		s.Coupon = d.Coupon
	}
	if s.Dividend == "" {
		s.Dividend = d.Dividend
	}
	return s
}

// unrealizedSubtypes carry a meaningful acquisition cost.
var unrealizedSubtypes = []string{
	model.SubtypeEquity,
	model.SubtypeFund,
	model.SubtypeAnnuity,
	model.SubtypeDCPension,
	model.SubtypeSecurityToken,
}

// diffSubtypes have no acquisition cost; their value change is their profit.
var diffSubtypes = []string{model.SubtypeMoneyMarket, model.SubtypeForeignCurrency}

var (
	dividendSubtypes = []string{model.SubtypeEquity, model.SubtypeSecurityToken}
	capitalSubtypes  = []string{model.SubtypeEquity, model.SubtypeFund, model.SubtypeSecurityToken}
	investedSubtypes = []string{model.SubtypeSocialLending, model.SubtypeSecurityToken}
)
