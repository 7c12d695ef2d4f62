package model

import "time"

// Transaction is one row of the raw cash-flow export.
type Transaction struct {
	Date        time.Time
	Amount      float64
	Account     string
	Major       string
	Minor       string
	Description string
	Memo        string
}

// Field returns the named text column, used by classification rules.
func (t Transaction) Field(column string) string {
	switch column {
	case "account":
		return t.Account
	case "major":
		return t.Major
	case "minor":
		return t.Minor
	case "description":
		return t.Description
	case "memo":
		return t.Memo
	}
	return ""
}

// CashFlowRow is one (date, item) row of the cash-flow ledger. Amounts are
// signed: income positive, expense negative.
type CashFlowRow struct {
	Date         time.Time
	Item         string
	Actual       float64
	Target       float64
	FlowType     string
	FlowCategory string
}

// CashFlowLedger is the ordered, gap-free cash-flow ledger.
type CashFlowLedger struct {
	Rows []CashFlowRow
}

// Len returns the number of rows.
func (l CashFlowLedger) Len() int {
	return len(l.Rows)
}
