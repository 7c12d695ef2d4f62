package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/cashflow"
	"github.com/ndewijer/Household-Ledger-Backend/internal/continuity"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/profit"
)

// Date is a calendar date written as YYYY-MM-DD in the policy file.
type Date struct {
	time.Time
}

// UnmarshalYAML parses a YYYY-MM-DD scalar.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: date must be a scalar", node.Line)
	}
	if node.Value == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(model.DateLayout, node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid date %q: %w", node.Line, node.Value, err)
	}
	d.Time = t
	return nil
}

// Policy is the household's financial policy: the initial state, the rate
// and allocation assumptions, the planned cash flows and the rules that
// classify and reconcile actual data.
type Policy struct {
	Simulation     SimulationPolicy       `yaml:"simulation"`
	Rates          map[string][]RatePoint `yaml:"rates"`
	PlannedFlows   []FlowPolicy           `yaml:"planned_flows"`
	LoanItems      []string               `yaml:"loan_items"`
	Classification []cashflow.Rule        `yaml:"classification"`
	Profit         profit.Settings        `yaml:"profit"`
	Pensions       []PensionPolicy        `yaml:"pensions"`
}

// SimulationPolicy holds the simulation start and initial balances. An empty
// End simulates up to the latest known date.
type SimulationPolicy struct {
	Start        Date    `yaml:"start"`
	End          Date    `yaml:"end"`
	InitialAsset float64 `yaml:"initial_asset"`
	InitialLoan  float64 `yaml:"initial_loan"`
}

// RatePoint is one control point of a rate series.
type RatePoint struct {
	Date  Date    `yaml:"date"`
	Value float64 `yaml:"value"`
}

// FlowPolicy is a planned recurring cash flow.
type FlowPolicy struct {
	Item   string  `yaml:"item"`
	Amount float64 `yaml:"amount"`
	Repeat string  `yaml:"repeat"`
	Start  Date    `yaml:"start"`
	End    Date    `yaml:"end"`
	Month  int     `yaml:"month"`
	Day    int     `yaml:"day"`
	Date   Date    `yaml:"date"`
}

// PensionPolicy is an annuity contract accrued from monthly contributions.
type PensionPolicy struct {
	Asset               string  `yaml:"asset"`
	Start               Date    `yaml:"start"`
	MonthlyContribution float64 `yaml:"monthly_contribution"`
	AnnualRate          float64 `yaml:"annual_rate"`
}

// LoadPolicy reads and validates the policy file at path. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Policy
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidPolicy, err)
	}

	p.Profit = p.Profit.WithDefaults()
	for i := range p.PlannedFlows {
		if p.PlannedFlows[i].Repeat == "" {
			p.PlannedFlows[i].Repeat = model.RepeatMonthly
		}
		if p.PlannedFlows[i].Day == 0 {
			p.PlannedFlows[i].Day = 1
		}
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidPolicy, err)
	}
	return &p, nil
}

func (p *Policy) validate() error {
	if p.Simulation.Start.IsZero() {
		return errors.New("simulation.start is required")
	}
	if !p.Simulation.End.IsZero() && p.Simulation.End.Before(p.Simulation.Start.Time) {
		return fmt.Errorf("simulation.end %s is before simulation.start %s",
			model.DateKey(p.Simulation.End.Time), model.DateKey(p.Simulation.Start.Time))
	}
	if p.Simulation.InitialLoan > 0 {
		return errors.New("simulation.initial_loan must be zero or negative")
	}

	for _, name := range []string{model.RateRiskyRatio, model.RateSafeYield, model.RateRiskyYield, model.RateLoan} {
		if len(p.Rates[name]) == 0 {
			return fmt.Errorf("rates.%s needs at least one control point", name)
		}
	}
	for name := range p.Rates {
		switch name {
		case model.RateRiskyRatio, model.RateSafeYield, model.RateRiskyYield, model.RateLoan:
		default:
			return fmt.Errorf("unknown rate series %q", name)
		}
	}
	for _, pt := range p.Rates[model.RateRiskyRatio] {
		if pt.Value < 0 || pt.Value > 1 {
			return fmt.Errorf("rates.%s: ratio %v on %s is outside [0, 1]",
				model.RateRiskyRatio, pt.Value, model.DateKey(pt.Date.Time))
		}
	}

	for i, f := range p.PlannedFlows {
		if f.Item == "" {
			return fmt.Errorf("planned_flows[%d]: item is required", i)
		}
		switch f.Repeat {
		case model.RepeatMonthly, model.RepeatAnnually, model.RepeatEvery2Years, model.RepeatEvery3Years:
			if f.Start.IsZero() {
				return fmt.Errorf("planned_flows[%d] (%s): start is required", i, f.Item)
			}
		case model.RepeatSpecificDate:
			if f.Date.IsZero() {
				return fmt.Errorf("planned_flows[%d] (%s): date is required for %s", i, f.Item, f.Repeat)
			}
		default:
			return fmt.Errorf("planned_flows[%d] (%s): unknown repeat %q", i, f.Item, f.Repeat)
		}
		if f.Day < 1 || f.Day > 31 {
			return fmt.Errorf("planned_flows[%d] (%s): day %d is outside 1..31", i, f.Item, f.Day)
		}
		if f.Repeat != model.RepeatMonthly && f.Repeat != model.RepeatSpecificDate && (f.Month < 1 || f.Month > 12) {
			return fmt.Errorf("planned_flows[%d] (%s): month %d is outside 1..12", i, f.Item, f.Month)
		}
	}

	if err := cashflow.ValidateRules(p.Classification); err != nil {
		return fmt.Errorf("classification: %w", err)
	}

	for i, pen := range p.Pensions {
		if pen.Start.IsZero() {
			return fmt.Errorf("pensions[%d]: start is required", i)
		}
	}
	return nil
}

// SimulationRange returns the simulated date range, ending at latest unless
// the policy fixes an end date.
func (p *Policy) SimulationRange(latest time.Time) model.DateRange {
	end := latest
	if !p.Simulation.End.IsZero() {
		end = p.Simulation.End.Time
	}
	return model.NewDateRange(p.Simulation.Start.Time, end)
}

// RateSchedule returns the yield and loan rate series.
func (p *Policy) RateSchedule() model.RateSchedule {
	out := make(model.RateSchedule, len(p.Rates))
	for name, pts := range p.Rates {
		if name == model.RateRiskyRatio {
			continue
		}
		out[name] = controlPoints(pts)
	}
	return out
}

// AllocationSchedule returns the risky allocation ratio series.
func (p *Policy) AllocationSchedule() model.AllocationSchedule {
	return model.AllocationSchedule(controlPoints(p.Rates[model.RateRiskyRatio]))
}

func controlPoints(pts []RatePoint) []model.ControlPoint {
	out := make([]model.ControlPoint, len(pts))
	for i, pt := range pts {
		out[i] = model.ControlPoint{Date: pt.Date.Time, Value: pt.Value}
	}
	return out
}

// Flows returns the planned flows for target.ExpandFlows.
func (p *Policy) Flows() []model.PlannedFlow {
	out := make([]model.PlannedFlow, len(p.PlannedFlows))
	for i, f := range p.PlannedFlows {
		out[i] = model.PlannedFlow{
			Item:     f.Item,
			Amount:   f.Amount,
			Repeat:   f.Repeat,
			Start:    f.Start.Time,
			End:      f.End.Time,
			Month:    f.Month,
			Day:      f.Day,
			Specific: f.Date.Time,
		}
	}
	return out
}

// PensionContracts returns the annuity contracts for continuity.Fill.
func (p *Policy) PensionContracts() []continuity.PensionContract {
	out := make([]continuity.PensionContract, len(p.Pensions))
	for i, pen := range p.Pensions {
		out[i] = continuity.PensionContract{
			AssetID:             pen.Asset,
			Start:               pen.Start.Time,
			MonthlyContribution: pen.MonthlyContribution,
			AnnualRate:          pen.AnnualRate,
		}
	}
	return out
}
