// Package rebate computes federal and state rebates for a system.
package rebate

import (
	"fmt"
	"math"
	"sort"

	"solar-quote/internal/apperr"
	"solar-quote/internal/formula"
	"solar-quote/internal/model"

	"github.com/shopspring/decimal"
)

// Variable names available to rebate formulas. Config variables are
// layered on top and win on conflict.
const (
	VarSystemSizeKw   = "systemSizeKw"
	VarBatterySizeKwh = "batterySizeKwh"
	VarBatteryCost    = "batteryCost"
	VarZoneRating     = "zoneRating"
	VarDeemingPeriod  = "deemingPeriod"
	VarSTCValue       = "stcValue"
)

type Request struct {
	SystemSizeKw   float64
	BatterySizeKwh float64
	BatteryCost    model.Money
	Postcode       int
	Region         string
}

func (r Request) validate() error {
	if r.SystemSizeKw < 0 || math.IsNaN(r.SystemSizeKw) || math.IsInf(r.SystemSizeKw, 0) {
		return apperr.Invalid("systemSizeKw", "must be a finite number >= 0")
	}
	if r.BatterySizeKwh < 0 || math.IsNaN(r.BatterySizeKwh) || math.IsInf(r.BatterySizeKwh, 0) {
		return apperr.Invalid("batterySizeKwh", "must be a finite number >= 0")
	}
	if r.BatteryCost.IsNegative() {
		return apperr.Invalid("batteryCost", "must be >= 0")
	}
	return nil
}

// Line is the contribution of one config.
type Line struct {
	ConfigID string           `json:"configId"`
	Type     model.RebateType `json:"type"`
	NumSTCs  int              `json:"numStcs,omitempty"`
	Raw      model.Money      `json:"raw"`
	Amount   model.Money      `json:"amount"`
	Clamped  bool             `json:"clamped,omitempty"`
}

type Breakdown struct {
	NumSTCs        int         `json:"numStcs"`
	ZoneRating     float64     `json:"zoneRating,omitempty"`
	Federal        model.Money `json:"federal"`
	FederalBattery model.Money `json:"federalBattery"`
	StateBattery   model.Money `json:"stateBattery"`
	Total          model.Money `json:"total"`
	Lines          []Line      `json:"lines"`
}

func (b Breakdown) Summary() model.RebateSummary {
	return model.RebateSummary{
		NumSTCs:        b.NumSTCs,
		Federal:        b.Federal,
		FederalBattery: b.FederalBattery,
		StateBattery:   b.StateBattery,
		Total:          b.Total,
	}
}

// ZoneResolver is satisfied by *zone.Resolver.
type ZoneResolver interface {
	Resolve(postcode int) (model.ZoneRating, error)
}

type compiledConfig struct {
	cfg  model.RebateConfig
	expr *formula.Expr
	err  error // compile failure, reported when the config is used
}

// Calculator is immutable once built and safe for concurrent use.
type Calculator struct {
	zones   ZoneResolver
	configs []compiledConfig
}

// NewCalculator compiles every battery formula up front. A formula that does
// not compile is kept and reported as an Error whenever its config applies,
// so one bad row cannot silently zero a rebate.
func NewCalculator(zones ZoneResolver, configs []model.RebateConfig) (*Calculator, error) {
	if zones == nil {
		return nil, apperr.Missing("zone resolver", "")
	}
	out := make([]compiledConfig, 0, len(configs))
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, &apperr.ConfigError{What: "rebate config", Key: c.ID, Msg: err.Error()}
		}
		cc := compiledConfig{cfg: c}
		if c.IsBattery() {
			cc.expr, cc.err = formula.Compile(c.Formula)
		}
		out = append(out, cc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].cfg.ID < out[j].cfg.ID })
	return &Calculator{zones: zones, configs: out}, nil
}

// Configs returns the configs in evaluation order.
func (c *Calculator) Configs() []model.RebateConfig {
	out := make([]model.RebateConfig, len(c.configs))
	for i, cc := range c.configs {
		out[i] = cc.cfg
	}
	return out
}

func (c *Calculator) applicable(t model.RebateType, region string) []compiledConfig {
	var out []compiledConfig
	for _, cc := range c.configs {
		if cc.cfg.Type == t && cc.cfg.AppliesTo(region) {
			out = append(out, cc)
		}
	}
	return out
}

// Calculate evaluates every active config for the region and sums them.
// A rebate type with no active config contributes zero. Battery rebates are
// each clamped to [0, BatteryCost] and their sum is capped at BatteryCost.
func (c *Calculator) Calculate(req Request) (Breakdown, error) {
	if err := req.validate(); err != nil {
		return Breakdown{}, err
	}
	b := Breakdown{
		Federal:        decimal.Zero,
		FederalBattery: decimal.Zero,
		StateBattery:   decimal.Zero,
	}

	if err := c.federal(req, &b); err != nil {
		return Breakdown{}, err
	}
	if req.BatterySizeKwh > 0 {
		for _, t := range []model.RebateType{model.RebateFederalBattery, model.RebateStateBattery} {
			for _, cc := range c.applicable(t, req.Region) {
				line, err := evalBattery(cc, req)
				if err != nil {
					return Breakdown{}, err
				}
				b.Lines = append(b.Lines, line)
				if t == model.RebateFederalBattery {
					b.FederalBattery = b.FederalBattery.Add(line.Amount)
				} else {
					b.StateBattery = b.StateBattery.Add(line.Amount)
				}
			}
		}
		capBatteryRebates(&b, req.BatteryCost)
	}

	b.Total = b.Federal.Add(b.FederalBattery).Add(b.StateBattery)
	return b, nil
}

func (c *Calculator) federal(req Request, b *Breakdown) error {
	cfgs := c.applicable(model.RebateFederalSRES, req.Region)
	if len(cfgs) == 0 || req.SystemSizeKw == 0 {
		return nil
	}
	if len(cfgs) > 1 {
		ids := make([]string, len(cfgs))
		for i, cc := range cfgs {
			ids[i] = cc.cfg.ID
		}
		return &apperr.ConfigError{What: "federal_sres rebate", Key: req.Region, Msg: fmt.Sprintf("multiple active configs %v", ids)}
	}
	cfg := cfgs[0].cfg

	deeming, err := variable(cfg, VarDeemingPeriod)
	if err != nil {
		return err
	}
	stcValue, err := variable(cfg, VarSTCValue)
	if err != nil {
		return err
	}
	z, err := c.zones.Resolve(req.Postcode)
	if err != nil {
		return fmt.Errorf("federal rebate: %w", err)
	}

	n := NumSTCs(req.SystemSizeKw, z.Rating, deeming)
	amount := STCAmount(n, decimal.NewFromFloat(stcValue))
	b.NumSTCs = n
	b.ZoneRating = z.Rating
	b.Federal = amount
	b.Lines = append(b.Lines, Line{ConfigID: cfg.ID, Type: cfg.Type, NumSTCs: n, Raw: amount, Amount: amount})
	return nil
}

func variable(cfg model.RebateConfig, name string) (float64, error) {
	v, ok := cfg.Variables[name]
	if !ok {
		return 0, &Error{ConfigID: cfg.ID, Type: cfg.Type, Region: cfg.Region, Err: apperr.Missing("rebate variable", name)}
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &Error{ConfigID: cfg.ID, Type: cfg.Type, Region: cfg.Region,
			Err: &apperr.ConfigError{What: "rebate variable", Key: name, Msg: "must be a finite number >= 0"}}
	}
	return v, nil
}

func evalBattery(cc compiledConfig, req Request) (Line, error) {
	cfg := cc.cfg
	if cc.err != nil {
		return Line{}, &Error{ConfigID: cfg.ID, Type: cfg.Type, Region: cfg.Region, Formula: cfg.Formula, Err: cc.err}
	}
	cost := req.BatteryCost.InexactFloat64()
	vars := map[string]float64{
		VarSystemSizeKw:   req.SystemSizeKw,
		VarBatterySizeKwh: req.BatterySizeKwh,
		VarBatteryCost:    cost,
	}
	for k, v := range cfg.Variables {
		vars[k] = v
	}
	v, err := cc.expr.Eval(vars)
	if err != nil {
		return Line{}, &Error{ConfigID: cfg.ID, Type: cfg.Type, Region: cfg.Region, Formula: cfg.Formula, Err: err}
	}

	raw := decimal.NewFromFloat(v).Round(2)
	amount := raw
	clamped := false
	if amount.IsNegative() {
		amount, clamped = decimal.Zero, true
	}
	if amount.GreaterThan(req.BatteryCost) {
		amount, clamped = req.BatteryCost, true
	}
	return Line{ConfigID: cfg.ID, Type: cfg.Type, Raw: raw, Amount: amount, Clamped: clamped}, nil
}

// capBatteryRebates keeps the combined battery rebates within the battery
// cost, taking any excess off the state rebate first.
func capBatteryRebates(b *Breakdown, batteryCost model.Money) {
	excess := b.FederalBattery.Add(b.StateBattery).Sub(batteryCost)
	if !excess.IsPositive() {
		return
	}
	take := decimal.Min(excess, b.StateBattery)
	b.StateBattery = b.StateBattery.Sub(take)
	excess = excess.Sub(take)
	if excess.IsPositive() {
		b.FederalBattery = b.FederalBattery.Sub(excess)
	}
}
