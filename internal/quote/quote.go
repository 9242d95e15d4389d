// Package quote assembles a customer quote from the reference-data snapshot:
// zone, sizing, supplier selection, installation, rebates, price floor and
// savings projections.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"solar-quote/internal/apperr"
	"solar-quote/internal/catalog"
	"solar-quote/internal/config"
	"solar-quote/internal/installation"
	"solar-quote/internal/logger"
	"solar-quote/internal/metrics"
	"solar-quote/internal/model"
	"solar-quote/internal/rebate"
	"solar-quote/internal/refdata"
	"solar-quote/internal/sizing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InverterHeadroom is the largest inverter, relative to the array, preferred
// before falling back to any inverter at least as large as the array.
const InverterHeadroom = 1.3

// Provider hands out the reference-data snapshot a calculation reads from.
// *refdata.Store implements it.
type Provider interface {
	Snapshot(ctx context.Context) (*refdata.Snapshot, error)
}

type Assembler struct {
	refs    Provider
	cfg     config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New validates cfg. log and m may be nil.
func New(refs Provider, cfg config.Config, log *slog.Logger, m *metrics.Metrics) (*Assembler, error) {
	if refs == nil {
		return nil, errors.New("quote: nil reference data provider")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Assembler{refs: refs, cfg: cfg, log: log, metrics: m, now: time.Now}, nil
}

// Compute prices one package tier. Every step reads the same snapshot, so a
// concurrent reseed never mixes reference data within a quote.
func (a *Assembler) Compute(ctx context.Context, req Request) (*model.Quote, error) {
	start := a.now()
	q, err := a.compute(ctx, req)
	a.observe(req, q, err, a.now().Sub(start))
	return q, err
}

func (a *Assembler) compute(ctx context.Context, req Request) (*model.Quote, error) {
	if req.Tier == "" {
		return nil, apperr.Invalid("tier", "is required")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	snap, err := a.refs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return a.assemble(ctx, snap, req)
}

// PackageResult is one tier of ComputePackages. Exactly one of Quote and
// Err is set.
type PackageResult struct {
	Tier     model.Tier            `json:"tier"`
	Template model.PackageTemplate `json:"template"`
	Quote    *model.Quote          `json:"quote,omitempty"`
	Err      error                 `json:"-"`
}

// ComputePackages quotes every active tier against a single snapshot.
// req.Tier is ignored. A tier that cannot be quoted is reported in its
// result; the error return is reserved for failures shared by all tiers.
func (a *Assembler) ComputePackages(ctx context.Context, req Request) ([]PackageResult, error) {
	req.Tier = ""
	if err := req.validate(); err != nil {
		return nil, err
	}
	snap, err := a.refs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	templates := snap.Packages()
	if len(templates) == 0 {
		return nil, &apperr.ConfigError{What: "package templates", Msg: "no active package"}
	}

	out := make([]PackageResult, 0, len(templates))
	for _, t := range templates {
		r := req
		r.Tier = t.Tier
		start := a.now()
		q, err := a.assemble(ctx, snap, r)
		a.observe(r, q, err, a.now().Sub(start))
		out = append(out, PackageResult{Tier: t.Tier, Template: t, Quote: q, Err: err})
	}
	return out, nil
}

func (a *Assembler) observe(req Request, q *model.Quote, err error, d time.Duration) {
	tier := string(req.Tier)
	if err != nil {
		class := apperr.Class(err)
		a.metrics.ObserveQuote(tier, class, false, d)
		lvl := slog.LevelWarn
		if class == "internal" || class == "configuration" {
			lvl = slog.LevelError
		}
		a.log.Log(context.Background(), lvl, "quote failed",
			"postcode", req.Postcode, "tier", tier, "class", class, "err", err)
		return
	}
	a.metrics.ObserveQuote(tier, apperr.Class(nil), q.FloorApplied, d)
	a.log.Info("quote computed",
		"quote_id", q.ID,
		"postcode", q.Postcode,
		"tier", tier,
		"system_kw", q.SystemSizeKw,
		"battery_kwh", q.BatteryKwh,
		"final_price", q.FinalPrice.StringFixed(2),
		"snapshot", q.SnapshotVersion,
		"duration", d,
	)
}

func (a *Assembler) assemble(ctx context.Context, snap *refdata.Snapshot, req Request) (*model.Quote, error) {
	z, err := snap.Zones.Resolve(req.Postcode)
	if err != nil {
		return nil, err
	}
	region := strings.ToUpper(strings.TrimSpace(req.Region))
	if region == "" {
		region = z.State
	}
	settings, err := snap.Settings(region)
	if err != nil {
		return nil, err
	}
	yield, err := snap.Yield(z.State)
	if err != nil {
		return nil, err
	}
	tmpl, err := snap.Package(req.Tier)
	if err != nil {
		return nil, err
	}
	addons, err := resolveAddons(snap, req.Addons)
	if err != nil {
		return nil, err
	}

	sel := catalog.NewSelector(snap.Catalog, a.cfg.SupplierParallelism)
	panel, err := sel.Select(catalog.Requirement{Category: model.ProductPanel, BrandID: tmpl.PanelBrand})
	if err != nil {
		return nil, err
	}

	engine, err := sizing.NewEngine(snap.Assumptions, a.cfg.Sizing.ToParams())
	if err != nil {
		return nil, err
	}
	size, err := engine.Size(req.Profile, tmpl, yield, sizing.Catalog{
		PanelWattageW:        panel.Product.Capacity(),
		BatteryCapacitiesKwh: snap.Catalog.BatteryCapacities(tmpl.BatteryBrand),
		BatteryBrand:         tmpl.BatteryBrand,
	}, sizing.Roof{MaxPanels: req.Site.MaxPanels})
	if err != nil {
		return nil, err
	}
	if size.PanelCount == 0 {
		return nil, apperr.Invalid("profile", "sized system is empty (daily consumption %.2f kWh)", size.Demand.DailyKwh)
	}

	inverter, battery, err := selectEquipment(ctx, sel, tmpl, size)
	if err != nil {
		return nil, err
	}

	q := &model.Quote{
		ID:                  uuid.New(),
		CreatedAt:           a.now().UTC(),
		SnapshotVersion:     snap.Version,
		Postcode:            req.Postcode,
		Zone:                z.Zone,
		State:               z.State,
		Region:              region,
		Tier:                tmpl.Tier,
		Yield:               yield,
		SystemSizeKw:        size.SystemSizeKw,
		TargetSystemKw:      size.TargetSystemKw,
		RoofLimited:         size.RoofLimited,
		PanelCount:          size.PanelCount,
		PanelWattageW:       size.PanelWattageW,
		BatteryKwh:          size.BatteryKwh,
		BatteryUnits:        size.BatteryUnits,
		DailyConsumptionKwh: size.Demand.DailyKwh,
		MinimumProfit:       settings.MinimumProfit,
	}
	q.ExpiresAt = q.CreatedAt.AddDate(0, 0, settings.ValidityDays)

	wholesale := decimal.Zero
	q.Components = append(q.Components, componentLine(panel, size.PanelCount, tmpl.PriceMultiplier))
	q.Components = append(q.Components, componentLine(inverter, 1, tmpl.PriceMultiplier))
	var batteryCost model.Money
	if battery != nil {
		line := componentLine(*battery, size.BatteryUnits, tmpl.PriceMultiplier)
		batteryCost = line.Total
		q.Components = append(q.Components, line)
	}
	q.ComponentsCost = decimal.Zero
	for _, l := range q.Components {
		q.ComponentsCost = q.ComponentsCost.Add(l.Total)
		wholesale = wholesale.Add(l.Wholesale)
	}

	q.AddonsCost = decimal.Zero
	addonInstall := decimal.Zero
	for _, ad := range addons {
		q.Addons = append(q.Addons, addonLine(ad))
		q.AddonsCost = q.AddonsCost.Add(ad.Cost)
		addonInstall = addonInstall.Add(ad.InstallCost)
		wholesale = wholesale.Add(ad.Cost)
	}

	est, err := snap.Installation.Estimate(installation.JobSpecs{
		Region:              region,
		SystemSizeKw:        size.SystemSizeKw,
		PanelCount:          size.PanelCount,
		HasBattery:          size.BatteryUnits > 0,
		BatteryKwh:          size.BatteryKwh,
		RoofType:            req.Site.RoofType,
		Stories:             req.Site.Stories,
		Phases:              req.Site.Phases,
		RequiresScaffolding: req.Site.RequiresScaffolding,
		DifficultAccess:     req.Site.DifficultAccess,
		HasAsbestos:         req.Site.HasAsbestos,
		AddonInstallCost:    addonInstall,
	})
	if err != nil {
		return nil, fmt.Errorf("installation: %w", err)
	}
	q.InstallationCost = est.RecommendedCost
	q.Installation = model.InstallationSummary{
		Recommended:       string(est.Recommended),
		InternalCost:      est.InternalCost,
		SubcontractorCost: est.SubcontractorCost,
		LaborHours:        est.JobHours,
	}
	if est.Subcontractor != nil {
		q.Installation.SubcontractorID = est.Subcontractor.ID
	}
	wholesale = wholesale.Add(est.RecommendedCost)

	rebates, err := snap.Rebates.Calculate(rebate.Request{
		SystemSizeKw:   size.SystemSizeKw,
		BatterySizeKwh: size.BatteryKwh,
		BatteryCost:    batteryCost,
		Postcode:       req.Postcode,
		Region:         region,
	})
	if err != nil {
		return nil, err
	}
	q.Rebates = rebates.Summary()

	q.Subtotal = q.ComponentsCost.Add(q.AddonsCost).Add(q.InstallationCost)
	a.applyFloor(q)
	q.Profit = profit(q.FinalPrice.Add(q.Rebates.Total), wholesale)
	q.Savings = a.savings(q, req.Profile.AnnualBill)
	return q, nil
}

// applyFloor sets FinalPrice to subtotal − rebates, raised to MinimumProfit
// when rebates would take it below the floor. The gap is kept on the quote.
func (a *Assembler) applyFloor(q *model.Quote) {
	net := q.Subtotal.Sub(q.Rebates.Total)
	q.FinalPrice = net
	q.FloorShortfall = decimal.Zero
	if net.LessThan(q.MinimumProfit) {
		q.FinalPrice = q.MinimumProfit
		q.FloorApplied = true
		q.FloorShortfall = q.MinimumProfit.Sub(net)
		a.log.Warn("minimum profit floor applied",
			"quote_id", q.ID,
			"tier", q.Tier,
			"subtotal", q.Subtotal.StringFixed(2),
			"rebates", q.Rebates.Total.StringFixed(2),
			"minimum_profit", q.MinimumProfit.StringFixed(2),
			"shortfall", q.FloorShortfall.StringFixed(2),
		)
	}
}

func resolveAddons(snap *refdata.Snapshot, ids []string) ([]model.Addon, error) {
	out := make([]model.Addon, 0, len(ids))
	for _, id := range ids {
		ad, ok := snap.Addon(id)
		if !ok || !ad.Active {
			return nil, apperr.Invalid("addons", "unknown or inactive addon %q", id)
		}
		out = append(out, ad)
	}
	return out, nil
}

// selectEquipment runs the inverter and battery lookups as one batch. The
// inverter is first sought within InverterHeadroom of the array size, then
// at any size above it.
func selectEquipment(ctx context.Context, sel *catalog.Selector, tmpl model.PackageTemplate, size sizing.Result) (catalog.Offering, *catalog.Offering, error) {
	reqs := []catalog.Requirement{{
		Category:    model.ProductInverter,
		BrandID:     tmpl.InverterBrand,
		MinCapacity: size.SystemSizeKw,
		MaxCapacity: size.SystemSizeKw * InverterHeadroom,
	}}
	if size.BatteryUnits > 0 {
		reqs = append(reqs, catalog.Requirement{
			Category:    model.ProductBattery,
			BrandID:     tmpl.BatteryBrand,
			MinCapacity: size.BatteryUnitKwh,
			MaxCapacity: size.BatteryUnitKwh,
		})
	}

	sels, err := sel.SelectAll(ctx, reqs)
	var batch *catalog.BatchError
	if err != nil && !errors.As(err, &batch) {
		return catalog.Offering{}, nil, err
	}
	var battery *catalog.Offering
	if len(sels) > 1 {
		if sels[1].Err != nil {
			return catalog.Offering{}, nil, sels[1].Err
		}
		battery = sels[1].Offering
	}

	inv := sels[0]
	if inv.Err == nil {
		return *inv.Offering, battery, nil
	}
	if !errors.Is(inv.Err, apperr.ErrUnavailableProduct) {
		return catalog.Offering{}, nil, inv.Err
	}
	wider := reqs[0]
	wider.MaxCapacity = 0
	o, err := sel.Select(wider)
	if err != nil {
		return catalog.Offering{}, nil, err
	}
	return o, battery, nil
}

func componentLine(o catalog.Offering, qty int, multiplier float64) model.LineItem {
	sp := o.SupplierProduct
	unitPrice := model.RoundCents(sp.RetailPrice.Mul(decimal.NewFromFloat(multiplier)))
	n := decimal.NewFromInt(int64(qty))
	return model.LineItem{
		Category:          o.Product.Type,
		ProductID:         o.Product.ID,
		SupplierID:        o.Supplier.ID,
		SupplierProductID: sp.ID,
		Name:              o.Product.Name,
		Quantity:          qty,
		UnitCost:          sp.UnitCost,
		UnitPrice:         unitPrice,
		Total:             unitPrice.Mul(n),
		Wholesale:         sp.UnitCost.Mul(n),
	}
}

// Addons are resold at cost.
func addonLine(ad model.Addon) model.LineItem {
	return model.LineItem{
		Category:  model.ProductAddon,
		ProductID: ad.ID,
		Name:      ad.Name,
		Quantity:  1,
		UnitCost:  ad.Cost,
		UnitPrice: ad.Cost,
		Total:     ad.Cost,
		Wholesale: ad.Cost,
	}
}

// profit measures against revenue, which is the customer price plus the
// rebates the installer claims.
func profit(revenue, wholesale model.Money) model.ProfitAnalysis {
	p := model.ProfitAnalysis{
		Wholesale:   model.RoundCents(wholesale),
		GrossProfit: model.RoundCents(revenue.Sub(wholesale)),
	}
	if revenue.IsPositive() {
		p.MarginPercent = p.GrossProfit.Div(revenue).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return p
}

func (a *Assembler) savings(q *model.Quote, annualBill *model.Money) model.Savings {
	s := model.Savings{}
	s.AnnualProductionKwh = round1(float64(q.SystemSizeKw*q.Yield) * 365)
	for i, f := range a.cfg.Savings.MonthlyProductionFactors {
		if i < len(s.MonthlyProductionKwh) {
			s.MonthlyProductionKwh[i] = round1(float64(s.AnnualProductionKwh * f))
		}
	}

	ratio := 0.0
	if daily := s.AnnualProductionKwh / 365; daily > 0 {
		ratio = q.BatteryKwh / daily
	}
	s.SelfConsumptionRate = a.cfg.Savings.SelfConsumptionRate(ratio)
	selfKwh := float64(s.AnnualProductionKwh * s.SelfConsumptionRate)
	exportKwh := s.AnnualProductionKwh - selfKwh

	tariff := a.cfg.Tariff
	annual := decimal.NewFromFloat(selfKwh).Mul(decimal.NewFromFloat(tariff.RetailRatePerKwh)).
		Add(decimal.NewFromFloat(exportKwh).Mul(decimal.NewFromFloat(tariff.FeedInTariffPerKwh)))
	if annualBill != nil && annual.GreaterThan(*annualBill) {
		annual = *annualBill
	}
	s.AnnualSavings = model.RoundCents(annual)
	s.TenYearSavings = model.RoundCents(s.AnnualSavings.Mul(decimal.NewFromInt(10)).Mul(decimal.NewFromFloat(a.cfg.Savings.Escalation10y)))
	s.TwentyFiveYearSavings = model.RoundCents(s.AnnualSavings.Mul(decimal.NewFromInt(25)).Mul(decimal.NewFromFloat(a.cfg.Savings.Escalation25y)))

	if s.AnnualSavings.IsPositive() {
		years := q.FinalPrice.DivRound(s.AnnualSavings, 4).Round(1)
		s.PaybackYears = &years
	}
	return s
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
