package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"solar-quote/internal/config"
	"solar-quote/internal/export"
	"solar-quote/internal/formula"
	"solar-quote/internal/installation"
	"solar-quote/internal/logger"
	"solar-quote/internal/metrics"
	"solar-quote/internal/model"
	"solar-quote/internal/quote"
	"solar-quote/internal/rebate"
	"solar-quote/internal/refdata"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "quote":
		cmdQuote(os.Args[2:])
	case "zone":
		cmdZone(os.Args[2:])
	case "rebates":
		cmdRebates(os.Args[2:])
	case "compare":
		cmdCompare(os.Args[2:])
	case "formula":
		cmdFormula(os.Args[2:])
	case "migrate":
		cmdMigrate(os.Args[2:])
	case "reseed":
		cmdReseed(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli quote --refdata ./refdata --postcode 6000 --tier mid --daily 20 --out results/quote.xlsx")
	fmt.Println("  cli zone --refdata ./refdata --postcode 2217")
	fmt.Println("  cli rebates --refdata ./refdata --postcode 6000 --kw 6.6 --battery-kwh 10 --battery-cost 9000")
	fmt.Println("  cli compare --refdata ./refdata --region WA --kw 6.6 --panels 16 --battery-kwh 10")
	fmt.Println("  cli formula --expr 'min(batterySizeKwh * 130, 1300)' --var batterySizeKwh=10")
	fmt.Println("  cli migrate --dsn postgres://...")
	fmt.Println("  cli reseed --refdata ./refdata | --server http://localhost:8080")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - reference data comes from --refdata (YAML directory) or --dsn (Postgres)")
	fmt.Println("  - quote --out writes .csv or .xlsx; --json prints the full quote")
}

// refFlags are shared by every subcommand that reads reference data.
type refFlags struct {
	dir *string
	dsn *string
}

func addRefFlags(fs *flag.FlagSet) refFlags {
	return refFlags{
		dir: fs.String("refdata", "./refdata", "Directory of reference data YAML files"),
		dsn: fs.String("dsn", os.Getenv("SOLARQUOTE_POSTGRES_DSN"), "Optional: load reference data from Postgres instead"),
	}
}

// load builds a store and takes one snapshot. The returned func releases
// the database pool, if any.
func (f refFlags) load(ctx context.Context) (*refdata.Store, *refdata.Snapshot, func()) {
	log := logger.NewWriter(os.Stderr, "cli")
	closeFn := func() {}

	var src refdata.Source = refdata.NewYAMLSource(*f.dir)
	if *f.dsn != "" {
		pool, err := refdata.Connect(ctx, *f.dsn)
		if err != nil {
			panic(err)
		}
		closeFn = pool.Close
		src = refdata.NewPostgresSource(pool)
	}

	store := refdata.NewStore(src, log, metrics.New(nil))
	snap, err := store.Reseed(ctx)
	if err != nil {
		closeFn()
		fail(err)
	}
	return store, snap, closeFn
}

func cmdQuote(args []string) {
	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	ref := addRefFlags(fs)
	cfgPath := fs.String("config", "", "Optional: engine config YAML (tariff, sizing, savings)")
	postcode := fs.Int("postcode", 0, "Customer postcode")
	region := fs.String("region", "", "Optional: pricing region (defaults to the postcode's state)")
	tier := fs.String("tier", "", "budget|mid|premium; empty quotes every active package")
	daily := fs.Float64("daily", 0, "Measured daily consumption in kWh (0 = estimate from profile)")
	household := fs.Int("household", 0, "Household size")
	evs := fs.Int("evs", 0, "Number of electric vehicles")
	pool := fs.Bool("pool", false, "Has a pool")
	heatedPool := fs.Bool("heated-pool", false, "Pool is heated")
	offices := fs.Int("offices", 0, "Home offices")
	ac := fs.String("ac", "", "none|minimal|moderate|heavy")
	hotWater := fs.String("hot-water", "", "electric|gas|solar|heat_pump")
	bill := fs.Float64("bill", -1, "Optional: annual electricity bill in dollars")
	roof := fs.String("roof", "", "Roof type")
	maxPanels := fs.Int("max-panels", 0, "Optional: roof capacity in panels (caps the array)")
	stories := fs.Int("stories", 0, "Storeys")
	phases := fs.Int("phases", 0, "Optional: supply phases (1 or 3)")
	addons := fs.String("addons", "", "Comma-separated addon IDs")
	outPath := fs.String("out", "", "Optional: write the quote to a .csv or .xlsx file")
	asJSON := fs.Bool("json", false, "Print the full quote as JSON")
	_ = fs.Parse(args)

	if *postcode == 0 {
		fmt.Println("--postcode is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	store, _, closeFn := ref.load(ctx)
	defer closeFn()

	asm, err := quote.New(store, *cfg, logger.NewWriter(os.Stderr, "cli"), metrics.New(nil))
	if err != nil {
		panic(err)
	}

	req := quote.Request{
		Postcode: *postcode,
		Region:   *region,
		Tier:     model.Tier(*tier),
		Profile: model.ConsumptionProfile{
			HouseholdSize:       *household,
			HasEV:               *evs > 0,
			EVCount:             *evs,
			HasPool:             *pool || *heatedPool,
			PoolHeated:          *heatedPool,
			HomeOfficeCount:     *offices,
			ACUsage:             model.ACUsage(*ac),
			HotWater:            model.HotWater(*hotWater),
			DailyConsumptionKwh: *daily,
		},
		Site:   quote.Site{RoofType: *roof, Stories: *stories, Phases: *phases, MaxPanels: *maxPanels},
		Addons: splitList(*addons),
	}
	if *bill >= 0 {
		b := model.Dollars(*bill)
		req.Profile.AnnualBill = &b
	}

	if *tier == "" {
		results, err := asm.ComputePackages(ctx, req)
		if err != nil {
			fail(err)
		}
		fmt.Printf("%-8s %-10s %-8s %-10s %-12s %-12s %-8s\n", "tier", "system", "battery", "subtotal", "rebates", "final", "payback")
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("%-8s error: %v\n", r.Tier, r.Err)
				continue
			}
			q := r.Quote
			fmt.Printf("%-8s %-10s %-8s %-10s %-12s %-12s %-8s\n",
				q.Tier,
				fmt.Sprintf("%.2fkW", q.SystemSizeKw),
				fmt.Sprintf("%gkWh", q.BatteryKwh),
				q.Subtotal.StringFixed(2),
				q.Rebates.Total.StringFixed(2),
				q.FinalPrice.StringFixed(2),
				q.Savings.PaybackLabel(),
			)
		}
		return
	}

	q, err := asm.Compute(ctx, req)
	if err != nil {
		fail(err)
	}

	if *outPath != "" {
		if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
			panic(err)
		}
		if err := export.WriteFile(*outPath, q); err != nil {
			panic(err)
		}
		fmt.Printf("Wrote quote %s to %s\n", q.ID, *outPath)
	}
	if *asJSON {
		printJSON(q)
		return
	}

	fmt.Printf("Quote %s (%s tier, snapshot %s)\n", q.ID, q.Tier, q.SnapshotVersion)
	fmt.Printf("Postcode %d zone %s region %s\n", q.Postcode, q.Zone, q.Region)
	fmt.Printf("System %.3fkW (%d × %gW) battery %gkWh\n", q.SystemSizeKw, q.PanelCount, q.PanelWattageW, q.BatteryKwh)
	for _, li := range append(append([]model.LineItem{}, q.Components...), q.Addons...) {
		fmt.Printf("  %-10s %-32s %3d × %10s = %10s\n", li.Category, li.Name, li.Quantity, li.UnitPrice.StringFixed(2), li.Total.StringFixed(2))
	}
	fmt.Printf("Installation=%s (%s) Subtotal=%s Rebates=%s (%d STCs)\n",
		q.InstallationCost.StringFixed(2), q.Installation.Recommended, q.Subtotal.StringFixed(2), q.Rebates.Total.StringFixed(2), q.Rebates.NumSTCs)
	if q.FloorApplied {
		fmt.Printf("Minimum profit floor applied (+%s)\n", q.FloorShortfall.StringFixed(2))
	}
	fmt.Printf("Final=$%s Profit=$%s (%.1f%%)\n", q.FinalPrice.StringFixed(2), q.Profit.GrossProfit.StringFixed(2), q.Profit.MarginPercent)
	fmt.Printf("Annual savings=$%s Payback=%s years\n", q.Savings.AnnualSavings.StringFixed(2), q.Savings.PaybackLabel())
}

func cmdZone(args []string) {
	fs := flag.NewFlagSet("zone", flag.ExitOnError)
	ref := addRefFlags(fs)
	postcode := fs.Int("postcode", 0, "Postcode to resolve")
	_ = fs.Parse(args)

	_, snap, closeFn := ref.load(context.Background())
	defer closeFn()

	z, err := snap.Zones.Resolve(*postcode)
	if err != nil {
		fail(err)
	}
	fmt.Printf("%d → zone %s (%s) rating=%g range=%d-%d\n", *postcode, z.Zone, z.State, z.Rating, z.PostcodeStart, z.PostcodeEnd)
}

func cmdRebates(args []string) {
	fs := flag.NewFlagSet("rebates", flag.ExitOnError)
	ref := addRefFlags(fs)
	postcode := fs.Int("postcode", 0, "Postcode")
	region := fs.String("region", "", "Optional: region (defaults to the postcode's state)")
	kw := fs.Float64("kw", 0, "Solar system size in kW")
	batteryKwh := fs.Float64("battery-kwh", 0, "Battery size in kWh")
	batteryCost := fs.Float64("battery-cost", 0, "Battery sell price in dollars")
	_ = fs.Parse(args)

	_, snap, closeFn := ref.load(context.Background())
	defer closeFn()

	req := rebate.Request{
		SystemSizeKw:   *kw,
		BatterySizeKwh: *batteryKwh,
		BatteryCost:    model.Dollars(*batteryCost),
		Postcode:       *postcode,
		Region:         strings.ToUpper(*region),
	}
	if req.Region == "" {
		z, err := snap.Zones.Resolve(*postcode)
		if err != nil {
			fail(err)
		}
		req.Region = z.State
	}
	b, err := snap.Rebates.Calculate(req)
	if err != nil {
		fail(err)
	}
	for _, l := range b.Lines {
		clamped := ""
		if l.Clamped {
			clamped = " (clamped)"
		}
		fmt.Printf("  %-24s %-16s %10s%s\n", l.ConfigID, l.Type, l.Amount.StringFixed(2), clamped)
	}
	fmt.Printf("STCs=%d Federal=%s FederalBattery=%s StateBattery=%s Total=%s\n",
		b.NumSTCs, b.Federal.StringFixed(2), b.FederalBattery.StringFixed(2), b.StateBattery.StringFixed(2), b.Total.StringFixed(2))
}

func cmdCompare(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	ref := addRefFlags(fs)
	region := fs.String("region", "", "Installation region")
	kw := fs.Float64("kw", 0, "System size in kW")
	panels := fs.Int("panels", 0, "Panel count")
	batteryKwh := fs.Float64("battery-kwh", 0, "Battery size in kWh (0 = no battery)")
	roof := fs.String("roof", "", "Roof type")
	stories := fs.Int("stories", 0, "Storeys")
	scaffold := fs.Bool("scaffolding", false, "Requires scaffolding")
	_ = fs.Parse(args)

	_, snap, closeFn := ref.load(context.Background())
	defer closeFn()

	cmp, err := snap.Installation.Compare(installation.JobSpecs{
		Region:              strings.ToUpper(*region),
		SystemSizeKw:        *kw,
		PanelCount:          *panels,
		HasBattery:          *batteryKwh > 0,
		BatteryKwh:          *batteryKwh,
		RoofType:            *roof,
		Stories:             *stories,
		RequiresScaffolding: *scaffold,
	})
	if err != nil {
		fail(err)
	}
	est := cmp.Estimate
	fmt.Printf("Job hours=%.2f (base %.2f × %.3f)\n", est.JobHours, est.BaseLaborHours, est.ComplexityMultiplier)
	fmt.Printf("Internal=%s Subcontractor=%s (%s)\n", cmp.InternalCost.StringFixed(2), cmp.SubcontractorCost.StringFixed(2), est.Subcontractor)
	fmt.Printf("Delta=%s (%+.2f%%)\n", cmp.Delta.StringFixed(2), cmp.PercentDifference)
}

func cmdFormula(args []string) {
	fs := flag.NewFlagSet("formula", flag.ExitOnError)
	expr := fs.String("expr", "", "Formula to evaluate")
	vars := map[string]float64{}
	fs.Func("var", "Variable as name=value (repeatable)", func(s string) error {
		name, raw, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return fmt.Errorf("want name=value, got %q", s)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		vars[name] = v
		return nil
	})
	_ = fs.Parse(args)

	if *expr == "" {
		fmt.Println("--expr is required")
		os.Exit(2)
	}
	e, err := formula.Compile(*expr)
	if err != nil {
		fail(err)
	}
	v, err := e.Eval(vars)
	if err != nil {
		fail(err)
	}
	fmt.Printf("%s = %g\n", e, v)
}

func cmdMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dsn := fs.String("dsn", os.Getenv("SOLARQUOTE_POSTGRES_DSN"), "Postgres DSN")
	_ = fs.Parse(args)

	if *dsn == "" {
		fmt.Println("--dsn is required")
		os.Exit(2)
	}
	if err := refdata.Migrate(*dsn); err != nil {
		panic(err)
	}
	fmt.Println("migrations applied")
}

func cmdReseed(args []string) {
	fs := flag.NewFlagSet("reseed", flag.ExitOnError)
	ref := addRefFlags(fs)
	server := fs.String("server", "", "Optional: base URL of a running API to reseed")
	_ = fs.Parse(args)

	if *server != "" {
		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Post(strings.TrimRight(*server, "/")+"/admin/reseed", "application/json", nil)
		if err != nil {
			panic(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		fmt.Printf("%s\n%s\n", resp.Status, body)
		if resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		return
	}

	_, snap, closeFn := ref.load(context.Background())
	defer closeFn()

	fmt.Printf("Snapshot %s loaded at %s\n", snap.Version, snap.LoadedAt.Format(time.RFC3339))
	counts := snap.Counts()
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", k, counts[k])
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

// fail reports a calculation error without a stack trace.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
