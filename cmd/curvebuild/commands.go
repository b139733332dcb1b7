package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/meenmo/curvekit/calendar"
	"github.com/meenmo/curvekit/config"
	"github.com/meenmo/curvekit/curve"
	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/logger"
	"github.com/meenmo/curvekit/marketdata"
	"github.com/meenmo/curvekit/rates"
	"github.com/meenmo/curvekit/service"
)

const dateLayout = "2006-01-02"

// NodeOutput is one curve node with the discount factor and continuous
// ACT/365F zero rate at its date.
type NodeOutput struct {
	Date     string  `json:"date"`
	Time     float64 `json:"time"`
	Value    float64 `json:"value"`
	Discount float64 `json:"discount"`
	ZeroPct  float64 `json:"zero_pct"`
}

// CurveOutput is the build result of one curve.
type CurveOutput struct {
	Name          string       `json:"name"`
	Traits        string       `json:"traits"`
	Interpolation string       `json:"interpolation"`
	Passes        int          `json:"passes,omitempty"`
	Evaluations   int          `json:"evaluations,omitempty"`
	MaxQuoteError float64      `json:"max_quote_error,omitempty"`
	Nodes         []NodeOutput `json:"nodes,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// RepriceOutput is one instrument after calibration.
type RepriceOutput struct {
	Curve      string  `json:"curve"`
	Instrument string  `json:"instrument"`
	Pillar     string  `json:"pillar"`
	Quote      float64 `json:"quote"`
	Implied    float64 `json:"implied"`
	Error      float64 `json:"error"`
}

// QueryOutput is one curve evaluated on one date.
type QueryOutput struct {
	Curve    string  `json:"curve"`
	Date     string  `json:"date"`
	Discount float64 `json:"discount"`
	ZeroPct  float64 `json:"zero_pct"`
	Error    string  `json:"error,omitempty"`
}

type common struct {
	fs         *flag.FlagSet
	inputPath  *string
	configPath *string
	format     *string
	curveName  *string
}

func newFlags(name string, stderr io.Writer) *common {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return &common{
		fs:         fs,
		inputPath:  fs.String("input", "", "YAML snapshot path (optional; if set, ignores stdin)"),
		configPath: fs.String("config", "", "config file path (optional)"),
		format:     fs.String("format", "json", "output format: json or table"),
		curveName:  fs.String("curve", "", "only this curve (optional)"),
	}
}

// parse returns -1 to continue or an exit code.
func (c *common) parse(args []string, stdin io.Reader, stderr io.Writer, usage func(io.Writer)) int {
	help := c.fs.Bool("h", false, "Show help")
	c.fs.BoolVar(help, "help", false, "Show help")
	if err := c.fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage(stderr)
		return 0
	}
	if f := strings.ToLower(*c.format); f != "json" && f != "table" {
		fmt.Fprintf(stderr, "unknown format %q\n", *c.format)
		return 2
	}
	if strings.TrimSpace(*c.inputPath) == "" {
		if f, ok := stdin.(*os.File); ok {
			if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
				usage(stderr)
				return 2
			}
		}
	}
	return -1
}

func (c *common) table() bool { return strings.EqualFold(*c.format, "table") }

// load reads the snapshot and configuration and bootstraps every curve.
func (c *common) load(stdin io.Reader) (*service.Registry, []service.Result, error) {
	raw, err := readInput(stdin, strings.TrimSpace(*c.inputPath))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read input: %w", err)
	}
	snap, err := marketdata.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	cfg := config.Default()
	if *c.configPath != "" {
		if cfg, err = config.Load(*c.configPath); err != nil {
			return nil, nil, err
		}
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)

	reg, err := service.NewRegistry(snap, service.WithConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	if *c.curveName != "" {
		if _, err := reg.Curve(*c.curveName); err != nil {
			return nil, nil, err
		}
	}
	// failures are reported per curve
	results, _ := reg.Refresh(context.Background())
	return reg, results, nil
}

func (c *common) wants(name string) bool {
	return *c.curveName == "" || *c.curveName == name
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(stdin)
}

func writeError(stdout io.Writer, msg string) int {
	outputBytes, _ := json.Marshal(map[string]string{"error": msg})
	fmt.Fprintln(stdout, string(outputBytes))
	return 1
}

func writeJSON(stdout io.Writer, v any) {
	outputBytes, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(stdout, string(outputBytes))
}

func zeroPct(crv *curve.Piecewise, d time.Time) (float64, error) {
	z, err := crv.ZeroRate(d, daycount.Actual365Fixed, rates.Continuous, rates.Annual)
	if err != nil {
		return 0, err
	}
	return 100 * z.Rate, nil
}

func runBuild(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := newFlags("build", stderr)
	if code := c.parse(args, stdin, stderr, buildUsage); code >= 0 {
		return code
	}
	reg, results, err := c.load(stdin)
	if err != nil {
		return writeError(stdout, err.Error())
	}

	failed := false
	var outputs []CurveOutput
	for _, res := range results {
		if !c.wants(res.Curve) {
			continue
		}
		crv, _ := reg.Curve(res.Curve)
		out := CurveOutput{
			Name:          res.Curve,
			Traits:        crv.Traits().String(),
			Interpolation: crv.Interpolator().String(),
		}
		if res.Err != nil {
			failed = true
			out.Error = res.Err.Error()
			outputs = append(outputs, out)
			continue
		}
		out.Passes, out.Evaluations, out.MaxQuoteError = res.Stats.Passes, res.Stats.Evaluations, res.Stats.MaxQuoteError
		nodes, err := crv.Nodes()
		if err != nil {
			return writeError(stdout, err.Error())
		}
		for _, n := range nodes {
			df, err := crv.Discount(n.Date)
			if err != nil {
				return writeError(stdout, err.Error())
			}
			z, err := zeroPct(crv, n.Date)
			if err != nil {
				return writeError(stdout, err.Error())
			}
			out.Nodes = append(out.Nodes, NodeOutput{
				Date: n.Date.Format(dateLayout), Time: n.Time, Value: n.Value, Discount: df, ZeroPct: z,
			})
		}
		outputs = append(outputs, out)
	}
	sortByLevel(reg, outputs)

	if c.table() {
		for _, o := range outputs {
			fmt.Fprintf(stdout, "%s (%s, %s)", o.Name, o.Traits, o.Interpolation)
			if o.Error != "" {
				fmt.Fprintf(stdout, " FAILED: %s\n\n", o.Error)
				continue
			}
			fmt.Fprintf(stdout, " passes=%d evaluations=%d max_error=%.2e\n", o.Passes, o.Evaluations, o.MaxQuoteError)
			fmt.Fprintf(stdout, "%-10s | %-9s | %-14s | %-12s | %-9s\n", "Date", "Time", "Value", "Discount", "Zero %")
			for _, n := range o.Nodes {
				fmt.Fprintf(stdout, "%-10s | %9.6f | %14.10f | %12.10f | %9.6f\n", n.Date, n.Time, n.Value, n.Discount, n.ZeroPct)
			}
			fmt.Fprintln(stdout)
		}
	} else {
		writeJSON(stdout, outputs)
	}
	if failed {
		return 1
	}
	return 0
}

// sortByLevel orders outputs the way the registry builds them.
func sortByLevel(reg *service.Registry, outputs []CurveOutput) {
	rank := map[string]int{}
	for _, level := range reg.Levels() {
		for _, name := range level {
			rank[name] = len(rank)
		}
	}
	for i := 1; i < len(outputs); i++ {
		for j := i; j > 0 && rank[outputs[j].Name] < rank[outputs[j-1].Name]; j-- {
			outputs[j], outputs[j-1] = outputs[j-1], outputs[j]
		}
	}
}

func buildUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  curvebuild build < snapshot.yaml")
	fmt.Fprintln(w, "  curvebuild build -input snapshot.yaml [-config config.yaml] [-format table] [-curve USD-SOFR]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bootstrap the snapshot's curves and print nodes, discount factors and zero rates.")
}

func runReprice(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := newFlags("reprice", stderr)
	if code := c.parse(args, stdin, stderr, repriceUsage); code >= 0 {
		return code
	}
	reg, results, err := c.load(stdin)
	if err != nil {
		return writeError(stdout, err.Error())
	}
	for _, res := range results {
		if res.Err != nil && c.wants(res.Curve) {
			return writeError(stdout, fmt.Sprintf("%s: %v", res.Curve, res.Err))
		}
	}

	var outputs []RepriceOutput
	for _, level := range reg.Levels() {
		for _, name := range level {
			if !c.wants(name) {
				continue
			}
			crv, _ := reg.Curve(name)
			for _, h := range crv.Helpers() {
				q, err := h.QuoteValue()
				if err != nil {
					return writeError(stdout, err.Error())
				}
				implied, err := h.ImpliedQuote(crv)
				if err != nil {
					return writeError(stdout, err.Error())
				}
				outputs = append(outputs, RepriceOutput{
					Curve: name, Instrument: h.Describe(), Pillar: h.PillarDate().Format(dateLayout),
					Quote: q, Implied: implied, Error: q - implied,
				})
			}
		}
	}

	if c.table() {
		fmt.Fprintf(stdout, "%-12s | %-16s | %-10s | %-14s | %-14s | %-10s\n", "Curve", "Instrument", "Pillar", "Quote", "Implied", "Error")
		for _, o := range outputs {
			fmt.Fprintf(stdout, "%-12s | %-16s | %-10s | %14.10f | %14.10f | %10.2e\n",
				o.Curve, o.Instrument, o.Pillar, o.Quote, o.Implied, o.Error)
		}
		return 0
	}
	writeJSON(stdout, outputs)
	return 0
}

func repriceUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  curvebuild reprice -input snapshot.yaml [-format table] [-curve USD-SOFR]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bootstrap, then reprice every instrument on its own curve.")
}

func runQuery(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := newFlags("query", stderr)
	dates := c.fs.String("dates", "", "comma-separated YYYY-MM-DD dates")
	if code := c.parse(args, stdin, stderr, queryUsage); code >= 0 {
		return code
	}
	var parsed []time.Time
	for _, s := range strings.Split(*dates, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		d, err := calendar.ParseDate(s)
		if err != nil {
			return writeError(stdout, fmt.Sprintf("invalid date: %v", err))
		}
		parsed = append(parsed, d)
	}
	if len(parsed) == 0 {
		return writeError(stdout, "no dates given")
	}

	reg, _, err := c.load(stdin)
	if err != nil {
		return writeError(stdout, err.Error())
	}

	hadError := false
	var outputs []QueryOutput
	for _, level := range reg.Levels() {
		for _, name := range level {
			if !c.wants(name) {
				continue
			}
			crv, _ := reg.Curve(name)
			for _, d := range parsed {
				out := QueryOutput{Curve: name, Date: d.Format(dateLayout)}
				df, err := crv.Discount(d)
				if err == nil {
					out.Discount = df
					out.ZeroPct, err = zeroPct(crv, d)
				}
				if err != nil {
					hadError = true
					out.Error = err.Error()
				}
				outputs = append(outputs, out)
			}
		}
	}

	if c.table() {
		fmt.Fprintf(stdout, "%-12s | %-10s | %-12s | %-9s\n", "Curve", "Date", "Discount", "Zero %")
		for _, o := range outputs {
			if o.Error != "" {
				fmt.Fprintf(stdout, "%-12s | %-10s | %s\n", o.Curve, o.Date, o.Error)
				continue
			}
			fmt.Fprintf(stdout, "%-12s | %-10s | %12.10f | %9.6f\n", o.Curve, o.Date, o.Discount, o.ZeroPct)
		}
	} else {
		writeJSON(stdout, outputs)
	}
	if hadError {
		return 1
	}
	return 0
}

func queryUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  curvebuild query -input snapshot.yaml -dates 2026-01-02,2030-01-02 [-curve USD-SOFR] [-format table]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bootstrap, then print discount factors and continuous ACT/365F zero rates.")
}
