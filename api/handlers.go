package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meenmo/curvekit/calendar"
	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/logger"
	"github.com/meenmo/curvekit/marketdata"
	"github.com/meenmo/curvekit/rates"
	"github.com/meenmo/curvekit/service"
	"github.com/meenmo/curvekit/store"
	"github.com/meenmo/curvekit/termstructure"
)

const dateLayout = "2006-01-02"

type handlers struct {
	current *service.Current
	log     *logger.Logger
}

// NodeResponse is one curve node.
type NodeResponse struct {
	Date  string  `json:"date"`
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// CurveResponse summarises one curve.
type CurveResponse struct {
	Name          string   `json:"name"`
	Traits        string   `json:"traits"`
	Interpolation string   `json:"interpolation"`
	DiscountCurve string   `json:"discount_curve,omitempty"`
	Dependencies  []string `json:"dependencies,omitempty"`
	Calibrated    bool     `json:"calibrated"`
	MaxDate       string   `json:"max_date"`
	LastBuildID   string   `json:"last_build_id,omitempty"`
	LastError     string   `json:"last_error,omitempty"`
	Passes        int      `json:"passes,omitempty"`
}

// RateResponse is a rate query result.
type RateResponse struct {
	Curve       string  `json:"curve"`
	Start       string  `json:"start,omitempty"`
	Date        string  `json:"date"`
	Rate        float64 `json:"rate"`
	DayCounter  string  `json:"day_counter"`
	Compounding string  `json:"compounding"`
	Frequency   int     `json:"frequency"`
}

// QuoteRequest updates one quote.
type QuoteRequest struct {
	Value string `json:"value" binding:"required"`
	Unit  string `json:"unit"`
}

// BuildResponse is one build result.
type BuildResponse struct {
	Curve       string  `json:"curve"`
	BuildID     string  `json:"build_id,omitempty"`
	Skipped     bool    `json:"skipped"`
	Passes      int     `json:"passes"`
	Evaluations int     `json:"evaluations"`
	MaxError    float64 `json:"max_quote_error"`
	Error       string  `json:"error,omitempty"`
}

// statusOf maps an error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownCurve), errors.Is(err, service.ErrUnknownInstrument), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrBootstrap):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrStale):
		return http.StatusConflict
	case errors.Is(err, errs.ErrConfiguration), errors.Is(err, errs.ErrExtrapolation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log.Errorw("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"timestamp":      time.Now().Format(time.RFC3339),
		"reference_date": h.current.Load().ReferenceDate().Format(dateLayout),
	})
}

func (h *handlers) listCurves(c *gin.Context) {
	var out []CurveResponse
	for _, s := range h.current.Load().Status() {
		r := CurveResponse{
			Name:          s.Curve,
			Traits:        s.Traits,
			Interpolation: s.Interpolation,
			DiscountCurve: s.DiscountCurve,
			Dependencies:  s.Dependencies,
			Calibrated:    s.Calibrated,
			MaxDate:       s.MaxDate.Format(dateLayout),
		}
		if s.Last != nil {
			r.LastBuildID = s.Last.BuildID
			r.Passes = s.Last.Stats.Passes
			if s.Last.Err != nil {
				r.LastError = s.Last.Err.Error()
			}
		}
		out = append(out, r)
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) refresh(c *gin.Context) {
	reg := h.current.Load()
	run := reg.Refresh
	if force, _ := strconv.ParseBool(c.Query("force")); force {
		run = reg.Rebuild
	}
	results, err := run(c.Request.Context())
	out := make([]BuildResponse, 0, len(results))
	for _, r := range results {
		b := BuildResponse{
			Curve: r.Curve, BuildID: r.BuildID, Skipped: r.Skipped,
			Passes: r.Stats.Passes, Evaluations: r.Stats.Evaluations, MaxError: r.Stats.MaxQuoteError,
		}
		if r.Err != nil {
			b.Error = r.Err.Error()
		}
		out = append(out, b)
	}
	status := http.StatusOK
	if err != nil {
		status = statusOf(err)
	}
	c.JSON(status, out)
}

func (h *handlers) nodes(c *gin.Context) {
	crv, err := h.current.Load().Curve(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	nodes, err := crv.Nodes()
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]NodeResponse, len(nodes))
	for i, n := range nodes {
		out[i] = NodeResponse{Date: n.Date.Format(dateLayout), Time: n.Time, Value: n.Value}
	}
	c.JSON(http.StatusOK, out)
}

// view reads the optional as_of, zero_spread_bp and forward_spread_bp
// parameters and returns the curve they describe.
func (h *handlers) view(c *gin.Context) (termstructure.YieldTermStructure, bool) {
	var (
		v   service.View
		err error
	)
	if s := c.Query("as_of"); s != "" {
		if v.AsOf, err = calendar.ParseDate(s); err != nil {
			badRequest(c, err)
			return nil, false
		}
	}
	if s := c.Query("zero_spread_bp"); s != "" {
		if v.ZeroSpread, err = marketdata.Convert(s, marketdata.BasisPoints); err != nil {
			badRequest(c, err)
			return nil, false
		}
	}
	if s := c.Query("forward_spread_bp"); s != "" {
		if v.ForwardSpread, err = marketdata.Convert(s, marketdata.BasisPoints); err != nil {
			badRequest(c, err)
			return nil, false
		}
	}
	ts, err := h.current.Load().CurveView(c.Param("name"), v)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return ts, true
}

func (h *handlers) discount(c *gin.Context) {
	crv, ok := h.view(c)
	if !ok {
		return
	}
	d, err := calendar.ParseDate(c.Query("date"))
	if err != nil {
		badRequest(c, err)
		return
	}
	df, err := crv.Discount(d)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"curve": c.Param("name"), "date": d.Format(dateLayout), "discount": df})
}

// conventions reads dc, comp and freq query parameters. Defaults are ACT/365F
// continuous annual.
func conventions(c *gin.Context) (daycount.DayCounter, rates.Compounding, rates.Frequency, error) {
	dc, err := daycount.Parse(c.DefaultQuery("dc", string(daycount.Actual365Fixed)))
	if err != nil {
		return "", 0, 0, err
	}
	comp, err := rates.ParseCompounding(c.DefaultQuery("comp", "continuous"))
	if err != nil {
		return "", 0, 0, err
	}
	freq, err := rates.ParseFrequency(c.DefaultQuery("freq", "annual"))
	if err != nil {
		return "", 0, 0, err
	}
	return dc, comp, freq, nil
}

func rateResponse(curve string, start, end time.Time, r rates.InterestRate) RateResponse {
	out := RateResponse{
		Curve:       curve,
		Date:        end.Format(dateLayout),
		Rate:        r.Rate,
		DayCounter:  string(r.DayCounter),
		Compounding: r.Compounding.String(),
		Frequency:   int(r.Frequency),
	}
	if !start.IsZero() {
		out.Start = start.Format(dateLayout)
	}
	return out
}

func (h *handlers) zero(c *gin.Context) {
	crv, ok := h.view(c)
	if !ok {
		return
	}
	d, err := calendar.ParseDate(c.Query("date"))
	if err != nil {
		badRequest(c, err)
		return
	}
	dc, comp, freq, err := conventions(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	r, err := crv.ZeroRate(d, dc, comp, freq)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rateResponse(c.Param("name"), time.Time{}, d, r))
}

func (h *handlers) forward(c *gin.Context) {
	crv, ok := h.view(c)
	if !ok {
		return
	}
	start, err := calendar.ParseDate(c.Query("start"))
	if err != nil {
		badRequest(c, err)
		return
	}
	end, err := calendar.ParseDate(c.Query("end"))
	if err != nil {
		badRequest(c, err)
		return
	}
	dc, comp, freq, err := conventions(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	r, err := crv.ForwardRate(start, end, dc, comp, freq)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rateResponse(c.Param("name"), start, end, r))
}

func (h *handlers) builds(c *gin.Context) {
	reg := h.current.Load()
	name := c.Param("name")
	if _, err := reg.Curve(name); err != nil {
		h.fail(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	builds, err := reg.Archive().Builds(c.Request.Context(), name, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(builds))
	for _, b := range builds {
		out = append(out, gin.H{
			"id":              b.ID,
			"built_at":        b.BuiltAt.UTC().Format(time.RFC3339Nano),
			"reference_date":  b.ReferenceDate.Format(dateLayout),
			"status":          b.Status,
			"error":           b.Error,
			"passes":          b.Passes,
			"evaluations":     b.Evaluations,
			"max_quote_error": b.MaxQuoteError,
			"duration_ms":     float64(b.Duration) / float64(time.Millisecond),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) updateQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	v, err := h.current.Load().UpdateQuote(id, req.Value, req.Unit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "value": v})
}
