package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"solar-quote/internal/api/models"
	"solar-quote/internal/apperr"
	"solar-quote/internal/catalog"
	"solar-quote/internal/formula"
	"solar-quote/internal/installation"
	"solar-quote/internal/quote"
	"solar-quote/internal/rebate"

	"github.com/gin-gonic/gin"
)

// ReferenceHandler exposes the individual calculation steps against the
// current reference-data snapshot.
type ReferenceHandler struct {
	refs        quote.Provider
	parallelism int
}

func NewReferenceHandler(refs quote.Provider, parallelism int) *ReferenceHandler {
	return &ReferenceHandler{refs: refs, parallelism: parallelism}
}

// GetZone handles GET /api/v1/zones/:postcode
func (h *ReferenceHandler) GetZone(c *gin.Context) {
	postcode, err := strconv.Atoi(c.Param("postcode"))
	if err != nil || postcode <= 0 {
		respondError(c, apperr.Invalid("postcode", "must be a positive integer"))
		return
	}
	snap, err := h.refs.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	z, err := snap.Zones.Resolve(postcode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ZoneResponse{Postcode: postcode, Zone: z})
}

// CalculateRebates handles POST /api/v1/rebates
func (h *ReferenceHandler) CalculateRebates(c *gin.Context) {
	var req models.RebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.BatterySizeKwh > 0 && req.BatteryCost == nil {
		respondError(c, apperr.Invalid("batteryCost", "is required when batterySizeKwh > 0"))
		return
	}
	snap, err := h.refs.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	region := strings.ToUpper(strings.TrimSpace(req.Region))
	if region == "" {
		z, err := snap.Zones.Resolve(req.Postcode)
		if err != nil {
			respondError(c, err)
			return
		}
		region = z.State
	}
	r := rebate.Request{
		SystemSizeKw:   req.SystemSizeKw,
		BatterySizeKwh: req.BatterySizeKwh,
		Postcode:       req.Postcode,
		Region:         region,
	}
	if req.BatteryCost != nil {
		r.BatteryCost = *req.BatteryCost
	}

	b, err := snap.Rebates.Calculate(r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// SelectSuppliers handles POST /api/v1/suppliers/select. Requirements that
// cannot be met are reported per item; the request as a whole succeeds.
func (h *ReferenceHandler) SelectSuppliers(c *gin.Context) {
	var req models.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	snap, err := h.refs.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	sels, err := catalog.NewSelector(snap.Catalog, h.parallelism).SelectAll(c.Request.Context(), req.Requirements)
	var batch *catalog.BatchError
	if err != nil && !errors.As(err, &batch) {
		respondError(c, err)
		return
	}

	resp := models.SelectResponse{Selections: make([]models.SelectionResult, len(sels))}
	for i, s := range sels {
		resp.Selections[i] = models.SelectionResult{Requirement: s.Requirement, Offering: s.Offering}
		if s.Err != nil {
			_, d := Status(s.Err)
			resp.Selections[i].Error = &d
		}
	}
	c.JSON(http.StatusOK, resp)
}

// EstimateInstallation handles POST /api/v1/installation/estimate
func (h *ReferenceHandler) EstimateInstallation(c *gin.Context) {
	var spec installation.JobSpecs
	if err := c.ShouldBindJSON(&spec); err != nil {
		badRequest(c, err)
		return
	}
	snap, err := h.refs.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	est, err := snap.Installation.Estimate(spec)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

// CompareInstallation handles POST /api/v1/installation/compare
func (h *ReferenceHandler) CompareInstallation(c *gin.Context) {
	var spec installation.JobSpecs
	if err := c.ShouldBindJSON(&spec); err != nil {
		badRequest(c, err)
		return
	}
	snap, err := h.refs.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	cmp, err := snap.Installation.Compare(spec)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// EvaluateFormula handles POST /api/v1/formula/evaluate
func (h *ReferenceHandler) EvaluateFormula(c *gin.Context) {
	var req models.FormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	expr, err := formula.Compile(req.Formula)
	if err != nil {
		respondError(c, err)
		return
	}
	v, err := expr.Eval(req.Variables)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.FormulaResponse{Formula: expr.String(), Variables: expr.Variables(), Result: v})
}

// ListPackages handles GET /api/v1/packages
func (h *ReferenceHandler) ListPackages(c *gin.Context) {
	snap, err := h.refs.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	pkgs := []models.PackageInfo{}
	for _, p := range snap.Packages() {
		pkgs = append(pkgs, models.PackageInfo{
			Tier:        p.Tier,
			Name:        p.Name,
			SolarSizing: string(p.SolarSizingStrategy),
			Battery:     string(p.BatterySizingStrategy),
			Multiplier:  p.PriceMultiplier,
		})
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}
