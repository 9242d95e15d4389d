package handlers

import (
	"net/http"

	"solar-quote/internal/api/models"
	"solar-quote/internal/quote"

	"github.com/gin-gonic/gin"
)

// QuoteHandler handles quote calculation requests
type QuoteHandler struct {
	assembler *quote.Assembler
}

func NewQuoteHandler(a *quote.Assembler) *QuoteHandler {
	return &QuoteHandler{assembler: a}
}

// CreateQuote handles POST /api/v1/quotes
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req quote.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	q, err := h.assembler.Compute(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// ComparePackages handles POST /api/v1/quotes/packages
func (h *QuoteHandler) ComparePackages(c *gin.Context) {
	var req quote.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	results, err := h.assembler.ComputePackages(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.PackagesResponse{Packages: make([]models.PackageQuote, 0, len(results))}
	for _, r := range results {
		pq := models.PackageQuote{Tier: r.Tier, Name: r.Template.Name, Quote: r.Quote}
		if r.Err != nil {
			_, d := Status(r.Err)
			pq.Error = &d
		} else if resp.SnapshotVersion == "" {
			resp.SnapshotVersion = r.Quote.SnapshotVersion
		}
		resp.Packages = append(resp.Packages, pq)
	}
	c.JSON(http.StatusOK, resp)
}
