package handlers

import (
	"errors"
	"net/http"

	"solar-quote/internal/api/models"
	"solar-quote/internal/apperr"
	"solar-quote/internal/catalog"
	"solar-quote/internal/formula"
	"solar-quote/internal/rebate"
	"solar-quote/internal/refdata"
	"solar-quote/internal/zone"

	"github.com/gin-gonic/gin"
)

// Error codes returned in the error envelope.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnavailableProduct = "UNAVAILABLE_PRODUCT"
	CodeFormula            = "FORMULA_ERROR"
	CodeRebate             = "REBATE_ERROR"
	CodeConfiguration      = "CONFIGURATION_ERROR"
	CodeNotReady           = "NOT_READY"
	CodeInternal           = "INTERNAL_ERROR"
)

// Status maps an error to its HTTP status and error detail. Details carry
// the offending postcode, formula or category where the error has one.
func Status(err error) (int, models.ErrorDetail) {
	d := models.ErrorDetail{Message: err.Error(), Details: details(err)}
	if errors.Is(err, refdata.ErrNotLoaded) {
		d.Code = CodeNotReady
		return http.StatusServiceUnavailable, d
	}
	switch apperr.Class(err) {
	case "invalid_input":
		d.Code = CodeInvalidRequest
		return http.StatusBadRequest, d
	case "unavailable_product":
		d.Code = CodeUnavailableProduct
		return http.StatusConflict, d
	case "rebate":
		d.Code = CodeRebate
		return http.StatusUnprocessableEntity, d
	case "formula":
		d.Code = CodeFormula
		return http.StatusUnprocessableEntity, d
	case "configuration":
		d.Code = CodeConfiguration
		return http.StatusInternalServerError, d
	}
	d.Code = CodeInternal
	d.Message = "An unexpected error occurred"
	d.Details = nil
	return http.StatusInternalServerError, d
}

func details(err error) map[string]interface{} {
	out := map[string]interface{}{}

	var up *catalog.UnavailableProductError
	if errors.As(err, &up) {
		out["category"] = up.Category
		if up.BrandID != "" {
			out["brandId"] = up.BrandID
		}
		if up.ProductID != "" {
			out["productId"] = up.ProductID
		}
	}
	var re *rebate.Error
	if errors.As(err, &re) {
		out["rebateId"] = re.ConfigID
		out["rebateType"] = re.Type
		if re.Formula != "" {
			out["formula"] = re.Formula
		}
	}
	var fe *formula.Error
	if errors.As(err, &fe) {
		out["formula"] = fe.Formula
		out["kind"] = fe.Kind
		if fe.Pos >= 0 {
			out["position"] = fe.Pos
		}
		if fe.Name != "" {
			out["name"] = fe.Name
		}
	}
	var unknown *zone.UnknownPostcodeError
	if errors.As(err, &unknown) {
		out["postcode"] = unknown.Postcode
	}
	var ambiguous *zone.AmbiguousZoneError
	if errors.As(err, &ambiguous) {
		out["postcode"] = ambiguous.Postcode
		out["matches"] = len(ambiguous.Matches)
	}
	var ce *apperr.ConfigError
	if errors.As(err, &ce) {
		out["what"] = ce.What
		if ce.Key != "" {
			out["key"] = ce.Key
		}
	}
	var ie *apperr.InputError
	if errors.As(err, &ie) && ie.Field != "" {
		out["field"] = ie.Field
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func respondError(c *gin.Context, err error) {
	status, d := Status(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: d})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    CodeInvalidRequest,
			Message: err.Error(),
		},
	})
}
