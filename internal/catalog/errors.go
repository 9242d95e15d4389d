package catalog

import (
	"fmt"
	"strings"

	"solar-quote/internal/apperr"
	"solar-quote/internal/model"
)

// UnavailableProductError: no active, sellable offering satisfies a
// requirement. Callers must not fall back to inactive or zero-priced rows.
type UnavailableProductError struct {
	Category    model.ProductType
	BrandID     string
	ProductID   string
	MinCapacity float64
	MaxCapacity float64
}

func (e *UnavailableProductError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no active supplier offering for %s", e.Category)
	if e.BrandID != "" {
		fmt.Fprintf(&b, " brand %q", e.BrandID)
	}
	if e.ProductID != "" {
		fmt.Fprintf(&b, " product %q", e.ProductID)
	}
	if e.MinCapacity > 0 || e.MaxCapacity > 0 {
		fmt.Fprintf(&b, " capacity [%g, %g]", e.MinCapacity, e.MaxCapacity)
	}
	return b.String()
}

func (e *UnavailableProductError) Unwrap() error { return apperr.ErrUnavailableProduct }

// IntegrityError reports a catalog row that cannot be sold as configured,
// e.g. an active offering with no retail price.
type IntegrityError struct {
	SupplierProductID string
	Msg               string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("catalog integrity: supplier product %q: %s", e.SupplierProductID, e.Msg)
}

func (e *IntegrityError) Unwrap() error { return apperr.ErrConfiguration }

// Failure is one requirement of a batch that could not be satisfied.
type Failure struct {
	Index       int
	Requirement Requirement
	Err         error
}

// BatchError lists every failed requirement of a SelectAll call.
type BatchError struct {
	Failures []Failure
}

func (e *BatchError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("[%d] %v", f.Index, f.Err)
	}
	return fmt.Sprintf("%d of the requirements failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Err
	}
	return out
}
