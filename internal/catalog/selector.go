package catalog

import (
	"context"
	"strings"

	"solar-quote/internal/apperr"
	"solar-quote/internal/model"

	"golang.org/x/sync/errgroup"
)

// Requirement describes one component a quote needs. Zero-valued optional
// fields are unconstrained. Capacity is kWh for batteries, kW for inverters
// and W for panels.
type Requirement struct {
	Category    model.ProductType `json:"category" validate:"required,oneof=PANEL BATTERY INVERTER ADDON OTHER"`
	BrandID     string            `json:"brandId,omitempty"`
	ProductID   string            `json:"productId,omitempty"`
	MinCapacity float64           `json:"minCapacity,omitempty" validate:"gte=0"`
	MaxCapacity float64           `json:"maxCapacity,omitempty" validate:"gte=0"`
}

func (r Requirement) matches(o Offering) bool {
	p := o.Product
	if p.Type != r.Category {
		return false
	}
	if r.BrandID != "" && !strings.EqualFold(p.BrandID, r.BrandID) {
		return false
	}
	if r.ProductID != "" && p.ID != r.ProductID {
		return false
	}
	capacity := p.Capacity()
	if r.MinCapacity > 0 && capacity < r.MinCapacity {
		return false
	}
	if r.MaxCapacity > 0 && capacity > r.MaxCapacity {
		return false
	}
	return true
}

func (r Requirement) unavailable() *UnavailableProductError {
	return &UnavailableProductError{
		Category:    r.Category,
		BrandID:     r.BrandID,
		ProductID:   r.ProductID,
		MinCapacity: r.MinCapacity,
		MaxCapacity: r.MaxCapacity,
	}
}

// Selection is the outcome for one requirement of a batch.
type Selection struct {
	Requirement Requirement `json:"requirement"`
	Offering    *Offering   `json:"offering,omitempty"`
	Err         error       `json:"-"`
}

// DefaultParallelism bounds SelectAll when the selector is built with 0.
const DefaultParallelism = 4

type Selector struct {
	catalog     *Catalog
	parallelism int
}

func NewSelector(c *Catalog, parallelism int) *Selector {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Selector{catalog: c, parallelism: parallelism}
}

func (s *Selector) Catalog() *Catalog { return s.catalog }

// Select returns the best sellable offering for req. The result depends only
// on the catalog contents, never on map or goroutine order.
func (s *Selector) Select(req Requirement) (Offering, error) {
	if _, err := model.ParseProductType(string(req.Category)); err != nil {
		return Offering{}, apperr.Invalid("category", "%v", err)
	}
	if req.MinCapacity > 0 && req.MaxCapacity > 0 && req.MinCapacity > req.MaxCapacity {
		return Offering{}, apperr.Invalid("capacity", "minCapacity %g > maxCapacity %g", req.MinCapacity, req.MaxCapacity)
	}
	for _, o := range s.catalog.offerings {
		if req.matches(o) {
			return o, nil
		}
	}
	return Offering{}, req.unavailable()
}

// SelectAll runs Select for every requirement in parallel. The returned
// slice always has one Selection per requirement, in input order. When any
// requirement fails the error is a *BatchError listing each failure; the
// successful selections are still returned. A cancelled context returns
// ctx.Err().
func (s *Selector) SelectAll(ctx context.Context, reqs []Requirement) ([]Selection, error) {
	out := make([]Selection, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i].Requirement = req
			o, err := s.Select(req)
			if err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Offering = &o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failures []Failure
	for i, sel := range out {
		if sel.Err != nil {
			failures = append(failures, Failure{Index: i, Requirement: sel.Requirement, Err: sel.Err})
		}
	}
	if len(failures) > 0 {
		return out, &BatchError{Failures: failures}
	}
	return out, nil
}
