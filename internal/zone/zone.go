// Package zone resolves postcodes to STC zone ratings.
package zone

import (
	"fmt"
	"sort"

	"solar-quote/internal/apperr"
	"solar-quote/internal/model"
)

// UnknownPostcodeError: no configured range contains the postcode.
type UnknownPostcodeError struct {
	Postcode int
}

func (e *UnknownPostcodeError) Error() string {
	return fmt.Sprintf("postcode %d: no zone rating configured", e.Postcode)
}

func (e *UnknownPostcodeError) Unwrap() error { return apperr.ErrConfiguration }

// AmbiguousZoneError: more than one range contains the postcode.
type AmbiguousZoneError struct {
	Postcode int
	Matches  []model.ZoneRating
}

func (e *AmbiguousZoneError) Error() string {
	return fmt.Sprintf("postcode %d: matches %d zone ranges", e.Postcode, len(e.Matches))
}

func (e *AmbiguousZoneError) Unwrap() error { return apperr.ErrConfiguration }

// Resolver is an immutable lookup table. Build one with NewResolver; it is
// safe for concurrent use.
type Resolver struct {
	ratings []model.ZoneRating
}

// NewResolver validates each range and rejects overlapping ranges within a
// state. The input slice is copied.
func NewResolver(ratings []model.ZoneRating) (*Resolver, error) {
	rs := make([]model.ZoneRating, len(ratings))
	copy(rs, ratings)
	for i, z := range rs {
		if err := z.Validate(); err != nil {
			return nil, &apperr.ConfigError{What: "zone rating", Key: fmt.Sprintf("%d-%d", z.PostcodeStart, z.PostcodeEnd), Msg: err.Error()}
		}
		for _, o := range rs[:i] {
			if o.State == z.State && o.Overlaps(z) {
				return nil, &apperr.ConfigError{
					What: "zone rating",
					Key:  fmt.Sprintf("%d-%d", z.PostcodeStart, z.PostcodeEnd),
					Msg:  fmt.Sprintf("overlaps %d-%d in %s", o.PostcodeStart, o.PostcodeEnd, o.State),
				}
			}
		}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].PostcodeStart != rs[j].PostcodeStart {
			return rs[i].PostcodeStart < rs[j].PostcodeStart
		}
		return rs[i].State < rs[j].State
	})
	return &Resolver{ratings: rs}, nil
}

// Resolve returns the single range containing postcode. Zero matches is an
// UnknownPostcodeError and more than one is an AmbiguousZoneError; there is
// no default rating.
func (r *Resolver) Resolve(postcode int) (model.ZoneRating, error) {
	var matches []model.ZoneRating
	for _, z := range r.ratings {
		if z.PostcodeStart > postcode {
			break
		}
		if z.Contains(postcode) {
			matches = append(matches, z)
		}
	}
	switch len(matches) {
	case 0:
		return model.ZoneRating{}, &UnknownPostcodeError{Postcode: postcode}
	case 1:
		return matches[0], nil
	default:
		return model.ZoneRating{}, &AmbiguousZoneError{Postcode: postcode, Matches: matches}
	}
}

// Ratings returns a copy of the table, ordered by postcode.
func (r *Resolver) Ratings() []model.ZoneRating {
	out := make([]model.ZoneRating, len(r.ratings))
	copy(out, r.ratings)
	return out
}

func (r *Resolver) Len() int { return len(r.ratings) }
