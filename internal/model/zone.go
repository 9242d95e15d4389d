package model

import (
	"errors"
	"fmt"
)

// ZoneRating maps an inclusive postcode range to a rebate zone.
// Rating is the STC zone multiplier (dimensionless, > 0).
type ZoneRating struct {
	PostcodeStart int     `yaml:"postcode_start" json:"postcodeStart"`
	PostcodeEnd   int     `yaml:"postcode_end" json:"postcodeEnd"`
	Zone          string  `yaml:"zone" json:"zone"`
	Rating        float64 `yaml:"zone_rating" json:"zoneRating"`
	State         string  `yaml:"state" json:"state"`
}

func (z ZoneRating) Contains(postcode int) bool {
	return postcode >= z.PostcodeStart && postcode <= z.PostcodeEnd
}

// Overlaps reports whether two ranges share at least one postcode.
func (z ZoneRating) Overlaps(o ZoneRating) bool {
	return z.PostcodeStart <= o.PostcodeEnd && o.PostcodeStart <= z.PostcodeEnd
}

func (z ZoneRating) Validate() error {
	if z.PostcodeStart < 0 || z.PostcodeEnd < 0 {
		return errors.New("postcodes must be >= 0")
	}
	if z.PostcodeStart > z.PostcodeEnd {
		return fmt.Errorf("postcode_start %d > postcode_end %d", z.PostcodeStart, z.PostcodeEnd)
	}
	if z.Rating <= 0 {
		return errors.New("zone_rating must be > 0")
	}
	if z.Zone == "" {
		return errors.New("zone is required")
	}
	if z.State == "" {
		return errors.New("state is required")
	}
	return nil
}
