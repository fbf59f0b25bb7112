package calib

import (
	"fmt"
	"sort"
)

// Series is a monotonic lookup from uncalibrated values to calibrated values
// plus its inverse. Forward lookups are exact; inverse lookups are
// nearest-neighbor, because calibrated targets rarely land exactly on a
// table entry.
type Series struct {
	uncal []float64
	cal   []float64
}

// NewSeries builds a series from an uncal→cal mapping.
func NewSeries(mapping map[float64]float64) (*Series, error) {
	if len(mapping) == 0 {
		return nil, fmt.Errorf("calib: series mapping must not be empty")
	}
	uncal := make([]float64, 0, len(mapping))
	for key := range mapping {
		uncal = append(uncal, key)
	}
	sort.Float64s(uncal)
	cal := make([]float64, len(uncal))
	for i, key := range uncal {
		cal[i] = mapping[key]
	}
	return &Series{uncal: uncal, cal: cal}, nil
}

// newSeriesFromColumns pairs parallel slices, sorting by the uncalibrated
// key. Duplicate keys are an error.
func newSeriesFromColumns(uncal, cal []float64) (*Series, error) {
	if len(uncal) != len(cal) {
		return nil, fmt.Errorf("calib: series columns disagree: %d vs %d", len(uncal), len(cal))
	}
	if len(uncal) == 0 {
		return nil, fmt.Errorf("calib: series must not be empty")
	}
	idx := make([]int, len(uncal))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return uncal[idx[a]] < uncal[idx[b]] })

	s := &Series{
		uncal: make([]float64, len(uncal)),
		cal:   make([]float64, len(cal)),
	}
	for i, j := range idx {
		if i > 0 && uncal[j] == s.uncal[i-1] {
			return nil, fmt.Errorf("calib: duplicate series key %v", uncal[j])
		}
		s.uncal[i] = uncal[j]
		s.cal[i] = cal[j]
	}
	return s, nil
}

// Len returns the number of entries.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.uncal)
}

// LookupCal returns the calibrated value for an exact uncalibrated key.
func (s *Series) LookupCal(uncal float64) (float64, bool) {
	if s == nil {
		return 0, false
	}
	i := sort.SearchFloat64s(s.uncal, uncal)
	if i < len(s.uncal) && s.uncal[i] == uncal {
		return s.cal[i], true
	}
	return 0, false
}

// FindUncal returns the uncalibrated key whose calibrated value is nearest
// to cal.
func (s *Series) FindUncal(cal float64) (float64, bool) {
	if s.Len() == 0 {
		return 0, false
	}
	best := 0
	bestDist := distance(s.cal[0], cal)
	for i := 1; i < len(s.cal); i++ {
		if d := distance(s.cal[i], cal); d < bestDist {
			best, bestDist = i, d
		}
	}
	return s.uncal[best], true
}

// CalBounds returns the minimum and maximum calibrated values.
func (s *Series) CalBounds() (float64, float64, bool) {
	if s.Len() == 0 {
		return 0, 0, false
	}
	min, max := s.cal[0], s.cal[0]
	for _, v := range s.cal[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, true
}

func distance(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// nearestIndex returns the position in keys closest to target. keys need not
// be sorted.
func nearestIndex(keys []float64, target float64) int {
	best := 0
	bestDist := distance(keys[0], target)
	for i := 1; i < len(keys); i++ {
		if d := distance(keys[i], target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
