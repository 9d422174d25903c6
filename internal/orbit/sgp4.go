package orbit

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Propagator wraps go-satellite's SGP4 model for one satellite.
//
// satellite.Propagate takes the Satellite by value, so SGP4 error codes are
// not visible after initialization; failures are detected from NaN/Inf or
// implausible position magnitudes instead.
type Propagator struct {
	sat     satellite.Satellite
	noradID int
}

// NewPropagator creates a Propagator from TLE lines. The lines are checked
// first because go-satellite calls log.Fatal on malformed input.
func NewPropagator(line1, line2 string, noradID int) (*Propagator, error) {
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", noradID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", noradID, sat.Error, sat.ErrorStr)
	}
	return &Propagator{sat: sat, noradID: noradID}, nil
}

func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// PositionECEF returns the satellite position at t in Earth-fixed meters.
func (p *Propagator) PositionECEF(t time.Time) (Vec3, error) {
	t = t.UTC()
	pos, _ := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	teme := Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
	if !teme.finite() {
		return Vec3{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", p.noradID)
	}

	// Earth-orbit sanity range in km.
	if mag := teme.norm(); mag < 6200.0 || mag > 50000.0 {
		return Vec3{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", p.noradID, mag)
	}

	return temeToECEF(teme, gmst(t)), nil
}

// Vec3 is a Cartesian vector.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) finite() bool {
	for _, c := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
