package ascent

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gonum/floats"
)

const (
	velocityε = 1e-6 // in m/s
	distanceε = 1e-3 // in m
)

// ErrInvalidSnapshot is returned when telemetry cannot describe an orbit.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is an instantaneous sample of the vehicle orbit, as reported by the host.
// Altitudes are above the surface of Body, Radius is from its center.
type Snapshot struct {
	Altitude float64   // current altitude
	ApA      float64   // apoapsis altitude
	PeA      float64   // periapsis altitude
	Speed    float64   // orbital velocity magnitude
	H        float64   // specific angular momentum magnitude
	Radius   float64   // orbital radius
	Body     CelestialObject
	Epoch    time.Time // when the sample was taken
	// VerticalSpeed is the radial component of the velocity, only used for the sign
	// of the flight path angle. Zero when unknown.
	VerticalSpeed float64
}

// CosΦfpa returns the cosine of the flight path angle, i.e. h/(v*r).
// WARNING: math.Acos(s.CosΦfpa()) loses the sign of the flight path angle, use
// FlightPathAngle instead.
func (s Snapshot) CosΦfpa() float64 {
	return s.H / s.Speed / s.Radius
}

// FlightPathAngle returns the angle between prograde and the local horizontal, in radians.
// It is negative when descending, if the vertical speed is known.
func (s Snapshot) FlightPathAngle() float64 {
	Φ := math.Acos(clampUnit(s.CosΦfpa()))
	if s.VerticalSpeed < 0 {
		return -Φ
	}
	return Φ
}

// Energyξ returns the specific mechanical energy ξ.
func (s Snapshot) Energyξ() float64 {
	return SpecificEnergy(s.Speed, s.Altitude, s.Body)
}

// Validate returns an error if this snapshot cannot describe an orbit around its body.
// The calculator never calls this: it is meant for telemetry sources.
func (s Snapshot) Validate() error {
	if s.Body.GM() <= 0 {
		return fmt.Errorf("%w: μ of %s must be positive", ErrInvalidSnapshot, s.Body.Name)
	}
	if s.Body.Radius < 0 || s.Body.AtmosphereDepth < 0 {
		return fmt.Errorf("%w: %s has negative dimensions", ErrInvalidSnapshot, s.Body.Name)
	}
	if s.Radius <= 0 || s.Altitude+s.Body.Radius <= 0 {
		return fmt.Errorf("%w: radius %f is not positive", ErrInvalidSnapshot, s.Radius)
	}
	if s.Speed < velocityε {
		return fmt.Errorf("%w: speed %f is nil", ErrInvalidSnapshot, s.Speed)
	}
	for name, v := range map[string]float64{"altitude": s.Altitude, "apA": s.ApA, "peA": s.PeA, "h": s.H} {
		if !isFinite(v) {
			return fmt.Errorf("%w: %s is %f", ErrInvalidSnapshot, name, v)
		}
	}
	return nil
}

// String implements the stringer interface (hence the value receiver)
func (s Snapshot) String() string {
	return fmt.Sprintf("alt=%.0f apA=%.0f peA=%.0f v=%.3f Φ=%.3f (%s)", s.Altitude, s.ApA, s.PeA, s.Speed, s.FlightPathAngle()/deg2rad, s.Body.Name)
}

// Equals returns whether two snapshots describe the same state, regardless of epoch.
func (s Snapshot) Equals(s1 Snapshot) (bool, error) {
	if !s.Body.Equals(s1.Body) {
		return false, errors.New("different body")
	}
	if !floats.EqualWithinAbs(s.Altitude, s1.Altitude, distanceε) {
		return false, errors.New("altitude invalid")
	}
	if !floats.EqualWithinAbs(s.ApA, s1.ApA, distanceε) {
		return false, errors.New("apoapsis invalid")
	}
	if !floats.EqualWithinAbs(s.PeA, s1.PeA, distanceε) {
		return false, errors.New("periapsis invalid")
	}
	if !floats.EqualWithinAbs(s.Speed, s1.Speed, velocityε) {
		return false, errors.New("speed invalid")
	}
	if !floats.EqualWithinRel(s.H, s1.H, 1e-9) {
		return false, errors.New("angular momentum invalid")
	}
	return true, nil
}

// NewSnapshot returns a snapshot from the scalar telemetry, deriving the orbital radius
// from the altitude.
func NewSnapshot(altitude, apA, peA, speed, h float64, body CelestialObject, epoch time.Time) Snapshot {
	return Snapshot{altitude, apA, peA, speed, h, altitude + body.Radius, body, epoch, 0}
}

// NewSnapshotFromRV returns a snapshot from the body centered R and V vectors (m and m/s).
func NewSnapshotFromRV(R, V []float64, body CelestialObject, epoch time.Time) Snapshot {
	hVec := cross(R, V)
	r := norm(R)
	v := norm(V)
	h := norm(hVec)
	cosΦ := 1.0
	if v > velocityε {
		cosΦ = clampUnit(h / (r * v))
	}
	altitude := r - body.Radius
	apA, peA := ApsidesFromState(v, altitude, cosΦ, body)
	return Snapshot{altitude, apA, peA, v, h, r, body, epoch, dot(R, V) / r}
}
