package ascent

import (
	"math"

	"github.com/gonum/floats"
)

/* Two-body relations between specific orbital energy, speed and apsis altitudes.
All altitudes are measured from the surface of the body, all speeds are in m/s.
Nothing here is guarded: physically inconsistent inputs yield NaN or ±Inf. */

// SpecificEnergy returns the specific mechanical energy ξ from the vis-viva relation.
func SpecificEnergy(v, altitude float64, body CelestialObject) float64 {
	return v*v/2 - body.μ/(altitude+body.Radius)
}

// SpeedAtApoapsisFromEnergy returns the speed at an apoapsis of altitude apA of an
// orbit of specific energy ξ.
// Returns NaN if the energy is too low to reach that apoapsis.
func SpeedAtApoapsisFromEnergy(ξ, apA float64, body CelestialObject) float64 {
	kineticξ := ξ - -body.μ/(apA+body.Radius)
	return math.Sqrt(2 * kineticξ)
}

// SpeedAtApoapsisFromApsides returns the speed at apoapsis of the orbit defined by
// its apoapsis and periapsis altitudes.
func SpeedAtApoapsisFromApsides(apA, peA float64, body CelestialObject) float64 {
	// 2a = rA + rP
	return SpeedAtApoapsisFromEnergy(-body.μ/(apA+peA+2*body.Radius), apA, body)
}

// SpeedAtApoapsisFromState returns the speed the vehicle would have at an apoapsis of
// altitude apA given its current speed and altitude, i.e. at constant energy.
func SpeedAtApoapsisFromState(v, altitude, apA float64, body CelestialObject) float64 {
	return SpeedAtApoapsisFromEnergy(SpecificEnergy(v, altitude, body), apA, body)
}

// SpeedToReachApoapsis returns the speed needed right now, at the provided altitude,
// for the apoapsis to be at altitude apA.
// cosΦ is the cosine of the flight path angle, i.e. h/(v*r). Since a prograde burn does
// not change the direction of the velocity, it is an input.
// The result diverges when ra^2 tends to cos^2(Φ)*r^2.
func SpeedToReachApoapsis(apA, altitude, cosΦ float64, body CelestialObject) float64 {
	r := altitude + body.Radius
	ra := apA + body.Radius
	// Conservation of h and ξ between here and the apoapsis, where the flight path angle is nil.
	vSqr := 2 * body.μ * ra * (ra - r) / (r * (ra*ra - cosΦ*cosΦ*r*r))
	return math.Sqrt(vSqr)
}

// ApsidesFromState returns the apoapsis and periapsis altitudes of the orbit going
// through the provided altitude at speed v with a flight path angle of cosine cosΦ.
// Hyperbolic trajectories return a negative apoapsis radius, hence a meaningless apA.
func ApsidesFromState(v, altitude, cosΦ float64, body CelestialObject) (apA, peA float64) {
	r := altitude + body.Radius
	h := r * v * cosΦ
	ξ := SpecificEnergy(v, altitude, body)
	eSqr := 1 + 2*ξ*h*h/(body.μ*body.μ)
	if eSqr < 0 && floats.EqualWithinAbs(eSqr, 0, 1e-12) {
		eSqr = 0 // Circular orbit rounding.
	}
	e := math.Sqrt(eSqr)
	a := -body.μ / (2 * ξ)
	apA = a*(1+e) - body.Radius
	peA = a*(1-e) - body.Radius
	return
}

// CircularSpeed returns the speed of a circular orbit at the provided altitude.
func CircularSpeed(altitude float64, body CelestialObject) float64 {
	return math.Sqrt(body.μ / (altitude + body.Radius))
}

// EscapeSpeed returns the local escape speed at the provided altitude.
func EscapeSpeed(altitude float64, body CelestialObject) float64 {
	return math.Sqrt(2 * body.μ / (altitude + body.Radius))
}
