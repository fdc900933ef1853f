package ascent

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

// kerbinLike is the body used in the reference scenario: μ and radius of Kerbin.
var kerbinLike = NewCelestialObject("Kerbin", 600000, 3.5316e12, 70000)

func TestSpeedAtApoapsisCircular(t *testing.T) {
	for _, body := range []CelestialObject{Kerbin, Mun, Eve, Jool, Gilly} {
		for _, h := range []float64{0, 10000, 77000, 250000, 1e6} {
			got := SpeedAtApoapsisFromApsides(h, h, body)
			exp := math.Sqrt(body.GM() / (h + body.Radius))
			if !floats.EqualWithinRel(got, exp, 1e-12) {
				t.Fatalf("%s h=%.0f: circular speed %f != %f", body, h, got, exp)
			}
			if !floats.EqualWithinRel(got, CircularSpeed(h, body), 1e-12) {
				t.Fatalf("%s h=%.0f: CircularSpeed disagrees", body, h)
			}
		}
	}
}

func TestSpeedAtApoapsisFromStateIdentity(t *testing.T) {
	for _, body := range []CelestialObject{Kerbin, Duna, Laythe} {
		for _, alt := range []float64{0, 35000, 70000, 500000} {
			for _, v := range []float64{100, 1200, 2287.4, 3100, 5000} {
				got := SpeedAtApoapsisFromState(v, alt, alt, body)
				if !floats.EqualWithinRel(got, v, 1e-9) {
					t.Fatalf("%s alt=%.0f: speed at current altitude %f != %f", body, alt, got, v)
				}
			}
		}
	}
}

func TestSpecificEnergy(t *testing.T) {
	apA, peA := 100000., 80000.
	a := (apA+peA)/2 + Kerbin.Radius
	rP := peA + Kerbin.Radius
	vP := math.Sqrt(Kerbin.GM() * (2/rP - 1/a))
	ξ := SpecificEnergy(vP, peA, Kerbin)
	if !floats.EqualWithinRel(ξ, -Kerbin.GM()/(2*a), 1e-12) {
		t.Fatalf("ξ=%f instead of %f", ξ, -Kerbin.GM()/(2*a))
	}
	// The same orbit seen from its apoapsis.
	vA := SpeedAtApoapsisFromEnergy(ξ, apA, Kerbin)
	if !floats.EqualWithinRel(vA, SpeedAtApoapsisFromApsides(apA, peA, Kerbin), 1e-9) {
		t.Fatalf("vA=%f != %f", vA, SpeedAtApoapsisFromApsides(apA, peA, Kerbin))
	}
	// Angular momentum is conserved between both apsides.
	if !floats.EqualWithinRel(vA*(apA+Kerbin.Radius), vP*rP, 1e-9) {
		t.Fatalf("h at apoapsis %f != h at periapsis %f", vA*(apA+Kerbin.Radius), vP*rP)
	}
}

func TestSpeedAtApoapsisUnreachable(t *testing.T) {
	// At rest on the surface: not enough energy to be anywhere above it.
	ξ := SpecificEnergy(0, 0, Kerbin)
	if v := SpeedAtApoapsisFromEnergy(ξ, 100000, Kerbin); !math.IsNaN(v) {
		t.Fatalf("expected NaN, got %f", v)
	}
	if v := SpeedAtApoapsisFromState(500, 0, 100000, Kerbin); !math.IsNaN(v) {
		t.Fatalf("expected NaN, got %f", v)
	}
}

func TestSpeedToReachApoapsisReference(t *testing.T) {
	if !floats.EqualWithinAbs(kerbinLike.TargetAltitude(), 77000, 1e-6) {
		t.Fatalf("target altitude %f != 77000", kerbinLike.TargetAltitude())
	}
	v := SpeedToReachApoapsis(kerbinLike.TargetAltitude(), 70000, 1.0, kerbinLike)
	if !isFinite(v) || v <= 0 {
		t.Fatalf("speed to reach apoapsis should be finite and positive, got %f", v)
	}
	if esc := EscapeSpeed(70000, kerbinLike); v >= esc {
		t.Fatalf("speed %f above escape speed %f", v, esc)
	}
	// Horizontal burn below the apoapsis: the current point becomes the periapsis.
	if circ := CircularSpeed(70000, kerbinLike); v <= circ {
		t.Fatalf("speed %f below circular speed %f", v, circ)
	}
	r := 670000.
	ra := 677000.
	vP := math.Sqrt(2 * kerbinLike.GM() * ra / (r * (r + ra)))
	if !floats.EqualWithinRel(v, vP, 1e-9) {
		t.Fatalf("speed %f != periapsis speed %f", v, vP)
	}
	if !floats.EqualWithinAbs(v, 2301.833, 0.01) {
		t.Fatalf("speed %f != 2301.833", v)
	}
	if Δv := v - 2287.4; Δv <= 0 || Δv > 50 {
		t.Fatalf("Δv=%f from 2287.4 m/s is off", Δv)
	}
}

func TestSpeedToReachApoapsisRoundTrip(t *testing.T) {
	target := kerbinLike.TargetAltitude()
	for _, alt := range []float64{15000, 30000, 70000} {
		for _, cosΦ := range []float64{1, 0.98, 0.9, 0.7, 0.5} {
			v := SpeedToReachApoapsis(target, alt, cosΦ, kerbinLike)
			if !isFinite(v) {
				t.Fatalf("alt=%.0f cosΦ=%f: non finite speed %f", alt, cosΦ, v)
			}
			// Energy conservation must give the same speed at apoapsis as h conservation.
			vAp := SpeedAtApoapsisFromState(v, alt, target, kerbinLike)
			expVAp := (alt + kerbinLike.Radius) * v * cosΦ / (target + kerbinLike.Radius)
			if !floats.EqualWithinRel(vAp, expVAp, 1e-9) {
				t.Fatalf("alt=%.0f cosΦ=%f: vAp=%f != h/ra=%f", alt, cosΦ, vAp, expVAp)
			}
			apA, peA := ApsidesFromState(v, alt, cosΦ, kerbinLike)
			if !floats.EqualWithinAbs(apA, target, 1e-2) {
				t.Fatalf("alt=%.0f cosΦ=%f: apA=%f != %f", alt, cosΦ, apA, target)
			}
			if peA > alt+1e-2 {
				t.Fatalf("alt=%.0f cosΦ=%f: peA=%f above current altitude", alt, cosΦ, peA)
			}
		}
	}
}

func TestSpeedToReachApoapsisSingularity(t *testing.T) {
	alt := 70000.
	target := 77000.
	r := alt + kerbinLike.Radius
	ra := target + kerbinLike.Radius
	cosΦ := ra / r // ra^2 - cos^2(Φ)*r^2 = 0
	prev := 0.0
	for _, ratio := range []float64{0.5, 0.9, 0.99, 0.999, 1 - 1e-6, 1 - 1e-9} {
		v := SpeedToReachApoapsis(target, alt, cosΦ*ratio, kerbinLike)
		if !isFinite(v) || v <= prev {
			t.Fatalf("ratio=%g: speed %f should be finite and increasing (prev=%f)", ratio, v, prev)
		}
		prev = v
	}
	if prev < 1e6 {
		t.Fatalf("speed near the singularity is only %f", prev)
	}
	v := SpeedToReachApoapsis(target, alt, cosΦ, kerbinLike)
	if !(math.IsInf(v, 1) || math.IsNaN(v) || v > 1e6) {
		t.Fatalf("expected a diverging speed at the singularity, got %f", v)
	}
}

func TestApsidesFromState(t *testing.T) {
	// Circular
	v := CircularSpeed(100000, Kerbin)
	apA, peA := ApsidesFromState(v, 100000, 1, Kerbin)
	if !floats.EqualWithinAbs(apA, 100000, 1) || !floats.EqualWithinAbs(peA, 100000, 1) {
		t.Fatalf("circular orbit: apA=%f peA=%f", apA, peA)
	}
	// Elliptical, seen from the apoapsis.
	vA := SpeedAtApoapsisFromApsides(250000, 80000, Kerbin)
	apA, peA = ApsidesFromState(vA, 250000, 1, Kerbin)
	if !floats.EqualWithinAbs(apA, 250000, 1e-2) || !floats.EqualWithinAbs(peA, 80000, 1e-2) {
		t.Fatalf("elliptical orbit: apA=%f peA=%f", apA, peA)
	}
	// Straight up at escape speed: no bound apoapsis.
	apA, _ = ApsidesFromState(EscapeSpeed(0, Kerbin)*1.01, 0, 0, Kerbin)
	if apA > 0 {
		t.Fatalf("hyperbolic trajectory should not have a positive apA, got %f", apA)
	}
}
