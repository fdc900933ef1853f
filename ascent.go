package ascent

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// AscentReport holds what the overlay displays for one snapshot: how much Δv is left to
// put the apoapsis at the target altitude, and then to raise the periapsis up to it.
type AscentReport struct {
	Snapshot  Snapshot
	TargetApA float64 // apoapsis to reach, usually just above the atmosphere
	TargetPeA float64 // periapsis to reach
	CosΦ      float64 // cosine of the flight path angle

	SpeedForAp float64 // speed needed now for the apoapsis to be at DesiredApA
	ΔvToAp     float64

	DesiredApA               float64 // TargetApA, or the current apoapsis if already above it
	SpeedAtDesiredApA        float64 // speed at DesiredApA after the first burn
	DesiredSpeedAtDesiredApA float64 // speed at DesiredApA on the target orbit
	ΔvToRaisePe              float64

	TotalΔv float64
}

// NewAscentReport is the same as NewTargetedAscentReport with the target altitude of the body.
func NewAscentReport(s Snapshot) AscentReport {
	return NewTargetedAscentReport(s, s.Body.TargetAltitude())
}

// NewTargetedAscentReport returns the ascent report for reaching an orbit whose apsides are
// both at the provided altitude.
func NewTargetedAscentReport(s Snapshot, target float64) AscentReport {
	body := s.Body
	r := AscentReport{Snapshot: s, TargetApA: target, TargetPeA: target, DesiredApA: target}
	r.CosΦ = s.CosΦfpa()
	if s.ApA >= r.DesiredApA {
		// Already high enough, don't lower it.
		r.DesiredApA = s.ApA
		r.SpeedForAp = s.Speed
	} else {
		r.SpeedForAp = SpeedToReachApoapsis(r.DesiredApA, s.Altitude, r.CosΦ, body)
	}
	r.ΔvToAp = r.SpeedForAp - s.Speed
	r.SpeedAtDesiredApA = SpeedAtApoapsisFromState(r.SpeedForAp, s.Altitude, r.DesiredApA, body)
	r.DesiredSpeedAtDesiredApA = SpeedAtApoapsisFromApsides(r.DesiredApA, r.TargetPeA, body)
	r.ΔvToRaisePe = math.Max(0, r.DesiredSpeedAtDesiredApA-r.SpeedAtDesiredApA)
	r.TotalΔv = math.Max(0, r.ΔvToRaisePe) + math.Max(0, r.ΔvToAp)
	return r
}

// Finite returns whether every computed value is a real number. Non finite values mean
// that the snapshot has no solution with these formulas, which is still displayed.
func (r AscentReport) Finite() bool {
	for _, v := range []float64{r.CosΦ, r.SpeedForAp, r.ΔvToAp, r.SpeedAtDesiredApA, r.DesiredSpeedAtDesiredApA, r.ΔvToRaisePe, r.TotalΔv} {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// String implements the stringer interface.
func (r AscentReport) String() string {
	return fmt.Sprintf("Δv_ap=%.3f Δv_pe=%.3f Δv=%.3f (%s)", r.ΔvToAp, r.ΔvToRaisePe, r.TotalΔv, r.Snapshot)
}

// ReportLine is one line of the overlay.
type ReportLine struct {
	Label     string
	Value     string
	Separator bool
}

// String implements the stringer interface.
func (l ReportLine) String() string {
	if l.Separator {
		return separator
	}
	return l.Label + ": " + l.Value
}

const separator = "-----------------------------"

var printer = message.NewPrinter(language.English)

// formatN returns v with the provided number of decimals and thousands grouping.
func formatN(v float64, decimals int) string {
	if !isFinite(v) {
		return fmt.Sprint(v)
	}
	return printer.Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}

// Lines returns the labeled values in display order. Altitudes are rounded to the meter,
// speeds and angles have three decimals.
func (r AscentReport) Lines() []ReportLine {
	s := r.Snapshot
	return []ReportLine{
		{Label: "Current Ap", Value: formatN(s.ApA, 0) + " / " + formatN(r.TargetApA, 0) + " m"},
		{Label: "Flight path angle", Value: formatN(s.FlightPathAngle(), 3) + " rad"},
		{Label: "Speed current", Value: formatN(s.Speed, 3) + " m/s"},
		{Label: "Speed to reach desired Ap", Value: formatN(r.SpeedForAp, 3) + " m/s"},
		{Label: "Delta V to Ap", Value: formatN(r.ΔvToAp, 3) + " m/s"},
		{Separator: true},
		{Label: "Periapsis", Value: formatN(s.PeA, 0) + " / " + formatN(r.TargetPeA, 0) + " m"},
		{Label: "Desired Ap", Value: formatN(r.DesiredApA, 3) + " m"},
		{Label: "Speed at desired Ap", Value: formatN(r.SpeedAtDesiredApA, 3) + " m/s"},
		{Label: "Desired speed at desired Ap", Value: formatN(r.DesiredSpeedAtDesiredApA, 3) + " m/s"},
		{Label: "Delta V to raise Pe", Value: formatN(r.ΔvToRaisePe, 3) + " m/s"},
		{Separator: true},
		{Label: "Total Delta V", Value: formatN(r.TotalΔv, 3) + " m/s"},
	}
}
