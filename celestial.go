package ascent

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// TargetFactor is the default ratio between the target apsides and the atmosphere depth.
	TargetFactor = 1.1
)

// ErrUnknownBody is returned when a body name is not in the catalogue.
var ErrUnknownBody = errors.New("unknown celestial object")

// CelestialObject defines a celestial object.
// Distances are in meters and μ in m^3/s^2.
type CelestialObject struct {
	Name            string
	Radius          float64
	μ               float64
	AtmosphereDepth float64
}

// NewCelestialObject returns a custom celestial object.
func NewCelestialObject(name string, radius, gm, atmosphereDepth float64) CelestialObject {
	return CelestialObject{name, radius, gm, atmosphereDepth}
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (c CelestialObject) GM() float64 {
	return c.μ
}

// TargetAltitude returns the altitude just above the atmosphere which the ascent aims
// for, both for the apoapsis and the periapsis.
func (c CelestialObject) TargetAltitude() float64 {
	return c.AtmosphereDepth * TargetFactor
}

// HasAtmosphere returns whether this object has an atmosphere at all.
func (c CelestialObject) HasAtmosphere() bool {
	return c.AtmosphereDepth > 0
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.μ == b.μ && c.AtmosphereDepth == b.AtmosphereDepth
}

// CelestialObjectFromString returns the object from its name
func CelestialObjectFromString(name string) (CelestialObject, error) {
	if obj, ok := catalogue[strings.ToLower(strings.TrimSpace(name))]; ok {
		return obj, nil
	}
	return CelestialObject{}, fmt.Errorf("%w: '%s'", ErrUnknownBody, name)
}

// CelestialObjects returns the names of every object in the catalogue.
func CelestialObjects() []string {
	names := make([]string, 0, len(catalogue))
	for _, obj := range []CelestialObject{Kerbol, Moho, Eve, Gilly, Kerbin, Mun, Minmus, Duna, Ike, Dres, Jool, Laythe, Vall, Tylo, Bop, Pol, Eeloo} {
		names = append(names, obj.Name)
	}
	return names
}

var catalogue = map[string]CelestialObject{
	"kerbol": Kerbol,
	"sun":    Kerbol,
	"moho":   Moho,
	"eve":    Eve,
	"gilly":  Gilly,
	"kerbin": Kerbin,
	"mun":    Mun,
	"minmus": Minmus,
	"duna":   Duna,
	"ike":    Ike,
	"dres":   Dres,
	"jool":   Jool,
	"laythe": Laythe,
	"vall":   Vall,
	"tylo":   Tylo,
	"bop":    Bop,
	"pol":    Pol,
	"eeloo":  Eeloo,
}

/* Definitions */

// Kerbol is the star of the system.
var Kerbol = CelestialObject{"Kerbol", 261600000, 1.1723328e18, 600000}

// Moho is too close to Kerbol for comfort.
var Moho = CelestialObject{"Moho", 250000, 1.6860938e11, 0}

// Eve is where landers go to stay.
var Eve = CelestialObject{"Eve", 700000, 8.1717302e12, 90000}

// Gilly is barely holding on to anything.
var Gilly = CelestialObject{"Gilly", 13000, 8.289449e6, 0}

// Kerbin is home.
var Kerbin = CelestialObject{"Kerbin", 600000, 3.5316e12, 70000}

// Mun is the first stop.
var Mun = CelestialObject{"Mun", 200000, 6.5138398e10, 0}

// Minmus is made of mint, allegedly.
var Minmus = CelestialObject{"Minmus", 60000, 1.7658e9, 0}

// Duna is red.
var Duna = CelestialObject{"Duna", 320000, 3.0136321e11, 50000}

// Ike keeps Duna company.
var Ike = CelestialObject{"Ike", 130000, 1.8568369e10, 0}

// Dres is often forgotten.
var Dres = CelestialObject{"Dres", 138000, 2.1484489e10, 0}

// Jool is big and green, and there is no surface to speak of.
var Jool = CelestialObject{"Jool", 6000000, 2.82528e14, 200000}

// Laythe has oxygen.
var Laythe = CelestialObject{"Laythe", 500000, 1.962e12, 50000}

// Vall is icy.
var Vall = CelestialObject{"Vall", 300000, 2.074815e11, 0}

// Tylo is Kerbin sized without the air to brake with.
var Tylo = CelestialObject{"Tylo", 600000, 2.82528e12, 0}

// Bop is a captured asteroid.
var Bop = CelestialObject{"Bop", 65000, 2.4868349e9, 0}

// Pol is tiny.
var Pol = CelestialObject{"Pol", 44000, 7.2170208e8, 0}

// Eeloo is the far end of the system.
var Eeloo = CelestialObject{"Eeloo", 210000, 7.4410815e10, 0}
