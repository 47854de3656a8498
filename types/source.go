package types

// Source is anything that reduces to a flat collection of test units.
// It replaces open-ended dispatch on discovery inputs with a closed
// set of implementations: a single unit, a suite, a qualified unit
// reference and a collection of any of these.
type Source interface {
	TestUnits() []TestUnit
}

// TestUnits implements Source for a single unit.
func (u TestUnit) TestUnits() []TestUnit { return []TestUnit{u} }

// TestUnits implements Source for a suite, yielding its units in
// discovery order.
func (s *Suite) TestUnits() []TestUnit {
	units := make([]TestUnit, len(s.Units))
	copy(units, s.Units)
	return units
}

// UnitRef is a qualified reference to a single unit inside a suite.
type UnitRef struct {
	Suite  *Suite
	UnitID string
}

// TestUnits resolves the reference. An unresolvable reference yields
// no units; discovery errors are the collaborator's concern, not the
// engine's.
func (r UnitRef) TestUnits() []TestUnit {
	if r.Suite == nil {
		return nil
	}
	for _, u := range r.Suite.Units {
		if u.ID == r.UnitID {
			return []TestUnit{u}
		}
	}
	return nil
}

// Collection is an ordered list of sources flattened recursively.
type Collection []Source

// TestUnits implements Source.
func (c Collection) TestUnits() []TestUnit {
	var units []TestUnit
	for _, src := range c {
		units = append(units, src.TestUnits()...)
	}
	return units
}

// Flatten reduces any mix of sources to the flat unit collection the
// engine consumes, preserving order.
func Flatten(sources ...Source) []TestUnit {
	return Collection(sources).TestUnits()
}
