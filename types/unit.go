package types

// TestStatus represents the possible outcomes of a unit execution
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusError TestStatus = "error"
	TestStatusSkip  TestStatus = "skip"
)

// Fixture wraps a step of a test run. A fixture performs its setup,
// calls next exactly once, and performs its teardown. Teardown written
// with defer survives a panic escaping next, which is what gives
// once-fixtures their scoped-resource guarantee around a whole suite.
type Fixture func(next func())

// TestUnit is a single runnable test. Units are resolved at discovery
// time and never mutated afterwards.
type TestUnit struct {
	// ID identifies the unit within its suite.
	ID string

	// Suite is the owning suite. Every unit belongs to exactly one.
	Suite *Suite

	// Body is the executable test body. It signals outcomes through
	// the provided handle; the engine never inspects return values.
	Body func(t *T)

	// Synchronized forces the unit onto the sequential (exempt) path,
	// outside any worker pool.
	Synchronized bool

	// Slow marks the unit as known-slow, suppressing long-test
	// warnings.
	Slow bool
}

// Name returns the fully qualified unit name.
func (u TestUnit) Name() string {
	if u.Suite == nil {
		return u.ID
	}
	return u.Suite.ID + "/" + u.ID
}

// Suite is a named grouping of test units sharing fixture chains.
type Suite struct {
	// ID identifies the suite.
	ID string

	// Units holds the suite's units in discovery order.
	Units []TestUnit

	// OnceFixtures wrap the suite's entire run exactly once, outermost
	// first.
	OnceFixtures []Fixture

	// EachFixtures wrap every individual unit run, outermost first.
	EachFixtures []Fixture

	// Synchronized marks every unit of the suite as exempt from
	// parallel dispatch.
	Synchronized bool
}

// NewSuite creates an empty suite with the given identifier.
func NewSuite(id string) *Suite {
	return &Suite{ID: id}
}

// Add appends a unit to the suite in discovery order and back-links
// its owning suite. It returns the suite for chaining.
func (s *Suite) Add(unit TestUnit) *Suite {
	unit.Suite = s
	s.Units = append(s.Units, unit)
	return s
}

// OnceFixture appends a fixture to the suite's once chain.
func (s *Suite) OnceFixture(f Fixture) *Suite {
	s.OnceFixtures = append(s.OnceFixtures, f)
	return s
}

// EachFixture appends a fixture to the suite's each chain.
func (s *Suite) EachFixture(f Fixture) *Suite {
	s.EachFixtures = append(s.EachFixtures, f)
	return s
}

// Counters tracks the run statistics the reporter maintains.
type Counters struct {
	Test  int `json:"test"`
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Error int `json:"error"`
}

// Merge adds other's counts into c key-wise.
func (c *Counters) Merge(other Counters) {
	c.Test += other.Test
	c.Pass += other.Pass
	c.Fail += other.Fail
	c.Error += other.Error
}

// Diff returns the key-wise difference c - earlier.
func (c Counters) Diff(earlier Counters) Counters {
	return Counters{
		Test:  c.Test - earlier.Test,
		Pass:  c.Pass - earlier.Pass,
		Fail:  c.Fail - earlier.Fail,
		Error: c.Error - earlier.Error,
	}
}

// Failed reports whether any failure or error has been counted.
func (c Counters) Failed() bool {
	return c.Fail > 0 || c.Error > 0
}
