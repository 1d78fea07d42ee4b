package chrono

import (
	"time"
	// the binary must not depend on the host having zoneinfo installed
	_ "time/tzdata"
)

var madrid *time.Location

func init() {
	var err error
	madrid, err = time.LoadLocation("Europe/Madrid")
	if err != nil {
		panic(err)
	}
}

// Madrid returns a [*time.Location] for Europe/Madrid, the civil time every office runs on.
func Madrid() *time.Location {
	return madrid
}

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in Location().
	Now() time.Time
	Location() *time.Location
}

// StandardImpl is the implementation of API using the system clock.
type StandardImpl struct {
	location *time.Location
}

func NewStandardImpl() StandardImpl {
	return StandardImpl{location: madrid}
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant, it is used in tests.
type FixedImpl struct {
	Instant time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Instant.In(madrid)
}

func (f FixedImpl) Location() *time.Location {
	return madrid
}
