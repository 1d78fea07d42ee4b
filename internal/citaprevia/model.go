package citaprevia

import (
	"fmt"
	"time"
)

// OfficeProcedure is a procedure as it is offered by a specific office.
type OfficeProcedure struct {
	Category          string
	Name              string
	ProcedureId       ProcedureId
	ProcedureOfficeId ProcedureOfficeId
}

// Office is the full description of an office as returned by the office detail
// and closest office endpoints.
type Office struct {
	Id              OfficeId
	Name            string
	Group           string
	IntegrationCode string
	Latitude        float64
	Longitude       float64
	Address         string
	DistrictCode    string
	DistrictName    string
	InformationUrl  string
	Procedures      []OfficeProcedure
}

// OfficeSummary is what the office listing exposes for each office.
type OfficeSummary struct {
	Id    OfficeId
	Name  string
	Group string
}

type Procedure struct {
	Id       ProcedureId
	Name     string
	Category string
}

// AppointmentDay is a calendar date with at least one reported opening. The slot level
// availability is maintained separately upstream, so a day may still turn out to have no slots.
type AppointmentDay struct {
	Year  int
	Month time.Month
	Day   int
}

// NewAppointmentDay returns an error wrapping ErrInvalidDate if the triple is not a real calendar date.
func NewAppointmentDay(year, month, day int) (AppointmentDay, error) {
	if month < 1 || month > 12 || day < 1 {
		return AppointmentDay{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return AppointmentDay{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return AppointmentDay{Year: year, Month: time.Month(month), Day: day}, nil
}

// DayOf returns the civil date of t in its own location.
func DayOf(t time.Time) AppointmentDay {
	return AppointmentDay{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// At returns the instant at hour:minute of this day in loc.
func (d AppointmentDay) At(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

func (d AppointmentDay) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// upstreamFormat is the DD/MM/YYYY format the day slots endpoint expects.
func (d AppointmentDay) upstreamFormat() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

func (d AppointmentDay) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *AppointmentDay) UnmarshalText(text []byte) error {
	t, err := time.Parse(time.DateOnly, string(text))
	if err != nil {
		return err
	}
	*d = DayOf(t)
	return nil
}
