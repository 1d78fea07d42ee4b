package citaprevia

import (
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// shown instead of the calendar when every opening has just been taken
const recentlyBookedPhrase = "Las citas disponibles en esta oficina han sido reservadas recientemente"

// DaysExtractor pulls the raw JSON array of available days out of the office appointments page.
type DaysExtractor interface {
	ExtractDays(page string) (string, bool)
}

var embeddedJsonRegex = regexp.MustCompile(`JSON\.parse\(\s*'([^']*)'\s*\)`)

// RegexDaysExtractor finds the first JSON.parse('...') call in the page and returns its argument.
type RegexDaysExtractor struct{}

func (RegexDaysExtractor) ExtractDays(page string) (string, bool) {
	match := embeddedJsonRegex.FindStringSubmatch(page)
	if match == nil {
		return "", false
	}
	return match[1], true
}

type netAppointmentDay struct {
	Day   int `json:"dia"`
	Month int `json:"mes"`
	Year  int `json:"ano"`
}

func parseAppointmentDays(page string, extractor DaysExtractor) ([]AppointmentDay, error) {
	if strings.Contains(page, recentlyBookedPhrase) {
		return []AppointmentDay{}, nil
	}

	raw, ok := extractor.ExtractDays(page)
	if !ok {
		return nil, structureError("embedded day list not found")
	}

	var netDays []netAppointmentDay
	err := json.Unmarshal([]byte(raw), &netDays)
	if err != nil {
		return nil, structureError("decode embedded day list: %v", err)
	}

	days := make([]AppointmentDay, len(netDays))
	for i, d := range netDays {
		day, err := NewAppointmentDay(d.Year, d.Month, d.Day)
		if err != nil {
			return nil, err
		}
		days[i] = day
	}
	return days, nil
}
