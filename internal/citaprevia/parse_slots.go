package citaprevia

import (
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// the day slots endpoint groups openings by hour and then by minute
type netSlot struct {
	Time      string `json:"hora"`
	Available bool   `json:"disponible"`
}

type netMinuteGroup struct {
	Minute int       `json:"minuto"`
	Slots  []netSlot `json:"huecos"`
}

type netHourGroup struct {
	Hour    int              `json:"hora"`
	Minutes []netMinuteGroup `json:"minutos"`
}

func parseDaySlots(body []byte) ([]netHourGroup, error) {
	var groups []netHourGroup
	err := json.Unmarshal(body, &groups)
	if err != nil {
		return nil, structureError("decode day slots: %v", err)
	}
	return groups, nil
}

// instant resolves "HH:MM" on day in loc.
func (s netSlot) instant(day AppointmentDay, loc *time.Location) (time.Time, error) {
	hourStr, minuteStr, ok := strings.Cut(strings.TrimSpace(s.Time), ":")
	if !ok {
		return time.Time{}, structureError("slot time %q is not HH:MM", s.Time)
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, structureError("slot time %q has an invalid hour", s.Time)
	}
	minute, err := strconv.Atoi(minuteStr)
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, structureError("slot time %q has an invalid minute", s.Time)
	}
	return day.At(hour, minute, loc), nil
}
