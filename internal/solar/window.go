// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package solar

import (
	"fmt"
	"time"

	"github.com/tomtom215/skylapse/internal/models"
)

// Window computes today's capture window for schedule, given `todayLocal`
// (any instant on the calendar date to evaluate, in loc's zone). It always
// returns a uniform (start, end) pair regardless of schedule kind, with
// start <= end. Both endpoints are inclusive: a window that already ended
// earlier today is still returned unmodified; "is this window active" is a
// pure comparison against the current instant, done by the caller.
func Window(loc models.Location, schedule models.Schedule, todayLocal time.Time) (start, end time.Time, err error) {
	switch schedule.Kind {
	case models.ScheduleSolarRelative:
		return solarRelativeWindow(loc, schedule, todayLocal)
	case models.ScheduleTimeOfDay:
		return timeOfDayWindow(schedule, todayLocal)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("solar: unknown schedule kind %q", schedule.Kind)
	}
}

// Active reports whether `now` falls within [start, end], inclusive.
func Active(start, end, now time.Time) bool {
	return !now.Before(start) && !now.After(end)
}

func solarRelativeWindow(loc models.Location, schedule models.Schedule, todayLocal time.Time) (time.Time, time.Time, error) {
	anchorInstant, err := Anchor(loc, todayLocal, schedule.Anchor)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := anchorInstant.Add(time.Duration(schedule.OffsetMinutes * float64(time.Minute)))
	end := start.Add(time.Duration(schedule.DurationMinutes * float64(time.Minute)))
	if end.Before(start) {
		start, end = end, start
	}
	return start, end, nil
}

func timeOfDayWindow(schedule models.Schedule, todayLocal time.Time) (time.Time, time.Time, error) {
	zone := todayLocal.Location()
	year, month, day := todayLocal.Date()

	startH, startM, err := parseHHMM(schedule.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("solar: schedule %q start_time: %w", schedule.Name, err)
	}
	endH, endM, err := parseHHMM(schedule.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("solar: schedule %q end_time: %w", schedule.Name, err)
	}

	start := time.Date(year, month, day, startH, startM, 0, 0, zone)
	end := time.Date(year, month, day, endH, endM, 0, 0, zone)
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("solar: schedule %q end_time before start_time", schedule.Name)
	}
	return start, end, nil
}

func parseHHMM(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("HH:MM out of range: %q", s)
	}
	return hour, minute, nil
}
