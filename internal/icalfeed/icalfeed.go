// Package icalfeed renders a normalized schedule feed as an iCalendar
// (RFC 5545) document so the broadcast schedule can be subscribed to from
// regular calendar clients.
package icalfeed

import (
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "moinghub/internal/log"
	"moinghub/internal/schedule"
)

const (
	productID    = "-//moinghub//broadcast-schedule//KO"
	calendarName = "모잉 방송 일정"

	// Events without an explicit end get a nominal broadcast length so
	// calendar clients render a block instead of a zero-width marker.
	defaultDuration = time.Hour
)

// Render converts a feed into a serialized VCALENDAR. Events whose start
// timestamp cannot be parsed are skipped, not fatal; an empty feed yields a
// valid calendar with no VEVENTs.
func Render(feed *schedule.Feed) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(calendarName)
	cal.SetXWRTimezone("Asia/Seoul")

	now := time.Now().In(schedule.KST())

	for _, ev := range feed.Events {
		start, err := time.Parse(time.RFC3339, ev.Start)
		if err != nil {
			appLog.Error("ics event skipped", err, "id", ev.ID, "start", ev.Start)
			continue
		}

		end := start.Add(defaultDuration)
		if ev.End != "" {
			if parsed, perr := time.Parse(time.RFC3339, ev.End); perr == nil && parsed.After(start) {
				end = parsed
			}
		}

		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Platform != "" {
			ve.SetLocation(ev.Platform)
		}
	}

	return cal.Serialize()
}
