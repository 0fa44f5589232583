package mapper

import (
	"strings"
	"time"

	"chatcal/modules/calendar/dto"
)

const DefaultEventTitle = "Untitled Event"

// IsAllDay reports whether a stored start (or end) value is a bare calendar
// date. Google sends all-day boundaries without a time component, so the
// absence of the "T" separator is the flag; it is derived, never stored.
func IsAllDay(start string) bool {
	return start != "" && !strings.Contains(start, "T")
}

// FromGoogleEvent maps a provider event onto the internal representation.
func FromGoogleEvent(g dto.GoogleEvent) dto.CalendarEvent {
	title := g.Summary
	if title == "" {
		title = DefaultEventTitle
	}

	start := g.Start.DateTime
	if start == "" {
		start = g.Start.Date
	}
	end := g.End.DateTime
	if end == "" {
		end = g.End.Date
	}

	return dto.CalendarEvent{
		ID:          g.ID,
		Title:       title,
		Start:       start,
		End:         end,
		Location:    g.Location,
		Description: g.Description,
		HTMLLink:    g.HTMLLink,
	}
}

// FromGoogleEvents maps a provider list, preserving provider order.
func FromGoogleEvents(items []dto.GoogleEvent) []dto.CalendarEvent {
	events := make([]dto.CalendarEvent, 0, len(items))
	for _, item := range items {
		events = append(events, FromGoogleEvent(item))
	}
	return events
}

// ToGoogleEvent is the inverse of FromGoogleEvent: an all-day event becomes
// {date}, a timed one {dateTime}.
func ToGoogleEvent(e dto.CalendarEvent, allDay bool) dto.GoogleEvent {
	g := dto.GoogleEvent{
		ID:          e.ID,
		Summary:     e.Title,
		Location:    e.Location,
		Description: e.Description,
		HTMLLink:    e.HTMLLink,
	}
	if allDay {
		g.Start = dto.GoogleEventTime{Date: e.Start}
		g.End = dto.GoogleEventTime{Date: e.End}
	} else {
		g.Start = dto.GoogleEventTime{DateTime: e.Start}
		g.End = dto.GoogleEventTime{DateTime: e.End}
	}
	return g
}

// BuildEventPayload turns a create/update form into the provider payload.
// Timed boundaries carry the given UTC offset (e.g. "+0700").
func BuildEventPayload(input dto.EventInput, tzOffset string) dto.GoogleEvent {
	g := dto.GoogleEvent{
		Summary:     input.Title,
		Location:    input.Location,
		Description: input.Description,
	}
	if input.AllDay {
		g.Start = dto.GoogleEventTime{Date: input.StartDate}
		g.End = dto.GoogleEventTime{Date: input.EndDate}
	} else {
		g.Start = dto.GoogleEventTime{DateTime: input.StartDate + "T" + input.StartTime + ":00" + tzOffset}
		g.End = dto.GoogleEventTime{DateTime: input.EndDate + "T" + input.EndTime + ":00" + tzOffset}
	}
	return g
}

// LocalUTCOffset formats t's zone as ±HHMM.
func LocalUTCOffset(t time.Time) string {
	return t.Format("-0700")
}
