// Package calendar merges an employer's stored busy intervals with the
// free/busy view of their Google Calendar.
package calendar

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/hackgods/interview-scheduling/internal/interview"
	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

// NewGoogleService builds a read-only Calendar client from a service account
// key file.
func NewGoogleService(ctx context.Context, credentialsFile string) (*gcal.Service, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}

	srv, err := gcal.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return srv, nil
}

// Source is an interview.AvailabilitySource. Employers without a calendar id,
// or a Source without a Google client, get the stored intervals only.
type Source struct {
	stored    interview.AvailabilitySource
	google    *gcal.Service
	window    scheduling.WorkWindow
	lookahead int
	clock     scheduling.Clock
}

func NewSource(stored interview.AvailabilitySource, google *gcal.Service, window scheduling.WorkWindow, lookaheadDays int, clock scheduling.Clock) *Source {
	if clock == nil {
		clock = scheduling.NewRealClock()
	}
	return &Source{
		stored:    stored,
		google:    google,
		window:    window,
		lookahead: lookaheadDays,
		clock:     clock,
	}
}

var _ interview.AvailabilitySource = (*Source)(nil)

func (s *Source) BusyIntervals(ctx context.Context, employer *interview.Employer) ([]scheduling.BusyInterval, error) {
	busy, err := s.stored.BusyIntervals(ctx, employer)
	if err != nil {
		return nil, err
	}
	if s.google == nil || employer.CalendarID == nil || *employer.CalendarID == "" {
		return busy, nil
	}

	remote, err := s.freeBusy(ctx, *employer.CalendarID)
	if err != nil {
		return nil, fmt.Errorf("employer %s calendar: %w", employer.ID, err)
	}

	merged := make([]scheduling.BusyInterval, 0, len(busy)+len(remote))
	merged = append(merged, busy...)
	merged = append(merged, remote...)
	scheduling.SortIntervals(merged)
	return merged, nil
}

// horizon covers every work window the planner can look at.
func (s *Source) horizon() (time.Time, time.Time) {
	loc := s.window.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := s.clock.Now().In(loc).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, s.lookahead)
}

func (s *Source) freeBusy(ctx context.Context, calendarID string) ([]scheduling.BusyInterval, error) {
	from, to := s.horizon()

	resp, err := s.google.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("query free/busy: %w", err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("calendar %q missing from free/busy response", calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("calendar %q: %s", calendarID, cal.Errors[0].Reason)
	}

	raw := make([]scheduling.RawInterval, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		if p == nil {
			continue
		}
		raw = append(raw, scheduling.RawInterval{Start: p.Start, End: p.End, Label: "calendar"})
	}

	busy := scheduling.NormalizeIntervals(raw)
	if dropped := len(raw) - len(busy); dropped > 0 {
		log.Printf("calendar %s: dropped %d malformed busy periods", calendarID, dropped)
	}
	return busy, nil
}
