package service

import (
    "fmt"
    "math"
    "strings"
    "time"

    "github.com/iliyamo/seat-inventory/internal/model"
)

// BookingWindow is the commit cutoff rule.  Bookings close the instant a
// show starts, except for GraceCategory which stays open for GracePeriod
// after the start.
type BookingWindow struct {
    GraceCategory string
    GracePeriod   time.Duration
}

// DefaultBookingWindow gives movies fifteen minutes of grace.
func DefaultBookingWindow() BookingWindow {
    return BookingWindow{GraceCategory: "MOVIE", GracePeriod: 15 * time.Minute}
}

// Check returns a *WindowClosedError when now is past the cutoff of s.
func (w BookingWindow) Check(s model.ShowSchedule, now time.Time) error {
    grace := time.Duration(0)
    rule := fmt.Sprintf("%s bookings close when the show starts", categoryName(s.ShowCategory))
    if w.GraceCategory != "" && strings.EqualFold(s.ShowCategory, w.GraceCategory) {
        grace = w.GracePeriod
        rule = fmt.Sprintf("%s bookings close %d minutes after the show starts",
            categoryName(s.ShowCategory), int(grace.Minutes()))
    }
    cutoff := s.StartsAt.Add(grace)
    if !now.After(cutoff) {
        return nil
    }
    return &WindowClosedError{
        MinutesLate: minutesCeil(now.Sub(cutoff)),
        Rule:        rule,
        StartsAt:    s.StartsAt,
        Cutoff:      cutoff,
    }
}

// cancelCutoff is the rule for customer cancellations: none once the show
// has started.
func cancelCutoff(s model.ShowSchedule, now time.Time) error {
    if !now.After(s.StartsAt) {
        return nil
    }
    return &WindowClosedError{
        MinutesLate: minutesCeil(now.Sub(s.StartsAt)),
        Rule:        "bookings can no longer be cancelled once the show has started",
        StartsAt:    s.StartsAt,
        Cutoff:      s.StartsAt,
    }
}

func minutesCeil(d time.Duration) int {
    return int(math.Ceil(d.Minutes()))
}

func categoryName(c string) string {
    if c == "" {
        return "show"
    }
    return strings.ToLower(c)
}
