package service

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "go.uber.org/zap"

    "github.com/iliyamo/seat-inventory/internal/model"
    "github.com/iliyamo/seat-inventory/internal/queue"
)

// Anomaly kinds found while reconciling.  Each one means the stored data
// disagrees with itself, not just that a counter drifted.
const (
    AnomalyTotalMismatch    = "TOTAL_MISMATCH"
    AnomalyCapacityMismatch = "CAPACITY_MISMATCH"
    AnomalyOverbooked       = "OVERBOOKED"
    AnomalyOvercommitted    = "OVERCOMMITTED"
)

// Anomaly is one inconsistency of a schedule.
type Anomaly struct {
    Kind    string `json:"kind"`
    Message string `json:"message"`
}

// ScheduleReport is the outcome of reconciling one schedule.
//
// Fields:
//  Before/After - counters as stored and as written back.
//  Booked/Held  - seats of occupying bookings and seats under active holds.
//  Drifted      - After differs from Before.
//  Anomalies    - inconsistencies that a counter rewrite cannot explain.
type ScheduleReport struct {
    ScheduleID   uint64               `json:"schedule_id"`
    VenueID      uint64               `json:"venue_id"`
    Before       model.ScheduleCounts `json:"before"`
    After        model.ScheduleCounts `json:"after"`
    Booked       uint32               `json:"booked"`
    Held         uint32               `json:"held"`
    Drifted      bool                 `json:"drifted"`
    Inconsistent bool                 `json:"inconsistent"`
    Anomalies    []Anomaly            `json:"anomalies"`
}

// Err returns an error wrapping ErrInconsistentState when the report has
// anomalies.
func (r ScheduleReport) Err() error {
    if !r.Inconsistent {
        return nil
    }
    kinds := make([]string, 0, len(r.Anomalies))
    for _, a := range r.Anomalies {
        kinds = append(kinds, a.Kind)
    }
    return fmt.Errorf("schedule %d: %w: %s", r.ScheduleID, ErrInconsistentState, strings.Join(kinds, ","))
}

// Summary aggregates a multi-schedule run.
type Summary struct {
    Schedules    int              `json:"schedules"`
    Synced       int              `json:"synced"`
    Drifted      int              `json:"drifted"`
    Inconsistent int              `json:"inconsistent"`
    Failed       int              `json:"failed"`
    Reports      []ScheduleReport `json:"reports"`
    Errors       []string         `json:"errors,omitempty"`
}

// Recompute derives the counters of a schedule from its snapshot.  The
// total is the number of modeled seats, or the venue capacity when the
// venue has none.
func Recompute(s model.ScheduleSnapshot) model.ScheduleCounts {
    total := s.PhysicalSeats
    if total == 0 {
        total = s.VenueCapacity
    }
    available := uint32(0)
    if s.ActiveBooked < total {
        available = total - s.ActiveBooked
    }
    return model.ScheduleCounts{TotalSeats: total, SeatsAvailable: available}
}

// anomalies lists what is wrong with a snapshot given the recomputed counts.
func anomalies(s model.ScheduleSnapshot, c model.ScheduleCounts) []Anomaly {
    out := []Anomaly{}
    if s.Schedule.TotalSeats != c.TotalSeats {
        out = append(out, Anomaly{
            Kind:    AnomalyTotalMismatch,
            Message: fmt.Sprintf("stored total_seats %d, venue has %d", s.Schedule.TotalSeats, c.TotalSeats),
        })
    }
    if s.PhysicalSeats > 0 && s.VenueCapacity != s.PhysicalSeats {
        out = append(out, Anomaly{
            Kind:    AnomalyCapacityMismatch,
            Message: fmt.Sprintf("venue capacity %d, modeled seats %d", s.VenueCapacity, s.PhysicalSeats),
        })
    }
    if s.ActiveBooked > c.TotalSeats {
        out = append(out, Anomaly{
            Kind:    AnomalyOverbooked,
            Message: fmt.Sprintf("%d seats booked, total %d", s.ActiveBooked, c.TotalSeats),
        })
    } else if s.ActiveBooked+s.ActiveHeld > c.TotalSeats {
        out = append(out, Anomaly{
            Kind:    AnomalyOvercommitted,
            Message: fmt.Sprintf("%d booked and %d held, total %d", s.ActiveBooked, s.ActiveHeld, c.TotalSeats),
        })
    }
    return out
}

// Reconciler recomputes schedule counters from ground truth.
type Reconciler struct {
    store Store
    settings
}

// NewReconciler returns a reconciler writing to store.
func NewReconciler(store Store, opts ...Option) *Reconciler {
    return &Reconciler{store: store, settings: newSettings(opts)}
}

// SynchronizeSchedule rewrites total_seats and seats_available of one
// schedule inside a single transaction.  Anomalies are logged, published
// and returned in the report; the recomputed values are written anyway.
func (r *Reconciler) SynchronizeSchedule(ctx context.Context, scheduleID uint64) (ScheduleReport, error) {
    now := r.now()
    snap, counts, err := r.store.ReconcileSchedule(ctx, scheduleID, now, Recompute)
    if err != nil {
        return ScheduleReport{}, translate(err, "schedule", scheduleID)
    }
    rep := ScheduleReport{
        ScheduleID: scheduleID,
        VenueID:    snap.Schedule.VenueID,
        Before: model.ScheduleCounts{
            TotalSeats:     snap.Schedule.TotalSeats,
            SeatsAvailable: snap.Schedule.SeatsAvailable,
        },
        After:     counts,
        Booked:    snap.ActiveBooked,
        Held:      snap.ActiveHeld,
        Anomalies: anomalies(snap, counts),
    }
    rep.Drifted = rep.Before != rep.After
    rep.Inconsistent = len(rep.Anomalies) > 0

    if rep.Inconsistent {
        r.log.Warn("inventory inconsistent",
            zap.Uint64("schedule_id", scheduleID),
            zap.Uint64("venue_id", rep.VenueID),
            zap.Any("anomalies", rep.Anomalies),
            zap.Uint32("total_before", rep.Before.TotalSeats),
            zap.Uint32("total_after", rep.After.TotalSeats))
        kinds := make([]string, 0, len(rep.Anomalies))
        for _, a := range rep.Anomalies {
            kinds = append(kinds, a.Kind)
        }
        r.publish(ctx, queue.RouteInventoryInconsistent, queue.InconsistencyEvent{
            ScheduleID:  scheduleID,
            VenueID:     rep.VenueID,
            Anomalies:   kinds,
            TotalBefore: rep.Before.TotalSeats,
            TotalAfter:  rep.After.TotalSeats,
            Booked:      rep.Booked,
            Held:        rep.Held,
            OccurredAt:  now,
        })
    } else if rep.Drifted {
        r.log.Info("counter drift corrected",
            zap.Uint64("schedule_id", scheduleID),
            zap.Uint32("available_before", rep.Before.SeatsAvailable),
            zap.Uint32("available_after", rep.After.SeatsAvailable))
    }
    return rep, nil
}

// SynchronizeVenue reconciles every schedule of a venue, one transaction
// each.
func (r *Reconciler) SynchronizeVenue(ctx context.Context, venueID uint64) (Summary, error) {
    if _, err := r.store.GetVenue(ctx, venueID); err != nil {
        return Summary{}, translate(err, "venue", venueID)
    }
    return r.synchronize(ctx, venueID)
}

// SynchronizeAll reconciles every schedule.  A failing schedule is counted
// and does not stop the run.
func (r *Reconciler) SynchronizeAll(ctx context.Context) (Summary, error) {
    return r.synchronize(ctx, 0)
}

func (r *Reconciler) synchronize(ctx context.Context, venueID uint64) (Summary, error) {
    ids, err := r.store.ListScheduleIDs(ctx, venueID)
    if err != nil {
        return Summary{}, err
    }
    sum := Summary{Schedules: len(ids), Reports: []ScheduleReport{}}
    var errs []error
    for _, id := range ids {
        if err := ctx.Err(); err != nil {
            errs = append(errs, err)
            break
        }
        rep, err := r.SynchronizeSchedule(ctx, id)
        if err != nil {
            sum.Failed++
            sum.Errors = append(sum.Errors, err.Error())
            r.log.Error("reconcile schedule", zap.Uint64("schedule_id", id), zap.Error(err))
            continue
        }
        sum.Synced++
        if rep.Drifted {
            sum.Drifted++
        }
        if rep.Inconsistent {
            sum.Inconsistent++
        }
        sum.Reports = append(sum.Reports, rep)
    }
    r.log.Info("reconcile finished",
        zap.Uint64("venue_id", venueID),
        zap.Int("schedules", sum.Schedules),
        zap.Int("drifted", sum.Drifted),
        zap.Int("inconsistent", sum.Inconsistent),
        zap.Int("failed", sum.Failed))
    return sum, errors.Join(errs...)
}
