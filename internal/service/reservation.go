package service

import (
    "context"
    "errors"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/iliyamo/seat-inventory/internal/model"
    "github.com/iliyamo/seat-inventory/internal/repository"
)

// ReservationManager places time-boxed holds on seats, releases them and
// sweeps the expired ones.
type ReservationManager struct {
    store Store
    settings
}

// NewReservationManager returns a manager writing holds to store.
func NewReservationManager(store Store, opts ...Option) *ReservationManager {
    return &ReservationManager{store: store, settings: newSettings(opts)}
}

// ReserveRequest asks for holds on SeatIDs of one schedule.  SessionID is
// optional: an empty one starts a new checkout session.  TTL zero means
// the default hold lifetime.
type ReserveRequest struct {
    ScheduleID uint64
    SeatIDs    []uint64
    SessionID  string
    TTL        time.Duration
}

// ReserveResult is what the booking UI needs to continue the checkout.
type ReserveResult struct {
    SessionID string                  `json:"session_id"`
    ExpiresAt time.Time               `json:"expires_at"`
    Holds     []model.SeatReservation `json:"holds"`
}

// Reserve holds every requested seat or none.  A seat booked, or held by
// another session, fails the request with a *ConflictError and leaves no
// holds behind.  Seats already held by the same session get a new expiry.
func (m *ReservationManager) Reserve(ctx context.Context, actor Actor, req ReserveRequest) (ReserveResult, error) {
    if actor.UserID == 0 {
        return ReserveResult{}, ErrForbidden
    }
    ids := dedupeIDs(req.SeatIDs)
    if len(ids) == 0 {
        return ReserveResult{}, invalid("no seat ids given")
    }
    if len(ids) > m.maxSeatsPerHold {
        return ReserveResult{}, invalid("at most %d seats per hold", m.maxSeatsPerHold)
    }
    ttl := req.TTL
    if ttl == 0 {
        ttl = m.holdTTL
    }
    if ttl < time.Minute || ttl > m.maxHoldTTL {
        return ReserveResult{}, invalid("ttl must be between 1 and %d minutes", int(m.maxHoldTTL.Minutes()))
    }

    sched, err := m.store.GetSchedule(ctx, req.ScheduleID)
    if err != nil {
        return ReserveResult{}, translate(err, "schedule", req.ScheduleID)
    }
    seats, err := m.store.ListVenueSeats(ctx, sched.VenueID)
    if err != nil {
        return ReserveResult{}, err
    }
    index := indexSeats(seats)
    for _, id := range ids {
        if _, ok := index[id]; !ok {
            return ReserveResult{}, notFound("seat", id)
        }
    }

    sessionID, err := m.claimSession(ctx, actor, req.SessionID, req.ScheduleID)
    if err != nil {
        return ReserveResult{}, err
    }

    now := m.now()
    expiresAt := now.Add(ttl)
    holds := make([]model.SeatReservation, 0, len(ids))
    for _, id := range ids {
        holds = append(holds, model.SeatReservation{
            ScheduleID: req.ScheduleID,
            SeatID:     id,
            UserID:     actor.UserID,
            SessionID:  sessionID,
            CreatedAt:  now,
            ExpiresAt:  expiresAt,
        })
    }
    if err := m.store.CreateHolds(ctx, holds, now); err != nil {
        var taken *repository.SeatTakenError
        if errors.As(err, &taken) {
            m.log.Info("hold conflict",
                zap.Uint64("schedule_id", req.ScheduleID),
                zap.Uint64s("seat_ids", taken.SeatIDs),
                zap.Uint64("user_id", actor.UserID))
            return ReserveResult{}, m.seatConflict(ctx, m.store, taken, req.ScheduleID, index)
        }
        return ReserveResult{}, err
    }
    m.log.Debug("seats held",
        zap.Uint64("schedule_id", req.ScheduleID),
        zap.String("session_id", sessionID),
        zap.Int("seats", len(holds)),
        zap.Time("expires_at", expiresAt))
    return ReserveResult{SessionID: sessionID, ExpiresAt: expiresAt, Holds: holds}, nil
}

// claimSession returns the session to hold under.  An existing session must
// belong to the actor and to the same schedule.
func (m *ReservationManager) claimSession(ctx context.Context, actor Actor, sessionID string, scheduleID uint64) (string, error) {
    if sessionID == "" {
        return uuid.NewString(), nil
    }
    parsed, err := uuid.Parse(sessionID)
    if err != nil {
        return "", invalid("session id must be a UUID")
    }
    sessionID = parsed.String()
    existing, err := m.store.ListHoldsBySession(ctx, sessionID)
    if err != nil {
        return "", err
    }
    for _, h := range existing {
        if h.UserID != actor.UserID {
            return "", ErrForbidden
        }
        if h.ScheduleID != scheduleID {
            return "", invalid("session %s belongs to another schedule", sessionID)
        }
    }
    return sessionID, nil
}

// Release deletes every hold of a session and returns how many of them were
// still active.  Absent or expired sessions release nothing and are not an
// error.  Only the session owner or an admin may release.
func (m *ReservationManager) Release(ctx context.Context, actor Actor, sessionID string) (int64, error) {
    if sessionID == "" {
        return 0, invalid("session id required")
    }
    parsed, err := uuid.Parse(sessionID)
    if err != nil {
        return 0, invalid("session id must be a UUID")
    }
    sessionID = parsed.String()
    holds, err := m.store.ListHoldsBySession(ctx, sessionID)
    if err != nil {
        return 0, err
    }
    if len(holds) == 0 {
        return 0, nil
    }
    if err := m.policy.Authorize(actor, holds[0].UserID, 0); err != nil {
        return 0, err
    }
    now := m.now()
    var active int64
    for _, h := range holds {
        if !h.Expired(now) {
            active++
        }
    }
    if _, err := m.store.DeleteHoldsBySession(ctx, sessionID); err != nil {
        return 0, err
    }
    m.log.Debug("session released", zap.String("session_id", sessionID), zap.Int64("active", active))
    return active, nil
}

// SweepExpired deletes every hold whose expiry has passed.  It ignores who
// holds the seat and why.
func (m *ReservationManager) SweepExpired(ctx context.Context) (int64, error) {
    n, err := m.store.DeleteExpiredHolds(ctx, m.now())
    if err != nil {
        return 0, err
    }
    if n > 0 {
        m.log.Info("expired holds swept", zap.Int64("count", n))
    }
    return n, nil
}
