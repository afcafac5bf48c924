package service

import (
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/seat-inventory/internal/config"
)

const (
    defaultHoldTTL         = 10 * time.Minute
    defaultMaxHoldTTL      = 30 * time.Minute
    defaultMaxSeatsPerHold = 10
    defaultPendingTTL      = 15 * time.Minute
    stalePendingBatch      = 200
    alternativesLimit      = 10
)

// settings is shared by every component; each constructor applies the
// options it is given on top of the defaults.
type settings struct {
    now             func() time.Time
    log             *zap.Logger
    publisher       EventPublisher
    holdTTL         time.Duration
    maxHoldTTL      time.Duration
    maxSeatsPerHold int
    pendingTTL      time.Duration
    window          BookingWindow
    discount        DiscountFunc
    policy          Policy
}

// Option customizes a service component.
type Option func(*settings)

func newSettings(opts []Option) settings {
    s := settings{
        now:             func() time.Time { return time.Now().UTC() },
        log:             zap.NewNop(),
        publisher:       NopPublisher{},
        holdTTL:         defaultHoldTTL,
        maxHoldTTL:      defaultMaxHoldTTL,
        maxSeatsPerHold: defaultMaxSeatsPerHold,
        pendingTTL:      defaultPendingTTL,
        window:          DefaultBookingWindow(),
        discount:        NoDiscounts,
    }
    for _, opt := range opts {
        opt(&s)
    }
    if s.maxHoldTTL < s.holdTTL {
        s.maxHoldTTL = s.holdTTL
    }
    return s
}

// WithClock replaces time.Now.  Returned times are converted to UTC.
func WithClock(now func() time.Time) Option {
    return func(s *settings) {
        if now != nil {
            s.now = func() time.Time { return now().UTC() }
        }
    }
}

// WithLogger sets the zap logger.
func WithLogger(l *zap.Logger) Option {
    return func(s *settings) {
        if l != nil {
            s.log = l
        }
    }
}

// WithPublisher sets where domain events go.
func WithPublisher(p EventPublisher) Option {
    return func(s *settings) {
        if p != nil {
            s.publisher = p
        }
    }
}

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) Option {
    return func(s *settings) {
        if d > 0 {
            s.holdTTL = d
        }
    }
}

// WithMaxHoldTTL bounds the per-request TTL override.
func WithMaxHoldTTL(d time.Duration) Option {
    return func(s *settings) {
        if d > 0 {
            s.maxHoldTTL = d
        }
    }
}

// WithMaxSeatsPerHold limits the batch size of one reserve call.
func WithMaxSeatsPerHold(n int) Option {
    return func(s *settings) {
        if n > 0 {
            s.maxSeatsPerHold = n
        }
    }
}

// WithPendingTTL sets how long an unpaid booking may stay PENDING.
func WithPendingTTL(d time.Duration) Option {
    return func(s *settings) {
        if d > 0 {
            s.pendingTTL = d
        }
    }
}

// WithBookingWindow sets the commit cutoff rule.
func WithBookingWindow(w BookingWindow) Option {
    return func(s *settings) { s.window = w }
}

// WithDiscount sets the discount collaborator used at commit.
func WithDiscount(fn DiscountFunc) Option {
    return func(s *settings) {
        if fn != nil {
            s.discount = fn
        }
    }
}

// ConfigOptions translates the inventory configuration into options.
func ConfigOptions(cfg config.InventoryConfig) ([]Option, error) {
    discounts, err := ParseDiscounts(cfg.DiscountCodes)
    if err != nil {
        return nil, err
    }
    return []Option{
        WithHoldTTL(cfg.HoldTTL),
        WithMaxHoldTTL(cfg.MaxHoldTTL),
        WithMaxSeatsPerHold(cfg.MaxSeatsPerHold),
        WithPendingTTL(cfg.PendingTTL),
        WithBookingWindow(BookingWindow{GraceCategory: cfg.GraceCategory, GracePeriod: cfg.GracePeriod}),
        WithDiscount(StaticDiscounts(discounts)),
    }, nil
}
