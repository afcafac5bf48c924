package service

import (
    "fmt"
    "strconv"
    "strings"
)

// DiscountFunc applies a promotion code to an amount in cents.  It must be
// pure: same input, same output, no side effects.
type DiscountFunc func(code string, amountCents uint32) (uint32, error)

// NoDiscounts rejects every code.
func NoDiscounts(code string, amountCents uint32) (uint32, error) {
    if code == "" {
        return amountCents, nil
    }
    return 0, invalid("unknown discount code %q", code)
}

// Discount is one entry of the static discount table.  Exactly one of
// Percent and AmountOffCents is set.
type Discount struct {
    Code           string
    Percent        uint32
    AmountOffCents uint32
}

// Apply returns the discounted amount, never below zero.
func (d Discount) Apply(amount uint32) uint32 {
    if d.Percent > 0 {
        off := uint64(amount) * uint64(d.Percent) / 100
        return amount - uint32(off)
    }
    if d.AmountOffCents >= amount {
        return 0
    }
    return amount - d.AmountOffCents
}

// StaticDiscounts returns a DiscountFunc backed by a fixed table.  Codes are
// case-insensitive.
func StaticDiscounts(table map[string]Discount) DiscountFunc {
    return func(code string, amountCents uint32) (uint32, error) {
        if code == "" {
            return amountCents, nil
        }
        d, ok := table[strings.ToUpper(code)]
        if !ok {
            return 0, invalid("unknown discount code %q", code)
        }
        return d.Apply(amountCents), nil
    }
}

// ParseDiscounts reads "CODE=10%,OTHER=500" into a table: a trailing % is a
// percentage, a bare number is cents off.
func ParseDiscounts(s string) (map[string]Discount, error) {
    table := map[string]Discount{}
    for _, part := range strings.Split(s, ",") {
        part = strings.TrimSpace(part)
        if part == "" {
            continue
        }
        code, value, ok := strings.Cut(part, "=")
        code = strings.ToUpper(strings.TrimSpace(code))
        value = strings.TrimSpace(value)
        if !ok || code == "" || value == "" {
            return nil, fmt.Errorf("discount %q: want CODE=VALUE", part)
        }
        d := Discount{Code: code}
        if pct, isPct := strings.CutSuffix(value, "%"); isPct {
            n, err := strconv.ParseUint(pct, 10, 32)
            if err != nil || n == 0 || n > 100 {
                return nil, fmt.Errorf("discount %q: percent must be 1..100", part)
            }
            d.Percent = uint32(n)
        } else {
            n, err := strconv.ParseUint(value, 10, 32)
            if err != nil || n == 0 {
                return nil, fmt.Errorf("discount %q: amount must be positive cents", part)
            }
            d.AmountOffCents = uint32(n)
        }
        table[code] = d
    }
    return table, nil
}
