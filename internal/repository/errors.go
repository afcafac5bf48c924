// Package repository defines the persistence layer of the seat inventory.
// Per-table repositories expose *Tx methods that run inside a caller owned
// transaction; MySQLStore composes them into the unit-of-work operations
// the services call, and MemoryStore offers the same contract in memory.
package repository

import (
    "errors"
    "fmt"

    "github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by id yields no rows.
var ErrNotFound = errors.New("not found")

// ErrSeatTaken is the sentinel matched by *SeatTakenError.
var ErrSeatTaken = errors.New("seat taken")

// SeatTakenError reports the seats that lost a race: already booked, held
// by another session, or rejected by a unique key while inserting.
type SeatTakenError struct {
    SeatIDs []uint64
}

func (e *SeatTakenError) Error() string {
    return fmt.Sprintf("seats already taken: %v", e.SeatIDs)
}

// Is makes errors.Is(err, ErrSeatTaken) true.
func (e *SeatTakenError) Is(target error) bool { return target == ErrSeatTaken }

// MySQL error numbers treated as a lost race on a seat.
const (
    errDupEntry        = 1062
    errLockWaitTimeout = 1205
    errLockDeadlock    = 1213
)

// isDuplicate reports a unique key violation.
func isDuplicate(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == errDupEntry
}

// isContention reports errors that mean another transaction won the row:
// duplicate keys, deadlocks and lock wait timeouts.  InnoDB rolls back the
// whole transaction on a deadlock so callers must not issue further
// statements after one.
func isContention(err error) bool {
    var me *mysql.MySQLError
    if !errors.As(err, &me) {
        return false
    }
    switch me.Number {
    case errDupEntry, errLockWaitTimeout, errLockDeadlock:
        return true
    }
    return false
}
