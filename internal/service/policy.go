package service

// Role is the JWT role claim of the caller.
type Role string

const (
    RoleCustomer  Role = "CUSTOMER"
    RoleOrganizer Role = "ORGANIZER"
    RoleAdmin     Role = "ADMIN"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
    UserID uint64
    Role   Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Policy centralizes the one authorization question of the inventory: is
// the actor an admin, the owner of the resource, or the creator of the show
// it belongs to.  Every operation asks it instead of checking roles itself.
type Policy struct{}

// Relation describes how an actor relates to a resource.
type Relation int

const (
    RelNone Relation = iota
    RelShowCreator
    RelOwner
    RelAdmin
)

// Relate classifies the actor.  creatorID 0 means the resource has no show
// creator that may act on it.
func (Policy) Relate(a Actor, ownerID, creatorID uint64) Relation {
    switch {
    case a.IsAdmin():
        return RelAdmin
    case a.UserID != 0 && a.UserID == ownerID:
        return RelOwner
    case creatorID != 0 && a.UserID == creatorID:
        return RelShowCreator
    }
    return RelNone
}

// Authorize returns ErrForbidden unless the actor is admin, owner or show
// creator.
func (p Policy) Authorize(a Actor, ownerID, creatorID uint64) error {
    if p.Relate(a, ownerID, creatorID) == RelNone {
        return ErrForbidden
    }
    return nil
}

// RequireAdmin returns ErrForbidden for non-admin actors.
func (Policy) RequireAdmin(a Actor) error {
    if !a.IsAdmin() {
        return ErrForbidden
    }
    return nil
}
