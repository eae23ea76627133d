package domain

type Role string

const (
	RoleGuest  Role = "guest"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleGuest, RoleStaff, RoleAdmin, RoleSystem:
		return r, true
	}
	return "", false
}

// Actor is an already authenticated caller.
type Actor struct {
	ID   uint64
	Role Role
}

// SystemActor drives transitions triggered by integrations such as payment capture.
var SystemActor = Actor{Role: RoleSystem}

func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin || a.Role == RoleSystem
}

// CanTransition reports whether a may move b to next. Guests may only cancel
// their own bookings.
func (a Actor) CanTransition(b Booking, next BookingStatus) bool {
	if a.IsStaff() {
		return true
	}
	return a.Role == RoleGuest && next == BookingStatusCancelled && b.UserID == a.ID
}

func (a Actor) CanView(b Booking) bool {
	return a.IsStaff() || b.UserID == a.ID
}
