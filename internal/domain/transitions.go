package domain

// Role of the actor performing an appointment operation.
type Role string

const (
	RoleStudent   Role = "student"
	RoleCounselor Role = "counselor"
	RolePersonnel Role = "personnel"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleCounselor || r == RolePersonnel
}

// InitialStatus is the state a new appointment starts in. Counselor-created
// appointments are confirmed immediately; student requests wait for the
// counselor to confirm.
func InitialStatus(creator Role) AppointmentStatus {
	if creator == RoleCounselor {
		return AppointmentConfirmed
	}
	return AppointmentPending
}

// statusTransitions is the full table of permitted status changes, keyed by
// (actor role, current status). Cancelled and completed are terminal: they
// have no entries. The self-transitions listed for counselors are trivial
// acceptances.
var statusTransitions = map[Role]map[AppointmentStatus][]AppointmentStatus{
	RoleStudent: {
		AppointmentPending:   {AppointmentCancelled},
		AppointmentConfirmed: {AppointmentCancelled},
	},
	RoleCounselor: {
		AppointmentPending:   {AppointmentPending, AppointmentConfirmed, AppointmentCancelled},
		AppointmentConfirmed: {AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled},
	},
}

// CanTransition reports whether the table permits actor to move an
// appointment from one status to another.
func CanTransition(actor Role, from, to AppointmentStatus) bool {
	allowed, ok := statusTransitions[actor][from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
