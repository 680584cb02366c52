// Package workflow holds the order status state machine. It performs no I/O.
package workflow

// Status is the lifecycle state of a patient order.
type Status string

const (
	StatusPending   Status = "en_attente"
	StatusConfirmed Status = "confirmee"
	StatusPrepared  Status = "preparee"
	StatusReady     Status = "prete"
	StatusPickedUp  Status = "recuperee"
	StatusCancelled Status = "annulee"
)

var statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPrepared,
	StatusReady,
	StatusPickedUp,
	StatusCancelled,
}

// Statuses lists every known status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus maps a wire value to a known Status.
func ParseStatus(raw string) (Status, bool) {
	for _, s := range statuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// Known reports whether s belongs to the closed set.
func (s Status) Known() bool {
	_, ok := ParseStatus(string(s))
	return ok
}

// Terminal reports whether no transition leaves s. Unknown statuses are
// terminal.
func (s Status) Terminal() bool {
	_, ok := table[s]
	return !ok
}

// Label returns the French badge label.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusConfirmed:
		return "Confirmée"
	case StatusPrepared:
		return "Préparée"
	case StatusReady:
		return "Prête"
	case StatusPickedUp:
		return "Récupérée"
	case StatusCancelled:
		return "Annulée"
	default:
		return string(s)
	}
}

// Tone returns the badge colour class.
func (s Status) Tone() string {
	switch s {
	case StatusConfirmed:
		return "info"
	case StatusPrepared:
		return "warning"
	case StatusReady, StatusPickedUp:
		return "success"
	case StatusCancelled:
		return "danger"
	default:
		return "muted"
	}
}

// Outstanding reports whether the order still awaits pharmacy handling.
func (s Status) Outstanding() bool {
	return s == StatusPending || s == StatusConfirmed
}
