package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoTransition is returned when an action is not available from a status.
	ErrNoTransition = errors.New("workflow: transition not available")
	// ErrMessageRequired is returned when a transition needs a patient message.
	ErrMessageRequired = errors.New("workflow: message to patient required")
)

// Action names a transition as submitted by the staff screens.
type Action string

const (
	ActionConfirm Action = "confirmer"
	ActionRefuse  Action = "refuser"
	ActionPrepare Action = "preparer"
	ActionReady   Action = "prete"
	ActionPickUp  Action = "recuperee"
	ActionCancel  Action = "annuler"
)

// MessagePolicy states whether a patient message must accompany a transition.
type MessagePolicy int

const (
	MessageOptional MessagePolicy = iota
	MessageRequired
)

// Kind distinguishes forward progress from cancellation.
type Kind int

const (
	KindAdvance Kind = iota
	KindCancel
)

// Transition is one allowed move out of a status.
type Transition struct {
	From    Status
	To      Status
	Action  Action
	Kind    Kind
	Label   string
	Message MessagePolicy
}

// MessageRequired reports whether Validate rejects an empty message.
func (t Transition) MessageRequired() bool {
	return t.Message == MessageRequired
}

// IsCancel reports whether t leaves the lifecycle early.
func (t Transition) IsCancel() bool {
	return t.Kind == KindCancel
}

// Validate checks the patient message against the transition policy.
func (t Transition) Validate(message string) error {
	if t.Message == MessageRequired && strings.TrimSpace(message) == "" {
		return ErrMessageRequired
	}
	return nil
}

// Presentation returns the form texts for the transition.
func (t Transition) Presentation() Presentation {
	return PresentationFor(t.Action)
}

type step struct {
	next          Status
	advance       Action
	label         string
	advancePolicy MessagePolicy
	cancel        Action
	cancelLabel   string
	cancelPolicy  MessagePolicy
}

// Statuses absent from the table are terminal. Only refusing a pending order
// demands a message; cancelling later keeps it optional.
var table = map[Status]step{
	StatusPending: {
		next: StatusConfirmed, advance: ActionConfirm, label: "Confirmer",
		cancel: ActionRefuse, cancelLabel: "Refuser", cancelPolicy: MessageRequired,
	},
	StatusConfirmed: {
		next: StatusPrepared, advance: ActionPrepare, label: "Préparer",
		cancel: ActionCancel, cancelLabel: "Annuler",
	},
	StatusPrepared: {
		next: StatusReady, advance: ActionReady, label: "Marquer prête",
		cancel: ActionCancel, cancelLabel: "Annuler",
	},
	StatusReady: {
		next: StatusPickedUp, advance: ActionPickUp, label: "Marquer récupérée",
		cancel: ActionCancel, cancelLabel: "Annuler",
	},
}

// Advance returns the forward transition out of s, or false when s is
// terminal.
func Advance(s Status) (Transition, bool) {
	st, ok := table[s]
	if !ok {
		return Transition{}, false
	}
	return Transition{
		From:    s,
		To:      st.next,
		Action:  st.advance,
		Kind:    KindAdvance,
		Label:   st.label,
		Message: st.advancePolicy,
	}, true
}

// Cancel returns the cancellation out of s, or false when s is terminal.
func Cancel(s Status) (Transition, bool) {
	st, ok := table[s]
	if !ok {
		return Transition{}, false
	}
	return Transition{
		From:    s,
		To:      StatusCancelled,
		Action:  st.cancel,
		Kind:    KindCancel,
		Label:   st.cancelLabel,
		Message: st.cancelPolicy,
	}, true
}

// Available lists the transitions offered from s, advance first.
func Available(s Status) []Transition {
	var out []Transition
	if t, ok := Advance(s); ok {
		out = append(out, t)
	}
	if t, ok := Cancel(s); ok {
		out = append(out, t)
	}
	return out
}

// Find returns the transition triggered by action from s.
func Find(s Status, action Action) (Transition, error) {
	for _, t := range Available(s) {
		if t.Action == action {
			return t, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: %q from %q", ErrNoTransition, action, s)
}
