package checkout

import "fmt"

// Status is the checkout session state.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusInitializing Status = "initializing"
	StatusReadyToPay   Status = "ready_to_pay"
	StatusPresenting   Status = "presenting"
	StatusSucceeded    Status = "succeeded"
	StatusCanceled     Status = "canceled"
	StatusFailed       Status = "failed"
)

var transitions = map[Status][]Status{
	StatusIdle:         {StatusInitializing},
	StatusInitializing: {StatusReadyToPay, StatusFailed},
	StatusReadyToPay:   {StatusInitializing, StatusPresenting, StatusIdle},
	StatusPresenting:   {StatusSucceeded, StatusCanceled, StatusFailed},
	StatusCanceled:     {StatusReadyToPay, StatusInitializing, StatusIdle},
	StatusFailed:       {StatusInitializing, StatusSucceeded, StatusIdle},
	StatusSucceeded:    {StatusInitializing, StatusIdle},
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether an attempt has ended in s.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusCanceled || s == StatusFailed
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseStatus converts raw input into a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if _, ok := transitions[status]; ok {
		return status, nil
	}
	return "", fmt.Errorf("invalid checkout status %q", value)
}
