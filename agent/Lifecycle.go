package agent

import "errors"

var (
	// ErrNotReady is returned when a Policy is used before Setup
	ErrNotReady = errors.New("policy not set up")

	// ErrClosed is returned when a Policy is used after Teardown
	ErrClosed = errors.New("policy torn down")
)

// State is the lifecycle state of a Policy
type State int

const (
	Uninitialized State = iota
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Ready:
		return "Ready"
	default:
		return "Closed"
	}
}

// Lifecycle tracks the state of a Policy. The zero value is
// Uninitialized. Policies hold a Lifecycle and route Setup, Act, and
// Teardown through it.
type Lifecycle struct {
	state State
}

// State returns the current state
func (l *Lifecycle) State() State {
	return l.state
}

// Start runs setup and moves to Ready. Starting a Ready policy does
// nothing and starting a Closed policy returns ErrClosed. If setup
// fails the state is unchanged.
func (l *Lifecycle) Start(setup func() error) error {
	switch l.state {
	case Ready:
		return nil
	case Closed:
		return ErrClosed
	}

	if setup != nil {
		if err := setup(); err != nil {
			return err
		}
	}
	l.state = Ready
	return nil
}

// Check returns nil if the policy is Ready and the reason it cannot
// act otherwise
func (l *Lifecycle) Check() error {
	switch l.state {
	case Uninitialized:
		return ErrNotReady
	case Closed:
		return ErrClosed
	}
	return nil
}

// Stop runs teardown and moves to Closed. Stopping a Closed policy
// does nothing. teardown only runs if the policy was Ready.
func (l *Lifecycle) Stop(teardown func() error) error {
	if l.state == Closed {
		return nil
	}

	wasReady := l.state == Ready
	l.state = Closed
	if wasReady && teardown != nil {
		return teardown()
	}
	return nil
}
