package timewheel

import "errors"

var (
	// ErrAllocation is returned by Add when no more timers can be armed.
	ErrAllocation = errors.New("timewheel: timer storage exhausted")
	// ErrReleased is returned by every operation after Release.
	ErrReleased = errors.New("timewheel: wheel released")
	// ErrTickBackward is returned by Update when the target is behind the current tick.
	ErrTickBackward = errors.New("timewheel: target tick moves backward")
	// ErrConcurrentUpdate is returned when Update is entered while another Update runs.
	ErrConcurrentUpdate = errors.New("timewheel: concurrent update")
)
