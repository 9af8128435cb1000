package download

import (
	"fmt"
	"slices"
)

// State is the position of a file in the download pipeline.
type State int

// Pipeline states. A file moves Pending -> (CacheHit | Fetching) ->
// Verified -> Moved, or to Failed from any state before Moved.
const (
	StatePending State = iota
	StateCacheHit
	StateFetching
	StateVerified
	StateMoved
	StateFailed
)

var stateNames = [...]string{
	StatePending:  "pending",
	StateCacheHit: "cache-hit",
	StateFetching: "fetching",
	StateVerified: "verified",
	StateMoved:    "moved",
	StateFailed:   "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

var transitions = map[State][]State{
	StatePending:  {StateCacheHit, StateFetching, StateFailed},
	StateCacheHit: {StateVerified, StateFailed},
	StateFetching: {StateVerified, StateFailed},
	StateVerified: {StateMoved, StateFailed},
}

// Outcome tracks one file through the pipeline.
type Outcome struct {
	File      File
	TaskID    string // Set when the file is fetched
	State     State
	CachePath string // Location in the download cache
	Path      string // Final location, set in StateMoved
	Err       error  // Set in StateFailed
}

// transition moves o to the next state, rejecting moves the pipeline does
// not allow.
func (o *Outcome) transition(to State) error {
	if !slices.Contains(transitions[o.State], to) {
		return fmt.Errorf("download %s: illegal transition %s -> %s", o.File.Filename, o.State, to)
	}
	o.State = to
	return nil
}

// fail marks o as failed with err. Failing a moved or failed outcome is a no-op.
func (o *Outcome) fail(err error) {
	if o.transition(StateFailed) == nil {
		o.Err = err
	}
}
