package domain

// StateKind names a DisplayState variant.
type StateKind string

const (
	StateIdle    StateKind = "IDLE"
	StateLoading StateKind = "LOADING"
	StateResults StateKind = "RESULTS"
	StateError   StateKind = "ERROR"
)

func (k StateKind) String() string {
	return string(k)
}

// DisplayState is exactly one of Idle, Loading, ShowingResults or
// ShowingError.
type DisplayState interface {
	Kind() StateKind
	displayState()
}

type Idle struct{}

// Loading carries the trimmed query that is in flight.
type Loading struct {
	Query string
}

type ShowingResults struct {
	Result *ProfileResult
}

type ShowingError struct {
	Message string
}

func (Idle) Kind() StateKind           { return StateIdle }
func (Loading) Kind() StateKind        { return StateLoading }
func (ShowingResults) Kind() StateKind { return StateResults }
func (ShowingError) Kind() StateKind   { return StateError }

func (Idle) displayState()           {}
func (Loading) displayState()        {}
func (ShowingResults) displayState() {}
func (ShowingError) displayState()   {}
