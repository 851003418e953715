package poller

// State is the loop's lifecycle phase.
type State int32

const (
	Initializing State = iota
	Polling
	Sleeping
	Stopped
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Polling:
		return "polling"
	case Sleeping:
		return "sleeping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
