package dirstat

import (
	"log/slog"
)

// EventKind classifies a diagnostic event.
type EventKind int

const (
	// EventSkipped reports an entry that could not be read or vanished and was left out.
	EventSkipped EventKind = iota
	// EventAccessDenied reports a directory that could not be listed.
	EventAccessDenied
	// EventCycle reports a symbolic link whose target was already visited.
	EventCycle
	// EventVisited reports a directory that was reached a second time and not listed again.
	EventVisited
	// EventDiskUsage reports that filesystem statistics were unavailable.
	EventDiskUsage
)

// String returns the lower-case name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventSkipped:
		return "skipped"
	case EventAccessDenied:
		return "access denied"
	case EventCycle:
		return "cycle"
	case EventVisited:
		return "visited"
	case EventDiskUsage:
		return "disk usage"
	default:
		return "unknown"
	}
}

// Event is a diagnostic emitted while inspecting a tree.
type Event struct {
	// Kind classifies the event.
	Kind EventKind
	// Path is the entry the event refers to.
	Path string
	// Target is the resolved target for symbolic link events.
	Target string
	// Err is the underlying error, if any.
	Err error
}

// Observer receives diagnostic events.
// Scan may call OnEvent from several goroutines at once.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

type discard struct{}

func (discard) OnEvent(Event) {}

// logObserver forwards events to a slog.Logger.
type logObserver struct {
	log *slog.Logger
}

// NewLogObserver returns an Observer writing events to log.
// Cycles and revisits are logged at debug level, everything else as warnings.
func NewLogObserver(log *slog.Logger) Observer {
	if log == nil {
		return discard{}
	}

	return logObserver{log: log}
}

// OnEvent implements Observer.
func (o logObserver) OnEvent(e Event) {
	attrs := []any{slog.String("path", e.Path)}

	if e.Target != "" {
		attrs = append(attrs, slog.String("target", e.Target))
	}

	if e.Err != nil {
		attrs = append(attrs, slog.Any("error", e.Err))
	}

	switch e.Kind {
	case EventCycle, EventVisited:
		o.log.Debug(e.Kind.String(), attrs...)
	default:
		o.log.Warn(e.Kind.String(), attrs...)
	}
}
