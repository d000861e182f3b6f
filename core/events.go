package core

// EventKind identifies one engine lifecycle point.
type EventKind string

const (
	EventSearchStart     EventKind = "search_start"
	EventIterationStart  EventKind = "iteration_start"
	EventNodeSelected    EventKind = "node_selected"
	EventNodesExpanded   EventKind = "nodes_expanded"
	EventSimulationStart EventKind = "simulation_start"
	EventSimulationEnd   EventKind = "simulation_end"
	EventBackpropagated  EventKind = "backpropagated"
	EventBudgetCheck     EventKind = "budget_check"
	EventEarlyGiveup     EventKind = "early_giveup"
	EventEarlyStop       EventKind = "early_stop"
	EventSearchEnd       EventKind = "search_end"
)

// Event is the payload delivered to observers at each lifecycle point.
// Fields that are not meaningful for a given kind stay zero.
type Event struct {
	Kind      EventKind
	Iteration int
	NodeID    string
	Depth     int
	Children  int
	Reward    float64
	Tokens    int
	CostUSD   float64
	State     string
	Err       error
}

// Observer receives engine lifecycle events. Callbacks run synchronously on
// the search goroutine; a panicking observer is recovered and logged by the
// engine and never interrupts the search.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) OnEvent(Event) {}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnEvent(e Event) {
	for _, o := range m {
		if o != nil {
			o.OnEvent(e)
		}
	}
}
