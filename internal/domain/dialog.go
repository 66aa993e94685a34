package domain

// DialogState tracks where a conversation is in the booking funnel.
type DialogState string

const (
	// StateNew is the initial state before any product interest.
	StateNew DialogState = "new"
	// StateSelecting means the client is browsing search results.
	StateSelecting DialogState = "selecting"
	// StateRecord means a product is chosen and a booking is being made.
	StateRecord DialogState = "record"
	// StatePosrecord means the booking is done and follow-up is allowed.
	StatePosrecord DialogState = "posrecord"
)

// StopWord resets the dialog when sent by the client.
const StopWord = "стоп"

// StopReply is the confirmation sent after a stop-word reset.
const StopReply = "Память очищена"

// stateTransitions maps a tool name to the state the dialog enters after
// that tool is successfully invoked.
var stateTransitions = map[string]DialogState{
	"zena_product_search":    StateSelecting,
	"zena_record_product_id": StateRecord,
	"zena_record_time":       StatePosrecord,
}

// NextState returns the dialog state after invoking the named tool.
// Tools with no transition keep the current state.
func NextState(current DialogState, toolName string) DialogState {
	if next, ok := stateTransitions[toolName]; ok {
		return next
	}
	return current
}

// ValidState reports whether s is one of the known dialog states.
func ValidState(s DialogState) bool {
	switch s {
	case StateNew, StateSelecting, StateRecord, StatePosrecord:
		return true
	}
	return false
}
