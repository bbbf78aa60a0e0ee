package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerSubmit   Trigger = "SUBMIT"
	TriggerFetched  Trigger = "FETCHED"
	TriggerParsed   Trigger = "PARSED"
	TriggerConfirm  Trigger = "CONFIRM"
	TriggerImported Trigger = "IMPORTED"
	TriggerFail     Trigger = "FAIL"
	TriggerReset    Trigger = "RESET"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
