package workflow

// NewImportFlowBuilder returns a builder configured with the invoice import lifecycle:
//
//	pending -> fetching -> parsing -> preview -> importing -> completed
//
// fetching, parsing and importing may FAIL into error, and RESET returns
// every state to pending.
func NewImportFlowBuilder() StateMachineBuilder {
	builder := NewBuilder()

	builder.Configure(StatePending).
		Permit(TriggerSubmit, StateFetching)

	builder.Configure(StateFetching).
		Permit(TriggerFetched, StateParsing).
		Permit(TriggerFail, StateError)

	builder.Configure(StateParsing).
		Permit(TriggerParsed, StatePreview).
		Permit(TriggerFail, StateError)

	builder.Configure(StatePreview).
		Permit(TriggerConfirm, StateImporting)

	builder.Configure(StateImporting).
		Permit(TriggerImported, StateCompleted).
		Permit(TriggerFail, StateError)

	builder.PermitFromAny(TriggerReset, StatePending)

	return builder
}

// NewImportFlowMachine builds an import flow machine starting in pending
func NewImportFlowMachine(observers ...Observer) StateMachine {
	builder := NewImportFlowBuilder()
	for _, o := range observers {
		builder.OnTransition(o)
	}
	return builder.Build(StatePending)
}
