package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
	"github.com/garyjia/cafe-importer/internal/domain/event"
	domainwf "github.com/garyjia/cafe-importer/internal/domain/workflow"
)

// flow is one keyed import flow. mu guards every field; it is never held
// across registry or database calls.
type flow struct {
	mu      sync.Mutex
	key     string
	machine domainwf.StateMachine
	state   ImportFlowState

	// generation bumps on every submit and reset; work started under an
	// older generation is discarded
	generation uint64
	// activeGen is the generation with work in flight, 0 when idle
	activeGen uint64
	// force was requested on the current submit and carries into confirm
	force bool

	correlationID string
	resetTimer    *time.Timer
	pending       []*event.Event
}

func newFlow(key string) *flow {
	f := &flow{key: key}
	f.machine = domainwf.NewImportFlowMachine(f.onTransition)
	f.state = ImportFlowState{Key: key, Status: domainwf.StatePending, UpdatedAt: time.Now()}
	return f
}

// onTransition runs under f.mu from inside machine.Fire
func (f *flow) onTransition(_ context.Context, t domainwf.Transition) {
	f.state.Status = t.To
	f.state.UpdatedAt = time.Now()
	f.emit(event.TypeFlowStatusChanged, map[string]interface{}{
		"from":    string(t.From),
		"to":      string(t.To),
		"trigger": string(t.Trigger),
	})
}

func (f *flow) emit(eventType event.Type, payload map[string]interface{}) {
	f.pending = append(f.pending,
		event.NewEventWithCorrelation(eventType, f.key, f.state.CUFE, payload, f.correlationID))
}

func (f *flow) busy() bool {
	return f.state.Status.IsBusy() || (f.activeGen != 0 && f.activeGen == f.generation)
}

func (f *flow) stale(gen uint64) bool {
	return f.generation != gen
}

func (f *flow) fire(ctx context.Context, trigger domainwf.Trigger) error {
	return f.machine.Fire(ctx, trigger)
}

// fail moves the flow to error, passing through SUBMIT when still pending
func (f *flow) fail(ctx context.Context, err error) {
	if f.machine.CanFire(domainwf.TriggerSubmit) {
		_ = f.fire(ctx, domainwf.TriggerSubmit)
	}

	code := entity.CodeOf(err)
	f.state.Error = entity.UserMessage(code)
	f.state.ErrorCode = code
	f.state.Detail = err.Error()
	_ = f.fire(ctx, domainwf.TriggerFail)
	f.activeGen = 0

	f.emit(event.TypeImportFailed, map[string]interface{}{
		"errorCode": string(code),
		"error":     f.state.Error,
		"detail":    f.state.Detail,
	})
}

// reset clears every field and returns to pending. No-op events for a flow already pending.
func (f *flow) reset(ctx context.Context) {
	f.generation++
	f.activeGen = 0
	f.force = false
	f.stopTimer()

	if f.machine.State() != domainwf.StatePending {
		_ = f.fire(ctx, domainwf.TriggerReset)
	}
	f.state = ImportFlowState{Key: f.key, Status: domainwf.StatePending, UpdatedAt: time.Now()}
}

// begin starts a new generation for submit
func (f *flow) begin() uint64 {
	f.generation++
	f.activeGen = f.generation
	f.correlationID = uuid.NewString()
	f.state.CUFE = ""
	f.state.Invoice = nil
	f.state.Error = ""
	f.state.ErrorCode = ""
	f.state.Detail = ""
	f.state.MatchedStore = nil
	f.state.DuplicateInfo = nil
	f.state.ResultingSessionID = ""
	return f.generation
}

func (f *flow) stopTimer() {
	if f.resetTimer != nil {
		f.resetTimer.Stop()
		f.resetTimer = nil
	}
}

func (f *flow) snapshot() *ImportFlowState {
	s := f.state
	s.PermittedTriggers = f.machine.PermittedTriggers()
	return &s
}

// drain takes the events raised since the last drain
func (f *flow) drain() []*event.Event {
	events := f.pending
	f.pending = nil
	return events
}
