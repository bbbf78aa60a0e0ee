package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"github.com/garyjia/cafe-importer/internal/application/dispatcher"
	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/application/service"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
	"github.com/garyjia/cafe-importer/internal/domain/event"
	domainwf "github.com/garyjia/cafe-importer/internal/domain/workflow"
	"github.com/garyjia/cafe-importer/internal/invoice"
)

const (
	defaultIdleTTL            = 30 * time.Minute
	defaultCompletedResetWait = 5 * time.Second
	defaultStoreMatchTimeout  = 2 * time.Second
)

type importEngine struct {
	invoices service.InvoiceService
	guard    service.DuplicateGuard
	matcher  service.StoreMatcher
	importer service.ImportService
	logger   Logger

	dispatcher          dispatcher.Dispatcher
	idleTTL             time.Duration
	completedResetDelay time.Duration
	storeMatchTimeout   time.Duration

	// registryMu serializes get-or-create on flows
	registryMu sync.Mutex
	flows      *cache.Cache
}

// EngineOption configures the import engine
type EngineOption func(*importEngine)

// WithDispatcher publishes flow events through d
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *importEngine) {
		e.dispatcher = d
	}
}

// WithIdleTTL sets how long an untouched flow is kept
func WithIdleTTL(ttl time.Duration) EngineOption {
	return func(e *importEngine) {
		if ttl > 0 {
			e.idleTTL = ttl
		}
	}
}

// WithCompletedResetDelay sets the auto-reset delay after completion. Zero disables it.
func WithCompletedResetDelay(delay time.Duration) EngineOption {
	return func(e *importEngine) {
		e.completedResetDelay = delay
	}
}

// WithStoreMatchTimeout bounds the store lookup that runs before preview
func WithStoreMatchTimeout(timeout time.Duration) EngineOption {
	return func(e *importEngine) {
		if timeout > 0 {
			e.storeMatchTimeout = timeout
		}
	}
}

// NewImportEngine creates a new ImportEngine
func NewImportEngine(
	invoices service.InvoiceService,
	guard service.DuplicateGuard,
	matcher service.StoreMatcher,
	importer service.ImportService,
	logger Logger,
	opts ...EngineOption,
) ImportEngine {
	e := &importEngine{
		invoices:            invoices,
		guard:               guard,
		matcher:             matcher,
		importer:            importer,
		logger:              logger,
		idleTTL:             defaultIdleTTL,
		completedResetDelay: defaultCompletedResetWait,
		storeMatchTimeout:   defaultStoreMatchTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.flows = cache.New(e.idleTTL, e.idleTTL/2)
	return e
}

// flowFor returns the live flow for key, creating it when absent, and refreshes its TTL
func (e *importEngine) flowFor(key string) *flow {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()

	if v, ok := e.flows.Get(key); ok {
		f := v.(*flow)
		e.flows.SetDefault(key, f)
		return f
	}

	f := newFlow(key)
	e.flows.SetDefault(key, f)
	return f
}

// lookup returns the live flow for key without creating one; a hit refreshes its TTL
func (e *importEngine) lookup(key string) (*flow, bool) {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()

	v, ok := e.flows.Get(key)
	if !ok {
		return nil, false
	}
	f := v.(*flow)
	e.flows.SetDefault(key, f)
	return f, true
}

// unlock releases f and publishes the events raised while it was held
func (e *importEngine) unlock(ctx context.Context, f *flow) {
	events := f.drain()
	f.mu.Unlock()

	if e.dispatcher == nil {
		return
	}
	for _, evt := range events {
		if err := e.dispatcher.Dispatch(ctx, evt); err != nil {
			e.logger.Error("Failed to publish flow event", "flow_key", evt.FlowKey, "event_type", evt.Type, "error", err)
		}
	}
}

func (e *importEngine) Submit(ctx context.Context, key string, input SubmitInput) (*ImportFlowState, error) {
	f := e.flowFor(key)

	f.mu.Lock()
	if f.busy() {
		snap := f.snapshot()
		f.mu.Unlock()
		return snap, ErrFlowBusy
	}
	// preview, completed and error are left through a reset
	if !f.machine.CanFire(domainwf.TriggerSubmit) {
		f.reset(ctx)
	}
	gen := f.begin()
	f.force = input.Force

	cufe, fetchURL, err := invoice.ResolveInput(input.Identifier, input.QRURL)
	if err != nil {
		e.logger.Info("Rejected invoice identifier", "flow_key", key, "error", err)
		f.fail(ctx, err)
		snap := f.snapshot()
		e.unlock(ctx, f)
		return snap, nil
	}
	f.state.CUFE = cufe
	f.state.UpdatedAt = time.Now()
	e.unlock(ctx, f)

	if !input.Force {
		info, err := e.guard.CheckPriorImport(ctx, cufe)

		f.mu.Lock()
		if f.stale(gen) {
			return e.finish(ctx, f)
		}
		if err != nil {
			f.fail(ctx, err)
			return e.finish(ctx, f)
		}
		if info.IsImported {
			f.state.DuplicateInfo = info
			f.state.UpdatedAt = time.Now()
			f.activeGen = 0
			payload := map[string]interface{}{"sessionId": info.SessionID}
			if info.ImportedAt != nil {
				payload["importedAt"] = info.ImportedAt.Format(time.RFC3339)
			}
			f.emit(event.TypeDuplicateDetected, payload)
			e.logger.Info("Invoice already imported", "flow_key", key, "cufe", cufe, "session_id", info.SessionID)
			return e.finish(ctx, f)
		}
		e.unlock(ctx, f)
	}

	f.mu.Lock()
	if f.stale(gen) {
		return e.finish(ctx, f)
	}
	if err := f.fire(ctx, domainwf.TriggerSubmit); err != nil {
		snap := f.snapshot()
		e.unlock(ctx, f)
		return snap, err
	}
	e.unlock(ctx, f)

	page, err := e.invoices.Retrieve(ctx, port.FetchRequest{Identifier: cufe, QRURL: fetchURL})

	f.mu.Lock()
	if f.stale(gen) {
		return e.finish(ctx, f)
	}
	if err != nil {
		f.fail(ctx, err)
		return e.finish(ctx, f)
	}
	_ = f.fire(ctx, domainwf.TriggerFetched)
	e.unlock(ctx, f)

	inv, err := e.invoices.Decode(page)
	var match *entity.StoreMatch
	if err == nil {
		match = e.matchStore(ctx, inv)
	}

	f.mu.Lock()
	if f.stale(gen) {
		return e.finish(ctx, f)
	}
	if err != nil {
		f.fail(ctx, err)
		return e.finish(ctx, f)
	}
	f.state.Invoice = inv
	f.state.MatchedStore = match
	f.activeGen = 0
	_ = f.fire(ctx, domainwf.TriggerParsed)
	f.emit(event.TypeInvoicePreviewed, map[string]interface{}{
		"items":  len(inv.Items),
		"issuer": inv.Issuer.Name,
	})
	return e.finish(ctx, f)
}

// matchStore is best effort and bounded by storeMatchTimeout; failures are
// logged and treated as no match
func (e *importEngine) matchStore(ctx context.Context, inv *entity.Invoice) *entity.StoreMatch {
	if e.matcher == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.storeMatchTimeout)
	defer cancel()

	match, err := e.matcher.MatchByTaxID(ctx, inv.Issuer.TaxID)
	if err != nil {
		e.logger.Error("Store match failed", "cufe", inv.CUFE, "tax_id", inv.Issuer.TaxID, "error", err)
		return nil
	}
	return match
}

func (e *importEngine) ConfirmImport(ctx context.Context, key string, selectedLineNumbers []int) (*ImportFlowState, error) {
	f, ok := e.lookup(key)
	if !ok {
		return nil, ErrFlowNotFound
	}

	f.mu.Lock()
	if f.busy() {
		snap := f.snapshot()
		f.mu.Unlock()
		return snap, ErrFlowBusy
	}
	if !f.machine.CanFire(domainwf.TriggerConfirm) || f.state.Invoice == nil {
		snap := f.snapshot()
		f.mu.Unlock()
		return snap, fmt.Errorf("%w: cannot confirm an import from %s", domainwf.ErrInvalidTransition, snap.Status)
	}

	items := SelectItems(f.state.Invoice.Items, selectedLineNumbers)
	if len(items) == 0 {
		snap := f.snapshot()
		f.mu.Unlock()
		return snap, ErrEmptySelection
	}

	if err := f.fire(ctx, domainwf.TriggerConfirm); err != nil {
		snap := f.snapshot()
		e.unlock(ctx, f)
		return snap, err
	}
	gen := f.generation
	f.activeGen = gen
	req := service.ImportRequest{
		Invoice: f.state.Invoice,
		Store:   f.state.MatchedStore,
		Items:   items,
		Force:   f.force,
	}
	e.unlock(ctx, f)

	result, err := e.importer.Import(ctx, req)

	f.mu.Lock()
	// a reset during the import drops the result from the flow; the session stays committed
	if f.stale(gen) {
		if err == nil {
			e.logger.Info("Flow was reset during import; result discarded",
				"flow_key", key, "session_id", result.SessionID)
		}
		return e.finish(ctx, f)
	}
	if err != nil {
		f.fail(ctx, err)
		return e.finish(ctx, f)
	}

	f.state.ResultingSessionID = result.SessionID
	f.activeGen = 0
	_ = f.fire(ctx, domainwf.TriggerImported)
	f.emit(event.TypeImportCompleted, map[string]interface{}{
		"sessionId": result.SessionID,
		"items":     len(items),
	})
	e.scheduleReset(f, gen)
	return e.finish(ctx, f)
}

// scheduleReset arms the completed-flow auto-reset. Caller holds f.mu.
func (e *importEngine) scheduleReset(f *flow, gen uint64) {
	if e.completedResetDelay <= 0 {
		return
	}
	f.stopTimer()
	f.resetTimer = time.AfterFunc(e.completedResetDelay, func() {
		ctx := context.Background()
		f.mu.Lock()
		if f.stale(gen) || !f.machine.State().IsTerminal() {
			f.mu.Unlock()
			return
		}
		f.resetTimer = nil
		f.reset(ctx)
		e.unlock(ctx, f)
	})
}

func (e *importEngine) Reset(key string) *ImportFlowState {
	ctx := context.Background()
	f := e.flowFor(key)

	f.mu.Lock()
	f.reset(ctx)
	snap := f.snapshot()
	e.unlock(ctx, f)
	return snap
}

func (e *importEngine) State(key string) (*ImportFlowState, error) {
	f, ok := e.lookup(key)
	if !ok {
		return nil, ErrFlowNotFound
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot(), nil
}

func (e *importEngine) Close() {
	for _, item := range e.flows.Items() {
		f := item.Object.(*flow)
		f.mu.Lock()
		f.stopTimer()
		f.mu.Unlock()
	}
}

// finish snapshots, unlocks and publishes
func (e *importEngine) finish(ctx context.Context, f *flow) (*ImportFlowState, error) {
	snap := f.snapshot()
	e.unlock(ctx, f)
	return snap, nil
}

// SelectItems keeps the lines whose numbers are selected, in ascending line order.
// An empty selection keeps every line.
func SelectItems(items []entity.LineItem, selected []int) []entity.LineItem {
	kept := items
	if len(selected) > 0 {
		kept = lo.Filter(items, func(item entity.LineItem, _ int) bool {
			return lo.Contains(selected, item.LineNumber)
		})
	}

	out := make([]entity.LineItem, len(kept))
	copy(out, kept)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LineNumber < out[j].LineNumber
	})
	return out
}
