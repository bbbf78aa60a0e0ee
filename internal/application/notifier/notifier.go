// Package notifier turns flow events into user-facing notifications kept in a
// per-flow inbox.
package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/garyjia/cafe-importer/internal/application/dispatcher"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
	"github.com/garyjia/cafe-importer/internal/domain/event"
)

// HandlerName identifies the notifier in the dispatcher
const HandlerName = "flow-notifier"

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Notifier collects notifications per flow key until they are drained
type Notifier struct {
	mu     sync.Mutex
	inbox  *cache.Cache
	logger Logger
}

// New creates a notifier whose unread notifications expire after ttl
func New(ttl time.Duration, logger Logger) *Notifier {
	return &Notifier{
		inbox:  cache.New(ttl, ttl),
		logger: logger,
	}
}

// Register subscribes the notifier to every flow event
func (n *Notifier) Register(d dispatcher.Dispatcher) {
	d.SubscribeAll([]event.Type{
		event.TypeFlowStatusChanged,
		event.TypeDuplicateDetected,
		event.TypeInvoicePreviewed,
		event.TypeImportCompleted,
		event.TypeImportFailed,
	}, HandlerName, n.Handle)
}

// Handle is the dispatcher handler
func (n *Notifier) Handle(ctx context.Context, evt *event.Event) error {
	level, message, ok := Render(evt)
	if !ok {
		return nil
	}

	n.push(entity.FlowNotification{
		FlowKey:   evt.FlowKey,
		Level:     level,
		Message:   message,
		CreatedAt: evt.Timestamp,
	})
	return nil
}

func (n *Notifier) push(notification entity.FlowNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var list []entity.FlowNotification
	if v, ok := n.inbox.Get(notification.FlowKey); ok {
		list = v.([]entity.FlowNotification)
	}
	n.inbox.SetDefault(notification.FlowKey, append(list, notification))
}

// Drain returns and removes the notifications queued for flowKey, oldest first
func (n *Notifier) Drain(flowKey string) []entity.FlowNotification {
	n.mu.Lock()
	defer n.mu.Unlock()

	v, ok := n.inbox.Get(flowKey)
	if !ok {
		return []entity.FlowNotification{}
	}
	n.inbox.Delete(flowKey)
	return v.([]entity.FlowNotification)
}

// Render maps an event to a localized notification. Status changes into
// preview, completed, error and pending have dedicated events and render nothing.
func Render(evt *event.Event) (level, message string, ok bool) {
	switch evt.Type {
	case event.TypeFlowStatusChanged:
		switch evt.GetPayloadString("to") {
		case "fetching":
			return entity.NotificationInfo, "Consultando la factura en la DGI…", true
		case "parsing":
			return entity.NotificationInfo, "Leyendo los datos de la factura…", true
		case "importing":
			return entity.NotificationInfo, "Importando los artículos seleccionados…", true
		}
		return "", "", false

	case event.TypeDuplicateDetected:
		if at := evt.GetPayloadString("importedAt"); at != "" {
			if t, err := time.Parse(time.RFC3339, at); err == nil {
				return entity.NotificationWarning,
					fmt.Sprintf("Esta factura ya fue importada el %s.", t.Format("02/01/2006")), true
			}
		}
		return entity.NotificationWarning, entity.UserMessage(entity.ErrorCodeAlreadyImported), true

	case event.TypeInvoicePreviewed:
		return entity.NotificationSuccess,
			fmt.Sprintf("Factura de %s lista para revisar (%d artículos).",
				evt.GetPayloadString("issuer"), evt.GetPayloadInt("items")), true

	case event.TypeImportCompleted:
		return entity.NotificationSuccess,
			fmt.Sprintf("Se importaron %d artículos.", evt.GetPayloadInt("items")), true

	case event.TypeImportFailed:
		return entity.NotificationError, entity.UserMessage(entity.ErrorCode(evt.GetPayloadString("errorCode"))), true
	}

	return "", "", false
}
