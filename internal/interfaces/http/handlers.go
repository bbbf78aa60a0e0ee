package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/application/service"
	"github.com/garyjia/cafe-importer/internal/application/workflow"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
	domainwf "github.com/garyjia/cafe-importer/internal/domain/workflow"
	"github.com/garyjia/cafe-importer/internal/export"
	"github.com/garyjia/cafe-importer/internal/invoice"
	"github.com/garyjia/cafe-importer/pkg/utils"
)

// Error codes for failures that are not part of the import taxonomy
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeFlowBusy          = "FLOW_BUSY"
	CodeFlowNotFound      = "FLOW_NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeEmptySelection    = "EMPTY_SELECTION"
	CodeNoInvoice         = "NO_INVOICE"
	CodeNotArchived       = "NOT_ARCHIVED"
)

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

// NotificationInbox drains the pending user notifications of a flow
type NotificationInbox interface {
	Drain(flowKey string) []entity.FlowNotification
}

// InvoiceExporter renders an invoice as a spreadsheet
type InvoiceExporter interface {
	InvoiceXLSX(inv *entity.Invoice) ([]byte, error)
}

// XMLArchive reads archived raw invoice XML
type XMLArchive interface {
	Exists(ctx context.Context, path string) bool
	Read(ctx context.Context, path string) ([]byte, error)
}

// HealthFunc reports component health for GET /health
type HealthFunc func(ctx context.Context) (healthy bool, details interface{})

// Deps are the application components the handlers call
type Deps struct {
	Invoices  service.InvoiceService
	Guard     service.DuplicateGuard
	Engine    workflow.ImportEngine
	Inbox     NotificationInbox
	Exporter  InvoiceExporter
	Archive   XMLArchive // nil when archiving is disabled
	QRBaseURL string
	Health    HealthFunc
	Version   string
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Deps
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Deps, logger Logger) *Handlers {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handlers{deps: deps, logger: logger}
}

// Response is the standard JSON envelope
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Version    string      `json:"version"`
	Components interface{} `json:"components,omitempty"`
}

// FetchInvoiceRequest is the body of POST /api/invoices/fetch
type FetchInvoiceRequest struct {
	Identifier string `json:"identifier"`
	QRURL      string `json:"qrUrl"`
}

// ConfirmRequest is the body of POST /api/flows/:key/confirm.
// An empty selection imports every line.
type ConfirmRequest struct {
	SelectedLineNumbers []int `json:"selectedLineNumbers" binding:"omitempty,dive,min=1"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, details := true, interface{}(nil)
	if h.deps.Health != nil {
		healthy, details = h.deps.Health(c.Request.Context())
	}

	resp := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    h.deps.Version,
		Components: details,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, Response{Success: healthy, Data: resp})
}

// FetchInvoice handles POST /api/invoices/fetch. The body is the fetch
// outcome itself; the status code follows its error code.
func (h *Handlers) FetchInvoice(c *gin.Context) {
	var req FetchInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Identifier == "" && req.QRURL == "") {
		c.JSON(http.StatusBadRequest, service.FetchOutcome{
			Error:     entity.UserMessage(entity.ErrorCodeInvalidCUFE),
			ErrorCode: entity.ErrorCodeInvalidCUFE,
			Detail:    "identifier or qrUrl is required",
		})
		return
	}

	outcome := h.deps.Invoices.Fetch(c.Request.Context(), port.FetchRequest{
		Identifier: utils.SanitizeString(req.Identifier),
		QRURL:      utils.SanitizeString(req.QRURL),
	})
	if !outcome.Success {
		h.logger.Error("Invoice fetch failed", "error_code", outcome.ErrorCode, "error", outcome.Detail)
	}

	c.JSON(outcomeStatus(outcome), outcome)
}

// GetImportStatus handles GET /api/imports/:cufe
func (h *Handlers) GetImportStatus(c *gin.Context) {
	cufe, ok := h.cufeParam(c)
	if !ok {
		return
	}

	info, err := h.deps.Guard.CheckPriorImport(c.Request.Context(), cufe)
	if err != nil {
		h.logger.Error("Failed to check prior import", "cufe", cufe, "error", err)
		h.fail(c, http.StatusInternalServerError, string(entity.ErrorCodeUnknown), "failed to check import status")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: info})
}

// GetImportXML handles GET /api/imports/:cufe/xml and serves the archived raw XML
func (h *Handlers) GetImportXML(c *gin.Context) {
	cufe, ok := h.cufeParam(c)
	if !ok {
		return
	}

	path := service.ArchivePath(cufe)
	if h.deps.Archive == nil || !h.deps.Archive.Exists(c.Request.Context(), path) {
		h.fail(c, http.StatusNotFound, CodeNotArchived, "no archived XML for this invoice")
		return
	}

	content, err := h.deps.Archive.Read(c.Request.Context(), path)
	if err != nil {
		h.logger.Error("Failed to read archived XML", "cufe", cufe, "error", err)
		h.fail(c, http.StatusInternalServerError, string(entity.ErrorCodeUnknown), "failed to read archived XML")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, path))
	c.Data(http.StatusOK, "application/xml; charset=utf-8", content)
}

// QRCode handles GET /api/qr/:cufe?size=N and returns a PNG deep link
func (h *Handlers) QRCode(c *gin.Context) {
	cufe, ok := h.cufeParam(c)
	if !ok {
		return
	}

	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			h.fail(c, http.StatusBadRequest, CodeBadRequest,
				fmt.Sprintf("size must be between %d and %d", minQRSize, maxQRSize))
			return
		}
		size = n
	}

	png, err := qrcode.Encode(invoice.BuildQRLink(h.deps.QRBaseURL, cufe), qrcode.Medium, size)
	if err != nil {
		h.logger.Error("Failed to render QR code", "cufe", cufe, "error", err)
		h.fail(c, http.StatusInternalServerError, string(entity.ErrorCodeUnknown), "failed to render QR code")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// GetFlow handles GET /api/flows/:key
func (h *Handlers) GetFlow(c *gin.Context) {
	state, err := h.deps.Engine.State(c.Param("key"))
	if err != nil {
		h.flowError(c, state, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: state})
}

// SubmitFlow handles POST /api/flows/:key/submit
func (h *Handlers) SubmitFlow(c *gin.Context) {
	var input workflow.SubmitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.fail(c, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	input.Identifier = utils.SanitizeString(input.Identifier)
	input.QRURL = utils.SanitizeString(input.QRURL)

	key := c.Param("key")
	state, err := h.deps.Engine.Submit(c.Request.Context(), key, input)
	if err != nil {
		h.flowError(c, state, err)
		return
	}

	h.logger.Info("Flow submitted", "flow_key", key, "status", state.Status, "cufe", state.CUFE)
	c.JSON(http.StatusOK, Response{Success: true, Data: state})
}

// ConfirmFlow handles POST /api/flows/:key/confirm
func (h *Handlers) ConfirmFlow(c *gin.Context) {
	var req ConfirmRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, http.StatusBadRequest, CodeBadRequest, "invalid request body")
			return
		}
	}

	key := c.Param("key")
	state, err := h.deps.Engine.ConfirmImport(c.Request.Context(), key, req.SelectedLineNumbers)
	if err != nil {
		h.flowError(c, state, err)
		return
	}

	h.logger.Info("Flow import confirmed", "flow_key", key, "status", state.Status, "session_id", state.ResultingSessionID)
	c.JSON(http.StatusOK, Response{Success: true, Data: state})
}

// ResetFlow handles POST /api/flows/:key/reset
func (h *Handlers) ResetFlow(c *gin.Context) {
	state := h.deps.Engine.Reset(c.Param("key"))
	c.JSON(http.StatusOK, Response{Success: true, Data: state})
}

// DrainNotifications handles GET /api/flows/:key/notifications
func (h *Handlers) DrainNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.deps.Inbox.Drain(c.Param("key"))})
}

// ExportFlow handles GET /api/flows/:key/export
func (h *Handlers) ExportFlow(c *gin.Context) {
	key := c.Param("key")
	state, err := h.deps.Engine.State(key)
	if err != nil {
		h.flowError(c, state, err)
		return
	}
	if state.Invoice == nil {
		h.fail(c, http.StatusConflict, CodeNoInvoice, "flow has no previewed invoice")
		return
	}

	data, err := h.deps.Exporter.InvoiceXLSX(state.Invoice)
	if err != nil {
		h.logger.Error("Failed to export invoice", "flow_key", key, "cufe", state.CUFE, "error", err)
		h.fail(c, http.StatusInternalServerError, string(entity.ErrorCodeUnknown), "failed to export invoice")
		return
	}

	name := state.Invoice.InvoiceNumber
	if name == "" {
		name = state.CUFE
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="factura-%s.xlsx"`, name))
	c.Data(http.StatusOK, export.ContentType, data)
}

// requireFlowKey rejects malformed flow keys before any handler runs
func (h *Handlers) requireFlowKey(c *gin.Context) {
	if err := utils.ValidateFlowKey(c.Param("key")); err != nil {
		h.fail(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		c.Abort()
		return
	}
	c.Next()
}

func (h *Handlers) cufeParam(c *gin.Context) (string, bool) {
	cufe := invoice.NormalizeCUFE(c.Param("cufe"))
	if !invoice.IsWellFormed(cufe) {
		h.fail(c, http.StatusBadRequest, string(entity.ErrorCodeInvalidCUFE), entity.UserMessage(entity.ErrorCodeInvalidCUFE))
		return "", false
	}
	return cufe, true
}

// flowError maps engine errors to status codes; the flow snapshot, if any, rides along
func (h *Handlers) flowError(c *gin.Context, state *workflow.ImportFlowState, err error) {
	status, code := http.StatusInternalServerError, string(entity.CodeOf(err))
	switch {
	case errors.Is(err, workflow.ErrFlowBusy):
		status, code = http.StatusConflict, CodeFlowBusy
	case errors.Is(err, domainwf.ErrInvalidTransition):
		status, code = http.StatusConflict, CodeInvalidTransition
	case errors.Is(err, workflow.ErrFlowNotFound):
		status, code = http.StatusNotFound, CodeFlowNotFound
	case errors.Is(err, workflow.ErrEmptySelection):
		status, code = http.StatusBadRequest, CodeEmptySelection
	default:
		h.logger.Error("Flow operation failed", "flow_key", c.Param("key"), "error", err)
	}

	resp := Response{Success: false, Error: err.Error(), ErrorCode: code}
	if state != nil {
		resp.Data = state
	}
	c.JSON(status, resp)
}

func (h *Handlers) fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{Success: false, Error: message, ErrorCode: code})
}

func outcomeStatus(outcome *service.FetchOutcome) int {
	if outcome.Success {
		return http.StatusOK
	}
	switch outcome.ErrorCode {
	case entity.ErrorCodeInvalidCUFE:
		return http.StatusBadRequest
	case entity.ErrorCodeNotFound:
		return http.StatusNotFound
	case entity.ErrorCodeFetchError:
		return http.StatusBadGateway
	case entity.ErrorCodeParseError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
