// Package registry fetches invoice pages from the tax authority's public registry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
	"github.com/garyjia/cafe-importer/internal/invoice"
)

// Placeholder substituted with the CUFE in URLTemplate
const Placeholder = "{cufe}"

// Config holds registry client configuration
type Config struct {
	URLTemplate string
	// QRBaseURL and URLTemplate name the only origins a QR link may point at
	QRBaseURL string
	UserAgent string
	Timeout   time.Duration
	// MaxPageSize bounds a registry response; larger pages fail with FETCH_ERROR
	MaxPageSize int64
}

// DefaultConfig returns the public registry defaults
func DefaultConfig() Config {
	return Config{
		URLTemplate: "https://dgi-fep.mef.gob.pa/Consultas/FacturasPorCUFE?CUFE=" + Placeholder,
		QRBaseURL:   "https://dgi-fep.mef.gob.pa/Consultas/FacturasPorQR",
		UserAgent:   "cafe-importer/1.0 (+invoice import)",
		Timeout:     20 * time.Second,
		MaxPageSize: 10 << 20,
	}
}

// Client implements port.RegistryFetcher over HTTP
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a registry client. A nil httpClient gets one bounded by config.Timeout.
func NewClient(config Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = DefaultConfig().MaxPageSize
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// URLFor builds the canonical registry URL for a CUFE
func (c *Client) URLFor(cufe string) string {
	return strings.ReplaceAll(c.config.URLTemplate, Placeholder, url.QueryEscape(cufe))
}

// Fetch performs a single GET against the registry
func (c *Client) Fetch(ctx context.Context, req port.FetchRequest) (*port.FetchResult, error) {
	cufe, fetchURL, err := invoice.ResolveInput(req.Identifier, req.QRURL)
	if err != nil {
		return nil, err
	}
	if fetchURL == "" {
		fetchURL = c.URLFor(cufe)
	} else if !c.registryOrigin(fetchURL) {
		c.logger.Info("Rejected QR link outside the registry", zap.String("cufe", cufe), zap.String("url", fetchURL))
		return nil, entity.NewImportError(entity.ErrorCodeInvalidCUFE, "QR link does not point at the invoice registry", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, entity.NewImportError(entity.ErrorCodeInvalidCUFE, "invalid registry URL", err)
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Registry request failed",
			zap.String("cufe", cufe),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, entity.NewImportError(entity.ErrorCodeUnknown,
				fmt.Sprintf("registry did not answer within %s", c.config.Timeout), err)
		}
		return nil, entity.NewImportError(entity.ErrorCodeUnknown, err.Error(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &entity.ImportError{
			Code:    entity.ErrorCodeNotFound,
			Message: "invoice not found in registry",
			Status:  resp.StatusCode,
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("Registry returned error status",
			zap.String("cufe", cufe),
			zap.Int("status", resp.StatusCode))
		return nil, &entity.ImportError{
			Code:    entity.ErrorCodeFetchError,
			Message: fmt.Sprintf("registry returned HTTP %d", resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxPageSize+1))
	if err != nil {
		return nil, entity.NewImportError(entity.ErrorCodeUnknown, "failed to read registry response", err)
	}
	if int64(len(body)) > c.config.MaxPageSize {
		c.logger.Error("Registry page too large",
			zap.String("cufe", cufe),
			zap.Int64("limit", c.config.MaxPageSize))
		return nil, &entity.ImportError{
			Code:    entity.ErrorCodeFetchError,
			Message: fmt.Sprintf("registry page exceeds %d bytes", c.config.MaxPageSize),
			Status:  resp.StatusCode,
		}
	}

	c.logger.Info("Registry page fetched",
		zap.String("cufe", cufe),
		zap.Int("status", resp.StatusCode),
		zap.Int("size", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	return &port.FetchResult{
		CUFE:       cufe,
		SourceURL:  fetchURL,
		HTML:       string(body),
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// registryOrigin reports whether link shares scheme and host with the
// configured QR base URL or the CUFE URL template
func (c *Client) registryOrigin(link string) bool {
	target, err := url.Parse(link)
	if err != nil || target.Host == "" {
		return false
	}
	for _, base := range []string{c.config.QRBaseURL, c.config.URLTemplate} {
		allowed, err := url.Parse(strings.ReplaceAll(base, Placeholder, ""))
		if err != nil || allowed.Host == "" {
			continue
		}
		if strings.EqualFold(target.Scheme, allowed.Scheme) && strings.EqualFold(target.Host, allowed.Host) {
			return true
		}
	}
	return false
}

var _ port.RegistryFetcher = (*Client)(nil)
