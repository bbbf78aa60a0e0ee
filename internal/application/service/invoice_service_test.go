package service

import (
	"context"
	"html"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

func fixturePage(t *testing.T) string {
	t.Helper()
	xml, err := os.ReadFile("../../invoice/testdata/invoice_fe01.xml")
	require.NoError(t, err)
	return `<html><body><input type="hidden" id="facturaXML" value="` + html.EscapeString(string(xml)) + `"></body></html>`
}

func TestInvoiceService_Fetch(t *testing.T) {
	page := fixturePage(t)
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, req port.FetchRequest) (*port.FetchResult, error) {
		return &port.FetchResult{
			CUFE:       testCUFE,
			SourceURL:  "https://registry.test/" + testCUFE,
			HTML:       page,
			StatusCode: 200,
			FetchedAt:  time.Now(),
		}, nil
	}}

	outcome := NewInvoiceService(fetcher, nil, &mockLogger{}).Fetch(context.Background(), port.FetchRequest{Identifier: testCUFE})

	require.True(t, outcome.Success, outcome.Detail)
	require.NotNil(t, outcome.Invoice)
	assert.Len(t, outcome.Invoice.Items, 3)
	assert.Equal(t, "SUPERMERCADO EL AHORRO, S.A.", outcome.Invoice.Issuer.Name)
	assert.Empty(t, outcome.ErrorCode)
}

func TestInvoiceService_FetchFailures(t *testing.T) {
	tests := []struct {
		name     string
		result   *port.FetchResult
		err      error
		wantCode entity.ErrorCode
	}{
		{
			name:     "not found",
			err:      &entity.ImportError{Code: entity.ErrorCodeNotFound, Message: "gone", Status: 404},
			wantCode: entity.ErrorCodeNotFound,
		},
		{
			name:     "page without xml",
			result:   &port.FetchResult{CUFE: testCUFE, HTML: "<html><body>mantenimiento</body></html>"},
			wantCode: entity.ErrorCodeParseError,
		},
		{
			name:     "xml without issuer",
			result:   &port.FetchResult{CUFE: testCUFE, HTML: `<input name="xml" value="&lt;rFE&gt;&lt;gDGen/&gt;&lt;/rFE&gt;">`},
			wantCode: entity.ErrorCodeParseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, req port.FetchRequest) (*port.FetchResult, error) {
				return tt.result, tt.err
			}}

			outcome := NewInvoiceService(fetcher, nil, &mockLogger{}).Fetch(context.Background(), port.FetchRequest{Identifier: testCUFE})

			assert.False(t, outcome.Success)
			assert.Nil(t, outcome.Invoice)
			assert.Equal(t, tt.wantCode, outcome.ErrorCode)
			assert.Equal(t, entity.UserMessage(tt.wantCode), outcome.Error)
			assert.NotEmpty(t, outcome.Detail)
			assert.NotEqual(t, outcome.Error, outcome.Detail)
		})
	}
}
