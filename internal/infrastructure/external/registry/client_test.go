package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

const testCUFE = "FE0120000155612345-2-2019-0001202401150000000123001011234567890"

func newTestClient(t *testing.T, srv *httptest.Server, timeout time.Duration) *Client {
	t.Helper()
	return NewClient(Config{
		URLTemplate: srv.URL + "/Consultas/FacturasPorCUFE?CUFE=" + Placeholder,
		QRBaseURL:   srv.URL + "/Consultas/FacturasPorQR",
		UserAgent:   "cafe-test",
		Timeout:     timeout,
	}, nil, zap.NewNop())
}

func TestClient_FetchSuccess(t *testing.T) {
	var gotPath, gotAgent string
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotPath = r.URL.String()
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, time.Second)
	result, err := client.Fetch(context.Background(), port.FetchRequest{Identifier: " " + testCUFE + " "})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "/Consultas/FacturasPorCUFE?CUFE="+testCUFE, gotPath)
	assert.Equal(t, "cafe-test", gotAgent)
	assert.Equal(t, testCUFE, result.CUFE)
	assert.Equal(t, "<html>ok</html>", result.HTML)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.False(t, result.FetchedAt.IsZero())
}

func TestClient_FetchQRLinkVerbatim(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		_, _ = w.Write([]byte("qr page"))
	}))
	defer srv.Close()

	link := srv.URL + "/Consultas/FacturasPorQR?chFE=" + testCUFE + "&iAmb=1&digestValue=xyz"
	client := newTestClient(t, srv, time.Second)

	result, err := client.Fetch(context.Background(), port.FetchRequest{QRURL: link})
	require.NoError(t, err)

	assert.Equal(t, "/Consultas/FacturasPorQR?chFE="+testCUFE+"&iAmb=1&digestValue=xyz", gotPath)
	assert.Equal(t, link, result.SourceURL)
	assert.Equal(t, testCUFE, result.CUFE)
}

func TestClient_FetchRejectsForeignQRLinks(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("qr page"))
	}))
	defer srv.Close()

	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer foreign.Close()

	client := NewClient(Config{
		URLTemplate: "https://dgi-fep.mef.gob.pa/Consultas/FacturasPorCUFE?CUFE=" + Placeholder,
		QRBaseURL:   srv.URL + "/Consultas/FacturasPorQR",
		UserAgent:   "cafe-test",
		Timeout:     time.Second,
	}, nil, zap.NewNop())

	tests := []struct {
		name    string
		link    string
		allowed bool
	}{
		{"configured qr host", srv.URL + "/Consultas/FacturasPorQR?chFE=" + testCUFE, true},
		{"other path on the qr host", srv.URL + "/otra?chFE=" + testCUFE, true},
		{"internal service", foreign.URL + "/metadata?chFE=" + testCUFE, false},
		{"cloud metadata", "http://169.254.169.254/latest/meta-data?chFE=" + testCUFE, false},
		{"cufe host over plain http", "http://dgi-fep.mef.gob.pa/Consultas/FacturasPorQR?chFE=" + testCUFE, false},
		{"lookalike host", "https://dgi-fep.mef.gob.pa.evil.test/x?chFE=" + testCUFE, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := calls
			_, err := client.Fetch(context.Background(), port.FetchRequest{QRURL: tt.link})
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, before+1, calls)
				return
			}
			require.Error(t, err)
			assert.Equal(t, entity.ErrorCodeInvalidCUFE, entity.CodeOf(err))
			assert.Equal(t, before, calls, "no request leaves for a foreign host")
		})
	}
}

func TestClient_FetchRejectsOversizedPage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode entity.ErrorCode
	}{
		{"at the limit", strings.Repeat("a", 16), ""},
		{"one byte over", strings.Repeat("a", 17), entity.ErrorCodeFetchError},
		{"far over", strings.Repeat("a", 4096), entity.ErrorCodeFetchError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(Config{
				URLTemplate: srv.URL + "/?CUFE=" + Placeholder,
				Timeout:     time.Second,
				MaxPageSize: 16,
			}, nil, zap.NewNop())

			result, err := client.Fetch(context.Background(), port.FetchRequest{Identifier: testCUFE})
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.body, result.HTML)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, entity.CodeOf(err))
			assert.Nil(t, result)
		})
	}
}

func TestClient_FetchStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode entity.ErrorCode
	}{
		{"not found", http.StatusNotFound, entity.ErrorCodeNotFound},
		{"server error", http.StatusInternalServerError, entity.ErrorCodeFetchError},
		{"unavailable", http.StatusServiceUnavailable, entity.ErrorCodeFetchError},
		{"forbidden", http.StatusForbidden, entity.ErrorCodeFetchError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv, time.Second).Fetch(context.Background(), port.FetchRequest{Identifier: testCUFE})
			require.Error(t, err)

			var importErr *entity.ImportError
			require.ErrorAs(t, err, &importErr)
			assert.Equal(t, tt.wantCode, importErr.Code)
			assert.Equal(t, tt.status, importErr.Status)
			assert.Equal(t, 1, calls, "no retries")
		})
	}
}

func TestClient_FetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 50*time.Millisecond).Fetch(context.Background(), port.FetchRequest{Identifier: testCUFE})
	require.Error(t, err)
	assert.Equal(t, entity.ErrorCodeUnknown, entity.CodeOf(err))
}

func TestClient_FetchInvalidCUFE(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, time.Second).Fetch(context.Background(), port.FetchRequest{Identifier: "FE01-short"})
	assert.Equal(t, entity.ErrorCodeInvalidCUFE, entity.CodeOf(err))
	assert.Zero(t, calls)
}

func TestClient_URLFor(t *testing.T) {
	client := NewClient(DefaultConfig(), nil, zap.NewNop())
	assert.Equal(t, "https://dgi-fep.mef.gob.pa/Consultas/FacturasPorCUFE?CUFE="+testCUFE, client.URLFor(testCUFE))
}
