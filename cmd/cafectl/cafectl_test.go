package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCUFE = "FE0120000155612345-2-2019-0001202401150000000123001011234567890"

// writeConfig points the CLI at a temp database and the given registry
func writeConfig(t *testing.T, registryURL string) string {
	t.Helper()
	dir := t.TempDir()
	if registryURL == "" {
		registryURL = "https://registry.invalid/consulta"
	}
	content := fmt.Sprintf(`database:
  path: %q
registry:
  url_template: "%s?CUFE={cufe}"
  timeout: 2s
archive:
  enabled: false
`, filepath.Join(dir, "cafe.db"), registryURL)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeArchiveConfig(t *testing.T, archiveDir string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`database:
  path: %q
archive:
  enabled: true
  dir: %q
`, filepath.Join(dir, "cafe.db"), archiveDir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	xml, err := os.ReadFile("../../internal/invoice/testdata/invoice_fe01.xml")
	require.NoError(t, err)

	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("CUFE") != testCUFE {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><body><script>var facturaXml = %q;</script></body></html>`, strings.TrimSpace(string(xml)))
	}))
	defer registry.Close()

	cfg := writeConfig(t, registry.URL)

	out, err := run(t, "inspect", "--config", cfg, "--compact", testCUFE)
	require.NoError(t, err, out)

	var outcome struct {
		Success bool `json:"success"`
		Invoice struct {
			CUFE  string        `json:"cufe"`
			Items []interface{} `json:"items"`
		} `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.True(t, outcome.Success)
	assert.Equal(t, testCUFE, outcome.Invoice.CUFE)
	assert.Len(t, outcome.Invoice.Items, 3)

	out, err = run(t, "inspect", "--config", cfg, "FE0100000000000000000000000000000000000000000000000000000000000001")
	assert.Error(t, err)
	assert.Contains(t, out, "NOT_FOUND")
}

func TestQR(t *testing.T) {
	cfg := writeConfig(t, "")
	output := filepath.Join(t.TempDir(), "factura.png")

	out, err := run(t, "qr", "--config", cfg, "-o", output, strings.ToLower(testCUFE))
	require.NoError(t, err)
	assert.Contains(t, out, "chFE="+testCUFE)

	png, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = run(t, "qr", "--config", cfg, "-o", output, "FE01123")
	assert.Error(t, err)
}

func TestStoreAndImports(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, "store", "add", "--config", cfg, "--verified", "155612345-2-2019", "Supermercado El Ahorro")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"taxId": "155612345-2-2019"`)

	out, err = run(t, "store", "get", "--config", cfg, "155612345-2-2019")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Supermercado El Ahorro")
	assert.Contains(t, out, "true")

	_, err = run(t, "store", "get", "--config", cfg, "8-123-456")
	assert.Error(t, err)

	_, err = run(t, "store", "add", "--config", cfg, "not-a-ruc", "X")
	assert.Error(t, err)

	out, err = run(t, "imports", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "IMPORTED AT")
}

func TestArchive(t *testing.T) {
	archiveDir := t.TempDir()
	cfg := writeArchiveConfig(t, archiveDir)
	raw := `<?xml version="1.0"?><rFE><dId>FE01</dId></rFE>`
	require.NoError(t, os.WriteFile(filepath.Join(archiveDir, testCUFE+".xml"), []byte(raw), 0644))

	out, err := run(t, "archive", "show", "--config", cfg, testCUFE)
	require.NoError(t, err, out)
	assert.Equal(t, raw, out)

	out, err = run(t, "archive", "rm", "--config", cfg, testCUFE)
	require.NoError(t, err, out)
	assert.Contains(t, out, "removed")
	assert.NoFileExists(t, filepath.Join(archiveDir, testCUFE+".xml"))

	_, err = run(t, "archive", "show", "--config", cfg, testCUFE)
	assert.Error(t, err)

	_, err = run(t, "archive", "show", "--config", cfg, "FE01")
	assert.Error(t, err)

	_, err = run(t, "archive", "show", "--config", writeConfig(t, ""), testCUFE)
	assert.ErrorContains(t, err, "disabled")
}
