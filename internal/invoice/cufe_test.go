package invoice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

const (
	testCUFE   = "FE0120000155612345-2-2019-0001202401150000000123001011234567890"
	testQRBase = "https://dgi-fep.mef.gob.pa/Consultas/FacturasPorQR"
)

func TestNormalizeCUFE(t *testing.T) {
	assert.Equal(t, "FE01ABC", NormalizeCUFE("  fe01abc \n"))
	assert.Equal(t, "", NormalizeCUFE("   "))
}

func TestIsWellFormed(t *testing.T) {
	pad := func(prefix string, n int) string {
		return prefix + strings.Repeat("0", n-len(prefix))
	}

	tests := []struct {
		name string
		cufe string
		want bool
	}{
		{"invoice at minimum length", pad("FE01", entity.MinCUFELength), true},
		{"credit note", pad("FE04", entity.MinCUFELength+10), true},
		{"debit note", pad("FE05", entity.MinCUFELength+25), true},
		{"real fixture", testCUFE, true},
		{"one short", pad("FE01", entity.MinCUFELength-1), false},
		{"unknown prefix", pad("FE02", entity.MinCUFELength), false},
		{"lowercase is not normalized", strings.ToLower(pad("FE01", entity.MinCUFELength)), false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWellFormed(tt.cufe))
		})
	}
}

func TestLooksLikeQRLink(t *testing.T) {
	assert.True(t, LooksLikeQRLink(testQRBase+"?chFE="+testCUFE))
	assert.False(t, LooksLikeQRLink("https://dgi-fep.mef.gob.pa/Consultas/FacturasPorCUFE?CUFE="+testCUFE))
	assert.False(t, LooksLikeQRLink(testCUFE))
}

func TestExtractCUFEFromQRLink(t *testing.T) {
	tests := []struct {
		name   string
		link   string
		want   string
		wantOK bool
	}{
		{"standard link", testQRBase + "?chFE=" + testCUFE + "&iAmb=1&digestValue=abc", testCUFE, true},
		{"lower-cased value", testQRBase + "?chFE=" + strings.ToLower(testCUFE), testCUFE, true},
		{"lower-cased key", strings.ToLower(testQRBase) + "?chfe=" + testCUFE, testCUFE, true},
		{"missing param", testQRBase + "?iAmb=1", "", false},
		{"empty param", testQRBase + "?chFE=", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractCUFEFromQRLink(tt.link)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildQRLink_RoundTrip(t *testing.T) {
	cufes := []string{
		testCUFE,
		"FE0400000000000000000000000000000000000000001",
		"FE05" + strings.Repeat("9", 60),
	}

	for _, cufe := range cufes {
		link := BuildQRLink(testQRBase, cufe)
		require.True(t, LooksLikeQRLink(link), link)

		got, ok := ExtractCUFEFromQRLink(link)
		require.True(t, ok)
		assert.Equal(t, cufe, got)

		lower, ok := ExtractCUFEFromQRLink(BuildQRLink(testQRBase, strings.ToLower(cufe)))
		require.True(t, ok)
		assert.Equal(t, cufe, lower)
	}
}

func TestResolveInput(t *testing.T) {
	t.Run("bare identifier", func(t *testing.T) {
		cufe, fetchURL, err := ResolveInput("  "+strings.ToLower(testCUFE)+" ", "")
		require.NoError(t, err)
		assert.Equal(t, testCUFE, cufe)
		assert.Empty(t, fetchURL)
	})

	t.Run("qr url", func(t *testing.T) {
		link := BuildQRLink(testQRBase, testCUFE)
		cufe, fetchURL, err := ResolveInput("", link)
		require.NoError(t, err)
		assert.Equal(t, testCUFE, cufe)
		assert.Equal(t, link, fetchURL)
	})

	t.Run("qr url pasted as identifier", func(t *testing.T) {
		link := BuildQRLink(testQRBase, testCUFE)
		cufe, fetchURL, err := ResolveInput(link, "")
		require.NoError(t, err)
		assert.Equal(t, testCUFE, cufe)
		assert.Equal(t, link, fetchURL)
	})

	t.Run("malformed identifier", func(t *testing.T) {
		_, _, err := ResolveInput("FE01123", "")
		assert.Equal(t, entity.ErrorCodeInvalidCUFE, entity.CodeOf(err))
	})

	t.Run("qr without identifier", func(t *testing.T) {
		_, _, err := ResolveInput("", testQRBase+"?iAmb=1")
		assert.Equal(t, entity.ErrorCodeInvalidCUFE, entity.CodeOf(err))
	})
}
