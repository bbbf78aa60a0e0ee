package invoice

import (
	"net/url"
	"strings"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

const (
	// QRPathMarker identifies a registry QR deep link
	QRPathMarker = "FacturasPorQR"

	// QRQueryParam carries the CUFE inside a QR deep link
	QRQueryParam = "chFE"
)

// NormalizeCUFE trims and upper-cases a raw identifier
func NormalizeCUFE(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// IsWellFormed reports whether a normalized CUFE has a recognized prefix and the minimum length
func IsWellFormed(cufe string) bool {
	if cufe == "" || len(cufe) < entity.MinCUFELength {
		return false
	}
	for _, prefix := range entity.CUFEPrefixes {
		if strings.HasPrefix(cufe, prefix) {
			return true
		}
	}
	return false
}

// LooksLikeQRLink reports whether the input has the registry QR deep-link shape
func LooksLikeQRLink(raw string) bool {
	return strings.Contains(raw, QRPathMarker)
}

// ExtractCUFEFromQRLink reads the CUFE query parameter from a QR deep link.
// The result is normalized but not validated.
func ExtractCUFEFromQRLink(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}

	value := u.Query().Get(QRQueryParam)
	if value == "" {
		// scanners sometimes lower-case the whole URL
		for key, values := range u.Query() {
			if strings.EqualFold(key, QRQueryParam) && len(values) > 0 {
				value = values[0]
				break
			}
		}
	}

	cufe := NormalizeCUFE(value)
	if cufe == "" {
		return "", false
	}
	return cufe, true
}

// BuildQRLink builds a QR deep link for a CUFE on the given registry base URL,
// e.g. https://dgi-fep.mef.gob.pa/Consultas/FacturasPorQR
func BuildQRLink(baseURL, cufe string) string {
	q := url.Values{}
	q.Set(QRQueryParam, cufe)
	q.Set("iAmb", "1")

	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + q.Encode()
}

// ResolveInput turns user input (CUFE or QR link) into a normalized CUFE and,
// for QR links, the URL to fetch verbatim.
func ResolveInput(identifier, qrURL string) (cufe string, fetchURL string, err error) {
	raw := strings.TrimSpace(qrURL)
	if raw == "" && LooksLikeQRLink(identifier) {
		raw = strings.TrimSpace(identifier)
	}

	if raw != "" {
		cufe, ok := ExtractCUFEFromQRLink(raw)
		if !ok {
			return "", "", entity.NewImportError(entity.ErrorCodeInvalidCUFE, "no CUFE found in QR link", nil)
		}
		if !IsWellFormed(cufe) {
			return "", "", entity.NewImportError(entity.ErrorCodeInvalidCUFE, "malformed CUFE in QR link: "+cufe, nil)
		}
		return cufe, raw, nil
	}

	cufe = NormalizeCUFE(identifier)
	if !IsWellFormed(cufe) {
		return "", "", entity.NewImportError(entity.ErrorCodeInvalidCUFE, "malformed CUFE: "+cufe, nil)
	}
	return cufe, "", nil
}
