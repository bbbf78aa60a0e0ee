package invoice

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

// Strategy locates the invoice XML inside a registry HTML page
type Strategy struct {
	Name    string
	Extract func(html string) (string, bool)
}

// ExtractResult is the decoded XML and the strategy that found it
type ExtractResult struct {
	XML      string
	Strategy string
}

// Extractor tries its strategies in order; the first match wins
type Extractor struct {
	strategies []Strategy
}

// NewExtractor creates an extractor. With no strategies it uses DefaultStrategies.
func NewExtractor(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{strategies: strategies}
}

// DefaultStrategies returns hidden-field, script-literal and raw-pattern, in that order
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "hidden-field", Extract: extractHiddenField},
		{Name: "script-literal", Extract: extractScriptLiteral},
		{Name: "raw-pattern", Extract: extractRawPattern},
	}
}

// Extract returns the entity-decoded invoice XML embedded in html
func (e *Extractor) Extract(html string) (*ExtractResult, error) {
	for _, s := range e.strategies {
		raw, ok := s.Extract(html)
		if !ok {
			continue
		}
		xml := strings.TrimSpace(raw)
		if xml == "" {
			continue
		}
		return &ExtractResult{XML: DecodeEntities(xml), Strategy: s.Name}, nil
	}

	return nil, entity.NewImportError(entity.ErrorCodeParseError,
		"invoice XML not found in registry page; the registry markup may have changed", nil)
}

var entityDecoder = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
)

// DecodeEntities decodes the five standard entities when the payload is still
// escaped. Payloads that already start with markup were decoded by the HTML
// parser and are returned unchanged so that literal ampersands survive.
func DecodeEntities(s string) string {
	if !strings.HasPrefix(s, "&lt;") {
		return s
	}
	return entityDecoder.Replace(s)
}

func extractHiddenField(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var found string
	doc.Find("input, textarea").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := strings.ToLower(s.AttrOr("name", "") + " " + s.AttrOr("id", ""))
		if !strings.Contains(name, "xml") {
			return true
		}

		value := s.AttrOr("value", "")
		if strings.TrimSpace(value) == "" {
			value = s.Text()
		}
		if !looksLikeInvoiceXML(value) {
			return true
		}

		found = value
		return false
	})

	return found, found != ""
}

var invoiceRootPattern = regexp.MustCompile(`^<(?:\w+:)?rFE[\s>/]`)

// looksLikeInvoiceXML accepts a field value that opens with an XML
// declaration or the rFE root, escaped or not
func looksLikeInvoiceXML(value string) bool {
	v := strings.TrimSpace(DecodeEntities(strings.TrimSpace(value)))
	return strings.HasPrefix(v, "<?xml") || invoiceRootPattern.MatchString(v)
}

var (
	scriptLiteralPattern = regexp.MustCompile(`(?s)[=:(]\s*["'` + "`" + `]\s*(<\?xml.+?</(?:\w+:)?rFE>)`)
	scriptEscapedPattern = regexp.MustCompile(`(?s)[=:(]\s*["'` + "`" + `]\s*(&lt;\?xml.+?&lt;/(?:\w+:)?rFE&gt;)`)

	jsUnescaper = strings.NewReplacer(
		`\\`, `\`,
		`\"`, `"`,
		`\'`, `'`,
		`\/`, `/`,
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
	)
)

func extractScriptLiteral(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var found string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		body := s.Text()
		for _, pattern := range []*regexp.Regexp{scriptLiteralPattern, scriptEscapedPattern} {
			if m := pattern.FindStringSubmatch(body); m != nil {
				found = jsUnescaper.Replace(m[1])
				return false
			}
		}
		return true
	})

	return found, found != ""
}

var (
	rawXMLPattern     = regexp.MustCompile(`(?s)<\?xml.*?</(?:\w+:)?rFE>`)
	rawEscapedPattern = regexp.MustCompile(`(?s)&lt;\?xml.*?&lt;/(?:\w+:)?rFE&gt;`)
)

func extractRawPattern(html string) (string, bool) {
	if m := rawXMLPattern.FindString(html); m != "" {
		return m, true
	}
	if m := rawEscapedPattern.FindString(html); m != "" {
		return m, true
	}
	return "", false
}
