package invoice

import (
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

func registryPage(body string) string {
	return `<!DOCTYPE html>
<html lang="es">
<head><title>Consulta de Factura Electrónica</title></head>
<body>
<div class="container">` + body + `</div>
</body>
</html>`
}

func TestExtractor_HiddenField(t *testing.T) {
	xml := strings.TrimSpace(loadFixture(t, "invoice_fe01.xml"))
	page := registryPage(`<form id="frmFactura">
  <input type="hidden" name="__VIEWSTATE" value="dDwtMTA4MTY">
  <input type="hidden" id="facturaXML" name="ctl00$facturaXML" value="` + html.EscapeString(xml) + `">
</form>`)

	result, err := NewExtractor().Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "hidden-field", result.Strategy)
	assert.Equal(t, xml, result.XML)
}

func TestExtractor_HiddenFieldDoubleEscaped(t *testing.T) {
	xml := strings.TrimSpace(loadFixture(t, "invoice_fe01.xml"))
	escape := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;").Replace
	page := registryPage(`<input type="hidden" name="xmlFE" value="` + escape(escape(xml)) + `">`)

	result, err := NewExtractor().Extract(page)
	require.NoError(t, err)

	assert.Equal(t, xml, result.XML)
}

func TestExtractor_Textarea(t *testing.T) {
	xml := `<?xml version="1.0"?><rFE><gDGen><dNroDF>7</dNroDF></gDGen></rFE>`
	page := registryPage(`<textarea id="XmlFactura" style="display:none">` + html.EscapeString(xml) + `</textarea>`)

	result, err := NewExtractor().Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "hidden-field", result.Strategy)
	assert.Equal(t, xml, result.XML)
}

func TestExtractor_ScriptLiteral(t *testing.T) {
	page := registryPage(`<script type="text/javascript">
  var cufe = "FE01";
  var facturaXml = "<?xml version=\"1.0\" encoding=\"UTF-8\"?><rFE><gDGen><dNroDF>9<\/dNroDF></gDGen></rFE>";
  render(facturaXml);
</script>`)

	result, err := NewExtractor().Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "script-literal", result.Strategy)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?><rFE><gDGen><dNroDF>9</dNroDF></gDGen></rFE>`, result.XML)
}

func TestExtractor_ScriptLiteralEscaped(t *testing.T) {
	page := registryPage(`<script>
  window.invoice = { xml: '&lt;?xml version="1.0"?&gt;&lt;rFE&gt;&lt;dNroDF&gt;5&lt;/dNroDF&gt;&lt;/rFE&gt;' };
</script>`)

	result, err := NewExtractor().Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "script-literal", result.Strategy)
	assert.Equal(t, `<?xml version="1.0"?><rFE><dNroDF>5</dNroDF></rFE>`, result.XML)
}

func TestExtractor_RawPattern(t *testing.T) {
	page := registryPage(`<pre class="xml">&lt;?xml version="1.0"?&gt;
&lt;rFE&gt;&lt;gDGen&gt;&lt;dNroDF&gt;11&lt;/dNroDF&gt;&lt;/gDGen&gt;&lt;/rFE&gt;</pre>`)

	result, err := NewExtractor().Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "raw-pattern", result.Strategy)
	assert.Equal(t, "<?xml version=\"1.0\"?>\n<rFE><gDGen><dNroDF>11</dNroDF></gDGen></rFE>", result.XML)
}

func TestExtractor_NoPayload(t *testing.T) {
	page := registryPage(`<p>La factura no está disponible.</p><input name="search" value="x">`)

	_, err := NewExtractor().Extract(page)
	require.Error(t, err)

	assert.Equal(t, entity.ErrorCodeParseError, entity.CodeOf(err))
	assert.Contains(t, err.Error(), "markup may have changed")
}

func TestExtractor_HiddenFieldSkipsNonXMLValues(t *testing.T) {
	tests := []struct {
		name         string
		fields       string
		wantStrategy string
	}{
		{
			name:         "mode flag falls through to script",
			fields:       `<input type="hidden" name="xmlMode" value="1">`,
			wantStrategy: "script-literal",
		},
		{
			name:         "download link falls through to script",
			fields:       `<input type="hidden" id="urlXml" value="/Consultas/DescargarXml?id=42">`,
			wantStrategy: "script-literal",
		},
		{
			name: "later xml field wins",
			fields: `<input type="hidden" name="xmlMode" value="1">
  <input type="hidden" name="facturaXml" value="&lt;rFE&gt;&lt;dNroDF&gt;9&lt;/dNroDF&gt;&lt;/rFE&gt;">`,
			wantStrategy: "hidden-field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := registryPage(`<form>` + tt.fields + `</form>
<script>var facturaXml = "<?xml version=\"1.0\"?><rFE><dNroDF>9<\/dNroDF></rFE>";</script>`)

			result, err := NewExtractor().Extract(page)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStrategy, result.Strategy)
			assert.Contains(t, result.XML, "<dNroDF>9</dNroDF>")
		})
	}
}

func TestLooksLikeInvoiceXML(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{`<?xml version="1.0"?><rFE/>`, true},
		{`  <rFE xmlns="http://dgi-fep.mef.gob.pa">`, true},
		{`<ns2:rFE>`, true},
		{`&lt;?xml version="1.0"?&gt;`, true},
		{`&lt;rFE&gt;`, true},
		{`1`, false},
		{`true`, false},
		{`<rFEX>`, false},
		{`/Consultas/DescargarXml?id=42`, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, looksLikeInvoiceXML(tt.value), tt.value)
	}
}

func TestExtractor_StrategyOrder(t *testing.T) {
	var calls []string
	strategy := func(name string, ok bool) Strategy {
		return Strategy{Name: name, Extract: func(string) (string, bool) {
			calls = append(calls, name)
			if ok {
				return "<rFE>" + name + "</rFE>", true
			}
			return "", false
		}}
	}

	e := NewExtractor(strategy("a", false), strategy("b", true), strategy("c", true))
	result, err := e.Extract("irrelevant")
	require.NoError(t, err)

	assert.Equal(t, "b", result.Strategy)
	assert.Equal(t, "<rFE>b</rFE>", result.XML)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestDecodeEntities(t *testing.T) {
	assert.Equal(t, `<a b="c">'&'</a>`, DecodeEntities(`&lt;a b=&quot;c&quot;&gt;&#39;&amp;&#39;&lt;/a&gt;`))
	// already-decoded markup keeps its escaped ampersands
	assert.Equal(t, `<a>&amp;</a>`, DecodeEntities(`<a>&amp;</a>`))
	// single pass: double-escaped input is decoded once
	assert.Equal(t, `<a>&lt;</a>`, DecodeEntities(`&lt;a&gt;&amp;lt;&lt;/a&gt;`))
}
