package invoice

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

// XML groups of the registry document
const (
	GroupGeneral       = "gDGen"
	GroupIssuer        = "gEmis"
	GroupReceiver      = "gDatRec"
	GroupItem          = "gItem"
	GroupTotals        = "gTot"
	GroupPayment       = "gFormaPago"
	GroupAuthorization = "gInfProt"
)

// Document is a read-only view over an invoice XML tree.
// Lookups never fail: a missing group or field reads as "".
type Document struct {
	doc *etree.Document
}

// Group is a scoped view of one XML element. The zero Group is valid and empty.
type Group struct {
	el *etree.Element
}

// ParseDocument parses raw XML into a Document
func ParseDocument(raw string) (*Document, error) {
	doc := etree.NewDocument()
	// Declared charsets are trusted as-is; registry payloads are UTF-8 in practice
	doc.ReadSettings.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	if err := doc.ReadFromString(strings.TrimSpace(raw)); err != nil {
		return nil, fmt.Errorf("failed to parse invoice XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("invoice XML has no root element")
	}

	return &Document{doc: doc}, nil
}

// RootTag returns the local name of the root element
func (d *Document) RootTag() string {
	return d.doc.Root().Tag
}

// Group returns the first element with the given name anywhere in the document
func (d *Document) Group(name string) Group {
	return Group{el: d.doc.FindElement(".//" + name)}
}

// Groups returns every element with the given name in document order
func (d *Document) Groups(name string) []Group {
	elements := d.doc.FindElements(".//" + name)
	groups := make([]Group, 0, len(elements))
	for _, el := range elements {
		groups = append(groups, Group{el: el})
	}
	return groups
}

// Exists reports whether the group was present in the document
func (g Group) Exists() bool {
	return g.el != nil
}

// Group returns the first descendant group with the given name
func (g Group) Group(name string) Group {
	if g.el == nil {
		return Group{}
	}
	return Group{el: g.el.FindElement(".//" + name)}
}

// Text returns the trimmed text of the first descendant matching the
// element path, e.g. Text("gRucEmi", "dRuc"). Missing elements read as "".
func (g Group) Text(path ...string) string {
	if g.el == nil || len(path) == 0 {
		return ""
	}
	el := g.el.FindElement(".//" + strings.Join(path, "/"))
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}
