package saf

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/saftools/helpers"
)

// DublinCore is the flat metadata document of a SAF item.
//
//	<dublin_core schema="dc">
//	  <dcvalue element="title" qualifier="none">A Title</dcvalue>
//	</dublin_core>
type DublinCore struct {
	XMLName xml.Name  `xml:"dublin_core"`
	Schema  string    `xml:"schema,attr,omitempty"`
	Values  []DCValue `xml:"dcvalue"`
}

// DCValue is a single dcvalue element.
type DCValue struct {
	Element   string `xml:"element,attr"`
	Qualifier string `xml:"qualifier,attr,omitempty"`
	Language  string `xml:"language,attr,omitempty"`
	Value     string `xml:",chardata"`
}

// qualifierMatches treats "none" and the empty qualifier as the same thing,
// the DSpace exporter writes both.
func qualifierMatches(have, want string) bool {
	norm := func(q string) string {
		q = strings.ToLower(strings.TrimSpace(q))
		if q == "none" {
			return ""
		}
		return q
	}
	return norm(have) == norm(want)
}

// ParseDublinCore decodes a dublin_core.xml document.
func ParseDublinCore(r io.Reader) (*DublinCore, error) {
	var dc DublinCore
	if err := xml.NewDecoder(r).Decode(&dc); err != nil {
		return nil, fmt.Errorf("parsing dublin core XML: %w", err)
	}
	return &dc, nil
}

// ReadDublinCoreFile decodes the dublin_core.xml at path.
func ReadDublinCoreFile(path string) (*DublinCore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dc, err := ParseDublinCore(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dc, nil
}

// All returns the trimmed, non-empty values for element.qualifier.
func (dc *DublinCore) All(element, qualifier string) []string {
	var out []string
	for _, v := range dc.Values {
		if !strings.EqualFold(v.Element, element) || !qualifierMatches(v.Qualifier, qualifier) {
			continue
		}
		if s := strings.TrimSpace(v.Value); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// First returns the first value for element.qualifier, or "".
func (dc *DublinCore) First(element, qualifier string) string {
	if vals := dc.All(element, qualifier); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Title returns dc.title.
func (dc *DublinCore) Title() string {
	return dc.First("title", "")
}

// DOI returns the normalized DOI of the item: dc.identifier.doi when
// present, else the first dc.identifier.* value that reads as a DOI.
func (dc *DublinCore) DOI() string {
	for _, v := range dc.All("identifier", "doi") {
		if doi := helpers.NormalizeDOI(v); doi != "" {
			return doi
		}
	}
	for _, v := range dc.Values {
		if !strings.EqualFold(v.Element, "identifier") {
			continue
		}
		if doi := helpers.NormalizeDOI(v.Value); doi != "" {
			return doi
		}
	}
	return ""
}
