package xl

import (
	"bytes"
	"encoding/xml"
	"io"
)

// TokenReader is a thin pull-style wrapper over encoding/xml.Decoder,
// the read-side counterpart to github.com/adnsv/srw/xml's write-side
// OTag/CTag builder. It exposes the same StartElement/EndElement/
// CharData token shape spec.md §4.5 describes, letting a worksheet scan
// stay a single forward pass over the byte stream instead of building a
// DOM.
type TokenReader struct {
	dec *xml.Decoder
}

func NewTokenReader(data []byte) *TokenReader {
	return &TokenReader{dec: xml.NewDecoder(bytes.NewReader(data))}
}

// Next returns the next token, io.EOF at end of stream.
func (r *TokenReader) Next() (xml.Token, error) {
	return r.dec.Token()
}

// Attr returns the value of the named attribute on a StartElement, or
// "" if absent.
func Attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// SkipElement consumes tokens until the matching EndElement for a
// StartElement already read, discarding everything in between. Used to
// skip parts of the tree a parser doesn't care about (e.g. <pageSetup>).
func (r *TokenReader) SkipElement() error {
	depth := 1
	for depth > 0 {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// ReadCharData accumulates character data until the enclosing element's
// EndElement, returning the concatenated text. Used for simple
// leaf elements like <v>123</v> or <t>hello</t>.
func (r *TokenReader) ReadCharData() (string, error) {
	var buf bytes.Buffer
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if err == io.EOF {
				return buf.String(), nil
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			return buf.String(), nil
		case xml.StartElement:
			// Nested markup inside a leaf (e.g. rich-text <r> runs in
			// shared strings) — skip it and keep accumulating.
			if err := r.SkipElement(); err != nil {
				return "", err
			}
		}
	}
}
