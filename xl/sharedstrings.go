package xl

import "encoding/xml"

// parseSharedStrings reads sharedStrings.xml into an ordered slice
// indexed exactly as cells reference it ("t=s" cells store a 0-based
// index into this table). Rich-text runs (<r><t>...</t></r>) are
// concatenated into one plain string per <si>, since spec.md's value
// model has no rich-text variant.
func parseSharedStrings(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []string
	r := NewTokenReader(data)
	for {
		tok, err := r.Next()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "si" {
			continue
		}
		s, err := parseSI(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// parseSI reads one <si> element's text, concatenating either a bare
// <t> or a sequence of rich-text <r><t>...</t></r> runs.
func parseSI(r *TokenReader) (string, error) {
	var text string
	depth := 1
	for depth > 0 {
		tok, err := r.Next()
		if err != nil {
			return text, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				s, err := r.ReadCharData()
				if err != nil {
					return text, err
				}
				text += s
				continue // ReadCharData already consumed the </t>
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return text, nil
}
