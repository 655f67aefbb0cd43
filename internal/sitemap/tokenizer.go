package sitemap

import (
	"encoding/xml"
	"io"
)

// eventKind discriminates the structural XML events the parser consumes.
type eventKind int

const (
	eventOpen eventKind = iota
	eventClose
	eventText
	eventEnd
)

// event is one structural XML event. Names are local names only: namespace
// prefixes are stripped and matching is case-sensitive, which is what the
// sitemap protocol calls for.
type event struct {
	kind eventKind
	name string
	text string
}

// tokenizer adapts encoding/xml's token stream to the flat event sequence the
// rest of the parser works in. Self-closing elements come out of the decoder
// as an open immediately followed by a close, which is what we want.
type tokenizer struct {
	dec *xml.Decoder
}

func newTokenizer(r io.Reader) *tokenizer {
	return &tokenizer{dec: xml.NewDecoder(r)}
}

// next returns the next structural event. Directives, comments, and
// processing instructions are transparent. Decoder errors (truncated input,
// mismatched tags, bad encoding) surface as-is; callers wrap them as
// CodeMalformedXML.
func (t *tokenizer) next() (event, error) {
	for {
		tok, err := t.dec.Token()
		if err == io.EOF {
			return event{kind: eventEnd}, nil
		}
		if err != nil {
			return event{}, err
		}

		switch tok := tok.(type) {
		case xml.StartElement:
			return event{kind: eventOpen, name: tok.Name.Local}, nil
		case xml.EndElement:
			return event{kind: eventClose, name: tok.Name.Local}, nil
		case xml.CharData:
			return event{kind: eventText, text: string(tok)}, nil
		}
		// ProcInst, Comment, Directive: skip.
	}
}

// skipElement consumes and discards events until the element most recently
// opened is closed. This is the generic forward-compatibility escape hatch:
// unknown elements inside a record are dropped subtree and all.
func (t *tokenizer) skipElement() error {
	depth := 1
	for depth > 0 {
		ev, err := t.next()
		if err != nil {
			return err
		}
		switch ev.kind {
		case eventOpen:
			depth++
		case eventClose:
			depth--
		case eventEnd:
			return io.ErrUnexpectedEOF
		}
	}
	return nil
}
