package sitemap

import (
	"errors"
	"io"
	"log/slog"
	"strings"
)

// DocumentKind is what the root element says this document contains.
type DocumentKind int

const (
	// KindPageList is a <urlset> document: a flat list of page entries.
	KindPageList DocumentKind = iota
	// KindIndexList is a <sitemapindex> document: pointers to more sitemaps.
	KindIndexList
)

func (k DocumentKind) String() string {
	if k == KindIndexList {
		return "sitemapindex"
	}
	return "urlset"
}

// errUnrecognizedRoot marks a document whose root element is neither urlset
// nor sitemapindex, or that ended before any root element.
var errUnrecognizedRoot = errors.New("root element is not urlset or sitemapindex")

// errDocEnd is the internal exhaustion marker for one document's records.
var errDocEnd = errors.New("document exhausted")

// recordFields maps child element names to slots of the partial record.
// Selecting one of the two tables is the whole difference between parsing a
// urlset and a sitemapindex.
type recordFields map[string]int

const (
	slotLoc = iota
	slotLastMod
	slotChangeFreq
	slotPriority
	slotCount
)

var (
	pageFields  = recordFields{"loc": slotLoc, "lastmod": slotLastMod, "changefreq": slotChangeFreq, "priority": slotPriority}
	indexFields = recordFields{"loc": slotLoc, "lastmod": slotLastMod}
)

// docParser streams records out of a single sitemap document. It holds one
// element's worth of state: the tokenizer position and a partial record.
type docParser struct {
	tok      *tokenizer
	kind     DocumentKind
	location string
	logger   *slog.Logger

	recordName string
	fields     recordFields
	skipped    int
	done       bool
}

// newDocParser classifies the document off its first root-level open tag and
// fixes the field-mapping table for the rest of the stream. It returns
// errUnrecognizedRoot for non-sitemap documents and the decoder's error for
// broken XML.
func newDocParser(r io.Reader, location string, logger *slog.Logger) (*docParser, error) {
	tok := newTokenizer(r)
	for {
		ev, err := tok.next()
		if err != nil {
			return nil, err
		}
		switch ev.kind {
		case eventOpen:
			p := &docParser{tok: tok, location: location, logger: logger}
			switch ev.name {
			case "urlset":
				p.kind = KindPageList
				p.recordName = "url"
				p.fields = pageFields
			case "sitemapindex":
				p.kind = KindIndexList
				p.recordName = "sitemap"
				p.fields = indexFields
			default:
				return nil, errUnrecognizedRoot
			}
			return p, nil
		case eventEnd:
			return nil, errUnrecognizedRoot
		}
		// Whitespace before the root element.
	}
}

// next returns the next complete record of the document: an *Entry for
// urlset documents, an *IndexEntry for sitemapindex documents. It returns
// errDocEnd at the closing root tag. Records without a <loc> are dropped and
// counted, not returned.
func (p *docParser) next() (*Entry, *IndexEntry, error) {
	if p.done {
		return nil, nil, errDocEnd
	}
	for {
		ev, err := p.tok.next()
		if err != nil {
			return nil, nil, err
		}
		switch ev.kind {
		case eventOpen:
			if ev.name != p.recordName {
				// Foreign element at document level, skip its subtree.
				if err := p.tok.skipElement(); err != nil {
					return nil, nil, err
				}
				continue
			}
			entry, index, ok, err := p.readRecord()
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				continue
			}
			return entry, index, nil
		case eventClose, eventEnd:
			p.done = true
			return nil, nil, errDocEnd
		}
	}
}

// readRecord runs the accumulator from just after the record's open tag to
// its close tag. ok is false when the record had to be dropped.
func (p *docParser) readRecord() (*Entry, *IndexEntry, bool, error) {
	var raw [slotCount]string
	var set [slotCount]bool
	dropped := false

	for {
		ev, err := p.tok.next()
		if err != nil {
			return nil, nil, false, err
		}
		switch ev.kind {
		case eventOpen:
			slot, known := p.fields[ev.name]
			if !known {
				// Extension namespaces (image:, video:, ...) and anything
				// else we do not know land here.
				if err := p.tok.skipElement(); err != nil {
					return nil, nil, false, err
				}
				continue
			}
			text, err := p.readFieldText(ev.name)
			if err != nil {
				return nil, nil, false, err
			}
			if set[slot] {
				if slot == slotLoc {
					// Ambiguous record, do not guess which URL was meant.
					p.logger.Warn("multiple loc in record, dropping it", "document", p.location)
					dropped = true
					continue
				}
				p.logger.Warn("duplicate element in record, keeping last", "element", ev.name, "document", p.location)
			}
			raw[slot] = text
			set[slot] = true
		case eventClose:
			if dropped || strings.TrimSpace(raw[slotLoc]) == "" {
				if !dropped {
					p.logger.Warn("record closed without loc, dropping it", "document", p.location)
				}
				p.skipped++
				return nil, nil, false, nil
			}
			if p.kind == KindIndexList {
				return nil, p.finishIndexEntry(raw), true, nil
			}
			return p.finishEntry(raw, set), nil, true, nil
		case eventEnd:
			return nil, nil, false, io.ErrUnexpectedEOF
		}
	}
}

// readFieldText accumulates character data until the field's close tag,
// stitching text split across decoder tokens back together. Nested elements
// inside a simple field are discarded.
func (p *docParser) readFieldText(name string) (string, error) {
	var text string
	for {
		ev, err := p.tok.next()
		if err != nil {
			return "", err
		}
		switch ev.kind {
		case eventText:
			text += ev.text
		case eventOpen:
			if err := p.tok.skipElement(); err != nil {
				return "", err
			}
		case eventClose:
			if ev.name == name {
				return text, nil
			}
		case eventEnd:
			return "", io.ErrUnexpectedEOF
		}
	}
}

func (p *docParser) finishEntry(raw [slotCount]string, set [slotCount]bool) *Entry {
	e := &Entry{Location: strings.TrimSpace(raw[slotLoc])}
	if set[slotLastMod] {
		e.LastMod = strings.TrimSpace(raw[slotLastMod])
		e.LastModTime = parseLastMod(e.LastMod)
	}
	if set[slotChangeFreq] {
		e.ChangeFreqRaw = strings.TrimSpace(raw[slotChangeFreq])
		e.ChangeFreq = ParseChangeFrequency(e.ChangeFreqRaw)
		if e.ChangeFreq == FreqUnknown {
			p.logger.Warn("changefreq has invalid format", "value", e.ChangeFreqRaw, "document", p.location)
		}
	}
	if set[slotPriority] {
		e.PriorityRaw = strings.TrimSpace(raw[slotPriority])
		e.Priority = parsePriority(e.PriorityRaw)
		switch {
		case e.Priority == nil:
			p.logger.Warn("priority is not a number", "value", e.PriorityRaw, "document", p.location)
		case *e.Priority < 0 || *e.Priority > 1:
			p.logger.Warn("priority out of range", "value", *e.Priority, "document", p.location)
		}
	}
	return e
}

func (p *docParser) finishIndexEntry(raw [slotCount]string) *IndexEntry {
	ie := &IndexEntry{Location: strings.TrimSpace(raw[slotLoc])}
	if raw[slotLastMod] != "" {
		ie.LastMod = strings.TrimSpace(raw[slotLastMod])
		ie.LastModTime = parseLastMod(ie.LastMod)
	}
	return ie
}
