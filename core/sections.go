package core

import (
	"fmt"
	"regexp"
	"strings"
)

// SectionKind identifies one of the section grammars a PPL file may contain.
type SectionKind int

const (
	SectionVersion SectionKind = iota
	SectionInputFile
	SectionPVTFile
	SectionRestartFile
	SectionDate
	SectionProject
	SectionTitle
	SectionAuthor
	SectionNetwork
	SectionGeometry
	SectionBranch
	SectionCatalog
	SectionTimeSeries

	numSectionKinds
)

func (k SectionKind) String() string {
	if k >= 0 && k < numSectionKinds {
		return grammars[k].name
	}
	return fmt.Sprintf("SectionKind(%d)", int(k))
}

// Repeatable reports whether the section may occur more than once.
func (k SectionKind) Repeatable() bool { return k == SectionBranch }

// RawSection is the text captured for one occurrence of a section.
type RawSection struct {
	Kind     SectionKind
	Line     int      // 1-based line of the label
	Captures []string // one entry per capture group of the grammar, unset groups are ""
}

type grammar struct {
	name    string
	shape   string         // human description of the payload, for errors
	label   *regexp.Regexp // matched against a single line
	payload *regexp.Regexp // matched anchored at the label line

	// body sections own every line after the payload up to the next label
	// or EOF. The lines are appended as the last capture, each preceded by
	// its '\n'.
	body bool
}

// Numeric lines are recognised by their first non-blank character; the
// decoders validate every token.
const numericLines = `(?:\n[ \t]*[-+.\d][^\n]*)*`

func quotedString(label string) grammar {
	return grammar{
		name:    label,
		shape:   "a quoted string on the next line",
		label:   regexp.MustCompile(`^[ \t]*` + label + `[ \t]*$`),
		payload: regexp.MustCompile(`(?m)\A[ \t]*` + label + `[ \t]*\n[ \t]*'(.*)'[ \t]*$`),
	}
}

// grammars is indexed by SectionKind. Label matching tries them in this
// order.
var grammars = [...]grammar{
	SectionVersion: {
		name:    "VERSION",
		shape:   "a quoted product version",
		label:   regexp.MustCompile(`^[ \t]*'OLGA\b`),
		payload: regexp.MustCompile(`(?m)\A[ \t]*'(OLGA\b.*)'[ \t]*$`),
	},
	SectionInputFile:   quotedString("INPUT FILE"),
	SectionPVTFile:     quotedString("PVT FILE"),
	SectionRestartFile: quotedString("RESTART FILE"),
	SectionDate:        quotedString("DATE"),
	SectionProject:     quotedString("PROJECT"),
	SectionTitle:       quotedString("TITLE"),
	SectionAuthor:      quotedString("AUTHOR"),
	SectionNetwork: {
		name:    "NETWORK",
		shape:   "a bare count on the next line",
		label:   regexp.MustCompile(`^[ \t]*NETWORK[ \t]*$`),
		payload: regexp.MustCompile(`(?m)\A[ \t]*NETWORK[ \t]*\n[ \t]*(\S+)[ \t]*$`),
	},
	SectionGeometry: {
		name:    "GEOMETRY",
		shape:   "a quoted, parenthesized length unit",
		label:   regexp.MustCompile(`^[ \t]*GEOMETRY\b`),
		payload: regexp.MustCompile(`(?m)\A[ \t]*GEOMETRY[ \t]*'[ \t]*\(([^)]*)\)[ \t]*'[ \t]*$`),
	},
	SectionBranch: {
		name:    "BRANCH",
		shape:   "a quoted name, a node count and numeric geometry",
		label:   regexp.MustCompile(`^[ \t]*BRANCH[ \t]*$`),
		payload: regexp.MustCompile(`(?m)\A[ \t]*BRANCH[ \t]*\n[ \t]*'(.*)'[ \t]*\n[ \t]*(\S+)([^\n]*` + numericLines + `)`),
	},
	SectionCatalog: {
		name:    "CATALOG",
		shape:   "an entry count followed by entry lines",
		label:   regexp.MustCompile(`^[ \t]*CATALOG\b`),
		payload: regexp.MustCompile(`(?m)\A[ \t]*CATALOG[ \t]*\n?[ \t]*(\S+)[ \t]*$`),
		body:    true,
	},
	SectionTimeSeries: {
		name:    "TIME SERIES",
		shape:   "numeric time-step lines",
		label:   regexp.MustCompile(`^[ \t]*TIME SERIES\b`),
		payload: regexp.MustCompile(`(?m)\A[ \t]*TIME SERIES(?:[ \t]*'[ \t]*\(([^)]*)\)[ \t]*')?[ \t]*$`),
		body:    true,
	},
}

// Every SectionKind needs a grammar; this fails to compile otherwise.
var _ [numSectionKinds]struct{} = [len(grammars)]struct{}{}

func init() {
	for k, g := range grammars {
		if g.label == nil || g.payload == nil {
			panic(fmt.Sprintf("core: section kind %d has no grammar", k))
		}
	}
}

// Sections holds the extracted raw sections, grouped by kind in file order.
type Sections struct {
	byKind [numSectionKinds][]RawSection
}

// All returns every occurrence of kind in file order.
func (s *Sections) All(kind SectionKind) []RawSection { return s.byKind[kind] }

// One returns the single occurrence of kind, if present.
func (s *Sections) One(kind SectionKind) (RawSection, bool) {
	if len(s.byKind[kind]) == 0 {
		return RawSection{}, false
	}
	return s.byKind[kind][0], true
}

func (s *Sections) require(kind SectionKind) (RawSection, error) {
	sec, ok := s.One(kind)
	if !ok {
		return RawSection{}, newParseError(kind, 0, ErrMalformedSection, "required section is missing")
	}
	return sec, nil
}

func (s *Sections) add(sec RawSection) error {
	if prev := s.byKind[sec.Kind]; len(prev) > 0 && !sec.Kind.Repeatable() {
		return newParseError(sec.Kind, sec.Line, ErrMalformedSection, "duplicate section, first seen on line %d", prev[0].Line)
	}
	s.byKind[sec.Kind] = append(s.byKind[sec.Kind], sec)
	return nil
}

// Count returns the total number of extracted sections.
func (s *Sections) Count() int {
	n := 0
	for _, v := range s.byKind {
		n += len(v)
	}
	return n
}

// Extract splits file text into raw sections. Scanning is positional: a
// line that matches a section label must be followed by that section's
// payload, and scanning resumes after the payload. CATALOG and TIME SERIES
// also own every following line up to the next label, so a corrupt line in
// their bodies reaches the decoder. Other lines that match no label are
// skipped.
func Extract(text string) (*Sections, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	out := &Sections{}

	line := 1
	for pos := 0; pos < len(text); {
		end := strings.IndexByte(text[pos:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += pos
		}

		kind, ok := matchLabel(text[pos:end])
		if !ok {
			pos = end + 1
			line++
			continue
		}

		g := &grammars[kind]
		m := g.payload.FindStringSubmatchIndex(text[pos:])
		if m == nil {
			return nil, newParseError(kind, line, ErrMalformedSection, "label is not followed by %s", g.shape)
		}

		captures := make([]string, 0, len(m)/2-1)
		for i := 2; i < len(m); i += 2 {
			if m[i] < 0 {
				captures = append(captures, "")
				continue
			}
			captures = append(captures, text[pos+m[i]:pos+m[i+1]])
		}
		end = pos + m[1]
		if g.body {
			bodyEnd := scanBody(text, end)
			captures = append(captures, text[end:bodyEnd])
			end = bodyEnd
		}
		if err := out.add(RawSection{Kind: kind, Line: line, Captures: captures}); err != nil {
			return nil, err
		}

		// Every payload ends at a line end, so pos lands on a '\n' or EOF.
		line += strings.Count(text[pos:end], "\n")
		pos = end
	}
	return out, nil
}

// scanBody returns the offset of the '\n' that precedes the next label
// line after from, or len(text). from must sit on a '\n' or at EOF.
func scanBody(text string, from int) int {
	for p := from; p < len(text); {
		start := p + 1
		end := strings.IndexByte(text[start:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += start
		}
		if _, ok := matchLabel(text[start:end]); ok {
			return p
		}
		p = end
	}
	return len(text)
}

func matchLabel(line string) (SectionKind, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return 0, false
	}
	switch c := trimmed[0]; {
	case c >= '0' && c <= '9', c == '-', c == '+', c == '.':
		return 0, false
	}
	for k := range grammars {
		if grammars[k].label.MatchString(line) {
			return SectionKind(k), true
		}
	}
	return 0, false
}
