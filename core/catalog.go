package core

import (
	"regexp"
	"strings"

	"github.com/signalsfoundry/ppl-reader/model"
)

// catalogEntry is the five-field grammar of one catalog line:
//
//	HOL 'SECTION:' 'BRANCH:' 'PIPE-1' '(-)' 'Holdup (liquid volume fraction)'
var catalogEntry = regexp.MustCompile(
	`^[ \t]*(\S.*?)[ \t]+'([A-Z]+):'[ \t]+'BRANCH:'[ \t]+'([^']*)'[ \t]+'\((.*)\)'[ \t]+'(.*)'[ \t]*$`)

// decodeCatalog parses the CATALOG section. Entry order is kept exactly as
// in the file; it is the only key for demultiplexing the time series.
func decodeCatalog(secs *Sections) ([]model.CatalogEntry, error) {
	sec, err := secs.require(SectionCatalog)
	if err != nil {
		return nil, err
	}
	declared, err := decodeCount(sec, sec.Captures[0])
	if err != nil {
		return nil, err
	}

	// The body runs to the next section label, so every non-blank line in
	// it must be an entry.
	var lines []string
	for _, line := range strings.Split(sec.Captures[1], "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	entries := make([]model.CatalogEntry, 0, len(lines))
	for i, line := range lines {
		m := catalogEntry.FindStringSubmatch(line)
		if m == nil {
			return nil, newParseError(sec.Kind, sec.Line, ErrCatalogEntryMalformed, "entry %d: %q", i+1, strings.TrimSpace(line))
		}
		kind, ok := model.ParseKind(m[2])
		if !ok {
			return nil, newParseError(sec.Kind, sec.Line, ErrCatalogEntryMalformed, "entry %d: unknown kind %q", i+1, m[2])
		}
		entries = append(entries, model.CatalogEntry{
			Symbol:      strings.TrimSpace(m[1]),
			Kind:        kind,
			BranchName:  m[3],
			Units:       m[4],
			Description: m[5],
		})
	}

	if len(entries) != declared {
		return nil, newParseError(sec.Kind, sec.Line, ErrCatalogCountMismatch,
			"declared %d entries, found %d", declared, len(entries))
	}
	return entries, nil
}
