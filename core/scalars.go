package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/ppl-reader/model"
)

// DateLayouts are the accepted layouts for the DATE section, tried in order.
var DateLayouts = []string{
	"2006-01-02 15:04:05",
	"06-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02T15:04:05",
}

var versionToken = regexp.MustCompile(`[\d.]*\d`)

// decodeScalars fills every header field of meta. NETWORK is required; the
// rest are optional and stay unset when absent.
func decodeScalars(secs *Sections) (model.Metadata, error) {
	var meta model.Metadata

	if sec, ok := secs.One(SectionVersion); ok {
		v, err := decodeVersion(sec)
		if err != nil {
			return meta, err
		}
		meta.Version = v
	}

	strs := []struct {
		kind SectionKind
		dst  *string
	}{
		{SectionInputFile, &meta.InputFile},
		{SectionPVTFile, &meta.PVTFile},
		{SectionRestartFile, &meta.RestartFile},
		{SectionProject, &meta.Project},
		{SectionTitle, &meta.Title},
		{SectionAuthor, &meta.Author},
	}
	for _, s := range strs {
		if sec, ok := secs.One(s.kind); ok {
			*s.dst = strings.TrimSpace(sec.Captures[0])
		}
	}

	if sec, ok := secs.One(SectionDate); ok {
		d, err := decodeDate(sec)
		if err != nil {
			return meta, err
		}
		meta.Date = d
	}

	if sec, ok := secs.One(SectionGeometry); ok {
		meta.LengthUnit = strings.TrimSpace(sec.Captures[0])
	}
	if sec, ok := secs.One(SectionTimeSeries); ok {
		meta.TimeUnit = strings.TrimSpace(sec.Captures[0])
	}

	sec, err := secs.require(SectionNetwork)
	if err != nil {
		return meta, err
	}
	n, err := decodeCount(sec, sec.Captures[0])
	if err != nil {
		return meta, err
	}
	meta.Network = n
	return meta, nil
}

// decodeVersion keeps only the trailing numeric token: "OLGA 2017.1.0"
// becomes "2017.1.0".
func decodeVersion(sec RawSection) (string, error) {
	tokens := versionToken.FindAllString(sec.Captures[0], -1)
	if len(tokens) == 0 {
		return "", newParseError(sec.Kind, sec.Line, ErrMalformedSection, "no numeric version in %q", sec.Captures[0])
	}
	return tokens[len(tokens)-1], nil
}

func decodeDate(sec RawSection) (time.Time, error) {
	raw := strings.TrimSpace(sec.Captures[0])
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, newParseError(sec.Kind, sec.Line, ErrInvalidDate, "cannot parse %q", raw)
}

// decodeCount parses a non-negative integer count.
func decodeCount(sec RawSection, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, newParseError(sec.Kind, sec.Line, ErrInvalidInteger, "%q is not a non-negative integer", raw)
	}
	return n, nil
}
