// Package yearparse resolves the record year embedded in an annual extract
// filename. The grammar is <prefix>YYYY[_YY]<suffix>.csv: a mandatory
// literal prefix, four digits, an optional two-digit academic-year
// fragment, a literal suffix, and the .csv extension.
//
// Resolution is all-or-nothing per file: a filename that fails the grammar
// rejects the whole file before any row is read.
package yearparse

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/deb-research/scorecard-cli/internal/schema"
)

// Reason-tagged rejections, so callers can distinguish grammar failures
// from implausible years.
var (
	ErrExtension       = eris.New("yearparse: not a .csv file")
	ErrNoPrefix        = eris.New("yearparse: filename does not start with the expected prefix")
	ErrNoYear          = eris.New("yearparse: no 4-digit year after the prefix")
	ErrBadSuffix       = eris.New("yearparse: unexpected text after the year")
	ErrImplausibleYear = eris.New("yearparse: year outside the plausible range")
)

// Grammar holds the literal tokens around the embedded year. Both default
// to the upstream convention ("scorecard_" prefix, empty suffix) and are
// configurable for other dataset families.
type Grammar struct {
	Prefix string
	Suffix string

	// Now is the clock used for the upper plausibility bound; nil means
	// time.Now. Injected by tests.
	Now func() time.Time
}

// Parse extracts the 4-digit year from a filename or path. It returns a
// reason-tagged error when the name does not match the grammar or the year
// is implausible.
func (g Grammar) Parse(path string) (int, error) {
	name := filepath.Base(path)

	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return 0, eris.Wrapf(ErrExtension, "%q", name)
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))

	rest, ok := strings.CutPrefix(name, g.Prefix)
	if !ok {
		return 0, eris.Wrapf(ErrNoPrefix, "%q (want prefix %q)", name, g.Prefix)
	}

	if len(rest) < 4 || !allDigits(rest[:4]) {
		return 0, eris.Wrapf(ErrNoYear, "%q", name)
	}
	year, err := strconv.Atoi(rest[:4])
	if err != nil {
		return 0, eris.Wrapf(ErrNoYear, "%q", name)
	}
	rest = rest[4:]

	// Optional second-year fragment, e.g. "2019_20".
	if len(rest) >= 3 && rest[0] == '_' && allDigits(rest[1:3]) {
		rest = rest[3:]
	}

	if rest != g.Suffix {
		return 0, eris.Wrapf(ErrBadSuffix, "%q (want suffix %q, got %q)", name, g.Suffix, rest)
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	if !schema.ValidYear(year, now()) {
		return 0, eris.Wrapf(ErrImplausibleYear, "%d from %q", year, name)
	}

	return year, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
