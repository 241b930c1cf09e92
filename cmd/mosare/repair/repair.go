// Package repair recovers a fixed-width field layout from pipe-delimited
// extract lines whose column count drifted upstream.
package repair

import (
	"fmt"
	"strings"
)

// Delimiter separates fields in the extract files
const Delimiter = "|"

const (
	// DefaultWidth is the number of logical columns of an extract row
	DefaultWidth = 63
	// DefaultZoneStart is the first index scanned for spurious empty fields
	// (the field right after the mobile phone column)
	DefaultZoneStart = 43
	// DefaultZoneEnd is the exclusive end of the scan window (registration time)
	DefaultZoneEnd = 48
)

// Schema describes the target row width and the window where the upstream
// export inserts extra empty optional fields.
type Schema struct {
	Width     int
	ZoneStart int
	ZoneEnd   int
}

// Outcome reports what Repair had to do to a single row
type Outcome struct {
	Observed  int // field count before repair
	Removed   int // empty fields dropped from the zone
	Padded    int // empty fields appended
	Truncated int // trailing fields dropped
}

// Changed reports whether the row differed from the target width
func (o Outcome) Changed() bool {
	return o.Removed > 0 || o.Padded > 0 || o.Truncated > 0
}

// DefaultSchema returns the layout of the AtenMedxServ family of extracts
func DefaultSchema() Schema {
	return Schema{
		Width:     DefaultWidth,
		ZoneStart: DefaultZoneStart,
		ZoneEnd:   DefaultZoneEnd,
	}
}

// Validate checks that the schema can be applied
func (s Schema) Validate() error {
	if s.Width <= 0 {
		return fmt.Errorf("schema width must be positive, got %d", s.Width)
	}
	if s.ZoneStart < 0 || s.ZoneEnd < s.ZoneStart {
		return fmt.Errorf("invalid repair zone [%d, %d)", s.ZoneStart, s.ZoneEnd)
	}
	return nil
}

// RepairLine splits a raw line on the delimiter and repairs the fields.
func (s Schema) RepairLine(line string) ([]string, Outcome) {
	return s.Repair(strings.Split(line, Delimiter))
}

// Repair returns exactly s.Width fields. When the row is too wide, the first
// surplus empty fields inside [ZoneStart, ZoneEnd) are removed; whatever
// width remains off target is then padded with empty strings or truncated.
// If the zone holds fewer empties than the surplus, trailing fields are cut
// and may end up misaligned. The input slice is never modified.
func (s Schema) Repair(fields []string) ([]string, Outcome) {
	out := Outcome{Observed: len(fields)}

	row := make([]string, len(fields), max(len(fields), s.Width))
	copy(row, fields)

	if extra := len(row) - s.Width; extra > 0 {
		var empties []int
		for i := s.ZoneStart; i < s.ZoneEnd && i < len(row); i++ {
			if row[i] == "" {
				empties = append(empties, i)
			}
		}

		for _, idx := range empties {
			if out.Removed == extra {
				break
			}
			// every earlier removal shifted the remaining indices down by one
			at := idx - out.Removed
			row = append(row[:at], row[at+1:]...)
			out.Removed++
		}
	}

	switch {
	case len(row) < s.Width:
		out.Padded = s.Width - len(row)
		for len(row) < s.Width {
			row = append(row, "")
		}
	case len(row) > s.Width:
		out.Truncated = len(row) - s.Width
		row = row[:s.Width]
	}

	return row, out
}
