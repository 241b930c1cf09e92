// types.go
package processor

import (
	"fmt"
	"strings"

	"github.com/SanteonNL/mosare/cmd/mosare/datasource"
	"github.com/SanteonNL/mosare/models/mosare"
)

// SortMode selects how report rows are ordered by DNI
type SortMode string

const (
	// SortLexical compares DNIs as text, "100" sorts before "99"
	SortLexical SortMode = "lexical"
	// SortNumeric compares digit-only DNIs by value; other ids follow as text
	SortNumeric SortMode = "numeric"
)

// ParseSortMode validates a configured sort mode; empty means lexical
func ParseSortMode(s string) (SortMode, error) {
	switch mode := SortMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return SortLexical, nil
	case SortLexical, SortNumeric:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// Inputs are the three extracts of one run
type Inputs struct {
	Attention   *datasource.Table
	ExamResults *datasource.Table
	Enrollment  *datasource.Table
}

// Stats counts the rows surviving each stage
type Stats struct {
	AttentionRows     int `json:"attentionRows"`
	UniquePatients    int `json:"uniquePatients"`
	ExamRows          int `json:"examRows"`
	RequiredExamRows  int `json:"requiredExamRows"`
	CompletePatients  int `json:"completePatients"`
	EnrolledExcluded  int `json:"enrolledExcluded"`
	WithoutAttention  int `json:"withoutAttention"`
	UnknownFacilities int `json:"unknownFacilities"`
	ReportRows        int `json:"reportRows"`
}

// Report is the final result of a run
type Report struct {
	Columns []string
	Rows    []mosare.ReportRow
	Stats   Stats
}

// Message is the status line shown to the user after a search
func (r *Report) Message() string {
	return fmt.Sprintf("Se encontraron %d registros válidos.", len(r.Rows))
}

// Records returns the rows as string slices in column order, header excluded
func (r *Report) Records() [][]string {
	records := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		records[i] = row.Values()
	}
	return records
}

// ReportColumns returns the uppercased report header
func ReportColumns() []string {
	columns := make([]string, len(mosare.ReportLabels))
	for i, label := range mosare.ReportLabels {
		columns[i] = strings.ToUpper(label)
	}
	return columns
}

// missingTokens are the field values the legacy reader treated as "no value"
var missingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

func isMissing(value string) bool {
	_, ok := missingTokens[value]
	return ok
}
