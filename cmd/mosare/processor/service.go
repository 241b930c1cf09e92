// service.go
package processor

import (
	"context"
	"fmt"

	"github.com/SanteonNL/mosare/cmd/mosare/datasource"
	"github.com/SanteonNL/mosare/cmd/mosare/reference"
	"github.com/rs/zerolog"
)

// ProcessorService turns the three extracts into the final report
type ProcessorService struct {
	log        zerolog.Logger
	dictionary *reference.Dictionary
	sortMode   SortMode
}

// ProcessorConfig holds all the configuration needed to create a new processor
type ProcessorConfig struct {
	Log        zerolog.Logger
	Dictionary *reference.Dictionary
	SortMode   SortMode
}

// NewProcessorService creates a new processor service with all required dependencies
func NewProcessorService(config ProcessorConfig) (*ProcessorService, error) {
	if config.Dictionary == nil {
		return nil, fmt.Errorf("dictionary is required")
	}
	if config.SortMode == "" {
		config.SortMode = SortLexical
	}
	if _, err := ParseSortMode(string(config.SortMode)); err != nil {
		return nil, err
	}

	log := config.Log.With().Str("component", "processor").Logger()
	log.Debug().
		Int("facilities", config.Dictionary.Facilities()).
		Strs("required_exams", config.Dictionary.RequiredExams()).
		Str("sort_mode", string(config.SortMode)).
		Msg("Created processor")

	return &ProcessorService{
		log:        log,
		dictionary: config.Dictionary,
		sortMode:   config.SortMode,
	}, nil
}

// LoadAndProcess loads the three sources one after the other and processes
// them. Nothing is returned unless every stage succeeds.
func (p *ProcessorService) LoadAndProcess(ctx context.Context, attention, examResults, enrollment datasource.Source) (*Report, error) {
	var in Inputs
	for _, step := range []struct {
		src    datasource.Source
		target **datasource.Table
	}{
		{attention, &in.Attention},
		{examResults, &in.ExamResults},
		{enrollment, &in.Enrollment},
	} {
		table, err := step.src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", step.src.Name(), err)
		}
		*step.target = table
	}

	return p.Process(in)
}

// Process runs the cohort filter and the enrichment over already loaded
// tables. Inputs are not modified.
func (p *ProcessorService) Process(in Inputs) (*Report, error) {
	if in.Attention == nil || in.ExamResults == nil || in.Enrollment == nil {
		return nil, fmt.Errorf("all three extracts are required")
	}

	var stats Stats

	attention, err := decodeAttention(in.Attention, &stats)
	if err != nil {
		return nil, err
	}
	exams, err := decodeExamResults(in.ExamResults)
	if err != nil {
		return nil, err
	}
	enrolled, err := decodeEnrollment(in.Enrollment)
	if err != nil {
		return nil, err
	}
	stats.ExamRows = len(exams.records)

	cohort := p.filterCohort(exams.records, enrolled, &stats)
	rows := p.populateReport(cohort, exams.present, attention, &stats)
	sortRows(rows, p.sortMode)
	stats.ReportRows = len(rows)

	p.log.Info().
		Int("attention_rows", stats.AttentionRows).
		Int("unique_patients", stats.UniquePatients).
		Int("exam_rows", stats.ExamRows).
		Int("required_exam_rows", stats.RequiredExamRows).
		Int("complete_patients", stats.CompletePatients).
		Int("enrolled_excluded", stats.EnrolledExcluded).
		Int("without_attention", stats.WithoutAttention).
		Int("unknown_facilities", stats.UnknownFacilities).
		Int("report_rows", stats.ReportRows).
		Msg("Processed extracts")

	return &Report{
		Columns: ReportColumns(),
		Rows:    rows,
		Stats:   stats,
	}, nil
}
