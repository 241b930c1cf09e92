package processor

import (
	"strings"

	"github.com/SanteonNL/mosare/cmd/mosare/datasource"
	"github.com/SanteonNL/mosare/models/mosare"
	"golang.org/x/exp/slices"
)

// decodeAttention reads AtenMedxServ keeping the first visit per patient
func decodeAttention(t *datasource.Table, stats *Stats) (map[string]mosare.AttentionRecord, error) {
	if err := t.RequireColumns(mosare.ColDocPaciente, mosare.ColAnnos); err != nil {
		return nil, err
	}

	byPatient := make(map[string]mosare.AttentionRecord, t.Len())
	for i := range t.Rows {
		doc := t.Value(i, mosare.ColDocPaciente)
		if _, seen := byPatient[doc]; seen {
			continue
		}
		byPatient[doc] = mosare.AttentionRecord{
			DocumentID:      doc,
			PatientName:     t.Value(i, mosare.ColPaciente),
			Facility:        t.Value(i, mosare.ColCentro),
			Period:          t.Value(i, mosare.ColPeriodo),
			AppointmentDate: t.Value(i, mosare.ColFechaCita),
			Age:             t.Value(i, mosare.ColAnnos),
		}
	}

	stats.AttentionRows = t.Len()
	stats.UniquePatients = len(byPatient)
	return byPatient, nil
}

// populateReport left-joins the cohort to the attention records, drops rows
// without a usable age and projects the report columns. Visit fields come
// from the exam extract when it has the column, otherwise from the attention
// record; the age always comes from the attention record. Missing-value
// tokens such as "NA" only matter for the age; every other field is copied
// through verbatim.
func (p *ProcessorService) populateReport(cohort []mosare.ExamResultRecord, examHas map[string]bool, attention map[string]mosare.AttentionRecord, stats *Stats) []mosare.ReportRow {
	pick := func(column, examValue, attentionValue string) string {
		if examHas[column] {
			return examValue
		}
		return attentionValue
	}

	rows := make([]mosare.ReportRow, 0, len(cohort))
	for _, exam := range cohort {
		visit, ok := attention[exam.DNI]
		if !ok || isMissing(visit.Age) {
			stats.WithoutAttention++
			continue
		}

		facility := p.dictionary.FacilityName(pick(mosare.ColCentro, exam.Facility, visit.Facility))
		if facility == mosare.UnknownFacility {
			stats.UnknownFacilities++
		}
		description, _ := p.dictionary.ExamDescription(exam.Exam)

		rows = append(rows, mosare.ReportRow{
			Facility:        facility,
			Period:          pick(mosare.ColPeriodo, exam.Period, visit.Period),
			DNI:             exam.DNI,
			PatientName:     pick(mosare.ColPaciente, exam.PatientName, visit.PatientName),
			ExamCode:        exam.Exam,
			ExamDescription: description,
			Age:             visit.Age,
			AppointmentDate: pick(mosare.ColFechaCita, exam.AppointmentDate, visit.AppointmentDate),
			ResultDate:      exam.ResultDate,
		})
	}

	p.log.Debug().
		Int("cohort_rows", len(cohort)).
		Int("joined_rows", len(rows)).
		Int("without_attention", stats.WithoutAttention).
		Msg("Populated report rows")

	return rows
}

// sortRows orders rows by DNI; rows with equal DNI keep their cohort order
func sortRows(rows []mosare.ReportRow, mode SortMode) {
	cmp := strings.Compare
	if mode == SortNumeric {
		cmp = compareNumeric
	}
	slices.SortStableFunc(rows, func(a, b mosare.ReportRow) int {
		return cmp(a.DNI, b.DNI)
	})
}

// compareNumeric orders digit-only ids by value without parsing them, so ids
// longer than an int64 still compare correctly. Other ids sort after all
// numeric ones, as text.
func compareNumeric(a, b string) int {
	an, bn := isDigits(a), isDigits(b)
	switch {
	case an && bn:
		a, b = trimZeros(a), trimZeros(b)
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	case an:
		return -1
	case bn:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}
