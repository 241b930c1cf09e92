package processor

import (
	"github.com/SanteonNL/mosare/cmd/mosare/datasource"
	"github.com/SanteonNL/mosare/models/mosare"
	"golang.org/x/exp/slices"
)

// examTable is the decoded ResulExam_PatCli extract plus which optional
// visit columns it carried
type examTable struct {
	records []mosare.ExamResultRecord
	present map[string]bool
}

func decodeExamResults(t *datasource.Table) (examTable, error) {
	if err := t.RequireColumns(mosare.ColDNI, mosare.ColExamen, mosare.ColFechaResultado); err != nil {
		return examTable{}, err
	}

	present := make(map[string]bool)
	for _, c := range []string{mosare.ColCentro, mosare.ColPeriodo, mosare.ColPaciente, mosare.ColFechaCita} {
		present[c] = t.HasColumn(c)
	}

	records := make([]mosare.ExamResultRecord, t.Len())
	for i := range t.Rows {
		records[i] = mosare.ExamResultRecord{
			DNI:             t.Value(i, mosare.ColDNI),
			Exam:            t.Value(i, mosare.ColExamen),
			ResultDate:      t.Value(i, mosare.ColFechaResultado),
			Facility:        t.Value(i, mosare.ColCentro),
			Period:          t.Value(i, mosare.ColPeriodo),
			PatientName:     t.Value(i, mosare.ColPaciente),
			AppointmentDate: t.Value(i, mosare.ColFechaCita),
		}
	}
	return examTable{records: records, present: present}, nil
}

// decodeEnrollment reads CarteraVisare keyed by document number. Missing
// document numbers are skipped.
func decodeEnrollment(t *datasource.Table) (map[string]mosare.EnrollmentRecord, error) {
	if err := t.RequireColumns(mosare.ColNumDocmto); err != nil {
		return nil, err
	}
	enrolled := make(map[string]mosare.EnrollmentRecord, t.Len())
	for i := range t.Rows {
		record := mosare.EnrollmentRecord{DocumentNumber: t.Value(i, mosare.ColNumDocmto)}
		if isMissing(record.DocumentNumber) {
			continue
		}
		enrolled[record.DocumentNumber] = record
	}
	return enrolled, nil
}

// filterCohort keeps the required-exam rows of patients who have a result
// for every required exam and are not in the enrollment roster. Completeness
// is judged per patient before exclusion, and row order is preserved.
func (p *ProcessorService) filterCohort(exams []mosare.ExamResultRecord, enrolled map[string]mosare.EnrollmentRecord, stats *Stats) []mosare.ExamResultRecord {
	required := p.dictionary.RequiredExams()

	var retained []mosare.ExamResultRecord
	for _, exam := range exams {
		if slices.Contains(required, exam.Exam) {
			retained = append(retained, exam)
		}
	}
	stats.RequiredExamRows = len(retained)

	distinct := make(map[string]map[string]struct{})
	for _, exam := range retained {
		if isMissing(exam.DNI) {
			continue
		}
		if distinct[exam.DNI] == nil {
			distinct[exam.DNI] = make(map[string]struct{}, len(required))
		}
		distinct[exam.DNI][exam.Exam] = struct{}{}
	}

	complete := make(map[string]bool, len(distinct))
	for dni, codes := range distinct {
		if len(codes) == len(required) {
			complete[dni] = true
		}
	}
	stats.CompletePatients = len(complete)

	cohort := make([]mosare.ExamResultRecord, 0, len(retained))
	excludedPatients := make(map[string]bool)
	for _, exam := range retained {
		if !complete[exam.DNI] {
			continue
		}
		if _, ok := enrolled[mosare.FormattedID(exam.DNI)]; ok {
			stats.EnrolledExcluded++
			excludedPatients[exam.DNI] = true
			continue
		}
		cohort = append(cohort, exam)
	}

	p.log.Debug().
		Int("retained", len(retained)).
		Int("complete_patients", len(complete)).
		Int("enrolled_patients", len(excludedPatients)).
		Int("cohort_rows", len(cohort)).
		Msg("Filtered cohort")

	return cohort
}
