package mosare

// Source extract names as they appear in the exported file names
const (
	SourceAttention  = "AtenMedxServ"
	SourceExamResult = "ResulExam_PatCli"
	SourceEnrollment = "CarteraVisare"
)

// Column names of the extracts
const (
	ColDocPaciente    = "DOC_PACIENTE"
	ColPaciente       = "PACIENTE"
	ColCentro         = "CENTRO"
	ColPeriodo        = "PERIODO"
	ColFechaCita      = "FECHA_CITA"
	ColAnnos          = "ANNOS"
	ColDNI            = "DNI"
	ColExamen         = "EXAMEN"
	ColFechaResultado = "FECHA_RESULTADO"
	ColNumDocmto      = "NUM-DOCMTO"
)

// EnrollmentPrefix is prepended to a DNI to form a CarteraVisare document number
const EnrollmentPrefix = "1-"

// AttentionRecord is one clinical visit from AtenMedxServ
type AttentionRecord struct {
	DocumentID      string `json:"docPaciente"`
	PatientName     string `json:"paciente"`
	Facility        string `json:"centro"`
	Period          string `json:"periodo"`
	AppointmentDate string `json:"fechaCita"`
	Age             string `json:"annos"`
}

// ExamResultRecord is one exam result from ResulExam_PatCli. The extract also
// carries the visit fields of the appointment that ordered the exam.
type ExamResultRecord struct {
	DNI             string `json:"dni"`
	Exam            string `json:"examen"`
	ResultDate      string `json:"fechaResultado"`
	Facility        string `json:"centro,omitempty"`
	Period          string `json:"periodo,omitempty"`
	PatientName     string `json:"paciente,omitempty"`
	AppointmentDate string `json:"fechaCita,omitempty"`
}

// EnrollmentRecord is one enrolled patient from CarteraVisare
type EnrollmentRecord struct {
	DocumentNumber string `json:"numDocmto"`
}

// FormattedID returns the CarteraVisare document number for a DNI
func FormattedID(dni string) string {
	return EnrollmentPrefix + dni
}
