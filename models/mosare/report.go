package mosare

// Report column labels before the uppercase display convention is applied
var ReportLabels = []string{
	"IPRES",
	"PERIODO",
	"DNI",
	"Nombre del paciente",
	"Código del examen",
	"Descripción del examen",
	"Edad",
	"Fecha de cita",
	"Fecha de resultado",
}

// UnknownFacility labels rows whose facility code is not in the dictionary
const UnknownFacility = "IPRES DESCONOCIDA"

// ReportRow is one line of the final report. Rows are built once by the
// enrichment stage and never modified.
type ReportRow struct {
	Facility        string `json:"ipres"`
	Period          string `json:"periodo"`
	DNI             string `json:"dni"`
	PatientName     string `json:"nombrePaciente"`
	ExamCode        string `json:"codigoExamen"`
	ExamDescription string `json:"descripcionExamen"`
	Age             string `json:"edad"`
	AppointmentDate string `json:"fechaCita"`
	ResultDate      string `json:"fechaResultado"`
}

// Values returns the row fields in report column order
func (r ReportRow) Values() []string {
	return []string{
		r.Facility,
		r.Period,
		r.DNI,
		r.PatientName,
		r.ExamCode,
		r.ExamDescription,
		r.Age,
		r.AppointmentDate,
		r.ResultDate,
	}
}
