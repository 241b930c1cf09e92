package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/SanteonNL/mosare/cmd/mosare/processor"
	"github.com/xuri/excelize/v2"
)

// Format selects one of the report serializations
type Format string

const (
	FormatText Format = "txt"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet holding the report in the spreadsheet export
const SheetName = "RESULTADOS"

// AllFormats lists every supported format in download order
var AllFormats = []Format{FormatText, FormatCSV, FormatXLSX}

// Encoder serializes a report. Encoders must be deterministic: the same
// report always yields the same bytes.
type Encoder func(report *processor.Report) ([]byte, error)

var encoders = map[Format]Encoder{
	FormatText: encodeText,
	FormatCSV:  encodeCSV,
	FormatXLSX: encodeXLSX,
}

var contentTypes = map[Format]string{
	FormatText: "text/plain",
	FormatCSV:  "text/csv",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ParseFormat accepts a format name with or without a leading dot
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	if _, ok := encoders[f]; !ok {
		return "", fmt.Errorf("unsupported export format %q", s)
	}
	return f, nil
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	return contentTypes[f]
}

// FileName returns the download name of a report generated at t, in local
// time with minute precision, e.g. resultado_20240131_0915.csv
func (f Format) FileName(t time.Time) string {
	return fmt.Sprintf("resultado_%s.%s", t.Local().Format("20060102_1504"), string(f))
}

// Encode serializes the report in the given format
func Encode(f Format, report *processor.Report) ([]byte, error) {
	encode, ok := encoders[f]
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
	if report == nil {
		return nil, fmt.Errorf("no report to export")
	}
	return encode(report)
}

func encodeText(report *processor.Report) ([]byte, error) {
	return encodeDelimited(report, '|')
}

func encodeCSV(report *processor.Report) ([]byte, error) {
	return encodeDelimited(report, ',')
}

func encodeDelimited(report *processor.Report, comma rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma

	if err := w.Write(report.Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(report.Records()); err != nil {
		return nil, fmt.Errorf("failed to write rows: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeXLSX(report *processor.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := setRow(f, 1, report.Columns); err != nil {
		return nil, err
	}
	if len(report.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(report.Columns), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i, record := range report.Records() {
		if err := setRow(f, i+2, record); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
