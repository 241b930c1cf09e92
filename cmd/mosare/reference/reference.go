// Package reference holds the static facility and exam dictionaries used to
// label report rows. The data is embedded in the binary and parsed once.
package reference

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/SanteonNL/mosare/models/mosare"
	"gopkg.in/yaml.v3"
)

//go:embed reference.yaml
var embedded []byte

// Exam is one entry of the required exam panel
type Exam struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
}

type document struct {
	Facilities map[string]string `yaml:"facilities"`
	Exams      []Exam            `yaml:"exams"`
}

// Dictionary translates facility and exam codes to display labels. It has no
// exported fields and no mutators, so a shared instance is safe to read from
// concurrent requests.
type Dictionary struct {
	facilities   map[string]string
	exams        map[string]string
	requiredExam []string
}

var (
	defaultOnce sync.Once
	defaultDict *Dictionary
	defaultErr  error
)

// Default returns the embedded dictionary, parsing it on first use
func Default() (*Dictionary, error) {
	defaultOnce.Do(func() {
		defaultDict, defaultErr = Parse(embedded)
	})
	return defaultDict, defaultErr
}

// Parse builds a dictionary from its YAML form
func Parse(data []byte) (*Dictionary, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse reference data: %w", err)
	}
	if len(doc.Exams) == 0 {
		return nil, fmt.Errorf("reference data defines no exams")
	}

	d := &Dictionary{
		facilities: make(map[string]string, len(doc.Facilities)),
		exams:      make(map[string]string, len(doc.Exams)),
	}
	for code, name := range doc.Facilities {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("facility %q has an empty name", code)
		}
		d.facilities[code] = name
	}
	for _, exam := range doc.Exams {
		if exam.Code == "" {
			return nil, fmt.Errorf("exam without code in reference data")
		}
		if _, dup := d.exams[exam.Code]; dup {
			return nil, fmt.Errorf("exam %q defined twice", exam.Code)
		}
		d.exams[exam.Code] = exam.Description
		d.requiredExam = append(d.requiredExam, exam.Code)
	}
	return d, nil
}

// FacilityName returns the facility label for a code, or the unknown facility
// label when the code is not listed.
func (d *Dictionary) FacilityName(code string) string {
	if name, ok := d.facilities[code]; ok {
		return name
	}
	return mosare.UnknownFacility
}

// ExamDescription returns the description of an exam code
func (d *Dictionary) ExamDescription(code string) (string, bool) {
	desc, ok := d.exams[code]
	return desc, ok
}

// RequiredExams returns a copy of the exam codes a patient must complete, in
// dictionary order.
func (d *Dictionary) RequiredExams() []string {
	return append([]string(nil), d.requiredExam...)
}

// Facilities returns the number of known facilities
func (d *Dictionary) Facilities() int {
	return len(d.facilities)
}
