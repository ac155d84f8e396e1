package models

import (
	"fmt"
	"time"
)

// Diagnosis is the binary outcome predicted for a visit
type Diagnosis int

const (
	Healthy Diagnosis = 0 // Здоров
	Sick    Diagnosis = 1 // Болен
)

// DiagnosisNames maps labels to the strings shown in the visits table
var DiagnosisNames = map[Diagnosis]string{
	Healthy: "healthy",
	Sick:    "sick",
}

// ParseDiagnosis converts a stored or predicted label into a Diagnosis.
func ParseDiagnosis(label int) (Diagnosis, error) {
	switch Diagnosis(label) {
	case Healthy, Sick:
		return Diagnosis(label), nil
	default:
		return 0, fmt.Errorf("invalid diagnosis label %d", label)
	}
}

func (d Diagnosis) String() string {
	if name, ok := DiagnosisNames[d]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(d))
}

// DiagnosisDateLayout is the text format of patients.diagnosis_date
const DiagnosisDateLayout = "2006-01-02 15:04:05.000000"

// Visit represents one patient encounter with its predicted diagnosis.
// Temperatures are not persisted; they are only set on visits created in the current request.
type Visit struct {
	ID            int64        `json:"id" db:"id"`
	FIO           string       `json:"fio" db:"fio"`
	BirthDate     string       `json:"birth_date" db:"birth_date"`
	DiagnosisDate time.Time    `json:"diagnosis_date" db:"-"`
	Diagnosis     Diagnosis    `json:"diagnosis" db:"diagnosis"`
	Temperatures  Temperatures `json:"-" db:"-"`
}

// DiagnosisName is used by the HTML template
func (v *Visit) DiagnosisName() string {
	return v.Diagnosis.String()
}

// TrainingObservation is one pre-labeled row of the training table
type TrainingObservation struct {
	Temperatures Temperatures
	Label        Diagnosis
}

// VisitSubmission is a validated POST /predict form
type VisitSubmission struct {
	FIO          string
	BirthDate    string
	Temperatures Temperatures
}
