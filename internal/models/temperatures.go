package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FeatureCount is the number of temperature readings per visit
const FeatureCount = 13

// Temperatures holds the readings in time order; index i is form field "t<i>"
// and training column "t<i>". Every feature vector in the service is built from it.
type Temperatures [FeatureCount]float64

// FeatureNames returns t0..t12 in feature order.
func FeatureNames() []string {
	names := make([]string, FeatureCount)
	for i := range names {
		names[i] = FeatureName(i)
	}
	return names
}

// FeatureName returns the form field / column name for index i.
func FeatureName(i int) string {
	return "t" + strconv.Itoa(i)
}

// Vector copies the readings into a slice for the classifier.
func (t Temperatures) Vector() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, t[:])
	return out
}

// ValidationError reports the first form field that failed validation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// ParseVisitForm validates a submission. get reports a form value and whether it was present.
func ParseVisitForm(get func(key string) (string, bool)) (*VisitSubmission, error) {
	fio, _ := get("fio")
	fio = strings.TrimSpace(fio)
	if fio == "" {
		return nil, &ValidationError{Field: "fio", Reason: "required"}
	}

	birthDate, _ := get("birth_date")
	birthDate = strings.TrimSpace(birthDate)
	if birthDate == "" {
		return nil, &ValidationError{Field: "birth_date", Reason: "required"}
	}

	temps, err := ParseTemperatures(get)
	if err != nil {
		return nil, err
	}

	return &VisitSubmission{
		FIO:          fio,
		BirthDate:    birthDate,
		Temperatures: temps,
	}, nil
}

// ParseTemperatures reads t0..t12. Missing, empty, non-numeric and non-finite values are rejected.
func ParseTemperatures(get func(key string) (string, bool)) (Temperatures, error) {
	var temps Temperatures
	for i := range temps {
		name := FeatureName(i)
		raw, ok := get(name)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			return temps, &ValidationError{Field: name, Reason: "required"}
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return temps, &ValidationError{Field: name, Reason: "not a number"}
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return temps, &ValidationError{Field: name, Reason: "not a finite number"}
		}
		temps[i] = value
	}
	return temps, nil
}
