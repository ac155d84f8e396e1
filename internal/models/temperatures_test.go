package models

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() url.Values {
	form := url.Values{}
	form.Set("fio", "Ivanov I.I.")
	form.Set("birth_date", "1990-01-01")
	for i := 0; i < FeatureCount; i++ {
		form.Set(FeatureName(i), "36.6")
	}
	return form
}

func lookup(form url.Values) func(string) (string, bool) {
	return func(key string) (string, bool) {
		values, ok := form[key]
		if !ok || len(values) == 0 {
			return "", false
		}
		return values[0], true
	}
}

func TestFeatureNames(t *testing.T) {
	names := FeatureNames()
	require.Len(t, names, FeatureCount)
	assert.Equal(t, "t0", names[0])
	assert.Equal(t, "t12", names[12])
}

func TestParseVisitFormKeepsFieldOrder(t *testing.T) {
	form := validForm()
	for i := 0; i < FeatureCount; i++ {
		form.Set(FeatureName(i), []string{
			"39.5", "39.4", "39.3", "39.2", "39.1", "39.0", "38.9",
			"38.8", "38.7", "38.6", "38.5", "38.4", "38.3",
		}[i])
	}

	sub, err := ParseVisitForm(lookup(form))
	require.NoError(t, err)

	assert.Equal(t, "Ivanov I.I.", sub.FIO)
	assert.Equal(t, "1990-01-01", sub.BirthDate)
	assert.Equal(t, 39.5, sub.Temperatures[0])
	assert.Equal(t, 39.0, sub.Temperatures[5])
	assert.Equal(t, 38.3, sub.Temperatures[12])

	vec := sub.Temperatures.Vector()
	require.Len(t, vec, FeatureCount)
	for i := range vec {
		assert.Equal(t, sub.Temperatures[i], vec[i])
	}
}

func TestParseVisitFormRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(url.Values)
		field  string
	}{
		{name: "empty fio", mutate: func(f url.Values) { f.Set("fio", "") }, field: "fio"},
		{name: "blank fio", mutate: func(f url.Values) { f.Set("fio", "   ") }, field: "fio"},
		{name: "missing birth date", mutate: func(f url.Values) { f.Del("birth_date") }, field: "birth_date"},
		{name: "missing t0", mutate: func(f url.Values) { f.Del("t0") }, field: "t0"},
		{name: "missing t12", mutate: func(f url.Values) { f.Del("t12") }, field: "t12"},
		{name: "empty t7", mutate: func(f url.Values) { f.Set("t7", "") }, field: "t7"},
		{name: "non numeric", mutate: func(f url.Values) { f.Set("t3", "hot") }, field: "t3"},
		{name: "nan", mutate: func(f url.Values) { f.Set("t4", "NaN") }, field: "t4"},
		{name: "inf", mutate: func(f url.Values) { f.Set("t5", "+Inf") }, field: "t5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(form)

			sub, err := ParseVisitForm(lookup(form))
			assert.Nil(t, sub)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseDiagnosis(t *testing.T) {
	d, err := ParseDiagnosis(1)
	require.NoError(t, err)
	assert.Equal(t, Sick, d)
	assert.Equal(t, "sick", d.String())

	_, err = ParseDiagnosis(2)
	assert.Error(t, err)
}
