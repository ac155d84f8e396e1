package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"fever-diagnosis/internal/metrics"
	"fever-diagnosis/internal/ml"
	"fever-diagnosis/internal/models"
	"fever-diagnosis/internal/repository"
	"fever-diagnosis/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	db     *sqlx.DB
	router *gin.Engine
	model  *ml.SVC
	visits *repository.VisitRepository
}

func seedTrainingData(t *testing.T, db *sqlx.DB) {
	t.Helper()
	columns := make([]string, 0, models.FeatureCount+1)
	for _, name := range models.FeatureNames() {
		columns = append(columns, name+" REAL")
	}
	_, err := db.Exec("CREATE TABLE train_data (" + strings.Join(columns, ", ") + ", target INTEGER)")
	require.NoError(t, err)

	marks := strings.TrimSuffix(strings.Repeat("?, ", models.FeatureCount+1), ", ")
	for i := 0; i < 10; i++ {
		for _, row := range []struct {
			base  float64
			label int
		}{{36.4, 0}, {38.9, 1}} {
			values := make([]any, 0, models.FeatureCount+1)
			for j := 0; j < models.FeatureCount; j++ {
				values = append(values, row.base+float64(i%5)*0.05)
			}
			values = append(values, row.label)
			_, err := db.Exec("INSERT INTO train_data VALUES ("+marks+")", values...)
			require.NoError(t, err)
		}
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db, err := repository.NewSQLiteDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.MigrateDB(db, logger))
	seedTrainingData(t, db)

	training, err := repository.NewTrainingRepository(db, "train_data", "target", logger)
	require.NoError(t, err)
	m := metrics.New()
	model, _, err := service.NewTrainer(training, ml.DefaultParams(), m, logger).Train(context.Background())
	require.NoError(t, err)

	visits := repository.NewVisitRepository(db, logger)
	diagnoser, err := service.NewDiagnoser(model, visits, m, logger)
	require.NoError(t, err)

	router := gin.New()
	tmpl, err := Templates()
	require.NoError(t, err)
	router.SetHTMLTemplate(tmpl)
	NewHandler(diagnoser, m, logger).RegisterRoutes(router)

	return &testEnv{db: db, router: router, model: model, visits: visits}
}

func submissionForm(fio string, temps []string) url.Values {
	form := url.Values{}
	form.Set("fio", fio)
	form.Set("birth_date", "1990-01-01")
	for i, v := range temps {
		form.Set(models.FeatureName(i), v)
	}
	return form
}

func elevated() []string {
	return []string{"39.5", "39.4", "39.3", "39.2", "39.1", "39.5", "39.4", "39.3", "39.2", "39.1", "39.5", "39.4", "39.3"}
}

func normal() []string {
	temps := make([]string, models.FeatureCount)
	for i := range temps {
		temps[i] = "36.6"
	}
	return temps
}

func (e *testEnv) post(form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) count(t *testing.T) int {
	t.Helper()
	total, err := e.visits.Count(context.Background())
	require.NoError(t, err)
	return total
}

type visitsResponse struct {
	Visits []struct {
		ID            int64     `json:"id"`
		FIO           string    `json:"fio"`
		BirthDate     string    `json:"birth_date"`
		DiagnosisDate time.Time `json:"diagnosis_date"`
		Diagnosis     int       `json:"diagnosis"`
	} `json:"visits"`
	Total int `json:"total"`
}

func (e *testEnv) listVisits(t *testing.T) visitsResponse {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/visits", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var payload visitsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestPredictStoresElevatedVisit(t *testing.T) {
	env := newTestEnv(t)
	before := time.Now()

	w := env.post(submissionForm("Ivanov I.I.", elevated()))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var vector []float64
	for _, v := range elevated() {
		var f float64
		_, err := fmt.Sscan(v, &f)
		require.NoError(t, err)
		vector = append(vector, f)
	}
	want, err := env.model.Predict(vector)
	require.NoError(t, err)
	assert.Equal(t, 1, want)

	payload := env.listVisits(t)
	require.Equal(t, 1, payload.Total)
	visit := payload.Visits[0]
	assert.Equal(t, "Ivanov I.I.", visit.FIO)
	assert.Equal(t, "1990-01-01", visit.BirthDate)
	assert.Equal(t, want, visit.Diagnosis)
	assert.WithinDuration(t, before, visit.DiagnosisDate, 5*time.Second)
}

func TestPredictRejectsIncompleteForms(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]func(url.Values){
		"empty fio":         func(f url.Values) { f.Set("fio", "") },
		"missing fio":       func(f url.Values) { f.Del("fio") },
		"missing birthdate": func(f url.Values) { f.Del("birth_date") },
		"non numeric t2":    func(f url.Values) { f.Set("t2", "abc") },
	}
	for i := 0; i < models.FeatureCount; i++ {
		name := models.FeatureName(i)
		cases["missing "+name] = func(f url.Values) { f.Del(name) }
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			form := submissionForm("Petrov P.P.", normal())
			mutate(form)

			w := env.post(form)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/", w.Header().Get("Location"))
			assert.Equal(t, 0, env.count(t))
		})
	}
}

func TestListingIsNewestFirst(t *testing.T) {
	env := newTestEnv(t)

	submissions := []struct {
		fio   string
		temps []string
		want  int
	}{
		{"First", normal(), 0},
		{"Second", elevated(), 1},
		{"Third", normal(), 0},
	}
	for _, s := range submissions {
		require.Equal(t, http.StatusFound, env.post(submissionForm(s.fio, s.temps)).Code)
	}

	payload := env.listVisits(t)
	require.Equal(t, len(submissions), payload.Total)
	for i, visit := range payload.Visits {
		expected := submissions[len(submissions)-1-i]
		assert.Equal(t, expected.fio, visit.FIO)
		assert.Equal(t, expected.want, visit.Diagnosis)
	}
	assert.Greater(t, payload.Visits[0].ID, payload.Visits[1].ID)
}

func TestConcurrentSubmissions(t *testing.T) {
	env := newTestEnv(t)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, fio := range []string{"Sidorov S.S.", "Smirnova A.A."} {
		wg.Add(1)
		go func(i int, fio string) {
			defer wg.Done()
			temps := normal()
			if i == 1 {
				temps = elevated()
			}
			codes[i] = env.post(submissionForm(fio, temps)).Code
		}(i, fio)
	}
	wg.Wait()

	assert.Equal(t, []int{http.StatusFound, http.StatusFound}, codes)
	payload := env.listVisits(t)
	require.Equal(t, 2, payload.Total)
	assert.NotEqual(t, payload.Visits[0].ID, payload.Visits[1].ID)
	names := []string{payload.Visits[0].FIO, payload.Visits[1].FIO}
	assert.ElementsMatch(t, []string{"Sidorov S.S.", "Smirnova A.A."}, names)
}

func TestPredictFailsWhenStorageIsDown(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Close())

	w := env.post(submissionForm("Ivanov I.I.", normal()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
}

func TestIndexRendersVisits(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusFound, env.post(submissionForm("Kuznetsov K.K.", elevated())).Code)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Kuznetsov K.K.")
	assert.Contains(t, body, `name="t12"`)
	assert.Contains(t, body, `<td class="sick">sick</td>`)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusFound, env.post(submissionForm("Ivanov I.I.", normal())).Code)
	require.Equal(t, http.StatusFound, env.post(submissionForm("", normal())).Code)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `fever_diagnosis_diagnoses_total{diagnosis="healthy"} 1`)
	assert.Contains(t, body, `fever_diagnosis_rejected_submissions_total{field="fio"} 1`)
	assert.Contains(t, body, "fever_diagnosis_training_accuracy 1")
}
