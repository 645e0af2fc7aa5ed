package serve

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"diabetesml/pkg/config"
	"diabetesml/pkg/data"
	"diabetesml/pkg/dataprep"
	"diabetesml/pkg/logging"
	"diabetesml/pkg/model"
	"diabetesml/pkg/pipeline"
	"diabetesml/pkg/stats"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var predictionText = regexp.MustCompile(`Prediction: (Diabetic|Not Diabetic) \(Confidence: \d{1,3}\.\d{2}%\)`)

// readyService trains a tiny model where high glucose means diabetic.
func readyService(t *testing.T) *Service {
	t.Helper()
	schema := pipeline.DiabetesSchema()
	rnd := rand.New(rand.NewSource(1))
	rows := make([][]float64, 200)
	y := make([]int, len(rows))
	for i := range rows {
		glucose := 60 + rnd.Float64()*140
		rows[i] = []float64{
			float64(rnd.Intn(10)), glucose, 60 + rnd.Float64()*30, rnd.Float64() * 40,
			rnd.Float64() * 200, 20 + rnd.Float64()*20, rnd.Float64(), float64(21 + rnd.Intn(50)),
		}
		if glucose > 130 {
			y[i] = 1
		}
	}
	raw, err := data.NewFrame(append([]string(nil), schema.Raw...), rows)
	require.NoError(t, err)
	derived, err := dataprep.AddInteractions(raw, schema.Interactions)
	require.NoError(t, err)

	scaler := stats.NewRobustScaler(schema.FeatureNames())
	scaled, err := scaler.FitTransform(derived)
	require.NoError(t, err)

	m := model.NewGradientBoostedTrees(model.WithNEstimators(20))
	m.Features = schema.FeatureNames()
	require.NoError(t, m.Fit(scaled.Rows, y))
	return &Service{Model: m, Scaler: scaler, Schema: schema}
}

func form(glucose string) url.Values {
	return url.Values{
		"Pregnancies":              {"2"},
		"Glucose":                  {glucose},
		"BloodPressure":            {"70"},
		"SkinThickness":            {"20"},
		"Insulin":                  {"80"},
		"BMI":                      {"30.1"},
		"DiabetesPedigreeFunction": {"0.4"},
		"Age":                      {"35"},
	}
}

func post(t *testing.T, h http.Handler, values url.Values) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func newHandler(t *testing.T, svc *Service) http.Handler {
	t.Helper()
	srv, err := NewServer(svc)
	require.NoError(t, err)
	return srv.Handler()
}

func TestHomeRendersEmptyForm(t *testing.T) {
	h := newHandler(t, &Service{Schema: pipeline.DiabetesSchema()})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, name := range pipeline.DiabetesSchema().Raw {
		assert.Contains(t, body, `name="`+name+`"`)
	}
	assert.NotContains(t, body, "Prediction:")
	assert.NotContains(t, body, `class="result"`)
}

func TestPredictFormat(t *testing.T) {
	h := newHandler(t, readyService(t))

	high := post(t, h, form("190"))
	assert.Regexp(t, predictionText, high)
	assert.Contains(t, high, "Prediction: Diabetic")

	low := post(t, h, form("70"))
	assert.Regexp(t, predictionText, low)
	assert.Contains(t, low, "Prediction: Not Diabetic")
}

func TestPredictReadsFieldsByName(t *testing.T) {
	svc := readyService(t)
	want, err := svc.Predict(mustParse(t, svc, form("150")))
	require.NoError(t, err)

	h := newHandler(t, svc)
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(
		"Age=35&Insulin=80&DiabetesPedigreeFunction=0.4&BMI=30.1&SkinThickness=20&BloodPressure=70&Glucose=150&Pregnancies=2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), want.String())
	assert.GreaterOrEqual(t, want.Confidence(), 50.0)
}

func mustParse(t *testing.T, svc *Service, v url.Values) map[string]float64 {
	t.Helper()
	in, err := svc.ParseForm(v)
	require.NoError(t, err)
	return in
}

func TestPredictRejectsBadInput(t *testing.T) {
	h := newHandler(t, readyService(t))

	body := post(t, h, form("abc"))
	assert.Contains(t, body, "An error occurred during prediction:")
	assert.Contains(t, body, "Glucose")
	assert.NotRegexp(t, predictionText, body)

	missing := form("120")
	missing.Del("Age")
	assert.Contains(t, post(t, h, missing), "An error occurred during prediction:")

	assert.Contains(t, post(t, h, form("NaN")), "An error occurred during prediction:")
}

func TestPredictWithoutArtifacts(t *testing.T) {
	svc := LoadService(config.NewPaths(t.TempDir()))
	assert.False(t, svc.Ready())

	h := newHandler(t, svc)
	assert.Contains(t, post(t, h, form("120")), "Error: Model or scaler not loaded.")
	assert.Contains(t, post(t, h, form("abc")), "Error: Model or scaler not loaded.")

	_, err := svc.Predict(map[string]float64{})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestLoadServiceFromArtifacts(t *testing.T) {
	ready := readyService(t)
	paths := config.NewPaths(t.TempDir())
	require.NoError(t, ready.Model.Save(paths.ModelOutput))
	require.NoError(t, stats.SaveScaler(paths.Scaler, ready.Scaler))

	svc := LoadService(paths)
	require.True(t, svc.Ready())
	in := mustParse(t, svc, form("160"))
	want, err := ready.Predict(in)
	require.NoError(t, err)
	got, err := svc.Predict(in)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "Prediction: Diabetic (Confidence: 87.50%)", Result{Class: 1, Probability: 0.875}.String())
	assert.Equal(t, "Prediction: Not Diabetic (Confidence: 75.00%)", Result{Class: 0, Probability: 0.25}.String())
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHandler(t, readyService(t))
	post(t, h, form("190"))
	post(t, h, form("abc"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, map[string]any{"status": "ok", "model_loaded": true}, health)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `diabetesml_predictions_total{outcome="diabetic"} 1`)
	assert.Contains(t, body, `diabetesml_predictions_total{outcome="error"} 1`)
	assert.Contains(t, body, "diabetesml_prediction_duration_seconds_count 2")
}

type brokenWriter struct{ header http.Header }

func (w *brokenWriter) Header() http.Header { return w.header }

func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func (w *brokenWriter) WriteHeader(int) {}

func TestHealthLogsWriteFailure(t *testing.T) {
	old := logging.Log.ReplaceHooks(make(logrus.LevelHooks))
	t.Cleanup(func() { logging.Log.ReplaceHooks(old) })
	hook := logtest.NewLocal(logging.Log)

	h := newHandler(t, &Service{Schema: pipeline.DiabetesSchema()})
	h.ServeHTTP(&brokenWriter{header: http.Header{}}, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "Failed to write health response", entry.Message)
}

func TestPredictRejectsGet(t *testing.T) {
	h := newHandler(t, &Service{Schema: pipeline.DiabetesSchema()})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeListenerShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, ln, newHandler(t, &Service{Schema: pipeline.DiabetesSchema()})) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(b), `"model_loaded":false`)

	cancel()
	assert.NoError(t, <-done)
	client.CloseIdleConnections()
}
