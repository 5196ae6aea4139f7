package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"railwatch/internal/config"
	"railwatch/internal/db"
	"railwatch/internal/engine"
	"railwatch/internal/patterns"
	"railwatch/internal/types"
)

// --- Fakes ---

type fakeWeather struct {
	hourly    *types.WeatherSnapshot
	hourlyErr error
	daily     []types.WeatherSnapshot
	dailyErr  error
}

func (f *fakeWeather) FetchHourly(_ context.Context, _, targetDate, targetTime string) (*types.WeatherSnapshot, error) {
	if f.hourlyErr != nil {
		return nil, f.hourlyErr
	}
	snap := *f.hourly
	snap.Date = targetDate
	snap.TargetTime = targetTime
	return &snap, nil
}

func (f *fakeWeather) FetchDaily(_ context.Context, _ string) ([]types.WeatherSnapshot, error) {
	return f.daily, f.dailyErr
}

type fakeOperator struct {
	status *types.OfficialStatus
	err    error
}

func (f *fakeOperator) Fetch(_ context.Context, _ string, _ time.Time) (*types.OfficialStatus, error) {
	return f.status, f.err
}

type fakePredictions struct {
	latest    *db.PredictionLog
	latestErr error
	inserted  []*types.PredictionResult
	insertErr error
	logs      []db.PredictionLog
	listErr   error
}

func (f *fakePredictions) Insert(_ context.Context, res *types.PredictionResult) error {
	f.inserted = append(f.inserted, res)
	return f.insertErr
}

func (f *fakePredictions) ListRecent(_ context.Context, _ string, _ int) ([]db.PredictionLog, error) {
	return f.logs, f.listErr
}

func (f *fakePredictions) Latest(_ context.Context, _, _ string) (*db.PredictionLog, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	if f.latest == nil {
		return nil, types.NewAppError(types.ErrCodeNotFoundRoute, "no prediction", nil)
	}
	return f.latest, nil
}

type fakeCrowd struct {
	agg       *types.CrowdsourcedStatus
	aggErr    error
	inserted  []types.ConsensusState
	insertErr error
}

func (f *fakeCrowd) Insert(_ context.Context, _ string, report types.ConsensusState, _ time.Time) error {
	f.inserted = append(f.inserted, report)
	return f.insertErr
}

func (f *fakeCrowd) Aggregate(_ context.Context, routeID string, _ time.Duration, _ time.Time) (*types.CrowdsourcedStatus, error) {
	if f.aggErr != nil {
		return nil, f.aggErr
	}
	if f.agg != nil {
		return f.agg, nil
	}
	return &types.CrowdsourcedStatus{RouteID: routeID, Consensus: types.ConsensusUnknown}, nil
}

type fakeKeys struct {
	key     *db.APIKey
	err     error
	touched []string
}

func (f *fakeKeys) FindByPrefix(_ context.Context, _ string) (*db.APIKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.key, nil
}

func (f *fakeKeys) TouchLastUsed(_ context.Context, id string, _ time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

type alertCall struct {
	prev   types.OperationState
	result *types.PredictionResult
}

type fakeAlerts struct {
	calls []alertCall
	err   error
}

func (f *fakeAlerts) Dispatch(_ context.Context, prev types.OperationState, result *types.PredictionResult) error {
	f.calls = append(f.calls, alertCall{prev: prev, result: result})
	return f.err
}

type fakePredictor struct {
	result *types.PredictionResult
}

func (f *fakePredictor) Evaluate(input *types.PredictionInput, _ time.Time) *types.PredictionResult {
	out := *f.result
	out.RouteID = input.RouteID
	out.TargetDate = input.TargetDate
	return &out
}

func (f *fakePredictor) EvaluateWeekly(routeID, _ string, daily []types.WeatherSnapshot, _ *types.OfficialStatus, _ *types.CrowdsourcedStatus, _ *patterns.Pattern, _ time.Time) []*types.PredictionResult {
	out := make([]*types.PredictionResult, len(daily))
	for i := range daily {
		r := *f.result
		r.RouteID = routeID
		r.TargetDate = daily[i].Date
		out[i] = &r
	}
	return out
}

// --- Helpers ---

func calmWeather() *types.WeatherSnapshot {
	return &types.WeatherSnapshot{
		TemperatureC:  5,
		TempMaxC:      7,
		TempMinC:      3,
		WindSpeed:     4,
		WindGust:      6,
		PressureHPa:   1015,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Service:     "railwatch-api",
		Server:      config.ServerConfig{Port: "8080", CorsAllowedOrigins: []string{"*"}},
	}
}

func newTestServer(t *testing.T, deps ServerDeps) *Server {
	t.Helper()
	if deps.Engine == nil {
		deps.Engine = engine.New(slog.Default())
	}
	if deps.Weather == nil {
		deps.Weather = &fakeWeather{hourly: calmWeather()}
	}
	s, err := NewServer(testConfig(), slog.Default(), deps)
	if err != nil {
		t.Fatalf("NewServer returned unexpected error: %v", err)
	}
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("failed to decode response data: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

func tomorrowJST() string {
	return time.Now().In(jst).AddDate(0, 0, 1).Format("2006-01-02")
}

// --- Health ---

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, ServerDeps{})

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var data map[string]any
	decodeData(t, rec, &data)
	if data["status"] != "ok" {
		t.Errorf("expected status ok, got %v", data["status"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

// --- Predictions ---

func TestHandlePredict_Success(t *testing.T) {
	preds := &fakePredictions{}
	s := newTestServer(t, ServerDeps{Predictions: preds})

	rec := doJSON(t, s, http.MethodPost, "/v1/predictions", predictRequest{
		RouteID:    "jr-hokkaido.chitose",
		TargetDate: tomorrowJST(),
		TargetTime: "08:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result types.PredictionResult
	decodeData(t, rec, &result)
	if result.RouteID != "jr-hokkaido.chitose" {
		t.Errorf("RouteID mismatch: got %q", result.RouteID)
	}
	if result.Status != types.StateNormal {
		t.Errorf("calm weather should predict normal operation, got %q", result.Status)
	}
	if len(result.Reasons) == 0 {
		t.Error("expected at least one reason")
	}

	if len(preds.inserted) != 1 {
		t.Fatalf("expected 1 persisted prediction, got %d", len(preds.inserted))
	}
}

func TestHandlePredict_UnknownRoute(t *testing.T) {
	s := newTestServer(t, ServerDeps{})

	rec := doJSON(t, s, http.MethodPost, "/v1/predictions", predictRequest{
		RouteID:    "jr-east.yamanote",
		TargetDate: tomorrowJST(),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(types.ErrCodeValidationInvalidRoute) {
		t.Errorf("error code mismatch: got %q", code)
	}
}

func TestHandlePredict_InvalidDate(t *testing.T) {
	s := newTestServer(t, ServerDeps{})

	rec := doJSON(t, s, http.MethodPost, "/v1/predictions", predictRequest{
		RouteID:    "jr-hokkaido.chitose",
		TargetDate: "15-01-2025",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlePredict_MalformedJSON(t *testing.T) {
	s := newTestServer(t, ServerDeps{})

	req := httptest.NewRequest(http.MethodPost, "/v1/predictions", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(errCodeValidationInvalidJSON) {
		t.Errorf("error code mismatch: got %q", code)
	}
}

func TestHandlePredict_WeatherUnavailable(t *testing.T) {
	s := newTestServer(t, ServerDeps{
		Weather: &fakeWeather{hourlyErr: types.NewAppError(types.ErrCodeUpstreamWeather, "forecast provider returned 503", nil)},
	})

	rec := doJSON(t, s, http.MethodPost, "/v1/predictions", predictRequest{
		RouteID:    "jr-hokkaido.chitose",
		TargetDate: tomorrowJST(),
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(types.ErrCodeUpstreamWeather) {
		t.Errorf("error code mismatch: got %q", code)
	}
}

func TestHandlePredict_PersistFailureDoesNotFailRequest(t *testing.T) {
	preds := &fakePredictions{insertErr: fmt.Errorf("connection refused")}
	s := newTestServer(t, ServerDeps{Predictions: preds})

	rec := doJSON(t, s, http.MethodPost, "/v1/predictions", predictRequest{
		RouteID:    "jr-hokkaido.chitose",
		TargetDate: tomorrowJST(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("persistence failure must not fail the prediction, got %d", rec.Code)
	}
}

func TestHandlePredict_AlertsOnTransitionIntoSuspension(t *testing.T) {
	alerts := &fakeAlerts{}
	preds := &fakePredictions{
		latest: &db.PredictionLog{Status: types.StateNormal},
	}
	s := newTestServer(t, ServerDeps{
		Engine:      &fakePredictor{result: &types.PredictionResult{Probability: 80, Status: types.StateSuspended}},
		Predictions: preds,
		Alerts:      alerts,
	})

	rec := doJSON(t, s, http.MethodPost, "/v1/predictions", predictRequest{
		RouteID:    "jr-hokkaido.chitose",
		TargetDate: tomorrowJST(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if len(alerts.calls) != 1 {
		t.Fatalf("expected 1 alert dispatch, got %d", len(alerts.calls))
	}
	if alerts.calls[0].prev != types.StateNormal {
		t.Errorf("previous status mismatch: got %q", alerts.calls[0].prev)
	}
	if alerts.calls[0].result.Status != types.StateSuspended {
		t.Errorf("result status mismatch: got %q", alerts.calls[0].result.Status)
	}
}

// --- Weekly ---

func TestHandleWeekly_Success(t *testing.T) {
	daily := []types.WeatherSnapshot{
		{Date: "2025-01-15", WindSpeed: 4},
		{Date: "2025-01-16", WindSpeed: 5},
		{Date: "2025-01-17", WindSpeed: 6},
	}
	s := newTestServer(t, ServerDeps{
		Weather: &fakeWeather{hourly: calmWeather(), daily: daily},
	})

	rec := doJSON(t, s, http.MethodGet, "/v1/routes/jr-hokkaido.chitose/weekly", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var results []types.PredictionResult
	decodeData(t, rec, &results)
	if len(results) != 3 {
		t.Fatalf("expected 3 daily predictions, got %d", len(results))
	}
	for i, r := range results {
		if r.TargetDate != daily[i].Date {
			t.Errorf("day %d date mismatch: got %q, want %q", i, r.TargetDate, daily[i].Date)
		}
		if r.TargetTime != "12:00" {
			t.Errorf("weekly predictions should use the noon hour, got %q", r.TargetTime)
		}
	}
}

func TestHandleWeekly_UnknownRoute(t *testing.T) {
	s := newTestServer(t, ServerDeps{})

	rec := doJSON(t, s, http.MethodGet, "/v1/routes/unknown/weekly", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// --- Routes ---

func TestHandleListRoutes(t *testing.T) {
	s := newTestServer(t, ServerDeps{})

	rec := doJSON(t, s, http.MethodGet, "/v1/routes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var infos []routeInfo
	decodeData(t, rec, &infos)
	if len(infos) != 12 {
		t.Fatalf("expected 12 routes, got %d", len(infos))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i-1].RouteID >= infos[i].RouteID {
			t.Fatalf("routes not sorted: %q before %q", infos[i-1].RouteID, infos[i].RouteID)
		}
	}
	for _, info := range infos {
		if info.RouteID == "jr-hokkaido.chitose" {
			if info.Name != "千歳線" {
				t.Errorf("name mismatch: got %q", info.Name)
			}
			if info.WindThreshold != 20 {
				t.Errorf("wind threshold mismatch: got %v", info.WindThreshold)
			}
		}
	}
}

// --- History ---

func TestHandleHistory_Success(t *testing.T) {
	preds := &fakePredictions{logs: []db.PredictionLog{
		{RouteID: "jr-hokkaido.chitose", Probability: 40, Status: types.StateDelay},
		{RouteID: "jr-hokkaido.chitose", Probability: 10, Status: types.StateNormal},
	}}
	s := newTestServer(t, ServerDeps{Predictions: preds})

	rec := doJSON(t, s, http.MethodGet, "/v1/routes/jr-hokkaido.chitose/history?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var logs []db.PredictionLog
	decodeData(t, rec, &logs)
	if len(logs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(logs))
	}
}

func TestHandleHistory_InvalidLimit(t *testing.T) {
	s := newTestServer(t, ServerDeps{Predictions: &fakePredictions{}})

	rec := doJSON(t, s, http.MethodGet, "/v1/routes/jr-hokkaido.chitose/history?limit=500", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// --- Reports ---

func TestHandleReport_Success(t *testing.T) {
	crowd := &fakeCrowd{agg: &types.CrowdsourcedStatus{
		RouteID:     "jr-hokkaido.chitose",
		ReportCount: 4,
		Consensus:   types.ConsensusStopped,
	}}
	s := newTestServer(t, ServerDeps{Crowd: crowd})

	rec := doJSON(t, s, http.MethodPost, "/v1/routes/jr-hokkaido.chitose/reports", reportRequest{
		Report: types.ConsensusStopped,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(crowd.inserted) != 1 || crowd.inserted[0] != types.ConsensusStopped {
		t.Fatalf("report not recorded: %+v", crowd.inserted)
	}

	var status types.CrowdsourcedStatus
	decodeData(t, rec, &status)
	if status.Consensus != types.ConsensusStopped {
		t.Errorf("consensus mismatch: got %q", status.Consensus)
	}
}

func TestHandleReport_RejectsUnknownReportType(t *testing.T) {
	s := newTestServer(t, ServerDeps{Crowd: &fakeCrowd{}})

	rec := doJSON(t, s, http.MethodPost, "/v1/routes/jr-hokkaido.chitose/reports", map[string]string{
		"report": "on_fire",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// --- Auth ---

func validTestKey(t *testing.T) (string, *db.APIKey) {
	t.Helper()
	key := "rw_live_abcdefgh12345678"
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash test key: %v", err)
	}
	return key, &db.APIKey{
		ID:        "key-1",
		Name:      "test",
		KeyPrefix: "rw_live_abcdefgh",
		KeyHash:   string(hash),
	}
}

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	_, record := validTestKey(t)
	s := newTestServer(t, ServerDeps{Keys: &fakeKeys{key: record}})

	rec := doJSON(t, s, http.MethodGet, "/v1/routes", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(types.ErrCodeAuthKeyMissing) {
		t.Errorf("error code mismatch: got %q", code)
	}
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	key, record := validTestKey(t)
	keys := &fakeKeys{key: record}
	s := newTestServer(t, ServerDeps{Keys: keys})

	req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
	req.Header.Set("X-API-Key", key)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(keys.touched) != 1 || keys.touched[0] != "key-1" {
		t.Errorf("expected last-used touch for key-1, got %v", keys.touched)
	}
}

func TestAPIKeyAuth_WrongSecret(t *testing.T) {
	_, record := validTestKey(t)
	s := newTestServer(t, ServerDeps{Keys: &fakeKeys{key: record}})

	req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
	req.Header.Set("X-API-Key", "rw_live_abcdefgh99999999")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAPIKeyAuth_RevokedKey(t *testing.T) {
	key, record := validTestKey(t)
	revokedAt := time.Now()
	record.RevokedAt = &revokedAt
	s := newTestServer(t, ServerDeps{Keys: &fakeKeys{key: record}})

	req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
	req.Header.Set("X-API-Key", key)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAPIKeyAuth_MalformedKey(t *testing.T) {
	_, record := validTestKey(t)
	s := newTestServer(t, ServerDeps{Keys: &fakeKeys{key: record}})

	req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
	req.Header.Set("X-API-Key", "not-a-key")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

// --- Middleware ---

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, ServerDeps{})

	req := httptest.NewRequest(http.MethodOptions, "/v1/routes", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected wildcard CORS origin, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRecovererReturnsStructured500(t *testing.T) {
	s := newTestServer(t, ServerDeps{})
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rec := doJSON(t, s, http.MethodGet, "/boom", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("error code mismatch: got %q", code)
	}
}

func TestSecurityHeadersPresent(t *testing.T) {
	s := newTestServer(t, ServerDeps{})

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected X-Content-Type-Options header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected X-Frame-Options header")
	}
}
