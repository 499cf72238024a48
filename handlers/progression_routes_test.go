package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mock-assessment-service/app"
	"mock-assessment-service/config"
	"mock-assessment-service/store"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp(t *testing.T, gatewayToken string) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", Mode: "debug", GatewayToken: gatewayToken},
		Store:  config.StoreConfig{Driver: "memory"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	a, err := app.BuildWith(context.Background(), cfg, app.Deps{
		Log:   zap.NewNop(),
		Clock: clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
		Store: store.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("BuildWith() error = %v", err)
	}
	return a.Fiber
}

func post(t *testing.T, f *fiber.App, path, body string, headers ...string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.Test(req, -1)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("POST %s: decode %q: %v", path, raw, err)
	}
	return resp.StatusCode, env
}

const submitBody = `{
	"action": "submit_test_result",
	"userId": "user-1",
	"assessmentId": "java-basics",
	"assessmentTitle": "Java Basics",
	"score": 100,
	"totalQuestions": 10,
	"attempted": 10,
	"solved": 10,
	"duration": "12:30",
	"startTime": "2025-03-10T11:40:00Z"
}`

func TestSubmitAndReadProgress(t *testing.T) {
	f := newTestApp(t, "")

	status, env := post(t, f, "/mock-assessment", submitBody)
	if status != fiber.StatusOK || !env.Success {
		t.Fatalf("submit = %d %+v", status, env)
	}
	var out struct {
		TestResultID string   `json:"testResultId"`
		XPEarned     int64    `json:"xpEarned"`
		BadgesEarned []string `json:"badgesEarned"`
		LevelUp      bool     `json:"levelUp"`
		NewLevel     *int     `json:"newLevel"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if out.TestResultID == "" || out.XPEarned != 200 || len(out.BadgesEarned) != 2 || out.LevelUp || out.NewLevel != nil {
		t.Errorf("outcome = %+v", out)
	}

	status, env = post(t, f, "/mock-assessment/get_user_progress", `{"userId":"user-1"}`)
	if status != fiber.StatusOK {
		t.Fatalf("get_user_progress = %d %+v", status, env)
	}
	var progress struct {
		TotalXP int64 `json:"totalXP"`
		Level   int   `json:"level"`
		Badges  []struct {
			ID     string `json:"id"`
			Earned bool   `json:"earned"`
		} `json:"badges"`
	}
	if err := json.Unmarshal(env.Data, &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.TotalXP != 200 || progress.Level != 1 || len(progress.Badges) != 12 {
		t.Errorf("progress = %+v", progress)
	}

	status, env = post(t, f, "/mock-assessment/get_leaderboard", `{"userId":"user-1"}`)
	if status != fiber.StatusOK || !bytes.Contains(env.Data, []byte(`"userRank":1`)) {
		t.Errorf("get_leaderboard = %d %s", status, env.Data)
	}

	status, env = post(t, f, "/mock-assessment/get_test_history", `{"userId":"user-1"}`)
	if status != fiber.StatusOK || !bytes.Contains(env.Data, []byte(out.TestResultID)) {
		t.Errorf("get_test_history = %d %s", status, env.Data)
	}
}

func TestDispatchErrors(t *testing.T) {
	f := newTestApp(t, "")
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"invalid json", "/mock-assessment", `{"action":`, fiber.StatusBadRequest, "INVALID_JSON"},
		{"missing action", "/mock-assessment", `{}`, fiber.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty body", "/mock-assessment", ``, fiber.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown action", "/mock-assessment/launch_rockets", `{}`, fiber.StatusBadRequest, "INVALID_ACTION"},
		{"score out of range", "/mock-assessment", `{"action":"submit_test_result","userId":"u","assessmentId":"a","assessmentTitle":"A","startTime":"x","score":150}`, fiber.StatusBadRequest, "VALIDATION_ERROR"},
		{"score wrong type", "/mock-assessment/submit_test_result", `{"score":"high"}`, fiber.StatusBadRequest, "INVALID_JSON"},
		{"progress without user", "/mock-assessment/get_user_progress", `{}`, fiber.StatusBadRequest, "VALIDATION_ERROR"},
		{"no challenge today", "/mock-assessment/get_daily_challenge", `{"userId":"u"}`, fiber.StatusNotFound, "CHALLENGE_NOT_FOUND"},
		{"unknown assessment", "/mock-assessment/get_questions", `{"assessmentId":"nope"}`, fiber.StatusNotFound, "ASSESSMENT_NOT_FOUND"},
		{"storage disabled", "/mock-assessment/presign_logo_upload", `{"assessmentId":"a","fileName":"a.png","contentType":"image/png"}`, fiber.StatusServiceUnavailable, "STORAGE_DISABLED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := post(t, f, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("envelope = %+v, want error code %s", env, tt.wantCode)
			}
		})
	}
}

func TestBodyActionWinsOverPath(t *testing.T) {
	f := newTestApp(t, "")
	status, env := post(t, f, "/mock-assessment/get_questions", `{"action":"list_assessments"}`)
	if status != fiber.StatusOK || !bytes.Contains(env.Data, []byte(`"count":0`)) {
		t.Errorf("list_assessments = %d %s", status, env.Data)
	}
}

func TestAssessmentLifecycle(t *testing.T) {
	f := newTestApp(t, "")

	status, env := post(t, f, "/mock-assessment/create_assessment", `{"id":"go-1","title":"Go Basics","questions":[{"id":"q1"}]}`)
	if status != fiber.StatusOK || env.Message != "Assessment created successfully" {
		t.Fatalf("create = %d %+v", status, env)
	}
	status, env = post(t, f, "/mock-assessment/create_assessment", `{"id":"go-1","title":"Go Basics"}`)
	if status != fiber.StatusConflict || env.Error == nil || env.Error.Code != "ASSESSMENT_EXISTS" {
		t.Errorf("duplicate create = %d %+v", status, env)
	}

	status, env = post(t, f, "/mock-assessment/update_assessment", `{"id":"go-1","status":"published"}`)
	if status != fiber.StatusOK || !bytes.Contains(env.Data, []byte(`"status":"published"`)) {
		t.Errorf("update = %d %s", status, env.Data)
	}

	status, env = post(t, f, "/mock-assessment/get_questions", `{"id":"go-1"}`)
	if status != fiber.StatusOK || string(env.Data) != `[{"id":"q1"}]` {
		t.Errorf("get_questions = %d %s", status, env.Data)
	}

	status, env = post(t, f, "/mock-assessment/delete_assessment", `{"assessmentId":"go-1"}`)
	if status != fiber.StatusOK || env.Data != nil {
		t.Errorf("delete = %d %+v", status, env)
	}
	status, _ = post(t, f, "/mock-assessment/delete_assessment", `{"assessmentId":"go-1"}`)
	if status != fiber.StatusNotFound {
		t.Errorf("second delete = %d, want 404", status)
	}
}

func TestCompleteDailyChallengeTwice(t *testing.T) {
	f := newTestApp(t, "")
	body := `{"userId":"u1","challengeId":"dc-1","score":35}`

	status, env := post(t, f, "/mock-assessment/complete_daily_challenge", body)
	if status != fiber.StatusOK || !bytes.Contains(env.Data, []byte(`"xpEarned":25`)) {
		t.Fatalf("complete = %d %s", status, env.Data)
	}
	status, env = post(t, f, "/mock-assessment/complete_daily_challenge", body)
	if status != fiber.StatusConflict || env.Error == nil || env.Error.Code != "CHALLENGE_ALREADY_COMPLETED" {
		t.Errorf("second complete = %d %+v", status, env)
	}
}

func TestGatewayToken(t *testing.T) {
	f := newTestApp(t, "secret")

	status, env := post(t, f, "/mock-assessment/list_assessments", `{}`)
	if status != fiber.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Errorf("without token = %d %+v", status, env)
	}
	status, _ = post(t, f, "/mock-assessment/list_assessments", `{}`, "Authorization", "Bearer wrong")
	if status != fiber.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", status)
	}
	status, _ = post(t, f, "/mock-assessment/list_assessments", `{}`, "Authorization", "Bearer secret")
	if status != fiber.StatusOK {
		t.Errorf("valid token = %d, want 200", status)
	}

	resp, err := f.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if err != nil || resp.StatusCode != fiber.StatusOK {
		t.Errorf("GET /health = %v, %v, want 200 without token", resp, err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newTestApp(t, "")
	post(t, f, "/mock-assessment/list_assessments", `{}`)

	resp, err := f.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || !bytes.Contains(raw, []byte(`action="list_assessments"`)) {
		t.Errorf("GET /metrics = %d, missing list_assessments series", resp.StatusCode)
	}
}
