package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ppiankov/bankintent/internal/ledger"
	"github.com/ppiankov/bankintent/internal/metrics"
	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/pipeline"
	"github.com/ppiankov/bankintent/internal/rules"
)

type fakeTranscriber struct {
	text  string
	err   error
	calls int
	tag   string
	audio []byte
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename, tag string) (string, error) {
	f.calls++
	f.tag = tag
	f.audio = audio
	return f.text, f.err
}

type failingProcessor struct{}

func (failingProcessor) Process(ctx context.Context, userID string, result model.IntentResult) (*ledger.Response, error) {
	return nil, errors.New("disk on fire")
}

func newPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	reg, err := rules.Load("", model.DefaultLanguage)
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	p, err := pipeline.New(reg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func newStore(t *testing.T) *ledger.Store {
	t.Helper()
	s, err := ledger.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, err := s.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func testConfig() model.ServerConfig {
	cfg := model.DefaultConfig().Server
	cfg.RequestsPerSecond = 0
	return cfg
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestIntent(t *testing.T) {
	s := New(newPipeline(t), testConfig())
	rec := postJSON(t, s.Handler(), "/api/intent", `{"text":"transfer 100 dollars to jane","language":"en-US"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var ext model.Extraction
	decodeBody(t, rec, &ext)
	if ext.Result.IntentType != model.IntentTransferMoney {
		t.Errorf("expected transfer_money, got %s", ext.Result.IntentType)
	}
	if ext.Result.Parameters.Recipient != "jane" {
		t.Errorf("expected recipient jane, got %q", ext.Result.Parameters.Recipient)
	}
}

func TestIntent_BadJSON(t *testing.T) {
	s := New(newPipeline(t), testConfig())
	rec := postJSON(t, s.Handler(), "/api/intent", `{"text":`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestIntent_MethodNotAllowed(t *testing.T) {
	s := New(newPipeline(t), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/intent", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestProcess_Balance(t *testing.T) {
	m := metrics.New(false)
	s := New(newPipeline(t), testConfig(), WithProcessor(newStore(t)), WithMetrics(m))
	rec := postJSON(t, s.Handler(), "/api/process", `{"user_id":"1","text":"check my balance","language":"en-US"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp processResponse
	decodeBody(t, rec, &resp)
	if resp.Intent.IntentType != model.IntentCheckBalance {
		t.Errorf("expected check_balance, got %s", resp.Intent.IntentType)
	}
	if resp.Response == nil || !resp.Response.Success {
		t.Fatalf("expected successful response, got %+v", resp.Response)
	}
	if len(resp.Response.Accounts) != 2 {
		t.Errorf("expected 2 accounts, got %d", len(resp.Response.Accounts))
	}

	if got := testutil.ToFloat64(m.LedgerOperations.WithLabelValues("check_balance", "ok")); got != 1 {
		t.Errorf("expected 1 ledger operation, got %v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("process", "200")); got != 1 {
		t.Errorf("expected 1 recorded request, got %v", got)
	}
}

func TestProcess_RejectedTransfer(t *testing.T) {
	s := New(newPipeline(t), testConfig(), WithProcessor(newStore(t)))
	rec := postJSON(t, s.Handler(), "/api/process", `{"user_id":"1","text":"transfer 100 dollars to nobody","language":"en-US"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp processResponse
	decodeBody(t, rec, &resp)
	if resp.Response == nil || resp.Response.Success {
		t.Errorf("expected unsuccessful response, got %+v", resp.Response)
	}
}

func TestProcess_UnknownUser(t *testing.T) {
	s := New(newPipeline(t), testConfig(), WithProcessor(newStore(t)))
	rec := postJSON(t, s.Handler(), "/api/process", `{"user_id":"99","text":"check my balance"}`)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestProcess_MissingUser(t *testing.T) {
	s := New(newPipeline(t), testConfig(), WithProcessor(newStore(t)))
	rec := postJSON(t, s.Handler(), "/api/process", `{"text":"check my balance"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestProcess_NoLedger(t *testing.T) {
	s := New(newPipeline(t), testConfig())
	rec := postJSON(t, s.Handler(), "/api/process", `{"user_id":"1","text":"check my balance"}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestProcess_InternalError(t *testing.T) {
	s := New(newPipeline(t), testConfig(), WithProcessor(failingProcessor{}))
	rec := postJSON(t, s.Handler(), "/api/process", `{"user_id":"1","text":"check my balance"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Error("expected internal error detail to stay out of the response")
	}
}

func voiceRequest(t *testing.T, fields map[string]string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if audio != nil {
		part, err := w.CreateFormFile("audio", "clip.wav")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(audio)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/process-voice", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestProcessVoice(t *testing.T) {
	tr := &fakeTranscriber{text: "मेरा बैलेंस बताओ"}
	s := New(newPipeline(t), testConfig(), WithProcessor(newStore(t)), WithTranscriber(tr))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, voiceRequest(t, map[string]string{"user_id": "1", "language": "hi-IN"}, []byte("RIFF")))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if tr.calls != 1 || tr.tag != "hi-IN" || string(tr.audio) != "RIFF" {
		t.Errorf("unexpected transcriber call: calls=%d tag=%q audio=%q", tr.calls, tr.tag, tr.audio)
	}

	var resp processResponse
	decodeBody(t, rec, &resp)
	if resp.Transcript != "मेरा बैलेंस बताओ" {
		t.Errorf("expected transcript echoed, got %q", resp.Transcript)
	}
	if resp.Intent.IntentType != model.IntentCheckBalance {
		t.Errorf("expected check_balance, got %s", resp.Intent.IntentType)
	}
}

func TestProcessVoice_Errors(t *testing.T) {
	store := newStore(t)

	s := New(newPipeline(t), testConfig(), WithProcessor(store))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, voiceRequest(t, map[string]string{"user_id": "1"}, []byte("x")))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without transcriber, got %d", rec.Code)
	}

	s = New(newPipeline(t), testConfig(), WithProcessor(store), WithTranscriber(&fakeTranscriber{}))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, voiceRequest(t, map[string]string{"user_id": "1"}, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without audio, got %d", rec.Code)
	}

	s = New(newPipeline(t), testConfig(), WithProcessor(store), WithTranscriber(&fakeTranscriber{err: errors.New("boom")}))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, voiceRequest(t, map[string]string{"user_id": "1"}, []byte("x")))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 on transcription failure, got %d", rec.Code)
	}
}

func TestProcessVoice_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 64
	s := New(newPipeline(t), cfg, WithProcessor(newStore(t)), WithTranscriber(&fakeTranscriber{}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, voiceRequest(t, map[string]string{"user_id": "1"}, bytes.Repeat([]byte("a"), 1024)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.Burst = 2
	m := metrics.New(false)
	s := New(newPipeline(t), cfg, WithMetrics(m))
	h := s.Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, postJSON(t, h, "/api/intent", `{"text":"balance"}`).Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %d", codes[2])
	}
	if got := testutil.ToFloat64(m.RateLimited); got != 1 {
		t.Errorf("expected 1 limited request, got %v", got)
	}
}

func TestHealth(t *testing.T) {
	s := New(newPipeline(t), testConfig(), WithLanguages([]string{"en-US", "hi-IN"}))
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Status        string   `json:"status"`
		Languages     []string `json:"languages"`
		Ledger        bool     `json:"ledger"`
		Transcription bool     `json:"transcription"`
	}
	decodeBody(t, rec, &body)
	if body.Status != "ok" || len(body.Languages) != 2 || body.Ledger || body.Transcription {
		t.Errorf("unexpected health body %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(false)
	s := New(newPipeline(t), testConfig(), WithMetrics(m))
	h := s.Handler()
	postJSON(t, h, "/api/intent", `{"text":"balance"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Errorf("expected http request counter in output")
	}
}
