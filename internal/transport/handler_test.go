package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"

	"github.com/anime-shed/note-inspector-go/internal/config"
	apperrors "github.com/anime-shed/note-inspector-go/internal/errors"
	"github.com/anime-shed/note-inspector-go/internal/logger"
	"github.com/anime-shed/note-inspector-go/internal/observer"
	"github.com/anime-shed/note-inspector-go/pkg/models"
)

type stubService struct {
	uploads   []string
	requestID string
	err       error
}

func (s *stubService) AuthenticateUpload(ctx context.Context, filename string, data []byte) (*models.AuthenticationResponse, error) {
	s.uploads = append(s.uploads, filename)
	s.requestID = logger.RequestID(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return &models.AuthenticationResponse{
		RequestID:    s.requestID,
		Genuine:      true,
		Denomination: null.StringFrom("500"),
		Score:        42,
		Message:      "Likely Genuine Currency: ₹500 (Matches: 42)",
	}, nil
}

func (s *stubService) AuthenticateURL(ctx context.Context, imageURL string) (*models.AuthenticationResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.AuthenticationResponse{Reason: "below_threshold", Message: "Potential Fake or Cannot Verify"}, nil
}

func (s *stubService) References(ctx context.Context) (*models.ReferencesResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.ReferencesResponse{Denominations: []string{"100", "500"}}, nil
}

func (s *stubService) ReloadReferences(ctx context.Context) (*models.ReferencesResponse, error) {
	return s.References(ctx)
}

func (s *stubService) GetVerdict(ctx context.Context, id string) (*models.VerdictResponse, error) {
	return nil, apperrors.NewNotFoundError("verdict not found", nil)
}

func (s *stubService) ListVerdicts(ctx context.Context, limit int) (*models.VerdictListResponse, error) {
	return &models.VerdictListResponse{Verdicts: []models.VerdictResponse{}, Count: limit}, nil
}

func (s *stubService) ReferencesReady() (bool, int) {
	return true, 2
}

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		RateLimitRPS:       100,
		RateLimitBurst:     100,
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(content)
	w.Close()
	return &buf, w.FormDataContentType()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateUpload(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc, nil, testConfig())

	body, contentType := multipartBody(t, "image", "note.jpg", []byte("jpeg bytes"))
	req := httptest.NewRequest(http.MethodPost, "/authenticate", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.AuthenticationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Genuine || resp.Denomination.String != "500" {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if len(svc.uploads) != 1 || svc.uploads[0] != "note.jpg" {
		t.Errorf("Expected upload note.jpg to reach the service, got %v", svc.uploads)
	}
	if svc.requestID == "" || rec.Header().Get("X-Request-ID") != svc.requestID {
		t.Errorf("Expected request id %q to be echoed, got %q", svc.requestID, rec.Header().Get("X-Request-ID"))
	}
}

func TestAuthenticateUpload_KeepsIncomingRequestID(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc, nil, testConfig())
	const id = "9a1f2c3d-0000-4000-8000-123456789abc"

	body, contentType := multipartBody(t, "image", "note.png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/authenticate", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", id)
	serve(h, req)

	if svc.requestID != id {
		t.Errorf("Expected request id %s, got %s", id, svc.requestID)
	}
}

func TestAuthenticateUpload_MissingFile(t *testing.T) {
	h := NewHandler(&stubService{}, nil, testConfig())

	body, contentType := multipartBody(t, "document", "note.png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/authenticate", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(h, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	var resp models.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Type != "validation" || resp.Message != "No image file part in the request" {
		t.Errorf("Unexpected error response: %+v", resp)
	}
}

func TestAuthenticateUpload_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBodySize = 1024
	h := NewHandler(&stubService{}, nil, cfg)

	body, contentType := multipartBody(t, "image", "note.png", bytes.Repeat([]byte("x"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/authenticate", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(h, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", rec.Code)
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantType string
	}{
		{apperrors.NewDecodeError("image unreadable", nil), http.StatusUnprocessableEntity, "decode"},
		{apperrors.NewNoReferencesError("no reference data available", nil), http.StatusServiceUnavailable, "no_references"},
		{apperrors.NewNetworkError("failed to fetch image", nil), http.StatusBadGateway, "network"},
	}

	for _, tt := range tests {
		h := NewHandler(&stubService{err: tt.err}, nil, testConfig())
		req := httptest.NewRequest(http.MethodPost, "/authenticate/url", strings.NewReader(`{"url":"https://example.com/500.jpg"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := serve(h, req)

		if rec.Code != tt.wantCode {
			t.Errorf("Expected %d for %s, got %d", tt.wantCode, tt.wantType, rec.Code)
		}
		var resp models.ErrorResponse
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Type != tt.wantType {
			t.Errorf("Expected type %s, got %s", tt.wantType, resp.Type)
		}
	}
}

func TestAuthenticateURL_InvalidBody(t *testing.T) {
	h := NewHandler(&stubService{}, nil, testConfig())

	for _, body := range []string{`{}`, `{"url":"not a url"}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/authenticate/url", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := serve(h, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 2
	h := NewHandler(&stubService{}, nil, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/authenticate/url", strings.NewReader(`{"url":"https://example.com/a.jpg"}`))
		req.Header.Set("Content-Type", "application/json")
		codes = append(codes, serve(h, req).Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected 200, 200, 429, got %v", codes)
	}

	// Unlimited endpoints stay reachable
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected health to stay available, got %d", rec.Code)
	}
}

func TestSimpleRoutes(t *testing.T) {
	metrics := observer.NewMetricsObserver()
	h := NewHandler(&stubService{}, metrics, testConfig())

	tests := []struct {
		method   string
		path     string
		wantCode int
		contains string
	}{
		{http.MethodGet, "/", http.StatusOK, "POST /authenticate"},
		{http.MethodGet, "/health", http.StatusOK, `"references_loaded":true`},
		{http.MethodGet, "/test", http.StatusOK, `"method":"GET"`},
		{http.MethodPost, "/test", http.StatusOK, `"method":"POST"`},
		{http.MethodGet, "/authenticate", http.StatusFound, ""},
		{http.MethodGet, "/references", http.StatusOK, `"denominations":["100","500"]`},
		{http.MethodPost, "/references/reload", http.StatusOK, "500"},
		{http.MethodGet, "/verdicts?limit=5", http.StatusOK, `"count":5`},
		{http.MethodGet, "/verdicts?limit=abc", http.StatusBadRequest, "invalid limit"},
		{http.MethodGet, "/verdicts/0b0e3a7e-1c1f-4d4e-9a9a-000000000000", http.StatusNotFound, "verdict not found"},
		{http.MethodGet, "/stats", http.StatusOK, "total_authentications"},
	}

	for _, tt := range tests {
		rec := serve(h, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.wantCode {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.wantCode, rec.Code)
			continue
		}
		if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
			t.Errorf("%s %s: expected body to contain %q, got %s", tt.method, tt.path, tt.contains, rec.Body.String())
		}
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/authenticate", nil))
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Expected redirect to /, got %q", loc)
	}
}
