package recommendations

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"advisor-backend/internal/shared/server/middleware"
)

type testResponse struct {
	ID             string `json:"id"`
	State          string `json:"state"`
	Source         string `json:"source"`
	ConfidenceFlag string `json:"confidenceFlag"`
	Clarification  *struct {
		Questions []string `json:"questions"`
	} `json:"clarification"`
	Recommendation *struct {
		Platform     string `json:"platform"`
		BusinessType string `json:"businessType"`
		TechStack    struct {
			Name string `json:"name"`
		} `json:"techStack"`
		Cost struct {
			Mid float64 `json:"mid"`
		} `json:"cost"`
		Constraints struct {
			WithinBudget *bool `json:"withinBudget"`
		} `json:"constraints"`
	} `json:"recommendation"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T, svc *Service, maxUpload int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Identity())
	NewHandler(svc, maxUpload).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, guest string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if guest != "" {
		req.Header.Set("X-Guest-Id", guest)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestCreateResolvedRecommendation(t *testing.T) {
	r := newTestRouter(t, newTestService(t, NewMemoryRepo()), 0)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/recommendations", "g1", map[string]any{
		"text":   retailText,
		"budget": 1000,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	got := decode[testResponse](t, resp)
	if got.State != "resolved" || got.Recommendation == nil {
		t.Fatalf("expected resolved recommendation, got %+v", got)
	}
	if loc := resp.Header().Get("Location"); loc != "/api/v1/recommendations/"+got.ID {
		t.Fatalf("unexpected Location: %q", loc)
	}
	if got.Recommendation.Platform != "web" || got.Recommendation.BusinessType != "retail" {
		t.Fatalf("unexpected classification: %+v", got.Recommendation)
	}
	if got.Recommendation.TechStack.Name == "" || got.Recommendation.Cost.Mid <= 0 {
		t.Fatalf("expected tech stack and cost, got %+v", got.Recommendation)
	}
	if w := got.Recommendation.Constraints.WithinBudget; w == nil || *w {
		t.Fatalf("expected budget ceiling to be exceeded")
	}
}

func TestAnswerWithPortabilityPicksPlatform(t *testing.T) {
	r := newTestRouter(t, newTestService(t, NewMemoryRepo()), 0)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/recommendations", "g1", map[string]any{"text": vagueText})
	created := decode[testResponse](t, resp)

	answerPath := "/api/v1/recommendations/" + created.ID + "/answers"
	resp = doJSON(t, r, http.MethodPost, answerPath, "g1", map[string]any{"portability": "sometimes"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad portability, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, r, http.MethodPost, answerPath, "g1", map[string]any{
		"businessType": "retail",
		"portability":  "high",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	answered := decode[testResponse](t, resp)
	if answered.Recommendation == nil || answered.Recommendation.Platform != "mobile" {
		t.Fatalf("expected mobile from high portability, got %+v", answered.Recommendation)
	}
}

func TestClarificationFlowOverHTTP(t *testing.T) {
	r := newTestRouter(t, newTestService(t, NewMemoryRepo()), 0)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/recommendations", "g1", map[string]any{"text": vagueText})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	created := decode[testResponse](t, resp)
	if created.State != "clarifying" || created.Clarification == nil || len(created.Clarification.Questions) == 0 {
		t.Fatalf("expected clarification, got %+v", created)
	}

	// another guest cannot see or answer it
	resp = doJSON(t, r, http.MethodGet, "/api/v1/recommendations/"+created.ID, "g2", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other guest, got %d", resp.Code)
	}

	answerPath := "/api/v1/recommendations/" + created.ID + "/answers"
	resp = doJSON(t, r, http.MethodPost, answerPath, "g1", map[string]any{
		"businessType": "Healthcare",
		"platform":     "iphone",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	answered := decode[testResponse](t, resp)
	if answered.State != "resolved" || answered.Recommendation == nil || answered.Recommendation.Platform != "mobile" {
		t.Fatalf("unexpected answer response: %+v", answered)
	}

	resp = doJSON(t, r, http.MethodPost, answerPath, "g1", map[string]any{})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second answer, got %d", resp.Code)
	}
	if body := decode[errorResponse](t, resp); body.Error.Code != "already_resolved" {
		t.Fatalf("unexpected error code: %s", body.Error.Code)
	}

	resp = doJSON(t, r, http.MethodGet, "/api/v1/recommendations/"+created.ID, "g1", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if fetched := decode[testResponse](t, resp); fetched.State != "resolved" {
		t.Fatalf("expected stored resolved state, got %s", fetched.State)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	r := newTestRouter(t, newTestService(t, NewMemoryRepo()), 0)

	cases := []struct {
		name string
		body any
		code string
	}{
		{name: "empty text", body: map[string]any{"text": "  "}, code: "validation_error"},
		{name: "unknown feature", body: map[string]any{"text": retailText, "features": []string{"zzzqqq"}}, code: "validation_error"},
		{name: "negative budget", body: map[string]any{"text": retailText, "budget": -1}, code: "validation_error"},
		{name: "malformed body", body: "not an object", code: "validation_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, r, http.MethodPost, "/api/v1/recommendations", "g1", tc.body)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
			}
			if body := decode[errorResponse](t, resp); body.Error.Code != tc.code {
				t.Fatalf("unexpected error code: %s", body.Error.Code)
			}
		})
	}
}

func TestCreateRequiresIdentity(t *testing.T) {
	r := newTestRouter(t, newTestService(t, NewMemoryRepo()), 0)
	resp := doJSON(t, r, http.MethodPost, "/api/v1/recommendations", "", map[string]any{"text": retailText})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func multipartBody(t *testing.T, fileName string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	fw, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func postDocument(r http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Guest-Id", "g1")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateFromDocument(t *testing.T) {
	r := newTestRouter(t, newTestService(t, NewMemoryRepo()), 0)

	body, ct := multipartBody(t, "brief.txt", []byte(foodText), map[string]string{"platform": "website"})
	resp := postDocument(r, body, ct)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	got := decode[testResponse](t, resp)
	if got.Source != "document" || got.Recommendation == nil {
		t.Fatalf("unexpected response: %+v", got)
	}
	if got.Recommendation.Platform != "web" || got.Recommendation.BusinessType != "restaurant" {
		t.Fatalf("form fields not applied: %+v", got.Recommendation)
	}
}

func TestCreateFromDocumentErrors(t *testing.T) {
	r := newTestRouter(t, newTestService(t, NewMemoryRepo()), 1024)

	body, ct := multipartBody(t, "logo.gif", []byte("GIF89a"), nil)
	resp := postDocument(r, body, ct)
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d: %s", resp.Code, resp.Body.String())
	}

	body, ct = multipartBody(t, "blank.txt", []byte("   \n\t "), nil)
	resp = postDocument(r, body, ct)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}

	body, ct = multipartBody(t, "big.txt", bytes.Repeat([]byte("a"), 4096), nil)
	resp = postDocument(r, body, ct)
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", resp.Code, resp.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/documents", nil)
	req.Header.Set("X-Guest-Id", "g1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", rec.Code)
	}
}

func TestListAnalyzeAndCatalog(t *testing.T) {
	r := newTestRouter(t, newTestService(t, NewMemoryRepo()), 0)

	for _, text := range []string{retailText, vagueText, foodText} {
		if resp := doJSON(t, r, http.MethodPost, "/api/v1/recommendations", "g1", map[string]any{"text": text}); resp.Code != http.StatusCreated {
			t.Fatalf("create %q: %d", text, resp.Code)
		}
	}

	resp := doJSON(t, r, http.MethodGet, "/api/v1/recommendations?limit=2", "g1", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	list := decode[struct {
		Items []struct {
			ID       string `json:"id"`
			State    string `json:"state"`
			Platform string `json:"platform"`
		} `json:"items"`
		Limit int `json:"limit"`
	}](t, resp)
	if len(list.Items) != 2 || list.Limit != 2 {
		t.Fatalf("unexpected page: %+v", list)
	}
	if list.Items[0].Platform != "mobile" || list.Items[1].State != "clarifying" {
		t.Fatalf("expected newest first, got %+v", list.Items)
	}

	resp = doJSON(t, r, http.MethodGet, "/api/v1/recommendations?limit=5000&offset=-3", "g1", nil)
	page := decode[struct {
		Items  []any `json:"items"`
		Limit  int   `json:"limit"`
		Offset int   `json:"offset"`
	}](t, resp)
	if page.Limit != maxListLimit || page.Offset != 0 || len(page.Items) != 3 {
		t.Fatalf("expected clamped paging, got limit=%d offset=%d items=%d", page.Limit, page.Offset, len(page.Items))
	}

	resp = doJSON(t, r, http.MethodGet, "/api/v1/recommendations", "g2", nil)
	if other := decode[struct {
		Items []any `json:"items"`
	}](t, resp); len(other.Items) != 0 {
		t.Fatalf("expected empty list for other guest, got %d", len(other.Items))
	}

	resp = doJSON(t, r, http.MethodPost, "/api/v1/analyze", "g1", map[string]any{"text": vagueText})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	analysis := decode[struct {
		Analysis struct {
			BusinessType string  `json:"businessType"`
			ClarityScore float64 `json:"clarityScore"`
		} `json:"analysis"`
		NeedsClarification bool `json:"needsClarification"`
	}](t, resp)
	if !analysis.NeedsClarification || analysis.Analysis.BusinessType != "unknown" {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}

	resp = doJSON(t, r, http.MethodGet, "/api/v1/catalog", "g1", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	summary := decode[struct {
		BusinessTypes []struct{ ID string } `json:"businessTypes"`
		Platforms     []struct{ ID string } `json:"platforms"`
	}](t, resp)
	if len(summary.BusinessTypes) != 9 || len(summary.Platforms) != 3 {
		t.Fatalf("unexpected catalog summary: %+v", summary)
	}
}
