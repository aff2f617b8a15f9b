package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"folio/api/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}, nil), "*")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if ok, exists := response["ok"]; !exists || ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
}

func TestCreatePageEndpointJSON(t *testing.T) {
	var inserted []store.SectionRow
	fs := &fakeStore{
		insertPageFn: func(_ context.Context, _ store.Page, rows []store.SectionRow) error {
			inserted = rows
			return nil
		},
		listSectionsFn: func(context.Context, string) ([]store.SectionRow, error) {
			return inserted, nil
		},
	}
	server := NewHTTPServer(newTestService(fs, nil), "*")

	body, _ := json.Marshal(sampleInput())
	req := httptest.NewRequest(http.MethodPost, "/api/pages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var view PageView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(view.Sections) != 2 {
		t.Fatalf("expected 2 root sections, got %d", len(view.Sections))
	}
}

func TestCreatePageEndpointValidationError(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}, nil), "*")

	input := sampleInput()
	input.Category = "Astrologie"
	body, _ := json.Marshal(input)
	req := httptest.NewRequest(http.MethodPost, "/api/pages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["code"] != "VALIDATION" {
		t.Errorf("expected VALIDATION code, got %v", response["code"])
	}
}

func TestUpdatePageEndpointMultipart(t *testing.T) {
	var uploadedKey string
	fs := &fakeStore{
		listSectionsFn: func(context.Context, string) ([]store.SectionRow, error) {
			return nil, nil
		},
		updatePageFn: func(_ context.Context, _ store.Page, rows []store.SectionRow) error {
			for _, row := range rows {
				if row.FrontendID == "IMG" {
					uploadedKey = row.ImageKey
				}
			}
			return nil
		},
	}
	server := NewHTTPServer(newTestService(fs, &fakeBlobs{}), "*")

	input := sampleInput()
	input.Sections = append(input.Sections, SectionInput{FrontendID: "IMG", Type: "image", Title: "Radio"})
	pageJSON, _ := json.Marshal(input)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("page", string(pageJSON)); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := form.CreateFormFile("image_IMG", "scan.png")
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := part.Write([]byte{0x89, 'P', 'N', 'G'}); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	form.Close()

	req := httptest.NewRequest(http.MethodPut, "/api/pages/page_1", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(uploadedKey, "IMG") || !strings.Contains(uploadedKey, "scan.png") {
		t.Fatalf("upload not paired with its section, key=%q", uploadedKey)
	}
}

func TestGetPageEndpointNotFound(t *testing.T) {
	fs := &fakeStore{
		getPageFn: func(context.Context, string) (store.Page, error) {
			return store.Page{}, store.ErrPageNotFound
		},
	}
	server := NewHTTPServer(newTestService(fs, nil), "*")

	req := httptest.NewRequest(http.MethodGet, "/api/pages/ghost", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestExpansionEndpointRequiresSession(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}, nil), "*")

	req := httptest.NewRequest(http.MethodGet, "/api/pages/page_1/expansion", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session id, got %d", rr.Code)
	}
}

func TestExpansionToggleEndpoint(t *testing.T) {
	parentA := "A"
	fs := &fakeStore{
		listSectionsFn: func(context.Context, string) ([]store.SectionRow, error) {
			return []store.SectionRow{
				{FrontendID: "A", Type: "expandable"},
				{FrontendID: "C", Type: "raw_text", ParentID: &parentA},
			}, nil
		},
	}
	server := NewHTTPServer(newTestService(fs, nil), "*")

	body := strings.NewReader(`{"sectionId":"A"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/pages/page_1/expansion/toggle", body)
	req.Header.Set("X-Session-ID", "sess")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var view ExpansionView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	// A starts expanded by the init rule, so the toggle collapses it.
	if len(view.Expanded) != 0 {
		t.Fatalf("expected A collapsed after toggle, got %v", view.Expanded)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}, nil), "*")

	req := httptest.NewRequest(http.MethodPatch, "/api/pages/page_1", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
