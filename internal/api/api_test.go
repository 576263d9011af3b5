package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/promptdeck/internal/models"
	"github.com/starford/promptdeck/internal/promptservice"
	"github.com/starford/promptdeck/internal/settings"
	"github.com/starford/promptdeck/internal/storage"
	"github.com/starford/promptdeck/internal/testutil"
)

// testEnv sets up a temp data root, service, and router for testing.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) (*promptservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvFull(t, authToken != "", authToken, nil)
	return svc, router
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*promptservice.Service, http.Handler, storage.Paths) {
	t.Helper()
	svc, paths := testutil.Service(t)
	return svc, NewRouter(svc, authEnabled, authToken, sseHandler), paths
}

func do(t *testing.T, router http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createPrompt(t *testing.T, router http.Handler, body map[string]any) models.PromptMetadata {
	t.Helper()
	w := do(t, router, http.MethodPost, "/prompts", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var meta models.PromptMetadata
	if err := json.Unmarshal(w.Body.Bytes(), &meta); err != nil {
		t.Fatal(err)
	}
	return meta
}

func TestCreateAndGetPrompt(t *testing.T) {
	_, router, paths := testEnvFull(t, false, "", nil)

	meta := createPrompt(t, router, map[string]any{
		"name": "Greeting", "folder": "Misc", "description": "Say hi", "content": "hello",
	})
	if meta.ID == "" || meta.Filename != "Greeting.md" || meta.Folder != "Misc" {
		t.Fatalf("meta = %+v", meta)
	}
	if _, err := os.Stat(filepath.Join(paths.PromptsDir, "Misc", "Greeting.md")); err != nil {
		t.Errorf("prompt file missing: %v", err)
	}

	w := do(t, router, http.MethodGet, "/prompts/"+meta.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got PromptDetail
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Content != "hello" || got.Name != "Greeting" {
		t.Errorf("got %+v", got)
	}
	if got.Checksum == "" || w.Header().Get("ETag") != `"`+got.Checksum+`"` {
		t.Errorf("etag = %q, checksum = %q", w.Header().Get("ETag"), got.Checksum)
	}
}

func TestCreatePrompt_MissingName(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/prompts", map[string]any{"content": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreatePrompt_InvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/prompts", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreatePrompt_DuplicateID(t *testing.T) {
	_, router := testEnv(t, "")

	meta := createPrompt(t, router, map[string]any{"name": "One"})
	w := do(t, router, http.MethodPost, "/prompts", map[string]any{"id": meta.ID, "name": "Two"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate id = %d, want 409", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")

	meta := createPrompt(t, router, map[string]any{"name": "Draft", "content": "v1"})
	w := do(t, router, http.MethodGet, "/prompts/"+meta.ID, nil)
	etag := w.Header().Get("ETag")

	w = do(t, router, http.MethodPut, "/prompts/"+meta.ID,
		map[string]any{"name": "Draft", "content": "v2"}, "If-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	// The old tag no longer matches.
	w = do(t, router, http.MethodPut, "/prompts/"+meta.ID,
		map[string]any{"name": "Draft", "content": "v3"}, "If-Match", etag)
	if w.Code != http.StatusConflict {
		t.Errorf("stale update = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	_, router := testEnv(t, "")

	meta := createPrompt(t, router, map[string]any{"name": "Draft", "content": "v1"})
	w := do(t, router, http.MethodPut, "/prompts/"+meta.ID, map[string]any{"name": "Renamed", "content": "v2"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}
	var updated models.PromptMetadata
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Renamed" || updated.ID != meta.ID {
		t.Errorf("updated = %+v", updated)
	}
}

func TestUpdatePrompt_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/prompts/ghost", map[string]any{"name": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestGetPrompt_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/prompts/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing prompt = %d, want 404", w.Code)
	}
}

func TestDeletePrompt(t *testing.T) {
	_, router, paths := testEnvFull(t, false, "", nil)

	meta := createPrompt(t, router, map[string]any{"name": "Temp"})
	w := do(t, router, http.MethodDelete, "/prompts/"+meta.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if _, err := os.Stat(filepath.Join(paths.PromptsDir, "Temp.md")); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	w = do(t, router, http.MethodDelete, "/prompts/"+meta.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestRecordUsage(t *testing.T) {
	_, router := testEnv(t, "")

	meta := createPrompt(t, router, map[string]any{"name": "Used"})
	w := do(t, router, http.MethodPost, "/prompts/"+meta.ID+"/usage", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("usage status = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/index", nil)
	var idx models.Index
	if err := json.Unmarshal(w.Body.Bytes(), &idx); err != nil {
		t.Fatal(err)
	}
	if len(idx.Prompts) != 1 || idx.Prompts[0].UseCount != 1 || idx.Prompts[0].LastUsed == nil {
		t.Errorf("index = %+v", idx.Prompts)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	createPrompt(t, router, map[string]any{"name": "Summarize", "description": "Condense text"})
	createPrompt(t, router, map[string]any{"name": "Translate", "description": "Into French"})

	w := do(t, router, http.MethodGet, "/search?q=summ", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Name != "Summarize" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchEmptyQueryListsAll(t *testing.T) {
	_, router := testEnv(t, "")

	createPrompt(t, router, map[string]any{"name": "A"})
	createPrompt(t, router, map[string]any{"name": "B"})

	w := do(t, router, http.MethodGet, "/search?limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("results = %d, want 1", len(resp.Results))
	}
}

func TestSearchInvalidLimit(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/search?q=a&limit=-3", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want 400", w.Code)
	}
}

func TestFolderLifecycle(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/folders", map[string]any{"name": "Work"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add folder = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/folders", map[string]any{"name": "Work"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate folder = %d, want 409", w.Code)
	}

	meta := createPrompt(t, router, map[string]any{"name": "Report", "folder": "Work"})

	w = do(t, router, http.MethodPut, "/folders/Work", map[string]any{"newName": "Office"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename folder = %d, body = %s", w.Code, w.Body.String())
	}
	var folders FoldersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &folders); err != nil {
		t.Fatal(err)
	}
	if len(folders.Folders) != 1 || folders.Folders[0] != "Office" {
		t.Errorf("folders = %v", folders.Folders)
	}

	w = do(t, router, http.MethodGet, "/prompts/"+meta.ID, nil)
	var got PromptDetail
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Folder != "Office" {
		t.Errorf("prompt folder = %q, want Office", got.Folder)
	}

	w = do(t, router, http.MethodDelete, "/folders/Office", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete folder = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/prompts/"+meta.ID, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Folder != "" {
		t.Errorf("prompt folder after delete = %q, want root", got.Folder)
	}
}

func TestNestedFolderPath(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/folders", map[string]any{"name": "Work/Reports"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add nested = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPatch, "/folders/Work%2FReports", map[string]any{"icon": "folder", "color": "red"})
	if w.Code != http.StatusOK {
		t.Fatalf("set meta = %d, body = %s", w.Code, w.Body.String())
	}
	var meta models.FolderMeta
	if err := json.Unmarshal(w.Body.Bytes(), &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Name != "Work/Reports" || meta.Icon == nil || *meta.Icon != "folder" {
		t.Errorf("meta = %+v", meta)
	}
}

func TestSetFolderMeta_UnknownFolder(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPatch, "/folders/Nope", map[string]any{"icon": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown folder = %d, want 404", w.Code)
	}
}

func TestInvalidFolderName(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/folders", map[string]any{"name": "a|b"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid folder = %d, want 400", w.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get settings = %d", w.Code)
	}
	var s settings.AppSettings
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s != settings.Defaults() {
		t.Errorf("settings = %+v, want defaults", s)
	}

	s.Appearance.Theme = "light"
	w = do(t, router, http.MethodPut, "/settings", s)
	if w.Code != http.StatusOK {
		t.Fatalf("put settings = %d, body = %s", w.Code, w.Body.String())
	}

	s.Appearance.Theme = "neon"
	w = do(t, router, http.MethodPut, "/settings", s)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid theme = %d, want 400", w.Code)
	}
}

func TestHotkeyEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/hotkey", map[string]any{"hotkey": "Alt+Space"})
	if w.Code != http.StatusOK {
		t.Fatalf("set hotkey = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/hotkey", nil)
	var resp HotkeyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Hotkey != "Alt+Space" {
		t.Errorf("hotkey = %q", resp.Hotkey)
	}

	w = do(t, router, http.MethodPut, "/hotkey", map[string]any{"hotkey": nil})
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Hotkey != settings.DefaultHotkey {
		t.Errorf("reset hotkey = %q, want default", resp.Hotkey)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodPost, "/prompts", map[string]any{"name": "Auth"},
		"Authorization", "Bearer secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/index", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/index", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/index", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router, _ := testEnvFull(t, true, "secret", sseStub())

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router, _ := testEnvFull(t, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}
