package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursework-backend/internal/data/repos"
	"github.com/yungbote/coursework-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/http/middleware"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/chat"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/ingestion"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/ingestion/extractor"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/modes"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/pipeline"
	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
	"github.com/yungbote/coursework-backend/internal/platform/openai/openaitest"
	"github.com/yungbote/coursework-backend/internal/realtime"
)

type mapFiles map[string][]byte

func (m mapFiles) Download(_ context.Context, rm *types.RawMaterial) ([]byte, error) {
	b, ok := m[rm.StorageKey]
	if !ok {
		return nil, fmt.Errorf("no object %s", rm.StorageKey)
	}
	return b, nil
}

func (m mapFiles) Upload(_ dbctx.Context, key, _ string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m[key] = b
	return nil
}

type harness struct {
	router *gin.Engine
	llm    *openaitest.Client
	userID uuid.UUID
}

func newHarness(t *testing.T, files mapFiles) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	llm := &openaitest.Client{}
	factory := &openaitest.Factory{Client: llm}
	ingest := ingestion.New(ingestion.Deps{
		DB:          db,
		Log:         log,
		Assignments: repos.NewAssignmentRepo(db, log),
		Materials:   repos.NewRawMaterialRepo(db, log),
		Documents:   repos.NewExtractedDocumentRepo(db, log),
		Extractor:   extractor.New(log, files),
		Uploads:     files,
	})
	gen := modes.NewGenerator(log, factory, repos.NewArtifactRepo(db, log))
	session := chat.New(chat.Deps{Log: log, LLM: factory, Turns: repos.NewChatTurnRepo(db, log), Content: ingest})

	h := &harness{llm: llm, userID: uuid.New()}
	ah := NewAssignmentHandler(log, ingest, factory, pipeline.New(log, factory, pipeline.DefaultStages()), gen)
	arh := NewArtifactHandler(log, ingest, gen)
	ch := NewChatHandler(log, session)

	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), h.userID))
		c.Next()
	}, middleware.ModelCredentials())
	api.POST("/assignments", ah.Upsert)
	api.PUT("/assignments/:id/materials/:materialId/content", ah.UploadMaterial)
	api.POST("/assignments/:id/extract", ah.Extract)
	api.POST("/assignments/:id/pipeline", ah.RunPipeline)
	api.POST("/assignments/:id/artifacts/:mode", arh.Generate)
	api.GET("/assignments/:id/artifacts/:mode", arh.Get)
	api.PUT("/assignments/:id/artifacts/draft/override", arh.SetOverride)
	api.GET("/assignments/:id/artifacts/draft/diff", arh.DraftDiff)
	api.GET("/assignments/:id/chat", ch.History)
	api.POST("/assignments/:id/chat", ch.Ask)
	api.POST("/assignments/:id/chat/stream", ch.Stream)
	h.router = r
	return h
}

func (h *harness) do(t *testing.T, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(middleware.HeaderLLMKey, key)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	e, _ := decode(t, rec)["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

const notes = "Problem 1. A cart of mass 2 kg accelerates at 3 m/s^2. Find the net force."

func (h *harness) createAssignment(t *testing.T) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/assignments", "", map[string]any{
		"external_id": "cw-42",
		"title":       "Dynamics HW",
		"materials":   []map[string]any{{"title": "notes.txt", "storage_key": "k/notes.txt", "mime_type": "text/plain"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert: status=%d body=%s", rec.Code, rec.Body.String())
	}
	a := decode(t, rec)["assignment"].(map[string]any)
	return a["id"].(string)
}

func TestExtractThenGenerateExplain(t *testing.T) {
	h := newHarness(t, mapFiles{"k/notes.txt": []byte(notes)})
	id := h.createAssignment(t)

	rec := h.do(t, http.MethodPost, "/api/assignments/"+id+"/extract", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("extract: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["combined_text"].(string); !strings.Contains(got, "--- FILE: notes.txt ---") {
		t.Fatalf("combined_text: got=%q", got)
	}

	h.llm.TextFunc = func(context.Context, string, string) (string, error) {
		return "<h2>Newton's second law</h2><script>x()</script><p>F = m a</p>", nil
	}
	rec = h.do(t, http.MethodPost, "/api/assignments/"+id+"/artifacts/explain", "sk-user", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["generated"] != true || strings.Contains(body["content"].(string), "<script") {
		t.Fatalf("generate: got=%v", body)
	}

	rec = h.do(t, http.MethodGet, "/api/assignments/"+id+"/artifacts/explain", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status=%d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t, mapFiles{"k/notes.txt": []byte(notes)})
	id := h.createAssignment(t)

	cases := []struct {
		name       string
		method     string
		path       string
		key        string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"not extracted", http.MethodPost, "/api/assignments/" + id + "/pipeline", "sk-user", nil, http.StatusConflict, "content_not_extracted"},
		{"bad id", http.MethodGet, "/api/assignments/nope/artifacts/quiz", "", nil, http.StatusBadRequest, "invalid_assignment_id"},
		{"unknown mode", http.MethodPost, "/api/assignments/" + id + "/artifacts/essay", "sk-user", nil, http.StatusBadRequest, "invalid_request"},
		{"missing artifact", http.MethodGet, "/api/assignments/" + id + "/artifacts/quiz", "", nil, http.StatusNotFound, "not_found"},
		{"override without draft", http.MethodPut, "/api/assignments/" + id + "/artifacts/draft/override", "", map[string]any{"content": "<p>x</p>"}, http.StatusNotFound, "not_found"},
		{"diff without draft", http.MethodGet, "/api/assignments/" + id + "/artifacts/draft/diff", "", nil, http.StatusNotFound, "not_found"},
		{"other user's assignment", http.MethodPost, "/api/assignments/" + uuid.NewString() + "/extract", "", nil, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(t, tc.method, tc.path, tc.key, tc.body)
			if rec.Code != tc.wantStatus || errorCode(t, rec) != tc.wantCode {
				t.Fatalf("want=%d/%s got=%d body=%s", tc.wantStatus, tc.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGenerateNeedsCredentialAndCount(t *testing.T) {
	h := newHarness(t, mapFiles{"k/notes.txt": []byte(notes)})
	id := h.createAssignment(t)
	if rec := h.do(t, http.MethodPost, "/api/assignments/"+id+"/extract", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("extract: %d", rec.Code)
	}

	rec := h.do(t, http.MethodPost, "/api/assignments/"+id+"/artifacts/quiz", "sk-user", map[string]any{"count": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("quiz without count: want=400 got=%d", rec.Code)
	}
	rec = h.do(t, http.MethodPost, "/api/assignments/"+id+"/artifacts/explain", "", nil)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "invalid_credential" {
		t.Fatalf("no key: want=401/invalid_credential got=%d body=%s", rec.Code, rec.Body.String())
	}
	if h.llm.CallCount() != 0 {
		t.Fatalf("calls: want=0 got=%d", h.llm.CallCount())
	}
}

func TestAskRateLimitedRendersNotice(t *testing.T) {
	h := newHarness(t, mapFiles{"k/notes.txt": []byte(notes)})
	id := h.createAssignment(t)
	h.do(t, http.MethodPost, "/api/assignments/"+id+"/extract", "", nil)
	h.llm.TextFunc = func(context.Context, string, string) (string, error) {
		return "", &openai.HTTPError{StatusCode: 429, Body: "Rate limit reached. Please try again in 12s."}
	}

	rec := h.do(t, http.MethodPost, "/api/assignments/"+id+"/chat", "sk-user", map[string]any{"question": "where do I start?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ask: status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	turn := body["turn"].(map[string]any)
	if body["notice"] != "Rate limited" || turn["status"] != types.TurnError || !strings.Contains(turn["content"].(string), "12 seconds") {
		t.Fatalf("ask: got=%v", body)
	}
}

func TestStreamFrames(t *testing.T) {
	h := newHarness(t, mapFiles{"k/notes.txt": []byte(notes)})
	id := h.createAssignment(t)
	h.do(t, http.MethodPost, "/api/assignments/"+id+"/extract", "", nil)
	h.llm.StreamFunc = func(_ context.Context, _, _ string, onDelta func(string)) (string, error) {
		onDelta("F = ")
		onDelta("6 N")
		return "F = 6 N", nil
	}

	rec := h.do(t, http.MethodPost, "/api/assignments/"+id+"/chat/stream", "sk-user", map[string]any{"question": "answer?"})
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type: got=%q", ct)
	}
	var content strings.Builder
	var done bool
	if err := realtime.ReadFrames(rec.Body, func(f realtime.Frame) error {
		content.WriteString(f.Content)
		done = done || f.Done
		return nil
	}); err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	if content.String() != "F = 6 N" || !done {
		t.Fatalf("frames: content=%q done=%v", content.String(), done)
	}

	rec = h.do(t, http.MethodGet, "/api/assignments/"+id+"/chat", "", nil)
	turns := decode(t, rec)["turns"].([]any)
	last := turns[len(turns)-1].(map[string]any)
	if last["content"] != "F = 6 N" {
		t.Fatalf("history: got=%v", turns)
	}
}

func TestStreamRejectsBlankQuestion(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodPost, "/api/assignments/"+uuid.NewString()+"/chat/stream", "sk-user", map[string]any{"question": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
}

func TestUploadMaterialContent(t *testing.T) {
	files := mapFiles{}
	h := newHarness(t, files)
	rec := h.do(t, http.MethodPost, "/api/assignments", "", map[string]any{
		"title":     "Reading response",
		"materials": []map[string]any{{"title": "prompt.txt"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert: status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	id := body["assignment"].(map[string]any)["id"].(string)
	mid := body["materials"].([]any)[0].(map[string]any)["id"].(string)

	req := httptest.NewRequest(http.MethodPut, "/api/assignments/"+id+"/materials/"+mid+"/content", strings.NewReader(notes))
	req.Header.Set("Content-Type", "text/plain")
	up := httptest.NewRecorder()
	h.router.ServeHTTP(up, req)
	if up.Code != http.StatusOK {
		t.Fatalf("upload: status=%d body=%s", up.Code, up.Body.String())
	}
	m := decode(t, up)["material"].(map[string]any)
	if m["mime_type"] != "text/plain" || m["size_bytes"].(float64) != float64(len(notes)) {
		t.Fatalf("material: got=%v", m)
	}
	if len(files) != 1 {
		t.Fatalf("stored objects: want=1 got=%d", len(files))
	}

	rec = h.do(t, http.MethodPost, "/api/assignments/"+id+"/extract", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("extract: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["combined_text"].(string); !strings.Contains(got, "cart of mass") {
		t.Fatalf("combined_text: got=%q", got)
	}

	bad := h.do(t, http.MethodPut, "/api/assignments/"+id+"/materials/nope/content", "", nil)
	if bad.Code != http.StatusBadRequest || errorCode(t, bad) != "invalid_material_id" {
		t.Fatalf("bad material id: status=%d code=%s", bad.Code, errorCode(t, bad))
	}
}

func TestPipelineDraftKeptWhenReviewFails(t *testing.T) {
	h := newHarness(t, mapFiles{"k/notes.txt": []byte(notes)})
	id := h.createAssignment(t)
	h.do(t, http.MethodPost, "/api/assignments/"+id+"/extract", "", nil)
	h.llm.JSONFunc = func(_ context.Context, _, _, schema string) (map[string]any, error) {
		if schema == "validated_content" {
			return map[string]any{
				"totalQuestions": 1,
				"questionList":   []any{map[string]any{"id": "1", "mainQuestion": "Find the net force.", "subParts": []any{}}},
				"cleanedContent": notes,
				"metadata":       map[string]any{"subject": "Physics", "topics": []any{"dynamics"}},
			}, nil
		}
		return map[string]any{"solutions": []any{
			map[string]any{"questionId": "1", "solution": map[string]any{"finalAnswer": "6 N"}},
		}}, nil
	}
	h.llm.TextFunc = func(context.Context, string, string) (string, error) {
		return "<h2>Problem 1</h2><p>F = 6 N</p>", nil
	}

	path := "/api/assignments/" + id + "/pipeline"
	rec := h.do(t, http.MethodPost, path, "sk-user", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pipeline: status=%d body=%s", rec.Code, rec.Body.String())
	}
	first := decode(t, rec)
	draft := first["artifact"].(map[string]any)
	if !strings.HasPrefix(draft["content"].(string), "<h1>Dynamics HW</h1>") || draft["version"].(float64) != 1 {
		t.Fatalf("saved draft: got=%v", draft)
	}

	h.llm.TextFunc = func(context.Context, string, string) (string, error) {
		return "", errors.New("status 503")
	}
	rec = h.do(t, http.MethodPost, path, "sk-user", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded pipeline: status=%d body=%s", rec.Code, rec.Body.String())
	}
	second := decode(t, rec)
	if second["degraded"] != true || second["artifact"] != nil || !strings.HasPrefix(second["html"].(string), `<div class="error">`) {
		t.Fatalf("degraded pipeline: got=%v", second)
	}

	rec = h.do(t, http.MethodGet, "/api/assignments/"+id+"/artifacts/draft", "", nil)
	kept := decode(t, rec)["artifact"].(map[string]any)
	if kept["version"].(float64) != 1 || kept["content"] != draft["content"] {
		t.Fatalf("stored draft: want version=1 got=%v", kept)
	}
}
