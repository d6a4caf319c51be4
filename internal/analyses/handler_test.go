package analyses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-analyzer/internal/extract"
	"cv-analyzer/internal/llm"
	"cv-analyzer/internal/sessions"
	"cv-analyzer/internal/shared/server/middleware"
	"cv-analyzer/internal/shared/storage/object"
	local "cv-analyzer/internal/shared/storage/object/local"
)

const sampleCVText = "John Doe, Software Developer, 3 years experience, skills: JavaScript"

var jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}, make([]byte, 64)...)

type fakeAnalyzer struct {
	mu       sync.Mutex
	result   llm.Result
	enhanced llm.Result
	recs     llm.Recommendations
	err      error
	calls    int
	lastIn   llm.AnalyzeInput
	lastRec  llm.RecommendInput
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, in llm.AnalyzeInput) (llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastIn = in
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeAnalyzer) Enhance(ctx context.Context, prior llm.Prior, in llm.EnhanceInput) (llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return f.enhanced, nil
}

func (f *fakeAnalyzer) Recommend(ctx context.Context, in llm.RecommendInput) (llm.Recommendations, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastRec = in
	if f.err != nil {
		return llm.Recommendations{}, f.err
	}
	return f.recs, nil
}

// recordingStore wraps a local store and remembers deletions.
type recordingStore struct {
	*local.Store
	mu      sync.Mutex
	saved   []string
	deleted []string
}

func (s *recordingStore) Save(ctx context.Context, namespace, fileName, contentType string, r io.Reader) (string, int64, error) {
	key, n, err := s.Store.Save(ctx, namespace, fileName, contentType, r)
	if err == nil {
		s.mu.Lock()
		s.saved = append(s.saved, key)
		s.mu.Unlock()
	}
	return key, n, err
}

func (s *recordingStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, key)
	s.mu.Unlock()
	return s.Store.Delete(ctx, key)
}

// failingRepo rejects every session insert.
type failingRepo struct {
	*sessions.MemoryRepo
}

func (r failingRepo) Create(ctx context.Context, s sessions.Session) (string, error) {
	return "", fmt.Errorf("%w: disk full", sessions.ErrStoreWrite)
}

// lostReadRepo stores sessions but cannot read them back.
type lostReadRepo struct {
	*sessions.MemoryRepo
}

func (r lostReadRepo) Get(ctx context.Context, id string) (sessions.Session, error) {
	return sessions.Session{}, fmt.Errorf("%w: replica lag", sessions.ErrStoreRead)
}

type testEnv struct {
	router   *gin.Engine
	svc      *Service
	repo     sessions.Repo
	store    *recordingStore
	analyzer *fakeAnalyzer
}

func newTestEnv(t *testing.T, repo sessions.Repo) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if repo == nil {
		repo = sessions.NewMemoryRepo()
	}
	env := &testEnv{
		repo:  repo,
		store: &recordingStore{Store: local.New(t.TempDir())},
		analyzer: &fakeAnalyzer{
			result: llm.Result{
				Score:           45,
				Summary:         "Junior profile for a senior role.",
				Strengths:       []string{"JavaScript"},
				MissingSkills:   []string{"AWS", "leadership"},
				ExperienceGaps:  []string{"needs 5+ years"},
				Recommendations: []string{"Gain cloud experience"},
			},
			enhanced: llm.Result{
				Score:           70,
				Summary:         "Stronger with AWS.",
				Strengths:       []string{"JavaScript", "AWS"},
				MissingSkills:   []string{"leadership"},
				ExperienceGaps:  []string{},
				Recommendations: []string{"Lead a project"},
			},
			recs: llm.Recommendations{
				EnhancedSummary: "Developer moving into cloud work.",
				SkillAdditions:  []string{"AWS"},
			},
		},
	}
	svc := &Service{
		Repo:      repo,
		Store:     env.store,
		Extractor: extract.New(nil),
		Analyzer:  env.analyzer,
	}
	env.svc = svc
	r := gin.New()
	r.Use(middleware.RequestID())
	NewHandler(svc, nil).RegisterRoutes(r.Group("/api"))
	env.router = r
	return env
}

type upload struct {
	fileName    string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, file *upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, file.fileName))
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/analyze-cv", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jobFormFields() map[string]string {
	return map[string]string{
		"current_job_title": "Software Developer",
		"job_description":   "Senior Engineer role requiring 5+ years, AWS, leadership",
	}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	return resp
}

func (env *testEnv) analyzeText(t *testing.T, text string) AnalyzeResponse {
	t.Helper()
	resp := env.do(multipartRequest(t, &upload{"cv.txt", "text/plain", []byte(text)}, jobFormFields()))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out AnalyzeResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
	Error   struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var out errorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Detail)
	assert.Equal(t, out.Error.Message, out.Detail)
	return out
}

func countSessions(t *testing.T, repo sessions.Repo) int {
	t.Helper()
	items, err := repo.List(context.Background(), sessions.Filter{Limit: sessions.MaxListLimit})
	require.NoError(t, err)
	return len(items)
}

func TestAnalyzePlainTextCV(t *testing.T) {
	env := newTestEnv(t, nil)

	out := env.analyzeText(t, sampleCVText)

	assert.True(t, out.Success)
	require.NotEmpty(t, out.SessionID)
	assert.Less(t, out.Analysis.OriginalScore, 100)
	assert.NotEmpty(t, out.Analysis.MissingSkills)
	assert.Equal(t, "Software Developer", out.Analysis.JobTitle)
	assert.Equal(t, "", out.Analysis.TargetJobTitle)
	assert.Equal(t, sampleCVText, out.ExtractedData.FullText)
	assert.Equal(t, len([]rune(sampleCVText)), out.ExtractedData.TextLength)
	assert.Equal(t, sampleCVText, out.ExtractedData.TextPreview)
	assert.Equal(t, "text/plain", out.ExtractedData.FileType)
	assert.True(t, out.NextSteps.CanEnhance)
	assert.Equal(t, "/api/sessions/"+out.SessionID+"/download", out.NextSteps.DownloadURL)

	stored, err := env.repo.Get(context.Background(), out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, out.Analysis.OriginalScore, stored.Score)
	assert.Equal(t, "txt", stored.FileKind)
	assert.NotEmpty(t, stored.FileKey)
	assert.Equal(t, sampleCVText, env.analyzer.lastIn.CVText)
}

func TestAnalyzeUsesTargetTitle(t *testing.T) {
	env := newTestEnv(t, nil)
	fields := jobFormFields()
	fields["target_job_title"] = "  Senior Engineer "

	resp := env.do(multipartRequest(t, &upload{"cv.txt", "text/plain", []byte(sampleCVText)}, fields))

	require.Equal(t, http.StatusOK, resp.Code)
	var out AnalyzeResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "Senior Engineer", out.Analysis.JobTitle)
	assert.Equal(t, "Senior Engineer", out.Analysis.TargetJobTitle)
	assert.Equal(t, "Software Developer", out.Analysis.CurrentJobTitle)
}

func TestAnalyzeMissingFileIsRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(multipartRequest(t, nil, jobFormFields()))

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	body := decodeError(t, resp)
	assert.Equal(t, ErrorCodeValidation, body.Error.Code)
	assert.Contains(t, string(body.Error.Details), `"field":"file"`)
	assert.Zero(t, countSessions(t, env.repo))
	assert.Zero(t, env.analyzer.calls)
	assert.Empty(t, env.store.saved)
}

func TestAnalyzeReportsEveryMissingField(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-cv", strings.NewReader(""))
	resp := env.do(req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	body := decodeError(t, resp)
	var issues []FieldIssue
	require.NoError(t, json.Unmarshal(body.Error.Details, &issues))
	var fields []string
	for _, issue := range issues {
		fields = append(fields, issue.Field)
	}
	assert.Equal(t, []string{"file", "current_job_title", "job_description"}, fields)
}

func TestAnalyzeBlankTitleIsRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	fields := jobFormFields()
	fields["current_job_title"] = "   "

	resp := env.do(multipartRequest(t, &upload{"cv.txt", "text/plain", []byte(sampleCVText)}, fields))

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Zero(t, env.analyzer.calls)
}

func TestAnalyzeContentContradictingDeclaredType(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(multipartRequest(t, &upload{"photo.png", "image/png", jpegBytes}, jobFormFields()))

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	body := decodeError(t, resp)
	assert.Equal(t, ErrorCodeExtraction, body.Error.Code)
	assert.Zero(t, env.analyzer.calls)
	assert.Zero(t, countSessions(t, env.repo))
}

func TestAnalyzeUnsupportedTypeHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(multipartRequest(t, &upload{"page.html", "text/html", []byte("<html></html>")}, jobFormFields()))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decodeError(t, resp)
	assert.Equal(t, ErrorCodeUnsupportedMedia, body.Error.Code)
	assert.Contains(t, string(body.Error.Details), extract.MimePDF)
	assert.Zero(t, env.analyzer.calls)
	assert.Empty(t, env.store.saved)
	assert.Zero(t, countSessions(t, env.repo))
}

func TestAnalyzeImageWithoutOCR(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(multipartRequest(t, &upload{"scan.jpg", "image/jpeg", jpegBytes}, jobFormFields()))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, ErrorCodeOCRUnavailable, decodeError(t, resp).Error.Code)
}

func TestAnalyzeEmptyFileProceedsWithEmptyText(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(multipartRequest(t, &upload{"empty.txt", "text/plain", nil}, jobFormFields()))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out AnalyzeResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Zero(t, out.ExtractedData.TextLength)
	assert.Equal(t, 1, env.analyzer.calls)
}

func TestAnalyzeServiceFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzer.err = fmt.Errorf("%w: upstream 502", llm.ErrAnalysisService)

	resp := env.do(multipartRequest(t, &upload{"cv.txt", "text/plain", []byte(sampleCVText)}, jobFormFields()))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, ErrorCodeAnalysis, decodeError(t, resp).Error.Code)
	assert.Zero(t, countSessions(t, env.repo))
	assert.Empty(t, env.store.saved)
}

func TestAnalyzeStoreFailureRemovesUpload(t *testing.T) {
	env := newTestEnv(t, failingRepo{MemoryRepo: sessions.NewMemoryRepo()})

	resp := env.do(multipartRequest(t, &upload{"cv.txt", "text/plain", []byte(sampleCVText)}, jobFormFields()))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, ErrorCodeStorage, decodeError(t, resp).Error.Code)
	require.Len(t, env.store.saved, 1)
	assert.Equal(t, env.store.saved, env.store.deleted)
	_, err := env.store.Open(context.Background(), env.store.saved[0])
	assert.ErrorIs(t, err, object.ErrNotFound)
}

func TestAnalyzeDoesNotDependOnReadBack(t *testing.T) {
	repo := lostReadRepo{MemoryRepo: sessions.NewMemoryRepo()}
	env := newTestEnv(t, repo)

	out := env.analyzeText(t, sampleCVText)

	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, 45, out.Analysis.OriginalScore)
	assert.Equal(t, "Software Developer", out.Analysis.JobTitle)
	assert.Equal(t, []string{"AWS", "leadership"}, out.Analysis.MissingSkills)
	assert.Equal(t, 1, countSessions(t, repo))
	assert.Empty(t, env.store.deleted)
}

func TestAnalyzeTwiceCreatesDistinctSessions(t *testing.T) {
	env := newTestEnv(t, nil)

	first := env.analyzeText(t, sampleCVText)
	second := env.analyzeText(t, "Jane Roe, Platform Engineer, AWS")

	require.NotEqual(t, first.SessionID, second.SessionID)
	for _, id := range []string{first.SessionID, second.SessionID} {
		resp := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
		require.Equal(t, http.StatusOK, resp.Code)
		var out struct {
			Session      sessions.Session       `json:"session"`
			Enhancements []sessions.Enhancement `json:"enhancements"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
		assert.Equal(t, id, out.Session.ID)
		assert.NotNil(t, out.Enhancements)
	}
}

func TestAnalyzePayloadTooLarge(t *testing.T) {
	env := newTestEnv(t, nil)
	big := bytes.Repeat([]byte("a"), MaxUploadBytes+1024)

	resp := env.do(multipartRequest(t, &upload{"cv.txt", "text/plain", big}, jobFormFields()))

	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Equal(t, ErrorCodePayloadTooLarge, decodeError(t, resp).Error.Code)
	assert.Zero(t, env.analyzer.calls)
}

func enhanceRequest(t *testing.T, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/enhance-cv", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestEnhanceStoresSeparateResult(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.analyzeText(t, sampleCVText)

	resp := env.do(enhanceRequest(t, EnhanceRequest{
		SessionID: created.SessionID,
		Skills:    []string{" AWS ", ""},
	}))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out EnhanceResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, 45, out.Enhancement.PreviousScore)
	assert.Equal(t, 70, out.Enhancement.NewScore)
	assert.Equal(t, 25, out.Improvement)
	assert.Equal(t, []string{"AWS"}, out.Enhancement.Skills)
	assert.Equal(t, []string{}, out.Enhancement.Experience)

	original, err := env.repo.Get(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 45, original.Score)
}

func TestEnhanceRejectsEmptyInput(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.analyzeText(t, sampleCVText)
	calls := env.analyzer.calls

	resp := env.do(enhanceRequest(t, EnhanceRequest{SessionID: created.SessionID, Skills: []string{"  "}}))

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, calls, env.analyzer.calls)
}

func TestEnhanceUnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(enhanceRequest(t, EnhanceRequest{SessionID: "missing", Skills: []string{"Go"}}))

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, ErrorCodeNotFound, decodeError(t, resp).Error.Code)
}

func TestEnhanceInvalidJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/enhance-cv", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")

	resp := env.do(req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestListAndStats(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzeText(t, sampleCVText)
	env.analyzer.result.Score = 90
	env.analyzeText(t, "Jane Roe, Platform Engineer, AWS")

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions?min_score=80", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Sessions []sessions.Session `json:"sessions"`
		Count    int                `json:"count"`
		Limit    int                `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, 90, list.Sessions[0].Score)
	assert.Equal(t, sessions.DefaultListLimit, list.Limit)

	resp = env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/stats", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var stats struct {
		Stats sessions.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Stats.TotalSessions)
	assert.Equal(t, 90, stats.Stats.MaxScore)
	assert.Equal(t, 45, stats.Stats.MinScore)
	assert.Equal(t, 1, stats.Stats.HighScoring)
	assert.Equal(t, 1, stats.Stats.LowScoring)
}

func TestListRejectsBadFilters(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, query := range []string{"min_score=abc", "min_score=90&max_score=10", "offset=-1"} {
		resp := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions?"+query, nil))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, query)
	}
}

func TestGetUnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil))

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRecommendationsUseLatestEnhancement(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.analyzeText(t, sampleCVText)
	resp := env.do(enhanceRequest(t, EnhanceRequest{SessionID: created.SessionID, Achievements: []string{"Cut costs 20%"}}))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID+"/recommendations", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var out struct {
		Recommendations llm.Recommendations `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "Developer moving into cloud work.", out.Recommendations.EnhancedSummary)
	assert.Contains(t, env.analyzer.lastRec.AdditionalInfo, "Cut costs 20%")
	assert.Equal(t, []string{"leadership"}, env.analyzer.lastRec.MissingSkills)
}

func TestDownloadEnhancedCV(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.analyzeText(t, sampleCVText)

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID+"/download", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, docxContentType, resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "enhanced_cv_")
	body := resp.Body.Bytes()
	require.Greater(t, len(body), 4)
	assert.Equal(t, "PK", string(body[:2]))

	res, err := extract.New(nil).Extract(context.Background(), body, docxContentType, "cv.docx")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "John Doe")
}

func TestDownloadSessionWithoutText(t *testing.T) {
	env := newTestEnv(t, nil)
	id, err := env.repo.Create(context.Background(), sessions.Session{JobTitle: "Dev"})
	require.NoError(t, err)

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/download", nil))

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, ErrorCodeValidation, decodeError(t, resp).Error.Code)
}

func TestWriteErrorUnexpectedRenderFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)

	writeError(c, fmt.Errorf("render abc12345: %w", errors.New("zip: write failed")))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, ErrorCodeInternal, decodeError(t, resp).Error.Code)
}

func TestResetDeletesStoredUploads(t *testing.T) {
	env := newTestEnv(t, nil)
	env.analyzeText(t, sampleCVText)
	env.analyzeText(t, sampleCVText)
	require.Len(t, env.store.saved, 2)

	removed, err := env.svc.Reset(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Zero(t, countSessions(t, env.repo))
	assert.ElementsMatch(t, env.store.saved, env.store.deleted)
	for _, key := range env.store.saved {
		_, err := env.store.Open(context.Background(), key)
		assert.ErrorIs(t, err, object.ErrNotFound)
	}
}

func TestResetWithoutStore(t *testing.T) {
	repo := sessions.NewMemoryRepo()
	_, err := repo.Create(context.Background(), sessions.Session{CVText: "x", FileKey: "sessions/a/cv.txt"})
	require.NoError(t, err)
	svc := &Service{Repo: repo}

	removed, err := svc.Reset(context.Background())

	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Zero(t, countSessions(t, repo))
}

func TestDownloadUnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/nope/download", nil))

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestOriginalFileIsReturned(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.analyzeText(t, sampleCVText)

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID+"/file", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, sampleCVText, resp.Body.String())
	assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "text/plain"))
}

func TestOriginalFileWithoutStore(t *testing.T) {
	repo := sessions.NewMemoryRepo()
	id, err := repo.Create(context.Background(), sessions.Session{CVText: "x", JobTitle: "Dev"})
	require.NoError(t, err)
	svc := &Service{Repo: repo}

	_, err = svc.OriginalFile(context.Background(), id)

	assert.True(t, errors.Is(err, sessions.ErrNotFound))
}
