package analyses

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/extract"
	"cv-analyzer/internal/llm"
	"cv-analyzer/internal/sessions"
	"cv-analyzer/internal/shared/server/middleware"
	"cv-analyzer/internal/shared/server/respond"
)

const multipartMemory = 8 << 20

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
	// Limit guards the routes that call the completion service; may be nil.
	Limit gin.HandlerFunc
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, limit gin.HandlerFunc) *Handler {
	return &Handler{Svc: svc, Limit: limit}
}

// RegisterRoutes attaches analysis and session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	guarded := []gin.HandlerFunc{}
	if h.Limit != nil {
		guarded = append(guarded, h.Limit)
	}
	rg.POST("/analyze-cv", append(guarded, h.analyze)...)
	rg.POST("/enhance-cv", append(guarded, h.enhance)...)
	rg.GET("/sessions", h.listSessions)
	rg.GET("/sessions/stats", h.stats)
	rg.GET("/sessions/:id", h.getSession)
	rg.GET("/sessions/:id/recommendations", append(guarded, h.recommendations)...)
	rg.GET("/sessions/:id/download", h.download)
	rg.GET("/sessions/:id/file", h.originalFile)
}

func requestContext(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func (h *Handler) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
	req, err := readAnalyzeRequest(c.Request)
	if err != nil {
		writeError(c, err)
		return
	}

	out, err := h.Svc.Analyze(requestContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.SessionIDKey, out.Session.ID)
	c.Set(middleware.StageKey, string(StageResponded))
	respond.OK(c, newAnalyzeResponse(out.Session))
}

// readAnalyzeRequest parses the multipart form. Missing parts are left for
// validation to report, so a bare POST still yields the full issue list.
func readAnalyzeRequest(r *http.Request) (AnalyzeRequest, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return AnalyzeRequest{}, err
		}
		return AnalyzeRequest{}, &ValidationError{Issues: []FieldIssue{{Field: "body", Issue: "malformed multipart form"}}}
	}

	req := AnalyzeRequest{}
	if form := r.MultipartForm; form != nil {
		req.CurrentJobTitle = firstValue(form.Value, "current_job_title")
		req.TargetJobTitle = firstValue(form.Value, "target_job_title")
		req.JobDescription = firstValue(form.Value, "job_description")
		if files := form.File["file"]; len(files) > 0 {
			fh := files[0]
			f, err := fh.Open()
			if err != nil {
				return AnalyzeRequest{}, err
			}
			defer f.Close()
			data, err := io.ReadAll(f)
			if err != nil {
				return AnalyzeRequest{}, err
			}
			req.HasFile = true
			req.FileName = fh.Filename
			req.DeclaredType = fh.Header.Get("Content-Type")
			req.Data = data
		}
	}
	return req, nil
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (h *Handler) enhance(c *gin.Context) {
	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &ValidationError{Issues: []FieldIssue{{Field: "body", Issue: "invalid JSON"}}})
		return
	}
	c.Set(middleware.SessionIDKey, strings.TrimSpace(req.SessionID))

	enh, err := h.Svc.Enhance(requestContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, newEnhanceResponse(enh))
}

func (h *Handler) listSessions(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	items, err := h.Svc.List(requestContext(c), f)
	if err != nil {
		writeError(c, err)
		return
	}
	f = f.Normalize()
	respond.OK(c, gin.H{
		"success":  true,
		"sessions": items,
		"count":    len(items),
		"limit":    f.Limit,
		"offset":   f.Offset,
	})
}

func parseFilter(c *gin.Context) (sessions.Filter, error) {
	verr := &ValidationError{}
	f := sessions.Filter{
		JobTitle: c.Query("job_title"),
		FileKind: c.Query("file_type"),
	}
	intParam := func(name string) (int, bool) {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			return 0, false
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			verr.add(name, "must be an integer")
			return 0, false
		}
		return v, true
	}
	if v, ok := intParam("min_score"); ok {
		f.MinScore = &v
	}
	if v, ok := intParam("max_score"); ok {
		f.MaxScore = &v
	}
	if v, ok := intParam("limit"); ok {
		f.Limit = v
	}
	if v, ok := intParam("offset"); ok {
		if v < 0 {
			verr.add("offset", "must not be negative")
		}
		f.Offset = v
	}
	if f.MinScore != nil && f.MaxScore != nil && *f.MinScore > *f.MaxScore {
		verr.add("min_score", "must not exceed max_score")
	}
	return f, verr.orNil()
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Svc.Stats(requestContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "stats": stats})
}

func (h *Handler) getSession(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	details, err := h.Svc.Get(requestContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"success":      true,
		"session":      details.Session,
		"enhancements": details.Enhancements,
	})
}

func (h *Handler) recommendations(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	recs, err := h.Svc.Recommendations(requestContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "session_id": id, "recommendations": recs})
}

func (h *Handler) download(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	file, err := h.Svc.Download(requestContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Attachment(c, file.Name, file.ContentType, file.Data)
}

func (h *Handler) originalFile(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	file, err := h.Svc.OriginalFile(requestContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Attachment(c, file.Name, file.ContentType, file.Data)
}

// writeError maps the error taxonomy onto HTTP responses.
func writeError(c *gin.Context, err error) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		c.Set(middleware.StageKey, string(stageErr.Stage))
	}

	var (
		verr     *ValidationError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeValidation, validationMessage(verr), verr.Issues)
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeValidation, err.Error(), nil)
	case errors.As(err, &tooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
			"Upload exceeds the "+strconv.FormatInt(tooLarge.Limit>>20, 10)+" MB limit.", nil)
	case errors.Is(err, extract.ErrUnsupportedMediaType):
		respond.Error(c, http.StatusBadRequest, ErrorCodeUnsupportedMedia,
			"Unsupported file type. Please upload a PDF, DOCX, TXT, JPEG or PNG file.",
			map[string]any{"allowed": extract.AllowedMediaTypes()})
	case errors.Is(err, extract.ErrOCRUnavailable):
		respond.Error(c, http.StatusInternalServerError, ErrorCodeOCRUnavailable, "Image text extraction is not available on this server.", nil)
	case errors.Is(err, extract.ErrExtraction):
		respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeExtraction, "Could not extract text from the file: "+err.Error(), nil)
	case errors.Is(err, llm.ErrAnalysisService):
		respond.Error(c, http.StatusInternalServerError, ErrorCodeAnalysis, "CV analysis failed. Please try again later.", nil)
	case errors.Is(err, sessions.ErrNotFound):
		respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "Session not found.", nil)
	case errors.Is(err, sessions.ErrStoreWrite), errors.Is(err, sessions.ErrStoreRead):
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "Session storage failed.", nil)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusGatewayTimeout, ErrorCodeTimeout, "The request timed out.", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "Internal error.", nil)
	}
}

func validationMessage(verr *ValidationError) string {
	parts := make([]string, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		parts = append(parts, issue.Field+": "+issue.Issue)
	}
	return "Invalid request. " + strings.Join(parts, "; ")
}
