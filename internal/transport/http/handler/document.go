package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ragapi/internal/app"
	"ragapi/internal/extract"
	"ragapi/internal/transport/http/middleware"
	"ragapi/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

type DocumentHandler struct {
	ingest *app.IngestService
}

func NewDocumentHandler(ingest *app.IngestService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest}
}

// Upload accepts a multipart file plus doc_type and stages it for async
// ingestion; it responds as soon as the job is queued.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	docType := strings.TrimSpace(c.PostForm("doc_type"))
	uploadedBy := strings.TrimSpace(c.PostForm("uploaded_by"))
	if uploadedBy == "" {
		if info, ok := middleware.KeyInfoFromContext(c); ok {
			uploadedBy = info.UserID
		}
	}

	doc, err := h.ingest.Accept(c.Request.Context(), file.Filename, docType, uploadedBy, data)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid upload")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload failed: "+err.Error())
		}
		return
	}

	response.Accepted(c, gin.H{
		"status":   "uploaded",
		"filename": doc.Filename,
		"message":  "document is being processed in background",
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.ingest.Documents(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}

func (h *DocumentHandler) Status(c *gin.Context) {
	filename := c.Param("filename")
	doc, err := h.ingest.Status(filename)
	if err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "document not found")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		}
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.ingest.Delete(c.Request.Context(), filename); err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid filename")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete failed: "+err.Error())
		}
		return
	}
	response.OK(c, gin.H{
		"status":   "deleted",
		"filename": filename,
	})
}
