package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/internal/application"
	"github.com/maplify-tech/whiteboard/internal/domain/entity"
	"github.com/maplify-tech/whiteboard/internal/interface/middleware"
	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
	"github.com/maplify-tech/whiteboard/pkg/boardfile"
	"github.com/maplify-tech/whiteboard/pkg/response"
)

type BoardHandler struct {
	Svc    *application.BoardService
	Logger *logrus.Logger
}

func NewBoardHandler(svc *application.BoardService, logger *logrus.Logger) *BoardHandler {
	return &BoardHandler{Svc: svc, Logger: logger}
}

func (h *BoardHandler) List(c *gin.Context) {
	uid := middleware.Principal(c).UserID
	boards, err := h.Svc.List(c.Request.Context(), uid, application.ListFilter{Query: c.Query("q"), Tag: c.Query("tag")})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out := make([]boarddoc.Metadata, 0, len(boards))
	for _, b := range boards {
		out = append(out, b.Metadata())
	}
	response.Success(c, http.StatusOK, gin.H{"boards": out})
}

func (h *BoardHandler) Get(c *gin.Context) {
	b, err := h.Svc.Get(c.Request.Context(), middleware.Principal(c).UserID, c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respondBoard(c, http.StatusOK, b)
}

func (h *BoardHandler) Create(c *gin.Context) {
	var req application.CreateBoardInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	b, err := h.Svc.Create(c.Request.Context(), middleware.Principal(c).UserID, req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respondBoard(c, http.StatusCreated, b)
}

func (h *BoardHandler) Update(c *gin.Context) {
	var req application.UpdateBoardInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	b, err := h.Svc.Update(c.Request.Context(), middleware.Principal(c).UserID, c.Param("id"), req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respondBoard(c, http.StatusOK, b)
}

func (h *BoardHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.Principal(c).UserID, c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Message(c, http.StatusOK, "Board deleted successfully")
}

func (h *BoardHandler) Duplicate(c *gin.Context) {
	b, err := h.Svc.Duplicate(c.Request.Context(), middleware.Principal(c).UserID, c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respondBoard(c, http.StatusCreated, b)
}

func (h *BoardHandler) Export(c *gin.Context) {
	content, b, err := h.Svc.Export(c.Request.Context(), middleware.Principal(c).UserID, c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	attachment(c, boardfile.FileName(b.Name), content)
}

func (h *BoardHandler) ExportAll(c *gin.Context) {
	content, err := h.Svc.ExportAll(c.Request.Context(), middleware.Principal(c).UserID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	attachment(c, boardfile.BackupFileName(h.Svc.Now()), content)
}

// Import accepts an export envelope either as the raw JSON body or as a
// multipart "file" field.
func (h *BoardHandler) Import(c *gin.Context) {
	content, err := readImport(c)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(c, h.Logger, err)
			return
		}
		response.Error(c, http.StatusBadRequest, application.ErrImportFormat.Error(), nil)
		return
	}
	boards, err := h.Svc.Import(c.Request.Context(), middleware.Principal(c).UserID, content)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out := make([]boarddoc.Board, 0, len(boards))
	for _, b := range boards {
		out = append(out, b.Wire())
	}
	response.Success(c, http.StatusCreated, gin.H{"boards": out})
}

func (h *BoardHandler) UploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(c, h.Logger, err)
			return
		}
		response.Error(c, http.StatusBadRequest, application.ErrValidation.Error(), map[string]string{"file": "is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	ref, err := h.Svc.UploadFile(c.Request.Context(), middleware.Principal(c).UserID, c.Param("id"),
		fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"file": ref})
}

func (h *BoardHandler) GetFile(c *gin.Context) {
	obj, err := h.Svc.OpenFile(c.Request.Context(), middleware.Principal(c).UserID, c.Param("id"), c.Param("fileId"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	defer func() { _ = obj.Body.Close() }()
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, map[string]string{
		"Cache-Control": "private, max-age=31536000, immutable",
	})
}

func respondBoard(c *gin.Context, status int, b *entity.Board) {
	response.Success(c, status, gin.H{"board": b.Wire()})
}

func attachment(c *gin.Context, filename string, content []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(filename, `"`, "")+`"`)
	c.Data(http.StatusOK, "application/json", content)
}

func readImport(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return io.ReadAll(f)
	}
	return io.ReadAll(c.Request.Body)
}
