package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/utils"
)

// FileController accepts uploads and serves stored files.
type FileController struct {
	files    *services.FileService
	maxBytes int64
}

// NewFileController creates a FileController; maxBytes caps the multipart body.
func NewFileController(files *services.FileService, maxBytes int64) *FileController {
	return &FileController{files: files, maxBytes: maxBytes}
}

// Upload stores the multipart "file" field for the current user.
func (f *FileController) Upload(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	if f.maxBytes > 0 {
		// Leave room for multipart framing around the file part.
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, f.maxBytes+1<<20)
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(ctx, services.ErrFileTooLarge, 13)
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40011, "missing file")
		return
	}
	if f.maxBytes > 0 && fh.Size > f.maxBytes {
		respondError(ctx, services.ErrFileTooLarge, 13)
		return
	}

	src, err := fh.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "failed to read upload")
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "failed to read upload")
		return
	}

	// the multipart header is client controlled; sniff the bytes instead
	file, err := f.files.Upload(ctx.Request.Context(), actor, fh.Filename, http.DetectContentType(data), data)
	if err != nil {
		respondError(ctx, err, 14)
		return
	}
	utils.Created(ctx, gin.H{"file": file, "url": "/api/v1/files/" + strconv.Itoa(int(file.ID))})
}

// inlineTypes may render in the browser; everything else downloads as an attachment.
var inlineTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"text/plain":      true,
	"application/pdf": true,
}

// Download streams a stored file. Only allowlisted types are served inline.
func (f *FileController) Download(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	file, data, err := f.files.Open(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, 15)
		return
	}
	contentType := http.DetectContentType(data)
	disposition := "attachment"
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && inlineTypes[mediaType] {
		disposition = "inline"
	} else {
		contentType = "application/octet-stream"
	}
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": file.Filename}))
	ctx.Data(http.StatusOK, contentType, data)
}

// Mine lists the current user's uploads.
func (f *FileController) Mine(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	files, err := f.files.ListForUser(ctx.Request.Context(), actor.UserID)
	if err != nil {
		respondError(ctx, err, 16)
		return
	}
	utils.Success(ctx, gin.H{"items": files})
}
