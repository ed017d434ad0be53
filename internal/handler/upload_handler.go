package handler

import (
	"globalgigs/internal/storage"
	"globalgigs/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	uploads *storage.Uploads
}

func NewUploadHandler(uploads *storage.Uploads) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Presign returns a URL the browser PUTs the file to directly.
func (h *UploadHandler) Presign(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	var req httpdto.PresignUploadRequest
	if !bind(c, &req) {
		return
	}
	up, err := h.uploads.PresignUpload(c.Request.Context(), userID, storage.Kind(req.Kind), req.ContentType, req.Size)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, up)
}
