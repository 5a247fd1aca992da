package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/multimodal-agent/server/internal/domain"
)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadFile stores a multipart "file" image and records it for the caller.
func (a *App) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+(1<<20))
	src, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", a.tooLargeMessage())
			return
		}
		a.error(w, http.StatusBadRequest, "INVALID_REQUEST", "multipart field \"file\" is required")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, a.MaxUploadBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "INVALID_REQUEST", "failed to read upload")
		return
	}
	if int64(len(data)) > a.MaxUploadBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", a.tooLargeMessage())
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "INVALID_REQUEST", "file is empty")
		return
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		a.error(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			fmt.Sprintf("unsupported file type %q; upload a PNG, JPEG, GIF or WebP image", contentType))
		return
	}

	fileID := a.newID()
	key := path.Join("uploads", userID, fileID+ext)
	stored, err := a.Store.Put(r.Context(), key, data, contentType)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Str("key", key).Msg("upload: store failed")
		a.error(w, http.StatusBadGateway, "STORAGE_ERROR", "failed to store file")
		return
	}

	file := &domain.File{
		ID:          fileID,
		UserID:      userID,
		Filename:    cleanFilename(header.Filename, ext),
		ContentType: contentType,
		Size:        int64(len(data)),
		StoragePath: stored,
		CreatedAt:   a.now(),
	}
	if err := a.Files.Create(r.Context(), file); err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("upload: insert file failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to record file")
		return
	}

	a.Logger.Info().
		Str("user_id", userID).
		Str("file_id", fileID).
		Int64("size", file.Size).
		Str("content_type", contentType).
		Msg("upload: file stored")
	a.json(w, http.StatusCreated, file)
}

func (a *App) tooLargeMessage() string {
	return fmt.Sprintf("file exceeds the %d MB upload limit", a.MaxUploadBytes>>20)
}

// cleanFilename keeps the base name of the client-supplied filename.
func cleanFilename(name, ext string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload" + ext
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
