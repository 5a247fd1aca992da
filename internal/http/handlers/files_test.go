package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multimodal-agent/server/internal/domain"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadFile(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.routes(alice).ServeHTTP(rec, uploadRequest(t, "file", "../../chart.png", pngBytes))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var file domain.File
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &file))
	assert.Equal(t, "11111111-1111-4111-8111-111111111111", file.ID)
	assert.Equal(t, alice, file.UserID)
	assert.Equal(t, "chart.png", file.Filename)
	assert.Equal(t, "image/png", file.ContentType)
	assert.Equal(t, int64(len(pngBytes)), file.Size)

	wantKey := "uploads/" + alice + "/" + file.ID + ".png"
	assert.Equal(t, wantKey, file.StoragePath)
	assert.Equal(t, pngBytes, f.store.objects[wantKey])
	assert.Equal(t, "image/png", f.store.types[wantKey])

	stored, err := f.files.GetForUser(t.Context(), file.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, wantKey, stored.StoragePath)
}

func TestUploadFileRejects(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		data   []byte
		status int
		code   string
	}{
		{"wrong field", "image", pngBytes, http.StatusBadRequest, "INVALID_REQUEST"},
		{"empty", "file", nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"not an image", "file", []byte("print('hello')\n"), http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{"too large", "file", append(append([]byte{}, pngBytes...), make([]byte, 1<<20)...), http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := httptest.NewRecorder()
			f.routes(alice).ServeHTTP(rec, uploadRequest(t, tt.field, "x.png", tt.data))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
			assert.Empty(t, f.store.objects)
			assert.Empty(t, f.files.files)
		})
	}
}

func TestUploadFileStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.putErr = assert.AnError
	rec := httptest.NewRecorder()
	f.routes(alice).ServeHTTP(rec, uploadRequest(t, "file", "x.png", pngBytes))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "STORAGE_ERROR", decodeError(t, rec).Error.Code)
	assert.Empty(t, f.files.files)
}

func TestUploadFileRequiresUser(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.routes("").ServeHTTP(rec, uploadRequest(t, "file", "x.png", pngBytes))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCleanFilename(t *testing.T) {
	assert.Equal(t, "a.png", cleanFilename("a.png", ".png"))
	assert.Equal(t, "b.jpg", cleanFilename(`C:\tmp\b.jpg`, ".jpg"))
	assert.Equal(t, "upload.gif", cleanFilename("", ".gif"))
	assert.Equal(t, "upload.gif", cleanFilename("/", ".gif"))
}
