package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/storage/files"
	"github.com/stretchr/testify/require"
)

var onePixelPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func uploadsMux(h *UploadsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/admin/uploads", h.List)
	mux.HandleFunc("POST /api/v1/admin/uploads", h.Upload)
	mux.HandleFunc("DELETE /api/v1/admin/uploads/{name}", h.Delete)
	mux.HandleFunc("GET /uploads/{name}", h.Serve)
	return mux
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return withClaims(req, adminID, "editor", auth.RoleEditor)
}

func TestUploadsHandler(t *testing.T) {
	app := newTestApp(t)
	mux := uploadsMux(NewUploadsHandler(app.files, app.audit, "test"))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, uploadRequest(t, "file", "Office.PNG", onePixelPNG))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uploaded := decodeJSONBody[uploadResponse](t, w)
	require.Equal(t, "/uploads/"+uploaded.Name, uploaded.URL)

	t.Run("served publicly with long cache", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, uploaded.URL, nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "image/png", w.Header().Get("Content-Type"))
		require.Equal(t, "public, max-age=31536000, immutable", w.Header().Get("Cache-Control"))
		require.Equal(t, onePixelPNG, w.Body.Bytes())
	})

	t.Run("listed", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/uploads", nil))
		require.Equal(t, http.StatusOK, w.Code)
		items := decodeJSONBody[listResponse[files.Info]](t, w).Items
		require.Len(t, items, 1)
		require.Equal(t, uploaded.Name, items[0].Name)
	})

	t.Run("resumes are not public", func(t *testing.T) {
		name, err := app.files.Save(context.Background(), "cv.pdf", bytes.NewReader([]byte("%PDF-1.4\nprivate\n")),
			1<<20, []string{".pdf"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/"+name, nil))
		require.Equal(t, http.StatusNotFound, w.Code)

		w = httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodDelete, "/api/v1/admin/uploads/"+name, nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects mismatched content", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, uploadRequest(t, "file", "photo.png", []byte("<html>not an image</html>")))
		require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("requires the file field", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, uploadRequest(t, "image", "photo.png", onePixelPNG))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodDelete, "/api/v1/admin/uploads/"+uploaded.Name, nil))
		require.Equal(t, http.StatusNoContent, w.Code)

		w = httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, uploaded.URL, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
