package mockuploader_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/nrf-quote/cache"
	"github.com/jrsteele09/nrf-quote/upload"
	"github.com/jrsteele09/nrf-quote/upload/mockuploader"
	"github.com/stretchr/testify/require"
)

type delivered struct {
	url string
	cb  upload.Callback
}

func newMock(t *testing.T) (*mockuploader.Uploader, *http.ServeMux, chan delivered) {
	t.Helper()
	store := cache.NewMemory(0)
	t.Cleanup(func() { _ = store.Close() })

	calls := make(chan delivered, 1)
	u := mockuploader.New(store, "test-bucket", time.Hour, nil,
		mockuploader.WithDispatcher(func(_ context.Context, url string, cb upload.Callback) {
			calls <- delivered{url: url, cb: cb}
		}))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload-and-scan/{uploadId}", u.HandleUpload)
	mux.HandleFunc("GET /mock-uploader/status/{uploadId}", u.HandleStatus)
	return u, mux, calls
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestMockUploader(t *testing.T) {
	ctx := context.Background()
	u, mux, calls := newMock(t)

	initiated, err := u.Initiate(ctx, upload.InitiateRequest{
		Redirect: "/upload-received",
		Callback: "http://localhost:3000/rlb-upload/callback",
		Metadata: map[string]any{"sessionId": "sess-1", "source": "rlb-upload"},
	})
	require.NoError(t, err)
	require.Equal(t, "/upload-and-scan/"+initiated.UploadID, initiated.UploadURL)
	require.Equal(t, "/mock-uploader/status/"+initiated.UploadID, initiated.StatusURL)

	status, err := u.Status(ctx, initiated.UploadID)
	require.NoError(t, err)
	require.Equal(t, "pending", status.UploadStatus)

	body, contentType := multipartBody(t, "file", "boundary.geojson", []byte(`{"type":"FeatureCollection"}`))
	req := httptest.NewRequest(http.MethodPost, initiated.UploadURL, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/upload-received", rec.Header().Get("Location"))

	call := <-calls
	require.Equal(t, "http://localhost:3000/rlb-upload/callback", call.url)
	require.Equal(t, upload.FileStatusComplete, call.cb.FileStatus)
	require.Equal(t, "boundary.geojson", call.cb.Filename)
	require.Equal(t, "test-bucket", call.cb.S3Bucket)
	require.Contains(t, call.cb.S3Key, "rlb/uploads/"+initiated.UploadID+"/")
	require.Equal(t, "sess-1", call.cb.SessionID())
	require.NotNil(t, call.cb.ContentLength)
	require.EqualValues(t, 28, *call.cb.ContentLength)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, initiated.StatusURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got upload.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "ready", got.UploadStatus)
	require.Equal(t, "boundary.geojson", got.Form["file"].Filename)
}

func TestMockUploaderUnknownUpload(t *testing.T) {
	_, mux, _ := newMock(t)

	body, contentType := multipartBody(t, "file", "a.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload-and-scan/nope", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mock-uploader/status/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPDispatcher(t *testing.T) {
	got := make(chan upload.Callback, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cb upload.Callback
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cb))
		got <- cb
	}))
	defer srv.Close()

	mockuploader.HTTPDispatcher(srv.Client())(context.Background(), srv.URL, upload.Callback{FileStatus: "complete", Filename: "a.zip"})

	select {
	case cb := <-got:
		require.Equal(t, "a.zip", cb.Filename)
	case <-time.After(5 * time.Second):
		t.Fatal("callback not delivered")
	}
}
