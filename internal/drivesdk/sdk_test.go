package drivesdk

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorSentinels(t *testing.T) {
	assert.ErrorIs(t, NewAPIError(CodeObjectNotFound, "gone"), ErrObjectNotFound)
	assert.ErrorIs(t, NewAPIError(CodeFolderNotFound, "gone"), ErrObjectNotFound)
	assert.ErrorIs(t, NewAPIError(CodeAccessDenied, "nope"), ErrAccessDenied)
	assert.ErrorIs(t, NewAPIError(CodeSessionExpired, "stale"), ErrSessionExpired)
	assert.NotErrorIs(t, NewAPIError(CodeRateLimited, "slow down"), ErrObjectNotFound)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *DriveClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewDriveClient(server.URL, "test-token")
	require.NoError(t, err)
	return client
}

func TestDriveClient_EnsureFolder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, v1DriveFolders, r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get(HeaderRequestId))
		require.NotEmpty(t, r.Header.Get(HeaderUpdriveVersion))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"name":"backups"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"fld_1","name":"backups"}`))
	})

	id, err := client.EnsureFolder(context.Background(), "backups")
	require.NoError(t, err)
	assert.Equal(t, "fld_1", id)
}

func TestDriveClient_CreateObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, v1DriveObjects, r.URL.Path)
		require.Equal(t, "fld_1", r.URL.Query().Get("folderId"))
		require.Equal(t, "docs/hello.txt", r.URL.Query().Get("name"))
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "hello world", string(content))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"obj_1","name":"docs/hello.txt","size":11,"updatedAt":"2026-01-02T03:04:05Z"}`))
	})

	info, err := client.CreateObject(context.Background(), &CreateObjectParams{
		FolderID: "fld_1",
		Name:     "docs/hello.txt",
		Body:     strings.NewReader("hello world"),
		Size:     11,
	})
	require.NoError(t, err)
	assert.Equal(t, "obj_1", info.ID)
	assert.Equal(t, int64(11), info.Size)
}

func TestDriveClient_DeleteObjectNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/api/v1/drive/objects/obj_1", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"E_OBJECT_NOT_FOUND","error":"no such object"}`))
	})

	err := client.DeleteObject(context.Background(), "obj_1")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestDriveClient_UploadChunkCommit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/v1/drive/uploads/sess_1", r.URL.Path)
		require.Equal(t, "bytes 8-12/13", r.Header.Get("Content-Range"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, "world", string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"received":13,"object":{"id":"obj_9","name":"hello.txt","size":13,"updatedAt":"2026-01-02T03:04:05Z"}}`))
	})

	ack, err := client.UploadChunk(context.Background(), &UploadChunkParams{
		SessionID: "sess_1",
		Offset:    8,
		Data:      []byte("world"),
		ChunkSize: 8,
		Total:     13,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(13), ack.Received)
	require.NotNil(t, ack.Object)
	assert.Equal(t, "obj_9", ack.Object.ID)
}

func TestDriveClient_UploadChunkSessionGone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	_, err := client.UploadChunk(context.Background(), &UploadChunkParams{
		SessionID: "sess_1",
		Offset:    0,
		Data:      []byte("hello"),
		ChunkSize: 8,
		Total:     16,
	})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestDriveClient_UploadChunkSessionGoneGarbledBody(t *testing.T) {
	// a 410 whose body is not JSON still means the session is gone,
	// not that the remote is unreachable
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGone)
		w.Write([]byte("\x00\x00garbage"))
	})

	_, err := client.UploadChunk(context.Background(), &UploadChunkParams{
		SessionID: "sess_1",
		Offset:    0,
		Data:      []byte("hello"),
		ChunkSize: 8,
		Total:     16,
	})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.NotErrorIs(t, err, ErrUnreachable)
}

func TestDriveClient_DeleteObjectNotFoundGarbledBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not json"))
	})

	err := client.DeleteObject(context.Background(), "obj_1")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.NotErrorIs(t, err, ErrUnreachable)
}

func TestDriveClient_Unreachable(t *testing.T) {
	// a port that is closed again by the time the request goes out
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client, err := NewDriveClient("http://"+addr, "")
	require.NoError(t, err)

	_, err = client.EnsureFolder(context.Background(), "backups")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestMapS3Error(t *testing.T) {
	assert.NoError(t, mapS3Error("op", nil))

	notFound := &smithy.GenericAPIError{Code: "NoSuchKey", Message: "no key"}
	assert.ErrorIs(t, mapS3Error("op", notFound), ErrObjectNotFound)

	gone := &smithy.GenericAPIError{Code: "NoSuchUpload", Message: "no upload"}
	assert.ErrorIs(t, mapS3Error("op", gone), ErrSessionExpired)

	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}
	assert.ErrorIs(t, mapS3Error("op", denied), ErrAccessDenied)

	throttled := mapS3Error("op", &smithy.GenericAPIError{Code: "SlowDown", Message: "throttle"})
	assert.Error(t, throttled)
	assert.NotErrorIs(t, throttled, ErrObjectNotFound)
	assert.NotErrorIs(t, throttled, ErrUnreachable)

	assert.ErrorIs(t, mapS3Error("op", errors.New("dial tcp: connection refused")), ErrUnreachable)
	assert.ErrorIs(t, mapS3Error("op", context.Canceled), context.Canceled)
	assert.NotErrorIs(t, mapS3Error("op", context.Canceled), ErrUnreachable)
}

func TestSessionIDRoundTrip(t *testing.T) {
	id := joinSessionID("upload-123", "backups/docs/a.txt")
	uploadID, key, err := splitSessionID(id)
	require.NoError(t, err)
	assert.Equal(t, "upload-123", uploadID)
	assert.Equal(t, "backups/docs/a.txt", key)

	_, _, err = splitSessionID("no-separator")
	assert.Error(t, err)
}
