package drivesdk

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/updrive/updrive/internal/version"
)

const (
	HeaderUserAgent       = "User-Agent"
	HeaderUpdriveVersion  = "X-Updrive-Version"
	HeaderUpdriveDeviceId = "X-Updrive-Device-Id"
	HeaderRequestId       = "X-Request-Id"
)

var UpdriveUserAgent = fmt.Sprintf("UpDrive/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// ObjectInfo describes a remote object after a create, update or commit.
type ObjectInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	ETag      string    `json:"etag,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FolderInfo describes a remote folder.
type FolderInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateObjectParams are the inputs for a single-shot object create.
type CreateObjectParams struct {
	FolderID string
	Name     string
	Body     io.Reader
	Size     int64
}

// UpdateObjectParams are the inputs for a single-shot in-place content update.
type UpdateObjectParams struct {
	ObjectID string
	Body     io.Reader
	Size     int64
}

// UploadSessionParams are the inputs for starting a chunked upload.
// ObjectID set means the session updates that object in place; empty means
// the commit creates a new object under FolderID.
type UploadSessionParams struct {
	FolderID string `json:"folderId,omitempty"`
	Name     string `json:"name"`
	ObjectID string `json:"objectId,omitempty"`
	Size     int64  `json:"size"`
}

// UploadSessionInfo identifies a chunked upload in progress.
type UploadSessionInfo struct {
	SessionID string `json:"sessionId"`
	Offset    int64  `json:"offset"`
}

// UploadChunkParams carry one chunk of a session. Offset is the absolute
// byte offset of Data within the object. ChunkSize is the session's fixed
// chunk size (the last chunk may be shorter). Total is the object size;
// the chunk ending at Total commits the session.
type UploadChunkParams struct {
	SessionID string
	Offset    int64
	Data      []byte
	ChunkSize int64
	Total     int64
}

// ChunkAck reports how far the remote has acked. Object is set once the
// final chunk commits the session.
type ChunkAck struct {
	Received int64       `json:"received"`
	Object   *ObjectInfo `json:"object,omitempty"`
}
