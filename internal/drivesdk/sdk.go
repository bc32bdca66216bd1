// Package drivesdk talks to the remote drive. The engine only sees the
// Remote interface; the concrete transport is picked by config.
package drivesdk

import (
	"context"
	"fmt"
)

const (
	// BackendAPI is the UpDrive HTTP API.
	BackendAPI = "api"
	// BackendS3 writes straight to an S3-compatible bucket.
	BackendS3 = "s3"
)

// Remote is the capability surface the sync engine uses. Implementations
// must be safe for use from a single goroutine at a time.
type Remote interface {
	// EnsureFolder resolves or creates the destination folder and returns
	// its id. Calling it again with the same name returns the same folder.
	EnsureFolder(ctx context.Context, name string) (string, error)

	// CreateObject uploads a new object in one request and returns its info.
	CreateObject(ctx context.Context, params *CreateObjectParams) (*ObjectInfo, error)

	// UpdateObject replaces the content of an existing object, keeping its
	// identity. Returns ErrObjectNotFound if the id no longer exists.
	UpdateObject(ctx context.Context, params *UpdateObjectParams) (*ObjectInfo, error)

	// DeleteObject removes an object. Returns ErrObjectNotFound if the id
	// no longer exists.
	DeleteObject(ctx context.Context, objectID string) error

	// CreateUploadSession starts a chunked upload and returns its id.
	CreateUploadSession(ctx context.Context, params *UploadSessionParams) (*UploadSessionInfo, error)

	// UploadChunk sends one chunk. The ack reports the acked offset; the
	// chunk that reaches params.Total commits the session and the ack
	// carries the resulting object. Returns ErrSessionExpired if the remote
	// no longer knows the session.
	UploadChunk(ctx context.Context, params *UploadChunkParams) (*ChunkAck, error)
}

// RemoteConfig selects and configures a Remote backend.
type RemoteConfig struct {
	Backend   string
	ServerURL string
	Token     string
	S3        *S3Config
}

// New creates a Remote for the configured backend.
func New(cfg *RemoteConfig) (Remote, error) {
	switch cfg.Backend {
	case BackendAPI, "":
		return NewDriveClient(cfg.ServerURL, cfg.Token)
	case BackendS3:
		return NewS3Remote(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
	}
}
