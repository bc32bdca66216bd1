package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/updrive/updrive/internal/drivesdk"
)

const (
	// DefaultSingleShotMax is the largest file sent in one request.
	// Anything bigger goes through a resumable chunk session.
	DefaultSingleShotMax = int64(32 * 1024 * 1024)

	// DefaultChunkSize for resumable uploads.
	DefaultChunkSize = int64(8 * 1024 * 1024)
)

// UploadRequest describes one file the engine wants on the remote.
// RemoteID set means update that object in place.
type UploadRequest struct {
	AbsPath     string
	RelPath     string
	FolderID    string
	RemoteID    string
	Fingerprint string
}

// UploadManager moves file content to the remote. Small files go up in a
// single request; large ones through a chunked session whose progress is
// persisted after every acked chunk, so a crash or network loss resumes
// from the last acked offset instead of byte zero. Failed uploads are
// never retried here; the next file event triggers the next attempt.
type UploadManager struct {
	remote        drivesdk.Remote
	sessions      *SessionStore
	singleShotMax int64
	chunkSize     int64
}

func NewUploadManager(remote drivesdk.Remote, sessions *SessionStore, singleShotMax int64, chunkSize int64) *UploadManager {
	if singleShotMax <= 0 {
		singleShotMax = DefaultSingleShotMax
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &UploadManager{
		remote:        remote,
		sessions:      sessions,
		singleShotMax: singleShotMax,
		chunkSize:     chunkSize,
	}
}

func (u *UploadManager) Upload(ctx context.Context, req *UploadRequest) (*drivesdk.ObjectInfo, error) {
	info, err := os.Stat(req.AbsPath)
	if err != nil {
		return nil, err
	}
	size := info.Size()

	if size <= u.singleShotMax {
		return u.singleShot(ctx, req, size)
	}
	return u.chunked(ctx, req, size)
}

func (u *UploadManager) singleShot(ctx context.Context, req *UploadRequest, size int64) (*drivesdk.ObjectInfo, error) {
	file, err := os.Open(req.AbsPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if req.RemoteID != "" {
		obj, err := u.remote.UpdateObject(ctx, &drivesdk.UpdateObjectParams{
			ObjectID: req.RemoteID,
			Body:     file,
			Size:     size,
		})
		if err == nil {
			return obj, nil
		}
		if !errors.Is(err, drivesdk.ErrObjectNotFound) {
			return nil, err
		}

		// the mapped object is gone on the remote, recreate it
		slog.Warn("remote object missing, creating anew", "path", req.RelPath, "remoteId", req.RemoteID)
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind %s: %w", req.AbsPath, err)
		}
	}

	return u.remote.CreateObject(ctx, &drivesdk.CreateObjectParams{
		FolderID: req.FolderID,
		Name:     req.RelPath,
		Body:     file,
		Size:     size,
	})
}

func (u *UploadManager) chunked(ctx context.Context, req *UploadRequest, size int64) (*drivesdk.ObjectInfo, error) {
	session, err := u.sessions.Load(req.RelPath, req.Fingerprint)
	if err != nil {
		return nil, err
	}

	if session == nil {
		params := &drivesdk.UploadSessionParams{
			FolderID: req.FolderID,
			Name:     req.RelPath,
			ObjectID: req.RemoteID,
			Size:     size,
		}
		remoteSession, err := u.remote.CreateUploadSession(ctx, params)
		if err != nil && params.ObjectID != "" && errors.Is(err, drivesdk.ErrObjectNotFound) {
			// the mapped object is gone on the remote, recreate it
			slog.Warn("remote object missing, creating anew", "path", req.RelPath, "remoteId", req.RemoteID)
			params.ObjectID = ""
			remoteSession, err = u.remote.CreateUploadSession(ctx, params)
		}
		if err != nil {
			return nil, err
		}

		session = &UploadSession{
			SessionID:   remoteSession.SessionID,
			Path:        req.RelPath,
			RemoteID:    params.ObjectID,
			Fingerprint: req.Fingerprint,
			Size:        size,
			ChunkSize:   u.chunkSize,
			Offset:      remoteSession.Offset,
		}
		if err := u.sessions.Save(session); err != nil {
			return nil, err
		}
		slog.Info("upload session started", "path", req.RelPath,
			"size", humanize.Bytes(uint64(size)),
			"chunk", humanize.Bytes(uint64(session.ChunkSize)))
	} else {
		slog.Info("upload session resumed", "path", req.RelPath,
			"offset", humanize.Bytes(uint64(session.Offset)),
			"size", humanize.Bytes(uint64(size)))
	}

	file, err := os.Open(req.AbsPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, session.ChunkSize)
	for session.Offset < size {
		chunkLen := session.ChunkSize
		if remaining := size - session.Offset; remaining < chunkLen {
			chunkLen = remaining
		}

		chunk := buf[:chunkLen]
		if _, err := io.ReadFull(io.NewSectionReader(file, session.Offset, chunkLen), chunk); err != nil {
			return nil, fmt.Errorf("read chunk at %d: %w", session.Offset, err)
		}

		ack, err := u.remote.UploadChunk(ctx, &drivesdk.UploadChunkParams{
			SessionID: session.SessionID,
			Offset:    session.Offset,
			Data:      chunk,
			ChunkSize: session.ChunkSize,
			Total:     size,
		})
		if err != nil {
			if errors.Is(err, drivesdk.ErrSessionExpired) {
				_ = u.sessions.Remove(req.RelPath)
			}
			return nil, err
		}
		if ack.Received <= session.Offset {
			return nil, fmt.Errorf("remote acked %d but upload is already at %d", ack.Received, session.Offset)
		}

		session.Offset = ack.Received
		if err := u.sessions.Save(session); err != nil {
			return nil, err
		}

		slog.Debug("upload chunk acked", "path", req.RelPath,
			"sent", humanize.Bytes(uint64(session.Offset)),
			"total", humanize.Bytes(uint64(size)))

		if ack.Object != nil {
			_ = u.sessions.Remove(req.RelPath)
			return ack.Object, nil
		}
	}

	_ = u.sessions.Remove(req.RelPath)
	return nil, fmt.Errorf("upload session %s ended without a committed object", session.SessionID)
}
