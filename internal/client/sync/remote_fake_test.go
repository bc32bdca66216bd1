package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/updrive/updrive/internal/drivesdk"
)

// fakeRemote implements drivesdk.Remote in memory and logs every call so
// tests can assert exactly which remote operations ran.
type fakeRemote struct {
	mu sync.Mutex

	calls    []string
	objects  map[string][]byte
	names    map[string]string
	folders  map[string]string
	sessions map[string]*fakeSession
	nextID   int

	ensureFolderErr error
	createErr       error
	updateErr       error
	deleteErr       error
	sessionErr      error
	chunkErr        error
	failChunkAt     int  // 1-based chunk call that returns chunkErr, 0 = never
	stallChunks     bool // ack chunks without advancing the offset
	chunkCalls      int
}

type fakeSession struct {
	folderID string
	name     string
	objectID string
	size     int64
	buf      bytes.Buffer
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		objects:  make(map[string][]byte),
		names:    make(map[string]string),
		folders:  make(map[string]string),
		sessions: make(map[string]*fakeSession),
	}
}

func (f *fakeRemote) log(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the remote op log.
func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeRemote) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeRemote) Object(id string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[id]
	return data, ok
}

func (f *fakeRemote) EnsureFolder(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("EnsureFolder(%s)", name)
	if f.ensureFolderErr != nil {
		return "", f.ensureFolderErr
	}
	if id, ok := f.folders[name]; ok {
		return id, nil
	}
	f.nextID++
	id := fmt.Sprintf("folder-%d", f.nextID)
	f.folders[name] = id
	return id, nil
}

func (f *fakeRemote) CreateObject(ctx context.Context, params *drivesdk.CreateObjectParams) (*drivesdk.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("CreateObject(%s)", params.Name)
	if f.createErr != nil {
		return nil, f.createErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.nextID++
	id := fmt.Sprintf("obj-%d", f.nextID)
	f.objects[id] = data
	f.names[id] = params.Name
	return f.objectInfoLocked(id), nil
}

func (f *fakeRemote) UpdateObject(ctx context.Context, params *drivesdk.UpdateObjectParams) (*drivesdk.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("UpdateObject(%s)", params.ObjectID)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if _, ok := f.objects[params.ObjectID]; !ok {
		return nil, drivesdk.ErrObjectNotFound
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[params.ObjectID] = data
	return f.objectInfoLocked(params.ObjectID), nil
}

func (f *fakeRemote) DeleteObject(ctx context.Context, objectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DeleteObject(%s)", objectID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.objects[objectID]; !ok {
		return drivesdk.ErrObjectNotFound
	}
	delete(f.objects, objectID)
	delete(f.names, objectID)
	return nil
}

func (f *fakeRemote) CreateUploadSession(ctx context.Context, params *drivesdk.UploadSessionParams) (*drivesdk.UploadSessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if params.ObjectID != "" {
		f.log("CreateUploadSession(%s, update=%s)", params.Name, params.ObjectID)
	} else {
		f.log("CreateUploadSession(%s)", params.Name)
	}
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	if params.ObjectID != "" {
		// an update session needs a live object behind the id
		if _, ok := f.objects[params.ObjectID]; !ok {
			return nil, drivesdk.ErrObjectNotFound
		}
	}
	f.nextID++
	id := fmt.Sprintf("sess-%d", f.nextID)
	f.sessions[id] = &fakeSession{
		folderID: params.FolderID,
		name:     params.Name,
		objectID: params.ObjectID,
		size:     params.Size,
	}
	return &drivesdk.UploadSessionInfo{SessionID: id, Offset: 0}, nil
}

func (f *fakeRemote) UploadChunk(ctx context.Context, params *drivesdk.UploadChunkParams) (*drivesdk.ChunkAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkCalls++
	f.log("UploadChunk(%s, %d)", params.SessionID, params.Offset)
	if f.failChunkAt > 0 && f.chunkCalls == f.failChunkAt && f.chunkErr != nil {
		return nil, f.chunkErr
	}
	sess, ok := f.sessions[params.SessionID]
	if !ok {
		return nil, drivesdk.ErrSessionExpired
	}
	if params.Offset != int64(sess.buf.Len()) {
		return nil, fmt.Errorf("chunk offset %d does not match session offset %d", params.Offset, sess.buf.Len())
	}
	if f.stallChunks {
		return &drivesdk.ChunkAck{Received: params.Offset}, nil
	}
	sess.buf.Write(params.Data)

	received := int64(sess.buf.Len())
	ack := &drivesdk.ChunkAck{Received: received}
	if received >= params.Total {
		id := sess.objectID
		if id == "" {
			f.nextID++
			id = fmt.Sprintf("obj-%d", f.nextID)
		}
		f.objects[id] = sess.buf.Bytes()
		f.names[id] = sess.name
		delete(f.sessions, params.SessionID)
		ack.Object = f.objectInfoLocked(id)
	}
	return ack, nil
}

func (f *fakeRemote) objectInfoLocked(id string) *drivesdk.ObjectInfo {
	return &drivesdk.ObjectInfo{
		ID:        id,
		Name:      f.names[id],
		Size:      int64(len(f.objects[id])),
		UpdatedAt: time.Now(),
	}
}
