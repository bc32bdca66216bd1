package drivesdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/imroc/req/v3"
	"github.com/updrive/updrive/internal/utils"
	"github.com/updrive/updrive/internal/version"
)

const (
	v1DriveFolders    = "/api/v1/drive/folders"
	v1DriveObjects    = "/api/v1/drive/objects"
	v1DriveObjectByID = "/api/v1/drive/objects/{id}"
	v1DriveUploads    = "/api/v1/drive/uploads"
	v1DriveUploadByID = "/api/v1/drive/uploads/{id}"
)

// DriveClient is the HTTP API implementation of Remote.
type DriveClient struct {
	client *req.Client
}

var _ Remote = (*DriveClient)(nil)

// NewDriveClient creates a Remote backed by the UpDrive HTTP API.
// Requests are never retried; the engine's policy is to wait for the next
// file event instead.
func NewDriveClient(serverURL string, token string) (*DriveClient, error) {
	if serverURL == "" {
		return nil, ErrNoServerURL
	}
	if err := utils.ValidateURL(serverURL); err != nil {
		return nil, fmt.Errorf("sdk: %w", err)
	}

	client := req.C().
		SetBaseURL(serverURL).
		SetCommonRetryCount(0).
		SetUserAgent(UpdriveUserAgent).
		SetCommonHeader(HeaderUpdriveVersion, version.Version).
		SetCommonHeader(HeaderUpdriveDeviceId, utils.HWID).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		OnBeforeRequest(func(c *req.Client, r *req.Request) error {
			r.SetHeader(HeaderRequestId, uuid.NewString())
			return nil
		})

	if token != "" {
		client.SetCommonBearerAuthToken(token)
	}

	return &DriveClient{client: client}, nil
}

type ensureFolderRequest struct {
	Name string `json:"name"`
}

// EnsureFolder resolves or creates the destination folder. The server
// returns the existing folder when the name is already taken.
func (d *DriveClient) EnsureFolder(ctx context.Context, name string) (string, error) {
	var folder *FolderInfo
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(&ensureFolderRequest{Name: name}).
		SetSuccessResult(&folder).
		Post(v1DriveFolders)

	if err := handleAPIError(resp, err, "drive ensure folder"); err != nil {
		return "", err
	}
	if folder == nil || folder.ID == "" {
		return "", fmt.Errorf("drive ensure folder: empty folder id in response")
	}

	return folder.ID, nil
}

func (d *DriveClient) CreateObject(ctx context.Context, params *CreateObjectParams) (*ObjectInfo, error) {
	var info *ObjectInfo
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("folderId", params.FolderID).
		SetQueryParam("name", params.Name).
		SetFileReader("file", params.Name, params.Body).
		SetSuccessResult(&info).
		Post(v1DriveObjects)

	if err := handleAPIError(resp, err, "drive create object"); err != nil {
		return nil, err
	}
	if info == nil || info.ID == "" {
		return nil, fmt.Errorf("drive create object: empty object id in response")
	}

	return info, nil
}

func (d *DriveClient) UpdateObject(ctx context.Context, params *UpdateObjectParams) (*ObjectInfo, error) {
	var info *ObjectInfo
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("id", params.ObjectID).
		SetContentType("application/octet-stream").
		SetBody(params.Body).
		SetSuccessResult(&info).
		Put(v1DriveObjectByID)

	if err := handleAPIError(resp, err, "drive update object"); err != nil {
		return nil, err
	}
	if info == nil || info.ID == "" {
		return nil, fmt.Errorf("drive update object: empty object id in response")
	}

	return info, nil
}

func (d *DriveClient) DeleteObject(ctx context.Context, objectID string) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("id", objectID).
		Delete(v1DriveObjectByID)

	return handleAPIError(resp, err, "drive delete object")
}

func (d *DriveClient) CreateUploadSession(ctx context.Context, params *UploadSessionParams) (*UploadSessionInfo, error) {
	var session *UploadSessionInfo
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&session).
		Post(v1DriveUploads)

	if err := handleAPIError(resp, err, "drive create upload session"); err != nil {
		return nil, err
	}
	if session == nil || session.SessionID == "" {
		return nil, fmt.Errorf("drive create upload session: empty session id in response")
	}

	return session, nil
}

func (d *DriveClient) UploadChunk(ctx context.Context, params *UploadChunkParams) (*ChunkAck, error) {
	end := params.Offset + int64(len(params.Data)) - 1
	contentRange := fmt.Sprintf("bytes %d-%d/%d", params.Offset, end, params.Total)

	var ack *ChunkAck
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("id", params.SessionID).
		SetContentType("application/octet-stream").
		SetHeader("Content-Range", contentRange).
		SetBodyBytes(params.Data).
		SetSuccessResult(&ack).
		Put(v1DriveUploadByID)

	// a vanished session responds 404/410 even without a structured body
	if resp != nil && resp.Response != nil &&
		(resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone) {
		return nil, fmt.Errorf("drive upload chunk: %w", ErrSessionExpired)
	}

	if err := handleAPIError(resp, err, "drive upload chunk"); err != nil {
		return nil, err
	}
	if ack == nil {
		return nil, fmt.Errorf("drive upload chunk: empty ack in response")
	}

	return ack, nil
}
