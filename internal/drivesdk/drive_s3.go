package drivesdk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/updrive/updrive/internal/utils"
)

// S3Config configures the S3-compatible backend.
type S3Config struct {
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Endpoint  string `json:"endpoint,omitempty"`
}

// S3Remote implements Remote directly against an S3-compatible bucket.
// Object ids are bucket keys, folders are key prefixes, and chunked uploads
// map onto multipart uploads. Part state lives server side, so sessions
// survive restarts via ListParts.
type S3Remote struct {
	client *s3.Client
	cfg    *S3Config
}

var _ Remote = (*S3Remote)(nil)

func NewS3Remote(cfg *S3Config) (*S3Remote, error) {
	if cfg == nil || cfg.Bucket == "" {
		return nil, fmt.Errorf("sdk: s3 bucket missing")
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   50,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("sdk: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Remote{
		client: client,
		cfg:    cfg,
	}, nil
}

// EnsureFolder validates bucket access and returns the folder's key prefix.
func (r *S3Remote) EnsureFolder(ctx context.Context, name string) (string, error) {
	prefix := strings.Trim(strings.ReplaceAll(name, "\\", "/"), "/")
	if prefix == "" {
		return "", fmt.Errorf("s3 ensure folder: empty folder name")
	}

	if _, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: &r.cfg.Bucket,
	}); err != nil {
		return "", mapS3Error("s3 ensure folder", err)
	}

	return prefix + "/", nil
}

func (r *S3Remote) CreateObject(ctx context.Context, params *CreateObjectParams) (*ObjectInfo, error) {
	key := params.FolderID + strings.TrimPrefix(params.Name, "/")

	resp, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &r.cfg.Bucket,
		Key:           &key,
		Body:          params.Body,
		ContentLength: aws.Int64(params.Size),
		ContentType:   aws.String(utils.DetectContentType(key)),
	})
	if err != nil {
		return nil, mapS3Error("s3 create object", err)
	}

	return &ObjectInfo{
		ID:        key,
		Name:      params.Name,
		Size:      params.Size,
		ETag:      strings.ReplaceAll(aws.ToString(resp.ETag), "\"", ""),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// UpdateObject overwrites the object's key. S3 has no separate update verb,
// so the identity (the key) is kept by construction.
func (r *S3Remote) UpdateObject(ctx context.Context, params *UpdateObjectParams) (*ObjectInfo, error) {
	resp, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &r.cfg.Bucket,
		Key:           &params.ObjectID,
		Body:          params.Body,
		ContentLength: aws.Int64(params.Size),
		ContentType:   aws.String(utils.DetectContentType(params.ObjectID)),
	})
	if err != nil {
		return nil, mapS3Error("s3 update object", err)
	}

	return &ObjectInfo{
		ID:        params.ObjectID,
		Name:      params.ObjectID,
		Size:      params.Size,
		ETag:      strings.ReplaceAll(aws.ToString(resp.ETag), "\"", ""),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// DeleteObject removes the key. S3 deletes are idempotent, a missing key
// is not an error.
func (r *S3Remote) DeleteObject(ctx context.Context, objectID string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &r.cfg.Bucket,
		Key:    &objectID,
	})
	if err != nil {
		return mapS3Error("s3 delete object", err)
	}
	return nil
}

func (r *S3Remote) CreateUploadSession(ctx context.Context, params *UploadSessionParams) (*UploadSessionInfo, error) {
	key := params.ObjectID
	if key == "" {
		key = params.FolderID + strings.TrimPrefix(params.Name, "/")
	}

	resp, err := r.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      &r.cfg.Bucket,
		Key:         &key,
		ContentType: aws.String(utils.DetectContentType(key)),
	})
	if err != nil {
		return nil, mapS3Error("s3 create upload session", err)
	}

	return &UploadSessionInfo{
		SessionID: joinSessionID(aws.ToString(resp.UploadId), key),
		Offset:    0,
	}, nil
}

func (r *S3Remote) UploadChunk(ctx context.Context, params *UploadChunkParams) (*ChunkAck, error) {
	uploadID, key, err := splitSessionID(params.SessionID)
	if err != nil {
		return nil, fmt.Errorf("s3 upload chunk: %w", err)
	}
	if params.ChunkSize <= 0 || params.Offset%params.ChunkSize != 0 {
		return nil, fmt.Errorf("s3 upload chunk: offset %d is not aligned to chunk size %d", params.Offset, params.ChunkSize)
	}

	partNumber := int32(params.Offset/params.ChunkSize) + 1
	_, err = r.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        &r.cfg.Bucket,
		Key:           &key,
		UploadId:      &uploadID,
		PartNumber:    aws.Int32(partNumber),
		Body:          bytes.NewReader(params.Data),
		ContentLength: aws.Int64(int64(len(params.Data))),
	})
	if err != nil {
		return nil, mapS3Error("s3 upload chunk", err)
	}

	received := params.Offset + int64(len(params.Data))
	ack := &ChunkAck{Received: received}

	if received >= params.Total {
		info, err := r.completeUpload(ctx, key, uploadID, params.Total)
		if err != nil {
			return nil, err
		}
		ack.Object = info
	}

	return ack, nil
}

func (r *S3Remote) completeUpload(ctx context.Context, key, uploadID string, size int64) (*ObjectInfo, error) {
	parts, err := r.listParts(ctx, key, uploadID)
	if err != nil {
		return nil, mapS3Error("s3 complete upload", err)
	}

	resp, err := r.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   &r.cfg.Bucket,
		Key:      &key,
		UploadId: &uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		return nil, mapS3Error("s3 complete upload", err)
	}

	return &ObjectInfo{
		ID:        key,
		Name:      key,
		Size:      size,
		ETag:      strings.ReplaceAll(aws.ToString(resp.ETag), "\"", ""),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// listParts collects the parts the server holds for this upload, including
// ones sent before a restart.
func (r *S3Remote) listParts(ctx context.Context, key, uploadID string) ([]types.CompletedPart, error) {
	var completed []types.CompletedPart
	var marker *string

	for {
		out, err := r.client.ListParts(ctx, &s3.ListPartsInput{
			Bucket:           &r.cfg.Bucket,
			Key:              &key,
			UploadId:         &uploadID,
			PartNumberMarker: marker,
		})
		if err != nil {
			return nil, err
		}

		for _, part := range out.Parts {
			completed = append(completed, types.CompletedPart{
				ETag:       part.ETag,
				PartNumber: part.PartNumber,
			})
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		marker = out.NextPartNumberMarker
	}

	sort.Slice(completed, func(i, j int) bool {
		return aws.ToInt32(completed[i].PartNumber) < aws.ToInt32(completed[j].PartNumber)
	})

	return completed, nil
}

func joinSessionID(uploadID, key string) string {
	return uploadID + "\n" + key
}

func splitSessionID(sessionID string) (uploadID string, key string, err error) {
	uploadID, key, ok := strings.Cut(sessionID, "\n")
	if !ok || uploadID == "" || key == "" {
		return "", "", fmt.Errorf("malformed session id")
	}
	return uploadID, key, nil
}

// mapS3Error translates S3 failures onto the sdk sentinels.
func mapS3Error(operation string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", operation, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return fmt.Errorf("%s: %w: %w", operation, ErrObjectNotFound, err)
		case "NoSuchUpload":
			return fmt.Errorf("%s: %w: %w", operation, ErrSessionExpired, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %w: %w", operation, ErrAccessDenied, err)
		}
		return fmt.Errorf("%s: %w", operation, err)
	}

	// no structured error means the request never reached the service
	return fmt.Errorf("%s: %w: %w", operation, ErrUnreachable, err)
}
