package drivesdk

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// sdk common
	ErrNoServerURL = errors.New("sdk: server url missing")
	ErrNoToken     = errors.New("sdk: auth token missing")

	// remote op outcomes the engine keys decisions off
	ErrObjectNotFound = errors.New("sdk: remote object not found")
	ErrAccessDenied   = errors.New("sdk: access denied")
	ErrSessionExpired = errors.New("sdk: upload session expired")
	ErrUnreachable    = errors.New("sdk: remote unreachable")
)

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // access denied
	CodeUnknownError   = "E_UNKNOWN_ERR"     // unknown error

	// Drive errors
	CodeFolderNotFound = "E_FOLDER_NOT_FOUND" // the destination folder does not exist
	CodeObjectNotFound = "E_OBJECT_NOT_FOUND" // the object id does not exist
	CodeObjectTooLarge = "E_OBJECT_TOO_LARGE" // object exceeds the account limit

	// Upload session errors
	CodeSessionExpired = "E_SESSION_EXPIRED"  // the upload session is gone, restart the upload
	CodeBadChunkOffset = "E_BAD_CHUNK_OFFSET" // chunk offset does not match what the server holds
)

type SDKError interface {
	error
	ErrorCode() string
	ErrorMessage() string
}

// BaseError provides common error functionality
type BaseError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *BaseError) ErrorCode() string    { return e.Code }
func (e *BaseError) ErrorMessage() string { return e.Message }

// APIError represents UpDrive API errors
type APIError struct {
	BaseError
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		BaseError: BaseError{
			Code:    code,
			Message: message,
		},
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// Unwrap maps well-known API codes onto the sdk sentinels so callers can
// use errors.Is without inspecting codes.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case CodeObjectNotFound, CodeFolderNotFound:
		return ErrObjectNotFound
	case CodeAccessDenied:
		return ErrAccessDenied
	case CodeSessionExpired:
		return ErrSessionExpired
	}
	return nil
}

var _ SDKError = (*APIError)(nil)

// handleAPIError is a helper function that handles the common error pattern.
// A response with a status line is classified by status even when requestErr
// is set: a garbled error body must not read as a connectivity loss.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if resp == nil || resp.Response == nil {
		if requestErr != nil {
			// transport-level failure, the request never got a response
			return fmt.Errorf("%s: %w: %w", operation, ErrUnreachable, requestErr)
		}
		return nil
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		if apiErr, ok := resp.ErrorResult().(*APIError); ok && apiErr.Code != "" {
			return fmt.Errorf("%s: %w", operation, apiErr)
		}

		switch resp.StatusCode {
		case 401, 403:
			return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
		case 404:
			return fmt.Errorf("%s: %w", operation, ErrObjectNotFound)
		case 410:
			return fmt.Errorf("%s: %w", operation, ErrSessionExpired)
		}

		return fmt.Errorf("%s: api error: %s", operation, resp.Status)
	}

	if requestErr != nil {
		// 2xx with an undecodable body
		return fmt.Errorf("%s: %w", operation, requestErr)
	}
	return nil
}
