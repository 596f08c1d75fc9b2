// Package common defines shared constants and sentinel errors used across
// the MediaVault server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrorUnauthorized means the caller is not the owner of the resource
	// it is trying to mutate (wrong session owner, anonymous caller).
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorForbidden means the permission resolver denied the requested
	// capability on a folder or file.
	ErrorForbidden = errors.New("forbidden")

	// ErrorConflict means an upload session is already completed or is
	// being completed concurrently by another caller.
	ErrorConflict = errors.New("upload already completed")

	// Upload validation errors.
	ErrorUnsupportedType = errors.New("unsupported file type")
	ErrorTooLarge        = errors.New("upload exceeds size limit")

	// ErrorIncompleteUpload means the submitted chunks do not tile the
	// byte range: there is a gap or an overlap between offsets. The
	// session is preserved so the client can submit the missing range.
	ErrorIncompleteUpload = errors.New("chunks do not form a contiguous range")

	// ErrorStorage wraps I/O failures in the blob store during assembly.
	// The session stays retryable.
	ErrorStorage = errors.New("storage failure")

	// ErrorValidation covers malformed input (empty names, bad offsets).
	ErrorValidation = errors.New("validation error")
)
