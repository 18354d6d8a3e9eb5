package intake

import "errors"

var (
	// ErrUnsupportedMedia indicates the attachment kind is not accepted for
	// the requested submission.
	ErrUnsupportedMedia = errors.New("unsupported media")
	// ErrTooLong indicates the video exceeds the duration ceiling.
	ErrTooLong = errors.New("video too long")
	// ErrTooLarge indicates the payload exceeds the size ceiling.
	ErrTooLarge = errors.New("media too large")
	// ErrForwardRejected indicates forwarded content is not accepted.
	ErrForwardRejected = errors.New("forwarded media rejected")
)
