package s3blob

import (
	"errors"
)

// Sentinel error kinds for object storage.
var (
	ErrNotFound        = errors.New("object not found")
	ErrInvalidLocation = errors.New("invalid s3 location")
)
