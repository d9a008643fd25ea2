package media

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	Photo Kind = "PHOTO"
	Video Kind = "VIDEO"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// CanTransition encodes the staged-media lifecycle. An errored item may go
// back to uploading, but only the retry path takes that edge.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusUploading
	case StatusUploading:
		return to == StatusCompleted || to == StatusError
	case StatusError:
		return to == StatusUploading
	case StatusCompleted:
		return false
	default:
		return false
	}
}

func ValidateTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

var (
	ErrNotFound          = errors.New("staged media not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUploadInFlight    = errors.New("upload already in flight")
)

// ValidationError rejects a file before it is staged.
type ValidationError struct {
	FileName string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.FileName, e.Reason)
}

// Staged is one selected file and its upload lifecycle state.
type Staged struct {
	ID           string
	FileName     string
	ContentType  string
	Data         []byte
	Kind         Kind
	Status       Status
	Progress     int
	ErrorMessage string
	StorageKey   string
	PublicURL    string

	// Preview resources, released exactly once at removal or clear.
	PreviewURL string
	Thumbnail  []byte

	// Video metadata, best-effort.
	DurationSeconds float64

	StagedAt time.Time

	released bool
}

// UploadResult is the durable record produced once an item completes;
// the submitted listing carries these as its media list.
type UploadResult struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"mediaType"`
	PublicURL  string `json:"mediaUrl"`
	StorageKey string `json:"s3Key,omitempty"`
}
