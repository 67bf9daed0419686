package pipeline

import (
	"errors"
	"fmt"

	"github.com/kingrea/canvas-grader/internal/archive"
	"github.com/kingrea/canvas-grader/internal/canvas"
	"github.com/kingrea/canvas-grader/internal/roster"
)

// Stage is a step of one entry's lifecycle.
type Stage int

const (
	StageFetched Stage = iota
	StageDownloading
	StageExtracted
	StageInspecting
	StageDone
	StageFailed
)

// String returns a human-readable name for the stage
func (s Stage) String() string {
	switch s {
	case StageFetched:
		return "fetched"
	case StageDownloading:
		return "downloading"
	case StageExtracted:
		return "extracted"
	case StageInspecting:
		return "inspecting"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can follow s.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// Kind classifies why an entry failed.
type Kind string

const (
	KindAttachmentNotFound Kind = "attachment-not-found"
	KindInvalidSelection   Kind = "invalid-selection"
	KindMissingUserID      Kind = "missing-user-id"
	KindNetwork            Kind = "network"
	KindFilesystem         Kind = "filesystem"
	KindArchive            Kind = "archive"
	KindReview             Kind = "review"
)

// ErrAttachmentNotFound reports a submission with nothing to download.
var ErrAttachmentNotFound = errors.New("pipeline: submission has no attachment")

// Failure is the error returned for any failed entry. It unwraps to the
// underlying cause so sentinels stay matchable with errors.Is.
type Failure struct {
	Stage Stage
	Kind  Kind
	Name  string
	Err   error
}

func (f *Failure) Error() string {
	if f.Name == "" {
		return fmt.Sprintf("%s failed (%s): %v", f.Stage, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s failed (%s): %v", f.Name, f.Stage, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the failure kind carried by err, or "" when err is not a
// pipeline failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

func fail(stage Stage, kind Kind, name string, err error) *Failure {
	return &Failure{Stage: stage, Kind: kind, Name: name, Err: err}
}

// classify maps a download or extraction error onto a failure kind.
func classify(err error) Kind {
	var statusErr *canvas.StatusError
	switch {
	case errors.Is(err, ErrAttachmentNotFound):
		return KindAttachmentNotFound
	case errors.Is(err, roster.ErrInvalidSelection):
		return KindInvalidSelection
	case errors.Is(err, roster.ErrMissingUserID):
		return KindMissingUserID
	case errors.Is(err, archive.ErrMalformed), errors.Is(err, archive.ErrUnsafePath):
		return KindArchive
	case errors.Is(err, canvas.ErrRequest), errors.As(err, &statusErr):
		return KindNetwork
	default:
		return KindFilesystem
	}
}
