package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Stage   Stage  // Pipeline stage
	Step    int    // Current step number
	Total   int    // Total steps
	Message string // Human-readable message for display
	Data    any    // Optional stage-specific data
}

// Stage enumerates the states of the ingestion and deletion state machines.
type Stage int

const (
	StageValidating Stage = iota
	StageFetching
	StageUploadingImage
	StageCompiling
	StageUploadingDescriptor
	StageRecording
	StageCheckingSelf
	StageCheckingAdmin
	StageDeletingDomain
	StageDeletingIdentity
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageValidating:
		return "validating"
	case StageFetching:
		return "fetching_image"
	case StageUploadingImage:
		return "uploading_image"
	case StageCompiling:
		return "compiling"
	case StageUploadingDescriptor:
		return "uploading_descriptor"
	case StageRecording:
		return "recording"
	case StageCheckingSelf:
		return "checking_self"
	case StageCheckingAdmin:
		return "checking_admin"
	case StageDeletingDomain:
		return "deleting_domain"
	case StageDeletingIdentity:
		return "deleting_identity"
	case StageDone:
		return "done"
	default:
		return ""
	}
}

func bulkStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageValidating,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Ingesting %d targets...", total),
	}
}

func ingestingUpdate(step, total int, source string) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageUploadingImage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Ingesting: %s...", step, total, source),
	}
}

func ingestCompletedUpdate(step, total int, item BulkIngestItem) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageDone,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s -> %s", step, total, item.Source, item.Result.DescriptorURL),
		Data:    item.Result,
	}
}

func ingestFailedUpdate(step, total int, item BulkIngestItem) ProgressUpdate {
	stage := StageValidating
	if se, ok := AsStageError(item.Error); ok {
		stage = se.Stage
	}
	return ProgressUpdate{
		Stage:   stage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, item.Source, item.Error),
	}
}
