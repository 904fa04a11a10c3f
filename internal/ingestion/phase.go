package ingestion

import (
	"fmt"

	"golang-reconciliation-portal/internal/models"
)

// Event moves an upload job between phases.
type Event string

const (
	EventStart     Event = "start"
	EventUploaded  Event = "uploaded"
	EventProcessed Event = "processed"
	EventPublished Event = "published"
	EventFail      Event = "fail"
	EventReset     Event = "reset"
)

// transition is the whole phase graph:
//
//	IDLE -start-> UPLOADING -uploaded-> PROCESSING -processed-> PUBLISHING -published-> SUCCEEDED
//
// Any non-terminal phase moves to FAILED on fail, and a terminal phase goes
// back to IDLE on reset.
func transition(from models.Phase, ev Event) (models.Phase, error) {
	switch {
	case from == models.PhaseIdle && ev == EventStart:
		return models.PhaseUploading, nil
	case from == models.PhaseUploading && ev == EventUploaded:
		return models.PhaseProcessing, nil
	case from == models.PhaseProcessing && ev == EventProcessed:
		return models.PhasePublishing, nil
	case from == models.PhasePublishing && ev == EventPublished:
		return models.PhaseSucceeded, nil
	case ev == EventFail && !from.IsTerminal():
		return models.PhaseFailed, nil
	case ev == EventReset && from.IsTerminal():
		return models.PhaseIdle, nil
	}
	return from, fmt.Errorf("no transition from %s on %s", from, ev)
}
