package parser

import (
	"sort"

	"github.com/section-speed/backend/internal/models"
)

// MergeCheckpoint folds per-file extraction results into one CheckpointLog.
// Files are folded in the order given; callers pass them sorted by file name
// so last-overwrite is reproducible. Under earliest-wins the held event is
// replaced only by a strictly earlier instant, so the result does not depend
// on file order at all.
func MergeCheckpoint(side models.Side, policy models.MergePolicy, files []*models.ExtractedFile) *models.CheckpointLog {
	log := models.NewCheckpointLog(side, policy)

	for _, f := range files {
		if f == nil {
			continue
		}
		log.Files = append(log.Files, f.FileName)

		// Sorted for a deterministic fold
		plates := make([]string, 0, len(f.Events))
		for p := range f.Events {
			plates = append(plates, p)
		}
		sort.Strings(plates)

		for _, plate := range plates {
			ev := f.Events[plate]
			log.Observations++
			held, ok := log.Events[plate]
			if !ok || shouldReplace(policy, held, ev) {
				log.Events[plate] = ev
			}
		}
	}

	return log
}

// shouldReplace decides whether a new observation displaces the held one.
func shouldReplace(policy models.MergePolicy, held, next models.CrossingEvent) bool {
	switch policy {
	case models.MergeLastOverwrite:
		return true
	default:
		return next.Instant.Before(held.Instant)
	}
}
