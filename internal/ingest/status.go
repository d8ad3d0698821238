package ingest

import (
	"strings"

	"github.com/sprintsight/sprintsight/internal/domain"
)

// statusSynonyms maps lowercase source statuses onto the canonical set.
// Tracker workflows vary per project, so the table is intentionally loose;
// anything unmapped falls back to To Do (the issue is kept, not dropped).
var statusSynonyms = map[string]domain.Status{
	"to do":       domain.StatusToDo,
	"todo":        domain.StatusToDo,
	"open":        domain.StatusToDo,
	"backlog":     domain.StatusToDo,
	"new":         domain.StatusToDo,
	"selected for development": domain.StatusToDo,

	"in progress": domain.StatusInProgress,
	"in-progress": domain.StatusInProgress,
	"doing":       domain.StatusInProgress,
	"in development": domain.StatusInProgress,

	"in review":   domain.StatusInReview,
	"review":      domain.StatusInReview,
	"code review": domain.StatusInReview,
	"in testing":  domain.StatusInReview,
	"qa":          domain.StatusInReview,

	"blocked":  domain.StatusBlocked,
	"on hold":  domain.StatusBlocked,
	"impeded":  domain.StatusBlocked,

	"done":     domain.StatusDone,
	"closed":   domain.StatusDone,
	"resolved": domain.StatusDone,
	"complete": domain.StatusDone,
	"completed": domain.StatusDone,

	"cancelled": domain.StatusCancelled,
	"canceled":  domain.StatusCancelled,
	"won't do":  domain.StatusCancelled,
	"wont do":   domain.StatusCancelled,
	"rejected":  domain.StatusCancelled,
}

// MapStatus resolves a raw source status case-insensitively. Exact canonical
// values pass through; unknown values default to To Do.
func MapStatus(raw string) domain.Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return domain.StatusToDo
	}
	if st, ok := statusSynonyms[key]; ok {
		return st
	}
	for _, st := range domain.AllStatuses {
		if strings.EqualFold(string(st), key) {
			return st
		}
	}
	// contains-based fallback for composite workflow names like
	// "Done / Released" or "Blocked - waiting on vendor"
	switch {
	case strings.Contains(key, "block"):
		return domain.StatusBlocked
	case strings.Contains(key, "progress"):
		return domain.StatusInProgress
	case strings.Contains(key, "review"):
		return domain.StatusInReview
	case strings.Contains(key, "done"), strings.Contains(key, "resolve"):
		return domain.StatusDone
	case strings.Contains(key, "cancel"):
		return domain.StatusCancelled
	}
	return domain.StatusToDo
}
