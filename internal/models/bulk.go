package models

// BulkAction identifies a state transition applied to a set of entities.
type BulkAction string

const (
	BulkActivate   BulkAction = "activate"
	BulkDeactivate BulkAction = "deactivate"
	BulkDelete     BulkAction = "delete"
	BulkArchive    BulkAction = "archive"
	BulkUnarchive  BulkAction = "unarchive"
	BulkRestore    BulkAction = "restore"
)

// Valid reports whether the action is known.
func (a BulkAction) Valid() bool {
	switch a {
	case BulkActivate, BulkDeactivate, BulkDelete, BulkArchive, BulkUnarchive, BulkRestore:
		return true
	}
	return false
}

// SelectionSet is the caller-supplied set of target ids for one bulk
// invocation. The coordinator holds no selection state of its own.
type SelectionSet struct {
	IDs []string `json:"ids"`
}

// BulkSuccess records one entity that completed the transition.
type BulkSuccess struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BulkFailure records one entity whose mutation was attempted and failed.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkSkip records one entity excluded before any mutation attempt.
type BulkSkip struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BulkActionResult reports per-item outcomes for one bulk invocation. Every
// requested id lands in exactly one of the three lists; the operation as a
// whole has no transactional atomicity by design.
type BulkActionResult struct {
	Action  BulkAction    `json:"action"`
	Success []BulkSuccess `json:"success"`
	Failed  []BulkFailure `json:"failed"`
	Skipped []BulkSkip    `json:"skipped"`
}

// Total returns the number of ids the result accounts for.
func (r BulkActionResult) Total() int {
	return len(r.Success) + len(r.Failed) + len(r.Skipped)
}

// BulkProgress reports incremental completion of a running batch.
type BulkProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}
