package engine

import "github.com/phrazzld/pathwise/internal/domain"

// Result is the outcome of a dispatched request.
type Result struct {
	Success bool   `json:"success"`
	Code    Code   `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	// Tags lists the derived reads a mutating command invalidated.
	Tags []domain.Tag `json:"tags,omitempty"`
}

// UnlockStatus is the data of the unlock queries. IntegrityError reports a
// broken content hierarchy; Unlocked is then false.
type UnlockStatus struct {
	NodeID         int64 `json:"node_id"`
	Unlocked       bool  `json:"unlocked"`
	IntegrityError bool  `json:"integrity_error"`
}

// StreakStatus is the data of UpdateStreak.
type StreakStatus struct {
	Streak int `json:"streak"`
}

func ok(data any, tags []domain.Tag) Result {
	return Result{Success: true, Code: CodeOK, Data: data, Tags: tags}
}

func failure(code Code, message string) Result {
	return Result{Success: false, Code: code, Message: message}
}
