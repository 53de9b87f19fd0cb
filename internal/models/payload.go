package models

// Payload is the body of a poll task, delivered either by Cloud Tasks to the
// HTTP handler or by asynq to the worker.
type Payload struct {
	ClanID       int64   `json:"clan_id"`
	ExecutionEnd *string `json:"execution_end,omitempty"`
	ShouldNotify *bool   `json:"should_notify,omitempty"`
}
