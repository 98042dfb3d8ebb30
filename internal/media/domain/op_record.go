package domain

import "time"

// OperationRecord mongo operation history
type OperationRecord struct {
	Op          Operation `bson:"op" json:"op"`
	JobID       string    `bson:"job_id,omitempty" json:"job_id,omitempty"`
	UserID      string    `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Phase       string    `bson:"phase" json:"phase"`
	Success     bool      `bson:"success" json:"success"`
	Error       string    `bson:"error,omitempty" json:"error,omitempty"`
	Warnings    []string  `bson:"warnings,omitempty" json:"warnings,omitempty"`
	DurationMS  int64     `bson:"duration_ms" json:"duration_ms"`
	Inputs      []string  `bson:"inputs" json:"inputs"`
	OutputBytes int       `bson:"output_bytes" json:"output_bytes"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
