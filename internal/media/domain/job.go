package domain

import (
	"fmt"
	"time"
)

const (
	// QueueName merge job queue
	QueueName = "merge"
)

// JobState merge job lifecycle
type JobState string

const (
	// JobQueued waiting in the queue
	JobQueued JobState = "queued"
	// JobRunning picked up by a consumer
	JobRunning JobState = "running"
	// JobDone finished
	JobDone JobState = "done"
	// JobFailed finished with error
	JobFailed JobState = "failed"
)

// Terminal reports done or failed
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// MergeJob RabbitMQ message
type MergeJob struct {
	JobID    string   `json:"job_id"`
	PostID   string   `json:"post_id"`
	UserID   string   `json:"user_id"`
	Title    string   `json:"title"`
	ClipURLs []string `json:"clip_urls"`
	Publish  bool     `json:"publish"`
}

// MergeReq dashboard merge request
type MergeReq struct {
	PostID  string `json:"post_id"`
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Publish bool   `json:"publish"`
}

// JobStatus 存在 redis, 有 TTL
type JobStatus struct {
	JobID     string    `json:"job_id"`
	State     JobState  `json:"state"`
	Phase     string    `json:"phase,omitempty"`
	Error     string    `json:"error,omitempty"`
	ResultURL string    `json:"result_url,omitempty"`
	Warnings  []string  `json:"warnings,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobKey redis key of a job status
func JobKey(jobID string) string {
	return fmt.Sprintf("media:job:%s", jobID)
}

// PublishedEvent kafka message emitted after a merge is published
type PublishedEvent struct {
	VideoID     uint      `json:"video_id"`
	UserID      string    `json:"user_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
}
