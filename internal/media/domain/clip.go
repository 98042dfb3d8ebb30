package domain

import "time"

// ClipType media_clips.type
type ClipType string

const (
	// ClipAudio audio clip
	ClipAudio ClipType = "audio"
	// ClipVideo video clip (also composite output)
	ClipVideo ClipType = "video"
)

// MediaClip 編輯器上傳後的片段
type MediaClip struct {
	ID        int64     `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Type      ClipType  `json:"type"`
	Duration  float64   `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicVideo 發佈後的合併影片
type PublicVideo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	PostID    string    `gorm:"index" json:"post_id"`
	Title     string    `json:"title"`
	URL       string    `gorm:"not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName public_videos
func (PublicVideo) TableName() string {
	return "public_videos"
}

// ProcessClipReq editor flow request
type ProcessClipReq struct {
	PostID string
	UserID string
	Source MediaBlob
	// Background optional image (audio source) or music (video source)
	Background *MediaBlob
	// Range nil keeps the whole source
	Range *TrimRange
	// Duration source duration in seconds, reported by the caller
	Duration float64
}

// ProcessClipRes editor flow result
type ProcessClipRes struct {
	Clip     MediaClip `json:"clip"`
	Warnings []string  `json:"warnings,omitempty"`
}
