package domain

import "strings"

// MediaFamily 媒體種類
type MediaFamily string

const (
	// FamilyVideo video/*
	FamilyVideo MediaFamily = "video"
	// FamilyAudio audio/*
	FamilyAudio MediaFamily = "audio"
	// FamilyImage image/*
	FamilyImage MediaFamily = "image"
	// FamilyUnknown anything else
	FamilyUnknown MediaFamily = "unknown"
)

const (
	// MimeMP4 output type of every video producing operation
	MimeMP4 = "video/mp4"
	// MimeMP3 default audio type
	MimeMP3 = "audio/mpeg"
)

// FamilyOf returns the media family of a declared MIME type
func FamilyOf(mimeType string) MediaFamily {
	t := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(t, "video"):
		return FamilyVideo
	case strings.HasPrefix(t, "audio/"):
		return FamilyAudio
	case strings.HasPrefix(t, "image/"):
		return FamilyImage
	default:
		return FamilyUnknown
	}
}

// MediaBlob 每個 pipeline operation 的輸出 (也作為輸入)
type MediaBlob struct {
	Name     string
	MimeType string
	Data     []byte
	// Warnings 清理暫存檔時的非致命錯誤
	Warnings []string
}

// Family media family of the blob
func (b *MediaBlob) Family() MediaFamily {
	return FamilyOf(b.MimeType)
}

// Size length of the payload in bytes
func (b *MediaBlob) Size() int {
	return len(b.Data)
}

// Extension file extension (without dot) used when the blob is stored
func (b *MediaBlob) Extension() string {
	switch b.Family() {
	case FamilyVideo:
		return "mp4"
	case FamilyAudio:
		return "mp3"
	case FamilyImage:
		return "jpg"
	default:
		return "bin"
	}
}

// ClipType 對應 media_clips.type
func (b *MediaBlob) ClipType() ClipType {
	if b.Family() == FamilyAudio {
		return ClipAudio
	}
	return ClipVideo
}
