package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// staged names used inside the engine sandbox
const (
	OutputMP4      = "output.mp4"
	CompositeAudio = "audio.mp3"
	CompositeImage = "image.jpg"
	OverlayVideo   = "video.mp4"
	OverlayAudio   = "audio.mp3"
	ManifestName   = "concat.txt"
)

// Command 一次 engine 呼叫, BuildArgs 不含 engine 自己加的 -y / -hide_banner
type Command interface {
	Op() Operation
	// Inputs staged names the command reads
	Inputs() []string
	// Output staged name the command writes
	Output() string
	BuildArgs() []string
}

// DryRun renders a command for logs
func DryRun(c Command) string {
	return "ffmpeg " + strings.Join(c.BuildArgs(), " ")
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TrimCommand stream-copy trim
type TrimCommand struct {
	Range TrimRange
	Ext   string
}

// NewTrimCommand picks mp4 for video sources and mp3 for everything else
func NewTrimCommand(family MediaFamily, r TrimRange) *TrimCommand {
	ext := "mp3"
	if family == FamilyVideo {
		ext = "mp4"
	}
	return &TrimCommand{Range: r, Ext: ext}
}

// Op trim
func (c *TrimCommand) Op() Operation { return OpTrim }

// Inputs input.<ext>
func (c *TrimCommand) Inputs() []string { return []string{"input." + c.Ext} }

// Output output.<ext>
func (c *TrimCommand) Output() string { return "output." + c.Ext }

// BuildArgs -i input -ss start -to end -c copy output
func (c *TrimCommand) BuildArgs() []string {
	return []string{
		"-i", c.Inputs()[0],
		"-ss", formatSeconds(c.Range.Start),
		"-to", formatSeconds(c.Range.End),
		"-c", "copy",
		c.Output(),
	}
}

// CompositeCommand loops a still image for the length of an audio track
type CompositeCommand struct{}

// Op composite
func (c *CompositeCommand) Op() Operation { return OpComposite }

// Inputs audio first, image second
func (c *CompositeCommand) Inputs() []string { return []string{CompositeAudio, CompositeImage} }

// Output output.mp4
func (c *CompositeCommand) Output() string { return OutputMP4 }

// BuildArgs 1280x720 H.264 + AAC, ends with the audio
func (c *CompositeCommand) BuildArgs() []string {
	return []string{
		"-i", CompositeAudio,
		"-i", CompositeImage,
		"-filter_complex", "[1:v]scale=1280:720,setsar=1:1[v];[v]loop=loop=-1:size=1[vout]",
		"-map", "[vout]",
		"-map", "0:a",
		"-shortest",
		"-c:v", "libx264",
		"-preset", "medium",
		"-tune", "stillimage",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		OutputMP4,
	}
}

// OverlayCommand mixes background music at 30% under the video's own audio
type OverlayCommand struct{}

// Op overlay
func (c *OverlayCommand) Op() Operation { return OpOverlay }

// Inputs video first, music second
func (c *OverlayCommand) Inputs() []string { return []string{OverlayVideo, OverlayAudio} }

// Output output.mp4
func (c *OverlayCommand) Output() string { return OutputMP4 }

// BuildArgs video stream copied, mix lasts as long as the first input
func (c *OverlayCommand) BuildArgs() []string {
	return []string{
		"-i", OverlayVideo,
		"-i", OverlayAudio,
		"-filter_complex", "[1:a]volume=0.3[a1];[0:a][a1]amix=inputs=2:duration=first[aout]",
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		OutputMP4,
	}
}

// ConcatManifest ordered list of staged clips for the concat demuxer
type ConcatManifest struct {
	Names []string
}

// ClipName staged name of the i-th clip
func ClipName(i int) string {
	return fmt.Sprintf("clip%d.mp4", i)
}

// NewConcatManifest clip0.mp4 ... clip{n-1}.mp4
func NewConcatManifest(n int) ConcatManifest {
	names := make([]string, n)
	for i := range names {
		names[i] = ClipName(i)
	}
	return ConcatManifest{Names: names}
}

// Render one `file 'name'` line per clip, joined by newline
func (m ConcatManifest) Render() string {
	lines := make([]string, len(m.Names))
	for i, name := range m.Names {
		lines[i] = fmt.Sprintf("file '%s'", name)
	}
	return strings.Join(lines, "\n")
}

// ConcatCommand concat demuxer, video copied, audio re-encoded
type ConcatCommand struct {
	Manifest ConcatManifest
}

// Op merge
func (c *ConcatCommand) Op() Operation { return OpMerge }

// Inputs the clips followed by the manifest
func (c *ConcatCommand) Inputs() []string {
	inputs := make([]string, 0, len(c.Manifest.Names)+1)
	inputs = append(inputs, c.Manifest.Names...)
	return append(inputs, ManifestName)
}

// Output output.mp4
func (c *ConcatCommand) Output() string { return OutputMP4 }

// BuildArgs -f concat -safe 0 -i concat.txt ...
func (c *ConcatCommand) BuildArgs() []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", ManifestName,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		OutputMP4,
	}
}

// MergedName download name of a merge result, "video" when title is empty
func MergedName(title string) string {
	if title == "" {
		title = "video"
	}
	return fmt.Sprintf("merged_%s.mp4", title)
}
