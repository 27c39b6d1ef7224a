package domain

// Known source platforms
const (
	PlatformBilibili    = "bilibili"
	PlatformDouyin      = "douyin"
	PlatformXiaohongshu = "xiaohongshu"
	PlatformLocal       = "local"
)

// AudioStream describes the audio track resolved for a video.
type AudioStream struct {
	URL          string   `json:"url"`
	BackupURLs   []string `json:"backup_urls,omitempty"`
	IsVideoAudio bool     `json:"is_video_audio,omitempty"`
}

// VideoInfo is a read-only snapshot of source media metadata produced by
// the parser service.
type VideoInfo struct {
	Title       string       `json:"title,omitempty"`
	Platform    string       `json:"platform,omitempty"`
	Cover       string       `json:"cover,omitempty"`
	Author      string       `json:"author,omitempty"`
	VideoURL    string       `json:"video_url,omitempty"`
	IsVideo     bool         `json:"is_video"`
	AudioStream *AudioStream `json:"audio_stream,omitempty"`
}

// Clone returns a deep copy, or nil for a nil receiver.
func (v *VideoInfo) Clone() *VideoInfo {
	if v == nil {
		return nil
	}
	out := *v
	if v.AudioStream != nil {
		stream := *v.AudioStream
		stream.BackupURLs = cloneStrings(v.AudioStream.BackupURLs)
		out.AudioStream = &stream
	}
	return &out
}
