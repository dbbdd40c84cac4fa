package voice

import "errors"

var (
	// ErrEmptyAudio 音频载荷为空，直接拒绝，不尝试识别。
	ErrEmptyAudio = errors.New("audio payload is empty")
	// ErrAudioTooLarge 音频超过大小上限，直接拒绝，不尝试识别。
	ErrAudioTooLarge = errors.New("audio payload exceeds size limit")
	// ErrUnintelligible 识别服务没有在音频中听到任何语音。
	ErrUnintelligible = errors.New("no speech recognized in audio")
	// ErrProviderUnavailable 识别/合成后端不可达或返回失败。
	ErrProviderUnavailable = errors.New("speech provider unavailable")
	// ErrCodec 其余编解码失败。
	ErrCodec = errors.New("speech codec error")
)

// MaxAudioBytes 单条语音消息允许的最大解码字节数。
const MaxAudioBytes = 10 << 20 // 10 MiB

// ValidateAudio rejects empty or oversized payloads before any decode is
// attempted.
func ValidateAudio(raw []byte) error {
	if len(raw) == 0 {
		return ErrEmptyAudio
	}
	if len(raw) > MaxAudioBytes {
		return ErrAudioTooLarge
	}
	return nil
}
