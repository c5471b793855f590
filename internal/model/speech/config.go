package speech

import "time"

// Config holds Volcengine speech credentials and voice defaults.
type Config struct {
	AppID       string `mapstructure:"app_id"`
	AccessToken string `mapstructure:"access_token"`
	// ConcurrentMode selects the concurrent ASR resource instead of the hourly one.
	ConcurrentMode bool `mapstructure:"concurrent_mode"`

	ASRURL      string `mapstructure:"asr_url"`
	ASRLanguage string `mapstructure:"asr_language"`

	TTSURL      string  `mapstructure:"tts_url"`
	TTSVoice    string  `mapstructure:"tts_voice"`
	TTSSpeed    float32 `mapstructure:"tts_speed"`
	TTSVolume   float32 `mapstructure:"tts_volume"`
	TTSLanguage string  `mapstructure:"tts_language"`
	TTSFormat   string  `mapstructure:"tts_format"`

	Timeout time.Duration `mapstructure:"timeout"`
}
