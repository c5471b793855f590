package speech

import (
	"strings"

	"github.com/code-with-happy/ai-voice-agent/internal/analysis/emotion"
)

// DefaultVoice is used when neither the request nor the configuration names one.
const DefaultVoice = "en_female_amy_jupiter_bigtts"

// voiceAliases maps persona voice ids to provider speakers.
var voiceAliases = map[string]string{
	"default":          DefaultVoice,
	"en_default":       DefaultVoice,
	"friendly-guide":   DefaultVoice,
	"patient-tutor":    "en_male_glen_emo_v2_mars_bigtts",
	"calm-coach":       "en_female_skye_emo_v2_mars_bigtts",
	"late-night-story": "en_male_corey_emo_v2_mars_bigtts",
}

// NormalizeVoiceAlias resolves a persona voice id to a provider speaker.
// Unknown ids are returned trimmed.
func NormalizeVoiceAlias(voice string) string {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		return ""
	}
	if mapped, ok := voiceAliases[strings.ToLower(voice)]; ok {
		return mapped
	}
	return voice
}

// speakerCandidates lists the speakers to try in order, without duplicates.
func speakerCandidates(requested, fallback string) []string {
	var out []string
	add := func(s string) {
		s = NormalizeVoiceAlias(s)
		if s == "" {
			return
		}
		for _, existing := range out {
			if strings.EqualFold(existing, s) {
				return
			}
		}
		out = append(out, s)
	}
	add(requested)
	add(fallback)
	if len(out) == 0 {
		out = append(out, DefaultVoice)
	}
	return out
}

const (
	ttsDefaultResource = "volc.service_type.10029"
	ttsSeedResource    = "seed-tts-2.0"
	ttsMegaResource    = "volc.megatts.default"
)

var seedVoiceHints = []string{
	"bigtts", "seed", "megatts", "uranus", "venus", "jupiter",
	"saturn", "neptune", "mercury", "pluto", "mars",
}

// resourceCandidates lists the TTS resource ids a speaker may belong to.
// Cloned voices (S_ prefix) only live on the mega resource.
func resourceCandidates(voice string) []string {
	voice = strings.TrimSpace(voice)
	if strings.HasPrefix(voice, "S_") {
		return []string{ttsMegaResource}
	}
	normalized := strings.ToLower(voice)
	for _, hint := range seedVoiceHints {
		if strings.Contains(normalized, hint) {
			return []string{ttsSeedResource, ttsDefaultResource}
		}
	}
	return []string{ttsDefaultResource, ttsSeedResource}
}

func isResourceMismatch(err error) bool {
	return err != nil && strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}

// SupportsEmotion reports whether speaker accepts an emotion parameter.
// Only the emo_v2 family does.
func SupportsEmotion(speaker string) bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(speaker)), "_emo_")
}

// emotionParams turns an analysis into request parameters for voice. ok is
// false for neutral text or voices without emotion support.
func emotionParams(voice string, d emotion.Decision) (label string, scale float32, ok bool) {
	if d.Emotion == emotion.Neutral || d.Score <= 0 || !SupportsEmotion(NormalizeVoiceAlias(voice)) {
		return "", 0, false
	}
	scale = d.Scale
	if scale <= 0 {
		scale = 3
	}
	return string(d.Emotion), max(1, min(scale, 5)), true
}
