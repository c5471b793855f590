// Package emotion picks a speaking style for a reply from its wording.
package emotion

import (
	"strings"
	"unicode"
)

// Label is an emotion the expressive voices accept.
type Label string

const (
	Neutral  Label = "neutral"
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Excited  Label = "excited"
	Tender   Label = "tender"
	Comfort  Label = "comfort"
	Magnetic Label = "magnetic"
)

// Decision is the chosen emotion and how strongly to apply it, on a 1 to 5
// scale. Score is the raw keyword weight; zero means nothing matched.
type Decision struct {
	Emotion Label
	Scale   float32
	Score   int
}

var keywordBuckets = map[Label][]string{
	Happy: {
		"glad", "happy", "great", "nice", "wonderful", "lovely", "thanks", "thank you", "love",
		"enjoy", "delighted", "pleased", "fun", "haha", "congrats", "congratulations",
	},
	Sad: {
		"sad", "sorry to hear", "unfortunately", "miss", "lonely", "loss", "heartbroken",
		"disappointed", "upset", "hurt", "cry", "grief",
	},
	Angry: {
		"angry", "furious", "annoyed", "outrageous", "unacceptable", "mad", "fed up",
	},
	Excited: {
		"amazing", "awesome", "incredible", "fantastic", "can't wait", "cannot wait", "wow",
		"exciting", "thrilled", "brilliant", "unbelievable",
	},
	Tender: {
		"gently", "softly", "slowly", "calm", "peaceful", "relax", "quiet", "rest", "sleep",
		"cozy", "warm",
	},
	Comfort: {
		"don't worry", "do not worry", "it's okay", "it is okay", "i understand", "i'm here",
		"you're not alone", "take your time", "breathe", "that sounds hard", "be gentle with yourself",
	},
	Magnetic: {
		"important", "must", "make sure", "remember", "critical", "serious", "warning", "careful",
		"never", "always",
	},
}

// Analyze scores text against keyword buckets. Exclamation marks push toward
// excitement. Text with no signal is Neutral with a mid-scale default.
func Analyze(text string) Decision {
	label, score := scoreText(text)
	if score == 0 {
		return Decision{Emotion: Neutral, Scale: 3}
	}

	scale := 2 + float32(score)/4
	switch label {
	case Excited:
		scale++
	case Magnetic:
		scale = min(scale, 4)
	case Comfort, Tender:
		scale = min(scale, 3.5)
	}
	scale = max(1, min(scale, 5))

	return Decision{Emotion: label, Scale: scale, Score: score}
}

func scoreText(text string) (Label, int) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Neutral, 0
	}
	normalized = strings.ReplaceAll(normalized, "’", "'")

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if containsPhrase(normalized, word) {
				scores[label] += 3
			}
		}
	}

	if exclamations := strings.Count(text, "!"); exclamations > 0 {
		scores[Excited] += exclamations * 3
		if exclamations == 1 {
			scores[Happy] += 2
		}
	}

	best, bestScore := Neutral, 0
	// Fixed order so ties resolve the same way every time.
	for _, label := range []Label{Comfort, Sad, Angry, Excited, Happy, Tender, Magnetic} {
		if scores[label] > bestScore {
			best, bestScore = label, scores[label]
		}
	}
	return best, bestScore
}

// containsPhrase reports whether phrase occurs in text on word boundaries,
// so "mad" does not match "made".
func containsPhrase(text, phrase string) bool {
	for offset := 0; ; {
		i := strings.Index(text[offset:], phrase)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(phrase)
		if isBoundary(text, start-1) && isBoundary(text, end) {
			return true
		}
		offset = start + 1
	}
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	r := rune(text[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
}
