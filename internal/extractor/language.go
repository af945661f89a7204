package extractor

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

const (
	languageMixed       = "mixed"
	minLanguageLetters  = 6
	minLinguaConfidence = 0.75
)

var (
	detectorOnce    sync.Once
	defaultDetector lingua.LanguageDetector
)

func sharedDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		defaultDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Chinese).
			Build()
	})
	return defaultDetector
}

// DetectLanguage returns "en", "zh", "mixed" or "" for text without letters. Lingua decides
// when it is confident; otherwise Han characters are weighed against Latin words.
func (e *Extractor) DetectLanguage(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters == 0 {
		return ""
	}

	if letters >= minLanguageLetters && e.detector != nil {
		if language, ok := e.detector.DetectLanguageOf(sample); ok {
			if e.detector.ComputeLanguageConfidence(sample, language) >= minLinguaConfidence {
				return strings.ToLower(language.IsoCode639_1().String())
			}
		}
	}

	return heuristicLanguage(sample)
}

func heuristicLanguage(text string) string {
	han, words := 0, 0
	inWord := false
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
		}
		latin := r < unicode.MaxASCII && unicode.IsLetter(r)
		if latin && !inWord {
			words++
		}
		inWord = latin
	}

	switch {
	case han > words:
		return "zh"
	case words > han:
		return "en"
	default:
		return languageMixed
	}
}
