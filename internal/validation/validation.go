// Package validation implements collaborators.PhraseValidator in-process.
// An HTTP client variant (client.go) exists for deployments that run
// phrase validation as its own process, per spec.md §6 and
// original_source/backend/phrase_validation/client.go.
package validation

import (
	"context"
	"strings"
	"unicode"
)

// minimal common-words list; real deployments would load this from a
// curated dictionary file. Words here are exempt from the
// "no reuse of significant prompt words" rule regardless of length.
var commonWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "your": true, "have": true, "will": true,
	"about": true, "into": true, "their": true, "there": true, "what": true,
	"when": true, "where": true, "which": true, "would": true, "could": true,
}

const minPhraseLength = 2
const maxPhraseLength = 60

// Validator is the in-process implementation, grounded on the
// teacher's internal/heuristics detectors: small pure functions each
// checking one rule, composed by the exported entry points.
type Validator struct {
	dictionary map[string]bool // nil means "accept any alphabetic word"
}

func New(dictionary map[string]bool) *Validator {
	return &Validator{dictionary: dictionary}
}

func (v *Validator) Validate(_ context.Context, phrase string) (bool, string, error) {
	if ok, reason := v.checkBasic(phrase); !ok {
		return false, reason, nil
	}
	return true, "", nil
}

func (v *Validator) ValidatePromptPhrase(_ context.Context, phrase, promptText string) (bool, string, error) {
	if ok, reason := v.checkBasic(phrase); !ok {
		return false, reason, nil
	}
	if reused := v.findReusedSignificantWord(phrase, promptText); reused != "" {
		return false, "reuses significant prompt word: " + reused, nil
	}
	return true, "", nil
}

func (v *Validator) ValidateCopy(_ context.Context, phrase, originalPhrase string, otherCopyPhrase, promptText *string) (bool, string, error) {
	if ok, reason := v.checkBasic(phrase); !ok {
		return false, reason, nil
	}
	if normalize(phrase) == normalize(originalPhrase) {
		return false, "copy must not match the original phrase", nil
	}
	if otherCopyPhrase != nil && normalize(phrase) == normalize(*otherCopyPhrase) {
		return false, "copy must not match the other copy", nil
	}
	if reused := v.findReusedSignificantWord(phrase, originalPhrase); reused != "" {
		return false, "reuses significant word from original: " + reused, nil
	}
	if otherCopyPhrase != nil {
		if reused := v.findReusedSignificantWord(phrase, *otherCopyPhrase); reused != "" {
			return false, "reuses significant word from other copy: " + reused, nil
		}
	}
	return true, "", nil
}

func (v *Validator) ValidateBackronymWords(_ context.Context, words []string, expectedLetters []byte) (bool, string, error) {
	if len(words) != len(expectedLetters) {
		return false, "word count does not match expected letter count", nil
	}
	for i, w := range words {
		if ok, reason := v.checkBasic(w); !ok {
			return false, reason, nil
		}
		first := unicode.ToLower(rune(w[0]))
		want := unicode.ToLower(rune(expectedLetters[i]))
		if first != want {
			return false, "word does not start with expected letter", nil
		}
		if v.dictionary != nil && !v.dictionary[strings.ToLower(w)] {
			return false, "word not found in dictionary: " + w, nil
		}
	}
	return true, "", nil
}

func (v *Validator) checkBasic(phrase string) (bool, string) {
	trimmed := strings.TrimSpace(phrase)
	if len(trimmed) < minPhraseLength {
		return false, "phrase too short"
	}
	if len(trimmed) > maxPhraseLength {
		return false, "phrase too long"
	}
	words := strings.Fields(trimmed)
	if len(words) == 0 {
		return false, "phrase is empty"
	}
	if v.dictionary != nil {
		for _, w := range words {
			if !v.dictionary[strings.ToLower(cleanWord(w))] {
				return false, "word not found in dictionary: " + w
			}
		}
	}
	return true, ""
}

// findReusedSignificantWord returns the first word (length >= 4, not
// in commonWords) from phrase that also appears in source, or "".
func (v *Validator) findReusedSignificantWord(phrase, source string) string {
	sourceWords := make(map[string]bool)
	for _, w := range strings.Fields(source) {
		sourceWords[normalize(cleanWord(w))] = true
	}
	for _, w := range strings.Fields(phrase) {
		clean := normalize(cleanWord(w))
		if len(clean) >= 4 && !commonWords[clean] && sourceWords[clean] {
			return clean
		}
	}
	return ""
}

func cleanWord(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
