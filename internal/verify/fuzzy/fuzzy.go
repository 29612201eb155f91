// Package fuzzy implements the OCR-tolerant label-similarity scoring shared
// by the Field Locator (label candidates) and the Signature Zone Engine
// (landmark search). The scoring rules and the substitution table are part
// of the contract, not an implementation detail: changing them changes
// which boxes qualify as label/landmark candidates.
//
// Grounded on bosocmputer-account_ocr_gemini/internal/processor/
// template_matcher.go's calculateFuzzyMatch/calculateStringSimilarity, with
// the substitution table taken from the word-set match rule.
package fuzzy

import "strings"

// substitutions is the OCR character-confusion table applied when neither
// an exact nor a prefix/contains match succeeds.
var substitutions = []struct{ from, to string }{
	{"1", "l"}, {"l", "1"}, {"I", "1"},
	{"0", "O"}, {"O", "0"},
	{"5", "S"}, {"S", "5"},
	{"8", "B"}, {"B", "8"},
	{"2", "Z"}, {"Z", "2"},
	{"6", "G"}, {"G", "6"},
	{"rn", "m"}, {"m", "rn"},
	{"cl", "d"}, {"d", "cl"},
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Score returns the similarity of candidate text against a label string
// using the three-tier rule: exact (1.00), prefix/contains
// (0.85 + 0.1*len_short/len_long), or word-set match under the OCR
// substitution table (capped at 0.80).
func Score(candidate, label string) float64 {
	c := normalize(candidate)
	l := normalize(label)
	if c == "" || l == "" {
		return 0
	}
	if c == l {
		return 1.00
	}
	if strings.Contains(c, l) || strings.Contains(l, c) {
		shortLen, longLen := len(c), len(l)
		if shortLen > longLen {
			shortLen, longLen = longLen, shortLen
		}
		return 0.85 + 0.1*(float64(shortLen)/float64(longLen))
	}
	return wordSetScore(c, l)
}

// wordSetScore compares the candidate and label as bags of words, applying
// the substitution table to each candidate word before comparing, capped at
// 0.80 per the label-candidate contract.
func wordSetScore(candidate, label string) float64 {
	cWords := strings.Fields(candidate)
	lWords := strings.Fields(label)
	if len(lWords) == 0 {
		return 0
	}
	matched := 0
	for _, lw := range lWords {
		if wordMatches(cWords, lw) {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(lWords))
	score := ratio * 0.80
	if score > 0.80 {
		score = 0.80
	}
	return score
}

func wordMatches(candidateWords []string, target string) bool {
	for _, cw := range candidateWords {
		if cw == target {
			return true
		}
		for _, variant := range expand(cw) {
			if variant == target {
				return true
			}
		}
	}
	return false
}

// expand returns cw plus every substitution-table variant of it, so a
// misread candidate word can still land on the target spelling.
func expand(cw string) []string {
	variants := []string{cw}
	for _, sub := range substitutions {
		if strings.Contains(cw, sub.from) {
			variants = append(variants, strings.ReplaceAll(cw, sub.from, sub.to))
		}
	}
	return variants
}

// AcceptThreshold returns the minimum score a label candidate must clear,
// which depends on whether the page was OCR'd (more tolerant) or is digital
// text (stricter, since OCR noise shouldn't be present).
func AcceptThreshold(isDigital bool) float64 {
	if isDigital {
		return 0.60
	}
	return 0.40
}
