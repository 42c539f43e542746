package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Word target bounds of the length slider.
const (
	MinTargetWords     = 50
	MaxTargetWords     = 800
	TargetWordsStep    = 25
	DefaultTargetWords = 300
	// TargetTolerance is how far off a post may be and still count as on
	// target.
	TargetTolerance = 20
)

var firstNumber = regexp.MustCompile(`\d+`)

// FormatLength encodes a word target as shown to users,
// e.g. "Exato (300 palavras)".
func FormatLength(words int) string {
	return fmt.Sprintf("Exato (%d palavras)", words)
}

// ExtractWordCount parses the first integer of a length encoding. Encodings
// without a positive number fall back to DefaultTargetWords.
func ExtractWordCount(length string) int {
	m := firstNumber.FindString(length)
	if m == "" {
		return DefaultTargetWords
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return DefaultTargetWords
	}
	return n
}

// CountWords counts whitespace separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// OnTarget reports whether count is within TargetTolerance of target.
func OnTarget(count, target int) bool {
	diff := count - target
	if diff < 0 {
		diff = -diff
	}
	return diff <= TargetTolerance
}
