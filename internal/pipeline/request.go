package pipeline

import (
	"strings"
	"unicode/utf8"

	"github.com/jimdaga/unipost/internal/prompt"
)

// Topic length bounds, in characters after trimming.
const (
	MinTopicLength = 5
	MaxTopicLength = 500
)

var harmfulPatterns = []string{"<script", "javascript:", "vbscript:", "onload=", "onerror="}

// Request holds the user's generation parameters.
type Request struct {
	Topic           string `json:"topic"`
	SearchQuery     string `json:"search_query"`
	Platform        string `json:"platform"`
	Tone            string `json:"tone"`
	Creativity      string `json:"creativity"`
	Length          string `json:"length"`
	IncludeHashtags bool   `json:"include_hashtags"`
	IncludeCTA      bool   `json:"include_cta"`
}

// ValidateTopic checks the trimmed topic length and rejects script
// injection patterns.
func ValidateTopic(topic string) error {
	trimmed := strings.TrimSpace(topic)
	n := utf8.RuneCountInString(trimmed)

	switch {
	case n == 0:
		return &ValidationError{Field: "topic", Message: "is required"}
	case n < MinTopicLength:
		return &ValidationError{Field: "topic", Message: "must have at least 5 characters"}
	case n > MaxTopicLength:
		return &ValidationError{Field: "topic", Message: "must have at most 500 characters"}
	}

	lower := strings.ToLower(trimmed)
	for _, p := range harmfulPatterns {
		if strings.Contains(lower, p) {
			return &ValidationError{Field: "topic", Message: "contains forbidden content"}
		}
	}
	return nil
}

// normalized validates r and fills in defaults: the search query falls back
// to the topic, tone to informal, creativity to balanced and length to the
// default word target.
func (r Request) normalized(platforms *prompt.Registry) (Request, error) {
	if err := ValidateTopic(r.Topic); err != nil {
		return r, err
	}
	r.Topic = strings.TrimSpace(r.Topic)

	r.SearchQuery = strings.TrimSpace(r.SearchQuery)
	if r.SearchQuery == "" {
		r.SearchQuery = r.Topic
	}

	r.Platform = strings.ToUpper(strings.TrimSpace(r.Platform))
	if r.Platform != "" {
		if _, ok := platforms.Get(r.Platform); !ok {
			return r, &ValidationError{Field: "platform", Message: "unknown platform " + r.Platform}
		}
	}

	if r.Tone == "" {
		r.Tone = string(prompt.ToneInformal)
	}
	if !prompt.Tone(r.Tone).Valid() {
		return r, &ValidationError{Field: "tone", Message: "unknown tone " + r.Tone}
	}

	if r.Creativity == "" {
		r.Creativity = string(prompt.CreativityBalanced)
	}
	if !prompt.Creativity(r.Creativity).Valid() {
		return r, &ValidationError{Field: "creativity", Message: "unknown creativity level " + r.Creativity}
	}

	if strings.TrimSpace(r.Length) == "" {
		r.Length = prompt.FormatLength(prompt.DefaultTargetWords)
	}
	return r, nil
}
