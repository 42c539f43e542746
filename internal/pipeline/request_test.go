package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/unipost/internal/prompt"
)

func TestValidateTopic(t *testing.T) {
	assert.NoError(t, ValidateTopic("  energia solar  "))
	assert.NoError(t, ValidateTopic("abcde"))
	assert.Error(t, ValidateTopic("abcd"))
	assert.Error(t, ValidateTopic("clique em javascript:void(0)"))
}

func TestRequestDefaults(t *testing.T) {
	req, err := Request{Topic: " energia solar ", Platform: "int"}.normalized(prompt.DefaultRegistry())
	require.NoError(t, err)

	assert.Equal(t, "energia solar", req.Topic)
	assert.Equal(t, "energia solar", req.SearchQuery)
	assert.Equal(t, "INT", req.Platform)
	assert.Equal(t, string(prompt.ToneInformal), req.Tone)
	assert.Equal(t, string(prompt.CreativityBalanced), req.Creativity)
	assert.Equal(t, prompt.DefaultTargetWords, prompt.ExtractWordCount(req.Length))
}

func TestRequestKeepsSearchQuery(t *testing.T) {
	req, err := Request{Topic: "energia solar", SearchQuery: "painéis fotovoltaicos"}.normalized(prompt.DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, "painéis fotovoltaicos", req.SearchQuery)
	assert.Empty(t, req.Platform)
}
