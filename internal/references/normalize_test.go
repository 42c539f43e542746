package references

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer()

	out := n.Normalize([]RawText{
		{Title: "<b>Energia</b>", Type: "blog", Source: "posts", Body: "<p>Painéis   solares &amp; baterias\nreduzem custos</p>"},
		{Title: "", Body: "too short"},
		{Title: "dup", Body: "PAINÉIS solares & baterias reduzem custos"},
		{Title: "", Type: "", Body: "<script>alert(1)</script>Vento e sol geram energia limpa"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "Energia", out[0].Title)
	assert.Equal(t, "Painéis solares & baterias reduzem custos", out[0].Body)
	assert.Equal(t, DefaultTitle, out[1].Title)
	assert.Equal(t, DefaultType, out[1].Type)
	assert.Equal(t, "unknown", out[1].Source)
	assert.NotContains(t, out[1].Body, "alert")
}

func TestNormalizeAllUnusable(t *testing.T) {
	out := NewNormalizer().Normalize([]RawText{{Body: "<br/>"}, {Body: "curto"}})
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
