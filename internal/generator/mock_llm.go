package generator

import (
	"context"
	"strings"

	"github.com/jimdaga/unipost/internal/prompt"
)

// MockLLM is a local stand-in that never calls a model. It writes a post of
// roughly the requested length so the rest of the flow can be exercised.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, p prompt.Context) (string, error) {
	var sb strings.Builder
	sb.WriteString("Post de exemplo para ")
	sb.WriteString(p.Platform.Name)
	sb.WriteString(".")

	words := prompt.CountWords(sb.String())
	filler := []string{"conteúdo", "gerado", "localmente", "para", "testes"}
	for i := 0; words < p.TargetWords; i++ {
		sb.WriteString(" ")
		sb.WriteString(filler[i%len(filler)])
		words++
	}
	return sb.String(), nil
}
