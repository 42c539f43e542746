// Package prompt assembles the generation context sent to the language
// model from a topic, ranked references and style parameters.
package prompt

import (
	"fmt"
	"strings"

	"github.com/jimdaga/unipost/internal/references"
)

// Reference limits applied to the prompt context.
const (
	MaxContextReferences = 5
	MaxReferenceRunes    = 500
)

const noContext = "Nenhum contexto específico fornecido."

// Params are the inputs of one prompt.
type Params struct {
	Topic           string
	References      []references.Reference
	Platform        string
	Tone            Tone
	Creativity      Creativity
	Length          string
	IncludeHashtags bool
	IncludeCTA      bool
}

// Context is the assembled prompt plus the sampling settings derived from
// it.
type Context struct {
	System         string
	User           string
	Temperature    float64
	TargetWords    int
	Platform       Platform
	ReferenceCount int
}

// Builder renders prompts using a platform registry.
type Builder struct {
	platforms *Registry
}

// NewBuilder creates a Builder. A nil registry uses the embedded profiles.
func NewBuilder(platforms *Registry) *Builder {
	if platforms == nil {
		platforms = DefaultRegistry()
	}
	return &Builder{platforms: platforms}
}

// Build assembles a prompt with the embedded platform profiles.
func Build(p Params) Context {
	return NewBuilder(nil).Build(p)
}

// Build assembles the prompt for p. References are used in the given order,
// so callers pass them already ranked.
func (b *Builder) Build(p Params) Context {
	platform := b.platforms.Resolve(p.Platform)
	target := ExtractWordCount(p.Length)
	refs := references.Top(p.References, MaxContextReferences)

	return Context{
		System:         systemPrompt(platform),
		User:           userPrompt(p, platform, target, refs),
		Temperature:    p.Creativity.Temperature(),
		TargetWords:    target,
		Platform:       platform,
		ReferenceCount: len(refs),
	}
}

func systemPrompt(platform Platform) string {
	var sb strings.Builder
	sb.WriteString("Você é um redator especialista em redes sociais que escreve em português brasileiro.\n")
	fmt.Fprintf(&sb, "Plataforma: %s. %s\n", platform.Name, platform.Description)
	sb.WriteString("Diretrizes da plataforma:\n")
	for _, g := range platform.Guidelines {
		fmt.Fprintf(&sb, "- %s\n", g)
	}
	if platform.Emojis {
		sb.WriteString("- Emojis são bem-vindos com moderação\n")
	} else {
		sb.WriteString("- Não use emojis\n")
	}
	sb.WriteString("Responda apenas com o texto final do post.")
	return sb.String()
}

func userPrompt(p Params, platform Platform, target int, refs []references.Reference) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Com base no contexto fornecido abaixo, crie um post sobre o tema: %q\n\n", strings.TrimSpace(p.Topic))

	sb.WriteString("CONTEXTO:\n")
	sb.WriteString(FormatReferences(refs))
	sb.WriteString("\n\nINSTRUÇÕES:\n")

	if instr, ok := toneInstructions[p.Tone]; ok {
		fmt.Fprintf(&sb, "- %s\n", instr)
	}
	if instr, ok := creativityInstructions[p.Creativity]; ok {
		fmt.Fprintf(&sb, "- %s\n", instr)
	}
	sb.WriteString("- Incorpore informações do contexto de forma natural\n")
	fmt.Fprintf(&sb, "- O texto deve ter aproximadamente %d palavras\n", target)

	if p.IncludeHashtags {
		fmt.Fprintf(&sb, "- Inclua até %d hashtags relevantes no final\n", platform.MaxHashtags)
	} else {
		sb.WriteString("- Não inclua hashtags\n")
	}
	if p.IncludeCTA {
		sb.WriteString("- Termine com uma chamada para ação clara\n")
	}

	sb.WriteString("\nTEXTO:\n")
	return sb.String()
}

// FormatReferences renders references as prompt context. Each body is cut
// to MaxReferenceRunes.
func FormatReferences(refs []references.Reference) string {
	if len(refs) == 0 {
		return noContext
	}

	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		title := r.Title
		if title == "" {
			title = references.DefaultTitle
		}
		body, _ := references.Truncate(r.Body, MaxReferenceRunes)
		parts = append(parts, fmt.Sprintf("Título: %s\nConteúdo: %s\n", title, body))
	}
	return strings.Join(parts, "\n---\n")
}
