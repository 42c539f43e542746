package prompt

// Tone is the voice of the generated post.
type Tone string

const (
	ToneInformal      Tone = "informal"
	ToneFormal        Tone = "formal"
	ToneEducational   Tone = "educativo"
	ToneTechnical     Tone = "técnico"
	ToneInspirational Tone = "inspiracional"
)

var toneInstructions = map[Tone]string{
	ToneInformal:      "Use um tom leve e descontraído, como uma conversa entre amigos.",
	ToneFormal:        "Use um tom formal e respeitoso, sem gírias.",
	ToneEducational:   "Use um tom didático, explicando conceitos passo a passo.",
	ToneTechnical:     "Use um tom técnico e preciso, com termos da área quando relevantes.",
	ToneInspirational: "Use um tom inspirador e motivacional.",
}

// Tones lists the accepted tones in display order.
func Tones() []Tone {
	return []Tone{ToneInformal, ToneFormal, ToneEducational, ToneTechnical, ToneInspirational}
}

// Valid reports whether t is a known tone.
func (t Tone) Valid() bool {
	_, ok := toneInstructions[t]
	return ok
}

// Creativity controls how far the model may stray from the references.
type Creativity string

const (
	CreativityConservative Creativity = "conservador"
	CreativityBalanced     Creativity = "equilibrado"
	CreativityCreative     Creativity = "criativo"
	CreativityInnovative   Creativity = "inovador"
)

var creativityTemperature = map[Creativity]float64{
	CreativityConservative: 0.3,
	CreativityBalanced:     0.7,
	CreativityCreative:     0.9,
	CreativityInnovative:   1.1,
}

var creativityInstructions = map[Creativity]string{
	CreativityConservative: "Mantenha-se fiel às referências, sem extrapolar.",
	CreativityBalanced:     "Equilibre fidelidade às referências com originalidade.",
	CreativityCreative:     "Traga ângulos criativos e exemplos originais.",
	CreativityInnovative:   "Surpreenda com abordagens inovadoras e pouco óbvias.",
}

// Creativities lists the accepted creativity levels in display order.
func Creativities() []Creativity {
	return []Creativity{CreativityConservative, CreativityBalanced, CreativityCreative, CreativityInnovative}
}

// Valid reports whether c is a known level.
func (c Creativity) Valid() bool {
	_, ok := creativityTemperature[c]
	return ok
}

// Temperature maps the level to a sampling temperature. Unknown levels use
// the balanced temperature.
func (c Creativity) Temperature() float64 {
	if t, ok := creativityTemperature[c]; ok {
		return t
	}
	return creativityTemperature[CreativityBalanced]
}
