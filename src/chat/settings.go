package chat

import (
	"slices"
	"strings"
)

// DefaultToneID is the built-in tone selected when nothing else resolves
const DefaultToneID = "default"

// OutputLength is the preferred length of model replies
type OutputLength string

const (
	OutputAuto   OutputLength = "auto"
	OutputShort  OutputLength = "short"
	OutputMedium OutputLength = "medium"
	OutputLong   OutputLength = "long"
)

// OutputLengths lists the valid output lengths in display order
func OutputLengths() []OutputLength {
	return []OutputLength{OutputAuto, OutputShort, OutputMedium, OutputLong}
}

// Instruction returns the system prompt fragment for the length preference.
// Auto yields an empty string.
func (o OutputLength) Instruction() string {
	switch o {
	case OutputShort:
		return "Keep responses brief: a few sentences at most unless the user asks for more."
	case OutputMedium:
		return "Aim for moderately detailed responses of a few paragraphs."
	case OutputLong:
		return "Give thorough, detailed responses that cover the topic comprehensively."
	default:
		return ""
	}
}

// Tone is a named system prompt instruction
type Tone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
	IsCustom    bool   `json:"isCustom"`
}

var builtinTones = []Tone{
	{ID: DefaultToneID, Name: "Default", Instruction: "You are a helpful, knowledgeable assistant. Answer clearly and accurately."},
	{ID: "friendly", Name: "Friendly", Instruction: "You are a warm and friendly assistant. Use a casual, encouraging tone."},
	{ID: "professional", Name: "Professional", Instruction: "You are a professional assistant. Use a formal, precise and neutral tone."},
	{ID: "concise", Name: "Concise", Instruction: "You are a concise assistant. Answer as directly as possible and skip pleasantries."},
	{ID: "academic", Name: "Academic", Instruction: "You are an academic assistant. Explain rigorously and reference established concepts where relevant."},
}

// BuiltinTones returns a copy of the built-in tones
func BuiltinTones() []Tone {
	return slices.Clone(builtinTones)
}

// Settings holds user preferences that shape every request
type Settings struct {
	SelectedToneID string       `json:"selectedToneId"`
	CustomTones    []Tone       `json:"customTones"`
	Memory         string       `json:"memory"`
	OutputLength   OutputLength `json:"outputLength"`
}

// DefaultSettings returns the settings used on first start
func DefaultSettings() Settings {
	return Settings{
		SelectedToneID: DefaultToneID,
		CustomTones:    []Tone{},
		OutputLength:   OutputAuto,
	}
}

// Tones returns built-in tones followed by custom tones
func (s Settings) Tones() []Tone {
	return append(BuiltinTones(), s.CustomTones...)
}

// FindTone looks up a tone by id among built-in and custom tones
func (s Settings) FindTone(id string) (Tone, bool) {
	for _, t := range s.Tones() {
		if t.ID == id {
			return t, true
		}
	}
	return Tone{}, false
}

// ResolveTone returns the selected tone, falling back to the default tone
func (s Settings) ResolveTone() Tone {
	if t, ok := s.FindTone(s.SelectedToneID); ok {
		return t
	}
	return builtinTones[0]
}

// WithCustomTone adds or replaces a custom tone. Tones sharing an id with a
// built-in tone are ignored.
func (s Settings) WithCustomTone(t Tone) Settings {
	if t.ID == "" {
		t.ID = NewID()
	}
	for _, b := range builtinTones {
		if b.ID == t.ID {
			return s
		}
	}
	t.IsCustom = true
	tones := slices.Clone(s.CustomTones)
	if i := slices.IndexFunc(tones, func(c Tone) bool { return c.ID == t.ID }); i >= 0 {
		tones[i] = t
	} else {
		tones = append(tones, t)
	}
	s.CustomTones = tones
	return s
}

// WithoutTone removes a custom tone. Deleting the active tone resets the
// selection to the default tone.
func (s Settings) WithoutTone(id string) Settings {
	s.CustomTones = slices.DeleteFunc(slices.Clone(s.CustomTones), func(t Tone) bool { return t.ID == id })
	if s.SelectedToneID == id {
		s.SelectedToneID = DefaultToneID
	}
	return s
}

// WithSelectedTone selects a tone if it resolves
func (s Settings) WithSelectedTone(id string) Settings {
	if _, ok := s.FindTone(id); ok {
		s.SelectedToneID = id
	}
	return s
}

// WithMemoryFact appends fact to memory as a new bullet line
func (s Settings) WithMemoryFact(fact string) Settings {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return s
	}
	line := "- " + fact
	memory := strings.TrimRight(s.Memory, "\n")
	if memory == "" {
		s.Memory = line
	} else {
		s.Memory = memory + "\n" + line
	}
	return s
}

// Normalize repairs settings so every invariant holds
func (s Settings) Normalize() Settings {
	s.CustomTones = slices.Clone(s.CustomTones)
	if s.CustomTones == nil {
		s.CustomTones = []Tone{}
	}
	for i := range s.CustomTones {
		s.CustomTones[i].IsCustom = true
	}
	if !slices.Contains(OutputLengths(), s.OutputLength) {
		s.OutputLength = OutputAuto
	}
	if _, ok := s.FindTone(s.SelectedToneID); !ok {
		s.SelectedToneID = DefaultToneID
	}
	return s
}
