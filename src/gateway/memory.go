package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/swaggest/jsonschema-go"
	"google.golang.org/genai"
)

// MemoryFunctionName is the function the model calls to remember a fact
const MemoryFunctionName = "update_memory"

// MemoryUpdate is the argument of the memory function
type MemoryUpdate struct {
	Fact string `json:"fact" required:"true" minLength:"1" description:"One concise fact about the user to remember in future conversations"`
}

// FunctionCall is a function invocation requested by the model
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// MemoryFact decodes the call as a memory update
func (f FunctionCall) MemoryFact() (string, bool) {
	if f.Name != MemoryFunctionName {
		return "", false
	}
	raw, err := json.Marshal(f.Args)
	if err != nil {
		return "", false
	}
	var u MemoryUpdate
	if err := json.Unmarshal(raw, &u); err != nil {
		return "", false
	}
	fact := strings.TrimSpace(u.Fact)
	return fact, fact != ""
}

func memoryDeclaration() (*genai.FunctionDeclaration, error) {
	reflector := jsonschema.Reflector{}
	schema, err := reflector.Reflect(MemoryUpdate{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	return &genai.FunctionDeclaration{
		Name:                 MemoryFunctionName,
		Description:          "Save a fact about the user so it is available in future conversations.",
		ParametersJsonSchema: schema,
	}, nil
}
