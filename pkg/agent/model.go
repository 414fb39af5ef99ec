package agent

import (
	"strings"

	"github.com/pkg/errors"
)

// Model selects which backend LLM the agent uses for a prompt.
type Model string

const (
	ModelOllama Model = "ollama"
	ModelOpenAI Model = "openai"
)

// DefaultModel matches the agent's own fallback when no model is sent.
const DefaultModel = ModelOllama

var models = []Model{ModelOllama, ModelOpenAI}

// Models lists the recognized models in selector order.
func Models() []Model {
	ret := make([]Model, len(models))
	copy(ret, models)
	return ret
}

func ParseModel(s string) (Model, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range models {
		if string(m) == s {
			return m, nil
		}
	}
	return "", errors.Errorf("unknown model %q (expected one of %s)", s, strings.Join(modelNames(), ", "))
}

func (m Model) String() string {
	return string(m)
}

// Valid reports whether m is exactly one of the known model names. Use
// ParseModel for user input that may need trimming or case folding.
func (m Model) Valid() bool {
	for _, candidate := range models {
		if candidate == m {
			return true
		}
	}
	return false
}

// Next returns the model after m in selector order, wrapping around.
func (m Model) Next() Model {
	return m.shift(1)
}

// Prev returns the model before m in selector order, wrapping around.
func (m Model) Prev() Model {
	return m.shift(-1)
}

func (m Model) shift(delta int) Model {
	for i, candidate := range models {
		if candidate == m {
			return models[(i+delta+len(models))%len(models)]
		}
	}
	return DefaultModel
}

func modelNames() []string {
	ret := make([]string, 0, len(models))
	for _, m := range models {
		ret = append(ret, string(m))
	}
	return ret
}
