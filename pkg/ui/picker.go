package ui

import (
	"github.com/charmbracelet/huh"
	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/pkg/errors"
)

// PickModel asks for a model with a select prompt, starting on current.
func PickModel(current agent.Model) (agent.Model, error) {
	selected := current
	if !selected.Valid() {
		selected = agent.DefaultModel
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[agent.Model]().
				Title("Which model should answer?").
				Options(modelOptions()...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", errors.Wrap(err, "model selection")
	}
	return selected, nil
}

func modelOptions() []huh.Option[agent.Model] {
	models := agent.Models()
	ret := make([]huh.Option[agent.Model], len(models))
	for i, m := range models {
		ret[i] = huh.NewOption(string(m), m)
	}
	return ret
}
