package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Submit    key.Binding
	NextModel key.Binding
	PrevModel key.Binding
	Copy      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		NextModel: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next model"),
		),
		PrevModel: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev model"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy reply"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextModel, k.Copy, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.NextModel, k.PrevModel},
		{k.Copy, k.PageUp, k.PageDown, k.Quit},
	}
}

// setLoading disables the bindings that must not fire mid-request.
func (k *keyMap) setLoading(loading bool) {
	k.Submit.SetEnabled(!loading)
	k.NextModel.SetEnabled(!loading)
	k.PrevModel.SetEnabled(!loading)
}
