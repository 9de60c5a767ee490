package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/bprzybysz/integra/internal/engine"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	styleH2    = lipgloss.NewStyle().Bold(true)
	styleGood  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	styleWarn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	styleBad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	styleMuted = lipgloss.NewStyle().Foreground(cMuted)
)

// renderClass colors a quota class for terminal output.
func renderClass(class string) string {
	switch class {
	case engine.ClassUnder:
		return styleGood.Render(class)
	case engine.ClassAt:
		return styleWarn.Render(class)
	case engine.ClassOver, engine.ClassAtZero:
		return styleBad.Render(class)
	case engine.ClassGate:
		return styleMuted.Render(class)
	default:
		return class
	}
}

// renderState colors an advisor state.
func renderState(state string) string {
	switch state {
	case engine.StateThriving:
		return styleGood.Render(state)
	case engine.StateHolding:
		return styleWarn.Render(state)
	case engine.StateStruggling:
		return styleBad.Render(state)
	default:
		return state
	}
}

// ftoa trims trailing zeros so quota amounts print as "7.29", not "7.290000".
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
