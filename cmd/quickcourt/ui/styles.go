package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

func PrintTitle(title string) {
	fmt.Println(titleStyle.Render(title))
}

func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}

// PrintField prints an aligned "label: value" line
func PrintField(label string, value any) {
	fmt.Printf("  %s %v\n", subtleStyle.Render(fmt.Sprintf("%-10s", label+":")), value)
}
