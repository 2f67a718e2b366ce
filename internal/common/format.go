package common

import (
	"fmt"
	"strings"
)

// DefaultWidth is the report width shared by the CLI tools.
const DefaultWidth = 80

// PrintHeader prints a report title between full-width rules.
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", width))
}

// PrintFooter prints a closing summary between full-width rules.
func PrintFooter(summary string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(summary)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator closes a box-drawn report section.
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the gutter for one box-drawn list row.
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}
