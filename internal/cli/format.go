// Package cli provides shared formatting helpers for CLI output.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// ANSI color/style constants shared by every command's output.
const (
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Red     = "\033[31m"
	Cyan    = "\033[36m"
	DimCyan = "\033[2;36m"
	Dim     = "\033[2m"
	Bold    = "\033[1m"
	Reset   = "\033[0m"
)

const (
	boxWidth = 68
	margin   = "  "
)

// redGradient shades the banner logo bright-to-dark, top to bottom.
var redGradient = []string{
	"\033[38;5;196m", // #ff0000
	"\033[38;5;160m", // #d70000
	"\033[38;5;124m", // #af0000
	"\033[38;5;88m",  // #870000
	"\033[38;5;52m",  // #5f0000
	"\033[38;5;52m",  // #5f0000
}

// ShortenHome replaces $HOME prefix with ~.
func ShortenHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}

// FormatNumber adds comma separators (1234 -> "1,234").
func FormatNumber(n int) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return FormatNumber(n/1000) + "," + fmt.Sprintf("%03d", n%1000)
}

// Banner prints the LOA ASCII logo with a red gradient and tagline. Used by
// `memoryd init`.
func Banner(version string) {
	logo := []string{
		"  ██╗      ██████╗  ██████╗",
		"  ██║     ██╔══██╗██╔══██╗",
		"  ██║     ██║  ██║██████║",
		"  ██║     ██║  ██║██╔══██║",
		"  ███████╗╚██████╔╝██║  ██║",
		"  ╚══════╝ ╚═════╝ ╚═╝  ╚═╝",
	}

	fmt.Println()
	for i, line := range logo {
		color := redGradient[i%len(redGradient)]
		fmt.Printf("%s%s%s\n", color, line, Reset)
	}
	fmt.Println()
	fmt.Printf("  %sEvery agent session starts from zero.%s %s%sNot anymore.%s\n",
		Dim, Reset, Bold, Red, Reset)
	fmt.Println()
	fmt.Printf("  %sLOA%s %s— Library of Alexandria, a conversational memory engine v%s%s\n",
		Bold, Reset, Dim, version, Reset)
}

// Header prints a small heavy-border box with a title.
func Header(title string) {
	fmt.Println()
	heavyTop := margin + "┏" + strings.Repeat("━", boxWidth) + "┓"
	heavyBottom := margin + "┗" + strings.Repeat("━", boxWidth) + "┛"

	content := "  " + title
	padded := padRight(content, boxWidth)

	fmt.Printf("%s%s%s\n", Cyan, heavyTop, Reset)
	fmt.Printf("%s%s┃%s┃%s\n", Cyan, margin, padded, Reset)
	fmt.Printf("%s%s%s\n", Cyan, heavyBottom, Reset)
}

// Section prints a section divider line: ── Name ─────────────────
func Section(name string) {
	prefix := "── " + name + " "
	remaining := boxWidth + 2 - runeLen(prefix)
	if remaining < 0 {
		remaining = 0
	}
	rule := prefix + strings.Repeat("─", remaining)
	fmt.Printf("\n%s%s%s%s%s\n\n", margin, Cyan, rule, Reset, "")
}

// Box prints a light-border box around content lines.
func Box(lines []string) {
	lightTop := margin + "┌" + strings.Repeat("─", boxWidth) + "┐"
	lightBottom := margin + "└" + strings.Repeat("─", boxWidth) + "┘"

	fmt.Println()
	fmt.Println(lightTop)
	for _, line := range lines {
		content := "  " + line
		padded := padRight(content, boxWidth)
		fmt.Printf("%s│%s│\n", margin, padded)
	}
	fmt.Println(lightBottom)
}

// Footer prints the branded footer in dim text.
func Footer() {
	fmt.Printf("\n%s%ssgx-labs/loa%s\n\n", margin, Dim, Reset)
}

// padRight pads s with spaces to exactly width characters.
// If s is longer than width, it is truncated.
func padRight(s string, width int) string {
	n := runeLen(s)
	if n >= width {
		r := []rune(s)
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-n)
}

// runeLen counts the display width in runes.
func runeLen(s string) int {
	return len([]rune(s))
}
