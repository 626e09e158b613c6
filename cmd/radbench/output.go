package main

import (
	"fmt"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, s string) string {
	if noColor {
		return s
	}
	return color + s + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Printf("%s %s\n", colorize(colorGreen, "✓"), fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", colorize(colorRed, "✗"), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Printf("%s %s\n", colorize(colorYellow, "!"), fmt.Sprintf(format, args...))
}

func printStatus(label, value string) {
	fmt.Printf("  %s %s\n", colorize(colorBold, label+":"), value)
}
