// Package terminal holds ANSI helpers for human-readable output.
package terminal

import "os"

// Enabled reports whether colors are used. Setting NO_COLOR disables them.
func Enabled() bool {
	return os.Getenv("NO_COLOR") == ""
}

func code(c string) string {
	if !Enabled() {
		return ""
	}
	return c
}

// Red returns ANSI red color code, or empty string if NO_COLOR is set
func Red() string { return code("\033[31m") }

// Green returns ANSI green color code, or empty string if NO_COLOR is set
func Green() string { return code("\033[32m") }

// Yellow returns ANSI yellow color code, or empty string if NO_COLOR is set
func Yellow() string { return code("\033[33m") }

// Gray returns ANSI gray color code, or empty string if NO_COLOR is set
func Gray() string { return code("\033[90m") }

// Bold returns ANSI bold code, or empty string if NO_COLOR is set
func Bold() string { return code("\033[1m") }

// Reset returns ANSI reset code, or empty string if NO_COLOR is set
func Reset() string { return code("\033[0m") }

// Paint wraps s in color and a reset.
func Paint(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + Reset()
}
