package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Cause        error
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError renders a message with optional cause, suggestions and help
// commands:
//
//	❌ RELATION NOT FOUND: Cannot find relation 'usr'.
//
//	   Did you mean: users?
//
//	   → List relations: relmap inspect
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string
	switch opts.Level {
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case ErrorLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	default:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	}
	hint := color.New(color.FgYellow)
	help := color.New(color.FgCyan)

	if opts.NoColor {
		for _, c := range []*color.Color{headerColor, bodyColor, hint, help} {
			c.DisableColor()
		}
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Cause != nil {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %v\n", opts.Cause)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		hint.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			help.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// RelationNotFoundError reports an unknown relation with close matches
func RelationNotFoundError(name string, known []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:     "RELATION NOT FOUND",
		Problem:     fmt.Sprintf("Cannot find relation '%s'.", name),
		Suggestions: FindSimilar(name, known, nil),
		HelpCommands: []string{
			"List relations: relmap inspect",
		},
		NoColor: noColor,
	})
}

// ConfigError reports an unusable configuration
func ConfigError(cause error, noColor bool) string {
	return FormatError(ErrorOptions{
		Context: "CONFIGURATION ERROR",
		Problem: "Cannot load relmap configuration.",
		Cause:   cause,
		HelpCommands: []string{
			"View config: cat relmap.yml",
			"Override with env: RELMAP_LOG_LEVEL=debug relmap inspect",
		},
		NoColor: noColor,
	})
}

// FinalizeError reports a failed environment setup
func FinalizeError(cause error, noColor bool) string {
	return FormatError(ErrorOptions{
		Context: "SETUP FAILED",
		Problem: "Cannot finalize relations, readers and commands.",
		Cause:   cause,
		HelpCommands: []string{
			"Show adapter activity: relmap inspect --log-level debug",
		},
		NoColor: noColor,
	})
}

// Warning creates a warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: message, NoColor: noColor})
}
