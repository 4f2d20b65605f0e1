// Package parse prints how a message would be parsed without touching state.
package parse

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parser"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrUnparsed is returned when the message is not a valid command.
var ErrUnparsed = errors.New("message could not be parsed")

// Cmd represents the parse command
var Cmd = &cobra.Command{
	Use:   "parse TEXT...",
	Short: "Parse a message and print the resulting command",
	Long: `Parse a message and print the resulting command fields, or the parse
error with suggestions. Nothing is stored.`,
	Args: cobra.MinimumNArgs(1),
	// parsing needs no configuration
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		parsed, perr := parser.Parse(strings.Join(args, " "))
		if perr != nil {
			printParseError(out, string(perr.Category), perr.Message, perr.Suggestions)
			return ErrUnparsed
		}
		return printCommand(out, parsed)
	},
}

func printParseError(out io.Writer, category, message string, suggestions []string) {
	fmt.Fprintf(out, "❌ Parse Error (%s)\n", category)
	fmt.Fprintf(out, "   %s\n", message)
	if len(suggestions) > 0 {
		fmt.Fprintln(out, "   Suggestions:")
		for _, s := range suggestions {
			fmt.Fprintf(out, "   • %s\n", s)
		}
	}
}

func printCommand(out io.Writer, cmd models.Command) error {
	rec := models.EncodeCommand(cmd)
	kind := rec.Kind
	rec.Kind = ""
	rec.RawText = ""

	body, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("error encoding command: %w", err)
	}

	fmt.Fprintf(out, "✅ Parsed: %s\n", kind)
	for _, line := range strings.Split(strings.TrimRight(string(body), "\n"), "\n") {
		if line == "" || strings.HasPrefix(line, "kind:") || strings.HasPrefix(line, "raw_text:") || line == "{}" {
			continue
		}
		fmt.Fprintf(out, "   %s\n", line)
	}
	return nil
}
