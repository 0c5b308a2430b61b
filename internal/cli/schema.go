// Package cli provides shared CLI utilities for tenderflowd and tenderflow.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvAnnotation lists, comma separated, the environment variables a command reads.
const EnvAnnotation = "tenderflow_env"

// FlagSchema represents the JSON schema for a command flag.
type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// ArgSchema is one positional argument taken from the command's Use line.
type ArgSchema struct {
	Name     string   `json:"name"`
	Required bool     `json:"required"`
	Choices  []string `json:"choices,omitempty"`
}

// CommandSchema represents the JSON schema for a command.
type CommandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Aliases     []string        `json:"aliases,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Args        []ArgSchema     `json:"args,omitempty"`
	Env         []string        `json:"env,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

// GenerateSchema generates a JSON schema for a cobra command and its visible subcommands.
func GenerateSchema(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Aliases:     cmd.Aliases,
		Description: cmd.Short,
		Long:        cmd.Long,
		Args:        parseArgs(cmd),
		Flags:       extractFlags(cmd),
	}
	if env := cmd.Annotations[EnvAnnotation]; env != "" {
		schema.Env = strings.Split(env, ",")
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Hidden {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, GenerateSchema(sub))
	}

	return schema
}

// parseArgs reads <required> and [optional] placeholders from Use. Alternatives
// written as <a|b> become choices; ValidArgs fill in choices for the last argument.
func parseArgs(cmd *cobra.Command) []ArgSchema {
	fields := strings.Fields(cmd.Use)
	if len(fields) < 2 {
		return nil
	}

	var args []ArgSchema
	for _, f := range fields[1:] {
		var arg ArgSchema
		switch {
		case strings.HasPrefix(f, "<") && strings.HasSuffix(f, ">"):
			arg = ArgSchema{Name: strings.Trim(f, "<>"), Required: true}
		case strings.HasPrefix(f, "[") && strings.HasSuffix(f, "]"):
			arg = ArgSchema{Name: strings.Trim(f, "[]")}
		default:
			continue
		}
		if strings.Contains(arg.Name, "|") {
			arg.Choices = strings.Split(arg.Name, "|")
			arg.Name = "choice"
		}
		args = append(args, arg)
	}

	if n := len(args); n > 0 && len(cmd.ValidArgs) > 0 && args[n-1].Choices == nil {
		args[n-1].Choices = cmd.ValidArgs
	}
	return args
}

func extractFlags(cmd *cobra.Command) []FlagSchema {
	var flags []FlagSchema

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "help-json" || f.Name == "help" {
			return
		}
		flags = append(flags, FlagSchema{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Description: f.Usage,
			Required:    len(f.Annotations[cobra.BashCompOneRequiredFlag]) > 0,
		})
	})

	return flags
}

// WriteSchema writes the indented schema of cmd to w.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	output, err := json.MarshalIndent(GenerateSchema(cmd), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// AddHelpJSONFlag adds the --help-json flag to a command.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("help-json", false, "Output command schema as JSON")
}

// CheckHelpJSON prints the schema of the addressed command and exits when os.Args
// contains --help-json. Call it before Execute so argument validation never runs.
func CheckHelpJSON(rootCmd *cobra.Command) {
	for i, arg := range os.Args {
		if arg != "--help-json" {
			continue
		}
		if err := WriteSchema(os.Stdout, findTargetCommand(rootCmd, os.Args[1:i])); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}

func findTargetCommand(cmd *cobra.Command, args []string) *cobra.Command {
	for i, a := range args {
		if strings.HasPrefix(a, "-") {
			continue
		}
		for _, sub := range cmd.Commands() {
			if sub.Name() == a || sub.HasAlias(a) {
				return findTargetCommand(sub, args[i+1:])
			}
		}
	}
	return cmd
}
