package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/pkg/trace"
)

// inputsCommand creates the inputs command.
func (c *CLI) inputsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inputs <file.py>",
		Short: "List the input() prompts a program asks for",
		Long: `Inputs scans a Python program for input() calls and lists, in order, the
variable each answer is stored in and the prompt shown. Pass the answers to
"codeflow trace" with --input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := c.readSource(args[0])
			if err != nil {
				return err
			}
			prompts := trace.InputPrompts(code)
			if asJSON {
				if prompts == nil {
					prompts = []trace.Prompt{}
				}
				enc := json.NewEncoder(c.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(prompts)
			}
			if len(prompts) == 0 {
				printInfo("No input() calls found")
				return nil
			}
			fmt.Fprintln(c.stdout, promptTable(prompts))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func promptTable(prompts []trace.Prompt) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("LINE", "VARIABLE", "PROMPT").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, p := range prompts {
		t.Row(strconv.Itoa(p.Line), p.Var, p.Text)
	}
	return t.String()
}
