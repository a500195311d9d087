package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"updatestracker/internal/config"
	"updatestracker/internal/domain"
	"updatestracker/internal/extract"
	"updatestracker/internal/report"
)

type previewFlags struct {
	ruleBased bool
	asJSON    bool
	model     string
}

func (f *previewFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.ruleBased, "rule-based", false, "skip generation and use the built-in rules")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the extraction result as JSON")
	cmd.Flags().StringVar(&f.model, "model", "", "model to use instead of llm_model")
}

// loadConfig loads configuration for one-shot commands. Rule-based runs need
// no provider credentials.
func (f *previewFlags) loadConfig() (config.Config, error) {
	if f.ruleBased {
		if err := os.Setenv("LLM_PROVIDER", config.ProviderNone); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load()
}

func newExtractCommand() *cobra.Command {
	var flags previewFlags
	cmd := &cobra.Command{
		Use:   "extract [text]",
		Short: "Preview the structured sections for one update (reads stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			c, err := build(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer c.close()

			res, err := c.service.Preview(cmd.Context(), report.PreviewRequest{
				RawInputs: domain.RawInput{Accomplishments: text},
				Model:     flags.model,
				RuleBased: flags.ruleBased,
			})
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), []domain.ExtractionResult{res}, flags.asJSON)
		},
	}
	flags.register(cmd)
	return cmd
}

var blankLineRe = regexp.MustCompile(`\n[ \t]*\n`)

// splitBlocks splits text into inputs separated by blank lines.
func splitBlocks(text string) []string {
	var blocks []string
	for _, block := range blankLineRe.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1) {
		if block = strings.TrimSpace(block); block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func newBatchCommand() *cobra.Command {
	var flags previewFlags
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Preview every blank-line separated update in FILE (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			blocks := splitBlocks(string(data))
			if len(blocks) == 0 {
				return fmt.Errorf("no updates found in %s", args[0])
			}

			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			c, err := build(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer c.close()

			reqs := make([]report.PreviewRequest, len(blocks))
			for i, block := range blocks {
				reqs[i] = report.PreviewRequest{
					RawInputs: domain.RawInput{Accomplishments: block},
					Model:     flags.model,
					RuleBased: flags.ruleBased,
				}
			}
			results, err := c.service.PreviewBatch(cmd.Context(), reqs)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results, flags.asJSON)
		},
	}
	flags.register(cmd)
	return cmd
}

func printResults(w io.Writer, results []domain.ExtractionResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}
	for i, res := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "# Update %d (%s)\n\n", i+1, describeMethod(res))
		}
		fmt.Fprint(w, extract.Render(res.Sections))
	}
	return nil
}

func describeMethod(res domain.ExtractionResult) string {
	if res.FallbackReason == "" {
		return string(res.Method)
	}
	return fmt.Sprintf("%s, %s", res.Method, res.FallbackReason)
}
