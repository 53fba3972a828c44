package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bankintent/internal/rules"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate language profiles",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the loaded language profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		registry, err := rules.Load(cfg.Rules.File, cfg.Rules.DefaultLanguage)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TAG\tMODE\tINTENTS\tNUMERALS\tRECIPIENT\tPERIODS")
		for _, p := range registry.Profiles() {
			tag := p.Tag
			if tag == registry.DefaultTag() {
				tag += " (default)"
			}

			intents := make([]string, 0, len(p.Intents))
			for _, rule := range p.Intents {
				intents = append(intents, string(rule.Intent))
			}

			recipient := "-"
			if p.Recipient != nil {
				recipient = fmt.Sprintf("%s %q", p.Recipient.Mode, p.Recipient.Marker)
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\n",
				tag, p.Mode, strings.Join(intents, ","), len(p.Numerals), recipient, len(p.PeriodCues))
		}
		return w.Flush()
	},
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a rules file against the built-in profiles",
	Long: `Validate loads the built-in profiles merged with the given rules file
(or rules.file when no argument is given) and reports every problem found:
patterns that do not compile, duplicate intents, bad number words,
unknown recipient modes or periods, and a missing default profile.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		file := cfg.Rules.File
		if len(args) == 1 {
			file = args[0]
		}

		registry, err := rules.Load(file, cfg.Rules.DefaultLanguage)
		if err != nil {
			return fmt.Errorf("invalid rules:\n%w", err)
		}

		source := "built-in profiles"
		if file != "" {
			source = file
		}
		fmt.Printf("✓ %s: %d profiles OK (%s)\n", source, len(registry.Tags()), strings.Join(registry.Tags(), ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
}
