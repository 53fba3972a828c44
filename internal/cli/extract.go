package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bankintent/internal/model"
)

var (
	extractLang    string
	extractExplain bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [text...]",
	Short: "Extract the banking intent from one utterance",
	Long: `Extract classifies a single utterance and prints the intent result
as JSON. With no arguments the utterance is read from stdin.

Example:
  bankintent extract "transfer 100 dollars to jane"
  bankintent extract --lang hi-IN "राम को दो सौ रुपये भेजो"
  echo "show my balance" | bankintent extract --explain`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractLang, "lang", "l", model.DefaultLanguage, "language tag of the utterance")
	extractCmd.Flags().BoolVar(&extractExplain, "explain", false, "print the strategy, pattern and keyword scores too")
}

func runExtract(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	p, err := buildPipeline(cfg, log, nil)
	if err != nil {
		return err
	}

	ext := p.Extract(text, extractLang)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if extractExplain {
		return enc.Encode(ext)
	}
	return enc.Encode(ext.Result)
}
