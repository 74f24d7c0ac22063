package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/Amund-Fremming/tero.platform/cmd/teroapi/cmd/cmdutil"
	"github.com/Amund-Fremming/tero.platform/internal/repository"
	"github.com/Amund-Fremming/tero.platform/internal/services/keyvault"
)

// wordFile is the on-disk word list format:
//
//	prefix = ["red", "blue"]
//	suffix = ["fox", "owl"]
type wordFile struct {
	Prefix []string `toml:"prefix"`
	Suffix []string `toml:"suffix"`
}

var wordsFile string

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Manage game-key word lists",
	Long:  `Game keys are one prefix word and one suffix word. The lists are loaded into the key vault at start-up.`,
}

var wordsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace both word lists from a TOML file",
	Long: `Reads prefix and suffix arrays from a TOML file and replaces the stored lists
in one transaction. The lists must be non-empty, equal in length and free of duplicates.
Running servers pick up the new lists on restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		words, err := readWordFile(wordsFile)
		if err != nil {
			return err
		}
		return withDB(cmd, func(ctx context.Context, b *cmdutil.DBBundle) error {
			repo := repository.NewBunWordRepository(b.DB)
			if err := repo.ReplaceWords(ctx, words.Prefix, words.Suffix); err != nil {
				return fmt.Errorf("failed to store word lists: %w", err)
			}
			logger.WithField("prefix", len(words.Prefix)).
				WithField("suffix", len(words.Suffix)).
				WithField("capacity", len(words.Prefix)*len(words.Suffix)).
				Info("word lists imported")
			return nil
		})
	},
}

var wordsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the stored word list sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *cmdutil.DBBundle) error {
			prefix, suffix, err := keyvault.LoadWords(ctx, repository.NewBunWordRepository(b.DB))
			if err != nil {
				return fmt.Errorf("failed to load word lists: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "prefix words: %d\n", len(prefix))
			fmt.Fprintf(out, "suffix words: %d\n", len(suffix))
			fmt.Fprintf(out, "key capacity: %d\n", len(prefix)*len(suffix))
			if err := keyvault.ValidateWords(prefix, suffix); err != nil {
				fmt.Fprintf(out, "warning: %v\n", err)
			}
			return nil
		})
	},
}

// readWordFile parses and validates a word list file.
func readWordFile(path string) (*wordFile, error) {
	if path == "" {
		return nil, errors.New("--file is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read word file: %w", err)
	}
	var words wordFile
	if err := toml.Unmarshal(raw, &words); err != nil {
		return nil, fmt.Errorf("failed to parse word file %s: %w", path, err)
	}
	if err := keyvault.ValidateWords(words.Prefix, words.Suffix); err != nil {
		return nil, fmt.Errorf("invalid word file %s: %w", path, err)
	}
	return &words, nil
}

func init() {
	wordsImportCmd.Flags().StringVar(&wordsFile, "file", "", "TOML file with prefix and suffix arrays")
	_ = wordsImportCmd.MarkFlagRequired("file")
	wordsCmd.AddCommand(wordsImportCmd, wordsCountCmd)
	rootCmd.AddCommand(wordsCmd)
}
