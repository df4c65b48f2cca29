package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stevedore-dev/stevedore/internal/config"
	"github.com/stevedore-dev/stevedore/internal/diagnosis"
	"github.com/stevedore-dev/stevedore/internal/engine"
	"github.com/stevedore-dev/stevedore/internal/format"
	"github.com/stevedore-dev/stevedore/internal/logging"
	"github.com/stevedore-dev/stevedore/internal/position"
)

var (
	lintFormat  string
	lintColor   string
	lintFollow  []string
	lintExclude []string
)

var lintCmd = &cobra.Command{
	Use:   "lint <file>...",
	Short: "Analyze workflow manifests",
	Long: `Analyze one or more workflow manifest files.

Each file may contain multiple YAML documents. Pass "-" to read a single
stream from stdin. Findings are printed to stdout in the configured format;
the exit status is 2 when any error-severity finding was reported, 1 on
operational failure, and 0 otherwise.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringVarP(&lintFormat, "format", "f", "", "output format: console, json, junit, github")
	lintCmd.Flags().StringVar(&lintColor, "color", "", "colorize console output: auto, always, never")
	lintCmd.Flags().StringSliceVar(&lintFollow, "follow", nil, "report only these diagnosis codes")
	lintCmd.Flags().StringSliceVarP(&lintExclude, "exclude", "e", nil, "diagnosis codes to suppress")
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if lintFormat != "" {
		cfg.Output.Format = config.OutputFormat(lintFormat)
	}
	if lintColor != "" {
		cfg.Output.Color = config.ColorMode(lintColor)
	}
	if verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	cfg.Rules.Follow = append(cfg.Rules.Follow, lintFollow...)
	cfg.Rules.Exclude = append(cfg.Rules.Exclude, lintExclude...)
	if err := cfg.Validate(); err != nil {
		return err
	}

	baseDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	logger, closer, err := logging.NewFromConfig(cfg, baseDir)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	eng := engine.New(logger, cfg.Rules.Follow, cfg.Rules.Exclude)

	var items []format.Item
	for _, path := range args {
		fileItems, err := lintFile(eng, path)
		if err != nil {
			return err
		}
		items = append(items, fileItems...)
	}

	formatter, err := format.New(cfg, colorize(cfg.Output.Color))
	if err != nil {
		return err
	}
	if err := formatter.Format(os.Stdout, items); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	for _, item := range items {
		if item.Severity != diagnosis.SeverityWarning {
			return ErrProblemsFound
		}
	}
	return nil
}

func lintFile(eng *engine.Engine, path string) ([]format.Item, error) {
	var (
		reader io.Reader
		name   = path
	)
	if path == "-" {
		reader = os.Stdin
		name = "<stdin>"
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer file.Close()
		reader = file
	}

	var items []format.Item
	for _, report := range eng.AnalyzeStream(reader) {
		for _, d := range report.Diagnoses {
			line, col := 0, 0
			if report.Root != nil {
				line, col = position.Resolve(report.Root, d.Loc, d.Input)
			}
			items = append(items, format.Item{
				File:      name,
				Line:      line + 1,
				Column:    col + 1,
				Diagnosis: d,
			})
		}
	}
	return items, nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return config.LoadFromDir(dir)
}

// colorize decides whether console output gets ANSI colors. Auto mode colors
// only when stdout is a terminal.
func colorize(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		info, err := os.Stdout.Stat()
		if err != nil {
			return false
		}
		return info.Mode()&os.ModeCharDevice != 0
	}
}
