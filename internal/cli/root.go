package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"chatpdf/config"
)

var (
	cfgFile   string
	cfg       *config.Config
	rootDir   string
	modelFlag string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "chatpdf",
	Short: "Chat with PDF documents and extract ESG fields",
	Long: `chatpdf uploads PDF documents, builds a vector index per document and
answers questions about them with a language model. It can also fill a fixed
set of emission and sustainability fields from a report.

Example usage:
  chatpdf upload report.pdf                # Register a document
  chatpdf chat report.pdf                  # Interactive chat about it
  chatpdf extract report.pdf               # Write extract/report.json
  chatpdf models                           # List selectable models`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}
		rootDir, err = filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("invalid directory: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if modelFlag != "" {
			cfg.LLM.DefaultModel = modelFlag
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		if err := loadEnv(cfg.EnvFile); err != nil {
			return err
		}

		setupLogging(cfg.Logging, cmd.ErrOrStderr())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},
}

// loadEnv reads the dotenv file if present. Variables already set win.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(rootDir, path)
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_ = closeApp()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./chatpdf.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "working directory (default is current directory)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "language model to use (see 'chatpdf models')")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
