package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"upload-service/internal/config"
	"upload-service/internal/storage"
)

var (
	// Global flags
	cfgFile    string
	location   string
	outputJSON bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "depotctl",
	Short: "Manage the upload store from the command line",
	Long: `depotctl works directly on the upload root used by the server.

Configuration is read from app.yaml in the working directory (or --config),
with environment overrides such as STORAGE_LOCATION.

Examples:
  depotctl init
  depotctl put ./logo.png ./report.pdf
  depotctl ls --json
  depotctl events --limit 20
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./app.yaml)")
	rootCmd.PersistentFlags().StringVarP(&location, "location", "l", "", "upload root, overrides storage.location")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(eventsCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if location != "" {
		cfg.Storage.Location = location
	}
	return cfg, nil
}

func openStorage() (*storage.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return storage.New(storage.Config{
		Location:    cfg.Storage.Location,
		MaxFileSize: cfg.Storage.MaxFileSize,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
