package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/updrive/updrive/internal/client"
	"github.com/updrive/updrive/internal/client/config"
	"github.com/updrive/updrive/internal/utils"
	"github.com/updrive/updrive/internal/version"
)

const configFileName = "config"

var home, _ = os.UserHomeDir()

var rootCmd = &cobra.Command{
	Use:     "updrive",
	Short:   "UpDrive keeps a local folder mirrored to remote drive storage",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromViper()
		if err := cfg.Validate(); err != nil {
			return err
		}

		// config is good, errors past this point are runtime failures
		cmd.SilenceUsage = true
		showHeader()

		c, err := client.New(cfg)
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		return c.Start(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("watch", "w", config.DefaultWatchDir, "Directory to watch and sync")
	rootCmd.Flags().StringP("server", "s", config.DefaultServerURL, "UpDrive server URL")
	rootCmd.Flags().StringP("folder", "f", config.DefaultRemoteFolder, "Remote folder name")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "UpDrive config file")
}

func main() {
	// .env is optional, it just feeds UPDRIVE_ variables during development
	_ = godotenv.Load()

	logFile := config.DefaultLogFilePath
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// Do not include time as it is added by the log interceptor.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	logger := slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// configFromViper builds the daemon config from the merged file, env and
// flag values.
func configFromViper() *config.Config {
	cfg := &config.Config{
		Path:         viper.ConfigFileUsed(),
		WatchDir:     viper.GetString("watch_dir"),
		RemoteFolder: viper.GetString("remote_folder"),
		ServerURL:    viper.GetString("server_url"),
		Token:        viper.GetString("token"),
		Backend:      viper.GetString("backend"),
	}
	if err := viper.UnmarshalKey("sync", &cfg.Sync); err != nil {
		slog.Warn("ignoring bad sync options", "error", err)
	}
	if viper.IsSet("s3") {
		if err := viper.UnmarshalKey("s3", &cfg.S3); err != nil {
			slog.Warn("ignoring bad s3 options", "error", err)
		}
	}
	return cfg
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".updrive"))
		viper.AddConfigPath(filepath.Join(home, ".config/updrive"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("watch_dir", cmd.Flags().Lookup("watch"))
	viper.BindPFlag("server_url", cmd.Flags().Lookup("server"))
	viper.BindPFlag("remote_folder", cmd.Flags().Lookup("folder"))

	viper.SetEnvPrefix("UPDRIVE")
	viper.AutomaticEnv()

	return nil
}

func showHeader() {
	fmt.Println(titleStyle.Render(utils.UpDriveArt))
	fmt.Println()
}
