package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/updrive/updrive/internal/client/config"
	"github.com/updrive/updrive/internal/utils"
)

const minTokenLen = 8

func init() {
	rootCmd.AddCommand(newLoginCmd())
}

func newLoginCmd() *cobra.Command {
	var watchDir string
	var serverURL string
	var token string
	var quiet bool

	cmd := &cobra.Command{
		Use:     "login",
		Aliases: []string{"init"},
		Short:   "Connect this machine to your drive and write the config",
		Run: func(cmd *cobra.Command, args []string) {
			// fetched from main/rootCmd/persistentFlags
			configPath := cmd.Flag("config").Value.String()

			if cfg, err := readValidConfig(configPath); err == nil {
				if !quiet {
					fmt.Println(green.Render("**Already logged in**"))
					logConfig(cfg)
				}
				os.Exit(0)
			}

			if err := utils.ValidateURL(serverURL); err != nil {
				fmt.Printf("%s: %s\n", red.Render("ERROR"), err)
				os.Exit(1)
			}

			resolvedWatchDir, err := utils.ResolvePath(watchDir)
			if err != nil {
				fmt.Printf("%s: %s\n", red.Render("ERROR"), err)
				os.Exit(1)
			}

			resolvedConfigPath, err := utils.ResolvePath(configPath)
			if err != nil {
				fmt.Printf("%s: %s\n", red.Render("ERROR"), err)
				os.Exit(1)
			}

			if token == "" {
				token, err = RunLoginTUI(LoginTUIOpts{
					ServerURL:      serverURL,
					WatchDir:       resolvedWatchDir,
					ConfigPath:     resolvedConfigPath,
					TokenValidator: isPlausibleToken,
				})
				if err != nil {
					fmt.Printf("%s: %s\n", red.Render("ERROR"), err)
					os.Exit(1)
				}
			}

			token = strings.TrimSpace(token)
			if !isPlausibleToken(token) {
				fmt.Printf("%s: token looks too short\n", red.Render("ERROR"))
				os.Exit(1)
			}

			if err := utils.EnsureDir(resolvedWatchDir); err != nil {
				fmt.Printf("%s: %s\n", red.Render("ERROR"), err)
				os.Exit(1)
			}

			cfg := &config.Config{
				Path:      resolvedConfigPath,
				WatchDir:  resolvedWatchDir,
				ServerURL: serverURL,
				Token:     token,
			}
			if err := cfg.Validate(); err != nil {
				fmt.Printf("%s: %s\n", red.Render("ERROR"), err)
				os.Exit(1)
			}
			if err := cfg.Save(); err != nil {
				fmt.Printf("%s: %s\n", red.Render("ERROR"), err)
				os.Exit(1)
			}

			if !quiet {
				fmt.Println(green.Render("**Logged in**"))
				logConfig(cfg)
				fmt.Printf("\nRun %s to start syncing.\n", cyan.Render("updrive"))
			}
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&watchDir, "watch", "w", config.DefaultWatchDir, "Directory to watch and sync")
	cmd.Flags().StringVarP(&serverURL, "server", "s", config.DefaultServerURL, "UpDrive server URL")
	cmd.Flags().StringVarP(&token, "token", "t", "", "API token (prompts when omitted)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "No output")

	return cmd
}

// readValidConfig loads a config usable for syncing, meaning it parses,
// validates and carries a token.
func readValidConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("config has no token")
	}
	return cfg, nil
}

func logConfig(cfg *config.Config) {
	fmt.Printf("%s%s\n", gray.Render("Server  "), green.Render(cfg.ServerURL))
	fmt.Printf("%s%s\n", gray.Render("Watch   "), green.Render(cfg.WatchDir))
	fmt.Printf("%s%s\n", gray.Render("Config  "), green.Render(cfg.Path))
	fmt.Printf("%s%s\n", gray.Render("Token   "), green.Render(utils.MaskToken(cfg.Token)))
}

func isPlausibleToken(token string) bool {
	return len(strings.TrimSpace(token)) >= minTokenLen
}
