// Command verifyctl inspects and edits the committed verification
// configuration without going through the setup wizard.
//
// It reads the same environment as the bot (STORE_BACKEND and friends), so
// it always talks to the store the running bot reads from. The channel
// backend only needs the REST API; no gateway session is opened.
//
// Usage:
//
//	verifyctl show
//	verifyctl export -o verify.yaml
//	verifyctl validate verify.yaml
//	verifyctl import verify.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/config"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform/discord"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/store"
)

var (
	timeout time.Duration

	// openStore is replaced in tests.
	openStore = openConfiguredStore
)

var rootCmd = &cobra.Command{
	Use:           "verifyctl",
	Short:         "Manage the committed verification configuration",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Store operation timeout")

	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "Write to file instead of stdout")
	importCmd.Flags().BoolVar(&importKeepWelcome, "keep-welcome", true, "Keep the stored welcome message when the file has none")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(validateCmd)
}

func openConfiguredStore(ctx context.Context) (store.ConfigStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var channels platform.Channels
	if cfg.StoreBackend == config.BackendChannel {
		if cfg.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required for the channel store")
		}
		session, err := discord.NewSession(cfg.DiscordToken)
		if err != nil {
			return nil, err
		}
		channels = discord.NewClient(session)
	}
	return store.Open(ctx, cfg, channels)
}

// withStore opens the store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, st store.ConfigStore) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
