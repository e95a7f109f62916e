package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/store"
)

var (
	exportPath        string
	importKeepWelcome bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the committed verification configuration",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the committed configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a YAML file and commit it",
	Long: `Reads a YAML configuration file, validates the question set and
overwrites the committed configuration with it.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a YAML configuration file without committing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runShow(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.ConfigStore) error {
		rec, err := st.Load(ctx)
		if err != nil {
			return err
		}
		printRecord(cmd.OutOrStdout(), st.Backend(), rec)
		return nil
	})
}

func printRecord(w io.Writer, backend string, rec *models.ConfigRecord) {
	fmt.Fprintf(w, "Store: %s\n", backend)
	if rec == nil {
		fmt.Fprintln(w, "No configuration committed.")
		return
	}

	role := rec.UnverifiedRoleID.String()
	if role == "" {
		role = "(none)"
	}
	fmt.Fprintf(w, "Unverified role: %s\n", role)

	welcome := rec.WelcomeMessage
	if strings.TrimSpace(welcome) == "" {
		welcome = models.DefaultWelcomeMessage + " (default)"
	}
	fmt.Fprintf(w, "Welcome message: %s\n", welcome)

	fmt.Fprintf(w, "Questions (%d):\n", len(rec.Questions))
	for i, q := range rec.Questions {
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, q.Kind(), q.Prompt())
		if opts := models.OptionsOf(q); len(opts) > 0 {
			fmt.Fprintf(w, "     options: %s\n", strings.Join(opts, ", "))
		}
	}

	if err := rec.Spec().Validate(); err != nil {
		fmt.Fprintf(w, "⚠️  not runnable: %v\n", err)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.ConfigStore) error {
		rec, err := st.Load(ctx)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no configuration committed in the %s store", st.Backend())
		}

		data, err := yaml.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if exportPath == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(exportPath, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d questions to %s\n", len(rec.Questions), exportPath)
		return nil
	})
}

func runValidate(cmd *cobra.Command, args []string) error {
	rec, err := readRecordFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d questions\n", args[0], len(rec.Questions))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	rec, err := readRecordFile(args[0])
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, st store.ConfigStore) error {
		if importKeepWelcome && rec.WelcomeMessage == "" {
			existing, err := st.Load(ctx)
			if err != nil {
				return err
			}
			if existing != nil {
				rec.WelcomeMessage = existing.WelcomeMessage
			}
		}
		if err := st.Save(ctx, rec); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Committed %d questions to the %s store\n", len(rec.Questions), st.Backend())
		return nil
	})
}

// readRecordFile decodes and validates an operator file.
func readRecordFile(path string) (*models.ConfigRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	rec := &models.ConfigRecord{}
	if err := yaml.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := rec.Spec().Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
