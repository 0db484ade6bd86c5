package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/config"
	"github.com/AntonStoeckl/library-circulation-go/logging"
)

type rootFlags struct {
	envFile    string
	configFile string
}

func newRootCommand(factory stackFactory) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "librarian",
		Short: "Runs the library circulation workflows",
		Long: `librarian adds books, registers users, lends and takes back books,
and notifies users with the reviews of a book.

Configuration comes from LIBRARY_* environment variables, an optional .env file
and an optional YAML config file.

Examples:
  librarian add-book --isbn 978-92-95055-02-5 --title "title" --author "Mark-Twein"
  librarian register-user --id 123456789101 --name "Ada"
  librarian borrow --isbn 978-92-95055-02-5 --user 123456789101
  librarian notify --isbn 978-92-95055-02-5 --user 123456789101`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "optional .env file")
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "optional YAML config file")

	run := func(action func(ctx context.Context, cmd *cobra.Command, s *stack) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			return withStack(cmd, flags, factory, action)
		}
	}

	root.AddCommand(
		newMigrateCommand(run),
		newAddBookCommand(run),
		newRegisterUserCommand(run),
		newBorrowCommand(run),
		newReturnCommand(run),
		newGetBookCommand(run),
		newNotifyCommand(run),
		newInboxCommand(run),
	)

	return root
}

type runner = func(action func(ctx context.Context, cmd *cobra.Command, s *stack) error) func(*cobra.Command, []string) error

// withStack loads the config, wires the stack and runs one action with a fresh correlation ID.
func withStack(
	cmd *cobra.Command,
	flags *rootFlags,
	factory stackFactory,
	action func(ctx context.Context, cmd *cobra.Command, s *stack) error,
) error {
	var loadOptions []config.LoadOption
	if flags.configFile != "" {
		loadOptions = append(loadOptions, config.WithConfigFile(flags.configFile))
	}

	cfg, err := config.Load(flags.envFile, loadOptions...)
	if err != nil {
		return err
	}

	zapLogger, err := logging.NewZapLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	logger := logging.NewAdapter(zapLogger)
	defer func() { _ = logger.Sync() }()

	ctx := logging.WithCorrelationID(cmd.Context(), uuid.NewString())

	s, err := factory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	return action(ctx, cmd, s)
}
