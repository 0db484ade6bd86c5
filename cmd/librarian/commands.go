package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/library/core"
)

const ephemeralWarning = "Warning: the memory storage engine keeps nothing after this command exits, " +
	"set LIBRARY_STORAGE_ENGINE=postgres to keep the catalog.\n"

// warnIfEphemeral runs before commands that change state.
func warnIfEphemeral(cmd *cobra.Command, s *stack) {
	if s.ephemeral {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), ephemeralWarning)
	}
}

func newMigrateCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates or updates the events table",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, s *stack) error {
			if err := s.migrate(ctx); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")

			return nil
		}),
	}
}

func newAddBookCommand(run runner) *cobra.Command {
	var isbn, title, author string

	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Adds a book to the catalog",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, s *stack) error {
			warnIfEphemeral(cmd, s)

			if err := s.library.AddBook(ctx, core.NewBook(isbn, title, author)); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Book %s added.\n", isbn)

			return nil
		}),
	}

	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN-13 of the book")
	cmd.Flags().StringVar(&title, "title", "", "title of the book")
	cmd.Flags().StringVar(&author, "author", "", "author of the book")

	return cmd
}

func newRegisterUserCommand(run runner) *cobra.Command {
	var userID, name string

	cmd := &cobra.Command{
		Use:   "register-user",
		Short: "Registers a user, notifications go to the user's Redis inbox",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, s *stack) error {
			warnIfEphemeral(cmd, s)

			user := core.NewUser(userID, name, s.publisher.ForUser(userID))

			if err := s.library.RegisterUser(ctx, user); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %s registered.\n", userID)

			return nil
		}),
	}

	cmd.Flags().StringVar(&userID, "id", "", "12-digit user ID")
	cmd.Flags().StringVar(&name, "name", "", "name of the user")

	return cmd
}

func newBorrowCommand(run runner) *cobra.Command {
	var isbn, userID string

	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Lends a book to a user",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, s *stack) error {
			warnIfEphemeral(cmd, s)

			if err := s.library.BorrowBook(ctx, isbn, userID); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Book %s borrowed by %s.\n", isbn, userID)

			return nil
		}),
	}

	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN-13 of the book")
	cmd.Flags().StringVar(&userID, "user", "", "12-digit user ID")

	return cmd
}

func newReturnCommand(run runner) *cobra.Command {
	var isbn string

	cmd := &cobra.Command{
		Use:   "return",
		Short: "Takes a borrowed book back",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, s *stack) error {
			warnIfEphemeral(cmd, s)

			if err := s.library.ReturnBook(ctx, isbn); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Book %s returned.\n", isbn)

			return nil
		}),
	}

	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN-13 of the book")

	return cmd
}

func newGetBookCommand(run runner) *cobra.Command {
	var isbn, userID string

	cmd := &cobra.Command{
		Use:   "get-book",
		Short: "Shows an available book and sends its reviews to the user",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, s *stack) error {
			book, err := s.library.GetBookByISBN(ctx, isbn, userID)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", book.ISBN(), book.Title(), book.Author())

			return nil
		}),
	}

	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN-13 of the book")
	cmd.Flags().StringVar(&userID, "user", "", "12-digit user ID")

	return cmd
}

func newNotifyCommand(run runner) *cobra.Command {
	var isbn, userID string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Sends the reviews of a book to a user",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, s *stack) error {
			if err := s.library.NotifyUserWithBookReviews(ctx, isbn, userID); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %s notified.\n", userID)

			return nil
		}),
	}

	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN-13 of the book")
	cmd.Flags().StringVar(&userID, "user", "", "12-digit user ID")

	return cmd
}

func newInboxCommand(run runner) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Prints the notifications a user received",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, s *stack) error {
			notifications, err := s.publisher.Inbox(ctx, userID)
			if err != nil {
				return err
			}

			for _, n := range notifications {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s]\n%s\n", n.SentAt.Format(time.DateTime), n.Message)
			}

			return nil
		}),
	}

	cmd.Flags().StringVar(&userID, "user", "", "12-digit user ID")

	return cmd
}
