// Package common contains shared functionality for command handlers
package common

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fjacquet/txsort/cmd/root"
	"fjacquet/txsort/internal/apperror"
	"fjacquet/txsort/internal/channel"
	"fjacquet/txsort/internal/config"
	"fjacquet/txsort/internal/container"
	"fjacquet/txsort/internal/currencyutils"
	"fjacquet/txsort/internal/models"
	"fjacquet/txsort/internal/session"
	"fjacquet/txsort/internal/sessionstore"

	"github.com/spf13/cobra"
)

// Handler runs one command against the wired application.
type Handler func(ctx context.Context, c *container.Container, user string) error

// WithContainer loads the configuration, wires the application and calls fn
// for the user named by --user. The container is closed afterwards.
func WithContainer(cmd *cobra.Command, fn Handler) error {
	if root.User == "" {
		return errors.New("no user given: pass --user or set TXSORT_USER")
	}

	cfg, err := config.Load(root.ConfigFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := container.NewContainer(ctx, cfg)
	if errors.Is(err, sessionstore.ErrLocked) {
		return &apperror.BusyError{User: root.User, Operation: cmd.Name()}
	}
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			c.GetLogger().WithError(cerr).Warn("Failed to release resources")
		}
	}()

	return fn(ctx, c, root.User)
}

// reportedError marks an error the user has already been shown.
type reportedError struct {
	err error
}

func (r reportedError) Error() string { return r.err.Error() }
func (r reportedError) Unwrap() error { return r.err }

// Reported wraps err so main exits non-zero without printing it again.
func Reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

// IsReported tells whether err was already shown to the user.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// Describe renders a transaction on one line.
func Describe(tx models.Transaction) string {
	sign := ""
	if tx.IsExpense() {
		sign = "-"
	}
	text := tx.Counterparty
	if tx.Description != "" {
		if text != "" {
			text += " - "
		}
		text += tx.Description
	}
	return fmt.Sprintf("%s %s%s %s %s", tx.DateString(), sign,
		currencyutils.FormatDecimalComma(tx.Amount), tx.Currency, text)
}

// PrintNext shows the transaction awaiting a decision, or that none is.
func PrintNext(ctx context.Context, w io.Writer, c *container.Container, user string) error {
	tx, err := c.GetEngine().NextPending(ctx, user)
	if err != nil {
		return err
	}
	if tx == nil {
		_, err = fmt.Fprintln(w, "Nothing pending. Run finalize to export the session.")
		return err
	}
	categories := c.GetRules().Taxonomy().Categories(tx.Polarity())
	codes := make([]string, 0, len(categories))
	for _, cat := range categories {
		codes = append(codes, cat.Code)
	}
	_, err = fmt.Fprintf(w, "Next (%s): %s\nCategories: %v\n", tx.Polarity(), Describe(*tx), codes)
	return err
}

// Interactive prompts for every pending transaction through a terminal on
// in and out, then exports the session when nothing is left.
func Interactive(ctx context.Context, c *container.Container, user string, in io.Reader, out io.Writer) error {
	engine := c.GetEngine()
	terminal := channel.NewTerminal(in, out, c.GetLogger())
	defer terminal.Close()

	result, err := engine.Run(ctx, user, terminal)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d categorized, %d skipped, %d pending.\n", result.Decided, result.Skipped, result.Remaining)

	switch result.State {
	case models.StateFinalizing:
		return Finalize(ctx, c, user, out)
	case models.StatePaused:
		fmt.Fprintln(out, "Session paused. Run resume to continue.")
	}
	return nil
}

// Finalize exports the session and reports what was written.
func Finalize(ctx context.Context, c *container.Container, user string, out io.Writer) error {
	result, err := c.GetEngine().Finalize(ctx, user)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Exported %d income and %d expense transactions to %s.\n",
		result.Income, result.Expenses, result.Target)
	return err
}

// PrintStatus writes a session status block.
func PrintStatus(w io.Writer, user string, s session.Status) error {
	_, err := fmt.Fprintf(w, "Session of %s: %s\n  pending:  %d\n  income:   %d\n  expenses: %d\n  started:  %s\n  updated:  %s\n",
		user, s.State, s.Remaining, s.IncomeCount, s.ExpensesCount,
		s.CreatedAt.Local().Format("2006-01-02 15:04"), s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return err
}
