// Package channel provides the interactive and scripted front ends of a
// categorization session.
package channel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fjacquet/txsort/internal/currencyutils"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"
	"fjacquet/txsort/internal/session"

	"github.com/fatih/color"
	"github.com/manishrjain/keys"
)

const (
	shortcutLabel = "default"
	actionSkip    = ".skip"
	actionPause   = ".pause"
)

var (
	headerColor     = color.New(color.BgWhite, color.FgBlack)
	problemColor    = color.New(color.FgRed)
	suggestionColor = color.New(color.FgYellow)
	errorColor      = color.New(color.BgRed, color.FgWhite)
)

type line struct {
	text string
	err  error
}

// Terminal talks to a user through a line-oriented reader and writer. It
// implements both session.Prompter and session.Channel.
type Terminal struct {
	in     io.Reader
	out    io.Writer
	logger logging.Logger

	once      sync.Once
	lines     chan line
	readErr   error
	done      chan struct{}
	closeOnce sync.Once
}

// NewTerminal creates a terminal over in and out.
func NewTerminal(in io.Reader, out io.Writer, logger logging.Logger) *Terminal {
	return &Terminal{in: in, out: out, logger: logger, done: make(chan struct{})}
}

// Close stops the input reader once its current line is handed over or
// dropped. Reads after Close report io.EOF.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

// readLine waits for the next input line or for ctx to end. A single reader
// goroutine owns the input so a line typed after a timeout is not lost. The
// lines channel is closed at end of input; readErr is set before that.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	select {
	case <-t.done:
		return "", io.EOF
	default:
	}

	t.once.Do(func() {
		t.lines = make(chan line)
		go func() {
			defer close(t.lines)
			scanner := bufio.NewScanner(t.in)
			for scanner.Scan() {
				select {
				case t.lines <- line{text: scanner.Text()}:
				case <-t.done:
					return
				}
			}
			t.readErr = scanner.Err()
		}()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.done:
		return "", io.EOF
	case l, ok := <-t.lines:
		if !ok {
			if t.readErr != nil {
				return "", t.readErr
			}
			return "", io.EOF
		}
		return strings.TrimSpace(l.text), nil
	}
}

// Prompt shows one pending transaction and reads the answer. A category may
// be typed or picked through its single-key shortcut; a note is asked for
// afterwards. End of input pauses the session.
func (t *Terminal) Prompt(ctx context.Context, req session.PromptRequest) (session.Decision, error) {
	ks := shortcuts(req.Categories)
	t.render(req, ks)

	for {
		fmt.Fprint(t.out, "> ")
		answer, err := t.readLine(ctx)
		if errors.Is(err, io.EOF) {
			return session.Decision{Kind: session.DecisionCancel}, nil
		}
		if err != nil {
			return session.Decision{}, err
		}
		if answer == "" {
			continue
		}

		category := answer
		if r := []rune(answer); len(r) == 1 {
			if opt, ok := ks.MapsTo(r[0], shortcutLabel); ok {
				category = opt
			}
		}
		switch strings.ToLower(category) {
		case actionSkip, "s", "skip":
			return session.Decision{Kind: session.DecisionSkip}, nil
		case actionPause, "q", "pause", "quit":
			return session.Decision{Kind: session.DecisionCancel}, nil
		}

		fmt.Fprint(t.out, "Note (empty keeps the bank text): ")
		note, err := t.readLine(ctx)
		if err != nil && !errors.Is(err, io.EOF) {
			return session.Decision{}, err
		}
		return session.Decision{Kind: session.DecisionCategory, Category: category, Note: note}, nil
	}
}

func (t *Terminal) render(req session.PromptRequest, ks *keys.Shortcuts) {
	tx := req.Transaction
	sign := ""
	if tx.IsExpense() {
		sign = "-"
	}

	fmt.Fprintln(t.out)
	headerColor.Fprintf(t.out, "[%d/%d] %s %s%s %s (%s)", req.Processed+1, req.Total,
		tx.DateString(), sign, currencyutils.FormatDecimalComma(tx.Amount), tx.Currency, tx.Polarity())
	fmt.Fprintln(t.out)
	if tx.Counterparty != "" {
		fmt.Fprintf(t.out, "  %s\n", tx.Counterparty)
	}
	if tx.Description != "" {
		fmt.Fprintf(t.out, "  %s\n", tx.Description)
	}

	for _, s := range req.Suggestions {
		suggestionColor.Fprintf(t.out, "  suggested: %s (%s) %.0f%% [%s]", s.Code, s.Label, s.Confidence*100, s.Source)
		fmt.Fprintln(t.out)
	}
	if req.Problem != "" {
		problemColor.Fprintf(t.out, "  %s", req.Problem)
		fmt.Fprintln(t.out)
	}

	legend := legendOf(ks)
	for _, c := range req.Categories {
		key := ""
		if r, ok := legend[c.Code]; ok {
			key = "[" + string(r) + "] "
		}
		fmt.Fprintf(t.out, "  %s%s (%s)\n", key, c.Code, c.Label)
	}
	fmt.Fprintf(t.out, "  [%c] skip  [%c] pause\n", legend[actionSkip], legend[actionPause])
}

// shortcuts reserves s and q, then gives every category a key of its own.
func shortcuts(categories []models.Category) *keys.Shortcuts {
	var ks keys.Shortcuts
	ks.BestEffortAssign('s', actionSkip, shortcutLabel)
	ks.BestEffortAssign('q', actionPause, shortcutLabel)
	for _, c := range categories {
		ks.AutoAssign(c.Code, shortcutLabel)
	}
	return &ks
}

// legendOf inverts the shortcut table over printable ASCII.
func legendOf(ks *keys.Shortcuts) map[string]rune {
	legend := make(map[string]rune)
	for r := rune('!'); r <= '~'; r++ {
		if opt, ok := ks.MapsTo(r, shortcutLabel); ok {
			if _, seen := legend[opt]; !seen {
				legend[opt] = r
			}
		}
	}
	return legend
}

// Deliver prints a message, errors highlighted.
func (t *Terminal) Deliver(_ context.Context, msg session.Message) error {
	if msg.Kind == session.MessageError {
		if _, err := errorColor.Fprintf(t.out, "%s", msg.Text); err != nil {
			return err
		}
		_, err := fmt.Fprintln(t.out)
		return err
	}
	_, err := fmt.Fprintln(t.out, msg.Text)
	return err
}

// RequestFile asks for a path and opens it.
func (t *Terminal) RequestFile(ctx context.Context) (io.ReadCloser, string, error) {
	fmt.Fprint(t.out, "CSV file: ")
	path, err := t.readLine(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("no file given: %w", err)
	}
	return openUpload(path)
}

func openUpload(path string) (io.ReadCloser, string, error) {
	if path == "" {
		return nil, "", errors.New("no file given")
	}
	if path == "-" {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open upload: %w", err)
	}
	return f, filepath.Base(path), nil
}
