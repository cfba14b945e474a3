package channel

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"
	"fjacquet/txsort/internal/session"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

var expenseCategories = []models.Category{
	{Code: "food", Label: "Food", Polarity: models.PolarityExpense},
	{Code: "fun", Label: "Fun", Polarity: models.PolarityExpense},
}

func request() session.PromptRequest {
	return session.PromptRequest{
		Transaction: models.Transaction{
			Date:         time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			Amount:       decimal.RequireFromString("-12.50"),
			Currency:     "EUR",
			Counterparty: "JUMBO Driebergen",
			Description:  "pin 1234",
		}.WithIdentity(),
		Processed:  0,
		Total:      3,
		Categories: expenseCategories,
	}
}

func TestTerminal_Prompt(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected session.Decision
	}{
		{"typed category with note", "food\nlunch\n", session.Decision{Kind: session.DecisionCategory, Category: "food", Note: "lunch"}},
		{"blank lines are ignored", "\n  \nFun\n\n", session.Decision{Kind: session.DecisionCategory, Category: "Fun"}},
		{"skip shortcut", "s\n", session.Decision{Kind: session.DecisionSkip}},
		{"skip word", "SKIP\n", session.Decision{Kind: session.DecisionSkip}},
		{"pause shortcut", "q\n", session.Decision{Kind: session.DecisionCancel}},
		{"end of input pauses", "", session.Decision{Kind: session.DecisionCancel}},
		{"category without note at end of input", "food", session.Decision{Kind: session.DecisionCategory, Category: "food"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := NewTerminal(strings.NewReader(tt.input), io.Discard, logging.NewMockLogger())
			decision, err := term.Prompt(context.Background(), request())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, decision)
		})
	}
}

func TestTerminal_PromptShortcut(t *testing.T) {
	legend := legendOf(shortcuts(expenseCategories))
	key, ok := legend["fun"]
	require.True(t, ok)
	assert.Equal(t, 's', legend[actionSkip])
	assert.Equal(t, 'q', legend[actionPause])

	term := NewTerminal(strings.NewReader(string(key)+"\n\n"), io.Discard, logging.NewMockLogger())
	decision, err := term.Prompt(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, session.Decision{Kind: session.DecisionCategory, Category: "fun"}, decision)
}

func TestTerminal_PromptRendering(t *testing.T) {
	var out bytes.Buffer
	req := request()
	req.Suggestions = []models.Suggestion{{Code: "food", Label: "Food", Confidence: 0.82, Source: "Bayes"}}
	req.Problem = `unknown expense category "foo"`

	term := NewTerminal(strings.NewReader("s\n"), &out, logging.NewMockLogger())
	_, err := term.Prompt(context.Background(), req)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "[1/3] 2024-03-05 -12,50 EUR (expense)")
	assert.Contains(t, text, "JUMBO Driebergen")
	assert.Contains(t, text, "pin 1234")
	assert.Contains(t, text, "suggested: food (Food) 82% [Bayes]")
	assert.Contains(t, text, `unknown expense category "foo"`)
	assert.Contains(t, text, "food (Food)")
	assert.Contains(t, text, "[s] skip  [q] pause")
}

func TestTerminal_PromptContextEnds(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	term := NewTerminal(r, io.Discard, logging.NewMockLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := term.Prompt(ctx, request())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTerminal_LineSurvivesTimeout(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	term := NewTerminal(r, io.Discard, logging.NewMockLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	_, err := term.Prompt(ctx, request())
	cancel()
	require.Error(t, err)

	go func() { _, _ = w.Write([]byte("s\n")) }()
	decision, err := term.Prompt(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, session.DecisionSkip, decision.Kind)
}

func TestTerminal_EndOfInput(t *testing.T) {
	term := NewTerminal(strings.NewReader("a\n"), io.Discard, logging.NewMockLogger())

	text, err := term.readLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", text)
	for i := 0; i < 3; i++ {
		_, err = term.readLine(context.Background())
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestTerminal_Close(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	term := NewTerminal(r, io.Discard, logging.NewMockLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	_, err := term.readLine(ctx)
	cancel()
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, term.Close())
	require.NoError(t, term.Close())
	_, err = term.readLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	stopped := make(chan struct{})
	go func() {
		for range term.lines {
		}
		close(stopped)
	}()
	go func() { _, _ = w.Write([]byte("late\n")) }()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("input reader kept running after Close")
	}
}

func TestTerminal_Deliver(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader(""), &out, logging.NewMockLogger())

	require.NoError(t, term.Deliver(context.Background(), session.Message{Kind: session.MessageInfo, Text: "all good"}))
	require.NoError(t, term.Deliver(context.Background(), session.Message{Kind: session.MessageError, Text: "malformed_input: bad"}))
	assert.Equal(t, "all good\nmalformed_input: bad\n", out.String())
}

func TestTerminal_RequestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.csv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0600))

	term := NewTerminal(strings.NewReader(path+"\n"), io.Discard, logging.NewMockLogger())
	rc, name, err := term.RequestFile(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	assert.Equal(t, "bank.csv", name)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	_, _, err = NewTerminal(strings.NewReader(""), io.Discard, logging.NewMockLogger()).RequestFile(context.Background())
	assert.Error(t, err)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.csv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0600))

	var out bytes.Buffer
	ch := NewFile(path, &out)
	rc, name, err := ch.RequestFile(context.Background())
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "bank.csv", name)

	require.NoError(t, ch.Deliver(context.Background(), session.Message{Kind: session.MessageError, Text: "boom"}))
	require.NoError(t, ch.Deliver(context.Background(), session.Message{Kind: session.MessageInfo, Text: "done"}))
	assert.Equal(t, "error: boom\ndone\n", out.String())

	_, name, err = NewFile("-", &out).RequestFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stdin", name)

	_, _, err = NewFile(filepath.Join(t.TempDir(), "absent.csv"), &out).RequestFile(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = NewFile(path, &out).RequestFile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
