package session

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/txsort/internal/apperror"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"
)

// Run presents pending transactions to p one at a time until none is left,
// the user cancels, or a prompt times out. Skipped transactions come back
// after the rest of the queue. Cancel and timeout pause the
// session; the transaction being shown stays pending. Run does not export:
// it returns with the session in the finalizing state once everything is
// decided.
func (e *Engine) Run(ctx context.Context, user string, p Prompter) (RunResult, error) {
	var result RunResult
	problem := ""
	for {
		done, err := e.runStep(ctx, user, p, &result, &problem)
		if err != nil || done {
			return result, err
		}
	}
}

func (e *Engine) runStep(ctx context.Context, user string, p Prompter, result *RunResult, problem *string) (bool, error) {
	release, err := e.acquire(user, "step")
	if err != nil {
		return true, err
	}
	defer release()

	s, err := e.mustLoad(ctx, user)
	if err != nil {
		return true, err
	}
	result.State = s.State
	result.Remaining = len(s.Remaining)

	if s.State == models.StatePaused {
		return true, &apperror.InvalidStateError{Operation: "run", State: string(s.State), Reason: "session is paused, resume it first"}
	}
	if s.State == models.StateFinalizing || len(s.Remaining) == 0 {
		return true, nil
	}

	tx := s.Remaining[0]
	req := PromptRequest{
		Transaction: tx,
		Processed:   s.Processed(),
		Total:       s.Total(),
		Categories:  e.taxonomy.Categories(tx.Polarity()),
		Suggestions: e.suggest(ctx, s, tx),
		Problem:     *problem,
	}
	*problem = ""

	decision, err := e.prompt(ctx, p, req)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return true, fmt.Errorf("prompt failed: %w", err)
		}
		e.logger.Info("Prompt ended without an answer, pausing session",
			logging.F(logging.FieldUser, user),
			logging.F(logging.FieldIdentity, tx.Identity))
		decision = Decision{Kind: DecisionCancel}
	}

	switch decision.Kind {
	case DecisionCategory:
		step, err := e.decide(ctx, s, decision.Category, decision.Note)
		var unknown *apperror.UnknownCategoryError
		if errors.As(err, &unknown) {
			*problem = unknown.Error()
			return false, nil
		}
		if err != nil {
			return true, err
		}
		result.Decided++
		result.State, result.Remaining = step.State, step.Remaining
		return false, nil

	case DecisionSkip:
		step, err := e.skip(ctx, s)
		if err != nil {
			return true, err
		}
		result.Skipped++
		result.State, result.Remaining = step.State, step.Remaining
		return false, nil

	default:
		// The caller's context may already be cancelled; the pause must
		// still be written.
		if err := e.pause(context.WithoutCancel(ctx), s); err != nil {
			return true, err
		}
		result.State = models.StatePaused
		return true, nil
	}
}

func (e *Engine) prompt(ctx context.Context, p Prompter, req PromptRequest) (Decision, error) {
	if e.promptTimeout <= 0 {
		return p.Prompt(ctx, req)
	}
	promptCtx, cancel := context.WithTimeout(ctx, e.promptTimeout)
	defer cancel()
	return p.Prompt(promptCtx, req)
}

// suggest collects hints from every suggester. Failures only cost the hint.
func (e *Engine) suggest(ctx context.Context, s *models.Session, tx models.Transaction) []models.Suggestion {
	if len(e.suggesters) == 0 {
		return nil
	}
	categories := e.taxonomy.Categories(tx.Polarity())
	history := make([]models.Categorized, 0, s.Processed())
	history = append(history, s.Income...)
	history = append(history, s.Expenses...)

	var out []models.Suggestion
	for _, sg := range e.suggesters {
		hints, err := sg.Suggest(ctx, tx, categories, history)
		if err != nil {
			e.logger.WithError(err).Warn("Suggester failed",
				logging.F(logging.FieldStrategy, sg.Name()),
				logging.F(logging.FieldIdentity, tx.Identity))
			continue
		}
		out = append(out, hints...)
	}
	return out
}

// Ingest asks ch for a file, merges it into the session of user and
// delivers a summary. Failures are delivered as well as returned.
func (e *Engine) Ingest(ctx context.Context, user string, ch Channel) (MergeResult, error) {
	fail := func(err error) (MergeResult, error) {
		msg := Message{Kind: MessageError, Text: fmt.Sprintf("%s: %v", apperror.KindOf(err), err)}
		if deliverErr := ch.Deliver(ctx, msg); deliverErr != nil {
			e.logger.WithError(deliverErr).Warn("Failed to deliver message", logging.F(logging.FieldUser, user))
		}
		return MergeResult{}, err
	}

	rc, name, err := ch.RequestFile(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to receive file: %w", err))
	}
	defer rc.Close()

	result, err := e.StartOrMerge(ctx, user, rc)
	if err != nil {
		return fail(err)
	}

	if err := ch.Deliver(ctx, Message{Kind: MessageInfo, Text: Summary(name, result)}); err != nil {
		return result, fmt.Errorf("failed to deliver summary: %w", err)
	}
	return result, nil
}

// Summary renders the outcome of an upload for the user.
func Summary(name string, r MergeResult) string {
	if r.State == models.StateNone {
		return fmt.Sprintf("%s: no transactions to process", name)
	}
	text := fmt.Sprintf("%s: %d new transactions, %d categorized automatically, %d need a decision",
		name, r.Added, r.AutoCategorized, r.Pending)
	if r.Duplicates > 0 {
		text += fmt.Sprintf(", %d already known", r.Duplicates)
	}
	switch r.State {
	case models.StateFinalizing:
		text += ". Everything is categorized, ready to finalize."
	case models.StatePaused:
		text += fmt.Sprintf(". Session is paused with %d pending, resume to continue.", r.Remaining)
	default:
		text += fmt.Sprintf(". %d pending in total.", r.Remaining)
	}
	return text
}
