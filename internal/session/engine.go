// Package session drives the per-user categorization workflow: uploads are
// merged into a persisted session, rules categorize what they can and the
// rest is decided one transaction at a time until the session is exported.
//
// Every mutation reads the session from the store, applies the change to a
// copy and persists it while the user's session is locked, so a concurrent
// process never writes over it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"fjacquet/txsort/internal/apperror"
	"fjacquet/txsort/internal/categorizer"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"
	"fjacquet/txsort/internal/sessionstore"

	"golang.org/x/sync/semaphore"
)

// MergeResult summarizes one upload.
type MergeResult struct {
	Added           int // net-new transactions
	AutoCategorized int
	Pending         int
	Duplicates      int // rows already known to the session or repeated in the file
	State           models.State
	Remaining       int
}

// StepResult is returned by Decide and Skip.
type StepResult struct {
	Remaining int
	State     models.State
}

// Status describes a session without changing it.
type Status struct {
	State         models.State
	Remaining     int
	IncomeCount   int
	ExpensesCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RunResult summarizes an interactive run.
type RunResult struct {
	Decided   int
	Skipped   int
	State     models.State
	Remaining int
}

// FinalizeResult reports what was exported.
type FinalizeResult struct {
	Income   int
	Expenses int
	Target   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithSuggesters adds category hint providers used by Run.
func WithSuggesters(s ...Suggester) Option {
	return func(e *Engine) { e.suggesters = append(e.suggesters, s...) }
}

// WithPromptTimeout bounds every prompt round trip. Zero means no timeout.
func WithPromptTimeout(d time.Duration) Option {
	return func(e *Engine) { e.promptTimeout = d }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the categorization state machine. Operations on different users
// run independently; a second mutating operation for a user whose previous
// one has not returned is rejected with a BusyError.
type Engine struct {
	store       sessionstore.Store
	normalizer  Normalizer
	categorizer *categorizer.Categorizer
	taxonomy    *categorizer.Taxonomy
	exporter    Exporter
	suggesters  []Suggester
	logger      logging.Logger

	promptTimeout time.Duration
	now           func() time.Time

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// NewEngine wires an engine. rules supplies both the auto-categorization
// rules and the taxonomy used to resolve manual decisions.
func NewEngine(store sessionstore.Store, normalizer Normalizer, rules *categorizer.RuleSet, exporter Exporter, logger logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		normalizer:  normalizer,
		categorizer: categorizer.NewRuleCategorizer(rules, logger),
		taxonomy:    rules.Taxonomy(),
		exporter:    exporter,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		locks:       make(map[string]*semaphore.Weighted),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Taxonomy returns the categories decisions are resolved against.
func (e *Engine) Taxonomy() *categorizer.Taxonomy {
	return e.taxonomy
}

func (e *Engine) acquire(user, operation string) (func(), error) {
	e.mu.Lock()
	sem, ok := e.locks[user]
	if !ok {
		sem = semaphore.NewWeighted(1)
		e.locks[user] = sem
	}
	e.mu.Unlock()

	busy := func() (func(), error) {
		e.logger.Warn("Rejected concurrent operation",
			logging.F(logging.FieldUser, user),
			logging.F(logging.FieldOperation, operation))
		return nil, &apperror.BusyError{User: user, Operation: operation}
	}
	if !sem.TryAcquire(1) {
		return busy()
	}
	unlock, err := e.store.Lock(user)
	if errors.Is(err, sessionstore.ErrLocked) {
		sem.Release(1)
		return busy()
	}
	if err != nil {
		sem.Release(1)
		return nil, err
	}
	return func() {
		unlock()
		sem.Release(1)
	}, nil
}

// load reads the session of user from the store, nil when there is none.
func (e *Engine) load(ctx context.Context, user string) (*models.Session, error) {
	return e.store.Load(ctx, user)
}

func (e *Engine) mustLoad(ctx context.Context, user string) (*models.Session, error) {
	s, err := e.load(ctx, user)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &apperror.NoSessionError{User: user}
	}
	return s, nil
}

// persist saves next. Callers keep their previous copy on failure.
func (e *Engine) persist(ctx context.Context, user string, next *models.Session) error {
	next.UpdatedAt = e.now()
	if err := e.store.Save(ctx, user, next); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// StartOrMerge normalizes an upload and merges its net-new transactions into
// the session of user, creating the session if needed. Rules categorize
// what they can; the rest is queued in file order.
func (e *Engine) StartOrMerge(ctx context.Context, user string, r io.Reader) (MergeResult, error) {
	release, err := e.acquire(user, "upload")
	if err != nil {
		return MergeResult{}, err
	}
	defer release()

	txs, err := e.normalizer.Normalize(ctx, r)
	if err != nil {
		return MergeResult{}, err
	}

	current, err := e.load(ctx, user)
	if err != nil {
		return MergeResult{}, err
	}
	if current == nil && len(txs) == 0 {
		e.logger.Info("No transactions to process", logging.F(logging.FieldUser, user))
		return MergeResult{State: models.StateNone}, nil
	}

	var next *models.Session
	if current == nil {
		next = models.NewSession(user, e.now())
	} else {
		next = current.Clone()
	}

	known := next.Identities()
	fresh := make([]models.Transaction, 0, len(txs))
	result := MergeResult{}
	for _, tx := range txs {
		if _, dup := known[tx.Identity]; dup {
			result.Duplicates++
			continue
		}
		known[tx.Identity] = struct{}{}
		fresh = append(fresh, tx)
	}
	result.Added = len(fresh)

	if current != nil && len(fresh) == 0 {
		result.State = current.State
		result.Remaining = len(current.Remaining)
		e.logger.Info("Upload contained no new transactions",
			logging.F(logging.FieldUser, user),
			logging.F(logging.FieldCount, result.Duplicates))
		return result, nil
	}

	partition, err := e.categorizer.Partition(ctx, fresh)
	if err != nil {
		return MergeResult{}, err
	}
	for _, c := range partition.Categorized {
		next.Append(c)
	}
	next.Remaining = append(next.Remaining, partition.Pending...)
	result.AutoCategorized = len(partition.Categorized)
	result.Pending = len(partition.Pending)

	switch {
	case len(next.Remaining) == 0:
		next.State = models.StateFinalizing
	case len(partition.Pending) > 0:
		next.State = models.StateActive
	}

	if err := e.persist(ctx, user, next); err != nil {
		return MergeResult{}, err
	}

	result.State = next.State
	result.Remaining = len(next.Remaining)
	e.logger.Info("Merged upload into session",
		logging.F(logging.FieldUser, user),
		logging.F(logging.FieldAdded, result.Added),
		logging.F(logging.FieldPending, result.Pending),
		logging.F(logging.FieldState, next.State))
	return result, nil
}

// NextPending returns the oldest pending transaction, or nil when nothing
// is pending.
func (e *Engine) NextPending(ctx context.Context, user string) (*models.Transaction, error) {
	s, err := e.mustLoad(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(s.Remaining) == 0 {
		return nil, nil
	}
	tx := s.Remaining[0]
	return &tx, nil
}

// Decide assigns the category typed by the user to the oldest pending
// transaction. An empty note defaults to the counterparty.
func (e *Engine) Decide(ctx context.Context, user, category, note string) (StepResult, error) {
	release, err := e.acquire(user, "decide")
	if err != nil {
		return StepResult{}, err
	}
	defer release()

	s, err := e.mustLoad(ctx, user)
	if err != nil {
		return StepResult{}, err
	}
	if err := requireStep("decide", s); err != nil {
		return StepResult{}, err
	}
	return e.decide(ctx, s, category, note)
}

func (e *Engine) decide(ctx context.Context, s *models.Session, input, note string) (StepResult, error) {
	tx := s.Remaining[0]
	category, err := e.taxonomy.Resolve(input, tx.Polarity())
	if err != nil {
		return StepResult{}, err
	}
	if note == "" {
		note = tx.Counterparty
	}
	if note == "" {
		note = tx.Description
	}

	next := s.Clone()
	next.Remaining = next.Remaining[1:]
	next.Append(models.Categorized{
		Transaction: tx,
		Assignment: models.Assignment{
			Code:   category.Code,
			Label:  category.Label,
			Note:   note,
			Source: models.SourceManual,
		},
	})
	next.State = models.StateActive
	if len(next.Remaining) == 0 {
		next.State = models.StateFinalizing
	}

	if err := e.persist(ctx, s.User, next); err != nil {
		return StepResult{}, err
	}
	e.logger.Info("Transaction categorized",
		logging.F(logging.FieldUser, s.User),
		logging.F(logging.FieldIdentity, tx.Identity),
		logging.F(logging.FieldCategory, category.Code),
		logging.F(logging.FieldRemaining, len(next.Remaining)))
	return StepResult{Remaining: len(next.Remaining), State: next.State}, nil
}

// Skip moves the oldest pending transaction to the end of the queue.
func (e *Engine) Skip(ctx context.Context, user string) (StepResult, error) {
	release, err := e.acquire(user, "skip")
	if err != nil {
		return StepResult{}, err
	}
	defer release()

	s, err := e.mustLoad(ctx, user)
	if err != nil {
		return StepResult{}, err
	}
	if err := requireStep("skip", s); err != nil {
		return StepResult{}, err
	}
	return e.skip(ctx, s)
}

func (e *Engine) skip(ctx context.Context, s *models.Session) (StepResult, error) {
	next := s.Clone()
	head := next.Remaining[0]
	next.Remaining = append(next.Remaining[1:], head)
	if err := e.persist(ctx, s.User, next); err != nil {
		return StepResult{}, err
	}
	e.logger.Debug("Transaction skipped",
		logging.F(logging.FieldUser, s.User),
		logging.F(logging.FieldIdentity, head.Identity))
	return StepResult{Remaining: len(next.Remaining), State: next.State}, nil
}

func requireStep(operation string, s *models.Session) error {
	switch {
	case s.State == models.StatePaused:
		return &apperror.InvalidStateError{Operation: operation, State: string(s.State), Reason: "session is paused, resume it first"}
	case s.State == models.StateFinalizing || len(s.Remaining) == 0:
		return &apperror.InvalidStateError{Operation: operation, State: string(s.State), Reason: "no pending transaction"}
	}
	return nil
}

// Status reports the counts of the session of user.
func (e *Engine) Status(ctx context.Context, user string) (Status, error) {
	s, err := e.mustLoad(ctx, user)
	if err != nil {
		return Status{}, err
	}
	return Status{
		State:         s.State,
		Remaining:     len(s.Remaining),
		IncomeCount:   len(s.Income),
		ExpensesCount: len(s.Expenses),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}, nil
}

// Cancel deletes the session of user whatever its state or content,
// including a corrupt one. Cancelling without a session succeeds.
func (e *Engine) Cancel(ctx context.Context, user string) error {
	release, err := e.acquire(user, "cancel")
	if err != nil {
		return err
	}
	defer release()

	if err := e.store.Delete(ctx, user); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	e.logger.Info("Session cancelled", logging.F(logging.FieldUser, user))
	return nil
}

// Pause parks an active session so it can be resumed later.
func (e *Engine) Pause(ctx context.Context, user string) error {
	release, err := e.acquire(user, "pause")
	if err != nil {
		return err
	}
	defer release()

	s, err := e.mustLoad(ctx, user)
	if err != nil {
		return err
	}
	return e.pause(ctx, s)
}

func (e *Engine) pause(ctx context.Context, s *models.Session) error {
	switch s.State {
	case models.StatePaused:
		return nil
	case models.StateFinalizing:
		return &apperror.InvalidStateError{Operation: "pause", State: string(s.State), Reason: "session is ready to finalize"}
	}
	next := s.Clone()
	next.State = models.StatePaused
	if err := e.persist(ctx, s.User, next); err != nil {
		return err
	}
	e.logger.Info("Session paused",
		logging.F(logging.FieldUser, s.User),
		logging.F(logging.FieldRemaining, len(next.Remaining)))
	return nil
}

// Resume reactivates a paused session. Active and finalizing sessions are
// left as they are.
func (e *Engine) Resume(ctx context.Context, user string) error {
	release, err := e.acquire(user, "resume")
	if err != nil {
		return err
	}
	defer release()

	s, err := e.mustLoad(ctx, user)
	if err != nil {
		return err
	}
	if s.State != models.StatePaused {
		return nil
	}

	next := s.Clone()
	next.State = models.StateActive
	if len(next.Remaining) == 0 {
		next.State = models.StateFinalizing
	}
	if err := e.persist(ctx, user, next); err != nil {
		return err
	}
	e.logger.Info("Session resumed",
		logging.F(logging.FieldUser, user),
		logging.F(logging.FieldState, next.State))
	return nil
}

// Finalize hands the categorized lists to the exporter and deletes the
// session once the export succeeded. A failed export keeps the session in
// the finalizing state so it can be retried.
func (e *Engine) Finalize(ctx context.Context, user string) (FinalizeResult, error) {
	release, err := e.acquire(user, "finalize")
	if err != nil {
		return FinalizeResult{}, err
	}
	defer release()

	s, err := e.mustLoad(ctx, user)
	if err != nil {
		return FinalizeResult{}, err
	}
	if s.State != models.StateFinalizing || len(s.Remaining) > 0 {
		return FinalizeResult{}, &apperror.InvalidStateError{
			Operation: "finalize",
			State:     string(s.State),
			Reason:    fmt.Sprintf("%d transactions still pending", len(s.Remaining)),
		}
	}

	start := time.Now()
	income, expenses := s.Unexported()
	if err := e.exporter.Export(ctx, income, expenses); err != nil {
		var exportErr *apperror.ExportError
		if !errors.As(err, &exportErr) {
			exportErr = &apperror.ExportError{Target: e.exporter.Name(), Err: err}
			err = exportErr
		}
		e.logger.WithError(err).Error("Export failed, session kept",
			logging.F(logging.FieldUser, user),
			logging.F(logging.FieldTarget, e.exporter.Name()))
		e.recordPartialExport(ctx, s, exportErr)
		return FinalizeResult{}, err
	}

	if err := e.store.Delete(ctx, user); err != nil {
		return FinalizeResult{}, fmt.Errorf("export succeeded but the session could not be deleted: %w", err)
	}

	result := FinalizeResult{Income: len(s.Income), Expenses: len(s.Expenses), Target: e.exporter.Name()}
	e.logger.Info("Session exported",
		logging.F(logging.FieldUser, user),
		logging.F(logging.FieldTarget, result.Target),
		logging.F(logging.FieldCount, result.Income+result.Expenses),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return result, nil
}

// recordPartialExport remembers the lists a failed export delivered in full
// so the next attempt does not send them again.
func (e *Engine) recordPartialExport(ctx context.Context, s *models.Session, exportErr *apperror.ExportError) {
	if !exportErr.IncomeWritten && !exportErr.ExpensesWritten {
		return
	}
	next := s.Clone()
	if exportErr.IncomeWritten {
		next.Exported.Income = len(s.Income)
	}
	if exportErr.ExpensesWritten {
		next.Exported.Expenses = len(s.Expenses)
	}
	if err := e.persist(context.WithoutCancel(ctx), s.User, next); err != nil {
		e.logger.WithError(err).Error("Failed to record partial export, a retry will send delivered rows again",
			logging.F(logging.FieldUser, s.User))
		return
	}
	e.logger.Info("Recorded partial export",
		logging.F(logging.FieldUser, s.User),
		logging.F(logging.FieldCount, next.Exported.Income+next.Exported.Expenses))
}
