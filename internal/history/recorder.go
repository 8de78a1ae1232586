package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/goreulmanhae/compare-api/internal/jobs"
)

// DefaultWriteTimeout bounds one history write.
const DefaultWriteTimeout = 10 * time.Second

// IdentityResolver resolves a bearer token to the caller's user id.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (string, error)
}

// JobMetrics provides centralized background job metrics tracking.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// Entry is one finished comparison waiting to be recorded.
type Entry struct {
	// Token is the caller's identity token; empty means anonymous.
	Token        string
	CategoryID   int64
	Weights      map[string]float64
	SpecsSummary []string
	Scores       []ScoreRow
	// RequestID correlates the write with the originating request in logs.
	RequestID string
}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// Timeout bounds each write. Defaults to DefaultWriteTimeout.
	Timeout time.Duration
	// Logger for recorder activity. Defaults to slog.Default().
	Logger *slog.Logger
	// JobMetrics is optional.
	JobMetrics JobMetrics
	// Now is the clock used for created_at. Defaults to time.Now.
	Now func() time.Time
}

// Recorder persists comparisons of authenticated callers on a best-effort
// basis. Failures are logged and counted, never returned to the request.
type Recorder struct {
	repo     Repository
	identity IdentityResolver
	config   RecorderConfig

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo Repository, identity IdentityResolver, config RecorderConfig) *Recorder {
	if config.Timeout <= 0 {
		config.Timeout = DefaultWriteTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Recorder{
		repo:     repo,
		identity: identity,
		config:   config,
	}
}

// Dispatch records e on a background goroutine. It returns immediately and
// skips anonymous entries. The write is detached from ctx cancellation so it
// survives the end of the request.
func (r *Recorder) Dispatch(ctx context.Context, e Entry) {
	if e.Token == "" {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.config.Logger.WarnContext(ctx, "history recorder closed, dropping entry",
			"request_id", e.RequestID,
			"category_id", e.CategoryID)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer r.wg.Done()
		_ = r.Record(detached, e)
	}()
}

// Record synchronously resolves the caller and stores e. Errors are logged
// and counted before being returned.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if e.Token == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	start := time.Now()
	err := r.record(ctx, e)
	r.observe(start, err)

	if err != nil {
		r.config.Logger.WarnContext(ctx, "failed to record comparison history",
			"error", err,
			"request_id", e.RequestID,
			"category_id", e.CategoryID)
	}
	return err
}

func (r *Recorder) record(ctx context.Context, e Entry) error {
	userID, err := r.identity.ResolveIdentity(ctx, e.Token)
	if err != nil {
		return &recordError{kind: "identity", err: err}
	}

	rec := &Record{
		ID:           uuid.New().String(),
		OwnerUserID:  userID,
		CategoryID:   e.CategoryID,
		Weights:      e.Weights,
		SpecsSummary: e.SpecsSummary,
		CreatedAt:    r.config.Now().UTC(),
		Scores:       e.Scores,
	}
	if err := r.repo.Create(ctx, rec); err != nil {
		return &recordError{kind: "store", err: err}
	}

	r.config.Logger.DebugContext(ctx, "comparison history recorded",
		"history_id", rec.ID,
		"user_id", userID,
		"request_id", e.RequestID,
		"scores", len(rec.Scores))
	return nil
}

func (r *Recorder) observe(start time.Time, err error) {
	m := r.config.JobMetrics
	if m == nil {
		return
	}
	m.ObserveJobDuration(jobs.JobTypeHistoryRecord, time.Since(start).Seconds())
	if err == nil {
		m.IncJobsTotal(jobs.JobTypeHistoryRecord, jobs.StatusSuccess)
		return
	}
	m.IncJobsTotal(jobs.JobTypeHistoryRecord, jobs.StatusFailure)

	errorType := "unknown"
	var re *recordError
	if errors.As(err, &re) {
		errorType = re.kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = "timeout"
	}
	m.IncJobErrors(jobs.JobTypeHistoryRecord, errorType)
}

// Close stops accepting entries and waits for in-flight writes or ctx.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("history recorder drain: %w", ctx.Err())
	}
}

// recordError tags a failure with the step that produced it.
type recordError struct {
	kind string
	err  error
}

func (e *recordError) Error() string {
	return e.kind + ": " + e.err.Error()
}

func (e *recordError) Unwrap() error {
	return e.err
}
