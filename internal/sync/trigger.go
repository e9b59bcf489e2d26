package sync

import (
	"context"
	"errors"
	"log"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"jurnalguru/drive"
	"jurnalguru/internal/events"
)

// Status is the auto-sync state shown to the user.
type Status int

const (
	StatusIdle Status = iota
	// StatusSyncing is optimistic: it is set as soon as a change is seen,
	// before the quiet period has passed and before any network call starts.
	StatusSyncing
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSyncing:
		return "syncing"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// ErrSyncInProgress is returned by SyncNow while another sync is running.
var ErrSyncInProgress = errors.New("a sync is already in progress")

// Syncer uploads the current local state.
type Syncer interface {
	PerformAutoSync(ctx context.Context) (*drive.File, error)
}

// Session reports whether a remote session exists.
type Session interface {
	IsSignedIn() bool
}

// Options tune the trigger. Zero values take the defaults.
type Options struct {
	QuietPeriod    time.Duration // default 5s
	SuccessDisplay time.Duration // default 3s
	Timeout        time.Duration // per sync; 0 means none
	Logger         *log.Logger
}

const (
	DefaultQuietPeriod    = 5 * time.Second
	DefaultSuccessDisplay = 3 * time.Second
)

// Trigger debounces local changes into background syncs and tracks the
// resulting status. At most one sync runs at a time; changes that arrive
// while one is running cause exactly one follow-up sync.
type Trigger struct {
	syncer Syncer
	opts   Options
	logger *log.Logger

	mu          sync.Mutex
	timer       *time.Timer
	gen         uint64
	revert      *time.Timer
	status      Status
	lastErr     error
	lastSync    time.Time
	listeners   []func(Status)
	unsubscribe func()

	wg       sync.WaitGroup
	inFlight atomic.Bool
	pending  atomic.Bool
	shutdown atomic.Bool
}

// NewTrigger creates an idle trigger. It does nothing until attached to a
// bus or notified directly.
func NewTrigger(syncer Syncer, opts Options) *Trigger {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.SuccessDisplay <= 0 {
		opts.SuccessDisplay = DefaultSuccessDisplay
	}
	logger := opts.Logger
	if logger == nil {
		// Errors are logged, never shown interactively
		logger = log.New(os.Stderr, "[AutoSync] ", log.LstdFlags)
	}
	return &Trigger{syncer: syncer, opts: opts, logger: logger}
}

// Attach starts listening for changes on bus. It does nothing and returns
// false when session is not signed in or the trigger is already attached.
func (t *Trigger) Attach(bus *events.Bus, session Session) bool {
	if session == nil || !session.IsSignedIn() || t.shutdown.Load() {
		return false
	}

	t.mu.Lock()
	if t.unsubscribe != nil {
		t.mu.Unlock()
		return false
	}
	ch, unsubscribe := bus.Subscribe()
	t.unsubscribe = unsubscribe
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for range ch {
			t.Notify()
		}
	}()
	return true
}

// Detach stops listening, cancels any pending sync and resets the status.
// A sync already running is left to finish.
func (t *Trigger) Detach() {
	t.mu.Lock()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	t.setStatus(StatusIdle, nil)
}

// IsAttached reports whether the trigger is listening for changes.
func (t *Trigger) IsAttached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unsubscribe != nil
}

// Notify records a local change: it restarts the quiet period and flips the
// status to syncing right away.
func (t *Trigger) Notify() {
	if t.shutdown.Load() {
		return
	}

	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.opts.QuietPeriod, func() { t.fire(gen) })
	t.mu.Unlock()

	t.setStatus(StatusSyncing, nil)
}

// fire runs when the quiet period of timer generation gen ends.
func (t *Trigger) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		// superseded by a later Notify or cancelled by Detach
		t.mu.Unlock()
		return
	}
	t.timer = nil
	if t.shutdown.Load() {
		t.mu.Unlock()
		return
	}
	if !t.inFlight.CompareAndSwap(false, true) {
		t.pending.Store(true)
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go t.run()
}

func (t *Trigger) run() {
	defer t.wg.Done()

	for {
		err := t.syncOnce()
		if t.takePending() {
			continue
		}
		t.finish(err)
		t.release()
		return
	}
}

// takePending reports whether a change was recorded while the current sync
// ran, and consumes it.
func (t *Trigger) takePending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shutdown.Load() {
		return false
	}
	return t.pending.Swap(false)
}

// release frees the sync slot. A change recorded after the last check is
// handed to a new run instead, so it is never left behind.
func (t *Trigger) release() {
	t.mu.Lock()
	again := t.pending.Load() && !t.shutdown.Load()
	t.pending.Store(false)
	if again {
		t.wg.Add(1)
	} else {
		t.inFlight.Store(false)
	}
	t.mu.Unlock()

	if again {
		t.setStatus(StatusSyncing, nil)
		go t.run()
	}
}

func (t *Trigger) syncOnce() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("sync panicked")
			t.logger.Printf("Panic in auto sync: %v", r)
		}
	}()

	ctx := context.Background()
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	file, err := t.syncer.PerformAutoSync(ctx)
	if err != nil {
		t.logger.Printf("Auto sync error: %v", err)
		return err
	}
	if file != nil {
		t.logger.Printf("Auto sync completed: %s (%s)", file.Name, file.ID)
	}
	return nil
}

// finish publishes the outcome, unless a newer change is already waiting
// for its own quiet period.
func (t *Trigger) finish(err error) {
	t.mu.Lock()
	waiting := t.timer != nil
	if err == nil {
		t.lastSync = time.Now()
	}
	t.mu.Unlock()

	switch {
	case waiting:
	case err != nil:
		t.setStatus(StatusError, err)
	default:
		t.setStatus(StatusSuccess, nil)
	}
}

// SyncNow runs a sync immediately and waits for it, outside the debounce
// cycle. It fails with ErrSyncInProgress rather than running concurrently.
func (t *Trigger) SyncNow(ctx context.Context) (*drive.File, error) {
	t.mu.Lock()
	if t.inFlight.Load() {
		t.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	t.inFlight.Store(true)
	t.mu.Unlock()

	return t.syncHeld(ctx)
}

// syncHeld runs one sync for a caller that already holds the slot.
func (t *Trigger) syncHeld(ctx context.Context) (*drive.File, error) {
	defer t.release()

	t.setStatus(StatusSyncing, nil)
	file, err := t.syncer.PerformAutoSync(ctx)
	if err != nil {
		t.setStatus(StatusError, err)
		return nil, err
	}

	t.mu.Lock()
	t.lastSync = time.Now()
	t.mu.Unlock()
	t.setStatus(StatusSuccess, nil)
	return file, nil
}

// Flush runs a sync still waiting out its quiet period right away and waits
// until no sync is running or pending. It reports whether one was waiting.
func (t *Trigger) Flush(ctx context.Context) (bool, error) {
	t.mu.Lock()
	waiting := t.timer != nil
	busy := t.inFlight.Load()
	if waiting {
		t.timer.Stop()
		t.timer = nil
		t.gen++
		if busy {
			// the running sync started before this change; queue another
			t.pending.Store(true)
		} else {
			t.inFlight.Store(true)
		}
	}
	t.mu.Unlock()
	if !waiting {
		return false, nil
	}
	if !busy {
		_, err := t.syncHeld(ctx)
		return true, err
	}

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for t.inFlight.Load() || t.pending.Load() {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case <-tick.C:
		}
	}
	_, err := t.Status()
	return true, err
}

func (t *Trigger) setStatus(s Status, err error) {
	t.mu.Lock()
	if t.revert != nil {
		t.revert.Stop()
		t.revert = nil
	}
	changed := t.status != s
	t.status = s
	t.lastErr = err
	if s == StatusSuccess && !t.shutdown.Load() {
		t.revert = time.AfterFunc(t.opts.SuccessDisplay, t.revertSuccess)
	}
	listeners := slices.Clone(t.listeners)
	t.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(s)
		}
	}
}

func (t *Trigger) revertSuccess() {
	t.mu.Lock()
	if t.status != StatusSuccess {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.setStatus(StatusIdle, nil)
}

// Status returns the current status and, in StatusError, the error that
// caused it.
func (t *Trigger) Status() (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.lastErr
}

// LastSync returns when the last successful sync finished in this process.
func (t *Trigger) LastSync() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSync
}

// OnStatusChange registers fn to be called on every status transition.
// fn runs on the goroutine that caused the change and must not block.
func (t *Trigger) OnStatusChange(fn func(Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Stop detaches the trigger, cancels pending timers and waits up to timeout
// for a running sync to finish. The trigger cannot be reused.
func (t *Trigger) Stop(timeout time.Duration) {
	t.mu.Lock()
	t.shutdown.Store(true)
	t.mu.Unlock()
	t.Detach()

	t.mu.Lock()
	if t.revert != nil {
		t.revert.Stop()
		t.revert = nil
	}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.logger.Printf("Warning: pending sync did not complete within %v", timeout)
	}
}
