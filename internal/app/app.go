package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"jurnalguru/backup"
	"jurnalguru/drive"
	"jurnalguru/internal/cache"
	"jurnalguru/internal/config"
	"jurnalguru/internal/credentials"
	"jurnalguru/internal/events"
	"jurnalguru/internal/operations"
	jsync "jurnalguru/internal/sync"
	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

// App holds the application state
type App struct {
	config  *config.Config
	store   *store.Store
	bus     *events.Bus
	ops     *operations.Service
	session *credentials.Session
	backup  *backup.Service
	trigger *jsync.Trigger
	state   *cache.SyncState

	ctx      context.Context
	cancel   context.CancelFunc
	deviceID string

	closeOnce sync.Once
}

// Options override the defaults NewApp derives from the config.
type Options struct {
	// DatabasePath replaces database.path from the config.
	DatabasePath string
	// State records sync times; nil loads the default cache file.
	State *cache.SyncState
	// Session replaces the session built from the drive config.
	Session *credentials.Session
	// Bus replaces the process-wide event bus.
	Bus *events.Bus
	// SyncLogger receives background sync messages.
	SyncLogger *log.Logger
}

// OAuthConfig builds the OAuth client from the drive section of the config.
func OAuthConfig(cfg config.DriveConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{credentials.DriveScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}
}

// NewApp opens the store and wires the backup service, the session and the
// sync trigger. A session restored from the keyring or environment starts
// the trigger right away.
func NewApp(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.GetConfig()
	}

	dbPath := opts.DatabasePath
	if dbPath == "" {
		dbPath = cfg.DatabasePath()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	state := opts.State
	if state == nil {
		if state, err = cache.LoadDefault(); err != nil {
			utils.Warnf("Sync state will not be saved: %v", err)
			state = cache.LoadSyncState("")
		}
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.Default()
	}
	session := opts.Session
	if session == nil {
		session = credentials.NewSession(OAuthConfig(cfg.Drive))
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		config:  cfg,
		store:   st,
		bus:     bus,
		ops:     operations.New(st),
		session: session,
		state:   state,
		ctx:     ctx,
		cancel:  cancel,
	}

	// before the bridge is attached, so this write never schedules a sync
	if a.deviceID, err = a.ops.DeviceID(ctx); err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("failed to read device id: %w", err)
	}
	events.Attach(st, bus)

	a.backup = backup.NewService(st, nil, backup.Config{
		FolderName: cfg.Drive.FolderName,
		SyncFile:   cfg.Drive.SyncFile,
		DeviceID:   a.deviceID,
		DeviceInfo: deviceInfo(),
	})
	a.backup.SetRecorder(state)

	a.trigger = jsync.NewTrigger(a.backup, jsync.Options{
		QuietPeriod:    cfg.Sync.QuietPeriod,
		SuccessDisplay: cfg.Sync.SuccessDisplay,
		Timeout:        cfg.Drive.Timeout,
		Logger:         opts.SyncLogger,
	})

	session.OnChange(a.sessionChanged)
	if !session.IsSignedIn() {
		if _, err := session.Restore(); err != nil {
			utils.Warnf("Could not restore Drive session: %v", err)
		}
	}
	if session.IsSignedIn() {
		a.sessionChanged(true)
	}

	return a, nil
}

func deviceInfo() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s (%s/%s)", host, runtime.GOOS, runtime.GOARCH)
}

// sessionChanged connects the remote client and the trigger on sign-in and
// disconnects both on sign-out.
func (a *App) sessionChanged(signedIn bool) {
	if !signedIn {
		a.trigger.Detach()
		a.backup.SetRemote(nil)
		return
	}

	client, err := drive.NewClient(a.ctx, a.session.TokenSource(a.ctx), drive.Options{
		Endpoint: a.config.Drive.Endpoint,
		Timeout:  a.config.Drive.Timeout,
	})
	if err != nil {
		utils.Warnf("Could not create Drive client: %v", err)
		return
	}
	a.backup.SetRemote(client)

	if a.config.Sync.Enabled {
		a.trigger.Attach(a.bus, a.session)
	}
}

func (a *App) Config() *config.Config { return a.config }
func (a *App) Store() *store.Store { return a.store }
func (a *App) Ops() *operations.Service { return a.ops }
func (a *App) Backup() *backup.Service { return a.backup }
func (a *App) Session() *credentials.Session { return a.session }
func (a *App) Trigger() *jsync.Trigger { return a.trigger }
func (a *App) SyncState() *cache.SyncState { return a.state }
func (a *App) Bus() *events.Bus { return a.bus }
func (a *App) DeviceID() string { return a.deviceID }
func (a *App) Context() context.Context { return a.ctx }
func (a *App) IsSignedIn() bool { return a.session.IsSignedIn() }
func (a *App) SyncEnabled() bool { return a.config.Sync.Enabled }
func (a *App) BackupFrequency() backup.Frequency { return backup.Frequency(a.config.Backup.Frequency) }

// SignIn installs tok and, when the local store is empty, looks for a cloud
// backup to offer. The candidate is never applied here.
func (a *App) SignIn(ctx context.Context, tok *oauth2.Token) (*backup.Candidate, error) {
	if err := a.session.SignIn(tok); err != nil {
		return nil, err
	}
	return a.DiscoverRestore(ctx)
}

// DiscoverRestore returns a cloud backup worth offering to an empty device,
// or nil.
func (a *App) DiscoverRestore(ctx context.Context) (*backup.Candidate, error) {
	if !a.IsSignedIn() {
		return nil, nil
	}
	c, err := a.backup.FindAutoRestoreCandidate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to look for cloud backups: %w", err)
	}
	return c, nil
}

// SignOut clears the session and forgets the recorded sync.
func (a *App) SignOut() error {
	err := a.session.SignOut()
	if rerr := a.state.Reset(); rerr != nil {
		utils.Warnf("Failed to reset sync state: %v", rerr)
	}
	return err
}

// SyncNow uploads the store immediately.
func (a *App) SyncNow(ctx context.Context) (*drive.File, error) {
	if !a.IsSignedIn() {
		return nil, utils.ErrNotSignedIn(drive.ErrAuthRequired)
	}
	file, err := a.trigger.SyncNow(ctx)
	switch {
	case isAuthError(err):
		return nil, utils.ErrNotSignedIn(err)
	case isNetworkError(err):
		return nil, utils.ErrRemoteUnavailable(err.Error())
	}
	return file, err
}

func isNetworkError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne)
}

func isAuthError(err error) bool {
	if errors.Is(err, drive.ErrAuthRequired) {
		return true
	}
	var re *drive.RemoteError
	return errors.As(err, &re) && re.IsUnauthorized()
}

// SyncIfDue runs a scheduled sync when backup.frequency says the last one
// is too old. It reports whether a sync ran.
func (a *App) SyncIfDue(ctx context.Context, now time.Time) (bool, error) {
	if !a.IsSignedIn() {
		return false, nil
	}
	last, _, _ := a.state.Snapshot()
	if !backup.IsBackupDue(a.BackupFrequency(), last, now) {
		return false, nil
	}
	_, err := a.trigger.SyncNow(ctx)
	if errors.Is(err, jsync.ErrSyncInProgress) {
		return false, nil
	}
	return err == nil, err
}

// Status summarizes sign-in and sync state for display.
type Status struct {
	SignedIn   bool      `json:"signed_in" yaml:"signed_in"`
	Source     string    `json:"token_source" yaml:"token_source"`
	SyncActive bool      `json:"sync_active" yaml:"sync_active"`
	State      string    `json:"state" yaml:"state"`
	LastError  string    `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastSync   time.Time `json:"last_sync,omitempty" yaml:"last_sync,omitempty"`
	FileID     string    `json:"file_id,omitempty" yaml:"file_id,omitempty"`
	SyncCount  int       `json:"sync_count" yaml:"sync_count"`
	DeviceID   string    `json:"device_id" yaml:"device_id"`
	Frequency  string    `json:"backup_frequency" yaml:"backup_frequency"`
}

func (a *App) Status() Status {
	st, err := a.trigger.Status()
	last, fileID, count := a.state.Snapshot()
	s := Status{
		SignedIn:   a.IsSignedIn(),
		Source:     string(a.session.Source()),
		SyncActive: a.trigger.IsAttached(),
		State:      st.String(),
		LastSync:   last,
		FileID:     fileID,
		SyncCount:  count,
		DeviceID:   a.deviceID,
		Frequency:  a.config.Backup.Frequency,
	}
	if err != nil {
		s.LastError = err.Error()
	}
	return s
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() {
	a.ShutdownWithTimeout(5 * time.Second)
}

// ShutdownWithTimeout uploads a change still waiting out its quiet period,
// stops the trigger and closes the store.
func (a *App) ShutdownWithTimeout(timeout time.Duration) {
	a.closeOnce.Do(func() {
		if a.trigger != nil {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			if flushed, err := a.trigger.Flush(ctx); flushed && err != nil {
				utils.Warnf("Final sync failed: %v", err)
			}
			cancel()
			a.trigger.Stop(timeout)
		}
		a.cancel()
		if err := a.store.Close(); err != nil {
			utils.Warnf("Failed to close database: %v", err)
		}
	})
}
