package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"jurnalguru/drive"
	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

const (
	DefaultFolderName = "Jurnal_Mengajar_Backup"
	DefaultSyncFile   = "jurnal_auto_sync.json"

	// DeviceIDSetting is the settings key holding this installation's id. It
	// survives restores.
	DeviceIDSetting = "deviceId"
)

// Remote is the subset of the backup client the service needs.
type Remote interface {
	FindAppFolder(ctx context.Context, name string) (*drive.File, error)
	CreateAppFolder(ctx context.Context, name string) (*drive.File, error)
	FindFileInFolder(ctx context.Context, folderID, name string) (*drive.File, error)
	UploadFile(ctx context.Context, folderID, name string, content []byte) (*drive.File, error)
	UpdateFile(ctx context.Context, fileID string, content []byte) (*drive.File, error)
	ListBackupFiles(ctx context.Context, folderID string) ([]drive.File, error)
	DownloadFile(ctx context.Context, fileID string) (json.RawMessage, error)
}

// SyncRecorder is told about every successful cloud sync.
type SyncRecorder interface {
	RecordSync(at time.Time, fileID string) error
}

// Config names the remote folder and file and identifies this device.
type Config struct {
	FolderName string
	SyncFile   string
	DeviceID   string
	DeviceInfo string
}

// Service runs backup and restore against one store and, when signed in,
// one remote.
type Service struct {
	store    *store.Store
	mu       sync.RWMutex
	remote   Remote
	cfg      Config
	recorder SyncRecorder

	folders singleflight.Group
	now     func() time.Time
}

// NewService creates a backup service. remote may be nil while signed out;
// cloud operations then fail with drive.ErrAuthRequired.
func NewService(s *store.Store, remote Remote, cfg Config) *Service {
	if cfg.FolderName == "" {
		cfg.FolderName = DefaultFolderName
	}
	if cfg.SyncFile == "" {
		cfg.SyncFile = DefaultSyncFile
	}
	return &Service{store: s, remote: remote, cfg: cfg, now: time.Now}
}

// SetRecorder registers where successful syncs are recorded.
func (svc *Service) SetRecorder(r SyncRecorder) {
	svc.recorder = r
}

// SetRemote swaps the remote client, e.g. after sign-in or sign-out.
func (svc *Service) SetRemote(r Remote) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.remote = r
}

// HasRemote reports whether a remote client is set.
func (svc *Service) HasRemote() bool {
	_, err := svc.requireRemote()
	return err == nil
}

func (svc *Service) requireRemote() (Remote, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if svc.remote == nil {
		return nil, drive.ErrAuthRequired
	}
	return svc.remote, nil
}

// Export snapshots the store into an envelope stamped with this device.
func (svc *Service) Export(ctx context.Context) (*Envelope, error) {
	env, _, err := Export(ctx, svc.store, ExportOptions{
		DeviceID:   svc.cfg.DeviceID,
		DeviceInfo: svc.cfg.DeviceInfo,
		Now:        svc.now,
	})
	return env, err
}

func (svc *Service) restore(ctx context.Context, env *Envelope, mode RestoreMode) error {
	return Restore(ctx, svc.store, env, mode, DeviceIDSetting)
}

// ensureFolder returns the app folder id, creating the folder when none
// exists. Concurrent callers share one lookup.
func (svc *Service) ensureFolder(ctx context.Context, remote Remote) (string, error) {
	v, err, _ := svc.folders.Do(svc.cfg.FolderName, func() (any, error) {
		folder, err := remote.FindAppFolder(ctx, svc.cfg.FolderName)
		if err != nil {
			return "", err
		}
		if folder != nil {
			return folder.ID, nil
		}
		utils.Infof("Creating backup folder %q", svc.cfg.FolderName)
		folder, err = remote.CreateAppFolder(ctx, svc.cfg.FolderName)
		if err != nil {
			return "", err
		}
		return folder.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// PerformAutoSync exports the store and writes it to the canonical sync file,
// updating the file in place when it already exists.
func (svc *Service) PerformAutoSync(ctx context.Context) (*drive.File, error) {
	remote, err := svc.requireRemote()
	if err != nil {
		return nil, err
	}

	env, err := svc.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export data: %w", err)
	}
	content, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	folderID, err := svc.ensureFolder(ctx, remote)
	if err != nil {
		return nil, err
	}

	existing, err := remote.FindFileInFolder(ctx, folderID, svc.cfg.SyncFile)
	if err != nil {
		return nil, err
	}

	var file *drive.File
	if existing != nil {
		file, err = remote.UpdateFile(ctx, existing.ID, content)
	} else {
		file, err = remote.UploadFile(ctx, folderID, svc.cfg.SyncFile, content)
	}
	if err != nil {
		return nil, err
	}

	if svc.recorder != nil {
		if err := svc.recorder.RecordSync(svc.now(), file.ID); err != nil {
			utils.Warnf("Failed to record sync time: %v", err)
		}
	}
	return file, nil
}

// RestoreFromCloud downloads a backup and replaces the local store with it.
func (svc *Service) RestoreFromCloud(ctx context.Context, fileID string) (*Envelope, error) {
	remote, err := svc.requireRemote()
	if err != nil {
		return nil, err
	}

	raw, err := remote.DownloadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	env, err := ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if err := svc.restore(ctx, env, Replace); err != nil {
		return nil, err
	}
	return env, nil
}

// CheckCloudForSyncFile returns the canonical sync file, or nil when neither
// the folder nor the file exists. It never creates anything.
func (svc *Service) CheckCloudForSyncFile(ctx context.Context) (*drive.File, error) {
	remote, err := svc.requireRemote()
	if err != nil {
		return nil, err
	}

	folder, err := remote.FindAppFolder(ctx, svc.cfg.FolderName)
	if err != nil || folder == nil {
		return nil, err
	}
	return remote.FindFileInFolder(ctx, folder.ID, svc.cfg.SyncFile)
}

// IsLocalDbEmpty reports whether the store has neither students nor classes.
// Other collections are not consulted. A read error counts as not empty so
// that a broken store is never offered a restore over it.
func (svc *Service) IsLocalDbEmpty(ctx context.Context) bool {
	total := 0
	for _, name := range []string{store.Students, store.Classes} {
		n, err := svc.store.Collection(name).Count(ctx)
		if err != nil {
			utils.Warnf("Failed to count %s: %v", name, err)
			return false
		}
		total += n
	}
	return total == 0
}

// LastBackupMetadata describes the newest cloud backup: the sync file when
// present, otherwise the newest file of the older multi-file scheme.
func (svc *Service) LastBackupMetadata(ctx context.Context) (*drive.File, error) {
	if f, err := svc.CheckCloudForSyncFile(ctx); err != nil || f != nil {
		return f, err
	}
	return svc.latestLegacyBackup(ctx)
}

// Candidate is a cloud backup offered for restore on an empty device.
type Candidate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // "sync-file" or "legacy"
}

// FindAutoRestoreCandidate looks for a cloud backup to offer when the local
// store is empty. It only reads; applying the candidate is the caller's
// decision.
func (svc *Service) FindAutoRestoreCandidate(ctx context.Context) (*Candidate, error) {
	if _, err := svc.requireRemote(); err != nil {
		return nil, err
	}
	if !svc.IsLocalDbEmpty(ctx) {
		return nil, nil
	}

	f, err := svc.CheckCloudForSyncFile(ctx)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return &Candidate{ID: f.ID, Name: f.Name, Timestamp: f.ModifiedTime, Source: "sync-file"}, nil
	}

	f, err = svc.latestLegacyBackup(ctx)
	if err != nil || f == nil {
		return nil, err
	}
	return &Candidate{ID: f.ID, Name: f.Name, Timestamp: f.CreatedTime, Source: "legacy"}, nil
}
