package backup

import (
	"context"

	"jurnalguru/drive"
)

// Older app versions wrote one new file per backup instead of updating a
// single sync file. These helpers only read those files so existing users
// can still restore from them.

// ListAvailableBackups returns the multi-file backups in the app folder,
// newest first. The canonical sync file is not included.
func (svc *Service) ListAvailableBackups(ctx context.Context) ([]drive.File, error) {
	remote, err := svc.requireRemote()
	if err != nil {
		return nil, err
	}

	folder, err := remote.FindAppFolder(ctx, svc.cfg.FolderName)
	if err != nil || folder == nil {
		return nil, err
	}

	files, err := remote.ListBackupFiles(ctx, folder.ID)
	if err != nil {
		return nil, err
	}

	out := files[:0]
	for _, f := range files {
		if f.Name != svc.cfg.SyncFile {
			out = append(out, f)
		}
	}
	return out, nil
}

func (svc *Service) latestLegacyBackup(ctx context.Context) (*drive.File, error) {
	files, err := svc.ListAvailableBackups(ctx)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return &files[0], nil
}
