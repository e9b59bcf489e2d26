package operations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"jurnalguru/backup"
	"jurnalguru/store"
)

// Well-known setting keys.
const (
	SettingTeacherName = "teacherName"
	SettingSchoolName  = "schoolName"
	SettingSubjects    = "mySubjects"
)

// GetSetting returns the value stored under key, or nil when unset.
func (svc *Service) GetSetting(ctx context.Context, key string) (any, error) {
	s, err := store.Fetch[store.Setting](ctx, svc.store.Collection(store.Settings), key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Value, nil
}

func (svc *Service) PutSetting(ctx context.Context, key string, value any) error {
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	if _, err := store.Save(ctx, svc.store.Collection(store.Settings), store.Setting{Key: key, Value: value}); err != nil {
		return fmt.Errorf("error saving setting %s: %w", key, err)
	}
	return nil
}

// ListSettings returns every setting.
func (svc *Service) ListSettings(ctx context.Context) ([]store.Setting, error) {
	return store.List[store.Setting](ctx, svc.store.Collection(store.Settings))
}

// DeviceID returns this installation's id, generating and storing it on
// first use.
func (svc *Service) DeviceID(ctx context.Context) (string, error) {
	v, err := svc.GetSetting(ctx, backup.DeviceIDSetting)
	if err != nil {
		return "", err
	}
	if id, ok := v.(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	if err := svc.PutSetting(ctx, backup.DeviceIDSetting, id); err != nil {
		return "", err
	}
	return id, nil
}
