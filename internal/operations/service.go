package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

// Service issues the domain writes and reads of the journal. Every write goes
// through the store, so the sync hooks observe it.
type Service struct {
	store    *store.Store
	validate *validator.Validate
	now      func() time.Time
}

func New(s *store.Store) *Service {
	return &Service{
		store:    s,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Store returns the underlying store.
func (svc *Service) Store() *store.Store {
	return svc.store
}

// check validates v and turns validator errors into one readable message.
func (svc *Service) check(what string, v any) error {
	err := svc.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid %s: %w", what, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid %s: %s", what, strings.Join(msgs, "; "))
}

func (svc *Service) requireClass(ctx context.Context, c *store.Collection, id int64) (store.Class, error) {
	class, err := store.Fetch[store.Class](ctx, c, id)
	if errors.Is(err, store.ErrNotFound) {
		return class, utils.ErrClassNotFound(id)
	}
	return class, err
}

func (svc *Service) requireStudent(ctx context.Context, c *store.Collection, id int64) (store.Student, error) {
	st, err := store.Fetch[store.Student](ctx, c, id)
	if errors.Is(err, store.ErrNotFound) {
		return st, utils.ErrStudentNotFound(id)
	}
	return st, err
}

// parseDay reads a stored date, which is either a calendar date or a full
// RFC 3339 timestamp.
func parseDay(s string) (time.Time, bool) {
	if t, err := time.Parse(utils.DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
