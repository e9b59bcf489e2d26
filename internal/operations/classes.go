package operations

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"jurnalguru/store"
)

type ClassInput struct {
	Name string `validate:"required,max=64"`
}

// AddClass creates a class and returns its id.
func (svc *Service) AddClass(ctx context.Context, in ClassInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := svc.check("class", in); err != nil {
		return 0, err
	}
	id, err := store.Insert(ctx, svc.store.Collection(store.Classes), store.Class{
		Name:      in.Name,
		CreatedAt: svc.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return 0, fmt.Errorf("error creating class: %w", err)
	}
	return id, nil
}

// ListClasses returns every class sorted by name.
func (svc *Service) ListClasses(ctx context.Context) ([]store.Class, error) {
	classes, err := store.List[store.Class](ctx, svc.store.Collection(store.Classes))
	if err != nil {
		return nil, fmt.Errorf("error listing classes: %w", err)
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].Name < classes[j].Name
	})
	return classes, nil
}

func (svc *Service) GetClass(ctx context.Context, id int64) (store.Class, error) {
	return svc.requireClass(ctx, svc.store.Collection(store.Classes), id)
}

// DeleteClass removes a class together with its students. It returns the
// number of students removed.
func (svc *Service) DeleteClass(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := svc.store.Tx(ctx, func(tx *store.Tx) error {
		classes := tx.Collection(store.Classes)
		if _, err := svc.requireClass(ctx, classes, id); err != nil {
			return err
		}
		n, err := tx.Collection(store.Students).DeleteWhere(ctx, store.Filter{"classId": id})
		if err != nil {
			return err
		}
		removed = n
		return classes.Delete(ctx, id)
	})
	if err != nil {
		return 0, fmt.Errorf("error deleting class %d: %w", id, err)
	}
	return removed, nil
}
