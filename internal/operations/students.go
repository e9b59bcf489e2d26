package operations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

// ErrDuplicateStudent reports a name or NIS already used in the class or
// repeated within one batch.
var ErrDuplicateStudent = errors.New("duplicate student")

type StudentInput struct {
	Name   string `validate:"required"`
	NIS    string `validate:"omitempty,max=32"`
	Gender string `validate:"omitempty,oneof=L P"`
}

// StudentChanges holds the fields to update; nil fields are left alone.
type StudentChanges struct {
	Name    *string
	NIS     *string
	Gender  *string `validate:"omitempty,oneof=L P"`
	ClassID *int64
}

// AddStudents adds every student to the class in one transaction and
// returns their ids in input order.
func (svc *Service) AddStudents(ctx context.Context, classID int64, students []StudentInput) ([]int64, error) {
	for i := range students {
		students[i].Name = strings.TrimSpace(students[i].Name)
		students[i].Gender = strings.ToUpper(strings.TrimSpace(students[i].Gender))
		if err := svc.check("student", students[i]); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	ids := make([]int64, 0, len(students))
	err := svc.store.Tx(ctx, func(tx *store.Tx) error {
		if _, err := svc.requireClass(ctx, tx.Collection(store.Classes), classID); err != nil {
			return err
		}
		c := tx.Collection(store.Students)
		existing, err := store.Find[store.Student](ctx, c, store.Filter{"classId": classID})
		if err != nil {
			return err
		}
		if err := checkDuplicates(students, existing); err != nil {
			return err
		}
		for _, in := range students {
			id, err := store.Insert(ctx, c, store.Student{
				Name:    in.Name,
				NIS:     store.FlexString(in.NIS),
				Gender:  in.Gender,
				ClassID: classID,
			})
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error adding students: %w", err)
	}
	return ids, nil
}

func hasNIS(nis string) bool {
	nis = strings.TrimSpace(nis)
	return nis != "" && nis != "-"
}

func checkDuplicates(candidates []StudentInput, existing []store.Student) error {
	names := make(map[string]string, len(existing)+len(candidates))
	nises := make(map[string]string, len(existing)+len(candidates))
	for _, st := range existing {
		names[strings.ToLower(strings.TrimSpace(st.Name))] = st.Name
		if nis := string(st.NIS); hasNIS(nis) {
			nises[nis] = st.Name
		}
	}
	for _, in := range candidates {
		key := strings.ToLower(in.Name)
		if _, ok := names[key]; ok {
			return fmt.Errorf("%w: name %q is already registered", ErrDuplicateStudent, in.Name)
		}
		names[key] = in.Name
		if hasNIS(in.NIS) {
			if owner, ok := nises[in.NIS]; ok {
				return fmt.Errorf("%w: NIS %q is already used by %s", ErrDuplicateStudent, in.NIS, owner)
			}
			nises[in.NIS] = in.Name
		}
	}
	return nil
}

// UpdateStudent applies changes to a student.
func (svc *Service) UpdateStudent(ctx context.Context, id int64, ch StudentChanges) error {
	if err := svc.check("student", ch); err != nil {
		return err
	}
	changes := map[string]any{}
	if ch.Name != nil {
		name := strings.TrimSpace(*ch.Name)
		if name == "" {
			return fmt.Errorf("invalid student: Name is required")
		}
		changes["name"] = name
	}
	if ch.NIS != nil {
		changes["nis"] = *ch.NIS
	}
	if ch.Gender != nil {
		changes["gender"] = *ch.Gender
	}
	if ch.ClassID != nil {
		if _, err := svc.GetClass(ctx, *ch.ClassID); err != nil {
			return err
		}
		changes["classId"] = *ch.ClassID
	}
	if len(changes) == 0 {
		return nil
	}

	found, err := svc.store.Collection(store.Students).Update(ctx, id, changes)
	if err != nil {
		return fmt.Errorf("error updating student %d: %w", id, err)
	}
	if !found {
		return utils.ErrStudentNotFound(id)
	}
	return nil
}

// DeleteStudent removes a student. Their records stay until the next vacuum.
func (svc *Service) DeleteStudent(ctx context.Context, id int64) error {
	c := svc.store.Collection(store.Students)
	if _, err := svc.requireStudent(ctx, c, id); err != nil {
		return err
	}
	if err := c.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting student %d: %w", id, err)
	}
	return nil
}

// StudentsByClass returns the students of a class sorted by name.
func (svc *Service) StudentsByClass(ctx context.Context, classID int64) ([]store.Student, error) {
	students, err := store.Find[store.Student](ctx, svc.store.Collection(store.Students), store.Filter{"classId": classID})
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	sort.SliceStable(students, func(i, j int) bool {
		return students[i].Name < students[j].Name
	})
	return students, nil
}
