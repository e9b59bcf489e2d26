package operations

import (
	"context"
	"fmt"

	"jurnalguru/store"
)

// VacuumReport counts the orphaned records removed per collection.
type VacuumReport map[string]int

func (r VacuumReport) Total() int {
	n := 0
	for _, c := range r {
		n += c
	}
	return n
}

type ownedRecord struct {
	ID               int64 `json:"id"`
	StudentID        int64 `json:"studentId"`
	AssessmentMetaID int64 `json:"assessmentMetaId"`
}

// Vacuum deletes attendance, grades, behavior logs and interventions whose
// student no longer exists, and grades whose assessment no longer exists.
// With dryRun the orphans are only counted.
func (svc *Service) Vacuum(ctx context.Context, dryRun bool) (VacuumReport, error) {
	report := VacuumReport{}
	err := svc.store.Tx(ctx, func(tx *store.Tx) error {
		students, err := keySet(ctx, tx.Collection(store.Students))
		if err != nil {
			return err
		}
		assessments, err := keySet(ctx, tx.Collection(store.AssessmentsMeta))
		if err != nil {
			return err
		}

		for _, name := range []string{store.AttendanceCollection, store.Grades, store.StudentBehaviors, store.Interventions} {
			c := tx.Collection(name)
			records, err := store.List[ownedRecord](ctx, c)
			if err != nil {
				return err
			}
			for _, r := range records {
				orphan := !students[r.StudentID]
				if name == store.Grades && !assessments[r.AssessmentMetaID] {
					orphan = true
				}
				if !orphan {
					continue
				}
				report[name]++
				if dryRun {
					continue
				}
				if err := c.Delete(ctx, r.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error removing orphaned records: %w", err)
	}
	return report, nil
}

type keyOnly struct {
	ID int64 `json:"id"`
}

func keySet(ctx context.Context, c *store.Collection) (map[int64]bool, error) {
	keys, err := store.List[keyOnly](ctx, c)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(keys))
	for _, k := range keys {
		set[k.ID] = true
	}
	return set, nil
}
