package operations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

// AssessmentInput creates an assessment instance for a class. A non-zero
// TemplateID copies the name, type and topic from that template.
type AssessmentInput struct {
	ClassID    int64  `validate:"required,gt=0"`
	TemplateID int64
	SyllabusID int64
	Name       string
	Subject    string `validate:"required"`
	Type       string
	Date       string `validate:"required,datetime=2006-01-02"`
}

type GradeEntry struct {
	StudentID int64 `validate:"required,gt=0"`
	Score     float64
}

// AssessmentRow is an instance joined with its class name.
type AssessmentRow struct {
	store.Assessment
	ClassName string
}

// AddAssessment creates an assessment instance for a class.
func (svc *Service) AddAssessment(ctx context.Context, in AssessmentInput) (int64, error) {
	if err := svc.check("assessment", in); err != nil {
		return 0, err
	}
	if _, err := svc.GetClass(ctx, in.ClassID); err != nil {
		return 0, err
	}

	c := svc.store.Collection(store.AssessmentsMeta)
	name, typ, syllabusID := strings.TrimSpace(in.Name), in.Type, in.SyllabusID
	if in.TemplateID != 0 {
		tpl, err := svc.fetchAssessment(ctx, c, in.TemplateID)
		if err != nil {
			return 0, err
		}
		if !tpl.IsTemplate() {
			return 0, fmt.Errorf("assessment %d is not a template", in.TemplateID)
		}
		if name == "" {
			name = tpl.Name
		}
		if typ == "" {
			typ = tpl.Type
		}
		syllabusID = tpl.SyllabusID
	}
	if name == "" {
		return 0, fmt.Errorf("invalid assessment: Name is required")
	}

	id, err := store.Insert(ctx, c, store.NewInstance(in.ClassID, syllabusID, name, in.Subject, typ, in.Date))
	if err != nil {
		return 0, fmt.Errorf("error creating assessment: %w", err)
	}
	return id, nil
}

// ListAssessments returns the assessment instances, newest first. A non-zero
// classID limits the list to one class.
func (svc *Service) ListAssessments(ctx context.Context, classID int64) ([]AssessmentRow, error) {
	var filter store.Filter
	if classID != 0 {
		filter = store.Filter{"classId": classID}
	}
	all, err := store.Find[store.Assessment](ctx, svc.store.Collection(store.AssessmentsMeta), filter)
	if err != nil {
		return nil, err
	}
	classes, err := store.List[store.Class](ctx, svc.store.Collection(store.Classes))
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(classes))
	for _, c := range classes {
		names[c.ID] = c.Name
	}

	var out []AssessmentRow
	for i := len(all) - 1; i >= 0; i-- {
		a := all[i]
		if a.IsTemplate() {
			continue
		}
		name, ok := names[a.ClassID]
		if !ok {
			name = UnknownClassLabel
		}
		out = append(out, AssessmentRow{Assessment: a, ClassName: name})
	}
	return out, nil
}

// DeleteAssessment removes an assessment together with its grades.
func (svc *Service) DeleteAssessment(ctx context.Context, id int64) error {
	err := svc.store.Tx(ctx, func(tx *store.Tx) error {
		if err := tx.Collection(store.AssessmentsMeta).Delete(ctx, id); err != nil {
			return err
		}
		_, err := tx.Collection(store.Grades).DeleteWhere(ctx, store.Filter{"assessmentMetaId": id})
		return err
	})
	if err != nil {
		return fmt.Errorf("error deleting assessment %d: %w", id, err)
	}
	return nil
}

// SaveGrades replaces every grade of an assessment with entries.
func (svc *Service) SaveGrades(ctx context.Context, assessmentID int64, entries []GradeEntry) error {
	for _, e := range entries {
		if err := svc.check("grade", e); err != nil {
			return err
		}
		if err := utils.ValidateScore(e.Score); err != nil {
			return fmt.Errorf("student %d: %w", e.StudentID, err)
		}
	}

	stamp := svc.now().UTC().Format(time.RFC3339)
	err := svc.store.Tx(ctx, func(tx *store.Tx) error {
		a, err := svc.fetchAssessment(ctx, tx.Collection(store.AssessmentsMeta), assessmentID)
		if err != nil {
			return err
		}
		if a.IsTemplate() {
			return fmt.Errorf("assessment %d is a template and takes no grades", assessmentID)
		}
		grades := tx.Collection(store.Grades)
		if _, err := grades.DeleteWhere(ctx, store.Filter{"assessmentMetaId": assessmentID}); err != nil {
			return err
		}
		for _, e := range entries {
			if _, err := store.Insert(ctx, grades, store.Grade{
				StudentID:        e.StudentID,
				AssessmentMetaID: assessmentID,
				Score:            e.Score,
				Date:             stamp,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving grades: %w", err)
	}
	return nil
}

// Grades returns the grades recorded for an assessment.
func (svc *Service) Grades(ctx context.Context, assessmentID int64) ([]store.Grade, error) {
	return store.Find[store.Grade](ctx, svc.store.Collection(store.Grades), store.Filter{"assessmentMetaId": assessmentID})
}
