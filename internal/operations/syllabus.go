package operations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"jurnalguru/store"
)

type SyllabusInput struct {
	Topic        string `validate:"required"`
	Subject      string `validate:"required"`
	Level        int    `validate:"gte=1,lte=12"`
	MeetingOrder int    `validate:"gte=1"`
	Objective    string
	Link         string `validate:"omitempty,url"`
}

// SyllabusItem is a syllabus topic with the number of assessment templates
// prepared for it.
type SyllabusItem struct {
	store.Syllabus
	ExerciseCount int `json:"exerciseCount"`
}

func (svc *Service) AddSyllabus(ctx context.Context, in SyllabusInput) (int64, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	if err := svc.check("syllabus", in); err != nil {
		return 0, err
	}
	id, err := store.Insert(ctx, svc.store.Collection(store.SyllabusCollection), store.Syllabus{
		Topic:        in.Topic,
		Subject:      in.Subject,
		Level:        in.Level,
		MeetingOrder: in.MeetingOrder,
		Objective:    in.Objective,
		Link:         in.Link,
	})
	if err != nil {
		return 0, fmt.Errorf("error adding syllabus topic: %w", err)
	}
	return id, nil
}

// UpdateSyllabus replaces the editable fields of a topic.
func (svc *Service) UpdateSyllabus(ctx context.Context, id int64, in SyllabusInput) error {
	if err := svc.check("syllabus", in); err != nil {
		return err
	}
	found, err := svc.store.Collection(store.SyllabusCollection).Update(ctx, id, map[string]any{
		"topic":        strings.TrimSpace(in.Topic),
		"subject":      in.Subject,
		"level":        in.Level,
		"meetingOrder": in.MeetingOrder,
		"objective":    in.Objective,
		"link":         in.Link,
	})
	if err != nil {
		return fmt.Errorf("error updating syllabus topic %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("syllabus topic %d not found", id)
	}
	return nil
}

// DeleteSyllabus removes a topic and its assessment templates. Instances
// already given to classes are kept.
func (svc *Service) DeleteSyllabus(ctx context.Context, id int64) error {
	err := svc.store.Tx(ctx, func(tx *store.Tx) error {
		if err := tx.Collection(store.SyllabusCollection).Delete(ctx, id); err != nil {
			return err
		}
		_, err := tx.Collection(store.AssessmentsMeta).DeleteWhere(ctx, store.Filter{
			"syllabusId": id,
			"classId":    store.TemplateClassID,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("error deleting syllabus topic %d: %w", id, err)
	}
	return nil
}

// SyllabusWithCounts lists the topics of a level and subject in meeting
// order, each with its template count.
func (svc *Service) SyllabusWithCounts(ctx context.Context, level int, subject string) ([]SyllabusItem, error) {
	topics, err := store.Find[store.Syllabus](ctx, svc.store.Collection(store.SyllabusCollection), store.Filter{
		"level":   level,
		"subject": subject,
	})
	if err != nil {
		return nil, err
	}
	templates, err := store.Find[store.Assessment](ctx, svc.store.Collection(store.AssessmentsMeta), store.Filter{
		"classId": store.TemplateClassID,
		"subject": subject,
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int)
	for _, t := range templates {
		counts[t.SyllabusID]++
	}
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].MeetingOrder < topics[j].MeetingOrder
	})
	out := make([]SyllabusItem, len(topics))
	for i, t := range topics {
		out[i] = SyllabusItem{Syllabus: t, ExerciseCount: counts[t.ID]}
	}
	return out, nil
}

type TemplateInput struct {
	SyllabusID  int64  `validate:"required,gt=0"`
	Name        string `validate:"required"`
	Subject     string `validate:"required"`
	Type        string `validate:"required"`
	Description string
	Link        string `validate:"omitempty,url"`
}

// AddTemplate stores a reusable assessment for a syllabus topic.
func (svc *Service) AddTemplate(ctx context.Context, in TemplateInput) (int64, error) {
	if err := svc.check("template", in); err != nil {
		return 0, err
	}
	tpl := store.NewTemplate(in.SyllabusID, strings.TrimSpace(in.Name), in.Subject, in.Type)
	tpl.Description = in.Description
	tpl.Link = in.Link
	tpl.Date = svc.now().UTC().Format(time.RFC3339)

	id, err := store.Insert(ctx, svc.store.Collection(store.AssessmentsMeta), tpl)
	if err != nil {
		return 0, fmt.Errorf("error adding template: %w", err)
	}
	return id, nil
}

// UpdateTemplate replaces the editable fields of a template.
func (svc *Service) UpdateTemplate(ctx context.Context, id int64, in TemplateInput) error {
	if err := svc.check("template", in); err != nil {
		return err
	}
	c := svc.store.Collection(store.AssessmentsMeta)
	tpl, err := svc.fetchAssessment(ctx, c, id)
	if err != nil {
		return err
	}
	if !tpl.IsTemplate() {
		return fmt.Errorf("assessment %d is not a template", id)
	}
	_, err = c.Update(ctx, id, map[string]any{
		"syllabusId":  in.SyllabusID,
		"name":        strings.TrimSpace(in.Name),
		"subject":     in.Subject,
		"type":        in.Type,
		"description": in.Description,
		"link":        in.Link,
	})
	if err != nil {
		return fmt.Errorf("error updating template %d: %w", id, err)
	}
	return nil
}

func (svc *Service) DeleteTemplate(ctx context.Context, id int64) error {
	c := svc.store.Collection(store.AssessmentsMeta)
	tpl, err := svc.fetchAssessment(ctx, c, id)
	if err != nil {
		return err
	}
	if !tpl.IsTemplate() {
		return fmt.Errorf("assessment %d is not a template", id)
	}
	return c.Delete(ctx, id)
}

// TemplatesBySyllabus returns the templates prepared for a topic.
func (svc *Service) TemplatesBySyllabus(ctx context.Context, syllabusID int64) ([]store.Assessment, error) {
	return store.Find[store.Assessment](ctx, svc.store.Collection(store.AssessmentsMeta), store.Filter{
		"classId":    store.TemplateClassID,
		"syllabusId": syllabusID,
	})
}

func (svc *Service) fetchAssessment(ctx context.Context, c *store.Collection, id int64) (store.Assessment, error) {
	a, err := store.Fetch[store.Assessment](ctx, c, id)
	if errors.Is(err, store.ErrNotFound) {
		return a, fmt.Errorf("assessment %d not found", id)
	}
	return a, err
}
