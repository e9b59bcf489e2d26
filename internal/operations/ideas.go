package operations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jurnalguru/store"
)

type IdeaInput struct {
	Title           string `validate:"required"`
	Content         string
	Tags            []string
	LinkedJournalID *int64
}

// SplitTags turns "a, b,,c" into [a b c].
func SplitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (svc *Service) AddIdea(ctx context.Context, in IdeaInput) (int64, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := svc.check("idea", in); err != nil {
		return 0, err
	}
	now := svc.now().UTC().Format(time.RFC3339)
	id, err := store.Insert(ctx, svc.store.Collection(store.Ideas), store.Idea{
		Title:           in.Title,
		Content:         in.Content,
		Type:            "text",
		Tags:            in.Tags,
		LinkedJournalID: in.LinkedJournalID,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return 0, fmt.Errorf("error saving idea: %w", err)
	}
	return id, nil
}

// ArchiveIdea hides an idea from the default list.
func (svc *Service) ArchiveIdea(ctx context.Context, id int64) error {
	found, err := svc.store.Collection(store.Ideas).Update(ctx, id, map[string]any{
		"isArchived": 1,
		"updatedAt":  svc.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("error archiving idea %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("idea %d not found", id)
	}
	return nil
}

// ListIdeas returns ideas newest first, skipping archived ones unless asked.
func (svc *Service) ListIdeas(ctx context.Context, includeArchived bool) ([]store.Idea, error) {
	var filter store.Filter
	if !includeArchived {
		filter = store.Filter{"isArchived": 0}
	}
	ideas, err := store.Find[store.Idea](ctx, svc.store.Collection(store.Ideas), filter)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(ideas)-1; i < j; i, j = i+1, j-1 {
		ideas[i], ideas[j] = ideas[j], ideas[i]
	}
	return ideas, nil
}
