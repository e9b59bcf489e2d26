package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Insert adds v to c and returns its assigned id.
func Insert[T any](ctx context.Context, c *Collection, v T) (int64, error) {
	return c.Add(ctx, v)
}

// Save upserts v into c.
func Save[T any](ctx context.Context, c *Collection, v T) (int64, error) {
	return c.Put(ctx, v)
}

// Fetch loads the document stored under key into a T.
func Fetch[T any](ctx context.Context, c *Collection, key any) (T, error) {
	var out T
	raw, err := c.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, c.fail("decode", key, fmt.Errorf("%w: %v", ErrInvalidDocument, err))
	}
	return out, nil
}

// List decodes every document of c.
func List[T any](ctx context.Context, c *Collection) ([]T, error) {
	return Find[T](ctx, c, nil)
}

// Find decodes the documents of c matching filter.
func Find[T any](ctx context.Context, c *Collection, filter Filter) ([]T, error) {
	raws, err := c.Where(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, c.fail("decode", nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err))
		}
		out = append(out, v)
	}
	return out, nil
}
