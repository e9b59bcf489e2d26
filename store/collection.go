package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Filter matches documents whose fields equal every given value.
type Filter map[string]any

// Collection is a handle on one named set of JSON documents. Documents are
// stored without their key; the key lives in its own column and is spliced
// back in on read.
type Collection struct {
	name string
	spec CollectionSpec
	err  error
	q    querier
	fire HookFunc
}

func newCollection(name string, q querier, fire HookFunc) *Collection {
	c := &Collection{name: name, q: q, fire: fire}
	spec, ok := Spec(name)
	if !ok {
		c.err = ErrUnknownCollection
		return c
	}
	c.spec = spec
	return c
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) fail(op string, key any, err error) error {
	return &StoreError{Op: op, Collection: c.name, Key: key, Err: err}
}

func (c *Collection) notify(op Op) {
	if c.fire != nil {
		c.fire(c.name, op)
	}
}

// encode turns v into a key value and the key-less document body.
// A zero or missing id on an auto-increment collection yields a nil key.
func (c *Collection) encode(v any) (any, []byte, error) {
	var raw []byte
	switch d := v.(type) {
	case json.RawMessage:
		raw = d
	case []byte:
		raw = d
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		raw = b
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, nil, fmt.Errorf("%w: document must be a JSON object", ErrInvalidDocument)
	}

	rawKey, hasKey := fields[c.spec.Key]
	delete(fields, c.spec.Key)

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if !hasKey {
		return nil, body, nil
	}
	key, err := c.decodeKey(rawKey)
	if err != nil {
		return nil, nil, err
	}
	return key, body, nil
}

func (c *Collection) decodeKey(raw json.RawMessage) (any, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	if !c.spec.autoIncrement() {
		var key string
		if err := json.Unmarshal(raw, &key); err != nil || key == "" {
			return nil, fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidDocument, c.spec.Key)
		}
		return key, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return nil, fmt.Errorf("%w: id must be a non-negative integer", ErrInvalidDocument)
	}
	id, err := parseID(n)
	if err != nil || id < 0 {
		return nil, fmt.Errorf("%w: id must be a non-negative integer", ErrInvalidDocument)
	}
	if id == 0 {
		return nil, nil
	}
	return id, nil
}

// parseID accepts integral JSON numbers, including forms such as 3.0 or
// 1e3 that other clients write for whole numbers.
func parseID(n json.Number) (int64, error) {
	if id, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return id, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1<<53 {
		return 0, fmt.Errorf("not an integer: %s", n)
	}
	return int64(f), nil
}

// splice re-inserts the key into a stored document body.
func splice(keyField string, key any, body string) (json.RawMessage, error) {
	k, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	var buf bytes.Buffer
	buf.WriteString(`{"`)
	buf.WriteString(keyField)
	buf.WriteString(`":`)
	buf.Write(k)
	if rest := strings.TrimSpace(body[1:]); rest != "}" {
		buf.WriteByte(',')
		buf.WriteString(rest)
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// Add inserts a new document and returns its id. Documents without an id get
// the next auto-increment value; settings return 0.
func (c *Collection) Add(ctx context.Context, doc any) (int64, error) {
	if c.err != nil {
		return 0, c.fail("add", nil, c.err)
	}
	key, body, err := c.encode(doc)
	if err != nil {
		return 0, c.fail("add", nil, err)
	}
	if key == nil && !c.spec.autoIncrement() {
		return 0, c.fail("add", nil, fmt.Errorf("%w: missing %s", ErrInvalidDocument, c.spec.Key))
	}

	c.notify(OpCreate)

	if key == nil {
		res, err := c.q.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (doc) VALUES (?)", c.name), string(body))
		if err != nil {
			return 0, c.fail("add", nil, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, c.fail("add", nil, err)
		}
		return id, nil
	}

	if _, err := c.q.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s, doc) VALUES (?, ?)", c.name, c.spec.Key),
		key, string(body),
	); err != nil {
		return 0, c.fail("add", key, err)
	}
	if id, ok := key.(int64); ok {
		return id, nil
	}
	return 0, nil
}

// Put inserts or replaces the document stored under its key. A document
// without a key behaves like Add.
func (c *Collection) Put(ctx context.Context, doc any) (int64, error) {
	if c.err != nil {
		return 0, c.fail("put", nil, c.err)
	}
	key, body, err := c.encode(doc)
	if err != nil {
		return 0, c.fail("put", nil, err)
	}
	if key == nil {
		return c.Add(ctx, body)
	}

	exists, err := c.exists(ctx, key)
	if err != nil {
		return 0, c.fail("put", key, err)
	}
	if exists {
		c.notify(OpUpdate)
	} else {
		c.notify(OpCreate)
	}

	if _, err := c.q.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s, doc) VALUES (?, ?) ON CONFLICT(%s) DO UPDATE SET doc = excluded.doc",
			c.name, c.spec.Key, c.spec.Key),
		key, string(body),
	); err != nil {
		return 0, c.fail("put", key, err)
	}
	if id, ok := key.(int64); ok {
		return id, nil
	}
	return 0, nil
}

func (c *Collection) exists(ctx context.Context, key any) (bool, error) {
	var one int
	err := c.q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", c.name, c.spec.Key), key,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Update merges changes into the stored document. A nil value removes the
// field. It reports whether a document with that key existed.
func (c *Collection) Update(ctx context.Context, key any, changes map[string]any) (bool, error) {
	if c.err != nil {
		return false, c.fail("update", key, c.err)
	}
	patch := make(map[string]any, len(changes))
	for k, v := range changes {
		if k == c.spec.Key {
			continue
		}
		patch[k] = v
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return false, c.fail("update", key, fmt.Errorf("%w: %v", ErrInvalidDocument, err))
	}

	c.notify(OpUpdate)

	res, err := c.q.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET doc = json_patch(doc, ?) WHERE %s = ?", c.name, c.spec.Key),
		string(body), key,
	)
	if err != nil {
		return false, c.fail("update", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, c.fail("update", key, err)
	}
	return n > 0, nil
}

// Get returns the document stored under key, or ErrNotFound.
func (c *Collection) Get(ctx context.Context, key any) (json.RawMessage, error) {
	if c.err != nil {
		return nil, c.fail("get", key, c.err)
	}
	var body string
	err := c.q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT doc FROM %s WHERE %s = ?", c.name, c.spec.Key), key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, c.fail("get", key, ErrNotFound)
	}
	if err != nil {
		return nil, c.fail("get", key, err)
	}
	return splice(c.spec.Key, key, body)
}

// Delete removes the document stored under key. Deleting a missing key is
// not an error.
func (c *Collection) Delete(ctx context.Context, key any) error {
	if c.err != nil {
		return c.fail("delete", key, c.err)
	}
	c.notify(OpDelete)
	if _, err := c.q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", c.name, c.spec.Key), key,
	); err != nil {
		return c.fail("delete", key, err)
	}
	return nil
}

// All returns every document ordered by key.
func (c *Collection) All(ctx context.Context) ([]json.RawMessage, error) {
	return c.Where(ctx, nil)
}

// Where returns the documents matching every field of filter, ordered by key.
func (c *Collection) Where(ctx context.Context, filter Filter) ([]json.RawMessage, error) {
	if c.err != nil {
		return nil, c.fail("query", nil, c.err)
	}
	where, args := c.whereClause(filter)
	rows, err := c.q.QueryContext(ctx,
		fmt.Sprintf("SELECT %s, doc FROM %s%s ORDER BY %s", c.spec.Key, c.name, where, c.spec.Key),
		args...,
	)
	if err != nil {
		return nil, c.fail("query", nil, err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var body string
		var key any
		if c.spec.autoIncrement() {
			var id int64
			if err := rows.Scan(&id, &body); err != nil {
				return nil, c.fail("query", nil, err)
			}
			key = id
		} else {
			var k string
			if err := rows.Scan(&k, &body); err != nil {
				return nil, c.fail("query", nil, err)
			}
			key = k
		}
		doc, err := splice(c.spec.Key, key, body)
		if err != nil {
			return nil, c.fail("query", key, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, c.fail("query", nil, err)
	}
	return docs, nil
}

func (c *Collection) whereClause(filter Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	fields := make([]string, 0, len(filter))
	for f := range filter {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	conds := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		v := filter[f]
		if b, ok := v.(bool); ok {
			// json_extract yields 1/0 for JSON booleans
			if b {
				v = 1
			} else {
				v = 0
			}
		}
		if f == c.spec.Key {
			conds = append(conds, c.spec.Key+" = ?")
		} else {
			conds = append(conds, fmt.Sprintf("json_extract(doc, '$.%s') = ?", f))
		}
		args = append(args, v)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Count returns the number of documents in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	return c.CountWhere(ctx, nil)
}

// CountWhere returns the number of documents matching filter.
func (c *Collection) CountWhere(ctx context.Context, filter Filter) (int, error) {
	if c.err != nil {
		return 0, c.fail("count", nil, c.err)
	}
	where, args := c.whereClause(filter)
	var n int
	if err := c.q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s%s", c.name, where), args...,
	).Scan(&n); err != nil {
		return 0, c.fail("count", nil, err)
	}
	return n, nil
}

// Clear removes every document. Hooks observe it as a single delete.
func (c *Collection) Clear(ctx context.Context) error {
	_, err := c.DeleteWhere(ctx, nil)
	return err
}

// DeleteWhere removes the documents matching filter and returns how many
// were removed.
func (c *Collection) DeleteWhere(ctx context.Context, filter Filter) (int64, error) {
	if c.err != nil {
		return 0, c.fail("delete", nil, c.err)
	}
	c.notify(OpDelete)
	where, args := c.whereClause(filter)
	res, err := c.q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", c.name, where), args...)
	if err != nil {
		return 0, c.fail("delete", nil, err)
	}
	return res.RowsAffected()
}

// BulkAdd inserts every document. Outside a transaction the batch is atomic.
func (c *Collection) BulkAdd(ctx context.Context, docs []json.RawMessage) error {
	return c.bulk(ctx, docs, (*Collection).Add)
}

// BulkPut upserts every document. Outside a transaction the batch is atomic.
func (c *Collection) BulkPut(ctx context.Context, docs []json.RawMessage) error {
	return c.bulk(ctx, docs, (*Collection).Put)
}

func (c *Collection) bulk(ctx context.Context, docs []json.RawMessage, write func(*Collection, context.Context, any) (int64, error)) error {
	if c.err != nil {
		return c.fail("bulk", nil, c.err)
	}

	target := c
	db, standalone := c.q.(*sql.DB)
	var tx *sql.Tx
	if standalone {
		var err error
		tx, err = db.BeginTx(ctx, nil)
		if err != nil {
			return c.fail("bulk", nil, err)
		}
		defer tx.Rollback()
		target = &Collection{name: c.name, spec: c.spec, q: tx, fire: c.fire}
	}

	for _, doc := range docs {
		if _, err := write(target, ctx, doc); err != nil {
			return err
		}
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return c.fail("bulk", nil, err)
		}
	}
	return nil
}
