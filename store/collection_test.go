package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestAddAndFetch(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	id, err := Insert(ctx, s.Collection(Students), Student{Name: "Ani", NIS: "1001", Gender: "P", ClassID: 3})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id == 0 {
		t.Fatal("Expected a non-zero auto-increment id")
	}

	got, err := Fetch[Student](ctx, s.Collection(Students), id)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	want := Student{ID: id, Name: "Ani", NIS: "1001", Gender: "P", ClassID: 3}
	if got != want {
		t.Errorf("Fetch = %+v, want %+v", got, want)
	}
}

func TestAddWithExplicitID(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	classes := s.Collection(Classes)

	id, err := classes.Add(ctx, json.RawMessage(`{"id":42,"name":"9C"}`))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if id != 42 {
		t.Errorf("Expected id 42, got %d", id)
	}

	if _, err := classes.Add(ctx, json.RawMessage(`{"id":42,"name":"dup"}`)); err == nil {
		t.Error("Adding a duplicate id should fail")
	}

	next, err := classes.Add(ctx, Class{Name: "9D"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if next <= 42 {
		t.Errorf("Auto-increment should continue after explicit id, got %d", next)
	}
}

func TestExplicitIDKeepsPrecision(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	classes := s.Collection(Classes)

	id, err := classes.Add(ctx, json.RawMessage(`{"id":9007199254740993,"name":"9E"}`))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if id != 9007199254740993 {
		t.Errorf("Expected id 9007199254740993, got %d", id)
	}
	got, err := Fetch[Class](ctx, classes, id)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got.Name != "9E" {
		t.Errorf("Fetched %+v", got)
	}

	if id, err := classes.Add(ctx, json.RawMessage(`{"id":7.0,"name":"9F"}`)); err != nil || id != 7 {
		t.Errorf("Add with id 7.0 = %d, %v", id, err)
	}
}

func TestGetMissing(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.Collection(Classes).Get(context.Background(), int64(999))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Expected *StoreError, got %T", err)
	}
	if storeErr.Collection != Classes {
		t.Errorf("Expected collection %s, got %s", Classes, storeErr.Collection)
	}
}

func TestPutReplaces(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	classes := s.Collection(Classes)

	id, err := Insert(ctx, classes, Class{Name: "7A", CreatedAt: "2026-01-01"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if _, err := Save(ctx, classes, Class{ID: id, Name: "7A Unggulan"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Fetch[Class](ctx, classes, id)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got.Name != "7A Unggulan" {
		t.Errorf("Expected replaced name, got %q", got.Name)
	}
	if got.CreatedAt != "" {
		t.Errorf("Put should replace the whole document, createdAt = %q", got.CreatedAt)
	}

	n, _ := classes.Count(ctx)
	if n != 1 {
		t.Errorf("Expected 1 class after put, got %d", n)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	interventions := s.Collection(Interventions)

	id, err := Insert(ctx, interventions, Intervention{StudentID: 1, StartDate: "2026-02-01", Status: InterventionOpen, ActionPlan: "home visit"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	found, err := interventions.Update(ctx, id, map[string]any{"status": InterventionResolved, "resultNotes": "improved"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !found {
		t.Fatal("Update should report the record existed")
	}

	got, err := Fetch[Intervention](ctx, interventions, id)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got.Status != InterventionResolved || got.ResultNotes != "improved" {
		t.Errorf("Update not applied: %+v", got)
	}
	if got.ActionPlan != "home visit" {
		t.Errorf("Update should keep untouched fields, actionPlan = %q", got.ActionPlan)
	}

	found, err = interventions.Update(ctx, int64(999), map[string]any{"status": "X"})
	if err != nil {
		t.Fatalf("Update of missing record failed: %v", err)
	}
	if found {
		t.Error("Update of a missing record should report false")
	}
}

func TestWhereAndDeleteWhere(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	attendance := s.Collection(AttendanceCollection)

	records := []Attendance{
		{Date: "2026-03-02", ClassID: 1, StudentID: 10, Status: StatusPresent},
		{Date: "2026-03-02", ClassID: 1, StudentID: 11, Status: StatusSick},
		{Date: "2026-03-02", ClassID: 2, StudentID: 20, Status: StatusPresent},
		{Date: "2026-03-03", ClassID: 1, StudentID: 10, Status: StatusAbsent},
	}
	for _, r := range records {
		if _, err := Insert(ctx, attendance, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := Find[Attendance](ctx, attendance, Filter{"classId": 1, "date": "2026-03-02"})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(got))
	}

	n, err := attendance.CountWhere(ctx, Filter{"studentId": 10})
	if err != nil {
		t.Fatalf("CountWhere failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 records for student 10, got %d", n)
	}

	removed, err := attendance.DeleteWhere(ctx, Filter{"classId": 1, "date": "2026-03-02"})
	if err != nil {
		t.Fatalf("DeleteWhere failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}

	total, _ := attendance.Count(ctx)
	if total != 2 {
		t.Errorf("Expected 2 remaining, got %d", total)
	}
}

func TestWhereBoolean(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	settings := s.Collection(Settings)

	if _, err := Save(ctx, settings, Setting{Key: "autoBackup", Value: true}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Find[Setting](ctx, settings, Filter{"value": true})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(got) != 1 || got[0].Key != "autoBackup" {
		t.Errorf("Expected autoBackup match, got %+v", got)
	}
}

func TestClearFiresOnce(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		if _, err := Insert(ctx, s.Collection(Classes), Class{Name: name}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	var ops []Op
	s.AttachSyncHooks(func(_ string, op Op) { ops = append(ops, op) })

	if err := s.Collection(Classes).Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if len(ops) != 1 || ops[0] != OpDelete {
		t.Errorf("Expected a single delete notification, got %v", ops)
	}
}

func TestPutReportsCreateOrUpdate(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	var ops []Op
	s.AttachSyncHooks(func(_ string, op Op) { ops = append(ops, op) })

	settings := s.Collection(Settings)
	if _, err := Save(ctx, settings, Setting{Key: "theme", Value: "dark"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := Save(ctx, settings, Setting{Key: "theme", Value: "light"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if len(ops) != 2 || ops[0] != OpCreate || ops[1] != OpUpdate {
		t.Errorf("Expected [create update], got %v", ops)
	}
}

func TestBulkAddIsAtomic(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	docs := []json.RawMessage{
		json.RawMessage(`{"id":1,"name":"7A"}`),
		json.RawMessage(`{"id":2,"name":"7B"}`),
		json.RawMessage(`{"id":1,"name":"duplicate"}`),
	}
	if err := s.Collection(Classes).BulkAdd(ctx, docs); err == nil {
		t.Fatal("Expected BulkAdd to fail on duplicate id")
	}

	n, _ := s.Collection(Classes).Count(ctx)
	if n != 0 {
		t.Errorf("Failed BulkAdd should leave no records, got %d", n)
	}
}

func TestBulkPutOverwrites(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	classes := s.Collection(Classes)

	if _, err := classes.Add(ctx, json.RawMessage(`{"id":1,"name":"old"}`)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	err := classes.BulkPut(ctx, []json.RawMessage{
		json.RawMessage(`{"id":1,"name":"new"}`),
		json.RawMessage(`{"id":2,"name":"7B"}`),
	})
	if err != nil {
		t.Fatalf("BulkPut failed: %v", err)
	}

	got, err := Fetch[Class](ctx, classes, int64(1))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got.Name != "new" {
		t.Errorf("Expected overwritten name, got %q", got.Name)
	}
	n, _ := classes.Count(ctx)
	if n != 2 {
		t.Errorf("Expected 2 classes, got %d", n)
	}
}

func TestAllPreservesUnknownFields(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	raw := json.RawMessage(`{"id":7,"topic":"Pecahan","subject":"MTK","level":7,"meetingOrder":3,"extra":{"a":[1,2]}}`)
	if _, err := s.Collection(SyllabusCollection).Add(ctx, raw); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	all, err := s.Collection(SyllabusCollection).All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(all))
	}

	var doc map[string]any
	if err := json.Unmarshal(all[0], &doc); err != nil {
		t.Fatalf("Stored document is not valid JSON: %v", err)
	}
	if doc["id"] != float64(7) {
		t.Errorf("Expected id 7 spliced back, got %v", doc["id"])
	}
	if _, ok := doc["extra"]; !ok {
		t.Error("Unknown fields should round-trip")
	}
}

func TestInvalidDocuments(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name       string
		collection string
		doc        any
	}{
		{"array", Classes, json.RawMessage(`[1,2]`)},
		{"string id", Classes, json.RawMessage(`{"id":"abc","name":"x"}`)},
		{"fractional id", Classes, json.RawMessage(`{"id":1.5,"name":"x"}`)},
		{"id beyond int64", Classes, json.RawMessage(`{"id":9223372036854775808,"name":"x"}`)},
		{"setting without key", Settings, json.RawMessage(`{"value":1}`)},
		{"numeric setting key", Settings, json.RawMessage(`{"key":3,"value":1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Collection(tt.collection).Add(ctx, tt.doc)
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Expected ErrInvalidDocument, got %v", err)
			}
		})
	}
}

func TestUnknownCollection(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.Collection("homework").All(context.Background())
	if !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("Expected ErrUnknownCollection, got %v", err)
	}
}
