package operations

import (
	"context"
	"testing"

	"jurnalguru/store"
)

func TestSaveAttendanceReplacesSession(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	classID := mustAddClass(t, svc, "7A")
	ids := mustAddStudents(t, svc, classID, "Ani", "Budi")

	first, err := svc.SaveAttendance(ctx, JournalInput{Date: "2026-03-10", ClassID: classID, CustomTopic: "Pecahan"},
		[]AttendanceEntry{
			{StudentID: ids[0], Status: store.StatusPresent},
			{StudentID: ids[1], Status: store.StatusSick},
		})
	if err != nil {
		t.Fatalf("SaveAttendance failed: %v", err)
	}

	second, err := svc.SaveAttendance(ctx, JournalInput{Date: "2026-03-10", ClassID: classID, CustomTopic: "Pecahan lanjutan"},
		[]AttendanceEntry{{StudentID: ids[0], Status: store.StatusAbsent}})
	if err != nil {
		t.Fatalf("SaveAttendance failed: %v", err)
	}
	if second != first {
		t.Errorf("Saving the same class and date should reuse journal %d, got %d", first, second)
	}

	records, err := svc.ExistingAttendance(ctx, classID, "2026-03-10")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Status != store.StatusAbsent {
		t.Errorf("Expected only the new record, got %+v", records)
	}

	n, _ := svc.store.Collection(store.Journals).Count(ctx)
	if n != 1 {
		t.Errorf("Expected 1 journal, got %d", n)
	}
	j, _ := store.Fetch[store.Journal](ctx, svc.store.Collection(store.Journals), first)
	if j.CustomTopic == nil || *j.CustomTopic != "Pecahan lanjutan" {
		t.Errorf("Journal topic was not updated: %+v", j)
	}
}

func TestSaveAttendanceValidation(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	classID := mustAddClass(t, svc, "7A")
	id := mustAddStudents(t, svc, classID, "Ani")[0]

	tests := []struct {
		name    string
		journal JournalInput
		entries []AttendanceEntry
	}{
		{"bad date", JournalInput{Date: "10/03/2026", ClassID: classID}, nil},
		{"missing class id", JournalInput{Date: "2026-03-10"}, nil},
		{"unknown class", JournalInput{Date: "2026-03-10", ClassID: 99}, []AttendanceEntry{{StudentID: id, Status: store.StatusPresent}}},
		{"bad status", JournalInput{Date: "2026-03-10", ClassID: classID}, []AttendanceEntry{{StudentID: id, Status: 9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SaveAttendance(ctx, tt.journal, tt.entries); err == nil {
				t.Error("Expected an error")
			}
		})
	}

	for _, name := range []string{store.Journals, store.AttendanceCollection} {
		if n, _ := svc.store.Collection(name).Count(ctx); n != 0 {
			t.Errorf("%s should be empty after rejected saves, has %d", name, n)
		}
	}
}

func TestDeleteAttendanceLog(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	classID := mustAddClass(t, svc, "7A")
	id := mustAddStudents(t, svc, classID, "Ani")[0]
	entries := []AttendanceEntry{{StudentID: id, Status: store.StatusPresent}}

	drop, err := svc.SaveAttendance(ctx, JournalInput{Date: "2026-03-10", ClassID: classID}, entries)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveAttendance(ctx, JournalInput{Date: "2026-03-11", ClassID: classID}, entries); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteAttendanceLog(ctx, drop); err != nil {
		t.Fatalf("DeleteAttendanceLog failed: %v", err)
	}
	if left, _ := svc.ExistingAttendance(ctx, classID, "2026-03-10"); len(left) != 0 {
		t.Errorf("Attendance of the deleted journal should be gone, got %+v", left)
	}
	if kept, _ := svc.ExistingAttendance(ctx, classID, "2026-03-11"); len(kept) != 1 {
		t.Errorf("Other sessions must be kept, got %+v", kept)
	}
	if err := svc.DeleteAttendanceLog(ctx, drop); err == nil {
		t.Error("Deleting a missing journal should fail")
	}
}

func TestHistoryLog(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	classID := mustAddClass(t, svc, "7A")
	id := mustAddStudents(t, svc, classID, "Ani")[0]
	topicID, err := svc.AddSyllabus(ctx, SyllabusInput{Topic: "Bilangan Bulat", Subject: "Matematika", Level: 7, MeetingOrder: 1})
	if err != nil {
		t.Fatal(err)
	}
	deletedTopic := int64(999)
	entries := []AttendanceEntry{{StudentID: id, Status: store.StatusTruant}}

	sessions := []JournalInput{
		{Date: "2026-03-09", ClassID: classID, SyllabusID: &topicID},
		{Date: "2026-03-10", ClassID: classID, CustomTopic: "Remedial"},
		{Date: "2026-03-11", ClassID: classID, SyllabusID: &deletedTopic},
	}
	for _, j := range sessions {
		if _, err := svc.SaveAttendance(ctx, j, entries); err != nil {
			t.Fatalf("SaveAttendance failed: %v", err)
		}
	}
	// a journal whose class was removed
	if _, err := store.Insert(ctx, svc.store.Collection(store.Journals), store.Journal{Date: "2026-03-12", ClassID: 404}); err != nil {
		t.Fatal(err)
	}

	log, err := svc.HistoryLog(ctx, 0)
	if err != nil {
		t.Fatalf("HistoryLog failed: %v", err)
	}
	want := []struct{ date, class, topic string }{
		{"2026-03-12", UnknownClassLabel, MissingTopicLabel},
		{"2026-03-11", "7A", MissingTopicLabel},
		{"2026-03-10", "7A", "(Manual) Remedial"},
		{"2026-03-09", "7A", "1 - Bilangan Bulat"},
	}
	if len(log) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(log))
	}
	for i, w := range want {
		if log[i].Date != w.date || log[i].ClassName != w.class || log[i].TopicName != w.topic {
			t.Errorf("entry %d = %s/%s/%s, want %s/%s/%s", i, log[i].Date, log[i].ClassName, log[i].TopicName, w.date, w.class, w.topic)
		}
	}
	if log[3].Counts[store.StatusTruant] != 1 {
		t.Errorf("Expected one truant in the first session, got %v", log[3].Counts)
	}

	only, err := svc.HistoryLog(ctx, classID)
	if err != nil {
		t.Fatal(err)
	}
	if len(only) != 3 {
		t.Errorf("Class filter should return 3 entries, got %d", len(only))
	}
}

func TestParseAttendanceLine(t *testing.T) {
	entries, err := ParseAttendanceLine([]string{"1=p", "2=Sick", "3=5"})
	if err != nil {
		t.Fatalf("ParseAttendanceLine failed: %v", err)
	}
	want := []store.AttendanceStatus{store.StatusPresent, store.StatusSick, store.StatusTruant}
	for i, e := range entries {
		if e.StudentID != int64(i+1) || e.Status != want[i] {
			t.Errorf("entry %d = %+v", i, e)
		}
	}

	for _, bad := range []string{"1", "x=p", "0=p", "1=late"} {
		if _, err := ParseAttendanceLine([]string{bad}); err == nil {
			t.Errorf("%q should be rejected", bad)
		}
	}
}
