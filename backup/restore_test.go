package backup

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"jurnalguru/store"
)

// setupTestStore opens a store in a temporary directory
func setupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "jurnal.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return s, func() { s.Close() }
}

// seedClassWithStudent writes class 7A with student Budi and one attendance
// record for him.
func seedClassWithStudent(t *testing.T, s *store.Store) (classID, studentID int64) {
	t.Helper()
	ctx := context.Background()

	classID, err := store.Insert(ctx, s.Collection(store.Classes), store.Class{Name: "7A"})
	if err != nil {
		t.Fatalf("Failed to add class: %v", err)
	}
	studentID, err = store.Insert(ctx, s.Collection(store.Students), store.Student{Name: "Budi", ClassID: classID})
	if err != nil {
		t.Fatalf("Failed to add student: %v", err)
	}
	_, err = store.Insert(ctx, s.Collection(store.AttendanceCollection), store.Attendance{
		Date: "2026-02-02", ClassID: classID, StudentID: studentID, Status: store.StatusPresent,
	})
	if err != nil {
		t.Fatalf("Failed to add attendance: %v", err)
	}
	return classID, studentID
}

// snapshot reads every collection except settings.
func snapshot(t *testing.T, s *store.Store) map[string][]string {
	t.Helper()
	out := make(map[string][]string)
	for _, name := range store.Collections() {
		if name == store.Settings {
			continue
		}
		rows, err := s.Collection(name).All(context.Background())
		if err != nil {
			t.Fatalf("Failed to read %s: %v", name, err)
		}
		for _, r := range rows {
			out[name] = append(out[name], string(r))
		}
	}
	return out
}

func TestExportRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, cleanupSrc := setupTestStore(t)
	defer cleanupSrc()
	seedClassWithStudent(t, src)

	env, _, err := Export(ctx, src, ExportOptions{DeviceID: "laptop"})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	parsed, err := ParseEnvelope(data)
	if err != nil {
		t.Fatalf("ParseEnvelope failed: %v", err)
	}

	dst, cleanupDst := setupTestStore(t)
	defer cleanupDst()
	if _, err := store.Insert(ctx, dst.Collection(store.Classes), store.Class{Name: "9C"}); err != nil {
		t.Fatalf("Failed to add class: %v", err)
	}

	if err := Restore(ctx, dst, parsed, Replace); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if got, want := snapshot(t, dst), snapshot(t, src); !reflect.DeepEqual(got, want) {
		t.Errorf("Restored store differs:\n got  %v\n want %v", got, want)
	}

	students, err := store.List[store.Student](ctx, dst.Collection(store.Students))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(students) != 1 || students[0].Name != "Budi" {
		t.Errorf("Expected student Budi, got %+v", students)
	}
}

func TestRestoreKeepsDeviceID(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	settings := s.Collection(store.Settings)
	if _, err := store.Save(ctx, settings, store.Setting{Key: DeviceIDSetting, Value: "this-device"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	env := &Envelope{
		Version:      FormatVersion,
		LastModified: "2026-02-01T10:00:00Z",
		Tables: map[string][]json.RawMessage{
			store.Settings: {
				json.RawMessage(`{"key":"deviceId","value":"other-device"}`),
				json.RawMessage(`{"key":"teacherName","value":"Bu Sari"}`),
			},
		},
	}
	if err := Restore(ctx, s, env, Replace, DeviceIDSetting); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	device, err := store.Fetch[store.Setting](ctx, settings, DeviceIDSetting)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if device.Value != "this-device" {
		t.Errorf("Expected device id to survive restore, got %v", device.Value)
	}
	teacher, err := store.Fetch[store.Setting](ctx, settings, "teacherName")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if teacher.Value != "Bu Sari" {
		t.Errorf("Expected restored teacher name, got %v", teacher.Value)
	}
}

func TestMergeRestore(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	classes := s.Collection(store.Classes)
	for _, c := range []store.Class{{ID: 1, Name: "7A"}, {ID: 2, Name: "7B"}} {
		if _, err := store.Save(ctx, classes, c); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	env := &Envelope{
		Version:      FormatVersion,
		LastModified: "2026-02-01T10:00:00Z",
		Tables: map[string][]json.RawMessage{
			store.Classes: {
				json.RawMessage(`{"id":2,"name":"7B Unggulan"}`),
				json.RawMessage(`{"id":3,"name":"8A"}`),
			},
		},
	}
	if err := Restore(ctx, s, env, Merge); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	got, err := store.List[store.Class](ctx, classes)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []store.Class{{ID: 1, Name: "7A"}, {ID: 2, Name: "7B Unggulan"}, {ID: 3, Name: "8A"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge result = %+v, want %+v", got, want)
	}
}

func TestRestoreRejectsInvalidFileWithoutChanges(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()
	seedClassWithStudent(t, s)
	before := snapshot(t, s)

	_, err := ParseEnvelope([]byte(`{"foo":1}`))
	if !errors.Is(err, ErrInvalidBackupFormat) {
		t.Fatalf("Expected ErrInvalidBackupFormat, got %v", err)
	}
	if err := Restore(ctx, s, &Envelope{Version: 1}, Replace); !errors.Is(err, ErrInvalidBackupFormat) {
		t.Errorf("Restore without tables should fail with ErrInvalidBackupFormat, got %v", err)
	}

	if after := snapshot(t, s); !reflect.DeepEqual(before, after) {
		t.Errorf("Store changed after rejected restore:\n before %v\n after  %v", before, after)
	}
}

// Journals imported from a spreadsheet store NIS as a JSON number.
func TestRestoreNumericNIS(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()

	env, err := ParseEnvelope([]byte(`{"version":2,"timestamp":"2025-08-01T10:00:00Z",
		"classes":[{"id":1,"name":"7A"}],
		"students":[{"id":1,"name":"Budi","nis":12345,"classId":1},{"id":2,"name":"Ani","nis":"0456","classId":1}]}`))
	if err != nil {
		t.Fatalf("ParseEnvelope failed: %v", err)
	}
	if err := Restore(ctx, s, env, Replace); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	students, err := store.Find[store.Student](ctx, s.Collection(store.Students), store.Filter{"classId": 1})
	if err != nil {
		t.Fatalf("Reading restored students failed: %v", err)
	}
	got := make(map[string]store.FlexString)
	for _, st := range students {
		got[st.Name] = st.NIS
	}
	if got["Budi"] != "12345" || got["Ani"] != "0456" {
		t.Errorf("Restored NIS = %v", got)
	}
}

func TestRestoreIsAtomic(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStore(t)
	defer cleanup()
	seedClassWithStudent(t, s)
	before := snapshot(t, s)

	// The second student record is not an object the store accepts, so the
	// whole restore must roll back, including the cleared collections.
	env := &Envelope{
		Version:      FormatVersion,
		LastModified: "2026-02-01T10:00:00Z",
		Tables: map[string][]json.RawMessage{
			store.Classes:  {json.RawMessage(`{"id":9,"name":"9Z"}`)},
			store.Students: {json.RawMessage(`{"id":1,"name":"Ani","classId":9}`), json.RawMessage(`"oops"`)},
		},
	}
	if err := Restore(ctx, s, env, Replace); err == nil {
		t.Fatal("Expected restore to fail")
	}

	if after := snapshot(t, s); !reflect.DeepEqual(before, after) {
		t.Errorf("Failed restore left partial state:\n before %v\n after  %v", before, after)
	}
}

func TestRestoreModeString(t *testing.T) {
	if Replace.String() != "replace" || Merge.String() != "merge" {
		t.Errorf("Unexpected mode names %q %q", Replace, Merge)
	}
}
