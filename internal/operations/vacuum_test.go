package operations

import (
	"context"
	"testing"

	"jurnalguru/backup"
	"jurnalguru/store"
)

func TestVacuumRemovesOrphans(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	classID := mustAddClass(t, svc, "7A")
	ids := mustAddStudents(t, svc, classID, "Ani", "Budi")
	keep, gone := ids[0], ids[1]

	recordsFor := func(studentID int64) []AttendanceEntry {
		return []AttendanceEntry{{StudentID: keep, Status: store.StatusPresent}, {StudentID: studentID, Status: store.StatusAbsent}}
	}
	if _, err := svc.SaveAttendance(ctx, JournalInput{Date: "2026-03-10", ClassID: classID}, recordsFor(gone)); err != nil {
		t.Fatal(err)
	}
	aID, _ := svc.AddAssessment(ctx, AssessmentInput{ClassID: classID, Name: "Kuis", Subject: "Matematika", Date: "2026-03-10"})
	if err := svc.SaveGrades(ctx, aID, []GradeEntry{{StudentID: keep, Score: 90}, {StudentID: gone, Score: 60}}); err != nil {
		t.Fatal(err)
	}
	// a grade pointing at an assessment that no longer exists
	store.Insert(ctx, svc.store.Collection(store.Grades), store.Grade{StudentID: keep, AssessmentMetaID: 999, Score: 10})
	addBehaviors(t, svc, gone, store.BehaviorNegative, "2026-03-10")
	svc.CreateIntervention(ctx, InterventionInput{StudentID: gone, StartDate: "2026-03-10", ProblemSummary: "x"})

	if err := svc.DeleteStudent(ctx, gone); err != nil {
		t.Fatal(err)
	}

	dry, err := svc.Vacuum(ctx, true)
	if err != nil {
		t.Fatalf("Vacuum dry run failed: %v", err)
	}
	if dry.Total() != 5 {
		t.Errorf("Dry run should find 5 orphans, got %v", dry)
	}
	if n, _ := svc.store.Collection(store.Grades).Count(ctx); n != 3 {
		t.Errorf("Dry run must not delete, grades = %d", n)
	}

	report, err := svc.Vacuum(ctx, false)
	if err != nil {
		t.Fatalf("Vacuum failed: %v", err)
	}
	want := VacuumReport{store.AttendanceCollection: 1, store.Grades: 2, store.StudentBehaviors: 1, store.Interventions: 1}
	for name, n := range want {
		if report[name] != n {
			t.Errorf("%s: removed %d, want %d", name, report[name], n)
		}
	}

	grades, _ := svc.Grades(ctx, aID)
	if len(grades) != 1 || grades[0].StudentID != keep {
		t.Errorf("Ani's grade must survive, got %+v", grades)
	}
	if again, _ := svc.Vacuum(ctx, false); again.Total() != 0 {
		t.Errorf("Second vacuum should find nothing, got %v", again)
	}
}

func TestSettingsAndDeviceID(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	if v, err := svc.GetSetting(ctx, "missing"); err != nil || v != nil {
		t.Errorf("GetSetting(missing) = %v, %v", v, err)
	}
	if err := svc.PutSetting(ctx, SettingTeacherName, "Bu Sari"); err != nil {
		t.Fatalf("PutSetting failed: %v", err)
	}
	if v, _ := svc.GetSetting(ctx, SettingTeacherName); v != "Bu Sari" {
		t.Errorf("teacherName = %v", v)
	}
	if err := svc.PutSetting(ctx, "", 1); err == nil {
		t.Error("An empty key should be rejected")
	}

	id, err := svc.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID failed: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("Expected a UUID, got %q", id)
	}
	again, _ := svc.DeviceID(ctx)
	if again != id {
		t.Errorf("DeviceID should be stable, got %q then %q", id, again)
	}
	if v, _ := svc.GetSetting(ctx, backup.DeviceIDSetting); v != id {
		t.Errorf("DeviceID should be stored under %s", backup.DeviceIDSetting)
	}
}
