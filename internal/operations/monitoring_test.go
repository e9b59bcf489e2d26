package operations

import (
	"context"
	"testing"

	"jurnalguru/store"
)

func addBehaviors(t *testing.T, svc *Service, studentID int64, typ store.BehaviorType, dates ...string) {
	t.Helper()
	for _, d := range dates {
		if _, err := svc.AddBehaviorLog(context.Background(), BehaviorInput{StudentID: studentID, Date: d, Type: typ, Category: "Disiplin"}); err != nil {
			t.Fatalf("AddBehaviorLog failed: %v", err)
		}
	}
}

func recordStatus(t *testing.T, svc *Service, classID, studentID int64, status store.AttendanceStatus, dates ...string) {
	t.Helper()
	for _, d := range dates {
		if _, err := svc.SaveAttendance(context.Background(), JournalInput{Date: d, ClassID: classID},
			[]AttendanceEntry{{StudentID: studentID, Status: status}}); err != nil {
			t.Fatalf("SaveAttendance failed: %v", err)
		}
	}
}

func TestAnalyzeRisk(t *testing.T) {
	// the service clock reads 2026-03-15
	tests := []struct {
		name      string
		negatives []string
		positives []string
		absences  []string
		want      RiskLevel
		factors   int
	}{
		{"clean record", nil, []string{"2026-03-10"}, nil, RiskGreen, 0},
		{"one recent negative", []string{"2026-03-01"}, nil, nil, RiskYellow, 1},
		{"old negatives ignored", []string{"2026-01-01", "2026-01-02", "2026-01-03"}, nil, nil, RiskGreen, 0},
		{"three recent negatives", []string{"2026-02-20", "2026-03-01", "2026-03-14"}, nil, nil, RiskRed, 1},
		{"frequent absence", nil, nil, []string{"2026-03-02", "2026-03-03", "2026-03-04"}, RiskRed, 1},
		{"yellow escalated by absence", []string{"2026-03-01"}, nil, []string{"2026-03-02", "2026-03-03", "2026-03-04"}, RiskRed, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, cleanup := setupTestService(t)
			defer cleanup()

			classID := mustAddClass(t, svc, "7A")
			id := mustAddStudents(t, svc, classID, "Ani")[0]
			addBehaviors(t, svc, id, store.BehaviorNegative, tt.negatives...)
			addBehaviors(t, svc, id, store.BehaviorPositive, tt.positives...)
			recordStatus(t, svc, classID, id, store.StatusAbsent, tt.absences...)

			report, err := svc.AnalyzeRisk(context.Background(), id)
			if err != nil {
				t.Fatalf("AnalyzeRisk failed: %v", err)
			}
			if report.Level != tt.want {
				t.Errorf("Level = %s, want %s (factors %v)", report.Level, tt.want, report.Factors)
			}
			if len(report.Factors) != tt.factors {
				t.Errorf("Expected %d factors, got %v", tt.factors, report.Factors)
			}
			if report.HasActiveIntervention {
				t.Error("No intervention was opened")
			}
		})
	}
}

func TestAttendanceStats(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	classID := mustAddClass(t, svc, "7A")
	id := mustAddStudents(t, svc, classID, "Ani")[0]
	recordStatus(t, svc, classID, id, store.StatusPresent, "2026-03-01", "2026-03-02")
	recordStatus(t, svc, classID, id, store.StatusSick, "2026-03-03")
	recordStatus(t, svc, classID, id, store.StatusExcused, "2026-03-04")
	recordStatus(t, svc, classID, id, store.StatusTruant, "2026-03-05", "2026-03-06")

	stats, err := svc.StudentAttendanceStats(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	want := AttendanceStats{Sick: 1, Excused: 1, Truant: 2, TotalAbsent: 4}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestInterventionLifecycle(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	classID := mustAddClass(t, svc, "7A")
	id := mustAddStudents(t, svc, classID, "Ani")[0]

	ivID, err := svc.CreateIntervention(ctx, InterventionInput{StudentID: id, StartDate: "2026-03-05", ProblemSummary: "Sering terlambat"})
	if err != nil {
		t.Fatalf("CreateIntervention failed: %v", err)
	}
	report, _ := svc.AnalyzeRisk(ctx, id)
	if !report.HasActiveIntervention {
		t.Error("An open intervention should be reported")
	}

	if err := svc.ResolveIntervention(ctx, ivID, "Sudah membaik"); err != nil {
		t.Fatalf("ResolveIntervention failed: %v", err)
	}
	iv, err := store.Fetch[store.Intervention](ctx, svc.store.Collection(store.Interventions), ivID)
	if err != nil {
		t.Fatal(err)
	}
	if iv.Status != store.InterventionResolved || iv.ResultNotes != "Sudah membaik" || iv.ResolvedDate != "2026-03-15T08:00:00Z" {
		t.Errorf("Unexpected resolved intervention %+v", iv)
	}
	if report, _ := svc.AnalyzeRisk(ctx, id); report.HasActiveIntervention {
		t.Error("A resolved intervention is not active")
	}

	if err := svc.ResolveIntervention(ctx, 404, ""); err == nil {
		t.Error("Resolving a missing intervention should fail")
	}
	if _, err := svc.CreateIntervention(ctx, InterventionInput{StudentID: 404, StartDate: "2026-03-05", ProblemSummary: "x"}); err == nil {
		t.Error("An intervention for a missing student should fail")
	}
	if _, err := svc.AddBehaviorLog(ctx, BehaviorInput{StudentID: id, Date: "2026-03-05", Type: "NEUTRAL"}); err == nil {
		t.Error("An unknown behavior type should fail")
	}
}

func TestStudentHistoryNewestFirst(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	classID := mustAddClass(t, svc, "7A")
	id := mustAddStudents(t, svc, classID, "Ani")[0]
	addBehaviors(t, svc, id, store.BehaviorNegative, "2026-03-01")
	if _, err := svc.CreateIntervention(ctx, InterventionInput{StudentID: id, StartDate: "2026-03-05", ProblemSummary: "Bolos"}); err != nil {
		t.Fatal(err)
	}
	addBehaviors(t, svc, id, "positive", "2026-03-10")

	history, err := svc.StudentHistory(ctx, id)
	if err != nil {
		t.Fatalf("StudentHistory failed: %v", err)
	}
	want := []struct {
		kind TimelineKind
		date string
	}{
		{KindBehavior, "2026-03-10"},
		{KindIntervention, "2026-03-05"},
		{KindBehavior, "2026-03-01"},
	}
	if len(history) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(history))
	}
	for i, w := range want {
		if history[i].Kind != w.kind || history[i].Date != w.date {
			t.Errorf("entry %d = %s %s, want %s %s", i, history[i].Kind, history[i].Date, w.kind, w.date)
		}
	}
	if history[0].Behavior == nil || history[0].Behavior.Type != store.BehaviorPositive {
		t.Errorf("Behavior type should be normalized, got %+v", history[0].Behavior)
	}
}
