package operations

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

type RiskLevel string

const (
	RiskGreen  RiskLevel = "GREEN"
	RiskYellow RiskLevel = "YELLOW"
	RiskRed    RiskLevel = "RED"
)

const (
	// NegativeBehaviorLimit negative logs within BehaviorWindow mark a student red.
	NegativeBehaviorLimit = 3
	// UnexcusedAbsenceLimit absences plus truancies mark a student red.
	UnexcusedAbsenceLimit = 3
	BehaviorWindow        = 30 * 24 * time.Hour
)

type BehaviorInput struct {
	StudentID   int64              `validate:"required,gt=0"`
	Date        string             `validate:"required,datetime=2006-01-02"`
	Type        store.BehaviorType `validate:"required,oneof=POSITIVE NEGATIVE"`
	Category    string
	Description string
}

type InterventionInput struct {
	StudentID      int64  `validate:"required,gt=0"`
	StartDate      string `validate:"required,datetime=2006-01-02"`
	Trigger        string
	ProblemSummary string `validate:"required"`
	ActionPlan     string
}

// AttendanceStats counts the non-present attendance of one student.
type AttendanceStats struct {
	Sick        int `json:"sick"`
	Excused     int `json:"excused"`
	Absent      int `json:"absent"`
	Truant      int `json:"truant"`
	TotalAbsent int `json:"totalAbsent"`
}

type RiskReport struct {
	Level                 RiskLevel       `json:"level"`
	Factors               []string        `json:"factors"`
	HasActiveIntervention bool            `json:"hasActiveIntervention"`
	NegativeBehaviors     int             `json:"negativeBehaviors"`
	Stats                 AttendanceStats `json:"stats"`
}

type TimelineKind string

const (
	KindBehavior     TimelineKind = "BEHAVIOR"
	KindIntervention TimelineKind = "INTERVENTION"
)

// TimelineEntry is one behavior log or intervention of a student.
type TimelineEntry struct {
	Kind         TimelineKind        `json:"kind"`
	Date         string              `json:"date"`
	Behavior     *store.BehaviorLog  `json:"behavior,omitempty"`
	Intervention *store.Intervention `json:"intervention,omitempty"`
}

// AddBehaviorLog records a positive or negative behavior note.
func (svc *Service) AddBehaviorLog(ctx context.Context, in BehaviorInput) (int64, error) {
	in.Type = store.BehaviorType(strings.ToUpper(string(in.Type)))
	if err := svc.check("behavior log", in); err != nil {
		return 0, err
	}
	if _, err := svc.requireStudent(ctx, svc.store.Collection(store.Students), in.StudentID); err != nil {
		return 0, err
	}
	id, err := store.Insert(ctx, svc.store.Collection(store.StudentBehaviors), store.BehaviorLog{
		StudentID:   in.StudentID,
		Date:        in.Date,
		Type:        in.Type,
		Category:    in.Category,
		Description: in.Description,
	})
	if err != nil {
		return 0, fmt.Errorf("error adding behavior log: %w", err)
	}
	return id, nil
}

// CreateIntervention opens an intervention case for a student.
func (svc *Service) CreateIntervention(ctx context.Context, in InterventionInput) (int64, error) {
	if err := svc.check("intervention", in); err != nil {
		return 0, err
	}
	if _, err := svc.requireStudent(ctx, svc.store.Collection(store.Students), in.StudentID); err != nil {
		return 0, err
	}
	id, err := store.Insert(ctx, svc.store.Collection(store.Interventions), store.Intervention{
		StudentID:      in.StudentID,
		StartDate:      in.StartDate,
		Trigger:        in.Trigger,
		ProblemSummary: in.ProblemSummary,
		ActionPlan:     in.ActionPlan,
		Status:         store.InterventionOpen,
	})
	if err != nil {
		return 0, fmt.Errorf("error creating intervention: %w", err)
	}
	return id, nil
}

// ResolveIntervention closes an intervention with its outcome.
func (svc *Service) ResolveIntervention(ctx context.Context, id int64, notes string) error {
	found, err := svc.store.Collection(store.Interventions).Update(ctx, id, map[string]any{
		"status":       store.InterventionResolved,
		"resultNotes":  notes,
		"resolvedDate": svc.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("error resolving intervention %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("intervention %d not found", id)
	}
	return nil
}

// StudentAttendanceStats counts a student's attendance by status.
func (svc *Service) StudentAttendanceStats(ctx context.Context, studentID int64) (AttendanceStats, error) {
	var stats AttendanceStats
	logs, err := store.Find[store.Attendance](ctx, svc.store.Collection(store.AttendanceCollection), store.Filter{"studentId": studentID})
	if err != nil {
		return stats, err
	}
	for _, l := range logs {
		switch l.Status {
		case store.StatusSick:
			stats.Sick++
		case store.StatusExcused:
			stats.Excused++
		case store.StatusAbsent:
			stats.Absent++
		case store.StatusTruant:
			stats.Truant++
		}
	}
	stats.TotalAbsent = stats.Sick + stats.Excused + stats.Absent + stats.Truant
	return stats, nil
}

// AnalyzeRisk rates a student from recent negative behavior and unexcused
// absences.
func (svc *Service) AnalyzeRisk(ctx context.Context, studentID int64) (RiskReport, error) {
	report := RiskReport{Level: RiskGreen, Factors: []string{}}

	behaviors, err := store.Find[store.BehaviorLog](ctx, svc.store.Collection(store.StudentBehaviors), store.Filter{"studentId": studentID})
	if err != nil {
		return report, err
	}
	since := svc.now().Add(-BehaviorWindow).Format(utils.DateLayout)
	for _, b := range behaviors {
		if b.Type == store.BehaviorNegative && b.Date >= since {
			report.NegativeBehaviors++
		}
	}
	switch {
	case report.NegativeBehaviors >= NegativeBehaviorLimit:
		report.Level = RiskRed
		report.Factors = append(report.Factors, fmt.Sprintf("%d negative behaviors (30 days)", report.NegativeBehaviors))
	case report.NegativeBehaviors > 0:
		report.Level = RiskYellow
		report.Factors = append(report.Factors, fmt.Sprintf("%d negative behaviors", report.NegativeBehaviors))
	}

	if report.Stats, err = svc.StudentAttendanceStats(ctx, studentID); err != nil {
		return report, err
	}
	if n := report.Stats.Absent + report.Stats.Truant; n >= UnexcusedAbsenceLimit {
		report.Level = RiskRed
		report.Factors = append(report.Factors, fmt.Sprintf("Frequently absent or truant (%dx)", n))
	}

	open, err := svc.store.Collection(store.Interventions).CountWhere(ctx, store.Filter{
		"studentId": studentID,
		"status":    store.InterventionOpen,
	})
	if err != nil {
		return report, err
	}
	report.HasActiveIntervention = open > 0
	return report, nil
}

// StudentHistory merges behavior logs and interventions into one timeline,
// newest first.
func (svc *Service) StudentHistory(ctx context.Context, studentID int64) ([]TimelineEntry, error) {
	filter := store.Filter{"studentId": studentID}
	behaviors, err := store.Find[store.BehaviorLog](ctx, svc.store.Collection(store.StudentBehaviors), filter)
	if err != nil {
		return nil, err
	}
	interventions, err := store.Find[store.Intervention](ctx, svc.store.Collection(store.Interventions), filter)
	if err != nil {
		return nil, err
	}

	timeline := make([]TimelineEntry, 0, len(behaviors)+len(interventions))
	for i := range behaviors {
		timeline = append(timeline, TimelineEntry{Kind: KindBehavior, Date: behaviors[i].Date, Behavior: &behaviors[i]})
	}
	for i := range interventions {
		timeline = append(timeline, TimelineEntry{Kind: KindIntervention, Date: interventions[i].StartDate, Intervention: &interventions[i]})
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		a, _ := parseDay(timeline[i].Date)
		b, _ := parseDay(timeline[j].Date)
		return a.After(b)
	})
	return timeline, nil
}
