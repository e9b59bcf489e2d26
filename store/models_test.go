package store

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestAssessmentJSON(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantKind   AssessmentKind
		wantClass  int64
		wantErrSub string
	}{
		{"template", `{"id":1,"classId":"TEMPLATE","syllabusId":4,"name":"UH 1"}`, KindTemplate, 0, ""},
		{"numeric instance", `{"id":2,"classId":7,"syllabusId":4,"name":"UH 1"}`, KindInstance, 7, ""},
		{"string instance", `{"id":3,"classId":"7","name":"UH 1"}`, KindInstance, 7, ""},
		{"missing class", `{"id":4,"name":"UH 1"}`, KindInstance, 0, ""},
		{"garbage class", `{"id":5,"classId":"seven","name":"UH 1"}`, KindInstance, 0, "invalid assessment classId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Assessment
			err := json.Unmarshal([]byte(tt.input), &a)
			if tt.wantErrSub != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrSub) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErrSub, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if a.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", a.Kind, tt.wantKind)
			}
			if a.ClassID != tt.wantClass {
				t.Errorf("ClassID = %d, want %d", a.ClassID, tt.wantClass)
			}
		})
	}
}

func TestAssessmentMarshalClassID(t *testing.T) {
	tmpl, err := json.Marshal(NewTemplate(4, "Latihan 1", "MTK", "UH"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(tmpl), `"classId":"TEMPLATE"`) {
		t.Errorf("Template should carry the sentinel classId, got %s", tmpl)
	}

	inst, err := json.Marshal(NewInstance(7, 4, "UH 1", "MTK", "UH", "2026-03-01"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(inst), `"classId":7`) {
		t.Errorf("Instance should carry a numeric classId, got %s", inst)
	}
}

func TestTemplatesQueryableBySentinel(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	meta := s.Collection(AssessmentsMeta)

	if _, err := Insert(ctx, meta, NewTemplate(4, "Latihan 1", "MTK", "UH")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := Insert(ctx, meta, NewInstance(7, 4, "UH 1", "MTK", "UH", "2026-03-01")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	templates, err := Find[Assessment](ctx, meta, Filter{"classId": TemplateClassID, "subject": "MTK"})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(templates) != 1 || !templates[0].IsTemplate() {
		t.Errorf("Expected one template, got %+v", templates)
	}
}

func TestParseAttendanceStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    AttendanceStatus
		wantErr bool
	}{
		{"present", StatusPresent, false},
		{"s", StatusSick, false},
		{"3", StatusExcused, false},
		{"absent", StatusAbsent, false},
		{"t", StatusTruant, false},
		{"late", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAttendanceStatus(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAttendanceStatus(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAttendanceStatus(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
