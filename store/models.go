package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Setting is a key/value pair in the settings collection.
type Setting struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type Class struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type Student struct {
	ID      int64      `json:"id,omitempty"`
	Name    string     `json:"name"`
	NIS     FlexString `json:"nis,omitempty"`
	Gender  string     `json:"gender,omitempty"`
	ClassID int64      `json:"classId"`
}

// FlexString is a string field that also accepts a JSON number. Spreadsheet
// imports store numeric identifiers such as NIS as numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// Syllabus is one topic of the teaching plan.
type Syllabus struct {
	ID           int64  `json:"id,omitempty"`
	Topic        string `json:"topic"`
	Subject      string `json:"subject"`
	Level        int    `json:"level"`
	MeetingOrder int    `json:"meetingOrder"`
	Objective    string `json:"objective,omitempty"`
	Link         string `json:"link,omitempty"`
}

type Journal struct {
	ID          int64    `json:"id,omitempty"`
	Date        string   `json:"date"`
	ClassID     int64    `json:"classId"`
	SyllabusID  *int64   `json:"syllabusId"`
	CustomTopic *string  `json:"customTopic,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AttendanceStatus codes are fixed; stored records and backups depend on them.
type AttendanceStatus int

const (
	StatusPresent AttendanceStatus = iota + 1
	StatusSick
	StatusExcused
	StatusAbsent
	StatusTruant
)

func (s AttendanceStatus) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusSick:
		return "sick"
	case StatusExcused:
		return "excused"
	case StatusAbsent:
		return "absent"
	case StatusTruant:
		return "truant"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseAttendanceStatus accepts a status name, its first letter or its code.
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	switch s {
	case "present", "p", "1":
		return StatusPresent, nil
	case "sick", "s", "2":
		return StatusSick, nil
	case "excused", "e", "3":
		return StatusExcused, nil
	case "absent", "a", "4":
		return StatusAbsent, nil
	case "truant", "t", "5":
		return StatusTruant, nil
	}
	return 0, fmt.Errorf("invalid attendance status %q (valid: present, sick, excused, absent, truant)", s)
}

type Attendance struct {
	ID        int64            `json:"id,omitempty"`
	Date      string           `json:"date"`
	ClassID   int64            `json:"classId"`
	StudentID int64            `json:"studentId"`
	Status    AttendanceStatus `json:"status"`
}

type Grade struct {
	ID               int64   `json:"id,omitempty"`
	StudentID        int64   `json:"studentId"`
	AssessmentMetaID int64   `json:"assessmentMetaId"`
	Score            float64 `json:"score"`
	Date             string  `json:"date,omitempty"`
}

type Idea struct {
	ID              int64    `json:"id,omitempty"`
	Title           string   `json:"title"`
	Content         string   `json:"content,omitempty"`
	Type            string   `json:"type"`
	Tags            []string `json:"tags,omitempty"`
	LinkedJournalID *int64   `json:"linkedJournalId"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	UpdatedAt       string   `json:"updatedAt,omitempty"`
	IsArchived      int      `json:"isArchived"`
}

type BehaviorType string

const (
	BehaviorPositive BehaviorType = "POSITIVE"
	BehaviorNegative BehaviorType = "NEGATIVE"
)

type BehaviorLog struct {
	ID          int64        `json:"id,omitempty"`
	StudentID   int64        `json:"studentId"`
	Date        string       `json:"date"`
	Type        BehaviorType `json:"type"`
	Category    string       `json:"category,omitempty"`
	Description string       `json:"description,omitempty"`
}

const (
	InterventionOpen     = "OPEN"
	InterventionResolved = "RESOLVED"
)

type Intervention struct {
	ID             int64  `json:"id,omitempty"`
	StudentID      int64  `json:"studentId"`
	StartDate      string `json:"startDate"`
	Trigger        string `json:"trigger,omitempty"`
	ProblemSummary string `json:"problemSummary,omitempty"`
	ActionPlan     string `json:"actionPlan,omitempty"`
	Status         string `json:"status"`
	ResultNotes    string `json:"resultNotes,omitempty"`
	ResolvedDate   string `json:"resolvedDate,omitempty"`
}

// TemplateClassID is the stored classId marking an assessment as a reusable
// template rather than an instance bound to a class.
const TemplateClassID = "TEMPLATE"

// AssessmentKind distinguishes templates from class-bound instances.
type AssessmentKind int

const (
	KindInstance AssessmentKind = iota
	KindTemplate
)

// Assessment is an entry of assessments_meta. On disk a template carries the
// string classId "TEMPLATE"; an instance carries its numeric class id.
type Assessment struct {
	ID          int64          `json:"-"`
	Kind        AssessmentKind `json:"-"`
	ClassID     int64          `json:"-"` // instances only
	SyllabusID  int64          `json:"-"`
	Name        string         `json:"-"`
	Subject     string         `json:"-"`
	Type        string         `json:"-"`
	Date        string         `json:"-"`
	Description string         `json:"-"`
	Link        string         `json:"-"`
}

// NewTemplate returns a template assessment for a syllabus topic.
func NewTemplate(syllabusID int64, name, subject, typ string) Assessment {
	return Assessment{Kind: KindTemplate, SyllabusID: syllabusID, Name: name, Subject: subject, Type: typ}
}

// NewInstance returns an assessment bound to a class.
func NewInstance(classID, syllabusID int64, name, subject, typ, date string) Assessment {
	return Assessment{Kind: KindInstance, ClassID: classID, SyllabusID: syllabusID, Name: name, Subject: subject, Type: typ, Date: date}
}

func (a Assessment) IsTemplate() bool {
	return a.Kind == KindTemplate
}

type assessmentJSON struct {
	ID          int64           `json:"id,omitempty"`
	ClassID     json.RawMessage `json:"classId,omitempty"`
	SyllabusID  int64           `json:"syllabusId,omitempty"`
	Name        string          `json:"name"`
	Subject     string          `json:"subject,omitempty"`
	Type        string          `json:"type,omitempty"`
	Date        string          `json:"date,omitempty"`
	Description string          `json:"description,omitempty"`
	Link        string          `json:"link,omitempty"`
}

func (a Assessment) MarshalJSON() ([]byte, error) {
	out := assessmentJSON{
		ID:          a.ID,
		SyllabusID:  a.SyllabusID,
		Name:        a.Name,
		Subject:     a.Subject,
		Type:        a.Type,
		Date:        a.Date,
		Description: a.Description,
		Link:        a.Link,
	}
	if a.Kind == KindTemplate {
		out.ClassID = json.RawMessage(strconv.Quote(TemplateClassID))
	} else {
		out.ClassID = json.RawMessage(strconv.FormatInt(a.ClassID, 10))
	}
	return json.Marshal(out)
}

func (a *Assessment) UnmarshalJSON(data []byte) error {
	var in assessmentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*a = Assessment{
		ID:          in.ID,
		SyllabusID:  in.SyllabusID,
		Name:        in.Name,
		Subject:     in.Subject,
		Type:        in.Type,
		Date:        in.Date,
		Description: in.Description,
		Link:        in.Link,
	}

	if len(in.ClassID) == 0 || string(in.ClassID) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(in.ClassID, &s); err == nil {
		if s == TemplateClassID {
			a.Kind = KindTemplate
			return nil
		}
		// older records stored numeric class ids as strings
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid assessment classId %q", s)
		}
		a.ClassID = id
		return nil
	}

	var f float64
	if err := json.Unmarshal(in.ClassID, &f); err != nil {
		return fmt.Errorf("invalid assessment classId %s", in.ClassID)
	}
	a.ClassID = int64(f)
	return nil
}
