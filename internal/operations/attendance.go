package operations

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"jurnalguru/store"
)

// JournalInput describes one teaching session. A zero ID saves into the
// journal already recorded for the class on that date, or creates one.
type JournalInput struct {
	ID          int64
	Date        string `validate:"required,datetime=2006-01-02"`
	ClassID     int64  `validate:"required,gt=0"`
	SyllabusID  *int64
	CustomTopic string
	Tags        []string
}

type AttendanceEntry struct {
	StudentID int64                  `validate:"required,gt=0"`
	Status    store.AttendanceStatus `validate:"min=1,max=5"`
}

// SaveAttendance records a journal and replaces the attendance of its class
// on its date, all in one transaction. It returns the journal id.
func (svc *Service) SaveAttendance(ctx context.Context, in JournalInput, entries []AttendanceEntry) (int64, error) {
	if err := svc.check("journal", in); err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := svc.check("attendance", e); err != nil {
			return 0, fmt.Errorf("student %d: %w", e.StudentID, err)
		}
	}

	journal := store.Journal{
		ID:         in.ID,
		Date:       in.Date,
		ClassID:    in.ClassID,
		SyllabusID: in.SyllabusID,
		Tags:       in.Tags,
	}
	if topic := strings.TrimSpace(in.CustomTopic); topic != "" {
		journal.CustomTopic = &topic
	}

	err := svc.store.Tx(ctx, func(tx *store.Tx) error {
		if _, err := svc.requireClass(ctx, tx.Collection(store.Classes), in.ClassID); err != nil {
			return err
		}

		journals := tx.Collection(store.Journals)
		if journal.ID == 0 {
			same, err := store.Find[store.Journal](ctx, journals, store.Filter{"date": in.Date, "classId": in.ClassID})
			if err != nil {
				return err
			}
			if len(same) > 0 {
				journal.ID = same[0].ID
			}
		}
		id, err := store.Save(ctx, journals, journal)
		if err != nil {
			return err
		}
		journal.ID = id

		attendance := tx.Collection(store.AttendanceCollection)
		if _, err := attendance.DeleteWhere(ctx, store.Filter{"classId": in.ClassID, "date": in.Date}); err != nil {
			return err
		}
		for _, e := range entries {
			if _, err := store.Insert(ctx, attendance, store.Attendance{
				Date:      in.Date,
				ClassID:   in.ClassID,
				StudentID: e.StudentID,
				Status:    e.Status,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error saving attendance: %w", err)
	}
	return journal.ID, nil
}

// ExistingAttendance returns the attendance already recorded for a class on
// a date.
func (svc *Service) ExistingAttendance(ctx context.Context, classID int64, date string) ([]store.Attendance, error) {
	return store.Find[store.Attendance](ctx, svc.store.Collection(store.AttendanceCollection), store.Filter{"classId": classID, "date": date})
}

// DeleteAttendanceLog removes a journal and the attendance recorded with it.
func (svc *Service) DeleteAttendanceLog(ctx context.Context, journalID int64) error {
	err := svc.store.Tx(ctx, func(tx *store.Tx) error {
		journals := tx.Collection(store.Journals)
		j, err := store.Fetch[store.Journal](ctx, journals, journalID)
		if err != nil {
			return err
		}
		if _, err := tx.Collection(store.AttendanceCollection).DeleteWhere(ctx, store.Filter{"classId": j.ClassID, "date": j.Date}); err != nil {
			return err
		}
		return journals.Delete(ctx, journalID)
	})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("journal %d not found", journalID)
	}
	if err != nil {
		return fmt.Errorf("error deleting journal %d: %w", journalID, err)
	}
	return nil
}

// Topic labels used when a journal has no syllabus topic.
const (
	ManualTopicPrefix = "(Manual) "
	MissingTopicLabel = "Topik Terhapus / Kosong"
	UnknownClassLabel = "?"
)

// HistoryEntry is a journal joined with its class name, topic label and
// attendance counts.
type HistoryEntry struct {
	store.Journal
	ClassName string                         `json:"className"`
	TopicName string                         `json:"topicName"`
	Counts    map[store.AttendanceStatus]int `json:"counts,omitempty"`
}

// TopicLabel renders the topic of a journal.
func TopicLabel(j store.Journal, syllabus map[int64]store.Syllabus) string {
	if j.SyllabusID != nil {
		if s, ok := syllabus[*j.SyllabusID]; ok {
			return fmt.Sprintf("%d - %s", s.MeetingOrder, s.Topic)
		}
	}
	if j.CustomTopic != nil && *j.CustomTopic != "" {
		return ManualTopicPrefix + *j.CustomTopic
	}
	return MissingTopicLabel
}

// HistoryLog returns every journal, newest first. A non-zero classID limits
// the log to that class.
func (svc *Service) HistoryLog(ctx context.Context, classID int64) ([]HistoryEntry, error) {
	classes, err := store.List[store.Class](ctx, svc.store.Collection(store.Classes))
	if err != nil {
		return nil, err
	}
	syllabus, err := store.List[store.Syllabus](ctx, svc.store.Collection(store.SyllabusCollection))
	if err != nil {
		return nil, err
	}
	var filter store.Filter
	if classID != 0 {
		filter = store.Filter{"classId": classID}
	}
	journals, err := store.Find[store.Journal](ctx, svc.store.Collection(store.Journals), filter)
	if err != nil {
		return nil, err
	}
	attendance, err := store.Find[store.Attendance](ctx, svc.store.Collection(store.AttendanceCollection), filter)
	if err != nil {
		return nil, err
	}

	classNames := make(map[int64]string, len(classes))
	for _, c := range classes {
		classNames[c.ID] = c.Name
	}
	topics := make(map[int64]store.Syllabus, len(syllabus))
	for _, s := range syllabus {
		topics[s.ID] = s
	}
	type session struct {
		classID int64
		date    string
	}
	counts := make(map[session]map[store.AttendanceStatus]int)
	for _, a := range attendance {
		k := session{a.ClassID, a.Date}
		if counts[k] == nil {
			counts[k] = make(map[store.AttendanceStatus]int)
		}
		counts[k][a.Status]++
	}

	out := make([]HistoryEntry, 0, len(journals))
	for i := len(journals) - 1; i >= 0; i-- {
		j := journals[i]
		name, ok := classNames[j.ClassID]
		if !ok {
			name = UnknownClassLabel
		}
		out = append(out, HistoryEntry{
			Journal:   j,
			ClassName: name,
			TopicName: TopicLabel(j, topics),
			Counts:    counts[session{j.ClassID, j.Date}],
		})
	}
	return out, nil
}

// ParseAttendanceLine reads "studentID=status" pairs such as "12=p".
func ParseAttendanceLine(pairs []string) ([]AttendanceEntry, error) {
	entries := make([]AttendanceEntry, 0, len(pairs))
	for _, p := range pairs {
		idStr, statusStr, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid attendance %q, expected <student-id>=<status>", p)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid student id %q", idStr)
		}
		status, err := store.ParseAttendanceStatus(strings.ToLower(strings.TrimSpace(statusStr)))
		if err != nil {
			return nil, err
		}
		entries = append(entries, AttendanceEntry{StudentID: id, Status: status})
	}
	return entries, nil
}
