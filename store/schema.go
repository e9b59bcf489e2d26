package store

import (
	"fmt"
	"strings"
)

// Collection names. The order of first declaration is the order used for
// exports and for clearing during a destructive restore.
const (
	Settings             = "settings"
	Classes              = "classes"
	Students             = "students"
	SyllabusCollection   = "syllabus"
	AssessmentsMeta      = "assessments_meta"
	Journals             = "journals"
	AttendanceCollection = "attendance"
	Grades               = "grades"
	Ideas                = "ideas"
	StudentBehaviors     = "student_behaviors"
	Interventions        = "interventions"
)

// Index describes a secondary index over one or more document fields.
// MultiEntry indexes (array fields) are declared for completeness but are not
// materialized; queries over them go through json_each.
type Index struct {
	Fields     []string
	MultiEntry bool
}

// Name returns the SQLite index name for a collection.
func (i Index) Name(collection string) string {
	return "idx_" + collection + "_" + strings.Join(i.Fields, "_")
}

// CollectionSpec is the full shape of one collection at a schema version.
type CollectionSpec struct {
	Name    string
	Key     string // "id" for auto-increment collections, "key" for settings
	Indexes []Index
}

func (cs CollectionSpec) autoIncrement() bool {
	return cs.Key == "id"
}

// Migration declares every collection a schema version touches. A later
// migration replaces the index set of the collections it names; tables are
// never dropped.
type Migration struct {
	Version     int
	Collections []CollectionSpec
}

// indexes builds an index list from a compact field list:
// "classId" is a single-field index, "classId+name" a compound index and
// "*tags" a multi-entry index.
func indexes(fields ...string) []Index {
	out := make([]Index, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "*") {
			out = append(out, Index{Fields: []string{f[1:]}, MultiEntry: true})
			continue
		}
		out = append(out, Index{Fields: strings.Split(f, "+")})
	}
	return out
}

func autoIncrementing(name string, fields ...string) CollectionSpec {
	return CollectionSpec{Name: name, Key: "id", Indexes: indexes(fields...)}
}

var migrations = []Migration{
	{Version: 1, Collections: []CollectionSpec{
		{Name: Settings, Key: "key"},
		autoIncrementing(Classes, "name"),
		autoIncrementing(Students, "name", "classId", "nis", "gender", "classId+name"),
		autoIncrementing(SyllabusCollection, "topic", "subject", "level", "meetingOrder"),
		autoIncrementing(AssessmentsMeta, "syllabusId", "name", "type"),
		autoIncrementing(Journals, "date", "classId", "syllabusId"),
		autoIncrementing(AttendanceCollection, "date", "classId", "studentId", "status", "date+classId"),
		autoIncrementing(Grades, "studentId", "assessmentMetaId", "score", "date"),
	}},
	{Version: 2, Collections: []CollectionSpec{
		autoIncrementing(AssessmentsMeta, "syllabusId", "name", "type", "subject", "classId", "date", "classId+subject"),
		autoIncrementing(Grades, "studentId", "assessmentMetaId", "score"),
	}},
	{Version: 3, Collections: []CollectionSpec{
		autoIncrementing(Journals, "date", "classId", "syllabusId", "*tags"),
	}},
	{Version: 4, Collections: []CollectionSpec{
		autoIncrementing(Ideas, "title", "type", "createdAt", "updatedAt", "isArchived", "*tags"),
	}},
	{Version: 5, Collections: []CollectionSpec{
		autoIncrementing(Ideas, "title", "type", "createdAt", "updatedAt", "isArchived", "linkedJournalId", "*tags"),
	}},
	{Version: 6, Collections: []CollectionSpec{
		autoIncrementing(StudentBehaviors, "studentId", "date", "type", "studentId+date"),
		autoIncrementing(Interventions, "studentId", "status", "studentId+status"),
	}},
}

// SchemaVersion is the newest schema version this build knows about.
var SchemaVersion = migrations[len(migrations)-1].Version

type schemaCatalog struct {
	order []string
	specs map[string]CollectionSpec
}

var catalog = buildCatalog(migrations)

func buildCatalog(ms []Migration) schemaCatalog {
	c := schemaCatalog{specs: make(map[string]CollectionSpec)}
	for _, m := range ms {
		for _, cs := range m.Collections {
			if _, seen := c.specs[cs.Name]; !seen {
				c.order = append(c.order, cs.Name)
			}
			c.specs[cs.Name] = cs
		}
	}
	return c
}

// Collections returns every collection name known to the schema, in
// declaration order.
func Collections() []string {
	out := make([]string, len(catalog.order))
	copy(out, catalog.order)
	return out
}

// Spec returns the latest declared shape of a collection.
func Spec(name string) (CollectionSpec, bool) {
	cs, ok := catalog.specs[name]
	return cs, ok
}

// SchemaVersionTableSQL creates the schema version table for migration tracking
const SchemaVersionTableSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

func createTableSQL(cs CollectionSpec) string {
	if cs.autoIncrement() {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    doc TEXT NOT NULL CHECK (json_valid(doc))
)`, cs.Name)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    %s TEXT PRIMARY KEY NOT NULL,
    doc TEXT NOT NULL CHECK (json_valid(doc))
)`, cs.Name, cs.Key)
}

func createIndexSQL(collection string, idx Index) string {
	exprs := make([]string, len(idx.Fields))
	for i, f := range idx.Fields {
		exprs[i] = fmt.Sprintf("json_extract(doc, '$.%s')", f)
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
		idx.Name(collection), collection, strings.Join(exprs, ", "))
}

// PragmaStatements returns pragma statements to execute on database connection
func PragmaStatements() []string {
	return []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
}
