package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

// ConductedStatus is the derived state of a stage gate.
type ConductedStatus string

const (
	// ConductedStatusPlanned means no stage has been conducted yet.
	ConductedStatusPlanned ConductedStatus = "planned"
	// ConductedStatusInProgress means some but not all stages are conducted.
	ConductedStatusInProgress ConductedStatus = "in-progress"
	// ConductedStatusCompleted means every stage of the setup is conducted.
	ConductedStatusCompleted ConductedStatus = "completed"
)

// AssessmentType is a named, weighted scoring component.
type AssessmentType struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Weight      float64   `db:"weight" json:"weight"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SetupType is one ordered entry of an assessment setup.
type SetupType struct {
	SetupID  string  `db:"setup_id" json:"-"`
	TypeID   string  `db:"type_id" json:"type_id"`
	Name     string  `db:"name" json:"name"`
	Weight   float64 `db:"weight" json:"weight"`
	Position int     `db:"position" json:"position"`
}

// AssessmentSetup is an ordered collection of assessment types whose weights sum to 100.
type AssessmentSetup struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Description *string     `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
	Types       []SetupType `db:"-" json:"types"`
}

// TypeIDs returns the setup's type ids in conduction order.
func (s *AssessmentSetup) TypeIDs() []string {
	ids := make([]string, len(s.Types))
	for i, t := range s.Types {
		ids[i] = t.TypeID
	}
	return ids
}

// Position returns the 0-indexed position of typeID within the setup, or -1.
func (s *AssessmentSetup) Position(typeID string) int {
	for i, t := range s.Types {
		if t.TypeID == typeID {
			return i
		}
	}
	return -1
}

// GradeSubjectAssessment binds a (grade, subject) pair to an assessment setup.
type GradeSubjectAssessment struct {
	ID        string    `db:"id" json:"id"`
	GradeID   string    `db:"grade_id" json:"grade_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	SetupID   string    `db:"setup_id" json:"setup_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// ConductedStages is projected from the gate record of GateTermID and never persisted here.
	ConductedStages []string `db:"-" json:"conducted_stages"`
	GateTermID      *string  `db:"-" json:"gate_term_id,omitempty"`
}

// IsConducted reports whether typeID is present in the projected gate.
func (g *GradeSubjectAssessment) IsConducted(typeID string) bool {
	for _, id := range g.ConductedStages {
		if id == typeID {
			return true
		}
	}
	return false
}

// GradeSubjectAssessmentDetail enriches a GSA with display names.
type GradeSubjectAssessmentDetail struct {
	GradeSubjectAssessment
	GradeName   string `db:"grade_name" json:"grade_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	SetupName   string `db:"setup_name" json:"setup_name"`
}

// ConductedAssessment is the stage gate of a GSA for one academic term.
type ConductedAssessment struct {
	ID              string          `db:"id" json:"id"`
	GSAID           string          `db:"gsa_id" json:"gsa_id"`
	AcademicTermID  string          `db:"academic_term_id" json:"academic_term_id"`
	ConductedStages pq.StringArray  `db:"conducted_stages" json:"conducted_stages"`
	Status          ConductedStatus `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// ScoreEntry is the raw score of one assessment type inside a marksheet.
type ScoreEntry struct {
	TypeID   string  `json:"type_id"`
	TypeName string  `json:"type_name"`
	Score    float64 `json:"score"`
}

// ScoreEntries is stored as a JSONB array.
type ScoreEntries []ScoreEntry

// Value implements driver.Valuer.
func (s ScoreEntries) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *ScoreEntries) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = ScoreEntries{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("score entries: unsupported source type")
	}
	return json.Unmarshal(raw, s)
}

// AssessmentScore is a student's marksheet for one GSA.
type AssessmentScore struct {
	ID        string       `db:"id" json:"id"`
	StudentID string       `db:"student_id" json:"student_id"`
	GSAID     string       `db:"gsa_id" json:"gsa_id"`
	SetupID   string       `db:"setup_id" json:"setup_id"`
	Scores    ScoreEntries `db:"scores" json:"scores"`
	Result    float64      `db:"result" json:"result"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// AssessmentTypeFilter filters the type catalog.
type AssessmentTypeFilter struct {
	Search   string
	Page     int
	PageSize int
}

// AssessmentSetupFilter filters setups.
type AssessmentSetupFilter struct {
	Search   string
	Page     int
	PageSize int
}

// GSAFilter filters grade subject assessments.
type GSAFilter struct {
	GradeID   string
	SubjectID string
	SetupID   string
	Page      int
	PageSize  int
}

// ConductedAssessmentFilter filters stage gate records.
type ConductedAssessmentFilter struct {
	GSAID    string
	TermID   string
	Status   ConductedStatus
	Page     int
	PageSize int
}

// AssessmentScoreFilter filters marksheets.
type AssessmentScoreFilter struct {
	GSAID     string
	StudentID string
	SubjectID string
	Page      int
	PageSize  int
}

// DependencyReport lists dependent collections and how many rows of each block a deletion.
type DependencyReport map[string]int

// Blocking returns the collections that still hold references.
func (d DependencyReport) Blocking() []string {
	var names []string
	for _, name := range dependencyOrder {
		if d[name] > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Dependent collection names reported by deletion guards.
const (
	DependentSetups    = "assessment_setups"
	DependentGSAs      = "grade_subject_assessments"
	DependentScores    = "assessment_scores"
	DependentConducted = "conducted_assessments"
)

var dependencyOrder = []string{DependentSetups, DependentGSAs, DependentScores, DependentConducted}
