package dto

// CreateAssessmentTypeRequest defines payload for adding a catalog entry.
type CreateAssessmentTypeRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Weight      *float64 `json:"weight" validate:"required,gte=0,lte=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
}

// UpdateAssessmentTypeRequest defines payload for editing a catalog entry.
type UpdateAssessmentTypeRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Weight      *float64 `json:"weight" validate:"required,gte=0,lte=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
}

// CreateAssessmentSetupRequest defines payload for creating a setup.
type CreateAssessmentSetupRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	TypeIDs     []string `json:"typeIds" validate:"required,min=1,unique,dive,required"`
}

// UpdateAssessmentSetupRequest defines payload for editing a setup. A nil TypeIDs keeps the current list.
type UpdateAssessmentSetupRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	TypeIDs     []string `json:"typeIds" validate:"omitempty,min=1,unique,dive,required"`
}

// CreateGSARequest binds a grade and subject to a setup. An empty SetupID selects the default setup.
type CreateGSARequest struct {
	GradeID   string `json:"gradeId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
	SetupID   string `json:"setupId"`
}

// AssignSetupRequest changes the setup of a GSA.
type AssignSetupRequest struct {
	SetupID string `json:"setupId" validate:"required"`
}

// CreateConductedAssessmentRequest opens a stage gate for a GSA and term.
type CreateConductedAssessmentRequest struct {
	GSAID          string `json:"gsaId" validate:"required"`
	AcademicTermID string `json:"academicTermId" validate:"required"`
}

// MarkStageConductedRequest records that an assessment type has been conducted.
// The GSA is addressed either by GSAID or by GradeID and SubjectID.
// An empty AcademicTermID selects the active term.
type MarkStageConductedRequest struct {
	GSAID            string `json:"gsaId" validate:"required_without_all=GradeID SubjectID"`
	GradeID          string `json:"gradeId" validate:"required_with=SubjectID"`
	SubjectID        string `json:"subjectId" validate:"required_with=GradeID"`
	AcademicTermID   string `json:"academicTermId"`
	AssessmentTypeID string `json:"assessmentTypeId" validate:"required"`
}

// GenerateSingleRequest generates a marksheet for one student.
type GenerateSingleRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
}

// GenerateMultipleRequest generates marksheets for a list of students.
type GenerateMultipleRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,required"`
	SubjectID  string   `json:"subjectId" validate:"required"`
}

// GenerateBulkRequest generates marksheets for every active student of a grade.
type GenerateBulkRequest struct {
	GradeID   string `json:"gradeId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
}

// ScoreInput is one raw score written into a marksheet.
type ScoreInput struct {
	TypeID string   `json:"typeId" validate:"required"`
	Score  *float64 `json:"score" validate:"required"`
}

// UpdateScoresRequest writes raw scores into a single marksheet.
type UpdateScoresRequest struct {
	AcademicTermID string       `json:"academicTermId"`
	Scores         []ScoreInput `json:"scores" validate:"required,min=1,dive"`
}

// StudentScoreInput is one student's raw score for a batch update.
type StudentScoreInput struct {
	StudentID string   `json:"studentId" validate:"required"`
	Score     *float64 `json:"score" validate:"required"`
}

// BatchUpdateScoresRequest writes one assessment type's scores for many students.
type BatchUpdateScoresRequest struct {
	GSAID            string              `json:"gsaId" validate:"required"`
	AssessmentTypeID string              `json:"assessmentTypeId" validate:"required"`
	AcademicTermID   string              `json:"academicTermId"`
	Scores           []StudentScoreInput `json:"scores" validate:"required,min=1,dive"`
}

// ItemError reports a per-student failure in a batch operation.
type ItemError struct {
	StudentID string `json:"studentId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// GenerationResult summarises a marksheet generation run. Existing counts students that already
// had a marksheet; Skipped counts students whose grade has no assessment for the subject.
type GenerationResult struct {
	Created  int         `json:"created"`
	Existing int         `json:"existing"`
	Skipped  int         `json:"skipped"`
	Errors   []ItemError `json:"errors,omitempty"`
}

// BatchUpdateResult summarises a batch score update.
type BatchUpdateResult struct {
	Updated      int         `json:"updated"`
	Failed       int         `json:"failed"`
	AverageScore float64     `json:"averageScore"`
	Errors       []ItemError `json:"errors,omitempty"`
}

// RecalculationAccepted is returned when a recalculation job is queued.
type RecalculationAccepted struct {
	JobID string `json:"jobId"`
	GSAID string `json:"gsaId"`
}

// RecalculationSummary is the outcome of recalculating every marksheet of a GSA.
type RecalculationSummary struct {
	GSAID   string `json:"gsaId"`
	Total   int    `json:"total"`
	Changed int    `json:"changed"`
}
