package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-assessment-api/internal/models"
	"github.com/noah-isme/sma-assessment-api/internal/repository"
	"github.com/noah-isme/sma-assessment-api/pkg/lock"
)

const (
	typeMidterm = "type-midterm"
	typeFinal   = "type-final"
	typeQuiz    = "type-quiz"
	setupFull   = "setup-full"
	gradeTen    = "grade-10"
	gradeEleven = "grade-11"
	subjectMath = "subject-math"
	gsaMath     = "gsa-math-10"
	termOdd     = "term-odd"
	termEven    = "term-even"
)

type mockAssessmentTypeRepo struct {
	types map[string]models.AssessmentType
	deps  map[string]models.DependencyReport
	seq   int
}

func (m *mockAssessmentTypeRepo) List(ctx context.Context, filter models.AssessmentTypeFilter) ([]models.AssessmentType, int, error) {
	var items []models.AssessmentType
	for _, t := range m.types {
		if filter.Search == "" || strings.Contains(strings.ToLower(t.Name), strings.ToLower(filter.Search)) {
			items = append(items, t)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, len(items), nil
}

func (m *mockAssessmentTypeRepo) FindByID(ctx context.Context, id string) (*models.AssessmentType, error) {
	if t, ok := m.types[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentTypeRepo) FindByIDs(ctx context.Context, ids []string) ([]models.AssessmentType, error) {
	var items []models.AssessmentType
	for _, id := range ids {
		if t, ok := m.types[id]; ok {
			items = append(items, t)
		}
	}
	return items, nil
}

func (m *mockAssessmentTypeRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for _, t := range m.types {
		if strings.EqualFold(t.Name, name) && t.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAssessmentTypeRepo) Create(ctx context.Context, t *models.AssessmentType) error {
	m.seq++
	t.ID = fmt.Sprintf("type-%d", m.seq)
	m.types[t.ID] = *t
	return nil
}

func (m *mockAssessmentTypeRepo) Update(ctx context.Context, t *models.AssessmentType) error {
	m.types[t.ID] = *t
	return nil
}

func (m *mockAssessmentTypeRepo) Delete(ctx context.Context, id string) error {
	delete(m.types, id)
	return nil
}

func (m *mockAssessmentTypeRepo) CountDependencies(ctx context.Context, id string) (models.DependencyReport, error) {
	if d, ok := m.deps[id]; ok {
		return d, nil
	}
	return models.DependencyReport{}, nil
}

type mockAssessmentSetupRepo struct {
	setups        map[string]models.AssessmentSetup
	deps          map[string]models.DependencyReport
	replacedTypes bool
	seq           int
}

func (m *mockAssessmentSetupRepo) List(ctx context.Context, filter models.AssessmentSetupFilter) ([]models.AssessmentSetup, int, error) {
	var items []models.AssessmentSetup
	for _, s := range m.setups {
		items = append(items, s)
	}
	return items, len(items), nil
}

func (m *mockAssessmentSetupRepo) FindByID(ctx context.Context, id string) (*models.AssessmentSetup, error) {
	if s, ok := m.setups[id]; ok {
		return copySetup(s), nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentSetupRepo) FindByName(ctx context.Context, name string) (*models.AssessmentSetup, error) {
	for _, s := range m.setups {
		if s.Name == name {
			return copySetup(s), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentSetupRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for _, s := range m.setups {
		if strings.EqualFold(s.Name, name) && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAssessmentSetupRepo) Create(ctx context.Context, setup *models.AssessmentSetup) error {
	m.seq++
	setup.ID = fmt.Sprintf("setup-%d", m.seq)
	m.setups[setup.ID] = *copySetup(*setup)
	return nil
}

func (m *mockAssessmentSetupRepo) Update(ctx context.Context, setup *models.AssessmentSetup, replaceTypes bool) error {
	m.replacedTypes = replaceTypes
	m.setups[setup.ID] = *copySetup(*setup)
	return nil
}

func (m *mockAssessmentSetupRepo) Delete(ctx context.Context, id string) error {
	delete(m.setups, id)
	return nil
}

func (m *mockAssessmentSetupRepo) CountDependencies(ctx context.Context, id string) (models.DependencyReport, error) {
	if d, ok := m.deps[id]; ok {
		return d, nil
	}
	return models.DependencyReport{}, nil
}

func copySetup(s models.AssessmentSetup) *models.AssessmentSetup {
	s.Types = append([]models.SetupType(nil), s.Types...)
	return &s
}

type mockGSARepo struct {
	gsas map[string]models.GradeSubjectAssessment
	deps map[string]models.DependencyReport
	seq  int
}

func (m *mockGSARepo) List(ctx context.Context, filter models.GSAFilter) ([]models.GradeSubjectAssessmentDetail, int, error) {
	var items []models.GradeSubjectAssessmentDetail
	for _, g := range m.gsas {
		if filter.GradeID != "" && g.GradeID != filter.GradeID {
			continue
		}
		items = append(items, models.GradeSubjectAssessmentDetail{GradeSubjectAssessment: g})
	}
	return items, len(items), nil
}

func (m *mockGSARepo) FindByID(ctx context.Context, id string) (*models.GradeSubjectAssessment, error) {
	if g, ok := m.gsas[id]; ok {
		return &g, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGSARepo) FindByGradeAndSubject(ctx context.Context, gradeID, subjectID string) (*models.GradeSubjectAssessment, error) {
	for _, g := range m.gsas {
		if g.GradeID == gradeID && g.SubjectID == subjectID {
			return &g, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockGSARepo) Exists(ctx context.Context, gradeID, subjectID string) (bool, error) {
	_, err := m.FindByGradeAndSubject(ctx, gradeID, subjectID)
	return err == nil, nil
}

func (m *mockGSARepo) Create(ctx context.Context, gsa *models.GradeSubjectAssessment) error {
	m.seq++
	gsa.ID = fmt.Sprintf("gsa-%d", m.seq)
	m.gsas[gsa.ID] = *gsa
	return nil
}

func (m *mockGSARepo) UpdateSetup(ctx context.Context, id, setupID string) error {
	g := m.gsas[id]
	g.SetupID = setupID
	m.gsas[id] = g
	return nil
}

func (m *mockGSARepo) Delete(ctx context.Context, id string) error {
	delete(m.gsas, id)
	return nil
}

func (m *mockGSARepo) CountDependencies(ctx context.Context, id string) (models.DependencyReport, error) {
	if d, ok := m.deps[id]; ok {
		return d, nil
	}
	return models.DependencyReport{}, nil
}

type mockConductedRepo struct {
	mu   sync.Mutex
	recs map[string]models.ConductedAssessment
	seq  int
}

func (m *mockConductedRepo) List(ctx context.Context, filter models.ConductedAssessmentFilter) ([]models.ConductedAssessment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.ConductedAssessment
	for _, r := range m.recs {
		if filter.GSAID != "" && r.GSAID != filter.GSAID {
			continue
		}
		items = append(items, copyConducted(r))
	}
	return items, len(items), nil
}

func (m *mockConductedRepo) FindByID(ctx context.Context, id string) (*models.ConductedAssessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.recs[id]; ok {
		rec := copyConducted(r)
		return &rec, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockConductedRepo) FindByGSAAndTerm(ctx context.Context, gsaID, termID string) (*models.ConductedAssessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.GSAID == gsaID && r.AcademicTermID == termID {
			rec := copyConducted(r)
			return &rec, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockConductedRepo) FindLatestByGSA(ctx context.Context, gsaID string) (*models.ConductedAssessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.ConductedAssessment
	for _, r := range m.recs {
		if r.GSAID != gsaID {
			continue
		}
		if latest == nil || r.UpdatedAt.After(latest.UpdatedAt) {
			rec := copyConducted(r)
			latest = &rec
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return latest, nil
}

func (m *mockConductedRepo) Create(ctx context.Context, rec *models.ConductedAssessment) error {
	created, err := m.CreateIfAbsent(ctx, rec)
	if err != nil {
		return err
	}
	if !created {
		return repository.ErrDuplicateKey
	}
	return nil
}

func (m *mockConductedRepo) CreateIfAbsent(ctx context.Context, rec *models.ConductedAssessment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.GSAID == rec.GSAID && r.AcademicTermID == rec.AcademicTermID {
			return false, nil
		}
	}
	m.seq++
	rec.ID = fmt.Sprintf("conducted-%d", m.seq)
	if rec.ConductedStages == nil {
		rec.ConductedStages = []string{}
	}
	if rec.Status == "" {
		rec.Status = models.ConductedStatusPlanned
	}
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	m.recs[rec.ID] = copyConducted(*rec)
	return true, nil
}

func (m *mockConductedRepo) AppendStage(ctx context.Context, id, typeID string, expectedCount int, status models.ConductedStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok || len(r.ConductedStages) != expectedCount {
		return false, nil
	}
	r.ConductedStages = append(r.ConductedStages, typeID)
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	m.recs[id] = r
	return true, nil
}

func copyConducted(r models.ConductedAssessment) models.ConductedAssessment {
	r.ConductedStages = append([]string{}, r.ConductedStages...)
	return r
}

type mockAssessmentScoreRepo struct {
	mu         sync.Mutex
	scores     map[string]models.AssessmentScore
	updates    int
	failCreate map[string]bool
	seq        int
}

func (m *mockAssessmentScoreRepo) List(ctx context.Context, filter models.AssessmentScoreFilter) ([]models.AssessmentScore, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.AssessmentScore
	for _, s := range m.scores {
		if filter.GSAID != "" && s.GSAID != filter.GSAID {
			continue
		}
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		items = append(items, copyScore(s))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, len(items), nil
}

func (m *mockAssessmentScoreRepo) ListByGSA(ctx context.Context, gsaID string) ([]models.AssessmentScore, error) {
	items, _, err := m.List(ctx, models.AssessmentScoreFilter{GSAID: gsaID})
	return items, err
}

func (m *mockAssessmentScoreRepo) FindByID(ctx context.Context, id string) (*models.AssessmentScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.scores[id]; ok {
		score := copyScore(s)
		return &score, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentScoreRepo) FindByStudentAndGSA(ctx context.Context, studentID, gsaID string) (*models.AssessmentScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.scores {
		if s.StudentID == studentID && s.GSAID == gsaID {
			score := copyScore(s)
			return &score, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentScoreRepo) ExistingStudents(ctx context.Context, gsaID string, studentIDs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := make(map[string]bool)
	for _, s := range m.scores {
		if s.GSAID != gsaID {
			continue
		}
		for _, id := range studentIDs {
			if s.StudentID == id {
				existing[id] = true
			}
		}
	}
	return existing, nil
}

func (m *mockAssessmentScoreRepo) CreateIfAbsent(ctx context.Context, score *models.AssessmentScore) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate[score.StudentID] {
		return false, fmt.Errorf("insert failed")
	}
	for _, s := range m.scores {
		if s.StudentID == score.StudentID && s.GSAID == score.GSAID {
			return false, nil
		}
	}
	m.seq++
	score.ID = fmt.Sprintf("score-%03d", m.seq)
	m.scores[score.ID] = copyScore(*score)
	return true, nil
}

func (m *mockAssessmentScoreRepo) Update(ctx context.Context, score *models.AssessmentScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	m.scores[score.ID] = copyScore(*score)
	return nil
}

func (m *mockAssessmentScoreRepo) byStudent(t *testing.T, studentID string) models.AssessmentScore {
	t.Helper()
	score, err := m.FindByStudentAndGSA(context.Background(), studentID, gsaMath)
	require.NoError(t, err)
	return *score
}

func copyScore(s models.AssessmentScore) models.AssessmentScore {
	s.Scores = append(models.ScoreEntries(nil), s.Scores...)
	return s
}

type mockStudentReader struct {
	students map[string]bool
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.students[id] {
		return &models.Student{ID: id, Active: true}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentReader) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool)
	for _, id := range ids {
		if m.students[id] {
			found[id] = true
		}
	}
	return found, nil
}

type mockEnrollmentReader struct {
	gradeOf map[string]string
}

func (m *mockEnrollmentReader) FindActiveByStudent(ctx context.Context, studentID string) (*models.Enrollment, error) {
	if grade, ok := m.gradeOf[studentID]; ok {
		return &models.Enrollment{StudentID: studentID, GradeID: grade, Status: models.EnrollmentStatusActive}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentReader) ListActiveByStudents(ctx context.Context, studentIDs []string) ([]models.Enrollment, error) {
	var items []models.Enrollment
	for _, id := range studentIDs {
		if grade, ok := m.gradeOf[id]; ok {
			items = append(items, models.Enrollment{StudentID: id, GradeID: grade, Status: models.EnrollmentStatusActive})
		}
	}
	return items, nil
}

func (m *mockEnrollmentReader) ListActiveStudentIDsByGrade(ctx context.Context, gradeID string) ([]string, error) {
	var ids []string
	for student, grade := range m.gradeOf {
		if grade == gradeID {
			ids = append(ids, student)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type mockGradeReader struct {
	grades map[string]bool
}

func (m *mockGradeReader) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	if m.grades[id] {
		return &models.Grade{ID: id, Name: id}, nil
	}
	return nil, sql.ErrNoRows
}

type mockSubjectReader struct {
	subjects map[string]bool
}

func (m *mockSubjectReader) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if m.subjects[id] {
		return &models.Subject{ID: id, Name: id}, nil
	}
	return nil, sql.ErrNoRows
}

type mockTermReader struct {
	terms  map[string]bool
	active string
}

func (m *mockTermReader) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if m.terms[id] {
		return &models.Term{ID: id, IsActive: id == m.active}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTermReader) FindActive(ctx context.Context) (*models.Term, error) {
	if m.active == "" {
		return nil, sql.ErrNoRows
	}
	return &models.Term{ID: m.active, IsActive: true}, nil
}

type busyLocker struct{}

func (busyLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Release, error) {
	return nil, lock.ErrNotAcquired
}

// assessmentFixture wires every assessment service over in-memory repositories seeded with
// a Midterm (40) / Final (60) setup bound to grade 10 mathematics.
type assessmentFixture struct {
	types       *mockAssessmentTypeRepo
	setups      *mockAssessmentSetupRepo
	gsas        *mockGSARepo
	gates       *mockConductedRepo
	scores      *mockAssessmentScoreRepo
	students    *mockStudentReader
	enrollments *mockEnrollmentReader
	grades      *mockGradeReader
	subjects    *mockSubjectReader
	terms       *mockTermReader
	metrics     *MetricsService

	typeSvc  *AssessmentTypeService
	setupSvc *AssessmentSetupService
	gateSvc  *StageGateService
	gsaSvc   *GradeSubjectAssessmentService
	genSvc   *MarksheetGenerationService
	scoreSvc *AssessmentScoreService
}

func newAssessmentFixture(t *testing.T) *assessmentFixture {
	t.Helper()
	return newAssessmentFixtureWithLocker(t, lock.NewLocalLocker(time.Second))
}

func newAssessmentFixtureWithLocker(t *testing.T, locker lock.Locker) *assessmentFixture {
	t.Helper()
	midterm := models.AssessmentType{ID: typeMidterm, Name: "Midterm", Weight: 40}
	final := models.AssessmentType{ID: typeFinal, Name: "Final", Weight: 60}
	quiz := models.AssessmentType{ID: typeQuiz, Name: "Quiz", Weight: 10}

	f := &assessmentFixture{
		types: &mockAssessmentTypeRepo{types: map[string]models.AssessmentType{
			typeMidterm: midterm, typeFinal: final, typeQuiz: quiz,
		}, deps: map[string]models.DependencyReport{}},
		setups: &mockAssessmentSetupRepo{setups: map[string]models.AssessmentSetup{
			setupFull: {ID: setupFull, Name: "Full Term Assessment", Types: []models.SetupType{
				{SetupID: setupFull, TypeID: typeMidterm, Name: "Midterm", Weight: 40, Position: 0},
				{SetupID: setupFull, TypeID: typeFinal, Name: "Final", Weight: 60, Position: 1},
			}},
		}, deps: map[string]models.DependencyReport{}},
		gsas: &mockGSARepo{gsas: map[string]models.GradeSubjectAssessment{
			gsaMath: {ID: gsaMath, GradeID: gradeTen, SubjectID: subjectMath, SetupID: setupFull},
		}, deps: map[string]models.DependencyReport{}},
		gates:       &mockConductedRepo{recs: map[string]models.ConductedAssessment{}},
		scores:      &mockAssessmentScoreRepo{scores: map[string]models.AssessmentScore{}},
		students:    &mockStudentReader{students: map[string]bool{"s1": true, "s2": true, "s3": true, "s4": true, "s5": true}},
		enrollments: &mockEnrollmentReader{gradeOf: map[string]string{"s1": gradeTen, "s2": gradeTen, "s3": gradeTen, "s5": gradeEleven}},
		grades:      &mockGradeReader{grades: map[string]bool{gradeTen: true, gradeEleven: true}},
		subjects:    &mockSubjectReader{subjects: map[string]bool{subjectMath: true, "subject-physics": true}},
		terms:       &mockTermReader{terms: map[string]bool{termOdd: true, termEven: true}, active: termOdd},
		metrics:     NewMetricsService(),
	}

	f.typeSvc = NewAssessmentTypeService(f.types, nil, nil, nil)
	f.setupSvc = NewAssessmentSetupService(f.setups, f.types, nil, "", nil, nil)
	f.gateSvc = NewStageGateService(f.gates, f.gsas, f.terms, f.setupSvc, locker, time.Second, f.metrics, nil, nil)
	f.gsaSvc = NewGradeSubjectAssessmentService(f.gsas, f.grades, f.subjects, f.setupSvc, f.gateSvc, nil, nil)
	f.genSvc = NewMarksheetGenerationService(f.scores, f.gsas, f.setupSvc, f.enrollments, f.students, f.grades, 2, f.metrics, nil, nil)
	f.scoreSvc = NewAssessmentScoreService(f.scores, f.gsas, f.setupSvc, f.gateSvc, f.students, locker, time.Second, f.metrics, nil, nil)
	return f
}
