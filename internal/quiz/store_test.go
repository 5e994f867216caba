package quiz

import (
	"context"
	"errors"
	"sort"
	"sync"

	"quizgate/internal/apperr"
	"quizgate/internal/models"
)

// memRepo is an in-memory Store for the quiz package tests.
type memRepo struct {
	mu       sync.Mutex
	planners map[uint]models.LessonPlanner
	quizzes  map[uint]models.Quiz
	results  []models.QuizResult
	nextID   uint

	graphLoads int
	failResult error
}

func newMemRepo() *memRepo {
	return &memRepo{
		planners: make(map[uint]models.LessonPlanner),
		quizzes:  make(map[uint]models.Quiz),
		nextID:   1000,
	}
}

func (m *memRepo) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memRepo) addPlanner(id, teacherID uint) {
	m.planners[id] = models.LessonPlanner{ID: id, TeacherID: teacherID, Title: "Planner"}
}

func (m *memRepo) addQuiz(q models.Quiz) {
	m.quizzes[q.ID] = q
}

func (m *memRepo) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return fn(m)
}

func (m *memRepo) GetQuizGraph(ctx context.Context, quizID uint) (*models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphLoads++
	q, ok := m.quizzes[quizID]
	if !ok {
		return nil, apperr.NotFound("quiz %d not found", quizID)
	}
	return &q, nil
}

func (m *memRepo) QuizOwner(ctx context.Context, quizID uint) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[quizID]
	if !ok {
		return 0, apperr.NotFound("quiz %d not found", quizID)
	}
	return m.planners[q.LessonPlannerID].TeacherID, nil
}

func (m *memRepo) QuizzesByIDs(ctx context.Context, ids []uint) ([]models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Quiz
	for _, id := range ids {
		if q, ok := m.quizzes[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memRepo) QuizzesForTeacher(ctx context.Context, teacherID uint) ([]models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Quiz
	for _, q := range m.quizzes {
		if m.planners[q.LessonPlannerID].TeacherID == teacherID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memRepo) CreatePlanner(ctx context.Context, planner *models.LessonPlanner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	planner.ID = m.id()
	m.planners[planner.ID] = *planner
	return nil
}

func (m *memRepo) GetPlanner(ctx context.Context, id uint) (*models.LessonPlanner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.planners[id]
	if !ok {
		return nil, apperr.NotFound("lesson planner %d not found", id)
	}
	return &p, nil
}

func (m *memRepo) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz.ID = m.id()
	for i := range quiz.Questions {
		quiz.Questions[i].ID = m.id()
		quiz.Questions[i].QuizID = quiz.ID
		for j := range quiz.Questions[i].Answers {
			quiz.Questions[i].Answers[j].ID = m.id()
			quiz.Questions[i].Answers[j].QuestionID = quiz.Questions[i].ID
		}
	}
	m.quizzes[quiz.ID] = *quiz
	return nil
}

func (m *memRepo) CreateResult(ctx context.Context, result *models.QuizResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failResult != nil {
		return m.failResult
	}
	result.ID = m.id()
	for i := range result.Answers {
		result.Answers[i].ID = m.id()
		result.Answers[i].ResultID = result.ID
	}
	m.results = append(m.results, *result)
	return nil
}

func (m *memRepo) filterResults(keep func(models.QuizResult) bool) []models.QuizResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QuizResult
	for _, r := range m.results {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memRepo) ResultsFor(ctx context.Context, studentID, quizID uint) ([]models.QuizResult, error) {
	return m.filterResults(func(r models.QuizResult) bool {
		return r.StudentID == studentID && r.QuizID == quizID
	}), nil
}

func (m *memRepo) ResultsForStudent(ctx context.Context, studentID uint) ([]models.QuizResult, error) {
	return m.filterResults(func(r models.QuizResult) bool { return r.StudentID == studentID }), nil
}

func (m *memRepo) ResultsForQuizzes(ctx context.Context, quizIDs []uint) ([]models.QuizResult, error) {
	want := make(map[uint]bool, len(quizIDs))
	for _, id := range quizIDs {
		want[id] = true
	}
	return m.filterResults(func(r models.QuizResult) bool { return want[r.QuizID] }), nil
}

type memCache struct {
	mu      sync.Mutex
	quizzes map[uint]models.Quiz
	sets    int
}

func newMemCache() *memCache {
	return &memCache{quizzes: make(map[uint]models.Quiz)}
}

var errCacheMiss = errors.New("cache miss")

func (c *memCache) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quizzes[quizID]
	if !ok {
		return nil, errCacheMiss
	}
	return &q, nil
}

func (c *memCache) SetQuiz(ctx context.Context, quiz *models.Quiz) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.quizzes[quiz.ID] = *quiz
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	rooms []string
	kinds []string
}

func (r *recordingNotifier) BroadcastMessage(room string, messageType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, room)
	r.kinds = append(r.kinds, messageType)
}

// fakeGate unlocks the listed student/quiz pairs.
type fakeGate struct {
	open map[[2]uint]bool
	err  error
}

func unlocked(pairs ...[2]uint) *fakeGate {
	g := &fakeGate{open: make(map[[2]uint]bool)}
	for _, p := range pairs {
		g.open[p] = true
	}
	return g
}

func (g *fakeGate) HasQuizAccess(ctx context.Context, studentID, quizID uint) (bool, error) {
	return g.open[[2]uint{studentID, quizID}], g.err
}
