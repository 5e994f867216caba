package quiz

import (
	"net/http"

	"quizgate/internal/apperr"
	"quizgate/internal/auth"
	"quizgate/internal/httpx"
	"quizgate/internal/models"
)

type Handler struct {
	service *Service
	grader  *Grader
	tracker *Tracker
	stats   *Stats
}

func NewHandler(service *Service, grader *Grader, tracker *Tracker, stats *Stats) *Handler {
	return &Handler{
		service: service,
		grader:  grader,
		tracker: tracker,
		stats:   stats,
	}
}

type CreatePlannerRequest struct {
	Title string `json:"title" validate:"required"`
}

type CreateQuizRequest struct {
	LessonPlannerID uint                    `json:"lessonPlannerId" validate:"required"`
	Title           string                  `json:"title" validate:"required"`
	Description     string                  `json:"description"`
	Questions       []CreateQuestionRequest `json:"questions" validate:"dive"`
}

type CreateQuestionRequest struct {
	Content string                `json:"content" validate:"required"`
	Answers []CreateAnswerRequest `json:"answers" validate:"min=1,dive"`
}

type CreateAnswerRequest struct {
	Content   string `json:"content" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type SubmitRequest struct {
	Answers []Submission `json:"answers" validate:"dive"`
}

func (h *Handler) CreatePlanner(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}

	var req CreatePlannerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	planner, err := h.service.CreatePlanner(r.Context(), teacherID, req.Title)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, planner)
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}

	var req CreateQuizRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	quiz := models.Quiz{
		LessonPlannerID: req.LessonPlannerID,
		Title:           req.Title,
		Description:     req.Description,
		Questions:       make([]models.Question, len(req.Questions)),
	}
	for i, q := range req.Questions {
		quiz.Questions[i] = models.Question{Content: q.Content, Answers: make([]models.Answer, len(q.Answers))}
		for j, a := range q.Answers {
			quiz.Questions[i].Answers[j] = models.Answer{Content: a.Content, IsCorrect: a.IsCorrect}
		}
	}

	if err := h.service.CreateQuiz(r.Context(), teacherID, &quiz); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, quiz.ToDTO(true))
}

func (h *Handler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	studentID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}
	quizID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if _, err := h.service.GetQuiz(r.Context(), quizID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	result, err := h.tracker.StartAttempt(r.Context(), studentID, quizID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	studentID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}
	quizID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req SubmitRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	result, err := h.grader.Grade(r.Context(), quizID, studentID, req.Answers)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}
	quizID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	stats, err := h.stats.QuizStatistics(r.Context(), quizID, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	studentID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}

	history, err := h.tracker.History(r.Context(), studentID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, history)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}

	summary, err := h.stats.TeacherDashboardSummary(r.Context(), teacherID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary)
}
