package otp

import (
	"net/http"
	"time"

	"quizgate/internal/apperr"
	"quizgate/internal/auth"
	"quizgate/internal/httpx"
	"quizgate/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type GenerateBody struct {
	QuizID        uint `json:"quizId" validate:"required"`
	ExpiryMinutes int  `json:"expiryMinutes"`
	MaxUsage      *int `json:"maxUsage"`
}

type ValidateBody struct {
	Code string `json:"code" validate:"required"`
}

type GenerateResponse struct {
	ID        uint      `json:"id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	MaxUsage  *int      `json:"maxUsage,omitempty"`
}

type ValidateResponse struct {
	OTPID            uint           `json:"otpId"`
	ExpiresAt        time.Time      `json:"expiresAt"`
	FirstAccess      bool           `json:"firstAccess"`
	PreviousAccessAt *time.Time     `json:"previousAccessAt,omitempty"`
	Quiz             models.QuizDTO `json:"quiz"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}

	var body GenerateBody
	if err := httpx.Decode(r, &body); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	otp, err := h.service.Generate(r.Context(), teacherID, GenerateRequest{
		QuizID:        body.QuizID,
		ExpiryMinutes: body.ExpiryMinutes,
		MaxUsage:      body.MaxUsage,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, GenerateResponse{
		ID:        otp.ID,
		Code:      otp.Code,
		ExpiresAt: otp.ExpiresAt,
		MaxUsage:  otp.MaxUsage,
	})
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	studentID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}

	var body ValidateBody
	if err := httpx.Decode(r, &body); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	redemption, err := h.service.ValidateAndConsume(r.Context(), body.Code, studentID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ValidateResponse{
		OTPID:            redemption.OTP.ID,
		ExpiresAt:        redemption.OTP.ExpiresAt,
		FirstAccess:      redemption.FirstAccess,
		PreviousAccessAt: redemption.PreviousAccessAt,
		Quiz:             redemption.Quiz,
	})
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}
	otpID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	otp, err := h.service.Revoke(r.Context(), teacherID, otpID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	count, err := h.service.AccessLog().CountForOtp(r.Context(), otp.ID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, otp.ToDTO(h.service.now(), count))
}

func (h *Handler) ListForQuiz(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("missing identity"))
		return
	}
	quizID, err := httpx.PathID(r, "quizId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	otps, err := h.service.ListForQuiz(r.Context(), teacherID, quizID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, otps)
}

func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.SweepExpired(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"affected": n})
}

func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.PurgeExpired(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"affected": n})
}
