package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/moodmap/internal/auth"
	"github.com/sakif/moodmap/internal/model"
	"github.com/sakif/moodmap/internal/service"
)

// MoodHandler serves mood submission and the district rollup.
type MoodHandler struct {
	moods    *service.MoodService
	validate *requestValidator
	logger   *slog.Logger
}

func NewMoodHandler(moods *service.MoodService, logger *slog.Logger) *MoodHandler {
	return &MoodHandler{
		moods:    moods,
		validate: newRequestValidator(),
		logger:   logger,
	}
}

type submitMoodRequest struct {
	District string `json:"district" validate:"required"`
	Mood     string `json:"mood"     validate:"required"`
}

// SubmitMoodResponse is the body of a successful submission.
type SubmitMoodResponse struct {
	Message string                `json:"message"`
	Mood    *model.MoodSubmission `json:"mood"`
}

// HandleSubmit records the caller's one-time mood.
//
// HTTP: POST /api/moods (RequireAuth) {"district", "mood"} → 201 SubmitMoodResponse
func (h *MoodHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req submitMoodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Validate(req, service.MsgMoodFieldsRequired); err != nil {
		writeError(w, err)
		return
	}

	submission, err := h.moods.Submit(r.Context(), userID, req.District, req.Mood)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitMoodResponse{
		Message: "Mood submitted successfully",
		Mood:    submission,
	})
}

// HandleList returns the dominant mood per district over the last 24 hours.
//
// HTTP: GET /api/moods → 200 [{"district", "mood", "count"}]
func (h *MoodHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	rollup, err := h.moods.DistrictMoods(r.Context())
	if err != nil {
		h.logger.Error("listing district moods failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rollup)
}
