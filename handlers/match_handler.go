package handlers

import (
	"net/http"
	"strconv"

	"errors"

	"github.com/rpx-gg/tournament-service/middleware"
	"github.com/rpx-gg/tournament-service/models"
	"github.com/rpx-gg/tournament-service/services"
)

type MatchHandler struct {
	matchService   services.MatchService
	bracketService services.BracketService
}

func NewMatchHandler(ms services.MatchService, bs services.BracketService) *MatchHandler {
	return &MatchHandler{
		matchService:   ms,
		bracketService: bs,
	}
}

// GenerateBracketHandler обрабатывает POST /tournaments/{tournamentID}/bracket
func (h *MatchHandler) GenerateBracketHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to generate bracket")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.bracketService.GenerateAndActivate(r.Context(), tournamentID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /tournaments/{tournamentID}/matches
func (h *MatchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	query := r.URL.Query()

	var round *int
	if roundStr := query.Get("round"); roundStr != "" {
		rd, err := strconv.Atoi(roundStr)
		if err != nil || rd < 1 {
			badRequestResponse(w, r, errors.New("invalid round query parameter"))
			return
		}
		round = &rd
	}

	var status *models.MatchStatus
	if statusStr := query.Get("status"); statusStr != "" {
		s := models.MatchStatus(statusStr)
		status = &s
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID, round, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReportResultHandler обрабатывает POST /tournaments/{tournamentID}/matches/{matchID}/result
func (h *MatchHandler) ReportResultHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to report result")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Score1              int `json:"score1"`
		Score2              int `json:"score2"`
		WinnerParticipantID int `json:"winner_participant_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	output, err := h.matchService.ReportResult(r.Context(), services.ReportResultInput{
		TournamentID:        tournamentID,
		MatchID:             matchID,
		ReporterID:          currentUserID,
		Score1:              input.Score1,
		Score2:              input.Score2,
		WinnerParticipantID: input.WinnerParticipantID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{
		"match":             output.Match,
		"tournament_status": output.TournamentStatus,
	}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartMatchHandler обрабатывает POST /tournaments/{tournamentID}/matches/{matchID}/start
func (h *MatchHandler) StartMatchHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.StartMatch(r.Context(), currentUserID, tournamentID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetRoomCredentialsHandler обрабатывает PUT /tournaments/{tournamentID}/matches/{matchID}/room
func (h *MatchHandler) SetRoomCredentialsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		RoomID       *string `json:"room_id"`
		RoomPassword *string `json:"room_password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.SetRoomCredentials(r.Context(), currentUserID, tournamentID, matchID, input.RoomID, input.RoomPassword); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
