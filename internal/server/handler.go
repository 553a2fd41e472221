package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/async"
	"github.com/joseph-ayodele/challenge-tracker/internal/challenges"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/repository"
	"github.com/joseph-ayodele/challenge-tracker/internal/utils"
)

const (
	maxBodyBytes = 1 << 20
	maxListLimit = 100
)

// SubmissionQueue answers a submission, possibly with a Pending placeholder. *async.ProcessorQueue implements it.
type SubmissionQueue interface {
	Submit(ctx context.Context, sub entity.Submission) entity.Outcome
}

// ChallengeService is the admin and query surface. *challenges.Service implements it.
type ChallengeService interface {
	Start(ctx context.Context, req challenges.StartRequest) (*entity.Challenge, error)
	Stop(ctx context.Context, channel string) (*entity.Challenge, error)
	Status(ctx context.Context, channel string) (*entity.ChallengeStatus, error)
	Leaderboard(ctx context.Context, channel string, limit int) (*challenges.Leaderboard, error)
	Recent(ctx context.Context, channel, userID string, limit int) ([]*entity.Result, error)
	Invalidate(ctx context.Context, req challenges.InvalidateRequest) (*entity.Result, error)
}

// Exporter builds the xlsx workbook for a channel. *export.Service implements it.
type Exporter interface {
	ExportChallengeXLSX(ctx context.Context, channel string) ([]byte, error)
}

// Pinger reports database reachability. *repository.DB implements it.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

type Handler struct {
	queue      SubmissionQueue
	challenges ChallengeService
	exporter   Exporter
	db         Pinger
	botToken   string
	logger     *slog.Logger
}

// NewHandler wires the HTTP handlers. botToken authorizes attachment downloads
// for submissions that carry no token of their own.
func NewHandler(queue SubmissionQueue, challenges ChallengeService, exporter Exporter, db Pinger, botToken string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{queue: queue, challenges: challenges, exporter: exporter, db: db, botToken: botToken, logger: logger}
}

type attachmentRequest struct {
	URL       string `json:"url"`
	AuthToken string `json:"auth_token"`
	Name      string `json:"name"`
	MimeType  string `json:"mimetype"`
}

type submissionRequest struct {
	UserID           string              `json:"user_id"`
	Text             string              `json:"text"`
	Attachments      []attachmentRequest `json:"attachments"`
	ChallengeChannel string              `json:"challenge_channel"`
	Timestamp        string              `json:"timestamp"`
}

func (h *Handler) toSubmission(req submissionRequest) entity.Submission {
	sub := entity.Submission{
		UserID:           strings.TrimSpace(req.UserID),
		Text:             req.Text,
		ChallengeChannel: strings.TrimSpace(req.ChallengeChannel),
		Timestamp:        strings.TrimSpace(req.Timestamp),
	}
	for _, a := range req.Attachments {
		token := a.AuthToken
		if token == "" {
			token = h.botToken
		}
		sub.Attachments = append(sub.Attachments, entity.ImageRef{URL: a.URL, AuthToken: token, Name: a.Name, MimeType: a.MimeType})
	}
	return sub
}

// outcomeStatus is 202 for a placeholder, 400/404 for requests the pipeline never ran, 200 otherwise.
func outcomeStatus(out entity.Outcome) int {
	switch {
	case out.Status == constants.StatusPending:
		return http.StatusAccepted
	case out.ErrorKind == common.KindInvalidSubmission:
		return http.StatusBadRequest
	case out.ErrorKind == common.KindNoActiveChallenge:
		return http.StatusNotFound
	case out.ErrorKind == common.KindPersistence:
		return http.StatusInternalServerError
	case errors.Is(out.Err, async.ErrQueueClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromRequest(r))
		return
	}
	out := h.queue.Submit(r.Context(), h.toSubmission(req))
	writeJSON(w, outcomeStatus(out), out)
}

func (h *Handler) startChallenge(w http.ResponseWriter, r *http.Request) {
	var req challenges.StartRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromRequest(r))
		return
	}
	req.Channel = chi.URLParam(r, "channel")
	ch, err := h.challenges.Start(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := fmt.Sprintf("✅ %s challenge started from %s to %s.", titleCase(string(ch.ActivityType)),
		ch.StartDate.Format("2006-01-02"), ch.EndDate.Format("2006-01-02"))
	writeSuccess(w, http.StatusCreated, msg, ch)
}

func (h *Handler) stopChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := h.challenges.Stop(r.Context(), chi.URLParam(r, "channel"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "✅ Challenge stopped.", ch)
}

func (h *Handler) challengeStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.challenges.Status(r.Context(), chi.URLParam(r, "channel"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", st)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.ParseLimit(r.URL.Query().Get("limit"), repository.DefaultLeaderboardLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromRequest(r))
		return
	}
	board, err := h.challenges.Leaderboard(r.Context(), chi.URLParam(r, "channel"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := ""
	if len(board.Entries) == 0 {
		msg = "🏆 No submissions yet."
	}
	writeSuccess(w, http.StatusOK, msg, board)
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.ParseLimit(r.URL.Query().Get("limit"), repository.DefaultRecentLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromRequest(r))
		return
	}
	recs, err := h.challenges.Recent(r.Context(), chi.URLParam(r, "channel"), r.URL.Query().Get("user"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []*entity.Result{}
	}
	writeSuccess(w, http.StatusOK, "", recs)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	data, err := h.exporter.ExportChallengeXLSX(r.Context(), channel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := fmt.Sprintf("challenge_%s_%s.xlsx", channel, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	var req challenges.InvalidateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromRequest(r))
		return
	}
	req.ResultID = chi.URLParam(r, "id")
	res, err := h.challenges.Invalidate(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "result invalidated", res)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.HealthCheck(r.Context(), 2*time.Second); err != nil {
			writeError(w, http.StatusServiceUnavailable, "db_unavailable", err.Error(), requestIDFromRequest(r))
			return
		}
	}
	writeSuccess(w, http.StatusOK, "ok", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("http.handler.failed", "path", r.URL.Path, "req_id", requestIDFromRequest(r), "error", err)
	}
	writeError(w, status, code, errorMessage(err), requestIDFromRequest(r))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}
