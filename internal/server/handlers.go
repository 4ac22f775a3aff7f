package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"net/http"
	"strconv"
	"time"

	"ai-fitness-planner/internal/actions"
	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/llm"
	"ai-fitness-planner/internal/logging"
	"ai-fitness-planner/internal/planner"
	"ai-fitness-planner/internal/render"
	"ai-fitness-planner/internal/segment"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal response", logging.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithErr maps an application error to its status code.
func (s *Server) respondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	code, message := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", code, logging.Error(err))
	}
	var rateErr *llm.RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rateErr.RetryAfter.Seconds()))))
	}
	s.respondWithError(w, code, message)
}

func statusFor(err error) (int, string) {
	var (
		cfgErr   *config.Error
		rateErr  *llm.RateLimitError
		authErr  *llm.AuthError
		validErr *planner.ValidationError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable, cfgErr.Error()
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, rateErr.Error()
	case errors.As(err, &authErr):
		return http.StatusBadGateway, authErr.Error()
	case errors.As(err, &validErr):
		return http.StatusBadRequest, validErr.Error()
	case errors.Is(err, planner.ErrNotFound), errors.Is(err, app.ErrNoAction), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, app.ErrNotCurrent),
		errors.Is(err, actions.ErrImageInProgress),
		errors.Is(err, actions.ErrAlreadyPlaying),
		errors.Is(err, actions.ErrNotPlaying),
		errors.Is(err, actions.ErrSuperseded):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrInvalidExportToken):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The request timed out. Please try again."
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.RequestTimeout)
}

// --- Plans ---

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var details planner.UserDetails
	if err := decodeJSON(w, r, &details); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()
	b, err := s.svc.GeneratePlan(ctx, details)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	s.hub.Broadcast(Message{Action: "plan_created", Data: b, Source: "plans"})
	s.respondWithJSON(w, http.StatusCreated, b)
}

func (s *Server) latestPlan(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.LatestPlan(r.Context())
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, b)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Plan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, b)
}

func parseCategory(raw string) (segment.Category, error) {
	c := segment.Category(raw)
	if !c.Valid() {
		return "", fmt.Errorf("category must be one of workout, diet or motivation")
	}
	return c, nil
}

func (s *Server) planBlocks(w http.ResponseWriter, r *http.Request) {
	category, err := parseCategory(r.URL.Query().Get("category"))
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	blocks, err := s.svc.Blocks(r.Context(), chi.URLParam(r, "planID"), category)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"category": category, "blocks": blocks})
}

func (s *Server) regeneratePlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string `json:"category"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	category, err := parseCategory(body.Category)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()
	b, err := s.svc.RegeneratePlan(ctx, chi.URLParam(r, "planID"), category)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	s.hub.Broadcast(Message{Action: "plan_regenerated", Data: b, Source: "plans"})
	s.respondWithJSON(w, http.StatusOK, b)
}

// --- Export ---

func (s *Server) writePDF(w http.ResponseWriter, r *http.Request, id string) {
	// Render fully before writing headers so failures can still be reported.
	var buf bytes.Buffer
	if err := s.svc.ExportPDF(r.Context(), id, &buf); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, ExportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) exportPlan(w http.ResponseWriter, r *http.Request) {
	s.writePDF(w, r, chi.URLParam(r, "planID"))
}

func (s *Server) exportLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "planID")
	if _, err := s.svc.Plan(r.Context(), id); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	token, expires, err := s.signer.Sign(id, s.opts.ExportLinkTTL)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusCreated, map[string]any{
		"url":        "/api/v1/exports/" + token,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

func (s *Server) signedExport(w http.ResponseWriter, r *http.Request) {
	id, err := s.signer.Verify(chi.URLParam(r, "token"))
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	s.writePDF(w, r, id)
}

// --- Side channels ---

func actionKey(r *http.Request) render.Key {
	return render.Key(chi.URLParam(r, "key"))
}

func (s *Server) generateImage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	img, err := s.svc.GenerateImage(ctx, chi.URLParam(r, "planID"), actionKey(r))
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	if img.Status == render.ImageFailed {
		s.respondWithError(w, http.StatusBadGateway, img.Reason)
		return
	}
	s.respondWithJSON(w, http.StatusOK, img)
}

func (s *Server) listen(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	sess, err := s.svc.Listen(ctx, chi.URLParam(r, "planID"), actionKey(r))
	if err != nil {
		code, message := statusFor(err)
		if code == http.StatusInternalServerError {
			// Unclassified errors come from the speech backend or the player.
			s.logger.Warn("listen failed", "key", actionKey(r), logging.Error(err))
			code, message = http.StatusBadGateway, err.Error()
		}
		s.respondWithError(w, code, message)
		return
	}
	s.respondWithJSON(w, http.StatusOK, sess)
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Stop(chi.URLParam(r, "planID"), actionKey(r)); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ended(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Error string `json:"error"`
	}
	if err := decodeJSON(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.svc.AudioFinished(chi.URLParam(r, "planID"), actionKey(r), body.Error); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.svc.State())
}

var audioTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"aiff": "audio/aiff",
}

func (s *Server) audio(w http.ResponseWriter, r *http.Request) {
	data, format, err := s.svc.Clip(chi.URLParam(r, "clipID"))
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	contentType, ok := audioTypes[format]
	if !ok {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// --- Streak, content and metrics ---

func (s *Server) streak(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Streak(r.Context())
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, summary)
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.CheckIn(r.Context())
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	s.hub.Broadcast(Message{Action: "streak_updated", Data: summary, Source: "streak"})
	s.respondWithJSON(w, http.StatusOK, summary)
}

func (s *Server) quotes(w http.ResponseWriter, r *http.Request) {
	catalog := s.svc.Catalog()
	index, quote := catalog.QuoteAt(s.started, time.Now())
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"current":          quote,
		"index":            index,
		"interval_seconds": catalog.QuoteInterval.Seconds(),
		"quotes":           catalog.Quotes,
	})
}

func (s *Server) reads(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.svc.Reads(r.Context()))
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondWithError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	usage, err := s.svc.Usage(r.Context(), days)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"usage":  usage,
		"health": s.svc.Health(r.Context()),
	})
}

// --- WebSockets ---

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	s.hub.Add(conn)
	defer s.hub.Remove(conn)

	if err := s.hub.Send(conn, Message{Action: "state", Data: s.svc.State(), Source: "actions"}); err != nil {
		return
	}
	// Clients only listen; reading detects when they go away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
