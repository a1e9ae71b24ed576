package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"kids-meal-calendar/internal/app"
	"kids-meal-calendar/internal/auth"
	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/child"
	"kids-meal-calendar/internal/meal"
	"kids-meal-calendar/internal/summary"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, meal.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		status = http.StatusForbidden
	case errors.Is(err, meal.ErrNotFound), errors.Is(err, child.ErrNotFound), errors.Is(err, summary.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, meal.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, app.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, r.PathValue(name))
	}
	return id, nil
}

// childID parses {childID} and checks the caller may access it.
func (s *Server) childID(r *http.Request) (int64, error) {
	id, err := pathID(r, "childID")
	if err != nil {
		return 0, err
	}
	if err := s.authorize(r, id); err != nil {
		return 0, err
	}
	return id, nil
}

// month reads ?month=YYYY-MM, defaulting to the current month.
func (s *Server) month(r *http.Request) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return calendar.MonthOf(s.app.Today()), nil
	}
	m, err := calendar.ParseMonth(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return m, nil
}

func optionalDate(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", nil
	}
	if _, err := meal.ParseDate(v); err != nil {
		return "", err
	}
	return v, nil
}

var errDescriptionRequired = fmt.Errorf("%w: description is required", meal.ErrInvalid)
