package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/export"
	"kids-meal-calendar/internal/meal"
	"kids-meal-calendar/internal/metrics"
	"kids-meal-calendar/internal/summary"
)

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	childID, err := s.childID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	month, err := s.month(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.app.Render(r.Context(), childID, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type saveMealRequest struct {
	Description string `json:"description"`
}

type saveMealResponse struct {
	Date  string     `json:"date"`
	Slot  meal.Slot  `json:"slot"`
	Meals meal.Index `json:"meals"`
}

// handleSaveMeal sets one calendar slot. An empty description clears it.
func (s *Server) handleSaveMeal(w http.ResponseWriter, r *http.Request) {
	childID, err := s.childID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req saveMealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	slot, err := meal.ParseSlot(r.PathValue("slot"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	date := r.PathValue("date")
	idx, err := s.app.SaveMeal(r.Context(), childID, date, slot, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveMealResponse{Date: date, Slot: slot, Meals: idx})
}

type summaryResponse struct {
	Month      string `json:"month"`
	HTML       string `json:"html"`
	Markdown   string `json:"markdown"`
	Disclaimer string `json:"disclaimer,omitempty"`
	Fallback   bool   `json:"fallback"`
	Shared     bool   `json:"shared,omitempty"`
}

func newSummaryResponse(month string, res summary.Result) summaryResponse {
	return summaryResponse{
		Month:      month,
		HTML:       res.Document.HTML(),
		Markdown:   res.Document.Markdown(),
		Disclaimer: res.Disclaimer,
		Fallback:   res.Fallback,
		Shared:     res.Shared,
	}
}

// handleRequestSummary generates the monthly summary. Generation failures
// still answer 200 with the fallback message.
func (s *Server) handleRequestSummary(w http.ResponseWriter, r *http.Request) {
	childID, err := s.childID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	month, err := s.month(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.app.RequestMonthlySummary(r.Context(), childID, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(calendar.MonthKey(month), res))
}

func (s *Server) handleLatestSummary(w http.ResponseWriter, r *http.Request) {
	childID, err := s.childID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	month, err := s.month(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.app.LatestSummary(r.Context(), childID, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(calendar.MonthKey(month), res))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	childID, err := s.childID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	month, err := s.month(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	buf, name, err := s.app.Export(r.Context(), childID, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type importRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleImportMenu(w http.ResponseWriter, r *http.Request) {
	childID, err := s.childID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req importRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		s.writeError(w, r, fmt.Errorf("%w: url must be an absolute http(s) address", errBadRequest))
		return
	}

	res, err := s.app.ImportMenu(r.Context(), childID, u.String())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported": res.Imported,
		"skipped":  res.Skipped,
		"meals":    res.Index,
	})
}

type metricsResponse struct {
	Usage  []metrics.DailyUsage `json:"usage"`
	System metrics.SysHealth    `json:"system"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, fmt.Errorf("%w: invalid days %q", errBadRequest, v))
			return
		}
		days = n
	}

	usage, err := s.app.UsageReport(r.Context(), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metricsResponse{Usage: usage, System: metrics.GetSysHealth(s.dataPath)})
}
