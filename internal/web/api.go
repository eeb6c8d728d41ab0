package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cniweb/Hackathon2025/internal/alerts"
	"github.com/cniweb/Hackathon2025/internal/gamification"
	"github.com/cniweb/Hackathon2025/internal/hierarchy"
	"github.com/cniweb/Hackathon2025/internal/insights"
	"github.com/cniweb/Hackathon2025/internal/status"
)

// SelectionJSON is the current selection with its display names.
type SelectionJSON struct {
	Selection hierarchy.Selection `json:"selection"`
	Path      hierarchy.Path      `json:"path"`
}

// SelectionRequest changes one level of the selection.
type SelectionRequest struct {
	Level string `json:"level"`
	ID    string `json:"id"`
}

func (s *Server) selectionJSON() SelectionJSON {
	sel := s.deps.Selection.Selection()
	return SelectionJSON{Selection: sel, Path: s.deps.Selection.Tree().Describe(sel)}
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Selection.Tree())
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.selectionJSON())
}

func (s *Server) handlePutSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode selection: %w", err))
		return
	}
	level, err := hierarchy.ParseLevel(req.Level)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.deps.Selection.Set(level, req.ID); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out := s.selectionJSON()
	s.deps.Tracker.SetSelection(out.Selection, out.Path)
	s.log.Info("selection changed",
		slog.String("level", string(level)),
		slog.String("id", req.ID),
		slog.String("path", status.PathString(s.deps.Tracker.Snapshot())))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insights.SimulatedDay(s.deps.Rand))
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insights.AvailableMonths())
}

// HistoryJSON is an imported dataset.
type HistoryJSON struct {
	Month string           `json:"month"`
	File  string           `json:"file"`
	View  insights.View    `json:"view"`
	Data  []insights.Point `json:"data"`
}

func monthParam(r *http.Request) string {
	if m := r.URL.Query().Get("month"); m != "" {
		return m
	}
	return insights.AvailableMonths()[0].ID
}

func viewParam(r *http.Request) insights.View {
	if v := r.URL.Query().Get("view"); v != "" {
		return insights.View(v)
	}
	return insights.ViewDay
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	month, view := monthParam(r), viewParam(r)
	data, err := insights.History(month, view, s.deps.Rand)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if levels, err := s.deps.Game.CompleteQuest(gamification.QuestDataDetective); err == nil && levels > 0 {
		s.log.Info("level up", slog.Int("level", s.deps.Game.Profile().Level))
	}
	writeJSON(w, http.StatusOK, HistoryJSON{
		Month: month,
		File:  insights.DatasetFile(month),
		View:  view,
		Data:  data,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	mode := insights.CompareMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = insights.CompareLocations
	}
	data, err := insights.Compare(monthParam(r), mode, s.deps.Rand)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insights.Forecast(s.deps.Rand))
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insights.Heatmap(s.deps.Rand))
}

// handleCost prices the simulated day, or a history dataset when a month
// is given.
func (s *Server) handleCost(w http.ResponseWriter, r *http.Request) {
	var points []insights.Point
	if r.URL.Query().Get("month") == "" {
		points = insights.SimulatedDay(s.deps.Rand)
	} else {
		var err error
		points, err = insights.History(monthParam(r), viewParam(r), s.deps.Rand)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, insights.CostForecast(points, s.deps.Price))
}

// ProfilesJSON holds the sinus and RMS comparison profiles.
type ProfilesJSON struct {
	Sinus [][]float64 `json:"sinus"`
	RMS   [][]float64 `json:"rms"`
}

const defaultProfilePoints = 100

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	points := defaultProfilePoints
	if p := r.URL.Query().Get("points"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 10000 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid points %q", p))
			return
		}
		points = n
	}
	out := ProfilesJSON{
		Sinus: [][]float64{
			insights.SinusProfile(points, 0, s.deps.Rand),
			insights.SinusProfile(points, 0.5, s.deps.Rand),
			insights.SinusProfile(points, 1.0, s.deps.Rand),
		},
		RMS: [][]float64{
			insights.RMSProfile(points, 0, s.deps.Rand),
			insights.RMSProfile(points, 20, s.deps.Rand),
			insights.RMSProfile(points, 45, s.deps.Rand),
		},
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePeaks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insights.PeakConsumers())
}

// DrillDownJSON is a consumer's hourly profile.
type DrillDownJSON struct {
	Consumer insights.PeakConsumer `json:"consumer"`
	Hours    []insights.HourValue  `json:"hours"`
}

func (s *Server) handleDrillDown(w http.ResponseWriter, r *http.Request) {
	c, hours, err := insights.DrillDownByName(mux.Vars(r)["name"], s.deps.Rand)
	if errors.Is(err, insights.ErrUnknownConsumer) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, DrillDownJSON{Consumer: c, Hours: hours})
}

// AlertsJSON lists recent alerts, newest first.
type AlertsJSON struct {
	Total  int            `json:"total"`
	Alerts []alerts.Alert `json:"alerts"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	list := s.deps.Alerts.List()
	if list == nil {
		list = []alerts.Alert{}
	}
	writeJSON(w, http.StatusOK, AlertsJSON{Total: s.deps.Alerts.Total(), Alerts: list})
}

func (s *Server) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	s.deps.Alerts.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGamification(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Game.Snapshot())
}

// ProgressJSON reports the effect of an action on the profile.
type ProgressJSON struct {
	LevelsGained int                  `json:"levelsGained,omitempty"`
	BonusAwarded bool                 `json:"bonusAwarded,omitempty"`
	Profile      gamification.Profile `json:"profile"`
}

func (s *Server) handleCompleteQuest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	levels, err := s.deps.Game.CompleteQuest(id)
	if errors.Is(err, gamification.ErrUnknownQuest) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, ProgressJSON{LevelsGained: levels, Profile: s.deps.Game.Profile()})
}

func (s *Server) handleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	awarded := s.deps.Game.CompleteProfile()
	writeJSON(w, http.StatusOK, ProgressJSON{BonusAwarded: awarded, Profile: s.deps.Game.Profile()})
}
