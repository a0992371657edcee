package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"staysync/internal/export"
	"staysync/internal/models"
	"staysync/internal/service"
)

const (
	reportTimeout    = 60 * time.Second
	calendarsTimeout = 20 * time.Second
)

type exportRequest struct {
	PropertyID int64  `json:"property_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

type calendarEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *HTTPServer) handleGetGoogleConfig(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Settings.RemoteSettings(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"calendar_id":      settings.CalendarID,
		"credentials_path": settings.CredentialsPath,
		"complete":         settings.Complete(),
	})
}

func (s *HTTPServer) handleSaveGoogleConfig(w http.ResponseWriter, r *http.Request) {
	var body models.RemoteSettings
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.svc.Settings.SaveRemoteSettings(r.Context(), body); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if s.svc.Sync != nil {
		s.svc.Sync.ForceSync()
	}
	s.handleGetGoogleConfig(w, r)
}

func (s *HTTPServer) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	if s.svc.Calendars == nil {
		writeError(w, http.StatusServiceUnavailable, "remote calendar is not configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), calendarsTimeout)
	defer cancel()

	calendars, err := s.svc.Calendars.ListCalendars(ctx)
	if errors.Is(err, service.ErrNoCredentials) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("list calendars failed")
		writeError(w, http.StatusBadGateway, "failed to list calendars")
		return
	}

	out := make([]calendarEntry, 0, len(calendars))
	for name, id := range calendars {
		out = append(out, calendarEntry{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	writeJSON(w, http.StatusOK, map[string]any{"calendars": out})
}

func (s *HTTPServer) handleForceSync(w http.ResponseWriter, _ *http.Request) {
	if s.svc.Sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is disabled")
		return
	}
	queued := s.svc.Sync.ForceSync()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued": queued,
		"status": s.svc.Sync.LastStatus(),
	})
}

// handleSyncStatus prefers the in-process worker and falls back to the shared
// status store when the worker runs elsewhere.
func (s *HTTPServer) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.svc.Sync != nil {
		writeJSON(w, http.StatusOK, s.svc.Sync.LastStatus())
		return
	}
	if s.svc.Status == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is disabled")
		return
	}
	st, err := s.svc.Status.LastStatus(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "no sync status yet")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *HTTPServer) handleICS(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	property, err := s.svc.Properties.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	now := s.svc.Clock.Now()
	today := models.Day(now)
	list, err := s.svc.Bookings.ListReservations(r.Context(), id, today.AddDate(0, -3, 0), today.AddDate(1, 0, 0))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=property-%d.ics", id))
	if err := export.WriteICS(w, property, list, now); err != nil {
		s.logger.Error().Err(err).Int64("property_id", id).Msg("failed to write ics feed")
	}
}

func (s *HTTPServer) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	report, ok := s.buildReport(w, r)
	if !ok {
		return
	}
	if s.svc.ExportDir == "" {
		writeError(w, http.StatusServiceUnavailable, "exports path is not configured")
		return
	}
	path, err := export.SaveWorkbook(s.svc.ExportDir, report)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"path":         path,
		"reservations": len(report.Reservations),
	})
}

func (s *HTTPServer) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.svc.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "reports spreadsheet is not configured")
		return
	}
	report, ok := s.buildReport(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()
	if err := s.svc.Reports.ReplaceReservationsSheet(ctx, report.Reservations); err != nil {
		s.logger.Warn().Err(err).Msg("sheets report failed")
		writeError(w, http.StatusBadGateway, "failed to update spreadsheet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": len(report.Reservations)})
}

// buildReport reads the export period from the body and loads everything the
// exports need. It writes the error response itself.
func (s *HTTPServer) buildReport(w http.ResponseWriter, r *http.Request) (export.Report, bool) {
	var body exportRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return export.Report{}, false
	}

	today := models.Day(s.svc.Clock.Now())
	from, to := today.AddDate(0, 0, -today.Day()+1), today.AddDate(0, 1, -today.Day()+1)
	var err error
	if body.From != "" {
		if from, err = models.ParseDate(body.From); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from; expected YYYY-MM-DD")
			return export.Report{}, false
		}
	}
	if body.To != "" {
		if to, err = models.ParseDate(body.To); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to; expected YYYY-MM-DD")
			return export.Report{}, false
		}
	}
	if !to.After(from) {
		writeError(w, http.StatusBadRequest, "to must be after from")
		return export.Report{}, false
	}

	props, err := s.svc.Properties.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return export.Report{}, false
	}
	names := make(map[int64]string, len(props))
	for _, p := range props {
		names[p.ID] = p.Name
	}

	list, err := s.svc.Bookings.ListReservations(r.Context(), body.PropertyID, from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return export.Report{}, false
	}

	report := export.Report{From: from, To: to, Properties: names, Reservations: list}
	if body.PropertyID != 0 {
		stats, err := s.svc.Stats.Year(r.Context(), body.PropertyID, from.Year())
		if err != nil {
			s.writeServiceError(w, err)
			return export.Report{}, false
		}
		report.Stats = stats
	}
	return report, true
}
