package api

import (
	"net/http"
	"strings"
	"time"

	"staysync/internal/models"

	"github.com/shopspring/decimal"
)

type propertyRequest struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	CalendarID string `json:"calendar_id"`
}

type priceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type priceRangeRequest struct {
	Start string          `json:"start"`
	End   string          `json:"end"`
	Price decimal.Decimal `json:"price"`
}

type reservationRequest struct {
	PropertyID int64        `json:"property_id"`
	Guest      models.Guest `json:"guest"`
	CheckIn    string       `json:"check_in"`
	CheckOut   string       `json:"check_out"`
	Pax        int          `json:"pax"`
	Paid       bool         `json:"paid"`
}

func (req reservationRequest) toReservation() (*models.Reservation, error) {
	in, err := models.ParseDate(req.CheckIn)
	if err != nil {
		return nil, err
	}
	out, err := models.ParseDate(req.CheckOut)
	if err != nil {
		return nil, err
	}
	return &models.Reservation{
		PropertyID: req.PropertyID,
		Guest:      req.Guest,
		CheckIn:    in,
		CheckOut:   out,
		Pax:        req.Pax,
		Paid:       req.Paid,
	}, nil
}

// properties

func (s *HTTPServer) handleListProperties(w http.ResponseWriter, r *http.Request) {
	props, err := s.svc.Properties.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": props})
}

func (s *HTTPServer) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var body propertyRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p := &models.Property{Name: body.Name, URL: body.URL, CalendarID: strings.TrimSpace(body.CalendarID)}
	if err := s.svc.Properties.Create(r.Context(), p); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *HTTPServer) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.svc.Properties.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body propertyRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p := &models.Property{ID: id, Name: body.Name, URL: body.URL, CalendarID: strings.TrimSpace(body.CalendarID)}
	if err := s.svc.Properties.Update(r.Context(), p); err != nil {
		s.writeServiceError(w, err)
		return
	}
	updated, err := s.svc.Properties.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.Properties.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// prices

func (s *HTTPServer) handleListPrices(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tiers, err := s.svc.Pricing.Catalog(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": tiers})
}

func (s *HTTPServer) handleAddPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body priceRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tiers, err := s.svc.Pricing.AddPrice(r.Context(), id, body.Price)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": tiers})
}

func (s *HTTPServer) handleRemovePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	price, err := decimal.NewFromString(r.PathValue("price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}
	tiers, err := s.svc.Pricing.RemovePrice(r.Context(), id, price)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": tiers})
}

func (s *HTTPServer) handleApplyPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body priceRangeRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := models.ParseDate(body.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected YYYY-MM-DD")
		return
	}
	end, err := models.ParseDate(body.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end; expected YYYY-MM-DD")
		return
	}

	season, err := s.svc.Pricing.ApplyPrice(r.Context(), id, start, end, body.Price)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"property_id": id,
		"start":       models.FormatDate(start),
		"end":         models.FormatDate(end),
		"price":       body.Price,
		"season":      season,
	})
}

// calendar reads

func (s *HTTPServer) handleMonthView(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.svc.Clock.Now()
	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	view, err := s.svc.Bookings.MonthView(r.Context(), id, year, time.Month(month))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "month": month, "days": view})
}

func (s *HTTPServer) handleGetDay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := pathDate(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err := s.svc.Bookings.GetDay(r.Context(), id, date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *HTTPServer) handleReservationForDay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := pathDate(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.Bookings.ReservationForDay(r.Context(), id, date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleReservationByCheckOut(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := pathDate(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.Bookings.ReservationByCheckOut(r.Context(), id, date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// reservations

func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	propertyID, err := queryInt(r, "property_id", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	today := models.Day(s.svc.Clock.Now())
	from, err := queryDate(r, "from", today.AddDate(0, -1, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := queryDate(r, "to", today.AddDate(1, 0, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.svc.Bookings.ListReservations(r.Context(), int64(propertyID), from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.Reservation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": list})
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var body reservationRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := body.toReservation()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dates; expected YYYY-MM-DD")
		return
	}
	if err := s.svc.Bookings.CreateReservation(r.Context(), res); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.Bookings.GetReservation(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body reservationRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := body.toReservation()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dates; expected YYYY-MM-DD")
		return
	}
	res.ID = id
	if err := s.svc.Bookings.UpdateReservation(r.Context(), res); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.respondReservation(w, r, id)
}

func (s *HTTPServer) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.Bookings.CancelReservation(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handlePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Paid bool `json:"paid"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.svc.Bookings.UpdatePaymentStatus(r.Context(), id, body.Paid); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.respondReservation(w, r, id)
}

func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.Bookings.CompleteCheckIn(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.respondReservation(w, r, id)
}

func (s *HTTPServer) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var report models.CheckoutReport
	if err := decodeJSON(r, &report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.svc.Bookings.CompleteCheckOut(r.Context(), id, report); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.respondReservation(w, r, id)
}

func (s *HTTPServer) handleGetCheckoutReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.svc.Bookings.GetCheckoutReport(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) respondReservation(w http.ResponseWriter, r *http.Request, id int64) {
	res, err := s.svc.Bookings.GetReservation(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// stats

func (s *HTTPServer) handleMonthStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.svc.Clock.Now()
	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}
	stats, err := s.svc.Stats.Month(r.Context(), id, year, time.Month(month))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleYearStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := queryInt(r, "year", s.svc.Clock.Now().Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := s.svc.Stats.Year(r.Context(), id, year)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "months": stats})
}

func (s *HTTPServer) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	movements, err := s.svc.Stats.Upcoming(r.Context(), id, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if movements == nil {
		movements = []models.Movement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"movements": movements})
}
