package google

import (
	"context"
	"fmt"
	"os"

	"staysync/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const reservationsSheet = "Reservations"

// ReportService writes reservation reports to a Google spreadsheet.
type ReportService struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewReportService(ctx context.Context, credentialsFile, spreadsheetID string) (*ReportService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(context.Background())))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return NewReportServiceWithClient(srv, spreadsheetID), nil
}

func NewReportServiceWithClient(srv *sheets.Service, spreadsheetID string) *ReportService {
	return &ReportService{service: srv, spreadsheetID: spreadsheetID}
}

// TestConnection читает заголовок листа бронирований
func (s *ReportService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, reservationsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ReplaceReservationsSheet clears the sheet and writes one row per reservation.
func (s *ReportService) ReplaceReservationsSheet(ctx context.Context, reservations []*models.Reservation) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, reservationsSheet+"!A:Z", &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to clear sheet: %w", err)
	}

	values := [][]interface{}{reservationHeaders()}
	for _, r := range reservations {
		values = append(values, reservationRowValues(r))
	}

	rangeData := fmt.Sprintf("%s!A1:L%d", reservationsSheet, len(values))
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to write reservations: %w", err)
	}
	return nil
}

func reservationHeaders() []interface{} {
	return []interface{}{
		"ID", "Property ID", "Guest", "Document", "Email", "Phone",
		"Check-in", "Check-out", "Nights", "Pax", "Paid", "Status",
	}
}

func reservationRowValues(r *models.Reservation) []interface{} {
	return []interface{}{
		r.ID,
		r.PropertyID,
		r.Guest.Name,
		r.Guest.DocumentID,
		r.Guest.Email,
		r.Guest.Phone,
		models.FormatDate(r.CheckIn),
		models.FormatDate(r.CheckOut),
		len(r.Nights()),
		r.Pax,
		r.Paid,
		stayState(r),
	}
}

func stayState(r *models.Reservation) string {
	switch {
	case r.CheckedOut:
		return "checked-out"
	case r.CheckedIn:
		return "checked-in"
	default:
		return "pending"
	}
}
