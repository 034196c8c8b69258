package exporter

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"socsync/internal/errors"
)

// SheetInfo describes a tab of the destination spreadsheet
type SheetInfo struct {
	ID    int64
	Title string
	Rows  int64
	Cols  int64
}

// SheetsClient is the subset of the spreadsheet backend the publisher needs
type SheetsClient interface {
	// FindSheet returns nil, nil when no tab has the given title
	FindSheet(ctx context.Context, spreadsheetID, title string) (*SheetInfo, error)
	AddSheet(ctx context.Context, spreadsheetID, title string, rows, cols int64) (*SheetInfo, error)
	ResizeSheet(ctx context.Context, spreadsheetID string, sheet *SheetInfo, rows, cols int64) error
	ClearSheet(ctx context.Context, spreadsheetID, title string) error
	WriteValues(ctx context.Context, spreadsheetID, title string, values [][]interface{}, inputOption string) error
}

// GoogleSheets implements SheetsClient against the Sheets v4 API
type GoogleSheets struct {
	service *sheets.Service
}

// NewGoogleSheets authenticates with the service-account key at credentialsFile
func NewGoogleSheets(ctx context.Context, credentialsFile string) (*GoogleSheets, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.NewCredentialError(fmt.Sprintf("cannot read credential file %s", credentialsFile), err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope, sheets.DriveScope)
	if err != nil {
		return nil, errors.NewCredentialError(fmt.Sprintf("invalid credential file %s", credentialsFile), err)
	}

	service, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, errors.NewCredentialError("unable to create Sheets client", err)
	}

	return &GoogleSheets{service: service}, nil
}

// FindSheet resolves a tab by title, ignoring case and surrounding blanks
func (g *GoogleSheets) FindSheet(ctx context.Context, spreadsheetID, title string) (*SheetInfo, error) {
	spreadsheet, err := g.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("find_sheet", err)
	}

	want := strings.ToLower(strings.TrimSpace(title))
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties == nil {
			continue
		}
		if strings.ToLower(strings.TrimSpace(sheet.Properties.Title)) == want {
			return sheetInfo(sheet.Properties), nil
		}
	}

	return nil, nil
}

// AddSheet creates a tab with the given grid size
func (g *GoogleSheets) AddSheet(ctx context.Context, spreadsheetID, title string, rows, cols int64) (*SheetInfo, error) {
	rq := sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: title,
						GridProperties: &sheets.GridProperties{
							RowCount:    rows,
							ColumnCount: cols,
						},
					},
				},
			},
		},
	}

	response, err := g.service.Spreadsheets.BatchUpdate(spreadsheetID, &rq).Context(ctx).Do()
	if err != nil {
		return nil, classify("add_sheet", err)
	}

	if len(response.Replies) == 0 || response.Replies[0].AddSheet == nil {
		return nil, errors.NewPublishError("add_sheet", fmt.Errorf("no reply for new sheet %q", title))
	}

	return sheetInfo(response.Replies[0].AddSheet.Properties), nil
}

// ResizeSheet sets the tab's grid to rows x cols
func (g *GoogleSheets) ResizeSheet(ctx context.Context, spreadsheetID string, sheet *SheetInfo, rows, cols int64) error {
	rq := sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: sheet.ID,
						GridProperties: &sheets.GridProperties{
							RowCount:    rows,
							ColumnCount: cols,
						},
					},
					Fields: "gridProperties.rowCount,gridProperties.columnCount",
				},
			},
		},
	}

	if _, err := g.service.Spreadsheets.BatchUpdate(spreadsheetID, &rq).Context(ctx).Do(); err != nil {
		return classify("resize_sheet", err)
	}

	return nil
}

// ClearSheet removes every value of the tab, leaving formatting in place
func (g *GoogleSheets) ClearSheet(ctx context.Context, spreadsheetID, title string) error {
	if _, err := g.service.Spreadsheets.Values.Clear(spreadsheetID, quoteTitle(title), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return classify("clear_sheet", err)
	}
	return nil
}

// WriteValues writes values starting at A1 of the tab
func (g *GoogleSheets) WriteValues(ctx context.Context, spreadsheetID, title string, values [][]interface{}, inputOption string) error {
	rng := quoteTitle(title) + "!A1"
	vr := &sheets.ValueRange{
		MajorDimension: "ROWS",
		Range:          rng,
		Values:         values,
	}

	if _, err := g.service.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption(inputOption).
		Context(ctx).
		Do(); err != nil {
		return classify("write_values", err)
	}

	return nil
}

func sheetInfo(p *sheets.SheetProperties) *SheetInfo {
	info := &SheetInfo{ID: p.SheetId, Title: p.Title}
	if p.GridProperties != nil {
		info.Rows = p.GridProperties.RowCount
		info.Cols = p.GridProperties.ColumnCount
	}
	return info
}

// quoteTitle renders a tab title for A1 notation
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// classify maps backend failures onto pipeline error kinds. Rejected
// credentials surface either as a 401/403 from the API or as a failed token
// exchange.
func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return errors.NewCredentialError(fmt.Sprintf("backend rejected credentials during %s", op), err)
		}
		return errors.NewPublishError(op, err)
	}

	var tokenErr *oauth2.RetrieveError
	if stderrors.As(err, &tokenErr) {
		return errors.NewCredentialError(fmt.Sprintf("token exchange failed during %s", op), err)
	}

	return errors.NewPublishError(op, err)
}
