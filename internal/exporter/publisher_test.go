package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"socsync/internal/dataprocessing"
	"socsync/internal/errors"
)

const testSpreadsheet = "spreadsheet-1"

// fakeSheets is an in-memory SheetsClient
type fakeSheets struct {
	sheets map[string]*fakeTab
	nextID int64
	calls  []string
	failOn string
	err    error
}

type fakeTab struct {
	info  SheetInfo
	cells [][]interface{}
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{sheets: map[string]*fakeTab{}}
}

func (f *fakeSheets) record(call string) error {
	f.calls = append(f.calls, call)
	if call == f.failOn {
		return f.err
	}
	return nil
}

func (f *fakeSheets) FindSheet(_ context.Context, _, title string) (*SheetInfo, error) {
	if err := f.record("find"); err != nil {
		return nil, err
	}
	if tab, ok := f.sheets[title]; ok {
		info := tab.info
		return &info, nil
	}
	return nil, nil
}

func (f *fakeSheets) AddSheet(_ context.Context, _, title string, rows, cols int64) (*SheetInfo, error) {
	if err := f.record("add"); err != nil {
		return nil, err
	}
	f.nextID++
	tab := &fakeTab{info: SheetInfo{ID: f.nextID, Title: title, Rows: rows, Cols: cols}}
	f.sheets[title] = tab
	info := tab.info
	return &info, nil
}

func (f *fakeSheets) ResizeSheet(_ context.Context, _ string, sheet *SheetInfo, rows, cols int64) error {
	if err := f.record("resize"); err != nil {
		return err
	}
	tab := f.sheets[sheet.Title]
	tab.info.Rows, tab.info.Cols = rows, cols
	return nil
}

func (f *fakeSheets) ClearSheet(_ context.Context, _, title string) error {
	if err := f.record("clear"); err != nil {
		return err
	}
	f.sheets[title].cells = nil
	return nil
}

func (f *fakeSheets) WriteValues(_ context.Context, _, title string, values [][]interface{}, _ string) error {
	if err := f.record("write"); err != nil {
		return err
	}
	tab := f.sheets[title]
	if int64(len(values)) > tab.info.Rows {
		return fmt.Errorf("write exceeds grid: %d rows > %d", len(values), tab.info.Rows)
	}
	for i, row := range values {
		for len(tab.cells) <= i {
			tab.cells = append(tab.cells, nil)
		}
		tab.cells[i] = row
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDataset(rows int) *dataprocessing.Dataset {
	ds := &dataprocessing.Dataset{Header: dataprocessing.RequiredColumns()}
	for i := 0; i < rows; i++ {
		ds.Rows = append(ds.Rows, []string{
			fmt.Sprintf("BR%03d", i), "05/01/2024 10:00:00", "SOC_N", "SOC_C", "",
		})
	}
	return ds
}

func newTestPublisher(client *fakeSheets) (*Publisher, *int) {
	connects := 0
	p := NewPublisher(func(context.Context) (SheetsClient, error) {
		connects++
		return client, nil
	}, PublisherConfig{
		SpreadsheetID: testSpreadsheet,
		DefaultRows:   1000,
		DefaultCols:   20,
	}, quietLogger())
	return p, &connects
}

func TestPublishEmptyDatasetIsNoop(t *testing.T) {
	client := newFakeSheets()
	p, connects := newTestPublisher(client)

	require.NoError(t, p.Publish(context.Background(), nil, "Base"))
	require.NoError(t, p.Publish(context.Background(), testDataset(0), "Base"))

	assert.Zero(t, *connects)
	assert.Empty(t, client.calls)
}

func TestPublishCreatesMissingSheet(t *testing.T) {
	client := newFakeSheets()
	p, _ := newTestPublisher(client)

	require.NoError(t, p.Publish(context.Background(), testDataset(3), "Base"))

	assert.Equal(t, []string{"find", "add", "clear", "write"}, client.calls)

	tab := client.sheets["Base"]
	require.NotNil(t, tab)
	assert.Equal(t, int64(1000), tab.info.Rows)
	assert.Equal(t, int64(20), tab.info.Cols)
	require.Len(t, tab.cells, 4)

	header := make([]interface{}, 0, 5)
	for _, name := range dataprocessing.RequiredColumns() {
		header = append(header, name)
	}
	assert.Equal(t, header, tab.cells[0])
	assert.Equal(t, []interface{}{"BR000", "05/01/2024 10:00:00", "SOC_N", "SOC_C", ""}, tab.cells[1])
}

func TestPublishIsIdempotent(t *testing.T) {
	client := newFakeSheets()
	p, _ := newTestPublisher(client)
	ds := testDataset(5)

	require.NoError(t, p.Publish(context.Background(), ds, "Base"))
	first := append([][]interface{}{}, client.sheets["Base"].cells...)

	require.NoError(t, p.Publish(context.Background(), ds, "Base"))
	assert.Equal(t, first, client.sheets["Base"].cells)
}

func TestPublishReplacesLargerPreviousContents(t *testing.T) {
	client := newFakeSheets()
	p, _ := newTestPublisher(client)

	require.NoError(t, p.Publish(context.Background(), testDataset(10), "Base"))
	require.NoError(t, p.Publish(context.Background(), testDataset(2), "Base"))

	assert.Len(t, client.sheets["Base"].cells, 3)
}

func TestPublishGrowsGrid(t *testing.T) {
	client := newFakeSheets()
	client.sheets["Base"] = &fakeTab{info: SheetInfo{ID: 7, Title: "Base", Rows: 10, Cols: 3}}
	p, _ := newTestPublisher(client)

	require.NoError(t, p.Publish(context.Background(), testDataset(20), "Base"))

	assert.Equal(t, []string{"find", "resize", "clear", "write"}, client.calls)
	assert.Equal(t, int64(21), client.sheets["Base"].info.Rows)
	assert.Equal(t, int64(5), client.sheets["Base"].info.Cols)
}

func TestPublishConnectFailure(t *testing.T) {
	p := NewPublisher(func(context.Context) (SheetsClient, error) {
		return nil, errors.NewCredentialError("no key", nil)
	}, PublisherConfig{SpreadsheetID: testSpreadsheet}, quietLogger())

	err := p.Publish(context.Background(), testDataset(1), "Base")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindCredential))
}

func TestPublishStopsOnClearFailure(t *testing.T) {
	client := newFakeSheets()
	client.failOn = "clear"
	client.err = errors.NewPublishError("clear_sheet", assert.AnError)
	p, _ := newTestPublisher(client)

	err := p.Publish(context.Background(), testDataset(1), "Base")
	require.Error(t, err)
	assert.NotContains(t, client.calls, "write")
}

func TestNewGoogleSheetsMissingCredentials(t *testing.T) {
	_, err := NewGoogleSheets(context.Background(), filepath.Join(t.TempDir(), "hxh.json"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindCredential))
}

func TestNewGoogleSheetsMalformedCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hxh.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewGoogleSheets(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindCredential))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errors.Kind
	}{
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, errors.KindCredential},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, errors.KindCredential},
		{"wrapped forbidden", fmt.Errorf("call: %w", &googleapi.Error{Code: http.StatusForbidden}), errors.KindCredential},
		{"token exchange", &oauth2.RetrieveError{ErrorCode: "invalid_grant", Response: &http.Response{Status: "400 Bad Request"}}, errors.KindCredential},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, errors.KindPublish},
		{"network", io.ErrUnexpectedEOF, errors.KindPublish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, errors.KindOf(classify("op", tt.err)))
		})
	}
}

func TestQuoteTitle(t *testing.T) {
	assert.Equal(t, "'Base'", quoteTitle("Base"))
	assert.Equal(t, "'O''Brien'", quoteTitle("O'Brien"))
}
