package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
)

var testHeader = []any{"ORDERNUMBER", "QUANTITYORDERED", "SALES", "ORDERDATE", "STATUS", "PRODUCTCODE", "CUSTOMERNAME", "DEALSIZE"}

type fakeSheetsAPI struct {
	files      []map[string]string
	worksheets []string
	values     [][]any
	status     int
	driveCalls atomic.Int32
	valueCalls atomic.Int32

	mu        sync.Mutex
	lastRange string
}

func (f *fakeSheetsAPI) requestedRange() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRange
}

func (f *fakeSheetsAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if f.status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"rejected","status":"UNAUTHENTICATED"}}`, f.status)
			return
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "/files"):
			f.driveCalls.Add(1)
			writeJSON(w, map[string]any{"files": f.files})
		case strings.Contains(r.URL.Path, "/values/"):
			f.valueCalls.Add(1)
			f.mu.Lock()
			f.lastRange = r.URL.Path[strings.Index(r.URL.Path, "/values/")+len("/values/"):]
			f.mu.Unlock()
			writeJSON(w, map[string]any{"majorDimension": "ROWS", "values": f.values})
		case strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/"):
			sheetsMeta := make([]map[string]any, 0, len(f.worksheets))
			for i, title := range f.worksheets {
				sheetsMeta = append(sheetsMeta, map[string]any{"properties": map[string]any{"title": title, "index": i}})
			}
			writeJSON(w, map[string]any{"sheets": sheetsMeta})
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, api *fakeSheetsAPI, cfg config.SheetsConfig) *Client {
	t.Helper()
	ts := httptest.NewServer(api.handler())
	t.Cleanup(ts.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewClient(context.Background(), cfg, logger,
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()),
	)
	require.NoError(t, err)
	return client
}

func defaultSheetsConfig() config.SheetsConfig {
	return config.SheetsConfig{
		SpreadsheetName: "data",
		FetchTimeout:    5 * time.Second,
		ParseWorkers:    2,
	}
}

func TestClient_Fetch_ByName(t *testing.T) {
	api := &fakeSheetsAPI{
		files:      []map[string]string{{"id": "sheet-123", "name": "data"}},
		worksheets: []string{"Sheet1", "Archive"},
		values: [][]any{
			testHeader,
			{10107.0, 30.0, 2871.0, "2/24/2003 0:00", "Shipped", "S10_1678", "Land of Toys Inc.", "Small"},
			{10121.0, 34.0, "$2,765.90", "2003-05-07", "In Process", "S10_1678", "Reims Collectables", "Medium"},
		},
	}
	client := newTestClient(t, api, defaultSheetsConfig())

	records, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int32(1), api.driveCalls.Load())
	assert.Equal(t, "'Sheet1'", api.requestedRange())

	first := records[0]
	assert.Equal(t, 2, first.Row)
	assert.True(t, first.HasOrderNumber)
	assert.Equal(t, int64(10107), first.OrderNumber)
	assert.True(t, first.HasOrderDate)
	assert.Equal(t, time.Date(2003, 2, 24, 0, 0, 0, 0, time.UTC), first.OrderDate)
	assert.Equal(t, "Shipped", first.Status)
	assert.Equal(t, "2871", first.Sales.Decimal.String())
	assert.Equal(t, "Land of Toys Inc.", first.CustomerName)
	assert.Equal(t, "S10_1678", first.ProductCode)
	assert.Equal(t, "Small", first.DealSize)
	assert.Empty(t, first.Issues)

	assert.Equal(t, "2765.9", records[1].Sales.Decimal.String())
	month, ok := records[1].Month()
	assert.True(t, ok)
	assert.Equal(t, "2003-05", month)
}

func TestClient_Fetch_ByIDSkipsDriveLookup(t *testing.T) {
	api := &fakeSheetsAPI{
		worksheets: []string{"Sheet1"},
		values:     [][]any{testHeader},
	}
	cfg := defaultSheetsConfig()
	cfg.SpreadsheetID = "known-id"
	client := newTestClient(t, api, cfg)

	records, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(0), api.driveCalls.Load())
}

func TestClient_Fetch_ConfiguredWorksheet(t *testing.T) {
	api := &fakeSheetsAPI{
		files:      []map[string]string{{"id": "sheet-123"}},
		worksheets: []string{"Sheet1", "Q1 Orders"},
		values:     [][]any{testHeader},
	}
	cfg := defaultSheetsConfig()
	cfg.WorksheetName = "Q1 Orders"
	client := newTestClient(t, api, cfg)

	_, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "'Q1 Orders'", api.requestedRange())

	cfg.WorksheetName = "Missing"
	client = newTestClient(t, api, cfg)
	_, err = client.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDataSource))
}

func TestClient_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		api     *fakeSheetsAPI
		wantMsg string
	}{
		{
			name:    "authentication rejected",
			api:     &fakeSheetsAPI{status: http.StatusUnauthorized},
			wantMsg: "access rejected",
		},
		{
			name:    "spreadsheet not found by name",
			api:     &fakeSheetsAPI{worksheets: []string{"Sheet1"}},
			wantMsg: "not found",
		},
		{
			name: "missing required columns",
			api: &fakeSheetsAPI{
				files:      []map[string]string{{"id": "x"}},
				worksheets: []string{"Sheet1"},
				values:     [][]any{{"ORDERNUMBER", "SALES", "STATUS"}},
			},
			wantMsg: "ORDERDATE, CUSTOMERNAME, PRODUCTCODE, DEALSIZE",
		},
		{
			name: "no header row",
			api: &fakeSheetsAPI{
				files:      []map[string]string{{"id": "x"}},
				worksheets: []string{"Sheet1"},
			},
			wantMsg: "no header row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.api, defaultSheetsConfig())

			records, err := client.Fetch(context.Background())
			require.Error(t, err)
			assert.Nil(t, records)
			assert.True(t, errors.HasCode(err, errors.CodeDataSource), "want DATA_SOURCE_ERROR, got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestUnavailable_Fetch(t *testing.T) {
	credErr := errors.Credential("missing key")
	records, err := Unavailable{Err: credErr}.Fetch(context.Background())
	assert.Nil(t, records)
	assert.ErrorIs(t, err, credErr)
}
