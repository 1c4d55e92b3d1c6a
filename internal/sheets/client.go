package sheets

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Scopes are the read-only permissions requested for the service account.
var Scopes = []string{
	sheets.SpreadsheetsReadonlyScope,
	drive.DriveReadonlyScope,
}

// Client reads the order table from Google Sheets. It keeps no state between
// calls; every Fetch goes to the network.
type Client struct {
	sheets *sheets.Service
	drive  *drive.Service
	config config.SheetsConfig
	logger *slog.Logger
}

// Dial authenticates with the service account key and builds the API
// services.
func Dial(ctx context.Context, cfg config.SheetsConfig, key *ServiceAccountKey, logger *slog.Logger) (*Client, error) {
	if key == nil {
		return nil, errors.Credential("no service account key")
	}

	jwtConfig, err := google.JWTConfigFromJSON(key.raw, Scopes...)
	if err != nil {
		return nil, errors.CredentialWrap(err, "unable to parse service account key")
	}

	httpClient := oauth2.NewClient(ctx, jwtConfig.TokenSource(ctx))
	return NewClient(ctx, cfg, logger, option.WithHTTPClient(httpClient))
}

// NewClient builds a Client with explicit API client options.
func NewClient(ctx context.Context, cfg config.SheetsConfig, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}

	return newClient(sheetsSvc, driveSvc, cfg, logger), nil
}

func newClient(sheetsSvc *sheets.Service, driveSvc *drive.Service, cfg config.SheetsConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ParseWorkers < 1 {
		cfg.ParseWorkers = 1
	}
	return &Client{
		sheets: sheetsSvc,
		drive:  driveSvc,
		config: cfg,
		logger: logger.With("component", "sheets"),
	}
}

// Fetch reads every row of the configured worksheet. Any failure to reach
// or open the sheet is a DATA_SOURCE_ERROR; unparseable cells are not.
func (c *Client) Fetch(ctx context.Context) (records []models.OrderRecord, err error) {
	if c.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.FetchTimeout)
		defer cancel()
	}

	ctx, span := observability.StartSpan(ctx, "sheets.fetch")
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.End(ctx, c.logger)
	}()

	start := time.Now()

	spreadsheetID, err := c.resolveSpreadsheet(ctx)
	if err != nil {
		return nil, err
	}
	span.SetTag("spreadsheet_id", spreadsheetID)

	worksheet, err := c.resolveWorksheet(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	span.SetTag("worksheet", worksheet)

	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, quoteSheetName(worksheet)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError(err, fmt.Sprintf("unable to read worksheet %q", worksheet))
	}

	records, err = decodeTable(ctx, resp.Values, c.config.ParseWorkers)
	if err != nil {
		return nil, err
	}

	issues := 0
	for _, r := range records {
		if len(r.Issues) > 0 {
			issues++
			for _, issue := range r.Issues {
				c.logger.DebugContext(ctx, "cell parse failed",
					"row", issue.Row,
					"column", issue.Column,
					"value", issue.Value,
					"reason", issue.Reason,
				)
			}
		}
	}
	if issues > 0 {
		c.logger.WarnContext(ctx, "rows with unparseable cells kept with fields marked absent", "rows", issues)
	}

	span.SetTag("records", strconv.Itoa(len(records)))
	c.logger.InfoContext(ctx, "sheet fetched",
		"spreadsheet_id", spreadsheetID,
		"worksheet", worksheet,
		"records", len(records),
		"rows_with_issues", issues,
		"duration", time.Since(start),
	)

	return records, nil
}

// resolveSpreadsheet returns the configured ID or looks the spreadsheet up
// by name, preferring the most recently modified match.
func (c *Client) resolveSpreadsheet(ctx context.Context) (string, error) {
	if c.config.SpreadsheetID != "" {
		return c.config.SpreadsheetID, nil
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(c.config.SpreadsheetName), spreadsheetMimeType)

	list, err := c.drive.Files.List().
		Q(q).
		Fields("files(id, name, modifiedTime)").
		OrderBy("modifiedTime desc").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", apiError(err, fmt.Sprintf("unable to look up spreadsheet %q", c.config.SpreadsheetName))
	}

	if len(list.Files) == 0 {
		return "", errors.DataSource(fmt.Sprintf("spreadsheet %q not found or not shared with the service account", c.config.SpreadsheetName))
	}

	if len(list.Files) > 1 {
		c.logger.WarnContext(ctx, "several spreadsheets share the configured name, using the most recent",
			"name", c.config.SpreadsheetName,
			"matches", len(list.Files),
			"id", list.Files[0].Id,
		)
	}

	return list.Files[0].Id, nil
}

// resolveWorksheet returns the configured worksheet title, or the first
// worksheet of the spreadsheet.
func (c *Client) resolveWorksheet(ctx context.Context, spreadsheetID string) (string, error) {
	meta, err := c.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties(title,index)").
		Context(ctx).
		Do()
	if err != nil {
		return "", apiError(err, "unable to open spreadsheet")
	}

	if len(meta.Sheets) == 0 {
		return "", errors.DataSource("spreadsheet has no worksheets")
	}

	if c.config.WorksheetName != "" {
		for _, s := range meta.Sheets {
			if s.Properties != nil && s.Properties.Title == c.config.WorksheetName {
				return s.Properties.Title, nil
			}
		}
		return "", errors.DataSource(fmt.Sprintf("worksheet %q not found", c.config.WorksheetName))
	}

	first := meta.Sheets[0]
	for _, s := range meta.Sheets[1:] {
		if s.Properties != nil && first.Properties != nil && s.Properties.Index < first.Properties.Index {
			first = s
		}
	}
	if first.Properties == nil {
		return "", errors.DataSource("spreadsheet returned a worksheet without properties")
	}
	return first.Properties.Title, nil
}

func apiError(err error, message string) error {
	var gerr *googleapi.Error
	if stderrors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.DataSourceWrap(err, message+": access rejected")
		case http.StatusNotFound:
			return errors.DataSourceWrap(err, message+": not found")
		}
	}
	return errors.DataSourceWrap(err, message)
}

func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
