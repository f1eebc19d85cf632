package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"contas/internal/core"
	ports "contas/internal/sheets"
)

// DefaultMirrorSheet is the sheet that receives the row-per-payable mirror.
const DefaultMirrorSheet = "Contas"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	mirrorSheet   string
}

// Ensure interface conformance
var (
	_ ports.PayableMirror  = (*Client)(nil)
	_ ports.TableReader    = (*Client)(nil)
	_ ports.WorkbookWriter = (*Client)(nil)
)

// Credentials selects the service account used to reach the API. JSON wins
// over File; with neither, GOOGLE_APPLICATION_CREDENTIALS is tried.
type Credentials struct {
	JSON string
	File string
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID, mirrorSheet string) *Client {
	if strings.TrimSpace(mirrorSheet) == "" {
		mirrorSheet = DefaultMirrorSheet
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, mirrorSheet: mirrorSheet}
}

// Dial creates a client authenticated with a service account.
func Dial(ctx context.Context, spreadsheetID string, creds Credentials, mirrorSheet string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, mirrorSheet), nil
}

// NewFromEnv creates a client from GOOGLE_SPREADSHEET_ID,
// GOOGLE_SERVICE_ACCOUNT_JSON / GOOGLE_SERVICE_ACCOUNT_FILE and the optional
// GOOGLE_MIRROR_SHEET.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return Dial(ctx, os.Getenv("GOOGLE_SPREADSHEET_ID"), Credentials{
		JSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		File: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}, os.Getenv("GOOGLE_MIRROR_SHEET"))
}

func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account", "credentials_size", len(credentialsJSON))
	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// UpsertRow writes p on the row holding its id, or appends a new row.
func (c *Client) UpsertRow(ctx context.Context, p core.Payable) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureMirror(ctx); err != nil {
		return err
	}
	row, err := c.findRow(ctx, p.ID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{ports.MirrorRow(p)}}
	last := columnName(len(ports.MirrorHeader))

	if row > 0 {
		rng := fmt.Sprintf("%s!A%d:%s%d", c.mirrorSheet, row, last, row)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A:%s", c.mirrorSheet, last)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	return nil
}

// DeleteRow removes the row holding id. A missing row is not an error.
func (c *Client) DeleteRow(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	props, err := c.sheetIDs(ctx)
	if err != nil {
		return err
	}
	sheetID, ok := props[c.mirrorSheet]
	if !ok {
		return nil
	}
	row, err := c.findRow(ctx, id)
	if err != nil || row == 0 {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row - 1),
			EndIndex:   int64(row),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

// ReadTable returns the unformatted cells of the first sheet.
func (c *Client) ReadTable(ctx context.Context) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, &core.ImportFormatError{Source: "google sheets", Err: err}
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return nil, &core.ImportFormatError{Source: "google sheets", Err: errors.New("spreadsheet has no sheets")}
	}
	title := ss.Sheets[0].Properties.Title
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, title).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, &core.ImportFormatError{Source: "google sheets", Err: err}
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	return out, nil
}

// WriteWorkbook replaces the content of each sheet of wb, creating missing
// sheets.
func (c *Client) WriteWorkbook(ctx context.Context, wb ports.Workbook) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	for _, s := range wb.Sheets {
		if err := c.ensureSheet(ctx, s.Name); err != nil {
			return err
		}
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, s.Name, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear %s: %w", s.Name, err)
		}
		values := make([][]any, 0, len(s.Rows)+1)
		header := make([]any, len(s.Header))
		for i, h := range s.Header {
			header[i] = h
		}
		values = append(values, header)
		values = append(values, s.Rows...)
		rng := s.Name + "!A1"
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
	}
	return nil
}

// ensureMirror creates the mirror sheet and its header row when missing.
func (c *Client) ensureMirror(ctx context.Context) error {
	if err := c.ensureSheet(ctx, c.mirrorSheet); err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!A1:%s1", c.mirrorSheet, columnName(len(ports.MirrorHeader)))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	header := make([]any, len(ports.MirrorHeader))
	for i, h := range ports.MirrorHeader {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	props, err := c.sheetIDs(ctx)
	if err != nil {
		return err
	}
	if _, ok := props[title]; ok {
		return nil
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	return nil
}

func (c *Client) sheetIDs(ctx context.Context) (map[string]int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	out := make(map[string]int64, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			out[s.Properties.Title] = s.Properties.SheetId
		}
	}
	return out, nil
}

// findRow returns the 1-based row holding id in column A, or 0.
func (c *Client) findRow(ctx context.Context, id int64) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.mirrorSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	want := strconv.FormatInt(id, 10)
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1, nil
		}
	}
	return 0, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

// columnName converts a 1-based column index to its letter form.
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}
