// Package sheets talks to the external sheet, drive and document providers:
// locating or creating the per-event sink pair (spreadsheet + log document)
// and performing the individual range writes the sync subsystem issues.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/skillmint/regsync/pkg/config"
	"github.com/skillmint/regsync/pkg/logger"
	"github.com/skillmint/regsync/pkg/retry"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	docsv1 "google.golang.org/api/docs/v1"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

const (
	// DataTabName is the tab holding one row per registration, header in
	// row 1. Column order is part of the external contract.
	DataTabName = "Registrations"
	// MetaTabName is the tab holding the event's label/value metadata.
	MetaTabName = "Event Info"

	spreadsheetMime = "application/vnd.google-apps.spreadsheet"
	documentMime    = "application/vnd.google-apps.document"
)

var ErrBadRange = errors.New("sheets: could not parse row from updated range")

// Mapping identifies the external sink pair for one event.
type Mapping struct {
	SpreadsheetID string
	DocumentID    string
	DataTabName   string
	MetaTabName   string
	DisplayName   string
}

// Client wraps the provider services. Every external call is individually
// wrapped in the retry envelope; a failed call never aborts unrelated calls
// in the same logical operation.
type Client struct {
	sheets *sheetsv4.Service
	drive  *drivev3.Service
	docs   *docsv1.Service
	logger *logger.Logger
}

// NewClient builds provider services from service-account credentials.
func NewClient(ctx context.Context, cfg config.GoogleConfig, log *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("sheets: missing service-account credentials")
	}

	conf := &jwt.Config{
		Email:      cfg.ClientEmail,
		PrivateKey: []byte(cfg.PrivateKey),
		Scopes: []string{
			sheetsv4.SpreadsheetsScope,
			drivev3.DriveScope,
			docsv1.DocumentsScope,
		},
		TokenURL: google.JWTTokenURL,
	}
	if cfg.Subject != "" {
		conf.Subject = cfg.Subject
	}
	httpClient := conf.Client(ctx)

	sheetsSvc, err := sheetsv4.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	driveSvc, err := drivev3.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	docsSvc, err := docsv1.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	return &Client{
		sheets: sheetsSvc,
		drive:  driveSvc,
		docs:   docsSvc,
		logger: log,
	}, nil
}

// WriteHeader writes the fixed header into row 1 of the data tab.
func (c *Client) WriteHeader(ctx context.Context, m *Mapping, header []string) error {
	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	rng := fmt.Sprintf("'%s'!A1", m.DataTabName)
	return retry.Do(ctx, "write header", func() error {
		_, err := c.sheets.Spreadsheets.Values.Update(m.SpreadsheetID, rng, &sheetsv4.ValueRange{
			Values: [][]interface{}{values},
		}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
}

// UpdateRow overwrites the exact row a registration already occupies.
func (c *Client) UpdateRow(ctx context.Context, m *Mapping, row int64, values []interface{}) error {
	rng := fmt.Sprintf("'%s'!A%d:%s%d", m.DataTabName, row, lastColumn(len(values)), row)
	return retry.Do(ctx, "update row", func() error {
		_, err := c.sheets.Spreadsheets.Values.Update(m.SpreadsheetID, rng, &sheetsv4.ValueRange{
			Values: [][]interface{}{values},
		}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
}

// AppendRow appends below the existing rows and returns the row number the
// provider assigned, parsed from the updated range.
func (c *Client) AppendRow(ctx context.Context, m *Mapping, values []interface{}) (int64, error) {
	rng := fmt.Sprintf("'%s'!A:%s", m.DataTabName, lastColumn(len(values)))
	var resp *sheetsv4.AppendValuesResponse
	err := retry.Do(ctx, "append row", func() error {
		var err error
		resp, err = c.sheets.Spreadsheets.Values.Append(m.SpreadsheetID, rng, &sheetsv4.ValueRange{
			Values: [][]interface{}{values},
		}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, err
	}
	if resp == nil || resp.Updates == nil {
		return 0, ErrBadRange
	}
	return RowFromRange(resp.Updates.UpdatedRange)
}

// ClearDataRows clears everything below the header.
func (c *Client) ClearDataRows(ctx context.Context, m *Mapping) error {
	rng := fmt.Sprintf("'%s'!A2:%s", m.DataTabName, lastColumn(7))
	return retry.Do(ctx, "clear rows", func() error {
		_, err := c.sheets.Spreadsheets.Values.Clear(m.SpreadsheetID, rng, &sheetsv4.ClearValuesRequest{}).Context(ctx).Do()
		return err
	})
}

// WriteRows writes a contiguous block starting at startRow in one call.
func (c *Client) WriteRows(ctx context.Context, m *Mapping, startRow int64, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	rng := fmt.Sprintf("'%s'!A%d", m.DataTabName, startRow)
	return retry.Do(ctx, "write rows", func() error {
		_, err := c.sheets.Spreadsheets.Values.Update(m.SpreadsheetID, rng, &sheetsv4.ValueRange{
			Values: rows,
		}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
}

// WriteMetadata replaces the metadata tab's contents.
func (c *Client) WriteMetadata(ctx context.Context, m *Mapping, rows [][]interface{}) error {
	clearRng := fmt.Sprintf("'%s'!A:B", m.MetaTabName)
	if err := retry.Do(ctx, "clear metadata", func() error {
		_, err := c.sheets.Spreadsheets.Values.Clear(m.SpreadsheetID, clearRng, &sheetsv4.ClearValuesRequest{}).Context(ctx).Do()
		return err
	}); err != nil {
		return err
	}
	rng := fmt.Sprintf("'%s'!A1", m.MetaTabName)
	return retry.Do(ctx, "write metadata", func() error {
		_, err := c.sheets.Spreadsheets.Values.Update(m.SpreadsheetID, rng, &sheetsv4.ValueRange{
			Values: rows,
		}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
}

// AppendLog appends a narrative block at the end of the event's document.
// The document accumulates full history; blocks are never rewritten.
func (c *Client) AppendLog(ctx context.Context, m *Mapping, text string) error {
	if m.DocumentID == "" {
		return nil
	}
	return retry.Do(ctx, "append log", func() error {
		_, err := c.docs.Documents.BatchUpdate(m.DocumentID, &docsv1.BatchUpdateDocumentRequest{
			Requests: []*docsv1.Request{{
				InsertText: &docsv1.InsertTextRequest{
					Text:                 text,
					EndOfSegmentLocation: &docsv1.EndOfSegmentLocation{SegmentId: ""},
				},
			}},
		}).Context(ctx).Do()
		return err
	})
}

// searchByName looks for a non-trashed file with the exact name, optionally
// scoped to a parent folder.
func (c *Client) searchByName(ctx context.Context, name, mime, parentFolder string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), mime)
	if parentFolder != "" {
		q += fmt.Sprintf(" and '%s' in parents", parentFolder)
	}

	var id string
	err := retry.Do(ctx, "search container", func() error {
		resp, err := c.drive.Files.List().Q(q).Fields("files(id, name)").PageSize(5).Context(ctx).Do()
		if err != nil {
			return err
		}
		if len(resp.Files) > 0 {
			id = resp.Files[0].Id
		}
		return nil
	})
	return id, err
}

// rename renames an external container to the canonical name.
func (c *Client) rename(ctx context.Context, fileID, name string) error {
	return retry.Do(ctx, "rename container", func() error {
		_, err := c.drive.Files.Update(fileID, &drivev3.File{Name: name}).Context(ctx).Do()
		return err
	})
}

// createSpreadsheet creates the sink spreadsheet with a frozen-header data
// tab and a metadata tab, and moves it under the parent folder if one is
// configured.
func (c *Client) createSpreadsheet(ctx context.Context, name, parentFolder string) (string, error) {
	var id string
	err := retry.Do(ctx, "create spreadsheet", func() error {
		resp, err := c.sheets.Spreadsheets.Create(&sheetsv4.Spreadsheet{
			Properties: &sheetsv4.SpreadsheetProperties{Title: name},
			Sheets: []*sheetsv4.Sheet{
				{Properties: &sheetsv4.SheetProperties{
					Title:          DataTabName,
					GridProperties: &sheetsv4.GridProperties{FrozenRowCount: 1},
				}},
				{Properties: &sheetsv4.SheetProperties{Title: MetaTabName}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = resp.SpreadsheetId
		return nil
	})
	if err != nil {
		return "", err
	}

	if parentFolder != "" {
		if err := c.moveToFolder(ctx, id, parentFolder); err != nil {
			// The sheet works from the root folder too.
			c.logger.Warn("Failed to move spreadsheet into parent folder: " + err.Error())
		}
	}
	return id, nil
}

// createDocument creates the companion log document.
func (c *Client) createDocument(ctx context.Context, name, parentFolder string) (string, error) {
	var id string
	err := retry.Do(ctx, "create document", func() error {
		resp, err := c.docs.Documents.Create(&docsv1.Document{Title: name}).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = resp.DocumentId
		return nil
	})
	if err != nil {
		return "", err
	}

	if parentFolder != "" {
		if err := c.moveToFolder(ctx, id, parentFolder); err != nil {
			c.logger.Warn("Failed to move document into parent folder: " + err.Error())
		}
	}
	return id, nil
}

func (c *Client) moveToFolder(ctx context.Context, fileID, folderID string) error {
	return retry.Do(ctx, "move to folder", func() error {
		_, err := c.drive.Files.Update(fileID, &drivev3.File{}).
			AddParents(folderID).
			RemoveParents("root").
			Context(ctx).Do()
		return err
	})
}

// RowFromRange extracts the 1-based row number from an A1-notation range
// such as "Registrations!A5:G5".
func RowFromRange(rng string) (int64, error) {
	idx := strings.LastIndex(rng, "!")
	if idx >= 0 {
		rng = rng[idx+1:]
	}
	if cut := strings.Index(rng, ":"); cut >= 0 {
		rng = rng[:cut]
	}
	digits := strings.TrimLeftFunc(rng, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if digits == "" {
		return 0, ErrBadRange
	}
	row, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, ErrBadRange
	}
	return row, nil
}

// lastColumn returns the letter of the n-th column (1-based), enough for
// the fixed-width rows this subsystem writes.
func lastColumn(n int) string {
	if n < 1 || n > 26 {
		n = 26
	}
	return string(rune('A' + n - 1))
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(s, `'`, `\'`)
}
