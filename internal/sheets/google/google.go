// Package google writes monthly reports to a Google spreadsheet, one tab
// per report section.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"labcash/internal/finance"
	ports "labcash/internal/sheets"
)

var _ ports.StatementWriter = (*Client)(nil)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile; with neither set,
// GOOGLE_APPLICATION_CREDENTIALS is tried.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

type tab struct {
	title string
	rows  [][]any
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: id}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	creds, err := googleoauth.CredentialsFromJSON(ctx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	// Token requests and API calls share the pooled transport.
	httpCtx := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := oauth2.NewClient(httpCtx, creds.TokenSource)

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "project_id", creds.ProjectID)
	return service, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	if js := strings.TrimSpace(cfg.CredentialsJSON); js != "" {
		return []byte(js), nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// newHTTPClientWithPooling keeps connections to the Sheets API warm
// between exports.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// WriteMonthlyReport replaces the month's Statement, Staff and Daily tabs.
// Missing tabs are created first; the three tabs are then written
// concurrently.
func (c *Client) WriteMonthlyReport(ctx context.Context, r finance.Report) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tabs := tabsFor(r)

	titles := make([]string, len(tabs))
	for i, t := range tabs {
		titles[i] = t.title
	}
	if err := c.ensureTabs(ctx, titles); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tabs {
		g.Go(func() error { return c.writeTab(gctx, t) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("write report %s: %w", r.Month, err)
	}

	slog.InfoContext(ctx, "Monthly report exported",
		"month", r.Month.String(),
		"spreadsheet_id", c.spreadsheetID,
		"ledgers", len(r.Ledgers))
	return nil
}

func (c *Client) ensureTabs(ctx context.Context, titles []string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	existing := make(map[string]struct{}, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = struct{}{}
		}
	}

	var reqs []*gsheet.Request
	for _, title := range titles {
		if _, ok := existing[title]; ok {
			continue
		}
		reqs = append(reqs, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		})
	}
	if len(reqs) == 0 {
		return nil
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add %d tabs: %w", len(reqs), err)
	}
	return nil
}

func (c *Client) writeTab(ctx context.Context, t tab) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(t.title, "A:Z"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", t.title, err)
	}

	vr := &gsheet.ValueRange{Values: t.rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(t.title, "A1"), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", t.title, err)
	}
	return nil
}
