// Package odoo pulls CRM opportunities (crm.lead) over Odoo's JSON-RPC
// web API after a regular web login.
package odoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/tsatrips/dodoetl/internal/record"
	"github.com/tsatrips/dodoetl/internal/source"
)

const Name = "odoo"

var ErrLogin = errors.New("odoo: login failed")

type Config struct {
	LoginURL         string `json:"login_url"` // https://<firma>.odoo.com/web/login
	DataURL          string `json:"data_url"`  // widok listy, tylko do logów
	Username         string `json:"username"`
	Password         string `json:"password"`
	Model            string `json:"model"`
	PageSize         int    `json:"page_size"`
	Currency         string `json:"currency"` // gdy lead nie ma waluty
	TimeoutSec       int    `json:"timeout_sec"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
}

const (
	defaultModel    = "crm.lead"
	defaultPageSize = 80
	defaultCurrency = "U$D"
	revenueFormat   = "#.###,##"
)

var Columns = []string{"name", "email_from", "user_id", "expected_revenue", "stage_id"}

var readFields = []string{"name", "email_from", "user_id", "expected_revenue", "stage_id", "company_currency"}

type Odoo struct {
	log  zerolog.Logger
	cfg  Config
	http *resty.Client

	mu       sync.Mutex
	loggedIn bool
	rpcID    int
}

func New(log zerolog.Logger, cfg Config) (*Odoo, error) {
	if cfg.LoginURL == "" {
		return nil, fmt.Errorf("odoo: login_url is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	client, err := source.NewHTTPClient(source.HTTPOptions{
		BaseURL:          cfg.LoginURL,
		Timeout:          time.Duration(cfg.TimeoutSec) * time.Second,
		CloudflareBypass: cfg.CloudflareBypass,
	})
	if err != nil {
		return nil, fmt.Errorf("odoo: %w", err)
	}
	return &Odoo{log: log.With().Str("source", Name).Logger(), cfg: cfg, http: client}, nil
}

func (o *Odoo) Name() string { return Name }

func (o *Odoo) Feeds() []record.Feed { return []record.Feed{record.FeedOpportunities} }

// Fetch ignores the date range: the whole pipeline is pulled every run.
func (o *Odoo) Fetch(ctx context.Context, feed record.Feed, _, _ time.Time) (record.Set, error) {
	if feed != record.FeedOpportunities {
		return record.Set{}, fmt.Errorf("%w: %s/%s", source.ErrUnsupportedFeed, Name, feed)
	}
	if err := o.login(ctx); err != nil {
		return record.Set{}, err
	}

	out := record.Set{Columns: Columns}
	for offset := 0; ; offset += o.cfg.PageSize {
		var page []map[string]any
		err := o.call(ctx, "search_read", map[string]any{
			"domain": []any{},
			"fields": readFields,
			"offset": offset,
			"limit":  o.cfg.PageSize,
			"order":  "id",
		}, &page)
		if err != nil {
			return record.Set{}, err
		}
		for _, lead := range page {
			out.Rows = append(out.Rows, o.row(lead))
		}
		o.log.Debug().Int("offset", offset).Int("page", len(page)).Msg("page fetched")
		if len(page) < o.cfg.PageSize {
			break
		}
	}
	o.log.Info().Int("rows", len(out.Rows)).Str("view", o.cfg.DataURL).Msg("fetched")
	return out, nil
}

func (o *Odoo) row(lead map[string]any) record.Record {
	return record.Record{
		"name":             text(lead["name"]),
		"email_from":       text(lead["email_from"]),
		"user_id":          many2one(lead["user_id"]),
		"expected_revenue": o.revenue(lead["expected_revenue"], lead["company_currency"]),
		"stage_id":         many2one(lead["stage_id"]),
	}
}

// Revenue: "<waluta> 1.500,00", jak w widoku listy.
func (o *Odoo) revenue(v, currency any) string {
	cur := o.cfg.Currency
	if s, ok := many2one(currency).(string); ok && s != "" {
		cur = s
	}
	amount, _ := v.(float64)
	return cur + " " + humanize.FormatFloat(revenueFormat, amount)
}

// Odoo oddaje false zamiast null.
func text(v any) any {
	if s, ok := v.(string); ok {
		return s
	}
	return nil
}

// many2one: [id, "Nazwa"] -> "Nazwa"
func many2one(v any) any {
	pair, ok := v.([]any)
	if !ok || len(pair) < 2 {
		return nil
	}
	return text(pair[1])
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	ID      int            `json:"id"`
	Params  map[string]any `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

func (o *Odoo) call(ctx context.Context, method string, kwargs map[string]any, out any) error {
	o.mu.Lock()
	o.rpcID++
	id := o.rpcID
	o.mu.Unlock()

	path := "/web/dataset/call_kw/" + o.cfg.Model + "/" + method
	res, err := o.http.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", Method: "call", ID: id, Params: map[string]any{
			"model":  o.cfg.Model,
			"method": method,
			"args":   []any{},
			"kwargs": kwargs,
		}}).
		Post(path)
	if err != nil {
		return fmt.Errorf("odoo: %s: %w", method, err)
	}
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("odoo: %s: status %d", method, res.StatusCode())
	}

	var body rpcResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return fmt.Errorf("odoo: decode %s: %w", method, err)
	}
	if body.Error != nil {
		if strings.Contains(body.Error.Data.Name, "SessionExpired") {
			o.mu.Lock()
			o.loggedIn = false
			o.mu.Unlock()
			return fmt.Errorf("%w: session expired", ErrLogin)
		}
		msg := body.Error.Data.Message
		if msg == "" {
			msg = body.Error.Message
		}
		return fmt.Errorf("odoo: %s: %s", method, msg)
	}
	return json.Unmarshal(body.Result, out)
}

func (o *Odoo) login(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loggedIn {
		return nil
	}

	res, err := o.http.R().SetContext(ctx).Get(o.cfg.LoginURL)
	if err != nil {
		return fmt.Errorf("odoo: open login page: %w", err)
	}
	doc, err := source.Document(res)
	if err != nil {
		return err
	}
	token := doc.Find("input[name=csrf_token]").AttrOr("value", "")
	if token == "" {
		return fmt.Errorf("%w: csrf token not found", ErrLogin)
	}

	res, err = o.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"csrf_token": token,
			"login":      o.cfg.Username,
			"password":   o.cfg.Password,
			"redirect":   "",
		}).
		Post(o.cfg.LoginURL)
	if err != nil {
		return fmt.Errorf("odoo: login request: %w", err)
	}
	doc, err = source.Document(res)
	if err != nil {
		return err
	}
	// po udanym logowaniu nie ma już pola hasła
	if doc.Find("input[name=password]").Length() > 0 {
		msg := strings.TrimSpace(doc.Find(".alert-danger").First().Text())
		return fmt.Errorf("%w: %s", ErrLogin, msg)
	}

	o.loggedIn = true
	o.log.Info().Str("user", o.cfg.Username).Msg("logged in")
	return nil
}

func factory(log zerolog.Logger, raw json.RawMessage) (source.Source, error) {
	var cfg Config
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("odoo config: %w", err)
		}
	}
	return New(log, cfg)
}

func init() {
	source.Register(Name, factory)
}
