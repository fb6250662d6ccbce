// Package traffic pulls reservations and budgets from the travel back
// office (a Serenity web app) through its JSON list services.
package traffic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/tsatrips/dodoetl/internal/record"
	"github.com/tsatrips/dodoetl/internal/source"
)

const Name = "traffic"

var ErrLogin = errors.New("traffic: login failed")

type Config struct {
	LoginURL         string `json:"login_url"`     // strona logowania
	LoginService     string `json:"login_service"` // endpoint JSON logowania
	ReservationsURL  string `json:"reservations_url"`
	BudgetsURL       string `json:"budgets_url"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	PageSize         int    `json:"page_size"`
	TimeoutSec       int    `json:"timeout_sec"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
}

const (
	defaultLoginService = "/Services/Membership/Account/Login"
	defaultPageSize     = 2500
	dateColumn          = "Fec_sal"
)

var ReservationColumns = []string{
	"Idreserva", "Rva", "Tiporva", "Fec_mod", "Fec_rva", "Fec_sal", "Fec_fin",
	"Nombreagencia_cod_agcia", "Nombrevendedor_cod_vdor", "Nombregrupo", "Estado",
	"Can_adu", "Can_chd", "Descripparame_moneda", "Total", "gananciaTotal",
	"Tipocont", "Descripparame_productos",
}

var BudgetColumns = []string{
	"Idpresupu", "Rva", "Tiporva", "Fec_mod", "Fec_rva", "Fec_sal",
	"Nombreagencia_cod_agcia", "Observ", "Estado", "Can_adu", "Can_chd", "Moneda",
	"Nombrevendedor_cod_vdor", "Total", "costoConIva", "GananciaTotal", "Productos",
}

type Traffic struct {
	log  zerolog.Logger
	cfg  Config
	http *resty.Client

	mu       sync.Mutex
	loggedIn bool
}

func New(log zerolog.Logger, cfg Config) (*Traffic, error) {
	if cfg.LoginURL == "" {
		return nil, fmt.Errorf("traffic: login_url is required")
	}
	if cfg.LoginService == "" {
		cfg.LoginService = defaultLoginService
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	client, err := source.NewHTTPClient(source.HTTPOptions{
		BaseURL:          cfg.LoginURL,
		Timeout:          time.Duration(cfg.TimeoutSec) * time.Second,
		CloudflareBypass: cfg.CloudflareBypass,
	})
	if err != nil {
		return nil, fmt.Errorf("traffic: %w", err)
	}
	return &Traffic{log: log.With().Str("source", Name).Logger(), cfg: cfg, http: client}, nil
}

func (t *Traffic) Name() string { return Name }

func (t *Traffic) Feeds() []record.Feed {
	return []record.Feed{record.FeedReservations, record.FeedBudgets}
}

func (t *Traffic) Fetch(ctx context.Context, feed record.Feed, from, to time.Time) (record.Set, error) {
	var endpoint string
	var cols []string
	switch feed {
	case record.FeedReservations:
		endpoint, cols = t.cfg.ReservationsURL, ReservationColumns
	case record.FeedBudgets:
		endpoint, cols = t.cfg.BudgetsURL, BudgetColumns
	default:
		return record.Set{}, fmt.Errorf("%w: %s/%s", source.ErrUnsupportedFeed, Name, feed)
	}
	if endpoint == "" {
		return record.Set{}, fmt.Errorf("traffic: no endpoint configured for %s", feed)
	}
	if err := t.login(ctx); err != nil {
		return record.Set{}, err
	}

	out := record.Set{Columns: cols}
	for skip := 0; ; skip += t.cfg.PageSize {
		page, err := t.page(ctx, endpoint, cols, skip, from, to)
		if err != nil {
			return record.Set{}, err
		}
		if len(page) == 0 {
			break
		}
		out.Rows = append(out.Rows, page...)
		t.log.Debug().Str("feed", string(feed)).Int("page", len(page)).Int("total", len(out.Rows)).Msg("page fetched")
		if len(page) < t.cfg.PageSize {
			break
		}
	}
	t.log.Info().Str("feed", string(feed)).Int("rows", len(out.Rows)).Msg("fetched")
	return out, nil
}

type listRequest struct {
	Take           int      `json:"Take"`
	Skip           int      `json:"Skip"`
	Criteria       []any    `json:"Criteria"`
	IncludeColumns []string `json:"IncludeColumns"`
}

type listResponse struct {
	Entities   []map[string]any `json:"Entities"`
	TotalCount int              `json:"TotalCount"`
	Error      *serviceError    `json:"Error"`
}

type serviceError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

// Criteria: Fec_sal >= from AND Fec_sal < to
func criteria(from, to time.Time) []any {
	return []any{
		[]any{[]string{dateColumn}, ">=", from.Format("2006-01-02")},
		"and",
		[]any{[]string{dateColumn}, "<", to.Format("2006-01-02")},
	}
}

func (t *Traffic) page(ctx context.Context, endpoint string, cols []string, skip int, from, to time.Time) ([]record.Record, error) {
	res, err := t.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("Referer", endpoint).
		SetBody(listRequest{Take: t.cfg.PageSize, Skip: skip, Criteria: criteria(from, to), IncludeColumns: cols}).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("traffic: list %s: %w", endpoint, err)
	}
	if isLoginPage(res) {
		t.mu.Lock()
		t.loggedIn = false
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: session expired", ErrLogin)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("traffic: list %s: status %d: %s", endpoint, res.StatusCode(), snippet(res.Body()))
	}

	var body listResponse
	dec := json.NewDecoder(bytes.NewReader(res.Body()))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("traffic: decode list: %w", err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("traffic: list %s: %s", endpoint, body.Error.Message)
	}
	rows := make([]record.Record, 0, len(body.Entities))
	for _, e := range body.Entities {
		rows = append(rows, record.Record(e))
	}
	return rows, nil
}

func (t *Traffic) login(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loggedIn {
		return nil
	}

	// strona logowania ustawia ciasteczka sesji / antyforgery
	res, err := t.http.R().SetContext(ctx).Get(t.cfg.LoginURL)
	if err != nil {
		return fmt.Errorf("traffic: open login page: %w", err)
	}
	doc, err := source.Document(res)
	if err != nil {
		return err
	}
	req := t.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetBody(map[string]string{"Username": t.cfg.Username, "Password": t.cfg.Password})
	if token, ok := doc.Find("input[name=__RequestVerificationToken]").Attr("value"); ok {
		req.SetHeader("X-CSRF-TOKEN", token)
	}

	res, err = req.Post(t.loginService())
	if err != nil {
		return fmt.Errorf("traffic: login request: %w", err)
	}
	var body struct {
		Error *serviceError `json:"Error"`
	}
	_ = json.Unmarshal(res.Body(), &body)
	if res.StatusCode() != http.StatusOK || body.Error != nil {
		msg := snippet(res.Body())
		if body.Error != nil {
			msg = body.Error.Message
		}
		return fmt.Errorf("%w: status %d: %s", ErrLogin, res.StatusCode(), msg)
	}

	t.loggedIn = true
	t.log.Info().Str("user", t.cfg.Username).Msg("logged in")
	return nil
}

func (t *Traffic) loginService() string {
	if strings.HasPrefix(t.cfg.LoginService, "http") {
		return t.cfg.LoginService
	}
	u, _ := url.Parse(t.cfg.LoginURL)
	return u.Scheme + "://" + u.Host + t.cfg.LoginService
}

// isLoginPage: wygasła sesja => serwer oddaje HTML z formularzem logowania.
func isLoginPage(res *resty.Response) bool {
	if !strings.Contains(res.Header().Get("Content-Type"), "html") {
		return false
	}
	doc, err := source.Document(res)
	if err != nil {
		return false
	}
	return doc.Find("input[type=password]").Length() > 0
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}

func factory(log zerolog.Logger, raw json.RawMessage) (source.Source, error) {
	var cfg Config
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("traffic config: %w", err)
		}
	}
	return New(log, cfg)
}

func init() {
	source.Register(Name, factory)
}
