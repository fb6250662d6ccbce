// internal/config/config.go
package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/tsatrips/dodoetl/internal/record"
)

type Database struct {
	Driver string `json:"driver" validate:"omitempty,oneof=sqlite sqlite-cgo mysql postgres"`
	DSN    string `json:"dsn"` // pusty => plik sqlite w katalogu aplikacji
}

// Główny config aplikacji
type Config struct {
	AutoStart           bool     `json:"auto_start"`
	SyncIntervalMinutes int      `json:"sync_interval_minutes" validate:"gte=1"`
	LookbackDays        int      `json:"lookback_days" validate:"gte=0"`
	LookaheadDays       int      `json:"lookahead_days" validate:"gte=1"`
	Database            Database `json:"database"`
	RollbackPolicy      string   `json:"rollback_policy" validate:"oneof=row batch"`
	AuditDir            string   `json:"audit_dir,omitempty"` // pusty => bez pliku odrzuconych
	LogLevel            string   `json:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	// feed -> nazwa źródła
	Feeds   map[record.Feed]string     `json:"feeds" validate:"required"`
	Sources map[string]json.RawMessage `json:"sources"` // nazwa -> surowy JSON źródła
}

// Domyślne sekcje źródeł (do pierwszego zapisu).
type TrafficDefaults struct {
	LoginURL        string `json:"login_url"`
	LoginService    string `json:"login_service"`
	ReservationsURL string `json:"reservations_url"`
	BudgetsURL      string `json:"budgets_url"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	PageSize        int    `json:"page_size"`
	TimeoutSec      int    `json:"timeout_sec"`
}

type OdooDefaults struct {
	LoginURL   string `json:"login_url"`
	DataURL    string `json:"data_url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	PageSize   int    `json:"page_size"`
	Currency   string `json:"currency"`
	TimeoutSec int    `json:"timeout_sec"`
}

func Default() *Config {
	rawTraffic, _ := json.Marshal(TrafficDefaults{
		LoginURL:        "https://traffic.example.com/Account/Login",
		LoginService:    "/Services/Membership/Account/Login",
		ReservationsURL: "https://traffic.example.com/Services/Reservas/List",
		BudgetsURL:      "https://traffic.example.com/Services/Presupuestos/List",
		PageSize:        2500,
		TimeoutSec:      120,
	})
	rawOdoo, _ := json.Marshal(OdooDefaults{
		LoginURL:   "https://example.odoo.com/web/login",
		PageSize:   80,
		Currency:   "U$D",
		TimeoutSec: 60,
	})
	return &Config{
		AutoStart:           false,
		SyncIntervalMinutes: 60,
		LookbackDays:        30,
		LookaheadDays:       365,
		Database:            Database{Driver: "sqlite"},
		RollbackPolicy:      "row",
		AuditDir:            "rechazados",
		LogLevel:            "info",
		Feeds: map[record.Feed]string{
			record.FeedReservations:  "traffic",
			record.FeedBudgets:       "traffic",
			record.FeedOpportunities: "odoo",
		},
		Sources: map[string]json.RawMessage{
			"traffic": rawTraffic,
			"odoo":    rawOdoo,
		},
	}
}

// LoadOrCreate czyta config; przy pierwszym uruchomieniu zapisuje domyślny.
// Zwraca true, gdy plik został właśnie utworzony.
func LoadOrCreate(path string) (*Config, bool, error) {
	// upewnij się, że katalog istnieje
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("błąd zapisu domyślnego configa: %w", err)
			}
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("błąd otwierania configa: %w", err)
	}
	defer f.Close()

	cfg := Default()
	cfg.Feeds = nil
	cfg.Sources = nil
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, false, fmt.Errorf("błąd parsowania configa: %w", err)
	}
	if cfg.Sources == nil {
		cfg.Sources = map[string]json.RawMessage{}
	}
	if cfg.Feeds == nil {
		cfg.Feeds = Default().Feeds
	}
	return cfg, false, nil
}

func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

var validate = validator.New()

// Validate sprawdza strukturę i czy każdy feed ma skonfigurowane źródło.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for feed, src := range c.Feeds {
		if !feed.Valid() {
			return fmt.Errorf("config: unknown feed %q", feed)
		}
		if _, ok := c.Sources[src]; !ok {
			return fmt.Errorf("config: feed %q uses source %q which has no section", feed, src)
		}
	}
	return nil
}

// Helper do odczytu konkretnego źródła do struktury docelowej
func (c *Config) UnmarshalSource(name string, v any) error {
	raw, ok := c.Sources[name]
	if !ok {
		return fmt.Errorf("brak źródła %q w configu", name)
	}
	return json.Unmarshal(raw, v)
}

// AuditPath: względna ścieżka liczona od katalogu aplikacji.
func (c *Config) AuditPath(appDir string) string {
	if c.AuditDir == "" || filepath.IsAbs(c.AuditDir) {
		return c.AuditDir
	}
	return filepath.Join(appDir, c.AuditDir)
}
