package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// zmienne środowiskowe -> pole sekcji źródła
var envBindings = []struct {
	env, source, key string
}{
	{"URL_LOGIN_TRAFFIC", "traffic", "login_url"},
	{"URL_DATA_TRAFFIC", "traffic", "reservations_url"},
	{"URL_DATA_TRAFFIC_PRESUPUESTO", "traffic", "budgets_url"},
	{"TRAFFIC_USERNAME", "traffic", "username"},
	{"TRAFFIC_PASSWORD", "traffic", "password"},
	{"URL_LOGIN_ODDO", "odoo", "login_url"},
	{"URL_DATA_ODDO", "odoo", "data_url"},
	{"ODDO_USERNAME", "odoo", "username"},
	{"ODDO_PASSWORD", "odoo", "password"},
}

const EnvEngine = "ENGINE_PATH"

// LoadDotEnv loads the given .env files that exist. Variables already set
// in the process environment are not overwritten.
func LoadDotEnv(paths ...string) error {
	var found []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return nil
	}
	return godotenv.Load(found...)
}

// ApplyEnv nadpisuje config wartościami ze środowiska (env wygrywa z plikiem).
// Zwraca nazwy użytych zmiennych, do logów (bez wartości).
func (c *Config) ApplyEnv(getenv func(string) string) ([]string, error) {
	var used []string

	if v := getenv(EnvEngine); v != "" {
		driver, dsn, err := ParseEngineURL(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvEngine, err)
		}
		c.Database = Database{Driver: driver, DSN: dsn}
		used = append(used, EnvEngine)
	}

	patch := map[string]map[string]string{}
	for _, b := range envBindings {
		v := getenv(b.env)
		if v == "" {
			continue
		}
		if patch[b.source] == nil {
			patch[b.source] = map[string]string{}
		}
		patch[b.source][b.key] = v
		used = append(used, b.env)
	}

	if c.Sources == nil {
		c.Sources = map[string]json.RawMessage{}
	}
	for src, kv := range patch {
		section := map[string]any{}
		if raw := c.Sources[src]; len(raw) > 0 {
			if err := json.Unmarshal(raw, &section); err != nil {
				return nil, fmt.Errorf("config: source %q: %w", src, err)
			}
		}
		for k, v := range kv {
			section[k] = v
		}
		raw, err := json.Marshal(section)
		if err != nil {
			return nil, err
		}
		c.Sources[src] = raw
	}
	sort.Strings(used)
	return used, nil
}

var ErrEngineURL = errors.New("unsupported engine url")

// ParseEngineURL zamienia URL w stylu SQLAlchemy (mysql+pymysql://u:p@h/db,
// postgresql://..., sqlite:///plik.db) na sterownik gorm i DSN.
// Bez schematu: ścieżka do pliku sqlite.
func ParseEngineURL(s string) (driver, dsn string, err error) {
	if !strings.Contains(s, "://") {
		return "sqlite", s, nil
	}
	scheme, rest, _ := strings.Cut(s, "://")
	base, _, _ := strings.Cut(scheme, "+")

	switch base {
	case "sqlite":
		// sqlite:///rel.db, sqlite:////abs.db
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			return "", "", fmt.Errorf("%w: sqlite url without path", ErrEngineURL)
		}
		return "sqlite", path, nil

	case "mysql", "mariadb":
		u, err := url.Parse("mysql://" + rest)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrEngineURL, err)
		}
		host := u.Host
		if u.Port() == "" {
			host += ":3306"
		}
		pass, _ := u.User.Password()
		q := u.Query()
		if q.Get("charset") == "" {
			q.Set("charset", "utf8mb4")
		}
		q.Set("parseTime", "True")
		q.Set("loc", "UTC") // daty zapisujemy jako północ UTC
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s)/%s?%s",
			u.User.Username(), pass, host, strings.TrimPrefix(u.Path, "/"), q.Encode()), nil

	case "postgres", "postgresql":
		u, err := url.Parse("postgres://" + rest)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrEngineURL, err)
		}
		return "postgres", u.String(), nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrEngineURL, scheme)
}
