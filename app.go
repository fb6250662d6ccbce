package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"

	conf "github.com/tsatrips/dodoetl/internal/config"
	"github.com/tsatrips/dodoetl/internal/db"
	"github.com/tsatrips/dodoetl/internal/etl"
	"github.com/tsatrips/dodoetl/internal/logs"
	"github.com/tsatrips/dodoetl/internal/syncer"
	"github.com/tsatrips/dodoetl/internal/tracker"

	_ "github.com/tsatrips/dodoetl/internal/source/odoo" // rejestracja źródeł
	_ "github.com/tsatrips/dodoetl/internal/source/traffic"
)

const appName = "dodoetl"

// wersję możesz nadpisać przez: -ldflags "-X 'main.ver=1.0.1'"
var ver = "1.0.0"

type app struct {
	dir     string
	cfgPath string
	logPath string

	cfg    *conf.Config
	log    zerolog.Logger
	logOut io.Closer
	store  *db.Handle
	sync   *syncer.Syncer
}

func bootstrap(withConsole bool) (*app, error) {
	dir := mustAppDataDir(appName)
	a := &app{
		dir:     dir,
		cfgPath: filepath.Join(dir, "config.json"),
		logPath: filepath.Join(dir, "app.log"),
	}

	// .env obok configa albo w katalogu roboczym
	if err := conf.LoadDotEnv(filepath.Join(dir, ".env"), ".env"); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, firstRun, used, err := loadConfig(a.cfgPath)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg

	log, closer, err := logs.New(a.logPath, withConsole, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a.log, a.logOut = log, closer
	if firstRun {
		log.Info().Msgf("Utworzono domyślną konfigurację: %s", a.cfgPath)
	}
	if len(used) > 0 {
		log.Info().Strs("env", used).Msg("config overridden from environment")
	}

	dsn := cfg.Database.DSN
	if dsn == "" {
		dsn = db.DefaultDSN(dir)
	}
	a.store, err = db.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := a.store.Migrate(); err != nil {
		return nil, err
	}
	log.Info().Str("driver", a.store.Driver).Msg("DB ready")

	pipe, err := etl.FromConfig(log, cfg, a.store.DB, dir)
	if err != nil {
		return nil, err
	}
	a.sync = syncer.New(log, cfg, pipe)
	return a, nil
}

func loadConfig(path string) (*conf.Config, bool, []string, error) {
	cfg, firstRun, err := conf.LoadOrCreate(path)
	if err != nil {
		return nil, false, nil, err
	}
	used, err := cfg.ApplyEnv(os.Getenv)
	if err != nil {
		return nil, false, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, nil, err
	}
	return cfg, firstRun, used, nil
}

// reload wczytuje config ponownie i przebudowuje źródła.
// Zmiana bazy danych wymaga restartu aplikacji.
func (a *app) reload() error {
	cfg, _, _, err := loadConfig(a.cfgPath)
	if err != nil {
		return err
	}
	pipe, err := etl.FromConfig(a.log, cfg, a.store.DB, a.dir)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.sync.SetRunner(pipe)
	a.sync.UpdateConfig(cfg)
	a.log.Info().Msg("Konfiguracja przeładowana")
	return nil
}

func (a *app) close() {
	if a.sync != nil {
		a.sync.Stop()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logOut != nil {
		_ = a.logOut.Close()
	}
}

func (a *app) runWindow(ctx context.Context) (*etl.Report, error) {
	return a.sync.RunWindow(ctx)
}

// printReport: tabela podsumowania + błędy per encja.
func printReport(w io.Writer, rep *etl.Report) {
	if rep == nil {
		return
	}
	fmt.Fprintf(w, "Run %s  %s -> %s\n", rep.RunID, rep.From.Format("2006-01-02"), rep.To.Format("2006-01-02"))
	tracker.RenderTable(w, rep.Summaries())
	for _, t := range rep.Trackers {
		tracker.RenderErrors(w, t)
	}
	for _, p := range rep.AuditFiles {
		fmt.Fprintln(w, "Rechazados:", p)
	}
}

func mustAppDataDir(name string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	p := filepath.Join(base, name)
	_ = os.MkdirAll(p, 0o755)
	return p
}

// przenośne otwieranie plików/katalogów w domyślnej aplikacji
func openInExplorer(path string) {
	switch runtime.GOOS {
	case "windows":
		// "start" musi być uruchomiony przez cmd /C, z pustym tytułem okna ""
		_ = exec.Command("cmd", "/C", "start", "", path).Start()
	case "darwin":
		_ = exec.Command("open", path).Start()
	default:
		_ = exec.Command("xdg-open", path).Start()
	}
}
