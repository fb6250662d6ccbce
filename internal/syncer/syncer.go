// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	conf "github.com/tsatrips/dodoetl/internal/config"
	"github.com/tsatrips/dodoetl/internal/etl"
)

var (
	ErrBusy      = errors.New("an ETL run is already in progress")
	ErrDateRange = errors.New("date range: from must be before to")
)

// Runner to jeden przebieg ETL (etl.Pipeline).
type Runner interface {
	Run(ctx context.Context, from, to time.Time) (*etl.Report, error)
}

// Status ostatniego przebiegu, dla tray / REPL.
type Status struct {
	Running  bool
	Busy     bool
	LastRun  time.Time
	LastErr  error
	LastRep  *etl.Report
	Runs     uint64
	NextTick time.Time
}

type Syncer struct {
	log    zerolog.Logger // logowanie
	runner Runner
	now    func() time.Time

	mu      sync.Mutex   // ochrona sekcji krytycznych
	cfg     *conf.Config // aktualna konfiguracja
	running bool         // czy harmonogram działa
	cancel  context.CancelFunc
	wg      sync.WaitGroup // śledzi goroutines
	next    time.Time

	runMu   sync.Mutex // jeden przebieg naraz
	busy    bool
	runs    uint64
	lastRun time.Time
	lastErr error
	lastRep *etl.Report
}

func New(log zerolog.Logger, cfg *conf.Config, runner Runner) *Syncer {
	return &Syncer{log: log, cfg: cfg, runner: runner, now: time.Now}
}

// RunOnce runs the pipeline over [from, to). It refuses to overlap with a
// run already in progress.
func (s *Syncer) RunOnce(ctx context.Context, from, to time.Time) (*etl.Report, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w (%s >= %s)", ErrDateRange, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	s.runMu.Lock()
	if s.busy {
		s.runMu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	runner := s.runner
	s.runMu.Unlock()

	rep, err := runner.Run(ctx, from, to)

	s.runMu.Lock()
	s.busy = false
	s.runs++
	s.lastRun = s.now()
	s.lastErr = err
	s.lastRep = rep
	s.runMu.Unlock()
	return rep, err
}

// Window: [dziś - lookback, dziś + lookahead), w pełnych dniach.
func (s *Syncer) Window() (from, to time.Time) {
	s.mu.Lock()
	back, ahead := 30, 365
	if s.cfg != nil {
		back, ahead = s.cfg.LookbackDays, s.cfg.LookaheadDays
	}
	s.mu.Unlock()
	if ahead < 1 {
		ahead = 1
	}

	n := s.now()
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
	return today.AddDate(0, 0, -back), today.AddDate(0, 0, ahead)
}

// RunWindow runs the pipeline over the configured rolling window.
func (s *Syncer) RunWindow(ctx context.Context) (*etl.Report, error) {
	from, to := s.Window()
	return s.RunOnce(ctx, from, to)
}

func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.interval()).Msg("syncer: start")
	go s.loop(ctx)
	return nil
}

func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.log.Info().Msg("syncer: stop")
}

func (s *Syncer) UpdateConfig(cfg *conf.Config) {
	s.mu.Lock()
	s.cfg = cfg
	isRunning := s.running
	s.mu.Unlock()

	s.log.Info().Msg("syncer: config zaktualizowany")

	if isRunning {
		// restart, żeby pętla wzięła nowy interwał
		s.Stop()
		_ = s.Start(context.Background())
	}
}

// SetRunner podmienia pipeline (np. po przeładowaniu configu ze źródłami).
func (s *Syncer) SetRunner(r Runner) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.runner = r
}

func (s *Syncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Syncer) Status() Status {
	s.mu.Lock()
	st := Status{Running: s.running, NextTick: s.next}
	s.mu.Unlock()

	s.runMu.Lock()
	defer s.runMu.Unlock()
	st.Busy = s.busy
	st.LastRun = s.lastRun
	st.LastErr = s.lastErr
	st.LastRep = s.lastRep
	st.Runs = s.runs
	return st
}

func (s *Syncer) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg != nil && s.cfg.SyncIntervalMinutes > 0 {
		return time.Duration(s.cfg.SyncIntervalMinutes) * time.Minute
	}
	return time.Hour
}

func (s *Syncer) loop(ctx context.Context) {
	defer s.wg.Done()

	// pierwszy strzał od razu
	s.tick(ctx)

	every := s.interval()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	s.setNext(every)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("syncer: koniec pętli")
			return
		case <-ticker.C:
			s.tick(ctx)
			s.setNext(every)
		}
	}
}

func (s *Syncer) setNext(d time.Duration) {
	s.mu.Lock()
	s.next = s.now().Add(d)
	s.mu.Unlock()
}

func (s *Syncer) tick(ctx context.Context) {
	rep, err := s.RunWindow(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		s.log.Warn().Msg("syncer: poprzedni przebieg jeszcze trwa, pomijam")
	case err != nil:
		s.log.Error().Err(err).Msg("syncer: przebieg zakończony błędem")
	default:
		s.log.Info().Str("run_id", rep.RunID).Msg("syncer: przebieg zakończony")
	}
}
