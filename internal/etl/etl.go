// Package etl runs one extraction over a date window: fetch each feed,
// normalize it, write the rejected rows and upsert the rest, one entity
// type after another.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tsatrips/dodoetl/internal/audit"
	conf "github.com/tsatrips/dodoetl/internal/config"
	"github.com/tsatrips/dodoetl/internal/loader"
	"github.com/tsatrips/dodoetl/internal/normalize"
	"github.com/tsatrips/dodoetl/internal/record"
	"github.com/tsatrips/dodoetl/internal/source"
	"github.com/tsatrips/dodoetl/internal/tracker"
)

type Options struct {
	Policy   loader.Policy
	AuditDir string // pusty => bez pliku
	Now      func() time.Time
}

type Pipeline struct {
	log     zerolog.Logger
	db      *gorm.DB
	sources map[record.Feed]source.Source
	opts    Options
}

func New(log zerolog.Logger, gdb *gorm.DB, sources map[record.Feed]source.Source, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Policy == "" {
		opts.Policy = loader.PolicyRow
	}
	return &Pipeline{log: log, db: gdb, sources: sources, opts: opts}
}

// FromConfig builds the sources named in cfg.Feeds through the registry.
// Feeds sharing a source share one instance (one login).
func FromConfig(log zerolog.Logger, cfg *conf.Config, gdb *gorm.DB, appDir string) (*Pipeline, error) {
	built := map[string]source.Source{}
	sources := map[record.Feed]source.Source{}
	for _, feed := range record.Feeds {
		name, ok := cfg.Feeds[feed]
		if !ok {
			log.Warn().Str("feed", string(feed)).Msg("feed has no source, skipped")
			continue
		}
		src, ok := built[name]
		if !ok {
			f, ok := source.Get(name)
			if !ok {
				return nil, fmt.Errorf("source %q not registered", name)
			}
			var err error
			src, err = f(log.With().Str("source", name).Logger(), cfg.Sources[name])
			if err != nil {
				return nil, fmt.Errorf("source %q: %w", name, err)
			}
			built[name] = src
		}
		sources[feed] = src
	}
	return New(log, gdb, sources, Options{
		Policy:   loader.Policy(cfg.RollbackPolicy),
		AuditDir: cfg.AuditPath(appDir),
	}), nil
}

type Report struct {
	RunID      string
	From, To   time.Time
	Trackers   []*tracker.Tracker
	Rejected   map[record.Feed]int
	AuditFiles []string
}

func (r *Report) Summaries() []tracker.Summary {
	out := make([]tracker.Summary, 0, len(r.Trackers))
	for _, t := range r.Trackers {
		out = append(out, t.Summary())
	}
	return out
}

// Run processes the feeds in order. A source, commit or connection failure
// stops the run; entity types finished before it stay committed.
func (p *Pipeline) Run(ctx context.Context, from, to time.Time) (*Report, error) {
	rep := &Report{RunID: uuid.NewString(), From: from, To: to, Rejected: map[record.Feed]int{}}
	log := p.log.With().Str("run_id", rep.RunID).Logger()
	log.Info().Time("from", from).Time("to", to).Msg("etl run start")

	for _, feed := range record.Feeds {
		src, ok := p.sources[feed]
		if !ok {
			continue
		}
		tr, err := p.runFeed(ctx, log.With().Str("feed", string(feed)).Logger(), feed, src, from, to, rep)
		if tr != nil {
			rep.Trackers = append(rep.Trackers, tr)
		}
		if err != nil {
			log.Error().Err(err).Str("feed", string(feed)).Msg("etl run aborted")
			return rep, fmt.Errorf("%s: %w", feed, err)
		}
	}
	log.Info().Int("feeds", len(rep.Trackers)).Msg("etl run done")
	return rep, nil
}

func (p *Pipeline) runFeed(ctx context.Context, log zerolog.Logger, feed record.Feed, src source.Source, from, to time.Time, rep *Report) (*tracker.Tracker, error) {
	raw, err := src.Fetch(ctx, feed, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch from %s: %w", src.Name(), err)
	}
	cfg, err := normalize.ForFeed(feed)
	if err != nil {
		return nil, err
	}
	res, err := normalize.Normalize(raw, cfg)
	if err != nil {
		return nil, err
	}
	rep.Rejected[feed] = len(res.Rejected)
	log.Info().
		Int("raw", len(raw.Rows)).
		Int("clean", len(res.Clean.Rows)).
		Int("duplicates", res.Duplicates).
		Int("missing_key", res.MissingKey).
		Msg("normalized")

	if p.opts.AuditDir != "" {
		path, err := audit.WriteRejected(p.opts.AuditDir, feed, p.opts.Now(), res)
		if err != nil {
			// plik audytu jest dodatkiem, nie przerywamy
			log.Warn().Err(err).Msg("rejected rows file not written")
		} else if path != "" {
			rep.AuditFiles = append(rep.AuditFiles, path)
			log.Info().Str("path", path).Int("rows", len(res.Rejected)).Msg("rejected rows written")
		}
	}

	lopts := loader.Options{Policy: p.opts.Policy, Log: log, Now: p.opts.Now}
	switch feed {
	case record.FeedReservations:
		return load(ctx, p.db, loader.Reservations, res.Clean, lopts)
	case record.FeedBudgets:
		return load(ctx, p.db, loader.Budgets, res.Clean, lopts)
	case record.FeedOpportunities:
		return load(ctx, p.db, loader.Opportunities, res.Clean, lopts)
	}
	return nil, fmt.Errorf("no loader for feed %q", feed)
}

func load[T any](ctx context.Context, gdb *gorm.DB, kind loader.Kind[T], rows record.Set, opts loader.Options) (*tracker.Tracker, error) {
	sess, err := loader.Begin[T](ctx, gdb)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return loader.Upsert[T](ctx, sess, kind, rows, opts)
}
