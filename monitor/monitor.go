// Package monitor runs the watch loop: a historical backfill on first run,
// then incremental cycles over the configured profiles, one at a time.
//
// The monitor owns the seen-state for the process lifetime. It persists the
// state after every profile so that a crash loses at most one profile's
// progress.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/linkwatch/activity"
	"github.com/hazyhaar/linkwatch/collector"
	"github.com/hazyhaar/linkwatch/dedup"
	"github.com/hazyhaar/linkwatch/enrich"
	"github.com/hazyhaar/linkwatch/internal/pacing"
	"github.com/hazyhaar/linkwatch/notify"
	"github.com/hazyhaar/linkwatch/report"
	"github.com/hazyhaar/linkwatch/seenstate"
)

// Enricher analyses posts. *enrich.Adapter implements it.
type Enricher interface {
	Enabled() bool
	Limits(historical bool) enrich.Limits
	Enrich(ctx context.Context, text string, pastPosts []string, historical bool) enrich.Analysis
}

// Config tunes the loop.
type Config struct {
	Profiles []string

	// HistoricalLimit and IncrementalLimit bound records per section.
	HistoricalLimit  int
	IncrementalLimit int

	// Pauses between profiles and between cycles.
	HistoricalPause  pacing.Window
	IncrementalPause pacing.Window
	CheckInterval    pacing.Window

	// RunOnce stops after the first incremental cycle.
	RunOnce bool

	Logger *slog.Logger
	Now    func() time.Time
}

func (c *Config) defaults() {
	if c.HistoricalLimit <= 0 {
		c.HistoricalLimit = 50
	}
	if c.IncrementalLimit <= 0 {
		c.IncrementalLimit = 6
	}
	if c.HistoricalPause == (pacing.Window{}) {
		c.HistoricalPause = pacing.Seconds(15, 30)
	}
	if c.IncrementalPause == (pacing.Window{}) {
		c.IncrementalPause = pacing.Seconds(10, 25)
	}
	if c.CheckInterval == (pacing.Window{}) {
		c.CheckInterval = pacing.Seconds(300, 600)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Deps are the collaborators of a Monitor. Archive is optional.
type Deps struct {
	Collector collector.Collector
	Store     seenstate.Store
	Engine    *dedup.Engine
	Enricher  Enricher
	Formatter *report.Formatter
	Channel   notify.Channel
	Archive   *report.Archive
	Pacer     *pacing.Pacer
}

// Monitor is the run orchestrator.
type Monitor struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
	newID  func() string

	state    *seenstate.State
	loaded   bool
	firstRun bool
	mode     dedup.Mode

	mu     sync.Mutex
	status Status
}

// New creates a Monitor. Missing optional collaborators get defaults.
func New(deps Deps, cfg Config) *Monitor {
	cfg.defaults()
	if deps.Engine == nil {
		deps.Engine = dedup.NewEngine()
	}
	if deps.Enricher == nil {
		deps.Enricher = enrich.New(nil, enrich.Config{Logger: cfg.Logger})
	}
	if deps.Formatter == nil {
		deps.Formatter = report.NewFormatter(report.DefaultMonthsBack)
	}
	if deps.Channel == nil {
		deps.Channel = notify.NewLog(cfg.Logger)
	}
	if deps.Pacer == nil {
		deps.Pacer = pacing.New(pacing.Clock{}, cfg.Logger)
	}
	return &Monitor{
		deps:   deps,
		cfg:    cfg,
		logger: cfg.Logger,
		newID:  uuid.NewString,
		state:  seenstate.New(),
	}
}

// Load reads the seen-state and decides the starting mode. A missing,
// corrupt or unreadable document starts a historical backfill.
func (m *Monitor) Load(ctx context.Context) error {
	st, info, err := m.deps.Store.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Warn("monitor: load state, starting empty", "error", err)
		st, info = seenstate.New(), seenstate.LoadInfo{}
	}
	if info.Corrupt {
		m.logger.Warn("monitor: state document corrupt, starting empty", "error", info.Err)
	}
	if st == nil {
		st = seenstate.New()
	}
	m.state = st
	m.loaded = true
	m.firstRun = seenstate.FirstRun(st, info)
	m.mode = dedup.Incremental
	if m.firstRun {
		m.mode = dedup.Historical
	}
	m.publish(nil)
	return nil
}

// FirstRun reports whether the loaded state calls for a backfill.
func (m *Monitor) FirstRun() bool { return m.firstRun }

// Run executes the state machine until ctx is cancelled or, under RunOnce,
// after one incremental cycle. It returns ctx.Err() on cancellation.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.loaded {
		if err := m.Load(ctx); err != nil {
			return err
		}
	}

	if m.firstRun {
		m.logger.Info("monitor: first run, starting historical analysis", "profiles", len(m.cfg.Profiles))
		if _, err := m.Historical(ctx); err != nil {
			return err
		}
	} else {
		m.notice(ctx, "", dedup.Incremental, m.deps.Formatter.Started())
	}

	for {
		if _, err := m.Cycle(ctx); err != nil {
			return err
		}
		if m.cfg.RunOnce {
			m.logger.Info("monitor: run-once, exiting after one cycle")
			return nil
		}
		m.logger.Info("monitor: cycle complete")
		if err := m.deps.Pacer.Wait(ctx, m.cfg.CheckInterval); err != nil {
			return err
		}
	}
}

// Historical runs the backfill pass over every profile and switches the
// monitor to incremental mode.
func (m *Monitor) Historical(ctx context.Context) (*CycleSummary, error) {
	f := m.deps.Formatter
	m.notice(ctx, "", dedup.Historical, f.HistoricalStart())

	sum, err := m.pass(ctx, dedup.Historical)
	if err != nil {
		return sum, err
	}

	m.firstRun = false
	m.mode = dedup.Incremental
	m.logger.Info("monitor: historical analysis complete")
	m.notice(ctx, "", dedup.Historical, f.HistoricalDone())
	m.publish(sum)
	return sum, nil
}

// Cycle runs one incremental pass over every profile.
func (m *Monitor) Cycle(ctx context.Context) (*CycleSummary, error) {
	sum, err := m.pass(ctx, dedup.Incremental)
	if err == nil {
		m.publish(sum)
	}
	return sum, err
}

func (m *Monitor) pass(ctx context.Context, mode dedup.Mode) (*CycleSummary, error) {
	sum := &CycleSummary{
		RunID:     m.newID(),
		Mode:      mode.String(),
		StartedAt: m.cfg.Now(),
	}
	pause := m.cfg.IncrementalPause
	if mode == dedup.Historical {
		pause = m.cfg.HistoricalPause
	}

	total := len(m.cfg.Profiles)
	for i, profile := range m.cfg.Profiles {
		if err := ctx.Err(); err != nil {
			return m.finish(sum), err
		}
		m.logger.Info("monitor: scanning profile",
			"run_id", sum.RunID, "mode", mode.String(), "profile", activity.Slug(profile),
			"index", i+1, "total", total)

		res := m.scan(ctx, sum.RunID, profile, i+1, total, mode)
		sum.Profiles = append(sum.Profiles, res)
		if err := ctx.Err(); err != nil {
			return m.finish(sum), err
		}
		if err := m.deps.Pacer.Wait(ctx, pause); err != nil {
			return m.finish(sum), err
		}
	}
	return m.finish(sum), nil
}

func (m *Monitor) finish(sum *CycleSummary) *CycleSummary {
	sum.FinishedAt = m.cfg.Now()
	return sum
}

// scan handles one profile: collect, dedup, enrich, report, persist.
// Every failure is contained here.
func (m *Monitor) scan(ctx context.Context, runID, profile string, index, total int, mode dedup.Mode) ProfileResult {
	res := ProfileResult{Profile: profile, Slug: activity.Slug(profile)}
	historical := mode == dedup.Historical
	who := activity.DisplayName(profile)
	log := m.logger.With("run_id", runID, "profile", res.Slug)

	limit := m.cfg.IncrementalLimit
	if historical {
		limit = m.cfg.HistoricalLimit
	}
	recs, err := m.deps.Collector.Collect(ctx, profile, limit, historical)
	if err != nil {
		res.Error = err.Error()
		if ctx.Err() != nil {
			return res
		}
		log.Warn("monitor: collect failed", "error", err)
		m.notice(ctx, profile, mode, m.deps.Formatter.ProfileFailed(who, mode, err))
		return res
	}
	res.Found = len(recs)

	result, err := m.deps.Engine.Plan(profile, recs, m.state, mode)
	res.Collapsed, res.Suppressed = result.Collapsed, result.Suppressed
	switch {
	case errors.Is(err, dedup.ErrNoNewActivity):
		if historical {
			log.Info("monitor: no historical activity")
			m.notice(ctx, profile, mode, m.deps.Formatter.NoHistorical(who))
		} else {
			log.Info("monitor: no new activity")
		}
	case err != nil:
		res.Error = err.Error()
		log.Error("monitor: dedup", "error", err)
	default:
		res.New = result.Groups.Len()
		rep := m.build(ctx, profile, result.Groups, mode, index, total)
		text, ferr := m.deps.Formatter.Format(rep)
		if ferr != nil {
			log.Error("monitor: format report", "error", ferr)
			break
		}
		log.Info("monitor: sending report", "entries", rep.Len())
		res.Sent = m.send(ctx, runID, profile, "report", mode, rep.Len(), text)
	}

	// Records are marked seen only once their report went out under a live
	// context; an interrupted profile leaves the stored state untouched.
	if ctx.Err() != nil {
		log.Info("monitor: interrupted, state not updated")
		return res
	}
	if err == nil {
		m.state.Apply(result.Update, m.deps.Engine.Caps(mode))
	}
	m.persist(ctx, log)
	return res
}

// build enriches the posts of a dedup result into a report.
func (m *Monitor) build(ctx context.Context, profile string, g dedup.Groups, mode dedup.Mode, index, total int) report.Report {
	historical := mode == dedup.Historical
	rep := report.Report{
		Header:   report.HeaderFor(profile, mode, m.cfg.Now(), index, total),
		Comments: g.Comments,
		Likes:    g.Likes,
	}
	if len(g.Posts) == 0 {
		return rep
	}

	var past []string
	en := m.deps.Enricher
	if en.Enabled() {
		n := en.Limits(historical).MaxPastPosts
		texts, err := m.deps.Collector.RecentPostTexts(ctx, profile, n, historical)
		if err != nil {
			m.logger.Warn("monitor: past posts unavailable", "profile", activity.Slug(profile), "error", err)
		}
		past = texts
	}
	for _, p := range g.Posts {
		rep.Posts = append(rep.Posts, report.PostEntry{
			Record:   p,
			Analysis: en.Enrich(ctx, p.Text, past, historical),
		})
	}
	return rep
}

// notice sends a lifecycle or warning message.
func (m *Monitor) notice(ctx context.Context, profile string, mode dedup.Mode, text string) {
	m.send(ctx, "", profile, "notice", mode, 0, text)
}

func (m *Monitor) send(ctx context.Context, runID, profile, kind string, mode dedup.Mode, entries int, text string) bool {
	ok := true
	if err := m.deps.Channel.Send(ctx, text); err != nil {
		ok = false
		m.logger.Warn("monitor: notification failed", "channel", m.deps.Channel.Name(), "kind", kind, "error", err)
	}
	if m.deps.Archive == nil {
		return ok
	}
	meta := report.ArchiveMeta{
		RunID:   runID,
		Profile: profile,
		Kind:    kind,
		Mode:    mode.String(),
		Entries: entries,
		SentAt:  m.cfg.Now(),
	}
	if _, err := m.deps.Archive.Write(ctx, meta, text); err != nil {
		m.logger.Warn("monitor: archive", "kind", kind, "error", err)
	}
	return ok
}

// persist saves the state. Failure keeps the in-memory state; the next
// successful save catches up.
func (m *Monitor) persist(ctx context.Context, log *slog.Logger) {
	if err := m.deps.Store.Save(ctx, m.state); err != nil {
		log.Error("monitor: persist state", "error", err)
	}
}
