package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/uniboxhq/unibox/internal/config"
	"github.com/uniboxhq/unibox/internal/link"
	"github.com/uniboxhq/unibox/internal/message"
	"github.com/uniboxhq/unibox/internal/platform"
)

// LinkLister is the slice of the link service the sync sweep needs.
type LinkLister interface {
	ListActive(ctx context.Context, p platform.Platform) ([]link.PlatformLink, error)
	TouchSynced(ctx context.Context, linkID string, at time.Time) error
}

// Manager sweeps every active platform link on a cron schedule and ingests
// whatever the platform's pull API returns. Dedup in the message store makes
// overlap with webhook delivery harmless.
type Manager struct {
	registry *platform.Registry
	links    LinkLister
	ingestor message.Ingestor
	logger   *slog.Logger
	cfg      config.SyncConfig

	cron *cron.Cron

	mu       sync.Mutex
	sessions map[string]*Session

	now func() time.Time
}

func NewManager(log *slog.Logger, cfg config.SyncConfig, registry *platform.Registry, links LinkLister, ingestor message.Ingestor) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		registry: registry,
		links:    links,
		ingestor: ingestor,
		logger:   log.With(slog.String("service", "sync")),
		cfg:      cfg,
		sessions: map[string]*Session{},
		now:      time.Now,
	}
}

// Start schedules the periodic sweep. A no-op when sync is disabled.
func (m *Manager) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.logger.Info("pull sync disabled")
		return nil
	}
	schedule := m.cfg.Schedule
	if schedule == "" {
		schedule = config.DefaultSyncSchedule
	}
	m.cron = cron.New()
	_, err := m.cron.AddFunc(schedule, func() {
		m.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}
	m.cron.Start()
	m.logger.Info("pull sync started", slog.String("schedule", schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (m *Manager) Stop(ctx context.Context) error {
	if m.cron == nil {
		return nil
	}
	stopped := m.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce sweeps every platform that supports pulling.
func (m *Manager) RunOnce(ctx context.Context) {
	for _, p := range m.registry.Platforms() {
		puller, ok := m.registry.GetPuller(p)
		if !ok {
			continue
		}
		links, err := m.links.ListActive(ctx, p)
		if err != nil {
			m.logger.Error("list links for sync failed",
				slog.String("platform", string(p)),
				slog.Any("error", err))
			continue
		}
		for _, l := range links {
			m.syncLink(ctx, puller, l)
		}
	}
}

func (m *Manager) syncLink(ctx context.Context, puller platform.Puller, l link.PlatformLink) {
	session := m.session(l.ID)
	if !session.Begin() {
		m.logger.Debug("sync already in progress",
			slog.String("link_id", l.ID),
			slog.String("platform", string(l.Platform)))
		return
	}

	msgs, err := puller.PullMessages(ctx, l.AccessToken)
	if err != nil {
		session.Fail(err)
		m.logger.Warn("pull failed",
			slog.String("platform", string(l.Platform)),
			slog.String("link_id", l.ID),
			slog.Any("error", err))
		return
	}

	stored := 0
	for _, msg := range msgs {
		if _, err := m.ingestor.Ingest(ctx, l.UserID, msg); err != nil {
			m.logger.Warn("ingest pulled message failed",
				slog.String("platform", string(l.Platform)),
				slog.Any("error", err))
			continue
		}
		stored++
	}

	at := m.now().UTC()
	if err := session.Succeed(at); err != nil {
		m.logger.Error("session transition failed", slog.Any("error", err))
	}
	if err := m.links.TouchSynced(ctx, l.ID, at); err != nil {
		m.logger.Warn("record sync time failed", slog.String("link_id", l.ID), slog.Any("error", err))
	}
	if stored > 0 {
		m.logger.Info("pull sync stored messages",
			slog.String("platform", string(l.Platform)),
			slog.Int("count", stored))
	}
}

// SessionStatus reports the session for a link, creating nothing.
func (m *Manager) SessionStatus(linkID string) (SessionStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[linkID]
	if !ok {
		return SessionStatus{State: StateDisconnected}, false
	}
	return s.Status(), true
}

func (m *Manager) session(linkID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[linkID]
	if !ok {
		s = NewSession()
		m.sessions[linkID] = s
	}
	return s
}
