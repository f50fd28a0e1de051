package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/tabslayer/tabslayer-server/internal/events"
	"github.com/tabslayer/tabslayer-server/internal/logger"
	"github.com/tabslayer/tabslayer-server/internal/store"
)

const DefaultTheme = store.ThemeDark

// SettingsService owns the theme preference.
type SettingsService struct {
	mu    sync.Mutex
	theme store.Theme

	persistence *store.Persistence
	publisher   Publisher
	log         logger.Logger
}

func NewSettingsService(ctx context.Context, p *store.Persistence, pub Publisher, log logger.Logger) *SettingsService {
	if pub == nil {
		pub = nopPublisher{}
	}
	s := &SettingsService{theme: DefaultTheme, persistence: p, publisher: pub, log: log}

	theme, found, err := p.LoadTheme(ctx)
	switch {
	case err != nil:
		log.Error("failed to load theme", logger.Error(err))
	case !found:
	case !theme.Valid():
		log.Warn("ignoring unknown saved theme", logger.String("theme", string(theme)))
	default:
		s.theme = theme
	}
	return s
}

func (s *SettingsService) Theme() store.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

func (s *SettingsService) SetTheme(ctx context.Context, theme store.Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}

	s.mu.Lock()
	s.theme = theme
	if err := s.persistence.SaveTheme(context.WithoutCancel(ctx), theme); err != nil {
		s.log.Error("failed to persist theme", logger.String("theme", string(theme)), logger.Error(err))
	}
	s.mu.Unlock()

	s.publisher.Publish(events.ThemeUpdated, map[string]store.Theme{"theme": theme})
	return nil
}
