package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage keys.
const (
	KeyLinks = "links"
	KeyTheme = "theme"
)

// ErrPersistenceParse means the stored links value is not a JSON array of links.
var ErrPersistenceParse = errors.New("stored links are unreadable")

// Persistence reads and writes the vault and theme. It does no validation:
// callers own defaults and business rules.
type Persistence struct {
	kv KV
}

func NewPersistence(kv KV) *Persistence {
	return &Persistence{kv: kv}
}

// LoadLinks returns the stored collection, or nil when nothing is stored yet.
func (p *Persistence) LoadLinks(ctx context.Context) ([]Link, error) {
	raw, found, err := p.kv.Get(ctx, KeyLinks)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var links []Link
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceParse, err)
	}
	return links, nil
}

func (p *Persistence) SaveLinks(ctx context.Context, links []Link) error {
	if links == nil {
		links = []Link{}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("failed to marshal links: %w", err)
	}
	return p.kv.Set(ctx, KeyLinks, string(data))
}

// LoadTheme returns the raw stored theme; found is false when none is stored.
func (p *Persistence) LoadTheme(ctx context.Context) (Theme, bool, error) {
	raw, found, err := p.kv.Get(ctx, KeyTheme)
	if err != nil || !found {
		return "", false, err
	}
	return Theme(raw), true, nil
}

func (p *Persistence) SaveTheme(ctx context.Context, theme Theme) error {
	return p.kv.Set(ctx, KeyTheme, string(theme))
}
