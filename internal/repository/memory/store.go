// Package memory provides process-local implementations of the link and
// click repositories. They back single-instance deployments without a
// database and the service and handler tests.
package memory

import (
	"context"
	"sync"
	"time"

	"linkgate/internal/domain"
)

// DefaultEventLimit is how many click events a store keeps before it starts
// discarding the oldest. Counters are unaffected.
const DefaultEventLimit = 10000

type visitorKey struct {
	linkID      uint
	fingerprint string
}

// Store keeps links, visitors and click events behind a single mutex so
// claims and click recording observe each other atomically.
type Store struct {
	mu       sync.Mutex
	nextID   uint
	links    map[uint]*domain.ShortLink
	byCode   map[string]uint
	visitors map[visitorKey]time.Time
	events   []domain.ClickEvent
	maxEvent int
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		links:    make(map[uint]*domain.ShortLink),
		byCode:   make(map[string]uint),
		visitors: make(map[visitorKey]time.Time),
		maxEvent: DefaultEventLimit,
		now:      time.Now,
	}
}

// Create stores a copy of link and assigns its ID
func (s *Store) Create(ctx context.Context, link *domain.ShortLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCode[link.ShortCode]; ok {
		return domain.ErrShortCodeTaken
	}

	s.nextID++
	link.ID = s.nextID
	now := s.now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now
	if link.RedirectStatus == 0 {
		link.RedirectStatus = 302
	}

	stored := cloneLink(link)
	s.links[link.ID] = stored
	s.byCode[link.ShortCode] = link.ID
	return nil
}

// FindByShortCode returns a copy of the link regardless of its state
func (s *Store) FindByShortCode(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[shortCode]
	if !ok {
		return nil, domain.ErrLinkNotFound
	}
	return cloneLink(s.links[id]), nil
}

// FindByOwnerAndShortCode returns the link only when ownerID owns it
func (s *Store) FindByOwnerAndShortCode(ctx context.Context, ownerID, shortCode string) (*domain.ShortLink, error) {
	link, err := s.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

// ExistsByShortCode reports whether the code is taken
func (s *Store) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byCode[shortCode]
	return ok, nil
}

// ClaimClick increments click_count while it is below max_clicks
func (s *Store) ClaimClick(ctx context.Context, linkID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok || link.Policy.MaxClicks == nil {
		return false, nil
	}
	if link.ClickCount >= *link.Policy.MaxClicks {
		return false, nil
	}

	link.ClickCount++
	now := s.now().UTC()
	link.LastClickAt = &now
	return true, nil
}

// RecordClick applies the counters, the visitor mark and the event together
func (s *Store) RecordClick(ctx context.Context, event *domain.ClickEvent, opts domain.ClickOptions) (domain.ClickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[event.ShortLinkID]
	if !ok {
		return domain.ClickResult{}, domain.ErrLinkNotFound
	}

	key := visitorKey{linkID: event.ShortLinkID, fingerprint: event.Fingerprint}
	_, seen := s.visitors[key]
	if !seen {
		s.visitors[key] = event.ClickedAt
	}

	if !opts.AlreadyCounted {
		link.ClickCount++
	}
	if !seen {
		link.UniqueClickCount++
	}
	if event.ViaQR {
		link.QRScanCount++
	}
	clickedAt := event.ClickedAt
	link.LastClickAt = &clickedAt

	event.Unique = !seen
	if len(s.events) >= s.maxEvent {
		s.events = s.events[len(s.events)-s.maxEvent+1:]
	}
	s.events = append(s.events, *event)

	return domain.ClickResult{Unique: !seen}, nil
}

// Events returns a copy of the most recent recorded events for a link
func (s *Store) Events(linkID uint) []domain.ClickEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ClickEvent
	for _, e := range s.events {
		if e.ShortLinkID == linkID {
			out = append(out, e)
		}
	}
	return out
}

// SetActive flips a link's active flag
func (s *Store) SetActive(shortCode string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[shortCode]
	if !ok {
		return domain.ErrLinkNotFound
	}
	s.links[id].IsActive = active
	return nil
}

func cloneLink(l *domain.ShortLink) *domain.ShortLink {
	c := *l
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		c.ExpiresAt = &t
	}
	if l.LastClickAt != nil {
		t := *l.LastClickAt
		c.LastClickAt = &t
	}
	if l.Policy.MaxClicks != nil {
		m := *l.Policy.MaxClicks
		c.Policy.MaxClicks = &m
	}
	c.Policy.AllowedCountries = append(domain.StringSet(nil), l.Policy.AllowedCountries...)
	c.Policy.BlockedCountries = append(domain.StringSet(nil), l.Policy.BlockedCountries...)
	c.Policy.AllowedDevices = append(domain.StringSet(nil), l.Policy.AllowedDevices...)
	return &c
}
