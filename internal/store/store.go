// Package store holds the per-session photo and document slots.
//
// Each session owns exactly one photo slot and one document slot. Writes
// replace the previous value; when two writers race, the last one to
// complete wins.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"cv-builder/internal/model"
)

// ErrNotFound indicates an empty slot.
var ErrNotFound = errors.New("store: slot empty")

type ImageStore interface {
	LoadImage(ctx context.Context) (string, error)
	SaveImage(ctx context.Context, dataURI string) error
}

type DocumentStore interface {
	LoadDocument(ctx context.Context) (*model.CVDocument, error)
	SaveDocument(ctx context.Context, doc *model.CVDocument) error
}

// Slots is the pair of stores belonging to one session.
type Slots interface {
	ImageStore
	DocumentStore
}

// Provider hands out the slots of a session.
type Provider interface {
	Slots(sessionID string) Slots
}

// Memory is an in-process Slots implementation.
type Memory struct {
	mu    sync.Mutex
	image string
	doc   *model.CVDocument
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) LoadImage(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.image == "" {
		return "", ErrNotFound
	}
	return m.image, nil
}

func (m *Memory) SaveImage(_ context.Context, dataURI string) error {
	m.mu.Lock()
	m.image = dataURI
	m.mu.Unlock()
	return nil
}

func (m *Memory) LoadDocument(_ context.Context) (*model.CVDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, ErrNotFound
	}
	return CloneDocument(m.doc), nil
}

func (m *Memory) SaveDocument(_ context.Context, doc *model.CVDocument) error {
	m.mu.Lock()
	m.doc = CloneDocument(doc)
	m.mu.Unlock()
	return nil
}

// MemoryProvider keeps one Memory per session id. A session not asked for
// within ttl is dropped; a ttl of zero keeps sessions for the life of the
// process.
type MemoryProvider struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	sessions  map[string]*memorySession
}

type memorySession struct {
	slots    *Memory
	lastSeen time.Time
}

func NewMemoryProvider(ttl time.Duration) *MemoryProvider {
	return &MemoryProvider{
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*memorySession{},
	}
}

func (p *MemoryProvider) Slots(sessionID string) Slots {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	p.sweep(now)
	s, ok := p.sessions[sessionID]
	if !ok {
		s = &memorySession{slots: NewMemory()}
		p.sessions[sessionID] = s
	}
	s.lastSeen = now
	return s.slots
}

// Len reports how many sessions are held.
func (p *MemoryProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// sweep drops expired sessions, at most once per sweepInterval.
// Callers hold p.mu.
func (p *MemoryProvider) sweep(now time.Time) {
	if p.ttl <= 0 || now.Sub(p.lastSweep) < p.sweepInterval() {
		return
	}
	p.lastSweep = now
	for id, s := range p.sessions {
		if now.Sub(s.lastSeen) >= p.ttl {
			delete(p.sessions, id)
		}
	}
}

func (p *MemoryProvider) sweepInterval() time.Duration {
	if p.ttl < time.Minute {
		return p.ttl
	}
	return time.Minute
}

// CloneDocument copies a document so callers cannot mutate stored state.
func CloneDocument(doc *model.CVDocument) *model.CVDocument {
	if doc == nil {
		return nil
	}
	out := *doc
	out.Experience = append([]model.ExperienceEntry(nil), doc.Experience...)
	out.Education = append([]model.EducationEntry(nil), doc.Education...)
	out.Skills = append([]string(nil), doc.Skills...)
	if doc.Experience != nil && out.Experience == nil {
		out.Experience = []model.ExperienceEntry{}
	}
	if doc.Education != nil && out.Education == nil {
		out.Education = []model.EducationEntry{}
	}
	if doc.Skills != nil && out.Skills == nil {
		out.Skills = []string{}
	}
	return &out
}
