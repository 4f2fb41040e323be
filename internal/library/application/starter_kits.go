package application

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// StaticStarterKitSource is an in-memory StarterKitSource. Users not
// explicitly set fall back to Default.
type StaticStarterKitSource struct {
	mu      sync.RWMutex
	holders map[uuid.UUID]bool
	Default bool
}

// NewStaticStarterKitSource creates a source with the given default.
func NewStaticStarterKitSource(defaultHasKit bool) *StaticStarterKitSource {
	return &StaticStarterKitSource{
		holders: make(map[uuid.UUID]bool),
		Default: defaultHasKit,
	}
}

// Set records whether a user holds a starter kit.
func (s *StaticStarterKitSource) Set(userID uuid.UUID, hasKit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holders[userID] = hasKit
}

// HasStarterKit implements StarterKitSource.
func (s *StaticStarterKitSource) HasStarterKit(_ context.Context, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if hasKit, ok := s.holders[userID]; ok {
		return hasKit, nil
	}
	return s.Default, nil
}
