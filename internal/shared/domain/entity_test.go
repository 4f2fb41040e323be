package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewBaseEntity(t *testing.T) {
	e := NewBaseEntity()

	assert.NotEqual(t, uuid.Nil, e.ID())
	assert.False(t, e.CreatedAt().IsZero())
	assert.Equal(t, e.CreatedAt(), e.UpdatedAt())
}

func TestRehydrateBaseEntity(t *testing.T) {
	id := uuid.New()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	e := RehydrateBaseEntity(id, created, updated)

	assert.Equal(t, id, e.ID())
	assert.Equal(t, created, e.CreatedAt())
	assert.Equal(t, updated, e.UpdatedAt())
}

func TestBaseEntity_Touch(t *testing.T) {
	e := RehydrateBaseEntity(uuid.New(), time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(-time.Hour))
	before := e.UpdatedAt()

	e.Touch()

	assert.True(t, e.UpdatedAt().After(before))
}

func TestBaseEntity_Equals(t *testing.T) {
	id := uuid.New()
	a := RehydrateBaseEntity(id, time.Now(), time.Now())
	b := RehydrateBaseEntity(id, time.Now().Add(time.Minute), time.Now().Add(time.Minute))
	c := NewBaseEntity()

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(nil))
}
