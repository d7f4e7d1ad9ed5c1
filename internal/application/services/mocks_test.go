package services_test

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/doctordirectory/backend/pkg/errors"
)

// fakeCache is an in-memory CacheProvider that records writes and pattern deletes
type fakeCache struct {
	mu       sync.RWMutex
	data     map[string][]byte
	sets     int
	patterns []string
	failGet  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.failGet != nil {
		return nil, c.failGet
	}
	if val, ok := c.data[key]; ok {
		return val, nil
	}
	return nil, apperrors.NewNotFoundError("cache miss")
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	for key := range c.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.data, key)
		}
	}
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *fakeCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *fakeCache) setCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sets
}

type MockDoctorRepository struct {
	mock.Mock
}

func (m *MockDoctorRepository) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Doctor), args.Error(1)
}

func (m *MockDoctorRepository) ListAvailable(ctx context.Context) ([]*entities.Doctor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Doctor), args.Error(1)
}

type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Patient), args.Error(1)
}

// fakeClock drives cache expiry; only Now is implemented
type fakeClock struct {
	clock.Clock
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) ListByDoctor(ctx context.Context, doctorID string, excludeCancelled bool) ([]*entities.Appointment, error) {
	args := m.Called(ctx, doctorID, excludeCancelled)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func sampleDoctors() []*entities.Doctor {
	return []*entities.Doctor{
		{ID: "doc1", Name: "Dr. Jane Doe", Speciality: "Cardiologist", Experience: "12 Years", Fees: 150, Gender: "female", Available: true},
		{ID: "doc2", Name: "Dr. Mark Lee", Speciality: "Dermatologist", Experience: "6 Years", Fees: 80, Gender: "male", Available: true},
		{ID: "doc3", Name: "Dr. Ana Ruiz", Speciality: "Cardiologist", Experience: "3 Years", Fees: 60, Gender: "female", Available: true},
	}
}
