package provision

import (
	"context"
	"sync"
	"time"

	"github.com/omniloja/sellerbridge/app/models"
)

// MemoryStore is an in-process RecordStore with a bounded retention window.
// Sufficient for single-instance deployments; multi-instance deployments
// need the shared DB-backed repository.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]memoryRecord
	nextID  uint
}

type memoryRecord struct {
	rec     models.ProvisioningRecord
	expires time.Time
}

// NewMemoryStore creates an in-memory store. ttl <= 0 means records never
// expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, records: make(map[string]memoryRecord)}
}

func (s *MemoryStore) FindByPaymentID(_ context.Context, paymentID string) (*models.ProvisioningRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[paymentID]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && time.Now().After(entry.expires) {
		delete(s.records, paymentID)
		return nil, nil
	}
	rec := entry.rec
	return &rec, nil
}

func (s *MemoryStore) CreateIfAbsent(_ context.Context, rec *models.ProvisioningRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.records[rec.PaymentID]; ok && (s.ttl <= 0 || time.Now().Before(entry.expires)) {
		*rec = entry.rec
		return false, nil
	}

	s.nextID++
	rec.ID = s.nextID
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	s.records[rec.PaymentID] = memoryRecord{rec: *rec, expires: time.Now().Add(s.ttl)}
	return true, nil
}

// MemoryLocker is an in-process Locker with try-lock semantics matching the
// redis implementation.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker creates an in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, false, nil
	}
	l.held[key] = struct{}{}
	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}
	return release, true, nil
}

// MemoryEventLog is an in-process EventLog keyed by provider event id.
type MemoryEventLog struct {
	mu     sync.Mutex
	events map[string]*models.WebhookEvent
	nextID uint
}

// NewMemoryEventLog creates an in-memory delivery log.
func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{events: make(map[string]*models.WebhookEvent)}
}

func (l *MemoryEventLog) RecordDelivery(_ context.Context, in DeliveryInput) (bool, *models.WebhookEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := in.Provider + "/" + in.ProviderEventID
	if existing, ok := l.events[key]; ok {
		stored := *existing
		return false, &stored, nil
	}

	l.nextID++
	event := &models.WebhookEvent{
		ID:              l.nextID,
		Provider:        in.Provider,
		ProviderEventID: in.ProviderEventID,
		EventType:       in.EventType,
		PayloadJSON:     in.PayloadJSON,
		SecretValid:     in.SecretValid,
		CreatedAt:       time.Now(),
	}
	l.events[key] = event
	stored := *event
	return true, &stored, nil
}

func (l *MemoryEventLog) MarkProcessed(_ context.Context, id uint, processingErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, event := range l.events {
		if event.ID != id {
			continue
		}
		now := time.Now()
		event.ProcessedAt = &now
		if processingErr != nil {
			event.ProcessingError = processingErr.Error()
		} else {
			event.ProcessingError = ""
		}
		return nil
	}
	return nil
}
