package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/omniloja/sellerbridge/app/models"
	"github.com/omniloja/sellerbridge/internal/pkg/provision"
)

const recordKeyPrefix = "provision:record:"

// CachedRecordStore puts a redis read-through in front of a RecordStore so
// retried webhook deliveries short-circuit on the duplicate path without a
// DB roundtrip. Cache failures degrade to the inner store.
type CachedRecordStore struct {
	inner  provision.RecordStore
	client *redis.Client
	ttl    time.Duration
}

// NewCachedRecordStore wraps a store. ttl is the duplicate fast-path
// retention; the inner store stays authoritative.
func NewCachedRecordStore(inner provision.RecordStore, client *redis.Client, ttl time.Duration) *CachedRecordStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedRecordStore{inner: inner, client: client, ttl: ttl}
}

func (s *CachedRecordStore) FindByPaymentID(ctx context.Context, paymentID string) (*models.ProvisioningRecord, error) {
	if cached, err := s.client.Get(ctx, recordKeyPrefix+paymentID).Result(); err == nil {
		var rec models.ProvisioningRecord
		if err := json.Unmarshal([]byte(cached), &rec); err == nil {
			return &rec, nil
		}
	}

	rec, err := s.inner.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.IsTerminal() {
		s.put(ctx, rec)
	}
	return rec, nil
}

func (s *CachedRecordStore) CreateIfAbsent(ctx context.Context, rec *models.ProvisioningRecord) (bool, error) {
	created, err := s.inner.CreateIfAbsent(ctx, rec)
	if err != nil {
		return false, err
	}
	if rec.IsTerminal() {
		s.put(ctx, rec)
	}
	return created, nil
}

func (s *CachedRecordStore) put(ctx context.Context, rec *models.ProvisioningRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, recordKeyPrefix+rec.PaymentID, payload, s.ttl).Err(); err != nil {
		log.Warnf("[Cache] record cache write for payment %s failed: %v", rec.PaymentID, err)
	}
}
