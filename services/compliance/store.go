package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentline/models"

	"github.com/go-redis/redis/v8"
)

// CheckoutSession is the document checkout state for one booking.
type CheckoutSession struct {
	SessionID               string                 `json:"sessionId"`
	BookingID               string                 `json:"bookingId"`
	Category                models.BookingCategory `json:"category"`
	ReferenceDate           time.Time              `json:"referenceDate"`
	LicenseNumber           string                 `json:"licenseNumber"`
	NationalInsuranceNumber string                 `json:"nationalInsuranceNumber"`
	Slots                   map[SlotID]UploadState `json:"slots"`
	FinalizedAt             *time.Time             `json:"finalizedAt,omitempty"`
}

// Input projects the session onto an evaluation input.
func (s *CheckoutSession) Input() EvaluationInput {
	return EvaluationInput{
		Category:                s.Category,
		LicenseNumber:           s.LicenseNumber,
		NationalInsuranceNumber: s.NationalInsuranceNumber,
		ReferenceDate:           s.ReferenceDate,
		Slots:                   s.Slots,
	}
}

// SessionStore persists checkout sessions.
type SessionStore interface {
	Create(ctx context.Context, s *CheckoutSession) error
	Load(ctx context.Context, sessionID string) (*CheckoutSession, error)
	// Update loads the session, applies fn and writes the result back
	// atomically. fn may run more than once on contention.
	Update(ctx context.Context, sessionID string, fn func(*CheckoutSession) error) (*CheckoutSession, error)
}

// SessionKeyPrefix namespaces checkout sessions in Redis.
const SessionKeyPrefix = "checkout:docs:"

// DefaultSessionTTL is refreshed on every write.
const DefaultSessionTTL = 30 * time.Minute

const maxUpdateAttempts = 5

// RedisSessionStore keeps sessions as JSON strings with a sliding TTL.
type RedisSessionStore struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisSessionStore returns a store using client.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{Client: client, TTL: ttl}
}

func sessionKey(id string) string {
	return SessionKeyPrefix + id
}

// Create stores a new session.
func (r *RedisSessionStore) Create(ctx context.Context, s *CheckoutSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("compliance.Create: failed to marshal session: %w", err)
	}
	if err := r.Client.Set(ctx, sessionKey(s.SessionID), data, r.TTL).Err(); err != nil {
		return fmt.Errorf("compliance.Create: failed to store session: %w", err)
	}
	return nil
}

// Load fetches a session by ID.
func (r *RedisSessionStore) Load(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	raw, err := r.Client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("compliance.Load: failed to read session: %w", err)
	}
	return decodeSession(raw)
}

// Update applies fn under WATCH so concurrent writers retry instead of
// losing each other's slot changes.
func (r *RedisSessionStore) Update(ctx context.Context, sessionID string, fn func(*CheckoutSession) error) (*CheckoutSession, error) {
	key := sessionKey(sessionID)
	var out *CheckoutSession

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return err
		}
		s, err := decodeSession(raw)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.TTL)
			return nil
		})
		if err == nil {
			out = s
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.Client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("compliance.Update: %w", err)
	}
	return nil, fmt.Errorf("compliance.Update: session %s changed concurrently %d times", sessionID, maxUpdateAttempts)
}

func decodeSession(raw []byte) (*CheckoutSession, error) {
	var s CheckoutSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("compliance: failed to parse session: %w", err)
	}
	if s.Slots == nil {
		s.Slots = make(map[SlotID]UploadState)
	}
	return &s, nil
}
