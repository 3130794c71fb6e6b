package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrIdempotencyConflict   = errors.New("idempotency key already used with different payload")
	ErrIdempotencyKeyTooLong = errors.New("idempotency key too long (max 128 chars)")
)

const maxIdempotencyKeyLen = 128

// StoredResponse is a replayed response snapshot
type StoredResponse struct {
	StatusCode int
	Body       []byte
}

// IdempotencyService deduplicates retried mutating requests by
// (user, endpoint, key). Requests are compared by a content hash of the
// canonicalized body so a replay with a mutated payload is rejected
// instead of silently returning someone else's result.
type IdempotencyService struct {
	repo *repository.IdempotencyRepository
}

// NewIdempotencyService creates a new IdempotencyService
func NewIdempotencyService(repo *repository.IdempotencyRepository) *IdempotencyService {
	return &IdempotencyService{repo: repo}
}

// canonicalJSON renders a request with stable key order and compact
// separators so hashing is insensitive to field ordering.
func canonicalJSON(request interface{}) (string, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return "", err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	// encoding/json sorts map keys, which gives the canonical form.
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(canonical), nil
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Consume returns the stored response for a retried request, nil when
// the key has not been seen. A seen key with a different request hash
// returns ErrIdempotencyConflict.
func (s *IdempotencyService) Consume(userID, endpoint, key string, request interface{}) (*StoredResponse, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	if len(key) > maxIdempotencyKeyLen {
		return nil, ErrIdempotencyKeyTooLong
	}

	canonical, err := canonicalJSON(request)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.Get(userID, endpoint, sha256Hex(key))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	if record.RequestHash != sha256Hex(canonical) {
		return nil, ErrIdempotencyConflict
	}
	return &StoredResponse{
		StatusCode: record.StatusCode,
		Body:       []byte(record.ResponseJSON),
	}, nil
}

// Store snapshots the response for a completed request. tx may be nil.
// A unique-index race means another request just inserted the same key:
// identical hashes make this a no-op, different hashes a conflict.
func (s *IdempotencyService) Store(tx *gorm.DB, userID, endpoint, key string, request interface{}, statusCode int, responseBody []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if len(key) > maxIdempotencyKeyLen {
		return ErrIdempotencyKeyTooLong
	}

	canonical, err := canonicalJSON(request)
	if err != nil {
		return err
	}
	keyHash := sha256Hex(key)
	requestHash := sha256Hex(canonical)

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	record := &models.IdempotencyKey{
		UserID:       userID,
		Endpoint:     endpoint,
		KeyHash:      keyHash,
		RequestHash:  requestHash,
		ResponseJSON: string(responseBody),
		StatusCode:   statusCode,
	}
	if err := repo.Create(record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, getErr := s.repo.Get(userID, endpoint, keyHash)
			if getErr != nil {
				return getErr
			}
			if existing != nil && existing.RequestHash == requestHash {
				return nil
			}
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// DeleteOlderThan evicts records past the retention window and reports
// how many were removed
func (s *IdempotencyService) DeleteOlderThan(maxAge time.Duration) (int64, error) {
	if maxAge < time.Hour {
		maxAge = time.Hour
	}
	return s.repo.DeleteOlderThan(time.Now().UTC().Add(-maxAge))
}
