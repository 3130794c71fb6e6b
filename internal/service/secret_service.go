package service

import (
	"errors"
	"time"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
	"github.com/riskgate/pkg/crypto"
)

var (
	ErrMissingCredentials = errors.New("missing exchange credentials")
)

// SecretView is the safe listing shape; ciphertext never leaves the service
type SecretView struct {
	Exchange  models.Exchange `json:"exchange"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SecretService stores exchange API credentials encrypted at rest and
// hands decrypted copies only to the execution path.
type SecretService struct {
	repo   *repository.ExchangeSecretRepository
	audit  *AuditService
	aesKey string
}

// NewSecretService creates a new SecretService
func NewSecretService(repo *repository.ExchangeSecretRepository, audit *AuditService, aesKey string) *SecretService {
	return &SecretService{
		repo:   repo,
		audit:  audit,
		aesKey: aesKey,
	}
}

// Save encrypts and upserts a user's credentials for one exchange
func (s *SecretService) Save(user *models.User, exchange models.Exchange, apiKey, apiSecret string) error {
	keyEnc, err := crypto.EncryptAES(apiKey, s.aesKey)
	if err != nil {
		return err
	}
	secretEnc, err := crypto.EncryptAES(apiSecret, s.aesKey)
	if err != nil {
		return err
	}

	secret := &models.ExchangeSecret{
		UserID:             user.ID,
		Exchange:           exchange,
		APIKeyEncrypted:    keyEnc,
		APISecretEncrypted: secretEnc,
		UpdatedAt:          time.Now().UTC(),
	}
	if err := s.repo.Upsert(secret); err != nil {
		return err
	}
	return s.audit.Record(nil, "user.exchange_secret.saved", user.ID, "exchange_secret", "", map[string]interface{}{
		"exchange": exchange,
	})
}

// List returns which exchanges the user has credentials for
func (s *SecretService) List(userID string) ([]SecretView, error) {
	rows, err := s.repo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}
	views := make([]SecretView, 0, len(rows))
	for _, row := range rows {
		views = append(views, SecretView{Exchange: row.Exchange, UpdatedAt: row.UpdatedAt})
	}
	return views, nil
}

// Delete removes a user's credentials for one exchange
func (s *SecretService) Delete(user *models.User, exchange models.Exchange) error {
	if err := s.repo.Delete(user.ID, exchange); err != nil {
		return err
	}
	return s.audit.Record(nil, "user.exchange_secret.deleted", user.ID, "exchange_secret", "", map[string]interface{}{
		"exchange": exchange,
	})
}

// HasSecret backs the pretrade exchange_secret_configured check
func (s *SecretService) HasSecret(userID string, exchange models.Exchange) (bool, error) {
	return s.repo.Exists(userID, exchange)
}

// Decrypt returns the plaintext credentials for the execution path.
// Absent credentials are ErrMissingCredentials, a validation-class error.
func (s *SecretService) Decrypt(userID string, exchange models.Exchange) (apiKey, apiSecret string, err error) {
	row, err := s.repo.Get(userID, exchange)
	if err != nil {
		if errors.Is(err, repository.ErrSecretNotFound) {
			return "", "", ErrMissingCredentials
		}
		return "", "", err
	}
	apiKey, err = crypto.DecryptAES(row.APIKeyEncrypted, s.aesKey)
	if err != nil {
		return "", "", err
	}
	apiSecret, err = crypto.DecryptAES(row.APISecretEncrypted, s.aesKey)
	if err != nil {
		return "", "", err
	}
	return apiKey, apiSecret, nil
}

// ReencryptResult reports a key rotation pass
type ReencryptResult struct {
	DryRun  bool `json:"dry_run"`
	Scanned int  `json:"scanned"`
	Updated int  `json:"updated"`
}

// Reencrypt re-wraps every stored credential from oldKey to newKey.
// With dryRun true it only proves every row decrypts under oldKey.
func (s *SecretService) Reencrypt(actor *models.User, oldKey, newKey string, dryRun bool) (*ReencryptResult, error) {
	rows, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}

	result := &ReencryptResult{DryRun: dryRun, Scanned: len(rows)}
	for i := range rows {
		plainKey, err := crypto.DecryptAES(rows[i].APIKeyEncrypted, oldKey)
		if err != nil {
			return nil, err
		}
		plainSecret, err := crypto.DecryptAES(rows[i].APISecretEncrypted, oldKey)
		if err != nil {
			return nil, err
		}

		if !dryRun {
			if rows[i].APIKeyEncrypted, err = crypto.EncryptAES(plainKey, newKey); err != nil {
				return nil, err
			}
			if rows[i].APISecretEncrypted, err = crypto.EncryptAES(plainSecret, newKey); err != nil {
				return nil, err
			}
			rows[i].UpdatedAt = time.Now().UTC()
			if err := s.repo.Save(&rows[i]); err != nil {
				return nil, err
			}
		}
		result.Updated++
	}

	if err := s.audit.Record(nil, "security.key_rotation.reencrypt", actor.ID, "security", "", map[string]interface{}{
		"dry_run": dryRun,
		"updated": result.Updated,
	}); err != nil {
		return nil, err
	}
	return result, nil
}
