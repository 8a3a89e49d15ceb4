package credentialexchange

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/werf/lockgate"
	"github.com/werf/lockgate/pkg/file_locker"
	"github.com/zalando/go-keyring"
)

var (
	ErrCannotLockDir              = errors.New("unable to create lock dir")
	ErrUnableToAcquireLock        = errors.New("cannot acquire lock")
	ErrFailedToClearSecretStorage = errors.New("failed to clear secret storage on OS")
)

// SecretStore is the credential cache backed by the per-user OS secret
// store. One entry per cache key, value is the base64 encoded JSON of the
// credential set. Entries carry no TTL - staleness is caught by the
// validation probe, never here.
type SecretStore struct {
	keyring      keyring.Keyring
	cacheKey     string
	lockDir      string
	locker       lockgate.Locker
	lockResource string
	secretUser   string
	logger       *log.Logger
}

func (s *SecretStore) WithLocker(locker lockgate.Locker) *SecretStore {
	s.locker = locker
	return s
}

func (s *SecretStore) WithKeyring(keyring keyring.Keyring) *SecretStore {
	s.keyring = keyring
	return s
}

// keyRingImpl is the default keyring implementation
type keyRingImpl struct{}

func (k *keyRingImpl) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}
func (k *keyRingImpl) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}
func (k *keyRingImpl) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

func NewSecretStore(cacheKey, baseDir, username string, logger *log.Logger) (*SecretStore, error) {
	lockDir := baseDir + "/" + SELF_NAME + "-lock"
	locker, err := file_locker.NewFileLocker(lockDir)
	if err != nil {
		return nil, fmt.Errorf("cannot setup lock dir: %s, %w", lockDir, ErrCannotLockDir)
	}

	return &SecretStore{
		lockDir:      lockDir,
		locker:       locker,
		keyring:      &keyRingImpl{},
		lockResource: serviceName(cacheKey),
		cacheKey:     cacheKey,
		secretUser:   username,
		logger:       logger,
	}, nil
}

func serviceName(cacheKey string) string {
	return fmt.Sprintf("%s-%s", SELF_NAME, cacheKey)
}

func (s *SecretStore) ensureLock() (func(), error) {
	acquired, lock, err := s.locker.Acquire(s.lockResource, lockgate.AcquireOptions{Shared: false, Timeout: 1 * time.Minute})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToAcquireLock)
	}

	if !acquired {
		return nil, ErrUnableToAcquireLock
	}
	return func() {
		if err := s.locker.Release(lock); err != nil {
			s.logger.Debug("failed to release lock", "resource", s.lockResource)
		}
	}, nil
}

// CachedCredential returns the stored credential for the cache key or nil.
// Malformed or undecodable entries are indistinguishable from absence for
// the caller - a debug line is the only signal. The corrupt entry is left
// in place, the next successful save simply overwrites it.
func (s *SecretStore) CachedCredential() *AWSCredentials {
	encoded, err := s.keyring.Get(serviceName(s.cacheKey), s.secretUser)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			s.logger.Debug("secret store read failed", "key", s.cacheKey, "err", err)
		}
		return nil
	}

	jsonBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.logger.Debug("cached entry is not valid base64", "key", s.cacheKey, "err", err)
		return nil
	}

	creds := &AWSCredentials{}
	if err := json.Unmarshal(jsonBytes, creds); err != nil {
		s.logger.Debug("cannot unmarshal cached entry", "key", s.cacheKey, "err", err)
		return nil
	}

	s.logger.Debug("got credential from OS secret store", "key", s.cacheKey)
	return creds
}

// SaveCredential writes a validated credential under the cache key and
// registers the key in the ini index.
func (s *SecretStore) SaveCredential(cred *AWSCredentials) error {
	release, err := s.ensureLock()
	if err != nil {
		return err
	}
	defer release()

	jsonBytes, err := json.Marshal(cred)
	if err != nil {
		return err
	}

	if err := WriteIniSection(s.cacheKey); err != nil {
		return err
	}

	return s.keyring.Set(serviceName(s.cacheKey), s.secretUser, base64.StdEncoding.EncodeToString(jsonBytes))
}

func (s *SecretStore) Clear() error {
	return s.keyring.Delete(serviceName(s.cacheKey), s.secretUser)
}

// ClearAll loops through all the cache keys recorded in the ini index and
// deletes the corresponding entries from the OS secret store.
func (s *SecretStore) ClearAll() error {
	sections, err := GetAllIniSections()
	if err != nil {
		return fmt.Errorf("unable to get sections from ini: %s, %w", err, ErrFailedToClearSecretStorage)
	}

	for _, v := range sections {
		if err := s.keyring.Delete(serviceName(v), s.secretUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%s, %w", err, ErrFailedToClearSecretStorage)
		}
	}

	return nil
}
