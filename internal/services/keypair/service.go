package keypair

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"whisperkey/internal/crypto"
	"whisperkey/internal/domain"
	"whisperkey/internal/metrics"
)

// defaultStoreTimeout bounds each key store call. It never applies to key
// generation itself.
const defaultStoreTimeout = 5 * time.Second

// Service generates, stores and publishes key pairs using a backing store.
type Service struct {
	store        domain.PersistentKeyStore
	generate     func() (domain.KeyPair, error)
	storeTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics

	flights singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the collectors updated by the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithStoreTimeout bounds each store read or write.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithGenerator replaces the key generator.
func WithGenerator(gen func() (domain.KeyPair, error)) Option {
	return func(s *Service) {
		if gen != nil {
			s.generate = gen
		}
	}
}

// New returns a key pair service backed by the given store.
func New(store domain.PersistentKeyStore, opts ...Option) *Service {
	s := &Service{
		store:        store,
		generate:     crypto.GenerateRSA,
		storeTimeout: defaultStoreTimeout,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateKeyPair creates a fresh 2048-bit RSA-OAEP key pair. Nothing is
// stored or published.
func (s *Service) GenerateKeyPair() (domain.KeyPair, error) {
	return s.generate()
}

// LoadKeyPair returns the stored key pair for userID, if any.
func (s *Service) LoadKeyPair(ctx context.Context, userID domain.UserID) (domain.KeyPair, bool, error) {
	rec, ok, err := s.get(ctx, userID)
	if err != nil || !ok {
		return domain.KeyPair{}, ok, err
	}
	kp, err := crypto.KeyPairFromRecord(rec)
	if err != nil {
		return domain.KeyPair{}, false, fmt.Errorf("stored key for %s: %w", userID, err)
	}
	return kp, true, nil
}

// Initialize returns a usable key pair for userID.
//
// When a key is already stored it is returned as is and publisher is not
// called. The same holds when another process stores a key between the
// lookup and the write: its record wins and is returned instead. Otherwise a new pair is generated, the private half persisted and
// the public half handed to publisher. A publish failure is reported (the
// error wraps domain.ErrPublish) but the returned result still carries the
// persisted key pair, which stays usable.
//
// Concurrent calls for the same userID wait for one shared execution. The
// shared execution ignores cancellation of the caller that started it, so a
// key record is never left half written.
func (s *Service) Initialize(
	ctx context.Context,
	userID domain.UserID,
	publisher domain.PublicKeyPublisher,
) (domain.InitResult, error) {
	if userID == "" {
		return domain.InitResult{}, fmt.Errorf("initialize: empty user id")
	}
	if publisher == nil {
		return domain.InitResult{}, fmt.Errorf("initialize %s: nil publisher", userID)
	}

	detached := context.WithoutCancel(ctx)
	v, err, shared := s.flights.Do(string(userID), func() (any, error) {
		return s.initialize(detached, userID, publisher)
	})
	if shared {
		s.logger.Debug("joined in-flight key initialization", "user", userID)
	}
	res, _ := v.(domain.InitResult)
	return res, err
}

func (s *Service) initialize(
	ctx context.Context,
	userID domain.UserID,
	publisher domain.PublicKeyPublisher,
) (domain.InitResult, error) {
	kp, found, err := s.LoadKeyPair(ctx, userID)
	if err != nil {
		return domain.InitResult{}, err
	}
	if found {
		s.metrics.Reused()
		s.logger.Debug("reusing stored key pair", "user", userID)
		return domain.InitResult{KeyPair: kp}, nil
	}

	kp, err = s.generate()
	if err != nil {
		return domain.InitResult{}, err
	}
	encodedPub, err := crypto.ExportPublicKey(kp.Public)
	if err != nil {
		return domain.InitResult{}, err
	}
	encodedPriv, err := crypto.ExportPrivateKey(kp.Private)
	if err != nil {
		return domain.InitResult{}, err
	}
	rec, created, err := s.putIfAbsent(ctx, userID, encodedPriv)
	if err != nil {
		return domain.InitResult{}, err
	}
	if !created {
		// Another process stored a key first; use that one.
		kp, err = crypto.KeyPairFromRecord(rec)
		if err != nil {
			return domain.InitResult{}, fmt.Errorf("stored key for %s: %w", userID, err)
		}
		s.metrics.Reused()
		s.logger.Debug("lost key creation race; reusing stored key pair", "user", userID)
		return domain.InitResult{KeyPair: kp}, nil
	}
	s.metrics.Generated()

	fp, _ := crypto.FingerprintRSA(kp.Public)
	s.logger.Info("generated key pair", "user", userID, "fingerprint", fp)

	res := domain.InitResult{KeyPair: kp, Generated: true}
	if err := publisher.PublishPublicKey(ctx, encodedPub); err != nil {
		s.metrics.PublishFailed()
		s.logger.Warn("public key publish failed; local key kept", "user", userID, "error", err)
		return res, fmt.Errorf("%w: %w", domain.ErrPublish, err)
	}
	res.Published = true
	return res, nil
}

func (s *Service) get(ctx context.Context, userID domain.UserID) (domain.PrivateKeyRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.Get(ctx, userID)
}

func (s *Service) putIfAbsent(
	ctx context.Context,
	userID domain.UserID,
	privateKey string,
) (domain.PrivateKeyRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.PutIfAbsent(ctx, userID, privateKey)
}

// Compile-time assertion that Service implements domain.KeyPairManager.
var _ domain.KeyPairManager = (*Service)(nil)
