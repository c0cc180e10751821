package message

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"whisperkey/internal/crypto"
	"whisperkey/internal/domain"
	"whisperkey/internal/metrics"
	"whisperkey/internal/protocol/envelope"
)

// formatUnknown labels outcomes whose ciphertext format is not known.
const formatUnknown = "unknown"

// Service encrypts messages for recipients listed in a public key directory
// and decrypts messages addressed to the local user.
type Service struct {
	directory domain.PublicKeyDirectory
	keys      keyLoader
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// keyLoader is the part of domain.KeyPairManager the service reads from.
type keyLoader interface {
	LoadKeyPair(ctx context.Context, userID domain.UserID) (domain.KeyPair, bool, error)
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

// New constructs a message Service.
func New(directory domain.PublicKeyDirectory, keys domain.KeyPairManager, opts ...Option) *Service {
	s := &Service{
		directory: directory,
		keys:      keys,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Encrypt looks up recipient's public key and encrypts message to it.
// A recipient without a published key yields domain.ErrRecipientKeyNotFound.
func (s *Service) Encrypt(ctx context.Context, recipient domain.UserID, message string) (string, error) {
	if s.directory == nil {
		return "", fmt.Errorf("%w: no directory configured", domain.ErrRecipientKeyNotFound)
	}
	encoded, ok, err := s.directory.FetchPublicKey(ctx, recipient)
	if err != nil {
		return "", fmt.Errorf("fetch public key for %s: %w", recipient, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrRecipientKeyNotFound, recipient)
	}
	return s.EncryptTo(encoded, message)
}

// EncryptTo encrypts message to an explicitly supplied encoded public key.
func (s *Service) EncryptTo(encoded domain.EncodedPublicKey, message string) (string, error) {
	pub, err := crypto.ImportPublicKey(encoded)
	if err != nil {
		s.metrics.Encrypted(formatUnknown, err)
		return "", err
	}
	ct, err := envelope.Encrypt(message, pub)
	s.metrics.Encrypted(formatOf(ct), err)
	if err != nil {
		return "", err
	}
	s.logger.Debug("message encrypted", "format", formatOf(ct), "bytes", len(message))
	return ct, nil
}

// Decrypt opens ciphertext with the stored private key of me. Without a
// local key it fails with domain.ErrNoLocalKey.
func (s *Service) Decrypt(ctx context.Context, me domain.UserID, ciphertext string) (string, error) {
	kp, ok, err := s.keys.LoadKeyPair(ctx, me)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNoLocalKey, me)
	}
	pt, err := envelope.Decrypt(ciphertext, kp.Private)
	s.metrics.Decrypted(formatOf(ciphertext), err)
	if err != nil {
		s.logger.Debug("message decryption failed", "user", me, "error", err)
		return "", err
	}
	return pt, nil
}

// formatOf returns the version prefix of ct when it is a known one.
func formatOf(ct string) string {
	prefix, _, found := strings.Cut(ct, ":")
	if !found {
		return formatUnknown
	}
	switch v := envelope.Version(prefix); v {
	case envelope.V1, envelope.V2:
		return string(v)
	default:
		return formatUnknown
	}
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
