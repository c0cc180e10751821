package interfaces

import (
	"context"

	domaintypes "whisperkey/internal/domain/types"
)

// KeyPairManager generates key pairs and performs first-use initialization.
type KeyPairManager interface {
	GenerateKeyPair() (domaintypes.KeyPair, error)
	Initialize(
		ctx context.Context,
		userID domaintypes.UserID,
		publisher PublicKeyPublisher,
	) (domaintypes.InitResult, error)
	LoadKeyPair(ctx context.Context, userID domaintypes.UserID) (domaintypes.KeyPair, bool, error)
}

// MessageService encrypts messages for recipients and decrypts messages for
// the local user.
type MessageService interface {
	Encrypt(ctx context.Context, recipient domaintypes.UserID, message string) (string, error)
	EncryptTo(encoded domaintypes.EncodedPublicKey, message string) (string, error)
	Decrypt(ctx context.Context, me domaintypes.UserID, ciphertext string) (string, error)
}
