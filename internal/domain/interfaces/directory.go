package interfaces

import (
	"context"

	domaintypes "whisperkey/internal/domain/types"
)

// PublicKeyPublisher writes the local user's encoded public key to wherever
// other parties look it up.
type PublicKeyPublisher interface {
	PublishPublicKey(ctx context.Context, encoded domaintypes.EncodedPublicKey) error
}

// PublisherFunc adapts a plain function to PublicKeyPublisher.
type PublisherFunc func(ctx context.Context, encoded domaintypes.EncodedPublicKey) error

// PublishPublicKey calls f.
func (f PublisherFunc) PublishPublicKey(ctx context.Context, encoded domaintypes.EncodedPublicKey) error {
	return f(ctx, encoded)
}

// PublicKeyDirectory is the per-user public key registry, e.g. the profile service.
type PublicKeyDirectory interface {
	FetchPublicKey(
		ctx context.Context,
		userID domaintypes.UserID,
	) (domaintypes.EncodedPublicKey, bool, error)
	PublishPublicKey(
		ctx context.Context,
		userID domaintypes.UserID,
		encoded domaintypes.EncodedPublicKey,
	) error
}
