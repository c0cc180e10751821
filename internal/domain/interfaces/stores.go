package interfaces

import (
	"context"

	domaintypes "whisperkey/internal/domain/types"
)

// PersistentKeyStore keeps exactly one private key record per user on this
// device. Put overwrites any existing record for the same user.
//
// PutIfAbsent stores privateKey only when no record exists for userID, and
// returns whichever record is stored afterwards together with whether this
// call created it. It is atomic across every process sharing the store.
type PersistentKeyStore interface {
	Get(ctx context.Context, userID domaintypes.UserID) (domaintypes.PrivateKeyRecord, bool, error)
	Put(ctx context.Context, userID domaintypes.UserID, privateKey string) error
	PutIfAbsent(
		ctx context.Context,
		userID domaintypes.UserID,
		privateKey string,
	) (domaintypes.PrivateKeyRecord, bool, error)
}
