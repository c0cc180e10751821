package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"whisperkey/internal/crypto"
	"whisperkey/internal/directory"
	"whisperkey/internal/domain"
)

// State summarizes the outcome of Ensure.
type State int

const (
	// StateNotInitialized means no usable key pair is available.
	StateNotInitialized State = iota
	// StateReady means a local key pair exists and its public half is published.
	StateReady
	// StateRemoteOnly means the directory lists a key for the user but this
	// device does not hold the private half.
	StateRemoteOnly
	// StatePublishFailed means a key pair was generated and stored but could
	// not be published.
	StatePublishFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRemoteOnly:
		return "remote-only"
	case StatePublishFailed:
		return "publish-failed"
	default:
		return "not-initialized"
	}
}

// Status is what Ensure found or did.
type Status struct {
	State     State
	KeyPair   domain.KeyPair
	Generated bool
	Err       error
}

// CanDecrypt reports whether a local private key is available.
func (s Status) CanDecrypt() bool { return s.KeyPair.Private != nil }

// Runner performs the session-start key check.
type Runner struct {
	keys      domain.KeyPairManager
	directory domain.PublicKeyDirectory
	logger    *slog.Logger
}

// New returns a Runner. A nil logger discards.
func New(keys domain.KeyPairManager, dir domain.PublicKeyDirectory, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{keys: keys, directory: dir, logger: logger}
}

// Ensure checks the directory for userID's public key and initializes a key
// pair when none is listed. A failed directory lookup is treated as unknown
// and falls through to initialization, which reuses any stored key.
//
// When the directory answered that it has no key but a stored key is found,
// the stored public key is published again. This heals a publish that
// failed in an earlier session.
func (r *Runner) Ensure(ctx context.Context, userID domain.UserID) (st Status) {
	defer func() {
		if p := recover(); p != nil {
			st = Status{State: StateNotInitialized, Err: fmt.Errorf("key bootstrap panicked: %v", p)}
			r.logger.Error("encryption not initialized", "user", userID, "error", st.Err)
		}
	}()

	_, listed, lookupErr := r.directory.FetchPublicKey(ctx, userID)
	if lookupErr != nil {
		r.logger.Warn("directory lookup failed; initializing", "user", userID, "error", lookupErr)
	}
	if listed {
		return r.listed(ctx, userID)
	}

	res, err := r.keys.Initialize(ctx, userID, directory.Publisher(r.directory, userID))
	switch {
	case err == nil && !res.Generated && lookupErr == nil:
		return r.republish(ctx, userID, res.KeyPair)
	case err == nil:
		if res.Generated {
			r.logger.Info("encryption initialized", "user", userID)
		}
		return Status{State: StateReady, KeyPair: res.KeyPair, Generated: res.Generated}
	case errors.Is(err, domain.ErrPublish) && !res.IsZero():
		r.logger.Warn("key pair stored but not published", "user", userID, "error", err)
		return Status{State: StatePublishFailed, KeyPair: res.KeyPair, Generated: res.Generated, Err: err}
	default:
		r.logger.Error("encryption not initialized", "user", userID, "error", err)
		return Status{State: StateNotInitialized, Err: err}
	}
}

// listed handles a user the directory already knows.
func (r *Runner) listed(ctx context.Context, userID domain.UserID) Status {
	kp, ok, err := r.keys.LoadKeyPair(ctx, userID)
	if err != nil {
		r.logger.Error("encryption not initialized", "user", userID, "error", err)
		return Status{State: StateNotInitialized, Err: err}
	}
	if !ok {
		r.logger.Warn("public key listed but no local private key", "user", userID)
		return Status{State: StateRemoteOnly}
	}
	return Status{State: StateReady, KeyPair: kp}
}

// republish pushes the public half of a stored key the directory lacks. The
// directory is asked again first, since a concurrent session may have
// published in the meantime.
func (r *Runner) republish(ctx context.Context, userID domain.UserID, kp domain.KeyPair) Status {
	if _, listed, err := r.directory.FetchPublicKey(ctx, userID); err == nil && listed {
		return Status{State: StateReady, KeyPair: kp}
	}
	encoded, err := crypto.ExportPublicKey(kp.Public)
	if err == nil {
		err = r.directory.PublishPublicKey(ctx, userID, encoded)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrPublish, err)
		r.logger.Warn("stored key could not be republished", "user", userID, "error", err)
		return Status{State: StatePublishFailed, KeyPair: kp, Err: err}
	}
	r.logger.Info("republished stored public key", "user", userID)
	return Status{State: StateReady, KeyPair: kp}
}
