package app

import (
	"context"
	"fmt"

	"whisperkey/internal/crypto"
	"whisperkey/internal/domain"
	"whisperkey/internal/recovery"
	"whisperkey/internal/services/bootstrap"
)

// App is what commands operate on: the wired services and the signed-in user.
type App struct {
	*Wire
	User domain.UserID
}

// New binds w to user.
func New(w *Wire, user domain.UserID) *App {
	return &App{Wire: w, User: user}
}

// Start runs the session-start key check for the user.
func (a *App) Start(ctx context.Context) bootstrap.Status {
	return a.Bootstrap.Ensure(ctx, a.User)
}

// LocalKey returns the user's stored key pair or domain.ErrNoLocalKey.
func (a *App) LocalKey(ctx context.Context) (domain.KeyPair, error) {
	kp, ok, err := a.Keys.LoadKeyPair(ctx, a.User)
	if err != nil {
		return domain.KeyPair{}, err
	}
	if !ok {
		return domain.KeyPair{}, fmt.Errorf("%w: %s (run init)", domain.ErrNoLocalKey, a.User)
	}
	return kp, nil
}

// PublicKey returns the user's encoded public key.
func (a *App) PublicKey(ctx context.Context) (domain.EncodedPublicKey, error) {
	kp, err := a.LocalKey(ctx)
	if err != nil {
		return "", err
	}
	return crypto.ExportPublicKey(kp.Public)
}

// Fingerprint returns the display fingerprint of the user's public key.
func (a *App) Fingerprint(ctx context.Context) (domain.Fingerprint, error) {
	kp, err := a.LocalKey(ctx)
	if err != nil {
		return "", err
	}
	return crypto.FingerprintRSA(kp.Public)
}

// RecoveryPhrase derives the display-only word list for the user's key.
func (a *App) RecoveryPhrase(ctx context.Context) (recovery.Phrase, error) {
	kp, err := a.LocalKey(ctx)
	if err != nil {
		return nil, err
	}
	exported, err := crypto.ExportPrivateKey(kp.Private)
	if err != nil {
		return nil, err
	}
	return recovery.ToPhrase(exported), nil
}
