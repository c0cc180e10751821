package domain

import (
	interfaces "whisperkey/internal/domain/interfaces"
	types "whisperkey/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID           = types.UserID
	Fingerprint      = types.Fingerprint
	EncodedPublicKey = types.EncodedPublicKey
	KeyPair          = types.KeyPair
	PrivateKeyRecord = types.PrivateKeyRecord
	InitResult       = types.InitResult
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	PersistentKeyStore = interfaces.PersistentKeyStore
	PublicKeyPublisher = interfaces.PublicKeyPublisher
	PublisherFunc      = interfaces.PublisherFunc
	PublicKeyDirectory = interfaces.PublicKeyDirectory
	KeyPairManager     = interfaces.KeyPairManager
	MessageService     = interfaces.MessageService
)

// Error sentinels; compare with errors.Is.
var (
	ErrKeyGeneration        = types.ErrKeyGeneration
	ErrExport               = types.ErrExport
	ErrImport               = types.ErrImport
	ErrEncryption           = types.ErrEncryption
	ErrDecryption           = types.ErrDecryption
	ErrStorage              = types.ErrStorage
	ErrPublish              = types.ErrPublish
	ErrNoLocalKey           = types.ErrNoLocalKey
	ErrRecipientKeyNotFound = types.ErrRecipientKeyNotFound
)
