package keypair_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"whisperkey/internal/crypto"
	"whisperkey/internal/domain"
	"whisperkey/internal/metrics"
	"whisperkey/internal/services/keypair"
	"whisperkey/internal/store"
)

var (
	pairOnce sync.Once
	pair     domain.KeyPair
	pairErr  error
)

// countingGenerator hands out one pre-generated key pair and counts calls.
type countingGenerator struct {
	calls atomic.Int32
	delay time.Duration
}

func (g *countingGenerator) generate(t *testing.T) func() (domain.KeyPair, error) {
	t.Helper()
	pairOnce.Do(func() { pair, pairErr = crypto.GenerateRSA() })
	if pairErr != nil {
		t.Fatalf("GenerateRSA: %v", pairErr)
	}
	return func() (domain.KeyPair, error) {
		g.calls.Add(1)
		time.Sleep(g.delay)
		return pair, nil
	}
}

type recordingPublisher struct {
	mu    sync.Mutex
	keys  []domain.EncodedPublicKey
	fail  error
	calls atomic.Int32
}

func (p *recordingPublisher) PublishPublicKey(_ context.Context, key domain.EncodedPublicKey) error {
	p.calls.Add(1)
	if p.fail != nil {
		return p.fail
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, domain.UserID) (domain.PrivateKeyRecord, bool, error) {
	return domain.PrivateKeyRecord{}, false, nil
}

func (f failingStore) Put(context.Context, domain.UserID, string) error { return f.err }

func (f failingStore) PutIfAbsent(context.Context, domain.UserID, string) (domain.PrivateKeyRecord, bool, error) {
	return domain.PrivateKeyRecord{}, false, f.err
}

func TestInitializeGeneratesStoresAndPublishes(t *testing.T) {
	ks := store.NewMemoryKeyStore()
	gen := &countingGenerator{}
	m := metrics.New(nil)
	svc := keypair.New(ks, keypair.WithGenerator(gen.generate(t)), keypair.WithMetrics(m))
	pub := &recordingPublisher{}

	res, err := svc.Initialize(context.Background(), "alice", pub)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !res.Generated || !res.Published {
		t.Fatalf("got Generated=%v Published=%v, want both true", res.Generated, res.Published)
	}
	rec, ok, err := ks.Get(context.Background(), "alice")
	if err != nil || !ok {
		t.Fatalf("stored record: ok=%v err=%v", ok, err)
	}
	want, _ := crypto.ExportPrivateKey(res.Private)
	if rec.PrivateKey != want {
		t.Fatal("stored private key differs from returned key")
	}
	wantPub, _ := crypto.ExportPublicKey(res.Public)
	if len(pub.keys) != 1 || pub.keys[0] != wantPub {
		t.Fatalf("published %v, want exactly [%s...]", len(pub.keys), wantPub[:16])
	}
	if got := testutil.ToFloat64(m.KeyPairsGenerated); got != 1 {
		t.Fatalf("generated counter = %v, want 1", got)
	}
}

func TestInitializeReusesStoredKey(t *testing.T) {
	ks := store.NewMemoryKeyStore()
	gen := &countingGenerator{}
	m := metrics.New(nil)
	svc := keypair.New(ks, keypair.WithGenerator(gen.generate(t)), keypair.WithMetrics(m))

	first, err := svc.Initialize(context.Background(), "alice", &recordingPublisher{})
	if err != nil {
		t.Fatalf("first Initialize: %v", err)
	}

	pub := &recordingPublisher{}
	second, err := svc.Initialize(context.Background(), "alice", pub)
	if err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if second.Generated || second.Published {
		t.Fatalf("reuse reported Generated=%v Published=%v", second.Generated, second.Published)
	}
	if pub.calls.Load() != 0 {
		t.Fatal("publisher called on reuse")
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls.Load())
	}
	if second.Private.D.Cmp(first.Private.D) != 0 {
		t.Fatal("reused key differs from stored key")
	}
	if got := testutil.ToFloat64(m.KeysReused); got != 1 {
		t.Fatalf("reused counter = %v, want 1", got)
	}
}

func TestInitializeConcurrentCallsShareOneKey(t *testing.T) {
	ks := store.NewMemoryKeyStore()
	gen := &countingGenerator{delay: 50 * time.Millisecond}
	svc := keypair.New(ks, keypair.WithGenerator(gen.generate(t)))
	pub := &recordingPublisher{}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]domain.InitResult, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Initialize(context.Background(), "alice", pub)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls.Load())
	}
	if ks.Len() != 1 {
		t.Fatalf("store holds %d records, want 1", ks.Len())
	}
	if n := pub.calls.Load(); n != 1 {
		t.Fatalf("publisher called %d times, want 1", n)
	}

	rec, _, _ := ks.Get(context.Background(), "alice")
	kp, err := crypto.KeyPairFromRecord(rec)
	if err != nil {
		t.Fatalf("KeyPairFromRecord: %v", err)
	}
	wantPub, _ := crypto.ExportPublicKey(kp.Public)
	if pub.keys[0] != wantPub {
		t.Fatal("published key does not match persisted key")
	}
	for i, r := range results {
		if r.Private.D.Cmp(kp.Private.D) != 0 {
			t.Fatalf("caller %d got a different key", i)
		}
	}
}

func TestInitializeSeparateServicesShareOneStoredKey(t *testing.T) {
	dir := t.TempDir()
	pub := &recordingPublisher{}

	const instances = 2
	var wg sync.WaitGroup
	results := make([]domain.InitResult, instances)
	errs := make([]error, instances)
	for i := range instances {
		// Each service owns its own store handle, as separate processes do.
		svc := keypair.New(store.NewFileKeyStore(dir))
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Initialize(context.Background(), "bob", pub)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("instance %d: %v", i, err)
		}
	}
	if n := pub.calls.Load(); n != 1 {
		t.Fatalf("publisher called %d times, want 1", n)
	}

	rec, ok, err := store.NewFileKeyStore(dir).Get(context.Background(), "bob")
	if err != nil || !ok {
		t.Fatalf("stored record: ok=%v err=%v", ok, err)
	}
	kp, err := crypto.KeyPairFromRecord(rec)
	if err != nil {
		t.Fatalf("KeyPairFromRecord: %v", err)
	}
	wantPub, _ := crypto.ExportPublicKey(kp.Public)
	if pub.keys[0] != wantPub {
		t.Fatal("published key does not match persisted key")
	}
	generated := 0
	for i, r := range results {
		if r.Private.D.Cmp(kp.Private.D) != 0 {
			t.Fatalf("instance %d holds a key that is not the stored one", i)
		}
		if r.Generated {
			generated++
		}
	}
	if generated != 1 {
		t.Fatalf("%d instances report generating the stored key, want 1", generated)
	}
}

func TestInitializeDistinctUsersDoNotShare(t *testing.T) {
	ks := store.NewMemoryKeyStore()
	gen := &countingGenerator{}
	svc := keypair.New(ks, keypair.WithGenerator(gen.generate(t)))

	for _, u := range []domain.UserID{"alice", "bob"} {
		if _, err := svc.Initialize(context.Background(), u, &recordingPublisher{}); err != nil {
			t.Fatalf("Initialize %s: %v", u, err)
		}
	}
	if ks.Len() != 2 || gen.calls.Load() != 2 {
		t.Fatalf("records=%d generations=%d, want 2 and 2", ks.Len(), gen.calls.Load())
	}
}

func TestInitializePublishFailureKeepsKey(t *testing.T) {
	ks := store.NewMemoryKeyStore()
	gen := &countingGenerator{}
	m := metrics.New(nil)
	svc := keypair.New(ks, keypair.WithGenerator(gen.generate(t)), keypair.WithMetrics(m))
	boom := errors.New("directory down")

	res, err := svc.Initialize(context.Background(), "alice", &recordingPublisher{fail: boom})
	if !errors.Is(err, domain.ErrPublish) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrPublish wrapping cause", err)
	}
	if res.IsZero() || !res.Generated || res.Published {
		t.Fatalf("result = %+v, want generated unpublished key", res)
	}
	if ks.Len() != 1 {
		t.Fatal("persisted key was rolled back")
	}
	if got := testutil.ToFloat64(m.PublishFailures); got != 1 {
		t.Fatalf("publish failure counter = %v, want 1", got)
	}

	// The next session reuses the stored key and does not republish.
	pub := &recordingPublisher{}
	again, err := svc.Initialize(context.Background(), "alice", pub)
	if err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if again.Generated || pub.calls.Load() != 0 {
		t.Fatal("second session regenerated or republished")
	}
}

func TestInitializeStorageFailure(t *testing.T) {
	gen := &countingGenerator{}
	storeErr := errors.New("disk full")
	svc := keypair.New(
		failingStore{err: errors.Join(domain.ErrStorage, storeErr)},
		keypair.WithGenerator(gen.generate(t)),
	)
	pub := &recordingPublisher{}

	res, err := svc.Initialize(context.Background(), "alice", pub)
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if !res.IsZero() {
		t.Fatal("key returned despite storage failure")
	}
	if pub.calls.Load() != 0 {
		t.Fatal("published despite storage failure")
	}
}

func TestInitializeGenerationFailure(t *testing.T) {
	genErr := errors.Join(domain.ErrKeyGeneration, errors.New("no entropy"))
	ks := store.NewMemoryKeyStore()
	svc := keypair.New(ks, keypair.WithGenerator(func() (domain.KeyPair, error) {
		return domain.KeyPair{}, genErr
	}))

	_, err := svc.Initialize(context.Background(), "alice", &recordingPublisher{})
	if !errors.Is(err, domain.ErrKeyGeneration) {
		t.Fatalf("err = %v, want ErrKeyGeneration", err)
	}
	if ks.Len() != 0 {
		t.Fatal("record written after failed generation")
	}
}

func TestInitializeSurvivesCallerCancellation(t *testing.T) {
	ks := store.NewMemoryKeyStore()
	gen := &countingGenerator{delay: 20 * time.Millisecond}
	svc := keypair.New(ks, keypair.WithGenerator(gen.generate(t)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Initialize(ctx, "alice", &recordingPublisher{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if ks.Len() != 1 {
		t.Fatal("cancelled caller left no record")
	}
}

func TestInitializeRejectsBadArguments(t *testing.T) {
	svc := keypair.New(store.NewMemoryKeyStore())
	if _, err := svc.Initialize(context.Background(), "", &recordingPublisher{}); err == nil {
		t.Fatal("empty user id accepted")
	}
	if _, err := svc.Initialize(context.Background(), "alice", nil); err == nil {
		t.Fatal("nil publisher accepted")
	}
}

func TestLoadKeyPair(t *testing.T) {
	ks := store.NewMemoryKeyStore()
	gen := &countingGenerator{}
	svc := keypair.New(ks, keypair.WithGenerator(gen.generate(t)))

	if _, ok, err := svc.LoadKeyPair(context.Background(), "alice"); err != nil || ok {
		t.Fatalf("before init: ok=%v err=%v", ok, err)
	}
	res, err := svc.Initialize(context.Background(), "alice", &recordingPublisher{})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	kp, ok, err := svc.LoadKeyPair(context.Background(), "alice")
	if err != nil || !ok {
		t.Fatalf("after init: ok=%v err=%v", ok, err)
	}
	if kp.Public.N.Cmp(res.Public.N) != 0 {
		t.Fatal("loaded key differs from initialized key")
	}

	if err := ks.Put(context.Background(), "mallory", "not base64!"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, _, err := svc.LoadKeyPair(context.Background(), "mallory"); !errors.Is(err, domain.ErrImport) {
		t.Fatalf("corrupt record: err = %v, want ErrImport", err)
	}
}

func TestGenerateKeyPairDoesNotPersist(t *testing.T) {
	ks := store.NewMemoryKeyStore()
	gen := &countingGenerator{}
	svc := keypair.New(ks, keypair.WithGenerator(gen.generate(t)))
	kp, err := svc.GenerateKeyPair()
	if err != nil || kp.IsZero() {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if ks.Len() != 0 {
		t.Fatal("GenerateKeyPair wrote to the store")
	}
}
