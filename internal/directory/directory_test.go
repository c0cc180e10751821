package directory_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"whisperkey/internal/crypto"
	"whisperkey/internal/directory"
	"whisperkey/internal/domain"
	"whisperkey/internal/metrics"
)

func newServer(t *testing.T) (*directory.HTTPClient, *directory.Memory) {
	t.Helper()
	mem := directory.NewMemory()
	srv := httptest.NewServer(directory.Handler(mem, nil, nil))
	t.Cleanup(srv.Close)
	return directory.NewHTTP(srv.URL+"/", srv.Client()), mem
}

func encodedKey(t *testing.T) domain.EncodedPublicKey {
	t.Helper()
	kp, err := crypto.GenerateRSA()
	if err != nil {
		t.Fatalf("GenerateRSA: %v", err)
	}
	enc, err := crypto.ExportPublicKey(kp.Public)
	if err != nil {
		t.Fatalf("ExportPublicKey: %v", err)
	}
	return enc
}

func TestHTTPClientPublishThenFetch(t *testing.T) {
	c, mem := newServer(t)
	ctx := context.Background()
	key := encodedKey(t)

	if err := c.PublishPublicKey(ctx, "alice", key); err != nil {
		t.Fatalf("PublishPublicKey: %v", err)
	}
	got, ok, err := c.FetchPublicKey(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("FetchPublicKey: ok=%v err=%v", ok, err)
	}
	if got != key {
		t.Fatal("fetched key differs from published key")
	}
	if stored, _, _ := mem.FetchPublicKey(ctx, "alice"); stored != key {
		t.Fatal("server did not store the key")
	}
}

func TestHTTPClientFetchMissing(t *testing.T) {
	c, _ := newServer(t)
	_, ok, err := c.FetchPublicKey(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("FetchPublicKey: %v", err)
	}
	if ok {
		t.Fatal("missing user reported as found")
	}
}

func TestHTTPClientEscapesUserID(t *testing.T) {
	c, mem := newServer(t)
	ctx := context.Background()
	key := encodedKey(t)
	const user = "carol smith"

	if err := c.PublishPublicKey(ctx, user, key); err != nil {
		t.Fatalf("PublishPublicKey: %v", err)
	}
	if _, ok, _ := mem.FetchPublicKey(ctx, user); !ok {
		t.Fatal("user id was not round-tripped through the path")
	}
}

func TestServerRejectsInvalidKey(t *testing.T) {
	c, mem := newServer(t)
	err := c.PublishPublicKey(context.Background(), "alice", "bm90IGEga2V5")
	if err == nil {
		t.Fatal("server accepted a non-key")
	}
	if _, ok, _ := mem.FetchPublicKey(context.Background(), "alice"); ok {
		t.Fatal("invalid key stored")
	}
}

func TestServerRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(directory.Handler(directory.NewMemory(), nil, nil))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/keys/alice", bytes.NewBufferString("{"))
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	resp, err = srv.Client().Post(srv.URL+"/keys/alice", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", resp.StatusCode)
	}
}

func TestHTTPClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()
	c := directory.NewHTTP(srv.URL, srv.Client())

	if _, _, err := c.FetchPublicKey(context.Background(), "alice"); err == nil {
		t.Fatal("FetchPublicKey: expected error on 502")
	}
	if err := c.PublishPublicKey(context.Background(), "alice", "k"); err == nil {
		t.Fatal("PublishPublicKey: expected error on 502")
	}
}

func TestHTTPClientHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()
	c := directory.NewHTTP(srv.URL, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := c.FetchPublicKey(ctx, "alice")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestPublisherBindsUser(t *testing.T) {
	mem := directory.NewMemory()
	pub := directory.Publisher(mem, "alice")
	if err := pub.PublishPublicKey(context.Background(), "key-material"); err != nil {
		t.Fatalf("PublishPublicKey: %v", err)
	}
	got, ok, _ := mem.FetchPublicKey(context.Background(), "alice")
	if !ok || got != "key-material" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestHandlerRecordsMetrics(t *testing.T) {
	m := metrics.New(nil)
	srv := httptest.NewServer(directory.Handler(directory.NewMemory(), nil, m))
	defer srv.Close()
	c := directory.NewHTTP(srv.URL, srv.Client())
	ctx := context.Background()

	if _, _, err := c.FetchPublicKey(ctx, "alice"); err != nil {
		t.Fatalf("FetchPublicKey: %v", err)
	}
	if err := c.PublishPublicKey(ctx, "alice", "bm90IGEga2V5"); err == nil {
		t.Fatal("invalid key accepted")
	}
	if err := c.PublishPublicKey(ctx, "alice", encodedKey(t)); err != nil {
		t.Fatalf("PublishPublicKey: %v", err)
	}
	if _, _, err := c.FetchPublicKey(ctx, "alice"); err != nil {
		t.Fatalf("FetchPublicKey: %v", err)
	}

	for _, tt := range []struct {
		op, result string
	}{
		{metrics.OpFetch, metrics.ResultNotFound},
		{metrics.OpFetch, metrics.ResultOK},
		{metrics.OpPublish, metrics.ResultInvalid},
		{metrics.OpPublish, metrics.ResultOK},
	} {
		if got := testutil.ToFloat64(m.DirectoryRequests.WithLabelValues(tt.op, tt.result)); got != 1 {
			t.Errorf("%s/%s = %v, want 1", tt.op, tt.result, got)
		}
	}
}
