// Package metrics holds the Prometheus collectors for key lifecycle,
// message cipher and directory server outcomes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "whisperkey"

// Result label values.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
)

// Directory operation label values.
const (
	OpFetch   = "fetch"
	OpPublish = "publish"
)

// Metrics groups every collector the services update. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	KeyPairsGenerated prometheus.Counter
	KeysReused        prometheus.Counter
	PublishFailures   prometheus.Counter
	MessagesEncrypted *prometheus.CounterVec // labels: format, result
	MessagesDecrypted *prometheus.CounterVec // labels: format, result
	DirectoryRequests *prometheus.CounterVec // labels: op, result
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		KeyPairsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keypairs_generated_total",
			Help:      "Key pairs minted during initialization.",
		}),
		KeysReused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_reused_total",
			Help:      "Initializations satisfied by an already stored key.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_publish_failures_total",
			Help:      "Public key publish attempts that failed.",
		}),
		MessagesEncrypted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_encrypted_total",
			Help:      "Messages encrypted, by ciphertext format and result.",
		}, []string{"format", "result"}),
		MessagesDecrypted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_decrypted_total",
			Help:      "Messages decrypted, by ciphertext format and result.",
		}, []string{"format", "result"}),
		DirectoryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_requests_total",
			Help:      "Directory server requests, by operation and result.",
		}, []string{"op", "result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.KeyPairsGenerated,
			m.KeysReused,
			m.PublishFailures,
			m.MessagesEncrypted,
			m.MessagesDecrypted,
			m.DirectoryRequests,
		)
	}
	return m
}

// Generated records a freshly minted key pair.
func (m *Metrics) Generated() {
	if m != nil {
		m.KeyPairsGenerated.Inc()
	}
}

// Reused records an initialization that found a stored key.
func (m *Metrics) Reused() {
	if m != nil {
		m.KeysReused.Inc()
	}
}

// PublishFailed records a failed publish.
func (m *Metrics) PublishFailed() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

// Encrypted records an encryption outcome for format ("v1", "v2" or "unknown").
func (m *Metrics) Encrypted(format string, err error) {
	if m != nil {
		m.MessagesEncrypted.WithLabelValues(format, result(err)).Inc()
	}
}

// Decrypted records a decryption outcome for format.
func (m *Metrics) Decrypted(format string, err error) {
	if m != nil {
		m.MessagesDecrypted.WithLabelValues(format, result(err)).Inc()
	}
}

// DirectoryRequest records a directory server request outcome.
func (m *Metrics) DirectoryRequest(op, outcome string) {
	if m != nil {
		m.DirectoryRequests.WithLabelValues(op, outcome).Inc()
	}
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
