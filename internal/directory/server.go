package directory

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"whisperkey/internal/crypto"
	"whisperkey/internal/domain"
	"whisperkey/internal/metrics"
)

// maxBodyBytes caps a publish request body. An encoded 2048-bit SPKI key is
// well under 1 KiB.
const maxBodyBytes = 16 << 10

// Handler serves dir over the directory HTTP API. Published keys must parse
// as RSA public keys. A nil logger discards the access log and a nil m
// records nothing.
func Handler(dir domain.PublicKeyDirectory, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+keyPath+"{user}", func(w http.ResponseWriter, r *http.Request) {
		user := domain.UserID(r.PathValue("user"))
		key, ok, err := dir.FetchPublicKey(r.Context(), user)
		if err != nil {
			m.DirectoryRequest(metrics.OpFetch, metrics.ResultError)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			m.DirectoryRequest(metrics.OpFetch, metrics.ResultNotFound)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		m.DirectoryRequest(metrics.OpFetch, metrics.ResultOK)
		writeJSON(w, keyResponse{UserID: user, PublicKey: key})
	})

	mux.HandleFunc("PUT "+keyPath+"{user}", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var in publishRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
			m.DirectoryRequest(metrics.OpPublish, metrics.ResultInvalid)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := crypto.ImportPublicKey(in.PublicKey); err != nil {
			m.DirectoryRequest(metrics.OpPublish, metrics.ResultInvalid)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		user := domain.UserID(r.PathValue("user"))
		if err := dir.PublishPublicKey(r.Context(), user, in.PublicKey); err != nil {
			m.DirectoryRequest(metrics.OpPublish, metrics.ResultError)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		m.DirectoryRequest(metrics.OpPublish, metrics.ResultOK)
		w.WriteHeader(http.StatusNoContent)
	})

	return accessLog(logger, mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// accessLog records method, path, remote, status, bytes and duration.
func accessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}
