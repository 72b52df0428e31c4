// Package server exposes the pricing engine over HTTP.
package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contactkeval/option-mc/internal/config"
	"github.com/contactkeval/option-mc/internal/data"
	"github.com/contactkeval/option-mc/internal/engine"
	"github.com/contactkeval/option-mc/internal/errs"
	"github.com/contactkeval/option-mc/internal/logger"
	"github.com/contactkeval/option-mc/internal/report"
)

const maxBodyBytes = 1 << 20

type Server struct {
	base *config.Config
	prov data.SpotProvider
}

// New returns a server whose /price requests are merged over base.
func New(base *config.Config, prov data.SpotProvider) *Server {
	return &Server{base: base, prov: prov}
}

// Router wires the endpoints:
//
//	POST /price   config JSON in, []engine.Result out
//	GET  /health  liveness
//	GET  /metrics prometheus exposition
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/price", s.priceHandler).Methods(http.MethodPost)
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) priceHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("received /price request from %s", r.RemoteAddr)

	cfg, err := s.requestConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	results, err := engine.NewEngine(cfg, s.prov).Run(r.Context())
	if err != nil {
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			logger.Errorf("pricing request failed: %v", err)
		}
		writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := report.WriteJSON(w, results); err != nil {
		logger.Errorf("writing /price response: %v", err)
	}
}

// requestConfig decodes the body over a private copy of the base config, so
// one request never leaks into the next.
func (s *Server) requestConfig(r *http.Request) (*config.Config, error) {
	raw, err := json.Marshal(s.base)
	if err != nil {
		return nil, err
	}
	cfg := &config.Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	// an empty body prices the base config as is
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(errs.ErrInvalidArgument, "decoding request body: "+err.Error())
	}
	return cfg, nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNumericOverflow):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
