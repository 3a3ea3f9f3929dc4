package telemetry

import (
	"bufio"
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"github.com/ashgrove/reelengine/internal/certs"
)

// idleTimeout matches the teacher's distribution server's QUIC idle
// timeout.
const idleTimeout = 30 * time.Second

// Server serves one Hub's event stream over HTTP/3 at /events. Grounded
// on zsiec-prism/internal/distribution/server.go's Start: the
// quic.Config/http3.Server construction and context.AfterFunc-driven
// shutdown are carried over verbatim; the WebTransport upgrade and MoQ
// routing are dropped since telemetry needs only one unidirectional
// stream per observer, served as chunked HTTP response bodies rather
// than QUIC streams the client must speak MoQ to open.
type Server struct {
	addr string
	cert *certs.CertInfo
	hub  *Hub
	log  *slog.Logger

	h3 *http3.Server
}

// NewServer creates a Server that will listen on addr once Start is
// called, serving hub's events.
func NewServer(addr string, cert *certs.CertInfo, hub *Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{addr: addr, cert: cert, hub: hub, log: log.With("component", "telemetry-server")}
}

// Start launches the HTTP/3 event server and blocks until ctx is
// cancelled or a fatal error occurs.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)

	s.h3 = &http3.Server{
		Addr:      s.addr,
		Handler:   mux,
		TLSConfig: &tls.Config{Certificates: []tls.Certificate{s.cert.TLSCert}},
		QUICConfig: &quic.Config{
			MaxIdleTimeout: idleTimeout,
			Allow0RTT:      true,
		},
	}

	s.log.Info("telemetry server listening", "addr", s.addr)
	stop := context.AfterFunc(ctx, func() { s.h3.Close() })
	defer stop()

	err := s.h3.ListenAndServeTLS("", "")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// handleEvents streams newline-delimited JSON Events to one observer
// until the request context is cancelled.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	bw := bufio.NewWriter(w)

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			line, err := marshalLine(e)
			if err != nil {
				s.log.Error("marshal event", "error", err)
				continue
			}
			if _, err := bw.Write(line); err != nil {
				return
			}
			if err := bw.Flush(); err != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
	}
}
