package httputil

import (
	"context"
	"net"
	"net/http"
	"time"
)

// HTTPServer wraps a http.Server, while providing conveniences
// like exposing the listen address and a context-bounded shutdown.
type HTTPServer struct {
	listener net.Listener
	srv      *http.Server
}

// StartHTTPServer starts a HTTP server on the given address, with the given handler.
// The server is started immediately, and the returned HTTPServer can be used to stop it.
func StartHTTPServer(addr string, handler http.Handler) (*HTTPServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	out := &HTTPServer{listener: listener}
	out.srv = &http.Server{
		Handler:           handler,
		ReadTimeout:       time.Minute,
		ReadHeaderTimeout: 30 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       time.Minute,
	}
	go func() {
		// Serve always returns a non-nil error; ErrServerClosed just
		// signals a regular Stop or Close.
		_ = out.srv.Serve(listener)
	}()
	return out, nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests,
// bounded by the given context.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Close forcefully closes the server, without waiting for in-flight requests.
func (s *HTTPServer) Close() error {
	return s.srv.Close()
}

func (s *HTTPServer) Addr() net.Addr {
	return s.listener.Addr()
}
