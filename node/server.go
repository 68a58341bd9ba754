package node

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"
)

// shutdownTimeout bounds graceful shutdown of a participant's server.
const shutdownTimeout = 5 * time.Second

// WithMiddleware wraps handler with panic recovery and access logging, both
// writing to logrus.
func WithMiddleware(handler http.Handler) http.Handler {
	logWriter := logrus.StandardLogger().WriterLevel(logrus.DebugLevel)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(logrus.StandardLogger()),
		handlers.PrintRecoveryStack(false),
	)
	return recovery(handlers.CombinedLoggingHandler(logWriter, handler))
}

// Serve listens on listenAddr and serves handler until ctx is cancelled,
// then shuts the server down gracefully.
func Serve(ctx context.Context, listenAddr string, handler http.Handler) error {
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, listener, handler)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, listener net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:           WithMiddleware(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.WithFields(logrus.Fields{
		"function": "ServeListener",
		"address":  listener.Addr().String(),
	}).Info("Participant listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "ServeListener",
		"address":  listener.Addr().String(),
	}).Info("Participant stopped")
	return nil
}
