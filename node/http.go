package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/limits"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/sirupsen/logrus"
)

// StatusFor maps a participant error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, onion.ErrForwardingFailed):
		return http.StatusBadGateway
	case errors.Is(err, onion.ErrInvalidMessage),
		errors.Is(err, onion.ErrInsufficientRelays),
		errors.Is(err, onion.ErrMalformedLayer),
		errors.Is(err, onion.ErrDecryptionFailed),
		errors.Is(err, onion.ErrUnknownSelfAddress),
		errors.Is(err, onion.ErrAddressOutOfRange),
		errors.Is(err, crypto.ErrInvalidPublicKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "writeJSON",
			"error":    err.Error(),
		}).Debug("Failed to write response")
	}
}

// WriteResult writes {"result": v}.
func WriteResult(w http.ResponseWriter, v interface{}) {
	writeJSON(w, http.StatusOK, interfaces.ResultBody{Result: v})
}

// WriteError writes {"error": ...} with the status StatusFor picks.
func WriteError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), interfaces.ErrorBody{Error: err.Error()})
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// DecodeBody decodes a JSON request body of at most limits.MaxProcessingBuffer bytes.
func DecodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxProcessingBuffer)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", onion.ErrInvalidMessage, err)
	}
	return nil
}

// decodeMessage reads {"message": ...}, rejecting a missing or empty message.
func decodeMessage(w http.ResponseWriter, r *http.Request) (string, error) {
	var body interfaces.MessageBody
	if err := DecodeBody(w, r, &body); err != nil {
		return "", err
	}
	if body.Message == "" {
		return "", fmt.Errorf("%w: request body must contain a message property", onion.ErrInvalidMessage)
	}
	return body.Message, nil
}

// StatusHandler answers liveness probes.
func StatusHandler(w http.ResponseWriter, _ *http.Request) {
	writeText(w, "live")
}

func commonRoutes(router *mux.Router, state *State, metrics *Metrics) {
	router.HandleFunc("/status", StatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/getLastReceivedMessage", func(w http.ResponseWriter, _ *http.Request) {
		WriteResult(w, state.LastReceived())
	}).Methods(http.MethodGet)
	router.HandleFunc("/getLastSentMessage", func(w http.ResponseWriter, _ *http.Request) {
		WriteResult(w, state.LastSent())
	}).Methods(http.MethodGet)
	router.HandleFunc("/getLastCircuit", func(w http.ResponseWriter, _ *http.Request) {
		ids := state.LastCircuit()
		if ids == nil {
			ids = []uint32{}
		}
		WriteResult(w, ids)
	}).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

// Router returns the user's HTTP surface.
func (u *User) Router() *mux.Router {
	router := mux.NewRouter()
	commonRoutes(router, u.state, u.metrics)

	router.HandleFunc("/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var body interfaces.SendMessageBody
		if err := DecodeBody(w, r, &body); err != nil {
			WriteError(w, err)
			return
		}
		dest, ok := body.Destination()
		if !ok {
			WriteError(w, fmt.Errorf("%w: request body must contain a destinationUserId property", onion.ErrInvalidMessage))
			return
		}
		if err := u.Send(r.Context(), body.Message, dest); err != nil {
			WriteError(w, err)
			return
		}
		writeText(w, "success")
	}).Methods(http.MethodPost)

	router.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		message, err := decodeMessage(w, r)
		if err == nil {
			err = u.Receive(message)
		}
		if err != nil {
			WriteError(w, err)
			return
		}
		writeText(w, "success")
	}).Methods(http.MethodPost)

	return router
}

// Router returns the relay's HTTP surface.
func (r *Relay) Router() *mux.Router {
	router := mux.NewRouter()
	commonRoutes(router, r.state, r.metrics)

	router.HandleFunc("/message", func(w http.ResponseWriter, req *http.Request) {
		message, err := decodeMessage(w, req)
		if err == nil {
			err = r.HandleMessage(req.Context(), message)
		}
		if err != nil {
			WriteError(w, err)
			return
		}
		writeText(w, "success")
	}).Methods(http.MethodPost)

	router.HandleFunc("/getLastReceivedEncryptedMessage", func(w http.ResponseWriter, _ *http.Request) {
		WriteResult(w, r.state.LastReceived())
	}).Methods(http.MethodGet)
	router.HandleFunc("/getLastReceivedDecryptedMessage", func(w http.ResponseWriter, _ *http.Request) {
		WriteResult(w, r.state.LastDecrypted())
	}).Methods(http.MethodGet)
	router.HandleFunc("/getLastMessageDestination", func(w http.ResponseWriter, _ *http.Request) {
		WriteResult(w, r.state.LastDestination())
	}).Methods(http.MethodGet)

	return router
}
