package emulator

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/oxen-io/ledger-crawler/internal/speculos"
)

// handlerFunc is like http.HandlerFunc, but returns the status code written
// and any error, for request logging.
type handlerFunc func(w http.ResponseWriter, r *http.Request) (status int, err error)

type eventsJSON struct {
	Events []speculos.Event `json:"events"`
}

type errorJSON struct {
	Error string `json:"error"`
}

// Handler returns an http.Handler serving the Speculos REST endpoints used by
// the crawler:
//
//	GET    /events[?currentscreenonly=true]
//	DELETE /events
//	POST   /button/{left|right|both}
func (e *Emulator) Handler() http.Handler {
	mux := http.NewServeMux()
	register := func(pattern string, h handlerFunc) {
		mux.Handle(pattern, logRequests(e.logger, h))
	}
	register("GET /events", e.handleEvents)
	register("DELETE /events", e.handleResetEvents)
	register("POST /button/{which}", e.handleButton)
	return mux
}

func (e *Emulator) handleEvents(w http.ResponseWriter, r *http.Request) (int, error) {
	var events []speculos.Event
	if r.URL.Query().Get("currentscreenonly") == "true" {
		events = e.CurrentEvents()
	} else {
		events = e.Events()
	}
	if events == nil {
		events = []speculos.Event{}
	}
	return encodeResponse(w, http.StatusOK, eventsJSON{Events: events})
}

func (e *Emulator) handleResetEvents(w http.ResponseWriter, r *http.Request) (int, error) {
	e.ResetEvents()
	return encodeResponse(w, http.StatusOK, struct{}{})
}

func (e *Emulator) handleButton(w http.ResponseWriter, r *http.Request) (int, error) {
	which := r.PathValue("which")
	switch which {
	case speculos.Left, speculos.Right, speculos.Both:
	default:
		return encodeResponse(w, http.StatusNotFound, errorJSON{Error: "unknown button " + which})
	}

	var req speculos.ButtonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return encodeResponse(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
	}
	if err := e.Press(which, req.Action); err != nil {
		return encodeResponse(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
	}
	return encodeResponse(w, http.StatusOK, struct{}{})
}

func encodeResponse(w http.ResponseWriter, status int, data any) (int, error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return status, json.NewEncoder(w).Encode(data)
}

// logRequests is a middleware that logs API requests.
func logRequests(logger *zap.Logger, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, err := h(w, r)
		logger.Debug("Handled API request",
			zap.String("method", r.Method),
			zap.String("requestURI", r.RequestURI),
			zap.String("remoteAddr", r.RemoteAddr),
			zap.Int("status", status),
			zap.Error(err),
		)
	})
}
