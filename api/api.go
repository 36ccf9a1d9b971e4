package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/GetStream/chat-assistant-backend/api/validator"
	"github.com/GetStream/chat-assistant-backend/chatapp"
	"github.com/GetStream/chat-assistant-backend/googlechat"
	"github.com/GetStream/chat-assistant-backend/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// An EventHandler handles chat events.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev chatapp.Event) (chatapp.Reply, error)
}

// An Authorizer completes the OAuth flow and returns where to send the user.
type Authorizer interface {
	Complete(ctx context.Context, code, state string) (redirect string, err error)
}

// A MessageRecorder stores messages delivered by space event subscriptions.
type MessageRecorder interface {
	RecordMessage(ctx context.Context, space string, msg chatapp.Message) error
}

// API provides the HTTP endpoints for the application.
type API struct {
	Logger   *slog.Logger
	App      EventHandler
	Auth     Authorizer
	Recorder MessageRecorder
	Val      *validator.Validator

	once sync.Once
	mux  *http.ServeMux
}

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /{$}", a.handleEvent)
	mux.HandleFunc("POST /pubsub", a.handlePush)
	mux.HandleFunc("GET /oauth2/callback", a.oauthCallback)
	mux.HandleFunc("GET /healthz", a.health)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path, "request_id", uuid.NewString())
	a.mux.ServeHTTP(w, r)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string, args ...any) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", append([]any{"error", err.Error()}, args...)...)
	a.respond(w, status, response{Error: msg})
}

func (a *API) validateBody(w http.ResponseWriter, s interface{}) bool {
	errs := a.Val.ValidateStruct(s)
	type response struct {
		Errors []validator.ValidationError `json:"errors"`
	}

	if len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

func (a *API) handleEvent(w http.ResponseWriter, r *http.Request) {
	var body event
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	ev := body.ChatEvent()
	reply, err := a.App.HandleEvent(r.Context(), ev)
	label := eventLabel(body.Type)
	if err != nil {
		metrics.EventsHandled.WithLabelValues(label, "error").Inc()
		a.respondError(w, http.StatusInternalServerError, err, "Could not handle event", "type", body.Type, "space", body.Space.Name)
		return
	}
	metrics.EventsHandled.WithLabelValues(label, "ok").Inc()

	a.respond(w, http.StatusOK, reply)
}

// handlePush receives space events pushed by Pub/Sub. Any 2xx status
// acknowledges the delivery, so only failures worth a retry get an error
// status.
func (a *API) handlePush(w http.ResponseWriter, r *http.Request) {
	var push pushRequest
	if err := json.NewDecoder(r.Body).Decode(&push); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &push); !valid {
		return
	}

	ceType := push.Message.Attributes["ce-type"]
	if !slices.Contains([]string{messageCreated, messageUpdated}, ceType) {
		a.Logger.Debug("Ignoring space event", "type", ceType, "id", push.Message.MessageID)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var ev spaceEvent
	if err := json.Unmarshal(push.Message.Data, &ev); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode event payload", "id", push.Message.MessageID)
		return
	}
	if valid := a.validateBody(w, &ev); !valid {
		return
	}
	if ev.Message.Sender.Type == "BOT" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	space := ev.SpaceName()
	if err := a.Recorder.RecordMessage(r.Context(), space, ev.ChatMessage()); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not record message", "space", space, "id", push.Message.MessageID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) oauthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		a.respondError(w, http.StatusBadRequest, errors.New(e), "Authorization was denied")
		return
	}
	code := q.Get("code")
	if errs := a.Val.Validate(code, "required"); len(errs) > 0 {
		a.respondError(w, http.StatusBadRequest, errors.New("missing code"), "Missing authorization code")
		return
	}

	redirect, err := a.Auth.Complete(r.Context(), code, q.Get("state"))
	if errors.Is(err, googlechat.ErrInvalidState) {
		a.respondError(w, http.StatusBadRequest, err, "Invalid authorization state")
		return
	}
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not complete authorization")
		return
	}

	if redirect == "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Authorization complete. You can close this window."))
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	a.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
