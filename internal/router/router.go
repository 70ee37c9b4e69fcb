// Package router wires the HTTP API: authentication endpoints, the
// owner-scoped task CRUD, the storage health check, and the
// subnet-restricted internal stats endpoint.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/todolst/internal/auth"
	"github.com/patric-chuzhbe/todolst/internal/authenticator"
	"github.com/patric-chuzhbe/todolst/internal/db/storage"
	"github.com/patric-chuzhbe/todolst/internal/gzippedhttp"
	"github.com/patric-chuzhbe/todolst/internal/ipchecker"
	"github.com/patric-chuzhbe/todolst/internal/logger"
	"github.com/patric-chuzhbe/todolst/internal/models"
	"github.com/patric-chuzhbe/todolst/internal/service"
	"github.com/patric-chuzhbe/todolst/internal/task"
	"github.com/patric-chuzhbe/todolst/internal/user"
)

type sessionManager interface {
	Register(ctx context.Context, username, email, password string) (*user.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// Router holds the handlers of the HTTP API.
type Router struct {
	svc       *service.Service
	sessions  sessionManager
	ipChecker *ipchecker.IPChecker
	validate  *validator.Validate
}

// New assembles the chi mux with the middleware chain and all routes.
// Task routes are guarded by the authenticator middleware.
func New(
	svc *service.Service,
	sessions sessionManager,
	theAuth authenticator.Authenticator,
	ipChecker *ipchecker.IPChecker,
) http.Handler {
	myRouter := &Router{
		svc:       svc,
		sessions:  sessions,
		ipChecker: ipChecker,
		validate:  validator.New(),
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	router.Post(`/api/auth/register`, myRouter.PostApiauthregister)
	router.Post(`/api/auth/login`, myRouter.PostApiauthlogin)
	router.Get(`/ping`, myRouter.GetPing)
	router.Get(`/api/internal/stats`, myRouter.GetApiinternalstats)

	router.Group(func(protected chi.Router) {
		protected.Use(theAuth.AuthenticateUser)
		protected.Get(`/api/todos`, myRouter.GetApitodos)
		protected.Post(`/api/todos`, myRouter.PostApitodos)
		protected.Put(`/api/todos/{taskID}`, myRouter.PutApitodo)
		protected.Delete(`/api/todos/{taskID}`, myRouter.DeleteApitodo)
	})

	return router
}

// PostApiauthregister handles POST /api/auth/register.
func (r *Router) PostApiauthregister(response http.ResponseWriter, request *http.Request) {
	var registerRequest models.RegisterRequest
	if err := json.NewDecoder(request.Body).Decode(&registerRequest); err != nil {
		writeJSONError(response, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := r.validate.Struct(registerRequest); err != nil {
		writeJSONError(response, http.StatusUnprocessableEntity, err.Error())
		return
	}

	usr, err := r.sessions.Register(
		request.Context(),
		registerRequest.Username,
		registerRequest.Email,
		registerRequest.Password,
	)
	switch {
	case errors.Is(err, auth.ErrInvalidInput) || errors.Is(err, auth.ErrWeakPassword):
		writeJSONError(response, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, storage.ErrDuplicateEmail):
		writeJSONError(response, http.StatusConflict, err.Error())
		return
	case err != nil:
		logger.Log.Errorln("Error calling the `r.sessions.Register()`: ", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(response, http.StatusCreated, models.RegisterResponse{
		ID:       usr.ID,
		Username: usr.Username,
		Email:    usr.Email,
	})
}

// PostApiauthlogin handles POST /api/auth/login.
func (r *Router) PostApiauthlogin(response http.ResponseWriter, request *http.Request) {
	var loginRequest models.LoginRequest
	if err := json.NewDecoder(request.Body).Decode(&loginRequest); err != nil {
		writeJSONError(response, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := r.validate.Struct(loginRequest); err != nil {
		writeJSONError(response, http.StatusUnprocessableEntity, err.Error())
		return
	}

	token, err := r.sessions.Login(request.Context(), loginRequest.Email, loginRequest.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSONError(response, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		logger.Log.Errorln("Error calling the `r.sessions.Login()`: ", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(response, http.StatusOK, models.LoginResponse{Token: token})
}

// GetApitodos handles GET /api/todos.
func (r *Router) GetApitodos(response http.ResponseWriter, request *http.Request) {
	userID, ok := userIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := r.svc.List(request.Context(), userID)
	if err != nil {
		logger.Log.Errorln("Error calling the `r.svc.List()`: ", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "internal error")
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}

	writeJSON(response, http.StatusOK, tasks)
}

// PostApitodos handles POST /api/todos.
func (r *Router) PostApitodos(response http.ResponseWriter, request *http.Request) {
	userID, ok := userIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "unauthorized")
		return
	}

	var createRequest models.CreateTaskRequest
	if err := json.NewDecoder(request.Body).Decode(&createRequest); err != nil {
		writeJSONError(response, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tsk, err := r.svc.Create(request.Context(), userID, createRequest.Text)
	switch {
	case errors.Is(err, service.ErrEmptyText):
		writeJSONError(response, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		logger.Log.Errorln("Error calling the `r.svc.Create()`: ", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(response, http.StatusCreated, tsk)
}

// PutApitodo handles PUT /api/todos/{taskID}.
func (r *Router) PutApitodo(response http.ResponseWriter, request *http.Request) {
	userID, ok := userIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "unauthorized")
		return
	}

	var updateRequest models.UpdateTaskRequest
	if err := json.NewDecoder(request.Body).Decode(&updateRequest); err != nil {
		writeJSONError(response, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := r.svc.Update(
		request.Context(),
		userID,
		chi.URLParam(request, "taskID"),
		task.Patch{
			Text:      updateRequest.Text,
			Completed: updateRequest.Completed,
		},
	)
	switch {
	case errors.Is(err, service.ErrEmptyText) || errors.Is(err, service.ErrEmptyPatch):
		writeJSONError(response, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, storage.ErrNotFound):
		writeJSONError(response, http.StatusNotFound, "task not found")
		return
	case err != nil:
		logger.Log.Errorln("Error calling the `r.svc.Update()`: ", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(response, http.StatusOK, updated)
}

// DeleteApitodo handles DELETE /api/todos/{taskID}.
func (r *Router) DeleteApitodo(response http.ResponseWriter, request *http.Request) {
	userID, ok := userIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "unauthorized")
		return
	}

	err := r.svc.Delete(request.Context(), userID, chi.URLParam(request, "taskID"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSONError(response, http.StatusNotFound, "task not found")
		return
	case err != nil:
		logger.Log.Errorln("Error calling the `r.svc.Delete()`: ", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(response, http.StatusOK, models.DeleteTaskResponse{Message: "Deleted"})
}

// GetPing handles GET /ping and reports storage health.
func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.svc.Ping(request.Context()); err != nil {
		logger.Log.Errorln("Error calling the `r.svc.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetApiinternalstats handles GET /api/internal/stats. Requests from
// outside the trusted subnet are rejected with 403.
func (r *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	if r.ipChecker.IsTrustedSubnetEmpty() {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	clientIP, err := r.ipChecker.GetClientIP(request)
	if err != nil || !r.ipChecker.Check(clientIP) {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	stats, err := r.svc.GetInternalStats(request.Context())
	if err != nil {
		logger.Log.Errorln("Error calling the `r.svc.GetInternalStats()`: ", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

func userIDFromContext(request *http.Request) (string, bool) {
	userID, ok := request.Context().Value(auth.UserIDKey).(string)
	return userID, ok && userID != ""
}

func writeJSON(response http.ResponseWriter, statusCode int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.Encoder.Encode()`: ", zap.Error(err))
	}
}

func writeJSONError(response http.ResponseWriter, statusCode int, message string) {
	writeJSON(response, statusCode, models.ErrorResponse{Error: message})
}
