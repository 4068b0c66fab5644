package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"markershare/internal/logging"
	"markershare/internal/rbac"
	"markershare/internal/store"
)

type HTTPServer struct {
	service        *Service
	allowedOrigins []string
}

func NewHTTPServer(service *Service, allowedOrigins []string) *HTTPServer {
	return &HTTPServer{service: service, allowedOrigins: allowedOrigins}
}

func (s *HTTPServer) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(s.withRequestContext)
	router.Use(s.withCORS)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.RequestLogger(&accessLogFormatter{}))
	router.Use(recoverJSON)

	router.NotFound(handleNotFound)
	router.MethodNotAllowed(handleNotFound)

	router.Get("/api/health", s.handleHealth)
	router.Get("/api/ready", s.handleReady)
	router.Post("/api/auth/login", s.handleLogin)

	router.Get("/api/groups", s.handleListGroups)
	router.Post("/api/groups", s.handleCreateGroup)
	router.Delete("/api/groups/{groupID}", s.handleDeleteGroup)
	router.Get("/api/groups/{groupID}/raids", s.handleListGroupRaids)
	router.Get("/api/groups/{groupID}/markers", s.handleListGroupMarkers)
	router.Get("/api/groups/{groupID}/raids/{raidID}/markers", s.handleListPairMarkers)

	router.Get("/api/raids", s.handleListRaids)
	router.Post("/api/raids", s.handleCreateRaid)
	router.Delete("/api/raids/{raidID}", s.handleDeleteRaid)

	router.Get("/api/markers", s.handleListMarkers)
	router.Post("/api/markers", s.handleCreateMarker)
	router.Get("/api/markers/{markerID}", s.handleGetMarker)
	router.Delete("/api/markers/{markerID}", s.handleDeleteMarker)

	return router
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": s.service.ServiceName()})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("kv ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	result, err := s.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		logging.FromContext(r.Context()).Info("admin login rejected")
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.ListGroups(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *HTTPServer) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	s.createEntity(w, r, "group", s.service.CreateGroup)
}

func (s *HTTPServer) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "groupID", s.service.DeleteGroup)
}

func (s *HTTPServer) handleListGroupRaids(w http.ResponseWriter, r *http.Request) {
	raids, err := s.service.ListGroupRaids(r.Context(), pathParam(r, "groupID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"raids": raids})
}

func (s *HTTPServer) handleListGroupMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := s.service.ListGroupMarkers(r.Context(), pathParam(r, "groupID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markers": markers})
}

func (s *HTTPServer) handleListPairMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := s.service.ListPairMarkers(r.Context(), pathParam(r, "groupID"), pathParam(r, "raidID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markers": markers})
}

func (s *HTTPServer) handleListRaids(w http.ResponseWriter, r *http.Request) {
	raids, err := s.service.ListRaids(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"raids": raids})
}

func (s *HTTPServer) handleCreateRaid(w http.ResponseWriter, r *http.Request) {
	s.createEntity(w, r, "raid", s.service.CreateRaid)
}

func (s *HTTPServer) handleDeleteRaid(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "raidID", s.service.DeleteRaid)
}

func (s *HTTPServer) handleListMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := s.service.ListMarkers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markers": markers})
}

func (s *HTTPServer) handleGetMarker(w http.ResponseWriter, r *http.Request) {
	marker, err := s.service.GetMarker(r.Context(), pathParam(r, "markerID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"marker": marker})
}

func (s *HTTPServer) handleCreateMarker(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	var body CreateMarkerInput
	if !s.decodeJSON(w, r, &body) {
		return
	}
	marker, err := s.service.CreateMarker(r.Context(), session, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logging.FromContext(r.Context()).WithFields(logrus.Fields{
		"marker_id": marker.ID,
		"group_id":  marker.GroupID,
		"raid_id":   marker.RaidID,
		"version":   marker.Version,
	}).Info("marker created")
	writeJSON(w, http.StatusCreated, map[string]any{"marker": marker})
}

func (s *HTTPServer) handleDeleteMarker(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "markerID", s.service.DeleteMarker)
}

// createEntity answers 201 for a new entity and 200 when the name already existed.
func (s *HTTPServer) createEntity(w http.ResponseWriter, r *http.Request, key string, create func(context.Context, string) (store.Entity, bool, error)) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	var body struct {
		Name any `json:"name"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	name, _ := body.Name.(string)
	if strings.TrimSpace(name) == "" {
		s.fail(w, r, validationError("field name is required"))
		return
	}
	entity, created, err := create(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{key: entity, "created": created})
}

func (s *HTTPServer) deleteByID(w http.ResponseWriter, r *http.Request, param string, remove func(context.Context, string) error) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	if err := remove(r.Context(), pathParam(r, param)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// requireAdmin rejects every failure with the same 401 body.
func (s *HTTPServer) requireAdmin(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		s.fail(w, r, errUnauthorized)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(token)
	if err != nil || !rbac.Can(rbac.Normalize(string(session.Role)), rbac.ActionWrite) {
		s.fail(w, r, errUnauthorized)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		s.fail(w, r, domainError(http.StatusBadRequest, "UNSUPPORTED_MEDIA", "Content-Type must be application/json", nil))
		return false
	}
	if err := decodeBody(r, target); err != nil {
		s.fail(w, r, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil))
		return false
	}
	return true
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).WithError(err).Error("request failed")
	}
	writeError(w, status, code, message, details)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "not found", nil)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return fmt.Errorf("request body is required")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required")
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// pathParam returns the decoded URL segment. chi matches on the raw path
// when the request carries escapes, so the value may still be encoded.
func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}
