package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskmanager-api/internal/api/shared"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/service"
)

// ownerFromRequest returns the owner identity placed in the context by the
// auth middleware, writing 401 when it is absent.
func ownerFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := shared.OwnerIDFromContext(r.Context())
	if !ok {
		logger.FromContext(r.Context()).Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized)
		return "", false
	}
	return ownerID, true
}

// pathTaskID parses the {id} route parameter. Ids that are not positive
// integers cannot name a task, so they are answered with 404.
func pathTaskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		logger.FromContext(r.Context()).Debug("invalid task id in path", "value", raw)
		HandleAPIError(w, r, service.ErrTaskNotFound)
		return 0, false
	}
	return id, true
}

// handleOwnerAndPathID extracts both the owner and the task id, writing an
// error response if either is missing.
func handleOwnerAndPathID(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return "", 0, false
	}
	id, ok := pathTaskID(w, r)
	if !ok {
		return "", 0, false
	}
	return ownerID, id, true
}
