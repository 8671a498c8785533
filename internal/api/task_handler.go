package api

import (
	"fmt"
	"net/http"

	"github.com/phrazzld/taskmanager-api/internal/api/shared"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/service"
)

// TasksPath is the collection route for tasks; item routes append "/{id}".
const TasksPath = "/api/tasks"

// TaskHandler serves the owner-scoped task endpoints.
type TaskHandler struct {
	tasks service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), ownerID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToDTOs(tasks))
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := handleOwnerAndPathID(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), ownerID, id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToDTO(task))
}

// Create handles POST /api/tasks. Any id or createdAt in the body is ignored.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req TaskItemDTO
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), ownerID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%d", TasksPath, task.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToDTO(task))
}

// Update handles PUT /api/tasks/{id}. The body's id must match the path.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := handleOwnerAndPathID(w, r)
	if !ok {
		return
	}

	var req TaskItemDTO
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	if req.ID != id {
		logger.FromContext(r.Context()).Debug("task id mismatch",
			"path_id", id,
			"body_id", req.ID)
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task id in body does not match the URL")
		return
	}

	err := h.tasks.UpdateTask(r.Context(), ownerID, id, service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := handleOwnerAndPathID(w, r)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), ownerID, id); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
