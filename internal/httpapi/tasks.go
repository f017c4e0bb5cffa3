package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	reminder "github.com/ace-232/day-planner-app"
)

type createTaskRequest struct {
	Title            string    `json:"title" validate:"required,max=200"`
	Description      string    `json:"description" validate:"max=2000"`
	ScheduledTime    time.Time `json:"scheduledTime" validate:"required"`
	NotificationType string    `json:"notificationType" validate:"required,channel"`
}

// createTask saves the task and schedules its dispatch. A task whose
// dispatch could not be scheduled is removed again, so a 201 always means
// the reminder will fire.
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	ch, _ := reminder.ParseChannel(req.NotificationType)

	task := reminder.NewTask(userID(r), req.Title, req.Description, req.ScheduledTime, ch)
	if err := s.cfg.Tasks.Save(r.Context(), task); err != nil {
		s.log.Error("failed to save task", "error", err, "user_id", task.UserID)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	if err := s.cfg.Producer.OnTaskCreated(r.Context(), task); err != nil {
		if derr := s.cfg.Tasks.Delete(context.WithoutCancel(r.Context()), task.ID); derr != nil {
			s.log.Error("failed to roll back unscheduled task", "error", derr, "task_id", task.ID)
		}
		respondError(w, http.StatusServiceUnavailable, "Reminder could not be scheduled, try again later")
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.cfg.Tasks.FindByUser(r.Context(), userID(r))
	if err != nil {
		s.log.Error("failed to list tasks", "error", err, "user_id", userID(r))
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if tasks == nil {
		tasks = []*reminder.Task{}
	}
	respondJSON(w, http.StatusOK, tasks)
}
