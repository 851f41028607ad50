package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/framewell/renderfarm/pkg/farm"
	"github.com/framewell/renderfarm/pkg/types"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// SubmitJobRequest is the POST /v1/jobs body.
type SubmitJobRequest struct {
	ID                        string   `json:"id,omitempty"`
	ClientID                  string   `json:"client_id"`
	Name                      string   `json:"name"`
	JobType                   string   `json:"job_type"`
	Priority                  string   `json:"priority"`
	Deadline                  string   `json:"deadline"` // RFC 3339
	EstimatedDurationHours    float64  `json:"estimated_duration_hours"`
	RequiresGPU               bool     `json:"requires_gpu"`
	MemoryRequirementsGB      int      `json:"memory_requirements_gb"`
	CPURequirements           int      `json:"cpu_requirements"`
	SceneComplexity           int      `json:"scene_complexity"`
	Dependencies              []string `json:"dependencies,omitempty"`
	OutputPath                string   `json:"output_path,omitempty"`
	CanBePreempted            bool     `json:"can_be_preempted"`
	SupportsCheckpoint        bool     `json:"supports_checkpoint"`
	SupportsProgressiveOutput bool     `json:"supports_progressive_output"`
	EnergyIntensive           bool     `json:"energy_intensive"`
}

// SubmitJobResponse is the POST /v1/jobs reply.
type SubmitJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		http.Error(w, "invalid deadline: "+err.Error(), http.StatusBadRequest)
		return
	}

	job := &types.RenderJob{
		ID:                        req.ID,
		ClientID:                  req.ClientID,
		Name:                      req.Name,
		JobType:                   req.JobType,
		Priority:                  types.JobPriority(req.Priority),
		Deadline:                  deadline,
		EstimatedDurationHours:    req.EstimatedDurationHours,
		RequiresGPU:               req.RequiresGPU,
		MemoryRequirementsGB:      req.MemoryRequirementsGB,
		CPURequirements:           req.CPURequirements,
		SceneComplexity:           req.SceneComplexity,
		Dependencies:              req.Dependencies,
		OutputPath:                req.OutputPath,
		CanBePreempted:            req.CanBePreempted,
		SupportsCheckpoint:        req.SupportsCheckpoint,
		SupportsProgressiveOutput: req.SupportsProgressiveOutput,
		EnergyIntensive:           req.EnergyIntensive,
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Priority == "" {
		job.Priority = types.JobPriorityMedium
	}

	if err := s.manager.SubmitJob(job); err != nil {
		writeDomainError(w, err)
		return
	}

	stored, err := s.manager.Job(job.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, SubmitJobResponse{ID: stored.ID, Status: string(stored.Status)})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.JobStatusViews())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	info, err := s.manager.JobStatusView(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleJobProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Progress float64 `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.manager.UpdateJobProgress(mux.Vars(r)["id"], req.Progress); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.CompleteJob(mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.CancelJob(mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleJobPriority(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	priority := types.JobPriority(req.Priority)
	if priority.Value() == 0 {
		http.Error(w, "unknown priority: "+req.Priority, http.StatusBadRequest)
		return
	}
	if err := s.manager.UpdateJobPriority(mux.Vars(r)["id"], priority); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NodeInfo is the external view of one render node.
type NodeInfo struct {
	ID                    string           `json:"id"`
	Name                  string           `json:"name"`
	Status                types.NodeStatus `json:"status"`
	CurrentJobID          string           `json:"current_job_id,omitempty"`
	LastError             string           `json:"last_error,omitempty"`
	PowerEfficiencyRating float64          `json:"power_efficiency_rating"`
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.manager.Nodes()
	out := make([]NodeInfo, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, NodeInfo{
			ID:                    node.ID,
			Name:                  node.Name,
			Status:                node.Status,
			CurrentJobID:          node.CurrentJobID,
			LastError:             node.LastError,
			PowerEfficiencyRating: node.PowerEfficiencyRating,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNodeFailure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.manager.HandleNodeFailure(mux.Vars(r)["id"], req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNodeOnline(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.SetNodeOnline(mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNodeOffline(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.SetNodeOffline(mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	info, err := s.manager.ClientStatusView(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleFarmStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.FarmStatusView())
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		http.Error(w, "audit trail disabled", http.StatusNotFound)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.audit.Tail(limit))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps farm sentinel errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, farm.ErrUnknownJob),
		errors.Is(err, farm.ErrUnknownNode),
		errors.Is(err, farm.ErrUnknownClient):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, farm.ErrDuplicateID):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
