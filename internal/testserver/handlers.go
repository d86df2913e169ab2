package testserver

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/constants"
)

func now() api.Timestamp {
	return api.Timestamp{Time: time.Now().UTC()}
}

func (s *Server) logAction(u *user, action, targetID string, details map[string]any) {
	s.audit = append(s.audit, api.AuditLogEntry{
		ID:        uuid.NewString(),
		Timestamp: now(),
		UserID:    u.id,
		Action:    action,
		TargetID:  targetID,
		Details:   details,
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, req *http.Request) {
	var body api.SignupRequest
	if !decodeRequestBody(w, req, &body) {
		return
	}
	if body.Username == "" {
		writeValidation(w, "username", "Field required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[body.Username]; exists {
		writeDetail(w, http.StatusBadRequest, "Username already exists")
		return
	}
	role := body.Role
	if role == "" {
		role = api.RoleDeveloper
	}
	u := &user{id: uuid.NewString(), password: body.Password, apiKey: newAPIKey(), role: role}
	s.users[body.Username] = u
	writeJSON(w, http.StatusCreated, api.APIKeyResponse{APIKey: u.apiKey})
}

func (s *Server) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body api.LoginRequest
	if !decodeRequestBody(w, req, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[body.Username]
	if !ok || u.password != body.Password {
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, api.APIKeyResponse{APIKey: u.apiKey})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.MessageResponse{Detail: "Logged out"})
}

func (s *Server) handleListRunbooks(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Runbook, 0, len(s.runbookOrder))
	for _, id := range s.runbookOrder {
		out = append(out, *s.runbooks[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRunbook(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rb, ok := s.runbooks[urlParam(req, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Runbook not found")
		return
	}
	writeJSON(w, http.StatusOK, rb)
}

func (s *Server) handleCreateRunbook(w http.ResponseWriter, req *http.Request) {
	var body api.RunbookWriteRequest
	if !decodeRequestBody(w, req, &body) {
		return
	}
	if body.Title == "" {
		writeValidation(w, "title", "Field required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := userFromContext(req.Context())
	rb := &api.Runbook{
		ID:            uuid.NewString(),
		Title:         body.Title,
		Description:   body.Description,
		Tags:          body.Tags,
		EnvironmentID: body.EnvironmentID,
		Blocks:        body.Blocks,
		Version:       1,
		CreatedBy:     u.id,
		CreatedAt:     now(),
		UpdatedAt:     now(),
	}
	s.storeRunbook(rb)
	s.logAction(u, "create_runbook", rb.ID, nil)
	writeJSON(w, http.StatusCreated, rb)
}

func (s *Server) handleUpdateRunbook(w http.ResponseWriter, req *http.Request) {
	var body api.RunbookWriteRequest
	if !decodeRequestBody(w, req, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rb, ok := s.runbooks[urlParam(req, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Runbook not found")
		return
	}
	rb.Title = body.Title
	rb.Description = body.Description
	rb.Tags = body.Tags
	rb.EnvironmentID = body.EnvironmentID
	rb.Blocks = body.Blocks
	rb.Version = len(s.versions[rb.ID]) + 1
	rb.UpdatedAt = now()
	s.versions[rb.ID] = append(s.versions[rb.ID], snapshot(rb))
	s.logAction(userFromContext(req.Context()), "update_runbook", rb.ID, map[string]any{"new_version": rb.Version})
	writeJSON(w, http.StatusOK, rb)
}

func (s *Server) handleDeleteRunbook(w http.ResponseWriter, req *http.Request) {
	id := urlParam(req, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runbooks[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Runbook not found")
		return
	}
	delete(s.runbooks, id)
	delete(s.versions, id)
	s.runbookOrder = slices.DeleteFunc(s.runbookOrder, func(v string) bool { return v == id })
	s.logAction(userFromContext(req.Context()), "delete_runbook", id, nil)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleExecuteRunbook(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rb, ok := s.runbooks[urlParam(req, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Runbook not found")
		return
	}
	exec := api.Execution{
		ID:           uuid.NewString(),
		RunbookID:    rb.ID,
		RunbookTitle: rb.Title,
		Status:       constants.ExecutionPending,
		StartTime:    now(),
	}
	s.storeExecution(&executionState{execution: exec})
	writeJSON(w, http.StatusAccepted, api.ExecuteRunbookResponse{JobID: exec.ID})
}

func (s *Server) handleListVersions(w http.ResponseWriter, req *http.Request) {
	id := urlParam(req, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runbooks[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Runbook not found")
		return
	}
	out := slices.Clone(s.versions[id])
	if out == nil {
		out = []api.Runbook{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRollback(w http.ResponseWriter, req *http.Request) {
	id := urlParam(req, "id")
	version, err := strconv.Atoi(urlParam(req, "version"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, api.ErrorResponse{Detail: []validationItem{
			{Loc: []string{"path", "version_number"}, Msg: "Input should be a valid integer", Type: "int_parsing"},
		}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rb, ok := s.runbooks[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Runbook not found")
		return
	}
	idx := slices.IndexFunc(s.versions[id], func(v api.Runbook) bool { return v.Version == version })
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Version not found")
		return
	}
	rb.Blocks = api.CloneBlocks(s.versions[id][idx].Blocks)
	rb.Version = len(s.versions[id]) + 1
	rb.UpdatedAt = now()
	s.versions[id] = append(s.versions[id], snapshot(rb))
	writeJSON(w, http.StatusOK, rb)
}

func (s *Server) handleExecuteBlock(w http.ResponseWriter, req *http.Request) {
	var body api.ExecuteBlockRequest
	if !decodeRequestBody(w, req, &body) {
		return
	}
	s.mu.Lock()
	handler := s.blockHandler
	s.mu.Unlock()
	if handler == nil {
		handler = defaultBlockHandler
	}
	status, resp := handler(body)
	writeJSON(w, status, resp)
}

func defaultBlockHandler(req api.ExecuteBlockRequest) (int, any) {
	zero := 0
	switch req.Block.Type {
	case api.BlockCommand:
		return http.StatusOK, api.BlockExecutionResult{Status: constants.ExecutionSuccess, ExitCode: &zero}
	case api.BlockInstruction:
		return http.StatusOK, api.BlockExecutionResult{Status: constants.ExecutionSuccess, Output: "Instruction viewed.", ExitCode: &zero}
	default:
		return http.StatusBadRequest, api.ErrorResponse{
			Detail: fmt.Sprintf("Block type '%s' cannot be executed.", req.Block.Type),
		}
	}
}

func (s *Server) handleListExecutions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Execution, 0, len(s.execOrder))
	for _, id := range s.execOrder {
		out = append(out, s.executions[id].execution)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetExecution(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.executions[urlParam(req, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Execution job not found")
		return
	}
	if len(st.pending) > 0 {
		st.execution.Status = st.pending[0]
		st.pending = st.pending[1:]
	}
	steps := st.steps
	if steps == nil {
		steps = []api.ExecutionStep{}
	}
	writeJSON(w, http.StatusOK, api.ExecutionDetail{
		JobID:  st.execution.ID,
		Status: st.execution.Status,
		Steps:  steps,
	})
}

func (s *Server) handleClearExecutions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions = make(map[string]*executionState)
	s.execOrder = nil
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleControlExecution(w http.ResponseWriter, req *http.Request) {
	var body api.ExecutionControlRequest
	if !decodeRequestBody(w, req, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.executions[urlParam(req, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Execution job not found")
		return
	}
	if body.Action != constants.StopAction {
		writeJSON(w, http.StatusAccepted, api.MessageResponse{Message: "Action not yet implemented."})
		return
	}
	switch st.execution.Status {
	case constants.ExecutionRunning, constants.ExecutionPending:
		st.execution.Status = constants.ExecutionFailed
		st.pending = nil
		writeJSON(w, http.StatusAccepted, api.MessageResponse{Message: "Job stop request accepted."})
	default:
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Cannot stop a job in '%s' state.", st.execution.Status))
	}
}

func (s *Server) handleListCredentials(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.credentials)
	if out == nil {
		out = []api.Credential{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCredential(w http.ResponseWriter, req *http.Request) {
	var body api.CreateCredentialRequest
	if !decodeRequestBody(w, req, &body) {
		return
	}
	if body.Type != api.CredentialAPI && body.Type != api.CredentialSSH {
		writeValidation(w, "type", "Input should be 'ssh' or 'api'")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := userFromContext(req.Context())
	cred := api.Credential{
		ID:        uuid.NewString(),
		Name:      body.Name,
		Type:      body.Type,
		CreatedBy: u.id,
		CreatedAt: now(),
	}
	s.credentials = append(s.credentials, cred)
	s.logAction(u, "create_credential", cred.ID, nil)
	writeJSON(w, http.StatusCreated, cred)
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, req *http.Request) {
	id := urlParam(req, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.credentials, func(c api.Credential) bool { return c.ID == id })
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Credential not found")
		return
	}
	s.credentials = slices.Delete(s.credentials, idx, idx+1)
	s.logAction(userFromContext(req.Context()), "delete_credential", id, nil)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListEnvironments(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Environment, 0, len(s.envOrder))
	for _, id := range s.envOrder {
		out = append(out, *s.environments[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEnvironment(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.environments[urlParam(req, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Environment not found")
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleCreateEnvironment(w http.ResponseWriter, req *http.Request) {
	var body api.EnvironmentWriteRequest
	if !decodeRequestBody(w, req, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := userFromContext(req.Context())
	env := &api.Environment{
		ID:          uuid.NewString(),
		Name:        body.Name,
		Description: body.Description,
		Dockerfile:  body.Dockerfile,
		ImageTag:    "opsbook-env-" + body.Name + ":latest",
		CreatedBy:   u.id,
		CreatedAt:   now(),
	}
	s.storeEnvironment(env)
	s.logAction(u, "create_environment", env.ID, nil)
	writeJSON(w, http.StatusCreated, env)
}

func (s *Server) handleUpdateEnvironment(w http.ResponseWriter, req *http.Request) {
	var body api.EnvironmentWriteRequest
	if !decodeRequestBody(w, req, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.environments[urlParam(req, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Environment not found")
		return
	}
	env.Name = body.Name
	env.Description = body.Description
	env.Dockerfile = body.Dockerfile
	s.logAction(userFromContext(req.Context()), "update_environment", env.ID, nil)
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleDeleteEnvironment(w http.ResponseWriter, req *http.Request) {
	id := urlParam(req, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.environments[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Environment not found")
		return
	}
	delete(s.environments, id)
	s.envOrder = slices.DeleteFunc(s.envOrder, func(v string) bool { return v == id })
	s.logAction(userFromContext(req.Context()), "delete_environment", id, nil)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListAudit(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	limit := constants.DefaultAuditLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > constants.MaxAuditLimit {
			writeJSON(w, http.StatusUnprocessableEntity, api.ErrorResponse{Detail: []validationItem{
				{Loc: []string{"query", "limit"}, Msg: "Input should be between 1 and 1000", Type: "less_than_equal"},
			}})
			return
		}
		limit = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.AuditLogEntry{}
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.audit[i]
		if v := q.Get("user_id"); v != "" && e.UserID != v {
			continue
		}
		if v := q.Get("action"); v != "" && e.Action != v {
			continue
		}
		if v := q.Get("target_id"); v != "" && e.TargetID != v {
			continue
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}
