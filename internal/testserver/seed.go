package testserver

import (
	"github.com/google/uuid"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/constants"
)

// AddUser registers an account and returns its API key.
func (s *Server) AddUser(username, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{id: uuid.NewString(), password: password, apiKey: newAPIKey(), role: api.RoleSRE}
	s.users[username] = u
	return u.apiKey
}

// PutRunbook stores a runbook as-is, recording it as its latest version.
func (s *Server) PutRunbook(rb *api.Runbook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := snapshot(rb)
	if cp.Version == 0 {
		cp.Version = 1
	}
	s.storeRunbook(&cp)
}

// Runbook returns a copy of a stored runbook.
func (s *Server) Runbook(id string) (api.Runbook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rb, ok := s.runbooks[id]
	if !ok {
		return api.Runbook{}, false
	}
	return snapshot(rb), true
}

// PutExecution stores an execution job with its steps.
// Each later GET of the job advances its status through statuses in order,
// keeping the last one.
func (s *Server) PutExecution(exec api.Execution, steps []api.ExecutionStep, statuses ...constants.ExecutionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeExecution(&executionState{execution: exec, steps: steps, pending: statuses})
}

// Execution returns the current state of a job.
func (s *Server) Execution(id string) (api.Execution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.executions[id]
	if !ok {
		return api.Execution{}, false
	}
	return st.execution, true
}

// PutCredential stores a credential.
func (s *Server) PutCredential(cred api.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = append(s.credentials, cred)
}

// PutEnvironment stores an environment.
func (s *Server) PutEnvironment(env api.Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeEnvironment(&env)
}

// PutAuditEntry appends an audit log entry.
func (s *Server) PutAuditEntry(entry api.AuditLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
}

func (s *Server) storeRunbook(rb *api.Runbook) {
	if _, exists := s.runbooks[rb.ID]; !exists {
		s.runbookOrder = append(s.runbookOrder, rb.ID)
	}
	s.runbooks[rb.ID] = rb
	s.versions[rb.ID] = append(s.versions[rb.ID], snapshot(rb))
}

func (s *Server) storeExecution(st *executionState) {
	if _, exists := s.executions[st.execution.ID]; !exists {
		s.execOrder = append(s.execOrder, st.execution.ID)
	}
	s.executions[st.execution.ID] = st
}

func (s *Server) storeEnvironment(env *api.Environment) {
	if _, exists := s.environments[env.ID]; !exists {
		s.envOrder = append(s.envOrder, env.ID)
	}
	s.environments[env.ID] = env
}

func snapshot(rb *api.Runbook) api.Runbook {
	cp := *rb
	cp.Tags = append([]string(nil), rb.Tags...)
	cp.Blocks = api.CloneBlocks(rb.Blocks)
	return cp
}
