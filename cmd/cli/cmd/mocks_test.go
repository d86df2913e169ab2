package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opsbook/opsbook/internal/api"
)

// mockClientInterface is a manual mock for testing. Unset funcs return "not implemented".
type mockClientInterface struct {
	signupFunc              func(ctx context.Context, req api.SignupRequest) (*api.APIKeyResponse, error)
	loginFunc               func(ctx context.Context, req api.LoginRequest) (*api.APIKeyResponse, error)
	logoutFunc              func(ctx context.Context) error
	listRunbooksFunc        func(ctx context.Context) ([]api.Runbook, error)
	getRunbookFunc          func(ctx context.Context, id string) (*api.Runbook, error)
	createRunbookFunc       func(ctx context.Context, req api.RunbookWriteRequest) (*api.Runbook, error)
	updateRunbookFunc       func(ctx context.Context, id string, req api.RunbookWriteRequest) (*api.Runbook, error)
	deleteRunbookFunc       func(ctx context.Context, id string) error
	executeRunbookFunc      func(ctx context.Context, id string) (*api.ExecuteRunbookResponse, error)
	listRunbookVersionsFunc func(ctx context.Context, id string) ([]api.Runbook, error)
	rollbackRunbookFunc     func(ctx context.Context, id string, version int) (*api.Runbook, error)
	executeBlockFunc        func(ctx context.Context, req api.ExecuteBlockRequest) (*api.BlockExecutionResult, error)
	listExecutionsFunc      func(ctx context.Context) ([]api.Execution, error)
	getExecutionFunc        func(ctx context.Context, id string) (*api.ExecutionDetail, error)
	clearExecutionsFunc     func(ctx context.Context) error
	stopExecutionFunc       func(ctx context.Context, id string) (*api.MessageResponse, error)
	listCredentialsFunc     func(ctx context.Context) ([]api.Credential, error)
	createCredentialFunc    func(ctx context.Context, req api.CreateCredentialRequest) (*api.Credential, error)
	deleteCredentialFunc    func(ctx context.Context, id string) error
	listEnvironmentsFunc    func(ctx context.Context) ([]api.Environment, error)
	getEnvironmentFunc      func(ctx context.Context, id string) (*api.Environment, error)
	createEnvironmentFunc   func(ctx context.Context, req api.EnvironmentWriteRequest) (*api.Environment, error)
	updateEnvironmentFunc   func(ctx context.Context, id string, req api.EnvironmentWriteRequest) (*api.Environment, error)
	deleteEnvironmentFunc   func(ctx context.Context, id string) error
	listAuditLogsFunc       func(ctx context.Context, filter api.AuditFilter) ([]api.AuditLogEntry, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockClientInterface) Signup(ctx context.Context, req api.SignupRequest) (*api.APIKeyResponse, error) {
	if m.signupFunc != nil {
		return m.signupFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) Login(ctx context.Context, req api.LoginRequest) (*api.APIKeyResponse, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) Logout(ctx context.Context) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx)
	}
	return errNotImplemented
}

func (m *mockClientInterface) ListRunbooks(ctx context.Context) ([]api.Runbook, error) {
	if m.listRunbooksFunc != nil {
		return m.listRunbooksFunc(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) GetRunbook(ctx context.Context, id string) (*api.Runbook, error) {
	if m.getRunbookFunc != nil {
		return m.getRunbookFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) CreateRunbook(ctx context.Context, req api.RunbookWriteRequest) (*api.Runbook, error) {
	if m.createRunbookFunc != nil {
		return m.createRunbookFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) UpdateRunbook(
	ctx context.Context, id string, req api.RunbookWriteRequest,
) (*api.Runbook, error) {
	if m.updateRunbookFunc != nil {
		return m.updateRunbookFunc(ctx, id, req)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) DeleteRunbook(ctx context.Context, id string) error {
	if m.deleteRunbookFunc != nil {
		return m.deleteRunbookFunc(ctx, id)
	}
	return errNotImplemented
}

func (m *mockClientInterface) ExecuteRunbook(ctx context.Context, id string) (*api.ExecuteRunbookResponse, error) {
	if m.executeRunbookFunc != nil {
		return m.executeRunbookFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) ListRunbookVersions(ctx context.Context, id string) ([]api.Runbook, error) {
	if m.listRunbookVersionsFunc != nil {
		return m.listRunbookVersionsFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) RollbackRunbook(ctx context.Context, id string, version int) (*api.Runbook, error) {
	if m.rollbackRunbookFunc != nil {
		return m.rollbackRunbookFunc(ctx, id, version)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) ExecuteBlock(
	ctx context.Context, req api.ExecuteBlockRequest,
) (*api.BlockExecutionResult, error) {
	if m.executeBlockFunc != nil {
		return m.executeBlockFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) ListExecutions(ctx context.Context) ([]api.Execution, error) {
	if m.listExecutionsFunc != nil {
		return m.listExecutionsFunc(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) GetExecution(ctx context.Context, id string) (*api.ExecutionDetail, error) {
	if m.getExecutionFunc != nil {
		return m.getExecutionFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) ClearExecutions(ctx context.Context) error {
	if m.clearExecutionsFunc != nil {
		return m.clearExecutionsFunc(ctx)
	}
	return errNotImplemented
}

func (m *mockClientInterface) StopExecution(ctx context.Context, id string) (*api.MessageResponse, error) {
	if m.stopExecutionFunc != nil {
		return m.stopExecutionFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) ListCredentials(ctx context.Context) ([]api.Credential, error) {
	if m.listCredentialsFunc != nil {
		return m.listCredentialsFunc(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) CreateCredential(
	ctx context.Context, req api.CreateCredentialRequest,
) (*api.Credential, error) {
	if m.createCredentialFunc != nil {
		return m.createCredentialFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) DeleteCredential(ctx context.Context, id string) error {
	if m.deleteCredentialFunc != nil {
		return m.deleteCredentialFunc(ctx, id)
	}
	return errNotImplemented
}

func (m *mockClientInterface) ListEnvironments(ctx context.Context) ([]api.Environment, error) {
	if m.listEnvironmentsFunc != nil {
		return m.listEnvironmentsFunc(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) GetEnvironment(ctx context.Context, id string) (*api.Environment, error) {
	if m.getEnvironmentFunc != nil {
		return m.getEnvironmentFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) CreateEnvironment(
	ctx context.Context, req api.EnvironmentWriteRequest,
) (*api.Environment, error) {
	if m.createEnvironmentFunc != nil {
		return m.createEnvironmentFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) UpdateEnvironment(
	ctx context.Context, id string, req api.EnvironmentWriteRequest,
) (*api.Environment, error) {
	if m.updateEnvironmentFunc != nil {
		return m.updateEnvironmentFunc(ctx, id, req)
	}
	return nil, errNotImplemented
}

func (m *mockClientInterface) DeleteEnvironment(ctx context.Context, id string) error {
	if m.deleteEnvironmentFunc != nil {
		return m.deleteEnvironmentFunc(ctx, id)
	}
	return errNotImplemented
}

func (m *mockClientInterface) ListAuditLogs(ctx context.Context, filter api.AuditFilter) ([]api.AuditLogEntry, error) {
	if m.listAuditLogsFunc != nil {
		return m.listAuditLogsFunc(ctx, filter)
	}
	return nil, errNotImplemented
}

// mockOutputInterface is a manual mock for testing. Prompts answer from the
// queued responses in order; Confirm answers confirmAll when none are queued.
type mockOutputInterface struct {
	calls      []call
	prompts    []string
	confirms   []bool
	confirmAll bool
	out        bytes.Buffer
}

type call struct {
	method string
	args   []any
}

func (m *mockOutputInterface) record(method string, args ...any) {
	m.calls = append(m.calls, call{method: method, args: args})
}

func (m *mockOutputInterface) Infof(format string, a ...any) {
	m.record("Infof", format, a)
}
func (m *mockOutputInterface) Errorf(format string, a ...any) {
	m.record("Errorf", format, a)
}
func (m *mockOutputInterface) Successf(format string, a ...any) {
	m.record("Successf", format, a)
}
func (m *mockOutputInterface) Warningf(format string, a ...any) {
	m.record("Warningf", format, a)
}
func (m *mockOutputInterface) Header(text string) {
	m.record("Header", text)
}
func (m *mockOutputInterface) Table(headers []string, rows [][]string) {
	m.record("Table", headers, rows)
}
func (m *mockOutputInterface) Blank() {
	m.record("Blank")
}
func (m *mockOutputInterface) Println(a ...any) {
	m.record("Println", a...)
	_, _ = fmt.Fprintln(&m.out, a...)
}
func (m *mockOutputInterface) Bold(text string) string {
	return text
}
func (m *mockOutputInterface) Cyan(text string) string {
	return text
}
func (m *mockOutputInterface) Gray(text string) string {
	return text
}
func (m *mockOutputInterface) StatusBadge(status string) string {
	return status
}
func (m *mockOutputInterface) KeyValue(key, value string) {
	m.record("KeyValue", key, value)
}
func (m *mockOutputInterface) Prompt(prompt string) string {
	m.record("Prompt", prompt)
	return m.nextPrompt()
}
func (m *mockOutputInterface) PromptSecret(prompt string) string {
	m.record("PromptSecret", prompt)
	return m.nextPrompt()
}
func (m *mockOutputInterface) Confirm(prompt string) bool {
	m.record("Confirm", prompt)
	if len(m.confirms) == 0 {
		return m.confirmAll
	}
	answer := m.confirms[0]
	m.confirms = m.confirms[1:]
	return answer
}
func (m *mockOutputInterface) Writer() io.Writer {
	return &m.out
}

func (m *mockOutputInterface) nextPrompt() string {
	if len(m.prompts) == 0 {
		return ""
	}
	answer := m.prompts[0]
	m.prompts = m.prompts[1:]
	return answer
}

// messages returns the formatted text of every call to method.
func (m *mockOutputInterface) messages(method string) []string {
	var out []string
	for _, c := range m.calls {
		if c.method != method || len(c.args) != 2 {
			continue
		}
		format, _ := c.args[0].(string)
		args, _ := c.args[1].([]any)
		out = append(out, fmt.Sprintf(format, args...))
	}
	return out
}

// hasMessage reports whether a call to method printed text containing substr.
func (m *mockOutputInterface) hasMessage(method, substr string) bool {
	for _, msg := range m.messages(method) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// keyValue returns the value printed for key by the last KeyValue call.
func (m *mockOutputInterface) keyValue(key string) (string, bool) {
	value, found := "", false
	for _, c := range m.calls {
		if c.method == "KeyValue" && c.args[0] == key {
			value, found = c.args[1].(string), true
		}
	}
	return value, found
}

// table returns the arguments of the first Table call.
func (m *mockOutputInterface) table() ([]string, [][]string, bool) {
	for _, c := range m.calls {
		if c.method == "Table" {
			return c.args[0].([]string), c.args[1].([][]string), true
		}
	}
	return nil, nil, false
}

func (m *mockOutputInterface) count(method string) int {
	n := 0
	for _, c := range m.calls {
		if c.method == method {
			n++
		}
	}
	return n
}
