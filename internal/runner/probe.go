package runner

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/opsbook/opsbook/internal/api"
)

const probeName = "Condition check"

// Probe builds the block that checks a condition. Each call gets a fresh id.
func Probe(cond *api.ConditionConfig) (api.Block, error) {
	block := api.Block{ID: uuid.NewString(), Name: probeName}

	switch cond.Check() {
	case api.ConditionCommandExitCode:
		block.Type = api.BlockCommand
		block.Config = &api.CommandConfig{Command: cond.CheckCommand}
	case api.ConditionAPIStatusCode:
		block.Type = api.BlockAPI
		block.Config = &api.APIConfig{Method: http.MethodGet, URL: cond.CheckURL}
	case api.ConditionFileExists:
		block.Type = api.BlockCommand
		block.Config = &api.CommandConfig{Command: fmt.Sprintf("test -f '%s'", cond.FilePath)}
	case api.ConditionEnvVarEquals:
		block.Type = api.BlockCommand
		block.Config = &api.CommandConfig{Command: "echo $" + cond.EnvVarName}
	default:
		return api.Block{}, fmt.Errorf("unknown condition type %q", cond.ConditionType)
	}

	return block, nil
}

// judge decides whether the probe result satisfies the condition.
func judge(cond *api.ConditionConfig, result *api.BlockExecutionResult) (bool, string) {
	switch cond.Check() {
	case api.ConditionAPIStatusCode:
		status := result.StatusCode
		if status == nil {
			status = result.ExitCode
		}
		expected := cond.ExpectedStatus()
		return status != nil && *status == expected,
			fmt.Sprintf("API status code: %s (expected %d)", code(status), expected)
	case api.ConditionFileExists:
		exists := result.ExitCode != nil && *result.ExitCode == 0
		answer := "No"
		if exists {
			answer = "Yes"
		}
		return exists, "File exists check: " + answer
	case api.ConditionEnvVarEquals:
		actual := strings.TrimSpace(result.Output)
		return actual == cond.EnvVarValue,
			fmt.Sprintf("Env var value: '%s' (expected '%s')", actual, cond.EnvVarValue)
	default:
		expected := int(cond.ExpectedExitCode)
		return result.ExitCode != nil && *result.ExitCode == expected,
			fmt.Sprintf("Command exit code: %s (expected %d)", code(result.ExitCode), expected)
	}
}

func code(n *int) string {
	if n == nil {
		return "none"
	}
	return strconv.Itoa(*n)
}
