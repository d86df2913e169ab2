package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsbook/opsbook/internal/client/output"
)

func TestNewOutputWrapper(t *testing.T) {
	wrapper := NewOutputWrapper()
	assert.NotNil(t, wrapper)
}

func TestOutputWrapperImplementsInterface(_ *testing.T) {
	var _ OutputInterface = &outputWrapper{}
	_ = NewOutputWrapper()
}

func TestOutputWrapper_Bold(t *testing.T) {
	wrapper := NewOutputWrapper()
	assert.Contains(t, wrapper.Bold("test"), "test")
}

func TestOutputWrapper_Cyan(t *testing.T) {
	wrapper := NewOutputWrapper()
	assert.Contains(t, wrapper.Cyan("test"), "test")
}

func TestOutputWrapper_StatusBadge(t *testing.T) {
	wrapper := NewOutputWrapper()
	assert.Contains(t, wrapper.StatusBadge("running"), "running")
}

func TestOutputWrapper_Writer(t *testing.T) {
	wrapper := NewOutputWrapper()
	assert.Equal(t, output.Stdout, wrapper.Writer())
}
