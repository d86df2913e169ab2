package cmd

import (
	"io"

	"github.com/opsbook/opsbook/internal/client/output"
)

// OutputInterface defines the interface for output operations to enable dependency injection and testing.
type OutputInterface interface {
	Infof(format string, a ...any)
	Errorf(format string, a ...any)
	Successf(format string, a ...any)
	Warningf(format string, a ...any)
	Header(text string)
	Table(headers []string, rows [][]string)
	Blank()
	Println(a ...any)
	Bold(text string) string
	Cyan(text string) string
	Gray(text string) string
	StatusBadge(status string) string
	KeyValue(key, value string)
	Prompt(prompt string) string
	PromptSecret(prompt string) string
	Confirm(prompt string) bool
	// Writer is where block renderings go.
	Writer() io.Writer
}

// outputWrapper wraps the global output package functions to implement OutputInterface.
type outputWrapper struct{}

// NewOutputWrapper creates a new output wrapper that implements OutputInterface.
func NewOutputWrapper() OutputInterface {
	return &outputWrapper{}
}

func (o *outputWrapper) Infof(format string, a ...any) {
	output.Infof(format, a...)
}

func (o *outputWrapper) Errorf(format string, a ...any) {
	output.Errorf(format, a...)
}

func (o *outputWrapper) Successf(format string, a ...any) {
	output.Successf(format, a...)
}

func (o *outputWrapper) Warningf(format string, a ...any) {
	output.Warningf(format, a...)
}

func (o *outputWrapper) Header(text string) {
	output.Header(text)
}

func (o *outputWrapper) Table(headers []string, rows [][]string) {
	output.Table(headers, rows)
}

func (o *outputWrapper) Blank() {
	output.Blank()
}

func (o *outputWrapper) Println(a ...any) {
	output.Println(a...)
}

func (o *outputWrapper) Bold(text string) string {
	return output.Bold(text)
}

func (o *outputWrapper) Cyan(text string) string {
	return output.Cyan(text)
}

func (o *outputWrapper) Gray(text string) string {
	return output.Gray(text)
}

func (o *outputWrapper) StatusBadge(status string) string {
	return output.StatusBadge(status)
}

func (o *outputWrapper) KeyValue(key, value string) {
	output.KeyValue(key, value)
}

func (o *outputWrapper) Prompt(prompt string) string {
	return output.Prompt(prompt)
}

func (o *outputWrapper) PromptSecret(prompt string) string {
	return output.PromptSecret(prompt)
}

func (o *outputWrapper) Confirm(prompt string) bool {
	return output.Confirm(prompt)
}

func (o *outputWrapper) Writer() io.Writer {
	return output.Stdout
}
