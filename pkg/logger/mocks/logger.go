// Package mocks contains testify mocks for the logger package.
package mocks

import (
	"github.com/stretchr/testify/mock"
	"github.com/strongdm/hoptoad-notifier/pkg/logger"
)

var _ logger.Logger = (*Logger)(nil)

// Logger is a mock logger.Logger.
type Logger struct {
	mock.Mock
}

func (m *Logger) Debug(msg string) {
	m.Called(msg)
}

func (m *Logger) Info(msg string) {
	m.Called(msg)
}

func (m *Logger) Warn(msg string) {
	m.Called(msg)
}

func (m *Logger) Error(msg string) {
	m.Called(msg)
}
