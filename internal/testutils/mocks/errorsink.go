package mocks

import "github.com/stretchr/testify/mock"

// ErrorSink is a mock error registry.
type ErrorSink struct {
	mock.Mock
}

func (m *ErrorSink) PutError(category string, err error) {
	m.Called(category, err)
}
