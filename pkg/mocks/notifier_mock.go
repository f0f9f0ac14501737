package mocks

import (
	"context"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of services.Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(ctx context.Context, event models.ChangeEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

// Events returns the events passed to Publish, in call order.
func (m *MockNotifier) Events() []models.ChangeEvent {
	var events []models.ChangeEvent

	for _, call := range m.Calls {
		if call.Method == "Publish" {
			events = append(events, call.Arguments.Get(1).(models.ChangeEvent))
		}
	}

	return events
}
