package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tech-arch1tect/gymportal/services/mail"
)

type MockMailService struct {
	mock.Mock
}

func (m *MockMailService) SendPortalPIN(ctx context.Context, msg mail.PortalPIN) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// LastPIN returns the plaintext PIN of the most recent SendPortalPIN call.
func (m *MockMailService) LastPIN() string {
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == "SendPortalPIN" {
			return m.Calls[i].Arguments.Get(1).(mail.PortalPIN).PIN
		}
	}
	return ""
}
