package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockGateway: конфигурируемая заглушка PaymentGateway для тестов и локального запуска.
type MockGateway struct {
	mu sync.Mutex

	AuthorizeErr error
	CaptureErr   error
	VoidErr      error
	// Code фиксирует код авторизации; пустое значение: коды вида AUTH-<n>.
	Code string

	AuthorizeCalls int
	CaptureCalls   int
	VoidCalls      int

	Captured []string
	Voided   []string
	Requests []domain.PaymentRequest
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Authorize возвращает настроенный результат и запоминает запрос.
func (m *MockGateway) Authorize(ctx context.Context, req domain.PaymentRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AuthorizeCalls++
	m.Requests = append(m.Requests, req)
	if m.AuthorizeErr != nil {
		return "", m.AuthorizeErr
	}
	if m.Code != "" {
		return m.Code, nil
	}
	return fmt.Sprintf("AUTH-%d", m.AuthorizeCalls), nil
}

// Capture считает вызовы и запоминает код.
func (m *MockGateway) Capture(ctx context.Context, authorizationCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CaptureCalls++
	if m.CaptureErr != nil {
		return m.CaptureErr
	}
	m.Captured = append(m.Captured, authorizationCode)
	return nil
}

// Void считает вызовы и запоминает код.
func (m *MockGateway) Void(ctx context.Context, authorizationCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.VoidCalls++
	if m.VoidErr != nil {
		return m.VoidErr
	}
	m.Voided = append(m.Voided, authorizationCode)
	return nil
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
