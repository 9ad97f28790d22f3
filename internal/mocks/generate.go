// Package mocks provides mock implementations for testing the pushforge job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/pushforge/pushforge/internal/core JobRepository

// Generate mock for CreditLedger interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=credit_ledger_mock.go github.com/pushforge/pushforge/internal/core CreditLedger

// Generate mock for RateLimiter interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=rate_limiter_mock.go github.com/pushforge/pushforge/internal/core RateLimiter

// Generate mock for SafetyRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=safety_repository_mock.go github.com/pushforge/pushforge/internal/core SafetyRepository

// Generate mock for Executor interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=executor_mock.go github.com/pushforge/pushforge/internal/core Executor
