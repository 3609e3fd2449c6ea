// Package mocks provides mock implementations for testing the drill pipeline.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the port interfaces in internal/core. The mocks are generated using
// go:generate directives and provide a fluent API for setting up test
// expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockStore := mocks.NewMockJobStore(ctrl)
//	mockStore.EXPECT().GetByID(gomock.Any(), "job-1").Return(job, nil)
package mocks

// Generate mock for JobStore interface from internal/core package.
// This creates MockJobStore with methods for all JobStore interface methods:
// Create, GetByID, ClaimStage, CompleteStage, ScheduleRetry, FailStage, ReplaceAssets
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_store_mock.go github.com/townready/townready/internal/core JobStore

// Generate mock for BlobStore interface from internal/core package.
// This creates MockBlobStore with methods for all BlobStore interface methods:
// Put, Get
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=blob_store_mock.go github.com/townready/townready/internal/core BlobStore

// Generate mock for CacheRepository interface from internal/core package.
// This creates MockCacheRepository with methods for all CacheRepository interface methods:
// Set, Get, Delete, SetIfNotExists, Health
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/townready/townready/internal/core CacheRepository

// Generate mock for TaskPublisher interface from internal/core package.
// This creates MockTaskPublisher with methods for all TaskPublisher interface methods:
// Publish
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=task_publisher_mock.go github.com/townready/townready/internal/core TaskPublisher

// Generate mock for TextGenerator interface from internal/core package.
// This creates MockTextGenerator with methods for all TextGenerator interface methods:
// GenerateJSON, Enabled
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=text_generator_mock.go github.com/townready/townready/internal/core TextGenerator

// Generate mock for KPIRepository interface from internal/core package.
// This creates MockKPIRepository with methods for all KPIRepository interface methods:
// Insert, ListByJob
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=kpi_repository_mock.go github.com/townready/townready/internal/core KPIRepository

// Generate mock for RegionCatalog interface from internal/core package.
// This creates MockRegionCatalog with methods for all RegionCatalog interface methods:
// DeriveKey, Resolve
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=region_catalog_mock.go github.com/townready/townready/internal/core RegionCatalog
