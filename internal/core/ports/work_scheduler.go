package ports

import "go.trai.ch/keel/internal/core/domain"

// WorkScheduler is the execution-side collaborator of the state cache. The
// writer reads the scheduled work through it; the reader replays project
// materialization and node scheduling through it in stream order.
//
//go:generate go run go.uber.org/mock/mockgen -source=work_scheduler.go -destination=mocks/mock_work_scheduler.go -package=mocks
type WorkScheduler interface {
	// ScheduledWork returns the ordered node sequence scheduled for the build.
	ScheduledWork(b *domain.Build) []*domain.WorkNode

	// ScheduleNodes schedules decoded nodes for execution.
	ScheduleNodes(b *domain.Build, nodes []*domain.WorkNode) error

	// CreateProject materializes a project. Triples arrive in an order that
	// guarantees every parent exists before its children.
	CreateProject(b *domain.Build, path, dir, buildDir string) *domain.Project

	// RegisterProjects finalizes project registration for the build.
	RegisterProjects(b *domain.Build)

	// PrepareForTaskExecution is called once the whole state has been restored.
	PrepareForTaskExecution(b *domain.Build)
}
