// Package scheduler implements the work-graph execution scheduler.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/keel/internal/core/ports"
	"go.trai.ch/keel/internal/execution"
	"go.trai.ch/zerr"
)

// NodeStatus represents the status of a scheduled work node.
type NodeStatus string

const (
	// StatusPending indicates the node is waiting to be executed.
	StatusPending NodeStatus = "Pending"
	// StatusRunning indicates the node is currently executing.
	StatusRunning NodeStatus = "Running"
	// StatusCompleted indicates the node has finished successfully.
	StatusCompleted NodeStatus = "Completed"
	// StatusFailed indicates the node execution failed.
	StatusFailed NodeStatus = "Failed"
	// StatusMemoized indicates the node was satisfied from the identity store.
	StatusMemoized NodeStatus = "Memoized"
)

var _ ports.WorkScheduler = (*Scheduler)(nil)

// Scheduler manages execution of scheduled work graphs. Every dispatch runs
// through the identity cache step, so identical units of work execute at most
// once per store lifetime even across builds of the tree.
type Scheduler struct {
	executor ports.Executor
	tracer   ports.Tracer
	step     *execution.CacheStep
	store    *execution.IdentityStore

	mu         sync.RWMutex
	nodeStatus map[*domain.WorkNode]NodeStatus
}

// NewScheduler creates a new Scheduler.
func NewScheduler(executor ports.Executor, tracer ports.Tracer) *Scheduler {
	return &Scheduler{
		executor:   executor,
		tracer:     tracer,
		step:       execution.NewCacheStep(),
		store:      execution.NewIdentityStore(),
		nodeStatus: make(map[*domain.WorkNode]NodeStatus),
	}
}

// ScheduledWork returns the ordered node sequence scheduled for the build.
func (s *Scheduler) ScheduledWork(b *domain.Build) []*domain.WorkNode {
	return b.Nodes
}

// ScheduleNodes schedules decoded nodes for execution after validating the
// graph and checking that every referenced project is materialized.
func (s *Scheduler) ScheduleNodes(b *domain.Build, nodes []*domain.WorkNode) error {
	if err := domain.ValidateWorkGraph(nodes); err != nil {
		return err
	}
	for _, node := range nodes {
		if _, err := b.ProjectByPath(node.ProjectPath.String()); err != nil {
			return err
		}
	}
	b.Nodes = nodes
	return nil
}

// CreateProject materializes a project in the build.
func (s *Scheduler) CreateProject(b *domain.Build, path, dir, buildDir string) *domain.Project {
	return b.CreateProject(path, dir, buildDir)
}

// RegisterProjects finalizes project registration for the build.
func (s *Scheduler) RegisterProjects(b *domain.Build) {
	b.FinalizeProjects()
}

// PrepareForTaskExecution marks all scheduled nodes pending.
func (s *Scheduler) PrepareForTaskExecution(b *domain.Build) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, node := range b.Nodes {
		s.nodeStatus[node] = StatusPending
	}
}

// Reset discards memoized outcomes and node statuses. Watch mode calls this
// between runs so changed inputs re-execute instead of replaying cached
// outcomes. Must not be called while Run is in flight.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = execution.NewIdentityStore()
	s.nodeStatus = make(map[*domain.WorkNode]NodeStatus)
}

// Status returns the current status of a node.
func (s *Scheduler) Status(node *domain.WorkNode) NodeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodeStatus[node]
}

func (s *Scheduler) updateStatus(node *domain.WorkNode, status NodeStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeStatus[node] = status
}

// Run executes the build's scheduled nodes with the specified parallelism.
func (s *Scheduler) Run(ctx context.Context, b *domain.Build, parallelism int) error {
	if parallelism < 1 {
		parallelism = 1
	}

	ctx, span := s.tracer.Start(ctx, "scheduler.run")
	defer span.End()
	span.SetAttribute("nodes", len(b.Nodes))

	state := s.newRunState(ctx, b, parallelism)

	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			return errors.Join(state.errs, state.ctx.Err())
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}
	if state.errs != nil {
		span.RecordError(state.errs)
	}
	return state.errs
}

type result struct {
	node *domain.WorkNode
	err  error
}

type runState struct {
	inDegree    map[*domain.WorkNode]int
	dependents  map[*domain.WorkNode][]*domain.WorkNode
	ready       []*domain.WorkNode
	active      int
	resultsCh   chan result
	errs        error
	ctx         context.Context
	parallelism int
	s           *Scheduler
}

func (s *Scheduler) newRunState(ctx context.Context, b *domain.Build, parallelism int) *runState {
	inDegree := make(map[*domain.WorkNode]int, len(b.Nodes))
	dependents := make(map[*domain.WorkNode][]*domain.WorkNode, len(b.Nodes))

	for _, node := range b.Nodes {
		inDegree[node] = len(node.Dependencies)
		for _, dep := range node.Dependencies {
			dependents[dep] = append(dependents[dep], node)
		}
	}

	var ready []*domain.WorkNode
	for _, node := range b.Nodes {
		if inDegree[node] == 0 {
			ready = append(ready, node)
		}
	}

	return &runState{
		inDegree:    inDegree,
		dependents:  dependents,
		ready:       ready,
		resultsCh:   make(chan result, parallelism),
		ctx:         ctx,
		parallelism: parallelism,
		s:           s,
	}
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		node := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(node, StatusRunning)

		go func(n *domain.WorkNode) {
			state.resultsCh <- result{node: n, err: state.s.executeNode(state.ctx, n)}
		}(node)
	}
}

// executeNode dispatches the node through the identity cache step. A cached
// outcome satisfies the node without re-executing; a miss computes exactly
// once per identity and caches the outcome, failures included.
func (s *Scheduler) executeNode(ctx context.Context, node *domain.WorkNode) error {
	ctx, span := s.tracer.Start(ctx, "node."+node.TaskName.String())
	defer span.End()

	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	proc := &dispatchProcessor{scheduler: s, node: node}
	out := s.step.ExecuteDeferred(ctx, &nodeWork{node: node, executor: s.executor}, store, proc).(execution.Outcome)
	if err := out.Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// nodeWork adapts a work node to the execution.UnitOfWork contract.
type nodeWork struct {
	node     *domain.WorkNode
	executor ports.Executor
}

func (w *nodeWork) Identity() domain.Identity {
	return domain.IdentityFor(w.node)
}

func (w *nodeWork) Execute(ctx context.Context) (any, error) {
	return w.executor.Execute(ctx, w.node)
}

// dispatchProcessor maps the cache step's continuations onto node status.
type dispatchProcessor struct {
	scheduler *Scheduler
	node      *domain.WorkNode
}

func (p *dispatchProcessor) ProcessCachedOutput(out execution.Outcome) any {
	p.scheduler.updateStatus(p.node, StatusMemoized)
	return out
}

func (p *dispatchProcessor) ProcessDeferredOutput(supplier func() execution.Outcome) any {
	return supplier()
}

func (state *runState) handleResult(res result) {
	state.active--
	if res.err != nil {
		wrappedErr := zerr.With(zerr.Wrap(res.err, "work execution failed"), "task", res.node.TaskName.String())
		state.errs = errors.Join(state.errs, wrappedErr)
		state.s.updateStatus(res.node, StatusFailed)
		return
	}

	if state.s.Status(res.node) != StatusMemoized {
		state.s.updateStatus(res.node, StatusCompleted)
	}
	for _, dep := range state.dependents[res.node] {
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}
