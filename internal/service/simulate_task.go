package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stock-insurance-backend/internal/metrics"
	"stock-insurance-backend/internal/model"
)

const (
	defaultMaxTasks = 3
	defaultTaskTTL  = 30 * time.Minute
	canceledMessage = "task canceled"
)

type simulationTask struct {
	id        string
	requestID string
	ticker    string
	status    string
	done      int
	total     int
	result    *model.SimulationResponse
	err       string
	cancel    context.CancelFunc
	createdAt time.Time
	expiresAt time.Time
}

type taskRegistry struct {
	mu         sync.Mutex
	tasks      map[string]*simulationTask
	requestIDs map[string]string
	sem        chan struct{}
	ttl        time.Duration
	now        func() time.Time
}

func newTaskRegistry(maxConcurrent int, ttl time.Duration) *taskRegistry {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxTasks
	}
	if ttl <= 0 {
		ttl = defaultTaskTTL
	}
	return &taskRegistry{
		tasks:      make(map[string]*simulationTask),
		requestIDs: make(map[string]string),
		sem:        make(chan struct{}, maxConcurrent),
		ttl:        ttl,
		now:        time.Now,
	}
}

// CreateSimulationTask starts req in the background. A request id seen
// before returns the live task instead of starting a new one; the bool
// reports whether a task was created.
func (s *SimulationService) CreateSimulationTask(req model.SimulationRequest) (model.SimulationTaskStatus, bool, error) {
	cfg, err := s.ResolveConfig(req)
	if err != nil {
		return model.SimulationTaskStatus{}, false, err
	}

	r := s.tasks
	requestID := strings.TrimSpace(req.RequestID)
	now := r.now()

	r.mu.Lock()
	r.cleanupExpiredLocked(now)
	if requestID != "" {
		if existingID, ok := r.requestIDs[requestID]; ok {
			if t, ok := r.tasks[existingID]; ok {
				out := buildTaskStatus(t)
				r.mu.Unlock()
				return out, false, nil
			}
			delete(r.requestIDs, requestID)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &simulationTask{
		id:        uuid.NewString(),
		requestID: requestID,
		ticker:    req.Ticker,
		status:    model.TaskPending,
		total:     cfg.NumPaths,
		cancel:    cancel,
		createdAt: now,
		expiresAt: now.Add(r.ttl),
	}
	r.tasks[t.id] = t
	if requestID != "" {
		r.requestIDs[requestID] = t.id
	}
	out := buildTaskStatus(t)
	r.mu.Unlock()

	go s.runTask(ctx, t, req)
	return out, true, nil
}

// GetSimulationTaskStatus returns the task state, or false once the task
// is unknown or expired.
func (s *SimulationService) GetSimulationTaskStatus(taskID string) (model.SimulationTaskStatus, bool) {
	r := s.tasks
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanupExpiredLocked(r.now())
	t, ok := r.tasks[taskID]
	if !ok {
		return model.SimulationTaskStatus{}, false
	}
	return buildTaskStatus(t), true
}

// CancelSimulationTask cancels a pending or running task. Finished tasks
// are returned unchanged.
func (s *SimulationService) CancelSimulationTask(taskID string) (model.SimulationTaskStatus, bool) {
	r := s.tasks
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanupExpiredLocked(r.now())
	t, ok := r.tasks[taskID]
	if !ok {
		return model.SimulationTaskStatus{}, false
	}

	switch t.status {
	case model.TaskDone, model.TaskFailed, model.TaskCanceled:
	default:
		t.status = model.TaskCanceled
		t.err = canceledMessage
		t.cancel()
		if t.requestID != "" {
			delete(r.requestIDs, t.requestID)
		}
		log.Infof("simulation task %s canceled", t.id)
	}
	return buildTaskStatus(t), true
}

func (s *SimulationService) runTask(ctx context.Context, t *simulationTask, req model.SimulationRequest) {
	r := s.tasks
	defer t.cancel()

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-r.sem }()

	r.mu.Lock()
	if t.status != model.TaskPending {
		r.mu.Unlock()
		return
	}
	t.status = model.TaskRunning
	r.mu.Unlock()

	metrics.RunningTasks.Inc()
	defer metrics.RunningTasks.Dec()

	resp, err := s.run(ctx, req, func(done, total int) {
		r.mu.Lock()
		if done > t.done {
			t.done = done
		}
		t.total = total
		r.mu.Unlock()
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if t.status == model.TaskCanceled {
		return
	}
	if t.requestID != "" {
		delete(r.requestIDs, t.requestID)
	}
	if err != nil {
		t.status = model.TaskFailed
		t.err = err.Error()
		log.WithError(err).Warnf("simulation task %s failed", t.id)
		return
	}
	t.status = model.TaskDone
	t.done = t.total
	t.result = resp
}

func (r *taskRegistry) cleanupExpiredLocked(now time.Time) {
	for id, t := range r.tasks {
		if now.After(t.expiresAt) {
			t.cancel()
			delete(r.tasks, id)
		}
	}
	for rid, tid := range r.requestIDs {
		if _, ok := r.tasks[tid]; !ok {
			delete(r.requestIDs, rid)
		}
	}
}

func buildTaskStatus(t *simulationTask) model.SimulationTaskStatus {
	out := model.SimulationTaskStatus{
		TaskID:    t.id,
		Status:    t.status,
		Ticker:    t.ticker,
		Done:      t.done,
		Total:     t.total,
		Error:     t.err,
		CreatedAt: t.createdAt,
		ExpiresAt: t.expiresAt,
	}
	if t.status == model.TaskDone {
		out.Result = t.result
	}
	return out
}
