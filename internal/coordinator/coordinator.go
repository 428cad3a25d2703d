// Package coordinator implements the Index Coordinator (C8): one job per
// file-id, driving internal/indexwriter's transactional write on its own
// goroutine and exposing throttled progress plus cancel. Grounded on the
// teacher's indexer.startReporting/printStatus ticker split (internal/indexer):
// here the ticker lives inside streamparse.Run's onProgress callback instead
// of a separate goroutine, since one throttle point is enough once indexing
// is already one job per file-id rather than one pipeline for the whole file.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dataexplorer/engine/internal/enginerr"
	"github.com/dataexplorer/engine/internal/indexwriter"
	"github.com/dataexplorer/engine/internal/reader"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/streamparse"
)

// State is a job's position in the idle -> indexing -> complete/cancelled/error
// state machine (spec §4.6).
type State string

const (
	StateIdle      State = "idle"
	StateIndexing  State = "indexing"
	StateComplete  State = "complete"
	StateCancelled State = "cancelled"
	StateError     State = "error"
)

// ErrAlreadyIndexing is returned by Start when a job for the same file-id is
// already in the indexing state.
var ErrAlreadyIndexing = errors.New("coordinator: file is already indexing")

// Status is a snapshot of one job's current state.
type Status struct {
	State    State
	Progress streamparse.Progress
	Result   indexwriter.Result
	Err      error
}

type job struct {
	mu     sync.Mutex
	state  State
	prog   streamparse.Progress
	result indexwriter.Result
	err    error
	cancel context.CancelFunc
}

func (j *job) snapshot() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Status{State: j.state, Progress: j.prog, Result: j.result, Err: j.err}
}

// Coordinator owns one job per file-id and serializes start/cancel against
// it. The underlying index write (artifact rollback on cancel or error) is
// entirely internal/indexwriter's responsibility; the coordinator only owns
// job lifecycle and notifies the Record Reader to drop stale cache entries
// once a job leaves the indexing state.
type Coordinator struct {
	idx  *searchindex.Index
	rdr  *reader.Reader
	log  zerolog.Logger
	mu   sync.Mutex
	jobs map[string]*job
}

// New constructs a Coordinator. rdr may be nil in tests that don't exercise
// cache invalidation.
func New(idx *searchindex.Index, rdr *reader.Reader, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		idx:  idx,
		rdr:  rdr,
		log:  log,
		jobs: make(map[string]*job),
	}
}

// Start launches indexing for req.FileID on its own goroutine, derived from
// parent. It returns ErrAlreadyIndexing if that file-id already has a job in
// the indexing state; a prior complete/cancelled/error job for the same id
// is replaced.
func (c *Coordinator) Start(parent context.Context, req indexwriter.Request) error {
	c.mu.Lock()
	if existing, ok := c.jobs[req.FileID]; ok {
		existing.mu.Lock()
		state := existing.state
		existing.mu.Unlock()
		if state == StateIndexing {
			c.mu.Unlock()
			return ErrAlreadyIndexing
		}
	}
	ctx, cancel := context.WithCancel(parent)
	j := &job{state: StateIndexing, cancel: cancel}
	c.jobs[req.FileID] = j
	c.mu.Unlock()

	if c.rdr != nil {
		c.rdr.Invalidate(req.FileID)
	}

	go c.run(ctx, req, j)
	return nil
}

func (c *Coordinator) run(ctx context.Context, req indexwriter.Request, j *job) {
	onProgress := func(p streamparse.Progress) {
		j.mu.Lock()
		j.prog = p
		j.mu.Unlock()
	}

	res, err := indexwriter.Write(ctx, c.idx, req, c.log, onProgress)

	j.mu.Lock()
	defer j.mu.Unlock()
	switch {
	case err == nil:
		j.state = StateComplete
		j.result = res
	case errors.Is(err, enginerr.ErrCancelled):
		j.state = StateCancelled
	default:
		j.state = StateError
		j.err = err
	}

	if c.rdr != nil {
		c.rdr.Invalidate(req.FileID)
	}
	c.log.Info().Str("file_id", req.FileID).Str("state", string(j.state)).Msg("indexing job finished")
}

// Cancel terminates the active job for fileID. It returns an error if no
// job was ever started for fileID, and is a no-op (not an error) if the job
// exists but is not currently indexing.
func (c *Coordinator) Cancel(fileID string) error {
	c.mu.Lock()
	j, ok := c.jobs[fileID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("coordinator: no job for %s", fileID)
	}
	j.mu.Lock()
	indexing := j.state == StateIndexing
	cancelFn := j.cancel
	j.mu.Unlock()
	if indexing && cancelFn != nil {
		cancelFn()
	}
	return nil
}

// Status returns the current state/progress/result for fileID.
func (c *Coordinator) Status(fileID string) (Status, bool) {
	c.mu.Lock()
	j, ok := c.jobs[fileID]
	c.mu.Unlock()
	if !ok {
		return Status{State: StateIdle}, false
	}
	return j.snapshot(), true
}
