package scheduler

import "sync"

// Status reports where a driven run stands.
type Status int

const (
	Pending Status = iota
	Finished
	Cancelled
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Finished:
		return "finished"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Completion is the handle returned by a policy. It settles exactly once.
type Completion struct {
	mu      sync.Mutex
	status  Status
	resumes int
	err     error
	done    *sync.Cond
	ch      chan struct{}
}

func NewCompletion() *Completion {
	c := &Completion{ch: make(chan struct{})}
	c.done = sync.NewCond(&c.mu)
	return c
}

func (c *Completion) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Resumes is the number of resumes issued so far.
func (c *Completion) Resumes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumes
}

// Await blocks until the run settles.
func (c *Completion) Await() (int, Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.status == Pending {
		c.done.Wait()
	}
	return c.resumes, c.status, c.err
}

// Done is closed once the run settles.
func (c *Completion) Done() <-chan struct{} { return c.ch }

func (c *Completion) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Completion) tick() {
	c.mu.Lock()
	c.resumes++
	c.mu.Unlock()
}

func (c *Completion) settle(status Status, err error) {
	c.mu.Lock()
	if c.status == Pending {
		c.status = status
		c.err = err
		close(c.ch)
		c.done.Broadcast()
	}
	c.mu.Unlock()
}

func (c *Completion) Resolve()        { c.settle(Finished, nil) }
func (c *Completion) Fail(err error)   { c.settle(Failed, err) }
func (c *Completion) Cancel(err error) { c.settle(Cancelled, err) }
