package deconv

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DispatcherBuilder builds a Dispatcher.
type DispatcherBuilder struct {
	numWorkers int
	logger     *slog.Logger
}

// WithNumWorkers limits the number of requests that run at once. Zero or
// less starts one goroutine per request.
func (b DispatcherBuilder) WithNumWorkers(n int) DispatcherBuilder {
	b.numWorkers = n
	return b
}

// WithLogger sets the logger.
func (b DispatcherBuilder) WithLogger(l *slog.Logger) DispatcherBuilder {
	b.logger = l
	return b
}

// Build starts the dispatcher.
func (b DispatcherBuilder) Build(svc Service) *Dispatcher {
	d := &Dispatcher{
		svc:    svc,
		logger: b.logger,
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	if b.numWorkers > 0 {
		d.jobs = make(chan job)
		for i := 0; i < b.numWorkers; i++ {
			d.wg.Add(1)
			go d.worker(i)
		}
	}

	return d
}

type job struct {
	ctx  context.Context
	task *Task
	run  func(ctx context.Context) error
}

// A Dispatcher runs deconvolution requests concurrently.
type Dispatcher struct {
	svc     Service
	logger  *slog.Logger
	jobs    chan job
	wg      sync.WaitGroup
	pending sync.WaitGroup
	closed  bool
}

// Service returns the service requests are sent to.
func (d *Dispatcher) Service() Service {
	return d.svc
}

// Analog submits an analog request. The result is handed to store before
// the task finishes.
func (d *Dispatcher) Analog(
	ctx context.Context,
	req AnalogRequest,
	store func([]int),
) *Task {
	return d.submit(ctx, func(ctx context.Context) error {
		out, err := d.svc.DeconvolveAnalog(ctx, req)
		if err != nil {
			return fmt.Errorf("deconvolving %s dac %s: %w", req.Board, req.Dac, err)
		}

		store(out)

		return nil
	})
}

// Iq submits a microwave request. The result is handed to store before the
// task finishes.
func (d *Dispatcher) Iq(
	ctx context.Context,
	req IqRequest,
	store func(IqResult),
) *Task {
	return d.submit(ctx, func(ctx context.Context) error {
		out, err := d.svc.DeconvolveIq(ctx, req)
		if err != nil {
			return fmt.Errorf("deconvolving %s at %g GHz: %w", req.Board, req.FrequencyGHz, err)
		}

		store(out)

		return nil
	})
}

func (d *Dispatcher) submit(ctx context.Context, run func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := newTask(cancel)

	if d.jobs == nil {
		go func() {
			t.finish(d.execute(ctx, run))
			cancel()
		}()

		return t
	}

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()

		select {
		case d.jobs <- job{ctx: ctx, task: t, run: run}:
		case <-ctx.Done():
			t.finish(ctx.Err())
		}
	}()

	return t
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for j := range d.jobs {
		d.logger.Debug("deconvolution request", "worker", id)
		j.task.finish(d.execute(j.ctx, j.run))
		j.task.cancel()
	}
}

func (d *Dispatcher) execute(ctx context.Context, run func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("deconvolution request panicked", "panic", r)
			err = fmt.Errorf("deconvolution request panicked: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	return run(ctx)
}

// Close stops the workers once queued requests are done. Requests must not
// be submitted after Close.
func (d *Dispatcher) Close() {
	if d.jobs == nil || d.closed {
		return
	}

	d.closed = true
	d.pending.Wait()
	close(d.jobs)
	d.wg.Wait()
}
