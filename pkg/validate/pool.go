package validate

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/webtest/pkg/config"
	"github.com/Sriram-PR/webtest/pkg/fetch"
)

// Pool runs one Worker per enabled service
type Pool struct {
	workers map[Kind]*Worker
	group   *errgroup.Group
	results map[Kind][]Result
	mu      sync.Mutex
	started bool
	log     *logrus.Entry
}

// NewPool creates an empty pool
func NewPool(log *logrus.Entry) *Pool {
	return &Pool{
		workers: make(map[Kind]*Worker),
		results: make(map[Kind][]Result),
		log:     log,
	}
}

// NewPoolFromConfig creates a pool with a worker for every validator enabled in cfg
func NewPoolFromConfig(cfg *config.AppConfig, fetcher *fetch.Fetcher, log *logrus.Entry) *Pool {
	p := NewPool(log)
	v := cfg.Validators
	add := func(kind Kind, service Service) {
		p.Add(kind, NewWorker(service, v.QueueCapacity, cfg.MaxAttempts, v.RequestDelay, log))
	}
	if v.HTML {
		add(KindHTML, NewHTMLService(fetcher, v.HTMLEndpoint, cfg.UserAgent))
	}
	if v.CSS {
		add(KindCSS, NewCSSService(fetcher, v.CSSEndpoint, cfg.UserAgent))
	}
	if v.JS {
		add(KindJS, NewJSService(fetcher, v.JSEndpoint, cfg.UserAgent))
	}
	return p
}

// Add registers the worker for kind; it must be called before Start
func (p *Pool) Add(kind Kind, w *Worker) {
	p.workers[kind] = w
}

// Enabled reports whether a worker handles kind
func (p *Pool) Enabled(kind Kind) bool {
	_, ok := p.workers[kind]
	return ok
}

// Empty reports whether no service is enabled
func (p *Pool) Empty() bool {
	return len(p.workers) == 0
}

// Start launches the workers
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true
	p.group, ctx = errgroup.WithContext(ctx)
	for kind, w := range p.workers {
		p.group.Go(func() error {
			res := w.Run(ctx)
			p.mu.Lock()
			p.results[kind] = res
			p.mu.Unlock()
			return nil
		})
	}
	p.log.Debugf("Started %d validation workers", len(p.workers))
}

// Submit queues a job for kind; it reports false when kind is disabled or the job was refused
func (p *Pool) Submit(kind Kind, job Job) bool {
	w, ok := p.workers[kind]
	if !ok {
		return false
	}
	return w.Submit(job)
}

// Close tells every worker that no more jobs will come
func (p *Pool) Close() {
	for _, w := range p.workers {
		w.Close()
	}
}

// Wait blocks until every worker is done and returns their results per kind
func (p *Pool) Wait() (map[Kind][]Result, error) {
	var err error
	if p.group != nil {
		err = p.group.Wait()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[Kind][]Result, len(p.results))
	for k, v := range p.results {
		out[k] = v
	}
	return out, err
}
