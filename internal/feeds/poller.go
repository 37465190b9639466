package feeds

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/logging"
	"github.com/joeblew999/plat-intel/internal/mapengine"
)

const (
	maxBody     = 32 << 20
	concurrency = 4
)

// Target receives feed updates. *mapengine.Engine satisfies it.
type Target interface {
	Apply(ctx context.Context, fetch mapengine.Fetch) error
}

// Result is the outcome of the latest poll of one feed.
type Result struct {
	Feed  string    `json:"feed"`
	Kind  Kind      `json:"kind"`
	Items int       `json:"items"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// Options configures a Poller.
type Options struct {
	Client *http.Client
	Logger *zerolog.Logger
	Now    func() time.Time
}

// Poller runs feeds against a target.
type Poller struct {
	feeds  []Feed
	target Target
	client *http.Client
	log    *zerolog.Logger
	now    func() time.Time
	cron   *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	last map[string]Result
}

// New creates a poller for the enabled feeds of cfg.
func New(cfg *Config, target Target, opts Options) *Poller {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logging.Component("feeds")
	}
	var feeds []Feed
	if cfg != nil {
		for _, f := range cfg.Feeds {
			if !f.Disabled {
				feeds = append(feeds, f)
			}
		}
	}
	cl := cronLogger{log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		feeds:  feeds,
		target: target,
		client: opts.Client,
		log:    log,
		now:    opts.Now,
		cron: cron.New(
			cron.WithParser(scheduleParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:    ctx,
		cancel: cancel,
		last:   map[string]Result{},
	}
}

// Feeds returns the enabled feeds.
func (p *Poller) Feeds() []Feed {
	return append([]Feed(nil), p.feeds...)
}

// Poll fetches one feed and applies it.
func (p *Poller) Poll(ctx context.Context, f Feed) error {
	var items int
	err := p.target.Apply(ctx, func(ctx context.Context) (mapengine.Update, error) {
		body, err := p.fetch(ctx, f)
		if err != nil {
			return nil, err
		}
		update, n, err := Decode(f.Kind, body)
		items = n
		return update, err
	})

	res := Result{Feed: f.Name, Kind: f.Kind, Items: items, At: p.now()}
	if err != nil {
		res.Error = err.Error()
		p.log.Warn().Err(err).Str("feed", f.Name).Msg("feed poll failed")
	} else {
		p.log.Debug().Str("feed", f.Name).Int("items", items).Msg("feed applied")
	}
	p.mu.Lock()
	p.last[f.Name] = res
	p.mu.Unlock()
	return err
}

func (p *Poller) fetch(ctx context.Context, f Feed) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", f.URL, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range f.Headers {
		req.Header.Set(k, v)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchError(f.Name, f.URL, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewFetchError(f.Name, f.URL, resp.StatusCode, nil)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.NewFetchError(f.Name, f.URL, 0, err)
	}
	return body, nil
}

// RunOnce polls every feed concurrently and joins their errors.
func (p *Poller) RunOnce(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(concurrency)
	for _, f := range p.feeds {
		g.Go(func() error {
			if err := p.Poll(ctx, f); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return stderrors.Join(errs...)
}

// Start schedules every feed.
func (p *Poller) Start() error {
	for _, f := range p.feeds {
		if _, err := p.cron.AddFunc(f.Schedule, func() { _ = p.Poll(p.ctx, f) }); err != nil {
			return errors.NewConfigError("feeds", "schedule "+f.Name, err)
		}
	}
	p.cron.Start()
	p.log.Info().Int("feeds", len(p.feeds)).Msg("feed polling started")
	return nil
}

// Stop cancels in-flight polls and waits for running jobs.
func (p *Poller) Stop() {
	p.cancel()
	<-p.cron.Stop().Done()
}

// Status returns the latest result of each polled feed, by name.
func (p *Poller) Status() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Result, 0, len(p.last))
	for _, r := range p.last {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Feed < out[j].Feed })
	return out
}

// cronLogger routes cron's logs to zerolog.
type cronLogger struct{ log *zerolog.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug().Fields(kv).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error().Err(err).Fields(kv).Msg(msg)
}
