// Package analytics records accepted visits: it fingerprints the visitor,
// enforces click quotas and writes counters and click events off the
// request path.
package analytics

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"linkgate/internal/domain"
	"linkgate/internal/metrics"
	"linkgate/internal/repository"
	"linkgate/pkg/logger"
)

// Publisher receives click events after they are stored
type Publisher interface {
	PublishClick(ctx context.Context, event *domain.ClickEvent) error
}

// Options sizes the analytics pipeline
type Options struct {
	Workers    int           // 0 records inline on the caller's goroutine
	QueueSize  int           // pending jobs before new ones are dropped
	JobTimeout time.Duration // upper bound for a single write
}

type job struct {
	event *domain.ClickEvent
	opts  domain.ClickOptions
}

// Recorder is the click recorder. Quota claims happen synchronously in
// Record; everything else is handed to a bounded worker pool.
type Recorder struct {
	links       repository.LinkRepository
	clicks      repository.ClickRepository
	fingerprint *Fingerprinter
	publisher   Publisher
	logger      *logger.Logger
	timeout     time.Duration
	inline      bool

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// NewRecorder creates a recorder and starts its workers
func NewRecorder(
	links repository.LinkRepository,
	clicks repository.ClickRepository,
	fingerprint *Fingerprinter,
	publisher Publisher,
	opts Options,
	log *logger.Logger,
) *Recorder {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}

	r := &Recorder{
		links:       links,
		clicks:      clicks,
		fingerprint: fingerprint,
		publisher:   publisher,
		logger:      log,
		timeout:     opts.JobTimeout,
		inline:      opts.Workers <= 0,
		now:         time.Now,
		newID:       uuid.NewString,
	}

	if !r.inline {
		r.jobs = make(chan job, opts.QueueSize)
		for i := 0; i < opts.Workers; i++ {
			r.wg.Add(1)
			go r.worker()
		}
	}

	return r
}

// Record accepts a visit for link and returns the visitor fingerprint.
// For links with a click quota the click is claimed before returning, and
// domain.ErrQuotaExceeded reports a lost race for the last slot. Analytics
// failures after that point are logged, never returned.
func (r *Recorder) Record(ctx context.Context, link *domain.ShortLink, visit domain.Visit) (string, error) {
	now := r.now().UTC()
	fp := r.fingerprint.Fingerprint(visit.ClientIP, visit.UserAgent, now)

	var opts domain.ClickOptions
	if link.Policy.HasQuota() {
		claimed, err := r.links.ClaimClick(ctx, link.ID)
		if err != nil {
			return "", err
		}
		if !claimed {
			return "", domain.ErrQuotaExceeded
		}
		opts.AlreadyCounted = true
	}

	event := &domain.ClickEvent{
		ID:               r.newID(),
		ShortLinkID:      link.ID,
		ShortCode:        link.ShortCode,
		ClickedAt:        now,
		Fingerprint:      fp,
		IPHash:           r.fingerprint.HashIP(visit.ClientIP),
		Country:          visit.Location.Country,
		Region:           clip(visit.Location.Region, 64),
		City:             clip(visit.Location.City, 128),
		Timezone:         clip(visit.Location.Timezone, 64),
		DeviceType:       visit.Device.Type,
		Browser:          clip(visit.Device.Browser, 64),
		OS:               clip(visit.Device.OS, 64),
		Referrer:         visit.Referrer,
		ScreenResolution: clip(visit.ScreenResolution, 32),
		ViaQR:            visit.ViaQR,
	}

	if r.inline {
		r.process(job{event: event, opts: opts})
		return fp, nil
	}

	if err := r.enqueue(job{event: event, opts: opts}); err != nil {
		metrics.AnalyticsJobsTotal.WithLabelValues("dropped").Inc()
		r.logger.Warnw("Dropping click event",
			"short_code", link.ShortCode,
			"error", err,
		)
	}

	return fp, nil
}

func (r *Recorder) enqueue(j job) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return domain.ErrRecorderClosed
	}

	select {
	case r.jobs <- j:
		metrics.AnalyticsQueueDepth.Set(float64(len(r.jobs)))
		return nil
	default:
		return domain.ErrAnalyticsQueueFull
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for j := range r.jobs {
		metrics.AnalyticsQueueDepth.Set(float64(len(r.jobs)))
		r.process(j)
	}
}

// process runs detached from the request: a client hanging up must not
// cancel the write.
func (r *Recorder) process(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	res, err := r.clicks.RecordClick(ctx, j.event, j.opts)
	if err != nil {
		metrics.AnalyticsJobsTotal.WithLabelValues("failed").Inc()
		r.logger.Errorw("Failed to record click",
			"short_code", j.event.ShortCode,
			"error", err,
		)
		return
	}

	metrics.AnalyticsJobsTotal.WithLabelValues("recorded").Inc()
	if res.Unique {
		metrics.UniqueVisitorsTotal.Inc()
	}

	if r.publisher != nil {
		if err := r.publisher.PublishClick(ctx, j.event); err != nil {
			r.logger.Warnw("Failed to publish click event",
				"short_code", j.event.ShortCode,
				"error", err,
			)
		}
	}
}

// Close stops accepting new jobs and waits for queued ones to finish or
// for ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.jobs != nil {
		close(r.jobs)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clip shortens s to at most max bytes without splitting a rune, so values
// taken from the request fit their click_events columns.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
