// Package poller drives the publish loop: wake every minute, fetch the
// posts due now, deliver each one, report outcomes back to the content
// API.
//
// Failure policy, narrowest scope first:
//   - one post failing never stops the rest of the batch
//   - a failed fetch skips the cycle, nothing more
//   - nothing in a cycle can take the process down
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"pubbot/internal/content"
	"pubbot/internal/post"
	"pubbot/internal/storage"
	logx "pubbot/pkg/logx"
)

type Service struct {
	cfg    Config
	client ContentClient
	pub    Deliverer
	store  storage.Store
	log    logx.Logger

	mu      sync.Mutex
	running bool
	c       *cron.Cron
	loc     *time.Location

	// cycleMu serializes cycles: a single logical worker, even when a
	// slow batch overruns a minute boundary and ticks stack up.
	cycleMu sync.Mutex
	wg      sync.WaitGroup
}

func New(cfg Config, client ContentClient, pub Deliverer, store storage.Store, log logx.Logger) *Service {
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 55 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		client: client,
		pub:    pub,
		store:  store,
		log:    log,
		loc:    time.Local,
	}
}

// Start arms the minute trigger and runs one immediate cycle so posts
// due in the current minute are not lost to process start time.
//
// The trigger fires on every minute boundary regardless of the wall
// clock value; gating on :00/:30 would silently skip due posts when a
// slow batch or clock drift misses the window.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if !s.cfg.Enabled {
		s.log.Info("poller disabled")
		return nil
	}

	loc := time.Local
	if tz := s.cfg.Timezone; tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("poller: invalid timezone %q: %w", tz, err)
		}
		loc = l
	}

	s.loc = loc
	s.c = cron.New(cron.WithLocation(loc))
	if _, err := s.c.AddFunc("* * * * *", func() { s.cycle() }); err != nil {
		return fmt.Errorf("poller: trigger: %w", err)
	}
	s.c.Start()
	s.running = true
	s.log.Info("poller started", logx.String("tz", loc.String()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cycle()
	}()
	return nil
}

// Stop disarms the trigger and waits for the in-flight cycle. A batch
// already being processed finishes; the wait is bounded by ctx only.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	s.c = nil
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	if !wasRunning {
		return nil
	}
	if c != nil {
		<-c.Stop().Done()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("poller stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("poller stop timed out with a cycle in flight")
		return ctx.Err()
	}
}

// cycle runs one fetch-deliver-report pass for the current minute.
func (s *Service) cycle() {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	// Detached from the run context: shutdown waits for the batch
	// instead of aborting mid-post. The timeout is the only leash.
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CycleTimeout)
	defer cancel()

	// The restrict query is minute-granular, so the zone the timestamp
	// is formatted in decides which minute gets fetched. Stamp it in the
	// configured location, not the process-local one.
	now := time.Now().In(s.loc)
	s.runCycle(ctx, now)
}

func (s *Service) runCycle(ctx context.Context, now time.Time) {
	cycleID := uuid.NewString()[:8]
	log := s.log.With(
		logx.String("cycle", cycleID),
		logx.Time("at", now.Truncate(time.Minute)),
	)

	records, err := s.client.FetchDue(ctx, now)
	if err != nil {
		log.Error("fetch failed; skipping cycle", logx.Err(err))
		return
	}

	posts := content.FormatPosts(records)
	if len(posts) == 0 {
		log.Debug("no due posts")
		return
	}
	log.Info("publishing batch", logx.Int("count", len(posts)))

	for _, p := range posts {
		s.publishOne(ctx, log, cycleID, p)
	}
}

// publishOne handles a single post end to end. Panics and errors both
// terminate here: the next post in the batch always gets its attempt.
func (s *Service) publishOne(ctx context.Context, log logx.Logger, cycleID string, p post.Post) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic publishing post",
				logx.Int64("post_id", p.ID),
				logx.Any("panic", r))
			s.reportFailure(ctx, log, cycleID, p, fmt.Errorf("panic: %v", r), 0)
		}
	}()

	started := time.Now()
	ref, err := s.pub.Deliver(ctx, p)
	took := time.Since(started)

	if err != nil {
		log.Error("publish failed",
			logx.Int64("post_id", p.ID),
			logx.Int64("group", p.TargetGroup),
			logx.Err(err))
		s.reportFailure(ctx, log, cycleID, p, err, took)
		return
	}

	log.Info("post published", logx.Int64("post_id", p.ID))

	// The post is already visible to users. Bookkeeping failures below
	// are logged, never acted on: if the PUBLISHED write is lost the
	// post stays AWAITS upstream and will be re-delivered next cycle,
	// the accepted at-least-once trade-off.
	if err := s.client.SetMessageID(ctx, p.ID, ref.MessageID); err != nil {
		log.Warn("message id update failed",
			logx.Int64("post_id", p.ID),
			logx.Err(err))
	}
	if err := s.client.SetStatus(ctx, p.ID, post.StatusPublished); err != nil {
		log.Warn("status update failed; post may be re-delivered next cycle",
			logx.Int64("post_id", p.ID),
			logx.Err(err))
	}

	s.audit(ctx, log, storage.DeliveryEntry{
		CycleID:   cycleID,
		PostID:    p.ID,
		Outcome:   outcomePublished,
		MessageID: ref.MessageID,
		GroupID:   p.TargetGroup,
		WithPin:   p.WithPin,
		TookMS:    took.Milliseconds(),
	})
}

func (s *Service) reportFailure(ctx context.Context, log logx.Logger, cycleID string, p post.Post, cause error, took time.Duration) {
	if err := s.client.SetStatus(ctx, p.ID, post.StatusError); err != nil {
		log.Error("error status update failed",
			logx.Int64("post_id", p.ID),
			logx.Err(err))
	}
	s.audit(ctx, log, storage.DeliveryEntry{
		CycleID: cycleID,
		PostID:  p.ID,
		Outcome: outcomeError,
		GroupID: p.TargetGroup,
		WithPin: p.WithPin,
		Error:   cause.Error(),
		TookMS:  took.Milliseconds(),
	})
}

func (s *Service) audit(ctx context.Context, log logx.Logger, e storage.DeliveryEntry) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendDelivery(ctx, e); err != nil {
		log.Warn("delivery audit write failed", logx.Err(err))
	}
}
