package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"YieldStream/internal/accounting"
	"YieldStream/internal/chain"
	"YieldStream/internal/claims"
	"YieldStream/internal/feed"
	"YieldStream/internal/model"
	"YieldStream/internal/notifier"
	"YieldStream/internal/recorder"
	"YieldStream/internal/watch"
)

// Options selects which streams are watched.
type Options struct {
	// Streams are watched explicitly by id.
	Streams []uint64
	// Discover adds every stream found in the token registry,
	// restricted to DiscoverOwner when it is set.
	Discover      bool
	DiscoverOwner string
}

// Scheduler polls the chain for stream snapshots and re-evaluates them on a
// faster display tick, publishing every result to the hub.
type Scheduler struct {
	Cron     *cron.Cron
	Client   chain.Client
	Loader   *chain.Loader
	Hub      *feed.Hub
	Watch    *watch.Manager
	Claims   *claims.Service
	Notifier notifier.Sender
	Recorder recorder.Recorder
	Options  Options
	Ctx      context.Context
	Now      func() time.Time

	tickMu    sync.Mutex
	mu        sync.RWMutex
	snapshots map[uint64]*model.StreamSnapshot
	latest    map[uint64]model.StreamUpdate
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, client chain.Client, loader *chain.Loader, hub *feed.Hub, wm *watch.Manager,
	cs *claims.Service, sender notifier.Sender, rec recorder.Recorder, opts Options) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		Client:    client,
		Loader:    loader,
		Hub:       hub,
		Watch:     wm,
		Claims:    cs,
		Notifier:  sender,
		Recorder:  rec,
		Options:   opts,
		Ctx:       ctx,
		Now:       time.Now,
		snapshots: make(map[uint64]*model.StreamSnapshot),
		latest:    make(map[uint64]model.StreamUpdate),
	}
}

// RegisterAll registers the refresh, tick and sample jobs.
func (s *Scheduler) RegisterAll(refreshCron, tickCron, sampleCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.Refresh); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(tickCron, s.Tick); err != nil {
		return fmt.Errorf("register tick task: %w", err)
	}
	if _, err := s.Cron.AddFunc(sampleCron, s.Sample); err != nil {
		return fmt.Errorf("register sample task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow refreshes and evaluates immediately (RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.Refresh()
	s.Tick()
}

// Refresh reloads snapshots for every watched stream. A stream that fails to
// load keeps its previous snapshot. Streams that are no longer watched are
// dropped, unless discovery failed on this pass.
func (s *Scheduler) Refresh() {
	fresh := make(map[uint64]*model.StreamSnapshot)
	complete := true

	if s.Options.Discover && s.Loader != nil {
		assets, err := s.Loader.LoadAssets(s.Ctx, s.Options.DiscoverOwner)
		if err != nil {
			log.Printf("[ERROR] discover streams: %v", err)
			complete = false
		}
		for _, a := range assets {
			if a.Stream != nil {
				fresh[a.Stream.StreamID] = a.Stream
			}
		}
	}

	for _, id := range s.Options.Streams {
		if _, ok := fresh[id]; ok {
			continue
		}
		snap, err := s.Client.Stream(s.Ctx, id)
		if err != nil {
			log.Printf("[WARN] refresh stream %d: %v", id, err)
			continue
		}
		fresh[id] = snap
	}

	watched := make(map[uint64]bool, len(fresh)+len(s.Options.Streams))
	for id := range fresh {
		watched[id] = true
	}
	for _, id := range s.Options.Streams {
		watched[id] = true
	}

	var dropped []uint64
	s.mu.Lock()
	for id, snap := range fresh {
		s.snapshots[id] = snap
	}
	if complete {
		for id := range s.snapshots {
			if !watched[id] {
				delete(s.snapshots, id)
				delete(s.latest, id)
				dropped = append(dropped, id)
			}
		}
	}
	n := len(s.snapshots)
	s.mu.Unlock()

	if complete && s.Watch != nil {
		for _, id := range s.Watch.StreamIDs() {
			if !watched[id] {
				s.Watch.Forget(id)
			}
		}
	}
	if len(dropped) > 0 {
		log.Printf("[INFO] stopped watching streams %v", dropped)
	}
	log.Printf("[INFO] refreshed %d/%d streams", len(fresh), n)
}

// refreshStream reloads one cached stream after a transaction.
func (s *Scheduler) refreshStream(id uint64) {
	s.mu.RLock()
	_, cached := s.snapshots[id]
	s.mu.RUnlock()
	if !cached {
		return
	}
	snap, err := s.Client.Stream(s.Ctx, id)
	if err != nil {
		log.Printf("[WARN] refresh stream %d: %v", id, err)
		return
	}
	s.mu.Lock()
	if _, ok := s.snapshots[id]; ok {
		s.snapshots[id] = snap
	}
	s.mu.Unlock()
}

// Tick evaluates every cached snapshot at the current time, publishes the
// result and delivers any alerts it raises. Ticks run one at a time so watch
// state only ever moves forward in time.
func (s *Scheduler) Tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	now := s.Now()

	s.mu.RLock()
	updates := make([]model.StreamUpdate, 0, len(s.snapshots))
	for id, snap := range s.snapshots {
		updates = append(updates, evaluate(id, snap, now))
	}
	s.mu.RUnlock()
	sort.Slice(updates, func(i, j int) bool { return updates[i].StreamID < updates[j].StreamID })

	s.mu.Lock()
	for _, u := range updates {
		s.latest[u.StreamID] = u
	}
	s.mu.Unlock()

	for _, u := range updates {
		if s.Hub != nil {
			s.Hub.Publish(u)
		}
		if s.Watch == nil {
			continue
		}
		for _, a := range s.Watch.Observe(u) {
			s.deliverAlert(a)
		}
	}
}

func evaluate(id uint64, snap *model.StreamSnapshot, now time.Time) model.StreamUpdate {
	return model.StreamUpdate{
		StreamID: id,
		Snapshot: snap,
		Metrics:  accounting.Evaluate(snap, now),
		At:       now,
	}
}

func (s *Scheduler) deliverAlert(a model.Alert) {
	log.Printf("[INFO] alert %s on stream %d: %s", a.Type, a.StreamID, a.Message)
	if err := s.Recorder.RecordAlert(&a); err != nil {
		log.Printf("[ERROR] record alert: %v", err)
	}
	s.trySend(notifier.FormatAlert(a))
}

// Sample writes the latest figures of every stream to the recorder.
func (s *Scheduler) Sample() {
	for _, u := range s.Latest() {
		if err := s.Recorder.RecordSample(recorder.SampleFromUpdate(u)); err != nil {
			log.Printf("[ERROR] record sample for stream %d: %v", u.StreamID, err)
		}
	}
}

// Latest returns the most recent tick result of every stream, by id.
func (s *Scheduler) Latest() []model.StreamUpdate {
	s.mu.RLock()
	out := make([]model.StreamUpdate, 0, len(s.latest))
	for _, u := range s.latest {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StreamID < out[j].StreamID })
	return out
}

// Lookup re-evaluates a cached stream at the current time. Streams that are
// not cached are read from the chain once.
func (s *Scheduler) Lookup(ctx context.Context, id uint64) (model.StreamUpdate, error) {
	s.mu.RLock()
	snap, ok := s.snapshots[id]
	s.mu.RUnlock()
	if !ok {
		var err error
		snap, err = s.Client.Stream(ctx, id)
		if err != nil {
			return model.StreamUpdate{}, err
		}
	}
	return evaluate(id, snap, s.Now()), nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	name := strings.ToLower(fields[0])
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}

	switch name {
	case "/streams":
		return notifier.FormatStreamList(s.Latest())
	case "/refresh":
		s.RunNow()
		return fmt.Sprintf("Refreshed %d streams.", len(s.Latest()))
	case "/stream", "/claim", "/cancel":
		if len(fields) < 2 {
			return fmt.Sprintf("Usage: %s &lt;stream id&gt;", name)
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return fmt.Sprintf("Invalid stream id %q.", fields[1])
		}
		return s.streamCommand(name, id)
	default:
		return helpText
	}
}

const helpText = "Available commands:\n" +
	"• /streams - watched streams\n" +
	"• /stream &lt;id&gt; - stream details\n" +
	"• /claim &lt;id&gt; - claim the claimable balance\n" +
	"• /cancel &lt;id&gt; - cancel a stream\n" +
	"• /refresh - reload from chain"

func (s *Scheduler) streamCommand(name string, id uint64) string {
	switch name {
	case "/stream":
		u, err := s.Lookup(s.Ctx, id)
		if err != nil {
			return fmt.Sprintf("❌ Stream #%d: %v", id, err)
		}
		return notifier.FormatStreamReport(u)
	case "/claim":
		if s.Claims == nil {
			return "Claims are not enabled."
		}
		res, err := s.Claims.Claim(s.Ctx, id)
		if err != nil {
			return commandError("Claim", id, err)
		}
		s.refreshStream(id)
		return fmt.Sprintf("💸 <b>Claimed</b> %s from stream #%d\nTx: <code>%s</code>",
			notifier.FormatCurrency(res.Amount, 4), id, res.TxHash)
	default:
		if s.Claims == nil {
			return "Claims are not enabled."
		}
		res, err := s.Claims.Cancel(s.Ctx, id)
		if err != nil {
			return commandError("Cancel", id, err)
		}
		s.refreshStream(id)
		return fmt.Sprintf("🛑 <b>Cancelled</b> stream #%d\nTx: <code>%s</code>", id, res.TxHash)
	}
}

func commandError(action string, id uint64, err error) string {
	switch {
	case errors.Is(err, claims.ErrNothingToClaim):
		return fmt.Sprintf("Stream #%d has nothing to claim yet.", id)
	case errors.Is(err, chain.ErrReadOnly):
		return "The monitor has no signing key configured; transactions are disabled."
	default:
		log.Printf("[ERROR] %s stream %d: %v", strings.ToLower(action), id, err)
		return fmt.Sprintf("❌ %s failed for stream #%d: %v", action, id, err)
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
