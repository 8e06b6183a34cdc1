// Package query implements the session and query orchestration engine.
//
// The orchestrator fans each input change out to every enabled provider,
// merges their incremental results into a usage-boosted ranked sequence,
// and republishes it after every arrival so the frontend updates while
// the user is still typing. A new query supersedes the previous one; only
// results tagged with the latest sequence number are ever published.
package query

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	beamerr "github.com/beamlauncher/beam/internal/errors"
	"github.com/beamlauncher/beam/internal/provider"
)

// maxFanout limits how many provider searches run at once per query.
const maxFanout = 8

// Orchestrator owns the session/query state machine.
//
// All state transitions happen on a single control goroutine; public
// methods post commands to it and wait for the synchronous reply, and
// provider workers deliver arrivals and completions to it as serialized
// events. Ranked-sequence recomputation therefore never runs concurrently
// with itself.
type Orchestrator struct {
	cfg      Config
	registry *provider.Registry
	store    Recorder

	cmds    chan command
	events  chan event
	updates chan []RankedItem
	done    chan struct{}

	// Control-goroutine state. Touched only by run().
	state   State
	session Session
	seq     uint64
	cancel  context.CancelFunc
	pending int
	input   string
	ranked  []RankedItem
}

type command struct {
	apply func() error
	reply chan error
}

// event is a provider arrival or completion, tagged with the sequence
// number of the query that produced it.
type event struct {
	seq           uint64
	providerIndex int
	providerID    string

	// Arrival fields.
	result      provider.Result
	resultIndex int

	// Completion fields.
	completed bool
	elapsed   time.Duration
	err       error
}

// NewOrchestrator creates an orchestrator and starts its control loop.
func NewOrchestrator(cfg Config, registry *provider.Registry, store Recorder) *Orchestrator {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = time.Second
	}

	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		store:    store,
		cmds:     make(chan command),
		events:   make(chan event, 256),
		updates:  make(chan []RankedItem, 1),
		done:     make(chan struct{}),
	}
	go o.run()
	return o
}

// Updates is the outbound notification channel carrying the live-updated
// ranked sequence. Only the latest sequence is retained if the consumer
// falls behind.
func (o *Orchestrator) Updates() <-chan []RankedItem {
	return o.updates
}

// OpenSession opens a session. Fails with an invalid-state error if one
// is already active; that is a programmer error, not retried.
func (o *Orchestrator) OpenSession() error {
	return o.do(func() error {
		if o.state != Idle {
			return beamerr.InvalidStateError("session already active")
		}
		o.session = Session{ID: uuid.NewString(), StartedAt: time.Now()}
		o.state = SessionActive
		slog.Debug("session opened", slog.String("session", o.session.ID))
		return nil
	})
}

// CloseSession closes the active session, cancelling any in-flight query
// and discarding all pending results.
func (o *Orchestrator) CloseSession() error {
	return o.do(func() error {
		if o.state == Idle {
			return beamerr.InvalidStateError("no session active")
		}
		o.cancelQuery()
		o.ranked = nil
		o.input = ""
		o.state = Idle
		slog.Debug("session closed", slog.String("session", o.session.ID))
		return nil
	})
}

// SubmitQuery dispatches text to every enabled provider. An in-flight
// query is cancelled first; its partial results are discarded, never
// merged.
func (o *Orchestrator) SubmitQuery(text string) error {
	return o.do(func() error {
		if o.state == Idle {
			return beamerr.InvalidStateError("no session active")
		}

		o.cancelQuery()
		o.seq++
		o.input = text
		o.ranked = nil

		snapshot := o.registry.Active()
		if len(snapshot) == 0 {
			o.state = SessionActive
			o.publish()
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		o.cancel = cancel
		o.pending = len(snapshot)
		o.state = Querying

		go o.fanout(ctx, o.seq, text, snapshot)
		return nil
	})
}

// AcceptResult records a usage event for the current input text and the
// chosen result. Valid whenever a result set exists, independent of the
// query state. Store write failures degrade ranking quality, not
// correctness; they are logged and the event is dropped.
func (o *Orchestrator) AcceptResult(resultID string) error {
	return o.do(func() error {
		found := false
		for _, item := range o.ranked {
			if item.QualifiedID() == resultID {
				found = true
				break
			}
		}
		if !found {
			return beamerr.InvalidStateError("no such result: " + resultID)
		}

		if err := o.store.RecordUsage(o.input, resultID); err != nil {
			slog.Warn("usage event dropped",
				slog.String("input", o.input),
				slog.String("item", resultID),
				slog.String("error", err.Error()))
		}
		return nil
	})
}

// Close stops the control loop. Further calls fail.
func (o *Orchestrator) Close() {
	_ = o.do(func() error {
		o.cancelQuery()
		o.ranked = nil
		o.state = Idle
		close(o.done)
		return nil
	})
}

// do executes fn on the control goroutine and returns its error.
func (o *Orchestrator) do(fn func() error) error {
	cmd := command{apply: fn, reply: make(chan error, 1)}
	select {
	case o.cmds <- cmd:
		return <-cmd.reply
	case <-o.done:
		return beamerr.InvalidStateError("orchestrator closed")
	}
}

// run is the control loop. It is the only goroutine touching session and
// query state.
func (o *Orchestrator) run() {
	for {
		select {
		case cmd := <-o.cmds:
			cmd.reply <- cmd.apply()
			select {
			case <-o.done:
				return
			default:
			}
		case ev := <-o.events:
			o.handleEvent(ev)
		}
	}
}

// cancelQuery signals in-flight providers to stop. Cooperative: their
// eventual output is dropped by the sequence check either way.
func (o *Orchestrator) cancelQuery() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.pending = 0
}

// fanout runs one provider search per worker and reports arrivals and
// completions back to the control loop. Runs off the control goroutine.
func (o *Orchestrator) fanout(ctx context.Context, seq uint64, text string, snapshot []provider.Provider) {
	var g errgroup.Group
	g.SetLimit(maxFanout)

	for i, p := range snapshot {
		i, p := i, p
		g.Go(func() error {
			o.searchOne(ctx, seq, i, p, text)
			return nil // a provider failure never aborts the others
		})
	}
	_ = g.Wait()
}

// searchOne invokes one provider with a bounded timeout and streams its
// results back as events.
func (o *Orchestrator) searchOne(ctx context.Context, seq uint64, index int, p provider.Provider, text string) {
	pctx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
	defer cancel()

	start := time.Now()
	n := 0
	err := p.Search(pctx, text, func(r provider.Result) {
		r.ProviderID = p.ID()
		ev := event{
			seq:           seq,
			providerIndex: index,
			providerID:    p.ID(),
			result:        r,
			resultIndex:   n,
		}
		n++
		select {
		case o.events <- ev:
		case <-pctx.Done():
		}
	})
	elapsed := time.Since(start)

	if err == nil && pctx.Err() != nil && ctx.Err() == nil {
		// Provider returned cleanly only because its budget ran out.
		err = beamerr.New(beamerr.ErrCodeProviderTimeout, "provider timed out", pctx.Err())
	}

	done := event{
		seq:           seq,
		providerIndex: index,
		providerID:    p.ID(),
		completed:     true,
		elapsed:       elapsed,
		err:           err,
	}
	select {
	case o.events <- done:
	case <-o.done:
	}
}

// handleEvent merges an arrival or accounts a completion. Runs on the
// control goroutine.
func (o *Orchestrator) handleEvent(ev event) {
	if ev.completed {
		o.handleCompletion(ev)
		return
	}

	// Late result for a superseded query: dropped unconditionally.
	if ev.seq != o.seq || o.state != Querying {
		return
	}

	item := RankedItem{
		Result:        ev.result,
		providerIndex: ev.providerIndex,
		resultIndex:   ev.resultIndex,
	}
	item.Boost = o.store.RankBoost(o.input, ev.result.QualifiedID())
	item.FinalScore = ev.result.Score + o.cfg.BoostWeight*item.Boost

	o.ranked = append(o.ranked, item)
	sort.SliceStable(o.ranked, func(i, j int) bool {
		return o.ranked[i].less(o.ranked[j])
	})

	o.publish()
}

func (o *Orchestrator) handleCompletion(ev event) {
	// Runtime samples are recorded for every invocation, current or
	// superseded, success or failure.
	if err := o.store.RecordRuntime(ev.providerID, ev.elapsed); err != nil {
		slog.Warn("runtime sample dropped",
			slog.String("provider", ev.providerID),
			slog.String("error", err.Error()))
	}

	if ev.err != nil && !errors.Is(ev.err, context.Canceled) {
		// Isolated per provider: logged, excluded from the merge, never
		// surfaced to the user.
		slog.Warn("provider failed",
			slog.String("provider", ev.providerID),
			slog.Duration("elapsed", ev.elapsed),
			slog.String("error", ev.err.Error()))
	}

	if ev.seq != o.seq || o.state != Querying {
		return
	}

	o.pending--
	if o.pending == 0 {
		o.state = SessionActive
	}
}

// publish pushes the current ranked sequence to the updates channel,
// replacing a pending unconsumed one so the frontend always sees the
// newest ordering.
func (o *Orchestrator) publish() {
	items := make([]RankedItem, len(o.ranked))
	copy(items, o.ranked)
	if o.cfg.MaxResults > 0 && len(items) > o.cfg.MaxResults {
		items = items[:o.cfg.MaxResults]
	}

	for {
		select {
		case o.updates <- items:
			return
		default:
			select {
			case <-o.updates:
			default:
			}
		}
	}
}
