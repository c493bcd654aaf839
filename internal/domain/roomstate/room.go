package roomstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/application/clock"
	"github.com/Luminawater/juketogether/internal/application/constant"
	"github.com/Luminawater/juketogether/internal/application/metric"
	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/events"
	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/domain/output"
	"github.com/Luminawater/juketogether/internal/domain/tempo"
)

// Broadcaster доставляет событие соединению. Не должен блокироваться.
type Broadcaster interface {
	Send(connID uuid.UUID, event events.Event)
}

// MetadataFetcher достаёт название и обложку трека. Вызывается вне актора.
type MetadataFetcher interface {
	Fetch(ctx context.Context, platform models.Platform, rawURL string) (*models.TrackInfo, error)
}

type request struct {
	cmd   Command
	reply chan response
}

type response struct {
	value any
	err   error
}

// Room - актор комнаты. Все команды проходят через одну горутину,
// поэтому переходы состояния атомарны относительно друг друга.
type Room struct {
	id    string
	state *State

	clock           clock.Clock
	out             Broadcaster
	analyzer        tempo.Analyzer
	analysisTimeout time.Duration
	metadata        MetadataFetcher
	metadataTimeout time.Duration
	boostSweep      time.Duration

	cmds     chan request
	stop     chan struct{}
	done     chan struct{}
	released chan struct{}

	stopOnce    sync.Once
	releaseOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

type roomDeps struct {
	clock           clock.Clock
	out             Broadcaster
	analyzer        tempo.Analyzer
	analysisTimeout time.Duration
	metadata        MetadataFetcher
	metadataTimeout time.Duration
	boostSweep      time.Duration
	commandBuffer   int
}

func newRoom(state *State, d roomDeps) *Room {
	ctx, cancel := context.WithCancel(context.Background())

	return &Room{
		id:              state.ID(),
		state:           state,
		clock:           d.clock,
		out:             d.out,
		analyzer:        d.analyzer,
		analysisTimeout: d.analysisTimeout,
		metadata:        d.metadata,
		metadataTimeout: d.metadataTimeout,
		boostSweep:      d.boostSweep,
		cmds:            make(chan request, d.commandBuffer),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
		released:        make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
	}
}

func (r *Room) ID() string { return r.id }

// Submit ставит команду в очередь комнаты и ждёт результата применения.
// Рассылка событий происходит внутри актора, Submit её не ждёт.
func (r *Room) Submit(ctx context.Context, cmd Command) error {
	_, err := r.call(ctx, cmd)

	return err
}

// Join возвращает снапшот, который уже отправлен соединению
func (r *Room) Join(ctx context.Context, cmd Join) (output.RoomSnapshot, error) {
	v, err := r.call(ctx, cmd)
	if err != nil {
		return output.RoomSnapshot{}, err
	}

	snap, _ := v.(output.RoomSnapshot)

	return snap, nil
}

func (r *Room) Summary(ctx context.Context) (output.RoomSummary, error) {
	v, err := r.call(ctx, summary{})
	if err != nil {
		return output.RoomSummary{}, err
	}

	s, _ := v.(output.RoomSummary)

	return s, nil
}

func (r *Room) call(ctx context.Context, cmd Command) (any, error) {
	req := request{cmd: cmd, reply: make(chan response, 1)}

	select {
	case r.cmds <- req:
	case <-r.done:
		return nil, errs.RoomClosed("room is closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp.value, resp.err
	case <-r.done:
		select {
		case resp := <-req.reply:
			return resp.value, resp.err
		default:
			return nil, errs.RoomClosed("room is closed")
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// post - асинхронная команда без ответа, для фоновых задач
func (r *Room) post(cmd Command) {
	select {
	case r.cmds <- request{cmd: cmd}:
	case <-r.done:
	case <-r.ctx.Done():
	}
}

// Closed - актор завершился, новые команды не принимаются
func (r *Room) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Stop останавливает актор и ждёт его завершения
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *Room) release() {
	r.releaseOnce.Do(func() { close(r.released) })
}

func (r *Room) run() {
	defer close(r.done)
	defer r.cancel()

	if r.state.HasBoost() {
		metric.IncrementBoostsActive()
	}
	defer func() {
		if r.state.HasBoost() {
			metric.DecrementBoostsActive()
		}
	}()

	var (
		ticker *clock.Ticker
		sweep  <-chan time.Time
	)
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		// тикер буста живёт только пока на комнате есть буст
		switch {
		case r.state.HasBoost() && ticker == nil:
			ticker = r.clock.NewTicker(r.boostSweep)
			sweep = ticker.C
		case !r.state.HasBoost() && ticker != nil:
			ticker.Stop()
			ticker, sweep = nil, nil
		}

		select {
		case req := <-r.cmds:
			if r.handle(req) {
				return
			}
		case <-sweep:
			r.handle(request{cmd: expireBoost{}})
		case <-r.stop:
			return
		}
	}
}

func (r *Room) handle(req request) (stop bool) {
	start := time.Now()
	now := r.clock.Now()
	hadBoost := r.state.HasBoost()

	res, err := r.state.Apply(now, req.cmd)

	r.deliver(res.Deliveries)

	if hasBoost := r.state.HasBoost(); hasBoost != hadBoost {
		if hasBoost {
			metric.IncrementBoostsActive()
		} else {
			metric.DecrementBoostsActive()
		}
	}

	if res.Analyze != nil {
		r.analyze(*res.Analyze)
	}
	for _, t := range res.Lookup {
		r.lookup(t)
	}

	r.record(req.cmd, err, len(res.Deliveries) == 0, time.Since(start))

	if req.reply != nil {
		req.reply <- response{value: res.Value, err: err}
	}

	return res.Stop
}

func (r *Room) deliver(ds []Delivery) {
	if len(ds) == 0 {
		return
	}

	members := r.state.Members()
	for _, d := range ds {
		if d.Event.Type == events.EvtAdRequired {
			if p, ok := d.Event.Data.(events.AdRequiredPayload); ok {
				metric.IncrementAdsRequired(p.Tier.String())
			}
		}

		if d.To != uuid.Nil {
			r.out.Send(d.To, d.Event)
			continue
		}

		for _, connID := range members {
			if connID != d.Skip {
				r.out.Send(connID, d.Event)
			}
		}
	}
}

// analyze запускает определение BPM вне актора. Результат возвращается
// в очередь комнаты командой DeckBPMResolved.
func (r *Room) analyze(req AnalysisRequest) {
	if r.analyzer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.analysisTimeout)
		defer cancel()

		bpm, err := r.analyzer.AnalyzeBPM(ctx, req.Track)
		if err != nil {
			slog.Debug(
				"bpm analysis unavailable",
				slog.Any(constant.Error, err),
				slog.String(constant.RoomID, r.id),
				slog.Int(constant.DeckIndex, req.Deck),
			)
			return
		}

		r.post(DeckBPMResolved{Deck: req.Deck, TrackID: req.Track.ID, BPM: bpm})
	}()
}

// lookup запрашивает метаданные трека вне актора. Трек уже принят
// с заглушкой, результат приходит командой TrackInfoResolved.
func (r *Room) lookup(t models.Track) {
	if r.metadata == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.metadataTimeout)
		defer cancel()

		info, err := r.metadata.Fetch(ctx, t.Platform, t.URL)
		if err == nil && info == nil {
			return
		}
		if err != nil {
			slog.Warn(
				"fetch track metadata",
				slog.Any(constant.Error, err),
				slog.String(constant.RoomID, r.id),
				slog.String("url", t.URL),
			)
			return
		}

		r.post(TrackInfoResolved{TrackID: t.ID, Info: *info})
	}()
}

func (r *Room) record(cmd Command, err error, quiet bool, d time.Duration) {
	result := "ok"
	switch {
	case err != nil:
		result = string(errs.KindOf(err))
		if result == "" {
			result = "error"
		}
	case quiet:
		result = "noop"
	}

	switch cmd.(type) {
	case expireBoost, snapshotDurable, summary, evictIfIdle:
		return
	}

	metric.RecordCommand(cmd.Name(), result, d)

	var ce *errs.CommandError
	if err != nil && !errors.As(err, &ce) {
		slog.Error(
			"apply room command",
			slog.Any(constant.Error, err),
			slog.String(constant.RoomID, r.id),
			slog.String(constant.Command, cmd.Name()),
		)
	}
}

// tryEvict закрывает комнату, если она простаивает дольше ttl.
// Возвращает сохраняемое состояние закрытой комнаты.
func (r *Room) tryEvict(ctx context.Context, ttl time.Duration) (*models.Room, bool) {
	v, err := r.call(ctx, evictIfIdle{ttl: ttl})
	if err != nil || v == nil {
		return nil, false
	}

	room, ok := v.(*models.Room)

	return room, ok && room != nil
}

func (r *Room) durable(ctx context.Context) (*models.Room, error) {
	v, err := r.call(ctx, snapshotDurable{})
	if err != nil {
		return nil, err
	}

	room, _ := v.(*models.Room)

	return room, nil
}
