// Package roomstate хранит авторитетное состояние комнаты и применяет к нему
// команды. Каждой комнатой владеет один актор, так что State не потокобезопасен.
package roomstate

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/domain/adpolicy"
	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/domain/events"
	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/domain/output"
	"github.com/Luminawater/juketogether/internal/domain/permission"
	"github.com/Luminawater/juketogether/internal/domain/playback"
	"github.com/Luminawater/juketogether/internal/domain/runtime"
	"github.com/Luminawater/juketogether/internal/domain/tempo"
)

// AdSource выдаёт рекламный ролик. Вызывается внутри актора и не должен блокироваться.
type AdSource interface {
	Next(tier models.Tier) models.Ad
}

// Delivery - событие и его адресат. Нулевой To означает всех участников кроме Skip.
type Delivery struct {
	To    uuid.UUID
	Skip  uuid.UUID
	Event events.Event
}

type AnalysisRequest struct {
	Deck  int
	Track models.Track
}

type Result struct {
	Deliveries []Delivery
	Value      any
	Analyze    *AnalysisRequest
	Lookup     []models.Track
	Stop       bool
}

type Options struct {
	Table          models.TierTable
	BoostDuration  time.Duration
	PreviousWindow time.Duration
	HistoryTail    int
}

type State struct {
	room      *models.Room
	sync      *playback.Synchronizer
	decks     *tempo.Engine
	policy    adpolicy.Policy
	ads       AdSource
	pendingAd *models.Ad
	members   map[uuid.UUID]runtime.RoomUser

	version      uint64
	lastActivity time.Time

	// результат текущего Apply
	out     []Delivery
	reply   any
	analyze *AnalysisRequest
	lookup  []models.Track
	stop    bool
}

func NewState(room *models.Room, opts Options, ads AdSource, now time.Time) *State {
	sync := playback.New(opts.PreviousWindow, opts.HistoryTail)
	sync.Restore(room.Queue, room.History)

	r := *room
	r.AdminIDs = slices.Clone(room.AdminIDs)
	r.Settings = room.Settings.Normalize()
	if r.ActiveBoost != nil {
		b := *r.ActiveBoost
		r.ActiveBoost = &b
	}

	return &State{
		room:         &r,
		sync:         sync,
		decks:        tempo.NewEngine(),
		policy:       adpolicy.New(opts.Table, opts.BoostDuration),
		ads:          ads,
		members:      make(map[uuid.UUID]runtime.RoomUser),
		lastActivity: now,
	}
}

func (s *State) ID() string { return s.room.ID }

func (s *State) Version() uint64 { return s.version }

func (s *State) HasBoost() bool { return s.room.ActiveBoost != nil }

// Apply применяет команду. Ошибка означает, что состояние не изменилось,
// кроме паузы на пустой очереди без autoplay, о которой тоже рассылается событие.
func (s *State) Apply(now time.Time, cmd Command) (Result, error) {
	s.out, s.reply, s.analyze, s.lookup, s.stop = nil, nil, nil, nil, false

	var err error
	switch c := cmd.(type) {
	case Join:
		err = s.join(now, c)
	case Leave:
		s.leave(now, c)
	case AddTrack:
		err = s.addTrack(now, c)
	case AddTracks:
		err = s.addTracks(now, c)
	case RemoveTrack:
		err = s.removeTrack(now, c)
	case Play:
		err = s.play(now, c)
	case Pause:
		err = s.pause(now, c)
	case NextTrack:
		err = s.nextTrack(now, c)
	case PreviousTrack:
		err = s.previousTrack(now, c)
	case RestartTrack:
		err = s.restartTrack(now, c)
	case ReplayTrack:
		err = s.replayTrack(now, c)
	case SyncAllUsers:
		err = s.syncAllUsers(now, c)
	case SyncPosition:
		s.syncPosition(now, c)
	case UpdateSettings:
		err = s.updateSettings(now, c)
	case AddAdmin:
		err = s.addAdmin(now, c)
	case RemoveAdmin:
		err = s.removeAdmin(now, c)
	case DismissAd:
		err = s.dismissAd(now, c)
	case InstallBoost:
		err = s.installBoost(now, c)
	case DeckLoad:
		err = s.deckLoad(now, c)
	case DeckPlay:
		err = s.deckPlay(now, c)
	case DeckPause:
		err = s.deckPause(now, c)
	case DeckSeek:
		err = s.deckSeek(now, c)
	case DeckVolume:
		err = s.deckVolume(now, c)
	case SyncDecks:
		err = s.syncDecks(now, c)
	case DeckBPMResolved:
		s.deckBPMResolved(now, c)
	case TrackInfoResolved:
		s.trackInfoResolved(now, c)
	case expireBoost:
		s.expireBoost(now)
	case snapshotDurable:
		s.reply = s.Durable(now)
	case summary:
		s.reply = s.Summary(now)
	case evictIfIdle:
		s.evictIfIdle(now, c.ttl)
	default:
		err = errs.InvalidCommand(fmt.Sprintf("unsupported command %s", cmd.Name()))
	}

	return Result{Deliveries: s.out, Value: s.reply, Analyze: s.analyze, Lookup: s.lookup, Stop: s.stop}, err
}

// emit повышает версию и рассылает событие всем участникам
func (s *State) emit(typ string, data any) {
	s.emitExcept(uuid.Nil, typ, data)
}

func (s *State) emitExcept(skip uuid.UUID, typ string, data any) {
	s.version++
	s.out = append(s.out, Delivery{Skip: skip, Event: s.event(typ, data)})
}

// send адресует событие одному соединению без повышения версии
func (s *State) send(to uuid.UUID, typ string, data any) {
	s.out = append(s.out, Delivery{To: to, Event: s.event(typ, data)})
}

func (s *State) event(typ string, data any) events.Event {
	return events.Event{Type: typ, RoomID: s.room.ID, Version: s.version, Data: data}
}

// Members - соединения, которым уходят рассылки
func (s *State) Members() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}

	return out
}

func (s *State) effectiveTier(now time.Time) models.Tier {
	return models.EffectiveTier(s.room.CreatorTier, s.room.ActiveBoost, now)
}

func (s *State) subject(now time.Time) permission.Subject {
	eff := s.effectiveTier(now)

	return permission.Subject{
		Settings:      s.room.Settings,
		EffectiveTier: eff,
		QueueLen:      s.sync.QueueLen(),
		QueueLimit:    s.policy.Table().QueueLimit(eff),
		SongsPlayed:   s.sync.SongsSincePlaybackStart(),
	}
}

func (s *State) authorize(now time.Time, o Origin, action permission.Action, tweak func(*permission.Subject)) (runtime.RoomUser, error) {
	m, ok := s.members[o.ConnID]
	if !ok {
		return runtime.RoomUser{}, errs.InvalidCommand("join the room first")
	}

	s.lastActivity = now

	subj := s.subject(now)
	if tweak != nil {
		tweak(&subj)
	}

	actor := permission.Actor{
		UserID:    m.UserID,
		Anonymous: m.Anonymous,
		IsOwner:   m.IsOwner,
		IsAdmin:   m.IsAdmin,
		Tier:      m.Tier,
	}

	return m, permission.CanPerform(actor, action, subj)
}

func (s *State) usersPayload() events.UsersPayload {
	users := make([]runtime.RoomUser, 0, len(s.members))
	for _, m := range s.members {
		users = append(users, m)
	}
	slices.SortFunc(users, func(a, b runtime.RoomUser) int { return a.JoinedAt.Compare(b.JoinedAt) })

	return events.UsersPayload{Users: users, Count: len(users)}
}

func (s *State) playbackPayload(now time.Time, by uuid.UUID) events.PlaybackPayload {
	return events.PlaybackPayload{
		Playback:  s.sync.State(now),
		AdPending: s.pendingAd != nil,
		By:        by,
	}
}

func (s *State) settingsPayload(now time.Time) events.SettingsPayload {
	eff := s.effectiveTier(now)

	return events.SettingsPayload{
		Settings:      s.room.Settings,
		EffectiveTier: eff,
		QueueLimit:    s.policy.Table().QueueLimit(eff),
		Decks:         s.decks.Decks(s.room.Settings.DJPlayers, now),
	}
}

func (s *State) boostPayload(now time.Time) events.BoostPayload {
	eff := s.effectiveTier(now)

	return events.BoostPayload{
		Boost:         s.room.ActiveBoost,
		EffectiveTier: eff,
		QueueLimit:    s.policy.Table().QueueLimit(eff),
	}
}

func (s *State) join(now time.Time, c Join) error {
	u := c.User
	u.IsOwner = !u.Anonymous && u.UserID == s.room.OwnerID
	u.IsAdmin = !u.Anonymous && s.room.IsAdmin(u.UserID)

	if s.room.Settings.IsPrivate && !u.IsOwner && !u.IsAdmin && (u.Anonymous || !c.Invited) {
		return errs.PermissionDenied("this room is private")
	}

	s.lastActivity = now

	prev, rejoin := s.members[u.ConnID]
	if rejoin {
		u.JoinedAt = prev.JoinedAt
	} else {
		u.JoinedAt = now
	}
	s.members[u.ConnID] = u

	if !rejoin {
		s.emitExcept(u.ConnID, events.EvtUsersUpdated, s.usersPayload())
	}

	snap := s.Snapshot(now, u)
	s.send(u.ConnID, events.EvtRoomState, snap)
	s.reply = snap

	return nil
}

func (s *State) leave(now time.Time, c Leave) {
	if _, ok := s.members[c.ConnID]; !ok {
		return
	}

	delete(s.members, c.ConnID)
	s.lastActivity = now

	s.send(c.ConnID, events.EvtLeftRoom, events.LeftRoomPayload{RoomID: s.room.ID})
	s.emit(events.EvtUsersUpdated, s.usersPayload())
}

func (s *State) addTrack(now time.Time, c AddTrack) error {
	if _, err := s.authorize(now, c.Origin, permission.ActionAddTrack, nil); err != nil {
		return err
	}

	s.sync.Enqueue(c.Track)
	s.emit(events.EvtTrackAdded, events.TrackAddedPayload{Track: c.Track, QueueLength: s.sync.QueueLen()})
	if c.Lookup {
		s.lookup = append(s.lookup, c.Track)
	}

	return nil
}

func (s *State) addTracks(now time.Time, c AddTracks) error {
	if len(c.Tracks) == 0 {
		return errs.InvalidCommand("playlist has no tracks")
	}

	_, err := s.authorize(now, c.Origin, permission.ActionAddPlaylist, func(subj *permission.Subject) {
		subj.Adding = len(c.Tracks)
	})
	if err != nil {
		return err
	}

	for _, t := range c.Tracks {
		s.sync.Enqueue(t)
	}
	s.emit(events.EvtPlaylistAdded, events.PlaylistAddedPayload{
		Tracks:      slices.Clone(c.Tracks),
		QueueLength: s.sync.QueueLen(),
	})

	return nil
}

func (s *State) removeTrack(now time.Time, c RemoveTrack) error {
	t, ok := s.sync.Find(c.TrackID)
	if !ok {
		return errs.InvalidCommand("track is not in the queue")
	}

	_, err := s.authorize(now, c.Origin, permission.ActionRemoveTrack, func(subj *permission.Subject) {
		subj.TrackAddedBy = t.AddedBy
	})
	if err != nil {
		return err
	}

	if _, err = s.sync.Remove(c.TrackID); err != nil {
		return err
	}
	s.emit(events.EvtTrackRemoved, events.TrackRemovedPayload{TrackID: c.TrackID, QueueLength: s.sync.QueueLen()})

	return nil
}

func (s *State) adInProgress() error {
	if s.pendingAd != nil {
		return errs.InvalidCommand("an ad is playing")
	}

	return nil
}

func (s *State) play(now time.Time, c Play) error {
	m, err := s.authorize(now, c.Origin, permission.ActionPlay, nil)
	if err != nil {
		return err
	}
	if err = s.adInProgress(); err != nil {
		return err
	}

	changed, err := s.sync.Play(now)
	if err != nil || !changed {
		return err
	}
	s.emit(events.EvtPlay, s.playbackPayload(now, m.UserID))

	return nil
}

func (s *State) pause(now time.Time, c Pause) error {
	m, err := s.authorize(now, c.Origin, permission.ActionPause, nil)
	if err != nil {
		return err
	}

	if s.sync.Pause(now) {
		s.emit(events.EvtPause, s.playbackPayload(now, m.UserID))
	}

	return nil
}

func (s *State) nextTrack(now time.Time, c NextTrack) error {
	m, err := s.authorize(now, c.Origin, permission.ActionNextTrack, nil)
	if err != nil {
		return err
	}
	if err = s.adInProgress(); err != nil {
		return err
	}

	autoplay := s.room.Settings.Autoplay

	if !s.sync.HasNext() {
		res, emptyErr := s.sync.Advance(now, autoplay, true, s.sync.SongsSincePlaybackStart())
		if res.Paused {
			s.emit(events.EvtPause, s.playbackPayload(now, m.UserID))
		}
		return emptyErr
	}

	eff := s.effectiveTier(now)
	decision := s.policy.OnTrackStart(eff, s.sync.SongsSincePlaybackStart())

	res, err := s.sync.Advance(now, autoplay, !decision.AdDue, decision.Counter)
	if err != nil {
		return err
	}

	if decision.AdDue {
		ad := s.ads.Next(eff)
		s.pendingAd = &ad
	}

	s.emit(events.EvtNextTrack, events.NextTrackPayload{
		Playback:      s.sync.State(now),
		PreviousTrack: res.Previous,
		QueueLength:   s.sync.QueueLen(),
		AdPending:     decision.AdDue,
	})

	if decision.AdDue {
		s.emit(events.EvtAdRequired, events.AdRequiredPayload{Ad: *s.pendingAd, Tier: eff})
	}

	return nil
}

func (s *State) previousTrack(now time.Time, c PreviousTrack) error {
	m, err := s.authorize(now, c.Origin, permission.ActionPreviousTrack, nil)
	if err != nil {
		return err
	}
	if err = s.adInProgress(); err != nil {
		return err
	}

	outcome, err := s.sync.Previous(now)
	if err != nil {
		return err
	}

	switch outcome {
	case playback.PreviousReplayed:
		s.emitReplay(now)
	default:
		s.emit(events.EvtRestartTrack, s.playbackPayload(now, m.UserID))
	}

	return nil
}

func (s *State) restartTrack(now time.Time, c RestartTrack) error {
	m, err := s.authorize(now, c.Origin, permission.ActionRestartTrack, nil)
	if err != nil {
		return err
	}

	if err = s.sync.Restart(now); err != nil {
		return err
	}
	s.emit(events.EvtRestartTrack, s.playbackPayload(now, m.UserID))

	return nil
}

func (s *State) replayTrack(now time.Time, c ReplayTrack) error {
	if _, err := s.authorize(now, c.Origin, permission.ActionReplayTrack, nil); err != nil {
		return err
	}
	if err := s.adInProgress(); err != nil {
		return err
	}

	if err := s.sync.Replay(now, c.TrackID); err != nil {
		return err
	}
	s.emitReplay(now)

	return nil
}

func (s *State) emitReplay(now time.Time) {
	s.emit(events.EvtReplayTrack, events.ReplayPayload{
		Playback: s.sync.State(now),
		Queue:    s.sync.Queue(),
		History:  s.sync.History(),
	})
}

func (s *State) syncAllUsers(now time.Time, c SyncAllUsers) error {
	m, err := s.authorize(now, c.Origin, permission.ActionSyncAllUsers, nil)
	if err != nil {
		return err
	}

	if err = s.sync.Seek(now, c.PositionMs); err != nil {
		return err
	}
	s.emit(events.EvtSyncAllUsers, s.playbackPayload(now, m.UserID))

	return nil
}

// syncPosition - совещательный отчёт клиента. Отчёты от тех, кому нельзя
// управлять воспроизведением, молча отбрасываются.
func (s *State) syncPosition(now time.Time, c SyncPosition) {
	if _, err := s.authorize(now, c.Origin, permission.ActionSyncPosition, nil); err != nil {
		return
	}

	s.sync.ObservePosition(now, c.PositionMs, c.DurationMs)
}

func (s *State) updateSettings(now time.Time, c UpdateSettings) error {
	patch := c.Patch
	_, err := s.authorize(now, c.Origin, permission.ActionUpdateSettings, func(subj *permission.Subject) {
		subj.Patch = &patch
	})
	if err != nil {
		return err
	}

	prev := s.room.Settings
	next := patch.Apply(prev)
	if next == prev {
		return nil
	}

	s.room.Settings = next
	if prev.DJMode && !next.DJMode {
		s.decks.Reset()
	}
	s.emit(events.EvtRoomSettingsUpdated, s.settingsPayload(now))

	return nil
}

func (s *State) refreshRoles() {
	for id, m := range s.members {
		m.IsAdmin = !m.Anonymous && s.room.IsAdmin(m.UserID)
		s.members[id] = m
	}
}

func (s *State) addAdmin(now time.Time, c AddAdmin) error {
	if _, err := s.authorize(now, c.Origin, permission.ActionManageAdmins, nil); err != nil {
		return err
	}
	if c.UserID == uuid.Nil || c.UserID == s.room.OwnerID {
		return errs.InvalidCommand("this user cannot be made an admin")
	}
	if s.room.IsAdmin(c.UserID) {
		return nil
	}

	s.room.AdminIDs = append(s.room.AdminIDs, c.UserID)
	s.refreshRoles()
	s.emit(events.EvtRoomAdminsUpdated, events.AdminsPayload{AdminIDs: slices.Clone(s.room.AdminIDs)})

	return nil
}

func (s *State) removeAdmin(now time.Time, c RemoveAdmin) error {
	if _, err := s.authorize(now, c.Origin, permission.ActionManageAdmins, nil); err != nil {
		return err
	}
	if !s.room.IsAdmin(c.UserID) {
		return errs.InvalidCommand("user is not an admin of this room")
	}

	s.room.AdminIDs = slices.DeleteFunc(s.room.AdminIDs, func(id uuid.UUID) bool { return id == c.UserID })
	s.refreshRoles()
	s.emit(events.EvtRoomAdminsUpdated, events.AdminsPayload{AdminIDs: slices.Clone(s.room.AdminIDs)})

	return nil
}

func (s *State) dismissAd(now time.Time, c DismissAd) error {
	m, err := s.authorize(now, c.Origin, permission.ActionDismissAd, nil)
	if err != nil {
		return err
	}
	if s.pendingAd == nil {
		return errs.InvalidCommand("no ad is pending")
	}

	s.pendingAd = nil
	if _, err = s.sync.Play(now); err != nil {
		return err
	}
	s.emit(events.EvtPlay, s.playbackPayload(now, m.UserID))

	return nil
}

func (s *State) installBoost(now time.Time, c InstallBoost) error {
	if _, err := s.authorize(now, c.Origin, permission.ActionPurchaseBoost, nil); err != nil {
		return err
	}

	if exp := c.Purchase.ExpiresAt; !exp.IsZero() && !exp.After(now) {
		return errs.InvalidCommand("boost purchase has expired")
	}

	boost, changed := s.policy.ApplyBoost(s.room.ActiveBoost, c.Purchase, now)
	if !changed {
		return nil
	}

	s.room.ActiveBoost = boost
	s.emit(events.EvtBoostActivated, s.boostPayload(now))

	return nil
}

// expireBoost идемпотентен: повторный вызов после снятия буста ничего не делает
func (s *State) expireBoost(now time.Time) {
	if !adpolicy.Expired(s.room.ActiveBoost, now) {
		return
	}

	s.room.ActiveBoost = nil
	s.emit(events.EvtBoostExpired, s.boostPayload(now))

	if s.room.Settings.DJMode && s.effectiveTier(now) < models.TierPro {
		s.room.Settings.DJMode = false
		s.room.Settings = s.room.Settings.Normalize()
		s.decks.Reset()
		s.emit(events.EvtRoomSettingsUpdated, s.settingsPayload(now))
	}
}

func (s *State) deckGate(now time.Time, o Origin, decks ...int) error {
	if _, err := s.authorize(now, o, permission.ActionDJDeck, nil); err != nil {
		return err
	}

	for _, d := range decks {
		if err := tempo.CheckIndex(d, s.room.Settings.DJPlayers); err != nil {
			return err
		}
	}

	return nil
}

func (s *State) emitDeck(now time.Time, i int) {
	s.emit(events.EvtDJDeckUpdated, events.DeckPayload{Deck: s.decks.Deck(i, now)})
}

func (s *State) deckLoad(now time.Time, c DeckLoad) error {
	if err := s.deckGate(now, c.Origin, c.Deck); err != nil {
		return err
	}

	track := c.Track
	if track.URL == "" {
		var ok bool
		if track, ok = s.roomTrack(now, c.TrackID); !ok {
			return errs.InvalidCommand("track is not in this room")
		}
	}

	s.decks.Load(c.Deck, track, now)
	if s.decks.Deck(c.Deck, now).BPM == nil {
		s.analyze = &AnalysisRequest{Deck: c.Deck, Track: track}
	}
	if c.Lookup && c.Track.URL != "" {
		s.lookup = append(s.lookup, track)
	}
	s.emitDeck(now, c.Deck)

	return nil
}

// roomTrack ищет трек в очереди, среди текущего и в истории
func (s *State) roomTrack(now time.Time, id uuid.UUID) (models.Track, bool) {
	if t, ok := s.sync.Find(id); ok {
		return t, true
	}
	if cur := s.sync.State(now).CurrentTrack; cur != nil && cur.ID == id {
		return *cur, true
	}

	history := s.sync.History()
	i := slices.IndexFunc(history, func(t models.Track) bool { return t.ID == id })
	if i < 0 {
		return models.Track{}, false
	}

	return history[i], true
}

func (s *State) deckPlay(now time.Time, c DeckPlay) error {
	if err := s.deckGate(now, c.Origin, c.Deck); err != nil {
		return err
	}
	if err := s.decks.Play(c.Deck, now); err != nil {
		return err
	}
	s.emitDeck(now, c.Deck)

	return nil
}

func (s *State) deckPause(now time.Time, c DeckPause) error {
	if err := s.deckGate(now, c.Origin, c.Deck); err != nil {
		return err
	}

	s.decks.Pause(c.Deck, now)
	s.emitDeck(now, c.Deck)

	return nil
}

func (s *State) deckSeek(now time.Time, c DeckSeek) error {
	if err := s.deckGate(now, c.Origin, c.Deck); err != nil {
		return err
	}
	if err := s.decks.Seek(c.Deck, c.PositionMs, now); err != nil {
		return err
	}
	s.emitDeck(now, c.Deck)

	return nil
}

func (s *State) deckVolume(now time.Time, c DeckVolume) error {
	if err := s.deckGate(now, c.Origin, c.Deck); err != nil {
		return err
	}
	if err := s.decks.SetVolume(c.Deck, c.Volume); err != nil {
		return err
	}
	s.emitDeck(now, c.Deck)

	return nil
}

func (s *State) syncDecks(now time.Time, c SyncDecks) error {
	if err := s.deckGate(now, c.Origin, c.Source, c.Target); err != nil {
		return err
	}

	res, err := s.decks.Sync(c.Source, c.Target, now)
	if err != nil {
		return err
	}
	s.emit(events.EvtDJTracksSynced, events.DecksSyncedPayload{Sync: res, Deck: s.decks.Deck(c.Target, now)})

	return nil
}

func (s *State) deckBPMResolved(now time.Time, c DeckBPMResolved) {
	if c.Deck < 0 || c.Deck >= models.MaxDJPlayers {
		return
	}

	if s.decks.SetBPM(c.Deck, c.TrackID, c.BPM) {
		s.emitDeck(now, c.Deck)
	}
}

// trackInfoResolved не проверяет права: команду ставит сам актор.
// Трек мог уже уйти из комнаты, тогда ответ отбрасывается.
func (s *State) trackInfoResolved(now time.Time, c TrackInfoResolved) {
	track, found := s.sync.UpdateInfo(c.TrackID, c.Info)
	decks := s.decks.UpdateInfo(c.TrackID, c.Info)
	if !found && len(decks) == 0 {
		return
	}

	if !found {
		track = *s.decks.Deck(decks[0], now).Track
	}
	s.emit(events.EvtTrackUpdated, events.TrackUpdatedPayload{Track: track, Decks: decks})
}

func (s *State) evictIfIdle(now time.Time, ttl time.Duration) {
	if len(s.members) > 0 || s.room.ActiveBoost.Active(now) || now.Sub(s.lastActivity) < ttl {
		return
	}

	s.reply = s.Durable(now)
	s.stop = true
}

// Durable - долговечная часть состояния для сохранения
func (s *State) Durable(now time.Time) *models.Room {
	r := *s.room
	r.AdminIDs = slices.Clone(s.room.AdminIDs)
	r.Queue = s.sync.Queue()
	r.History = s.sync.History()
	r.UpdatedAt = now
	if s.room.ActiveBoost != nil {
		b := *s.room.ActiveBoost
		r.ActiveBoost = &b
	}

	return &r
}

func (s *State) Snapshot(now time.Time, you runtime.RoomUser) output.RoomSnapshot {
	eff := s.effectiveTier(now)

	var pendingAd *models.Ad
	if s.pendingAd != nil {
		ad := *s.pendingAd
		pendingAd = &ad
	}

	return output.RoomSnapshot{
		RoomID:        s.room.ID,
		ShortCode:     s.room.ShortCode,
		Version:       s.version,
		OwnerID:       s.room.OwnerID,
		AdminIDs:      slices.Clone(s.room.AdminIDs),
		Settings:      s.room.Settings,
		CreatorTier:   s.room.CreatorTier,
		EffectiveTier: eff,
		QueueLimit:    s.policy.Table().QueueLimit(eff),
		ActiveBoost:   s.boostCopy(),
		Queue:         s.sync.Queue(),
		History:       s.sync.History(),
		Playback:      s.sync.State(now),
		PendingAd:     pendingAd,
		Decks:         s.decks.Decks(s.room.Settings.DJPlayers, now),
		Users:         s.usersPayload().Users,
		You:           you,
	}
}

func (s *State) Summary(now time.Time) output.RoomSummary {
	return output.RoomSummary{
		ID:            s.room.ID,
		ShortCode:     s.room.ShortCode,
		OwnerID:       s.room.OwnerID,
		Settings:      s.room.Settings,
		EffectiveTier: s.effectiveTier(now),
		QueueLength:   s.sync.QueueLen(),
		Listeners:     len(s.members),
		Live:          true,
	}
}

func (s *State) boostCopy() *models.Boost {
	if s.room.ActiveBoost == nil {
		return nil
	}
	b := *s.room.ActiveBoost

	return &b
}
