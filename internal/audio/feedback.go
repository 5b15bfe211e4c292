package audio

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MuteKey is the durable storage key for the mute flag. Scoped per profile,
// not per wheel.
const MuteKey = "wheel_click_muted"

// MinClickInterval is the debounce window in ticker time. Near the end of a
// spin the needle crawls and boundary crossings bunch up; without the window
// the click stutters.
const MinClickInterval = 50 * time.Millisecond

// ClickPlayer plays the single click asset, loaded once and reused.
type ClickPlayer interface {
	Play() error
}

// Store persists the mute flag across restarts.
type Store interface {
	GetBool(key string) (bool, error)
	SetBool(key string, value bool) error
}

// Feedback plays a bounded-rate click on sector boundary crossings. It
// implements the spin tick sink.
type Feedback struct {
	mu        sync.Mutex
	player    ClickPlayer
	store     Store
	muted     bool
	sinceLast time.Duration
}

// NewFeedback creates the click feedback, loading the persisted mute flag.
// A store read failure defaults to unmuted.
func NewFeedback(player ClickPlayer, store Store) *Feedback {
	f := &Feedback{
		player:    player,
		store:     store,
		sinceLast: MinClickInterval,
	}
	muted, err := store.GetBool(MuteKey)
	if err != nil {
		log.Warn().Err(err).Msg("could not load mute flag, defaulting to unmuted")
		return f
	}
	f.muted = muted
	return f
}

// Advance accumulates ticker time for the debounce window.
func (f *Feedback) Advance(delta time.Duration) {
	f.mu.Lock()
	f.sinceLast += delta
	f.mu.Unlock()
}

// Boundary handles one sector boundary crossing. Playback failures are
// logged and swallowed; a missing click must never fail a spin.
func (f *Feedback) Boundary() {
	f.mu.Lock()
	if f.muted || f.sinceLast < MinClickInterval {
		f.mu.Unlock()
		return
	}
	f.sinceLast = 0
	f.mu.Unlock()

	if err := f.player.Play(); err != nil {
		log.Debug().Err(err).Msg("click playback failed")
	}
}

// Muted reports the current mute flag.
func (f *Feedback) Muted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

// SetMuted updates and persists the mute flag.
func (f *Feedback) SetMuted(muted bool) error {
	if err := f.store.SetBool(MuteKey, muted); err != nil {
		return err
	}
	f.mu.Lock()
	f.muted = muted
	f.mu.Unlock()
	return nil
}

// Toggle flips the mute flag and returns the new value.
func (f *Feedback) Toggle() (bool, error) {
	f.mu.Lock()
	next := !f.muted
	f.mu.Unlock()
	if err := f.SetMuted(next); err != nil {
		return !next, err
	}
	return next, nil
}
