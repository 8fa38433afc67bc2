// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice adapts a speech-to-text capability to the chat composer.
package voice

import (
	"errors"
	"sync"
	"unicode"
)

// ErrUnsupported indicates no speech-to-text capability is available on
// this host. Surfaced once as an unsupported notice; conversation state
// is unaffected.
var ErrUnsupported = errors.New("speech recognition is not supported on this system")

// ErrAlreadyRecording indicates Start was called while a recognition
// session is active. Callers normally use Toggle, which never hits this.
var ErrAlreadyRecording = errors.New("a recording session is already active")

// =============================================================================
// RECOGNIZER CONTRACT
// =============================================================================

// EventKind discriminates recognizer events.
type EventKind int

const (
	// EventTranscript carries a transcribed text fragment.
	EventTranscript EventKind = iota
	// EventNetworkError signals the recognizer lost connectivity.
	EventNetworkError
	// EventError signals any other recognizer failure.
	EventError
)

// Event is one occurrence during a recognition session.
type Event struct {
	Kind       EventKind
	Transcript string
	Err        error
}

// Recognizer abstracts a speech-to-text backend. Each Start opens one
// recognition session and returns a channel that delivers its events and
// closes when the session ends (naturally or via Stop). Implementations
// wrap whatever the platform offers; tests use fakes.
type Recognizer interface {
	Start() (<-chan Event, error)
	Stop()
}

// =============================================================================
// ADAPTER
// =============================================================================

// State is the adapter's recording state.
type State int

const (
	Idle State = iota
	Recording
)

// String returns the state name.
func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Adapter runs the {Idle, Recording} state machine over a Recognizer.
//
// Transcript fragments are forwarded through OnTranscript for the
// composer to append. A network error surfaces through OnNetworkError and
// ends the session; any other recognizer error returns the adapter to
// Idle silently. Only one recognition session is active at a time.
type Adapter struct {
	mu    sync.Mutex
	state State
	rec   Recognizer
	seq   int // session generation, guards against stale event loops

	// OnTranscript receives each transcribed fragment.
	OnTranscript func(fragment string)

	// OnNetworkError fires when recognition fails from connectivity loss
	// ("check your connection" notice in the UI).
	OnNetworkError func()

	// OnStateChange fires after every Idle/Recording transition.
	OnStateChange func(State)
}

// NewAdapter creates an adapter over rec. A nil recognizer means the host
// has no speech capability: Start fails fast with ErrUnsupported.
func NewAdapter(rec Recognizer) *Adapter {
	return &Adapter{rec: rec, state: Idle}
}

// Supported reports whether a speech backend is available at all.
func (a *Adapter) Supported() bool {
	return a.rec != nil
}

// State returns the current recording state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Toggle starts recording from Idle and stops it from Recording. This is
// the binding the UI uses: the mic control acts as a toggle.
func (a *Adapter) Toggle() error {
	if a.State() == Recording {
		a.Stop()
		return nil
	}
	return a.Start()
}

// Start begins a recognition session. Valid only from Idle; fails fast
// with ErrUnsupported when no recognizer is available, leaving the state
// untouched.
func (a *Adapter) Start() error {
	a.mu.Lock()
	if a.state == Recording {
		a.mu.Unlock()
		return ErrAlreadyRecording
	}
	if a.rec == nil {
		a.mu.Unlock()
		return ErrUnsupported
	}

	events, err := a.rec.Start()
	if err != nil {
		a.mu.Unlock()
		return err
	}

	a.state = Recording
	a.seq++
	seq := a.seq
	onStateChange := a.OnStateChange
	a.mu.Unlock()

	if onStateChange != nil {
		onStateChange(Recording)
	}

	go a.consume(seq, events)
	return nil
}

// Stop ends the active recognition session. Idempotent: safe to call from
// Idle or after recognition already ended on its own.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if a.state != Recording {
		a.mu.Unlock()
		return
	}
	rec := a.rec
	a.mu.Unlock()

	// The recognizer closes the event channel, which lands the consume
	// loop back in Idle.
	rec.Stop()
}

// consume drains one session's events until its channel closes.
func (a *Adapter) consume(seq int, events <-chan Event) {
	for ev := range events {
		switch ev.Kind {
		case EventTranscript:
			a.mu.Lock()
			stale := a.seq != seq
			onTranscript := a.OnTranscript
			a.mu.Unlock()
			if !stale && onTranscript != nil && ev.Transcript != "" {
				onTranscript(ev.Transcript)
			}
		case EventNetworkError:
			a.mu.Lock()
			stale := a.seq != seq
			onNetworkError := a.OnNetworkError
			a.mu.Unlock()
			if !stale && onNetworkError != nil {
				onNetworkError()
			}
		case EventError:
			// Any other error ends the session silently.
		}
	}

	a.mu.Lock()
	var onStateChange func(State)
	if a.seq == seq && a.state == Recording {
		a.state = Idle
		onStateChange = a.OnStateChange
	}
	a.mu.Unlock()

	if onStateChange != nil {
		onStateChange(Idle)
	}
}

// =============================================================================
// TRANSCRIPT JOINING
// =============================================================================

// AppendTranscript merges a transcript fragment into pending input text,
// inserting exactly one separating space unless the existing text is
// empty or already ends in whitespace.
func AppendTranscript(existing, fragment string) string {
	if fragment == "" {
		return existing
	}
	if existing == "" {
		return fragment
	}
	runes := []rune(existing)
	if unicode.IsSpace(runes[len(runes)-1]) {
		return existing + fragment
	}
	return existing + " " + fragment
}

// NewUnsupported returns an adapter with no backend, for hosts without a
// speech capability.
func NewUnsupported() *Adapter {
	return NewAdapter(nil)
}
