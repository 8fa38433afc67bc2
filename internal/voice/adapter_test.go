// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// FAKE RECOGNIZER
// =============================================================================

// fakeRecognizer feeds scripted events into the adapter.
type fakeRecognizer struct {
	mu       sync.Mutex
	events   chan Event
	startErr error
	started  int
	stopped  int
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{}
}

func (f *fakeRecognizer) Start() (<-chan Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started++
	f.events = make(chan Event, 16)
	return f.events, nil
}

func (f *fakeRecognizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	if f.events != nil {
		close(f.events)
		f.events = nil
	}
}

func (f *fakeRecognizer) emit(ev Event) {
	f.mu.Lock()
	ch := f.events
	f.mu.Unlock()
	if ch != nil {
		ch <- ev
	}
}

// waitForState polls until the adapter reaches want or the deadline hits.
func waitForState(t *testing.T, a *Adapter, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("adapter never reached state %v (now %v)", want, a.State())
}

// =============================================================================
// CAPABILITY TESTS
// =============================================================================

func TestStart_Unsupported(t *testing.T) {
	a := NewUnsupported()

	transcripts := 0
	a.OnTranscript = func(string) { transcripts++ }

	err := a.Start()
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Start error = %v, want ErrUnsupported", err)
	}
	if a.State() != Idle {
		t.Errorf("state = %v, want Idle", a.State())
	}
	if transcripts != 0 {
		t.Error("pending input mutated despite unsupported capability")
	}
	if a.Supported() {
		t.Error("Supported = true with nil recognizer")
	}
}

func TestToggle_Unsupported(t *testing.T) {
	a := NewUnsupported()
	if err := a.Toggle(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Toggle error = %v, want ErrUnsupported", err)
	}
}

// =============================================================================
// STATE MACHINE TESTS
// =============================================================================

func TestStartStop_Cycle(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec)

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if a.State() != Recording {
		t.Fatalf("state = %v, want Recording", a.State())
	}

	a.Stop()
	waitForState(t, a, Idle)

	if rec.started != 1 || rec.stopped != 1 {
		t.Errorf("recognizer started=%d stopped=%d, want 1/1", rec.started, rec.stopped)
	}
}

func TestStart_WhileRecording(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec)

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := a.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start error = %v, want ErrAlreadyRecording", err)
	}
	a.Stop()
}

func TestToggle_StartsThenStops(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec)

	if err := a.Toggle(); err != nil {
		t.Fatalf("first Toggle failed: %v", err)
	}
	if a.State() != Recording {
		t.Fatalf("state after first Toggle = %v, want Recording", a.State())
	}

	if err := a.Toggle(); err != nil {
		t.Fatalf("second Toggle failed: %v", err)
	}
	waitForState(t, a, Idle)
}

func TestStop_Idempotent(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec)

	// Stop from Idle is a no-op.
	a.Stop()
	if rec.stopped != 0 {
		t.Error("Stop from Idle reached the recognizer")
	}

	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	a.Stop()
	waitForState(t, a, Idle)
	a.Stop()
	a.Stop()
	if rec.stopped != 1 {
		t.Errorf("recognizer stopped %d times, want 1", rec.stopped)
	}
}

func TestRecognitionEndsOnItsOwn(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec)

	if err := a.Start(); err != nil {
		t.Fatal(err)
	}

	// Session ends naturally (e.g. silence timeout): channel closes
	// without Stop being called.
	rec.mu.Lock()
	close(rec.events)
	rec.events = nil
	rec.mu.Unlock()

	waitForState(t, a, Idle)

	// Stop afterwards is still safe.
	a.Stop()
}

func TestStart_RecognizerError(t *testing.T) {
	rec := newFakeRecognizer()
	rec.startErr = errors.New("microphone busy")
	a := NewAdapter(rec)

	if err := a.Start(); err == nil {
		t.Fatal("Start succeeded despite recognizer error")
	}
	if a.State() != Idle {
		t.Errorf("state = %v, want Idle after failed start", a.State())
	}
}

// =============================================================================
// EVENT TESTS
// =============================================================================

func TestTranscriptEvents_Forwarded(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec)

	var mu sync.Mutex
	var got []string
	a.OnTranscript = func(fragment string) {
		mu.Lock()
		got = append(got, fragment)
		mu.Unlock()
	}

	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	rec.emit(Event{Kind: EventTranscript, Transcript: "my dog"})
	rec.emit(Event{Kind: EventTranscript, Transcript: "keeps scratching"})
	a.Stop()
	waitForState(t, a, Idle)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "my dog" || got[1] != "keeps scratching" {
		t.Errorf("transcripts = %v", got)
	}
}

func TestNetworkError_SurfacesAndEnds(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec)

	var mu sync.Mutex
	networkErrors := 0
	a.OnNetworkError = func() {
		mu.Lock()
		networkErrors++
		mu.Unlock()
	}

	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	rec.emit(Event{Kind: EventNetworkError})
	rec.Stop() // recognizer gives up after the network error
	waitForState(t, a, Idle)

	mu.Lock()
	defer mu.Unlock()
	if networkErrors != 1 {
		t.Errorf("network error surfaced %d times, want 1", networkErrors)
	}
}

func TestOtherError_SilentReturnToIdle(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec)

	networkErrors := 0
	a.OnNetworkError = func() { networkErrors++ }

	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	rec.emit(Event{Kind: EventError, Err: errors.New("no-speech")})
	rec.Stop()
	waitForState(t, a, Idle)

	if networkErrors != 0 {
		t.Error("generic recognizer error surfaced as network error")
	}
}

func TestStateChangeCallback(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec)

	var mu sync.Mutex
	var transitions []State
	a.OnStateChange = func(s State) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
	}

	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	a.Stop()
	waitForState(t, a, Idle)

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 2 || transitions[0] != Recording || transitions[1] != Idle {
		t.Errorf("transitions = %v, want [recording idle]", transitions)
	}
}

// =============================================================================
// TRANSCRIPT JOINING TESTS
// =============================================================================

func TestAppendTranscript(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		fragment string
		want     string
	}{
		{"empty input", "", "hello", "hello"},
		{"empty fragment", "hello", "", "hello"},
		{"needs separator", "my dog", "is scratching", "my dog is scratching"},
		{"already ends in space", "my dog ", "is scratching", "my dog is scratching"},
		{"ends in newline", "my dog\n", "is scratching", "my dog\nis scratching"},
		{"ends in tab", "my dog\t", "is scratching", "my dog\tis scratching"},
		{"unicode tail", "猫が", "鳴く", "猫が 鳴く"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AppendTranscript(tt.existing, tt.fragment); got != tt.want {
				t.Errorf("AppendTranscript(%q, %q) = %q, want %q",
					tt.existing, tt.fragment, got, tt.want)
			}
		})
	}
}
