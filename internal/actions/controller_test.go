package actions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-fitness-planner/internal/imagegen"
	"ai-fitness-planner/internal/logging"
	"ai-fitness-planner/internal/render"
	"ai-fitness-planner/internal/speech"
)

type mockImages struct {
	release chan struct{}
	err     error
}

func (m *mockImages) Generate(ctx context.Context, req imagegen.Request) (imagegen.Result, error) {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return imagegen.Result{}, ctx.Err()
		}
	}
	if m.err != nil {
		return imagegen.Result{}, m.err
	}
	return imagegen.Result{URL: "https://img.example/" + req.Prompt + ".png"}, nil
}

type mockSynth struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (m *mockSynth) Synthesize(_ context.Context, req speech.Request) (speech.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req.Text)
	if m.err != nil {
		return speech.Clip{}, m.err
	}
	return speech.Clip{Data: []byte(req.Text), Format: "mp3"}, nil
}

func (m *mockSynth) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockPlayback struct {
	done     chan error
	once     sync.Once
	stopped  bool
	lateStop bool
}

func (p *mockPlayback) Done() <-chan error { return p.done }

func (p *mockPlayback) Stop() {
	if p.lateStop {
		p.stopped = true
		return
	}
	p.once.Do(func() {
		p.stopped = true
		p.done <- speech.ErrStopped
	})
}

func (p *mockPlayback) end(err error) {
	p.once.Do(func() { p.done <- err })
}

type mockPlayer struct {
	mu        sync.Mutex
	playbacks []*mockPlayback
	lateStop  bool
}

func (m *mockPlayer) Play(context.Context, speech.Clip) (speech.Playback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pb := &mockPlayback{done: make(chan error, 1), lateStop: m.lateStop}
	m.playbacks = append(m.playbacks, pb)
	return pb, nil
}

func (m *mockPlayer) last() *mockPlayback {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playbacks[len(m.playbacks)-1]
}

func waitFor(t *testing.T, updates <-chan Update, typ render.EventType) Update {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u := <-updates:
			if u.Event.Type == typ && u.Accepted {
				return u
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func newController(images imagegen.Generator, synth speech.Synthesizer, player speech.Player) *Controller {
	return NewController(images, synth, player, logging.NewNop(), WithTimeout(time.Second))
}

func TestImageLifecycle(t *testing.T) {
	images := &mockImages{release: make(chan struct{})}
	c := newController(images, &mockSynth{}, &mockPlayer{})
	defer c.Close()

	key := render.ItemKey("workout", 2)
	done, err := c.StartImage(key, imagegen.Request{Prompt: "squats", Type: render.ImageExercise})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := c.State().Image(key).Status; got != render.ImageGenerating {
		t.Errorf("Expected generating, got %s", got)
	}

	if _, err := c.StartImage(key, imagegen.Request{Prompt: "squats"}); !errors.Is(err, ErrImageInProgress) {
		t.Errorf("Expected ErrImageInProgress, got %v", err)
	}

	other := render.ItemKey("workout", 3)
	otherDone, err := c.StartImage(other, imagegen.Request{Prompt: "lunges"})
	if err != nil {
		t.Fatalf("Expected independent keys to run concurrently, got %v", err)
	}

	close(images.release)
	img := <-done
	<-otherDone

	if img.Status != render.ImageReady || img.URL != "https://img.example/squats.png" {
		t.Errorf("Unexpected result %+v", img)
	}
	if got := c.State().Image(key); got.Status != render.ImageReady || got.URL != img.URL {
		t.Errorf("Unexpected state %+v", got)
	}
}

func TestImageFailureClearsGenerating(t *testing.T) {
	c := newController(&mockImages{err: errors.New("quota")}, &mockSynth{}, &mockPlayer{})
	defer c.Close()

	key := render.ItemKey("diet", 4)
	img, err := c.GenerateImage(context.Background(), key, imagegen.Request{Prompt: "rice", Type: render.ImageMeal})
	if err != nil {
		t.Fatal(err)
	}
	if img.Status != render.ImageFailed || img.Reason == "" {
		t.Errorf("Expected failure with reason, got %+v", img)
	}
	if got := c.State().Image(key).Status; got != render.ImageFailed {
		t.Errorf("Expected failed state, got %s", got)
	}

	if _, err := c.StartImage(key, imagegen.Request{Prompt: "rice"}); err != nil {
		t.Errorf("Expected retry after failure to be allowed, got %v", err)
	}
}

func TestResetDiscardsStaleResults(t *testing.T) {
	images := &mockImages{release: make(chan struct{})}
	c := newController(images, &mockSynth{}, &mockPlayer{})
	defer c.Close()

	key := render.ItemKey("workout", 1)
	done, err := c.StartImage(key, imagegen.Request{Prompt: "plank"})
	if err != nil {
		t.Fatal(err)
	}

	c.Reset()
	img := <-done

	if img.Status != render.ImageFailed {
		t.Errorf("Expected the cancelled request to fail, got %+v", img)
	}
	state := c.State()
	if state.Generation != 1 {
		t.Errorf("Expected generation 1, got %d", state.Generation)
	}
	if got := state.Image(key).Status; got != render.ImageIdle {
		t.Errorf("Expected stale result to be ignored, got %s", got)
	}
}

func TestSingleActivePlayback(t *testing.T) {
	player := &mockPlayer{}
	c := newController(&mockImages{}, &mockSynth{}, player)
	defer c.Close()

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	if _, err := c.Listen(context.Background(), render.DayKey(1), "Legs. Squats."); err != nil {
		t.Fatal(err)
	}
	first := player.last()

	if _, err := c.Listen(context.Background(), render.DayKey(1), "Legs. Squats."); !errors.Is(err, ErrAlreadyPlaying) {
		t.Errorf("Expected ErrAlreadyPlaying, got %v", err)
	}

	if _, err := c.Listen(context.Background(), render.DayKey(2), "Arms. Curls."); err != nil {
		t.Fatal(err)
	}
	if !first.stopped {
		t.Error("Expected the first playback to be stopped")
	}

	state := c.State()
	if !state.Playing(render.DayKey(2)) || state.Playing(render.DayKey(1)) {
		t.Errorf("Expected only day-2 playing, got %+v", state.Audio)
	}

	waitFor(t, updates, render.EventAudioStopped)
	waitFor(t, updates, render.EventAudioStarted)
}

func TestStopIsImmediate(t *testing.T) {
	synth := &mockSynth{}
	player := &mockPlayer{}
	c := newController(&mockImages{}, synth, player)
	defer c.Close()

	key := render.DayKey(3)
	if _, err := c.Listen(context.Background(), key, "Core. Plank."); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(key); err != nil {
		t.Fatal(err)
	}

	if got := c.State().Audio.Status; got != render.AudioStopped {
		t.Errorf("Expected stopped, got %s", got)
	}
	if !player.last().stopped {
		t.Error("Expected playback to be halted")
	}
	if synth.count() != 1 {
		t.Errorf("Expected no extra synthesis on stop, got %d calls", synth.count())
	}
	if err := c.Stop(key); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Expected ErrNotPlaying, got %v", err)
	}
}

func TestLateStopDoesNotClearRestartedKey(t *testing.T) {
	player := &mockPlayer{lateStop: true}
	c := newController(&mockImages{}, &mockSynth{}, player)
	defer c.Close()

	key := render.DayKey(1)
	if _, err := c.Listen(context.Background(), key, "Legs."); err != nil {
		t.Fatal(err)
	}
	first := player.last()
	if err := c.Stop(key); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Listen(context.Background(), key, "Legs."); err != nil {
		t.Fatalf("Expected to restart %s, got %v", key, err)
	}

	first.end(speech.ErrStopped)
	time.Sleep(50 * time.Millisecond)

	st := c.State()
	if !st.Playing(key) {
		t.Fatalf("Expected %s to keep playing, got %+v", key, st.Audio)
	}
	if err := c.Stop(key); err != nil {
		t.Errorf("Expected the restarted session to stop, got %v", err)
	}
	player.last().end(speech.ErrStopped)
	if c.State().Playing(key) {
		t.Error("Expected key to be cleared after stop")
	}
}

func TestPlaybackEndClearsKey(t *testing.T) {
	player := &mockPlayer{}
	c := newController(&mockImages{}, &mockSynth{}, player)
	defer c.Close()

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	key := render.DayKey(1)
	if _, err := c.Listen(context.Background(), key, "Legs."); err != nil {
		t.Fatal(err)
	}
	player.last().end(nil)
	waitFor(t, updates, render.EventAudioEnded)

	if c.State().Playing(key) {
		t.Error("Expected key to be cleared after playback ended")
	}
	if _, err := c.Listen(context.Background(), key, "Legs."); err != nil {
		t.Errorf("Expected to listen again, got %v", err)
	}

	player.last().end(errors.New("device busy"))
	u := waitFor(t, updates, render.EventAudioFailed)
	if u.State.Audio.Reason == "" {
		t.Error("Expected a failure reason")
	}
}

func TestSynthesisFailure(t *testing.T) {
	c := newController(&mockImages{}, &mockSynth{err: errors.New("offline")}, &mockPlayer{})
	defer c.Close()

	key := render.DayKey(1)
	if _, err := c.Listen(context.Background(), key, "Legs."); err == nil {
		t.Fatal("Expected an error")
	}
	if c.State().Playing(key) {
		t.Error("Expected key not to be left playing")
	}
	if err := c.Stop(key); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Expected ErrNotPlaying, got %v", err)
	}
}

type remoteOnlyPlayback struct {
	*mockPlayback
}

func (p remoteOnlyPlayback) Finish(err error) { p.end(err) }
func (p remoteOnlyPlayback) URL() string      { return "/api/v1/audio/clip-1" }

type remotePlayer struct{}

func (remotePlayer) Play(context.Context, speech.Clip) (speech.Playback, error) {
	return remoteOnlyPlayback{&mockPlayback{done: make(chan error, 1)}}, nil
}

func TestFinishedFromClient(t *testing.T) {
	c := newController(&mockImages{}, &mockSynth{}, remotePlayer{})
	defer c.Close()

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	key := render.DayKey(2)
	sess, err := c.Listen(context.Background(), key, "Arms.")
	if err != nil {
		t.Fatal(err)
	}
	if sess.URL != "/api/v1/audio/clip-1" {
		t.Errorf("Expected clip url, got %q", sess.URL)
	}

	if err := c.Finished(render.DayKey(5), ""); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Expected ErrNotPlaying for another key, got %v", err)
	}
	if err := c.Finished(key, ""); err != nil {
		t.Fatal(err)
	}
	waitFor(t, updates, render.EventAudioEnded)
}
