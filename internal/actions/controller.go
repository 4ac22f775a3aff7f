// Package actions runs the image and audio side channels of a rendered plan
// and feeds their outcomes through the render reducer.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ai-fitness-planner/internal/imagegen"
	"ai-fitness-planner/internal/render"
	"ai-fitness-planner/internal/speech"
)

var (
	ErrImageInProgress = errors.New("image is already being generated")
	ErrAlreadyPlaying  = errors.New("audio is already playing")
	ErrNotPlaying      = errors.New("audio is not playing")
	ErrSuperseded      = errors.New("request was superseded")
)

// Update is published for every side-channel event, accepted or not.
type Update struct {
	Event    render.Event `json:"event"`
	Accepted bool         `json:"accepted"`
	State    render.State `json:"state"`
}

// Session identifies a started playback. URL is set when a remote client
// plays the clip.
type Session struct {
	Key render.Key `json:"key"`
	URL string     `json:"url,omitempty"`
}

type imageJob struct {
	cancel context.CancelFunc
}

type audioSession struct {
	key      render.Key
	cancel   context.CancelFunc
	playback speech.Playback
}

// Controller owns the side-channel state of the current plan. All state
// changes go through render.Apply under one mutex.
type Controller struct {
	images  imagegen.Generator
	synth   speech.Synthesizer
	player  speech.Player
	voice   string
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	state  render.State
	jobs   map[render.Key]*imageJob
	audio  *audioSession
	subs   map[int]chan Update
	nextID int

	wg sync.WaitGroup
}

type Option func(*Controller)

// WithVoice sets the voice passed to the synthesizer.
func WithVoice(voice string) Option {
	return func(c *Controller) { c.voice = voice }
}

// WithTimeout bounds each image and synthesis request.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

func NewController(images imagegen.Generator, synth speech.Synthesizer, player speech.Player, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		images:  images,
		synth:   synth,
		player:  player,
		timeout: 60 * time.Second,
		logger:  logger,
		state:   render.NewState(),
		jobs:    map[render.Key]*imageJob{},
		subs:    map[int]chan Update{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current side-channel state.
func (c *Controller) State() render.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel of updates and a function that ends the
// subscription. Slow subscribers miss updates rather than block.
func (c *Controller) Subscribe() (<-chan Update, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan Update, 32)
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// applyLocked runs the reducer and publishes the outcome. c.mu must be held.
func (c *Controller) applyLocked(e render.Event) bool {
	next, ok := render.Apply(c.state, e)
	c.state = next
	u := Update{Event: e, Accepted: ok, State: next}
	for _, ch := range c.subs {
		select {
		case ch <- u:
		default:
		}
	}
	if !ok {
		c.logger.Debug("side-channel event ignored", "type", e.Type, "key", e.Key, "generation", e.Generation)
	}
	return ok
}

// Reset starts a new generation: in-flight requests are cancelled, playback
// stops and all keyed state is cleared.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, job := range c.jobs {
		job.cancel()
		delete(c.jobs, key)
	}
	if c.audio != nil {
		c.audio.cancel()
		if c.audio.playback != nil {
			c.audio.playback.Stop()
		}
		c.audio = nil
	}
	c.applyLocked(render.Event{Type: render.EventPlanReplaced})
}

// StartImage begins generating the image for key and returns a channel that
// receives the final image state.
func (c *Controller) StartImage(key render.Key, req imagegen.Request) (<-chan render.ImageState, error) {
	c.mu.Lock()
	gen := c.state.Generation
	if !c.applyLocked(render.Event{Type: render.EventImageRequested, Key: key, Generation: gen}) {
		c.mu.Unlock()
		return nil, ErrImageInProgress
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	job := &imageJob{cancel: cancel}
	c.jobs[key] = job
	c.mu.Unlock()

	done := make(chan render.ImageState, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		res, err := c.images.Generate(ctx, req)

		e := render.Event{Key: key, Generation: gen}
		img := render.ImageState{}
		if err != nil {
			e.Type = render.EventImageFailed
			e.Reason = imageFailure(err)
			img = render.ImageState{Status: render.ImageFailed, Reason: e.Reason}
			c.logger.Warn("image generation failed", "key", key, "error", err)
		} else {
			e.Type = render.EventImageReady
			e.URL = res.URL
			img = render.ImageState{Status: render.ImageReady, URL: res.URL}
		}

		c.mu.Lock()
		if c.jobs[key] == job {
			delete(c.jobs, key)
		}
		c.applyLocked(e)
		c.mu.Unlock()

		done <- img
	}()
	return done, nil
}

// GenerateImage is StartImage that waits for the outcome.
func (c *Controller) GenerateImage(ctx context.Context, key render.Key, req imagegen.Request) (render.ImageState, error) {
	done, err := c.StartImage(key, req)
	if err != nil {
		return render.ImageState{}, err
	}
	select {
	case img := <-done:
		return img, nil
	case <-ctx.Done():
		return render.ImageState{}, ctx.Err()
	}
}

func imageFailure(err error) string {
	switch {
	case errors.Is(err, imagegen.ErrDisabled):
		return "Image generation is not configured."
	case errors.Is(err, context.DeadlineExceeded):
		return "Image generation timed out. Please try again."
	case errors.Is(err, context.Canceled):
		return "Image generation was cancelled."
	default:
		return fmt.Sprintf("Failed to generate image: %v", err)
	}
}

// Listen synthesizes text and plays it under key. Any other active session
// is stopped first. It returns once playback has started.
func (c *Controller) Listen(ctx context.Context, key render.Key, text string) (Session, error) {
	c.mu.Lock()
	if c.state.Playing(key) || (c.audio != nil && c.audio.key == key) {
		c.mu.Unlock()
		return Session{}, ErrAlreadyPlaying
	}
	c.stopLocked()

	gen := c.state.Generation
	synthCtx, cancel := context.WithCancel(context.Background())
	sess := &audioSession{key: key, cancel: cancel}
	c.audio = sess
	c.mu.Unlock()

	fail := func(err error) (Session, error) {
		cancel()
		c.mu.Lock()
		if c.audio == sess {
			c.audio = nil
		}
		c.mu.Unlock()
		return Session{}, err
	}

	timed, stopTimer := context.WithTimeout(synthCtx, c.timeout)
	clip, err := c.synth.Synthesize(mergeCancel(timed, ctx), speech.Request{Text: text, Voice: c.voice})
	stopTimer()
	if err != nil {
		if synthCtx.Err() != nil {
			return fail(ErrSuperseded)
		}
		c.logger.Warn("speech synthesis failed", "key", key, "error", err)
		return fail(fmt.Errorf("failed to synthesize speech: %w", err))
	}

	c.mu.Lock()
	if c.audio != sess || c.state.Generation != gen {
		c.mu.Unlock()
		return fail(ErrSuperseded)
	}
	pb, err := c.player.Play(synthCtx, clip)
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("playback failed to start", "key", key, "error", err)
		return fail(fmt.Errorf("failed to start playback: %w", err))
	}
	sess.playback = pb

	started := render.Event{Type: render.EventAudioStarted, Key: key, Generation: gen}
	if remote, ok := pb.(interface{ URL() string }); ok {
		started.URL = remote.URL()
	}
	c.applyLocked(started)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.watch(sess, gen)

	return Session{Key: key, URL: started.URL}, nil
}

func (c *Controller) watch(sess *audioSession, gen uint64) {
	defer c.wg.Done()
	err := <-sess.playback.Done()
	sess.cancel()

	e := render.Event{Key: sess.key, Generation: gen}
	switch {
	case err == nil:
		e.Type = render.EventAudioEnded
	case errors.Is(err, speech.ErrStopped), errors.Is(err, context.Canceled):
		e.Type = render.EventAudioStopped
	default:
		e.Type = render.EventAudioFailed
		e.Reason = fmt.Sprintf("Playback failed: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Sessions replaced through stopLocked or Reset already applied their outcome.
	if c.audio != sess {
		return
	}
	c.audio = nil
	c.applyLocked(e)
}

// Stop halts playback of key and clears it immediately.
func (c *Controller) Stop(key render.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.audio == nil || c.audio.key != key {
		return ErrNotPlaying
	}
	c.stopLocked()
	return nil
}

// stopLocked ends the active session, if any. c.mu must be held.
func (c *Controller) stopLocked() {
	sess := c.audio
	if sess == nil {
		return
	}
	c.audio = nil
	sess.cancel()
	if sess.playback != nil {
		c.applyLocked(render.Event{Type: render.EventAudioStopped, Key: sess.key, Generation: c.state.Generation})
		sess.playback.Stop()
	}
}

// Finished records a client report that playback of key ended. An empty
// failure means the clip played to the end.
func (c *Controller) Finished(key render.Key, failure string) error {
	c.mu.Lock()
	sess := c.audio
	c.mu.Unlock()
	if sess == nil || sess.key != key || sess.playback == nil {
		return ErrNotPlaying
	}
	remote, ok := sess.playback.(interface{ Finish(error) })
	if !ok {
		return fmt.Errorf("playback of %s is not client driven", key)
	}
	if failure != "" {
		remote.Finish(errors.New(failure))
	} else {
		remote.Finish(nil)
	}
	return nil
}

// Close stops all work and waits for background goroutines.
func (c *Controller) Close() {
	c.Reset()
	c.wg.Wait()
}

// mergeCancel returns ctx that is also cancelled when other is done.
func mergeCancel(ctx, other context.Context) context.Context {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	context.AfterFunc(merged, func() { stop() })
	return merged
}
