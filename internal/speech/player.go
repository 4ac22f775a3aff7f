package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"ai-fitness-planner/internal/storage"

	"github.com/google/uuid"
)

// ErrStopped is delivered on Done when playback was stopped before the end.
var ErrStopped = errors.New("playback stopped")

// Playback is a clip that is currently playing.
type Playback interface {
	// Done yields nil when the clip played to the end, ErrStopped after
	// Stop, or the playback error.
	Done() <-chan error
	Stop()
}

// Player starts playback of a clip.
type Player interface {
	Play(ctx context.Context, clip Clip) (Playback, error)
}

// playback is a one-shot completion shared by the players.
type playback struct {
	done     chan error
	finished chan struct{}
	once     sync.Once
	stop     func()
}

func newPlayback(stop func()) *playback {
	return &playback{done: make(chan error, 1), finished: make(chan struct{}), stop: stop}
}

func (p *playback) Done() <-chan error { return p.done }

func (p *playback) Stop() {
	p.finish(ErrStopped)
	if p.stop != nil {
		p.stop()
	}
}

func (p *playback) finish(err error) {
	p.once.Do(func() {
		p.done <- err
		close(p.done)
		close(p.finished)
	})
}

// ProcessPlayer plays clips through a local audio program.
type ProcessPlayer struct {
	lookPath func(string) (string, error)
	start    func(ctx context.Context, name string, args ...string) (wait func() error, err error)
}

func NewProcessPlayer() *ProcessPlayer {
	return &ProcessPlayer{lookPath: exec.LookPath, start: startCommand}
}

var playerCommands = []struct {
	name string
	args []string
}{
	{name: "ffplay", args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{name: "afplay"},
	{name: "aplay", args: []string{"-q"}},
}

func (p *ProcessPlayer) Play(ctx context.Context, clip Clip) (Playback, error) {
	var bin string
	var args []string
	for _, c := range playerCommands {
		if path, err := p.lookPath(c.name); err == nil {
			bin, args = path, c.args
			break
		}
	}
	if bin == "" {
		return nil, fmt.Errorf("no audio player found (install ffmpeg)")
	}

	tmp, err := os.CreateTemp("", "speech-*."+clip.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(clip.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write clip: %w", err)
	}
	tmp.Close()

	ctx, cancel := context.WithCancel(ctx)
	wait, err := p.start(ctx, bin, append(args, tmp.Name())...)
	if err != nil {
		cancel()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to start player: %w", err)
	}

	pb := newPlayback(cancel)
	go func() {
		err := wait()
		cancel()
		os.Remove(tmp.Name())
		pb.finish(err)
	}()
	return pb, nil
}

func startCommand(ctx context.Context, name string, args ...string) (func() error, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd.Wait, nil
}

// RemotePlayer hands clips to a remote client. The clip is stored and
// exposed by URL; the client reports completion through Finish.
type RemotePlayer struct {
	store   *storage.ClipStore
	baseURL string
}

func NewRemotePlayer(store *storage.ClipStore, baseURL string) *RemotePlayer {
	return &RemotePlayer{store: store, baseURL: baseURL}
}

// RemotePlayback is a clip being played by a client.
type RemotePlayback struct {
	*playback
	ID  string
	url string
}

// URL is where the client fetches the clip.
func (p *RemotePlayback) URL() string { return p.url }

// Finish reports the client's outcome: nil for ended, otherwise the failure.
func (p *RemotePlayback) Finish(err error) { p.finish(err) }

func (p *RemotePlayer) Play(ctx context.Context, clip Clip) (Playback, error) {
	id := uuid.NewString()
	if err := p.store.Save(id, clip.Format, clip.Data); err != nil {
		return nil, err
	}
	pb := &RemotePlayback{playback: newPlayback(nil), ID: id, url: p.baseURL + "/" + id}
	go func() {
		select {
		case <-ctx.Done():
			pb.finish(ctx.Err())
		case <-pb.finished:
		}
	}()
	return pb, nil
}
