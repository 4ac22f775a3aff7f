package render

// ImageStatus is the lifecycle of an image side channel.
type ImageStatus string

const (
	ImageIdle       ImageStatus = "idle"
	ImageGenerating ImageStatus = "generating"
	ImageReady      ImageStatus = "ready"
	ImageFailed     ImageStatus = "failed"
)

// AudioStatus is the lifecycle of the audio side channel.
type AudioStatus string

const (
	AudioIdle    AudioStatus = "idle"
	AudioPlaying AudioStatus = "playing"
	AudioEnded   AudioStatus = "ended"
	AudioStopped AudioStatus = "stopped"
	AudioFailed  AudioStatus = "failed"
)

type ImageState struct {
	Status ImageStatus `json:"status"`
	URL    string      `json:"url,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

type AudioState struct {
	Key    Key         `json:"key,omitempty"`
	Status AudioStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// State is the side-channel state of one rendered plan bundle. At most one
// key plays audio at a time.
type State struct {
	Generation uint64             `json:"generation"`
	Images     map[Key]ImageState `json:"images"`
	Audio      AudioState         `json:"audio"`
}

// NewState returns an empty state for generation 0.
func NewState() State {
	return State{Images: map[Key]ImageState{}, Audio: AudioState{Status: AudioIdle}}
}

// Image returns the image state of key, idle when unknown.
func (s State) Image(key Key) ImageState {
	if img, ok := s.Images[key]; ok {
		return img
	}
	return ImageState{Status: ImageIdle}
}

// Playing reports whether key is the active audio key.
func (s State) Playing(key Key) bool {
	return s.Audio.Status == AudioPlaying && s.Audio.Key == key
}

type EventType string

const (
	EventImageRequested EventType = "image_requested"
	EventImageReady     EventType = "image_ready"
	EventImageFailed    EventType = "image_failed"
	EventAudioStarted   EventType = "audio_started"
	EventAudioEnded     EventType = "audio_ended"
	EventAudioStopped   EventType = "audio_stopped"
	EventAudioFailed    EventType = "audio_failed"
	EventPlanReplaced   EventType = "plan_replaced"
)

// Event is a side-channel transition. Generation is the state generation the
// event was issued under; events from an older generation are ignored.
type Event struct {
	Type       EventType `json:"type"`
	Key        Key       `json:"key,omitempty"`
	Generation uint64    `json:"generation"`
	URL        string    `json:"url,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Reduce returns the state after applying e. Rejected and stale events
// leave the state unchanged.
func Reduce(s State, e Event) State {
	next, _ := Apply(s, e)
	return next
}

// Apply is Reduce that also reports whether the event was accepted. The
// input state is never modified.
func Apply(s State, e Event) (State, bool) {
	if e.Type == EventPlanReplaced {
		return State{
			Generation: s.Generation + 1,
			Images:     map[Key]ImageState{},
			Audio:      AudioState{Status: AudioIdle},
		}, true
	}
	if e.Generation != s.Generation || e.Key == "" {
		return s, false
	}

	switch e.Type {
	case EventImageRequested:
		if s.Image(e.Key).Status == ImageGenerating {
			return s, false
		}
		return s.withImage(e.Key, ImageState{Status: ImageGenerating}), true
	case EventImageReady:
		if s.Image(e.Key).Status != ImageGenerating {
			return s, false
		}
		return s.withImage(e.Key, ImageState{Status: ImageReady, URL: e.URL}), true
	case EventImageFailed:
		if s.Image(e.Key).Status != ImageGenerating {
			return s, false
		}
		return s.withImage(e.Key, ImageState{Status: ImageFailed, Reason: e.Reason}), true
	case EventAudioStarted:
		if s.Playing(e.Key) {
			return s, false
		}
		s.Audio = AudioState{Key: e.Key, Status: AudioPlaying}
		return s, true
	case EventAudioEnded, EventAudioStopped, EventAudioFailed:
		if !s.Playing(e.Key) {
			return s, false
		}
		s.Audio = AudioState{Key: e.Key, Status: audioOutcome(e.Type), Reason: e.Reason}
		return s, true
	}
	return s, false
}

func audioOutcome(t EventType) AudioStatus {
	switch t {
	case EventAudioEnded:
		return AudioEnded
	case EventAudioStopped:
		return AudioStopped
	default:
		return AudioFailed
	}
}

func (s State) withImage(key Key, img ImageState) State {
	images := make(map[Key]ImageState, len(s.Images)+1)
	for k, v := range s.Images {
		images[k] = v
	}
	images[key] = img
	s.Images = images
	return s
}
