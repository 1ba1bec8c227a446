// Package session holds the per-viewer state: which image is loaded, whether
// an analysis is in flight, and the result being shown. Observers re-render
// from a snapshot after every transition.
package session

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"nodule-lens/api/internal/analysis/types"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseImageLoaded Phase = "image_loaded"
	PhaseAnalyzing   Phase = "analyzing"
	PhaseResultReady Phase = "result_ready"
	PhaseError       Phase = "error"
)

var (
	ErrBusy    = errors.New("analysis already in progress")
	ErrNoImage = errors.New("no image loaded")
)

// Snapshot is an immutable copy of the session state handed to observers.
type Snapshot struct {
	Phase  Phase
	Image  []byte
	MIME   string
	Width  int
	Height int
	RunID  string
	Result *types.AnalysisResult
	Err    error
}

type Session struct {
	mu        sync.Mutex
	snap      Snapshot
	observers []func(Snapshot)
	logger    *slog.Logger
}

func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{snap: Snapshot{Phase: PhaseIdle}, logger: logger}
}

// Subscribe registers fn to be called after every transition. Observers run
// outside the lock, in registration order.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// LoadImage replaces the image. Any shown result is dropped and a pending
// run becomes stale.
func (s *Session) LoadImage(img []byte, mime string) {
	s.update(func(sn *Snapshot) bool {
		*sn = Snapshot{Phase: PhaseImageLoaded, Image: img, MIME: mime, Width: sn.Width, Height: sn.Height}
		return true
	})
}

// Begin starts an analysis run and returns its id.
func (s *Session) Begin() (string, error) {
	var (
		id  string
		err error
	)
	s.update(func(sn *Snapshot) bool {
		switch {
		case sn.Phase == PhaseAnalyzing:
			err = ErrBusy
			return false
		case len(sn.Image) == 0:
			err = ErrNoImage
			return false
		}
		id = uuid.NewString()
		sn.Phase = PhaseAnalyzing
		sn.RunID = id
		sn.Result = nil
		sn.Err = nil
		return true
	})
	return id, err
}

// Complete stores res for run. It returns false, leaving the state untouched,
// when run is not the current one.
func (s *Session) Complete(run string, res types.AnalysisResult) bool {
	return s.finish(run, func(sn *Snapshot) {
		sn.Phase = PhaseResultReady
		sn.Result = &res
	})
}

func (s *Session) Fail(run string, err error) bool {
	return s.finish(run, func(sn *Snapshot) {
		sn.Phase = PhaseError
		sn.Err = err
	})
}

func (s *Session) finish(run string, apply func(*Snapshot)) bool {
	applied := false
	s.update(func(sn *Snapshot) bool {
		if sn.Phase != PhaseAnalyzing || sn.RunID != run {
			return false
		}
		apply(sn)
		applied = true
		return true
	})
	if !applied {
		s.logger.Info("stale analysis result discarded", "run_id", run)
	}
	return applied
}

// Clear forgets the image and result.
func (s *Session) Clear() {
	s.update(func(sn *Snapshot) bool {
		*sn = Snapshot{Phase: PhaseIdle, Width: sn.Width, Height: sn.Height}
		return true
	})
}

// Resize records the displayed size. Observers fire only when it changed.
func (s *Session) Resize(w, h int) {
	s.update(func(sn *Snapshot) bool {
		if sn.Width == w && sn.Height == h {
			return false
		}
		sn.Width, sn.Height = w, h
		return true
	})
}

func (s *Session) update(fn func(*Snapshot) bool) {
	s.mu.Lock()
	changed := fn(&s.snap)
	snap := s.snap
	obs := append(([]func(Snapshot))(nil), s.observers...)
	s.mu.Unlock()
	if !changed {
		return
	}
	for _, o := range obs {
		o(snap)
	}
}

// Sessions keys sessions by chat ID.
type Sessions struct {
	m      sync.Map // int64 -> *Session
	logger *slog.Logger
	init   func(chatID int64, s *Session)
}

// NewSessions calls init on every session before it is published, typically
// to subscribe the renderer. A session that loses a concurrent Get race is
// discarded, so init may run more than once per chat ID.
func NewSessions(logger *slog.Logger, init func(chatID int64, s *Session)) *Sessions {
	return &Sessions{logger: logger, init: init}
}

func (ss *Sessions) Get(chatID int64) *Session {
	if v, ok := ss.m.Load(chatID); ok {
		return v.(*Session)
	}
	// observers are attached before the session becomes visible to others
	s := New(ss.logger)
	if ss.init != nil {
		ss.init(chatID, s)
	}
	v, _ := ss.m.LoadOrStore(chatID, s)
	return v.(*Session)
}
