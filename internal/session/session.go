// Package session keeps the per-browser state behind the Upload, Run Geocoder,
// Visualize and Clear actions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/models"
	"github.com/UnknownOlympus/geoplot/internal/pipeline"
	"github.com/UnknownOlympus/geoplot/internal/repository"
)

// MsgNoFile is shown when no file is selected.
const MsgNoFile = "Drag and Drop or Select CSV File"

var (
	ErrNoUpload      = errors.New("no file has been uploaded")
	ErrRunInProgress = errors.New("a geocoding run is already in progress")
	ErrNotGeocoded   = errors.New("run the geocoder before visualizing")
)

// Geocoder runs one geocoding pass and looks up cached runs by ID.
type Geocoder interface {
	Geocode(ctx context.Context, req models.GeocodeRequest) (*models.Run, error)
	GetRun(ctx context.Context, id string) (*models.Run, error)
}

// State is what the page needs to render its buttons and status line.
type State struct {
	Message          string `json:"message"`
	Filename         string `json:"filename,omitempty"`
	RunEnabled       bool   `json:"run_enabled"`
	VisualizeEnabled bool   `json:"visualize_enabled"`
	Running          bool   `json:"running"`
	RunID            string `json:"run_id,omitempty"`
}

// UploadMessage confirms an accepted upload.
func UploadMessage(filename string) string {
	return fmt.Sprintf("File \"%s\" has been uploaded successfully.", filename)
}

// Session is one browser's upload and its last successful run.
type Session struct {
	id       string
	geocoder Geocoder
	log      *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	filename   string
	raw        []byte
	generation int
	running    bool
	run        *models.Run
	runs       map[string]struct{} // IDs of every run this session produced
	state      State
	lastSeen   time.Time
}

func newSession(id string, geocoder Geocoder, log *slog.Logger, now func() time.Time) *Session {
	return &Session{
		id:       id,
		geocoder: geocoder,
		log:      log.With("session", id),
		now:      now,
		state:    State{Message: MsgNoFile},
		runs:     make(map[string]struct{}),
		lastSeen: now(),
	}
}

func (s *Session) ID() string { return s.id }

// State returns a snapshot of the button state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()

	return s.snapshot()
}

// Upload replaces the current file. Run Geocoder becomes available and
// Visualize is disabled until the new file has been geocoded.
func (s *Session) Upload(filename string, raw []byte) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	s.filename = filename
	s.raw = raw
	s.generation++
	s.run = nil
	s.state = State{
		Message:    UploadMessage(filename),
		Filename:   filename,
		RunEnabled: true,
	}

	return s.snapshot()
}

// Clear forgets the uploaded file and disables both actions.
func (s *Session) Clear() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	s.filename = ""
	s.raw = nil
	s.generation++
	s.run = nil
	s.state = State{Message: MsgNoFile}

	return s.snapshot()
}

// Geocode runs the pipeline over the current upload. On success Visualize is
// enabled and the message is the address count; on failure Visualize stays
// disabled and the message is the fixed error text.
func (s *Session) Geocode(ctx context.Context, credential, encoding string, onProgress func(done, total int)) (State, error) {
	s.mu.Lock()
	s.touch()
	if s.raw == nil {
		s.mu.Unlock()
		return s.State(), ErrNoUpload
	}
	if s.running {
		s.mu.Unlock()
		return s.State(), ErrRunInProgress
	}
	s.running = true
	s.state.VisualizeEnabled = false
	req := models.GeocodeRequest{
		Filename:   s.filename,
		Raw:        s.raw,
		Encoding:   encoding,
		Credential: credential,
		OnProgress: onProgress,
	}
	generation := s.generation
	s.mu.Unlock()

	run, err := s.geocoder.Geocode(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.touch()

	if generation != s.generation {
		// The file was replaced or cleared while the run was in flight.
		s.log.InfoContext(ctx, "Discarding run for a replaced upload", "filename", req.Filename)
		return s.snapshot(), err
	}

	if err != nil {
		s.state.VisualizeEnabled = false
		s.state.RunID = ""
		s.state.Message = pipeline.UserMessage(err)
		return s.snapshot(), err
	}

	s.run = run
	s.runs[run.ID] = struct{}{}
	s.state.VisualizeEnabled = true
	s.state.RunID = run.ID
	s.state.Message = pipeline.CountMessage(run.Results.Count())

	return s.snapshot(), nil
}

// Visualize returns the run computed by the last successful Geocode.
func (s *Session) Visualize() (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	if s.run == nil || !s.state.VisualizeEnabled {
		return nil, ErrNotGeocoded
	}

	return s.run, nil
}

// FindRun returns a cached run produced by this session. Earlier runs stay
// reachable after a new upload until the janitor evicts them. Runs of other
// sessions are reported as not found.
func (s *Session) FindRun(ctx context.Context, id string) (*models.Run, error) {
	s.mu.Lock()
	s.touch()
	_, ok := s.runs[id]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrRunNotFound, id)
	}

	return s.geocoder.GetRun(ctx, id)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen
}

func (s *Session) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// touch and snapshot expect s.mu to be held.
func (s *Session) touch() {
	s.lastSeen = s.now()
}

func (s *Session) snapshot() State {
	st := s.state
	st.Running = s.running

	return st
}
