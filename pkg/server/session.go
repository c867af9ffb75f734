package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/miu200521358/sign-pose-trace/pkg/anim"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
	"github.com/miu200521358/sign-pose-trace/pkg/usecase"
)

const (
	TypeFrame     = "frame"
	TypeRecord    = "record"
	TypeStop      = "stop"
	TypeRotations = "rotations"
	TypeRecording = "recording"
	TypeSaved     = "saved"
	TypeError     = "error"
)

var errNotRecording = errors.New("not recording")

// Request is any client to server message.
type Request struct {
	Type      string          `json:"type"`
	Sequence  int64           `json:"sequence,omitempty"`
	Time      *float64        `json:"time,omitempty"`
	Landmarks json.RawMessage `json:"landmarks,omitempty"`
	Name      string          `json:"name,omitempty"`
}

// RotationsMessage answers a frame. Bones is null when no pose was found.
type RotationsMessage struct {
	Type     string                 `json:"type"`
	Session  string                 `json:"session"`
	Sequence int64                  `json:"sequence"`
	Bones    model.JointRotationMap `json:"bones"`
}

type RecordingMessage struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Name    string `json:"name"`
}

type SavedMessage struct {
	Type      string `json:"type"`
	Session   string `json:"session"`
	Path      string `json:"path"`
	Keyframes int    `json:"keyframes"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Message string `json:"message"`
}

type session struct {
	id     string
	conn   *websocket.Conn
	server *Server
	log    zerolog.Logger

	recording *model.Motion
	// startTime is the client time of the first recorded frame; nil keeps the
	// whole recording on the fps clock
	startTime *float64
}

func newSession(conn *websocket.Conn, server *Server) *session {
	id := uuid.New().String()
	return &session{
		id:     id,
		conn:   conn,
		server: server,
		log:    server.log.With().Str("session", id).Logger(),
	}
}

func (s *session) run() {
	s.log.Info().Msg("connected")
	defer s.log.Info().Msg("disconnected")

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn().Err(err).Msg("read failed")
			}
			if s.recording != nil {
				s.log.Warn().Str("name", s.recording.Name).Int("keyframes", s.recording.Len()).Msg("recording discarded")
			}
			return
		}

		if err := s.handle(data); err != nil {
			if errors.Is(err, websocket.ErrCloseSent) {
				return
			}
			s.log.Debug().Err(err).Msg("request rejected")
			if err := s.send(ErrorMessage{Type: TypeError, Session: s.id, Message: err.Error()}); err != nil {
				return
			}
		}
	}
}

func (s *session) handle(data []byte) error {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("malformed message: %w", err)
	}

	switch req.Type {
	case TypeFrame:
		return s.handleFrame(&req)
	case TypeRecord:
		return s.handleRecord(&req)
	case TypeStop:
		return s.handleStop()
	}
	return fmt.Errorf("unknown message type %q", req.Type)
}

func (s *session) handleFrame(req *Request) error {
	landmarks, err := model.DecodeLandmarks(req.Landmarks)
	if err != nil {
		return err
	}

	bones := s.server.retargeter.Retarget(landmarks)
	if s.recording != nil && bones != nil {
		s.record(req, bones)
	}

	return s.send(RotationsMessage{Type: TypeRotations, Session: s.id, Sequence: req.Sequence, Bones: bones})
}

// record appends a keyframe. The first recorded frame picks the clock: with a
// client time later frames are timed from it, without one every frame is spaced
// at the configured fps. Untimed frames on the client clock follow the previous
// keyframe by one fps step.
func (s *session) record(req *Request, bones model.JointRotationMap) {
	index := s.recording.Len()
	t := float64(index) / s.recording.Fps
	switch {
	case index == 0:
		t = 0
		if req.Time != nil {
			start := *req.Time
			s.startTime = &start
		}
	case s.startTime != nil && req.Time != nil:
		t = *req.Time - *s.startTime
	case s.startTime != nil:
		t = s.recording.Keyframes[index-1].Time + 1/s.recording.Fps
	}

	s.recording.AppendKeyframe(&model.Keyframe{Index: index, Time: t, Bones: bones.Clone()})
	s.recording.Duration = t
}

func (s *session) handleRecord(req *Request) error {
	name := sanitizeName(req.Name)
	if name == "" {
		name = "sign_" + s.id[:8]
	}

	cfg := s.server.cfg
	path := filepath.Join(cfg.Server.RecordDir, name+usecase.MotionSuffix)
	s.recording = model.NewMotion(path, name, cfg.Motion.Fps, 0)
	s.recording.Loop = cfg.Motion.Loop
	s.startTime = nil

	s.log.Info().Str("name", name).Msg("recording started")
	return s.send(RecordingMessage{Type: TypeRecording, Session: s.id, Name: name})
}

func (s *session) handleStop() error {
	if s.recording == nil {
		return errNotRecording
	}
	motion := s.recording
	s.recording = nil
	s.startTime = nil

	motion.Sort()
	if err := anim.Write(motion); err != nil {
		s.log.Error().Err(err).Str("path", motion.Path).Msg("failed to save recording")
		return err
	}

	s.log.Info().Str("path", motion.Path).Int("keyframes", motion.Len()).Msg("recording saved")
	return s.send(SavedMessage{Type: TypeSaved, Session: s.id, Path: motion.Path, Keyframes: motion.Len()})
}

func (s *session) send(v interface{}) error {
	return s.conn.WriteJSON(v)
}

// sanitizeName keeps a client supplied name inside the record directory.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return strings.Trim(name, ". ")
}
