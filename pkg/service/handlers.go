package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/haivivi/sherpa/pkg/audio/resampler"
	"github.com/haivivi/sherpa/pkg/audio/wav"
	"github.com/haivivi/sherpa/pkg/cache"
	"github.com/haivivi/sherpa/pkg/sherpa"
)

// job is one request on one connection.
type job struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger
	start  time.Time
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request, endpoint string) (*job, bool) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("service: upgrade failed", "endpoint", endpoint, "error", err)
		return nil, false
	}
	conn.SetReadLimit(s.cfg.MaxRequestBytes)
	id := uuid.New().String()
	return &job{
		id:     id,
		conn:   conn,
		logger: s.logger.With("id", id, "endpoint", endpoint, "remote", r.RemoteAddr),
		start:  time.Now(),
	}, true
}

func (j *job) fail(err error) {
	j.logger.Warn("service: job failed", "error", err)
	j.conn.WriteJSON(Event{Type: EventError, ID: j.id, Error: err.Error()})
}

func (j *job) send(outputs [][]byte, sampleRate int, cached bool, audio time.Duration) error {
	if err := j.conn.WriteJSON(Event{
		Type:       EventStart,
		ID:         j.id,
		SampleRate: sampleRate,
		Outputs:    len(outputs),
		Cached:     cached,
	}); err != nil {
		return err
	}
	for _, b := range outputs {
		if err := j.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
			return err
		}
	}
	elapsed := time.Since(j.start)
	j.logger.Info("service: job done",
		"outputs", len(outputs),
		"cached", cached,
		"audio", audio,
		"elapsed", elapsed)
	return j.conn.WriteJSON(Event{
		Type:       EventDone,
		ID:         j.id,
		DurationMS: audio.Milliseconds(),
		ElapsedMS:  elapsed.Milliseconds(),
	})
}

func (j *job) close() {
	j.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	j.conn.Close()
}

func (s *Server) handleZipVoice(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Synthesizer == nil {
		http.Error(w, "zipvoice is not configured", http.StatusNotFound)
		return
	}
	j, ok := s.accept(w, r, "zipvoice")
	if !ok {
		return
	}
	defer j.close()

	var req ZipVoiceRequest
	if err := j.conn.ReadJSON(&req); err != nil {
		j.fail(fmt.Errorf("read request: %w", err))
		return
	}
	req.applyDefaults()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	audio, cached, err := s.synthesize(ctx, &req)
	if err != nil {
		j.fail(err)
		return
	}
	data, err := wav.Encode(&wav.Audio{Samples: audio.Samples, SampleRate: audio.SampleRate, NumChannels: 1})
	if err != nil {
		j.fail(err)
		return
	}
	if err := j.send([][]byte{data}, audio.SampleRate, cached, audio.Duration()); err != nil {
		j.logger.Warn("service: write failed", "error", err)
	}
}

func (s *Server) synthesize(ctx context.Context, req *ZipVoiceRequest) (*sherpa.GeneratedAudio, bool, error) {
	var (
		prompt     []float32
		promptRate int
	)
	if len(req.PromptWAV) > 0 {
		a, err := wav.Decode(req.PromptWAV)
		if err != nil {
			return nil, false, fmt.Errorf("prompt_wav: %w", err)
		}
		m := a.Mono()
		prompt, promptRate = m.Samples, m.SampleRate
	}
	gen := req.toGenerate(prompt, promptRate)

	var key cache.Key
	if s.cfg.Cache != nil {
		key = cache.ZipVoiceKey(s.cfg.SynthesizerID, gen)
		if a, err := cache.GetAudio(ctx, s.cfg.Cache, key); err == nil {
			return a, true, nil
		} else if !errors.Is(err, cache.ErrNotFound) {
			s.logger.Warn("service: cache read failed", "error", err)
		}
	}

	audio, err := s.cfg.Synthesizer.GenerateContext(ctx, gen)
	if err != nil {
		return nil, false, err
	}
	if s.cfg.Cache != nil {
		if err := cache.PutAudio(ctx, s.cfg.Cache, key, audio); err != nil {
			s.logger.Warn("service: cache write failed", "error", err)
		}
	}
	return audio, false, nil
}

func (s *Server) handleSeparate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Separator == nil {
		http.Error(w, "separation is not configured", http.StatusNotFound)
		return
	}
	j, ok := s.accept(w, r, "separate")
	if !ok {
		return
	}
	defer j.close()

	var req SeparateRequest
	if err := j.conn.ReadJSON(&req); err != nil {
		j.fail(fmt.Errorf("read request: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	res, cached, err := s.separate(ctx, req.WAV)
	if err != nil {
		j.fail(err)
		return
	}

	outputs := make([][]byte, 0, len(res.Stems))
	var (
		rate  int
		audio time.Duration
	)
	for i, st := range res.Stems {
		data, err := wav.Encode(&wav.Audio{Samples: st.Samples, SampleRate: st.SampleRate, NumChannels: st.NumChannels})
		if err != nil {
			j.fail(fmt.Errorf("stem %d: %w", i, err))
			return
		}
		outputs = append(outputs, data)
		rate = st.SampleRate
		audio = max(audio, st.Duration())
	}
	if err := j.send(outputs, rate, cached, audio); err != nil {
		j.logger.Warn("service: write failed", "error", err)
	}
}

func (s *Server) separate(ctx context.Context, data []byte) (*sherpa.SeparationResult, bool, error) {
	in, err := wav.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("wav: %w", err)
	}

	rate := s.cfg.Separator.SampleRate()
	if rate <= 0 {
		return nil, false, sherpa.ErrClosed
	}
	// The models take mono or stereo; wider layouts are downmixed.
	channels := in.NumChannels
	if channels > 2 {
		channels = 1
	}
	samples, err := resampler.Convert(in.Samples,
		resampler.Format{SampleRate: in.SampleRate, Channels: in.NumChannels},
		resampler.Format{SampleRate: rate, Channels: channels})
	if err != nil {
		return nil, false, err
	}

	var key cache.Key
	if s.cfg.Cache != nil {
		key = cache.SeparationKey(s.cfg.SeparatorID, samples, rate, channels)
		if res, err := cache.GetSeparation(ctx, s.cfg.Cache, key); err == nil {
			return res, true, nil
		} else if !errors.Is(err, cache.ErrNotFound) {
			s.logger.Warn("service: cache read failed", "error", err)
		}
	}

	res, err := s.cfg.Separator.ProcessContext(ctx, samples, rate, channels)
	if err != nil {
		return nil, false, err
	}
	if s.cfg.Cache != nil {
		if err := cache.PutSeparation(ctx, s.cfg.Cache, key, res); err != nil {
			s.logger.Warn("service: cache write failed", "error", err)
		}
	}
	return res, false, nil
}
