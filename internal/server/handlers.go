package server

import (
	"context"
	"net/http"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/session"
	"github.com/hammamikhairi/pocketprompter/internal/writer"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleEditScript(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.dispatch(w, r, session.EditScript{Text: body.Text})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, session.StartPlayback{})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, session.StopPlayback{})
}

func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, session.Interact{})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Speed    *int  `json:"speed"`
		FontSize *int  `json:"fontSize"`
		Mirrored *bool `json:"mirrored"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	ctx := r.Context()
	if body.Speed != nil {
		s.ctrl.Dispatch(ctx, session.SetSpeed{Value: *body.Speed})
	}
	if body.FontSize != nil {
		s.ctrl.Dispatch(ctx, session.SetFontSize{Px: *body.FontSize})
	}
	if body.Mirrored != nil {
		s.ctrl.Dispatch(ctx, session.SetMirrored{On: *body.Mirrored})
	}
	writeJSON(w, http.StatusOK, s.state())
}

// dispatch applies ev and replies with the new state or the mapped error.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, ev session.Event) {
	if err := s.ctrl.Dispatch(r.Context(), ev); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

// handleRewrite accepts a rewrite and returns 202; the outcome reaches
// subscribers through the state stream. With ?wait=true the handler
// blocks and replies with the outcome instead.
func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tone string `json:"tone"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	tone, known := domain.ParseTone(body.Tone)
	if !known {
		s.log.Debug("server: unknown tone %q, using %s", body.Tone, tone)
	}

	done, err := s.ctrl.RequestRewrite(r.Context(), tone)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		o := <-done
		s.recordRewrite(o)
		if o.Err != nil {
			s.writeError(w, o.Err)
			return
		}
		writeJSON(w, http.StatusOK, s.state())
		return
	}

	go func() {
		for o := range done {
			s.recordRewrite(o)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"tone": tone.String()})
}

func (s *Server) recordRewrite(o session.RewriteOutcome) {
	v := &rewriteView{
		Tone:         o.Result.Tone.String(),
		Success:      o.Err == nil && o.Result.Success,
		ErrorMessage: o.Result.ErrorMessage,
	}
	if v.ErrorMessage == "" && o.Err != nil {
		v.ErrorMessage = o.Err.Error()
	}

	s.rewriteMu.Lock()
	s.lastRewrite = v
	s.rewriteMu.Unlock()
	s.broadcastState()
}

func (s *Server) handleContract(w http.ResponseWriter, r *http.Request) {
	var req writer.ContractRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if s.contract == nil {
		s.writeError(w, domain.ErrNotConfigured)
		return
	}

	md, err := s.contract.GenerateContract(context.WithoutCancel(r.Context()), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"markdown": md})
}
