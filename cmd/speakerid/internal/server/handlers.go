package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haivivi/speakerid/pkg/voiceprint"
)

type verifyRequest struct {
	A       string `json:"a"`
	B       string `json:"b,omitempty"`
	Speaker string `json:"speaker,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.A == "" || (req.B == "") == (req.Speaker == "") {
		badRequest(w, "a and exactly one of b or speaker are required")
		return
	}
	other := voiceprint.AudioInput(req.B)
	if req.Speaker != "" {
		other = voiceprint.EnrolledInput(req.Speaker)
	}
	res, err := s.opts.Verifier.Verify(r.Context(), voiceprint.AudioInput(req.A), other)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type enrollRequest struct {
	Path      string `json:"path"`
	SpeakerID string `json:"speaker_id,omitempty"`
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Path == "" {
		badRequest(w, "path is required")
		return
	}
	en, err := s.opts.Enroller.Enroll(r.Context(), req.Path, req.SpeakerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if en.Replaced {
		status = http.StatusOK
	}
	writeJSON(w, status, en)
}

type identifyRequest struct {
	Path string `json:"path"`
	TopK int    `json:"top_k,omitempty"`
}

type identifyResponse struct {
	Candidates []voiceprint.Candidate `json:"candidates"`
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Path == "" {
		badRequest(w, "path is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}
	cands, err := s.opts.Identifier.Identify(r.Context(), voiceprint.AudioInput(req.Path), req.TopK)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cands == nil {
		cands = []voiceprint.Candidate{}
	}
	writeJSON(w, http.StatusOK, identifyResponse{Candidates: cands})
}

// speaker is the API view of an enrolled record.
type speaker struct {
	voiceprint.Metadata
	Label string `json:"label,omitempty"`
}

type listResponse struct {
	Speakers []speaker `json:"speakers"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.opts.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := listResponse{Speakers: make([]speaker, 0, len(list))}
	for _, m := range list {
		resp.Speakers = append(resp.Speakers, speaker{Metadata: m, Label: m.Label()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := voiceprint.ValidateSpeakerID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.opts.Store.Record(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, speaker{Metadata: rec.Metadata, Label: rec.Metadata.Label()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.opts.Enroller.Unenroll(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
