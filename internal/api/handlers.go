package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/pipeline"
	"tada-pipeline/internal/programs"
)

func newPipelineID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return "pl_" + hex.EncodeToString(b)
}

// ownedPipeline resolves {id} and enforces API-key scoping.
func (s *Server) ownedPipeline(w http.ResponseWriter, r *http.Request) (*pipeline.Pipeline, bool) {
	id := mux.Vars(r)["id"]
	p, ok := s.orch.Index().Get(id)
	if !ok || p.APIKey != CallerFromContext(r.Context()) {
		writeError(w, http.StatusNotFound, "pipeline not found")
		return nil, false
	}
	return p, true
}

func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	list := s.orch.Index().ListByAPIKey(caller)
	if list == nil {
		list = []*pipeline.Pipeline{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pipelines": list})
}

func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPipeline(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreatePipeline(w http.ResponseWriter, r *http.Request) {
	var p pipeline.Pipeline
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	p.ID = newPipelineID()
	p.APIKey = CallerFromContext(r.Context())
	if p.Status == "" {
		p.Status = pipeline.StatusActive
	}

	if err := s.orch.Index().Upsert(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.UpsertPipeline(r.Context(), &p); err != nil {
		s.orch.Index().Remove(p.ID)
		writeError(w, http.StatusInternalServerError, "persist pipeline: "+err.Error())
		return
	}
	s.syncSvix(r.Context(), &p)
	writeJSON(w, http.StatusCreated, &p)
}

// syncSvix mirrors the pipeline's webhook endpoint into the hosted delivery
// backend. Failures are logged and do not fail the write.
func (s *Server) syncSvix(ctx context.Context, p *pipeline.Pipeline) {
	if s.svix == nil || p.Destinations.Webhook == nil || !p.Destinations.Webhook.Enabled {
		return
	}
	if err := s.svix.EnsurePipeline(ctx, p); err != nil {
		log.Printf("[api] svix sync failed for pipeline %s: %v (continuing)", p.ID, err)
	}
}

func (s *Server) handleUpdatePipeline(w http.ResponseWriter, r *http.Request) {
	prev, ok := s.ownedPipeline(w, r)
	if !ok {
		return
	}

	var p pipeline.Pipeline
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	p.ID = prev.ID
	p.APIKey = prev.APIKey
	p.CreatedAt = prev.CreatedAt
	if p.Status == "" {
		p.Status = prev.Status
	}

	if err := s.orch.Index().Upsert(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.UpsertPipeline(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, "persist pipeline: "+err.Error())
		return
	}
	s.syncSvix(r.Context(), &p)
	writeJSON(w, http.StatusOK, &p)
}

func (s *Server) handleDeletePipeline(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPipeline(w, r)
	if !ok {
		return
	}
	s.orch.Index().Remove(p.ID)
	if err := s.store.DeletePipeline(r.Context(), p.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "delete pipeline: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": p.ID})
}

func (s *Server) handlePausePipeline(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, pipeline.StatusPaused)
}

func (s *Server) handleResumePipeline(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, pipeline.StatusActive)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request, st pipeline.Status) {
	prev, ok := s.ownedPipeline(w, r)
	if !ok {
		return
	}
	next := *prev
	next.Status = st
	next.UpdatedAt = time.Now().UTC()

	if err := s.orch.Index().Upsert(&next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SetPipelineStatus(r.Context(), next.ID, st); err != nil {
		writeError(w, http.StatusInternalServerError, "persist status: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &next)
}

// handleTestPipeline synthesizes a sample trade event for the pipeline's
// first program and runs it through filter, transform, and delivery.
func (s *Server) handleTestPipeline(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPipeline(w, r)
	if !ok {
		return
	}

	e := sampleEvent(p.Programs[0])
	matched, results := s.orch.TestFire(r.Context(), p, e)
	writeJSON(w, http.StatusOK, map[string]any{
		"matched": matched,
		"event":   e,
		"results": results,
	})
}

func sampleEvent(prog programs.ID) *events.Event {
	now := time.Now().Unix()
	addr := programs.Address(prog)
	sig := "TESTSIGNATURE1111111111111111111111111111111111111111111111111111111111111111111111111"
	return &events.Event{
		ID:             events.EventID(sig, addr, 0),
		Program:        prog,
		ProgramAddress: addr,
		Name:           "TradeEvent",
		Signature:      sig,
		Slot:           0,
		BlockTime:      now,
		Signer:         "TESTWALLET111111111111111111111111111111111",
		Source:         events.Source{Type: events.SourceDirect},
		Data: events.Data{
			"mint":                   "TESTMINT1111111111111111111111111111111111111",
			"sol_amount":             "1000000000",
			"token_amount":           "52500000000",
			"is_buy":                 true,
			"user":                   "TESTWALLET111111111111111111111111111111111",
			"virtual_sol_reserves":   "31000000000",
			"virtual_token_reserves": "1060000000000000",
		},
	}
}
