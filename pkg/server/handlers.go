package server

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/bubblemap/pkg/archive"
	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/buildinfo"
	"github.com/matzehuels/bubblemap/pkg/config"
	"github.com/matzehuels/bubblemap/pkg/errors"
	"github.com/matzehuels/bubblemap/pkg/pipeline"
	"github.com/matzehuels/bubblemap/pkg/scene"
)

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

type layoutResponse struct {
	Cached bool         `json:"cached"`
	Frame  bubble.Frame `json:"frame"`
}

type simulateResponse struct {
	RunID      string               `json:"run_id,omitempty"`
	Cached     bool                 `json:"cached"`
	Simulation *pipeline.Simulation `json:"simulation"`
}

type listResponse struct {
	Runs []*archive.Run `json:"runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Resolve()})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	format, err := formatParam(r, config.FormatJSON)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sc, err := s.readScene(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := s.options(r)
	f, hit, err := s.runner.Layout(r.Context(), sc, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setCacheHeader(w, hit)

	if format == config.FormatJSON {
		writeJSON(w, http.StatusOK, layoutResponse{Cached: hit, Frame: f})
		return
	}
	opts.Formats = []string{format}
	artifacts, err := s.runner.Render(r.Context(), sc, f, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, format, artifacts[format])
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	keep := r.URL.Query().Get("archive") == "true"
	if keep && s.store == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "this server has no run archive"))
		return
	}
	sc, err := s.readScene(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sim, err := s.runner.Simulate(r.Context(), sc, s.options(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setCacheHeader(w, sim.CacheHit)
	resp := simulateResponse{Cached: sim.CacheHit, Simulation: sim}
	if !keep {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	run, err := archive.NewRun(sim, s.ttl)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Save(r.Context(), run); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp.RunID = run.ID
	w.Header().Set("Location", "/v1/runs/"+run.ID)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := archive.ListOptions{Scene: q.Get("scene")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		opts.Limit = n
	}
	runs, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*archive.Run{}
	}
	writeJSON(w, http.StatusOK, listResponse{Runs: runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunFrame(w http.ResponseWriter, r *http.Request) {
	format, err := formatParam(r, config.FormatSVG)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid step %q", chi.URLParam(r, "step")))
		return
	}

	run, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sim, err := run.Decode()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	for _, sf := range sim.Frames {
		if sf.Step != step {
			continue
		}
		artifacts, err := pipeline.RenderFrame(sf.Frame, nil, s.options(r), format)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeArtifact(w, format, artifacts[format])
		return
	}
	s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "run %s has no step %d", run.ID, step))
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readScene parses the request body as a scene.
func (s *Server) readScene(w http.ResponseWriter, r *http.Request) (*scene.Scene, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	var tooBig *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooBig):
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "request body exceeds %d bytes", tooBig.Limit)
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	return scene.Parse(data)
}

func formatParam(r *http.Request, def string) (string, error) {
	f := r.URL.Query().Get("format")
	if f == "" {
		return def, nil
	}
	if err := errors.ValidateFormat(f, config.Formats...); err != nil {
		return "", err
	}
	return f, nil
}
