package server

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/matzehuels/fieldbook/pkg/buildinfo"
	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/pipeline"
	"github.com/matzehuels/fieldbook/pkg/store"
	"github.com/matzehuels/fieldbook/pkg/verify"
)

var validate = newValidator()

// layoutRequest is the body of POST /api/v1/layouts.
type layoutRequest struct {
	Name             string   `json:"name" validate:"max=200"`
	Genotypes        []string `json:"genotypes" validate:"required,min=2,dive,required"`
	Blocks           int      `json:"blocks" validate:"required,min=2"`
	Columns          int      `json:"columns" validate:"min=0"`
	VariableCapacity bool     `json:"variable_capacity"`
	Capacities       []int    `json:"capacities" validate:"omitempty,dive,min=1"`
	Serpentine       bool     `json:"serpentine"`
	Alongside        string   `json:"alongside" validate:"omitempty,oneof=no rows columns"`
	Seed             *uint64  `json:"seed"`
}

func (req *layoutRequest) options() design.Options {
	return design.Options{
		Genotypes:        req.Genotypes,
		Blocks:           req.Blocks,
		Columns:          req.Columns,
		VariableCapacity: req.VariableCapacity,
		Capacities:       req.Capacities,
		Serpentine:       req.Serpentine,
		Alongside:        design.Alongside(req.Alongside),
		Seed:             req.Seed,
	}
}

type layoutResponse struct {
	ID     string          `json:"id"`
	Name   string          `json:"name,omitempty"`
	Book   *fieldbook.Book `json:"book"`
	Report verify.Report   `json:"report"`
	Cached bool            `json:"cached"`
}

// verifyRequest is the body of POST /api/v1/verify. Genotypes, when set,
// is the list every block must contain.
type verifyRequest struct {
	Book      *fieldbook.Book `json:"book" validate:"required"`
	Genotypes []string        `json:"genotypes" validate:"omitempty,dive,required"`
}

type verifyResponse struct {
	OK      bool          `json:"ok"`
	Summary string        `json:"summary"`
	Report  verify.Report `json:"report"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleCreateLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}
	if err := validate.Struct(&req); err != nil {
		if fields := fieldErrors(err); fields != nil {
			s.writeFieldErrors(w, r, fields)
			return
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "validate request"))
		return
	}
	if s.cfg.MaxGenotypes > 0 && len(req.Genotypes) > s.cfg.MaxGenotypes {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidGenotypes,
			"%d genotypes exceeds the limit of %d", len(req.Genotypes), s.cfg.MaxGenotypes))
		return
	}

	opts := pipeline.Options{Design: req.options(), Logger: s.logger}
	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec := store.NewRecord(req.Name, opts.Design, result.Book)
	if err := s.store.Save(r.Context(), rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("layout created", "id", rec.ID, "plots", result.Book.Len())

	w.Header().Set("Location", "/api/v1/layouts/"+rec.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, layoutResponse{
		ID:     rec.ID,
		Name:   rec.Name,
		Book:   result.Book,
		Report: result.Report,
		Cached: result.CacheInfo.LayoutHit,
	})
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	recs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*store.Record{}
	}
	render.JSON(w, r, map[string]any{"layouts": recs})
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, rec)
}

func (s *Server) handleDeleteLayout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !store.ValidID(id) {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "layout %q not found", id))
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyLayout(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	report := s.runner.Verify(r.Context(), rec.Book)
	render.JSON(w, r, verifyResponse{OK: report.OK(), Summary: report.Summary(), Report: report})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}
	if err := validate.Struct(&req); err != nil {
		if fields := fieldErrors(err); fields != nil {
			s.writeFieldErrors(w, r, fields)
			return
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "validate request"))
		return
	}

	var report verify.Report
	if len(req.Genotypes) > 0 {
		report = verify.CheckAgainst(req.Book, req.Genotypes)
	} else {
		report = s.runner.Verify(r.Context(), req.Book)
	}
	render.JSON(w, r, verifyResponse{OK: report.OK(), Summary: report.Summary(), Report: report})
}

// handleRenderLayout serves a stored layout as an image (svg, png, pdf,
// dot) or as the field book itself (json, csv, xlsx).
func (s *Server) handleRenderLayout(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	format := chi.URLParam(r, "format")

	switch format {
	case fieldbook.FormatJSON, fieldbook.FormatCSV, fieldbook.FormatXLSX:
		data, err := fieldbook.Bytes(rec.Book, format)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeFile(w, rec.ID, format, data)
		return
	}

	opts := pipeline.Options{
		Formats: []string{format},
		Viz:     r.URL.Query().Get("viz"),
		Title:   rec.Name,
		Logger:  s.logger,
	}
	if v := r.URL.Query().Get("numbers"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid numbers %q", v))
			return
		}
		opts.ShowNumbers = b
	}
	artifacts, err := s.runner.Render(r.Context(), rec.Book, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeFile(w, rec.ID, format, artifacts[format])
}

// record loads the layout named by the id URL parameter, writing a 404 if
// it does not exist.
func (s *Server) record(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	id := chi.URLParam(r, "id")
	if !store.ValidID(id) {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "layout %q not found", id))
		return nil, false
	}
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return rec, true
}

var contentTypes = map[string]string{
	"svg":  "image/svg+xml",
	"png":  "image/png",
	"pdf":  "application/pdf",
	"dot":  "text/vnd.graphviz; charset=utf-8",
	"json": "application/json",
	"csv":  "text/csv; charset=utf-8",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (s *Server) writeFile(w http.ResponseWriter, id, format string, data []byte) {
	ct := contentTypes[format]
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{
		"filename": "fieldbook-" + id + "." + format,
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := bytes.NewReader(data).WriteTo(w); err != nil {
		s.logger.Warn("write response", "err", err)
	}
}
