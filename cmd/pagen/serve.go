package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/Simplici0/pagen/internal/profiles"
	"github.com/Simplici0/pagen/internal/program"
	"github.com/Simplici0/pagen/internal/settings"
	"github.com/Simplici0/pagen/internal/toolpath"
)

const maxDocumentBytes = 1 << 20

type server struct {
	store  *profiles.Store
	logger *slog.Logger
}

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generation and profiles over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			srv := &server{store: store, logger: a.logger}
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", addr)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server stopped: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.logger.Info("shutting down")
			return httpServer.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", a.env.Addr(), "listen address")
	return cmd
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/defaults", s.handleDefaults)
	r.Post("/generate", s.handleGenerate)
	r.Get("/pa", s.handlePressureAdvance)
	r.Route("/profiles", func(r chi.Router) {
		r.Get("/", s.handleProfilesList)
		r.Get("/{name}", s.handleProfileGet)
		r.Put("/{name}", s.handleProfilePut)
		r.Delete("/{name}", s.handleProfileDelete)
		r.Get("/{name}/gcode", s.handleProfileGCode)
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	s.writeDocument(w, r, settings.Default())
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	doc, err := readDocument(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if r.URL.Query().Get("strict") != "true" {
		doc = settings.WithDefaults(doc)
	}
	s.writeGCode(w, doc)
}

func (s *server) handlePressureAdvance(w http.ResponseWriter, r *http.Request) {
	doc := settings.Default()
	if name := r.URL.Query().Get("profile"); name != "" {
		stored, err := s.store.Get(r.Context(), name)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		doc = settings.WithDefaults(stored)
	}
	cfg, err := settings.Resolve(doc)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	raw := r.URL.Query().Get("height")
	if raw == "" {
		steps, err := toolpath.SweepTable(cfg)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, steps)
		return
	}

	height, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid height %q", raw))
		return
	}
	layer, value, err := toolpath.ValueAtHeight(cfg, height)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"height":           height,
		"layer":            layer + 1,
		"pressure_advance": value,
	})
}

func (s *server) handleProfilesList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	type item struct {
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	items := make([]item, 0, len(list))
	for _, p := range list {
		items = append(items, item{Name: p.Name, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeDocument(w, r, doc)
}

func (s *server) handleProfilePut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	doc, err := readDocument(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	doc = settings.WithDefaults(doc)
	if _, err := settings.Resolve(doc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	created, err := s.store.Save(r.Context(), name, doc)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]string{"name": name})
}

func (s *server) handleProfileDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleProfileGCode(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeGCode(w, settings.WithDefaults(doc))
}

func (s *server) writeGCode(w http.ResponseWriter, doc *settings.Document) {
	res, err := program.Generate(doc, s.logger)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.Header().Set("Content-Type", "text/x-gcode; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="pressure_advance.gcode"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.GCode)))
	_, _ = w.Write(res.GCode)
}

func (s *server) writeDocument(w http.ResponseWriter, r *http.Request, doc *settings.Document) {
	format := settings.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := settings.ParseFormat(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		format = f
	}

	var buf bytes.Buffer
	if err := settings.Encode(&buf, doc, format); err != nil {
		http.Error(w, "failed to encode settings", http.StatusInternalServerError)
		return
	}
	if format == settings.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	_, _ = w.Write(buf.Bytes())
}

func (s *server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, profiles.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.logger.Error("profile store", "err", err)
	http.Error(w, "profile store error", http.StatusInternalServerError)
}

// readDocument decodes a request body as JSON, or as YAML when the content
// type says so.
func readDocument(r *http.Request) (*settings.Document, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("settings document larger than %d bytes", maxDocumentBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return settings.Default(), nil
	}

	format := settings.FormatJSON
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && strings.Contains(mt, "yaml") {
		format = settings.FormatYAML
	}
	return settings.Decode(data, format)
}

type errorResponse struct {
	Error string `json:"error"`
	Path  string `json:"path,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var cerr *settings.ConfigError
	if errors.As(err, &cerr) {
		resp.Path = cerr.Path
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
