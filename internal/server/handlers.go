package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/raaihank/fairhire/internal/anonymizer"
	"github.com/raaihank/fairhire/internal/compat"
	"github.com/raaihank/fairhire/internal/document"
	"github.com/raaihank/fairhire/internal/redact"
	"github.com/raaihank/fairhire/internal/storage"
	"github.com/raaihank/fairhire/internal/websocket"
)

const (
	uploadField       = "file"
	multipartMemory   = 8 << 20
	defaultGaugeTitle = "Compatibility Index"
)

// handleAnonymize masks an uploaded PDF or DOCX and returns the new PDF
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.fail(w, r, fmt.Errorf("%w: reading upload: %w", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: form field %q: %w", errBadRequest, uploadField, err))
		return
	}
	defer file.Close()

	format, err := document.Sniff(file, header.Filename)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var out bytes.Buffer
	report, err := s.services.Anonymizer.Anonymize(r.Context(), file, format, &out)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	requestID := RequestID(r.Context())
	event := websocket.AnonymizationEvent{
		RequestID:    requestID,
		Format:       string(report.Format),
		Pages:        report.Pages,
		Findings:     report.Findings,
		TotalMasked:  maskedCount(report.Findings),
		ProcessingMS: milliseconds(report.Duration),
	}
	if report.Render != nil {
		event.ClippedLines = report.Render.ClippedLines
	}
	if report.Artifact != nil {
		event.Artifact = report.Artifact.Name
		w.Header().Set("X-Artifact-Name", report.Artifact.Name)
	}
	s.publish(websocket.EventTypeAnonymization, requestID, event)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", anonymizer.DefaultOutputName))
	w.Header().Set("Content-Length", strconv.Itoa(out.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Bytes())
}

type anonymizeTextRequest struct {
	Pages []string `json:"pages"`
}

type anonymizeTextResponse struct {
	Pages    []anonymizer.PageResult `json:"pages"`
	Findings []redact.Finding        `json:"findings"`
}

// handleAnonymizeText masks page text without rendering a document
func (s *Server) handleAnonymizeText(w http.ResponseWriter, r *http.Request) {
	var req anonymizeTextRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.Pages) == 0 {
		s.fail(w, r, fmt.Errorf("%w: pages cannot be empty", errBadRequest))
		return
	}

	start := time.Now()
	pages, err := s.services.Anonymizer.AnonymizeText(r.Context(), req.Pages)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	findings := anonymizer.MergeFindings(pages)

	requestID := RequestID(r.Context())
	s.publish(websocket.EventTypeAnonymization, requestID, websocket.AnonymizationEvent{
		RequestID:    requestID,
		Format:       "text",
		Pages:        len(pages),
		Findings:     findings,
		TotalMasked:  maskedCount(findings),
		ProcessingMS: milliseconds(time.Since(start)),
	})

	writeJSON(w, http.StatusOK, anonymizeTextResponse{Pages: pages, Findings: findings})
}

// handleArtifact streams a stored anonymized document
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := storage.ValidateName(name); err != nil {
		s.fail(w, r, err)
		return
	}
	if s.services.Artifacts == nil {
		s.fail(w, r, fmt.Errorf("%w: artifact storage is disabled", storage.ErrNotFound))
		return
	}

	rc, err := s.services.Artifacts.Open(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", anonymizer.DefaultOutputName))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}

type compatibilityRequest struct {
	Description string `json:"description"`
	Skills      string `json:"skills"`
}

// handleCompatibility scores one description against a skill list
func (s *Server) handleCompatibility(w http.ResponseWriter, r *http.Request) {
	var req compatibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	score, err := s.services.Scorer.Score(r.Context(), req.Description, s.skillsOrDefault(req.Skills))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	requestID := RequestID(r.Context())
	s.publish(websocket.EventTypeCompatibility, requestID, compatibilityEvent(requestID, "", *score))
	writeJSON(w, http.StatusOK, score)
}

type catalogRequest struct {
	Skills string `json:"skills"`
}

// handleCatalogScores scores a skill list against every catalog job
func (s *Server) handleCatalogScores(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	results, err := s.services.CatalogScorer.ScoreAll(r.Context(), s.skillsOrDefault(req.Skills))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	requestID := RequestID(r.Context())
	for _, result := range results {
		s.publish(websocket.EventTypeCompatibility, requestID, compatibilityEvent(requestID, result.Title, result.Score))
	}
	writeJSON(w, http.StatusOK, results)
}

// handleJobs lists the catalog
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.services.Catalog.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleGauge renders the gauge for a raw similarity given as ?score=
func (s *Server) handleGauge(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("score")
	similarity, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: score %q is not a number", errBadRequest, raw))
		return
	}
	title := r.URL.Query().Get("title")
	if strings.TrimSpace(title) == "" {
		title = defaultGaugeTitle
	}

	var buf bytes.Buffer
	if err := s.services.Gauge.Render(&buf, compat.DisplayValue(similarity), title); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) skillsOrDefault(skills string) string {
	if strings.TrimSpace(skills) == "" {
		return s.defaultSkills
	}
	return skills
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	return nil
}

func compatibilityEvent(requestID, title string, score compat.Score) websocket.CompatibilityEvent {
	return websocket.CompatibilityEvent{
		RequestID:    requestID,
		Title:        title,
		Similarity:   score.Similarity,
		Display:      score.Display,
		Band:         string(score.Band),
		ProcessingMS: milliseconds(score.Duration),
	}
}

func maskedCount(findings []redact.Finding) int {
	n := 0
	for _, f := range findings {
		n += f.Count
	}
	return n
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
