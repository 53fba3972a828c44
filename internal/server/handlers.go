package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/bankintent/internal/ledger"
	"github.com/ppiankov/bankintent/internal/model"
)

type intentRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type processRequest struct {
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

type processResponse struct {
	Transcript string             `json:"transcript,omitempty"`
	Intent     model.IntentResult `json:"intent"`
	Response   *ledger.Response   `json:"response"`
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.extractor.Extract(req.Text, req.Language))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if s.processor == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger not configured")
		return
	}

	var req processRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	s.process(w, r, req.UserID, req.Text, req.Language, "")
}

func (s *Server) handleProcessVoice(w http.ResponseWriter, r *http.Request) {
	if s.processor == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger not configured")
		return
	}
	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription not configured")
		return
	}

	if r.ContentLength > s.cfg.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "audio too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "audio too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	userID := r.FormValue("user_id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	language := r.FormValue("language")

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer func() { _ = file.Close() }()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read audio: "+err.Error())
		return
	}

	text, err := s.transcriber.Transcribe(r.Context(), audio, header.Filename, language)
	if err != nil {
		s.logger.Warn("transcription failed", zap.String("language", language), zap.Error(err))
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}

	s.process(w, r, userID, text, language, text)
}

// process extracts the intent and runs it on the ledger. Business failures
// (missing amount, unknown recipient, ...) are successful HTTP exchanges
// with success=false in the body.
func (s *Server) process(w http.ResponseWriter, r *http.Request, userID, text, language, transcript string) {
	ext := s.extractor.Extract(text, language)

	resp, err := s.processor.Process(r.Context(), userID, ext.Result)
	outcome := "ok"
	status := http.StatusOK

	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrUserNotFound):
		outcome, status = "user_not_found", http.StatusNotFound
	case errors.Is(err, ledger.ErrAmountMissing),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrRecipientNotFound),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrUnsupportedIntent):
		outcome = "rejected"
	default:
		s.logger.Error("ledger processing failed",
			zap.String("user_id", userID),
			zap.String("intent", string(ext.Result.IntentType)),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.LedgerOperations.WithLabelValues(string(ext.Result.IntentType), "error").Inc()
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if s.metrics != nil {
		s.metrics.LedgerOperations.WithLabelValues(string(ext.Result.IntentType), outcome).Inc()
	}

	writeJSON(w, status, processResponse{
		Transcript: transcript,
		Intent:     ext.Result,
		Response:   resp,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"languages":     s.languages,
		"ledger":        s.processor != nil,
		"transcription": s.transcriber != nil,
	})
}
