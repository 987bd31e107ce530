package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"rsstrigger/internal/domain"
	"rsstrigger/internal/quiz"
)

type uploadResp struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    *quiz.Published `json:"data,omitempty"`
}

type uploadReq struct {
	QuizData      json.RawMessage `json:"quizData"`
	SourceRequest string          `json:"sourceRequest"`
}

// uploadQuiz accepts {quizData, sourceRequest}; quizData may be the quiz
// object or a string holding its JSON.
func (s *Server) uploadQuiz(w http.ResponseWriter, r *http.Request) {
	var req uploadReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResp{Message: "invalid JSON format"})
		return
	}
	raw := req.QuizData
	if len(raw) == 0 || string(raw) == "null" {
		writeJSON(w, http.StatusBadRequest, uploadResp{Message: "no quiz data sent"})
		return
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}
	s.publish(w, r, raw, req.SourceRequest, false)
}

// uploadQuizDirect takes the quiz document itself as the body.
func (s *Server) uploadQuizDirect(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResp{Message: "invalid JSON format"})
		return
	}
	s.publish(w, r, raw, "", true)
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request, raw json.RawMessage, source string, direct bool) {
	if _, err := quiz.Validate(raw); err != nil {
		s.Metrics.QuizUpload("invalid")
		writeJSON(w, http.StatusBadRequest, uploadResp{Message: err.Error()})
		return
	}
	if !s.Riddle.Configured() {
		writeJSON(w, http.StatusInternalServerError, uploadResp{Message: "server configuration error: API key missing"})
		return
	}

	pub, err := s.Riddle.Upload(r.Context(), raw)
	var apiErr *quiz.APIError
	switch {
	case errors.As(err, &apiErr):
		s.Metrics.QuizUpload(strconv.Itoa(apiErr.StatusCode))
		log.Error().Int("status", apiErr.StatusCode).Str("message", apiErr.Message).Msg("riddle API error")
		code := apiErr.StatusCode
		if direct {
			code = http.StatusBadRequest
		}
		writeJSON(w, code, uploadResp{Message: apiErr.Error()})
		return
	case err != nil:
		s.Metrics.QuizUpload("error")
		log.Error().Err(err).Msg("quiz upload failed")
		writeJSON(w, http.StatusInternalServerError, uploadResp{Message: "server error: " + err.Error()})
		return
	}
	s.Metrics.QuizUpload("ok")

	created := domain.CreatedQuiz{
		UUID:          pub.UUID,
		Title:         pub.Title,
		Created:       pub.Created,
		Published:     pub.Published,
		SourceRequest: source,
	}
	if pub.ViewURL != "" {
		created.ViewURL = &pub.ViewURL
		created.PublishedAt = &pub.Created
	}
	s.Quizzes.Add(created)

	writeJSON(w, http.StatusOK, uploadResp{
		Success: true,
		Message: "Quiz \"" + pub.Title + "\" uploaded successfully",
		Data:    &pub,
	})
}
