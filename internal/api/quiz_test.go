package api

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rsstrigger/internal/domain"
	"rsstrigger/internal/quiz"
)

const testQuiz = `{"type":"Quiz","publish":true,"build":{"title":"Capitals","blocks":[{"title":"Capital of Sweden?"}]}}`

func riddleServer(t *testing.T, status int, body string) *quiz.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return quiz.NewClient(srv.URL, "key")
}

func TestUploadQuiz_RecordsCreatedQuiz(t *testing.T) {
	riddle := riddleServer(t, http.StatusOK, `{"success":true,"data":{"UUID":"q-1","title":"Capitals","created":"2026-10-19","published":true}}`)
	env := newTestEnv(t, riddle)

	rec := env.do(t, http.MethodPost, "/upload-quiz", `{"quizData":`+strconv.Quote(testQuiz)+`,"sourceRequest":"example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, true, resp["success"])

	list := decode[[]domain.CreatedQuiz](t, env.do(t, http.MethodGet, "/created-quizzes", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "q-1", list[0].UUID)
	assert.Equal(t, "example.com", list[0].SourceRequest)
	require.NotNil(t, list[0].ViewURL)
	assert.Equal(t, "https://www.riddle.com/view/q-1", *list[0].ViewURL)
}

func TestUploadQuiz_ObjectPayload(t *testing.T) {
	riddle := riddleServer(t, http.StatusOK, `{"UUID":"q-2","title":"Capitals","published":false}`)
	env := newTestEnv(t, riddle)

	rec := env.do(t, http.MethodPost, "/upload-quiz", `{"quizData":`+testQuiz+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUploadQuiz_Errors(t *testing.T) {
	env := newTestEnv(t, riddleServer(t, http.StatusUnprocessableEntity, `{"message":"bad"}`))

	rec := env.do(t, http.MethodPost, "/upload-quiz", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/upload-quiz", `{"quizData":{"type":"Quiz"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/upload-quiz", `{"quizData":`+testQuiz+`}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["success"])

	rec = env.do(t, http.MethodPost, "/upload-quiz-direct", testQuiz)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, env.quizzes.List(-1))
}

func TestUploadQuiz_NotConfigured(t *testing.T) {
	env := newTestEnv(t, quiz.NewClient("", ""))
	rec := env.do(t, http.MethodPost, "/upload-quiz-direct", testQuiz)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreatedQuizzes_Limit(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 15; i++ {
		env.quizzes.Add(domain.CreatedQuiz{UUID: strconv.Itoa(i)})
	}

	assert.Len(t, decode[[]domain.CreatedQuiz](t, env.do(t, http.MethodGet, "/created-quizzes", "")), 10)
	assert.Len(t, decode[[]domain.CreatedQuiz](t, env.do(t, http.MethodGet, "/created-quizzes?limit=3", "")), 3)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/created-quizzes?limit=x", "").Code)
}

func TestCreatedQuizzes_ZeroLimitIsEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	env.quizzes.Add(domain.CreatedQuiz{UUID: "q-1"})

	rec := env.do(t, http.MethodGet, "/created-quizzes?limit=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.CreatedQuiz](t, rec))
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/created-quizzes?limit=-1", "").Code)
}

func TestCreatedQuiz_LookupAndClear(t *testing.T) {
	env := newTestEnv(t, nil)
	added := env.quizzes.Add(domain.CreatedQuiz{UUID: "q-1", Title: "Capitals"})

	rec := env.do(t, http.MethodGet, "/created-quizzes/q-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, added.ID, decode[domain.CreatedQuiz](t, rec).ID)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/created-quizzes/missing", "").Code)

	rec = env.do(t, http.MethodDelete, "/created-quizzes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.quizzes.List(-1))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/created-quizzes/q-1", "").Code)
}
