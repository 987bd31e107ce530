package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"rsstrigger/internal/domain"
	"rsstrigger/internal/feed"
	"rsstrigger/internal/jobs"
	"rsstrigger/internal/metrics"
	"rsstrigger/internal/quiz"
	"rsstrigger/internal/rss"
	"rsstrigger/internal/scheduler"
)

type Deps struct {
	Feed      *feed.Repository
	Jobs      *jobs.Repository
	Scheduler *scheduler.Service
	Quizzes   *quiz.Store
	Riddle    *quiz.Client
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	BaseURL   string
	FeedTitle string
	Debug     bool
}

type Server struct {
	r *chi.Mux
	Deps
	now func() time.Time

	// jobsMu spans a job record change and the timer reconciliation that
	// follows it, so a concurrent delete cannot leave an orphaned timer.
	jobsMu sync.Mutex
}

func NewServer(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	if d.Quizzes == nil {
		d.Quizzes = quiz.NewStore()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{r: r, Deps: d, now: time.Now}

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Get("/feed-items", s.listFeedItems)
	r.Post("/trigger", s.trigger)
	r.Get("/rss", s.rssDocument)

	r.Get("/scheduled-jobs", s.listJobs)
	r.Post("/scheduled-jobs", s.createJob)
	r.Patch("/scheduled-jobs/{id}", s.updateJob)
	r.Delete("/scheduled-jobs/{id}", s.deleteJob)
	r.Post("/scheduled-jobs/{id}/run", s.runJob)
	r.Post("/init-scheduler", s.initScheduler)

	r.Get("/created-quizzes", s.createdQuizzes)
	r.Delete("/created-quizzes", s.clearQuizzes)
	r.Get("/created-quizzes/{uuid}", s.createdQuiz)
	r.Post("/upload-quiz", s.uploadQuiz)
	r.Post("/upload-quiz-direct", s.uploadQuizDirect)

	if d.Debug {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
		r.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		r.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	}

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) listFeedItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Feed.LoadFeedItems(r.Context()))
}

type triggerReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type triggerResp struct {
	Message string    `json:"message"`
	Title   string    `json:"title"`
	ID      string    `json:"id"`
	PubDate time.Time `json:"pubDate"`
}

func (s *Server) trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerReq
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item := s.Feed.AddFeedItem(r.Context(), req.Title, req.Description)
	s.Metrics.FeedItemAdded(metrics.SourceManual)
	writeJSON(w, http.StatusCreated, triggerResp{
		Message: "RSS trigger created successfully",
		Title:   item.Title,
		ID:      item.ID,
		PubDate: item.PubDate,
	})
}

func (s *Server) rssDocument(w http.ResponseWriter, r *http.Request) {
	body, err := rss.Generate(s.Feed.LoadFeedItems(r.Context()), s.FeedTitle, s.BaseURL, s.now())
	if err != nil {
		log.Error().Err(err).Msg("failed to generate RSS feed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Jobs.LoadScheduledJobs(r.Context()))
}

type createJobReq struct {
	Name        string `json:"name"`
	CronPattern string `json:"cronPattern"`
	Enabled     *bool  `json:"enabled"`
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.CronPattern == "" {
		writeError(w, http.StatusBadRequest, "name and cron pattern are required")
		return
	}
	if err := scheduler.ValidateCronExpression(req.CronPattern); err != nil {
		writeError(w, http.StatusBadRequest, "invalid cron pattern")
		return
	}
	enabled := req.Enabled == nil || *req.Enabled

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	job := s.Jobs.AddScheduledJob(r.Context(), req.Name, req.CronPattern, enabled)
	if enabled {
		if err := s.Scheduler.StartJob(job.ID, job.Name, job.CronPattern); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("failed to start job")
		}
	}
	writeJSON(w, http.StatusCreated, job)
}

type updateJobReq struct {
	Enabled     *bool  `json:"enabled"`
	Name        string `json:"name"`
	CronPattern string `json:"cronPattern"`
}

func (s *Server) updateJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateJobReq
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var upd domain.JobUpdate
	upd.Enabled = req.Enabled
	if req.Name != "" {
		upd.Name = &req.Name
	}
	if req.CronPattern != "" {
		if err := scheduler.ValidateCronExpression(req.CronPattern); err != nil {
			writeError(w, http.StatusBadRequest, "invalid cron pattern")
			return
		}
		upd.CronPattern = &req.CronPattern
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if !s.Jobs.UpdateScheduledJob(r.Context(), id, upd) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, ok := s.Jobs.GetScheduledJob(r.Context(), id)
	if ok {
		s.reconcile(job, upd)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job updated successfully"})
}

// reconcile brings the timer for job in line with an update that was just
// stored. Scheduler faults are logged; the job stays stopped.
func (s *Server) reconcile(job domain.ScheduledJob, upd domain.JobUpdate) {
	var err error
	switch {
	case upd.Enabled != nil && *upd.Enabled:
		err = s.Scheduler.StartJob(job.ID, job.Name, job.CronPattern)
	case upd.Enabled != nil:
		s.Scheduler.StopJob(job.ID)
	case (upd.Name != nil || upd.CronPattern != nil) && job.Enabled:
		err = s.Scheduler.RestartJob(job.ID, job.Name, job.CronPattern)
	}
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("failed to reconcile job timer")
	}
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	s.Scheduler.StopJob(id)
	if !s.Jobs.DeleteScheduledJob(r.Context(), id) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job deleted successfully"})
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	item, err := s.Scheduler.TriggerJob(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusCreated, item)
	}
}

type initResp struct {
	Message    string `json:"message"`
	ActiveJobs int    `json:"activeJobs"`
}

func (s *Server) initScheduler(w http.ResponseWriter, r *http.Request) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	first, n := s.Scheduler.Init(r.Context())
	msg := "Scheduler already initialized"
	if first {
		msg = "Scheduler initialized successfully"
	}
	writeJSON(w, http.StatusOK, initResp{Message: msg, ActiveJobs: n})
}

func (s *Server) createdQuizzes(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.Quizzes.List(limit))
}

func (s *Server) createdQuiz(w http.ResponseWriter, r *http.Request) {
	q, ok := s.Quizzes.FindByUUID(chi.URLParam(r, "uuid"))
	if !ok {
		writeError(w, http.StatusNotFound, "quiz not found")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) clearQuizzes(w http.ResponseWriter, r *http.Request) {
	s.Quizzes.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Created quizzes cleared"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeOptional decodes a JSON body into v, treating an empty body as {}.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
