package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/domain"
)

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Scores      *app.ScoreService
	Leaderboard *app.LeaderboardService
	Classes     *app.ClassService
	Chat        *app.ChatService
	Users       *app.UserService
	State       *app.AppState
	// Health names the stores probed by /healthz.
	Health      map[string]app.Connectivity
}

type API struct {
	svc Services
	log *slog.Logger
}

func NewAPI(svc Services, logger *slog.Logger) *API {
	return &API{svc: svc, log: logger}
}

// NewRouter registers every REST route and the chat websocket.
func NewRouter(api *API, ws *WSHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware, api.logRequests)

	r.HandleFunc("/healthz", api.health).Methods(http.MethodGet)

	r.HandleFunc("/scores", api.saveScore).Methods(http.MethodPost)
	r.HandleFunc("/scores", api.fetchScores).Methods(http.MethodGet)
	r.HandleFunc("/scores/sync", api.syncScores).Methods(http.MethodPost)
	r.HandleFunc("/scores/pending", api.pendingScores).Methods(http.MethodGet)

	r.HandleFunc("/leaderboard", api.generalLeaderboard).Methods(http.MethodGet)

	r.HandleFunc("/classes", api.createClass).Methods(http.MethodPost)
	r.HandleFunc("/classes", api.listClasses).Methods(http.MethodGet)
	r.HandleFunc("/classes/join", api.joinClass).Methods(http.MethodPost)
	r.HandleFunc("/classes/{id}", api.getClass).Methods(http.MethodGet)
	r.HandleFunc("/classes/{id}", api.deleteClass).Methods(http.MethodDelete)
	r.HandleFunc("/classes/{id}/leaderboard", api.classLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/classes/{id}/messages", api.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/classes/{id}/messages", api.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/classes/{id}/messages/read", api.markRead).Methods(http.MethodPost)
	r.HandleFunc("/classes/{id}/messages/unread", api.unreadCount).Methods(http.MethodGet)

	r.HandleFunc("/users", api.registerUser).Methods(http.MethodPost)
	r.HandleFunc("/users", api.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", api.getUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/scores", api.userScores).Methods(http.MethodGet)

	r.HandleFunc("/session", api.login).Methods(http.MethodPost)
	r.HandleFunc("/session", api.currentSession).Methods(http.MethodGet)
	r.HandleFunc("/session", api.logout).Methods(http.MethodDelete)

	if ws != nil {
		r.HandleFunc("/ws/chat", ws.ServeWS)
	}

	// Preflight requests need a matched route for the middleware to run.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	report := make(map[string]bool, len(a.svc.Health))
	for name, conn := range a.svc.Health {
		report[name] = conn.IsConnected(r.Context())
		if !report[name] {
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, report)
}

func (a *API) saveScore(w http.ResponseWriter, r *http.Request) {
	var sub domain.ScoreSubmission
	if !a.decode(w, r, &sub) {
		return
	}
	res, err := a.svc.Scores.Save(r.Context(), sub)
	if err != nil {
		a.fail(w, err)
		return
	}
	status := http.StatusCreated
	if res.OfflineSaved {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func (a *API) fetchScores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	partition, ok := domain.ParsePartition(q.Get("partition"))
	if !ok {
		writeError(w, http.StatusBadRequest, "partition must be general or class")
		return
	}
	scores, err := a.svc.Scores.Fetch(r.Context(), domain.ScoreQuery{
		Partition:    partition,
		UserID:       q.Get("userId"),
		MaterialName: q.Get("materialName"),
		QuizName:     q.Get("quizName"),
		ClassID:      q.Get("classId"),
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (a *API) syncScores(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Scores.Flush(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) pendingScores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Scores.Pending(r.Context()))
}

func (a *API) userScores(w http.ResponseWriter, r *http.Request) {
	scores, err := a.svc.Scores.FetchForUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (a *API) generalLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := a.svc.Leaderboard.General(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *API) classLeaderboard(w http.ResponseWriter, r *http.Request) {
	material := r.URL.Query().Get("materialName")
	if material == "" {
		writeError(w, http.StatusBadRequest, "materialName is required")
		return
	}
	board, err := a.svc.Leaderboard.Class(r.Context(), mux.Vars(r)["id"], material)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *API) createClass(w http.ResponseWriter, r *http.Request) {
	var in domain.NewClass
	if !a.decode(w, r, &in) {
		return
	}
	class, err := a.svc.Classes.Create(r.Context(), in)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, class)
}

func (a *API) listClasses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		classes []domain.Class
		err     error
	)
	switch {
	case q.Get("teacherId") != "":
		classes, err = a.svc.Classes.ListForTeacher(r.Context(), q.Get("teacherId"))
	case q.Get("studentId") != "":
		classes, err = a.svc.Classes.ListForStudent(r.Context(), q.Get("studentId"))
	default:
		writeError(w, http.StatusBadRequest, "teacherId or studentId is required")
		return
	}
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

type joinRequest struct {
	UserID    string `json:"userId"`
	ClassCode string `json:"classCode"`
}

func (a *API) joinClass(w http.ResponseWriter, r *http.Request) {
	var in joinRequest
	if !a.decode(w, r, &in) {
		return
	}
	class, err := a.svc.Classes.Join(r.Context(), in.UserID, in.ClassCode)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (a *API) getClass(w http.ResponseWriter, r *http.Request) {
	class, err := a.svc.Classes.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (a *API) deleteClass(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Classes.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.svc.Chat.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	var in domain.NewMessage
	if !a.decode(w, r, &in) {
		return
	}
	in.ClassID = mux.Vars(r)["id"]
	msg, err := a.svc.Chat.Send(r.Context(), in)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

type readRequest struct {
	UserID string `json:"userId"`
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	var in readRequest
	if !a.decode(w, r, &in) {
		return
	}
	n, err := a.svc.Chat.MarkRead(r.Context(), mux.Vars(r)["id"], in.UserID)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": n})
}

func (a *API) unreadCount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var since time.Time
	if raw := q.Get("since"); raw != "" {
		var err error
		if since, err = time.Parse(time.RFC3339, raw); err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
	}
	n, err := a.svc.Chat.Unread(r.Context(), mux.Vars(r)["id"], q.Get("userId"), since)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (a *API) registerUser(w http.ResponseWriter, r *http.Request) {
	var in domain.User
	if !a.decode(w, r, &in) {
		return
	}
	user, err := a.svc.Users.Register(r.Context(), in)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = domain.RoleStudent
	}
	users, err := a.svc.Users.ListByRole(r.Context(), role)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.svc.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type sessionResponse struct {
	User    domain.User    `json:"user"`
	Classes []domain.Class `json:"classes"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in domain.User
	if !a.decode(w, r, &in) {
		return
	}
	if err := a.svc.State.Login(r.Context(), in); err != nil {
		a.fail(w, err)
		return
	}
	a.currentSession(w, r)
}

func (a *API) currentSession(w http.ResponseWriter, r *http.Request) {
	user, ok := a.svc.State.Current()
	if !ok {
		a.fail(w, domain.ErrNotAuthenticated)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Classes: a.svc.State.Classes()})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.State.Logout(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (a *API) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", "err", err)
	}
	writeError(w, status, err.Error())
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidScore),
		errors.Is(err, domain.ErrInvalidSubmission),
		errors.Is(err, domain.ErrInvalidClass),
		errors.Is(err, domain.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrClassNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrClassCodeTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOffline),
		errors.Is(err, domain.ErrNoCache):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.log.Debug("http request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}
