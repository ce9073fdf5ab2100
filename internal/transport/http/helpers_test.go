package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/infra/memory"
)

type testEnv struct {
	server *httptest.Server
	conn   *memory.Connectivity
	svc    Services
}

func newTestEnv(t *testing.T, online bool) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := memory.NewDatabase()
	local := memory.NewLocalStore()
	conn := memory.NewConnectivity(online)

	scoreRepo := memory.NewScoreRepository(db)
	users := memory.NewUserRepository(db)
	classRepo := memory.NewClassRepository(db)

	scores := app.NewScoreService(scoreRepo, local, conn, log)
	classes := app.NewClassService(classRepo, users, log)
	chat := app.NewChatService(memory.NewChatRepository(db), local, conn, log)
	svc := Services{
		Scores:      scores,
		Leaderboard: app.NewLeaderboardService(scoreRepo, users),
		Classes:     classes,
		Chat:        chat,
		Users:       app.NewUserService(users),
		State:       app.NewAppState(local, scores, classes, log),
		Health:      map[string]app.Connectivity{"remote": conn},
	}

	server := httptest.NewServer(NewRouter(NewAPI(svc, log), NewWSHandler(chat, log)))
	t.Cleanup(server.Close)
	return &testEnv{server: server, conn: conn, svc: svc}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
