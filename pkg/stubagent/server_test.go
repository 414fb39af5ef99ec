package stubagent

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/go-go-golems/agentchat/pkg/pipeline"
	"github.com/stretchr/testify/require"
)

func newStub(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.BasePath == "" {
		opts.BasePath = "/api"
	}
	s, err := NewServer(opts)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeEcho, m)

	m, err = ParseMode("FAIL")
	require.NoError(t, err)
	require.Equal(t, ModeFail, m)

	_, err = ParseMode("sometimes")
	require.Error(t, err)
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(Options{Mode: "weird"})
	require.Error(t, err)
	_, err = NewServer(Options{DefaultModel: "llama"})
	require.Error(t, err)
	_, err = NewServer(Options{Delay: -time.Second})
	require.Error(t, err)
}

func TestSessionThenChat_CookieRoundTrip(t *testing.T) {
	s, srv := newStub(t, Options{})
	c, err := agent.NewClient(srv.URL + "/api")
	require.NoError(t, err)

	require.NoError(t, c.StartSession(context.Background()))
	cookies := c.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, SessionCookie, cookies[0].Name)

	// a second start reuses the session the jar already carries
	require.NoError(t, c.StartSession(context.Background()))
	require.Equal(t, 1, s.SessionCount())

	reply, err := c.Chat(context.Background(), "GDP of Chile?", agent.ModelOpenAI)
	require.NoError(t, err)
	require.Equal(t, "[openai] GDP of Chile?", reply)
	require.Equal(t, 1, s.ChatCount())
}

func TestChat_EmptyModelFallsBackToDefault(t *testing.T) {
	_, srv := newStub(t, Options{})
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"prompt":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "[ollama] hi", string(body))
}

func TestChat_BadRequests(t *testing.T) {
	_, srv := newStub(t, Options{})
	for _, body := range []string{
		`not json`,
		`{"prompt":"  ","model":"ollama"}`,
		`{"prompt":"hi","model":"gpt-9"}`,
	} {
		resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestChat_CORSPreflightAllowsCredentials(t *testing.T) {
	_, srv := newStub(t, Options{AllowedOrigins: []string{"http://localhost:3000"}})
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestModes_ThroughPipeline(t *testing.T) {
	tests := []struct {
		mode Mode
		want func(endpoint string) string
	}{
		{mode: ModeEcho, want: func(string) string { return "[ollama] 42?" }},
		{mode: ModeEmpty, want: func(string) string { return pipeline.FallbackReply }},
		{mode: ModeFail, want: pipeline.ConnectErrorText},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			_, srv := newStub(t, Options{Mode: tt.mode})
			c, err := agent.NewClient(srv.URL + "/api")
			require.NoError(t, err)
			p, err := pipeline.New(c)
			require.NoError(t, err)

			msg, err := p.Submit(context.Background(), "42?", agent.ModelOllama)
			require.NoError(t, err)
			require.Equal(t, tt.want(c.Endpoint()), msg.Text)
			require.False(t, p.IsLoading())
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	s, err := NewServer(Options{BasePath: "/api"})
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	c, err := agent.NewClient("http://" + ln.Addr().String() + "/api")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return c.StartSession(context.Background()) == nil
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
