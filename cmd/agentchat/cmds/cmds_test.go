package cmds

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/go-go-golems/agentchat/pkg/config"
	"github.com/go-go-golems/agentchat/pkg/pipeline"
	"github.com/go-go-golems/agentchat/pkg/stubagent"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func newStubApp(t *testing.T, mode stubagent.Mode) (*app, string) {
	t.Helper()
	s, err := stubagent.NewServer(stubagent.Options{BasePath: "/api", Mode: mode})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	base := srv.URL + "/api"
	return &app{settings: &config.Settings{
		BaseURL:     base,
		ChatPath:    agent.DefaultChatPath,
		SessionPath: agent.DefaultSessionPath,
		Model:       agent.ModelOllama,
		Markdown:    true,
	}}, base
}

func TestAsk_PrintsReply(t *testing.T) {
	a, _ := newStubApp(t, stubagent.ModeEcho)
	var out bytes.Buffer
	err := a.runAsk(context.Background(), &askSettings{}, []string{"GDP", "of", "Peru?"}, os.Stdin, &out)
	require.NoError(t, err)
	require.Equal(t, "[ollama] GDP of Peru?\n", out.String())
}

func TestAsk_FailureIsPrintedNotReturned(t *testing.T) {
	a, base := newStubApp(t, stubagent.ModeFail)
	var out bytes.Buffer
	err := a.runAsk(context.Background(), &askSettings{}, []string{"hi"}, os.Stdin, &out)
	require.NoError(t, err)
	require.Equal(t, pipeline.ConnectErrorText(base+"/chat")+"\n", out.String())
}

func TestAsk_EmptyReplyUsesFallback(t *testing.T) {
	a, _ := newStubApp(t, stubagent.ModeEmpty)
	var out bytes.Buffer
	require.NoError(t, a.runAsk(context.Background(), &askSettings{}, []string{"hi"}, os.Stdin, &out))
	require.Equal(t, pipeline.FallbackReply+"\n", out.String())
}

func TestAsk_CodeOnly(t *testing.T) {
	a, _ := newStubApp(t, stubagent.ModeEcho)
	var out bytes.Buffer
	prompt := "here:\n```go\nx := 1\n```\n"
	err := a.runAsk(context.Background(), &askSettings{Code: true}, []string{prompt}, os.Stdin, &out)
	require.NoError(t, err)
	require.Equal(t, "x := 1\n", out.String())
}

func TestAsk_PromptFromStdin(t *testing.T) {
	a, _ := newStubApp(t, stubagent.ModeEcho)

	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("population of Kenya\n"), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out bytes.Buffer
	require.NoError(t, a.runAsk(context.Background(), &askSettings{}, nil, f, &out))
	require.Equal(t, "[ollama] population of Kenya\n", out.String())
}

func TestAsk_EmptyPromptIsRejected(t *testing.T) {
	a, _ := newStubApp(t, stubagent.ModeEcho)

	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out bytes.Buffer
	err = a.runAsk(context.Background(), &askSettings{}, nil, f, &out)
	require.ErrorIs(t, err, pipeline.ErrEmptyPrompt)
	require.Empty(t, out.String())
}

func TestRoot_ConfigAndSessionCommands(t *testing.T) {
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	s, err := stubagent.NewServer(stubagent.Options{BasePath: "/api"})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	run := func(args ...string) string {
		root := (&app{}).newRootCommand()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		require.NoError(t, root.Execute())
		return out.String()
	}

	cfg := run("config", "--base-url", srv.URL+"/api", "--model", "openai", "--log-level", "error")
	require.True(t, strings.Contains(cfg, "base-url: "+srv.URL+"/api"), cfg)
	require.True(t, strings.Contains(cfg, "model: openai"), cfg)

	session := run("session", "--base-url", srv.URL+"/api", "--log-level", "error")
	require.Contains(t, session, "cookie: "+stubagent.SessionCookie)
	require.Equal(t, 1, s.SessionCount())
}

func TestExecute_ClosesLogFileWhenCommandFails(t *testing.T) {
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	// nothing listens here, so the session command fails
	srv := httptest.NewServer(nil)
	base := srv.URL + "/api"
	srv.Close()

	logFile := filepath.Join(t.TempDir(), "agentchat.log")
	a := &app{}
	err := a.execute(context.Background(), []string{
		"session", "--base-url", base, "--log-file", logFile, "--log-level", "debug",
	})
	require.Error(t, err)
	require.Nil(t, a.logCloser)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "configuration loaded")
}
