package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/go-go-golems/agentchat/pkg/logging"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultBaseURL is the agent root used when nothing else is configured.
// Override at build time with
//
//	-ldflags "-X github.com/go-go-golems/agentchat/pkg/config.DefaultBaseURL=https://agent.example.com/api"
var DefaultBaseURL = "http://localhost:8080/api"

const (
	AppName   = "agentchat"
	EnvPrefix = "AGENTCHAT"

	DefaultGreeting   = "Hello! I'm the GDP/Population AI Agent. Ask me for data, like 'What was the GDP of the USA in 2023?'"
	DefaultTitle      = "GDP-AI Data Agent"
	DefaultConfigFile = "~/.agentchat/config.yaml"
	DefaultTUILogFile = "~/.agentchat/agentchat.log"
)

const (
	KeyBaseURL     = "base-url"
	KeyChatPath    = "chat-path"
	KeySessionPath = "session-path"
	KeyModel       = "model"
	KeyGreeting    = "greeting"
	KeyTitle       = "title"
	KeyMarkdown    = "markdown"
	KeyMinThinking = "min-thinking"
	KeyLogLevel    = "log-level"
	KeyLogFile     = "log-file"
	KeyLogFormat   = "log-format"
	KeyWithCaller  = "with-caller"
)

// Settings is the effective configuration after flags, env and config file
// have been merged.
type Settings struct {
	BaseURL     string        `yaml:"base-url"`
	ChatPath    string        `yaml:"chat-path"`
	SessionPath string        `yaml:"session-path"`
	Model       agent.Model   `yaml:"model"`
	Greeting    string        `yaml:"greeting"`
	Title       string        `yaml:"title"`
	Markdown    bool          `yaml:"markdown"`
	MinThinking time.Duration `yaml:"min-thinking"`

	LogLevel   string `yaml:"log-level"`
	LogFile    string `yaml:"log-file"`
	LogFormat  string `yaml:"log-format"`
	WithCaller bool   `yaml:"with-caller"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyChatPath, agent.DefaultChatPath)
	v.SetDefault(KeySessionPath, agent.DefaultSessionPath)
	v.SetDefault(KeyModel, string(agent.DefaultModel))
	v.SetDefault(KeyGreeting, DefaultGreeting)
	v.SetDefault(KeyTitle, DefaultTitle)
	v.SetDefault(KeyMarkdown, true)
	v.SetDefault(KeyMinThinking, time.Duration(0))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogFormat, logging.FormatText)
	v.SetDefault(KeyWithCaller, false)
}

// AddFlags registers the persistent flags that map onto config keys.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Config file (default "+DefaultConfigFile+")")
	fs.String(KeyBaseURL, DefaultBaseURL, "Agent API base URL")
	fs.String(KeyChatPath, agent.DefaultChatPath, "Chat endpoint path, relative to the base URL")
	fs.String(KeySessionPath, agent.DefaultSessionPath, "Session-start endpoint path, relative to the base URL")
	fs.String(KeyModel, string(agent.DefaultModel), "Model to use (ollama, openai)")
	fs.String(KeyGreeting, DefaultGreeting, "Agent greeting shown first; empty disables it")
	fs.String(KeyTitle, DefaultTitle, "Title shown in the header")
	fs.Bool(KeyMarkdown, true, "Render agent replies as markdown")
	fs.Duration(KeyMinThinking, 0, "Minimum time a reply stays in the thinking state")
	fs.String(KeyLogLevel, "info", "Log level (trace, debug, info, warn, error)")
	fs.String(KeyLogFile, "", "Log file (default stderr, or "+DefaultTUILogFile+" for the chat UI)")
	fs.String(KeyLogFormat, logging.FormatText, "Log format (text, json)")
	fs.Bool(KeyWithCaller, false, "Log caller information")
}

// InitViper wires env vars, the config file and the flags in fs into v.
// A missing config file is not an error.
func InitViper(v *viper.Viper, fs *pflag.FlagSet) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" {
				return
			}
			_ = v.BindPFlag(f.Name, f)
		})
	}

	configFile := ""
	explicit := false
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			configFile = f.Value.String()
			explicit = true
		}
	}
	if configFile == "" {
		configFile = DefaultConfigFile
	}

	path, err := homedir.Expand(configFile)
	if err != nil {
		return errors.Wrapf(err, "expand config path %q", configFile)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return errors.Wrapf(err, "config file %s", path)
	}

	v.SetConfigFile(path)
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = "yaml"
	}
	v.SetConfigType(ext)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	return nil
}

// Load reads the settings from v and validates them.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		BaseURL:     strings.TrimSpace(v.GetString(KeyBaseURL)),
		ChatPath:    v.GetString(KeyChatPath),
		SessionPath: v.GetString(KeySessionPath),
		Greeting:    v.GetString(KeyGreeting),
		Title:       v.GetString(KeyTitle),
		Markdown:    v.GetBool(KeyMarkdown),
		MinThinking: v.GetDuration(KeyMinThinking),
		LogLevel:    v.GetString(KeyLogLevel),
		LogFile:     v.GetString(KeyLogFile),
		LogFormat:   v.GetString(KeyLogFormat),
		WithCaller:  v.GetBool(KeyWithCaller),
	}

	model, err := agent.ParseModel(v.GetString(KeyModel))
	if err != nil {
		return nil, err
	}
	s.Model = model

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return errors.Wrapf(err, "invalid %s", KeyBaseURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("%s must be an absolute http(s) URL, got %q", KeyBaseURL, s.BaseURL)
	}
	if s.ChatPath == "" {
		return errors.Errorf("%s cannot be empty", KeyChatPath)
	}
	if s.SessionPath == "" {
		return errors.Errorf("%s cannot be empty", KeySessionPath)
	}
	if s.MinThinking < 0 {
		return errors.Errorf("%s cannot be negative", KeyMinThinking)
	}
	if !s.Model.Valid() {
		return errors.Errorf("unknown model %q", s.Model)
	}
	return nil
}

func (s *Settings) LoggingSettings() logging.Settings {
	return logging.Settings{
		Level:      s.LogLevel,
		Format:     s.LogFormat,
		File:       s.LogFile,
		WithCaller: s.WithCaller,
	}
}

// NewAgentClient builds the HTTP client for the configured agent.
func (s *Settings) NewAgentClient(options ...agent.ClientOption) (*agent.Client, error) {
	options = append([]agent.ClientOption{
		agent.WithChatPath(s.ChatPath),
		agent.WithSessionPath(s.SessionPath),
	}, options...)
	return agent.NewClient(s.BaseURL, options...)
}
