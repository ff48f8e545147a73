package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListURL    string `yaml:"list_url"`
	WindowDays int    `yaml:"window_days"`
	ThreadGap  int    `yaml:"thread_gap_minutes"`
	Schedule   string `yaml:"schedule"`
	RunOnStart bool   `yaml:"run_on_start"`
	OutputDir  string `yaml:"output_dir"`
	Title      string `yaml:"title"`

	Browser    BrowserConfig    `yaml:"browser"`
	Collector  CollectorConfig  `yaml:"collector"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	Database   DatabaseConfig   `yaml:"database"`
}

type BrowserConfig struct {
	Headless  bool   `yaml:"headless"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	AuthToken string `yaml:"auth_token"`
}

type CollectorConfig struct {
	Lookahead            int `yaml:"lookahead"`
	HousekeepEvery       int `yaml:"housekeep_every"`
	MaxConsecutiveErrors int `yaml:"max_consecutive_errors"`
	BudgetMinutes        int `yaml:"budget_minutes"`
}

type SummarizerConfig struct {
	Model         string `yaml:"model"`
	APIKey        string `yaml:"api_key"`
	PromptVersion string `yaml:"prompt_version"`
	ResolveURLs   bool   `yaml:"resolve_urls"`
}

type PublisherConfig struct {
	Types   []string      `yaml:"types"`
	Email   EmailConfig   `yaml:"email"`
	Discord DiscordConfig `yaml:"discord"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

type DatabaseConfig struct {
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrations_dir"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable
// values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.WindowDays == 0 {
		cfg.WindowDays = 7
	}
	if cfg.ThreadGap == 0 {
		cfg.ThreadGap = 2
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * 1"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cfg.Title == "" {
		cfg.Title = "Weekly AI Newsletter"
	}
	if cfg.Collector.Lookahead == 0 {
		cfg.Collector.Lookahead = 2
	}
	if cfg.Collector.HousekeepEvery == 0 {
		cfg.Collector.HousekeepEvery = 100
	}
	if cfg.Collector.MaxConsecutiveErrors == 0 {
		cfg.Collector.MaxConsecutiveErrors = 30
	}
	if cfg.Summarizer.Model == "" {
		cfg.Summarizer.Model = "gemini-1.5-flash"
	}
	if cfg.Summarizer.PromptVersion == "" {
		cfg.Summarizer.PromptVersion = "v12"
	}
	if len(cfg.Publisher.Types) == 0 {
		cfg.Publisher.Types = []string{"stdout"}
	}
	if cfg.Publisher.Email.SMTPPort == 0 {
		cfg.Publisher.Email.SMTPPort = 587
	}
	if cfg.Database.MigrationsDir == "" {
		cfg.Database.MigrationsDir = "./sql/schema"
	}
}

func validate(cfg *Config) error {
	if cfg.ListURL == "" {
		return fmt.Errorf("config: list_url is required")
	}
	if cfg.Browser.AuthToken == "" && (cfg.Browser.Username == "" || cfg.Browser.Password == "") {
		return fmt.Errorf("config: browser credentials required (auth_token or username+password)")
	}
	if cfg.Summarizer.APIKey == "" {
		return fmt.Errorf("config: summarizer.api_key is required (set GOOGLE_API_KEY env var)")
	}
	for _, t := range cfg.Publisher.Types {
		switch t {
		case "stdout", "email", "discord":
		default:
			return fmt.Errorf("config: unsupported publisher type %q (supported: stdout, email, discord)", t)
		}
		if t == "email" {
			if cfg.Publisher.Email.SMTPHost == "" {
				return fmt.Errorf("config: publisher.email.smtp_host is required for email publisher")
			}
			if cfg.Publisher.Email.From == "" {
				return fmt.Errorf("config: publisher.email.from is required for email publisher")
			}
			if len(cfg.Publisher.Email.To) == 0 && cfg.Database.DSN == "" {
				return fmt.Errorf("config: publisher.email.to or database.dsn is required for email publisher")
			}
		}
		if t == "discord" {
			if cfg.Publisher.Discord.Token == "" || cfg.Publisher.Discord.ChannelID == "" {
				return fmt.Errorf("config: publisher.discord.token and channel_id are required for discord publisher")
			}
		}
	}
	return nil
}

// Load reads the config file, expands environment variables, applies
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
