package commands

import (
	"os"
	"time"

	"esimcatalog/internal/updater"
	"esimcatalog/lib/configutil"
	"esimcatalog/lib/devices"
	"esimcatalog/lib/restyutil"
	"esimcatalog/lib/scrapers/gsmarena"
	"esimcatalog/lib/serviceutil"

	"github.com/joho/godotenv"
)

type FeatureConfig struct {
	KeyMarker   string `json:"key_marker"`
	ValueMarker string `json:"value_marker"`
}

// Config is gsmupdate.json5, every field is optional. zero values in the
// file are treated as "not set".
type Config struct {
	BaseUrl              string        `json:"base_url"`
	UserAgent            string        `json:"user_agent"`
	TimeoutSeconds       float64       `json:"timeout_seconds"`
	MinDelaySeconds      float64       `json:"min_delay_seconds"`
	MaxDelaySeconds      float64       `json:"max_delay_seconds"`
	RateLimitWaitSeconds float64       `json:"rate_limit_wait_seconds"`
	MaxAttempts          int           `json:"max_attempts"`
	PaceSeconds          float64       `json:"pace_seconds"`
	OutputSuffix         string        `json:"output_suffix"`
	SimilarityThreshold  float64       `json:"similarity_threshold"`
	Feature              FeatureConfig `json:"feature"`
}

func DefaultConfig() Config {
	client := gsmarena.DefaultOptions()
	run := updater.DefaultOptions()
	return Config{
		BaseUrl:              client.BaseUrl,
		UserAgent:            client.UserAgent,
		TimeoutSeconds:       client.Timeout.Seconds(),
		MinDelaySeconds:      client.MinDelay.Seconds(),
		MaxDelaySeconds:      client.MaxDelay.Seconds(),
		RateLimitWaitSeconds: client.RateLimitWait.Seconds(),
		MaxAttempts:          client.MaxAttempts,
		PaceSeconds:          run.Pace.Seconds(),
		OutputSuffix:         run.OutputSuffix,
		SimilarityThreshold:  run.SimilarityThreshold,
		Feature: FeatureConfig{
			KeyMarker:   run.Predicate.KeyMarker,
			ValueMarker: run.Predicate.ValueMarker,
		},
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c Config) ClientOptions() gsmarena.Options {
	return gsmarena.Options{
		BaseUrl:       c.BaseUrl,
		UserAgent:     c.UserAgent,
		Timeout:       seconds(c.TimeoutSeconds),
		MinDelay:      seconds(c.MinDelaySeconds),
		MaxDelay:      seconds(c.MaxDelaySeconds),
		RateLimitWait: seconds(c.RateLimitWaitSeconds),
		MaxAttempts:   c.MaxAttempts,
	}
}

func (c Config) UpdaterOptions() updater.Options {
	return updater.Options{
		Predicate: devices.FeaturePredicate{
			KeyMarker:   c.Feature.KeyMarker,
			ValueMarker: c.Feature.ValueMarker,
		},
		Pace:                seconds(c.PaceSeconds),
		SimilarityThreshold: c.SimilarityThreshold,
		OutputSuffix:        c.OutputSuffix,
	}
}

func loadConfig() Config {
	cfg, err := configutil.Load(flagConfig, DefaultConfig())
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	_ = godotenv.Load()
	applyEnv(&cfg)
	return cfg
}

// applyEnv lets the environment (or a .env file in the working directory)
// override the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GSMUPDATE_BASE_URL"); v != "" {
		cfg.BaseUrl = v
	}
	if v := os.Getenv("GSMUPDATE_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
}

func createClient(cfg Config) *gsmarena.Client {
	opts := cfg.ClientOptions()
	if flagDumpHttp != "" {
		output, err := restyutil.NewFilesystemOutput(flagDumpHttp)
		if err != nil {
			serviceutil.Fatal("failed to create http transcript directory", err)
		}
		opts.Transcripts = output
	}

	client, err := gsmarena.NewClient(opts)
	if err != nil {
		serviceutil.Fatal("failed to initialize catalog client", err)
	}
	return client
}

func createUpdater(cfg Config, client *gsmarena.Client) updater.Updater {
	opts := cfg.UpdaterOptions()
	opts.Year = flagYear
	return updater.New(client, opts)
}
