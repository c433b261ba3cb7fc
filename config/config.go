package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"storyreel/internal/appdirs"
	"storyreel/log"
)

type App struct {
	ContentDir  string `toml:"content_dir"`
	OutputDir   string `toml:"output_dir"`
	Fps         int    `toml:"fps"`
	IntroFrames int    `toml:"intro_frames"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type Llm struct {
	BaseUrl string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type Fal struct {
	BaseUrl         string  `toml:"base_url"`
	ApiKey          string  `toml:"api_key"`
	ImageModel      string  `toml:"image_model"`
	TtsModel        string  `toml:"tts_model"`
	Voice           string  `toml:"voice"`
	Stability       float64 `toml:"stability"`
	SimilarityBoost float64 `toml:"similarity_boost"`
	Speed           float64 `toml:"speed"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

type Image struct {
	MaxAttempts    int `toml:"max_attempts"`
	RetryBackoffMs int `toml:"retry_backoff_ms"`
}

type Render struct {
	FfmpegPath  string `toml:"ffmpeg_path"`
	FfprobePath string `toml:"ffprobe_path"`
	Concurrency int    `toml:"concurrency"`
	QueueSize   int    `toml:"queue_size"`
	VideoCodec  string `toml:"video_codec"`
	Preset      string `toml:"preset"`
	Crf         int    `toml:"crf"`
	AudioCodec  string `toml:"audio_codec"`
}

type Queue struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Concurrency   int    `toml:"concurrency"`
}

const (
	StorageS3  = "s3"
	StorageOSS = "oss"
)

type Storage struct {
	Provider        string `toml:"provider"` // "", "s3", "oss"
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Prefix          string `toml:"prefix"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyId     string `toml:"access_key_id"`
	AccessKeySecret string `toml:"access_key_secret"`
	UsePathStyle    bool   `toml:"use_path_style"`
}

// Config is loaded once by a main and then handed to the components that need it.
type Config struct {
	App     App     `toml:"app"`
	Server  Server  `toml:"server"`
	Llm     Llm     `toml:"llm"`
	Fal     Fal     `toml:"fal"`
	Image   Image   `toml:"image"`
	Render  Render  `toml:"render"`
	Queue   Queue   `toml:"queue"`
	Storage Storage `toml:"storage"`
}

const (
	EnvOpenaiApiKey = "OPENAI_API_KEY"
	EnvFalKey       = "FAL_KEY"
	EnvRedisAddr    = "STORYREEL_REDIS_ADDR"
)

var resolveConfigPath = ResolveConfigPath

// ResolveConfigPath returns the config file path for the current app dir layout.
func ResolveConfigPath() (string, error) {
	dirs, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return dirs.ConfigFile, nil
}

func defaultConfig() Config {
	return Config{
		App: App{
			ContentDir:  appdirs.ContentRootName,
			OutputDir:   appdirs.RenderRootName,
			Fps:         30,
			IntroFrames: 60,
			Width:       1920,
			Height:      1080,
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8888,
		},
		Llm: Llm{
			BaseUrl: "https://api.openai.com/v1",
			Model:   "gpt-4.1",
		},
		Fal: Fal{
			BaseUrl:         "https://fal.run",
			ImageModel:      "fal-ai/flux-2-pro",
			TtsModel:        "fal-ai/elevenlabs/tts/eleven-v3",
			Voice:           "Brian",
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           1,
			TimeoutSeconds:  300,
		},
		Image: Image{
			MaxAttempts:    3,
			RetryBackoffMs: 1000,
		},
		Render: Render{
			Concurrency: 4,
			QueueSize:   32,
			VideoCodec:  "libx264",
			Preset:      "medium",
			Crf:         20,
			AudioCodec:  "aac",
		},
		Queue: Queue{
			RedisAddr:   "localhost:6379",
			Concurrency: 2,
		},
	}
}

// Default returns a fresh copy of the built-in defaults.
func Default() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadOrCreate reads the config at path, or at the resolved default location
// when path is empty. A missing file is created with defaults.
func LoadOrCreate(path string) (*Config, bool, error) {
	var err error
	if strings.TrimSpace(path) == "" {
		path, err = resolveConfigPath()
		if err != nil {
			return nil, false, fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg := defaultConfig()
	created := false
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		log.GetLogger().Info("config file not found, writing defaults", zap.String("path", path))
		if err = Save(path, &cfg); err != nil {
			return nil, false, err
		}
		created = true
	} else if statErr != nil {
		return nil, false, statErr
	} else {
		if _, err = toml.DecodeFile(path, &cfg); err != nil {
			return nil, false, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	if err = cfg.Validate(); err != nil {
		return nil, created, err
	}
	return &cfg, created, nil
}

// Save writes cfg as TOML, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer file.Close()

	if err = toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// Secrets usually arrive through the environment (or a .env file) rather than the TOML.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvOpenaiApiKey)); v != "" {
		c.Llm.ApiKey = v
	}
	if v := strings.TrimSpace(getenv(EnvFalKey)); v != "" {
		c.Fal.ApiKey = v
	}
	if v := strings.TrimSpace(getenv(EnvRedisAddr)); v != "" {
		c.Queue.RedisAddr = v
	}
}

func (c *Config) Validate() error {
	if c.App.Fps <= 0 {
		return fmt.Errorf("app.fps must be positive, got %d", c.App.Fps)
	}
	if c.App.IntroFrames < 0 {
		return fmt.Errorf("app.intro_frames must not be negative, got %d", c.App.IntroFrames)
	}
	if c.App.Width <= 0 || c.App.Height <= 0 {
		return fmt.Errorf("app.width and app.height must be positive, got %dx%d", c.App.Width, c.App.Height)
	}
	if c.Image.MaxAttempts < 1 {
		return fmt.Errorf("image.max_attempts must be at least 1, got %d", c.Image.MaxAttempts)
	}
	if c.Image.RetryBackoffMs < 0 {
		return fmt.Errorf("image.retry_backoff_ms must not be negative, got %d", c.Image.RetryBackoffMs)
	}
	switch c.Storage.Provider {
	case "", StorageS3, StorageOSS:
	default:
		return fmt.Errorf("storage.provider %q is not supported (want s3 or oss)", c.Storage.Provider)
	}
	if c.Storage.Provider != "" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required for provider %s", c.Storage.Provider)
	}
	return nil
}
