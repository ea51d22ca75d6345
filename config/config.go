package config

import (
	"fmt"
	"time"

	"github.com/Mulet-J/desktopeye/validation"
)

// DefaultServiceName is used for the config search paths, the env prefix and log tags.
const DefaultServiceName = "desktopeye"

// Capability names accepted by Backends.Preload.
const (
	CapabilityOCR       = "ocr"
	CapabilityClassify  = "classify"
	CapabilityTranslate = "translate"
	CapabilityTTS       = "tts"
)

// Config is the full application configuration.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Backends      BackendsConfig      `yaml:"backends" mapstructure:"backends"`
	Interpreter   InterpreterConfig   `yaml:"interpreter" mapstructure:"interpreter"`
	OCR           OCRConfig           `yaml:"ocr" mapstructure:"ocr"`
	Classify      ClassifyConfig      `yaml:"classify" mapstructure:"classify"`
	Translate     TranslateConfig     `yaml:"translate" mapstructure:"translate"`
	TTS           TTSConfig           `yaml:"tts" mapstructure:"tts"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// BackendsConfig selects the default backend kind per capability and the
// capabilities warmed up at startup.
type BackendsConfig struct {
	OCR            string        `yaml:"ocr" mapstructure:"ocr" validate:"omitempty,oneof=tesseract tesseract-cli"`
	Classify       string        `yaml:"classify" mapstructure:"classify" validate:"omitempty,oneof=script trigram"`
	Translate      string        `yaml:"translate" mapstructure:"translate" validate:"omitempty,oneof=script glossary llm"`
	TTS            string        `yaml:"tts" mapstructure:"tts" validate:"omitempty,oneof=script espeak"`
	Preload        []string      `yaml:"preload" mapstructure:"preload" validate:"dive,oneof=ocr classify translate tts"`
	PreloadTimeout time.Duration `yaml:"preload_timeout" mapstructure:"preload_timeout"`
}

// InterpreterConfig locates the embedded script runtime.
type InterpreterConfig struct {
	Home        string        `yaml:"home" mapstructure:"home"`
	Library     string        `yaml:"library" mapstructure:"library"`
	SearchPaths []string      `yaml:"search_paths" mapstructure:"search_paths"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// OCRConfig configures both Tesseract backends.
type OCRConfig struct {
	Binary         string        `yaml:"binary" mapstructure:"binary"`
	TessdataPrefix string        `yaml:"tessdata_prefix" mapstructure:"tessdata_prefix"`
	Languages      []string      `yaml:"languages" mapstructure:"languages" validate:"min=1"`
	PageSegMode    int           `yaml:"psm" mapstructure:"psm" validate:"min=0,max=13"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ClassifyConfig configures language identification.
type ClassifyConfig struct {
	ProfilesDir   string  `yaml:"profiles_dir" mapstructure:"profiles_dir"`
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence" validate:"min=0,max=1"`
}

// TranslateConfig configures the translation backends.
type TranslateConfig struct {
	TokenizerScript string    `yaml:"tokenizer_script" mapstructure:"tokenizer_script"`
	ModelScript     string    `yaml:"model_script" mapstructure:"model_script"`
	GlossaryPath    string    `yaml:"glossary_path" mapstructure:"glossary_path"`
	LLM             LLMConfig `yaml:"llm" mapstructure:"llm"`
}

// LLMConfig points at an OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// TTSConfig configures speech synthesis.
type TTSConfig struct {
	Script     string `yaml:"script" mapstructure:"script"`
	Binary     string `yaml:"binary" mapstructure:"binary"`
	Voice      string `yaml:"voice" mapstructure:"voice"`
	SampleRate int    `yaml:"sample_rate" mapstructure:"sample_rate" validate:"min=8000,max=48000"`
}

// ServerConfig configures the local control API.
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ObservabilityConfig configures OpenTelemetry export.
type ObservabilityConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// Load reads the configuration for the default service name, applies
// defaults and validates it.
func Load(opts ...LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig(DefaultServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()

	if c.Backends.OCR == "" {
		c.Backends.OCR = "tesseract"
	}
	if c.Backends.Classify == "" {
		c.Backends.Classify = "script"
	}
	if c.Backends.Translate == "" {
		c.Backends.Translate = "glossary"
	}
	if c.Backends.TTS == "" {
		c.Backends.TTS = "espeak"
	}
	if c.Backends.PreloadTimeout == 0 {
		c.Backends.PreloadTimeout = 2 * time.Minute
	}

	if c.Interpreter.Timeout == 0 {
		c.Interpreter.Timeout = 30 * time.Second
	}

	if c.OCR.Binary == "" {
		c.OCR.Binary = "tesseract"
	}
	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = []string{"eng"}
	}
	if c.OCR.PageSegMode == 0 {
		c.OCR.PageSegMode = 3
	}
	if c.OCR.Timeout == 0 {
		c.OCR.Timeout = 30 * time.Second
	}

	if c.Classify.MinConfidence == 0 {
		c.Classify.MinConfidence = 0.1
	}

	if c.Translate.LLM.BaseURL == "" {
		c.Translate.LLM.BaseURL = "http://127.0.0.1:11434/v1"
	}
	if c.Translate.LLM.Model == "" {
		c.Translate.LLM.Model = "llama3.2"
	}
	if c.Translate.LLM.Timeout == 0 {
		c.Translate.LLM.Timeout = 60 * time.Second
	}

	if c.TTS.Binary == "" {
		c.TTS.Binary = "espeak-ng"
	}
	if c.TTS.Voice == "" {
		c.TTS.Voice = "en"
	}
	if c.TTS.SampleRate == 0 {
		c.TTS.SampleRate = 22050
	}

	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 7878
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 2 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 32 << 20
	}

	if c.Observability.Interval == 0 {
		c.Observability.Interval = 15 * time.Second
	}
	if c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = 1.0
	}
}

// Validate checks struct tags and the rules that span fields.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}

	v := validation.New()
	if c.Backends.Translate == "script" {
		v.Required("translate.model_script", c.Translate.ModelScript)
	}
	if c.Backends.TTS == "script" {
		v.Required("tts.script", c.TTS.Script)
	}
	if c.Backends.Translate == "llm" {
		v.Required("translate.llm.model", c.Translate.LLM.Model)
	}
	seen := make(map[string]bool, len(c.Backends.Preload))
	for _, capability := range c.Backends.Preload {
		v.Check(!seen[capability], "backends.preload", capability+" is listed twice")
		seen[capability] = true
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
