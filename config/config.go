package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/application/engine"
	"github.com/alejandrodnm/ghostbot/internal/application/scanner"
	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Bot         BotConfig         `yaml:"bot"`
	Money       MoneyConfig       `yaml:"money"`
	Entry       RuleConfig        `yaml:"entry"`
	Recovery    RuleConfig        `yaml:"recovery"`
	VirtualHook VirtualHookConfig `yaml:"virtual_hook"`
	Engine      EngineTuning      `yaml:"engine"`
	Paper       PaperConfig       `yaml:"paper"`
	Redis       RedisConfig       `yaml:"redis"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Storage     StorageConfig     `yaml:"storage"`
	Log         LogConfig         `yaml:"log"`
}

// BotConfig identifica el bot y los símbolos que escucha.
type BotConfig struct {
	Name           string   `yaml:"name"`
	Symbols        []string `yaml:"symbols"`
	MarketPrefixes []string `yaml:"market_prefixes"` // vacío = mercados sintéticos por defecto
}

// MoneyConfig controla stakes y límites de la sesión.
type MoneyConfig struct {
	InitialStake     float64 `yaml:"initial_stake"`
	TargetProfit     float64 `yaml:"target_profit"`
	StopLoss         float64 `yaml:"stop_loss"`
	PayoutPercent    float64 `yaml:"payout_percent"` // 95 = una ganancia paga el 95% del stake
	MaxRecoverySteps int     `yaml:"max_recovery_steps"`
	MaxEntryLosses   int     `yaml:"max_entry_losses"`
}

// RuleConfig es una regla Entry o Recovery tal como se escribe en el YAML.
type RuleConfig struct {
	UseDigitCheck    bool    `yaml:"use_digit_check"`
	DigitWindow      int     `yaml:"digit_window"`
	MaxDigit         int     `yaml:"max_digit"`
	DigitOperator    string  `yaml:"digit_operator"`
	UsePercentage    bool    `yaml:"use_percentage"`
	Prediction       int     `yaml:"prediction"`
	PercentThreshold float64 `yaml:"percent_threshold"`
	PercentOperator  string  `yaml:"percent_operator"`
	ContractType     string  `yaml:"contract_type"` // OVER | UNDER | DIGITOVER | ...
}

// VirtualHookConfig controla las operaciones virtuales previas a la real.
type VirtualHookConfig struct {
	Enabled         bool   `yaml:"enabled"`
	TriggerType     string `yaml:"trigger_type"` // WIN | LOSS
	TriggerCount    int    `yaml:"trigger_count"`
	ResetOnOpposite bool   `yaml:"reset_on_opposite"`
}

// EngineTuning agrupa ventanas y tiempos internos del engine.
type EngineTuning struct {
	ShortWindow          int `yaml:"short_window"`
	LongWindow           int `yaml:"long_window"`
	AnalysisDigits       int `yaml:"analysis_digits"`
	MaxConcurrent        int `yaml:"max_concurrent"`
	ScanCooldownMS       int `yaml:"scan_cooldown_ms"`
	LockTTLSeconds       int `yaml:"lock_ttl_seconds"`
	SweepSeconds         int `yaml:"sweep_seconds"`
	StaleContractSeconds int `yaml:"stale_contract_seconds"`
	InboxSize            int `yaml:"inbox_size"`
}

// PaperConfig configura el feed y el bróker simulados.
type PaperConfig struct {
	TickIntervalMS       int     `yaml:"tick_interval_ms"`
	Decimals             int     `yaml:"decimals"`
	StartQuote           float64 `yaml:"start_quote"`
	Volatility           float64 `yaml:"volatility"`
	Seed                 int64   `yaml:"seed"` // 0 = semilla por reloj
	MinStake             float64 `yaml:"min_stake"`
	DuplicateSettlements bool    `yaml:"duplicate_settlements"`
}

// RedisConfig apunta al historial de dígitos que publica el recorder.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	PoolSize      int    `yaml:"pool_size"`
	MaxAgeSeconds int    `yaml:"max_age_seconds"` // 0 = no avisar por antigüedad
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = sin servidor de métricas
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	// Las reglas tienen bools que no se distinguen de cero: el YAML se
	// decodifica encima de los valores de fábrica.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// Default devuelve la configuración de fábrica: Entry OVER 2 y Recovery UNDER 5.
func Default() *Config {
	def := engine.DefaultConfig()
	cfg := &Config{
		Bot: BotConfig{
			Name:    def.Bot,
			Symbols: []string{"R_10", "R_25", "R_50", "R_75", "R_100"},
		},
		Money: MoneyConfig{
			InitialStake:     def.Money.InitialStake,
			TargetProfit:     def.Money.TargetProfit,
			StopLoss:         def.Money.StopLoss,
			PayoutPercent:    def.Money.PayoutPercent,
			MaxRecoverySteps: def.Money.MaxRecoverySteps,
			MaxEntryLosses:   def.Money.MaxEntryLosses,
		},
		Entry:    ruleFrom(def.Entry),
		Recovery: ruleFrom(def.Recovery),
		VirtualHook: VirtualHookConfig{
			Enabled:         def.VirtualHook.Enabled,
			TriggerType:     string(def.VirtualHook.TriggerType),
			TriggerCount:    def.VirtualHook.TriggerCount,
			ResetOnOpposite: def.VirtualHook.ResetOnOpposite,
		},
	}
	setDefaults(cfg)
	return cfg
}

// EngineConfig traduce la configuración al formato del engine.
func (c *Config) EngineConfig() (engine.Config, error) {
	entry, err := c.Entry.condition()
	if err != nil {
		return engine.Config{}, fmt.Errorf("config.EngineConfig: entry: %w", err)
	}
	recovery, err := c.Recovery.condition()
	if err != nil {
		return engine.Config{}, fmt.Errorf("config.EngineConfig: recovery: %w", err)
	}

	return engine.Config{
		Bot: c.Bot.Name,
		Money: domain.MoneyConfig{
			InitialStake:     c.Money.InitialStake,
			TargetProfit:     c.Money.TargetProfit,
			StopLoss:         c.Money.StopLoss,
			PayoutPercent:    c.Money.PayoutPercent,
			MaxRecoverySteps: c.Money.MaxRecoverySteps,
			MaxEntryLosses:   c.Money.MaxEntryLosses,
		},
		Entry:    entry,
		Recovery: recovery,
		VirtualHook: domain.VirtualHookConfig{
			Enabled:         c.VirtualHook.Enabled,
			TriggerType:     domain.TriggerType(c.VirtualHook.TriggerType),
			TriggerCount:    c.VirtualHook.TriggerCount,
			ResetOnOpposite: c.VirtualHook.ResetOnOpposite,
		},
		Stats: scanner.StatsConfig{
			ShortWindow:    c.Engine.ShortWindow,
			LongWindow:     c.Engine.LongWindow,
			AnalysisDigits: c.Engine.AnalysisDigits,
		},
		MarketPrefixes:     c.Bot.MarketPrefixes,
		ScanCooldown:       time.Duration(c.Engine.ScanCooldownMS) * time.Millisecond,
		MaxConcurrent:      c.Engine.MaxConcurrent,
		LockTTL:            time.Duration(c.Engine.LockTTLSeconds) * time.Second,
		SweepInterval:      time.Duration(c.Engine.SweepSeconds) * time.Second,
		StaleContractAfter: time.Duration(c.Engine.StaleContractSeconds) * time.Second,
		InboxSize:          c.Engine.InboxSize,
	}, nil
}

func (r RuleConfig) condition() (domain.StrategyCondition, error) {
	ct, err := domain.ParseContractType(r.ContractType)
	if err != nil {
		return domain.StrategyCondition{}, err
	}
	return domain.StrategyCondition{
		UseDigitCheck:    r.UseDigitCheck,
		DigitWindow:      r.DigitWindow,
		MaxDigit:         r.MaxDigit,
		DigitOperator:    domain.Operator(r.DigitOperator),
		UsePercentage:    r.UsePercentage,
		Prediction:       r.Prediction,
		PercentThreshold: r.PercentThreshold,
		PercentOperator:  domain.Operator(r.PercentOperator),
		ContractType:     ct,
	}, nil
}

func ruleFrom(c domain.StrategyCondition) RuleConfig {
	return RuleConfig{
		UseDigitCheck:    c.UseDigitCheck,
		DigitWindow:      c.DigitWindow,
		MaxDigit:         c.MaxDigit,
		DigitOperator:    string(c.DigitOperator),
		UsePercentage:    c.UsePercentage,
		Prediction:       c.Prediction,
		PercentThreshold: c.PercentThreshold,
		PercentOperator:  string(c.PercentOperator),
		ContractType:     string(c.ContractType),
	}
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("GHOSTBOT_DB"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Los umbrales de dinero y de las reglas no se tocan: un cero ahí es un error
// que reporta la validación del engine.
func setDefaults(cfg *Config) {
	if cfg.Bot.Name == "" {
		cfg.Bot.Name = engine.DefaultBotName
	}
	if cfg.Engine.ShortWindow <= 0 {
		cfg.Engine.ShortWindow = scanner.DefaultShortWindow
	}
	if cfg.Engine.LongWindow <= 0 {
		cfg.Engine.LongWindow = scanner.DefaultLongWindow
	}
	if cfg.Engine.AnalysisDigits <= 0 {
		cfg.Engine.AnalysisDigits = scanner.DefaultAnalysisDigits
	}
	if cfg.Engine.MaxConcurrent <= 0 {
		cfg.Engine.MaxConcurrent = engine.DefaultMaxConcurrent
	}
	if cfg.Engine.ScanCooldownMS <= 0 {
		cfg.Engine.ScanCooldownMS = int(engine.DefaultScanCooldown / time.Millisecond)
	}
	if cfg.Engine.LockTTLSeconds <= 0 {
		cfg.Engine.LockTTLSeconds = int(engine.DefaultLockTTL / time.Second)
	}
	if cfg.Engine.SweepSeconds <= 0 {
		cfg.Engine.SweepSeconds = int(engine.DefaultSweepInterval / time.Second)
	}
	if cfg.Engine.StaleContractSeconds <= 0 {
		cfg.Engine.StaleContractSeconds = int(engine.DefaultStaleContractAfter / time.Second)
	}
	if cfg.Engine.InboxSize <= 0 {
		cfg.Engine.InboxSize = engine.DefaultInboxSize
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "ghostbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
