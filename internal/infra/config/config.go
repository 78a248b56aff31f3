package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full recognized configuration surface.
type Config struct {
	Audit     AuditConfig     `mapstructure:"audit" validate:"required"`
	Retention RetentionConfig `mapstructure:"retention"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

// Load reads configuration from a yaml file (with env-var overrides) and
// validates it.
func Load(path string) (*Config, error) {
	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("config")
		vip.AddConfigPath("./configs")
		vip.AddConfigPath(".")
	}

	vip.SetConfigType("yaml")
	vip.SetEnvPrefix("VERITRAIL")
	vip.AutomaticEnv()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(vip)

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := registerCustomValidators(validate); err != nil {
		return nil, fmt.Errorf("failed to register custom validators: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Audit.EnableEncryption && cfg.Audit.EncryptionKey == "" {
		return nil, fmt.Errorf("config validation failed: encryption enabled without audit.encryption_key")
	}

	return &cfg, nil
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("audit.hash_algorithm", "sha256")
	vip.SetDefault("audit.enable_hashing", true)
	vip.SetDefault("audit.enable_chaining", true)
	vip.SetDefault("audit.enable_tamper_detection", true)
	vip.SetDefault("audit.enable_timestamp_verification", true)
	vip.SetDefault("audit.enable_audit_logging", true)
	vip.SetDefault("audit.default_retention_days", 730)
	vip.SetDefault("retention.check_interval", "1m")
	vip.SetDefault("storage.type", "memory")
}

// isAESKey accepts a hex-encoded 32-byte key.
func isAESKey(fl validator.FieldLevel) bool {
	raw, err := hex.DecodeString(fl.Field().String())
	if err != nil {
		return false
	}
	return len(raw) == 32
}

func registerCustomValidators(validate *validator.Validate) error {
	return validate.RegisterValidation("aeskey", isAESKey)
}
