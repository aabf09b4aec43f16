package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type JWTConfig struct {
	SecretKey       string        `mapstructure:"secretKey"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	AccessTokenTTL  time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `mapstructure:"refreshTokenTTL"`
}

// VerificationConfig controls the email verification code lifecycle.
type VerificationConfig struct {
	CodeTTL        time.Duration `mapstructure:"codeTTL"`
	ResendCooldown time.Duration `mapstructure:"resendCooldown"`
	MaxAttempts    int           `mapstructure:"maxAttempts"`
	// VerifiedWindow is how long a verified code stays usable for registration.
	VerifiedWindow time.Duration `mapstructure:"verifiedWindow"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type GoogleOAuthConfig struct {
	ClientID           string `mapstructure:"clientID"`
	ClientSecret       string `mapstructure:"clientSecret"`
	CallbackURL        string `mapstructure:"callbackURL"`
	SuccessRedirectURL string `mapstructure:"successRedirectURL"`
	SessionSecret      string `mapstructure:"sessionSecret"`
	UserInfoURL        string `mapstructure:"userInfoURL"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Verification VerificationConfig `mapstructure:"verification"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	OAuth        struct {
		Google GoogleOAuthConfig `mapstructure:"google"`
	} `mapstructure:"oauth"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
	Cache struct {
		CategoryTTL time.Duration `mapstructure:"categoryTTL"`
	} `mapstructure:"cache"`
	RateLimit struct {
		AuthRequests int           `mapstructure:"authRequests"`
		AuthWindow   time.Duration `mapstructure:"authWindow"`
	} `mapstructure:"rateLimit"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Every key can be overridden from the environment, e.g. JWT_SECRETKEY.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("jwt.secretKey must be set"))
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("jwt token TTLs must be positive"))
	}
	if c.Verification.CodeTTL <= 0 || c.Verification.MaxAttempts <= 0 {
		errs = append(errs, errors.New("verification.codeTTL and verification.maxAttempts must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether the coloured development logger should be used.
func (c Config) IsDevelopment() bool {
	return c.Mode == "" || c.Mode == "development"
}
