// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Алгоритмы хэширования паролей.
const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

// Драйверы хранилища.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Cookie    CookieConfig    `yaml:"cookie"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
// Access и refresh подписываются разными секретами: токен одного вида
// не проходит проверку как токен другого.
type AuthConfig struct {
	AccessSecret    string        `yaml:"access_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"annotator-api"`
	PasswordHasher  string        `yaml:"password_hasher" env:"PASSWORD_HASHER" env-default:"bcrypt"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	// TokenVersioning включает версию токенов в claims: logout и смена
	// пароля инвалидируют все выданные refresh-токены пользователя.
	TokenVersioning bool `yaml:"token_versioning" env:"TOKEN_VERSIONING" env-default:"false"`
}

// CookieConfig — параметры cookie с refresh-токеном.
type CookieConfig struct {
	Name     string `yaml:"name" env:"COOKIE_NAME" env-default:"refresh_token"`
	Path     string `yaml:"path" env:"COOKIE_PATH" env-default:"/"`
	SameSite string `yaml:"same_site" env:"COOKIE_SAME_SITE" env-default:"strict"`
	Secure   bool   `yaml:"secure" env:"COOKIE_SECURE" env-default:"false"`
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"mongo"`
	URL    string `yaml:"url" env:"DATABASE_URL"`
}

// RedisConfig — адрес Redis для распределённого rate limit.
// Пустой URL — используется локальный лимитер процесса.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// RateLimitConfig — ограничение частоты попыток входа/регистрации с одного адреса.
type RateLimitConfig struct {
	LoginRequests int           `yaml:"login_requests" env:"RATE_LIMIT_LOGIN_REQUESTS" env-default:"10"`
	LoginWindow   time.Duration `yaml:"login_window" env:"RATE_LIMIT_LOGIN_WINDOW" env-default:"1m"`
}

// BootstrapConfig — учётная запись администратора, создаваемая при старте.
type BootstrapConfig struct {
	AdminEmail    string `yaml:"admin_email" env:"ADMIN_EMAIL"`
	AdminPassword string `yaml:"admin_password" env:"ADMIN_PASSWORD"`
	AdminName     string `yaml:"admin_name" env:"ADMIN_NAME" env-default:"Admin"`
}

// SecureCookie сообщает, нужно ли выставлять флаг Secure.
// В prod он включён всегда.
func (c *Config) SecureCookie() bool {
	return c.Cookie.Secure || c.Env == EnvProd
}

// Validate проверяет согласованность значений после загрузки.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}

	if strings.TrimSpace(c.Auth.AccessSecret) == "" || strings.TrimSpace(c.Auth.RefreshSecret) == "" {
		errs = append(errs, errors.New("auth secrets must not be empty"))
	} else if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	} else if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		errs = append(errs, errors.New("access token ttl must be shorter than refresh token ttl"))
	}

	switch c.Auth.PasswordHasher {
	case HasherBcrypt, HasherArgon2id:
	default:
		errs = append(errs, fmt.Errorf("unknown password hasher %q", c.Auth.PasswordHasher))
	}

	switch strings.ToLower(c.Cookie.SameSite) {
	case "strict", "lax":
	default:
		errs = append(errs, fmt.Errorf("unknown cookie same_site %q", c.Cookie.SameSite))
	}

	switch c.DB.Driver {
	case DriverMongo:
		if c.DB.URL == "" {
			errs = append(errs, errors.New("db url is required for mongo driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown db driver %q", c.DB.Driver))
	}

	if c.RateLimit.LoginRequests <= 0 || c.RateLimit.LoginWindow <= 0 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}

	return errors.Join(errs...)
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	if path != "" {
		return tryRead(path)
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
