/*
Package config loads server configuration.

SOURCES (later wins):
  1. Defaults below
  2. .env file in the working directory, if present (godotenv)
  3. Process environment
  4. Command-line flags applied by cmd/server (-port, -db)

VARIABLES:
  PORT              HTTP port (8080)
  DB_PATH           SQLite database path (payroll.db)
  OWNER_ADDRESS     Ledger owner (required)
  LEDGER_ACCOUNT    Vault account holding the pool (payroll-ledger)
  SALARY_STRATEGY   maintained | recomputed (maintained)
  BASE_UNIT         Salary scale, positive integer (1000000000000000000)
  PAY_PERIOD        Go duration (720h)
  JWT_SECRET        HS256 secret for caller tokens (required)
  MONITOR_INTERVAL  Payday monitor tick, 0 disables (1h)
  LOG_LEVEL         debug | info | warn | error (info)
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"

	"github.com/warp/payroll-ledger/payroll"
)

// Config holds all application configuration.
type Config struct {
	Port            int
	DBPath          string
	Owner           payroll.Address
	Account         payroll.Address
	Strategy        payroll.Strategy
	BaseUnit        decimal.Decimal
	PayPeriod       time.Duration
	JWTSecret       string
	MonitorInterval time.Duration
	LogLevel        zapcore.Level
}

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		DBPath:    get("DB_PATH", "payroll.db"),
		Owner:     payroll.NewAddress(getenv("OWNER_ADDRESS")),
		Account:   payroll.NewAddress(get("LEDGER_ACCOUNT", string(payroll.DefaultAccount))),
		JWTSecret: getenv("JWT_SECRET"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(get("PORT", "8080")); err != nil || cfg.Port <= 0 {
		return Config{}, fmt.Errorf("invalid PORT %q", getenv("PORT"))
	}
	if cfg.Owner.IsZero() {
		return Config{}, errors.New("OWNER_ADDRESS is required")
	}
	if cfg.Account == cfg.Owner {
		return Config{}, errors.New("LEDGER_ACCOUNT must differ from OWNER_ADDRESS")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.Strategy, err = payroll.ParseStrategy(getenv("SALARY_STRATEGY")); err != nil {
		return Config{}, err
	}

	if cfg.BaseUnit, err = decimal.NewFromString(get("BASE_UNIT", payroll.DefaultBaseUnit.String())); err != nil ||
		!cfg.BaseUnit.IsPositive() || !cfg.BaseUnit.IsInteger() {
		return Config{}, fmt.Errorf("invalid BASE_UNIT %q: must be a positive integer", getenv("BASE_UNIT"))
	}
	if cfg.PayPeriod, err = time.ParseDuration(get("PAY_PERIOD", payroll.DefaultPayPeriod.String())); err != nil || cfg.PayPeriod <= 0 {
		return Config{}, fmt.Errorf("invalid PAY_PERIOD %q", getenv("PAY_PERIOD"))
	}
	if cfg.MonitorInterval, err = time.ParseDuration(get("MONITOR_INTERVAL", "1h")); err != nil || cfg.MonitorInterval < 0 {
		return Config{}, fmt.Errorf("invalid MONITOR_INTERVAL %q", getenv("MONITOR_INTERVAL"))
	}
	if cfg.LogLevel, err = zapcore.ParseLevel(get("LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}
