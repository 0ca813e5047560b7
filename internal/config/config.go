// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the dnsquery configuration from the environment.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of the environment variables read by [Load].
const EnvPrefix = "DNSQUERY_"

// AppConfig holds the dnsquery configuration.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Server is the HOST:PORT of the resolver to query. HOST is either a
	// hostname or an IP address, with IPv6 addresses in brackets.
	Server string `koanf:"server" validate:"required,server_addr"`

	// Timeout bounds the whole query/response exchange.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RecvSize is the size of the receive buffer for the response. A
	// smaller buffer than the datagram truncates it, hence the floor
	// at the classic 512-byte UDP message size.
	RecvSize int `koanf:"recv_size" validate:"gte=512,lte=65535"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() AppConfig {
	return AppConfig{
		Env:      "prod",
		LogLevel: "info",
		Server:   "8.8.8.8:53",
		Timeout:  2 * time.Second,
		RecvSize: 2048,
	}
}

// envLoader loads the environment variables with [EnvPrefix] stripping
// the prefix and lowercasing the keys. Replaced in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil)
}

// Load returns the [*AppConfig] obtained by applying the environment
// on top of [Defaults]. The result is validated.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration, e.g., after command line overrides.
func Validate(cfg *AppConfig) error {
	if err := newValidator().Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	runtimex.PanicOnError0(validate.RegisterValidation("server_addr", func(fl validator.FieldLevel) bool {
		return validServerAddr(validate, fl.Field().String())
	}))
	return validate
}

// validServerAddr is like the builtin hostname_port but also
// accepts IP literals, which includes IPv6.
func validServerAddr(validate *validator.Validate, addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if n, err := strconv.ParseUint(port, 10, 16); err != nil || n == 0 {
		return false
	}
	return validate.Var(host, "required,ip|hostname_rfc1123") == nil
}
