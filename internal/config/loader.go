// internal/config/loader.go
//
// Layered configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from four layers (highest
precedence last):

  1. Optional `conf/.env` file, loaded into the process environment
     without overriding variables that are already set.
  2. `conf/base.yaml`, shared defaults.
  3. `conf/<env>.yaml`, where `<env>` is `local` or `prod` as selected by
     `APP_ENV` (default `local`).
  4. Environment variables prefixed `APP__`, where `__` maps to "."
     (e.g., `APP__DATABASE__PORT → database.port`).

After merging, string values of the form `vault:<mount>/<path>#<key>` are
swapped for the secret they reference.  The tree is then unmarshalled into
strongly-typed structs in one pass and validated.  Any failure aborts the
whole load with a single *Error; a partial Config is never returned.

Instrumentation
---------------
  • DEBUG spans: root discovery, layer reads, env overlay.
  • ERROR spans: layer parse, secret lookup, unmarshal, validation.
  • INFO span: final "config loaded" with key highlights.
  • The logger is passed in; a nil logger means no output.

Notes
-----
  • `configDir()` climbs the cwd tree until it finds `conf/base.yaml`;
    this lets `go test ./...` find the repository configuration from any
    package directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Tombleron/z2p/internal/secret"
)

const (
	// RootEnvVar pins the directory that holds conf/.
	RootEnvVar = "APP_ROOT"

	// EnvPrefix marks process variables that override configuration keys.
	EnvPrefix = "APP__"

	// SecretPrefix marks values that must be resolved by a SecretResolver.
	SecretPrefix = "vault:"

	baseLayer = "base"
	confDir   = "conf"
)

// SecretResolver turns a `vault:` reference (prefix stripped) into the
// secret it names.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// configDir resolves APP_ROOT/conf or climbs directories until
// conf/base.yaml is found.  Falls back to ./conf.
func configDir() string {
	if r := os.Getenv(RootEnvVar); r != "" {
		return filepath.Join(r, confDir)
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, confDir, baseLayer+".yaml")); err == nil {
			return filepath.Join(dir, confDir)
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}
	return filepath.Join(wd, confDir)
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Loader carries the knobs of one Load call.  The zero value loads from the
// discovered conf/ directory using APP_ENV.
type Loader struct {
	// Dir holds base.yaml and the environment layers.  Empty means
	// discovered via configDir.
	Dir string

	// Environment overrides APP_ENV when non-nil.
	Environment *Environment

	// Resolver handles `vault:` values.  Nil makes such values an error.
	Resolver SecretResolver

	Log *zap.SugaredLogger
}

// Load is shorthand for a zero Loader with the given logger.
func Load(ctx context.Context, log *zap.SugaredLogger) (*Config, error) {
	return (&Loader{Log: log}).Load(ctx)
}

// Load reads every layer, resolves secrets, decodes, and validates.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	log := l.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	dir := l.Dir
	if dir == "" {
		dir = configDir()
	}
	log.Debugw("config dir resolved", "dir", dir)

	// .env (optional, no error if missing)
	if err := loadDotEnv(filepath.Join(dir, ".env")); err != nil {
		log.Errorw("config dotenv load failed", "err", err)
		return nil, err
	}

	environment, err := l.environment()
	if err != nil {
		log.Errorw("config environment invalid", "err", err)
		return nil, err
	}

	k := koanf.New(".")

	for _, layer := range []string{baseLayer, environment.String()} {
		path := filepath.Join(dir, layer+".yaml")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			log.Errorw("config layer load failed", "layer", layer, "file", path, "err", err)
			return nil, &Error{Kind: KindLayer, Source: path, Err: err}
		}
		log.Debugw("config layer loaded", "layer", layer, "file", path)
	}

	// Env overrides: APP__DATABASE__PORT → database.port
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		log.Errorw("config env overlay failed", "err", err)
		return nil, &Error{Kind: KindLayer, Source: EnvPrefix + "*", Err: err}
	}

	if err := l.resolveSecrets(ctx, k); err != nil {
		log.Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, decodeConf(&cfg)); err != nil {
		log.Errorw("config unmarshal failed", "err", err)
		return nil, &Error{Kind: KindDecode, Err: err}
	}

	if err := validateStruct(&cfg); err != nil {
		log.Errorw("config validation failed", "err", err)
		return nil, &Error{Kind: KindDecode, Err: err}
	}

	cfg.Environment = environment
	log.Infow("config loaded",
		"environment", cfg.Environment.String(),
		"listen_addr", cfg.Application.Address(),
		"database_host", cfg.Database.Host,
		"database_name", cfg.Database.DatabaseName,
	)
	return &cfg, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func (l *Loader) environment() (Environment, error) {
	if l.Environment != nil {
		return *l.Environment, nil
	}
	e, err := CurrentEnvironment()
	if err != nil {
		return 0, &Error{Kind: KindEnvironment, Source: EnvVar, Err: err}
	}
	return e, nil
}

// decodeConf mirrors koanf's default decoder and adds secretScalarHook
// ahead of the text-unmarshaler hook.
func decodeConf(out *Config) koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName: "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				secretScalarHook,
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           out,
			WeaklyTypedInput: true,
		},
	}
}

var secretStringType = reflect.TypeOf(secret.Value[string]{})

// secretScalarHook renders YAML scalars bound for a string secret as text,
// so `password: 123456` decodes as "123456".  Maps and lists pass through
// and fail in decode.
func secretScalarHook(from, to reflect.Type, data any) (any, error) {
	if to != secretStringType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		return fmt.Sprint(data), nil
	}
	return data, nil
}

// envKey maps APP__DATABASE__DATABASE_NAME to database.database_name.
func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "__", "."))
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return &Error{Kind: KindLayer, Source: path, Err: err}
	}
	return nil
}

// resolveSecrets replaces every `vault:` string in k.  All failures are
// reported together.
func (l *Loader) resolveSecrets(ctx context.Context, k *koanf.Koanf) error {
	var errs error
	for _, key := range k.Keys() {
		raw, ok := k.Get(key).(string)
		if !ok || !strings.HasPrefix(raw, SecretPrefix) {
			continue
		}
		if l.Resolver == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: no secret resolver configured", key))
			continue
		}
		val, err := l.Resolver.Resolve(ctx, strings.TrimPrefix(raw, SecretPrefix))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if err := k.Set(key, val); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if errs != nil {
		return &Error{Kind: KindSecret, Err: errs}
	}
	return nil
}
