// Package config loads the settings of both binaries from flags, PEKARNA_*
// environment variables and an optional YAML file, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrHelp is returned when -h or --help was given.
var ErrHelp = pflag.ErrHelp

// Web configures the back-office.
type Web struct {
	Addr string
	// APIURL is the root of the bakery REST API.
	APIURL string
	// TokenURL is where credentials are exchanged for a bearer token.
	TokenURL       string
	RequestTimeout time.Duration
	// ContextTTL is how long an idle user's cached collections are kept.
	ContextTTL    time.Duration
	SecureCookies bool
	LogPath       string
}

// DevAPI configures the development API.
type DevAPI struct {
	Addr           string
	DBPath         string
	TokenSecret    string
	TokenTTL       time.Duration
	AllowedOrigins []string
	SeedPath       string
	AdminUser      string
	LogPath        string
}

func newViper(name string, fs *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("pekarna")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/etc/pekarna")
	v.BindPFlags(fs)
	return v
}

func parse(name string, fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	fs.String("config", "", "config file (default: "+name+".yaml in ., ./config or /etc/pekarna)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	v := newViper(name, fs)
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// LoadWeb reads the back-office configuration.
func LoadWeb(args []string) (Web, error) {
	fs := pflag.NewFlagSet("pekarna", pflag.ContinueOnError)
	fs.StringP("addr", "a", ":8080", "listen address")
	fs.String("api-url", "http://localhost:8081", "bakery API root")
	fs.String("token-url", "", "token endpoint (default: <api-url>/auth/token)")
	fs.Duration("request-timeout", 0, "API request timeout (0 keeps transport defaults)")
	fs.Duration("context-ttl", 30*time.Minute, "idle time before a user's cached collections are dropped")
	fs.Bool("secure-cookies", false, "mark session cookies Secure")
	fs.StringP("log", "l", "", "log file path (default: stdout/stderr only)")

	v, err := parse("pekarna", fs, args)
	if err != nil {
		return Web{}, err
	}

	cfg := Web{
		Addr:           v.GetString("addr"),
		APIURL:         strings.TrimSuffix(v.GetString("api-url"), "/"),
		TokenURL:       v.GetString("token-url"),
		RequestTimeout: v.GetDuration("request-timeout"),
		ContextTTL:     v.GetDuration("context-ttl"),
		SecureCookies:  v.GetBool("secure-cookies"),
		LogPath:        v.GetString("log"),
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = cfg.APIURL + "/auth/token"
	}
	if cfg.APIURL == "" {
		return Web{}, errors.New("api-url must be set")
	}
	return cfg, nil
}

// LoadDevAPI reads the development API configuration.
func LoadDevAPI(args []string) (DevAPI, error) {
	fs := pflag.NewFlagSet("pekarna-devapi", pflag.ContinueOnError)
	fs.StringP("addr", "a", ":8081", "listen address")
	fs.StringP("db", "d", "pekarna.sqlite3", "SQLite database path")
	fs.String("token-secret", "", "token signing secret (default: generated and stored in the database)")
	fs.Duration("token-ttl", 12*time.Hour, "token lifetime")
	fs.StringSlice("allowed-origins", nil, "CORS origins (default: any)")
	fs.StringP("seed", "s", "", "YAML seed file applied at startup")
	fs.StringP("user", "u", "admin", "admin username on first run")
	fs.StringP("log", "l", "", "log file path (default: stdout/stderr only)")

	v, err := parse("pekarna-devapi", fs, args)
	if err != nil {
		return DevAPI{}, err
	}

	return DevAPI{
		Addr:           v.GetString("addr"),
		DBPath:         v.GetString("db"),
		TokenSecret:    v.GetString("token-secret"),
		TokenTTL:       v.GetDuration("token-ttl"),
		AllowedOrigins: v.GetStringSlice("allowed-origins"),
		SeedPath:       v.GetString("seed"),
		AdminUser:      v.GetString("user"),
		LogPath:        v.GetString("log"),
	}, nil
}
