package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	configName = ".go-automerge"
	envPrefix  = "AUTOMERGE"
)

type app struct {
	cfg *viper.Viper
	log *zap.Logger
}

func newApp() *app {
	return &app{cfg: viper.New(), log: zap.NewNop()}
}

// setup loads the configuration for cmd and builds the logger. Flags
// set on the command line take precedence over the environment, which
// takes precedence over the config file.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := a.load(cmd.Flags()); err != nil {
		return err
	}
	log, err := newLogger(a.cfg.GetString("log-level"), a.cfg.GetString("log-format"))
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func (a *app) load(flags *pflag.FlagSet) error {
	if err := a.cfg.BindPFlags(flags); err != nil {
		return err
	}
	a.cfg.SetEnvPrefix(envPrefix)
	a.cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.cfg.AutomaticEnv()

	a.cfg.SetConfigName(configName)
	a.cfg.SetConfigType("yaml")
	a.cfg.AddConfigPath(a.cfg.GetString("repo"))
	if home, err := os.UserHomeDir(); err == nil {
		a.cfg.AddConfigPath(home)
	}
	if err := a.cfg.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrap(err, "read config")
		}
	}
	return nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	switch format {
	case "json":
	case "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, errors.Errorf("unknown log format %q (want console or json)", format)
	}
	return cfg.Build()
}
