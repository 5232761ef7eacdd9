// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"flag"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/server/logger"
	"github.com/zintix-labs/slotstrike/server/netsvr"
)

// config 先讀環境變數（含預設值），再以 flag 覆寫
type config struct {
	Addr      string        `env:"SLOTSTRIKE_ADDR"        envDefault:":5808"`
	LogMode   string        `env:"SLOTSTRIKE_LOG_MODE"    envDefault:"dev"`
	LogBuf    int           `env:"SLOTSTRIKE_LOG_BUF"     envDefault:"4096"`
	Setting   string        `env:"SLOTSTRIKE_CONFIG"`
	Sessions  int           `env:"SLOTSTRIKE_SESSIONS"    envDefault:"1024"`
	TTL       time.Duration `env:"SLOTSTRIKE_SESSION_TTL" envDefault:"30m"`
	HistoryDB string        `env:"SLOTSTRIKE_HISTORY_DB"`
	Journal   string        `env:"SLOTSTRIKE_JOURNAL"`
	Origins   []string      `env:"SLOTSTRIKE_ORIGINS"     envSeparator:","`
	Dev       bool          `env:"SLOTSTRIKE_DEV"`

	mode logger.LogMode
}

func loadConfig(args []string) (*config, error) {
	cfg := new(config)
	if err := env.Parse(cfg); err != nil {
		return nil, errs.WrapCode(err, errs.Fatal, errs.CodeConfig, "parse env")
	}

	fs := flag.NewFlagSet("svr", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.LogMode, "log-mode", cfg.LogMode, "log mode: dev|prod|silence")
	fs.IntVar(&cfg.LogBuf, "log-buf", cfg.LogBuf, "async log buffer, 0 for sync logging")
	fs.StringVar(&cfg.Setting, "config", cfg.Setting, "game setting file (.yaml/.json), empty for built-in")
	fs.IntVar(&cfg.Sessions, "sessions", cfg.Sessions, "max concurrent sessions")
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "idle session ttl, 0 to keep forever")
	fs.StringVar(&cfg.HistoryDB, "history-db", cfg.HistoryDB, "sqlite path for round history, empty for in-memory ledger only")
	fs.StringVar(&cfg.Journal, "journal", cfg.Journal, "zstd json-lines round journal path, empty to disable")
	fs.BoolVar(&cfg.Dev, "dev", cfg.Dev, "mount the /dev panel")
	if err := fs.Parse(args); err != nil {
		return nil, errs.WrapCode(err, errs.Fatal, errs.CodeConfig, "parse flags")
	}
	return cfg, cfg.valid()
}

func (cfg *config) valid() error {
	m, err := logger.ParseMode(cfg.LogMode)
	if err != nil {
		return errs.WrapCode(err, errs.Fatal, errs.CodeConfig, "log mode")
	}
	cfg.mode = m
	if cfg.Sessions < 1 {
		return errs.Configf("sessions must be > 0, got %d", cfg.Sessions)
	}
	if cfg.TTL < 0 {
		return errs.Configf("ttl must not be negative, got %s", cfg.TTL)
	}
	if cfg.Addr == "" {
		cfg.Addr = netsvr.DefaultAddr
	}
	return nil
}
