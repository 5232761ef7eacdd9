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
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/recorder"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/server"
	"github.com/zintix-labs/slotstrike/server/logger"
	"github.com/zintix-labs/slotstrike/server/netsvr"
	"github.com/zintix-labs/slotstrike/server/svrcfg"
	"github.com/zintix-labs/slotstrike/spec"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config) error {
	log, closeLog := logger.New(logger.Options{Mode: cfg.mode, Async: cfg.LogBuf})
	defer closeLog()

	gs, err := spec.Load(cfg.Setting)
	if err != nil {
		return err
	}
	lab, err := slotstrike.New(core.Default(), gs, log)
	if err != nil {
		return err
	}

	var store *recorder.Store
	if cfg.HistoryDB != "" {
		if store, err = recorder.OpenStore(cfg.HistoryDB); err != nil {
			return err
		}
		// runtime 關閉後才關 store，spin 中的回合還會寫入
		defer store.Close()
	}
	journal, closeJournal, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer closeJournal()
	rt, err := lab.BuildRuntime(slotstrike.RuntimeConfig{
		Sessions: cfg.Sessions,
		TTL:      cfg.TTL,
		Store:    store,
		Journal:  journal,
	})
	if err != nil {
		return err
	}

	log.Info("[slotstrike] config",
		slog.String("game", gs.GameName),
		slog.Int("sessions", cfg.Sessions),
		slog.Duration("ttl", cfg.TTL),
		slog.String("history_db", cfg.HistoryDB),
		slog.String("journal", cfg.Journal),
		slog.Bool("dev", cfg.Dev),
	)
	sCfg := &svrcfg.SvrCfg{
		Log:     log,
		Runtime: rt,
		Origins: cfg.Origins,
		Dev:     cfg.Dev,
	}
	return server.RunWithSvr(sCfg, netsvr.NewChiServer(netsvr.Options{Addr: cfg.Addr}))
}

// openJournal 開啟 (append) journal 檔；path 為空時回傳 nil 與 no-op close
func openJournal(path string) (*recorder.Journal, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errs.WrapCode(err, errs.Fatal, errs.CodeConfig, "open journal")
	}
	j, err := recorder.NewJournal(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return j, func() {
		j.Close()
		f.Close()
	}, nil
}
