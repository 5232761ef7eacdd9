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
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/recorder"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/perf"
	"github.com/zintix-labs/slotstrike/spec"
	"github.com/zintix-labs/slotstrike/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	setting  string
	sessions int
	rounds   int
	worker   int
	bet      float64
	seed     int64
	format   stats.Format
	quiet    bool
	pprof    perf.Mode
	journal  string
}

func bindVar() {
	var format, pmode string
	flag.StringVar(&cfg.setting, "config", "", "game setting file (.yaml/.json), empty for built-in")
	flag.IntVar(&cfg.sessions, "sessions", 1000, "number of simulated sessions")
	flag.IntVar(&cfg.rounds, "rounds", 200, "max rounds per session")
	flag.IntVar(&cfg.worker, "worker", 4, "number of workers")
	flag.Float64Var(&cfg.bet, "bet", 0, "bet per round, 0 for default_bet")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed, < 1 for random")
	flag.StringVar(&format, "format", "table", "output: table|json|yaml")
	flag.BoolVar(&cfg.quiet, "q", false, "hide progress bar")
	flag.StringVar(&pmode, "p", "", "pprof: '', cpu, heap, allocs")
	flag.StringVar(&cfg.journal, "journal", "", "write every simulated round to a zstd json-lines file")

	flag.Parse()

	var err error
	if cfg.format, err = stats.ParseFormat(format); err != nil {
		log.Fatal(err)
	}
	if cfg.pprof, err = perf.ParseMode(pmode); err != nil {
		log.Fatal(err)
	}
	// given seed illegal -> random seed
	if cfg.seed < 1 {
		cfg.seed = core.RandomSeed()
	}
}

func executeSimulator() error {
	gs, err := spec.Load(cfg.setting)
	if err != nil {
		return err
	}
	lab, err := slotstrike.New(core.Default(), gs, nil)
	if err != nil {
		return err
	}
	cfg.valid(gs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// 表格模式才印標頭，json / yaml 保持可 pipe
	table := cfg.format == stats.FormatTable
	if table {
		green := "\033[1;32m"
		reset := "\033[0m"
		p := message.NewPrinter(language.English)
		p.Printf("%s[GAME:%s] [WORKERS:%d] [SESSIONS:%d ROUNDS:%d BET:%.2f SEED:%d]%s\n",
			green, gs.GameName, cfg.worker, cfg.sessions, cfg.rounds, cfg.bet, cfg.seed, reset)
	}

	sim := lab.NewSimulatorWithSeed(cfg.seed)
	if cfg.journal != "" {
		j, done, err := openJournal(cfg.journal)
		if err != nil {
			return err
		}
		defer done()
		sim.Record(j)
	}
	res, err := sim.Sim(ctx, cfg.sessions, cfg.rounds, cfg.worker, cfg.bet, table && !cfg.quiet)
	if err != nil {
		return err
	}

	rep, est := stats.Renderers(cfg.format)
	if table {
		res.Report.StdOut(res.Used)
	} else if err := res.Report.WriteWith(os.Stdout, rep); err != nil {
		return err
	}
	if cfg.sessions > 1 {
		return est.Write(os.Stdout, res.Sessions)
	}
	return nil
}

func (cfg *config) valid(gs *spec.GameSetting) {
	p := message.NewPrinter(language.English)

	if cfg.worker < 1 {
		log.Fatal("value err : worker must > 0")
	}
	if cfg.sessions < 1 {
		log.Fatal("value err : sessions must > 0")
	}
	if cfg.sessions > 1_000_000 {
		p.Printf("too many sessions: %d resized to 1M sessions\n", cfg.sessions)
		cfg.sessions = 1_000_000
	}
	if cfg.rounds < 1 {
		log.Fatal("value err : rounds must > 0")
	}
	if cfg.bet == 0 {
		cfg.bet = gs.DefaultBet
	}
	if !gs.ValidBet(cfg.bet) {
		log.Fatalf("value err : bet %v not in bet_units %v", cfg.bet, gs.BetUnits)
	}
}

// openJournal 建立（覆寫）journal 檔
func openJournal(path string) (*recorder.Journal, func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	j, err := recorder.NewJournal(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return j, func() {
		if err := j.Close(); err != nil {
			log.Printf("journal close: %v", err)
		}
		f.Close()
	}, nil
}
