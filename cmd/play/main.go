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
// cmd/play 終端機版：tcell 畫面接上 session 的升級選單與中獎線特效。
//
//	go run ./cmd/play -seed 42
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/server/logger"
	"github.com/zintix-labs/slotstrike/spec"
)

func main() {
	seed := flag.Int64("seed", 0, "session seed, 0 for random")
	setting := flag.String("config", "", "game setting file, empty for built-in")
	logFile := flag.String("log", "", "write dev logs to this file")
	flag.Parse()

	if err := run(*seed, *setting, *logFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(seed int64, setting, logFile string) error {
	gs, err := spec.Load(setting)
	if err != nil {
		return err
	}
	// 畫面佔用終端機，log 只能寫檔
	lopt := logger.Options{Mode: logger.ModeSilence}
	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			return err
		}
		defer f.Close()
		lopt = logger.Options{Mode: logger.ModeDev, Out: f, Async: 1024}
	}
	log, closeLog := logger.New(lopt)
	defer closeLog()

	lab, err := slotstrike.New(core.Default(), gs, log)
	if err != nil {
		return err
	}
	scr, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := scr.Init(); err != nil {
		return err
	}
	defer scr.Fini()

	g, err := newGame(scr, lab, seed)
	if err != nil {
		return err
	}
	defer g.close()
	return g.loop()
}
