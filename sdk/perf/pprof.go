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
// Package perf 模擬器的 pprof 開關：cmd/run -p cpu|heap|allocs。
// 輸出檔可直接給 go tool pprof，或作為 PGO 的 default.pgo。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/slotstrike/errs"
)

// DefaultDir pprof 檔案寫入路徑
const DefaultDir = "build/profiling"

// Mode 取樣種類
type Mode string

const (
	ModeNone   Mode = ""
	ModeCPU    Mode = "cpu"
	ModeHeap   Mode = "heap"   // fn 結束後的 in-use 快照
	ModeAllocs Mode = "allocs" // 累積配置，搭配 -alloc_space 查看
)

// ParseMode 空字串為 ModeNone
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNone, ModeCPU, ModeHeap, ModeAllocs:
		return m, nil
	}
	return ModeNone, errs.Warnf("unknown pprof mode %q (want cpu|heap|allocs)", s)
}

// Run 依 mode 包住 fn；ModeNone 直接執行。回傳寫出的檔案路徑（沒有寫檔則為空）。
func Run(mode Mode, dir string, fn func() error) (string, error) {
	if mode == ModeNone {
		return "", fn()
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(err, "create profiling dir")
	}
	path := filepath.Join(dir, string(mode)+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return "", errs.Wrap(err, "create "+path)
	}
	defer f.Close()

	if mode == ModeCPU {
		if err := pprof.StartCPUProfile(f); err != nil {
			return "", errs.Wrap(err, "start cpu profile")
		}
		err := fn()
		pprof.StopCPUProfile()
		return path, err
	}

	if err := fn(); err != nil {
		return path, err
	}
	if mode == ModeHeap {
		// 讓快照只剩存活物件
		runtime.GC()
	}
	if err := pprof.Lookup(string(mode)).WriteTo(f, 0); err != nil {
		return path, errs.Wrap(err, "write "+string(mode)+" profile")
	}
	return path, nil
}
