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

// Package level 關卡進度：擊殺數、刷怪節奏、升級選擇旗標與失敗判定。
//
// 與畫面無關，敵人場地透過 Field 介面操作。
package level

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/sampler"
)

// Field 敵人場地
type Field interface {
	// Step 所有敵人前進一列，回傳是否有敵人觸底
	Step() bool
	Spawn(col, row int, kind string, level int)
	Columns() int
	Rows() int
}

// Unlock 從第 From 關開始出現的敵人
type Unlock struct {
	Kind string `yaml:"kind" json:"kind"`
	From int    `yaml:"from" json:"from"`
}

// Config 關卡參數
type Config struct {
	KillsToAdvance  int           `yaml:"kills_to_advance" json:"kills_to_advance"`
	BatchEveryMin   int           `yaml:"batch_every_min" json:"batch_every_min"`
	BatchEveryMax   int           `yaml:"batch_every_max" json:"batch_every_max"`
	MoveEverySpins  int           `yaml:"move_every_spins" json:"move_every_spins"`
	Grace           time.Duration `yaml:"grace" json:"grace"`
	SpawnOnSpinOnly bool          `yaml:"spawn_on_spin_only" json:"spawn_on_spin_only"`
	InitialMin      int           `yaml:"initial_min" json:"initial_min"`
	InitialMax      int           `yaml:"initial_max" json:"initial_max"`
	InitialRowsMax  int           `yaml:"initial_rows_max" json:"initial_rows_max"`
	BatchRowsMax    int           `yaml:"batch_rows_max" json:"batch_rows_max"`
	WaveRowWeights  []int         `yaml:"wave_row_weights" json:"wave_row_weights"`
	Enemies         []Unlock      `yaml:"enemies" json:"enemies"`
}

func DefaultConfig() Config {
	return Config{
		KillsToAdvance: 100,
		BatchEveryMin:  3,
		BatchEveryMax:  5,
		MoveEverySpins: 2,
		Grace:          6000 * time.Millisecond,
		InitialMin:     40,
		InitialMax:     60,
		InitialRowsMax: 5,
		BatchRowsMax:   2,
		WaveRowWeights: []int{60, 40},
		Enemies: []Unlock{
			{"walker", 1}, {"runner", 1}, {"spitter", 2}, {"brute", 3}, {"tank", 4},
			{"glitch", 5}, {"bomber", 6}, {"shield", 7}, {"phantom", 8}, {"flyer", 9},
		},
	}
}

// Validate 檢查設定是否可用
func (cfg Config) Validate() error { return cfg.valid() }

func (cfg Config) valid() error {
	switch {
	case cfg.KillsToAdvance <= 0:
		return errs.Configf("level: kills_to_advance must be > 0")
	case cfg.BatchEveryMin <= 0 || cfg.BatchEveryMax < cfg.BatchEveryMin:
		return errs.Configf("level: batch cadence [%d,%d] invalid", cfg.BatchEveryMin, cfg.BatchEveryMax)
	case cfg.MoveEverySpins <= 0:
		return errs.Configf("level: move_every_spins must be > 0")
	case cfg.InitialMax < cfg.InitialMin:
		return errs.Configf("level: initial spawn range invalid")
	case len(cfg.WaveRowWeights) == 0:
		return errs.Configf("level: wave_row_weights is empty")
	}
	for _, u := range cfg.Enemies {
		if u.From <= 1 {
			return nil
		}
	}
	return errs.Configf("level: no enemy available at level 1")
}

// EnemyPool 第 lv 關可出現的敵人種類
func (cfg Config) EnemyPool(lv int) []string {
	lv = max(1, lv)
	var out []string
	for _, u := range cfg.Enemies {
		if lv >= u.From {
			out = append(out, u.Kind)
		}
	}
	return out
}

// WaveInterval 時間制波次間隔 clamp(2600-(lv-1)*90, 900, 2600) ms
func WaveInterval(lv int) time.Duration {
	lv = max(1, lv)
	ms := clamp(2600-(lv-1)*90, 900, 2600)
	return time.Duration(ms) * time.Millisecond
}

// BatchSize 依 spin 刷怪的批量基底（不含隨機部分）
func BatchSize(lv int) int {
	return 8 + min(10, int(math.Floor(float64(max(1, lv)-1)*0.9)))
}

func clamp(v, lo, hi int) int { return min(hi, max(lo, v)) }

// Progress 對外快照
type Progress struct {
	Level           int           `json:"level"`
	Kills           int           `json:"kills"`
	KillsToAdvance  int           `json:"kills_to_advance"`
	SpinsUntilBatch int           `json:"spins_until_batch"`
	Elapsed         time.Duration `json:"elapsed"`
	Rounds          int           `json:"rounds"`
	AwaitingChoice  bool          `json:"awaiting_choice"`
	GameOver        bool          `json:"game_over"`
}

// Tracker 關卡進度，並發安全。Field 的呼叫在持鎖狀態下進行，Field 不可回呼 Tracker。
type Tracker struct {
	mu    sync.Mutex
	cfg   Config
	field Field
	c     *core.Core
	log   *slog.Logger
	rows  *sampler.AliasTable

	level      int
	kills      int
	paused     bool
	elapsed    time.Duration
	waveTimer  time.Duration
	spins      int
	untilBatch int
	rounds     int
	awaiting   bool
	over       bool

	listeners []func(level int)
}

// New 建立 tracker（第 1 關）
func New(cfg Config, field Field, c *core.Core, log *slog.Logger) (*Tracker, error) {
	if err := cfg.valid(); err != nil {
		return nil, err
	}
	if field == nil {
		return nil, errs.NewCode(errs.Fatal, errs.CodeMissing, "level: nil field")
	}
	if c == nil {
		c = core.NewSeeded(core.RandomSeed())
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	t := &Tracker{
		cfg:   cfg,
		field: field,
		c:     c,
		log:   log,
		rows:  sampler.BuildAliasTable(cfg.WaveRowWeights),
		level: 1,
	}
	t.untilBatch = c.RandInt(cfg.BatchEveryMin, cfg.BatchEveryMax)
	return t, nil
}

// OnLevelChange 註冊關卡變更通知（在鎖外呼叫）
func (t *Tracker) OnLevelChange(fn func(level int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

func (t *Tracker) Level() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// SpawnInitial 開局在上方幾列聚簇生成 InitialMin..InitialMax 隻
func (t *Tracker) SpawnInitial() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cols, rows := t.field.Columns(), t.field.Rows()
	n := clamp(t.c.RandInt(t.cfg.InitialMin, t.cfg.InitialMax), 1, cols*rows)
	return t.spawnClustered(n, t.cfg.InitialRowsMax)
}

// RecordKill 擊殺 +1；達標後暫停並設定等待升級選擇
func (t *Tracker) RecordKill() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kills++
	if t.kills >= t.cfg.KillsToAdvance && !t.awaiting {
		t.paused = true
		t.awaiting = true
		t.log.Info("level.complete", slog.Int("level", t.level), slog.Int("kills", t.kills))
	}
}

// OnSpin 每次 spin 呼叫：安全期後每 MoveEverySpins 次推進一列，倒數歸零時刷一批
func (t *Tracker) OnSpin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.over {
		return
	}
	t.spins++
	if t.elapsed >= t.cfg.Grace && t.spins%t.cfg.MoveEverySpins == 0 {
		if t.field.Step() {
			t.fail("spin_advance")
			return
		}
	}
	t.untilBatch--
	if t.untilBatch > 0 {
		return
	}
	t.untilBatch = t.c.RandInt(t.cfg.BatchEveryMin, t.cfg.BatchEveryMax)
	n := clamp(BatchSize(t.level)+t.c.IntN(5), 8, 26)
	got := t.spawnClustered(n, t.cfg.BatchRowsMax)
	t.log.Debug("level.batch", slog.Int("level", t.level), slog.Int("spawned", got))
}

// Update 推進關卡時鐘；非 SpawnOnSpinOnly 模式下安全期後依波次間隔推進並刷怪
func (t *Tracker) Update(dt time.Duration) {
	if dt <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.elapsed += dt
	if t.paused || t.over || t.cfg.SpawnOnSpinOnly || t.elapsed < t.cfg.Grace {
		return
	}
	t.waveTimer += dt
	iv := WaveInterval(t.level)
	if t.waveTimer < iv {
		return
	}
	t.waveTimer -= iv
	if t.field.Step() {
		t.fail("wave_advance")
		return
	}
	n := clamp(2+t.level/3+t.c.IntN(3), 2, 7)
	pool := t.cfg.EnemyPool(t.level)
	cols := t.field.Columns()
	for range n {
		t.field.Spawn(t.c.IntN(cols), t.rows.Pick(t.c), pool[t.c.IntN(len(pool))], t.level)
	}
}

// Advance 回合結束時由狀態機呼叫
func (t *Tracker) Advance() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rounds++
}

func (t *Tracker) IsGameOver() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.over
}

// ShouldOfferChoice 是否在等待升級選擇（旗標由 CompleteUpgradeChoice 清除）
func (t *Tracker) ShouldOfferChoice() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.awaiting && !t.over
}

// CompleteUpgradeChoice 清除旗標並進入下一關
func (t *Tracker) CompleteUpgradeChoice() {
	t.mu.Lock()
	t.awaiting = false
	t.level++
	t.kills = 0
	t.waveTimer = 0
	t.elapsed = 0
	t.paused = false
	lv := t.level
	ls := append([]func(int){}, t.listeners...)
	t.mu.Unlock()

	t.log.Info("level.next", slog.Int("level", lv))
	for _, fn := range ls {
		fn(lv)
	}
}

func (t *Tracker) SetPaused(p bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = p
}

// Snapshot 目前進度
func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Progress{
		Level:           t.level,
		Kills:           t.kills,
		KillsToAdvance:  t.cfg.KillsToAdvance,
		SpinsUntilBatch: t.untilBatch,
		Elapsed:         t.elapsed,
		Rounds:          t.rounds,
		AwaitingChoice:  t.awaiting,
		GameOver:        t.over,
	}
}

func (t *Tracker) fail(reason string) {
	t.over = true
	t.paused = true
	t.log.Warn("level.failed", slog.Int("level", t.level), slog.String("reason", reason))
}

var (
	clusterDC = []int{0, 0, 0, 1, -1, 1, -1, 2, -2}
	clusterDR = []int{0, 0, 1, -1, 2, -2}
)

// spawnClustered 選 2~3 個中心，在中心附近生成，同一格最多 3 隻；呼叫端需持鎖
func (t *Tracker) spawnClustered(n, rowsMax int) int {
	cols := t.field.Columns()
	maxRow := clamp(rowsMax, 0, t.field.Rows()-1)
	type cell struct{ c, r int }
	centers := make([]cell, 2+t.c.IntN(2))
	for i := range centers {
		centers[i] = cell{t.c.IntN(cols), t.c.IntN(maxRow + 1)}
	}
	pool := t.cfg.EnemyPool(t.level)
	used := make(map[cell]int)
	spawned := 0
	for guard := 0; spawned < n && guard < n*20; guard++ {
		ctr := centers[t.c.IntN(len(centers))]
		p := cell{
			c: clamp(ctr.c+clusterDC[t.c.IntN(len(clusterDC))], 0, cols-1),
			r: clamp(ctr.r+clusterDR[t.c.IntN(len(clusterDR))], 0, maxRow),
		}
		if used[p] >= 3 {
			continue
		}
		used[p]++
		t.field.Spawn(p.c, p.r, pool[t.c.IntN(len(pool))], t.level)
		spawned++
	}
	return spawned
}
