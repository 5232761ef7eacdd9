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
package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseMode(t *testing.T) {
	for _, s := range []string{"dev", "PROD", " silence "} {
		m, err := ParseMode(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if m.String() != strings.ToLower(strings.TrimSpace(s)) {
			t.Fatalf("round trip %q -> %s", s, m)
		}
	}
	if _, err := ParseMode("verbose"); err == nil {
		t.Fatalf("unknown mode accepted")
	}
	if LogMode(9).String() != "LogMode(9)" {
		t.Fatalf("out of range = %s", LogMode(9))
	}
}

func TestProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, closeFn := New(Options{Mode: ModeProd, Out: &buf})
	defer closeFn()
	log.Debug("hidden")
	log.Info("spin", slog.Int("seq", 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "spin" || rec["seq"] != float64(3) {
		t.Fatalf("record = %v", rec)
	}
}

func TestAsyncDrainsOnClose(t *testing.T) {
	var buf bytes.Buffer
	lv := slog.LevelInfo
	log, closeFn := New(Options{Mode: ModeProd, Out: &buf, Level: &lv, Async: 256})
	for i := range 100 {
		log.With("worker", 1).Info("tick", slog.Int("i", i))
	}
	closeFn()
	closeFn()

	ah := log.Handler().(*AsyncHandler)
	got := strings.Count(buf.String(), `"msg":"tick"`)
	if got+int(ah.Dropped()) != 100 {
		t.Fatalf("written %d + dropped %d != 100", got, ah.Dropped())
	}
	if !strings.Contains(buf.String(), `"worker":1`) {
		t.Fatalf("attrs lost: %q", buf.String())
	}

	log.Info("after close")
	if strings.Contains(buf.String(), "after close") {
		t.Fatalf("record written after close")
	}
}

func TestSilence(t *testing.T) {
	log := NewDefaultLogger(ModeSilence)
	if log.Enabled(t.Context(), slog.LevelError) {
		t.Fatalf("silence logger enabled")
	}
}
