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
package errs

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWrapInheritsLevelAndCode(t *testing.T) {
	base := NewCode(Warn, CodeBusy, "machine busy")
	w := Wrap(base, "spin rejected")
	if w.ErrLv != Warn {
		t.Fatalf("expected warn level, got %s", ErrLv(w.ErrLv))
	}
	if w.Code != CodeBusy {
		t.Fatalf("expected busy code, got %q", w.Code)
	}
	if !errors.Is(w, Busy) {
		t.Fatalf("errors.Is should match Busy sentinel")
	}
	if errors.Is(w, Timeout) {
		t.Fatalf("errors.Is should not match Timeout sentinel")
	}
}

func TestWrapForeignIsFatal(t *testing.T) {
	w := Wrap(context.DeadlineExceeded, "stop spin")
	if w.ErrLv != Fatal {
		t.Fatalf("foreign cause should be fatal, got %s", ErrLv(w.ErrLv))
	}
	if !errors.Is(w, context.DeadlineExceeded) {
		t.Fatalf("cause must stay reachable")
	}
}

func TestHasCodeWalksChain(t *testing.T) {
	inner := NewCode(Log, CodeTimeout, "stopSpin")
	outer := WrapCode(inner, Warn, CodeState, "spinning enter")
	if !HasCode(outer, CodeTimeout) || !HasCode(outer, CodeState) {
		t.Fatalf("expected both codes on chain")
	}
	if HasCode(outer, CodeConfig) {
		t.Fatalf("unexpected config code")
	}
	if !strings.Contains(outer.Error(), "code=state_enter") {
		t.Fatalf("message should carry code: %s", outer.Error())
	}
}

func TestConfigf(t *testing.T) {
	e := Configf("bad %s", "paytable")
	if e.ErrLv != Fatal || e.Code != CodeConfig {
		t.Fatalf("unexpected %+v", e)
	}
}

func TestSentinelsMatchThroughWrap(t *testing.T) {
	nf := WrapCode(NewCode(Warn, CodeNotFound, "session gone"), Warn, CodeNone, "lookup")
	if !errors.Is(nf, NotFound) {
		t.Fatalf("not_found should surface through wrap: %v", nf)
	}
	cfg := Wrap(Configf("bad %s", "reels"), "load")
	if !errors.Is(cfg, Config) || errors.Is(cfg, NotFound) {
		t.Fatalf("config sentinel mismatch: %v", cfg)
	}
	to := WrapCode(context.DeadlineExceeded, Warn, CodeTimeout, "spin wait")
	if !errors.Is(to, Timeout) || !errors.Is(to, context.DeadlineExceeded) {
		t.Fatalf("timeout should keep both sentinel and cause: %v", to)
	}
	if to.ErrLv == Fatal {
		t.Fatalf("explicit level must win over foreign cause")
	}
}
