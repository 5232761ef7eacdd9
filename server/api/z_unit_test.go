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
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/dto"
	"github.com/zintix-labs/slotstrike/recorder"
	"github.com/zintix-labs/slotstrike/server/httperr"
	"github.com/zintix-labs/slotstrike/server/netsvr"
	"github.com/zintix-labs/slotstrike/server/svrcfg"
	"github.com/zintix-labs/slotstrike/stats"
)

func newHandler(t *testing.T, dev bool) http.Handler {
	t.Helper()
	lab, err := slotstrike.New(nil, nil, nil)
	if err != nil {
		t.Fatalf("lab: %v", err)
	}
	rt, err := lab.BuildRuntime(slotstrike.RuntimeConfig{Sessions: 4})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	t.Cleanup(rt.Close)
	sCfg := &svrcfg.SvrCfg{Runtime: rt, Dev: dev, SimLimit: dto.SimRequest{Sessions: 50, Rounds: 50, Workers: 4}}
	if err := sCfg.Valid(); err != nil {
		t.Fatalf("valid: %v", err)
	}
	svr := netsvr.NewChiServerDefault()
	RegisterRoutes(svr, sCfg)
	return svr.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s decode: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w
}

func TestIndex(t *testing.T) {
	h := newHandler(t, false)
	var info indexInfo
	if w := do(t, h, http.MethodGet, "/", "", &info); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if info.Service != "slotstrike" || info.Game == "" || len(info.Bets) == 0 || info.Dev != "" {
		t.Fatalf("index = %+v", info)
	}
	if w := do(t, h, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/dev", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("dev page mounted without Dev: %d", w.Code)
	}

	h = newHandler(t, true)
	w := do(t, h, http.MethodGet, "/dev", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/v1/sessions") {
		t.Fatalf("dev page = %d", w.Code)
	}
}

func TestSessionRoutes(t *testing.T) {
	h := newHandler(t, false)

	var v dto.SessionView
	w := do(t, h, http.MethodPost, "/v1/sessions", `{"seed":7,"bet":20}`, &v)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	if v.ID == "" || v.Seed != 7 || v.Bet != 20 || v.State != "Idle" {
		t.Fatalf("view = %+v", v)
	}
	if loc := w.Header().Get("Location"); loc != "/v1/sessions/"+v.ID {
		t.Fatalf("location = %q", loc)
	}
	base := "/v1/sessions/" + v.ID

	var rr dto.RoundResult
	if w := do(t, h, http.MethodPost, base+"/spin", `{}`, &rr); w.Code != http.StatusOK {
		t.Fatalf("spin = %d %s", w.Code, w.Body.String())
	}
	if rr.Seq != 1 || rr.Bet != 20 || rr.State == "" {
		t.Fatalf("round = %+v", rr)
	}
	if w := do(t, h, http.MethodGet, base+"/spin?bet=10", "", &rr); w.Code != http.StatusOK || rr.Seq != 2 || rr.Bet != 10 {
		t.Fatalf("get spin = %d %+v", w.Code, rr)
	}

	var hist []recorder.Round
	if w := do(t, h, http.MethodGet, base+"/history?limit=1", "", &hist); w.Code != http.StatusOK {
		t.Fatalf("history = %d", w.Code)
	}
	if len(hist) != 1 || hist[0].Seq != 2 {
		t.Fatalf("history = %+v", hist)
	}

	if w := do(t, h, http.MethodGet, base, "", &v); w.Code != http.StatusOK || v.Last == nil || v.Last.Seq != 2 {
		t.Fatalf("get = %d last=%+v", w.Code, v.Last)
	}

	if w := do(t, h, http.MethodDelete, base, "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, base, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get deleted = %d", w.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	h := newHandler(t, false)
	var v dto.SessionView
	do(t, h, http.MethodPost, "/v1/sessions", ``, &v)
	base := "/v1/sessions/" + v.ID

	cases := []struct {
		method, path, body string
		want               int
		code               string
	}{
		{http.MethodPost, base + "/spin", `{"bet":7}`, http.StatusBadRequest, ""},
		{http.MethodPost, base + "/spin", `{"wager":10}`, http.StatusBadRequest, ""},
		{http.MethodGet, base + "/spin?bet=ten", "", http.StatusBadRequest, ""},
		{http.MethodPost, "/v1/sessions/nope/spin", `{}`, http.StatusNotFound, "not_found"},
		{http.MethodPost, base + "/choice", `{"index":0}`, http.StatusConflict, "busy"},
		{http.MethodGet, base + "/history?limit=-1", "", http.StatusBadRequest, ""},
		{http.MethodPost, "/v1/sessions", `{"bet":3}`, http.StatusBadRequest, ""},
	}
	for _, c := range cases {
		w := do(t, h, c.method, c.path, c.body, nil)
		if w.Code != c.want {
			t.Fatalf("%s %s %s = %d, want %d (%s)", c.method, c.path, c.body, w.Code, c.want, w.Body.String())
		}
		var b httperr.Body
		if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil || b.Error == "" {
			t.Fatalf("%s %s error body = %q", c.method, c.path, w.Body.String())
		}
		if c.code != "" && b.Code != c.code {
			t.Fatalf("%s %s code = %q, want %q", c.method, c.path, b.Code, c.code)
		}
	}
}

func TestSessionPoolFull(t *testing.T) {
	h := newHandler(t, false)
	for range 4 {
		if w := do(t, h, http.MethodPost, "/v1/sessions", ``, nil); w.Code != http.StatusCreated {
			t.Fatalf("create = %d", w.Code)
		}
	}
	if w := do(t, h, http.MethodPost, "/v1/sessions", ``, nil); w.Code != http.StatusConflict {
		t.Fatalf("over limit = %d", w.Code)
	}
	var m slotstrike.RuntimeMetrics
	do(t, h, http.MethodGet, "/v1/metrics", "", &m)
	if m.Pool.Sessions != 4 || m.Pool.Rejected != 1 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestSimRoutes(t *testing.T) {
	h := newHandler(t, false)

	var res struct {
		Report   *stats.StatReport        `json:"report"`
		Sessions *stats.EstimatorSessions `json:"sessions"`
	}
	w := do(t, h, http.MethodGet, "/v1/sim?sessions=3&rounds=4&workers=2&seed=5", "", &res)
	if w.Code != http.StatusOK {
		t.Fatalf("sim = %d %s", w.Code, w.Body.String())
	}
	if res.Report.Summary.Rounds != 12 || res.Report.Summary.Sessions != 3 || res.Sessions == nil {
		t.Fatalf("summary = %+v", res.Report.Summary)
	}

	if w := do(t, h, http.MethodPost, "/v1/sim", `{"sessions":500}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("limit not enforced: %d", w.Code)
	}

	body := `{"sessions":2,"rounds":3,"seed":1,"cfg":{"game_name":"tuned","bet_units":[5],"default_bet":5}}`
	w = do(t, h, http.MethodPost, "/v1/sim/config", body, &res)
	if w.Code != http.StatusOK {
		t.Fatalf("sim config = %d %s", w.Code, w.Body.String())
	}
	if s := res.Report.Summary; s.GameName != "tuned" || s.Bet != 5 || s.Rounds != 6 {
		t.Fatalf("summary = %+v", s)
	}
	if w := do(t, h, http.MethodPost, "/v1/sim/config", `{"sessions":2}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing cfg = %d", w.Code)
	}
	bad := `{"cfg":{"bet_units":[5],"default_bet":7}}`
	if w := do(t, h, http.MethodPost, "/v1/sim/config", bad, nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid cfg = %d %s", w.Code, w.Body.String())
	}
}

func TestStatRoute(t *testing.T) {
	h := newHandler(t, false)
	var rep stats.StatReport
	body := `{"game_name":"replay","bet":10,"wins":[0,20,0,5],"bonuses":[0,10]}`
	if w := do(t, h, http.MethodPost, "/v1/stat", body, &rep); w.Code != http.StatusOK {
		t.Fatalf("stat = %d %s", w.Code, w.Body.String())
	}
	s := rep.Summary
	if s.Rounds != 4 || s.TotalBet != 40 || s.TotalWin != 25 || s.BossBonus != 10 || s.NoWinRounds != 2 {
		t.Fatalf("summary = %+v", s)
	}
	for _, bad := range []string{`{"bet":10,"wins":[]}`, `{"bet":0,"wins":[1]}`, `{"bet":1,"wins":[1],"bonuses":[1,2]}`} {
		if w := do(t, h, http.MethodPost, "/v1/stat", bad, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s = %d", bad, w.Code)
		}
	}
}

func TestMetaRoutes(t *testing.T) {
	h := newHandler(t, false)

	w := do(t, h, http.MethodGet, "/v1/setting", "", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("bet_units:")) {
		t.Fatalf("setting yaml = %d", w.Code)
	}
	var gs map[string]any
	if w := do(t, h, http.MethodGet, "/v1/setting?format=json", "", &gs); w.Code != http.StatusOK || gs["game_name"] == nil {
		t.Fatalf("setting json = %d", w.Code)
	}

	if w := do(t, h, http.MethodGet, "/v1/draw/big", "", nil); w.Code != http.StatusOK {
		t.Fatalf("draw = %d %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodGet, "/v1/draw/huge", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("draw unknown = %d", w.Code)
	}
}
