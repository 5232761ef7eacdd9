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
// Package dev 開發者面板：單頁 HTML，全部走 /v1 API，不另開後端邏輯。
package dev

import (
	"net/http"

	"github.com/zintix-labs/slotstrike/server/netsvr"
)

// Register 掛載 /dev 與 favicon
func Register(svr netsvr.NetRouter) {
	svr.Get("/dev", devPage)
	svr.Get("/favicon.svg", favicon)
}

func devPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(devPageHTML))
}

func favicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(faviconSVG))
}

const faviconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 32 32"><rect width="32" height="32" rx="7" fill="#0f172a"/><path d="M9 23 L16 7 L23 23 Z" fill="#38bdf8"/><circle cx="16" cy="19" r="3" fill="#f59e0b"/></svg>`

// devPageHTML
//   - Session：建立後 id 存在頁面上，spin / choice 都帶這個 id。
//   - Choice：state 為 Choice 時顯示升級按鈕，點選後送 /choice。
//   - Sim：只顯示 Summary 與 session 評估。
const devPageHTML = `<!doctype html>
<html lang="zh-Hant">
<head>
  <meta charset="utf-8" />
  <link rel="icon" type="image/svg+xml" href="/favicon.svg" />
  <title>Slotstrike Dev</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 980px; margin: 24px auto; padding: 16px 20px; background:#111827; border:1px solid #1f2937; border-radius:12px; }
    h1 { margin: 0 0 16px; font-size: 22px; }
    .row { display:flex; gap:10px; align-items:flex-end; flex-wrap:wrap; margin-bottom:12px; }
    label { display:flex; flex-direction:column; gap:6px; font-size: 13px; color:#cbd5e1; }
    input, select { background:#0b1224; color:#e2e8f0; border:1px solid #1f2738; border-radius:8px; padding:8px 10px; font-size:14px; width:120px; }
    button { cursor:pointer; border:none; border-radius:10px; padding:9px 14px; font-weight:600; background:#38bdf8; color:#0b1224; }
    button.alt { background:#22c55e; }
    button.pick { background:#f59e0b; }
    button:disabled { opacity:.4; cursor:default; }
    table.grid { border-collapse:collapse; margin:8px 0; }
    table.grid td { width:72px; height:32px; text-align:center; border:1px solid #1f2937; font-size:12px; }
    td.BULLET { color:#94a3b8; } td.GRENADE { color:#22c55e; } td.MISSILE { color:#f97316; } td.WILD { color:#facc15; font-weight:700; }
    .hud { display:grid; grid-template-columns: repeat(auto-fit, minmax(150px,1fr)); gap:8px; margin:8px 0; font-size:13px; }
    .hud div { background:#0b1224; border:1px solid #1f2738; border-radius:8px; padding:8px; }
    pre { background:#0b1224; border:1px solid #1f2738; border-radius:8px; padding:10px; max-height:360px; overflow:auto; font-size:12px; }
    #info { min-height:18px; font-size:13px; color:#94a3b8; }
    #info.warn { color:#f87171; }
  </style>
</head>
<body>
<div class="wrap">
  <h1>Slotstrike Dev</h1>
  <div class="row">
    <label>Bet<select id="bet"></select></label>
    <label>Seed<input id="seed" placeholder="auto" /></label>
    <button id="btn-new">New Session</button>
    <button id="btn-spin" disabled>Spin</button>
    <span id="sid" style="font-size:12px;color:#64748b"></span>
  </div>
  <div id="choice" class="row"></div>
  <div id="info"></div>
  <table class="grid" id="grid"></table>
  <div class="hud" id="hud"></div>
  <div class="row">
    <label>Sessions<input id="sessions" value="200" /></label>
    <label>Rounds<input id="rounds" value="100" /></label>
    <label>Workers<input id="workers" value="4" /></label>
    <button class="alt" id="btn-sim">Sim</button>
  </div>
  <pre id="out"></pre>
</div>
<script>
let sid = "";
const $ = (id) => document.getElementById(id);

function info(text, warn) {
  $("info").textContent = text || "";
  $("info").className = warn ? "warn" : "";
}

async function call(method, url, body) {
  const opt = { method, headers: {} };
  if (body !== undefined) {
    opt.headers["Content-Type"] = "application/json";
    opt.body = JSON.stringify(body);
  }
  const res = await fetch(url, opt);
  const text = await res.text();
  let data = null;
  try { data = text ? JSON.parse(text) : null; } catch (e) { data = text; }
  if (!res.ok) {
    throw new Error((data && data.error) || res.statusText);
  }
  return data;
}

function seedValue() {
  const s = $("seed").value.trim();
  return s === "" ? undefined : Number(s);
}

async function loadSetting() {
  const gs = await call("GET", "/v1/setting?format=json");
  const sel = $("bet");
  sel.innerHTML = "";
  for (const b of gs.bet_units || []) {
    const o = document.createElement("option");
    o.value = b; o.textContent = b;
    if (b === gs.default_bet) o.selected = true;
    sel.appendChild(o);
  }
  info(gs.game_name);
}

function renderGrid(grid) {
  const t = $("grid");
  t.innerHTML = "";
  if (!grid || !grid.length) return;
  const rows = grid[0].length;
  for (let r = 0; r < rows; r++) {
    const tr = document.createElement("tr");
    for (let c = 0; c < grid.length; c++) {
      const td = document.createElement("td");
      td.textContent = grid[c][r];
      td.className = grid[c][r];
      tr.appendChild(td);
    }
    t.appendChild(tr);
  }
}

function renderView(v) {
  const p = v.progress || {};
  const cb = v.combo || {};
  const bs = v.boss || {};
  const cells = [
    ["State", v.state],
    ["Level", p.level + " (" + p.kills + "/" + p.kills_to_advance + ")"],
    ["Combo", cb.combo_count + (cb.overdrive_active ? " OVERDRIVE" : "")],
    ["Boss", bs.name + " " + Math.round(bs.hp) + "/" + Math.round(bs.max_hp)],
    ["Enemies", (v.field || {}).alive],
    ["Upgrades", (v.upgrades || []).join(", ") || "-"],
  ];
  if (v.last) {
    cells.push(["Last win", v.last.total_win + " (boss " + v.last.boss_bonus + ")"]);
    renderGrid(v.last.grid);
  }
  $("hud").innerHTML = cells.map(([k, x]) => "<div><b>" + k + "</b><br>" + x + "</div>").join("");
  renderChoice(v.state === "Choice" ? v.choice : null);
  $("btn-spin").disabled = !sid || v.state === "GameOver" || v.state === "Choice";
  if (v.state === "GameOver") info("game over", true);
}

function renderChoice(opts) {
  const box = $("choice");
  box.innerHTML = "";
  (opts || []).forEach((u, i) => {
    const b = document.createElement("button");
    b.className = "pick";
    b.textContent = u.name + " [" + u.rarity + "]";
    b.title = u.description;
    b.onclick = () => choose(i);
    box.appendChild(b);
  });
}

async function refresh() {
  const v = await call("GET", "/v1/sessions/" + sid);
  renderView(v);
  $("out").textContent = JSON.stringify(v.last || v, null, 2);
}

async function newSession() {
  try {
    const v = await call("POST", "/v1/sessions", { bet: Number($("bet").value), seed: seedValue() });
    sid = v.id;
    $("sid").textContent = sid + " seed=" + v.seed;
    renderGrid(null);
    renderView(v);
    info("session ready");
  } catch (e) { info(e.message, true); }
}

async function spin() {
  try {
    await call("POST", "/v1/sessions/" + sid + "/spin", { bet: Number($("bet").value) });
    await refresh();
  } catch (e) { info(e.message, true); }
}

async function choose(i) {
  try {
    await call("POST", "/v1/sessions/" + sid + "/choice", { index: i });
    await refresh();
  } catch (e) { info(e.message, true); }
}

async function sim() {
  $("btn-sim").disabled = true;
  info("simulating...");
  try {
    const res = await call("POST", "/v1/sim", {
      sessions: Number($("sessions").value),
      rounds: Number($("rounds").value),
      workers: Number($("workers").value),
      bet: Number($("bet").value),
      seed: seedValue(),
    });
    $("out").textContent = JSON.stringify({ summary: res.report.Summary, sessions: res.sessions, used_ms: res.used_ms }, null, 2);
    info("sim done in " + res.used_ms + " ms");
  } catch (e) { info(e.message, true); }
  $("btn-sim").disabled = false;
}

$("btn-new").onclick = newSession;
$("btn-spin").onclick = spin;
$("btn-sim").onclick = sim;
loadSetting().catch((e) => info(e.message, true));
</script>
</body>
</html>`
