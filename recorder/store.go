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

package recorder

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slotstrike/errs"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
	session TEXT    NOT NULL,
	seq     INTEGER NOT NULL,
	bet     TEXT    NOT NULL,
	win     TEXT    NOT NULL,
	at      INTEGER NOT NULL,
	PRIMARY KEY (session, seq)
);`

// Store 以 sqlite 保存每個 session 的回合
type Store struct {
	db *sql.DB
}

// OpenStore path 可為 ":memory:"
func OpenStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errs.Configf("history store path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(err, "open sqlite")
	}
	// 單一連線：:memory: 每條連線各自一個資料庫，寫入也只能序列化
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, "ping sqlite")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, "create schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Insert(ctx context.Context, session string, r Round) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rounds (session, seq, bet, win, at) VALUES (?, ?, ?, ?, ?)`,
		session, r.Seq, r.Bet.String(), r.Win.String(), r.At.UTC().UnixMilli(),
	)
	if err != nil {
		return errs.WrapCode(err, errs.Warn, errs.CodeNone, "insert round")
	}
	return nil
}

// Rounds 最近 limit 筆，舊到新；limit <= 0 代表全部
func (s *Store) Rounds(ctx context.Context, session string, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, bet, win, at FROM (
		   SELECT seq, bet, win, at FROM rounds WHERE session = ? ORDER BY seq DESC LIMIT ?
		 ) ORDER BY seq ASC`,
		session, limit,
	)
	if err != nil {
		return nil, errs.WrapCode(err, errs.Warn, errs.CodeNone, "query rounds")
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		var (
			r        Round
			bet, win string
			at       int64
		)
		if err := rows.Scan(&r.Seq, &bet, &win, &at); err != nil {
			return nil, errs.WrapCode(err, errs.Warn, errs.CodeNone, "scan round")
		}
		if r.Bet, err = decimal.NewFromString(bet); err != nil {
			return nil, errs.Wrap(err, "bad bet column")
		}
		if r.Win, err = decimal.NewFromString(win); err != nil {
			return nil, errs.Wrap(err, "bad win column")
		}
		r.At = time.UnixMilli(at).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sessions 有紀錄的 session 與回合數
func (s *Store) Sessions(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session, COUNT(*) FROM rounds GROUP BY session`)
	if err != nil {
		return nil, errs.WrapCode(err, errs.Warn, errs.CodeNone, "query sessions")
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, errs.WrapCode(err, errs.Warn, errs.CodeNone, "scan session")
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Sink 綁定 session 的寫入端，給 Ledger 使用
func (s *Store) Sink(session string) Sink {
	return storeSink{s: s, session: session}
}

type storeSink struct {
	s       *Store
	session string
}

func (w storeSink) Write(r Round) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.s.Insert(ctx, w.session, r)
}
