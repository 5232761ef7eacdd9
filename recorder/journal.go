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
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/slotstrike/errs"
)

// Journal 以 zstd 壓縮的 JSON lines 記錄回合，一行一個 Entry
type Journal struct {
	mu  sync.Mutex
	zw  *zstd.Encoder
	enc *json.Encoder
	n   int
}

func NewJournal(w io.Writer) (*Journal, error) {
	zw, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, errs.Wrap(err, "journal: zstd writer")
	}
	return &Journal{zw: zw, enc: json.NewEncoder(zw)}, nil
}

// Entry journal 的一行；Session 為空代表未綁定
type Entry struct {
	Session string `json:"session,omitempty"`
	Round
}

// Write 實作 Sink，不帶 session
func (j *Journal) Write(r Round) error {
	return j.write(Entry{Round: r})
}

// Sink 綁定 session 的寫入端；多個 session 可共用同一份 journal
func (j *Journal) Sink(session string) Sink {
	return journalSink{j: j, session: session}
}

type journalSink struct {
	j       *Journal
	session string
}

func (w journalSink) Write(r Round) error {
	return w.j.write(Entry{Session: w.session, Round: r})
}

func (j *Journal) write(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.zw == nil {
		return errs.NewWarn("journal closed")
	}
	if err := j.enc.Encode(e); err != nil {
		return errs.WrapCode(err, errs.Warn, errs.CodeNone, "journal: encode")
	}
	j.n++
	return nil
}

// Len 已寫入筆數
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.n
}

// Flush 把目前的 frame 寫出，不結束串流
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.zw == nil {
		return nil
	}
	return j.zw.Flush()
}

// Close 結束 zstd 串流；不關閉底層 writer
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.zw == nil {
		return nil
	}
	err := j.zw.Close()
	j.zw = nil
	return err
}

// ReadJournal 解回全部回合
func ReadJournal(r io.Reader) ([]Entry, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, errs.Wrap(err, "journal: zstd reader")
	}
	defer zr.Close()

	var out []Entry
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, errs.Wrap(err, "journal: decode line")
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return out, errs.Wrap(err, "journal: scan")
	}
	return out, nil
}
