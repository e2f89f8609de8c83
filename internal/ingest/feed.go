// Package ingest drives the study tracker from a feed of visibility ticks and persists
// the completed studies into the shift store.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/studyflow/internal/common"
	"github.com/Veraticus/studyflow/internal/model"
)

const maxLineSize = 1 << 20

// Observation is one study visible on screen during a tick.
type Observation struct {
	Accession    string   `json:"accession"`
	Procedure    string   `json:"procedure"`
	PatientClass string   `json:"patient_class"`
	Accessions   []string `json:"accessions,omitempty"`
}

// Key returns the identifier the tracker follows the observation under: the accession,
// or the composite batch key when several accessions are open together.
func (o Observation) Key() string {
	members := o.Members()
	switch len(members) {
	case 0:
		return ""
	case 1:
		return members[0]
	default:
		return model.BatchKey(members)
	}
}

// Members returns the normalized accessions the observation covers.
func (o Observation) Members() []string {
	if len(o.Accessions) == 0 {
		return model.NormalizeAccessions([]string{o.Accession})
	}
	all := append([]string{o.Accession}, o.Accessions...)
	return model.NormalizeAccessions(all)
}

// Tick is what is on screen at one instant. An empty Visible list means nothing is
// on screen. Repeated entries are allowed but must all name the same study.
type Tick struct {
	ObservedAt time.Time     `json:"observed_at"`
	Visible    []Observation `json:"visible"`
}

// CurrentKey returns the key of the visible study, or "" when nothing is visible.
func (t Tick) CurrentKey() string {
	for _, obs := range t.Visible {
		if key := obs.Key(); key != "" {
			return key
		}
	}
	return ""
}

// Validate checks that every entry carries an accession and that at most one distinct
// study is visible.
func (t Tick) Validate() error {
	current := ""
	for i, obs := range t.Visible {
		key := obs.Key()
		if key == "" {
			return fmt.Errorf("%w: visible[%d] has no accession", common.ErrInvalidFeed, i)
		}
		if current != "" && key != current {
			return fmt.Errorf("%w: visible[%d] is %q but %q is already visible", common.ErrInvalidFeed, i, key, current)
		}
		current = key
	}
	return nil
}

// Decoder reads ticks from a JSON lines stream.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: scanner}
}

// Line returns the number of the last line read.
func (d *Decoder) Line() int {
	return d.line
}

// Next returns the next tick. Blank lines are skipped. A malformed line returns an
// error wrapping common.ErrInvalidFeed; the decoder can keep reading after it.
// At the end of the stream Next returns io.EOF.
func (d *Decoder) Next() (Tick, error) {
	for d.scanner.Scan() {
		d.line++
		raw := bytes.TrimSpace(d.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		tick, err := parseTick(raw)
		if err != nil {
			return Tick{}, fmt.Errorf("line %d: %w", d.line, err)
		}
		return tick, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Tick{}, fmt.Errorf("failed to read feed: %w", err)
	}
	return Tick{}, io.EOF
}

func parseTick(raw []byte) (Tick, error) {
	var tick Tick
	if err := json.Unmarshal(raw, &tick); err != nil {
		return Tick{}, fmt.Errorf("%w: %w", common.ErrInvalidFeed, err)
	}
	if tick.ObservedAt.IsZero() {
		return Tick{}, fmt.Errorf("%w: missing observed_at", common.ErrInvalidFeed)
	}
	if err := tick.Validate(); err != nil {
		return Tick{}, err
	}
	for i, obs := range tick.Visible {
		tick.Visible[i].Procedure = strings.TrimSpace(obs.Procedure)
		tick.Visible[i].PatientClass = strings.TrimSpace(obs.PatientClass)
	}
	return tick, nil
}

// IsInvalidLine reports whether err came from a malformed feed line rather than the reader.
func IsInvalidLine(err error) bool {
	return errors.Is(err, common.ErrInvalidFeed)
}
