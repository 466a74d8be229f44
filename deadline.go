// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intents

import (
	"encoding/json"
	"time"
)

// Deadline is the instant after which a signed intent is no longer valid. It
// is encoded as an RFC 3339 timestamp.
type Deadline struct {
	time.Time
}

func NewDeadline(t time.Time) Deadline {
	return Deadline{Time: t.UTC()}
}

// HasExpired reports whether the deadline is not strictly after now.
func (d Deadline) HasExpired(now time.Time) bool {
	return !now.Before(d.Time)
}

func (d Deadline) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(time.RFC3339Nano))
}

func (d *Deadline) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	d.Time = t.UTC()
	return nil
}
