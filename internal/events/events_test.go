package events

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCompiledJSON(t *testing.T) {
	ok := Compiled{Session: "s", RequestID: 3, Document: &Document{Pages: 1, Hash: "ab", PageSvgs: []string{"<svg/>"}, ChangedPages: []int{0}}}
	data, err := json.Marshal(ok)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"document":{"pages":1`) || strings.Contains(string(data), "diagnostics") {
		t.Errorf("success json = %s", data)
	}

	failed := Compiled{Session: "s", RequestID: 4}
	data, err = json.Marshal(failed)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"session":"s","requestId":4,"diagnostics":[]}` {
		t.Errorf("failure json = %s", got)
	}

	var back Compiled
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.OK() || back.RequestID != 4 {
		t.Errorf("decoded = %+v", back)
	}
}

func TestChanDropsOldest(t *testing.T) {
	c := NewChan(2)
	for i := uint64(1); i <= 4; i++ {
		c.Publish(Compiled{RequestID: i})
	}
	if c.Dropped() != 2 {
		t.Fatalf("dropped = %d", c.Dropped())
	}
	if got := (<-c.C()).RequestID; got != 3 {
		t.Errorf("first = %d, want 3", got)
	}
	if got := (<-c.C()).RequestID; got != 4 {
		t.Errorf("second = %d, want 4", got)
	}
}

func TestMulti(t *testing.T) {
	var a, b Recorder
	Multi(&a, nil, &b).Publish(Compiled{RequestID: 7})
	for _, r := range []*Recorder{&a, &b} {
		if last, ok := r.Last(); !ok || last.RequestID != 7 {
			t.Errorf("recorder got %+v", r.Events())
		}
	}
}
