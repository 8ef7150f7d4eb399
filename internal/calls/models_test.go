package calls

import (
	"testing"
	"time"
)

func TestEndsAtTime(t *testing.T) {
	c := Call{Custom: Custom{EndsAt: "2026-03-01T10:00:00Z"}}
	got, ok := c.EndsAtTime()
	if !ok {
		t.Fatalf("expected parse ok")
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, ok := (Call{}).EndsAtTime(); ok {
		t.Fatalf("expected not ok for absent ends_at")
	}
	if _, ok := (Call{Custom: Custom{EndsAt: "yesterday"}}).EndsAtTime(); ok {
		t.Fatalf("expected not ok for malformed ends_at")
	}
}

func TestHasMember(t *testing.T) {
	c := Call{Members: []Member{{UserID: "u1", Role: MemberRoleCallMember}}}
	if !c.HasMember("u1") {
		t.Fatalf("expected member")
	}
	if c.HasMember("u2") {
		t.Fatalf("expected non-member")
	}
}

func TestListItemTags(t *testing.T) {
	ci := CallItem(Call{ID: "c"})
	if ci.Kind != KindCall || ci.Call == nil || ci.Recording != nil {
		t.Fatalf("unexpected call item: %+v", ci)
	}
	ri := RecordingItem(Recording{Filename: "f.mp4"})
	if ri.Kind != KindRecording || ri.Recording == nil || ri.Call != nil {
		t.Fatalf("unexpected recording item: %+v", ri)
	}
}
