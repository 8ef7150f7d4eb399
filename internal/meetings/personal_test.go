package meetings

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPersonalRoom_NotFoundUntilSaved(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.PersonalRoom(context.Background(), "u1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveRoom_ValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	start := testNow().Add(time.Hour)

	if _, err := svc.SaveRoom(ctx, "u1", RoomRequest{StartsAt: start}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing description: err = %v", err)
	}
	if _, err := svc.SaveRoom(ctx, "u1", RoomRequest{Description: "my room"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing start: err = %v", err)
	}
	if _, err := svc.SaveRoom(ctx, "u1", RoomRequest{
		Description: "my room",
		StartsAt:    start,
		EndsAt:      start.Add(-time.Minute),
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("end before start: err = %v", err)
	}
}

func TestSaveRoom_IDIsStableAcrossSaves(t *testing.T) {
	svc, src, _ := newTestService(t)
	ctx := context.Background()
	start := testNow().Add(time.Hour)

	first, err := svc.SaveRoom(ctx, "u1", RoomRequest{Description: "my room", StartsAt: start})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.Call.ID != "u1" {
		t.Fatalf("room id = %q, want the user id", first.Call.ID)
	}
	if first.Link != "https://meet.example.com/meeting/u1?personal=true" {
		t.Fatalf("link = %q", first.Link)
	}

	second, err := svc.SaveRoom(ctx, "u1", RoomRequest{
		Description: "renamed room",
		StartsAt:    start,
		EndsAt:      start.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("re-save: %v", err)
	}
	if second.Call.ID != first.Call.ID {
		t.Fatal("re-saving must keep the same room id")
	}
	if len(src.Calls) != 1 {
		t.Fatalf("calls at source = %d, want 1", len(src.Calls))
	}
	if src.Calls["u1"].Custom.Description != "renamed room" {
		t.Fatalf("description = %q", src.Calls["u1"].Custom.Description)
	}
}

func TestDeleteRoom_EndsCallButKeepsRecord(t *testing.T) {
	svc, src, _ := newTestService(t)
	ctx := context.Background()
	start := testNow().Add(time.Hour)

	if _, err := svc.SaveRoom(ctx, "u1", RoomRequest{Description: "my room", StartsAt: start}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.DeleteRoom(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	stored, ok := src.Calls["u1"]
	if !ok {
		t.Fatal("deleting the room must not remove the source record")
	}
	if stored.EndedAt == nil {
		t.Fatal("deleting the room must end its call")
	}
}

func TestDeleteRoom_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	if err := svc.DeleteRoom(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
