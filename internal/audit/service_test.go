package audit

import (
	"context"
	"testing"

	"nikahfirst/internal/auth"
	"nikahfirst/internal/testdb"
)

func TestService_AppendRequiresActorAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeCreditsAdjusted}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{ActorUserID: "admin"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_RecordCapturesActor(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	actor := auth.Actor{UserID: "admin-1", Role: "SUPER_ADMIN", IP: "1.2.3.4"}
	svc.Record(context.Background(), actor, EventTypeCreditsGranted, "user-1", "granted 10", map[string]int{"amount": 10})

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" || evs[0].ActorRole != "SUPER_ADMIN" {
		t.Fatalf("expected actor captured, got %+v", evs[0])
	}
	if evs[0].Metadata != `{"amount":10}` {
		t.Fatalf("unexpected metadata %q", evs[0].Metadata)
	}
}

func TestService_RecordSwallowsInvalidEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	svc.Record(context.Background(), auth.Actor{}, EventTypeCreditsGranted, "user-1", "no actor", nil)
	if len(repo.Events()) != 0 {
		t.Fatalf("expected invalid event to be dropped")
	}

	var nilSvc *Service
	nilSvc.Record(context.Background(), auth.Actor{UserID: "a"}, EventTypeCreditsGranted, "u", "", nil)
}

func TestGormRepo_AppendAndList(t *testing.T) {
	db := testdb.Open(t, Models()...)
	repo := NewGormRepo(db)
	svc := NewService(repo)

	actor := auth.Actor{UserID: "admin-1", Role: "SUPERVISOR"}
	svc.Record(context.Background(), actor, EventTypeTopUpApproved, "user-7", "approved", nil)
	svc.Record(context.Background(), actor, EventTypeTopUpRejected, "user-8", "rejected", nil)

	evs, err := repo.ListByTarget(context.Background(), "user-7", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(evs) != 1 || evs[0].Type != EventTypeTopUpApproved {
		t.Fatalf("unexpected events: %+v", evs)
	}
}

func TestMemoryRepo_ListByTargetNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	actor := auth.Actor{UserID: "admin-1", Role: "SUPER_ADMIN"}

	svc.Record(context.Background(), actor, EventTypeCreditsGranted, "user-1", "first", nil)
	svc.Record(context.Background(), actor, EventTypeCreditsAdjusted, "user-2", "other", nil)
	svc.Record(context.Background(), actor, EventTypeTransactionDeleted, "user-1", "second", nil)

	evs, _ := repo.ListByTarget(context.Background(), "user-1", 10)
	if len(evs) != 2 || evs[0].Message != "second" {
		t.Fatalf("unexpected events: %+v", evs)
	}
}
