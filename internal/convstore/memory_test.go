package convstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/healrag/healrag/internal/model"
	appErr "github.com/healrag/healrag/internal/pkg/errors"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	record := &model.ConversationRecord{
		ID:        "r1",
		SessionID: "s1",
		Query:     "what is the deductible?",
		Response:  "$1,500",
		Timestamp: "2026-08-30T12:00:00Z",
	}
	if err := store.Put(ctx, record); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Query != record.Query || got.Response != record.Response {
		t.Errorf("got = %+v", got)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemory()
	_, err := store.Get(context.Background(), "nope")
	if !appErr.IsNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreRejectsDuplicateID(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	record := &model.ConversationRecord{ID: "r1"}
	if err := store.Put(ctx, record); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, record); err == nil {
		t.Error("duplicate id accepted; records are write-once")
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		record := &model.ConversationRecord{ID: fmt.Sprintf("r%d", i)}
		if err := store.Put(ctx, record); err != nil {
			t.Fatal(err)
		}
	}
	items, err := store.List(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[0].ID != "r4" || items[2].ID != "r2" {
		t.Errorf("order = [%s %s %s], want newest first", items[0].ID, items[1].ID, items[2].ID)
	}
}
