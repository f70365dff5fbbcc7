// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"

	"github.com/vpoeng/vpo/internal/job/model"
)

func TestInstrumentedStoreDelegatesAndPassesThroughErrors(t *testing.T) {
	inner := NewMemoryStore()
	s := NewInstrumentedStore(inner, "memory-test")
	ctx := context.Background()

	r := model.NewRecord(model.KindMove, "/a.mkv", "p", 0)
	if err := s.Enqueue(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != r.ID {
		t.Fatalf("expected delegated Get to find the enqueued record, got %+v", got)
	}

	if _, err := s.Get(ctx, "does-not-exist"); err != nil {
		t.Fatalf("Get of a missing id should not error, got %v", err)
	}
}
