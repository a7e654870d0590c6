package rating

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestUpsert_OnePerPair(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	first := &Rating{DonorID: 1, OngID: 10, Score: 5}
	created, err := repo.Upsert(ctx, first)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !created {
		t.Error("expected first upsert to report created")
	}

	comment := "Atendimento excelente"
	second := &Rating{DonorID: 1, OngID: 10, Score: 3, Comment: &comment}
	created, err = repo.Upsert(ctx, second)
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if created {
		t.Error("expected second upsert to report updated, not created")
	}
	if second.ID != first.ID {
		t.Errorf("expected the same rating slot, got IDs %d and %d", first.ID, second.ID)
	}

	got, err := repo.GetByDonorAndOng(ctx, 1, 10)
	if err != nil {
		t.Fatalf("GetByDonorAndOng failed: %v", err)
	}
	if got.Score != 3 {
		t.Errorf("expected replaced score 3, got %d", got.Score)
	}
	if got.Comment == nil || *got.Comment != comment {
		t.Error("expected replaced comment to be stored")
	}
}

func TestUpsert_RejectsInvalidScore(t *testing.T) {
	repo := NewInMemoryRepository()

	_, err := repo.Upsert(context.Background(), &Rating{DonorID: 1, OngID: 10, Score: 6})
	if !errors.Is(err, ErrInvalidScore) {
		t.Errorf("expected ErrInvalidScore, got %v", err)
	}
}

func TestAggregateForOng(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	for donorID, score := range map[int64]int{1: 5, 2: 4, 3: 3} {
		if _, err := repo.Upsert(ctx, &Rating{DonorID: donorID, OngID: 10, Score: score}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	// A rating of another ONG must not leak into the aggregate.
	if _, err := repo.Upsert(ctx, &Rating{DonorID: 1, OngID: 20, Score: 1}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	agg, err := repo.AggregateForOng(ctx, 10)
	if err != nil {
		t.Fatalf("AggregateForOng failed: %v", err)
	}
	if agg.Count != 3 {
		t.Errorf("expected count 3, got %d", agg.Count)
	}
	if math.Abs(agg.Average-4.0) > 1e-9 {
		t.Errorf("expected average 4.0, got %v", agg.Average)
	}
}

func TestDelete(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, &Rating{DonorID: 1, OngID: 10, Score: 5}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Delete(ctx, 1, 10); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, 1, 10); !errors.Is(err, ErrRatingNotFound) {
		t.Errorf("expected ErrRatingNotFound, got %v", err)
	}

	agg, err := repo.AggregateForOng(ctx, 10)
	if err != nil {
		t.Fatalf("AggregateForOng failed: %v", err)
	}
	if agg.Count != 0 || agg.Average != 0.0 {
		t.Errorf("expected empty aggregate after delete, got (%v, %d)", agg.Average, agg.Count)
	}
}

func TestGetByDonorAndOng_ReturnsCopy(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	comment := "Muito organizados"
	if _, err := repo.Upsert(ctx, &Rating{DonorID: 1, OngID: 10, Score: 5, Comment: &comment}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.GetByDonorAndOng(ctx, 1, 10)
	if err != nil {
		t.Fatalf("GetByDonorAndOng failed: %v", err)
	}
	*got.Comment = "mutated"
	got.Score = 1

	again, _ := repo.GetByDonorAndOng(ctx, 1, 10)
	if *again.Comment != comment {
		t.Errorf("comment mutated through returned copy: %q", *again.Comment)
	}
	if again.Score != 5 {
		t.Errorf("score mutated through returned copy: %d", again.Score)
	}
}
