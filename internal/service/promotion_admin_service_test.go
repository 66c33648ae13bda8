package service

import (
	"errors"
	"testing"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/repository"
)

func TestPromotionAdminCreateValidation(t *testing.T) {
	_, admin, _, _ := setupPromotionServiceTest(t)

	cases := []struct {
		name   string
		mutate func(in *PromotionInput)
		want   error
	}{
		{"empty name", func(in *PromotionInput) { in.Name = " " }, ErrPromotionInvalid},
		{"percentage over 100", func(in *PromotionInput) { in.DiscountValue = money("101") }, ErrPromotionInvalid},
		{"unknown discount", func(in *PromotionInput) { in.DiscountType = "free" }, ErrPromotionInvalid},
		{"dates reversed", func(in *PromotionInput) { in.ExpirationDate = in.StartDate.Add(-time.Minute) }, ErrPromotionInvalidDates},
		{"specific without dishes", func(in *PromotionInput) { in.TargetType = constants.PromotionTargetSpecificProducts }, ErrPromotionTargetsRequired},
		{"categories without ids", func(in *PromotionInput) { in.TargetType = constants.PromotionTargetCategories }, ErrPromotionTargetsRequired},
		{"private without levels", func(in *PromotionInput) { in.Visibility = constants.PromotionVisibilityPrivate }, ErrPromotionLevelTargetsRequired},
		{"bxgy without offered", func(in *PromotionInput) { in.DiscountType = constants.PromotionDiscountBuyXGetY }, ErrPromotionOfferedDishRequired},
		{"non positive total usage", func(in *PromotionInput) { in.MaxTotalUsage = intPtr(0) }, ErrPromotionInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := activePromotionInput("promo")
			tc.mutate(&input)
			if _, err := admin.Create(input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPromotionAdminCreateStatus(t *testing.T) {
	_, admin, _, _ := setupPromotionServiceTest(t)

	active, err := admin.Create(activePromotionInput("now"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if active.Status != constants.PromotionStatusActive {
		t.Fatalf("expected active, got %s", active.Status)
	}

	future := activePromotionInput("future")
	future.StartDate = time.Now().Add(time.Hour)
	future.ExpirationDate = time.Now().Add(2 * time.Hour)
	draft, err := admin.Create(future)
	if err != nil {
		t.Fatalf("create future failed: %v", err)
	}
	if draft.Status != constants.PromotionStatusDraft {
		t.Fatalf("expected draft, got %s", draft.Status)
	}

	bxgy := activePromotionInput("bxgy")
	bxgy.DiscountType = constants.PromotionDiscountBuyXGetY
	bxgy.DiscountValue = money("0")
	bxgy.TargetType = constants.PromotionTargetSpecificProducts
	bxgy.TargetDishIDs = []uint{5, 5, 6, 0}
	bxgy.OfferedDishes = []OfferedDishInput{{DishID: 7, Quantity: 1}}
	created, err := admin.Create(bxgy)
	if err != nil {
		t.Fatalf("create bxgy failed: %v", err)
	}
	loaded, err := admin.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(loaded.TargetDishes) != 2 || len(loaded.OfferedDishes) != 1 {
		t.Fatalf("unexpected relations: dishes=%d offered=%d", len(loaded.TargetDishes), len(loaded.OfferedDishes))
	}
}

func TestNextPromotionStatus(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name   string
		status string
		start  time.Time
		end    time.Time
		want   string
	}{
		{"draft before window", constants.PromotionStatusDraft, now.Add(time.Hour), now.Add(2 * time.Hour), constants.PromotionStatusDraft},
		{"draft inside window", constants.PromotionStatusDraft, now.Add(-time.Hour), now.Add(time.Hour), constants.PromotionStatusActive},
		{"draft past window", constants.PromotionStatusDraft, now.Add(-2 * time.Hour), now.Add(-time.Hour), constants.PromotionStatusExpired},
		{"active inside window", constants.PromotionStatusActive, now.Add(-time.Hour), now.Add(time.Hour), constants.PromotionStatusActive},
		{"active moved to future stays active", constants.PromotionStatusActive, now.Add(time.Hour), now.Add(2 * time.Hour), constants.PromotionStatusActive},
		{"active past window", constants.PromotionStatusActive, now.Add(-2 * time.Hour), now.Add(-time.Hour), constants.PromotionStatusExpired},
		{"expired never revives", constants.PromotionStatusExpired, now.Add(-time.Hour), now.Add(time.Hour), constants.PromotionStatusExpired},
	}
	for _, tc := range cases {
		p := &models.Promotion{Status: tc.status, StartDate: tc.start, ExpirationDate: tc.end}
		if got := NextPromotionStatus(p, now); got != tc.want {
			t.Fatalf("%s: want %s got %s", tc.name, tc.want, got)
		}
	}
}

func TestPromotionAdminSyncStatuses(t *testing.T) {
	_, admin, db, _ := setupPromotionServiceTest(t)
	now := time.Now()

	future := activePromotionInput("future")
	future.StartDate = now.Add(time.Hour)
	future.ExpirationDate = now.Add(3 * time.Hour)
	draft, err := admin.Create(future)
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	active, err := admin.Create(activePromotionInput("active"))
	if err != nil {
		t.Fatalf("create active failed: %v", err)
	}

	result, err := admin.SyncStatuses(now.Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Activated != 1 || result.Expired != 0 {
		t.Fatalf("unexpected sync result: %+v", result)
	}

	result, err = admin.SyncStatuses(now.Add(48 * time.Hour))
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if result.Expired != 2 {
		t.Fatalf("expected 2 expired, got %+v", result)
	}
	for _, id := range []uint{draft.ID, active.ID} {
		var p models.Promotion
		db.First(&p, id)
		if p.Status != constants.PromotionStatusExpired {
			t.Fatalf("promotion %d expected expired, got %s", id, p.Status)
		}
	}
}

func TestPromotionAdminUpdateAndDelete(t *testing.T) {
	_, admin, _, _ := setupPromotionServiceTest(t)
	created, err := admin.Create(activePromotionInput("original"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	input := activePromotionInput("renamed")
	input.TargetType = constants.PromotionTargetCategories
	input.TargetCategoryIDs = []uint{3}
	updated, err := admin.Update(created.ID, input)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "renamed" || len(updated.TargetCategories) != 1 {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if err := admin.Delete(created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	deleted, err := admin.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if deleted.Status != constants.PromotionStatusExpired {
		t.Fatalf("expected expired after delete, got %s", deleted.Status)
	}
	if _, err := admin.Update(created.ID, input); !errors.Is(err, ErrPromotionExpired) {
		t.Fatalf("expected expired promotion to be immutable, got %v", err)
	}
	if err := admin.Delete(404); !errors.Is(err, ErrPromotionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	list, total, err := admin.List(repository.PromotionListFilter{Status: constants.PromotionStatusExpired})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("expected one expired promotion, got %d", total)
	}
}
