package services

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/openshelf/openshelf-backend/internal/cache"
	"github.com/openshelf/openshelf-backend/internal/logger"
)

func TestBlendRatings_WeightsByCount(t *testing.T) {
	cases := []struct {
		name          string
		upstreamAvg   *float64
		upstreamCount int
		localAvg      float64
		localCount    int
		wantAvg       *float64
		wantCount     int
	}{
		{
			name:          "both sides weighted by count",
			upstreamAvg:   floatPtr(4.0),
			upstreamCount: 10,
			localAvg:      2.0,
			localCount:    10,
			wantAvg:       floatPtr(3.0),
			wantCount:     20,
		},
		{
			name:          "upstream only",
			upstreamAvg:   floatPtr(4.5),
			upstreamCount: 7,
			wantAvg:       floatPtr(4.5),
			wantCount:     7,
		},
		{
			name:       "local only",
			localAvg:   5.0,
			localCount: 1,
			wantAvg:    floatPtr(5.0),
			wantCount:  1,
		},
		{
			name:      "neither side has data",
			wantAvg:   nil,
			wantCount: 0,
		},
		{
			name:        "upstream average without count is ignored",
			upstreamAvg: floatPtr(4.0),
			localAvg:    3.0,
			localCount:  3,
			wantAvg:     floatPtr(3.0),
			wantCount:   3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := blendRatings(tc.upstreamAvg, tc.upstreamCount, tc.localAvg, tc.localCount)
			if got.RatingCount != tc.wantCount {
				t.Fatalf("count = %d, want %d", got.RatingCount, tc.wantCount)
			}
			if tc.wantAvg == nil {
				if got.AverageRating != nil {
					t.Fatalf("average = %v, want nil", *got.AverageRating)
				}
				return
			}
			if got.AverageRating == nil {
				t.Fatalf("average = nil, want %v", *tc.wantAvg)
			}
			if math.Abs(*got.AverageRating-*tc.wantAvg) > 1e-9 {
				t.Fatalf("average = %v, want %v", *got.AverageRating, *tc.wantAvg)
			}
		})
	}
}

func TestCombineRatings_CachesBlend(t *testing.T) {
	store := newMemStore()
	reviewRepo := &fakeReviewRepo{aggAvg: 2.0, aggCount: 10}
	svc := NewRatingService(nil, logger.NewNop(), store, reviewRepo, 0)

	got := svc.CombineRatings(context.Background(), "OL1W", floatPtr(4.0), 10)
	if got.AverageRating == nil || *got.AverageRating != 3.0 || got.RatingCount != 20 {
		t.Fatalf("unexpected blend: %+v", got)
	}
	if !store.Exists(context.Background(), cache.CombinedRatingKey("OL1W")) {
		t.Fatalf("expected combined rating to be cached")
	}

	// A changed local aggregate must not show until the cache entry expires.
	reviewRepo.aggAvg = 5.0
	again := svc.CombineRatings(context.Background(), "OL1W", floatPtr(4.0), 10)
	if again.AverageRating == nil || *again.AverageRating != 3.0 {
		t.Fatalf("expected cached blend, got %+v", again)
	}
}

func TestCombineRatings_LocalFailureFallsBackToUpstream(t *testing.T) {
	store := newMemStore()
	reviewRepo := &fakeReviewRepo{aggErr: fmt.Errorf("db down")}
	svc := NewRatingService(nil, logger.NewNop(), store, reviewRepo, 0)

	got := svc.CombineRatings(context.Background(), "OL2W", floatPtr(4.2), 5)
	if got.AverageRating == nil || *got.AverageRating != 4.2 || got.RatingCount != 5 {
		t.Fatalf("expected upstream-only rating, got %+v", got)
	}
}
