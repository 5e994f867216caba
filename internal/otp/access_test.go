package otp

import (
	"context"
	"testing"
	"time"

	"quizgate/internal/models"
)

func TestAccessLog(t *testing.T) {
	store := newMemStore()
	log := NewAccessLog(store)
	now := baseTime
	log.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, err := log.HasAccessed(ctx, 1, 101); ok || err != nil {
		t.Fatalf("HasAccessed before any access = %v, %v", ok, err)
	}
	if latest, err := log.LatestAccess(ctx, 1, 101); latest != nil || err != nil {
		t.Fatalf("LatestAccess before any access = %+v, %v", latest, err)
	}

	log.LogAccess(ctx, 1, 101)
	now = baseTime.Add(time.Minute)
	log.LogAccess(ctx, 1, 101)
	log.LogAccess(ctx, 1, 102)
	log.LogAccess(ctx, 2, 101)

	if ok, _ := log.HasAccessed(ctx, 1, 101); !ok {
		t.Fatalf("HasAccessed should be true")
	}
	latest, err := log.LatestAccess(ctx, 1, 101)
	if err != nil || latest == nil || !latest.AccessedAt.Equal(baseTime.Add(time.Minute)) {
		t.Fatalf("LatestAccess = %+v, %v", latest, err)
	}
	if n, _ := log.CountForOtp(ctx, 1); n != 3 {
		t.Fatalf("CountForOtp = %d, want 3", n)
	}
}

func TestServiceStatus(t *testing.T) {
	f := newFixture(t)
	otp := f.generate(t, 10, nil)

	if got := f.svc.Status(*otp); got != models.OTPStatusActive {
		t.Fatalf("Status = %q", got)
	}
	*f.now = baseTime.Add(11 * time.Minute)
	if got := f.svc.Status(*otp); got != models.OTPStatusExpired {
		t.Fatalf("Status = %q", got)
	}
}
