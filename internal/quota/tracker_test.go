package quota

import (
	"casestudy/internal/entity"
	"context"
	"errors"
	"testing"
)

type fakeCountRepo struct {
	userCounts  map[uint]int64
	emailCounts map[string]int64
	ipCounts    map[string]int64
	countErr    error
}

func (f *fakeCountRepo) CreateUser(ctx context.Context, user *entity.DbUser) error { return nil }
func (f *fakeCountRepo) GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeCountRepo) GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeCountRepo) CountUsers(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeCountRepo) CreateCaseStudy(ctx context.Context, record *entity.DbCaseStudy) error {
	return nil
}
func (f *fakeCountRepo) ListCaseStudies(ctx context.Context, params *entity.CaseStudyQuery) ([]entity.DbCaseStudy, error) {
	return nil, nil
}
func (f *fakeCountRepo) CreateUsageEvent(ctx context.Context, event *entity.DbUsageEvent) error {
	return nil
}
func (f *fakeCountRepo) CountUsageEventsByUser(ctx context.Context, userID uint) (int64, error) {
	return f.userCounts[userID], f.countErr
}
func (f *fakeCountRepo) CountUsageEventsByEmail(ctx context.Context, email string) (int64, error) {
	return f.emailCounts[email], f.countErr
}
func (f *fakeCountRepo) CountUsageEventsByIP(ctx context.Context, ip string) (int64, error) {
	return f.ipCounts[ip], f.countErr
}

func TestCheckAllowsUnderLimit(t *testing.T) {
	repo := &fakeCountRepo{
		userCounts:  map[uint]int64{1: 9},
		emailCounts: map[string]int64{"a@b.c": 3},
		ipCounts:    map[string]int64{"10.0.0.1": 0},
	}
	tracker := NewTracker(repo, 10)

	err := tracker.Check(context.Background(), Identity{UserID: 1, Email: "a@b.c", IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("expected check to pass, got %v", err)
	}
}

func TestCheckTripsOnFirstDimensionInOrder(t *testing.T) {
	tests := []struct {
		name     string
		repo     *fakeCountRepo
		identity Identity
		wantDim  string
		wantCur  int64
	}{
		{
			name: "user dimension first",
			repo: &fakeCountRepo{
				userCounts:  map[uint]int64{1: 10},
				emailCounts: map[string]int64{"a@b.c": 10},
				ipCounts:    map[string]int64{"10.0.0.1": 10},
			},
			identity: Identity{UserID: 1, Email: "a@b.c", IPAddress: "10.0.0.1"},
			wantDim:  DimensionUser,
			wantCur:  10,
		},
		{
			name: "email before ip",
			repo: &fakeCountRepo{
				userCounts:  map[uint]int64{1: 2},
				emailCounts: map[string]int64{"a@b.c": 12},
				ipCounts:    map[string]int64{"10.0.0.1": 12},
			},
			identity: Identity{UserID: 1, Email: "a@b.c", IPAddress: "10.0.0.1"},
			wantDim:  DimensionEmail,
			wantCur:  12,
		},
		{
			name: "ip only for anonymous identity",
			repo: &fakeCountRepo{
				ipCounts: map[string]int64{"10.0.0.1": 10},
			},
			identity: Identity{IPAddress: "10.0.0.1"},
			wantDim:  DimensionIP,
			wantCur:  10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTracker(tt.repo, 10).Check(context.Background(), tt.identity)
			var exceeded *ExceededError
			if !errors.As(err, &exceeded) {
				t.Fatalf("expected ExceededError, got %v", err)
			}
			if exceeded.Dimension != tt.wantDim {
				t.Fatalf("expected dimension %s, got %s", tt.wantDim, exceeded.Dimension)
			}
			if exceeded.Current != tt.wantCur {
				t.Fatalf("expected current %d, got %d", tt.wantCur, exceeded.Current)
			}
			if exceeded.Limit != 10 {
				t.Fatalf("expected limit 10, got %d", exceeded.Limit)
			}
		})
	}
}

func TestCheckSkipsEmptyDimensions(t *testing.T) {
	repo := &fakeCountRepo{
		emailCounts: map[string]int64{"a@b.c": 100},
	}
	tracker := NewTracker(repo, 10)

	// 没有携带 email 的请求不应被 email 维度拦截
	if err := tracker.Check(context.Background(), Identity{UserID: 1}); err != nil {
		t.Fatalf("expected check to pass, got %v", err)
	}
}

func TestCheckPropagatesStoreErrors(t *testing.T) {
	repo := &fakeCountRepo{countErr: errors.New("store down")}
	tracker := NewTracker(repo, 10)

	err := tracker.Check(context.Background(), Identity{UserID: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	var exceeded *ExceededError
	if errors.As(err, &exceeded) {
		t.Fatal("store error must not be reported as quota exceeded")
	}
}

func TestUsedPrefersUserDimension(t *testing.T) {
	repo := &fakeCountRepo{
		userCounts: map[uint]int64{1: 4},
		ipCounts:   map[string]int64{"10.0.0.1": 7},
	}
	tracker := NewTracker(repo, 10)

	used, err := tracker.Used(context.Background(), Identity{UserID: 1, IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != 4 {
		t.Fatalf("expected user count 4, got %d", used)
	}

	used, err = tracker.Used(context.Background(), Identity{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != 7 {
		t.Fatalf("expected ip count 7, got %d", used)
	}
}
