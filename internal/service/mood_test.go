package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/model"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestMoodService(store *fakeStore) *MoodService {
	svc := NewMoodService(store, discardLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func addUser(t *testing.T, store *fakeStore, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com"}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}

// =========================================================================
// SUBMIT
// =========================================================================

func TestSubmit(t *testing.T) {
	store := newFakeStore()
	svc := newTestMoodService(store)
	user := addUser(t, store, "anu")

	sub, err := svc.Submit(context.Background(), user.ID, "Ernakulam", "happy")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.District != "Ernakulam" || sub.Mood != model.MoodHappy {
		t.Errorf("Submit() = %+v", sub)
	}
	if !sub.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want the service clock %v", sub.CreatedAt, testNow)
	}

	stored, _ := store.GetUserByID(context.Background(), user.ID)
	if !stored.HasMoodSubmitted {
		t.Error("HasMoodSubmitted = false after Submit")
	}
}

func TestSubmit_Validation(t *testing.T) {
	cases := []struct {
		name, district, mood string
		wantMsg              string
	}{
		{"missing district", "", "happy", MsgMoodFieldsRequired},
		{"missing mood", "Kollam", "", MsgMoodFieldsRequired},
		{"unknown district", "Chennai", "happy", MsgInvalidDistrict},
		{"wrong case district", "kollam", "happy", MsgInvalidDistrict},
		{"unknown mood", "Kollam", "bored", MsgInvalidMood},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc := newTestMoodService(store)
			user := addUser(t, store, "anu")

			_, err := svc.Submit(context.Background(), user.ID, tc.district, tc.mood)
			wantAppError(t, err, apperror.ErrValidation, tc.wantMsg)

			if len(store.moods) != 0 {
				t.Error("an invalid submission was persisted")
			}
			stored, _ := store.GetUserByID(context.Background(), user.ID)
			if stored.HasMoodSubmitted {
				t.Error("an invalid submission set the flag")
			}
		})
	}
}

func TestSubmit_OnlyOnce(t *testing.T) {
	store := newFakeStore()
	svc := newTestMoodService(store)
	user := addUser(t, store, "anu")
	ctx := context.Background()

	if _, err := svc.Submit(ctx, user.ID, "Ernakulam", "happy"); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	_, err := svc.Submit(ctx, user.ID, "Kollam", "sad")
	wantAppError(t, err, apperror.ErrForbidden, MsgAlreadySubmitted)

	if len(store.moods) != 1 {
		t.Errorf("moods = %d, want 1", len(store.moods))
	}
}

func TestSubmit_Concurrent(t *testing.T) {
	store := newFakeStore()
	svc := newTestMoodService(store)
	user := addUser(t, store, "racer")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		errs []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), user.ID, "Wayanad", "neutral")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				oks++
			} else {
				errs = append(errs, err)
			}
		}()
	}
	wg.Wait()

	if oks != 1 {
		t.Fatalf("successful submissions = %d, want 1", oks)
	}
	for _, err := range errs {
		if !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	}
}

func TestSubmit_UnknownUser(t *testing.T) {
	svc := newTestMoodService(newFakeStore())

	_, err := svc.Submit(context.Background(), "deleted-user", "Kollam", "sad")
	wantAppError(t, err, apperror.ErrUnauthorized, MsgUserNotFound)
}

// =========================================================================
// DISTRICT MOODS
// =========================================================================

func TestDistrictMoods_MajorityWins(t *testing.T) {
	store := newFakeStore()
	svc := newTestMoodService(store)

	for i := 0; i < 3; i++ {
		store.addMood("Ernakulam", model.MoodHappy, testNow.Add(-time.Duration(i+1)*time.Hour))
	}
	store.addMood("Ernakulam", model.MoodSad, testNow.Add(-5*time.Hour))

	got, err := svc.DistrictMoods(context.Background())
	if err != nil {
		t.Fatalf("DistrictMoods() error = %v", err)
	}

	want := []model.DistrictMood{{District: "Ernakulam", Mood: model.MoodHappy, Count: 3}}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("DistrictMoods() = %+v, want %+v", got, want)
	}
}

func TestDistrictMoods_Window(t *testing.T) {
	store := newFakeStore()
	svc := newTestMoodService(store)

	store.addMood("Kollam", model.MoodAngry, testNow.Add(-25*time.Hour))
	store.addMood("Kannur", model.MoodSad, testNow.Add(-24*time.Hour)) // boundary is inclusive
	store.addMood("Idukki", model.MoodExcited, testNow.Add(-time.Minute))

	got, err := svc.DistrictMoods(context.Background())
	if err != nil {
		t.Fatalf("DistrictMoods() error = %v", err)
	}

	want := []model.DistrictMood{
		{District: "Idukki", Mood: model.MoodExcited, Count: 1},
		{District: "Kannur", Mood: model.MoodSad, Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("DistrictMoods() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DistrictMoods()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDistrictMoods_TieBreaks(t *testing.T) {
	store := newFakeStore()
	svc := newTestMoodService(store)

	// Equal counts: the mood first seen in the window wins.
	store.addMood("Thrissur", model.MoodSad, testNow.Add(-2*time.Hour))
	store.addMood("Thrissur", model.MoodHappy, testNow.Add(-time.Hour))

	// Equal counts and equal first time: the earlier mood in Moods wins.
	at := testNow.Add(-3 * time.Hour)
	store.addMood("Palakkad", model.MoodNeutral, at)
	store.addMood("Palakkad", model.MoodAngry, at)

	got, err := svc.DistrictMoods(context.Background())
	if err != nil {
		t.Fatalf("DistrictMoods() error = %v", err)
	}

	want := []model.DistrictMood{
		{District: "Thrissur", Mood: model.MoodSad, Count: 1},
		{District: "Palakkad", Mood: model.MoodAngry, Count: 1},
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("DistrictMoods() = %+v, want %+v", got, want)
	}
}

func TestDistrictMoods_OrderedByDistrict(t *testing.T) {
	store := newFakeStore()
	svc := newTestMoodService(store)

	// Insert in reverse display order.
	for i := len(model.Districts) - 1; i >= 0; i-- {
		store.addMood(model.Districts[i], model.MoodHappy, testNow.Add(-time.Hour))
	}

	got, err := svc.DistrictMoods(context.Background())
	if err != nil {
		t.Fatalf("DistrictMoods() error = %v", err)
	}
	if len(got) != len(model.Districts) {
		t.Fatalf("len = %d, want %d", len(got), len(model.Districts))
	}
	for i, d := range model.Districts {
		if got[i].District != d {
			t.Errorf("got[%d].District = %q, want %q", i, got[i].District, d)
		}
	}
}

func TestDistrictMoods_Empty(t *testing.T) {
	got, err := newTestMoodService(newFakeStore()).DistrictMoods(context.Background())
	if err != nil {
		t.Fatalf("DistrictMoods() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("DistrictMoods() = %#v, want an empty non-nil slice", got)
	}
}

func TestDistrictMoods_StoreError(t *testing.T) {
	store := newFakeStore()
	store.countErr = errors.New("disk on fire")

	_, err := newTestMoodService(store).DistrictMoods(context.Background())
	if err == nil {
		t.Fatal("DistrictMoods() should surface store errors")
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		t.Errorf("store failure leaked as an AppError: %v", appErr)
	}
}
