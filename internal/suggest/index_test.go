package suggest

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"github.com/hitoshi/carsearch/internal/model"
	"github.com/hitoshi/carsearch/internal/repository"
)

func TestRebuildAndSuggest(t *testing.T) {
	idx := NewIndex(nil)
	idx.Rebuild([]string{
		"2018 Toyota Corolla Hybrid",
		"2020 Toyota Camry SE",
		"Honda Civic Type R (2021)",
		"The Ford Focus",
	})

	got := idx.Suggest("to")
	want := []string{"toyota"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest(to) = %v, want %v", got, want)
	}

	// 前方一致のみ（"civic"は"iv"に一致しない）
	if got := idx.Suggest("iv"); got != nil {
		t.Errorf("Suggest(iv) = %v, want nil", got)
	}
}

func TestSuggestMinQueryLength(t *testing.T) {
	idx := NewIndex(nil)
	idx.Rebuild([]string{"Toyota Corolla"})

	if got := idx.Suggest("t"); got != nil {
		t.Errorf("Suggest(t) = %v, want nil for 1-char query", got)
	}
	if got := idx.Suggest(" "); got != nil {
		t.Errorf("Suggest(space) = %v, want nil", got)
	}
	if got := idx.Suggest("to"); len(got) != 1 {
		t.Errorf("Suggest(to) = %v, want 1 result for 2-char query", got)
	}
}

func TestSuggestMinQueryLengthCountsRunes(t *testing.T) {
	idx := NewIndex(nil)
	idx.Rebuild([]string{"トヨタ プリウス Hybrid"})

	// 1文字のマルチバイトクエリはバイト数ではなく文字数で弾く
	if got := idx.Suggest("プ"); got != nil {
		t.Errorf("Suggest(プ) = %v, want nil for 1-char query", got)
	}
	if got := idx.Suggest("プリ"); !reflect.DeepEqual(got, []string{"プリウス"}) {
		t.Errorf("Suggest(プリ) = %v, want [プリウス]", got)
	}
}

func TestRebuildFiltersShortWordsAndStopwords(t *testing.T) {
	idx := NewIndex(nil)
	idx.Rebuild([]string{"The car of an era", "V8 GT for sale"})

	// "the"/"of"/"an"/"for"はストップワード、"car"/"era"は3文字で登録、
	// "v8"/"gt"は2文字で除外
	if got := idx.Suggest("th"); got != nil {
		t.Errorf("Suggest(th) = %v, stopword should be excluded", got)
	}
	if got := idx.Suggest("v8"); got != nil {
		t.Errorf("Suggest(v8) = %v, short word should be excluded", got)
	}
	if got := idx.Suggest("ca"); !reflect.DeepEqual(got, []string{"car"}) {
		t.Errorf("Suggest(ca) = %v, want [car]", got)
	}
	if got := idx.Suggest("sa"); !reflect.DeepEqual(got, []string{"sale"}) {
		t.Errorf("Suggest(sa) = %v, want [sale]", got)
	}
}

func TestSuggestLimitAndOrder(t *testing.T) {
	titles := []string{
		"sedan sedona sedate seduce seabird season seatbelt seawall seaweed seasonal seating",
	}
	idx := NewIndex(nil)
	idx.Rebuild(titles)

	got := idx.Suggest("se")
	if len(got) != MaxSuggestions {
		t.Fatalf("Suggest(se) returned %d results, want %d", len(got), MaxSuggestions)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Errorf("results not in ascending order: %v", got)
			break
		}
	}
}

func TestRebuildReplacesSnapshot(t *testing.T) {
	idx := NewIndex(nil)
	idx.Rebuild([]string{"Toyota Corolla"})
	if idx.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", idx.Size())
	}

	idx.Rebuild([]string{"Honda Civic"})
	if got := idx.Suggest("to"); got != nil {
		t.Errorf("Suggest(to) = %v after rebuild, want nil", got)
	}
	if got := idx.Suggest("ho"); !reflect.DeepEqual(got, []string{"honda"}) {
		t.Errorf("Suggest(ho) = %v, want [honda]", got)
	}
}

// refresherListingRepo はListTitlesのみ差し替え可能なモック。
type refresherListingRepo struct {
	listTitlesFunc func(ctx context.Context, limit int) ([]string, error)
}

func (m *refresherListingRepo) FindByID(ctx context.Context, id int64) (*model.Listing, error) {
	return nil, nil
}

func (m *refresherListingRepo) FindByIDs(ctx context.Context, ids []int64) ([]*model.Listing, error) {
	return nil, nil
}

func (m *refresherListingRepo) Search(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
	return nil, nil
}

func (m *refresherListingRepo) Count(ctx context.Context, filter repository.ListingFilter) (int, error) {
	return 0, nil
}

func (m *refresherListingRepo) ListTitles(ctx context.Context, limit int) ([]string, error) {
	return m.listTitlesFunc(ctx, limit)
}

func (m *refresherListingRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	return nil, nil
}

func TestRefresherRunOnce(t *testing.T) {
	repo := &refresherListingRepo{
		listTitlesFunc: func(ctx context.Context, limit int) ([]string, error) {
			if limit != 500 {
				t.Errorf("ListTitles limit = %d, want 500", limit)
			}
			return []string{"Toyota Corolla", "Honda Civic"}, nil
		},
	}
	idx := NewIndex(nil)
	r := NewRefresher(repo, idx, slog.Default(), nil, RefresherConfig{ScanLimit: 500})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if idx.Size() != 4 {
		t.Errorf("Size() = %d, want 4", idx.Size())
	}
}

func TestRefresherRunOncePropagatesError(t *testing.T) {
	wantErr := errors.New("db down")
	repo := &refresherListingRepo{
		listTitlesFunc: func(ctx context.Context, limit int) ([]string, error) {
			return nil, wantErr
		},
	}
	r := NewRefresher(repo, NewIndex(nil), slog.Default(), nil, RefresherConfig{ScanLimit: 100})

	if err := r.RunOnce(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("RunOnce() error = %v, want wrapped %v", err, wantErr)
	}
}
