package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hitoshi/carsearch/internal/model"
	"github.com/hitoshi/carsearch/internal/repository"
)

// --- モック定義 ---

// mockListingRepo はListingRepositoryのモック実装。
type mockListingRepo struct {
	findByIDFn       func(ctx context.Context, id int64) (*model.Listing, error)
	findByIDsFn      func(ctx context.Context, ids []int64) ([]*model.Listing, error)
	searchFn         func(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error)
	countFn          func(ctx context.Context, filter repository.ListingFilter) (int, error)
	listTitlesFn     func(ctx context.Context, limit int) ([]string, error)
	listCategoriesFn func(ctx context.Context) ([]model.Category, error)
}

func (m *mockListingRepo) FindByID(ctx context.Context, id int64) (*model.Listing, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockListingRepo) FindByIDs(ctx context.Context, ids []int64) ([]*model.Listing, error) {
	if m.findByIDsFn != nil {
		return m.findByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockListingRepo) Search(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, filter, orderKey, order, limit, offset)
	}
	return nil, nil
}

func (m *mockListingRepo) Count(ctx context.Context, filter repository.ListingFilter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, filter)
	}
	return 0, nil
}

func (m *mockListingRepo) ListTitles(ctx context.Context, limit int) ([]string, error) {
	if m.listTitlesFn != nil {
		return m.listTitlesFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockListingRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, nil
}

// mockRatingRepo はRatingRepositoryのモック実装。
type mockRatingRepo struct {
	insertFn               func(ctx context.Context, rating *model.Rating) error
	aggregateFn            func(ctx context.Context, listingID int64) (model.RatingAggregate, error)
	aggregateForListingsFn func(ctx context.Context, listingIDs []int64) (map[int64]model.RatingAggregate, error)
}

func (m *mockRatingRepo) Insert(ctx context.Context, rating *model.Rating) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, rating)
	}
	return nil
}

func (m *mockRatingRepo) Aggregate(ctx context.Context, listingID int64) (model.RatingAggregate, error) {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, listingID)
	}
	return model.RatingAggregate{}, nil
}

func (m *mockRatingRepo) AggregateForListings(ctx context.Context, listingIDs []int64) (map[int64]model.RatingAggregate, error) {
	if m.aggregateForListingsFn != nil {
		return m.aggregateForListingsFn(ctx, listingIDs)
	}
	return map[int64]model.RatingAggregate{}, nil
}

// makeListings はテスト用のリスティングをcount件、新着順に生成する。
func makeListings(count int) []*model.Listing {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	listings := make([]*model.Listing, count)
	for i := 0; i < count; i++ {
		listings[i] = &model.Listing{
			ID:          int64(count - i),
			Title:       fmt.Sprintf("Listing %d", count-i),
			PublishedAt: base.Add(-time.Duration(i) * 24 * time.Hour),
		}
	}
	return listings
}

func dateQuery(page, pageSize int) model.SearchQuery {
	return model.SearchQuery{
		Page:      page,
		PageSize:  pageSize,
		SortField: model.SortFieldDate,
		SortOrder: model.SortOrderDesc,
		OrderKey:  "published_at",
	}
}

// --- テスト ---

// TestSearch_PaginationScenario は25件のデータセットをper_page=12で検索したとき、
// 3ページ構成・1ページ目12件・新着順となることを検証する。
func TestSearch_PaginationScenario(t *testing.T) {
	all := makeListings(25)

	listingRepo := &mockListingRepo{
		countFn: func(ctx context.Context, filter repository.ListingFilter) (int, error) {
			return 25, nil
		},
		searchFn: func(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
			if orderKey != "published_at" {
				t.Errorf("orderKey = %q, want %q", orderKey, "published_at")
			}
			if order != model.SortOrderDesc {
				t.Errorf("order = %q, want desc", order)
			}
			end := offset + limit
			if end > len(all) {
				end = len(all)
			}
			return all[offset:end], nil
		},
	}

	svc := NewService(listingRepo, &mockRatingRepo{}, nil, 0)

	page, err := svc.Search(context.Background(), dateQuery(1, 12))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if page.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", page.TotalPages)
	}
	if page.TotalItems != 25 {
		t.Errorf("TotalItems = %d, want 25", page.TotalItems)
	}
	if len(page.Items) != 12 {
		t.Errorf("items length = %d, want 12", len(page.Items))
	}
	if page.CurrentPage != 1 {
		t.Errorf("CurrentPage = %d, want 1", page.CurrentPage)
	}

	// 新着順（IDが大きい=新しい）
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i].PublishedAt.After(page.Items[i-1].PublishedAt) {
			t.Errorf("items not in newest-first order at index %d", i)
		}
	}
}

// TestSearch_PageClampedToLastPage は最終ページを超えるページ指定が
// エラーにならず最後の有効なページを返すことを検証する。
func TestSearch_PageClampedToLastPage(t *testing.T) {
	all := makeListings(25)

	var gotOffset int
	listingRepo := &mockListingRepo{
		countFn: func(ctx context.Context, filter repository.ListingFilter) (int, error) {
			return 25, nil
		},
		searchFn: func(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
			gotOffset = offset
			end := offset + limit
			if end > len(all) {
				end = len(all)
			}
			if offset >= len(all) {
				return nil, nil
			}
			return all[offset:end], nil
		},
	}

	svc := NewService(listingRepo, &mockRatingRepo{}, nil, 0)

	page, err := svc.Search(context.Background(), dateQuery(99, 12))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if page.CurrentPage != 3 {
		t.Errorf("CurrentPage = %d, want 3", page.CurrentPage)
	}
	if gotOffset != 24 {
		t.Errorf("offset = %d, want 24 (clamped to page 3)", gotOffset)
	}
	if len(page.Items) != 1 {
		t.Errorf("items length = %d, want 1", len(page.Items))
	}
}

// TestSearch_ZeroMatches は0件一致がエラーではなく空の有効な結果と
// なることを検証する。
func TestSearch_ZeroMatches(t *testing.T) {
	listingRepo := &mockListingRepo{
		countFn: func(ctx context.Context, filter repository.ListingFilter) (int, error) {
			if filter.Category != "trucks" {
				t.Errorf("Category = %q, want %q", filter.Category, "trucks")
			}
			return 0, nil
		},
		searchFn: func(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
			t.Error("Search should not be called when total is 0")
			return nil, nil
		},
	}

	svc := NewService(listingRepo, &mockRatingRepo{}, nil, 0)

	q := dateQuery(1, 12)
	q.Category = "trucks"
	page, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if page.TotalItems != 0 {
		t.Errorf("TotalItems = %d, want 0", page.TotalItems)
	}
	if page.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1 even with zero items", page.TotalPages)
	}
	if len(page.Items) != 0 {
		t.Errorf("items length = %d, want 0", len(page.Items))
	}
	if page.CurrentPage != 1 {
		t.Errorf("CurrentPage = %d, want 1", page.CurrentPage)
	}
}

// TestSearch_BackendFailurePropagates はバックエンド障害が
// ErrSearchUnavailableとして伝播し、空結果と区別できることを検証する。
func TestSearch_BackendFailurePropagates(t *testing.T) {
	listingRepo := &mockListingRepo{
		countFn: func(ctx context.Context, filter repository.ListingFilter) (int, error) {
			return 0, errors.New("connection refused")
		},
	}

	svc := NewService(listingRepo, &mockRatingRepo{}, nil, 0)

	page, err := svc.Search(context.Background(), dateQuery(1, 12))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, model.ErrSearchUnavailable) {
		t.Errorf("error = %v, want ErrSearchUnavailable", err)
	}
	if page != nil {
		t.Error("page should be nil on backend failure, not a silent empty result")
	}
}

// TestSearch_RatingStoreFailurePropagates は評価ストア障害も
// ErrSearchUnavailableとして伝播することを検証する。
func TestSearch_RatingStoreFailurePropagates(t *testing.T) {
	listingRepo := &mockListingRepo{
		countFn: func(ctx context.Context, filter repository.ListingFilter) (int, error) {
			return 3, nil
		},
		searchFn: func(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
			return makeListings(3), nil
		},
	}
	ratingRepo := &mockRatingRepo{
		aggregateForListingsFn: func(ctx context.Context, listingIDs []int64) (map[int64]model.RatingAggregate, error) {
			return nil, errors.New("rating store down")
		},
	}

	svc := NewService(listingRepo, ratingRepo, nil, 0)

	_, err := svc.Search(context.Background(), dateQuery(1, 12))
	if !errors.Is(err, model.ErrSearchUnavailable) {
		t.Errorf("error = %v, want ErrSearchUnavailable", err)
	}
}

// TestSearch_NoRatingsYieldsZeroAggregate は評価のないリスティングが
// Average==0、Count==0となることを検証する。
func TestSearch_NoRatingsYieldsZeroAggregate(t *testing.T) {
	listingRepo := &mockListingRepo{
		countFn: func(ctx context.Context, filter repository.ListingFilter) (int, error) {
			return 2, nil
		},
		searchFn: func(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
			return makeListings(2), nil
		},
	}
	ratingRepo := &mockRatingRepo{
		aggregateForListingsFn: func(ctx context.Context, listingIDs []int64) (map[int64]model.RatingAggregate, error) {
			// ID=2のみ評価あり
			return map[int64]model.RatingAggregate{
				2: {Average: 4.5, Count: 2},
			}, nil
		},
	}

	svc := NewService(listingRepo, ratingRepo, nil, 0)

	page, err := svc.Search(context.Background(), dateQuery(1, 12))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, item := range page.Items {
		if item.Rating.Count == 0 && item.Rating.Average != 0 {
			t.Errorf("listing %d: Average = %v with Count == 0, want 0", item.ID, item.Rating.Average)
		}
	}
	if page.Items[0].Rating.Average != 4.5 {
		t.Errorf("listing 2: Average = %v, want 4.5", page.Items[0].Rating.Average)
	}
	if page.Items[1].Rating.Count != 0 {
		t.Errorf("listing 1: Count = %d, want 0", page.Items[1].Rating.Count)
	}
}

// TestSearch_RatingSortInMemory は派生フィールドratingによる並び替えが
// 集計付与後のメモリ上ソートで行われることを検証する。
func TestSearch_RatingSortInMemory(t *testing.T) {
	listings := makeListings(4)

	listingRepo := &mockListingRepo{
		countFn: func(ctx context.Context, filter repository.ListingFilter) (int, error) {
			return 4, nil
		},
		searchFn: func(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
			// 派生ソートでは自然順（orderKeyなし）で候補を取得する
			if orderKey != "" {
				t.Errorf("orderKey = %q, want empty (natural order)", orderKey)
			}
			if offset != 0 {
				t.Errorf("offset = %d, want 0 (candidates fetched from start)", offset)
			}
			return listings, nil
		},
	}
	ratingRepo := &mockRatingRepo{
		aggregateForListingsFn: func(ctx context.Context, listingIDs []int64) (map[int64]model.RatingAggregate, error) {
			return map[int64]model.RatingAggregate{
				4: {Average: 2.0, Count: 1},
				3: {Average: 5.0, Count: 3},
				2: {Average: 3.5, Count: 2},
				// ID=1 は評価なし
			}, nil
		},
	}

	svc := NewService(listingRepo, ratingRepo, nil, 0)

	q := model.SearchQuery{
		Page:      1,
		PageSize:  12,
		SortField: model.SortFieldRating,
		SortOrder: model.SortOrderDesc,
	}
	page, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	wantOrder := []int64{3, 2, 4, 1}
	if len(page.Items) != len(wantOrder) {
		t.Fatalf("items length = %d, want %d", len(page.Items), len(wantOrder))
	}
	for i, want := range wantOrder {
		if page.Items[i].ID != want {
			t.Errorf("items[%d].ID = %d, want %d", i, page.Items[i].ID, want)
		}
	}
}

// TestSearch_RatingSortStableOnTies は評価平均が等しいリスティング同士が
// 自然順を保つこと（安定ソート）を検証する。
func TestSearch_RatingSortStableOnTies(t *testing.T) {
	listings := makeListings(4)

	listingRepo := &mockListingRepo{
		countFn: func(ctx context.Context, filter repository.ListingFilter) (int, error) {
			return 4, nil
		},
		searchFn: func(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
			return listings, nil
		},
	}
	ratingRepo := &mockRatingRepo{
		aggregateForListingsFn: func(ctx context.Context, listingIDs []int64) (map[int64]model.RatingAggregate, error) {
			// 全件同一平均
			return map[int64]model.RatingAggregate{
				4: {Average: 3.0, Count: 1},
				3: {Average: 3.0, Count: 1},
				2: {Average: 3.0, Count: 1},
				1: {Average: 3.0, Count: 1},
			}, nil
		},
	}

	svc := NewService(listingRepo, ratingRepo, nil, 0)

	q := model.SearchQuery{
		Page:      1,
		PageSize:  12,
		SortField: model.SortFieldRating,
		SortOrder: model.SortOrderDesc,
	}

	// 同一クエリの再実行で順序が変わらないこと
	var prev []int64
	for run := 0; run < 2; run++ {
		page, err := svc.Search(context.Background(), q)
		if err != nil {
			t.Fatalf("run %d: expected no error, got %v", run, err)
		}
		ids := make([]int64, len(page.Items))
		for i, item := range page.Items {
			ids[i] = item.ID
		}
		// 自然順（新着順: 4,3,2,1）が保たれる
		want := []int64{4, 3, 2, 1}
		for i := range want {
			if ids[i] != want[i] {
				t.Errorf("run %d: ids[%d] = %d, want %d", run, i, ids[i], want[i])
			}
		}
		if prev != nil {
			for i := range prev {
				if ids[i] != prev[i] {
					t.Errorf("ordering changed between identical requests at index %d", i)
				}
			}
		}
		prev = ids
	}
}

// TestSearch_RatingSortPageWindow は評価ソート時のページ切り出しを検証する。
func TestSearch_RatingSortPageWindow(t *testing.T) {
	listings := makeListings(5)

	listingRepo := &mockListingRepo{
		countFn: func(ctx context.Context, filter repository.ListingFilter) (int, error) {
			return 5, nil
		},
		searchFn: func(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
			return listings, nil
		},
	}

	svc := NewService(listingRepo, &mockRatingRepo{}, nil, 0)

	q := model.SearchQuery{
		Page:      2,
		PageSize:  2,
		SortField: model.SortFieldRating,
		SortOrder: model.SortOrderDesc,
	}
	page, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if page.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", page.TotalPages)
	}
	if len(page.Items) != 2 {
		t.Errorf("items length = %d, want 2", len(page.Items))
	}
	if page.CurrentPage != 2 {
		t.Errorf("CurrentPage = %d, want 2", page.CurrentPage)
	}
}

// TestSearch_RatingSortBeyondCandidateWindow は一致件数が候補窓を超えるとき、
// 窓の外のページが空ではなく自然順の内容で返ることを検証する。
func TestSearch_RatingSortBeyondCandidateWindow(t *testing.T) {
	listings := makeListings(6)

	listingRepo := &mockListingRepo{
		countFn: func(ctx context.Context, filter repository.ListingFilter) (int, error) {
			return 6, nil
		},
		searchFn: func(ctx context.Context, filter repository.ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error) {
			if orderKey != "" {
				t.Errorf("orderKey = %q, want natural order", orderKey)
			}
			if offset >= len(listings) {
				return []*model.Listing{}, nil
			}
			end := offset + limit
			if end > len(listings) {
				end = len(listings)
			}
			return listings[offset:end], nil
		},
	}

	// 候補窓4件、総数6件、2件/ページ → 3ページ目(offset 4)は窓の外
	svc := NewService(listingRepo, &mockRatingRepo{}, nil, 4)

	q := model.SearchQuery{
		Page:      3,
		PageSize:  2,
		SortField: model.SortFieldRating,
		SortOrder: model.SortOrderDesc,
	}
	page, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if page.TotalPages != 3 || page.CurrentPage != 3 {
		t.Fatalf("TotalPages/CurrentPage = %d/%d, want 3/3", page.TotalPages, page.CurrentPage)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items length = %d, want 2 (window fallback page must not be empty)", len(page.Items))
	}
	// 窓の外のページは自然順（新着順）の該当オフセット: ID 2, 1
	if page.Items[0].ID != 2 || page.Items[1].ID != 1 {
		t.Errorf("items = [%d %d], want natural-order tail [2 1]", page.Items[0].ID, page.Items[1].ID)
	}
}
