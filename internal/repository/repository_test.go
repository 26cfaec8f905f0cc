package repository

import (
	"testing"
)

// TestPostgresListingRepo_ImplementsInterface はPostgresListingRepoがListingRepositoryを実装することを検証する。
func TestPostgresListingRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresListingRepoがListingRepositoryを満たすことを検証
	var _ ListingRepository = (*PostgresListingRepo)(nil)
}

// TestPostgresRatingRepo_ImplementsInterface はPostgresRatingRepoがRatingRepositoryを実装することを検証する。
func TestPostgresRatingRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresRatingRepoがRatingRepositoryを満たすことを検証
	var _ RatingRepository = (*PostgresRatingRepo)(nil)
}

// TestBuildListingFilter_Empty はフィルタ未指定時にWHERE句が生成されないことを検証する。
func TestBuildListingFilter_Empty(t *testing.T) {
	where, args := buildListingFilter(ListingFilter{})
	if where != "" {
		t.Errorf("where = %q, want empty", where)
	}
	if len(args) != 0 {
		t.Errorf("args length = %d, want 0", len(args))
	}
}

// TestBuildListingFilter_KeywordAndCategory は両フィルタ指定時の引数構成を検証する。
func TestBuildListingFilter_KeywordAndCategory(t *testing.T) {
	where, args := buildListingFilter(ListingFilter{Keyword: "sedan", Category: "hybrid"})
	if where == "" {
		t.Fatal("expected WHERE clause, got empty")
	}
	if len(args) != 2 {
		t.Fatalf("args length = %d, want 2", len(args))
	}
	if args[0] != "sedan" {
		t.Errorf("args[0] = %v, want %q", args[0], "sedan")
	}
	if args[1] != "hybrid" {
		t.Errorf("args[1] = %v, want %q", args[1], "hybrid")
	}
}

// TestOrderableColumns_RejectsUnknownKey はホワイトリスト外のキーが無視されることを検証する。
func TestOrderableColumns_RejectsUnknownKey(t *testing.T) {
	if _, ok := orderableColumns["rating"]; ok {
		t.Error("rating is a derived field and must not be a repository order key")
	}
	if _, ok := orderableColumns["comments"]; ok {
		t.Error("display name comments must be translated to comment_count by the query builder")
	}
	if _, ok := orderableColumns["comment_count"]; !ok {
		t.Error("comment_count should be a native order key")
	}
}

// TestSlugify はカテゴリ名からスラッグへの変換を検証する。
func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Sedan", "sedan"},
		{"Pickup Trucks", "pickup-trucks"},
		{"  SUV  ", "suv"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.name); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
