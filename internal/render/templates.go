package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/hitoshi/carsearch/internal/model"
)

const noResultsHTML = `<p class="no-results">No results found.</p>` + "\n"

var tableTmpl = template.Must(template.New("table").Parse(`<table class="listing-table">
<thead>
<tr>
{{- range .Headers}}
<th data-orderby="{{.OrderBy}}"><span class="col-label">{{.Label}}</span> <span class="sort-indicator">{{.Indicator}}</span></th>
{{- end}}
<th class="col-compare"></th>
</tr>
</thead>
<tbody>
{{- range .Items}}
<tr data-listing-id="{{.ID}}">
<td class="col-title"><a href="{{.Permalink}}">{{.Title}}</a></td>
{{- if $.Show.Category}}
<td class="col-category">{{range .Categories}}<span class="category-tag" data-category="{{.}}">{{.}}</span> {{end}}</td>
{{- end}}
{{- if $.Show.Date}}
<td class="col-date">{{.Date}}</td>
{{- end}}
{{- if $.Show.Rating}}
<td class="col-rating">{{if .HasRatings}}<span class="stars">{{.Stars}}</span> {{.RatingLabel}}{{else}}<span class="no-ratings">No ratings yet</span>{{end}}</td>
{{- end}}
{{- if $.Show.Comments}}
<td class="col-comments">{{.Comments}}</td>
{{- end}}
<td class="col-compare"><button type="button" class="compare-toggle" data-listing-id="{{.ID}}">Compare</button></td>
</tr>
{{- end}}
</tbody>
</table>
`))

var cardsTmpl = template.Must(template.New("cards").Parse(`<div class="{{.WrapperClass}}">
{{- range .Items}}
<article class="listing-card" data-listing-id="{{.ID}}">
<h3 class="card-title"><a href="{{.Permalink}}">{{.Title}}</a></h3>
{{- if $.Show.Category}}
<div class="card-categories">{{range .Categories}}<span class="category-tag" data-category="{{.}}">{{.}}</span> {{end}}</div>
{{- end}}
{{- if $.Show.Date}}
<div class="card-date">{{.Date}}</div>
{{- end}}
{{- if $.Show.Rating}}
<div class="card-rating">{{if .HasRatings}}<span class="stars">{{.Stars}}</span> {{.RatingLabel}}{{else}}<span class="no-ratings">No ratings yet</span>{{end}}</div>
{{- end}}
{{- if $.Show.Comments}}
<div class="card-comments">{{.Comments}} comments</div>
{{- end}}
<button type="button" class="compare-toggle" data-listing-id="{{.ID}}">Compare</button>
</article>
{{- end}}
</div>
`))

// headerView はテーブル見出し1カラム分の表示データ。
type headerView struct {
	Label     string
	OrderBy   model.SortField
	Indicator string
}

// showFlags はテンプレート側のカラム表示判定。
type showFlags struct {
	Category bool
	Date     bool
	Rating   bool
	Comments bool
}

func (c ColumnConfig) show() showFlags {
	var s showFlags
	for _, f := range c.Fields {
		switch f {
		case FieldCategory:
			s.Category = true
		case FieldDate:
			s.Date = true
		case FieldRating:
			s.Rating = true
		case FieldComments:
			s.Comments = true
		}
	}
	return s
}

func renderNoResults() (string, error) {
	return noResultsHTML, nil
}

func (r *Renderer) renderTable(items []itemView, sort SortState) (string, error) {
	headers := []headerView{
		{Label: "Title", OrderBy: model.SortFieldTitle, Indicator: sortIndicator(model.SortFieldTitle, sort)},
	}
	for _, f := range r.cols.Fields {
		meta := fieldLabels[f]
		headers = append(headers, headerView{
			Label:     meta.label,
			OrderBy:   meta.orderBy,
			Indicator: sortIndicator(meta.orderBy, sort),
		})
	}

	var buf strings.Builder
	err := tableTmpl.Execute(&buf, struct {
		Headers []headerView
		Items   []itemView
		Show    showFlags
	}{headers, items, r.cols.show()})
	if err != nil {
		return "", fmt.Errorf("テーブルの描画に失敗しました: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) renderCards(items []itemView, wrapperClass string) (string, error) {
	var buf strings.Builder
	err := cardsTmpl.Execute(&buf, struct {
		WrapperClass string
		Items        []itemView
		Show         showFlags
	}{wrapperClass, items, r.cols.show()})
	if err != nil {
		return "", fmt.Errorf("カードの描画に失敗しました: %w", err)
	}
	return buf.String(), nil
}
