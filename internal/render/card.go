package render

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/cratestack/cratestack-server/internal/domain"
	"github.com/cratestack/cratestack-server/internal/errors"
)

// cardTemplate produces the markup fragment for one result card. The
// output is deterministic for identical inputs so snapshot fixtures
// stay stable.
const cardTemplate = `{{- if .IsGroup -}}
<article class="release-card release-card--group" data-record-id="{{ .ID }}">
{{- else -}}
<article class="release-card" data-record-id="{{ .ID }}">
{{- end }}
  {{- with .ImageURL }}
  <img class="release-card__image" src="{{ . }}" alt="{{ $.ImageAlt }}">
  {{- end }}
  <h3 class="release-card__title">{{ .Title }}</h3>
  {{- with .Artist }}
  <p class="release-card__artist">{{ . }}</p>
  {{- end }}
  {{- with .Format }}
  <span class="release-card__format">{{ . }}</span>
  {{- end }}
  {{- if .IsGroup }}
  <span class="release-card__copies">{{ .CopyCount }} copies available</span>
  <span class="release-card__price">from {{ .Price }}</span>
  {{- else }}
  <span class="release-card__price">{{ .Price }}</span>
  {{- end }}
  {{- with .Condition }}
  <span class="release-card__condition">{{ . }}</span>
  {{- end }}
</article>`

// cardView is the flattened template input for one item.
type cardView struct {
	ID        string
	IsGroup   bool
	Title     string
	Artist    string
	Format    string
	CopyCount int
	Price     string
	Condition string
	ImageURL  string
	ImageAlt  string
}

// TemplateCardRenderer renders cards from a parsed HTML template.
type TemplateCardRenderer struct {
	tmpl *template.Template
}

// NewTemplateCardRenderer parses the built-in card template.
func NewTemplateCardRenderer() (*TemplateCardRenderer, error) {
	tmpl, err := template.New("card").Parse(cardTemplate)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "parse card template")
	}
	return &TemplateCardRenderer{tmpl: tmpl}, nil
}

// RenderCard implements CardRenderer.
func (t *TemplateCardRenderer) RenderCard(_ context.Context, item *domain.RenderItem) (*Card, error) {
	view, err := viewFor(item)
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	if err := t.tmpl.Execute(&buf, view); err != nil {
		return nil, errors.Wrapf(err, errors.CodeRenderItem, "render card %s", item.ID())
	}

	return &Card{ItemID: item.ID(), Kind: item.Kind, HTML: buf.String()}, nil
}

func viewFor(item *domain.RenderItem) (*cardView, error) {
	switch item.Kind {
	case domain.KindSingle:
		if item.Record == nil {
			return nil, errors.RenderItem("single item has no record")
		}
		rec := item.Record
		return &cardView{
			ID:        rec.ID,
			Title:     rec.Title,
			Artist:    rec.Artist,
			Format:    string(domain.DeriveFormat(rec.ProductType)),
			CopyCount: 1,
			Price:     formatPrice(rec.PriceRange.MinAmount, rec.PriceRange.CurrencyCode),
			Condition: rec.MediaCondition,
			ImageURL:  imageURL(rec),
			ImageAlt:  imageAlt(rec),
		}, nil

	case domain.KindGroup:
		if item.Group == nil || item.Group.Main == nil {
			return nil, errors.RenderItem("group item has no main record")
		}
		g := item.Group
		return &cardView{
			ID:        g.Main.ID,
			IsGroup:   true,
			Title:     g.Main.AlbumTitle,
			Artist:    g.Main.Artist,
			Format:    string(g.Format),
			CopyCount: g.Size(),
			Price:     formatPrice(g.FromPrice(), g.Main.PriceRange.CurrencyCode),
			ImageURL:  imageURL(g.Main),
			ImageAlt:  imageAlt(g.Main),
		}, nil

	default:
		return nil, errors.RenderItemf("unknown item kind %q", item.Kind)
	}
}

func formatPrice(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

func imageURL(rec *domain.Record) string {
	if rec.FeaturedImage == nil {
		return ""
	}
	return rec.FeaturedImage.URL
}

func imageAlt(rec *domain.Record) string {
	if rec.FeaturedImage == nil {
		return ""
	}
	if rec.FeaturedImage.AltText != "" {
		return rec.FeaturedImage.AltText
	}
	return rec.Title
}
