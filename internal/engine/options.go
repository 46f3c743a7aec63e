package engine

import (
	"time"

	"wp-pump/internal/blob"
	"wp-pump/internal/store"
)

// Routes are the target-system URL patterns. {slug} is the entity slug,
// {path} the slash-joined ancestor slugs of a page.
type Routes struct {
	Post     string `mapstructure:"post"`
	Page     string `mapstructure:"page"`
	Category string `mapstructure:"category"`
	Tag      string `mapstructure:"tag"`
}

func DefaultRoutes() Routes {
	return Routes{
		Post:     "/articles/{slug}/",
		Page:     "/{slug}/",
		Category: "/categorie/{slug}/",
		Tag:      "/tag/{slug}/",
	}
}

// SEOKeys list postmeta keys in precedence order.
type SEOKeys struct {
	Title       []string `mapstructure:"title_keys"`
	Description []string `mapstructure:"description_keys"`
}

func DefaultSEOKeys() SEOKeys {
	return SEOKeys{
		Title:       []string{"_yoast_wpseo_title", "rank_math_title", "_aioseo_title", "_aioseop_title", "_seopress_titles_title"},
		Description: []string{"_yoast_wpseo_metadesc", "rank_math_description", "_aioseo_description", "_aioseop_description", "_seopress_titles_desc"},
	}
}

// Options configure a Run.
type Options struct {
	DryRun              bool
	SkipPluginTables    bool
	MediaDir            string     // legacy uploads directory; empty means metadata-only media
	MediaDest           string     // where media files are copied to
	MediaURL            string     // public prefix of copied media
	Blobs               blob.Store // overrides the store built from MediaDir
	SiteURL             string     // legacy base URL; defaults to the siteurl option
	Prefix              string
	MinCoreTables       int
	ContinueOnMalformed bool
	Workers             int
	StoreTimeout        time.Duration
	Routes              Routes
	SEO                 SEOKeys
	Unique              map[store.Kind][]string

	// OnStage is called when a stage starts a batch of total rows;
	// OnProgress after every row of it.
	OnStage    func(stage string, total int)
	OnProgress func(stage string)
	// OnLoad is called once the dump is parsed, before the first stage.
	OnLoad func(ds *Dataset)
}

func (o *Options) withDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 30 * time.Second
	}
	if o.MinCoreTables <= 0 {
		o.MinCoreTables = 1
	}
	if o.MediaURL == "" {
		o.MediaURL = "/media/"
	}
	def := DefaultRoutes()
	if o.Routes.Post == "" {
		o.Routes.Post = def.Post
	}
	if o.Routes.Page == "" {
		o.Routes.Page = def.Page
	}
	if o.Routes.Category == "" {
		o.Routes.Category = def.Category
	}
	if o.Routes.Tag == "" {
		o.Routes.Tag = def.Tag
	}
	seo := DefaultSEOKeys()
	if len(o.SEO.Title) == 0 {
		o.SEO.Title = seo.Title
	}
	if len(o.SEO.Description) == 0 {
		o.SEO.Description = seo.Description
	}
	if o.Unique == nil {
		o.Unique = store.DefaultUnique
	}
}
