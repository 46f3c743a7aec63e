package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"wp-pump/internal/blob"
	"wp-pump/internal/dump"
	"wp-pump/internal/engine"
	"wp-pump/internal/schema"
	"wp-pump/internal/store"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const siteDump = `-- MySQL dump 10.13
/*!40101 SET NAMES utf8mb4 */;
DROP TABLE IF EXISTS wp_users;
CREATE TABLE wp_users (
  ID bigint(20) unsigned NOT NULL AUTO_INCREMENT,
  user_login varchar(60) NOT NULL DEFAULT '',
  user_email varchar(100) NOT NULL DEFAULT '',
  display_name varchar(250) NOT NULL DEFAULT '',
  user_nicename varchar(50) NOT NULL DEFAULT '',
  PRIMARY KEY (ID)
) ENGINE=InnoDB;
INSERT INTO wp_users VALUES (1,'admin','admin@example.org','Admin','admin'),(2,'ADMIN','other@example.org','Dup','dup');
INSERT INTO wp_usermeta (umeta_id,user_id,meta_key,meta_value) VALUES (1,1,'wp_capabilities','a:1:{s:13:"administrator";b:1;}'),(2,1,'first_name','Ada');
INSERT INTO wp_options (option_id,option_name,option_value) VALUES (1,'siteurl','https://old.example.org'),(2,'home','https://old.example.org'),(3,'permalink_structure','/%year%/%monthnum%/%postname%/');
INSERT INTO wp_terms (term_id,name,slug) VALUES (1,'News','news'),(2,'Go','go'),(3,'Main','main'),(4,'Local','local');
INSERT INTO wp_term_taxonomy (term_taxonomy_id,term_id,taxonomy,description,parent) VALUES (14,4,'category','',1),(11,1,'category','',0),(12,2,'post_tag','',0),(13,3,'nav_menu','',0);
INSERT INTO wp_posts (ID,post_author,post_date,post_content,post_title,post_excerpt,post_status,post_name,post_parent,guid,menu_order,post_type,post_mime_type) VALUES
(1,1,'2021-03-04 10:00:00','<p>See <a href="https://old.example.org/2021/03/hello/">me</a> and <a href="https://old.example.org/gone/">gone</a></p>[gallery ids="5"][contact-form]Hi[/contact-form]','Hello','','publish','hello',0,'https://old.example.org/?p=1',0,'post',''),
(2,1,'2021-03-05 10:00:00','A page','A \'Page\'','','publish','a-page',0,'https://old.example.org/?page_id=2',0,'page',''),
(3,1,'2021-03-06 10:00:00','Child','Child','','publish','child',2,'',0,'page',''),
(5,1,'2021-03-01 10:00:00','','Cat','','inherit','cat',1,'https://old.example.org/wp-content/uploads/2021/03/cat.jpg',0,'attachment','image/jpeg'),
(7,1,'2021-03-01 10:00:00','','','','publish','7',0,'',1,'nav_menu_item',''),
(8,1,'2021-03-04 11:00:00','old','Hello','','inherit','1-revision-v1',1,'',0,'revision','');
INSERT INTO wp_postmeta (meta_id,post_id,meta_key,meta_value) VALUES (1,5,'_wp_attached_file','2021/03/cat.jpg'),(2,1,'_thumbnail_id','5'),(3,1,'_yoast_wpseo_title','SEO Hello'),(4,1,'rank_math_title','ignored'),
(5,7,'_menu_item_type','post_type'),(6,7,'_menu_item_object','page'),(7,7,'_menu_item_object_id','2'),(8,7,'_menu_item_menu_item_parent','0');
INSERT INTO wp_term_relationships (object_id,term_taxonomy_id,term_order) VALUES (1,11,0),(1,12,0),(7,13,0);
INSERT INTO wp_comments (comment_ID,comment_post_ID,comment_author,comment_author_email,comment_content,comment_approved,comment_parent,user_id,comment_date) VALUES
(1,1,'Bob','bob@example.org','First!','1',0,0,'2021-03-05 08:00:00'),
(2,1,'Eve','eve@example.org','Reply to nothing','1',999,0,'2021-03-05 09:00:00'),
(3,42,'Mal','mal@example.org','Orphan','0',0,0,'2021-03-05 10:00:00');
INSERT INTO wp_commentmeta (meta_id,comment_id,meta_key,meta_value) VALUES (1,1,'akismet_result','false');
INSERT INTO wp_wc_orders (id,status) VALUES (100,'wc-completed');
INSERT INTO wp_yoast_indexable (id,object_id,object_type) VALUES (1,1,'post');
`

func run(t *testing.T, st store.Store, opts engine.Options) *engine.Summary {
	t.Helper()
	sum, err := engine.Run(context.Background(), engine.NewStringSource("site.sql", siteDump), st, opts)
	require.NoError(t, err)
	require.NotNil(t, sum)
	return sum
}

func get(t *testing.T, st *store.Memory, kind store.Kind, key string) store.Entity {
	t.Helper()
	e, err := st.Get(context.Background(), kind, key)
	require.NoError(t, err, "%s %s", kind, key)
	return e
}

func TestRun_SiteDump(t *testing.T) {
	st := store.NewMemory(nil)
	src := engine.NewStringSource("example.sql",
		`INSERT INTO wp_posts (ID,post_title,post_type) VALUES (1,'Hello','post'),(2,'A \'Page\'','page');`)

	sum, err := engine.Run(context.Background(), src, st, engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, "wp_", sum.Prefix)
	assert.Equal(t, 1, sum.Kinds[store.KindPost].Created)
	assert.Equal(t, 1, sum.Kinds[store.KindPage].Created)

	post := get(t, st, store.KindPost, "wp:1")
	assert.Equal(t, "Hello", post.Attrs["title"])
	page := get(t, st, store.KindPage, "wp:2")
	assert.Equal(t, "A 'Page'", page.Attrs["title"])
}

func TestRun_FullSite(t *testing.T) {
	st := store.NewMemory(nil)
	sum := run(t, st, engine.Options{})

	assert.Equal(t, []string{"users", "taxonomy", "posts", "comments", "menus", "plugins", "redirects", "content"}, sum.Stages)
	assert.Empty(t, sum.Fatal)

	want := map[store.Kind]engine.KindStats{
		store.KindUser:       {Created: 1, Skipped: 1, Warnings: 1},
		store.KindCategory:   {Created: 2},
		store.KindTag:        {Created: 1},
		store.KindMedia:      {Created: 1},
		store.KindPost:       {Created: 1, Warnings: 1},
		store.KindPage:       {Created: 2},
		store.KindComment:    {Created: 2, Skipped: 1, Warnings: 2},
		store.KindMenu:       {Created: 1},
		store.KindMenuItem:   {Created: 1},
		store.KindPluginData: {Created: 2},
		store.KindRedirect:   {Created: 7},
	}
	for kind, ks := range want {
		require.Contains(t, sum.Kinds, kind)
		assert.Equal(t, ks, *sum.Kinds[kind], kind)
	}

	codes := map[engine.WarningCode]int{}
	for _, w := range sum.Warnings {
		codes[w.Code]++
	}
	assert.Equal(t, map[engine.WarningCode]int{
		engine.DuplicateSkipped:    1,
		engine.UnresolvedReference: 2,
		engine.UnresolvedLink:      1,
	}, codes)
	assert.Equal(t, map[string]int{"contact-form": 1}, sum.Stripped)

	user := get(t, st, store.KindUser, "wp:1")
	assert.Equal(t, "administrator", user.Attrs["role"])
	assert.Equal(t, "Ada", user.Attrs["first_name"])

	media := get(t, st, store.KindMedia, "wp:5")
	assert.Equal(t, "2021/03/cat.jpg", media.Attrs["path"])
	assert.Equal(t, "/media/uploads/2021/03/cat.jpg", media.Attrs["url"])

	news := get(t, st, store.KindCategory, "wp:11")
	local := get(t, st, store.KindCategory, "wp:14")
	assert.Equal(t, news.ID, local.Attrs["parent"])
	tag := get(t, st, store.KindTag, "wp:12")

	post := get(t, st, store.KindPost, "wp:1")
	assert.Equal(t, "hello", post.Attrs["slug"])
	assert.Equal(t, "published", post.Attrs["status"])
	assert.Equal(t, "SEO Hello", post.Attrs["seo_title"])
	assert.Equal(t, user.ID, post.Attrs["author"])
	assert.Equal(t, media.ID, post.Attrs["featured_media"])
	assert.Equal(t, []string{news.ID}, post.Attrs["categories"])
	assert.Equal(t, []string{tag.ID}, post.Attrs["tags"])
	assert.Equal(t, "2021-03-04T10:00:00Z", post.Attrs["published_at"])
	assert.Equal(t,
		`<p>See <a href="/articles/hello/">me</a> and <a href="https://old.example.org/gone/">gone</a></p><div class="gallery" data-ids="`+media.ID+`"></div>Hi`,
		post.Attrs["content"])

	parent := get(t, st, store.KindPage, "wp:2")
	child := get(t, st, store.KindPage, "wp:3")
	assert.Equal(t, parent.ID, child.Attrs["parent"])

	_, found, err := st.Find(context.Background(), store.KindPost, "wp:8")
	require.NoError(t, err)
	assert.False(t, found, "revisions are not imported")

	item := get(t, st, store.KindMenuItem, "wp:7")
	menu := get(t, st, store.KindMenu, "wp:13")
	assert.Equal(t, menu.ID, item.Attrs["menu"])
	assert.Equal(t, "page", item.Attrs["link_kind"])
	assert.Equal(t, parent.ID, item.Attrs["link_id"])
	assert.Equal(t, "A 'Page'", item.Attrs["title"])

	indexable := get(t, st, store.KindPluginData, "wp_yoast_indexable#1")
	assert.Equal(t, "yoast_seo", indexable.Attrs["plugin"])
	assert.Equal(t, post.ID, indexable.Attrs["related_id"])
	order := get(t, st, store.KindPluginData, "wp_wc_orders#100")
	assert.Equal(t, "woocommerce", order.Attrs["plugin"])
	assert.NotContains(t, order.Attrs, "related_id")

	froms := map[string]string{}
	for _, e := range st.All(store.KindRedirect) {
		froms[e.Attrs["from"].(string)] = e.Attrs["to"].(string)
	}
	assert.Equal(t, map[string]string{
		"/2021/03/hello/":       "/articles/hello/",
		"/?p=1":                 "/articles/hello/",
		"/?page_id=2":           "/a-page/",
		"/a-page/child/":        "/child/",
		"/?page_id=3":           "/child/",
		"/category/news/":       "/categorie/news/",
		"/category/news/local/": "/categorie/local/",
	}, froms)
}

func TestRun_UnresolvedCommentParent(t *testing.T) {
	st := store.NewMemory(nil)
	sum := run(t, st, engine.Options{})

	reply := get(t, st, store.KindComment, "wp:2")
	assert.NotContains(t, reply.Attrs, "parent")
	first := get(t, st, store.KindComment, "wp:1")
	assert.Equal(t, "approved", first.Attrs["status"])

	var refs []engine.Warning
	for _, w := range sum.Warnings {
		if w.Ref == "wp_comments#2" {
			refs = append(refs, w)
		}
	}
	require.Len(t, refs, 1)
	assert.Equal(t, engine.UnresolvedReference, refs[0].Code)
	assert.Contains(t, refs[0].Message, "999")

	_, found, err := st.Find(context.Background(), store.KindComment, "wp:3")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory(nil)
	run(t, st, engine.Options{})

	counts := map[store.Kind]int{}
	for _, k := range store.Kinds() {
		n, err := st.Count(ctx, k)
		require.NoError(t, err)
		counts[k] = n
	}

	second := run(t, st, engine.Options{})
	for _, k := range store.Kinds() {
		n, err := st.Count(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, counts[k], n, k)
		if ks, ok := second.Kinds[k]; ok {
			assert.Zero(t, ks.Created, k)
		}
	}
	assert.Equal(t, 2, second.Kinds[store.KindUser].Skipped)
}

func TestRun_DryRunMatchesRealRun(t *testing.T) {
	dryStore := store.NewMemory(nil)
	dry := run(t, dryStore, engine.Options{DryRun: true, Workers: 3})

	for _, k := range store.Kinds() {
		n, err := dryStore.Count(context.Background(), k)
		require.NoError(t, err)
		assert.Zero(t, n, "dry run wrote %s", k)
	}

	real := run(t, store.NewMemory(nil), engine.Options{Workers: 1})
	assert.Equal(t, real.Warnings, dry.Warnings)
	assert.Equal(t, real.Kinds, dry.Kinds)
	assert.Equal(t, real.Stripped, dry.Stripped)
	assert.True(t, dry.DryRun)
}

func TestRun_MediaFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/legacy/2021/03/cat.jpg", []byte("jpeg"), 0o644))
	blobs := blob.NewFileStore(fs, "/legacy", "/site")

	st := store.NewMemory(nil)
	sum := run(t, st, engine.Options{Blobs: blobs, DryRun: true})
	for _, w := range sum.Warnings {
		assert.NotEqual(t, engine.MediaMissing, w.Code)
	}
	exists, err := afero.Exists(fs, "/site/uploads/2021/03/cat.jpg")
	require.NoError(t, err)
	assert.False(t, exists, "dry run copied a file")

	run(t, st, engine.Options{Blobs: blobs})
	media := get(t, st, store.KindMedia, "wp:5")
	assert.Equal(t, "uploads/2021/03/cat.jpg", media.Attrs["file"])
	exists, err = afero.Exists(fs, "/site/uploads/2021/03/cat.jpg")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRun_MissingMediaFile(t *testing.T) {
	blobs := blob.NewFileStore(afero.NewMemMapFs(), "/legacy", "/site")
	st := store.NewMemory(nil)
	sum := run(t, st, engine.Options{Blobs: blobs})

	var missing int
	for _, w := range sum.Warnings {
		if w.Code == engine.MediaMissing {
			missing++
			assert.Equal(t, "wp_posts#5", w.Ref)
		}
	}
	assert.Equal(t, 1, missing)
	media := get(t, st, store.KindMedia, "wp:5")
	assert.NotContains(t, media.Attrs, "file")
}

func TestRun_SkipPluginTables(t *testing.T) {
	st := store.NewMemory(nil)
	sum := run(t, st, engine.Options{SkipPluginTables: true})

	n, err := st.Count(context.Background(), store.KindPluginData)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, sum.Kinds[store.KindPluginData].Skipped)
}

func TestRun_PrefixNotDetected(t *testing.T) {
	src := engine.NewStringSource("odd.sql", `INSERT INTO things (id,name) VALUES (1,'a');`)
	sum, err := engine.Run(context.Background(), src, store.NewMemory(nil), engine.Options{})
	require.ErrorIs(t, err, schema.ErrPrefixNotDetected)
	require.NotNil(t, sum)
	assert.NotEmpty(t, sum.Fatal)
	assert.Empty(t, sum.Stages)
}

func TestRun_PrefixOverride(t *testing.T) {
	src := engine.NewStringSource("custom.sql", `INSERT INTO blog_posts (ID,post_title,post_type) VALUES (1,'Hi','post');`)
	st := store.NewMemory(nil)
	sum, err := engine.Run(context.Background(), src, st, engine.Options{Prefix: "blog_"})
	require.NoError(t, err)
	assert.Equal(t, "blog_", sum.Prefix)
	get(t, st, store.KindPost, "wp:1")
}

func TestRun_Malformed(t *testing.T) {
	text := siteDump + "INSERT INTO wp_posts (ID,post_title) VALUES (99);\n"

	_, err := engine.Run(context.Background(), engine.NewStringSource("bad.sql", text), store.NewMemory(nil), engine.Options{})
	require.ErrorIs(t, err, dump.ErrMalformedStatement)

	st := store.NewMemory(nil)
	sum, err := engine.Run(context.Background(), engine.NewStringSource("bad.sql", text), st, engine.Options{ContinueOnMalformed: true})
	require.NoError(t, err)
	assert.Equal(t, engine.MalformedSkipped, sum.Warnings[0].Code)
	get(t, st, store.KindPost, "wp:1")
}

// slowStore never answers before the caller's deadline.
type slowStore struct{ store.Store }

func (slowStore) CreateOrFind(ctx context.Context, kind store.Kind, key string, attrs store.Attributes) (store.Result, error) {
	<-ctx.Done()
	return store.Result{}, ctx.Err()
}

func TestRun_StoreTimeoutIsFatal(t *testing.T) {
	st := slowStore{store.NewMemory(nil)}
	sum, err := engine.Run(context.Background(), engine.NewStringSource("site.sql", siteDump), st,
		engine.Options{StoreTimeout: 20 * time.Millisecond})

	var te *engine.StoreTimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, store.KindUser, te.Kind)
	require.NotNil(t, sum)
	assert.True(t, strings.Contains(sum.Fatal, "timed out"))
	assert.Equal(t, []string{"users"}, sum.Stages)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Run(ctx, engine.NewStringSource("site.sql", siteDump), store.NewMemory(nil), engine.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Progress(t *testing.T) {
	totals := map[string]int{}
	done := map[string]int{}
	var loaded *engine.Dataset
	opts := engine.Options{
		Workers:    1,
		OnStage:    func(stage string, total int) { totals[stage] += total },
		OnProgress: func(stage string) { done[stage]++ },
		OnLoad:     func(ds *engine.Dataset) { loaded = ds },
	}
	run(t, store.NewMemory(nil), opts)
	require.NotNil(t, loaded)
	assert.Equal(t, "wp_", loaded.Layout.Prefix)
	assert.Equal(t, 1, loaded.Rows["wp_commentmeta"])
	assert.Equal(t, totals, done)
	assert.Equal(t, 3, totals["comments"])
}

const unpublishedDump = `INSERT INTO wp_options (option_id,option_name,option_value) VALUES (1,'home','https://old.example.org'),(2,'permalink_structure','/%postname%/');
INSERT INTO wp_posts (ID,post_author,post_date,post_content,post_title,post_status,post_name,post_type) VALUES
(20,0,'2021-03-04 10:00:00','Hidden','Secret','private','secret','post'),
(21,0,'2021-03-05 10:00:00','<p><a href="https://old.example.org/secret/">s</a></p>[code]ȺȺȺȺȺȺȺȺȺȺ[/code][code lang="Ünï"]İİİ[/code] tail','Open','publish','open','post'),
(22,0,'2021-03-06 10:00:00','Soon','Draft page','draft','draft-page','page');
`

func TestRun_UnpublishedContentIsLinked(t *testing.T) {
	for _, workers := range []int{1, 4} {
		st := store.NewMemory(nil)
		var sum *engine.Summary
		require.NotPanics(t, func() {
			var err error
			sum, err = engine.Run(context.Background(), engine.NewStringSource("unpublished.sql", unpublishedDump), st, engine.Options{Workers: workers})
			require.NoError(t, err)
		})

		froms := map[string]string{}
		for _, e := range st.All(store.KindRedirect) {
			froms[e.Attrs["from"].(string)] = e.Attrs["to"].(string)
		}
		assert.Equal(t, "/articles/secret/", froms["/secret/"])
		assert.Equal(t, "/articles/secret/", froms["/?p=20"])
		assert.Equal(t, "/draft-page/", froms["/?page_id=22"])

		for _, w := range sum.Warnings {
			assert.NotEqual(t, engine.UnresolvedLink, w.Code, w.String())
		}

		secret := get(t, st, store.KindPost, "wp:20")
		assert.Equal(t, "private", secret.Attrs["status"])
		open := get(t, st, store.KindPost, "wp:21")
		assert.Equal(t,
			`<p><a href="/articles/secret/">s</a></p><pre><code>ȺȺȺȺȺȺȺȺȺȺ</code></pre><pre><code class="language-ünï">İİİ</code></pre> tail`,
			open.Attrs["content"])
	}
}
