// Package sample writes synthetic WordPress dumps for trying the importer
// without a real site.
package sample

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Options size the generated site. Zero counts write empty tables.
type Options struct {
	Prefix     string
	SiteURL    string
	Users      int
	Categories int
	Tags       int
	Media      int
	Posts      int
	Pages      int
	Comments   int
	PluginRows int
	BatchSize  int   // rows per INSERT statement
	Seed       int64 // 0 picks a random seed
}

func (o *Options) withDefaults() {
	if o.Prefix == "" {
		o.Prefix = "wp_"
	}
	if o.SiteURL == "" {
		o.SiteURL = "https://example.org"
	}
	o.SiteURL = strings.TrimRight(o.SiteURL, "/")
	if o.Users < 1 {
		o.Users = 1
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
}

// TableResult is the number of rows written to one table.
type TableResult struct {
	Table string
	Rows  int
}

const dateLayout = "2006-01-02 15:04:05"

var (
	rangeStart = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

type mediaItem struct {
	id   int64
	file string
}

type publishedPost struct {
	id   int64
	path string
}

type generator struct {
	opts       Options
	f          *gofakeit.Faker
	w          *bufio.Writer
	onProgress func()
	results    []TableResult

	users      []int64
	categories []int64 // term_taxonomy ids
	tags       []int64
	menu       int64
	slugs      map[string]bool
	media      []mediaItem
	published  []publishedPost
	pages      []int64
	nextPost   int64
	nextMeta   int64
}

// Generate writes a complete dump to w and reports the rows written per
// table. onProgress, when set, is called once per row.
func Generate(w io.Writer, opts Options, onProgress func()) ([]TableResult, error) {
	opts.withDefaults()
	g := &generator{
		opts:       opts,
		f:          gofakeit.New(opts.Seed),
		w:          bufio.NewWriter(w),
		onProgress: onProgress,
		slugs:      make(map[string]bool),
	}
	fmt.Fprintf(g.w, "-- wp-pump sample dump\n-- Site: %s\n/*!40101 SET NAMES utf8mb4 */;\n", opts.SiteURL)

	for _, step := range []func() error{g.writeOptions, g.writeUsers, g.writeTerms, g.writePosts, g.writeComments, g.writePluginRows} {
		if err := step(); err != nil {
			return g.results, err
		}
	}
	return g.results, g.w.Flush()
}

func (g *generator) writeOptions() error {
	t := g.table("options",
		"option_id bigint(20) unsigned NOT NULL AUTO_INCREMENT",
		"option_name varchar(191) NOT NULL DEFAULT ''",
		"option_value longtext NOT NULL",
		"autoload varchar(20) NOT NULL DEFAULT 'yes'")
	opts := [][2]string{
		{"siteurl", g.opts.SiteURL},
		{"home", g.opts.SiteURL},
		{"blogname", g.f.Company()},
		{"blogdescription", g.f.HipsterSentence(5)},
		{"permalink_structure", "/%year%/%monthnum%/%postname%/"},
		{"posts_per_page", "10"},
	}
	for i, o := range opts {
		if err := t.add(i+1, o[0], o[1], "yes"); err != nil {
			return err
		}
	}
	return t.close()
}

func (g *generator) writeUsers() error {
	users := g.table("users",
		"ID bigint(20) unsigned NOT NULL AUTO_INCREMENT",
		"user_login varchar(60) NOT NULL DEFAULT ''",
		"user_pass varchar(255) NOT NULL DEFAULT ''",
		"user_nicename varchar(50) NOT NULL DEFAULT ''",
		"user_email varchar(100) NOT NULL DEFAULT ''",
		"user_url varchar(100) NOT NULL DEFAULT ''",
		"user_registered datetime NOT NULL DEFAULT '0000-00-00 00:00:00'",
		"user_status int(11) NOT NULL DEFAULT '0'",
		"display_name varchar(250) NOT NULL DEFAULT ''")
	meta := g.table("usermeta",
		"umeta_id bigint(20) unsigned NOT NULL AUTO_INCREMENT",
		"user_id bigint(20) unsigned NOT NULL DEFAULT '0'",
		"meta_key varchar(255) DEFAULT NULL",
		"meta_value longtext")

	logins := make(map[string]bool)
	emails := make(map[string]bool)
	for i := 1; i <= g.opts.Users; i++ {
		id := int64(i)
		first, last := g.f.FirstName(), g.f.LastName()
		login := unique(logins, strings.ToLower(g.f.Username()), i)
		email := unique(emails, strings.ToLower(g.f.Email()), i)
		role := "administrator"
		if i > 1 {
			role = g.f.RandomString(Roles)
		}
		if err := users.add(id, login, "$P$B"+g.f.LetterN(30), login, email, g.f.URL(),
			g.date(), 0, first+" "+last); err != nil {
			return err
		}
		for _, m := range [][2]string{
			{g.opts.Prefix + "capabilities", fmt.Sprintf(`a:1:{s:%d:"%s";b:1;}`, len(role), role)},
			{"first_name", first},
			{"last_name", last},
			{"nickname", login},
			{"description", g.f.Sentence(12)},
		} {
			g.nextMeta++
			if err := meta.add(g.nextMeta, id, m[0], m[1]); err != nil {
				return err
			}
		}
		g.users = append(g.users, id)
	}
	if err := users.close(); err != nil {
		return err
	}
	return meta.close()
}

func (g *generator) writeTerms() error {
	terms := g.table("terms",
		"term_id bigint(20) unsigned NOT NULL AUTO_INCREMENT",
		"name varchar(200) NOT NULL DEFAULT ''",
		"slug varchar(200) NOT NULL DEFAULT ''",
		"term_group bigint(10) NOT NULL DEFAULT '0'")
	taxonomy := g.table("term_taxonomy",
		"term_taxonomy_id bigint(20) unsigned NOT NULL AUTO_INCREMENT",
		"term_id bigint(20) unsigned NOT NULL DEFAULT '0'",
		"taxonomy varchar(32) NOT NULL DEFAULT ''",
		"description longtext NOT NULL",
		"parent bigint(20) unsigned NOT NULL DEFAULT '0'",
		"count bigint(20) NOT NULL DEFAULT '0'")

	var next int64
	add := func(name, tax string, parent int64) (int64, error) {
		next++
		if err := terms.add(next, name, g.termSlug(name), 0); err != nil {
			return 0, err
		}
		// term_taxonomy_id follows term_id, as on a fresh install.
		return next, taxonomy.add(next, next, tax, "", parent, 0)
	}

	for i := 0; i < g.opts.Categories; i++ {
		name := CategoryNames[i%len(CategoryNames)]
		if i >= len(CategoryNames) {
			name += " " + strconv.Itoa(i/len(CategoryNames)+1)
		}
		var parent int64
		if len(g.categories) > 1 && g.f.Number(0, 2) == 0 {
			parent = g.categories[g.f.Number(0, len(g.categories)-1)]
		}
		id, err := add(name, "category", parent)
		if err != nil {
			return err
		}
		g.categories = append(g.categories, id)
	}
	for i := 0; i < g.opts.Tags; i++ {
		name := g.f.Word()
		if g.f.Number(0, 2) == 0 {
			name = g.f.RandomString(AccentedWords)
		}
		id, err := add(name, "post_tag", 0)
		if err != nil {
			return err
		}
		g.tags = append(g.tags, id)
	}
	if g.opts.Pages > 0 {
		id, err := add("Main menu", "nav_menu", 0)
		if err != nil {
			return err
		}
		g.menu = id
	}
	if err := terms.close(); err != nil {
		return err
	}
	return taxonomy.close()
}

type postTables struct {
	posts, meta, rels *table
}

func (g *generator) writePosts() error {
	pt := postTables{
		posts: g.table("posts",
			"ID bigint(20) unsigned NOT NULL AUTO_INCREMENT",
			"post_author bigint(20) unsigned NOT NULL DEFAULT '0'",
			"post_date datetime NOT NULL DEFAULT '0000-00-00 00:00:00'",
			"post_content longtext NOT NULL",
			"post_title text NOT NULL",
			"post_excerpt text NOT NULL",
			"post_status varchar(20) NOT NULL DEFAULT 'publish'",
			"comment_status varchar(20) NOT NULL DEFAULT 'open'",
			"post_name varchar(200) NOT NULL DEFAULT ''",
			"post_modified datetime NOT NULL DEFAULT '0000-00-00 00:00:00'",
			"post_parent bigint(20) unsigned NOT NULL DEFAULT '0'",
			"guid varchar(255) NOT NULL DEFAULT ''",
			"menu_order int(11) NOT NULL DEFAULT '0'",
			"post_type varchar(20) NOT NULL DEFAULT 'post'",
			"post_mime_type varchar(100) NOT NULL DEFAULT ''"),
		meta: g.table("postmeta",
			"meta_id bigint(20) unsigned NOT NULL AUTO_INCREMENT",
			"post_id bigint(20) unsigned NOT NULL DEFAULT '0'",
			"meta_key varchar(255) DEFAULT NULL",
			"meta_value longtext"),
		rels: g.table("term_relationships",
			"object_id bigint(20) unsigned NOT NULL DEFAULT '0'",
			"term_taxonomy_id bigint(20) unsigned NOT NULL DEFAULT '0'",
			"term_order int(11) NOT NULL DEFAULT '0'"),
	}
	g.nextMeta = 0

	for i := 0; i < g.opts.Media; i++ {
		if err := g.attachment(pt); err != nil {
			return err
		}
	}
	for i := 0; i < g.opts.Posts; i++ {
		if err := g.post(pt); err != nil {
			return err
		}
	}
	for i := 0; i < g.opts.Pages; i++ {
		if err := g.page(pt); err != nil {
			return err
		}
	}
	if err := g.menuItems(pt); err != nil {
		return err
	}
	for _, t := range []*table{pt.posts, pt.meta, pt.rels} {
		if err := t.close(); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) attachment(pt postTables) error {
	g.nextPost++
	id := g.nextPost
	at := g.f.DateRange(rangeStart, rangeEnd)
	name := strings.ToLower(g.f.Word()) + "-" + strconv.FormatInt(id, 10)
	file := fmt.Sprintf("%04d/%02d/%s.jpg", at.Year(), int(at.Month()), name)
	guid := g.opts.SiteURL + "/wp-content/uploads/" + file
	if err := pt.posts.add(id, g.author(), at, "", cases.Title(language.Und).String(strings.ReplaceAll(name, "-", " ")), g.f.Sentence(6), "inherit", "open",
		name, at, 0, guid, 0, "attachment", "image/jpeg"); err != nil {
		return err
	}
	if err := g.meta(pt, id, "_wp_attached_file", file); err != nil {
		return err
	}
	if err := g.meta(pt, id, "_wp_attachment_image_alt", g.f.Sentence(4)); err != nil {
		return err
	}
	g.media = append(g.media, mediaItem{id: id, file: file})
	return nil
}

func (g *generator) post(pt postTables) error {
	g.nextPost++
	id := g.nextPost
	at := g.f.DateRange(rangeStart, rangeEnd)
	title := g.title()
	name := g.postSlug(title)
	status := g.status()
	excerpt := ""
	if g.f.Number(0, 3) == 0 {
		excerpt = g.f.Sentence(15)
	}
	body := g.content()
	if err := pt.posts.add(id, g.author(), at, body, title, excerpt, status, "open",
		name, at.Add(48*time.Hour), 0, g.opts.SiteURL+"/?p="+strconv.FormatInt(id, 10), 0, "post", ""); err != nil {
		return err
	}

	if len(g.media) > 0 && g.f.Bool() {
		if err := g.meta(pt, id, "_thumbnail_id", strconv.FormatInt(g.pickMedia().id, 10)); err != nil {
			return err
		}
	}
	if g.f.Bool() {
		if err := g.meta(pt, id, "_yoast_wpseo_title", title+" | "+g.f.Company()); err != nil {
			return err
		}
		if err := g.meta(pt, id, "_yoast_wpseo_metadesc", g.f.Sentence(20)); err != nil {
			return err
		}
	}
	if len(g.categories) > 0 {
		if err := pt.rels.add(id, g.categories[g.f.Number(0, len(g.categories)-1)], 0); err != nil {
			return err
		}
	}
	seen := make(map[int64]bool)
	for n := g.f.Number(0, 2); n > 0 && len(g.tags) > 0; n-- {
		tag := g.tags[g.f.Number(0, len(g.tags)-1)]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		if err := pt.rels.add(id, tag, 0); err != nil {
			return err
		}
	}

	// An older revision of the post, which the importer ignores.
	if g.f.Number(0, 3) == 0 {
		g.nextPost++
		if err := pt.posts.add(g.nextPost, g.author(), at, g.f.Paragraph(1, 3, 10, " "), title, "", "inherit", "closed",
			fmt.Sprintf("%d-revision-v1", id), at, id, "", 0, "revision", ""); err != nil {
			return err
		}
	}

	if status == "publish" {
		g.published = append(g.published, publishedPost{
			id:   id,
			path: fmt.Sprintf("/%04d/%02d/%s/", at.Year(), int(at.Month()), name),
		})
	}
	return nil
}

func (g *generator) page(pt postTables) error {
	g.nextPost++
	id := g.nextPost
	at := g.f.DateRange(rangeStart, rangeEnd)
	title := g.title()
	var parent int64
	if len(g.pages) > 0 && g.f.Number(0, 2) == 0 {
		parent = g.pages[g.f.Number(0, len(g.pages)-1)]
	}
	if err := pt.posts.add(id, g.author(), at, g.content(), title, "", "publish", "closed",
		g.postSlug(title), at, parent, g.opts.SiteURL+"/?page_id="+strconv.FormatInt(id, 10),
		len(g.pages), "page", ""); err != nil {
		return err
	}
	g.pages = append(g.pages, id)
	return nil
}

// menuItems links the first pages and one custom URL into the main menu.
func (g *generator) menuItems(pt postTables) error {
	if g.menu == 0 {
		return nil
	}
	item := func(order int, meta [][2]string, title string) error {
		g.nextPost++
		id := g.nextPost
		at := g.f.DateRange(rangeStart, rangeEnd)
		if err := pt.posts.add(id, 1, at, "", title, "", "publish", "closed",
			strconv.FormatInt(id, 10), at, 0, g.opts.SiteURL+"/?p="+strconv.FormatInt(id, 10),
			order, "nav_menu_item", ""); err != nil {
			return err
		}
		for _, m := range meta {
			if err := g.meta(pt, id, m[0], m[1]); err != nil {
				return err
			}
		}
		return pt.rels.add(id, g.menu, 0)
	}

	order := 0
	for _, page := range g.pages {
		if order == 3 {
			break
		}
		order++
		if err := item(order, [][2]string{
			{"_menu_item_type", "post_type"},
			{"_menu_item_object", "page"},
			{"_menu_item_object_id", strconv.FormatInt(page, 10)},
			{"_menu_item_menu_item_parent", "0"},
		}, ""); err != nil {
			return err
		}
	}
	return item(order+1, [][2]string{
		{"_menu_item_type", "custom"},
		{"_menu_item_object", "custom"},
		{"_menu_item_url", "https://" + g.f.DomainName() + "/"},
		{"_menu_item_menu_item_parent", "0"},
	}, "Partners")
}

func (g *generator) writeComments() error {
	comments := g.table("comments",
		"comment_ID bigint(20) unsigned NOT NULL AUTO_INCREMENT",
		"comment_post_ID bigint(20) unsigned NOT NULL DEFAULT '0'",
		"comment_author tinytext NOT NULL",
		"comment_author_email varchar(100) NOT NULL DEFAULT ''",
		"comment_author_url varchar(200) NOT NULL DEFAULT ''",
		"comment_date datetime NOT NULL DEFAULT '0000-00-00 00:00:00'",
		"comment_content text NOT NULL",
		"comment_approved varchar(20) NOT NULL DEFAULT '1'",
		"comment_type varchar(20) NOT NULL DEFAULT 'comment'",
		"comment_parent bigint(20) unsigned NOT NULL DEFAULT '0'",
		"user_id bigint(20) unsigned NOT NULL DEFAULT '0'")
	meta := g.table("commentmeta",
		"meta_id bigint(20) unsigned NOT NULL AUTO_INCREMENT",
		"comment_id bigint(20) unsigned NOT NULL DEFAULT '0'",
		"meta_key varchar(255) DEFAULT NULL",
		"meta_value longtext")

	last := make(map[int64]int64) // post -> latest comment
	for i := 1; i <= g.opts.Comments && len(g.published) > 0; i++ {
		id := int64(i)
		post := g.published[g.f.Number(0, len(g.published)-1)].id
		var parent, user int64
		if prev, ok := last[post]; ok && g.f.Number(0, 2) == 0 {
			parent = prev
		}
		if g.f.Number(0, 4) == 0 {
			user = g.author()
		}
		approved := g.f.RandomString([]string{"1", "1", "1", "1", "0", "spam"})
		if err := comments.add(id, post, g.f.Name(), strings.ToLower(g.f.Email()), g.f.URL(), g.date(),
			g.f.Paragraph(1, g.f.Number(1, 3), 12, " "), approved, "comment", parent, user); err != nil {
			return err
		}
		if err := meta.add(id, id, "akismet_result", "false"); err != nil {
			return err
		}
		last[post] = id
	}
	if err := comments.close(); err != nil {
		return err
	}
	return meta.close()
}

// writePluginRows fills two tables the importer keeps as opaque plugin data.
func (g *generator) writePluginRows() error {
	if g.opts.PluginRows <= 0 {
		return nil
	}
	seo := g.table("yoast_indexable",
		"id int(11) unsigned NOT NULL AUTO_INCREMENT",
		"permalink longtext",
		"object_id bigint(20) DEFAULT NULL",
		"object_type varchar(32) NOT NULL",
		"title text")
	orders := g.table("wc_orders",
		"id bigint(20) unsigned NOT NULL",
		"status varchar(20) DEFAULT NULL",
		"currency varchar(10) DEFAULT NULL",
		"total_amount decimal(26,8) DEFAULT NULL",
		"customer_id bigint(20) unsigned DEFAULT NULL",
		"date_created_gmt datetime DEFAULT NULL")

	for i := 1; i <= g.opts.PluginRows; i++ {
		var object any
		permalink := g.opts.SiteURL + "/"
		if len(g.published) > 0 {
			p := g.published[(i-1)%len(g.published)]
			object, permalink = p.id, g.opts.SiteURL+p.path
		}
		if err := seo.add(i, permalink, object, "post", g.f.Sentence(5)); err != nil {
			return err
		}
		if err := orders.add(1000+i, g.f.RandomString([]string{"wc-completed", "wc-processing", "wc-refunded"}),
			g.f.CurrencyShort(), fmt.Sprintf("%.2f", g.f.Price(5, 500)), g.author(), g.date()); err != nil {
			return err
		}
	}
	if err := seo.close(); err != nil {
		return err
	}
	return orders.close()
}

func (g *generator) meta(pt postTables, post int64, key, value string) error {
	g.nextMeta++
	return pt.meta.add(g.nextMeta, post, key, value)
}

func (g *generator) author() int64 {
	return g.users[g.f.Number(0, len(g.users)-1)]
}

func (g *generator) pickMedia() mediaItem {
	return g.media[g.f.Number(0, len(g.media)-1)]
}

func (g *generator) date() time.Time {
	return g.f.DateRange(rangeStart, rangeEnd)
}

func (g *generator) status() string {
	n := g.f.Number(1, 20)
	for _, s := range postStatusWeights {
		if n <= s.weight {
			return s.status
		}
		n -= s.weight
	}
	return "publish"
}

func (g *generator) title() string {
	title := strings.TrimSuffix(g.f.Sentence(g.f.Number(2, 5)), ".")
	if g.f.Number(0, 3) == 0 {
		title += " " + g.f.RandomString(AccentedWords)
	}
	return title
}

// termSlug percent-encodes non-ASCII names the way WordPress stores them.
func (g *generator) termSlug(name string) string {
	base := strings.ToLower(url.PathEscape(strings.ReplaceAll(strings.ToLower(name), " ", "-")))
	slug := base
	for n := 2; g.slugs[slug]; n++ {
		slug = base + "-" + strconv.Itoa(n)
	}
	g.slugs[slug] = true
	return slug
}

func (g *generator) postSlug(title string) string {
	return g.termSlug(strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '\'', '"', '?', '!':
			return -1
		}
		return r
	}, title))
}

// content builds a post body with the markup legacy editors leave behind.
func (g *generator) content() string {
	var b strings.Builder
	paras := g.f.Number(2, 4)
	for i := 0; i < paras; i++ {
		b.WriteString("<p>")
		b.WriteString(g.f.Paragraph(1, g.f.Number(2, 4), 10, " "))
		if len(g.published) > 0 && g.f.Number(0, 2) == 0 {
			p := g.published[g.f.Number(0, len(g.published)-1)]
			fmt.Fprintf(&b, ` See <a href="%s%s">%s</a>.`, g.opts.SiteURL, p.path, g.f.Word())
		}
		b.WriteString("</p>\n")
		if i == 0 {
			b.WriteString("<!--more-->\n")
		}
		if len(g.media) > 0 && g.f.Number(0, 3) == 0 {
			m := g.pickMedia()
			img := fmt.Sprintf(`<img class="alignnone size-medium wp-image-%d" src="%s/wp-content/uploads/%s" alt="" width="300" height="200" />`,
				m.id, g.opts.SiteURL, m.file)
			if g.f.Bool() {
				fmt.Fprintf(&b, `[caption id="attachment_%d" align="aligncenter" width="300"]%s %s[/caption]`+"\n", m.id, img, g.f.Sentence(4))
			} else {
				b.WriteString(img + "\n")
			}
		}
	}
	if len(g.media) > 1 && g.f.Number(0, 4) == 0 {
		ids := []string{strconv.FormatInt(g.pickMedia().id, 10), strconv.FormatInt(g.pickMedia().id, 10)}
		fmt.Fprintf(&b, "[gallery columns=\"2\" ids=\"%s\"]\n", strings.Join(ids, ","))
	}
	if g.f.Number(0, 4) == 0 {
		code := g.f.RandomString(PluginShortcodes)
		if strings.Contains(code, "%d") {
			code = fmt.Sprintf(code, g.f.Number(1, 50))
		}
		b.WriteString(code + "\n")
	}
	if g.f.Number(0, 5) == 0 {
		b.WriteString("<p>&nbsp;</p>\n")
	}
	return b.String()
}

// unique returns v, or v suffixed with n when v was already taken.
func unique(taken map[string]bool, v string, n int) string {
	if taken[v] {
		v = strconv.Itoa(n) + "." + v
	}
	taken[v] = true
	return v
}
