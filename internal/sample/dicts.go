package sample

// Words with diacritics and ligatures, so generated titles and term names
// exercise slug transliteration.
var (
	AccentedWords = []string{
		"Café", "Crème", "Brûlée", "Über", "Straße", "Größe", "Niño", "Mañana",
		"Ærø", "Œuvre", "Łódź", "Smørrebrød", "Façade", "Déjà", "Vu", "Señor",
		"Garçon", "Fiancée", "Naïve", "Pâté", "Résumé", "Zürich", "Kraków", "São",
		"Jalapeño", "Piñata", "Öl", "Ça", "Þing", "Đorđe",
	}
	CategoryNames = []string{
		"News", "Events", "Recipes", "Travel", "Culture", "Sport", "Science",
		"Économie", "Société", "Musique", "Cinéma", "Local", "Agenda",
	}
	Roles = []string{"author", "editor", "contributor", "subscriber"}

	// Directives only some plugins understand; the importer strips them.
	PluginShortcodes = []string{
		`[contact-form-7 id="%d" title="Contact"]`,
		`[wpforms id="%d"]`,
		`[elementor-template id="%d"]`,
		`[woocommerce_cart]`,
	}
)

// Legacy post statuses and how often each is drawn, out of 20.
var postStatusWeights = []struct {
	status string
	weight int
}{
	{"publish", 15},
	{"draft", 3},
	{"private", 1},
	{"future", 1},
}
