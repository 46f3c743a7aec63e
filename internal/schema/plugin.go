package schema

import "strings"

// pluginPrefixes maps a plugin name to the table-suffix prefixes it creates.
// Checked in pluginOrder so the answer is stable.
var pluginPrefixes = map[string][]string{
	"woocommerce":    {"woocommerce_", "wc_"},
	"yoast_seo":      {"yoast_", "yoast_seo_"},
	"acf":            {"acf_"},
	"contact_form_7": {"cf7_", "contact_form_"},
	"wpforms":        {"wpforms_"},
	"gravity_forms":  {"gf_", "rg_"},
	"elementor":      {"elementor_"},
	"wpseo":          {"wpseo_"},
	"redirection":    {"redirection_"},
	"wordfence": {
		"wfls_", "wfblockediplog", "wfconfig", "wfcrawlers",
		"wffilechanges", "wfhits", "wfhoover", "wfissues",
		"wfknownfilelist", "wflivetraffichuman", "wflocs",
		"wflogins", "wfnotifications", "wfpendingissues",
		"wfreversecache", "wfsnipcache", "wfstatus", "wftrafficrates",
	},
	"wpml":     {"icl_"},
	"polylang": {"term_language", "term_translations"},
}

var pluginOrder = []string{
	"woocommerce", "yoast_seo", "acf", "contact_form_7", "wpforms", "gravity_forms",
	"elementor", "wpseo", "redirection", "wordfence", "wpml", "polylang",
}

// IdentifyPlugin guesses which plugin owns a table from its suffix.
func IdentifyPlugin(suffix string) string {
	s := strings.ToLower(suffix)
	for _, name := range pluginOrder {
		for _, p := range pluginPrefixes[name] {
			if strings.HasPrefix(s, p) {
				return name
			}
		}
	}
	return "unknown"
}
