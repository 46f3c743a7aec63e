package schema

// Role is what a table holds, decided from its name alone.
type Role int

const (
	RolePluginUnknown Role = iota
	RoleUser
	RoleUserMeta
	RolePost
	RolePostMeta
	RoleTerm
	RoleTermTaxonomy
	RoleTermRelationship
	RoleComment
	RoleOption
	RoleCoreAuxiliary // commentmeta, termmeta, links: core tables nothing imports
)

var roleNames = map[Role]string{
	RolePluginUnknown:    "PluginUnknown",
	RoleUser:             "User",
	RoleUserMeta:         "UserMeta",
	RolePost:             "Post",
	RolePostMeta:         "PostMeta",
	RoleTerm:             "Term",
	RoleTermTaxonomy:     "TermTaxonomy",
	RoleTermRelationship: "TermRelationship",
	RoleComment:          "Comment",
	RoleOption:           "Option",
	RoleCoreAuxiliary:    "CoreAuxiliary",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return "PluginUnknown"
}

// TableRole is the classification of one distinct table name.
type TableRole struct {
	Prefix  string
	Role    Role
	RawName string
	Suffix  string // name with the prefix stripped, or the raw name when the prefix does not apply
	Plugin  string // best-effort owner for PluginUnknown tables
}

// IsCore reports whether the table is one of the known core tables.
func (t TableRole) IsCore() bool {
	return t.Role != RolePluginUnknown
}

// TableReport is one line of the analysis printout.
type TableReport struct {
	Table      TableRole
	Statements int
	Rows       int
}
