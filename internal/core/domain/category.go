package domain

// Built-in categories. Each category names a logical table and governs
// how many primary-key segments addresses within it require.
const (
	CategoryGlobal  = "GLOBAL"
	CategoryGuild   = "GUILD"
	CategoryChannel = "CHANNEL"
	CategoryRole    = "ROLE"
	CategoryUser    = "USER"
	CategoryMember  = "MEMBER"
)

// CategoryInfo describes the addressing rules of a single category.
type CategoryInfo struct {
	// PrimaryKeyLen is the number of primary-key segments a leaf
	// address in this category requires.
	PrimaryKeyLen int

	// Custom is true for categories registered at runtime rather than
	// built into the store.
	Custom bool
}

// CategoryRegistry maps category names to their addressing rules.
// It is supplied externally at driver construction time and consulted
// whenever an Identifier must be rebuilt during migration.
type CategoryRegistry map[string]CategoryInfo

// BuiltinCategories returns a registry pre-populated with the standard
// categories. MEMBER is the only built-in with a compound primary key
// (entity id, then member id).
func BuiltinCategories() CategoryRegistry {
	return CategoryRegistry{
		CategoryGlobal:  {PrimaryKeyLen: 0},
		CategoryGuild:   {PrimaryKeyLen: 1},
		CategoryChannel: {PrimaryKeyLen: 1},
		CategoryRole:    {PrimaryKeyLen: 1},
		CategoryUser:    {PrimaryKeyLen: 1},
		CategoryMember:  {PrimaryKeyLen: 2},
	}
}

// Register adds a custom category. Existing entries are not overwritten.
func (r CategoryRegistry) Register(name string, primaryKeyLen int) {
	if _, ok := r[name]; ok {
		return
	}
	r[name] = CategoryInfo{PrimaryKeyLen: primaryKeyLen, Custom: true}
}

// Lookup returns the addressing rules for a category. Unknown categories
// fall back to a single-segment custom category, matching how dynamically
// registered groups behave before their arity is declared.
func (r CategoryRegistry) Lookup(name string) CategoryInfo {
	if info, ok := r[name]; ok {
		return info
	}
	return CategoryInfo{PrimaryKeyLen: 1, Custom: true}
}

// Namespace identifies one stored (owner, instance) pair as enumerated
// by a driver.
type Namespace struct {
	Name       string
	InstanceID string
}

// CategoryData is one migration row: a category name together with the
// full payload stored under it.
type CategoryData struct {
	Category string
	Data     map[string]any
}
