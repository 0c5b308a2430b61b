package domain

// Complexity grades a single site entity.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// SiteEntity is one item of a website inventory.
type SiteEntity struct {
	Name       string     `json:"name" yaml:"name"`
	Complexity Complexity `json:"complexity" yaml:"complexity"`
}

// MigrationScope describes the content volume to move into a new platform.
type MigrationScope struct {
	Nodes      int        `json:"nodes" yaml:"nodes"`
	Complexity Complexity `json:"complexity" yaml:"complexity"`
}

// AuditInventory is the output contract of the website auditor.
type AuditInventory struct {
	URL             string             `json:"url" yaml:"url"`
	Title           string             `json:"title" yaml:"title"`
	Excerpt         string             `json:"excerpt" yaml:"excerpt"`
	ContentTypes    []SiteEntity       `json:"content_types" yaml:"content_types"`
	Paragraphs      []SiteEntity       `json:"paragraphs" yaml:"paragraphs"`
	Taxonomies      []SiteEntity       `json:"taxonomies" yaml:"taxonomies"`
	MediaTypes      []SiteEntity       `json:"media_types" yaml:"media_types"`
	Views           []SiteEntity       `json:"views" yaml:"views"`
	Webforms        []SiteEntity       `json:"webforms" yaml:"webforms"`
	Blocks          []SiteEntity       `json:"blocks" yaml:"blocks"`
	CustomModules   []SiteEntity       `json:"custom_modules" yaml:"custom_modules"`
	ThemeComponents []SiteEntity       `json:"theme_components" yaml:"theme_components"`
	Multipliers     map[string]float64 `json:"multipliers,omitempty" yaml:"multipliers,omitempty"`
	Migration       *MigrationScope    `json:"migration,omitempty" yaml:"migration,omitempty"`
	RiskLevel       string             `json:"risk_level,omitempty" yaml:"risk_level,omitempty"`
	PageCount       int                `json:"page_count" yaml:"page_count"`
}

// EntityCount returns the number of inventoried entities.
func (a *AuditInventory) EntityCount() int {
	if a == nil {
		return 0
	}
	return len(a.ContentTypes) + len(a.Paragraphs) + len(a.Taxonomies) + len(a.MediaTypes) +
		len(a.Views) + len(a.Webforms) + len(a.Blocks) + len(a.CustomModules) + len(a.ThemeComponents)
}
