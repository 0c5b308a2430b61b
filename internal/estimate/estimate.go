// Package estimate computes bottom-up effort estimates from a website inventory.
package estimate

import (
	"sort"
	"strings"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

const (
	migrationSetupHours   = 30.0
	migrationHoursPer100  = 10.0
	infrastructureHours   = 60.0
	trainingHandoverHours = 30.0
	pmPercentage          = 0.18
	defaultBuffer         = 0.20
	pessimisticFactor     = 1.3
	hoursPerMonthFactor   = 4.0
)

// EntityType names a row of the hour table.
type EntityType string

const (
	EntityContentType    EntityType = "content_type"
	EntityParagraph      EntityType = "paragraph"
	EntityTaxonomy       EntityType = "taxonomy"
	EntityMediaType      EntityType = "media_type"
	EntityView           EntityType = "view"
	EntityWebform        EntityType = "webform"
	EntityBlock          EntityType = "block"
	EntityCustomModule   EntityType = "custom_module"
	EntityThemeComponent EntityType = "theme_component"
)

var hourTable = map[EntityType]map[domain.Complexity]float64{
	EntityContentType:    {domain.ComplexitySimple: 3, domain.ComplexityMedium: 6, domain.ComplexityComplex: 12},
	EntityParagraph:      {domain.ComplexitySimple: 1.5, domain.ComplexityMedium: 3.5, domain.ComplexityComplex: 6},
	EntityTaxonomy:       {domain.ComplexitySimple: 1.5, domain.ComplexityMedium: 3, domain.ComplexityComplex: 6},
	EntityMediaType:      {domain.ComplexitySimple: 1.5, domain.ComplexityMedium: 3, domain.ComplexityComplex: 3.5},
	EntityView:           {domain.ComplexitySimple: 3, domain.ComplexityMedium: 6, domain.ComplexityComplex: 12},
	EntityWebform:        {domain.ComplexitySimple: 3, domain.ComplexityMedium: 6, domain.ComplexityComplex: 12},
	EntityBlock:          {domain.ComplexitySimple: 1.5, domain.ComplexityMedium: 3, domain.ComplexityComplex: 6},
	EntityCustomModule:   {domain.ComplexitySimple: 12, domain.ComplexityMedium: 28, domain.ComplexityComplex: 70},
	EntityThemeComponent: {domain.ComplexitySimple: 3, domain.ComplexityMedium: 6, domain.ComplexityComplex: 12},
}

var migrationMultipliers = map[domain.Complexity]float64{
	domain.ComplexitySimple:  1.0,
	domain.ComplexityMedium:  2.0,
	domain.ComplexityComplex: 3.5,
}

var bufferPercentages = map[string]float64{
	"low":    0.15,
	"medium": 0.20,
	"high":   0.25,
}

var defaultAssumptions = []string{
	"Requirements are clearly defined",
	"Team has experience with the target platform",
	"Standard development practices followed",
	"No major scope changes expected",
}

var defaultRisks = []string{
	"Requirements may evolve during development",
	"Migration complexity may be higher than assessed",
	"Third-party integrations may require additional effort",
}

// Input is the calculator input: an inventory plus report metadata.
type Input struct {
	ProjectName           string `json:"project_name" yaml:"project_name"`
	domain.AuditInventory `yaml:",inline"`
	Assumptions           []string `json:"assumptions,omitempty" yaml:"assumptions,omitempty"`
	Risks                 []string `json:"risks,omitempty" yaml:"risks,omitempty"`
	AuditDate             string   `json:"audit_date,omitempty" yaml:"audit_date,omitempty"`
}

type EntityEstimate struct {
	Name       string            `json:"name"`
	Type       EntityType        `json:"type"`
	Complexity domain.Complexity `json:"complexity"`
	Hours      float64           `json:"hours"`
}

type AppliedMultiplier struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Hours      float64 `json:"hours"`
}

// Projection is the calendar duration at a given weekly capacity.
type Projection struct {
	Label        string  `json:"label"`
	HoursPerWeek float64 `json:"hours_per_week"`
	Weeks        float64 `json:"weeks"`
	Months       float64 `json:"months"`
}

type Result struct {
	BaseHours       float64             `json:"base_hours"`
	MultiplierHours float64             `json:"multiplier_hours"`
	MigrationHours  float64             `json:"migration_hours"`
	PMHours         float64             `json:"pm_hours"`
	AdditionalHours float64             `json:"additional_hours"`
	Subtotal        float64             `json:"subtotal"`
	RiskLevel       string              `json:"risk_level"`
	BufferPercent   float64             `json:"buffer_percent"`
	BufferHours     float64             `json:"buffer_hours"`
	TotalHours      float64             `json:"total_hours"`
	Breakdown       []EntityEstimate    `json:"breakdown"`
	Multipliers     []AppliedMultiplier `json:"multipliers"`
	Projections     []Projection        `json:"projections"`
	Assumptions     []string            `json:"assumptions"`
	Risks           []string            `json:"risks"`
}

// Pessimistic is the likely total plus thirty percent.
func (r *Result) Pessimistic() float64 {
	return r.TotalHours * pessimisticFactor
}

// Realistic returns the 30h/week projection.
func (r *Result) Realistic() Projection {
	for _, p := range r.Projections {
		if p.HoursPerWeek == 30 {
			return p
		}
	}
	return project("Realistic", 30, r.TotalHours)
}

// Calculate runs the bottom-up estimate.
func Calculate(in Input) *Result {
	inv := in.AuditInventory
	r := &Result{}

	r.Breakdown, r.BaseHours = baseHours(&inv)
	r.Multipliers, r.MultiplierHours = applyMultipliers(r.BaseHours, inv.Multipliers)
	r.MigrationHours = migrationHours(inv.Migration)

	subtotalBeforePM := r.BaseHours + r.MultiplierHours + r.MigrationHours + infrastructureHours + trainingHandoverHours
	r.PMHours = subtotalBeforePM * pmPercentage
	r.AdditionalHours = infrastructureHours + trainingHandoverHours + r.PMHours
	r.Subtotal = subtotalBeforePM + r.PMHours

	r.RiskLevel = normalizeRisk(inv.RiskLevel)
	r.BufferPercent = bufferPercent(r.RiskLevel)
	r.BufferHours = r.Subtotal * r.BufferPercent
	r.TotalHours = r.Subtotal + r.BufferHours

	r.Projections = []Projection{
		project("Full-time", 40, r.TotalHours),
		project("Realistic", 30, r.TotalHours),
		project("Part-time", 20, r.TotalHours),
	}

	r.Assumptions = in.Assumptions
	if len(r.Assumptions) == 0 {
		r.Assumptions = append([]string(nil), defaultAssumptions...)
	}
	r.Risks = in.Risks
	if len(r.Risks) == 0 {
		r.Risks = append([]string(nil), defaultRisks...)
	}
	return r
}

// EntityHours returns the table value, zero for an unknown type or complexity.
func EntityHours(t EntityType, c domain.Complexity) float64 {
	row, ok := hourTable[t]
	if !ok {
		return 0
	}
	return row[normalizeComplexity(c)]
}

func baseHours(inv *domain.AuditInventory) ([]EntityEstimate, float64) {
	groups := []struct {
		t        EntityType
		entities []domain.SiteEntity
	}{
		{EntityContentType, inv.ContentTypes},
		{EntityParagraph, inv.Paragraphs},
		{EntityTaxonomy, inv.Taxonomies},
		{EntityMediaType, inv.MediaTypes},
		{EntityView, inv.Views},
		{EntityWebform, inv.Webforms},
		{EntityBlock, inv.Blocks},
		{EntityCustomModule, inv.CustomModules},
		{EntityThemeComponent, inv.ThemeComponents},
	}

	var (
		breakdown []EntityEstimate
		total     float64
	)
	for _, g := range groups {
		for _, e := range g.entities {
			name := strings.TrimSpace(e.Name)
			if name == "" {
				name = "Unknown"
			}
			c := normalizeComplexity(e.Complexity)
			h := EntityHours(g.t, c)
			breakdown = append(breakdown, EntityEstimate{Name: name, Type: g.t, Complexity: c, Hours: h})
			total += h
		}
	}
	return breakdown, total
}

func applyMultipliers(base float64, multipliers map[string]float64) ([]AppliedMultiplier, float64) {
	names := make([]string, 0, len(multipliers))
	for k := range multipliers {
		names = append(names, k)
	}
	sort.Strings(names)

	applied := make([]AppliedMultiplier, 0, len(names))
	var total float64
	for _, name := range names {
		pct := multipliers[name]
		h := base * pct
		applied = append(applied, AppliedMultiplier{Name: name, Percentage: pct, Hours: h})
		total += h
	}
	return applied, total
}

func migrationHours(m *domain.MigrationScope) float64 {
	if m == nil || m.Nodes <= 0 {
		return 0
	}
	mult, ok := migrationMultipliers[normalizeComplexity(m.Complexity)]
	if !ok {
		mult = migrationMultipliers[domain.ComplexityMedium]
	}
	return migrationSetupHours + float64(m.Nodes)/100*migrationHoursPer100*mult
}

func project(label string, hoursPerWeek, total float64) Projection {
	return Projection{
		Label:        label,
		HoursPerWeek: hoursPerWeek,
		Weeks:        total / hoursPerWeek,
		Months:       total / (hoursPerWeek * hoursPerMonthFactor),
	}
}

func normalizeComplexity(c domain.Complexity) domain.Complexity {
	v := domain.Complexity(strings.ToLower(strings.TrimSpace(string(c))))
	if v == "" {
		return domain.ComplexityMedium
	}
	return v
}

func normalizeRisk(level string) string {
	v := strings.ToLower(strings.TrimSpace(level))
	if v == "" {
		return "medium"
	}
	return v
}

func bufferPercent(level string) float64 {
	if p, ok := bufferPercentages[level]; ok {
		return p
	}
	return defaultBuffer
}
