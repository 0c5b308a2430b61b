package audit

import (
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

const maxContentTypes = 15

type category int

const (
	catContentType category = iota
	catParagraph
	catTaxonomy
	catMedia
	catView
	catWebform
	catBlock
	catCustomModule
	catTheme
	numCategories
)

var documentExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".zip": true, ".odt": true,
}

var taxonomyMarkers = map[string]string{
	"tag": "Tags", "tags": "Tags", "schlagwort": "Tags",
	"category": "Categories", "categories": "Categories", "kategorie": "Categories",
	"topic": "Topics", "topics": "Topics", "thema": "Topics", "themen": "Topics",
}

var socialHosts = []string{"facebook.com", "twitter.com", "x.com", "linkedin.com", "instagram.com", "youtube.com", "xing.com", "mastodon"}

type classMarker struct {
	token      string
	cat        category
	name       string
	complexity domain.Complexity
}

var classMarkers = []classMarker{
	{"carousel", catTheme, "Slider", domain.ComplexityMedium},
	{"slider", catTheme, "Slider", domain.ComplexityMedium},
	{"swiper", catTheme, "Slider", domain.ComplexityMedium},
	{"accordion", catParagraph, "Accordion", domain.ComplexitySimple},
	{"tabs", catParagraph, "Tabs", domain.ComplexitySimple},
	{"hero", catParagraph, "Hero", domain.ComplexitySimple},
	{"teaser", catParagraph, "Teaser", domain.ComplexitySimple},
	{"card", catParagraph, "Teaser", domain.ComplexitySimple},
	{"pagination", catView, "Listing", domain.ComplexityMedium},
	{"pager", catView, "Listing", domain.ComplexityMedium},
	{"breadcrumb", catBlock, "Breadcrumb", domain.ComplexitySimple},
	{"newsletter", catBlock, "Newsletter signup", domain.ComplexitySimple},
}

type scriptMarker struct {
	token      string
	cat        category
	name       string
	complexity domain.Complexity
}

var scriptMarkers = []scriptMarker{
	{"maps.googleapis", catCustomModule, "Map integration", domain.ComplexityMedium},
	{"leaflet", catCustomModule, "Map integration", domain.ComplexityMedium},
	{"openstreetmap", catCustomModule, "Map integration", domain.ComplexityMedium},
	{"recaptcha", catCustomModule, "Spam protection", domain.ComplexitySimple},
	{"hcaptcha", catCustomModule, "Spam protection", domain.ComplexitySimple},
	{"cookiebot", catTheme, "Cookie consent", domain.ComplexitySimple},
	{"onetrust", catTheme, "Cookie consent", domain.ComplexitySimple},
	{"usercentrics", catTheme, "Cookie consent", domain.ComplexitySimple},
	{"shopify", catCustomModule, "E-commerce", domain.ComplexityComplex},
	{"woocommerce", catCustomModule, "E-commerce", domain.ComplexityComplex},
}

type registry struct {
	order []string
	level map[string]domain.Complexity
}

func (r *registry) add(name string, c domain.Complexity) {
	if r.level == nil {
		r.level = map[string]domain.Complexity{}
	}
	prev, ok := r.level[name]
	if !ok {
		r.order = append(r.order, name)
		r.level[name] = c
		return
	}
	if rank(c) > rank(prev) {
		r.level[name] = c
	}
}

func (r *registry) entities() []domain.SiteEntity {
	out := make([]domain.SiteEntity, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, domain.SiteEntity{Name: n, Complexity: r.level[n]})
	}
	return out
}

// Signals is what the heuristic saw on one or more pages of a site.
type Signals struct {
	Title string

	host      string
	found     [numCategories]registry
	paths     map[string]bool
	navOrder  []string
	navSeen   map[string]bool
	segments  map[string]map[string]bool
	segOrder  []string
	languages map[string]bool
	forms     int
}

func newSignals(base *url.URL) *Signals {
	return &Signals{
		host:      hostKey(base.Host),
		paths:     map[string]bool{},
		navSeen:   map[string]bool{},
		segments:  map[string]map[string]bool{},
		languages: map[string]bool{},
	}
}

// Inspect classifies a rendered page. Unparseable markup yields empty signals.
func Inspect(page string, base *url.URL) *Signals {
	s := newSignals(base)
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return s
	}
	s.walk(doc, base, 0)
	return s
}

func (s *Signals) walk(n *html.Node, base *url.URL, navDepth int) {
	if n.Type == html.ElementNode {
		s.classify(n)
		switch n.Data {
		case "title":
			if s.Title == "" && n.FirstChild != nil {
				s.Title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "html":
			if lang := attr(n, "lang"); lang != "" {
				s.languages[strings.ToLower(lang[:min(2, len(lang))])] = true
			}
		case "link":
			if hl := strings.ToLower(attr(n, "hreflang")); hl != "" && hl != "x-default" {
				s.languages[hl[:min(2, len(hl))]] = true
			}
		case "nav":
			s.found[catTheme].add("Main navigation", navComplexity(countLinks(n)))
			navDepth++
		case "header":
			s.found[catTheme].add("Header", domain.ComplexitySimple)
			navDepth++
		case "footer":
			s.found[catTheme].add("Footer", domain.ComplexitySimple)
		case "aside":
			s.found[catBlock].add("Sidebar", domain.ComplexitySimple)
		case "form":
			s.form(n)
		case "a":
			s.link(n, base, navDepth > 0)
		case "img":
			s.found[catMedia].add("Image", domain.ComplexitySimple)
		case "video":
			s.found[catMedia].add("Video", domain.ComplexityMedium)
		case "audio":
			s.found[catMedia].add("Audio", domain.ComplexitySimple)
		case "iframe":
			s.iframe(attr(n, "src"))
		case "script":
			s.script(attr(n, "src"))
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.walk(c, base, navDepth)
	}
}

func (s *Signals) classify(n *html.Node) {
	class := strings.ToLower(attr(n, "class"))
	if attr(n, "rel") == "next" {
		s.found[catView].add("Listing", domain.ComplexityMedium)
	}
	if class == "" {
		return
	}
	for _, tok := range strings.Fields(class) {
		for _, m := range classMarkers {
			if strings.Contains(tok, m.token) {
				s.found[m.cat].add(m.name, m.complexity)
			}
		}
	}
}

func (s *Signals) form(n *html.Node) {
	fields, password, search, upload := 0, false, false, false
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.ElementNode {
			switch c.Data {
			case "input":
				switch strings.ToLower(attr(c, "type")) {
				case "hidden", "submit", "button", "reset", "image":
				case "password":
					password = true
					fields++
				case "search":
					search = true
					fields++
				case "file":
					upload = true
					fields++
				default:
					fields++
				}
			case "select", "textarea":
				fields++
			}
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			visit(ch)
		}
	}
	visit(n)

	switch {
	case password:
		s.found[catCustomModule].add("User accounts", domain.ComplexityComplex)
		return
	case search || attr(n, "role") == "search":
		s.found[catView].add("Search", domain.ComplexityMedium)
		return
	}

	s.forms++
	name := firstNonEmpty(attr(n, "aria-label"), attr(n, "name"), attr(n, "id"))
	if name == "" {
		name = "Form " + strconv.Itoa(s.forms)
	}
	c := formComplexity(fields)
	if upload && c == domain.ComplexitySimple {
		c = domain.ComplexityMedium
	}
	s.found[catWebform].add(name, c)
}

func (s *Signals) link(n *html.Node, base *url.URL, inNav bool) {
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "javascript:") {
		return
	}
	u, err := base.Parse(href)
	if err != nil {
		return
	}
	if hostKey(u.Host) != s.host {
		for _, h := range socialHosts {
			if strings.Contains(u.Host, h) {
				s.found[catBlock].add("Social links", domain.ComplexitySimple)
				break
			}
		}
		return
	}
	if documentExts[strings.ToLower(path.Ext(u.Path))] {
		s.found[catMedia].add("Document", domain.ComplexitySimple)
		return
	}

	p := strings.TrimSuffix(u.Path, "/")
	if p == "" {
		p = "/"
	}
	s.paths[p] = true

	parts := strings.Split(strings.Trim(p, "/"), "/")
	seg := strings.ToLower(parts[0])
	if name, ok := taxonomyMarkers[seg]; ok {
		s.found[catTaxonomy].add(name, domain.ComplexitySimple)
		return
	}
	for _, part := range parts[1:] {
		if name, ok := taxonomyMarkers[strings.ToLower(part)]; ok {
			s.found[catTaxonomy].add(name, domain.ComplexitySimple)
		}
	}
	if seg != "" {
		if s.segments[seg] == nil {
			s.segments[seg] = map[string]bool{}
			s.segOrder = append(s.segOrder, seg)
		}
		s.segments[seg][p] = true
	}

	if inNav && p != "/" {
		u.Fragment, u.RawQuery = "", ""
		abs := u.String()
		if !s.navSeen[abs] {
			s.navSeen[abs] = true
			s.navOrder = append(s.navOrder, abs)
		}
	}
}

func (s *Signals) iframe(src string) {
	src = strings.ToLower(src)
	switch {
	case src == "":
	case strings.Contains(src, "youtube") || strings.Contains(src, "vimeo"):
		s.found[catMedia].add("Remote video", domain.ComplexitySimple)
	case strings.Contains(src, "maps"):
		s.found[catCustomModule].add("Map integration", domain.ComplexityMedium)
	default:
		s.found[catParagraph].add("Embedded content", domain.ComplexityMedium)
	}
}

func (s *Signals) script(src string) {
	src = strings.ToLower(src)
	if src == "" {
		return
	}
	for _, m := range scriptMarkers {
		if strings.Contains(src, m.token) {
			s.found[m.cat].add(m.name, m.complexity)
		}
	}
}

// SampleLinks returns up to n distinct internal navigation links in document order.
func (s *Signals) SampleLinks(n int) []string {
	if n <= 0 {
		return nil
	}
	if len(s.navOrder) < n {
		n = len(s.navOrder)
	}
	return append([]string(nil), s.navOrder[:n]...)
}

// Merge folds the signals of another page of the same site into s.
func (s *Signals) Merge(o *Signals) {
	for i := range o.found {
		for _, name := range o.found[i].order {
			s.found[i].add(name, o.found[i].level[name])
		}
	}
	for p := range o.paths {
		s.paths[p] = true
	}
	for _, seg := range o.segOrder {
		if s.segments[seg] == nil {
			s.segments[seg] = map[string]bool{}
			s.segOrder = append(s.segOrder, seg)
		}
		for p := range o.segments[seg] {
			s.segments[seg][p] = true
		}
	}
	for l := range o.languages {
		s.languages[l] = true
	}
}

// Inventory turns the collected signals into the auditor output.
func (s *Signals) Inventory(siteURL string, pages int) *domain.AuditInventory {
	inv := &domain.AuditInventory{
		URL:             siteURL,
		Title:           s.Title,
		ContentTypes:    s.contentTypes(),
		Paragraphs:      s.found[catParagraph].entities(),
		Taxonomies:      s.found[catTaxonomy].entities(),
		MediaTypes:      s.found[catMedia].entities(),
		Views:           s.found[catView].entities(),
		Webforms:        s.found[catWebform].entities(),
		Blocks:          s.found[catBlock].entities(),
		CustomModules:   s.found[catCustomModule].entities(),
		ThemeComponents: s.found[catTheme].entities(),
		PageCount:       pages,
	}

	multilingual := len(s.languages) > 1
	if multilingual {
		inv.Multipliers = map[string]float64{"multilingual": 0.3}
	}

	if n := len(s.paths); n > 0 {
		c := domain.ComplexitySimple
		if multilingual || hasLevel(inv.ContentTypes, domain.ComplexityComplex) {
			c = domain.ComplexityMedium
		}
		inv.Migration = &domain.MigrationScope{Nodes: n, Complexity: c}
	}

	inv.RiskLevel = riskLevel(inv)
	return inv
}

func (s *Signals) contentTypes() []domain.SiteEntity {
	var r registry
	if len(s.paths) > 0 {
		r.add("Basic page", domain.ComplexitySimple)
	}
	segs := append([]string(nil), s.segOrder...)
	sort.SliceStable(segs, func(i, j int) bool {
		return len(s.segments[segs[i]]) > len(s.segments[segs[j]])
	})
	for _, seg := range segs {
		if len(r.order) >= maxContentTypes {
			break
		}
		n := len(s.segments[seg])
		if n < 2 {
			continue
		}
		r.add(titleize(seg), segmentComplexity(n))
	}
	return r.entities()
}

func riskLevel(inv *domain.AuditInventory) string {
	switch {
	case len(inv.CustomModules) >= 3 || hasLevel(inv.CustomModules, domain.ComplexityComplex):
		return "high"
	case len(inv.CustomModules) == 0 && inv.EntityCount() < 8:
		return "low"
	default:
		return "medium"
	}
}

func formComplexity(fields int) domain.Complexity {
	switch {
	case fields > 10:
		return domain.ComplexityComplex
	case fields > 4:
		return domain.ComplexityMedium
	default:
		return domain.ComplexitySimple
	}
}

func navComplexity(links int) domain.Complexity {
	switch {
	case links > 30:
		return domain.ComplexityComplex
	case links > 10:
		return domain.ComplexityMedium
	default:
		return domain.ComplexitySimple
	}
}

func segmentComplexity(pages int) domain.Complexity {
	switch {
	case pages >= 10:
		return domain.ComplexityComplex
	case pages >= 3:
		return domain.ComplexityMedium
	default:
		return domain.ComplexitySimple
	}
}

func rank(c domain.Complexity) int {
	switch c {
	case domain.ComplexityComplex:
		return 2
	case domain.ComplexityMedium:
		return 1
	default:
		return 0
	}
}

func hasLevel(es []domain.SiteEntity, c domain.Complexity) bool {
	for _, e := range es {
		if e.Complexity == c {
			return true
		}
	}
	return false
}

func countLinks(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "a" {
			count++
		}
		count += countLinks(c)
	}
	return count
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hostKey(h string) string {
	return strings.TrimPrefix(strings.ToLower(h), "www.")
}

func titleize(seg string) string {
	seg = strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	words := strings.Fields(seg)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
