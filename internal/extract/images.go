package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// A product photo URL is never this short; anything below is an icon or
// a template fragment.
const minImageURLLength = 20

var (
	cdnURLPattern         = regexp.MustCompile(`(?i)https?://[a-z0-9.-]*alicdn\.com/[^\s"'<>\\)]+`)
	cdnRelativeURLPattern = regexp.MustCompile(`(?i)//[a-z0-9.-]*alicdn\.com/[^\s"'<>\\)]+`)
	trailingJunkPattern   = regexp.MustCompile(`[,;}\]"]+$`)
	imageExtPattern       = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)(\?|$|_|\.)`)
	urlTokenPattern       = regexp.MustCompile(`(?i)(https?://|//)[^\s"',\\]+`)
	markdownImagePattern  = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)

	jsonImagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)"imageUrl"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)"image"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)"imagePathList"\s*:\s*\[([^\]]+)\]`),
		regexp.MustCompile(`(?i)"images"\s*:\s*\[([^\]]+)\]`),
		regexp.MustCompile(`(?i)imageUrl['"]\s*:\s*['"]([^'"]+)['"]`),
	}

	// Non-product image signifiers: site chrome, tracking pixels,
	// social badges, tiny thumbnails, and the CDN hosts that only ever
	// serve static assets.
	imageDenylist = []*regexp.Regexp{
		regexp.MustCompile(`(?i)avatar`),
		regexp.MustCompile(`(?i)icon`),
		regexp.MustCompile(`(?i)logo`),
		regexp.MustCompile(`(?i)sprite`),
		regexp.MustCompile(`(?i)placeholder`),
		regexp.MustCompile(`(?i)loading`),
		regexp.MustCompile(`(?i)blank`),
		regexp.MustCompile(`(?i)transparent`),
		regexp.MustCompile(`(?i)pixel`),
		regexp.MustCompile(`(?i)spacer`),
		regexp.MustCompile(`(?i)flag`),
		regexp.MustCompile(`(?i)badge`),
		regexp.MustCompile(`(?i)button`),
		regexp.MustCompile(`(?i)banner`),
		regexp.MustCompile(`(?i)bg[-_]`),
		regexp.MustCompile(`(?i)background`),
		regexp.MustCompile(`(?i)assets/img`),
		regexp.MustCompile(`(?i)static/images`),
		regexp.MustCompile(`(?i)s\.alicdn\.com`),
		regexp.MustCompile(`(?i)g\.alicdn\.com`),
		regexp.MustCompile(`(?i)gw\.alicdn\.com`),
		regexp.MustCompile(`(?i)laz-img-cdn`),
		regexp.MustCompile(`(?i)facebook`),
		regexp.MustCompile(`(?i)twitter`),
		regexp.MustCompile(`(?i)google`),
		regexp.MustCompile(`(?i)pinterest`),
		regexp.MustCompile(`(?i)_16x16`),
		regexp.MustCompile(`(?i)_20x20`),
		regexp.MustCompile(`(?i)_24x24`),
		regexp.MustCompile(`(?i)_32x32`),
		regexp.MustCompile(`(?i)_40x40`),
		regexp.MustCompile(`(?i)_48x48`),
		regexp.MustCompile(`(?i)_50x50`),
		regexp.MustCompile(`(?i)_60x60`),
		regexp.MustCompile(`(?i)_64x64`),
	}

	imageAttrs = []string{"src", "data-src", "data-lazy-src", "data-magnifier-src", "data-zoom-src"}

	resolutionSuffixPattern = regexp.MustCompile(`(?i)_\d+x\d+(\.(?:jpg|jpeg|png|webp))`)
	qualitySuffixPattern    = regexp.MustCompile(`(?i)_Q\d+`)
	extTailPattern          = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)_[^\s"'<>]*`)
	webpWrapperPattern      = regexp.MustCompile(`(?i)\.(jpg|jpeg|png)\.webp`)
	bareResolutionPattern   = regexp.MustCompile(`(?i)_\d+x\d+`)
	doubleExtPattern        = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)\.(?:jpg|jpeg|png|webp)`)

	jsonEscapeReplacer = strings.NewReplacer(
		"\\u002F", "/", "\\u002f", "/",
		"\\u003A", ":", "\\u003a", ":",
		`\/`, "/",
	)
)

// imageSet is the candidate pool threaded through every collection
// pass. Candidates are validated, upgraded to native resolution and
// deduplicated on the way in; insertion order is preserved.
type imageSet struct {
	seen map[string]struct{}
	urls []string
}

func newImageSet() *imageSet {
	return &imageSet{seen: make(map[string]struct{})}
}

func (s *imageSet) add(raw string) {
	u := normalizeImageURL(trailingJunkPattern.ReplaceAllString(raw, ""))
	if !validProductImage(u) {
		return
	}
	u = UpgradeToMaxResolution(u)
	if _, ok := s.seen[u]; ok {
		return
	}
	s.seen[u] = struct{}{}
	s.urls = append(s.urls, u)
}

func (s *imageSet) list() []string {
	if s.urls == nil {
		return []string{}
	}
	return s.urls
}

// Images scans every independent surface of a scrape for product photo
// URLs. Over-inclusion is preferred to under-inclusion: a stray
// non-product image is a cheaper mistake than a missing product photo,
// and the denylist catches the worst offenders.
func Images(html, markdown string, links []string, metadata map[string]any) []string {
	set := newImageSet()
	content := html + " " + markdown

	collectCDNURLs(set, content)
	collectAttrImages(set, html)
	// Inline <script> JSON blobs escape slashes; a second pass over the
	// unescaped text catches those URLs.
	collectCDNURLs(set, jsonEscapeReplacer.Replace(content))
	collectJSONArrayImages(set, content)
	collectMarkdownImages(set, markdown)
	collectLinkImages(set, links)
	collectMetadataImages(set, metadata)

	return set.list()
}

func collectCDNURLs(set *imageSet, content string) {
	for _, pattern := range []*regexp.Regexp{cdnURLPattern, cdnRelativeURLPattern} {
		for _, raw := range pattern.FindAllString(content, -1) {
			if looksLikeImagePath(raw) {
				set.add(raw)
			}
		}
	}
}

// collectAttrImages queries src and lazy-load attributes directly off
// the DOM, which beats regex for anything the provider returned as real
// markup.
func collectAttrImages(set *imageSet, html string) {
	if html == "" {
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}
	for _, attr := range imageAttrs {
		doc.Find("[" + attr + "]").Each(func(_ int, sel *goquery.Selection) {
			if v, ok := sel.Attr(attr); ok && strings.Contains(v, "alicdn.com") {
				set.add(v)
			}
		})
	}
}

func collectJSONArrayImages(set *imageSet, content string) {
	for _, pattern := range jsonImagePatterns {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			for _, token := range urlTokenPattern.FindAllString(m[1], -1) {
				token = jsonEscapeReplacer.Replace(token)
				if strings.Contains(token, "alicdn.com") {
					set.add(token)
				}
			}
		}
	}
}

func collectMarkdownImages(set *imageSet, markdown string) {
	for _, m := range markdownImagePattern.FindAllStringSubmatch(markdown, -1) {
		if strings.Contains(m[1], "alicdn.com") {
			set.add(m[1])
		}
	}
}

func collectLinkImages(set *imageSet, links []string) {
	for _, link := range links {
		if strings.Contains(link, "alicdn.com") {
			set.add(link)
		}
	}
}

func collectMetadataImages(set *imageSet, metadata map[string]any) {
	if og := metaString(metadata, "ogImage"); og != "" {
		set.add(og)
	}
	// The metadata object nests arbitrarily; scanning its serialized
	// form is simpler than walking it.
	if raw, err := json.Marshal(metadata); err == nil {
		collectCDNURLs(set, jsonEscapeReplacer.Replace(string(raw)))
	}
}

func looksLikeImagePath(u string) bool {
	return strings.Contains(u, "/kf/") || strings.Contains(u, "/imgextra/") || imageExtPattern.MatchString(u)
}

func normalizeImageURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	if strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func validProductImage(u string) bool {
	if len(u) < minImageURLLength {
		return false
	}
	if !looksLikeImagePath(u) {
		return false
	}
	for _, pattern := range imageDenylist {
		if pattern.MatchString(u) {
			return false
		}
	}
	return true
}

// UpgradeToMaxResolution strips the resize/quality/format-conversion
// suffixes the CDN appends for thumbnails, so the same asset is fetched
// at native resolution. Idempotent.
func UpgradeToMaxResolution(u string) string {
	u = resolutionSuffixPattern.ReplaceAllString(u, "$1")
	u = qualitySuffixPattern.ReplaceAllString(u, "")
	u = extTailPattern.ReplaceAllString(u, ".$1")
	u = webpWrapperPattern.ReplaceAllString(u, ".$1")
	u = bareResolutionPattern.ReplaceAllString(u, "")
	u = doubleExtPattern.ReplaceAllString(u, ".$1")
	return u
}
