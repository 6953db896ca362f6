package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var churchSlugRegex = regexp.MustCompile(`^[a-z0-9-]{3,48}$`)

var reservedChurchSlugs = map[string]struct{}{
	"admin":    {},
	"api":      {},
	"auth":     {},
	"settings": {},
	"churches": {},
	"branches": {},
	"users":    {},
	"requests": {},
	"souls":    {},
	"reports":  {},
	"audit":    {},
	"swagger":  {},
	"metrics":  {},
	"login":    {},
	"register": {},
	"me":       {},
}

// ValidateSlug validates church slug format and reserved names.
func ValidateSlug(slug string) error {
	if !churchSlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 3-48 characters and contain only lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}

	if _, exists := reservedChurchSlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 48 {
		slug = strings.Trim(slug[:48], "-")
	}
	return slug
}
