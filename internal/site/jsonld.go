package site

import (
	"encoding/json"
	"html/template"
	"strings"

	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/domain/siteconfig"
)

// LegalService builds the schema.org LegalService object describing the firm.
// Empty properties are omitted.
func LegalService(cfg siteconfig.SiteConfig, baseURL string) map[string]any {
	doc := map[string]any{
		"@context": "https://schema.org",
		"@type":    "LegalService",
		"name":     cfg.SiteName,
	}
	if baseURL != "" {
		doc["url"] = baseURL
		doc["@id"] = strings.TrimRight(baseURL, "/") + "/#organization"
	}
	setIf(doc, "description", cfg.Tagline)
	setIf(doc, "telephone", cfg.Contact.Phone)
	setIf(doc, "faxNumber", cfg.Contact.Fax)
	setIf(doc, "email", cfg.Contact.Email)
	if logo := cfg.Theme.LogoURL; logo != "" {
		if strings.HasPrefix(logo, "/") && baseURL != "" {
			if abs, err := ids.BuildURL(baseURL, logo); err == nil {
				logo = abs
			}
		}
		doc["logo"] = logo
		doc["image"] = logo
	}

	a := cfg.Contact.Address
	if a.Street != "" || a.City != "" {
		addr := map[string]any{"@type": "PostalAddress"}
		setIf(addr, "streetAddress", a.Street)
		setIf(addr, "addressLocality", a.City)
		setIf(addr, "addressRegion", a.Region)
		setIf(addr, "postalCode", a.PostalCode)
		setIf(addr, "addressCountry", a.Country)
		doc["address"] = addr
	}
	if cfg.Contact.HasCoordinates() {
		doc["geo"] = map[string]any{
			"@type":     "GeoCoordinates",
			"latitude":  *cfg.Contact.Latitude,
			"longitude": *cfg.Contact.Longitude,
		}
	}
	if len(cfg.Contact.OfficeHours) > 0 {
		doc["openingHours"] = cfg.Contact.OfficeHours
	}
	if len(cfg.Social) > 0 {
		sameAs := make([]string, 0, len(cfg.Social))
		for _, s := range cfg.Social {
			sameAs = append(sameAs, s.URL)
		}
		doc["sameAs"] = sameAs
	}
	return doc
}

// jsonLDScript encodes v for a <script type="application/ld+json"> block.
// encoding/json escapes <, > and &, so the output cannot close the script.
func jsonLDScript(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

func setIf(m map[string]any, key, value string) {
	if strings.TrimSpace(value) != "" {
		m[key] = value
	}
}
