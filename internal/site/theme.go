package site

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/counselcms/server/internal/domain/siteconfig"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

var defaultTheme = siteconfig.Default().Theme

// ThemeCSS renders the theme as CSS custom properties on :root. Values that
// fail validation fall back to the defaults.
func ThemeCSS(theme siteconfig.Theme) template.CSS {
	color := func(v, fallback string) string {
		if hexColor.MatchString(v) {
			return v
		}
		return fallback
	}
	font := strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '\\', '\n', '\r':
			return -1
		}
		return r
	}, theme.FontFamily)
	if strings.TrimSpace(font) == "" {
		font = defaultTheme.FontFamily
	}
	css := fmt.Sprintf(":root{--color-primary:%s;--color-secondary:%s;--color-accent:%s;--font-family:%s}",
		color(theme.PrimaryColor, defaultTheme.PrimaryColor),
		color(theme.SecondaryColor, defaultTheme.SecondaryColor),
		color(theme.AccentColor, defaultTheme.AccentColor),
		font,
	)
	return template.CSS(css)
}
