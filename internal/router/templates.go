package router

import (
	"fmt"
	"html/template"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/multitemplate"
)

// Views lists every page template by the name handlers render it under.
var Views = []string{
	"home.html",
	"page.html",
	"error.html",
	"auth/login.html",
	"report/new.html",
	"report/success.html",
	"report/track.html",
	"provider/directory.html",
	"provider/register.html",
	"dashboard/index.html",
	"dashboard/report.html",
	"admin/providers.html",
	"admin/provider.html",
}

func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"timeAgo": timeAgo,
		// missing map keys arrive as nil instead of failing the builtin eq
		"eq": func(a, b interface{}) bool {
			return a == b
		},
		"date": func(t time.Time) string {
			return t.Format("2 Jan 2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("2 Jan 2006 15:04")
		},
		"deref": func(p interface{}) interface{} {
			switch v := p.(type) {
			case *float64:
				if v != nil {
					return *v
				}
			case *string:
				if v != nil {
					return *v
				}
			case *time.Time:
				if v != nil {
					return *v
				}
			}
			return nil
		},
		"lower": strings.ToLower,
		"str": func(v interface{}) string {
			return fmt.Sprint(v)
		},
		"urlquery": func(s string) string {
			return url.QueryEscape(s)
		},
	}
}

func timeAgo(t time.Time) string {
	seconds := int(time.Since(t).Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 2592000:
		return plural(seconds/86400, "day")
	case seconds < 31536000:
		return plural(seconds/2592000, "month")
	}
	return plural(seconds/31536000, "year")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// LoadTemplates builds one template set per view: layouts and components
// first, then the view itself.
func LoadTemplates(templatesDir string) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(filepath.Join(templatesDir, "layouts", "*.html"))
	if err != nil {
		return nil, err
	}
	components, err := filepath.Glob(filepath.Join(templatesDir, "components", "*.html"))
	if err != nil {
		return nil, err
	}

	funcMap := TemplateFuncs()
	for _, view := range Views {
		files := make([]string, 0, len(layouts)+len(components)+1)
		files = append(files, layouts...)
		files = append(files, components...)
		files = append(files, filepath.Join(templatesDir, "views", filepath.FromSlash(view)))
		r.AddFromFilesFuncs(view, funcMap, files...)
	}
	return r, nil
}
