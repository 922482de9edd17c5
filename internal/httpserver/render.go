package httpserver

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/bakery_shop/internal/identity"
	"github.com/Skotchmaster/bakery_shop/internal/middleware/auth"
	"github.com/Skotchmaster/bakery_shop/internal/middleware/csrf"
	"github.com/Skotchmaster/bakery_shop/internal/models"
)

var pageNames = []string{
	"index", "category", "product", "search", "wishlist",
	"payment", "receipt", "signin", "signup", "error",
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

// Renderer executes one template set per page, each sharing the layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(fsys, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// view is what every page template receives; Data is page specific.
type view struct {
	User  *identity.User
	CSRF  string
	Flash string
	Data  any
}

type cardList struct {
	Products []models.Product
	CSRF     string
	SignedIn bool
}

func (v view) Cards(products []models.Product) cardList {
	return cardList{Products: products, CSRF: v.CSRF, SignedIn: v.User != nil}
}

// site holds what HTML handlers share.
type site struct {
	CookieSecure bool
}

func (s site) render(c echo.Context, code int, name string, data any) error {
	v := view{CSRF: csrf.Token(c), Flash: s.takeFlash(c), Data: data}
	if u, ok := auth.CurrentUser(c); ok {
		v.User = &u
	}
	return c.Render(code, name, v)
}
