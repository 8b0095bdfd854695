// Package handler contains HTTP request handlers for linkshelf.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc — a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, form values, JSON body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic — they are the "glue" between HTTP and the services.
package handler

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/service"
)

// The templates are compiled into the binary, so the server has no working
// directory requirements.
//
//go:embed templates/*.html
var templateFS embed.FS

// pageNames lists the templates that fill base.html's "content" block.
var pageNames = []string{"gallery", "admin", "signin", "forbidden"}

var templateFuncs = template.FuncMap{
	"rating": func(r float64) string { return strconv.FormatFloat(r, 'f', 1, 64) + "★" },
}

// PageHandler renders the HTML pages: the public gallery, the sign-in page
// and the allow-listed admin area.
//
// Each page is its own template set (base.html + page.html), because every
// page defines the same "content" block and one set can hold only one
// definition of it.
type PageHandler struct {
	pages      map[string]*template.Template
	links      *service.LinkService
	categories *service.CategoryService
	sessions   *service.AuthService
	logger     *slog.Logger
}

// NewPageHandler parses the embedded templates once. A template error is a
// startup error, not a per-request one.
func NewPageHandler(
	links *service.LinkService,
	categories *service.CategoryService,
	sessions *service.AuthService,
	logger *slog.Logger,
) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/base.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		pages:      pages,
		links:      links,
		categories: categories,
		sessions:   sessions,
		logger:     logger,
	}, nil
}

// pageMeta is shared by every page: base.html uses it for the title and the
// sign-in / sign-out navigation.
type pageMeta struct {
	Title    string
	Identity *auth.Identity
	Allowed  bool
}

type galleryPage struct {
	pageMeta
	Links      []model.Link
	Categories []model.Category
	Search     string
	Selected   map[string]bool
	Sort       model.SortKey
	Sorts      []model.SortKey
}

type adminPage struct {
	pageMeta
	Links      []model.Link
	Categories []model.Category
	Message    string
	Error      string
	Form       model.CreateLinkInput
}

type signInPage struct {
	pageMeta
	LoginURL string
}

func (h *PageHandler) meta(r *http.Request, title string) pageMeta {
	m := pageMeta{Title: title}
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		m.Identity = &id
		m.Allowed = h.sessions.Profile(id).Allowed
	}
	return m
}

// render executes the "base" template of the named page.
func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := h.pages[name]
	if !ok {
		h.logger.Error("unknown page template", slog.String("page", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		// The status line is already sent; all we can do is log.
		h.logger.Error("failed to render template",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
	}
}

// HandleGallery serves the public collection.
//
// HTTP: GET /?q=go&category=dev&sort=rating
//
// The full list is loaded once (and cached) and then refined in memory, so
// typing in the search box never costs a database query per keystroke.
func (h *PageHandler) HandleGallery(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	search := strings.TrimSpace(v.Get("q"))
	selected := splitCategories(v["category"])
	sortKey := model.ParseSortKey(v.Get("sort"))

	data := galleryPage{
		pageMeta:   h.meta(r, "linkshelf"),
		Links:      h.links.Browse(r.Context(), search, selected, sortKey),
		Categories: h.categories.ListCategories(r.Context()),
		Search:     search,
		Selected:   make(map[string]bool, len(selected)),
		Sort:       sortKey,
		Sorts:      []model.SortKey{model.SortName, model.SortDate, model.SortCategory, model.SortRating},
	}
	for _, id := range selected {
		data.Selected[id] = true
	}
	h.render(w, http.StatusOK, "gallery", data)
}

// HandleSignIn shows the "Sign in with GitHub" page.
//
// HTTP: GET /sign-in?next=/admin
//
// Visitors who already have a session go straight to next.
func (h *PageHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if !isLocalPath(next) {
		next = "/"
	}
	if _, ok := auth.IdentityFromContext(r.Context()); ok {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	h.render(w, http.StatusOK, "signin", signInPage{
		pageMeta: h.meta(r, "Sign in · linkshelf"),
		LoginURL: "/auth/github/login?next=" + url.QueryEscape(next),
	})
}

// HandleForbidden renders the unauthorized state for signed-in users who
// are not on the allow-list. It is passed to auth.RequireAllowed.
func (h *PageHandler) HandleForbidden(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusForbidden, "forbidden", h.meta(r, "Not allowed · linkshelf"))
}

// HandleAdmin lists every link with edit and delete forms, plus the create
// form.
//
// HTTP: GET /admin?msg=Link+created
func (h *PageHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, r, http.StatusOK, adminPage{
		Message: r.URL.Query().Get("msg"),
		Error:   r.URL.Query().Get("err"),
	})
}

func (h *PageHandler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, data adminPage) {
	data.pageMeta = h.meta(r, "Admin · linkshelf")
	data.Links = h.links.Browse(r.Context(), "", nil, model.SortName)
	data.Categories = h.categories.ListCategories(r.Context())
	h.render(w, status, "admin", data)
}

// HandleAdminCreate handles the create form.
//
// HTTP: POST /admin/links
//
// POST-REDIRECT-GET: on success the browser is redirected to /admin, so a
// page refresh does not submit the form twice. On failure the form is shown
// again with the user's input and the error.
func (h *PageHandler) HandleAdminCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in := model.CreateLinkInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		URL:         r.PostFormValue("url"),
		CategoryID:  r.PostFormValue("categoryId"),
		FaviconURL:  r.PostFormValue("faviconUrl"),
	}
	rating, err := formRating(r.PostFormValue("rating"))
	if err == nil {
		in.Rating = rating
		_, err = h.links.CreateLink(r.Context(), in)
	}
	if err != nil {
		status, _ := statusFor(err)
		h.renderAdmin(w, r, status, adminPage{Error: pageMessage(err), Form: in})
		return
	}

	redirectAdmin(w, r, "msg", "Link created")
}

// HandleAdminUpdate handles the per-row edit form.
//
// HTTP: POST /admin/links/{id}
//
// HTML forms cannot send PATCH, so the edit form posts here. Every field the
// form sent is applied; an empty favicon field means "keep or derive".
func (h *PageHandler) HandleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in, err := formUpdate(r.PostForm)
	if err == nil {
		_, err = h.links.UpdateLink(r.Context(), chi.URLParam(r, "id"), in)
	}
	if err != nil {
		redirectAdmin(w, r, "err", pageMessage(err))
		return
	}
	redirectAdmin(w, r, "msg", "Link updated")
}

// HandleAdminDelete handles the per-row delete button.
//
// HTTP: POST /admin/links/{id}/delete
func (h *PageHandler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.links.DeleteLink(r.Context(), chi.URLParam(r, "id")); err != nil {
		redirectAdmin(w, r, "err", pageMessage(err))
		return
	}
	redirectAdmin(w, r, "msg", "Link deleted")
}

func redirectAdmin(w http.ResponseWriter, r *http.Request, key, message string) {
	http.Redirect(w, r, "/admin?"+key+"="+url.QueryEscape(message), http.StatusSeeOther)
}

// pageMessage is the text shown in the admin flash. Internal details never
// reach the page.
func pageMessage(err error) string {
	if status, _ := statusFor(err); status == http.StatusInternalServerError {
		return "Something went wrong, please try again"
	}
	return apperror.UserMessage(err)
}

// formRating parses the rating field. An empty field means 0.
func formRating(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	r, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("rating", "rating must be a number")
	}
	return r, nil
}

// formUpdate turns the fields present in an edit form into an
// UpdateLinkInput.
func formUpdate(form url.Values) (model.UpdateLinkInput, error) {
	var in model.UpdateLinkInput
	field := func(name string) *string {
		if _, ok := form[name]; !ok {
			return nil
		}
		v := form.Get(name)
		return &v
	}

	in.Name = field("name")
	in.Description = field("description")
	in.URL = field("url")
	in.CategoryID = field("categoryId")
	if fav := field("faviconUrl"); fav != nil && strings.TrimSpace(*fav) != "" {
		in.FaviconURL = fav
	}
	if raw := field("rating"); raw != nil {
		r, err := formRating(*raw)
		if err != nil {
			return in, err
		}
		in.Rating = &r
	}
	return in, nil
}
