package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/service"
)

// LinkHandler serves the JSON API for links.
//
// The handler never touches the database. It parses the request, calls the
// LinkService and turns the result (or the domain error) into JSON.
type LinkHandler struct {
	links  *service.LinkService
	logger *slog.Logger
}

// NewLinkHandler creates a LinkHandler.
func NewLinkHandler(links *service.LinkService, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{links: links, logger: logger}
}

// HandleList returns one page of links.
//
// HTTP: GET /api/links?page=2&pageSize=12&q=go&category=dev&category=web&sort=rating
//
// Malformed numbers are treated as absent and clamped by the service, so a
// listing request never fails on its parameters.
func (h *LinkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.links.ListLinks(r.Context(), parseLinkQuery(r.URL.Query())))
}

// parseLinkQuery reads the listing parameters. category may be repeated
// (?category=a&category=b) or comma separated (?category=a,b).
func parseLinkQuery(v url.Values) model.LinkQuery {
	page, _ := strconv.Atoi(v.Get("page"))
	pageSize, _ := strconv.Atoi(v.Get("pageSize"))
	return model.LinkQuery{
		Page:        page,
		PageSize:    pageSize,
		Search:      v.Get("q"),
		CategoryIDs: splitCategories(v["category"]),
		Sort:        model.ParseSortKey(v.Get("sort")),
	}
}

func splitCategories(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// HandleGet returns a single link.
//
// HTTP: GET /api/links/{id}
func (h *LinkHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.GetLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// HandleCreate stores a new link.
//
// HTTP: POST /api/links
// REQUEST BODY: {"name":"Go","description":"...","url":"https://go.dev","categoryId":"dev","rating":5}
func (h *LinkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.CreateLinkInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.logger.Warn("invalid link JSON", slog.String("error", err.Error()))
		writeBadRequest(w, "Invalid JSON body")
		return
	}

	link, err := h.links.CreateLink(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MutationResponse{Success: true, Message: "Link created", ID: link.ID})
}

// HandleUpdate applies a partial update. Both PATCH and PUT land here; only
// the fields present in the body change.
//
// HTTP: PATCH /api/links/{id}
func (h *LinkHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in model.UpdateLinkInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.logger.Warn("invalid link JSON", slog.String("id", id), slog.String("error", err.Error()))
		writeBadRequest(w, "Invalid JSON body")
		return
	}

	link, err := h.links.UpdateLink(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, Message: "Link updated", ID: link.ID})
}

// HandleDelete removes a link.
//
// HTTP: DELETE /api/links/{id}
func (h *LinkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.links.DeleteLink(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, Message: "Link deleted"})
}
