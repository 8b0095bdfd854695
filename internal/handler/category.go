package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/service"
)

// CategoryHandler serves the JSON API for categories.
type CategoryHandler struct {
	categories *service.CategoryService
	logger     *slog.Logger
}

// NewCategoryHandler creates a CategoryHandler.
func NewCategoryHandler(categories *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

// HandleList returns every category ordered by name.
//
// HTTP: GET /api/categories
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.categories.ListCategories(r.Context()))
}

// HandleCreate adds a category.
//
// HTTP: POST /api/categories
// REQUEST BODY: {"id":"dev","name":"Development"}
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.CreateCategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.logger.Warn("invalid category JSON", slog.String("error", err.Error()))
		writeBadRequest(w, "Invalid JSON body")
		return
	}

	cat, err := h.categories.CreateCategory(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MutationResponse{Success: true, Message: "Category created", ID: cat.ID})
}
