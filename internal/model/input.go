package model

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sakif/linkshelf/internal/apperror"
)

// Field limits for links and categories.
const (
	MinLinkNameLength        = 2
	MaxLinkNameLength        = 100
	MinDescriptionLength     = 10
	MaxDescriptionLength     = 500
	MaxCategoryNameLength    = 60
	MinRating, MaxRating     = 0.0, 5.0
	httpURLValidationMessage = "must be a valid URL starting with http:// or https://"
)

var (
	httpURLPattern    = regexp.MustCompile(`^https?://.+`)
	categoryIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// CreateLinkInput is the payload for creating a link.
type CreateLinkInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	CategoryID  string  `json:"categoryId"`
	Rating      float64 `json:"rating"`
	FaviconURL  string  `json:"faviconUrl,omitempty"`
}

// Trim removes surrounding whitespace from all text fields.
func (in CreateLinkInput) Trim() CreateLinkInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.URL = strings.TrimSpace(in.URL)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.FaviconURL = strings.TrimSpace(in.FaviconURL)
	return in
}

// Validate checks the form rules for a new link.
func (in CreateLinkInput) Validate() error {
	return validationError(validation.ValidateStruct(&in,
		validation.Field(&in.Name,
			validation.Required.Error("name is required"),
			validation.RuneLength(MinLinkNameLength, MaxLinkNameLength).Error("name must be between 2 and 100 characters"),
		),
		validation.Field(&in.Description,
			validation.Required.Error("description is required"),
			validation.RuneLength(MinDescriptionLength, MaxDescriptionLength).Error("description must be between 10 and 500 characters"),
		),
		validation.Field(&in.URL,
			validation.Required.Error("url is required"),
			validation.Match(httpURLPattern).Error("url "+httpURLValidationMessage),
		),
		validation.Field(&in.CategoryID,
			validation.Required.Error("category is required"),
		),
		validation.Field(&in.Rating,
			validation.Min(MinRating).Error("rating must be at least 0"),
			validation.Max(MaxRating).Error("rating must be at most 5"),
		),
		validation.Field(&in.FaviconURL,
			validation.Match(httpURLPattern).Error("faviconUrl "+httpURLValidationMessage),
		),
	))
}

// UpdateLinkInput is a partial update. Only non-nil fields are applied.
type UpdateLinkInput struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	URL         *string  `json:"url,omitempty"`
	CategoryID  *string  `json:"categoryId,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	FaviconURL  *string  `json:"faviconUrl,omitempty"`
}

// IsEmpty reports whether no field was supplied.
func (in UpdateLinkInput) IsEmpty() bool {
	return in.Name == nil && in.Description == nil && in.URL == nil &&
		in.CategoryID == nil && in.Rating == nil && in.FaviconURL == nil
}

// Trim removes surrounding whitespace from every supplied text field.
func (in UpdateLinkInput) Trim() UpdateLinkInput {
	in.Name = trimPtr(in.Name)
	in.Description = trimPtr(in.Description)
	in.URL = trimPtr(in.URL)
	in.CategoryID = trimPtr(in.CategoryID)
	in.FaviconURL = trimPtr(in.FaviconURL)
	return in
}

// Validate applies the create rules to the supplied fields. A supplied
// field may not be blanked out.
func (in UpdateLinkInput) Validate() error {
	return validationError(validation.ValidateStruct(&in,
		validation.Field(&in.Name,
			validation.NilOrNotEmpty.Error("name cannot be empty"),
			validation.RuneLength(MinLinkNameLength, MaxLinkNameLength).Error("name must be between 2 and 100 characters"),
		),
		validation.Field(&in.Description,
			validation.NilOrNotEmpty.Error("description cannot be empty"),
			validation.RuneLength(MinDescriptionLength, MaxDescriptionLength).Error("description must be between 10 and 500 characters"),
		),
		validation.Field(&in.URL,
			validation.NilOrNotEmpty.Error("url cannot be empty"),
			validation.Match(httpURLPattern).Error("url "+httpURLValidationMessage),
		),
		validation.Field(&in.CategoryID,
			validation.NilOrNotEmpty.Error("category cannot be empty"),
		),
		validation.Field(&in.Rating,
			validation.Min(MinRating).Error("rating must be at least 0"),
			validation.Max(MaxRating).Error("rating must be at most 5"),
		),
		validation.Field(&in.FaviconURL,
			validation.Match(httpURLPattern).Error("faviconUrl "+httpURLValidationMessage),
		),
	))
}

// CreateCategoryInput is the payload for creating a category.
type CreateCategoryInput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate checks the category id slug and name.
func (in CreateCategoryInput) Validate() error {
	return validationError(validation.ValidateStruct(&in,
		validation.Field(&in.ID,
			validation.Required.Error("id is required"),
			validation.Match(categoryIDPattern).Error("id may only contain lowercase letters, digits and dashes"),
		),
		validation.Field(&in.Name,
			validation.Required.Error("name is required"),
			validation.RuneLength(1, MaxCategoryNameLength).Error("name must be at most 60 characters"),
		),
	))
}

// validationError turns ozzo's per-field error map into a single
// apperror.ValidationFailed for the first failing field (in key order, so
// the reported field is deterministic).
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make([]string, 0, len(fieldErrs))
	for f := range fieldErrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	first := fields[0]
	return apperror.ValidationFailed(first, fieldErrs[first].Error())
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
