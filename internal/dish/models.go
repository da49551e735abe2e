package dish

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Dish is the persistent catalog record. Field names match the dashboard wire
// format; dishId is the externally assigned identifier, not the Mongo _id.
type Dish struct {
	DishID      string    `json:"dishId" bson:"dishId"`
	DishName    string    `json:"dishName" bson:"dishName"`
	ImageURL    string    `json:"imageUrl" bson:"imageUrl"`
	IsPublished bool      `json:"isPublished" bson:"isPublished"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Normalize strips surrounding whitespace from all string fields. Called
// before validation and before every write so names are never persisted
// with leading/trailing whitespace.
func (d *Dish) Normalize() {
	d.DishID = strings.TrimSpace(d.DishID)
	d.DishName = strings.TrimSpace(d.DishName)
	d.ImageURL = strings.TrimSpace(d.ImageURL)
}

// imageURLPattern accepts absolute HTTP(S) URLs ending in a raster-image
// extension, optionally followed by a query string.
var imageURLPattern = regexp.MustCompile(`(?i)^https?://.+\.(jpg|jpeg|png|gif|webp)(\?.*)?$`)

// ValidImageURL reports whether s is an acceptable dish image URL.
func ValidImageURL(s string) bool {
	return imageURLPattern.MatchString(s)
}

// imageExtensions is the raster whitelist shared with the upload endpoint.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// ValidImageExtension reports whether ext (with leading dot) is a supported
// raster-image extension.
func ValidImageExtension(ext string) bool {
	return imageExtensions[strings.ToLower(ext)]
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

// ValidationError aggregates field-level failures for a 400 response.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s", e.Fields[0].Message)
	}
	return fmt.Sprintf("validation failed: %d invalid fields", len(e.Fields))
}

func validateDishID(id string) *FieldError {
	if id == "" {
		return &FieldError{Field: "dishId", Message: "Dish ID is required", Value: id}
	}
	if len(id) > 50 {
		return &FieldError{Field: "dishId", Message: "Dish ID must be between 1 and 50 characters", Value: id}
	}
	return nil
}

func validateDishName(name string) *FieldError {
	if name == "" {
		return &FieldError{Field: "dishName", Message: "Dish name is required", Value: name}
	}
	if len(name) < 2 || len(name) > 100 {
		return &FieldError{Field: "dishName", Message: "Dish name must be between 2 and 100 characters", Value: name}
	}
	return nil
}

func validateImageURL(u string) *FieldError {
	if u == "" {
		return &FieldError{Field: "imageUrl", Message: "Image URL is required", Value: u}
	}
	if !ValidImageURL(u) {
		return &FieldError{Field: "imageUrl", Message: "Image URL must point to a valid image file", Value: u}
	}
	return nil
}

// Validate checks a normalized dish against the catalog constraints and
// returns a *ValidationError listing every violation, or nil.
func (d *Dish) Validate() error {
	var fields []FieldError
	if fe := validateDishID(d.DishID); fe != nil {
		fields = append(fields, *fe)
	}
	if fe := validateDishName(d.DishName); fe != nil {
		fields = append(fields, *fe)
	}
	if fe := validateImageURL(d.ImageURL); fe != nil {
		fields = append(fields, *fe)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Patch is a partial update: nil fields are untouched, set pointers
// (including explicit false or empty string) are applied.
type Patch struct {
	DishName    *string `json:"dishName"`
	ImageURL    *string `json:"imageUrl"`
	IsPublished *bool   `json:"isPublished"`
}

// Normalize trims the set string fields.
func (p *Patch) Normalize() {
	if p.DishName != nil {
		v := strings.TrimSpace(*p.DishName)
		p.DishName = &v
	}
	if p.ImageURL != nil {
		v := strings.TrimSpace(*p.ImageURL)
		p.ImageURL = &v
	}
}

// Validate re-checks only the fields present in the patch.
func (p *Patch) Validate() error {
	var fields []FieldError
	if p.DishName != nil {
		if fe := validateDishName(*p.DishName); fe != nil {
			fields = append(fields, *fe)
		}
	}
	if p.ImageURL != nil {
		if fe := validateImageURL(*p.ImageURL); fe != nil {
			fields = append(fields, *fe)
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Empty reports whether the patch carries no fields at all.
func (p *Patch) Empty() bool {
	return p.DishName == nil && p.ImageURL == nil && p.IsPublished == nil
}
