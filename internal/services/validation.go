package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// carNumberPattern is a registration-plate prefix: two letters then two digits.
var carNumberPattern = regexp.MustCompile(`^[A-Za-z]{2}[0-9]{2}$`)

// Upload limits of a single listing request.
const (
	MaxImages     = 20
	MaxImageBytes = 10 << 20
)

var allowedImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// ValidCarNumber reports whether s is a well-formed car number.
func ValidCarNumber(s string) bool {
	return carNumberPattern.MatchString(s)
}

// NewValidator returns a validator that knows the "carnumber" tag and reports
// fields by their JSON name.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	_ = v.RegisterValidation("carnumber", func(fl validator.FieldLevel) bool {
		return ValidCarNumber(fl.Field().String())
	})
	return v
}

// validationError converts validator output into a *ValidationError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = tagMessage(fe)
	}
	return out
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "carnumber":
		return "must be two letters followed by two digits"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	}
	return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
}

func validateImages(files []ImageFile, required bool) error {
	if required && len(files) == 0 {
		return newValidationError("images", "at least one image is required")
	}
	if len(files) > MaxImages {
		return newValidationError("images", fmt.Sprintf("at most %d images are allowed", MaxImages))
	}
	for _, f := range files {
		if !allowedImageExts[strings.ToLower(filepath.Ext(f.Filename))] {
			return newValidationError("images", fmt.Sprintf("%s: only jpg, jpeg and png files are allowed", f.Filename))
		}
		if f.Size > MaxImageBytes {
			return newValidationError("images", fmt.Sprintf("%s: exceeds the 10MB limit", f.Filename))
		}
	}
	return nil
}
