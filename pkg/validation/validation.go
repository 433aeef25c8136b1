package validation

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/vinodismyname/salesdash/pkg/pagination"
)

var (
	v    *validator.Validate
	once sync.Once
)

// SpreadsheetExtensions lists the file extensions the loader can decode.
var SpreadsheetExtensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm", ".xls"}

// Panels lists the dashboard panel ids accepted by the "panel" rule.
var Panels = []string{"scatter", "country_totals", "segment_totals", "avg_vs_ratio", "explorer"}

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		// Custom: http(s) URL or a spreadsheet file path
		_ = v.RegisterValidation("source", func(fl validator.FieldLevel) bool {
			return IsSource(fl.Field().String())
		})
		// Custom: one of the dashboard panels
		_ = v.RegisterValidation("panel", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			for _, p := range Panels {
				if s == p {
					return true
				}
			}
			return false
		})
		// Custom: chart image format, empty selects svg
		_ = v.RegisterValidation("chartfmt", func(fl validator.FieldLevel) bool {
			switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
			case "", "svg", "png":
				return true
			}
			return false
		})
		// Custom: cursor must be decodable via pagination.DecodeCursor
		_ = v.RegisterValidation("cursor", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true // empty is allowed; use omitempty with this tag
			}
			if _, err := base64.RawURLEncoding.DecodeString(s); err != nil {
				return false
			}
			if _, err := pagination.DecodeCursor(s); err != nil {
				return false
			}
			return true
		})
	})
	return v
}

// IsSource reports whether s is an http(s) URL or a path with a spreadsheet extension.
func IsSource(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return u.Host != ""
	}
	ext := strings.ToLower(filepath.Ext(s))
	for _, e := range SpreadsheetExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ValidateStruct validates a struct and returns a user-friendly error string
// suitable for MCP tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	if err := Validator().Struct(s); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				return fmt.Sprintf("VALIDATION: %s is required", field)
			case "required_without":
				return fmt.Sprintf("VALIDATION: %s is required (or supply %s)", field, strings.ToLower(fe.Param()))
			case "source":
				return "VALIDATION: source must be an http(s) URL or a spreadsheet path (.xlsx, .xlsm, .xltx, .xltm, .xls)"
			case "panel":
				return fmt.Sprintf("VALIDATION: panel must be one of %s", strings.Join(Panels, ", "))
			case "chartfmt":
				return "VALIDATION: format must be svg or png"
			case "cursor":
				return "CURSOR_INVALID: failed to decode cursor; reload the dataset and restart pagination"
			case "oneof":
				return fmt.Sprintf("VALIDATION: %s must be one of %s", field, fe.Param())
			case "min", "max", "gte", "lte":
				return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
			}
			// Fallback generic
			return fmt.Sprintf("VALIDATION: invalid %s", field)
		}
		return "VALIDATION: invalid inputs"
	}
	return ""
}
