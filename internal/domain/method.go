package domain

import "strings"

// Method is an HTTP method the canonical model recognizes.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// Methods lists the recognized methods in the order normalizers visit them
// under a path item, keeping endpoint order stable for a given document.
var Methods = []Method{
	MethodGet,
	MethodPost,
	MethodPut,
	MethodPatch,
	MethodDelete,
	MethodHead,
	MethodOptions,
}

// MethodParse reports how a declared verb mapped onto the canonical set.
// When Recognized is false, Method holds the GET fallback and Original
// keeps the raw text so callers can log the coercion instead of losing it.
type MethodParse struct {
	Method     Method
	Recognized bool
	Original   string
}

// ParseMethod maps a declared HTTP verb onto the canonical method set.
func ParseMethod(raw string) MethodParse {
	m := Method(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Methods {
		if m == known {
			return MethodParse{Method: m, Recognized: true, Original: raw}
		}
	}
	return MethodParse{Method: MethodGet, Recognized: false, Original: raw}
}

// ParamLocation says where a parameter travels in a request.
type ParamLocation string

const (
	LocationQuery  ParamLocation = "query"
	LocationPath   ParamLocation = "path"
	LocationHeader ParamLocation = "header"
	LocationCookie ParamLocation = "cookie"
	LocationBody   ParamLocation = "body"
	LocationForm   ParamLocation = "form"
)

// LocationParse is the tagged result of parsing a declared parameter
// location, mirroring MethodParse.
type LocationParse struct {
	Location   ParamLocation
	Recognized bool
	Original   string
}

// ParseLocation maps a declared location string onto the canonical set.
// Swagger 2.0 "formData" maps to form; unknown locations fall back to
// query.
func ParseLocation(raw string) LocationParse {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "query":
		return LocationParse{LocationQuery, true, raw}
	case "path":
		return LocationParse{LocationPath, true, raw}
	case "header":
		return LocationParse{LocationHeader, true, raw}
	case "cookie":
		return LocationParse{LocationCookie, true, raw}
	case "body":
		return LocationParse{LocationBody, true, raw}
	case "form", "formdata":
		return LocationParse{LocationForm, true, raw}
	}
	return LocationParse{LocationQuery, false, raw}
}
