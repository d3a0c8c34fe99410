package client

import (
	"net/url"
	"strings"
)

// Geography levels supported below a state scope.
const (
	GeographyBlockGroup = "block group"
	GeographyTract      = "tract"
	GeographyCounty     = "county"
)

// nameField is requested with every query so each row carries a readable
// unit name alongside the variables.
const nameField = "NAME"

// Scope is a top-level geographic unit (a state or state equivalent) used to
// partition data queries.
type Scope struct {
	Code string
	Name string
}

// SupportedGeography reports whether geography can be queried within a state.
func SupportedGeography(geography string) bool {
	switch geography {
	case GeographyBlockGroup, GeographyTract, GeographyCounty:
		return true
	default:
		return false
	}
}

// ScopesURL returns the query listing every state with its FIPS code.
func (c *Client) ScopesURL() string {
	return c.withKey(c.config.BaseURL + "?get=" + nameField + "&for=state:*")
}

// DataURL returns the query for codes across every unit of the configured
// geography within scope. NAME is always the first requested field.
//
// Example:
//
//	.../acs5?get=NAME,B01003_001E&for=block%20group:*&in=state:01%20county:*
func (c *Client) DataURL(scope Scope, codes []string) string {
	fields := make([]string, 0, len(codes)+1)
	fields = append(fields, nameField)
	fields = append(fields, codes...)

	geography := c.config.Geography
	in := "state:" + scope.Code
	if geography != GeographyCounty {
		in += url.PathEscape(" ") + "county:*"
	}

	parts := []string{
		c.config.BaseURL + "?get=" + strings.Join(fields, ","),
		"for=" + url.PathEscape(geography) + ":*",
		"in=" + in,
	}
	return c.withKey(strings.Join(parts, "&"))
}

func (c *Client) withKey(rawURL string) string {
	if c.config.APIKey == "" {
		return rawURL
	}
	return rawURL + "&key=" + url.QueryEscape(c.config.APIKey)
}
