package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// apiKeyParam is the query parameter carrying the Census API key.
const apiKeyParam = "key"

// CacheKey identifies a cached Census API response.
type CacheKey struct {
	// Host is the API host, so different base URLs never share entries
	Host string

	// Endpoint is the dataset path (e.g., "/data/2022/acs/acs5")
	Endpoint string

	// QueryParams are the query parameters (e.g., get, for, in)
	QueryParams url.Values
}

// KeyFromURL derives a cache key from a request URL, dropping the API key.
func KeyFromURL(rawURL string) (CacheKey, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return CacheKey{}, fmt.Errorf("parse url: %w", err)
	}

	q := u.Query()
	q.Del(apiKeyParam)

	return CacheKey{
		Host:        u.Host,
		Endpoint:    u.Path,
		QueryParams: q,
	}, nil
}

// String generates a deterministic cache key string.
// Format: acs:host:endpoint:query1=val1:query2=val2
//
// Example:
//
//	acs:api.census.gov:data/2022/acs/acs5:for=state:*:get=NAME
func (k CacheKey) String() string {
	parts := []string{"acs"}

	if k.Host != "" {
		parts = append(parts, k.Host)
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			if key == apiKeyParam {
				continue
			}
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
