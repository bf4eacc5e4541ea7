//go:build embed_openapi

package api

import "routecost/openapi"

func openAPILoad() ([]byte, error) { return openapi.YAML, nil }
