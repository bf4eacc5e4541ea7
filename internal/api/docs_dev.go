//go:build !embed_openapi

package api

import (
    "os"
    "path/filepath"
)

// openAPILoad loads the OpenAPI spec from the repo path (dev mode). Tests run
// from the package directory, so walk up until the file is found.
func openAPILoad() ([]byte, error) {
    rel := filepath.Join("openapi", "openapi.yaml")
    dir := "."
    for i := 0; i < 4; i++ {
        if b, err := os.ReadFile(filepath.Join(dir, rel)); err == nil { return b, nil }
        dir = filepath.Join(dir, "..")
    }
    return os.ReadFile(rel)
}
