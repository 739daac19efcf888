package httpadapter

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openapiSpec []byte

// newOpenAPIValidator loads the embedded API document and returns a
// middleware rejecting JSON requests whose bodies do not match it. Routes
// the document does not describe pass through untouched.
func newOpenAPIValidator() (func(http.Handler) http.Handler, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}

	router, err := legacyrouter.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !shouldValidate(r) {
				next.ServeHTTP(w, r)
				return
			}
			if err := validateAgainstRoute(r.Context(), router, r); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	return middleware, nil
}

// Only JSON bodies are schema-checked; multipart uploads are validated by
// their handlers.
func shouldValidate(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func validateAgainstRoute(ctx context.Context, router routers.Router, r *http.Request) error {
	route, pathParams, err := router.FindRoute(r)
	if err != nil {
		// Undocumented route; the mux decides what to do with it.
		return nil
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	if err := openapi3filter.ValidateRequest(ctx, input); err != nil {
		return fmt.Errorf("request does not match api schema: %w", err)
	}
	return nil
}
