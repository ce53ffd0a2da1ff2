package gateway

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Compiled request schemas. These are static assets; failing to compile one
// is a build defect, not a runtime condition.
var (
	chatRequestSchema    = mustCompileSchema("chat_request.json")
	testRequestSchema    = mustCompileSchema("test_request.json")
	clearRequestSchema   = mustCompileSchema("clear_request.json")
	settingsUpdateSchema = mustCompileSchema("settings_update.json")
)

func mustCompileSchema(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("gateway: missing embedded schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("gateway: load schema %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// readValidated reads the request body, validates it against schema, and
// unmarshals it into dst. On any failure it writes a structured error
// response and returns false; the handler should simply return.
func readValidated(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, dst any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return false
	}
	if err := schema.Validate(v); err != nil {
		writeError(w, http.StatusBadRequest, schemaErrorMessage(err))
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "request body does not match the expected shape")
		return false
	}
	return true
}

// schemaErrorMessage renders a validation failure as a single field-level
// message, e.g. "history/0/role: value must be one of ...". The deepest
// cause carries the most specific message; the aggregate wrappers above it
// only restate which schema failed.
func schemaErrorMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	if loc := strings.TrimPrefix(leaf.InstanceLocation, "/"); loc != "" {
		return loc + ": " + leaf.Message
	}
	return leaf.Message
}
