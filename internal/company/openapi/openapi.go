// Package openapi serves the API description document of the company
// endpoints and the interactive viewer that renders it.
package openapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"

	"gopkg.in/yaml.v3"
)

const (
	// DocsPath hosts the documentation viewer.
	DocsPath = "/rest/v1/metadata-catalog/companies"
	// JSONPath serves the description document as JSON.
	JSONPath = DocsPath + "/openapi.json"
	// YAMLPath serves the same document as YAML.
	YAMLPath = DocsPath + "/openapi.yaml"

	swaggerUIVersion = "5.17.14"
)

//go:embed openapi.json
var rawDocument []byte

// Document holds the rendered forms of the description document.
type Document struct {
	json []byte
	yaml []byte
	page []byte
}

// Load compacts the embedded document and renders its YAML form and the
// viewer page.
func Load() (*Document, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, rawDocument); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	y, err := toYAML(rawDocument)
	if err != nil {
		return nil, err
	}

	var page bytes.Buffer
	err = viewerTemplate.Execute(&page, struct {
		Title   string
		SpecURL string
		Version string
	}{"Company API", JSONPath, swaggerUIVersion})
	if err != nil {
		return nil, fmt.Errorf("render docs page: %w", err)
	}

	return &Document{json: compact.Bytes(), yaml: y, page: page.Bytes()}, nil
}

// JSON returns the compact JSON document.
func (d *Document) JSON() []byte { return d.json }

// YAML returns the document in block-style YAML, keeping the JSON key order.
func (d *Document) YAML() []byte { return d.yaml }

// Page returns the HTML documentation viewer.
func (d *Document) Page() []byte { return d.page }

// toYAML re-encodes JSON as YAML. JSON parses as YAML flow style, so the
// node tree keeps key order; clearing styles switches it to block style.
func toYAML(doc []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	clearStyle(&root)

	var out bytes.Buffer
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("encode openapi yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

var viewerTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui-bundle.js" crossorigin></script>
  <script>
    window.onload = function () {
      window.ui = SwaggerUIBundle({
        url: "{{.SpecURL}}",
        dom_id: "#swagger-ui",
        deepLinking: true
      });
    };
  </script>
</body>
</html>
`))
