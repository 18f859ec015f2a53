package api

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/healthfin/healthcare-api/dto"
)

//go:embed docs/openapi.yaml
var openapiSpec []byte

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui" data-spec-url="{{.SpecUrl}}"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    const root = document.getElementById("swagger-ui");
    window.ui = SwaggerUIBundle({ url: root.dataset.specUrl, dom_id: "#swagger-ui" });
  </script>
  <p>WebSocket frames: <a href="{{.WsSchemaUrl}}">{{.WsSchemaUrl}}</a></p>
</body>
</html>`))

// apiDocs holds the rendered documentation, built once at startup.
type apiDocs struct {
	title    string
	yaml     []byte
	json     []byte
	wsSchema []byte
}

// newApiDocs validates the embedded OpenAPI document and stamps it with the
// running version.
func newApiDocs(ctx context.Context, version string) (*apiDocs, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, errors.Wrap(err, "could not load the OpenAPI document")
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, errors.Wrap(err, "invalid OpenAPI document")
	}

	yamlDoc := openapiSpec
	if version != "" {
		doc.Info.Version = version
		if yamlDoc, err = setYamlInfoVersion(openapiSpec, version); err != nil {
			return nil, err
		}
	}

	jsonDoc, err := doc.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "could not render the OpenAPI document")
	}
	wsSchema, err := json.Marshal(dto.ChatProtocolSchema())
	if err != nil {
		return nil, errors.Wrap(err, "could not render the websocket schema")
	}

	return &apiDocs{
		title:    doc.Info.Title,
		yaml:     yamlDoc,
		json:     jsonDoc,
		wsSchema: wsSchema,
	}, nil
}

// setYamlInfoVersion rewrites info.version, keeping the layout of the document.
func setYamlInfoVersion(src []byte, version string) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, errors.Wrap(err, "could not parse the OpenAPI document")
	}
	if len(root.Content) == 0 {
		return nil, errors.New("empty OpenAPI document")
	}
	info := mappingValue(root.Content[0], "info")
	if info == nil {
		return nil, errors.New("OpenAPI document has no info section")
	}
	versionNode := mappingValue(info, "version")
	if versionNode == nil {
		return nil, errors.New("OpenAPI document has no info.version")
	}
	versionNode.Value = version
	versionNode.Style = yaml.DoubleQuotedStyle

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, errors.Wrap(err, "could not render the OpenAPI document")
	}
	return buf.Bytes(), nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func (d *apiDocs) handlePage(c *gin.Context) {
	var buf bytes.Buffer
	err := docsPage.Execute(&buf, map[string]string{
		"Title":       d.title,
		"SpecUrl":     "/docs/openapi.json",
		"WsSchemaUrl": "/docs/ws-schema.json",
	})
	if presentError(c.Request.Context(), c, err) {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (d *apiDocs) handleYaml(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", d.yaml)
}

func (d *apiDocs) handleJson(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", d.json)
}

func (d *apiDocs) handleWsSchema(c *gin.Context) {
	c.Data(http.StatusOK, "application/schema+json", d.wsSchema)
}
