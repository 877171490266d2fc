// internal/catalog/fetch/schema.go
package fetch

import (
	"fmt"
	"strings"

	"marketbot/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// pageSchema pins the structural contract of a catalog page. A payload
// failing this check means the upstream API changed shape, which is fatal
// for the fetch rather than a transient condition.
const pageSchema = `{
  "type": "object",
  "required": ["data"],
  "properties": {
    "data": {
      "type": "object",
      "required": ["products"],
      "properties": {
        "products": {
          "type": "array",
          "items": { "type": "object" }
        }
      }
    }
  }
}`

var pageSchemaLoader = gojsonschema.NewStringLoader(pageSchema)

func validatePagePayload(body []byte) error {
	result, err := gojsonschema.Validate(pageSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.NewUpstreamSchemaError("payload is not valid JSON: " + err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.NewUpstreamSchemaError(fmt.Sprintf("page structure mismatch: %s", strings.Join(msgs, "; ")))
	}
	return nil
}
