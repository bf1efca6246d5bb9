package render

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v2"

	dtio "github.com/matzehuels/docktree/pkg/io"
	"github.com/matzehuels/docktree/pkg/layer"
)

// YAML writes the trees rooted at heads as a YAML sequence with the same
// field names as the JSON output.
func YAML(w io.Writer, heads []*layer.Layer) error {
	data, err := yaml.Marshal(dtio.Trees(heads))
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}
