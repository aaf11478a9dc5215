package cmdapp

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/charterops/tripkeeper/pkg/errors"
)

// Render writes v to w in the requested format. The text format uses the
// value's Stringer when present, falling back to a plain Print.
func Render(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.WrapParse("json", "", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return errors.WrapParse("yaml", "", err)
		}
		_, err = fmt.Fprint(w, string(data))
		return err
	case "text", "":
		if s, ok := v.(fmt.Stringer); ok {
			_, err := fmt.Fprintln(w, s.String())
			return err
		}
		_, err := fmt.Fprintln(w, v)
		return err
	default:
		return errors.NewValidationError("format", format, "supported formats: text, json, yaml")
	}
}
