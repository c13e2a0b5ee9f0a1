package consolidate

import (
	"fmt"
	"strconv"

	"github.com/kalambet/contractd/internal/extraction"
)

// DisplayValue renders a leaf for tables and spreadsheets. Absent leaves
// render as "".
func DisplayValue(c *extraction.Candidate) string {
	if c == nil {
		return ""
	}
	switch v := c.Value.(type) {
	case string:
		return v
	case extraction.RenewalValue:
		return v.Classification + ": " + v.Text
	case map[string]any:
		// Leaves decoded from stored JSON.
		cls, _ := v["classification"].(string)
		text, _ := v["text"].(string)
		if cls != "" {
			return cls + ": " + text
		}
		return text
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
