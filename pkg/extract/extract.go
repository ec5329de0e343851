package extract

import (
	"fmt"

	"github.com/pkg/errors"

	"trainboard/pkg/departures"
)

// Shape names the kind of payload the upstream returns
type Shape string

const (
	ShapeHTML Shape = "html"
	ShapeJSON Shape = "json"
)

// ErrDecode means the whole payload was unusable, as opposed to a single bad row
var ErrDecode = errors.New("undecodable departures payload")

// Extractor turns an upstream payload into raw departure rows. Malformed rows are skipped;
// only a payload that cannot be read at all yields an error.
type Extractor interface {
	Extract(body []byte) ([]departures.RawRow, error)
	Shape() Shape
}

// New returns the extractor for shape
func New(shape Shape, tableSelector string) (Extractor, error) {
	switch shape {
	case ShapeHTML, "":
		return HTML{TableSelector: tableSelector}, nil
	case ShapeJSON:
		return Trips{}, nil
	default:
		return nil, fmt.Errorf("unknown payload shape %q", shape)
	}
}
