package stamps

import (
	"context"
	"fmt"
)

// Kind is one of the three cutout images attached to an alert.
type Kind string

const (
	Science    Kind = "science"
	Template   Kind = "template"
	Difference Kind = "difference"
)

// Kinds lists the stamp kinds in their canonical order.
var Kinds = []Kind{Science, Template, Difference}

// Stamp is one downloaded PNG cutout.
type Stamp struct {
	Kind Kind
	Data []byte
}

// Source returns the stamps available for an object.
// Missing kinds are simply absent from the result.
type Source interface {
	Stamps(ctx context.Context, objectID string) ([]Stamp, error)
}

// FileName is the canonical image file name for an object's stamp.
func FileName(objectID string, kind Kind) string {
	return fmt.Sprintf("%s_%s.png", objectID, kind)
}
