package document

import (
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNotPDF is returned by Validate for input that is not a readable PDF.
var ErrNotPDF = errors.New("not a valid pdf")

// Validate checks that rs holds a structurally valid PDF and returns its
// page count.
func Validate(rs io.ReadSeeker) (int, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if ctx.PageCount == 0 {
		return 0, fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return ctx.PageCount, nil
}
