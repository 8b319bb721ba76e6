package validation

import "fmt"

// FailedError carries a failed validation's error bag across the handler
// boundary. Handlers return it like any other error; the exception handler
// maps it to a 422 response with the standard Laravel bag shape.
//
//	// Laravel: Illuminate\Validation\ValidationException
type FailedError struct {
	Errors *Errors
}

func (e *FailedError) Error() string {
	n := 0
	if e.Errors != nil {
		n = len(e.Errors.Bag)
	}
	return fmt.Sprintf("validation failed for %d field(s)", n)
}
