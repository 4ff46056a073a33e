// Package validation checks create and update payloads before they are sent.
// Failures are reported as a validation *errors.Error whose Details["fields"]
// lists each invalid field.
//
// # Struct Tag Validation
//
//	type CreatePostRequest struct {
//	    Title string `json:"title" validate:"required,max=200"`
//	}
//	err := validation.Validate(req)
//
// # Programmatic Validation
//
//	err := validation.New().Positive("id", id).Validate()
package validation
