// Package validation validates execkit inputs.
//
// Struct tags (go-playground/validator) cover per-field rules on commands,
// execution options and configuration; the Validator collector covers
// cross-field rules that tags cannot express.
//
//	if err := validation.Validate(opts); err != nil {
//	    return nil, err
//	}
package validation
