package dsp

import "github.com/nuevaaudio/nueva-engine/internal/nerrors"

// invalidParameterError builds the InvalidParameter error shared by every
// effect's validated setter.
func invalidParameterError(param string, value any, expected string) error {
	return nerrors.Newf(nerrors.KindInvalidParameter, "invalid value for %s: %v", param, value).
		Context("param", param).
		Context("value", value).
		Context("expected", expected).
		Suggest("use a value within the documented range").
		Build()
}
