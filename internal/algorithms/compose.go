package algorithms

import "contrast-forge/internal/core"

// StretchThenEqualize widens the intensity range first and then equalizes
// locally. Useful for images with a narrow range.
func StretchThenEqualize(img *core.ImageBuffer, stretch StretchOptions, equalize EqualizeOptions) (*core.ImageBuffer, error) {
	stretched, err := Stretch(img, stretch)
	if err != nil {
		return nil, err
	}
	return EqualizeLocal(stretched, equalize)
}

// EqualizeThenStretch equalizes locally and rescales the result.
func EqualizeThenStretch(img *core.ImageBuffer, equalize EqualizeOptions, stretch StretchOptions) (*core.ImageBuffer, error) {
	equalized, err := EqualizeLocal(img, equalize)
	if err != nil {
		return nil, err
	}
	return Stretch(equalized, stretch)
}
