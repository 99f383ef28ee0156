package compositor

import "errors"

var (
	ErrDecode            = errors.New("failed to decode image")
	ErrInvalidDimensions = errors.New("image has zero area")
	ErrImageTooLarge     = errors.New("image exceeds maximum dimension")
	ErrEncode            = errors.New("failed to encode image")
	ErrInvalidSettings   = errors.New("invalid watermark settings")
)

// MaxDimension is the largest accepted size per axis for a source image.
const MaxDimension = 16384
