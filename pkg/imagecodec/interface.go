// Package imagecodec converts between encoded image bytes and the flat RGBA
// buffers used by the diff engine.
package imagecodec

import "pagediff/pkg/domain"

// Codec decodes and encodes images.
//
//go:generate mockgen -package mockimagecodec -source=interface.go -destination=mock/mockimagecodec.go *
type Codec interface {
	// Decode parses encoded image bytes into a non-premultiplied RGBA buffer.
	Decode(data []byte) (domain.RawImage, error)
	// Encode serializes a RawImage.
	Encode(img domain.RawImage) ([]byte, error)
}
