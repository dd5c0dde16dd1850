package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbook/config"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDetectImage(t *testing.T) {
	contentType, ext, err := detectImage(pngHeader, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, ".png", ext)

	_, ext, err = detectImage(pngHeader, "Avatar.PNG")
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	_, _, err = detectImage(nil, "a.png")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, _, err = detectImage([]byte("just text"), "a.png")
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestObjectKey(t *testing.T) {
	base := publicBaseURL(config.S3Config{Endpoint: "minio:9000", Bucket: "docbook"})
	assert.Equal(t, "http://minio:9000/docbook", base)

	key, err := objectKey(base, base+"/doctors/abc.png")
	require.NoError(t, err)
	assert.Equal(t, "doctors/abc.png", key)

	_, err = objectKey(base, "https://elsewhere.example.com/doctors/abc.png")
	assert.ErrorIs(t, err, ErrBadURL)
}
