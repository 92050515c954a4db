package s3

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainlistings "homestay/internal/domain/listings"
)

func TestLinkPresignsAgainstPublicEndpoint(t *testing.T) {
	l, err := NewLinker(Options{
		Endpoint:       "http://minio:9000",
		PublicEndpoint: "http://localhost:9000",
		AccessKey:      "minio",
		SecretKey:      "minio123",
		Bucket:         "covers",
		Expiry:         15 * time.Minute,
	}, nil)
	require.NoError(t, err)

	raw, err := l.Link(context.Background(), domainlistings.Picture{Key: "/listings/cabin.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/covers/listings/cabin.jpg", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "image/jpeg", u.Query().Get("response-content-type"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestLinkWithoutExpiryReturnsObjectURL(t *testing.T) {
	l, err := NewLinker(Options{Endpoint: "localhost:9000", Bucket: "covers"}, nil)
	require.NoError(t, err)

	raw, err := l.Link(context.Background(), domainlistings.Picture{Key: "a.png"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/covers/a.png", raw)
}

func TestLinkKeepsResolvedURLAndRejectsEmptyKey(t *testing.T) {
	l, err := NewLinker(Options{Endpoint: "localhost:9000", Bucket: "covers"}, nil)
	require.NoError(t, err)

	raw, err := l.Link(context.Background(), domainlistings.Picture{URL: "https://cdn/x.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.png", raw)

	_, err = l.Link(context.Background(), domainlistings.Picture{})
	assert.ErrorIs(t, err, ErrObjectKeyRequired)
}

func TestNewLinkerValidates(t *testing.T) {
	_, err := NewLinker(Options{Bucket: "covers"}, nil)
	assert.Error(t, err)
	_, err = NewLinker(Options{Endpoint: "localhost:9000"}, nil)
	assert.Error(t, err)
}
