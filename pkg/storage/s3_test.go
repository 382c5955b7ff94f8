package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThumbnailExtension(t *testing.T) {
	cases := []struct {
		contentType, filename, ext string
		ok                         bool
	}{
		{"image/png", "a.bin", ".png", true},
		{"IMAGE/JPEG", "", ".jpg", true},
		{"", "photo.JPEG", ".jpg", true},
		{"application/octet-stream", "x.webp", ".webp", true},
		{"video/mp4", "clip.mp4", "", false},
	}
	for _, tc := range cases {
		ext, ok := ThumbnailExtension(tc.contentType, tc.filename)
		assert.Equal(t, tc.ok, ok, tc.contentType+" "+tc.filename)
		assert.Equal(t, tc.ext, ext)
	}
}

func TestThumbnailKey(t *testing.T) {
	at := time.Unix(0, 1700000000123456789)
	assert.Equal(t, "thumbnails/abc/1700000000123456789.png", ThumbnailKey("abc", ".png", at))
}

func TestResultUsesCDN(t *testing.T) {
	s := &S3{cfg: S3Config{Region: "eu-west-1", ThumbnailsBucket: "thumbs", CDNBaseURL: "https://cdn.example.com/"}}
	res := s.Result("thumbnails/abc/1.png")
	assert.Equal(t, "https://thumbs.s3.eu-west-1.amazonaws.com/thumbnails/abc/1.png", res.URL)
	assert.Equal(t, "https://cdn.example.com/thumbnails/abc/1.png", res.CDNURL)
	assert.Equal(t, "thumbnails/abc/1.png", res.Path)

	s.cfg.CDNBaseURL = ""
	res = s.Result("k.png")
	assert.True(t, strings.HasPrefix(res.CDNURL, "https://thumbs.s3."))
	assert.Equal(t, res.URL, res.CDNURL)
}

func TestPresignExpireDefault(t *testing.T) {
	s := &S3{}
	assert.Equal(t, 15*time.Minute, s.PresignExpire())
	s.cfg.PresignExpireMinutes = 5
	assert.Equal(t, 5*time.Minute, s.PresignExpire())
}
