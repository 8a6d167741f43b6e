package archive

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/terraproof/service/internal/config"
)

var keyPattern = regexp.MustCompile(`^uploads/2024/03/[0-9a-f-]{36}-(.+)$`)

func TestObjectKey(t *testing.T) {
	now := time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC)

	cases := map[string]string{
		"photo.jpg":                "photo.jpg",
		"../../etc/passwd":         "passwd",
		`C:\Users\me\shot.png`:     "shot.png",
		"":                         "upload",
		"  spaced name.webp  ":     "spaced name.webp",
		"nested/dir/metadata.json": "metadata.json",
	}
	for in, want := range cases {
		key := ObjectKey(now, in)
		m := keyPattern.FindStringSubmatch(key)
		require.NotNil(t, m, "key %q for %q", key, in)
		require.Equal(t, want, m[1])
	}

	require.NotEqual(t, ObjectKey(now, "a.jpg"), ObjectKey(now, "a.jpg"))
}

func TestPublicReadPolicy(t *testing.T) {
	var policy struct {
		Version   string
		Statement []struct {
			Effect    string
			Principal string
			Action    string
			Resource  string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(publicReadPolicy("terra-proof")), &policy))
	require.Len(t, policy.Statement, 1)
	require.Equal(t, "s3:GetObject", policy.Statement[0].Action)
	require.Equal(t, "arn:aws:s3:::terra-proof/*", policy.Statement[0].Resource)
}

func TestDefaultPublicBase(t *testing.T) {
	require.Equal(t, "http://localhost:9000/terra-proof",
		defaultPublicBase(config.Archive{Endpoint: "localhost:9000", Bucket: "terra-proof"}))
	require.Equal(t, "https://s3.example/b",
		defaultPublicBase(config.Archive{Endpoint: "s3.example", Bucket: "b", UseSSL: true}))
}
