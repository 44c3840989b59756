package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectScheme(t *testing.T) {
	assert.Equal(t, schemeS3, detectScheme("s3://bucket/key"))
	assert.Equal(t, schemeHTTPS, detectScheme("HTTPS://host/x"))
	assert.Equal(t, schemeHTTP, detectScheme("http://host/x"))
	assert.Equal(t, schemeFile, detectScheme("file:///tmp/x"))
	assert.Equal(t, schemeLocal, detectScheme("/tmp/x"))
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "s3://bucket/prefix/t1_tbl.txt", joinURL("s3://bucket/prefix/", "t1_tbl.txt"))
	assert.Equal(t, "http://host/t1_tbl.txt", joinURL("http://host", "t1_tbl.txt"))
	assert.Equal(t, "/data/snap/t1_tbl.txt", joinURL("/data/snap", "t1_tbl.txt"))
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://bucket/prefix/t1_tbl.txt")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "prefix/t1_tbl.txt", key)

	_, _, err = parseS3URL("s3://bucket")
	assert.Error(t, err)
	_, _, err = parseS3URL("s3://bucket/")
	assert.Error(t, err)
}
