package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"inkwell/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageKey(t *testing.T) {
	k := NewImageKey("Cat.JPG")
	assert.True(t, strings.HasPrefix(k, "posts/"))
	assert.True(t, strings.HasSuffix(k, ".jpg"))
	assert.NotEqual(t, k, NewImageKey("Cat.JPG"))

	assert.False(t, strings.Contains(NewImageKey("evil.<script>"), "<"))
	assert.Equal(t, len("posts/")+36, len(NewImageKey("noext")))
}

func TestCheckKey(t *testing.T) {
	assert.NoError(t, checkKey("posts/a.png"))
	for _, bad := range []string{"", "/etc/passwd", "posts/../../x", "posts//x", `posts\x`} {
		assert.ErrorIs(t, checkKey(bad), ErrBadKey, bad)
	}
}

func TestDiskStorage(t *testing.T) {
	root := t.TempDir()
	s := NewDiskStorage(root, "/media")
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "posts/a.gif", strings.NewReader("GIF89a"), "image/gif"))
	data, err := os.ReadFile(filepath.Join(root, "posts", "a.gif"))
	require.NoError(t, err)
	assert.Equal(t, "GIF89a", string(data))
	assert.Equal(t, "/media/posts/a.gif", s.URL("posts/a.gif"))
	assert.Equal(t, "", s.URL(""))

	require.NoError(t, s.Delete(ctx, "posts/a.gif"))
	require.NoError(t, s.Delete(ctx, "posts/a.gif"), "deleting twice is fine")
	_, err = os.Stat(filepath.Join(root, "posts", "a.gif"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, s.Save(ctx, "../escape", strings.NewReader("x"), ""), ErrBadKey)
}

type fakeS3 struct {
	s3iface.S3API
	deleted []string
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage_DeleteAndURL(t *testing.T) {
	fake := &fakeS3{}
	s := newS3StorageWithClient(S3Options{Bucket: "media", Region: "eu-west-1", Prefix: "/inkwell/"}, fake)

	require.NoError(t, s.Delete(context.Background(), "posts/x.png"))
	assert.Equal(t, []string{"media/inkwell/posts/x.png"}, fake.deleted)
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/inkwell/posts/x.png", s.URL("posts/x.png"))

	minio := newS3StorageWithClient(S3Options{Bucket: "media", Endpoint: "http://minio:9000/"}, fake)
	assert.Equal(t, "http://minio:9000/media/posts/x.png", minio.URL("posts/x.png"))
}

func TestNew(t *testing.T) {
	s, err := New(&config.Config{StorageBackend: "disk", MediaRoot: t.TempDir(), MediaURL: "/media/"})
	require.NoError(t, err)
	assert.IsType(t, &DiskStorage{}, s)

	_, err = New(&config.Config{StorageBackend: "ftp"})
	assert.Error(t, err)
}
