// Package objectstore_test tests the NATS object store implementation.
package objectstore_test

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/podcast-audio-service/internal/objectstore"
)

// startTestServer starts an in-process JetStream server for testing purposes.
func startTestServer(t *testing.T) (*server.Server, nats.JetStreamContext) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	require.NoError(t, err)

	t.Cleanup(func() {
		natsConnection.Close()
		natsServer.Shutdown()
	})

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	return natsServer, jetstreamContext
}

func TestNatsObjectStore_UploadDownload(t *testing.T) {
	t.Parallel()

	_, jetstreamContext := startTestServer(t)

	store, err := objectstore.New(jetstreamContext, "episodes")
	require.NoError(t, err)

	ctx := context.Background()
	wav := []byte("RIFF....WAVEfmt ")

	require.NoError(t, store.Upload(ctx, "episode.wav", wav))

	downloaded, err := store.Download(ctx, "episode.wav")
	require.NoError(t, err)
	assert.Equal(t, wav, downloaded)

	require.NoError(t, store.Upload(ctx, "episode.wav", []byte("replaced")))

	replaced, err := store.Download(ctx, "episode.wav")
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(replaced))
}

func TestNatsObjectStore_BindsToExistingBucket(t *testing.T) {
	t.Parallel()

	_, jetstreamContext := startTestServer(t)
	ctx := context.Background()

	first, err := objectstore.New(jetstreamContext, "transcripts")
	require.NoError(t, err)
	require.NoError(t, first.Upload(ctx, "script.txt", []byte("**[ALEX]** Hi.")))

	second, err := objectstore.New(jetstreamContext, "transcripts")
	require.NoError(t, err)

	data, err := second.Download(ctx, "script.txt")
	require.NoError(t, err)
	assert.Equal(t, "**[ALEX]** Hi.", string(data))
}

func TestNatsObjectStore_MissingAndDeleted(t *testing.T) {
	t.Parallel()

	_, jetstreamContext := startTestServer(t)
	ctx := context.Background()

	store, err := objectstore.New(jetstreamContext, "scratch")
	require.NoError(t, err)

	_, missingErr := store.Download(ctx, "nope")
	require.ErrorIs(t, missingErr, objectstore.ErrNotFound)

	require.NoError(t, store.Upload(ctx, "temp", []byte("x")))
	require.NoError(t, store.Delete(ctx, "temp"))

	_, deletedErr := store.Download(ctx, "temp")
	require.ErrorIs(t, deletedErr, objectstore.ErrNotFound)
}
