package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Billy-Davies-2/fightpick/internal/dal"
	"github.com/Billy-Davies-2/fightpick/internal/form"
	"github.com/Billy-Davies-2/fightpick/internal/metrics"
	"github.com/Billy-Davies-2/fightpick/internal/mocks"
	"github.com/Billy-Davies-2/fightpick/internal/models"
	"github.com/Billy-Davies-2/fightpick/internal/pubsub"
	"github.com/Billy-Davies-2/fightpick/internal/results"
)

// startServer serves srv over an in-memory listener and returns a connected client
func startServer(t *testing.T, srv *Server) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	RegisterPredictionServiceServer(gs, srv)
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewClient(conn)
}

func newTestServer(fetcher results.Fetcher, submitter form.Submitter, bus Bus) *Server {
	return NewServer(fetcher, submitter, bus, metrics.New(prometheus.NewRegistry()))
}

func TestSubmitPrediction(t *testing.T) {
	store := dal.NewMemoryDAL()
	bus := pubsub.New()
	events := bus.Subscribe()
	client := startServer(t, newTestServer(store, pubsub.Announce(store, bus), bus))

	ack, err := client.SubmitPrediction(context.Background(), models.PredictionInput{
		Name:    "Alice",
		Email:   "alice@example.com",
		Fighter: models.FighterUsyk,
		Round:   "8",
		Timing:  models.TimingMiddle,
		Notes:   "jab",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ack.ID)
	assert.WithinDuration(t, time.Now(), ack.ReceivedAt, time.Minute)

	records, err := client.FetchResults(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, models.PredictionRecord{Name: "Alice", Fighter: "Usyk", Round: "8", Timing: "Middle", Notes: "jab"}, records[2])

	select {
	case ev := <-events:
		assert.Equal(t, pubsub.EventPredictionSubmitted, ev.Type)
		assert.Equal(t, ack.ID, ev.Payload["id"])
	case <-time.After(time.Second):
		t.Fatal("expected a prediction event")
	}
}

func TestSubmitPredictionOnPoints(t *testing.T) {
	submitter := &mocks.Submitter{}
	client := startServer(t, newTestServer(mocks.Fetcher{}, submitter, pubsub.New()))

	_, err := client.SubmitPrediction(context.Background(), models.PredictionInput{
		Name: "Jane", Email: "jane@example.com", Fighter: models.FighterFury, Round: models.RoundPoints,
	})
	require.NoError(t, err)
	require.Len(t, submitter.Accepted(), 1)
	assert.Equal(t, models.RoundPoints, submitter.Accepted()[0].Round)
}

func TestSubmitPredictionErrors(t *testing.T) {
	submitter := &mocks.Submitter{Failures: 1, Err: errors.New("store offline")}
	client := startServer(t, newTestServer(mocks.Fetcher{}, submitter, pubsub.New()))

	cases := []struct {
		name string
		in   models.PredictionInput
		code codes.Code
	}{
		{"invalid email", models.PredictionInput{Name: "Bob", Email: "bob", Fighter: models.FighterFury, Round: "1", Timing: models.TimingEarly}, codes.InvalidArgument},
		{"missing name", models.PredictionInput{Email: "bob@example.com", Fighter: models.FighterFury, Round: "1", Timing: models.TimingEarly}, codes.InvalidArgument},
		{"unknown fighter", models.PredictionInput{Name: "Bob", Email: "bob@example.com", Fighter: "Joshua", Round: "1"}, codes.InvalidArgument},
		{"round out of range", models.PredictionInput{Name: "Bob", Email: "bob@example.com", Fighter: models.FighterFury, Round: "13"}, codes.InvalidArgument},
		{"missing timing", models.PredictionInput{Name: "Bob", Email: "bob@example.com", Fighter: models.FighterFury, Round: "4"}, codes.FailedPrecondition},
		{"missing fighter", models.PredictionInput{Name: "Bob", Email: "bob@example.com"}, codes.FailedPrecondition},
		{"timing on points", models.PredictionInput{Name: "Bob", Email: "bob@example.com", Fighter: models.FighterFury, Round: models.RoundPoints, Timing: models.TimingLate}, codes.FailedPrecondition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.SubmitPrediction(context.Background(), tc.in)
			assert.Equal(t, tc.code, status.Code(err), "%v", err)
		})
	}
	assert.Zero(t, submitter.Calls(), "rejected predictions never reach the store")

	valid := models.PredictionInput{Name: "Bob", Email: "bob@example.com", Fighter: models.FighterFury, Round: "2", Timing: models.TimingLate}
	_, err := client.SubmitPrediction(context.Background(), valid)
	assert.Equal(t, codes.Unavailable, status.Code(err))

	_, err = client.SubmitPrediction(context.Background(), valid)
	assert.NoError(t, err)
}

func TestFetchResults(t *testing.T) {
	client := startServer(t, newTestServer(mocks.Fetcher{Records: mocks.MockRecords()}, &mocks.Submitter{}, pubsub.New()))

	records, err := client.FetchResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mocks.MockRecords(), records)
}

func TestFetchResultsFailure(t *testing.T) {
	client := startServer(t, newTestServer(mocks.Fetcher{Err: errors.New("timeout")}, &mocks.Submitter{}, pubsub.New()))

	_, err := client.FetchResults(context.Background())
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "timeout")
}

func TestFetchResultsUnencodableRecord(t *testing.T) {
	records := []models.PredictionRecord{{Name: "Mal\xffory", Fighter: "Fury", Round: "points"}}
	srv := newTestServer(mocks.Fetcher{Records: records}, &mocks.Submitter{}, pubsub.New())
	client := startServer(t, srv)

	_, err := client.FetchResults(context.Background())
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "invalid UTF-8")
}

func TestStreamEvents(t *testing.T) {
	bus := pubsub.New()
	client := startServer(t, newTestServer(mocks.Fetcher{}, &mocks.Submitter{}, bus))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.StreamEvents(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	receivedAt := time.Date(2024, time.May, 18, 21, 0, 0, 0, time.UTC)
	bus.Publish(pubsub.NewPredictionEvent(
		models.Ack{ID: "abc", ReceivedAt: receivedAt},
		models.PredictionInput{Name: "Eve", Email: "eve@example.com", Fighter: models.FighterFury, Round: models.RoundPoints},
	))

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, pubsub.EventPredictionSubmitted, ev.Type)
	assert.True(t, receivedAt.Equal(ev.Time))
	assert.Equal(t, "abc", ev.Payload["id"])
	assert.Equal(t, "Eve", ev.Payload["name"])
	assert.NotContains(t, ev.Payload, "email")

	cancel()
	_, err = stream.Recv()
	assert.Equal(t, codes.Canceled, status.Code(err))
	assert.Eventually(t, func() bool { return bus.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.InvalidArgument, status.Code(toStatus(&form.ValidationError{Field: "email"})))
	assert.Equal(t, codes.FailedPrecondition, status.Code(toStatus(form.ErrSubmitInFlight)))
	assert.Equal(t, codes.Unavailable, status.Code(toStatus(&results.FetchError{Err: errors.New("x")})))
	assert.Equal(t, codes.Internal, status.Code(toStatus(errors.New("boom"))))
}
