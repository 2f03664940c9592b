package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/fightpick/internal/models"
	"github.com/Billy-Davies-2/fightpick/internal/pubsub"
)

// Client calls a remote PredictionService. It satisfies form.Submitter and
// results.Fetcher so a form can run against another instance.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) SubmitPrediction(ctx context.Context, in models.PredictionInput) (models.Ack, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"name":    in.Name,
		"email":   in.Email,
		"fighter": string(in.Fighter),
		"round":   in.Round,
		"timing":  string(in.Timing),
		"notes":   in.Notes,
	})
	if err != nil {
		return models.Ack{}, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodSubmitPrediction, req, out); err != nil {
		return models.Ack{}, err
	}

	fields := out.GetFields()
	receivedAt, err := time.Parse(time.RFC3339Nano, fields["receivedAt"].GetStringValue())
	if err != nil {
		return models.Ack{}, fmt.Errorf("invalid receivedAt in ack: %w", err)
	}
	return models.Ack{ID: fields["id"].GetStringValue(), ReceivedAt: receivedAt}, nil
}

func (c *Client) FetchResults(ctx context.Context) ([]models.PredictionRecord, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodFetchResults, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}

	values := out.GetFields()["results"].GetListValue().GetValues()
	records := make([]models.PredictionRecord, 0, len(values))
	for _, v := range values {
		row := v.GetStructValue().GetFields()
		records = append(records, models.PredictionRecord{
			Name:    row["name"].GetStringValue(),
			Fighter: row["fighter"].GetStringValue(),
			Round:   row["round"].GetStringValue(),
			Timing:  row["timing"].GetStringValue(),
			Notes:   row["notes"].GetStringValue(),
		})
	}
	return records, nil
}

// EventReceiver reads events from a StreamEvents call
type EventReceiver struct {
	stream grpc.ClientStream
}

// StreamEvents opens the event stream. Cancel ctx to close it.
func (c *Client) StreamEvents(ctx context.Context) (*EventReceiver, error) {
	stream, err := c.cc.NewStream(ctx, &PredictionServiceDesc.Streams[0], methodStreamEvents)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventReceiver{stream: stream}, nil
}

// Recv blocks for the next event. It returns io.EOF when the server ends the stream.
func (r *EventReceiver) Recv() (pubsub.Event, error) {
	msg := new(structpb.Struct)
	if err := r.stream.RecvMsg(msg); err != nil {
		return pubsub.Event{}, err
	}

	fields := msg.GetFields()
	ev := pubsub.Event{
		Type:    fields["type"].GetStringValue(),
		Payload: fields["payload"].GetStructValue().AsMap(),
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["time"].GetStringValue()); err == nil {
		ev.Time = ts
	}
	return ev, nil
}
