package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestSessionEventsSend(t *testing.T) {
	w := &recordingWriter{}
	ev := NewSessionEvents(newProducer(w, "session-events"))

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	err := ev.Send(context.Background(), auth.SessionEvent{
		Kind:      auth.EventLogin,
		SubjectID: "U-07",
		Role:      "employee",
		At:        at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("U-07"), w.msgs[0].Key)

	var got structpb.Struct
	require.NoError(t, proto.Unmarshal(w.msgs[0].Value, &got))
	fields := got.AsMap()
	assert.Equal(t, "session.login", fields["kind"])
	assert.Equal(t, "U-07", fields["subjectId"])
	assert.Equal(t, "employee", fields["role"])
	assert.Equal(t, "2025-03-01T12:00:00Z", fields["at"])
}

func TestPublishProtoWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := newProducer(&recordingWriter{err: boom}, "session-events")

	err := p.PublishProto(context.Background(), nil, &structpb.Struct{})
	require.ErrorIs(t, err, boom)
}
