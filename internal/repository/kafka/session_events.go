package kafka

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs/retry"
)

// SessionEvents publishes session lifecycle events keyed by subject id so
// that all events of one subject land on the same partition.
type SessionEvents struct {
	p *Producer
}

func NewSessionEvents(p *Producer) *SessionEvents { return &SessionEvents{p: p} }

func (s *SessionEvents) Send(ctx context.Context, ev auth.SessionEvent) error {
	msg, err := EncodeSessionEvent(ev)
	if err != nil {
		return retry.Permanent(fmt.Errorf("encode session event: %w", err))
	}
	return s.p.PublishProto(ctx, []byte(ev.SubjectID), msg)
}

func EncodeSessionEvent(ev auth.SessionEvent) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"kind":      string(ev.Kind),
		"subjectId": ev.SubjectID,
		"role":      ev.Role,
		"at":        ev.At.UTC().Format(time.RFC3339Nano),
	})
}
