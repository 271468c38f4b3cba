package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mooddiary/apiserver/types"
)

const attrEventType = "event_type"

// DiaryPublisher encodes diary events as JSON onto a single channel.
type DiaryPublisher struct {
	mq      *MQ
	channel string
}

func NewDiaryPublisher(m *MQ, channel string) *DiaryPublisher {
	return &DiaryPublisher{mq: m, channel: channel}
}

// Publish sends event with its type as a message attribute.
func (p *DiaryPublisher) Publish(ctx context.Context, event types.DiaryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode diary event: %w", err)
	}
	_, err = p.mq.Publish(ctx, p.channel, data, map[string]string{
		attrEventType: string(event.Type),
	})
	return err
}

// SubscribeDiaryEvents decodes diary events from channel and hands them to
// fn. Undecodable messages are acknowledged and skipped.
func SubscribeDiaryEvents(ctx context.Context, m *MQ, channel string, fn func(context.Context, types.DiaryEvent) error) error {
	return m.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		var event types.DiaryEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return nil
		}
		return fn(ctx, event)
	})
}
