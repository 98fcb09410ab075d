package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

func newEventID() string {
	return uuid.NewString()
}

// EnsureTopic creates the audit topic when it does not exist yet. Called once
// at startup so the first published event does not race topic auto-creation.
func EnsureTopic(ctx context.Context, brokers string, partitions int32) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(strings.Split(brokers, ",")...))
	if err != nil {
		return fmt.Errorf("connect kafka admin: %w", err)
	}
	defer client.Close()

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, 1, nil, Topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, result := range resp {
		if result.Err != nil && !errors.Is(result.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", result.Topic, result.Err)
		}
	}
	return nil
}
