// Package eventingress implements the EventIngress component: typed queue
// consumers that translate upstream delete/update events into
// RevocationEngine calls. Transport is Redis Streams via redis/go-redis/v9
// directly, reusing the connection the correlation cache already holds
// (the teacher's third_party/cache/redis.go connection helper is adapted,
// not duplicated, for this) rather than go-zero's higher-level wrapper,
// which has no consumer-group support.
package eventingress

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/revocation"
)

const (
	StreamProgrammeDelete = "credentials:programme:delete"
	StreamProgrammeUpdate = "credentials:programme:update"
	StreamPlacementDelete = "credentials:placement:delete"
	StreamPlacementUpdate = "credentials:placement:update"

	consumerGroup = "credential-broker"
	blockTimeout  = 5 * time.Second
	claimIdle     = 30 * time.Second
)

// deleteMessage is the wire shape `{tisId}` for delete events.
type deleteMessage struct {
	TisID string `json:"tisId"`
}

// updateMessage is the wire shape `{tisId, recrd:{data:{...}}}` for update events.
type updateMessage struct {
	TisID string `json:"tisId"`
	Recrd struct {
		Data map[string]any `json:"data"`
	} `json:"recrd"`
}

// Ingress is the EventIngress component: one consumer goroutine per stream.
type Ingress struct {
	client     *redis.Client
	revocation *revocation.Engine
	consumer   string
}

func New(client *redis.Client, rev *revocation.Engine, consumerName string) *Ingress {
	return &Ingress{client: client, revocation: rev, consumer: consumerName}
}

// Run starts all four stream consumers and blocks until ctx is cancelled.
func (i *Ingress) Run(ctx context.Context) {
	streams := []struct {
		name           string
		credentialType domain.CredentialType
		isUpdate       bool
	}{
		{StreamProgrammeDelete, domain.TrainingProgramme, false},
		{StreamProgrammeUpdate, domain.TrainingProgramme, true},
		{StreamPlacementDelete, domain.TrainingPlacement, false},
		{StreamPlacementUpdate, domain.TrainingPlacement, true},
	}

	done := make(chan struct{}, len(streams))
	for _, s := range streams {
		go func(streamName string, credentialType domain.CredentialType, isUpdate bool) {
			defer func() { done <- struct{}{} }()
			i.consumeLoop(ctx, streamName, credentialType, isUpdate)
		}(s.name, s.credentialType, s.isUpdate)
	}
	for range streams {
		<-done
	}
}

func (i *Ingress) consumeLoop(ctx context.Context, stream string, credentialType domain.CredentialType, isUpdate bool) {
	if err := i.ensureGroup(ctx, stream); err != nil {
		logx.WithContext(ctx).Errorf("eventingress: ensure group for %s failed: %v", stream, err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if claimed, _, err := i.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    consumerGroup,
			Consumer: i.consumer,
			MinIdle:  claimIdle,
			Start:    "0-0",
			Count:    10,
		}).Result(); err == nil {
			for _, msg := range claimed {
				i.handle(ctx, stream, msg, credentialType, isUpdate)
			}
		}

		res, err := i.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: i.consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    blockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			logx.WithContext(ctx).Errorf("eventingress: read %s failed: %v", stream, err)
			continue
		}

		for _, s := range res {
			for _, msg := range s.Messages {
				i.handle(ctx, stream, msg, credentialType, isUpdate)
			}
		}
	}
}

func (i *Ingress) ensureGroup(ctx context.Context, stream string) error {
	err := i.client.XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
	if err == nil || strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

func (i *Ingress) handle(ctx context.Context, stream string, msg redis.XMessage, credentialType domain.CredentialType, isUpdate bool) {
	raw, _ := msg.Values["payload"].(string)

	var err error
	if isUpdate {
		err = i.handleUpdate(ctx, raw, credentialType)
	} else {
		err = i.handleDelete(ctx, raw, credentialType)
	}

	if err != nil {
		logx.WithContext(ctx).Errorf("eventingress: %s message %s failed: %v", stream, msg.ID, err)
		return // leave unacked for redelivery / XAutoClaim after claimIdle
	}
	if ackErr := i.client.XAck(ctx, stream, consumerGroup, msg.ID).Err(); ackErr != nil {
		logx.WithContext(ctx).Errorf("eventingress: ack %s/%s failed: %v", stream, msg.ID, ackErr)
	}
}

func (i *Ingress) handleDelete(ctx context.Context, raw string, credentialType domain.CredentialType) error {
	var m deleteMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return fmt.Errorf("eventingress: malformed delete message: %w", err)
	}
	if m.TisID == "" {
		return errors.New("eventingress: delete message missing tisId")
	}
	return i.revocation.Revoke(ctx, m.TisID, credentialType, time.Time{}, "")
}

func (i *Ingress) handleUpdate(ctx context.Context, raw string, credentialType domain.CredentialType) error {
	var m updateMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return fmt.Errorf("eventingress: malformed update message: %w", err)
	}
	if m.TisID == "" {
		return errors.New("eventingress: update message missing tisId")
	}

	fingerprint, err := fingerprintFor(credentialType, m.Recrd.Data)
	if err != nil {
		return err
	}

	return i.revocation.Revoke(ctx, m.TisID, credentialType, time.Time{}, fingerprint)
}

// fingerprintFor computes the MD5 content fingerprint over the fixed,
// ordered field tuple spec.md section 4.9 defines per credential type.
// Missing required fields are a reject: do not call revoke.
func fingerprintFor(credentialType domain.CredentialType, data map[string]any) (string, error) {
	var fields []string
	switch credentialType {
	case domain.TrainingPlacement:
		fields = []string{"specialty", "grade", "nationalPostNumber", "employingBody", "site", "dateFrom", "dateTo"}
	case domain.TrainingProgramme:
		fields = []string{"programmeName", "startDate", "endDate"}
	default:
		return "", fmt.Errorf("eventingress: unknown credential type %v", credentialType)
	}

	var concatenated string
	for _, f := range fields {
		v, ok := data[f]
		if !ok {
			if f == "nationalPostNumber" {
				continue // reserved/optional field, per domain.PlacementData
			}
			return "", fmt.Errorf("eventingress: update event missing required field %q", f)
		}
		concatenated += fmt.Sprintf("%v", v)
	}

	sum := md5.Sum([]byte(concatenated))
	return hex.EncodeToString(sum[:]), nil
}
