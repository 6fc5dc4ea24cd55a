package sink

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/pkg/errors"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// SQS publishes each event as a JSON message. On FIFO queues the signature is the
// deduplication id and the owner is the message group, so per-owner order is kept by the queue.
type SQS struct {
	client   sqsiface.SQSAPI
	queueURL string
	fifo     bool
}

func NewSQS(sess *session.Session, queueURL string) *SQS {
	return newSQS(sqs.New(sess), queueURL)
}

func newSQS(client sqsiface.SQSAPI, queueURL string) *SQS {
	return &SQS{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

func (s *SQS) Emit(ctx context.Context, ev ledger.TradeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if s.fifo {
		input.MessageDeduplicationId = aws.String(ev.Signature)
		input.MessageGroupId = aws.String(ev.Owner)
	}
	if _, err := s.client.SendMessageWithContext(ctx, input); err != nil {
		return errors.Wrapf(err, "sqs: send %s", ev.Signature)
	}
	return nil
}
