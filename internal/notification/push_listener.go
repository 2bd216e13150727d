package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"mailledger-backend/internal/emailsync/domain"
	"mailledger-backend/pkg/logger"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes for a watched mailbox
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// MailboxSyncer starts a sync run for the owner of a mailbox
type MailboxSyncer interface {
	SyncMailbox(ctx context.Context, emailAddress string) (*domain.SyncResult, error)
}

// PushListener turns Gmail watch notifications into background sync runs
type PushListener struct {
	pubsubClient *pubsub.Client
	syncer       MailboxSyncer
	topicName    string
	subName      string
	runTimeout   time.Duration

	mu sync.Mutex
	// lastHistoryID tracks the newest history id seen per mailbox
	lastHistoryID map[string]uint64
	running       sync.WaitGroup
}

// NewPushListener creates a listener subscribed to topicName
func NewPushListener(ctx context.Context, projectID, topicName, credentialsFile string, syncer MailboxSyncer, runTimeout time.Duration) (*PushListener, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	l := newPushListener(syncer, runTimeout)
	l.pubsubClient = client
	l.topicName = topicName
	l.subName = topicName + "-sub" // Convention: topic-sub
	return l, nil
}

func newPushListener(syncer MailboxSyncer, runTimeout time.Duration) *PushListener {
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &PushListener{
		syncer:        syncer,
		runTimeout:    runTimeout,
		lastHistoryID: make(map[string]uint64),
	}
}

// Start receives notifications until ctx is cancelled
func (l *PushListener) Start(ctx context.Context) error {
	log := logger.Component(ctx, "pubsub")
	log.Info().Str("topic", l.topicName).Str("subscription", l.subName).Msg("Starting push listener")

	sub, err := l.ensureSubscription(ctx)
	if err != nil {
		return err
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		l.HandleNotification(ctx, msg.Data)
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("error receiving messages: %w", err)
	}
	return nil
}

func (l *PushListener) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := l.pubsubClient.Subscription(l.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription %s: %w", l.subName, err)
	}
	if exists {
		return sub, nil
	}

	topic := l.pubsubClient.Topic(l.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check topic %s: %w", l.topicName, err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist", l.topicName)
	}

	sub, err = l.pubsubClient.CreateSubscription(ctx, l.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription %s: %w", l.subName, err)
	}
	log := logger.Component(ctx, "pubsub")
	log.Info().Str("subscription", l.subName).Msg("Created subscription")
	return sub, nil
}

// HandleNotification decodes one notification and starts a background sync
// for its mailbox. It reports whether a sync was started.
func (l *PushListener) HandleNotification(ctx context.Context, data []byte) bool {
	log := logger.Component(ctx, "pubsub")

	var notification GmailNotification
	if err := json.Unmarshal(data, &notification); err != nil {
		log.Warn().Err(err).Msg("Failed to unmarshal notification")
		return false
	}
	address := strings.ToLower(strings.TrimSpace(notification.EmailAddress))
	if address == "" {
		log.Warn().Msg("Notification without email address")
		return false
	}

	if !l.advance(address, notification.HistoryID) {
		log.Debug().Str("email", address).Uint64("history_id", notification.HistoryID).Msg("Skipping stale notification")
		return false
	}

	l.running.Add(1)
	go func() {
		defer l.running.Done()

		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.runTimeout)
		defer cancel()

		result, err := l.syncer.SyncMailbox(runCtx, address)
		if err != nil {
			if domain.CodeOf(err) == domain.ErrCodeSyncInProgress {
				log.Debug().Str("email", address).Msg("Sync already running")
				return
			}
			log.Warn().Err(err).Str("email", address).Msg("Push-triggered sync failed")
			return
		}
		log.Info().Str("email", address).Int("imported", result.Imported).Msg("Push-triggered sync finished")
	}()
	return true
}

// advance records historyID for address; false means it was already seen
func (l *PushListener) advance(address string, historyID uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, exists := l.lastHistoryID[address]
	if exists && historyID <= last {
		return false
	}
	l.lastHistoryID[address] = historyID
	return true
}

// Wait blocks until background sync runs have finished
func (l *PushListener) Wait() {
	l.running.Wait()
}

// Close releases the Pub/Sub client
func (l *PushListener) Close() error {
	if l.pubsubClient == nil {
		return nil
	}
	return l.pubsubClient.Close()
}
