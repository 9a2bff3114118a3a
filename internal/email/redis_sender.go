package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gahimbaref/Rentema-sub002/internal/config"
)

// RedisSender stores messages in Redis instead of delivering them. It backs
// the demo/test mode: the service API's getTestEmail call reads the keys
// this sender writes.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

const mockMailTTL = 5 * time.Minute

func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{client: client, cfg: cfg}
}

func (s *RedisSender) Send(ctx context.Context, to []string, kind, subject string, rawMessage []byte) error {
	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	payload := map[string]interface{}{
		"to":      strings.Join(to, ", "),
		"from":    s.cfg.SmtpFromAddress,
		"kind":    kind,
		"subject": subject,
		"body":    string(rawMessage),
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := fmt.Sprintf("mockmail:%s:%s", primaryTo, kind)
	if err := s.client.Set(ctx, key, jsonData, mockMailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key %q: %w", key, err)
	}

	log.Printf("Mock email stored in Redis key %q (to: %s, subject: %s)", key, primaryTo, subject)
	return nil
}
