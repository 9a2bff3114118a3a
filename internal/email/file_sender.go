package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileSender appends messages to a log file. Enabled via LOG_EMAILS for
// local debugging of the notification pipeline.
type FileSender struct {
	filePath string
}

func NewFileSender(filePath string) (Sender, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("email log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for email log file: %w", err)
	}
	return &FileSender{filePath: filePath}, nil
}

func (s *FileSender) Send(ctx context.Context, to []string, kind, subject string, rawMessage []byte) error {
	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open email log file: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("--- Email %s at %s (To: %v, Subject: %s) ---\n%s\n--- End ---\n\n",
		kind, time.Now().Format(time.RFC3339Nano), to, subject, rawMessage)
	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write email to log file: %w", err)
	}
	return nil
}
