package notify

import (
	"fmt"
	"os"
	"time"
)

// NewConsumerID creates a per-process consumer name for the email stream group.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "mailer"
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
}
