package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// ShoutrrrSender delivers email and bot messages through shoutrrr service
// URLs (smtp://, telegram://, discord://, ...). The URL comes from the
// endpoint meta so each endpoint can point at a different provider.
type ShoutrrrSender struct{}

// NewShoutrrrSender creates a shoutrrr-backed sender.
func NewShoutrrrSender() *ShoutrrrSender {
	return &ShoutrrrSender{}
}

// Send delivers the message to the endpoint's service URL. Provider errors
// are retryable; a missing or malformed URL is not.
func (s *ShoutrrrSender) Send(_ context.Context, endpointMeta map[string]any, message Message) error {
	url, _ := endpointMeta["url"].(string)
	if url == "" {
		return fmt.Errorf("endpoint has no service url")
	}

	sender, err := shoutrrr.CreateSender(url)
	if err != nil {
		return fmt.Errorf("invalid service url: %w", err)
	}

	params := types.Params{"title": message.Title}
	errs := sender.Send(message.Body, &params)

	var failures []string
	for _, sendErr := range errs {
		if sendErr != nil {
			failures = append(failures, sendErr.Error())
		}
	}
	if len(failures) > 0 {
		return Retryable(fmt.Errorf("delivery failed: %s", strings.Join(failures, "; ")))
	}
	return nil
}
