package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

// ShoutrrrSender pushes notifications to external services (Slack, Discord,
// email, ...) configured as shoutrrr URLs.
type ShoutrrrSender struct {
	sender *router.ServiceRouter
	types  map[model.NotificationType]bool
}

// NewShoutrrrSender validates urls and builds a single router for all of
// them. An empty types list forwards every notification type.
func NewShoutrrrSender(urls []string, timeout time.Duration, types ...model.NotificationType) (*ShoutrrrSender, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one notification URL is required")
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		// Router errors can echo the URL, which may embed tokens.
		return nil, errors.New("invalid notification URL configuration")
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	s := &ShoutrrrSender{sender: sender}
	if len(types) > 0 {
		s.types = make(map[model.NotificationType]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}
	return s, nil
}

func (s *ShoutrrrSender) Name() string { return "shoutrrr" }

// Send forwards n unless its type is filtered out.
func (s *ShoutrrrSender) Send(_ context.Context, n model.Notification) error {
	if s.types != nil && !s.types[n.Type] {
		return nil
	}

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}

	for _, err := range s.sender.Send(n.Message, &params) {
		if err != nil {
			return fmt.Errorf("shoutrrr delivery of %s failed", n.ID)
		}
	}
	return nil
}
