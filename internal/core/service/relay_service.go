package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/talking/chat-server/internal/core/domain"
	"github.com/talking/chat-server/internal/core/ports"
)

// outboundMessage is the data of a personal-message event sent to the recipient.
type outboundMessage struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// RelayService routes personal messages to the recipient's private channel
// and fans out broadcast signalling to the whole namespace.
type RelayService struct {
	persister ports.MessagePersister
	channels  ports.ChannelPublisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewRelayService(persister ports.MessagePersister, channels ports.ChannelPublisher, log zerolog.Logger) *RelayService {
	return &RelayService{
		persister: persister,
		channels:  channels,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SendPersonal publishes the message to the recipient and then hands it to
// the persister. The authenticated identity of the connection is the sender:
// a payload naming anyone else is rejected. A slow or failing store never
// holds up delivery, and nothing is acknowledged to the sender.
func (s *RelayService) SendPersonal(_ context.Context, boundUID string, in ports.PersonalMessageInput) error {
	from := strings.TrimSpace(in.From)
	if from == "" {
		from = boundUID
	}
	if from != boundUID {
		s.log.Warn().
			Str("uid", boundUID).
			Str("claimed_from", in.From).
			Msg("personal message rejected: sender mismatch")
		return domain.ErrSenderMismatch
	}

	msg := domain.Message{
		From:      from,
		To:        strings.TrimSpace(in.To),
		Text:      in.Text,
		CreatedAt: s.now(),
	}
	if err := msg.Validate(); err != nil {
		s.log.Debug().Str("uid", boundUID).Msg("personal message rejected: empty recipient or text")
		return err
	}

	delivered := s.channels.PublishTo(msg.To, ports.EventPersonalMessage, outboundMessage{
		From:      msg.From,
		To:        msg.To,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	})
	s.persister.Persist(msg)

	s.log.Debug().
		Str("from", msg.From).
		Str("to", msg.To).
		Int("delivered", delivered).
		Msg("personal message relayed")
	return nil
}

// Broadcast stamps the sender's connection id onto payload and sends it to
// every connection in the namespace. Nothing is persisted.
func (s *RelayService) Broadcast(connID string, payload map[string]any) int {
	if payload == nil {
		payload = make(map[string]any, 1)
	}
	payload["id"] = connID
	return s.channels.PublishAll(ports.EventSendResponse, payload)
}
