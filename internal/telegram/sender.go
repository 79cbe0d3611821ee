// internal/telegram/sender.go

package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/common/logging"
	"github.com/weekender/weekender-bot/internal/dating"
	"github.com/weekender/weekender-bot/internal/notification"
	"github.com/weekender/weekender-bot/internal/profile"
)

// Sender delivers messages that do not answer an update: mailings and match notices
type Sender struct {
	api      API
	profiles profile.Service
	logger   zerolog.Logger
}

var (
	_ notification.Sender = (*Sender)(nil)
	_ dating.Notifier     = (*Sender)(nil)
)

func NewSender(api API, profiles profile.Service) *Sender {
	return &Sender{api: api, profiles: profiles, logger: logging.Component("telegram_sender")}
}

func (s *Sender) SendMailing(ctx context.Context, chatID int64, m *notification.Mailing) error {
	return classify(sendMailing(s.api, chatID, m))
}

// NotifyMatch tells recipient that other reacted back, followed by other's profile
func (s *Sender) NotifyMatch(ctx context.Context, recipientTgID, otherTgID int64, kind dating.Kind) error {
	p, err := s.profiles.GetProfile(ctx, otherTgID)
	if err != nil {
		return err
	}
	if _, err := s.api.Send(tgbotapi.NewMessage(recipientTgID, matchTitle(kind))); err != nil {
		return classify(err)
	}
	err = sendProfile(s.api, recipientTgID, cardFromProfile(p), p.PhotoIDs, writeKeyboard(p.TgID, deref(p.Username)))
	if err != nil {
		return classify(err)
	}

	s.logger.Debug().
		Int64("recipient", recipientTgID).
		Int64("other", otherTgID).
		Str("kind", string(kind)).
		Msg("match notification sent")
	return nil
}

// sendMailing sends text alone, one captioned attachment, or an album.
// Text too long for a caption follows the media as its own message.
func sendMailing(api API, chatID int64, m *notification.Mailing) error {
	if len(m.Media) == 0 {
		_, err := api.Send(tgbotapi.NewMessage(chatID, m.Text))
		return err
	}

	caption := m.Text
	separate := len([]rune(caption)) > captionLimit
	if separate {
		caption = ""
	}

	if len(m.Media) == 1 {
		if _, err := api.Send(singleMedia(chatID, m.Media[0], caption)); err != nil {
			return err
		}
	} else {
		files := make([]interface{}, 0, len(m.Media))
		for i, md := range m.Media {
			c := ""
			if i == 0 {
				c = caption
			}
			files = append(files, inputMedia(md, c))
		}
		if _, err := api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, files)); err != nil {
			return err
		}
	}

	if separate {
		_, err := api.Send(tgbotapi.NewMessage(chatID, m.Text))
		return err
	}
	return nil
}

func singleMedia(chatID int64, md notification.Media, caption string) tgbotapi.Chattable {
	file := tgbotapi.FileID(md.FileID)
	switch md.Type {
	case notification.MediaVideo:
		c := tgbotapi.NewVideo(chatID, file)
		c.Caption = caption
		return c
	case notification.MediaDocument:
		c := tgbotapi.NewDocument(chatID, file)
		c.Caption = caption
		return c
	default:
		c := tgbotapi.NewPhoto(chatID, file)
		c.Caption = caption
		return c
	}
}

func inputMedia(md notification.Media, caption string) interface{} {
	file := tgbotapi.FileID(md.FileID)
	switch md.Type {
	case notification.MediaVideo:
		v := tgbotapi.NewInputMediaVideo(file)
		v.Caption = caption
		return v
	case notification.MediaDocument:
		d := tgbotapi.NewInputMediaDocument(file)
		d.Caption = caption
		return d
	default:
		p := tgbotapi.NewInputMediaPhoto(file)
		p.Caption = caption
		return p
	}
}

// sendProfile sends the photos as an album, then the card with markup
func sendProfile(api API, chatID int64, c card, photoIDs []string, markup interface{}) error {
	if len(photoIDs) > notification.MaxMediaGroup {
		photoIDs = photoIDs[:notification.MaxMediaGroup]
	}

	switch len(photoIDs) {
	case 0:
		if _, err := api.Send(tgbotapi.NewMessage(chatID, textNoPhotos)); err != nil {
			return err
		}
	case 1:
		if _, err := api.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FileID(photoIDs[0]))); err != nil {
			return err
		}
	default:
		files := make([]interface{}, 0, len(photoIDs))
		for _, id := range photoIDs {
			files = append(files, tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(id)))
		}
		if _, err := api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, files)); err != nil {
			return err
		}
	}

	msg := htmlMessage(chatID, c.String())
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := api.Send(msg)
	return err
}
