// internal/telegram/api.go

package telegram

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/weekender/weekender-bot/internal/notification"
)

// API is the part of *tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(c tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetUserProfilePhotos(c tgbotapi.UserProfilePhotosConfig) (tgbotapi.UserProfilePhotos, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)

// captionLimit is the longest caption Telegram accepts on media
const captionLimit = 1024

// classify marks errors that mean the recipient can never be reached
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == 403,
		apiErr.Code == 400 && strings.Contains(apiErr.Message, "chat not found"):
		return fmt.Errorf("%w: %s", notification.ErrRecipientUnavailable, apiErr.Message)
	}
	return err
}

// notModified is returned when an edit leaves a message unchanged
func notModified(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "message is not modified")
}

func htmlMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}
