// internal/telegram/keyboards.go

package telegram

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/weekender/weekender-bot/internal/dating"
	"github.com/weekender/weekender-bot/internal/profile"
)

// Callback data. Prefixed values carry the option name or a Telegram id after the prefix.
const (
	cbProfile        = "profile"
	cbEditProfile    = "edit_profile"
	cbFindUser       = "find_user"
	cbFindPeople     = "find_people"
	cbEvents         = "events"
	cbEventsMore     = "events_more"
	cbEditEvents     = "edit_events"
	cbShowMorePeople = "show_more_people"
	cbAgeDone        = "age_done"
	cbInterestsDone  = "interests_done"

	cbGender     = "gender_"
	cbStatus     = "status_"
	cbTarget     = "target_"
	cbDistrict   = "district_"
	cbInterest   = "interests_"
	cbAgeRange   = "age_range_"
	cbLikeToggle = "like_toggle_"
	cbFriendTog  = "friend_toggle_"

	cbMassSend       = "mass_send"
	cbMassSendAll    = "mass_send_all"
	cbSelectAge      = "select_age_"
	cbDoneAge        = "done_age_select"
	cbSelectDistrict = "select_district_"
	cbDoneDistrict   = "done_district_select"
	cbSelectTarget   = "select_target_"
	cbDoneTarget     = "done_target_select"
	cbSelectGender   = "select_gender_"
	cbDoneGender     = "done_gender_select"
	cbAddMessage     = "add_message"
	cbEditMailing    = "edit_mailing"
	cbDoneMailing    = "done_mailing"
	cbStartMailing   = "start_mailing"
	cbCancelMailing  = "cancel_mailing"
	cbSupportList    = "support_list"
	cbSupportReply   = "support_reply_"
	cbSupportClose   = "support_close_"
	cbAdminToken     = "admin_token"
)

const (
	checkMark = "✅"
	btnDone   = "🎯 Готово"
)

func mainKeyboard(hasProfile, isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	if hasProfile {
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnResidents), tgbotapi.NewKeyboardButton(btnEvents)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnPoints), tgbotapi.NewKeyboardButton(btnChat)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSupport)),
		)
	} else {
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnStart)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSupport)),
		)
	}
	if isAdmin {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAdmin)))
	}

	return tgbotapi.NewReplyKeyboard(rows...)
}

func residentsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Посмотреть свой профиль", cbProfile)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Изменить профиль", cbEditProfile)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Посмотреть пользователей чата", cbFindUser)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Найти людей", cbFindPeople)),
	)
}

func eventsKeyboard(assistantURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Подборка", cbEvents)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Изменить профиль", cbEditEvents)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Персональный помощник", assistantURL)),
	)
}

func chatKeyboard(chatURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(btnChat, chatURL)),
	)
}

func moreEventsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnRepeat, cbEventsMore)),
	)
}

func showMoreKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Показать ещё", cbShowMorePeople)),
	)
}

// optionLabel is how an option is shown on a button
func optionLabel(o profile.Option) string {
	if o.Category == profile.CategoryStatus && o.Name == profile.StatusSingle {
		return o.Name + "(а)"
	}
	return o.Name
}

// choiceKeyboard lays options out two per row, marking the selected ones.
// A non-empty done adds a final confirmation button.
func choiceKeyboard(prefix string, opts []profile.Option, selected []string, done string) tgbotapi.InlineKeyboardMarkup {
	marked := make(map[string]bool, len(selected))
	for _, s := range selected {
		marked[s] = true
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, o := range opts {
		label := optionLabel(o)
		if marked[o.Name] {
			label = checkMark + " " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, prefix+o.Name))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if done != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnDone, done)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func writeURL(username string, tgID int64) string {
	if username != "" {
		return "https://t.me/" + username
	}
	return "tg://user?id=" + strconv.FormatInt(tgID, 10)
}

// personKeyboard renders the toggle button for the viewer's reaction kind plus a link to the person
func personKeyboard(kind dating.Kind, tgID int64, username string, snap *dating.Snapshot) tgbotapi.InlineKeyboardMarkup {
	var toggle tgbotapi.InlineKeyboardButton
	sent := snap != nil && snap.Has(kind, tgID)
	mutual := snap != nil && snap.IsMutual(tgID)

	switch kind {
	case dating.KindLike:
		label := "🤍 Лайк"
		if sent {
			label = "❤️ Лайк"
		}
		if mutual {
			label = "💖 Взаимно"
		}
		toggle = tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbLikeToggle, tgID))
	default:
		label := "🤝 Дружить"
		if sent {
			label = "✅ Заявка отправлена"
		}
		if mutual {
			label = "🙂 Друзья"
		}
		toggle = tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbFriendTog, tgID))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(toggle),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("✉️ Написать", writeURL(username, tgID))),
	)
}

func writeKeyboard(tgID int64, username string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("✉️ Написать", writeURL(username, tgID))),
	)
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📨 Рассылка по фильтрам", cbMassSend)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📢 Рассылка всем", cbMassSendAll)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🆘 Обращения", cbSupportList)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔑 Токен API", cbAdminToken)),
	)
}

func recipientsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✍️ Добавить сообщение", cbAddMessage)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", cbCancelMailing)),
	)
}

func composeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnDone, cbDoneMailing)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", cbCancelMailing)),
	)
}

func previewKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🚀 Отправить", cbStartMailing)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✏️ Изменить", cbEditMailing)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", cbCancelMailing)),
	)
}

func ticketKeyboard(ticketID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("↩️ Ответить", fmt.Sprintf("%s%d", cbSupportReply, ticketID)),
		tgbotapi.NewInlineKeyboardButtonData("✅ Закрыть", fmt.Sprintf("%s%d", cbSupportClose, ticketID)),
	))
}
