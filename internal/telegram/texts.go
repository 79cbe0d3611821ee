// internal/telegram/texts.go

package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/weekender/weekender-bot/internal/dating"
	"github.com/weekender/weekender-bot/internal/notification"
	"github.com/weekender/weekender-bot/internal/profile"
	"github.com/weekender/weekender-bot/internal/recommend"
)

// Reply keyboard labels
const (
	btnStart      = "🎉 Начнём 🎉"
	btnResidents  = "Резиденты"
	btnEvents     = "Мероприятия"
	btnPoints     = "Баллы"
	btnChat       = "Чат"
	btnSupport    = "🆘 Поддержка"
	btnAdmin      = "🪪"
	btnRepeat     = "🔄️Повторить подборку"
	btnEditEvents = "🔀Изменить подборку"
)

const (
	textGreeting = `<b>Привет, %s! Ты в уютном пространстве Weekender.</b>
Здесь люди находят мероприятия и своих людей рядом — для дружбы, поддержки, флирта или просто классных выходных вместе.
💌 Заполни короткую анкету — и мы подберём тебе: — события, где можно быть собой — новых знакомых, с которыми ты на одной волне — возможность стать частью топового комьюнити.

‼️ При отсутствии фото аватарки и username бот будет работать некорректно. Посмотри настройки конфиденциальности. Измените это при необходимости.

Всё просто: ты рассказываешь немного о себе — а мы подбираем тебе эмоции ✨ Ну что, начнём?`

	textAskAge = `<b>А теперь чуть ближе к делу 😉</b>
Сколько тебе лет?
👀 Это нужно, чтобы подобрать тебе события и людей примерно твоего вайба.`
	textAskGender   = "<b>Теперь укажи пол:</b>"
	textAskStatus   = "<b>💘 А как у тебя на личном фронте?</b>\nВыбери, как тебе ближе:\n— В отношениях, мне и так хорошо\n— В поиске — открыта/открыт для новых знакомств"
	textAskTarget   = "<b>А что ты хочешь найти с нами?</b>\n— Новых друзей\n— Отношения"
	textAskDistrict = "<b>Отлично! Теперь давай уточним гео:</b>\nВ каком районе Москвы ты живешь?"
	textAskJob      = "<b>Расскажи, кем ты работаешь?</b>"
	textAskAbout    = "<b>Пара слов о себе:</b>\nЧем живёшь, что любишь, с кем хочешь познакомиться?"
	textAskInterest = "<b>Что тебе интересно?</b>\nВыбери всё, что откликается, и нажми «Готово»."

	textEditInterests = "Обновите интересы:"

	textAgeNotNumber = "❌ Пожалуйста, введите число цифрами"
	textAgeRange     = "❌ Пожалуйста, введите возраст от %d до %d лет"
	textJobTooLong   = "❌ Слишком длинно, уложись в 50 символов"
	textAboutTooLong = "❌ Слишком длинно, уложись в 1000 символов"
	textNoInterests  = "❌ Выберите хотя бы один интерес!"
	textTooMany      = "❌ Слишком много интересов, выберите не больше %d"
	textSaved        = "Спасибо! Теперь точно будет классный мэтч, погнали 💜"
	textInterestsOK  = "Интересы обновлены успешно!"
	textMenuHelp     = `Немного о меню:
⭐️ Резиденты — твой профиль и поиск людей
⭐️ Мероприятия — подборка событий под твои интересы
⭐️ Баллы — копи скидки на билеты
⭐️ Чат — онлайн общение и поиск компании`

	textNeedProfile = "Сначала заполни анкету — нажми «🎉 Начнём 🎉»"
	textError       = "❌ Произошла ошибка. Попробуйте позже."
	textBadData     = "❌ При обработке данных произошла ошибка. Попробуйте ещё раз!"
	textUnknown     = "Не понимаю 🙈 Воспользуйся кнопками меню."

	textEventsMenu    = "<b>Мероприятия</b>\nПодборка событий под твои интересы:"
	textNoEvents      = "⏳ К сожалению, сейчас нет подходящих мероприятий. Мы сообщим, когда появятся новые!\n\nА пока можешь присоединиться к чату %s и позвать туда своих друзей 💜"
	textEventsSeenAll = "✨ Вы уже посмотрели все доступные мероприятия!\nПопробуйте изменить фильтры или загляните позже. ✨"

	textResidentsMenu = "<b>Резиденты</b>"
	textAskUsername   = "Введите @username пользователя, которого хотите найти:"
	textUserNotFound  = "❌ Пользователь не найден"
	textAskAgeRanges  = "Выберите возрастной диапазон:"
	textNoAgeRanges   = "❌ Выберите хотя бы один возрастной диапазон!"
	textSearching     = "Подождите, идет поиск..."
	textNoPeople      = "😔 Больше подходящих людей не найдено, попробуй изменить анкету"
	textMorePeople    = "Хотите увидеть больше?"
	textNoPhotos      = "Нет фотографий профиля"
	textLikeOn        = "Лайк поставлен!"
	textLikeOff       = "Лайк убран"
	textFriendOn      = "Заявка в друзья отправлена!"
	textFriendOff     = "Заявка в друзья отменена"
	textMatchLike     = "💖 Это взаимно! Вы понравились этому пользователю"
	textMatchFriend   = "🙂 Это взаимно! С вами хотят дружить"
	textSelfReaction  = "Это ваш профиль 🙂"

	textPoints = "💎 У тебя <b>%d</b> баллов.\nКопи баллы и обменивай их на скидки на билеты."
	textChat   = "Онлайн общение и поиск компании:"

	textSupportIntro  = "🆘 Напиши свой вопрос одним сообщением — мы ответим здесь же.\nЧтобы выйти, нажми /cancel."
	textSupportSent   = "✅ Сообщение отправлено в поддержку. Мы скоро ответим!"
	textSupportClosed = "Обращение закрыто. Если остались вопросы — напиши снова через «🆘 Поддержка»."
	textSupportNew    = "🆘 <b>Обращение #%d</b> от %s (<code>%d</code>)\n\n%s"
	textSupportReply  = "🟣 Weekender:\n%s"
	textCancelled     = "Отменено."

	textAdminMenu       = "<b>➖➖  Меню администратора  ➖➖</b>"
	textNoRights        = "❌ Недостаточно прав!"
	textAskReply        = "Введите ответ на обращение #%d:"
	textReplySent       = "✅ Ответ отправлен пользователю"
	textReplyFailed     = "❌ Не удалось отправить ответ"
	textTicketClosed    = "❌ Тикет не найден или уже закрыт."
	textTicketDone      = "✅ Обращение #%d закрыто"
	textNoTickets       = "Открытых обращений нет 🎉"
	textTicketLine      = "#%d · %s · %s"
	textSelectAges      = "<b>Выберите возрастные диапазоны пользователей:</b>"
	textSelectDistricts = "<b>Выберите районы пользователей:</b>"
	textSelectTargets   = "<b>Выберите цель пользователей:</b>"
	textSelectGenders   = "<b>Введите пол пользователей:</b>"
	textRecipients      = "Список пользователей для рассылки:\n%s\n\nПолучателей: <b>%d</b>"
	textNoRecipients    = "❌ Нет пользователей для отправки!"
	textAskMailing      = "<b>Введите медиаданные и/или текст:</b>\nКогда соберете рассылку нажмите кнопку <b>Готово</b>"
	textMailingAdded    = "Добавлено: %s. Можно отправить ещё или нажать «Готово»."
	textMailingEmpty    = "❌ Рассылка пустая: добавьте текст или медиа"
	textMailingInvalid  = "❌ Рассылка не собрана: %s"
	textPreview         = "Превью рассылки:"
	textConfirm         = "Отправить рассылку?\n%s"
	textMailingStarted  = "⏳ Начало рассылки... 0/%d"
	textMailingBusy     = "❌ Другая рассылка ещё не завершена"
	textMailingFailed   = "❌ Произошла ошибка при рассылке"
	textMailingProgress = "⏳ Рассылка... %d/%d\n✅ Успешно: %d\n❌ Ошибок: %d"
	textMailingReport   = "📤 Рассылка завершена\n▪ Всего: %d\n▪ Успешно: %d\n▪ Ошибок: %d"
	textMailingStopped  = "⛔ Рассылка прервана\n▪ Всего: %d\n▪ Успешно: %d\n▪ Ошибок: %d"
	textToken           = "🔑 Токен для admin API (действует до %s):\n<code>%s</code>"
)

func greeting(firstName string) string {
	return fmt.Sprintf(textGreeting, html.EscapeString(firstName))
}

func matchTitle(kind dating.Kind) string {
	if kind == dating.KindLike {
		return textMatchLike
	}
	return textMatchFriend
}

// card is what a profile message shows
type card struct {
	Name       string
	Likes      int
	Age        *int
	Gender     *string
	Status     *string
	Target     *string
	District   *string
	Interests  []string
	Profession *string
	About      *string
}

func cardFromProfile(p *profile.Profile) card {
	return card{
		Name:       deref(p.FirstName),
		Likes:      p.TotalLikes,
		Age:        p.Year,
		Gender:     p.Gender,
		Status:     p.Status,
		Target:     p.Target,
		District:   p.District,
		Interests:  p.Interests,
		Profession: p.Profession,
		About:      p.About,
	}
}

func cardFromCandidate(c *recommend.Candidate) card {
	return card{
		Name:       c.FirstName,
		Likes:      c.TotalLikes,
		Age:        c.Age,
		Gender:     c.Gender,
		Status:     c.MaritalStatus,
		Target:     c.Target,
		District:   c.District,
		Interests:  c.InterestTags,
		Profession: c.Profession,
		About:      c.About,
	}
}

func (c card) String() string {
	var b strings.Builder
	name := c.Name
	if name == "" {
		name = "не указан"
	}
	fmt.Fprintf(&b, "👤 <b>%s</b>\n\n", html.EscapeString(name))
	fmt.Fprintf(&b, "❤️ <b>Лайков:</b> %d\n\n", c.Likes)

	age := "не указан"
	if c.Age != nil {
		age = fmt.Sprint(*c.Age)
	}
	status := or(c.Status, "не указан")
	if c.Status != nil && *c.Status == profile.StatusSingle {
		status += "(а)"
	}
	interests := strings.Join(c.Interests, ", ")
	if interests == "" {
		interests = "не указаны"
	}

	fmt.Fprintf(&b, "🎂 <b>Возраст:</b> %s\n", age)
	fmt.Fprintf(&b, "♂️ <b>Пол:</b> %s\n", html.EscapeString(or(c.Gender, "не указан")))
	fmt.Fprintf(&b, "💍 <b>Статус:</b> %s\n", html.EscapeString(status))
	fmt.Fprintf(&b, "🎯 <b>Цель:</b> %s\n", html.EscapeString(or(c.Target, "не указана")))
	fmt.Fprintf(&b, "🏙 <b>Район:</b> %s\n", html.EscapeString(or(c.District, "не указан")))
	fmt.Fprintf(&b, "🎮 <b>Интересы:</b> %s\n", html.EscapeString(interests))
	fmt.Fprintf(&b, "💼 <b>Профессия:</b> %s\n", html.EscapeString(or(c.Profession, "не указана")))
	fmt.Fprintf(&b, "📄 <b>О себе:</b> %s", html.EscapeString(or(c.About, "не указано")))
	return b.String()
}

func eventText(c *recommend.Candidate) string {
	return c.Description + "\n\n" + c.URL
}

func progressText(p notification.Progress) string {
	return fmt.Sprintf(textMailingProgress, p.Done, p.Total, p.Success, p.Errors)
}

func reportText(r *notification.Report) string {
	if r.Cancelled {
		return fmt.Sprintf(textMailingStopped, r.Total, r.Success, r.Errors)
	}
	return fmt.Sprintf(textMailingReport, r.Total, r.Success, r.Errors)
}

func or(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
