package order

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type EventKind string

const (
	KindText     EventKind = "text"
	KindPhoto    EventKind = "photo"
	KindLocation EventKind = "location"
	KindCommand  EventKind = "command"
)

// Event is one inbound chat message, already decoded by the transport.
type Event struct {
	ChatID int64
	Kind   EventKind
	Body   string // text body, or command name without the slash
	Image  []byte
	Lat    float64
	Lon    float64
}

func TextEvent(chatID int64, body string) Event {
	return Event{ChatID: chatID, Kind: KindText, Body: body}
}

func PhotoEvent(chatID int64, image []byte) Event {
	return Event{ChatID: chatID, Kind: KindPhoto, Image: image}
}

func LocationEvent(chatID int64, lat, lon float64) Event {
	return Event{ChatID: chatID, Kind: KindLocation, Lat: lat, Lon: lon}
}

func CommandEvent(chatID int64, name string) Event {
	return Event{ChatID: chatID, Kind: KindCommand, Body: name}
}

var validate = validator.New()

type coordinates struct {
	Lat float64 `validate:"latitude"`
	Lon float64 `validate:"longitude"`
}

func validateCoordinates(lat, lon float64) error {
	return validate.Struct(coordinates{Lat: lat, Lon: lon})
}

type ActionKind string

const (
	ActionSendText       ActionKind = "send_text"
	ActionSendImage      ActionKind = "send_image"
	ActionRemoveKeyboard ActionKind = "remove_keyboard"
)

// Button is one reply-keyboard button.
type Button struct {
	Text            string
	RequestLocation bool
}

// Action is one outbound message for the transport to deliver.
type Action struct {
	Kind     ActionKind
	ChatID   int64
	Body     string
	Keyboard [][]Button
	Image    []byte
}

// FollowUp is a batch of actions delivered after a delay, outside the chat lock.
type FollowUp struct {
	After   time.Duration
	Actions []Action
}

// Reply is everything one step wants delivered.
type Reply struct {
	Actions   []Action
	FollowUps []FollowUp
}

func (r *Reply) text(chatID int64, body string, keyboard [][]Button) {
	r.Actions = append(r.Actions, Action{Kind: ActionSendText, ChatID: chatID, Body: body, Keyboard: keyboard})
}

func (r *Reply) image(chatID int64, img []byte, caption string) {
	r.Actions = append(r.Actions, Action{Kind: ActionSendImage, ChatID: chatID, Image: img, Body: caption})
}

func (r *Reply) removeKeyboard(chatID int64, body string) {
	r.Actions = append(r.Actions, Action{Kind: ActionRemoveKeyboard, ChatID: chatID, Body: body})
}

func (r *Reply) later(after time.Duration, actions ...Action) {
	r.FollowUps = append(r.FollowUps, FollowUp{After: after, Actions: actions})
}
