package protocol

import "encoding/json"

// Outbound is one server event ready to be encoded.
type Outbound interface {
	Kind() Kind
}

// ErrorCode classifies an Error event.
type ErrorCode string

const (
	CodeMalformed        ErrorCode = "malformed"
	CodeInvalid          ErrorCode = "invalid"
	CodeUnknownRoom      ErrorCode = "unknownRoom"
	CodeNotInRoom        ErrorCode = "notInRoom"
	CodeUnknownRecipient ErrorCode = "unknownRecipient"
	CodeRateLimited      ErrorCode = "rateLimited"
)

// UserSummary is one entry of the user snapshot sent with Init.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// UserStatus is one entry of a UserList. CurrentRoom is null while the user
// is not in a room.
type UserStatus struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Status      string  `json:"status"`
	CurrentRoom *string `json:"currentRoom"`
}

// Init welcomes a new connection.
type Init struct {
	Type     Kind          `json:"type"`
	UserID   string        `json:"userId"`
	Username string        `json:"username"`
	Rooms    []string      `json:"rooms"`
	Users    []UserSummary `json:"users"`
}

// RoomJoined confirms a join to the joining connection.
type RoomJoined struct {
	Type    Kind          `json:"type"`
	Room    string        `json:"room"`
	History []ChatMessage `json:"history"`
}

// UserJoined tells room members that someone arrived.
type UserJoined struct {
	Type     Kind   `json:"type"`
	Room     string `json:"room"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// UserLeft tells room members that someone departed.
type UserLeft struct {
	Type     Kind   `json:"type"`
	Room     string `json:"room"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ChatMessage is a message posted to a room.
type ChatMessage struct {
	Type      Kind   `json:"type"`
	Room      string `json:"room"`
	From      string `json:"from"`
	Username  string `json:"username"`
	Text      string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// DirectMessage is a private message. The copy echoed to the sender carries
// To and ToUsername; the recipient's copy does not.
type DirectMessage struct {
	Type         Kind   `json:"type"`
	From         string `json:"from"`
	FromUsername string `json:"fromUsername"`
	Text         string `json:"message"`
	Timestamp    string `json:"timestamp"`
	To           string `json:"to,omitempty"`
	ToUsername   string `json:"toUsername,omitempty"`
}

// UserList is the full snapshot of registered users.
type UserList struct {
	Type  Kind         `json:"type"`
	Users []UserStatus `json:"users"`
}

// Error reports a rejected client frame to its sender.
type Error struct {
	Type    Kind      `json:"type"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (Init) Kind() Kind          { return KindInit }
func (RoomJoined) Kind() Kind    { return KindRoomJoined }
func (UserJoined) Kind() Kind    { return KindUserJoined }
func (UserLeft) Kind() Kind      { return KindUserLeft }
func (ChatMessage) Kind() Kind   { return KindMessage }
func (DirectMessage) Kind() Kind { return KindPrivateMessage }
func (UserList) Kind() Kind      { return KindUserList }
func (Error) Kind() Kind         { return KindError }

func NewInit(userID, username string, rooms []string, users []UserSummary) Init {
	return Init{Type: KindInit, UserID: userID, Username: username, Rooms: rooms, Users: users}
}

// NewRoomJoined always carries an empty history: nothing is persisted.
func NewRoomJoined(room string) RoomJoined {
	return RoomJoined{Type: KindRoomJoined, Room: room, History: []ChatMessage{}}
}

func NewUserJoined(room, userID, username string) UserJoined {
	return UserJoined{Type: KindUserJoined, Room: room, UserID: userID, Username: username}
}

func NewUserLeft(room, userID, username string) UserLeft {
	return UserLeft{Type: KindUserLeft, Room: room, UserID: userID, Username: username}
}

func NewChatMessage(room, from, username, text, timestamp string) ChatMessage {
	return ChatMessage{
		Type:      KindMessage,
		Room:      room,
		From:      from,
		Username:  username,
		Text:      text,
		Timestamp: timestamp,
	}
}

func NewDirectMessage(from, fromUsername, text, timestamp string) DirectMessage {
	return DirectMessage{
		Type:         KindPrivateMessage,
		From:         from,
		FromUsername: fromUsername,
		Text:         text,
		Timestamp:    timestamp,
	}
}

// Echo returns the sender's copy of a direct message, tagged with the
// recipient.
func (m DirectMessage) Echo(to, toUsername string) DirectMessage {
	m.To = to
	m.ToUsername = toUsername
	return m
}

func NewUserList(users []UserStatus) UserList {
	if users == nil {
		users = []UserStatus{}
	}
	return UserList{Type: KindUserList, Users: users}
}

func NewError(code ErrorCode, message string) Error {
	return Error{Type: KindError, Code: code, Message: message}
}

// Encode renders an outbound event as a single text frame.
func Encode(event Outbound) ([]byte, error) {
	return json.Marshal(event)
}
